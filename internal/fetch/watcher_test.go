package fetch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mietwerk/leasescan/internal/model"
	"github.com/mietwerk/leasescan/internal/pipeline"
)

// fakeInbox serves files from a map and records removals.
type fakeInbox struct {
	mu      sync.Mutex
	files   map[string][]byte
	listErr error
	removed []string
}

func (f *fakeInbox) List(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var names []string
	for name := range f.files {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeInbox) Fetch(_ context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[name]
	if !ok {
		return nil, eris.Errorf("no such file %s", name)
	}
	return data, nil
}

func (f *fakeInbox) Remove(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, name)
	f.removed = append(f.removed, name)
	return nil
}

// recordingProcessor fails for filenames in failOn, succeeds otherwise.
type recordingProcessor struct {
	mu        sync.Mutex
	processed []string
	failOn    map[string]bool
}

func (p *recordingProcessor) Process(_ context.Context, f pipeline.File) (*model.ExtractionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOn[f.Name] {
		return nil, eris.New("store unavailable")
	}
	p.processed = append(p.processed, f.Name)
	return &model.ExtractionResult{ID: "res-" + f.Name, Status: model.StatusSuccess}, nil
}

func TestPollOnceProcessesAndRemoves(t *testing.T) {
	inbox := &fakeInbox{files: map[string][]byte{
		"a.pdf": []byte("%PDF-1.7 a"),
		"b.pdf": []byte("%PDF-1.7 b"),
	}}
	proc := &recordingProcessor{}
	w := NewWatcher(inbox, proc, time.Minute)

	require.NoError(t, w.PollOnce(context.Background()))

	assert.ElementsMatch(t, []string{"a.pdf", "b.pdf"}, proc.processed)
	assert.ElementsMatch(t, []string{"a.pdf", "b.pdf"}, inbox.removed)
	assert.Empty(t, inbox.files)
}

func TestPollOnceKeepsFailedFiles(t *testing.T) {
	inbox := &fakeInbox{files: map[string][]byte{
		"ok.pdf":  []byte("%PDF-1.7 ok"),
		"bad.pdf": []byte("%PDF-1.7 bad"),
	}}
	proc := &recordingProcessor{failOn: map[string]bool{"bad.pdf": true}}
	w := NewWatcher(inbox, proc, time.Minute)

	require.NoError(t, w.PollOnce(context.Background()))

	assert.Equal(t, []string{"ok.pdf"}, proc.processed)
	assert.Equal(t, []string{"ok.pdf"}, inbox.removed)
	// The failed file stays in the inbox for the next poll.
	assert.Contains(t, inbox.files, "bad.pdf")
}

func TestPollOnceEmptyInbox(t *testing.T) {
	inbox := &fakeInbox{files: map[string][]byte{}}
	proc := &recordingProcessor{}
	w := NewWatcher(inbox, proc, time.Minute)

	require.NoError(t, w.PollOnce(context.Background()))
	assert.Empty(t, proc.processed)
}

func TestPollOnceListError(t *testing.T) {
	inbox := &fakeInbox{listErr: eris.New("connection refused")}
	w := NewWatcher(inbox, &recordingProcessor{}, time.Minute)

	err := w.PollOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRunStopsOnCancel(t *testing.T) {
	inbox := &fakeInbox{files: map[string][]byte{}}
	w := NewWatcher(inbox, &recordingProcessor{}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		// Cancellation is the normal shutdown path, not an error.
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestNewWatcherDefaultInterval(t *testing.T) {
	w := NewWatcher(&fakeInbox{}, &recordingProcessor{}, 0)
	assert.Equal(t, 5*time.Minute, w.interval)
}

func TestHostAddr(t *testing.T) {
	assert.Equal(t, "ftp.example.com:21", hostAddr("ftp.example.com"))
	assert.Equal(t, "ftp.example.com:2121", hostAddr("ftp.example.com:2121"))
}
