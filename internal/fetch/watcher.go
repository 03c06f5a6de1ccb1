package fetch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mietwerk/leasescan/internal/model"
	"github.com/mietwerk/leasescan/internal/pipeline"
)

// Processor runs one document through the extraction pipeline.
type Processor interface {
	Process(ctx context.Context, f pipeline.File) (*model.ExtractionResult, error)
}

// Watcher polls an Inbox and processes every PDF it finds. Files are removed
// from the inbox only after the pipeline has handled them; a processing error
// leaves the file in place so the next poll retries it.
type Watcher struct {
	inbox    Inbox
	proc     Processor
	interval time.Duration
}

// NewWatcher creates a Watcher polling at the given interval.
func NewWatcher(inbox Inbox, proc Processor, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Watcher{inbox: inbox, proc: proc, interval: interval}
}

// Run polls immediately, then on every tick. Cancelling ctx is the normal
// way to stop the watcher and returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	zap.L().Info("fetch: watching inbox", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.PollOnce(ctx); err != nil {
			zap.L().Error("fetch: poll failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			zap.L().Info("fetch: stopping inbox watcher")
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce lists the inbox and processes each pending file.
func (w *Watcher) PollOnce(ctx context.Context) error {
	names, err := w.inbox.List(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}
	zap.L().Info("fetch: found pending documents", zap.Int("count", len(names)))

	for _, name := range names {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.handleFile(ctx, name)
	}
	return nil
}

func (w *Watcher) handleFile(ctx context.Context, name string) {
	data, err := w.inbox.Fetch(ctx, name)
	if err != nil {
		zap.L().Error("fetch: download failed", zap.String("name", name), zap.Error(err))
		return
	}

	res, err := w.proc.Process(ctx, pipeline.File{Name: name, Data: data})
	if err != nil {
		zap.L().Error("fetch: processing failed, leaving file for retry",
			zap.String("name", name), zap.Error(err))
		return
	}

	zap.L().Info("fetch: document processed",
		zap.String("name", name),
		zap.String("id", res.ID),
		zap.String("status", string(res.Status)),
	)

	if err := w.inbox.Remove(ctx, name); err != nil {
		// The result is stored; a leftover file means one duplicate
		// extraction on the next poll, which is tolerable.
		zap.L().Warn("fetch: remove failed", zap.String("name", name), zap.Error(err))
	}
}
