package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mietwerk/leasescan/internal/config"
	"github.com/mietwerk/leasescan/internal/model"
	"github.com/mietwerk/leasescan/internal/store"
)

// stubText returns canned contract text instead of reading the PDF.
type stubText struct {
	text string
	err  error
}

func (s *stubText) ExtractText(_ context.Context, _ string) (string, error) {
	return s.text, s.err
}

// stubLease returns a canned extraction and counts calls.
type stubLease struct {
	extraction *model.LeaseExtraction
	err        error
	calls      atomic.Int32

	mu    sync.Mutex
	texts []string
}

func (s *stubLease) Extract(_ context.Context, contractText string) (*model.LeaseExtraction, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.texts = append(s.texts, contractText)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	e := *s.extraction
	return &e, nil
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleExtraction() *model.LeaseExtraction {
	cold := decimal.RequireFromString("1040.00")
	warm := decimal.RequireFromString("1405.00")
	start := model.NewDate(2023, 1, 1)
	return &model.LeaseExtraction{
		Tenants:           []model.Tenant{{FirstName: "Anna", LastName: "Schmidt"}},
		Address:           model.Address{Street: "Leopoldstraße", HouseNumber: "12", ZipCode: "80331", City: "München"},
		ColdRent:          &cold,
		WarmRent:          &warm,
		RentIncreaseType:  model.IncreaseIndexLinked,
		ContractStartDate: &start,
		IsActive:          true,
		ConfidenceScores: map[string]float64{
			"tenants":             0.95,
			"address":             0.95,
			"cold_rent":           0.95,
			"warm_rent":           0.95,
			"contract_start_date": 0.95,
			"rent_increase_type":  0.95,
		},
		AIModel: "claude-sonnet-4-5-20250929",
	}
}

// pdfBytes fabricates an upload that passes the magic number check.
func pdfBytes() []byte {
	return []byte("%PDF-1.7 fake body for testing")
}

func contractText() string {
	return strings.Repeat("§ 1 Mietsache. Der Vermieter vermietet dem Mieter die Wohnung. ", 5)
}

func newTestPipeline(t *testing.T, text *stubText, lease *stubLease) (*Pipeline, store.Store) {
	t.Helper()
	st := newTestStore(t)
	p := New(text, lease, st, config.PipelineConfig{MaxBatchFiles: 3, MaxConcurrent: 2})
	return p, st
}

func TestProcessSuccess(t *testing.T) {
	lease := &stubLease{extraction: sampleExtraction()}
	p, st := newTestPipeline(t, &stubText{text: contractText()}, lease)

	res, err := p.Process(context.Background(), File{Name: "mietvertrag.pdf", Data: pdfBytes()})
	require.NoError(t, err)

	assert.Equal(t, model.StatusSuccess, res.Status)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "mietvertrag.pdf", res.Filename)
	require.NotNil(t, res.Quality)
	assert.Greater(t, res.Quality.OverallScore, 90.0)
	assert.Equal(t, model.TierExcellent, res.Quality.Tier)
	assert.GreaterOrEqual(t, res.ProcessingMS, int64(0))

	// The lease extractor must have received the text, not the PDF path.
	require.Equal(t, int32(1), lease.calls.Load())
	assert.Contains(t, lease.texts[0], "Mietsache")

	stored, err := st.GetResult(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, stored.Status)
	require.NotNil(t, stored.Extraction)
	assert.Equal(t, "München", stored.Extraction.Address.City)
}

func TestProcessRejectsInvalidUpload(t *testing.T) {
	lease := &stubLease{extraction: sampleExtraction()}
	p, st := newTestPipeline(t, &stubText{text: contractText()}, lease)

	_, err := p.Process(context.Background(), File{Name: "notes.txt", Data: []byte("hello")})
	require.Error(t, err)
	assert.Zero(t, lease.calls.Load())

	// Nothing was persisted for a rejected upload.
	all, err := st.ListResults(context.Background(), store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestProcessStoresTextExtractionFailure(t *testing.T) {
	lease := &stubLease{extraction: sampleExtraction()}
	p, st := newTestPipeline(t, &stubText{err: eris.New("pdftext: broken xref")}, lease)

	res, err := p.Process(context.Background(), File{Name: "broken.pdf", Data: pdfBytes()})
	require.NoError(t, err)

	assert.Equal(t, model.StatusFailed, res.Status)
	assert.Contains(t, res.ErrorMessage, "broken xref")
	assert.Nil(t, res.Extraction)
	assert.Nil(t, res.Quality)
	assert.Zero(t, lease.calls.Load())

	stored, err := st.GetResult(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, stored.Status)
}

func TestProcessFailsOnTooLittleText(t *testing.T) {
	lease := &stubLease{extraction: sampleExtraction()}
	p, _ := newTestPipeline(t, &stubText{text: "   Mietvertrag   "}, lease)

	res, err := p.Process(context.Background(), File{Name: "scan.pdf", Data: pdfBytes()})
	require.NoError(t, err)

	assert.Equal(t, model.StatusFailed, res.Status)
	assert.Contains(t, res.ErrorMessage, "scanned or empty")
	assert.Zero(t, lease.calls.Load())
}

func TestProcessStoresExtractorFailure(t *testing.T) {
	lease := &stubLease{err: eris.New("extractor: create message")}
	p, st := newTestPipeline(t, &stubText{text: contractText()}, lease)

	res, err := p.Process(context.Background(), File{Name: "mietvertrag.pdf", Data: pdfBytes()})
	require.NoError(t, err)

	assert.Equal(t, model.StatusFailed, res.Status)
	assert.Contains(t, res.ErrorMessage, "create message")

	stored, err := st.GetResult(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "mietvertrag.pdf", stored.Filename)
	assert.Equal(t, model.StatusFailed, stored.Status)
}

func TestProcessBatchMixedOutcomes(t *testing.T) {
	lease := &stubLease{extraction: sampleExtraction()}
	p, st := newTestPipeline(t, &stubText{text: contractText()}, lease)

	files := []File{
		{Name: "a.pdf", Data: pdfBytes()},
		{Name: "b.txt", Data: []byte("not a pdf")},
		{Name: "c.pdf", Data: pdfBytes()},
	}

	outcomes, err := p.ProcessBatch(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, 0, outcomes[0].Index)
	assert.Equal(t, "a.pdf", outcomes[0].Filename)
	assert.True(t, outcomes[0].Succeeded())

	assert.Equal(t, "b.txt", outcomes[1].Filename)
	assert.False(t, outcomes[1].Succeeded())
	assert.NotEmpty(t, outcomes[1].Error)
	assert.Nil(t, outcomes[1].Result)

	assert.True(t, outcomes[2].Succeeded())

	// Only the two valid documents were persisted.
	all, err := st.ListResults(context.Background(), store.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestProcessBatchRejectsTooManyFiles(t *testing.T) {
	lease := &stubLease{extraction: sampleExtraction()}
	p, _ := newTestPipeline(t, &stubText{text: contractText()}, lease)

	files := make([]File, 4)
	for i := range files {
		files[i] = File{Name: "f.pdf", Data: pdfBytes()}
	}

	_, err := p.ProcessBatch(context.Background(), files)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many files")
}

func TestProcessBatchRejectsEmpty(t *testing.T) {
	lease := &stubLease{extraction: sampleExtraction()}
	p, _ := newTestPipeline(t, &stubText{text: contractText()}, lease)

	_, err := p.ProcessBatch(context.Background(), nil)
	require.Error(t, err)
}

func TestProcessBatchRespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	lease := &stubLease{extraction: sampleExtraction()}

	text := &slowText{
		text:     contractText(),
		inFlight: &inFlight,
		peak:     &peak,
	}
	st := newTestStore(t)
	p := New(text, lease, st, config.PipelineConfig{MaxBatchFiles: 3, MaxConcurrent: 1})

	files := []File{
		{Name: "a.pdf", Data: pdfBytes()},
		{Name: "b.pdf", Data: pdfBytes()},
		{Name: "c.pdf", Data: pdfBytes()},
	}
	_, err := p.ProcessBatch(context.Background(), files)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(1))
}

// slowText tracks concurrent ExtractText calls.
type slowText struct {
	text     string
	inFlight *atomic.Int32
	peak     *atomic.Int32
}

func (s *slowText) ExtractText(_ context.Context, _ string) (string, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		old := s.peak.Load()
		if n <= old || s.peak.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return s.text, nil
}
