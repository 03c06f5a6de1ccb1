// Package pipeline orchestrates one document's journey: PDF validation,
// text extraction, AI extraction, quality scoring, persistence.
package pipeline

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mietwerk/leasescan/internal/config"
	"github.com/mietwerk/leasescan/internal/model"
	"github.com/mietwerk/leasescan/internal/pdftext"
	"github.com/mietwerk/leasescan/internal/quality"
	"github.com/mietwerk/leasescan/internal/store"
)

// minTextChars is the minimum amount of extracted text required to attempt
// an AI extraction. Below this the PDF is almost certainly scanned without
// a text layer, or empty.
const minTextChars = 100

// LeaseExtractor turns contract text into a structured record.
type LeaseExtractor interface {
	Extract(ctx context.Context, contractText string) (*model.LeaseExtraction, error)
}

// File is one uploaded document.
type File struct {
	Name string
	Data []byte
}

// Pipeline processes lease PDFs end to end. Safe for concurrent use.
type Pipeline struct {
	text  pdftext.Extractor
	lease LeaseExtractor
	store store.Store
	cfg   config.PipelineConfig

	// now is the clock used for scoring and timestamps, injectable in tests.
	now func() time.Time
}

// New creates a Pipeline.
func New(text pdftext.Extractor, lease LeaseExtractor, st store.Store, cfg config.PipelineConfig) *Pipeline {
	return &Pipeline{
		text:  text,
		lease: lease,
		store: st,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Process runs one document through the pipeline and persists the outcome.
// Invalid uploads (not a PDF, too large) fail fast with an error and are not
// stored. Failures past validation are stored as failed results so the
// document's history is queryable.
func (p *Pipeline) Process(ctx context.Context, f File) (*model.ExtractionResult, error) {
	if err := pdftext.ValidateUpload(f.Data); err != nil {
		return nil, err
	}

	start := p.now()
	result := &model.ExtractionResult{
		ID:         uuid.New().String(),
		Filename:   f.Name,
		UploadedAt: start.UTC(),
	}

	text, err := p.extractText(ctx, f.Data)
	if err == nil && len(strings.TrimSpace(text)) < minTextChars {
		err = eris.Errorf("pipeline: extracted only %d characters of text, document may be scanned or empty",
			len(strings.TrimSpace(text)))
	}

	var extraction *model.LeaseExtraction
	if err == nil {
		extraction, err = p.lease.Extract(ctx, text)
	}

	if err != nil {
		result.Status = model.StatusFailed
		result.ErrorMessage = err.Error()
		result.ProcessingMS = time.Since(start).Milliseconds()
		zap.L().Warn("pipeline: processing failed",
			zap.String("id", result.ID),
			zap.String("filename", f.Name),
			zap.Error(err),
		)
		if saveErr := p.store.SaveResult(ctx, result); saveErr != nil {
			return nil, saveErr
		}
		return result, nil
	}

	metrics := quality.Assess(extraction, p.now())
	result.Extraction = extraction
	result.Quality = &metrics
	result.Status = model.StatusSuccess
	result.ProcessingMS = time.Since(start).Milliseconds()

	zap.L().Info("pipeline: document processed",
		zap.String("id", result.ID),
		zap.String("filename", f.Name),
		zap.Float64("overall_score", metrics.OverallScore),
		zap.String("tier", string(metrics.Tier)),
		zap.Int64("processing_ms", result.ProcessingMS),
	)

	if err := p.store.SaveResult(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ProcessBatch runs up to MaxBatchFiles documents concurrently. One failing
// document never aborts the batch; its error lands in the outcome slot.
// Outcomes keep the input order.
func (p *Pipeline) ProcessBatch(ctx context.Context, files []File) ([]model.BatchOutcome, error) {
	if len(files) == 0 {
		return nil, eris.New("pipeline: no files provided")
	}
	if max := p.cfg.MaxBatchFiles; max > 0 && len(files) > max {
		return nil, eris.Errorf("pipeline: too many files: %d (max %d)", len(files), max)
	}

	outcomes := make([]model.BatchOutcome, len(files))

	g, gCtx := errgroup.WithContext(ctx)
	limit := p.cfg.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, f := range files {
		g.Go(func() error {
			outcome := model.BatchOutcome{Index: i, Filename: f.Name}
			res, err := p.Process(gCtx, f)
			if err != nil {
				outcome.Error = err.Error()
			} else {
				outcome.Result = res
			}
			outcomes[i] = outcome
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, nil
}

// extractText spools the upload to a temp file for the path-based text
// providers, then pulls the plain text out.
func (p *Pipeline) extractText(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "leasescan-*.pdf")
	if err != nil {
		return "", eris.Wrap(err, "pipeline: create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", eris.Wrap(err, "pipeline: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrap(err, "pipeline: close temp file")
	}

	return p.text.ExtractText(ctx, tmp.Name())
}
