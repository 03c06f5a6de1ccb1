package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/mietwerk/leasescan/internal/extractor"
	"github.com/mietwerk/leasescan/internal/pdftext"
	"github.com/mietwerk/leasescan/internal/pipeline"
	"github.com/mietwerk/leasescan/internal/store"
	anthropicpkg "github.com/mietwerk/leasescan/pkg/anthropic"
)

// pipelineEnv holds the initialized store and pipeline needed by the
// extract/batch/serve/fetch commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.SQLitePath
		if dsn == "" {
			dsn = "leasescan.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initPipeline validates the config for the given mode, sets up the store,
// the text extractor and the AI client, and builds the Pipeline. Callers
// should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	textExtractor, err := pdftext.NewExtractor(cfg.OCR)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	leaseExtractor := extractor.New(anthropicClient, cfg.Anthropic)

	p := pipeline.New(textExtractor, leaseExtractor, st, cfg.Pipeline)

	return &pipelineEnv{Store: st, Pipeline: p}, nil
}
