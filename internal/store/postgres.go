package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/mietwerk/leasescan/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS extractions (
	id            TEXT PRIMARY KEY,
	filename      TEXT NOT NULL,
	uploaded_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	status        TEXT NOT NULL,
	error_message TEXT,
	extraction    JSONB,
	quality       JSONB,
	overall_score DOUBLE PRECISION,
	tier          TEXT,
	city          TEXT,
	processing_ms BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_extractions_status ON extractions(status);
CREATE INDEX IF NOT EXISTS idx_extractions_tier ON extractions(tier);
CREATE INDEX IF NOT EXISTS idx_extractions_city ON extractions(city);
CREATE INDEX IF NOT EXISTS idx_extractions_uploaded_at ON extractions(uploaded_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveResult(ctx context.Context, r *model.ExtractionResult) error {
	var extractionJSON, qualityJSON []byte
	var err error
	if r.Extraction != nil {
		if extractionJSON, err = json.Marshal(r.Extraction); err != nil {
			return eris.Wrap(err, "postgres: marshal extraction")
		}
	}
	if r.Quality != nil {
		if qualityJSON, err = json.Marshal(r.Quality); err != nil {
			return eris.Wrap(err, "postgres: marshal quality")
		}
	}

	var score *float64
	var tier, city *string
	if r.Quality != nil {
		score = &r.Quality.OverallScore
		t := string(r.Quality.Tier)
		tier = &t
	}
	if r.Extraction != nil && r.Extraction.Address.City != "" {
		city = &r.Extraction.Address.City
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO extractions
		 (id, filename, uploaded_at, status, error_message, extraction, quality, overall_score, tier, city, processing_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID, r.Filename, r.UploadedAt.UTC(), string(r.Status), r.ErrorMessage,
		extractionJSON, qualityJSON, score, tier, city, r.ProcessingMS,
	)
	return eris.Wrapf(err, "postgres: insert extraction %s", r.ID)
}

func (s *PostgresStore) GetResult(ctx context.Context, id string) (*model.ExtractionResult, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, filename, uploaded_at, status, error_message, extraction, quality, processing_ms
		 FROM extractions WHERE id = $1`,
		id,
	)
	r, err := scanPgResult(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get extraction %s", id)
	}
	return r, nil
}

func (s *PostgresStore) ListResults(ctx context.Context, filter Filter) ([]model.ExtractionResult, error) {
	query := `SELECT id, filename, uploaded_at, status, error_message, extraction, quality, processing_ms
	          FROM extractions WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Tier != "" {
		query += fmt.Sprintf(` AND tier = $%d`, argIdx)
		args = append(args, string(filter.Tier))
		argIdx++
	}
	if filter.City != "" {
		query += fmt.Sprintf(` AND lower(city) = lower($%d)`, argIdx)
		args = append(args, filter.City)
		argIdx++
	}
	if filter.MinScore > 0 {
		query += fmt.Sprintf(` AND overall_score >= $%d`, argIdx)
		args = append(args, filter.MinScore)
		argIdx++
	}
	query += ` ORDER BY uploaded_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list extractions")
	}
	defer rows.Close()

	var results []model.ExtractionResult
	for rows.Next() {
		r, err := scanPgResult(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan extraction")
		}
		results = append(results, *r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list extractions iterate")
}

func (s *PostgresStore) DeleteResult(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM extractions WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete extraction %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPgResult(row pgx.Row) (*model.ExtractionResult, error) {
	var r model.ExtractionResult
	var errMsg *string
	var extractionJSON, qualityJSON []byte

	err := row.Scan(&r.ID, &r.Filename, &r.UploadedAt, &r.Status, &errMsg, &extractionJSON, &qualityJSON, &r.ProcessingMS)
	if err != nil {
		return nil, err
	}

	if errMsg != nil {
		r.ErrorMessage = *errMsg
	}
	if len(extractionJSON) > 0 {
		r.Extraction = &model.LeaseExtraction{}
		if err := json.Unmarshal(extractionJSON, r.Extraction); err != nil {
			return nil, eris.Wrap(err, "unmarshal extraction")
		}
	}
	if len(qualityJSON) > 0 {
		r.Quality = &model.QualityMetrics{}
		if err := json.Unmarshal(qualityJSON, r.Quality); err != nil {
			return nil, eris.Wrap(err, "unmarshal quality")
		}
	}
	return &r, nil
}
