package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/mietwerk/leasescan/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// The tier, city and overall_score columns duplicate values from the JSON
// blobs so list queries can filter without parsing every row.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS extractions (
	id            TEXT PRIMARY KEY,
	filename      TEXT NOT NULL,
	uploaded_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	status        TEXT NOT NULL,
	error_message TEXT,
	extraction    TEXT,
	quality       TEXT,
	overall_score REAL,
	tier          TEXT,
	city          TEXT,
	processing_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_extractions_status ON extractions(status);
CREATE INDEX IF NOT EXISTS idx_extractions_tier ON extractions(tier);
CREATE INDEX IF NOT EXISTS idx_extractions_city ON extractions(city);
CREATE INDEX IF NOT EXISTS idx_extractions_uploaded_at ON extractions(uploaded_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveResult(ctx context.Context, r *model.ExtractionResult) error {
	extractionJSON, qualityJSON, err := marshalResult(r)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO extractions
		 (id, filename, uploaded_at, status, error_message, extraction, quality, overall_score, tier, city, processing_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Filename, r.UploadedAt.UTC(), string(r.Status), r.ErrorMessage,
		extractionJSON, qualityJSON, resultScore(r), resultTier(r), resultCity(r), r.ProcessingMS,
	)
	return eris.Wrapf(err, "sqlite: insert extraction %s", r.ID)
}

func (s *SQLiteStore) GetResult(ctx context.Context, id string) (*model.ExtractionResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, uploaded_at, status, error_message, extraction, quality, processing_ms
		 FROM extractions WHERE id = ?`,
		id,
	)
	return scanResult(row)
}

func (s *SQLiteStore) ListResults(ctx context.Context, filter Filter) ([]model.ExtractionResult, error) {
	query := `SELECT id, filename, uploaded_at, status, error_message, extraction, quality, processing_ms
	          FROM extractions WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Tier != "" {
		query += ` AND tier = ?`
		args = append(args, string(filter.Tier))
	}
	if filter.City != "" {
		query += ` AND city = ? COLLATE NOCASE`
		args = append(args, filter.City)
	}
	if filter.MinScore > 0 {
		query += ` AND overall_score >= ?`
		args = append(args, filter.MinScore)
	}
	query += ` ORDER BY uploaded_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list extractions")
	}
	defer rows.Close()

	var results []model.ExtractionResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list extractions iterate")
}

func (s *SQLiteStore) DeleteResult(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM extractions WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete extraction %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// helpers

func marshalResult(r *model.ExtractionResult) (extraction, quality sql.NullString, err error) {
	if r.Extraction != nil {
		b, mErr := json.Marshal(r.Extraction)
		if mErr != nil {
			return extraction, quality, mErr
		}
		extraction = sql.NullString{String: string(b), Valid: true}
	}
	if r.Quality != nil {
		b, mErr := json.Marshal(r.Quality)
		if mErr != nil {
			return extraction, quality, mErr
		}
		quality = sql.NullString{String: string(b), Valid: true}
	}
	return extraction, quality, nil
}

func resultScore(r *model.ExtractionResult) sql.NullFloat64 {
	if r.Quality == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: r.Quality.OverallScore, Valid: true}
}

func resultTier(r *model.ExtractionResult) sql.NullString {
	if r.Quality == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(r.Quality.Tier), Valid: true}
}

func resultCity(r *model.ExtractionResult) sql.NullString {
	if r.Extraction == nil || r.Extraction.Address.City == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: r.Extraction.Address.City, Valid: true}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanResult(row scannable) (*model.ExtractionResult, error) {
	var r model.ExtractionResult
	var errMsg, extractionJSON, qualityJSON sql.NullString

	err := row.Scan(&r.ID, &r.Filename, &r.UploadedAt, &r.Status, &errMsg, &extractionJSON, &qualityJSON, &r.ProcessingMS)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan extraction")
	}

	r.ErrorMessage = errMsg.String
	if extractionJSON.Valid {
		r.Extraction = &model.LeaseExtraction{}
		if err := json.Unmarshal([]byte(extractionJSON.String), r.Extraction); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal extraction")
		}
	}
	if qualityJSON.Valid {
		r.Quality = &model.QualityMetrics{}
		if err := json.Unmarshal([]byte(qualityJSON.String), r.Quality); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal quality")
		}
	}
	return &r, nil
}
