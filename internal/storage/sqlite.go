package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/medscribe/internal/apperr"
	"github.com/hyperjump/medscribe/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		title TEXT,
		report TEXT NOT NULL,
		initial_report TEXT,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
	CREATE INDEX IF NOT EXISTS idx_reports_session_id ON reports(session_id);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveReport inserts a report. CreatedAt is set when zero.
func (s *SQLiteStorage) SaveReport(ctx context.Context, r *models.ArchivedReport) error {
	metadataJSON, err := json.Marshal(r.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, session_id, title, report, initial_report, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.Title, r.Report, r.Initial, string(metadataJSON), r.CreatedAt,
	)
	return err
}

// GetReport returns a report by ID.
func (s *SQLiteStorage) GetReport(ctx context.Context, id string) (*models.ArchivedReport, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, title, report, initial_report, metadata, created_at
		 FROM reports WHERE id = ?`, id,
	)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("report not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteReport removes a report by ID.
func (s *SQLiteStorage) DeleteReport(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperr.NotFound("report not found: %s", id)
	}
	return nil
}

// ListReports returns reports newest first with offset and limit.
func (s *SQLiteStorage) ListReports(ctx context.Context, offset, limit int) ([]*models.ArchivedReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, title, report, initial_report, metadata, created_at
		 FROM reports ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*models.ArchivedReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// CountReports returns the total number of archived reports.
func (s *SQLiteStorage) CountReports(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(sc scanner) (*models.ArchivedReport, error) {
	var (
		r            models.ArchivedReport
		title        sql.NullString
		initial      sql.NullString
		metadataJSON sql.NullString
	)
	if err := sc.Scan(&r.ID, &r.SessionID, &title, &r.Report, &initial, &metadataJSON, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Title = title.String
	r.Initial = initial.String
	if metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &r.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &r, nil
}
