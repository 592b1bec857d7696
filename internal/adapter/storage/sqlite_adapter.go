package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rl1809/medkit/internal/core/domain"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	label      TEXT NOT NULL DEFAULT '',
	quantity   INTEGER NOT NULL,
	expires_on TEXT NOT NULL,
	owner_id   TEXT NOT NULL DEFAULT '',
	notes      TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_expires_on ON records (expires_on);
CREATE INDEX IF NOT EXISTS idx_records_owner ON records (owner_id);
`

// SQLiteAdapter keeps records in a local SQLite file. Expiration dates are
// stored as YYYY-MM-DD text and created_at as unix milliseconds.
type SQLiteAdapter struct {
	db *sql.DB
}

// OpenSQLite opens path and applies the schema.
func OpenSQLite(path string) (*SQLiteAdapter, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// single writer; SQLite serialises writes anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteAdapter{db: db}, nil
}

func (s *SQLiteAdapter) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteAdapter) CreateRecord(ctx context.Context, rec domain.Record) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO records (name, label, quantity, expires_on, owner_id, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Name, rec.Label, rec.Quantity, domain.FormatDate(rec.Expiration),
		rec.OwnerID, rec.Notes, rec.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (s *SQLiteAdapter) GetRecord(ctx context.Context, id int64, ownerID string) (*domain.Record, error) {
	clause, args := ownerClause(id, ownerID)
	row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM records WHERE "+clause, args...)
	return scanSQLiteRecord(row)
}

func (s *SQLiteAdapter) UpdateRecord(ctx context.Context, id int64, ownerID string, update domain.RecordUpdate) (*domain.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	clause, args := ownerClause(id, ownerID)
	rec, err := scanSQLiteRecord(tx.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE "+clause, args...))
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `UPDATE records SET quantity = ?, expires_on = ? WHERE id = ?`,
		update.Quantity, domain.FormatDate(update.Expiration), rec.ID)
	if err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	rec.Quantity = update.Quantity
	rec.Expiration = domain.DateOf(update.Expiration)
	return rec, nil
}

func (s *SQLiteAdapter) DeleteRecord(ctx context.Context, id int64, ownerID string) (*domain.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	clause, args := ownerClause(id, ownerID)
	rec, err := scanSQLiteRecord(tx.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE "+clause, args...))
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, rec.ID); err != nil {
		return nil, fmt.Errorf("delete record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

func (s *SQLiteAdapter) ListRecords(ctx context.Context, filter domain.RecordFilter) ([]domain.Record, error) {
	query, args := buildListQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func scanSQLiteRecord(row rowScanner) (*domain.Record, error) {
	var (
		rec       domain.Record
		notes     sql.NullString
		expiresOn string
		createdAt int64
	)
	err := row.Scan(&rec.ID, &rec.Name, &rec.Label, &rec.Quantity, &expiresOn,
		&rec.OwnerID, &notes, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}

	exp, err := time.Parse(domain.DateLayout, expiresOn)
	if err != nil {
		return nil, fmt.Errorf("parse expires_on %q: %w", expiresOn, err)
	}
	rec.Expiration = exp
	rec.Notes = notes.String
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &rec, nil
}
