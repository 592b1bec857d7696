package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/medkit/internal/core/domain"
)

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS records (
	id         BIGINT AUTO_INCREMENT PRIMARY KEY,
	name       VARCHAR(255) NOT NULL,
	label      VARCHAR(255) NOT NULL DEFAULT '',
	quantity   INT NOT NULL,
	expires_on DATE NOT NULL,
	owner_id   VARCHAR(64) NOT NULL DEFAULT '',
	notes      TEXT,
	created_at DATETIME NOT NULL,
	INDEX idx_records_expires_on (expires_on),
	INDEX idx_records_owner (owner_id)
)`

// MySQLAdapter is the production record store. The DSN must set
// parseTime=true so DATE and DATETIME columns scan into time.Time.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// EnsureSchema creates the records table when missing.
func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, mysqlSchema); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) CreateRecord(ctx context.Context, rec domain.Record) (int64, error) {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO records (name, label, quantity, expires_on, owner_id, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Name, rec.Label, rec.Quantity, domain.FormatDate(rec.Expiration),
		rec.OwnerID, rec.Notes, rec.CreatedAt.UTC(),
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

func (m *MySQLAdapter) GetRecord(ctx context.Context, id int64, ownerID string) (*domain.Record, error) {
	clause, args := ownerClause(id, ownerID)
	row := m.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM records WHERE "+clause, args...)
	return scanMySQLRecord(row)
}

func (m *MySQLAdapter) UpdateRecord(ctx context.Context, id int64, ownerID string, update domain.RecordUpdate) (*domain.Record, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	clause, args := ownerClause(id, ownerID)
	rec, err := scanMySQLRecord(tx.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE "+clause+" FOR UPDATE", args...))
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE records SET quantity = ?, expires_on = ?
		WHERE id = ?`,
		update.Quantity, domain.FormatDate(update.Expiration), rec.ID,
	)
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

func (m *MySQLAdapter) DeleteRecord(ctx context.Context, id int64, ownerID string) (*domain.Record, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	clause, args := ownerClause(id, ownerID)
	rec, err := scanMySQLRecord(tx.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE "+clause+" FOR UPDATE", args...))
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

func (m *MySQLAdapter) ListRecords(ctx context.Context, filter domain.RecordFilter) ([]domain.Record, error) {
	query, args := buildListQuery(filter)
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		rec, err := scanMySQLRecord(rows)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMySQLRecord(row rowScanner) (*domain.Record, error) {
	var (
		rec       domain.Record
		notes     sql.NullString
		expiresOn time.Time
	)
	err := row.Scan(&rec.ID, &rec.Name, &rec.Label, &rec.Quantity, &expiresOn,
		&rec.OwnerID, &notes, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}

	rec.Expiration = domain.DateOf(expiresOn)
	rec.Notes = notes.String
	return &rec, nil
}
