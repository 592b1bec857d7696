package port

import (
	"context"

	"github.com/rl1809/medkit/internal/core/domain"
)

type RecordRepository interface {
	// CreateRecord persists a new record and returns its assigned ID
	CreateRecord(ctx context.Context, record domain.Record) (int64, error)

	// GetRecord returns domain.ErrNotFound when the ID is unknown or, with a
	// non-empty ownerID, owned by someone else
	GetRecord(ctx context.Context, id int64, ownerID string) (*domain.Record, error)

	// UpdateRecord overwrites quantity and expiration in one transaction
	UpdateRecord(ctx context.Context, id int64, ownerID string, update domain.RecordUpdate) (*domain.Record, error)

	// DeleteRecord removes a record, returning the deleted copy
	DeleteRecord(ctx context.Context, id int64, ownerID string) (*domain.Record, error)

	// ListRecords returns records matching filter, ordered by ID unless the
	// filter asks for expiration order
	ListRecords(ctx context.Context, filter domain.RecordFilter) ([]domain.Record, error)
}
