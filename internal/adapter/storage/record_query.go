package storage

import (
	"strings"

	"github.com/rl1809/medkit/internal/core/domain"
)

const recordColumns = "id, name, label, quantity, expires_on, owner_id, notes, created_at"

// buildListQuery renders the shared SELECT for both SQL dialects. Dates are
// bound as YYYY-MM-DD strings, which compare correctly against a MySQL DATE
// column and a SQLite TEXT column alike.
func buildListQuery(filter domain.RecordFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if !filter.ExpiresFrom.IsZero() {
		where = append(where, "expires_on >= ?")
		args = append(args, domain.FormatDate(filter.ExpiresFrom))
	}
	if !filter.ExpiresTo.IsZero() {
		where = append(where, "expires_on <= ?")
		args = append(args, domain.FormatDate(filter.ExpiresTo))
	}

	var b strings.Builder
	b.WriteString("SELECT " + recordColumns + " FROM records")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	if filter.OrderByExpires {
		b.WriteString(" ORDER BY expires_on ASC, id ASC")
	} else {
		b.WriteString(" ORDER BY id ASC")
	}
	return b.String(), args
}

// ownerClause narrows single-row statements to an owner when one is given.
func ownerClause(id int64, ownerID string) (string, []any) {
	if ownerID == "" {
		return "id = ?", []any{id}
	}
	return "id = ? AND owner_id = ?", []any{id, ownerID}
}
