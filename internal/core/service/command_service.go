package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rl1809/medkit/internal/core/domain"
	"github.com/rl1809/medkit/internal/port"
)

const HelpText = "Commands:\n" +
	"/add — add a record step by step (or /add name;dosage;qty;date)\n" +
	"/list — show all records\n" +
	"/edit ID;qty;date — update quantity and expiration\n" +
	"/delete ID — remove a record\n" +
	"/stats — inventory summary\n" +
	"/cancel — abort the current /add\n" +
	"Dates: YYYY-MM-DD, MM-YYYY or YYYY-MM (last day of month)."

// CommandService runs the single-shot commands. Arguments are validated
// before the store is touched.
type CommandService struct {
	records     port.RecordRepository
	ownerScoped bool
	now         func() time.Time
}

func NewCommandService(records port.RecordRepository, ownerScoped bool, now func() time.Time) *CommandService {
	if now == nil {
		now = time.Now
	}
	return &CommandService{records: records, ownerScoped: ownerScoped, now: now}
}

// owner returns the owner filter for userID, empty when scoping is off.
func (s *CommandService) owner(userID string) string {
	if s.ownerScoped {
		return userID
	}
	return ""
}

func (s *CommandService) List(ctx context.Context, userID string) (string, error) {
	records, err := s.records.ListRecords(ctx, domain.RecordFilter{OwnerID: s.owner(userID)})
	if err != nil {
		return "", fmt.Errorf("list records: %w", err)
	}
	if len(records) == 0 {
		return "Inventory is empty.", nil
	}

	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("%d. %s (%s) — %d pcs, expires %s",
			r.ID, r.Name, r.Label, r.Quantity, domain.FormatDate(r.Expiration)))
	}
	return strings.Join(lines, "\n"), nil
}

// AddInline commits "name;dosage;qty;date" in one shot.
func (s *CommandService) AddInline(ctx context.Context, userID, args string) (string, error) {
	parts := domain.SplitFields(args)
	if len(parts) != 4 {
		return "", domain.Invalid(domain.ErrUsage, "format: /add name;dosage;qty;date")
	}
	name, label, qtyStr, expStr := parts[0], parts[1], parts[2], parts[3]
	if name == "" {
		return "", domain.Invalid(domain.ErrUsage, "name must not be empty")
	}
	qty, ok := domain.ParseCount(qtyStr)
	if !ok {
		return "", domain.Invalid(domain.ErrInvalidQuantity, "quantity must be a whole number")
	}
	exp, err := domain.NormalizeDate(expStr)
	if err != nil {
		return "", domain.Invalid(err, "use YYYY-MM-DD, MM-YYYY or YYYY-MM")
	}

	rec := domain.Record{
		Name:       name,
		Label:      label,
		Quantity:   qty,
		Expiration: exp,
		OwnerID:    s.owner(userID),
		CreatedAt:  s.now(),
	}
	id, err := s.records.CreateRecord(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("create record: %w", err)
	}
	return addedReply(id, rec), nil
}

// Edit handles "id;quantity;date".
func (s *CommandService) Edit(ctx context.Context, userID, args string) (string, error) {
	parts := domain.SplitFields(args)
	if len(parts) != 3 {
		return "", domain.Invalid(domain.ErrUsage, "format: /edit ID;qty;date")
	}
	id, ok := domain.ParseCount(parts[0])
	if !ok {
		return "", domain.Invalid(domain.ErrInvalidID, "ID must be a number")
	}
	qty, ok := domain.ParseCount(parts[1])
	if !ok {
		return "", domain.Invalid(domain.ErrInvalidQuantity, "quantity must be a whole number")
	}
	exp, err := domain.NormalizeDate(parts[2])
	if err != nil {
		return "", domain.Invalid(err, "use YYYY-MM-DD, MM-YYYY or YYYY-MM")
	}

	rec, err := s.records.UpdateRecord(ctx, int64(id), s.owner(userID), domain.RecordUpdate{
		Quantity:   qty,
		Expiration: exp,
	})
	if err != nil {
		return "", fmt.Errorf("update record %d: %w", id, err)
	}
	return fmt.Sprintf("Updated: %s — %d pcs, expires %s",
		rec.Name, rec.Quantity, domain.FormatDate(rec.Expiration)), nil
}

// Delete handles a single numeric ID argument.
func (s *CommandService) Delete(ctx context.Context, userID, args string) (string, error) {
	id, ok := domain.ParseCount(args)
	if !ok {
		return "", domain.Invalid(domain.ErrInvalidID, "format: /delete ID")
	}

	rec, err := s.records.DeleteRecord(ctx, int64(id), s.owner(userID))
	if err != nil {
		return "", fmt.Errorf("delete record %d: %w", id, err)
	}
	return fmt.Sprintf("Deleted: %s", rec.Name), nil
}

func (s *CommandService) Stats(ctx context.Context, userID string) (string, error) {
	records, err := s.records.ListRecords(ctx, domain.RecordFilter{OwnerID: s.owner(userID)})
	if err != nil {
		return "", fmt.Errorf("list records: %w", err)
	}

	st := domain.ComputeStats(records, s.now())
	return fmt.Sprintf("Inventory stats:\n"+
		"Total: %d\n"+
		"Expired: %d\n"+
		"Expiring within 7 days: %d\n"+
		"Expiring within 30 days: %d",
		st.Total, st.Expired, st.Soon7, st.Soon30), nil
}

func addedReply(id int64, rec domain.Record) string {
	return fmt.Sprintf("Added: %s (ID %d) — %d pcs, expires %s",
		rec.Name, id, rec.Quantity, domain.FormatDate(rec.Expiration))
}
