package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/medkit/internal/core/domain"
	"github.com/rl1809/medkit/internal/metrics"
	"github.com/rl1809/medkit/internal/port"
)

// Notifier hands a rendered digest to its recipients.
type Notifier interface {
	Dispatch(ctx context.Context, text string) DispatchReport
}

// ScanResult describes one scanner run.
type ScanResult struct {
	ID         string
	Digest     domain.Digest
	Dispatched bool
	Report     DispatchReport
}

// ScannerService finds records expiring within the look-ahead window and
// sends a single digest for them. It never mutates the store.
type ScannerService struct {
	records   port.RecordRepository
	notifier  Notifier
	lookAhead int
	now       func() time.Time
	logger    *slog.Logger
}

func NewScannerService(records port.RecordRepository, notifier Notifier, lookAheadDays int, now func() time.Time, logger *slog.Logger) *ScannerService {
	if lookAheadDays <= 0 {
		lookAheadDays = domain.DefaultLookAheadDays
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScannerService{
		records:   records,
		notifier:  notifier,
		lookAhead: lookAheadDays,
		now:       now,
		logger:    logger,
	}
}

// Digest queries the window [today, today+lookAhead] without dispatching.
func (s *ScannerService) Digest(ctx context.Context, today time.Time) (domain.Digest, error) {
	from := domain.DateOf(today)
	to := from.AddDate(0, 0, s.lookAhead)

	records, err := s.records.ListRecords(ctx, domain.RecordFilter{
		ExpiresFrom:    from,
		ExpiresTo:      to,
		OrderByExpires: true,
	})
	if err != nil {
		return domain.Digest{}, fmt.Errorf("query expiring records: %w", err)
	}
	return domain.NewDigest(from, to, records), nil
}

// Scan runs one scan for the given day and dispatches the digest once when
// it is not empty.
func (s *ScannerService) Scan(ctx context.Context, today time.Time) (ScanResult, error) {
	result := ScanResult{ID: uuid.NewString()}
	logger := s.logger.With("scan_id", result.ID, "day", domain.FormatDate(domain.DateOf(today)))

	digest, err := s.Digest(ctx, today)
	if err != nil {
		metrics.ScansTotal.WithLabelValues(metrics.OutcomeError).Inc()
		logger.Error("expiration scan failed", "error", err)
		return result, err
	}
	result.Digest = digest

	if digest.Empty() {
		metrics.ScansTotal.WithLabelValues(metrics.OutcomeEmpty).Inc()
		logger.Info("expiration scan found nothing")
		return result, nil
	}

	result.Report = s.notifier.Dispatch(ctx, digest.Render())
	result.Dispatched = true

	metrics.ScansTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	metrics.DigestRecords.Observe(float64(len(digest.Entries)))
	logger.Info("digest dispatched",
		"records", len(digest.Entries),
		"recipients", result.Report.Attempted,
		"delivered", result.Report.Delivered,
		"failed", result.Report.Failed,
	)
	return result, nil
}

// ScanNow scans for the current day. It is the scheduler callback.
func (s *ScannerService) ScanNow(ctx context.Context) error {
	_, err := s.Scan(ctx, s.now())
	return err
}
