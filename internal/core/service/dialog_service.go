package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rl1809/medkit/internal/core/domain"
	"github.com/rl1809/medkit/internal/metrics"
	"github.com/rl1809/medkit/internal/port"
)

var stagePrompts = map[domain.Stage]string{
	domain.StageAwaitingName:       "Enter the name:",
	domain.StageAwaitingDosage:     "Enter the dosage:",
	domain.StageAwaitingQuantity:   "Enter the quantity:",
	domain.StageAwaitingExpiration: "Enter the expiration date (YYYY-MM-DD, MM-YYYY or YYYY-MM):",
}

// DialogService drives the multi-turn add flow. Sessions are keyed by user,
// so different users never share state.
type DialogService struct {
	records     port.RecordRepository
	sessions    port.SessionRepository
	ownerScoped bool
	now         func() time.Time
	logger      *slog.Logger
}

func NewDialogService(records port.RecordRepository, sessions port.SessionRepository, ownerScoped bool, now func() time.Time) *DialogService {
	if now == nil {
		now = time.Now
	}
	return &DialogService{
		records:     records,
		sessions:    sessions,
		ownerScoped: ownerScoped,
		now:         now,
		logger:      slog.Default(),
	}
}

// Begin starts a fresh session, replacing any session already in progress.
func (s *DialogService) Begin(ctx context.Context, userID string) (string, error) {
	prev, err := s.sessions.GetSession(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}

	session := domain.NewDialogSession(userID, s.now())
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	prompt := stagePrompts[session.Stage]
	if prev != nil && prev.Waiting() {
		return "Previous entry discarded. " + prompt, nil
	}
	return prompt, nil
}

// Handle feeds one free-text turn to the user's session. handled is false
// when no session is active. A rejected turn returns a ValidationError along
// with the prompt to repeat, and keeps the session at its stage.
func (s *DialogService) Handle(ctx context.Context, userID, text string) (reply string, handled bool, err error) {
	session, err := s.sessions.GetSession(ctx, userID)
	if err != nil {
		return "", false, fmt.Errorf("load session: %w", err)
	}
	if session == nil || !session.Waiting() {
		return "", false, nil
	}

	now := s.now()
	step := session.Advance(text, now)
	if step.Err != nil {
		// keep the idle timer fresh while the user retries
		if err := s.sessions.SaveSession(ctx, step.Session); err != nil {
			return "", true, fmt.Errorf("save session: %w", err)
		}
		return stagePrompts[step.Session.Stage], true, step.Err
	}

	if step.Session.Stage != domain.StageCompleted {
		if err := s.sessions.SaveSession(ctx, step.Session); err != nil {
			return "", true, fmt.Errorf("save session: %w", err)
		}
		return stagePrompts[step.Session.Stage], true, nil
	}

	owner := ""
	if s.ownerScoped {
		owner = userID
	}
	rec := step.Session.Record(owner, now)
	id, err := s.records.CreateRecord(ctx, rec)
	if err != nil {
		return "", true, fmt.Errorf("create record: %w", err)
	}
	// the record is committed; a leftover session expires with its TTL
	if err := s.sessions.DeleteSession(ctx, userID); err != nil {
		s.logger.Error("drop completed session", "user_id", userID, "record_id", id, "error", err)
	}
	metrics.DialogsTotal.WithLabelValues(string(domain.StageCompleted)).Inc()
	return addedReply(id, rec), true, nil
}

// Cancel destroys the user's session without committing anything.
func (s *DialogService) Cancel(ctx context.Context, userID string) (bool, error) {
	session, err := s.sessions.GetSession(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}
	if session == nil || !session.Waiting() {
		return false, nil
	}
	if err := s.sessions.DeleteSession(ctx, userID); err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return true, nil
}
