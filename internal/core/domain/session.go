package domain

import (
	"strings"
	"time"
)

type Stage string

const (
	StageIdle               Stage = "idle"
	StageAwaitingName       Stage = "awaiting_name"
	StageAwaitingDosage     Stage = "awaiting_dosage"
	StageAwaitingQuantity   Stage = "awaiting_quantity"
	StageAwaitingExpiration Stage = "awaiting_expiration"
	StageCompleted          Stage = "completed"
	StageCancelled          Stage = "cancelled"
)

// Draft is the partial record collected by a dialog.
type Draft struct {
	Name       string    `json:"name,omitempty"`
	Label      string    `json:"label,omitempty"`
	Quantity   int       `json:"quantity,omitempty"`
	Expiration time.Time `json:"expiration,omitempty"`
}

// DialogSession is the per-user state of the multi-turn add flow.
type DialogSession struct {
	UserID    string    `json:"user_id"`
	Stage     Stage     `json:"stage"`
	Draft     Draft     `json:"draft"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDialogSession starts a session waiting for the record name.
func NewDialogSession(userID string, now time.Time) DialogSession {
	return DialogSession{
		UserID:    userID,
		Stage:     StageAwaitingName,
		UpdatedAt: now,
	}
}

// Waiting reports whether the session is waiting for user input.
func (s DialogSession) Waiting() bool {
	switch s.Stage {
	case StageAwaitingName, StageAwaitingDosage, StageAwaitingQuantity, StageAwaitingExpiration:
		return true
	}
	return false
}

// Step is the outcome of feeding one turn to a session.
type Step struct {
	Session DialogSession
	// Err is set when the input was rejected; Session then keeps its stage.
	Err error
}

// Advance consumes one free-text turn. Each stage has its own transition;
// a rejected input leaves the session at the same stage.
func (s DialogSession) Advance(input string, now time.Time) Step {
	text := strings.TrimSpace(input)
	next := s
	next.UpdatedAt = now

	switch s.Stage {
	case StageAwaitingName:
		if text == "" {
			return Step{Session: next, Err: Invalid(ErrUsage, "name must not be empty")}
		}
		next.Draft.Name = text
		next.Stage = StageAwaitingDosage
	case StageAwaitingDosage:
		next.Draft.Label = text
		next.Stage = StageAwaitingQuantity
	case StageAwaitingQuantity:
		qty, ok := ParseCount(text)
		if !ok {
			return Step{Session: next, Err: Invalid(ErrInvalidQuantity, "quantity must be a whole number")}
		}
		next.Draft.Quantity = qty
		next.Stage = StageAwaitingExpiration
	case StageAwaitingExpiration:
		exp, err := NormalizeDate(text)
		if err != nil {
			return Step{Session: next, Err: Invalid(err, "use YYYY-MM-DD, MM-YYYY or YYYY-MM")}
		}
		next.Draft.Expiration = exp
		next.Stage = StageCompleted
	default:
		return Step{Session: next, Err: Invalid(ErrUsage, "no entry in progress")}
	}
	return Step{Session: next}
}

// Record builds the record to commit from a completed session.
func (s DialogSession) Record(ownerID string, now time.Time) Record {
	return Record{
		Name:       s.Draft.Name,
		Label:      s.Draft.Label,
		Quantity:   s.Draft.Quantity,
		Expiration: s.Draft.Expiration,
		OwnerID:    ownerID,
		CreatedAt:  now,
	}
}
