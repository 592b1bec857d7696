package port

import (
	"context"

	"github.com/rl1809/medkit/internal/core/domain"
)

type SessionRepository interface {
	// GetSession returns nil when the user has no live session
	GetSession(ctx context.Context, userID string) (*domain.DialogSession, error)

	// SaveSession stores the session and refreshes its idle expiry
	SaveSession(ctx context.Context, session domain.DialogSession) error

	// DeleteSession is a no-op for users without a session
	DeleteSession(ctx context.Context, userID string) error
}
