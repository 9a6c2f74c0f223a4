package repository

import (
	"context"

	"github.com/damon-houk/coin-exchange-widget/internal/domain/entity"
)

// SessionRepository defines the interface for the persisted conversion session slot
type SessionRepository interface {
	// Load reads the last saved session, entity.ErrSessionNotFound when none exists
	Load(ctx context.Context) (*entity.Session, error)

	// Save overwrites the slot with the given session
	Save(ctx context.Context, session *entity.Session) error
}
