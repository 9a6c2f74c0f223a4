package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/damon-houk/coin-exchange-widget/internal/domain/entity"
	"github.com/dgraph-io/badger/v3"
)

// DefaultSessionKey is the slot name used when none is configured
const DefaultSessionKey = "exchange-state"

// BadgerSessionRepository implements the session repository interface using BadgerDB
type BadgerSessionRepository struct {
	db  *badger.DB
	key []byte
}

// NewBadgerSessionRepository creates a new BadgerDB session repository for the named slot
func NewBadgerSessionRepository(db *badger.DB, slot string) *BadgerSessionRepository {
	if slot == "" {
		slot = DefaultSessionKey
	}
	return &BadgerSessionRepository{db: db, key: []byte("session:" + slot)}
}

// Save overwrites the session slot
func (r *BadgerSessionRepository) Save(ctx context.Context, session *entity.Session) error {
	// Serialize session to JSON
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Store in BadgerDB
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(r.key, data)
	})

	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}

// Load retrieves the session from the slot
func (r *BadgerSessionRepository) Load(ctx context.Context) (*entity.Session, error) {
	var data []byte

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(r.key)
		if err != nil {
			return err
		}

		data, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, entity.ErrSessionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to retrieve session: %w", err)
	}

	return entity.DecodeSession(data)
}
