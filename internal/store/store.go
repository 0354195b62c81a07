// Package store provides session persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/support-chat/internal/domain"
)

// SessionStore defines the interface for holding support sessions.
type SessionStore interface {
	// Get retrieves a session by ID. It returns nil, nil when the session
	// does not exist.
	Get(ctx context.Context, sessionID string) (*domain.Session, error)

	// Put creates or replaces a session record.
	Put(ctx context.Context, session *domain.Session) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// DeleteExpired removes sessions idle for longer than ttl and returns
	// their IDs.
	DeleteExpired(ctx context.Context, ttl time.Duration) ([]string, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

// Kind names a SessionStore implementation.
type Kind string

const (
	KindMemory Kind = "memory"
	KindSQLite Kind = "sqlite"
)

// Open creates the store selected by kind. dbPath is used by the SQLite store.
func Open(kind Kind, dbPath string) (SessionStore, error) {
	switch kind {
	case KindSQLite:
		s, err := NewSQLite(dbPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return NewMemory(), nil
	}
}
