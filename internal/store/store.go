// Package store persists users and workout sessions. Memory is the
// reference implementation used by the server binary and the tests; a
// database-backed store can replace it behind the same interface.
package store

import (
	"context"
	"errors"

	"github.com/GeloSwift/Life-Planner-Code/internal/models"
)

var (
	ErrUserNotFound    = errors.New("store: user not found")
	ErrSessionNotFound = errors.New("store: session not found")
)

// Store is the persistence surface the calendar engine and the HTTP layer
// share. Implementations must hand out copies: callers never observe later
// store mutations through previously returned values.
type Store interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error

	GetSession(ctx context.Context, id int64) (*models.Session, error)
	ListSessions(ctx context.Context, userID int64) ([]*models.Session, error)
	SaveSession(ctx context.Context, sess *models.Session) error
	DeleteSession(ctx context.Context, id int64) error

	SetEventRef(ctx context.Context, sessionID int64, provider models.Provider, ref string) error
	AddExceptions(ctx context.Context, sessionID int64, dates []string) (int, error)
}
