// Package sessions declares the repository contract for server-side login
// sessions.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/eimzo-auth/internal/server/models"
)

// Repository issues, looks up and revokes sessions.
type Repository interface {
	// Create stores a new session for userID expiring at now+validity.
	Create(ctx context.Context, userID string, ip string, validity time.Duration) (*models.Session, error)

	// Find returns the session with the given id or common.ErrorNotFound.
	// Expired sessions are returned as is; callers decide.
	Find(ctx context.Context, id string) (*models.Session, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}
