// Package users declares the repository contract for the users table.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/eimzo-auth/internal/server/models"
)

// Repository reads and writes user rows. Lookups return common.ErrorNotFound
// when no row matches; Create returns common.ErrorConflict on a duplicate
// email, PINFL or INN.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	FindByPINFL(ctx context.Context, pinfl string) (*models.User, error)
	FindByINN(ctx context.Context, inn string) (*models.User, error)

	// UpdateCertificate refreshes the display name and certificate serial.
	// Identity keys are not touched.
	UpdateCertificate(ctx context.Context, id string, name string, serial *string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time, ip string) error
}
