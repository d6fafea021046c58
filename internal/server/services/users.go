// Package services contains server-side business logic. This file implements
// UserService, which maps verified certificate attributes onto local users.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/eimzo-auth/internal/common"
	"github.com/dmitrijs2005/eimzo-auth/internal/dbx"
	"github.com/dmitrijs2005/eimzo-auth/internal/logging"
	"github.com/dmitrijs2005/eimzo-auth/internal/server/models"
	"github.com/dmitrijs2005/eimzo-auth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eimzo-auth/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultUserName = "Unknown User"
	emailDomain     = "eimzo.local"
)

// FindOrCreateParams are the identity attributes taken from a verified
// certificate. Empty strings are treated like nil.
type FindOrCreateParams struct {
	PINFL      *string
	INN        *string
	FullName   string
	CertSerial string
}

// CertificateSummary is what the service remembers about a user's last
// certificate.
type CertificateSummary struct {
	SerialNumber string  `json:"serial_number"`
	PINFL        *string `json:"pinfl"`
	INN          *string `json:"inn"`
	Name         string  `json:"name"`
}

// UserMetrics is notified when a new user row is inserted.
type UserMetrics interface {
	ObserveUserCreated()
}

type nopUserMetrics struct{}

func (nopUserMetrics) ObserveUserCreated() {}

// UserService provides user reconciliation and lookups.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	metrics     UserMetrics
	bcryptCost  int
	now         func() time.Time
}

// NewUserService constructs a UserService. metrics may be nil.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, metrics UserMetrics) *UserService {
	if metrics == nil {
		metrics = nopUserMetrics{}
	}
	return &UserService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "users"),
		metrics:     metrics,
		bcryptCost:  bcrypt.DefaultCost,
		now:         time.Now,
	}
}

// FindOrCreate returns the user owning the certificate's PINFL or INN,
// creating one when neither matches. An existing user gets its name and
// certificate serial refreshed; identity keys are never rewritten.
//
// When PINFL and INN point at different users the PINFL match wins.
func (s *UserService) FindOrCreate(ctx context.Context, p FindOrCreateParams) (*models.User, error) {
	pinfl := trimmed(p.PINFL)
	inn := trimmed(p.INN)
	if pinfl == nil && inn == nil {
		return nil, ErrIdentityMissing
	}

	name := strings.TrimSpace(p.FullName)
	if name == "" {
		name = defaultUserName
	}
	serial := trimmed(&p.CertSerial)

	var user *models.User
	created := false

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		existing, err := lookup(ctx, repo, pinfl, inn)
		var id string
		switch {
		case err == nil:
			if err := repo.UpdateCertificate(ctx, existing.ID, name, serial); err != nil {
				return fmt.Errorf("error updating user certificate: %w", err)
			}
			id = existing.ID
		case errors.Is(err, common.ErrorNotFound):
			u, err := s.newUser(pinfl, inn, name, serial)
			if err != nil {
				return err
			}
			u, err = repo.Create(ctx, u)
			if err != nil {
				return fmt.Errorf("error creating user: %w", err)
			}
			id = u.ID
			created = true
		default:
			return fmt.Errorf("error searching user: %w", err)
		}

		user, err = repo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("error reloading user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.metrics.ObserveUserCreated()
		s.logger.Info(ctx, "user created", "user_id", user.ID)
	}

	return user, nil
}

func lookup(ctx context.Context, repo users.Repository, pinfl, inn *string) (*models.User, error) {
	if pinfl != nil {
		u, err := repo.FindByPINFL(ctx, *pinfl)
		if err == nil || !errors.Is(err, common.ErrorNotFound) {
			return u, err
		}
	}
	if inn != nil {
		return repo.FindByINN(ctx, *inn)
	}
	return nil, common.ErrorNotFound
}

func (s *UserService) newUser(pinfl, inn *string, name string, serial *string) (*models.User, error) {
	password, err := common.RandomString(32)
	if err != nil {
		return nil, fmt.Errorf("error generating password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	identifier := pinfl
	if identifier == nil {
		identifier = inn
	}
	verifiedAt := s.now().UTC()

	return &models.User{
		Name:              name,
		Email:             *identifier + "@" + emailDomain,
		Password:          string(hash),
		EmailVerifiedAt:   &verifiedAt,
		PINFL:             pinfl,
		INN:               inn,
		CertificateSerial: serial,
	}, nil
}

// GetByID loads a user.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}

// UpdateLastLogin stamps the login time and client address.
func (s *UserService) UpdateLastLogin(ctx context.Context, userID string, ip string) error {
	if err := s.repomanager.Users(s.db).UpdateLastLogin(ctx, userID, s.now().UTC(), ip); err != nil {
		return fmt.Errorf("error updating last login: %w", err)
	}
	return nil
}

// CertificateInfo summarises the user's stored certificate, or returns nil
// when no certificate serial is recorded.
func (s *UserService) CertificateInfo(ctx context.Context, userID string) (*CertificateSummary, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.CertificateSerial == nil || *user.CertificateSerial == "" {
		return nil, nil
	}
	return &CertificateSummary{
		SerialNumber: *user.CertificateSerial,
		PINFL:        user.PINFL,
		INN:          user.INN,
		Name:         user.Name,
	}, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
