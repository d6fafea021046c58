package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/eimzo-auth/internal/common"
	"github.com/dmitrijs2005/eimzo-auth/internal/eimzo"
	"github.com/dmitrijs2005/eimzo-auth/internal/logging"
	"github.com/dmitrijs2005/eimzo-auth/internal/server/auth"
	"github.com/dmitrijs2005/eimzo-auth/internal/server/config"
	"github.com/dmitrijs2005/eimzo-auth/internal/server/models"
	"github.com/dmitrijs2005/eimzo-auth/internal/server/repositories/repomanager"
)

// Verifier is the part of the E-IMZO client the login flow needs.
type Verifier interface {
	IssueChallenge(ctx context.Context) (*eimzo.Challenge, error)
	VerifyAuth(ctx context.Context, pkcs7 string, sourceAddress string) (*eimzo.CertificateInfo, error)
}

// LoginMetrics counts login attempts by result.
type LoginMetrics interface {
	ObserveLogin(result string)
}

type nopLoginMetrics struct{}

func (nopLoginMetrics) ObserveLogin(string) {}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	User        *models.User
	Certificate *eimzo.CertificateInfo
	Token       string
	ExpiresAt   time.Time
}

// SessionInfo identifies an authenticated request.
type SessionInfo struct {
	UserID    string
	SessionID string
}

// AuthService runs the challenge/response login and manages sessions.
type AuthService struct {
	db               *sql.DB
	repomanager      repomanager.RepositoryManager
	users            *UserService
	verifier         Verifier
	logger           logging.Logger
	metrics          LoginMetrics
	jwtSecret        []byte
	sessionValidity  time.Duration
	rememberValidity time.Duration
	now              func() time.Time
}

// NewAuthService constructs an AuthService. metrics may be nil.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, users *UserService, verifier Verifier,
	cfg *config.Config, logger logging.Logger, metrics LoginMetrics) *AuthService {
	if metrics == nil {
		metrics = nopLoginMetrics{}
	}
	return &AuthService{
		db:               db,
		repomanager:      m,
		users:            users,
		verifier:         verifier,
		logger:           logger.With("module", "auth"),
		metrics:          metrics,
		jwtSecret:        []byte(cfg.SecretKey),
		sessionValidity:  cfg.SessionValidityDuration,
		rememberValidity: cfg.RememberSessionValidityDuration,
		now:              time.Now,
	}
}

// IssueChallenge fetches a fresh challenge from the E-IMZO server.
func (s *AuthService) IssueChallenge(ctx context.Context) (*eimzo.Challenge, error) {
	return s.verifier.IssueChallenge(ctx)
}

// Login verifies the signed challenge, reconciles the user and opens a
// session. remember selects the long session lifetime.
func (s *AuthService) Login(ctx context.Context, pkcs7 string, ip string, remember bool) (*LoginResult, error) {
	cert, err := s.verifier.VerifyAuth(ctx, pkcs7, ip)
	if err != nil {
		s.logger.Warn(ctx, "Login failed", "error", err, "ip", ip)
		s.metrics.ObserveLogin(loginFailure(err))
		return nil, err
	}

	if !cert.HasIdentity() {
		s.logger.Warn(ctx, "Login failed", "error", ErrIdentityMissing, "ip", ip, "serial", cert.SerialNumber)
		s.metrics.ObserveLogin(loginFailure(ErrIdentityMissing))
		return nil, ErrIdentityMissing
	}

	user, err := s.users.FindOrCreate(ctx, FindOrCreateParams{
		PINFL:      cert.SubjectName.PINFL,
		INN:        cert.SubjectName.INN,
		FullName:   cert.SubjectName.CommonName,
		CertSerial: cert.SerialNumber,
	})
	if err != nil {
		s.logger.Warn(ctx, "Login failed", "error", err, "ip", ip)
		s.metrics.ObserveLogin(loginFailure(err))
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, ip); err != nil {
		s.metrics.ObserveLogin("error")
		return nil, err
	}

	validity := s.sessionValidity
	if remember {
		validity = s.rememberValidity
	}

	session, err := s.repomanager.Sessions(s.db).Create(ctx, user.ID, ip, validity)
	if err != nil {
		s.metrics.ObserveLogin("error")
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	token, err := auth.GenerateToken(user.ID, session.ID, s.jwtSecret, session.ExpiresAt)
	if err != nil {
		s.metrics.ObserveLogin("error")
		return nil, common.ErrorInternal
	}

	s.metrics.ObserveLogin("success")
	s.logger.Info(ctx, "user logged in", "user_id", user.ID, "ip", ip)

	return &LoginResult{User: user, Certificate: cert, Token: token, ExpiresAt: session.ExpiresAt}, nil
}

// Logout ends the session. Unknown sessions are ignored.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.repomanager.Sessions(s.db).Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

// Authenticate resolves a session token. Invalid, expired or revoked tokens
// yield ErrAuthRequired.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*SessionInfo, error) {
	if token == "" {
		return nil, ErrAuthRequired
	}

	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		s.logger.Debug(ctx, "session token rejected", "error", err)
		return nil, ErrAuthRequired
	}

	session, err := s.repomanager.Sessions(s.db).Find(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrAuthRequired
		}
		return nil, fmt.Errorf("error loading session: %w", err)
	}

	if session.UserID != claims.UserID {
		return nil, ErrAuthRequired
	}
	if session.Expired(s.now()) {
		return nil, ErrSessionEnded
	}

	return &SessionInfo{UserID: session.UserID, SessionID: session.ID}, nil
}

// Me returns the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrAuthRequired
		}
		return nil, err
	}
	return user, nil
}

func loginFailure(err error) string {
	switch {
	case eimzo.IsKind(err, eimzo.KindAuth), errors.Is(err, common.ErrorValidation):
		return "rejected"
	case eimzo.IsKind(err, eimzo.KindUpstream), eimzo.IsKind(err, eimzo.KindProtocol):
		return "upstream_error"
	default:
		return "error"
	}
}
