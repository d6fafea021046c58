package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/eimzo-auth/internal/common"
	"github.com/dmitrijs2005/eimzo-auth/internal/dbx"
	"github.com/dmitrijs2005/eimzo-auth/internal/logging"
	"github.com/dmitrijs2005/eimzo-auth/internal/server/models"
	sessionsrepo "github.com/dmitrijs2005/eimzo-auth/internal/server/repositories/sessions"
	usersrepo "github.com/dmitrijs2005/eimzo-auth/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func strptr(s string) *string { return &s }

// fakeUsersRepo is an in-memory users table.
type fakeUsersRepo struct {
	mu     sync.Mutex
	rows   map[string]*models.User
	nextID int
	calls  int

	createErr error
	findErr   error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{rows: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	c := *u
	c.ID = fmt.Sprintf("u-%d", f.nextID)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	f.rows[c.ID] = &c
	u.ID = c.ID
	return u, nil
}

func (f *fakeUsersRepo) find(match func(*models.User) bool) (*models.User, error) {
	f.calls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, u := range f.rows {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(u *models.User) bool { return u.ID == id })
}

func (f *fakeUsersRepo) FindByPINFL(ctx context.Context, pinfl string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(u *models.User) bool { return u.PINFL != nil && *u.PINFL == pinfl })
}

func (f *fakeUsersRepo) FindByINN(ctx context.Context, inn string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(u *models.User) bool { return u.INN != nil && *u.INN == inn })
}

func (f *fakeUsersRepo) UpdateCertificate(ctx context.Context, id string, name string, serial *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	u, ok := f.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Name = name
	u.CertificateSerial = serial
	return nil
}

func (f *fakeUsersRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time, ip string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	u, ok := f.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.LastLoginAt = &at
	u.LastLoginIP = &ip
	return nil
}

func (f *fakeUsersRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// fakeSessionsRepo is an in-memory sessions table.
type fakeSessionsRepo struct {
	mu     sync.Mutex
	rows   map[string]*models.Session
	nextID int
	now    func() time.Time

	createErr error
}

func newFakeSessionsRepo() *fakeSessionsRepo {
	return &fakeSessionsRepo{rows: map[string]*models.Session{}, now: time.Now}
}

func (f *fakeSessionsRepo) Create(ctx context.Context, userID string, ip string, validity time.Duration) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	now := f.now()
	s := &models.Session{ID: fmt.Sprintf("s-%d", f.nextID), UserID: userID, IP: ip, CreatedAt: now, ExpiresAt: now.Add(validity)}
	f.rows[s.ID] = s
	c := *s
	return &c, nil
}

func (f *fakeSessionsRepo) Find(ctx context.Context, id string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *s
	return &c, nil
}

func (f *fakeSessionsRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	s *fakeSessionsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), s: newFakeSessionsRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) Sessions(db dbx.DBTX) sessionsrepo.Repository { return m.s }

type countingMetrics struct {
	mu      sync.Mutex
	created int
	logins  map[string]int
}

func (c *countingMetrics) ObserveUserCreated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created++
}

func (c *countingMetrics) ObserveLogin(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.logins == nil {
		c.logins = map[string]int{}
	}
	c.logins[result]++
}

func newTestUserService(db *sql.DB, rm *fakeRepoManager, metrics UserMetrics) *UserService {
	s := NewUserService(db, rm, logging.Nop{}, metrics)
	s.bcryptCost = bcrypt.MinCost
	return s
}
