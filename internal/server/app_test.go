package server

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/eimzo-auth/internal/logging"
	"github.com/dmitrijs2005/eimzo-auth/internal/server/challenges"
	"github.com/dmitrijs2005/eimzo-auth/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*App, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()

	return &App{config: cfg, logger: logging.Nop{}, db: db}, mock
}

func TestApp_Ping(t *testing.T) {
	app, mock := newTestApp(t)

	mr := miniredis.RunT(t)
	app.redis = challenges.NewRedisClient(challenges.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = app.redis.Close() })

	mock.ExpectPing()
	require.NoError(t, app.ping(context.Background()))

	mr.Close()
	mock.ExpectPing()
	err := app.ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApp_Ping_DatabaseDown(t *testing.T) {
	app, mock := newTestApp(t)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err := app.ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database")
}

func TestApp_Ping_WithoutRedis(t *testing.T) {
	app, mock := newTestApp(t)

	mock.ExpectPing()
	require.NoError(t, app.ping(context.Background()))
}

func TestApp_RunCancelsOnListenerFailure(t *testing.T) {
	app, _ := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	called := make(chan struct{})
	app.run(ctx, cancel, "test", func(context.Context) error {
		close(called)
		return errors.New("bind: address already in use")
	})

	<-called
	select {
	case <-ctx.Done():
	default:
		t.Fatal("context was not cancelled after listener failure")
	}
}
