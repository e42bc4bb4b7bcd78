package database

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/tournament-auth/config"
)

func TestNewDatabaseConfig(t *testing.T) {
	var cfg config.Config
	cfg.Repositories.Postgres.Host = "db.internal"
	cfg.Repositories.Postgres.Port = "5433"
	cfg.Repositories.Postgres.Username = "auth"
	cfg.Repositories.Postgres.Password = "p@ss word"
	cfg.Repositories.Postgres.DB = "tournament_auth"
	cfg.Repositories.Postgres.MaxConns = 7
	cfg.Repositories.Postgres.MaxConnWaitingSec = 3

	dbCfg, err := NewDatabaseConfig(&cfg, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, int32(7), dbCfg.MaxConns)

	u, err := url.Parse(dbCfg.ConnectionURL)
	require.NoError(t, err)
	assert.Equal(t, "postgresql", u.Scheme)
	assert.Equal(t, "db.internal:5433", u.Host)
	assert.Equal(t, "/tournament_auth", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss word", pw)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "3", u.Query().Get("connect_timeout"))

	_, err = NewDatabaseConfig(&config.Config{}, slog.Default())
	assert.Error(t, err)
}

func TestRunMigrations_RejectsScheme(t *testing.T) {
	err := RunMigrations("mysql://localhost/db", slog.Default())
	assert.ErrorContains(t, err, "postgresql://")
}

func TestWaitForDB(t *testing.T) {
	ctx := context.Background()

	t.Run("ReadyAfterRetry", func(t *testing.T) {
		mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectPing().WillReturnError(errors.New("starting up"))
		mock.ExpectPing()

		assert.True(t, waitForDB(ctx, mock, slog.Default(), 3, time.Millisecond))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("GivesUp", func(t *testing.T) {
		mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mock.Close()

		for i := 0; i < 2; i++ {
			mock.ExpectPing().WillReturnError(errors.New("down"))
		}

		assert.False(t, waitForDB(ctx, mock, slog.Default(), 2, time.Millisecond))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
