package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/tournament-auth/internal/types"
)

var userRowColumns = []string{
	"id", "username", "email", "external_id", "role", "confederation", "team", "password_hash",
	"password_history", "password_changed_at", "is_active", "created_at", "last_login_at", "version",
}

func newMockRepo(t *testing.T) (*PostgresCredentialStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresCredentialStore(mock, slog.Default()), mock
}

func TestPostgresCredentialStore_FindByUsername(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		id := uuid.New()
		created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		changed := created.Add(time.Hour)
		ext := "P000123"

		rows := pgxmock.NewRows(userRowColumns).AddRow(
			id, "alice", "alice@example.com", &ext, "PLAYER", "UEFA", "Portugal", "hash",
			[]string{"hash"}, &changed, true, created, (*time.Time)(nil), int64(3),
		)
		mock.ExpectQuery("SELECT (.+) FROM users WHERE username = \\$1").WithArgs("alice").WillReturnRows(rows)

		u, err := repo.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
		assert.Equal(t, "P000123", u.ExternalID)
		assert.Equal(t, types.RolePlayer, u.Role)
		assert.Equal(t, []string{"hash"}, u.PasswordHistory)
		assert.Equal(t, int64(3), u.Version)
		assert.Nil(t, u.LastLoginAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("SELECT (.+) FROM users").WithArgs("ghost").WillReturnError(pgx.ErrNoRows)

		_, err := repo.FindByUsername(ctx, "ghost")
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DatabaseError", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("SELECT (.+) FROM users").WithArgs("alice").WillReturnError(errors.New("connection refused"))

		_, err := repo.FindByUsername(ctx, "alice")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, types.ErrNotFound)
	})
}

func TestPostgresCredentialStore_Exists(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT EXISTS").WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("alice@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := repo.ExistsByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ExistsByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.ExistsByExternalID(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func insertArgs() []interface{} {
	args := make([]interface{}, 13)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestPostgresCredentialStore_Insert(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec("INSERT INTO users").WithArgs(insertArgs()...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		u := &types.User{Username: "alice", Email: "alice@example.com", Role: types.RolePlayer}
		require.NoError(t, repo.Save(ctx, u))
		assert.NotEqual(t, uuid.Nil, u.ID)
		assert.Equal(t, int64(1), u.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	for constraint, want := range map[string]error{
		"users_username_key":    types.ErrDuplicateUsername,
		"users_email_lower_key": types.ErrDuplicateEmail,
		"users_external_id_key": types.ErrDuplicateExternalID,
	} {
		t.Run(constraint, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectExec("INSERT INTO users").WithArgs(insertArgs()...).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: constraint})

			u := &types.User{Username: "alice", Email: "alice@example.com"}
			assert.ErrorIs(t, repo.Save(ctx, u), want)
			assert.Equal(t, int64(0), u.Version)
		})
	}
}

func updateArgs(username string, version int64) []interface{} {
	args := []interface{}{username}
	for i := 0; i < 10; i++ {
		args = append(args, pgxmock.AnyArg())
	}
	return append(args, version)
}

func TestPostgresCredentialStore_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec("UPDATE users SET").WithArgs(updateArgs("alice", 2)...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		u := &types.User{Username: "alice", Version: 2}
		require.NoError(t, repo.Save(ctx, u))
		assert.Equal(t, int64(3), u.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Stale", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec("UPDATE users SET").WithArgs(updateArgs("alice", 2)...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery("SELECT EXISTS").WithArgs("alice").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		u := &types.User{Username: "alice", Version: 2}
		assert.ErrorIs(t, repo.Save(ctx, u), types.ErrStaleRecord)
		assert.Equal(t, int64(2), u.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec("UPDATE users SET").WithArgs(updateArgs("ghost", 1)...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery("SELECT EXISTS").WithArgs("ghost").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		assert.ErrorIs(t, repo.Save(ctx, &types.User{Username: "ghost", Version: 1}), types.ErrNotFound)
	})
}
