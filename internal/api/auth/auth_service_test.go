package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/tournament-auth/internal/audit"
	"github.com/FACorreiaa/tournament-auth/internal/authz"
	"github.com/FACorreiaa/tournament-auth/internal/clock"
	"github.com/FACorreiaa/tournament-auth/internal/password"
	"github.com/FACorreiaa/tournament-auth/internal/store/memory"
	"github.com/FACorreiaa/tournament-auth/internal/token"
	"github.com/FACorreiaa/tournament-auth/internal/types"
)

// MockCredentialStore is a mock implementation of the CredentialStore interface
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) FindByUsername(ctx context.Context, username string) (*types.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User).Clone(), args.Error(1)
}

func (m *MockCredentialStore) Save(ctx context.Context, u *types.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockCredentialStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockCredentialStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockCredentialStore) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	args := m.Called(ctx, externalID)
	return args.Bool(0), args.Error(1)
}

const alicePassword = "Str0ng!Pass12"

var fixtureStart = time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *AuthServiceImpl
	store  *memory.Store
	clock  *clock.Mock
	hasher *password.BcryptHasher
	tokens *token.Manager
	events *audit.MemoryRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, nil)
}

func newFixtureWithStore(t *testing.T, store CredentialStore) *fixture {
	t.Helper()
	f := &fixture{
		clock:  clock.NewMock(fixtureStart),
		hasher: password.NewBcryptHasher(bcrypt.MinCost),
		events: audit.NewMemoryRecorder(100),
	}
	tokens, err := token.NewManager(token.Config{Secret: "test-secret-with-enough-entropy-0123456789"}, f.clock)
	require.NoError(t, err)
	f.tokens = tokens

	if store == nil {
		f.store = memory.New()
		store = f.store
	}

	logger := slog.Default()
	trail := audit.NewTrail(f.events, logger, f.clock)
	f.svc = NewAuthService(
		store,
		f.hasher,
		password.NewPolicy(f.hasher, f.clock),
		tokens,
		authz.NewMatrix(trail, logger),
		trail,
		f.clock,
		logger,
	)
	return f
}

func (f *fixture) registerAlice(t *testing.T) *types.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), RegisterParams{
		Username:   "alice",
		Email:      "alice@example.com",
		Password:   alicePassword,
		Role:       types.RolePlayer,
		ExternalID: "P000123",
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) lastEvent(t *testing.T) audit.Event {
	t.Helper()
	events, err := f.events.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	return events[0]
}

func TestAliceScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := f.registerAlice(t)
	require.Len(t, u.PasswordHistory, 1)
	assert.True(t, f.hasher.Verify(alicePassword, u.PasswordHistory[0]))
	assert.Equal(t, u.PasswordHash, u.PasswordHistory[0])

	err := f.svc.ChangePassword(ctx, "alice", alicePassword)
	require.ErrorIs(t, err, types.ErrPolicyViolation)
	var pe *types.PolicyError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, []string{string(password.RuleReused)}, pe.Rules)

	require.NoError(t, f.svc.ChangePassword(ctx, "alice", "Str0nger!Pass99"))

	stored, err := f.store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, stored.PasswordHistory, 2)
	assert.True(t, f.hasher.Verify("Str0nger!Pass99", stored.PasswordHistory[0]))
	assert.True(t, f.hasher.Verify(alicePassword, stored.PasswordHistory[1]))
	assert.Equal(t, stored.PasswordHash, stored.PasswordHistory[0])
}

func TestChangePassword_HistoryIsBoundedToEight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pw := func(i int) string { return fmt.Sprintf("Rotat3d!Key%02d", i) }

	_, err := f.svc.Register(ctx, RegisterParams{Username: "bob", Email: "bob@example.com", Password: pw(0)})
	require.NoError(t, err)
	for i := 1; i <= 8; i++ {
		require.NoError(t, f.svc.ChangePassword(ctx, "bob", pw(i)), "change %d", i)
	}

	stored, err := f.store.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, stored.PasswordHistory, types.MaxPasswordHistory)

	// pw(1) is the eighth most recent and still blocked
	assert.ErrorIs(t, f.svc.ChangePassword(ctx, "bob", pw(1)), types.ErrPolicyViolation)
	// pw(0) was pushed out by the ninth password
	assert.NoError(t, f.svc.ChangePassword(ctx, "bob", pw(0)))
}

func TestChangePassword_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.registerAlice(t)

	assert.ErrorIs(t, f.svc.ChangePassword(ctx, "nobody", "Str0nger!Pass99"), types.ErrNotFound)
	assert.ErrorIs(t, f.svc.ChangePassword(ctx, "alice", "weak"), types.ErrPolicyViolation)
	assert.ErrorIs(t, f.svc.ChangePassword(ctx, "alice", "Alice!Pass9900"), types.ErrPolicyViolation)
	assert.ErrorIs(t, f.svc.ChangePassword(ctx, "alice", "Str0nger!Pass99"+strings.Repeat("z", 60)), types.ErrPolicyViolation)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		f.registerAlice(t)

		res, err := f.svc.Login(ctx, "alice", alicePassword)
		require.NoError(t, err)
		assert.Equal(t, "alice", res.User.Username)
		assert.Equal(t, fixtureStart.Add(token.DefaultTTL), res.ExpiresAt)

		claims, err := f.tokens.Verify(res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Subject)
		assert.Equal(t, []string{"ROLE_PLAYER"}, claims.Roles)

		stored, err := f.store.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, stored.LastLoginAt)
		assert.True(t, stored.LastLoginAt.Equal(fixtureStart))
		assert.Equal(t, audit.TypeLoginSuccess, f.lastEvent(t).Type)
	})

	t.Run("UserNotFound", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Login(ctx, "ghost", alicePassword)
		assert.ErrorIs(t, err, types.ErrNotFound)

		e := f.lastEvent(t)
		assert.Equal(t, audit.TypeLoginFailure, e.Type)
		assert.Equal(t, audit.SeverityMedium, e.Severity)
		assert.Equal(t, "ghost", e.Actor)
	})

	t.Run("InvalidPassword", func(t *testing.T) {
		f := newFixture(t)
		f.registerAlice(t)
		_, err := f.svc.Login(ctx, "alice", "Wr0ng!Pass12")
		assert.ErrorIs(t, err, types.ErrInvalidCredentials)
		assert.Equal(t, audit.TypeLoginFailure, f.lastEvent(t).Type)
	})

	t.Run("InactiveAccount", func(t *testing.T) {
		f := newFixture(t)
		f.registerAlice(t)
		u, err := f.store.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		u.IsActive = false
		require.NoError(t, f.store.Save(ctx, u))

		_, err = f.svc.Login(ctx, "alice", alicePassword)
		assert.ErrorIs(t, err, types.ErrInvalidCredentials)
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Defaults", func(t *testing.T) {
		f := newFixture(t)
		u, err := f.svc.Register(ctx, RegisterParams{
			Username: " carol ",
			Email:    "Carol@Example.com",
			Password: "C0ach!Secure9",
		})
		require.NoError(t, err)
		assert.Equal(t, "carol", u.Username)
		assert.Equal(t, "carol@example.com", u.Email)
		assert.Equal(t, types.RolePlayer, u.Role)
		assert.True(t, u.IsActive)
		assert.Equal(t, fixtureStart, u.CreatedAt)
		require.NotNil(t, u.PasswordChangedAt)
		assert.Equal(t, fixtureStart, *u.PasswordChangedAt)
		assert.Equal(t, int64(1), u.Version)
	})

	t.Run("Duplicates", func(t *testing.T) {
		f := newFixture(t)
		f.registerAlice(t)

		tests := []struct {
			name   string
			params RegisterParams
			want   error
		}{
			{"username", RegisterParams{Username: "alice", Email: "a2@example.com", Password: "Str0ng!Pass34"}, types.ErrDuplicateUsername},
			{"email", RegisterParams{Username: "alice2", Email: "ALICE@example.com", Password: "Str0ng!Pass34"}, types.ErrDuplicateEmail},
			{"external id", RegisterParams{Username: "alice2", Email: "a2@example.com", ExternalID: "P000123", Password: "Str0ng!Pass34"}, types.ErrDuplicateExternalID},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.svc.Register(ctx, tt.params)
				assert.ErrorIs(t, err, tt.want)
			})
		}
		assert.Equal(t, 1, f.store.Count())
	})

	t.Run("InvalidInput", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Register(ctx, RegisterParams{Username: "dave", Email: "not-an-email", Password: alicePassword})
		assert.ErrorIs(t, err, types.ErrInvalidInput)

		_, err = f.svc.Register(ctx, RegisterParams{Username: "", Email: "dave@example.com", Password: alicePassword})
		assert.ErrorIs(t, err, types.ErrInvalidInput)

		_, err = f.svc.Register(ctx, RegisterParams{Username: "dave", Email: "dave@example.com", Password: alicePassword, Role: "REFEREE"})
		assert.ErrorIs(t, err, types.ErrInvalidInput)
	})

	t.Run("PolicyApplies", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Register(ctx, RegisterParams{Username: "root", Email: "root@example.com", Password: "Str0ng!Pas1", Role: types.RoleAdmin})
		require.ErrorIs(t, err, types.ErrPolicyViolation)
		assert.Equal(t, 0, f.store.Count())
	})

	t.Run("OverlongPasswordIsPolicyViolation", func(t *testing.T) {
		f := newFixture(t)
		long := "Str0ng!Pass12" + strings.Repeat("y", 70)
		_, err := f.svc.Register(ctx, RegisterParams{Username: "erin", Email: "erin@example.com", Password: long})
		require.ErrorIs(t, err, types.ErrPolicyViolation)

		var pe *types.PolicyError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, []string{"max_length"}, pe.Rules)
		assert.Equal(t, 0, f.store.Count())
	})
}

func TestIsPasswordExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.registerAlice(t)

	f.clock.Advance(180 * 24 * time.Hour)
	expired, err := f.svc.IsPasswordExpired(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, expired)

	f.clock.Advance(24 * time.Hour)
	expired, err = f.svc.IsPasswordExpired(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, expired)

	_, err = f.svc.IsPasswordExpired(ctx, "ghost")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestVerifyToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.registerAlice(t)

	res, err := f.svc.Login(ctx, "alice", alicePassword)
	require.NoError(t, err)

	claims, err := f.svc.VerifyToken(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)

	f.clock.Advance(token.DefaultTTL)
	_, err = f.svc.VerifyToken(ctx, res.AccessToken)
	assert.ErrorIs(t, err, types.ErrTokenExpired)
	assert.Equal(t, audit.TypeTokenExpired, f.lastEvent(t).Type)

	_, err = f.svc.VerifyToken(ctx, "garbage")
	assert.ErrorIs(t, err, types.ErrTokenMalformed)
	assert.Equal(t, audit.TypeInvalidToken, f.lastEvent(t).Type)
}

func TestAuthorize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.True(t, f.svc.Authorize(ctx, types.RoleAdmin, authz.OpDelete, "match/1"))
	assert.False(t, f.svc.Authorize(ctx, types.RolePlayer, authz.OpDelete, "match/1"))
	assert.False(t, f.svc.Authorize(ctx, types.Role("UNKNOWN"), authz.OpRead, "match/1"))
}

func TestLogin_RetriesStaleRecord(t *testing.T) {
	ctx := context.Background()
	store := new(MockCredentialStore)
	f := newFixtureWithStore(t, store)

	hash, err := f.hasher.Hash(alicePassword)
	require.NoError(t, err)
	user := &types.User{Username: "alice", Role: types.RolePlayer, PasswordHash: hash, IsActive: true, Version: 4}

	store.On("FindByUsername", mock.Anything, "alice").Return(user, nil).Times(3)
	store.On("Save", mock.Anything, mock.AnythingOfType("*types.User")).Return(types.ErrStaleRecord).Twice()
	store.On("Save", mock.Anything, mock.AnythingOfType("*types.User")).Return(nil).Once()

	res, err := f.svc.Login(ctx, "alice", alicePassword)
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	store.AssertExpectations(t)
}

func TestChangePassword_GivesUpAfterRetries(t *testing.T) {
	ctx := context.Background()
	store := new(MockCredentialStore)
	f := newFixtureWithStore(t, store)

	hash, err := f.hasher.Hash(alicePassword)
	require.NoError(t, err)
	user := &types.User{Username: "alice", Role: types.RolePlayer, PasswordHash: hash, PasswordHistory: []string{hash}, Version: 2}

	store.On("FindByUsername", mock.Anything, "alice").Return(user, nil)
	store.On("Save", mock.Anything, mock.AnythingOfType("*types.User")).Return(types.ErrStaleRecord)

	err = f.svc.ChangePassword(ctx, "alice", "Str0nger!Pass99")
	assert.ErrorIs(t, err, types.ErrStaleRecord)
	store.AssertNumberOfCalls(t, "Save", maxStaleRetries+1)
	store.AssertNumberOfCalls(t, "FindByUsername", maxStaleRetries+1)
}
