package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yukikurage/team-task-api/internal/database"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/tokens"
)

type mockHasher struct {
	mock.Mock
}

func (m *mockHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *mockHasher) Verify(hash, password string) bool {
	return m.Called(hash, password).Bool(0)
}

func newMockedAuth(t *testing.T, allowAdmin bool) (*AuthService, *mockHasher, repository.Store) {
	t.Helper()
	store := repository.NewStore(database.NewTestDB(t))
	issuer := tokens.NewIssuer(tokens.Config{
		AccessSecret:  "a",
		RefreshSecret: "r",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
	})
	hasher := new(mockHasher)
	sessions := NewSessionManager(store, issuer, 5, zap.NewNop())
	return NewAuthService(store, sessions, hasher, allowAdmin, zap.NewNop()), hasher, store
}

func TestAuthService_LoginHidesWhichCredentialFailed(t *testing.T) {
	auth, hasher, store := newMockedAuth(t, true)
	ctx := context.Background()

	hasher.On("Hash", "Secr3t!pass").Return("stored-hash", nil).Once()
	_, _, err := auth.Register(ctx, RegisterInput{
		Username: "lena",
		Email:    "lena@example.com",
		Password: "Secr3t!pass",
		Role:     models.RoleAdmin,
	})
	require.NoError(t, err)

	hasher.On("Verify", "stored-hash", "wrong").Return(false).Once()
	_, _, err = auth.Login(ctx, LoginInput{Identifier: "lena", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = auth.Login(ctx, LoginInput{Identifier: "nobody", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	hasher.On("Verify", "stored-hash", "Secr3t!pass").Return(true).Once()
	user, pair, err := auth.Login(ctx, LoginInput{Identifier: "LENA@example.com", Password: "Secr3t!pass"})
	require.NoError(t, err)
	assert.Equal(t, "lena", user.Username)
	assert.NotEmpty(t, pair.RefreshToken)

	active, err := store.Sessions().ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	hasher.AssertExpectations(t)
}

func TestAuthService_AdminSignupGate(t *testing.T) {
	auth, hasher, _ := newMockedAuth(t, false)

	_, _, err := auth.Register(context.Background(), RegisterInput{
		Username: "sneaky",
		Email:    "sneaky@example.com",
		Password: "Secr3t!pass",
		Role:     models.RoleAdmin,
	})
	assert.ErrorIs(t, err, ErrAdminSignupDisabled)
	hasher.AssertNotCalled(t, "Hash", mock.Anything)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	auth, hasher, _ := newMockedAuth(t, false)

	_, _, err := auth.Register(context.Background(), RegisterInput{
		Username: "x",
		Email:    "not-an-email",
		Password: "short",
	})
	require.Error(t, err)

	var appErr *apierrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apierrors.KindValidation, appErr.Kind)
	fields := map[string]bool{}
	for _, f := range appErr.Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{"username", "email", "password", "team"} {
		assert.True(t, fields[want], "expected error for %s", want)
	}
	hasher.AssertNotCalled(t, "Hash", mock.Anything)
}

func (s *ServiceTestSuite) TestRegisterDuplicates() {
	eng := s.newTeam("Eng")
	s.newUser("taken", models.RoleUser, eng)

	_, _, err := s.auth.Register(s.ctx, RegisterInput{
		Username: "taken",
		Email:    "fresh@example.com",
		Password: testPassword,
		TeamID:   &eng.ID,
	})
	s.ErrorIs(err, ErrUsernameTaken)

	_, _, err = s.auth.Register(s.ctx, RegisterInput{
		Username: "fresh",
		Email:    "TAKEN@example.com",
		Password: testPassword,
		TeamID:   &eng.ID,
	})
	s.ErrorIs(err, ErrEmailTaken)
}

func (s *ServiceTestSuite) TestUpdateProfile() {
	eng := s.newTeam("Eng")
	user := s.newUser("paula", models.RoleUser, eng)
	s.newUser("other", models.RoleUser, eng)

	taken := "other"
	_, err := s.auth.UpdateProfile(s.ctx, user.ID, UpdateProfileInput{Username: &taken})
	s.ErrorIs(err, ErrUsernameTaken)

	name, email := "paula_b", "Paula.B@Example.com"
	updated, err := s.auth.UpdateProfile(s.ctx, user.ID, UpdateProfileInput{Username: &name, Email: &email})
	s.Require().NoError(err)
	s.Equal("paula_b", updated.Username)
	s.Equal("paula.b@example.com", updated.Email)
	s.Require().NotNil(updated.Team)
	s.Equal("Eng", updated.Team.Name)
}

func (s *ServiceTestSuite) TestChangePasswordRequiresCurrent() {
	eng := s.newTeam("Eng")
	user := s.newUser("carl", models.RoleUser, eng)

	err := s.auth.ChangePassword(s.ctx, user.ID, ChangePasswordInput{
		CurrentPassword: "Wr0ng!pass",
		NewPassword:     "N3wPassword!",
	})
	s.ErrorIs(err, ErrWrongPassword)

	err = s.auth.ChangePassword(s.ctx, user.ID, ChangePasswordInput{
		CurrentPassword: testPassword,
		NewPassword:     "weak",
	})
	s.requireKind(err, apierrors.KindValidation)
}

func (s *ServiceTestSuite) TestBootstrapAdminRunsOnce() {
	created, err := s.auth.BootstrapAdmin(s.ctx, "second_root", "second@example.com", testPassword)
	s.Require().NoError(err)
	s.False(created)
}
