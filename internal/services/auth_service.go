package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/tokens"
	"github.com/yukikurage/team-task-api/internal/validation"
)

// AuthService handles authentication related business logic.
type AuthService struct {
	store            repository.Store
	sessions         *SessionManager
	hasher           PasswordHasher
	allowAdminSignup bool
	log              *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(store repository.Store, sessions *SessionManager, hasher PasswordHasher, allowAdminSignup bool, log *zap.Logger) *AuthService {
	return &AuthService{
		store:            store,
		sessions:         sessions,
		hasher:           hasher,
		allowAdminSignup: allowAdminSignup,
		log:              log.Named("auth"),
	}
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     models.Role
	TeamID   *uint64
}

// Register creates a user, places them in their team and signs them in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, TokenPair, error) {
	if input.Role == "" {
		input.Role = models.RoleUser
	}
	input.Username = strings.TrimSpace(input.Username)
	input.Email = validation.NormalizeEmail(input.Email)

	var v validation.Collector
	v.Username("username", input.Username)
	v.Email("email", input.Email)
	v.Password("password", input.Password)
	v.Check(input.Role.Valid(), "role", "Role must be Admin, Manager, or User")
	v.Check(!input.Role.RequiresTeam() || input.TeamID != nil, "team", "Team is required for Manager and User roles")
	if err := v.Err(); err != nil {
		return nil, TokenPair{}, err
	}
	if input.Role == models.RoleAdmin && !s.allowAdminSignup {
		return nil, TokenPair{}, ErrAdminSignupDisabled
	}

	user, err := createAccount(ctx, s.store, s.hasher, input.Username, input.Email, input.Password, input.Role, input.TeamID)
	if err != nil {
		return nil, TokenPair{}, err
	}

	pair, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}

	s.log.Info("user registered", zap.Uint64("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, pair, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Identifier string
	Password   string
}

// Login verifies credentials and issues a new token pair. The same error is
// returned for an unknown identifier and a wrong password.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, TokenPair, error) {
	identifier := strings.TrimSpace(input.Identifier)
	if identifier == "" || input.Password == "" {
		return nil, TokenPair{}, ErrInvalidCredentials
	}

	user, err := s.store.Users().FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, input.Password) {
		s.log.Info("failed login", zap.Uint64("user_id", user.ID))
		return nil, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}

	user, err = s.reload(ctx, user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (tokens.Issued, error) {
	return s.sessions.Refresh(ctx, refreshToken)
}

// Logout revokes the presented refresh token.
func (s *AuthService) Logout(ctx context.Context, userID uint64, refreshToken string) error {
	return s.sessions.Revoke(ctx, userID, refreshToken)
}

// ChangePasswordInput holds the current and the new password.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// ChangePassword replaces the password and ends every session of the user.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint64, input ChangePasswordInput) error {
	var v validation.Collector
	v.Check(input.CurrentPassword != "", "currentPassword", "Current password is required")
	v.Password("newPassword", input.NewPassword)
	if err := v.Err(); err != nil {
		return err
	}

	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		return storeError(err, ErrUserNotFound, "find user")
	}
	if !s.hasher.Verify(user.PasswordHash, input.CurrentPassword) {
		return ErrWrongPassword
	}

	hash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Users().UpdateProfile(ctx, user); err != nil {
			return storeError(err, nil, "update password")
		}
		return s.sessions.revokeAllTx(ctx, tx, userID)
	})
	if err != nil {
		return err
	}

	s.log.Info("password changed", zap.Uint64("user_id", userID))
	return nil
}

// GetProfile returns the user with their team.
func (s *AuthService) GetProfile(ctx context.Context, userID uint64) (*models.User, error) {
	return s.reload(ctx, userID)
}

// UpdateProfileInput holds self-service profile changes.
type UpdateProfileInput struct {
	Username *string
	Email    *string
}

// UpdateProfile changes the username and email of the caller.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint64, input UpdateProfileInput) (*models.User, error) {
	var v validation.Collector
	if input.Username != nil {
		trimmed := strings.TrimSpace(*input.Username)
		input.Username = &trimmed
		v.Username("username", trimmed)
	}
	if input.Email != nil {
		normalized := validation.NormalizeEmail(*input.Email)
		input.Email = &normalized
		v.Email("email", normalized)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, ErrUserNotFound, "find user")
	}
	if err := applyProfile(ctx, s.store, user, input.Username, input.Email); err != nil {
		return nil, err
	}
	return s.reload(ctx, userID)
}

// BootstrapAdmin creates the first Admin account when none exists.
func (s *AuthService) BootstrapAdmin(ctx context.Context, username, email, password string) (bool, error) {
	count, err := s.store.Users().CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("failed to count admins: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	email = validation.NormalizeEmail(email)
	var v validation.Collector
	v.Username("ADMIN_USERNAME", username)
	v.Email("ADMIN_EMAIL", email)
	v.Password("ADMIN_PASSWORD", password)
	if err := v.Err(); err != nil {
		return false, err
	}

	user, err := createAccount(ctx, s.store, s.hasher, username, email, password, models.RoleAdmin, nil)
	if err != nil {
		return false, err
	}
	s.log.Info("bootstrap admin created", zap.Uint64("user_id", user.ID))
	return true, nil
}

func (s *AuthService) reload(ctx context.Context, userID uint64) (*models.User, error) {
	return loadUser(ctx, s.store, userID)
}

func loadUser(ctx context.Context, store repository.Store, userID uint64) (*models.User, error) {
	user, err := store.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, ErrUserNotFound, "find user")
	}
	return user, nil
}

// createAccount checks uniqueness, stores the user and places them in teamID
// in one transaction. Inputs must already be validated.
func createAccount(ctx context.Context, store repository.Store, hasher PasswordHasher, username, email, password string, role models.Role, teamID *uint64) (*models.User, error) {
	if err := ensureUnique(ctx, store, username, email, 0); err != nil {
		return nil, err
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}

	err = store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return storeError(err, nil, "create user")
		}
		return place(ctx, tx, user, role, teamID)
	})
	if err != nil {
		return nil, err
	}

	return loadUser(ctx, store, user.ID)
}

// ensureUnique fails with a conflict when username or email belong to a
// user other than excludeID.
func ensureUnique(ctx context.Context, store repository.Store, username, email string, excludeID uint64) error {
	if username != "" {
		existing, err := store.Users().FindByUsername(ctx, username)
		if err == nil && existing.ID != excludeID {
			return ErrUsernameTaken
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check username: %w", err)
		}
	}
	if email != "" {
		existing, err := store.Users().FindByEmail(ctx, email)
		if err == nil && existing.ID != excludeID {
			return ErrEmailTaken
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check email: %w", err)
		}
	}
	return nil
}

// applyProfile saves new username and email after checking uniqueness.
func applyProfile(ctx context.Context, store repository.Store, user *models.User, username, email *string) error {
	var newUsername, newEmail string
	if username != nil && *username != user.Username {
		newUsername = *username
	}
	if email != nil && *email != user.Email {
		newEmail = *email
	}
	if newUsername == "" && newEmail == "" {
		return nil
	}
	if err := ensureUnique(ctx, store, newUsername, newEmail, user.ID); err != nil {
		return err
	}

	if newUsername != "" {
		user.Username = newUsername
	}
	if newEmail != "" {
		user.Email = newEmail
	}
	if err := store.Users().UpdateProfile(ctx, user); err != nil {
		return storeError(err, nil, "update profile")
	}
	return nil
}
