package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yukikurage/team-task-api/internal/authz"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/optional"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/utils"
	"github.com/yukikurage/team-task-api/internal/validation"
)

// UserService handles user administration.
type UserService struct {
	store  repository.Store
	hasher PasswordHasher
	log    *zap.Logger
}

// NewUserService creates a new UserService
func NewUserService(store repository.Store, hasher PasswordHasher, log *zap.Logger) *UserService {
	return &UserService{
		store:  store,
		hasher: hasher,
		log:    log.Named("user"),
	}
}

// CreateUserInput represents input for creating a user
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Role     models.Role
	TeamID   *uint64
}

// CreateUser creates an account on behalf of an Admin or Manager. Managers
// always create Users in their own team.
func (s *UserService) CreateUser(ctx context.Context, p authz.Principal, input CreateUserInput) (*models.User, error) {
	if err := authz.Authorize(p, authz.CreateUser, authz.Target{}); err != nil {
		return nil, err
	}
	if !p.IsAdmin() && p.TeamID == nil {
		return nil, ErrManagerWithoutTeam
	}
	if input.Role == "" {
		input.Role = models.RoleUser
	}
	input.Role, input.TeamID = authz.NewUserScope(p, input.Role, input.TeamID)
	input.Username = strings.TrimSpace(input.Username)
	input.Email = validation.NormalizeEmail(input.Email)

	var v validation.Collector
	v.Username("username", input.Username)
	v.Email("email", input.Email)
	v.Password("password", input.Password)
	v.Check(input.Role.Valid(), "role", "Role must be Admin, Manager, or User")
	v.Check(!input.Role.RequiresTeam() || input.TeamID != nil, "team", "Team is required for Manager and User roles")
	v.Check(input.Role != models.RoleAdmin || input.TeamID == nil, "team", "Admins cannot be team members")
	if err := v.Err(); err != nil {
		return nil, err
	}

	user, err := createAccount(ctx, s.store, s.hasher, input.Username, input.Email, input.Password, input.Role, input.TeamID)
	if err != nil {
		return nil, err
	}

	s.log.Info("user created",
		zap.Uint64("user_id", user.ID),
		zap.Uint64("actor_id", p.UserID),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}

// ListUsersInput represents filters for listing users
type ListUsersInput struct {
	Role       *models.Role
	TeamID     *uint64
	Search     string
	Pagination utils.PaginationParams
}

// ListUsers returns the users visible to p.
func (s *UserService) ListUsers(ctx context.Context, p authz.Principal, input ListUsersInput) ([]models.User, int64, error) {
	if err := authz.Authorize(p, authz.ListUsers, authz.Target{}); err != nil {
		return nil, 0, err
	}
	if input.Role != nil && !input.Role.Valid() {
		var v validation.Collector
		v.Add("role", "Role must be Admin, Manager, or User")
		return nil, 0, v.Err()
	}

	users, total, err := s.store.Users().List(ctx, repository.UserFilter{
		Scope:      authz.UserVisibility(p),
		Role:       input.Role,
		TeamID:     input.TeamID,
		Search:     strings.TrimSpace(input.Search),
		Pagination: input.Pagination,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// TeamMembers lists the users of the caller's own team.
func (s *UserService) TeamMembers(ctx context.Context, p authz.Principal, input ListUsersInput) ([]models.User, int64, error) {
	if p.TeamID == nil {
		if err := authz.Authorize(p, authz.ListUsers, authz.Target{}); err != nil {
			return nil, 0, err
		}
		return nil, 0, ErrNoTeamAssigned
	}
	input.TeamID = p.TeamID
	return s.ListUsers(ctx, p, input)
}

// Stats counts the users visible to p.
func (s *UserService) Stats(ctx context.Context, p authz.Principal) (repository.UserStats, error) {
	if err := authz.Authorize(p, authz.ListUsers, authz.Target{}); err != nil {
		return repository.UserStats{}, err
	}
	stats, err := s.store.Users().Stats(ctx, authz.UserVisibility(p))
	if err != nil {
		return repository.UserStats{}, fmt.Errorf("failed to compute user stats: %w", err)
	}
	return stats, nil
}

// GetUser returns a user p may view.
func (s *UserService) GetUser(ctx context.Context, p authz.Principal, userID uint64) (*models.User, error) {
	if err := authz.Authorize(p, authz.ListUsers, authz.Target{}); err != nil {
		return nil, err
	}
	user, err := loadUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(p, authz.ViewUser, authz.Target{User: authz.UserRefOf(user)}); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUserInput is a partial user update. Team may be explicitly null.
type UpdateUserInput struct {
	Username *string
	Email    *string
	Role     *models.Role
	Team     optional.Value[uint64]
}

// UpdateUser changes profile, role and team of a user in one transaction.
// Team and manager references are kept consistent with the new role.
func (s *UserService) UpdateUser(ctx context.Context, p authz.Principal, userID uint64, input UpdateUserInput) (*models.User, error) {
	if err := authz.Authorize(p, authz.ManageUser, authz.Target{}); err != nil {
		return nil, err
	}

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
	if input.Role != nil {
		v.Check(input.Role.Valid(), "role", "Role must be Admin, Manager, or User")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		user, err := tx.Users().FindByID(ctx, userID)
		if err != nil {
			return storeError(err, ErrUserNotFound, "find user")
		}
		if err := applyProfile(ctx, tx, user, input.Username, input.Email); err != nil {
			return err
		}
		if input.Role == nil && !input.Team.Set {
			return nil
		}

		role := user.Role
		if input.Role != nil {
			role = *input.Role
		}
		teamID := user.TeamID
		if input.Team.Set {
			teamID = input.Team.Ptr()
		}
		if role == models.RoleAdmin {
			if input.Team.Set && teamID != nil {
				return ErrAdminInTeam
			}
			teamID = nil
		}
		return move(ctx, tx, user, role, teamID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user updated", zap.Uint64("user_id", userID), zap.Uint64("actor_id", p.UserID))
	return loadUser(ctx, s.store, userID)
}

// DeleteUser removes a user after detaching them from their team. Their
// refresh sessions are removed with them.
func (s *UserService) DeleteUser(ctx context.Context, p authz.Principal, userID uint64) error {
	if err := authz.Authorize(p, authz.ManageUser, authz.Target{}); err != nil {
		return err
	}
	if userID == p.UserID {
		return ErrCannotDeleteSelf
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		user, err := tx.Users().FindByID(ctx, userID)
		if err != nil {
			return storeError(err, ErrUserNotFound, "find user")
		}
		if err := detach(ctx, tx, user); err != nil {
			return err
		}
		if err := tx.Users().Delete(ctx, userID); err != nil {
			return storeError(err, nil, "delete user")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("user deleted", zap.Uint64("user_id", userID), zap.Uint64("actor_id", p.UserID))
	return nil
}
