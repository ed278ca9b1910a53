package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/yukikurage/team-task-api/internal/authz"
	"github.com/yukikurage/team-task-api/internal/constants"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/optional"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/utils"
	"github.com/yukikurage/team-task-api/internal/validation"
)

// TeamService handles team business logic. Every change to a manager or a
// member list runs in one transaction together with the user records it
// touches.
type TeamService struct {
	store repository.Store
	log   *zap.Logger
}

// NewTeamService creates a new TeamService
func NewTeamService(store repository.Store, log *zap.Logger) *TeamService {
	return &TeamService{
		store: store,
		log:   log.Named("team"),
	}
}

// ListPublic returns the newest teams for the registration form.
func (s *TeamService) ListPublic(ctx context.Context) ([]models.Team, error) {
	teams, err := s.store.Teams().ListRecent(ctx, constants.PublicTeamLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// ListTeams returns all teams. Admin only.
func (s *TeamService) ListTeams(ctx context.Context, p authz.Principal, search string, params utils.PaginationParams) ([]models.Team, int64, error) {
	if err := authz.Authorize(p, authz.ListTeams, authz.Target{}); err != nil {
		return nil, 0, err
	}
	teams, total, err := s.store.Teams().List(ctx, strings.TrimSpace(search), params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, total, nil
}

// GetTeam returns a team with its manager and members.
func (s *TeamService) GetTeam(ctx context.Context, p authz.Principal, teamID uint64) (*models.Team, error) {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(p, authz.ViewTeam, authz.Target{Team: authz.TeamRefOf(team)}); err != nil {
		return nil, err
	}
	return s.loadTeam(ctx, teamID, "Manager", "Members.User")
}

// ListMembers returns the member entries of a team.
func (s *TeamService) ListMembers(ctx context.Context, p authz.Principal, teamID uint64) ([]models.TeamMember, error) {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(p, authz.ViewTeam, authz.Target{Team: authz.TeamRefOf(team)}); err != nil {
		return nil, err
	}
	members, err := s.store.Teams().ListMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// MyTeam returns the caller's current team.
func (s *TeamService) MyTeam(ctx context.Context, p authz.Principal) (*models.Team, error) {
	if p.TeamID == nil {
		return nil, ErrNoTeamAssigned
	}
	team, err := s.store.Teams().FindByID(ctx, *p.TeamID, "Manager", "Members.User")
	if err != nil {
		return nil, storeError(err, ErrNoTeamAssigned, "find team")
	}
	return team, nil
}

// CreateTeamInput represents input for creating a team
type CreateTeamInput struct {
	Name      string
	ManagerID *uint64
	MemberIDs []uint64
}

// CreateTeam creates a team, moving the manager and members into it.
func (s *TeamService) CreateTeam(ctx context.Context, p authz.Principal, input CreateTeamInput) (*models.Team, error) {
	if err := authz.Authorize(p, authz.ManageTeam, authz.Target{}); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	var v validation.Collector
	v.TeamName("name", name)
	if err := v.Err(); err != nil {
		return nil, err
	}

	team := &models.Team{Name: name}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Teams().Create(ctx, team); err != nil {
			return storeError(err, nil, "create team")
		}
		if input.ManagerID != nil {
			if err := assignManager(ctx, tx, team.ID, *input.ManagerID); err != nil {
				return err
			}
		}
		return addMembers(ctx, tx, team.ID, input.MemberIDs, input.ManagerID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("team created", zap.Uint64("team_id", team.ID), zap.Uint64("actor_id", p.UserID))
	return s.loadTeam(ctx, team.ID, "Manager", "Members.User")
}

// UpdateTeamInput is a partial team update. Manager may be explicitly null
// to leave the team without a manager. Members, when set, is the complete
// list of members besides the manager.
type UpdateTeamInput struct {
	Name      *string
	Manager   optional.Value[uint64]
	MemberIDs *[]uint64
}

// UpdateTeam applies input as a whole or not at all.
func (s *TeamService) UpdateTeam(ctx context.Context, p authz.Principal, teamID uint64, input UpdateTeamInput) (*models.Team, error) {
	if err := authz.Authorize(p, authz.ManageTeam, authz.Target{}); err != nil {
		return nil, err
	}
	var v validation.Collector
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		input.Name = &trimmed
		v.TeamName("name", trimmed)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		team, err := tx.Teams().FindByID(ctx, teamID)
		if err != nil {
			return storeError(err, ErrTeamNotFound, "find team")
		}

		if input.Name != nil && *input.Name != team.Name {
			if err := tx.Teams().Rename(ctx, teamID, *input.Name); err != nil {
				return storeError(err, nil, "rename team")
			}
		}

		managerID := team.ManagerID
		if input.Manager.Set {
			newManager := input.Manager.Ptr()
			if !sameID(team.ManagerID, newManager) {
				if err := replaceManager(ctx, tx, team, newManager); err != nil {
					return err
				}
			}
			managerID = newManager
		}

		if input.MemberIDs != nil {
			return setMembers(ctx, tx, teamID, *input.MemberIDs, managerID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("team updated", zap.Uint64("team_id", teamID), zap.Uint64("actor_id", p.UserID))
	return s.loadTeam(ctx, teamID, "Manager", "Members.User")
}

// DeleteTeam deletes a team after unsetting the team of every member.
func (s *TeamService) DeleteTeam(ctx context.Context, p authz.Principal, teamID uint64) error {
	if err := authz.Authorize(p, authz.ManageTeam, authz.Target{}); err != nil {
		return err
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Teams().FindByID(ctx, teamID); err != nil {
			return storeError(err, ErrTeamNotFound, "find team")
		}
		if err := tx.Users().ClearTeam(ctx, teamID); err != nil {
			return storeError(err, nil, "clear member teams")
		}
		if err := tx.Teams().RemoveAllMembers(ctx, teamID); err != nil {
			return storeError(err, nil, "clear members")
		}
		if err := tx.Teams().Delete(ctx, teamID); err != nil {
			return storeError(err, nil, "delete team")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("team deleted", zap.Uint64("team_id", teamID), zap.Uint64("actor_id", p.UserID))
	return nil
}

// AddMember adds a user without a team to teamID.
func (s *TeamService) AddMember(ctx context.Context, p authz.Principal, teamID, userID uint64) (*models.Team, error) {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(p, authz.ManageMembers, authz.Target{Team: authz.TeamRefOf(team)}); err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		user, err := tx.Users().FindByID(ctx, userID)
		if err != nil {
			return storeError(err, ErrUserNotFound, "find user")
		}
		return join(ctx, tx, user, teamID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("member added", zap.Uint64("team_id", teamID), zap.Uint64("user_id", userID))
	return s.loadTeam(ctx, teamID, "Manager", "Members.User")
}

// RemoveMember removes a user from teamID. The manager cannot be removed this
// way; replace the manager through UpdateTeam instead.
func (s *TeamService) RemoveMember(ctx context.Context, p authz.Principal, teamID, userID uint64) (*models.Team, error) {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(p, authz.ManageMembers, authz.Target{Team: authz.TeamRefOf(team)}); err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		user, err := tx.Users().FindByID(ctx, userID)
		if err != nil {
			return storeError(err, ErrUserNotFound, "find user")
		}
		if !user.InTeam(teamID) {
			return ErrNotTeamMember
		}
		if team.IsManagedBy(userID) {
			return ErrCannotRemoveManager
		}
		return detach(ctx, tx, user)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("member removed", zap.Uint64("team_id", teamID), zap.Uint64("user_id", userID))
	return s.loadTeam(ctx, teamID, "Manager", "Members.User")
}

func (s *TeamService) loadTeam(ctx context.Context, teamID uint64, preload ...string) (*models.Team, error) {
	team, err := s.store.Teams().FindByID(ctx, teamID, preload...)
	if err != nil {
		return nil, storeError(err, ErrTeamNotFound, "find team")
	}
	return team, nil
}

// assignManager makes userID the manager of teamID, moving them there if
// they belong to another team.
func assignManager(ctx context.Context, tx repository.Store, teamID, userID uint64) error {
	user, err := tx.Users().FindByID(ctx, userID)
	if err != nil {
		return storeError(err, ErrUserNotFound, "find manager")
	}
	if user.Role != models.RoleManager {
		return ErrManagerRoleNeeded
	}
	return place(ctx, tx, user, models.RoleManager, &teamID)
}

// replaceManager detaches the current manager from team and installs
// newManager, which may be nil.
func replaceManager(ctx context.Context, tx repository.Store, team *models.Team, newManager *uint64) error {
	if team.ManagerID != nil {
		current, err := tx.Users().FindByID(ctx, *team.ManagerID)
		if err != nil {
			return storeError(err, nil, "find current manager")
		}
		if err := detach(ctx, tx, current); err != nil {
			return err
		}
	}
	if newManager == nil {
		return nil
	}
	return assignManager(ctx, tx, team.ID, *newManager)
}

// addMembers moves every user in ids into teamID. skip is left untouched.
func addMembers(ctx context.Context, tx repository.Store, teamID uint64, ids []uint64, skip *uint64) error {
	ids = uniqueIDs(ids, skip)
	if len(ids) == 0 {
		return nil
	}

	users, err := tx.Users().FindByIDs(ctx, ids)
	if err != nil {
		return storeError(err, nil, "find members")
	}
	if len(users) != len(ids) {
		return ErrUserNotFound
	}

	for i := range users {
		user := &users[i]
		if user.Role == models.RoleAdmin {
			return ErrAdminInTeam
		}
		if user.InTeam(teamID) {
			continue
		}
		if err := place(ctx, tx, user, user.Role, &teamID); err != nil {
			return err
		}
	}
	return nil
}

// setMembers makes ids the member list of teamID, keeping managerID.
// Members no longer listed are detached.
func setMembers(ctx context.Context, tx repository.Store, teamID uint64, ids []uint64, managerID *uint64) error {
	current, err := tx.Teams().ListMembers(ctx, teamID)
	if err != nil {
		return storeError(err, nil, "list members")
	}

	wanted := uniqueIDs(ids, managerID)
	for _, m := range current {
		if slices.Contains(wanted, m.UserID) || sameID(managerID, &m.UserID) {
			continue
		}
		user, err := tx.Users().FindByID(ctx, m.UserID)
		if err != nil {
			return storeError(err, nil, "find member")
		}
		if err := detach(ctx, tx, user); err != nil {
			return err
		}
	}

	return addMembers(ctx, tx, teamID, wanted, nil)
}

func uniqueIDs(ids []uint64, skip *uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if sameID(skip, &id) || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func sameID(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
