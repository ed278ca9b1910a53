package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yukikurage/team-task-api/internal/authz"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
)

// Membership changes keep users.team_id and team_members in step, and make a
// Manager-role member the manager of their team. Every function runs inside
// the caller's transaction, so a failed check leaves nothing behind.

// place sets the role and team of user. It validates the target team and the
// manager slot before writing anything. A user who already manages another
// team is rejected.
func place(ctx context.Context, tx repository.Store, user *models.User, role models.Role, teamID *uint64) error {
	return placeUser(ctx, tx, user, role, teamID, false)
}

// move is place for an explicit change of the user's own team: the team they
// currently manage is released rather than treated as a conflict.
func move(ctx context.Context, tx repository.Store, user *models.User, role models.Role, teamID *uint64) error {
	return placeUser(ctx, tx, user, role, teamID, true)
}

func placeUser(ctx context.Context, tx repository.Store, user *models.User, role models.Role, teamID *uint64, release bool) error {
	if role == models.RoleAdmin {
		teamID = nil
	} else if teamID == nil {
		return ErrTeamRequired
	}

	var target *models.Team
	if teamID != nil {
		t, err := tx.Teams().FindByID(ctx, *teamID)
		if err != nil {
			return storeError(err, ErrTeamNotFound, "load team")
		}
		target = t
	}

	managed, err := managedTeam(ctx, tx, user.ID)
	if err != nil {
		return err
	}

	becomesManager := role == models.RoleManager && target != nil
	if becomesManager {
		var managedRef *authz.TeamRef
		if managed != nil && !release {
			managedRef = authz.TeamRefOf(managed)
		}
		if err := authz.CheckManagerSlot(user.ID, authz.TeamRefOf(target), managedRef); err != nil {
			return err
		}
	}

	// Step down from any team the user will no longer manage.
	if managed != nil && !(becomesManager && managed.ID == target.ID) {
		if err := tx.Teams().ClearManager(ctx, managed.ID); err != nil {
			return storeError(err, nil, "clear team manager")
		}
	}

	moving := user.TeamID == nil || teamID == nil || *user.TeamID != *teamID
	if moving {
		if err := tx.Teams().RemoveMember(ctx, user.ID); err != nil {
			return storeError(err, nil, "remove team member")
		}
		if target != nil {
			if err := tx.Teams().AddMember(ctx, &models.TeamMember{
				TeamID:   target.ID,
				UserID:   user.ID,
				JoinedAt: time.Now(),
			}); err != nil {
				return storeError(err, nil, "add team member")
			}
		}
	}

	if becomesManager && !target.IsManagedBy(user.ID) {
		claimed, err := tx.Teams().ClaimManager(ctx, target.ID, user.ID)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return authz.ErrManagerAlreadyAssign
		}
		if err != nil {
			return storeError(err, nil, "claim team manager")
		}
		if !claimed {
			return authz.ErrTeamHasManager
		}
	}

	if err := tx.Users().UpdateRoleAndTeam(ctx, user.ID, role, teamID); err != nil {
		return storeError(err, nil, "update user")
	}
	user.Role = role
	user.TeamID = teamID
	return nil
}

// detach removes user from their team, stepping down as manager if needed.
// The role is kept.
func detach(ctx context.Context, tx repository.Store, user *models.User) error {
	managed, err := managedTeam(ctx, tx, user.ID)
	if err != nil {
		return err
	}
	if managed != nil {
		if err := tx.Teams().ClearManager(ctx, managed.ID); err != nil {
			return storeError(err, nil, "clear team manager")
		}
	}
	if err := tx.Teams().RemoveMember(ctx, user.ID); err != nil {
		return storeError(err, nil, "remove team member")
	}
	if err := tx.Users().UpdateRoleAndTeam(ctx, user.ID, user.Role, nil); err != nil {
		return storeError(err, nil, "update user")
	}
	user.TeamID = nil
	return nil
}

// join adds a user without a team to team, keeping their role.
func join(ctx context.Context, tx repository.Store, user *models.User, teamID uint64) error {
	switch {
	case user.Role == models.RoleAdmin:
		return ErrAdminInTeam
	case user.InTeam(teamID):
		return ErrAlreadyTeamMember
	case user.TeamID != nil:
		return ErrInAnotherTeam
	}
	return place(ctx, tx, user, user.Role, &teamID)
}

func managedTeam(ctx context.Context, tx repository.Store, userID uint64) (*models.Team, error) {
	team, err := tx.Teams().FindManagedBy(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storeError(err, nil, "find managed team")
	}
	return team, nil
}
