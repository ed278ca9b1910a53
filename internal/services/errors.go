package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	apierrors "github.com/yukikurage/team-task-api/internal/errors"
)

var (
	ErrInvalidCredentials  = apierrors.Authentication(apierrors.ErrCodeInvalidCredentials, "Invalid credentials")
	ErrTokenMissing        = apierrors.Authentication(apierrors.ErrCodeTokenMissing, "Access token required")
	ErrTokenExpired        = apierrors.Authentication(apierrors.ErrCodeTokenExpired, "Token expired")
	ErrTokenInvalid        = apierrors.Authentication(apierrors.ErrCodeTokenInvalid, "Invalid token")
	ErrRefreshMissing      = apierrors.Authentication(apierrors.ErrCodeTokenMissing, "Refresh token required")
	ErrRefreshExpired      = apierrors.Authentication(apierrors.ErrCodeTokenExpired, "Refresh token expired")
	ErrRefreshInvalid      = apierrors.Authentication(apierrors.ErrCodeTokenInvalid, "Invalid refresh token")
	ErrWrongPassword       = apierrors.Validation("Current password is incorrect")
	ErrAdminSignupDisabled = apierrors.Forbidden("Registration as Admin is not allowed")

	ErrUserNotFound        = apierrors.NotFound("User not found")
	ErrAssigneeNotFound    = apierrors.NotFound("Assigned user not found")
	ErrTeamNotFound        = apierrors.NotFound("Team not found")
	ErrTaskNotFound        = apierrors.NotFound("Task not found")
	ErrNoTeamAssigned      = apierrors.NotFound("You are not assigned to any team")
	ErrNotTeamMember       = apierrors.NotFound("User is not a member of this team")
	ErrUsernameTaken       = apierrors.Conflict("Username already taken")
	ErrEmailTaken          = apierrors.Conflict("Email already registered")
	ErrDuplicate           = apierrors.Conflict("Resource already exists")
	ErrAlreadyTeamMember   = apierrors.Conflict("User is already a member of this team")
	ErrInAnotherTeam       = apierrors.Conflict("User is already a member of another team")
	ErrCannotDeleteSelf    = apierrors.Forbidden("You cannot delete your own account")
	ErrCannotRemoveManager = apierrors.Validation("Cannot remove the team manager from the team")
	ErrTeamRequired        = apierrors.Validation("Validation failed", apierrors.FieldError{Field: "team", Message: "Team is required for Manager and User roles"})
	ErrManagerRoleNeeded   = apierrors.Validation("Validation failed", apierrors.FieldError{Field: "manager", Message: "Selected user must have the Manager role"})
	ErrAdminInTeam         = apierrors.Validation("Admins cannot be team members")
	ErrManagerWithoutTeam  = apierrors.Validation("You are not assigned to a team")
)

// storeError translates storage failures into application errors. A record
// that does not exist maps to notFound; unique violations map to Conflict.
func storeError(err error, notFound error, op string) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	case apierrors.KindOf(err) != apierrors.KindInternal:
		return err
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
