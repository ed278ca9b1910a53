// Package authz decides whether a principal may perform an action on a
// resource. Every function is pure; callers load the live state of the
// resources involved and pass it in.
package authz

import (
	"slices"

	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
)

// Principal is the authenticated caller with role and team resolved from the
// current user record.
type Principal struct {
	UserID uint64
	Role   models.Role
	TeamID *uint64
}

// FromUser builds a principal from a freshly loaded user.
func FromUser(u *models.User) Principal {
	return Principal{UserID: u.ID, Role: u.Role, TeamID: u.TeamID}
}

func (p Principal) IsAdmin() bool { return p.Role == models.RoleAdmin }

// InTeam reports whether teamID is non-nil and equal to the principal's team.
func (p Principal) InTeam(teamID *uint64) bool {
	return p.TeamID != nil && teamID != nil && *p.TeamID == *teamID
}

type Action string

const (
	ViewTask   Action = "task:view"
	CreateTask Action = "task:create"
	UpdateTask Action = "task:update"
	AssignTask Action = "task:assign"
	DeleteTask Action = "task:delete"

	CreateUser Action = "user:create"
	ListUsers  Action = "user:list"
	ViewUser   Action = "user:view"
	ManageUser Action = "user:manage"

	ListTeams     Action = "team:list"
	ViewTeam      Action = "team:view"
	ManageTeam    Action = "team:manage"
	ManageMembers Action = "team:members"
)

// Task field names used by the update gate.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldDueDate     = "dueDate"
	FieldPriority    = "priority"
	FieldStatus      = "status"
	FieldAssignedTo  = "assignedTo"
)

// assigneeFields are the task fields an assignee who is not the creator may change.
var assigneeFields = []string{FieldStatus}

// UserRef identifies a user together with the team they belong to right now.
type UserRef struct {
	ID     uint64
	TeamID *uint64
}

func UserRefOf(u *models.User) *UserRef {
	return &UserRef{ID: u.ID, TeamID: u.TeamID}
}

// TaskRef carries the parties of a task with their current teams.
type TaskRef struct {
	CreatedBy  UserRef
	AssignedTo UserRef
}

type TeamRef struct {
	ID        uint64
	ManagerID *uint64
}

func TeamRefOf(t *models.Team) *TeamRef {
	return &TeamRef{ID: t.ID, ManagerID: t.ManagerID}
}

// Target describes the resource an action applies to. Only the fields the
// action needs are set.
type Target struct {
	Task *TaskRef
	// Assignee is the candidate assignee for create, assign and update.
	Assignee *UserRef
	// Fields lists the task fields present in an update.
	Fields []string
	User   *UserRef
	Team   *TeamRef
}

var (
	ErrTaskAccessDenied     = apierrors.Forbidden("Access denied to this task")
	ErrAssignOutsideTeam    = apierrors.Forbidden("You can only assign tasks to users in your team")
	ErrAssignOnlySelf       = apierrors.Forbidden("Users can only assign tasks to themselves")
	ErrAssigneeStatusOnly   = apierrors.Forbidden("Assignees can only update the task status")
	ErrUsersCannotReassign  = apierrors.Forbidden("Users cannot reassign tasks")
	ErrOnlyCreatorDeletes   = apierrors.Forbidden("Only the task creator can delete this task")
	ErrInsufficientRole     = apierrors.Forbidden("Insufficient permissions")
	ErrUserOutsideTeam      = apierrors.Forbidden("You can only access users in your team")
	ErrTeamAccessDenied     = apierrors.Forbidden("Access denied to this team")
	ErrNotTeamManager       = apierrors.Forbidden("Only the team manager can manage members")
	ErrManagerAlreadyAssign = apierrors.Conflict("User is already managing another team")
	ErrTeamHasManager       = apierrors.Conflict("Team already has a manager")
)

// Authorize returns nil when p may perform action on target, and an
// authorization error otherwise.
func Authorize(p Principal, action Action, target Target) error {
	if p.IsAdmin() {
		return nil
	}

	switch action {
	case ViewTask:
		return canViewTask(p, target.Task)
	case CreateTask:
		return canCreateTask(p, target.Assignee)
	case UpdateTask:
		return canUpdateTask(p, target)
	case AssignTask:
		return canAssignTask(p, target)
	case DeleteTask:
		return canDeleteTask(p, target.Task)
	case CreateUser, ListUsers:
		if p.Role == models.RoleManager {
			return nil
		}
		return ErrInsufficientRole
	case ViewUser:
		return canViewUser(p, target.User)
	case ViewTeam:
		if target.Team != nil && p.InTeam(&target.Team.ID) {
			return nil
		}
		return ErrTeamAccessDenied
	case ManageMembers:
		if p.Role == models.RoleManager && target.Team != nil && p.InTeam(&target.Team.ID) &&
			target.Team.ManagerID != nil && *target.Team.ManagerID == p.UserID {
			return nil
		}
		if p.Role == models.RoleManager {
			return ErrNotTeamManager
		}
		return ErrInsufficientRole
	}

	// ListTeams, ManageTeam, ManageUser and unknown actions are Admin only.
	return ErrInsufficientRole
}

func canViewTask(p Principal, task *TaskRef) error {
	if task == nil {
		return ErrTaskAccessDenied
	}
	if task.CreatedBy.ID == p.UserID || task.AssignedTo.ID == p.UserID {
		return nil
	}
	if p.Role == models.RoleManager && (p.InTeam(task.CreatedBy.TeamID) || p.InTeam(task.AssignedTo.TeamID)) {
		return nil
	}
	return ErrTaskAccessDenied
}

func canCreateTask(p Principal, assignee *UserRef) error {
	switch p.Role {
	case models.RoleManager:
		return nil
	case models.RoleUser:
		if assignee == nil || assignee.ID == p.UserID {
			return nil
		}
		return ErrAssignOnlySelf
	}
	return ErrInsufficientRole
}

func canUpdateTask(p Principal, target Target) error {
	if err := canViewTask(p, target.Task); err != nil {
		return err
	}

	switch p.Role {
	case models.RoleManager:
		if slices.Contains(target.Fields, FieldAssignedTo) {
			return requireTeamAssignee(p, target.Assignee)
		}
		return nil
	case models.RoleUser:
		if target.Task.CreatedBy.ID == p.UserID {
			if slices.Contains(target.Fields, FieldAssignedTo) {
				return requireSelfAssignee(p, target.Task, target.Assignee)
			}
			return nil
		}
		for _, f := range target.Fields {
			if !slices.Contains(assigneeFields, f) {
				return ErrAssigneeStatusOnly
			}
		}
		return nil
	}
	return ErrInsufficientRole
}

func canAssignTask(p Principal, target Target) error {
	if p.Role != models.RoleManager {
		return ErrUsersCannotReassign
	}
	if err := canViewTask(p, target.Task); err != nil {
		return err
	}
	return requireTeamAssignee(p, target.Assignee)
}

func canDeleteTask(p Principal, task *TaskRef) error {
	if err := canViewTask(p, task); err != nil {
		return err
	}
	if p.Role == models.RoleManager || task.CreatedBy.ID == p.UserID {
		return nil
	}
	return ErrOnlyCreatorDeletes
}

func canViewUser(p Principal, user *UserRef) error {
	if p.Role != models.RoleManager {
		return ErrInsufficientRole
	}
	if user != nil && (user.ID == p.UserID || p.InTeam(user.TeamID)) {
		return nil
	}
	return ErrUserOutsideTeam
}

// requireSelfAssignee lets a User keep the current assignee or take the
// task themselves.
func requireSelfAssignee(p Principal, task *TaskRef, assignee *UserRef) error {
	if assignee != nil && (assignee.ID == p.UserID || assignee.ID == task.AssignedTo.ID) {
		return nil
	}
	return ErrAssignOnlySelf
}

func requireTeamAssignee(p Principal, assignee *UserRef) error {
	if assignee != nil && p.InTeam(assignee.TeamID) {
		return nil
	}
	return ErrAssignOutsideTeam
}

// Scope restricts a listing. All means no restriction; otherwise rows are
// limited to TeamID when set, or to UserID alone.
type Scope struct {
	All    bool
	TeamID *uint64
	UserID uint64
}

// TaskVisibility builds the filter applied to task listings and aggregates.
// Managers see tasks whose creator or assignee is currently in their team;
// users, and managers without a team, see tasks they created or are assigned.
func TaskVisibility(p Principal) Scope {
	switch {
	case p.IsAdmin():
		return Scope{All: true}
	case p.Role == models.RoleManager && p.TeamID != nil:
		return Scope{TeamID: p.TeamID, UserID: p.UserID}
	default:
		return Scope{UserID: p.UserID}
	}
}

// UserVisibility builds the filter applied to user listings.
func UserVisibility(p Principal) Scope {
	if p.IsAdmin() {
		return Scope{All: true}
	}
	return Scope{TeamID: p.TeamID, UserID: p.UserID}
}

// NewUserScope forces the role and team of a user created by a manager.
func NewUserScope(p Principal, role models.Role, teamID *uint64) (models.Role, *uint64) {
	if p.IsAdmin() {
		return role, teamID
	}
	return models.RoleUser, p.TeamID
}

// CheckManagerSlot verifies that candidate may become manager of team.
// managed is the team candidate currently manages, or nil.
func CheckManagerSlot(candidate uint64, team *TeamRef, managed *TeamRef) error {
	if managed != nil && managed.ID != team.ID {
		return ErrManagerAlreadyAssign
	}
	if team.ManagerID != nil && *team.ManagerID != candidate {
		return ErrTeamHasManager
	}
	return nil
}
