package repository

import (
	"context"
	"time"

	"github.com/yukikurage/team-task-api/internal/authz"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/utils"
)

// Store groups the repositories and runs units of work atomically.
type Store interface {
	Users() UserRepository
	Teams() TeamRepository
	Tasks() TaskRepository
	Sessions() SessionRepository

	// Transaction runs fn against a store bound to a single database
	// transaction. Returning an error rolls every write back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByIdentifier finds a user by username or email
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)

	// FindByIDs returns the users among ids that exist
	FindByIDs(ctx context.Context, ids []uint64) ([]models.User, error)

	// ResolveTeamOf returns the user's current team
	ResolveTeamOf(ctx context.Context, id uint64) (*uint64, error)

	// List retrieves users with filtering and pagination
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)

	// Stats counts users by role and team membership within scope
	Stats(ctx context.Context, scope authz.Scope) (UserStats, error)

	// UpdateProfile saves username, email and password hash
	UpdateProfile(ctx context.Context, user *models.User) error

	// UpdateRoleAndTeam saves role and team reference
	UpdateRoleAndTeam(ctx context.Context, id uint64, role models.Role, teamID *uint64) error

	// ClearTeam unsets the team reference of every user in teamID
	ClearTeam(ctx context.Context, teamID uint64) error

	// All returns every user
	All(ctx context.Context) ([]models.User, error)

	// CountByRole counts users with the given role
	CountByRole(ctx context.Context, role models.Role) (int64, error)

	// Delete removes a user
	Delete(ctx context.Context, id uint64) error
}

// UserFilter holds filtering options for listing users
type UserFilter struct {
	Scope      authz.Scope
	Role       *models.Role
	TeamID     *uint64
	Search     string
	Pagination utils.PaginationParams
}

type UserStats struct {
	TotalUsers        int64 `json:"totalUsers"`
	AdminCount        int64 `json:"adminCount"`
	ManagerCount      int64 `json:"managerCount"`
	UserCount         int64 `json:"userCount"`
	UsersWithTeams    int64 `json:"usersWithTeams"`
	UsersWithoutTeams int64 `json:"usersWithoutTeams"`
}

// TeamRepository defines the interface for team data access
type TeamRepository interface {
	// Create creates a new team
	Create(ctx context.Context, team *models.Team) error

	// FindByID finds a team by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Team, error)

	// FindManagedBy finds the team managed by userID
	FindManagedBy(ctx context.Context, userID uint64) (*models.Team, error)

	// List retrieves teams with search and pagination
	List(ctx context.Context, search string, params utils.PaginationParams) ([]models.Team, int64, error)

	// ListRecent returns the newest teams
	ListRecent(ctx context.Context, limit int) ([]models.Team, error)

	// Rename updates the team name
	Rename(ctx context.Context, id uint64, name string) error

	// ClaimManager sets managerID as manager only while the team has none.
	// It reports false when another manager holds the slot.
	ClaimManager(ctx context.Context, id uint64, managerID uint64) (bool, error)

	// ClearManager unsets the manager reference
	ClearManager(ctx context.Context, id uint64) error

	// Delete deletes a team
	Delete(ctx context.Context, id uint64) error

	// AddMember adds a member to a team
	AddMember(ctx context.Context, member *models.TeamMember) error

	// RemoveMember removes a user from whichever team lists them
	RemoveMember(ctx context.Context, userID uint64) error

	// RemoveAllMembers clears the member list of a team
	RemoveAllMembers(ctx context.Context, teamID uint64) error

	// FindMembership finds the member entry for a user
	FindMembership(ctx context.Context, userID uint64) (*models.TeamMember, error)

	// ListMembers lists the members of a team with their users
	ListMembers(ctx context.Context, teamID uint64) ([]models.TeamMember, error)

	// ListAll returns every team with its member entries
	ListAll(ctx context.Context) ([]models.Team, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID with creator and assignee loaded
	FindByID(ctx context.Context, id uint64) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Stats aggregates tasks visible within scope
	Stats(ctx context.Context, scope authz.Scope, now time.Time) (TaskStats, error)

	// Update saves task fields
	Update(ctx context.Context, task *models.Task) error

	// Delete soft deletes a task
	Delete(ctx context.Context, id uint64) error
}

// TaskFilter holds filtering options for listing tasks. Scope is always
// applied before pagination.
type TaskFilter struct {
	Scope        authz.Scope
	Status       *models.TaskStatus
	Priority     *models.TaskPriority
	CreatedByID  *uint64
	AssignedToID *uint64
	Search       string
	SortBy       string
	SortDesc     bool
	Pagination   utils.PaginationParams
}

type TaskStats struct {
	TotalTasks        int64 `json:"totalTasks"`
	PendingTasks      int64 `json:"pendingTasks"`
	InProgressTasks   int64 `json:"inProgressTasks"`
	CompletedTasks    int64 `json:"completedTasks"`
	HighPriorityTasks int64 `json:"highPriorityTasks"`
	OverdueTasks      int64 `json:"overdueTasks"`
}

// SessionRepository stores the refresh sessions of users.
type SessionRepository interface {
	// Add persists a new session
	Add(ctx context.Context, session *models.RefreshSession) error

	// Exists reports whether userID holds a session for tokenHash
	Exists(ctx context.Context, userID uint64, tokenHash string) (bool, error)

	// ListByUser returns the sessions of a user, oldest first
	ListByUser(ctx context.Context, userID uint64) ([]models.RefreshSession, error)

	// Delete removes one session; absent sessions are ignored
	Delete(ctx context.Context, userID uint64, tokenHash string) error

	// DeleteAll removes every session of a user
	DeleteAll(ctx context.Context, userID uint64) error

	// DeleteIssuedBefore removes sessions of a user issued before cutoff
	DeleteIssuedBefore(ctx context.Context, userID uint64, cutoff time.Time) error

	// DeleteByIDs removes the given sessions
	DeleteByIDs(ctx context.Context, ids []uint64) error
}
