package repository

import (
	"gorm.io/gorm"

	"github.com/yukikurage/team-task-api/internal/authz"
	"github.com/yukikurage/team-task-api/internal/models"
)

// teamUsers selects the ids of users currently in teamID.
func teamUsers(db *gorm.DB, teamID uint64) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Model(&models.User{}).
		Select("id").
		Where("team_id = ?", teamID)
}

// taskScope restricts a task query to the rows visible within scope. Team
// membership is resolved in the same statement, so it reflects the current
// teams of the creator and assignee.
func taskScope(scope authz.Scope) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if scope.All {
			return db
		}
		if scope.TeamID != nil {
			members := teamUsers(db, *scope.TeamID)
			return db.Where("tasks.created_by_id IN (?) OR tasks.assigned_to_id IN (?)", members, members)
		}
		return db.Where("tasks.created_by_id = ? OR tasks.assigned_to_id = ?", scope.UserID, scope.UserID)
	}
}

// userScope restricts a user query to the rows visible within scope.
func userScope(scope authz.Scope) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if scope.All {
			return db
		}
		if scope.TeamID != nil {
			return db.Where("users.team_id = ?", *scope.TeamID)
		}
		return db.Where("users.id = ?", scope.UserID)
	}
}
