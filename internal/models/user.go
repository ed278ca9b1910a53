package models

import (
	"time"
)

type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleManager Role = "Manager"
	RoleUser    Role = "User"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// RequiresTeam reports whether users of this role must belong to a team.
func (r Role) RequiresTeam() bool {
	return r == RoleManager || r == RoleUser
}

type User struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	Username     string    `gorm:"type:varchar(30);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Role         Role      `gorm:"type:varchar(20);not null;default:'User';index" json:"role"`
	TeamID       *uint64   `gorm:"index" json:"team_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Team     *Team            `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Sessions []RefreshSession `gorm:"foreignKey:UserID" json:"-"`
}

// InTeam reports whether the user currently belongs to team teamID.
func (u *User) InTeam(teamID uint64) bool {
	return u.TeamID != nil && *u.TeamID == teamID
}
