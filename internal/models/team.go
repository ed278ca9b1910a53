package models

import "time"

type Team struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	ManagerID *uint64   `gorm:"uniqueIndex" json:"manager_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Manager *User        `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
	Members []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
}

// IsManagedBy reports whether userID is the team's manager.
func (t *Team) IsManagedBy(userID uint64) bool {
	return t.ManagerID != nil && *t.ManagerID == userID
}

// TeamMember is one entry of a team's member list. UserID is the primary
// key, so a user can appear in at most one team.
type TeamMember struct {
	UserID   uint64    `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	TeamID   uint64    `gorm:"not null;index" json:"team_id"`
	JoinedAt time.Time `json:"joined_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
