package dto

import (
	"time"

	"github.com/yukikurage/team-task-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        uint64          `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	Role      models.Role     `json:"role"`
	Team      *TeamSummaryDTO `json:"team"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// UserRefDTO is the short form of a user embedded in other resources
type UserRefDTO struct {
	ID       uint64      `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role,omitempty"`
}

// AuthDTO is returned by register and login
type AuthDTO struct {
	User        UserDTO   `json:"user"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// AccessTokenDTO is returned by refresh
type AccessTokenDTO struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ToUserDTO converts a User model to UserDTO. The team is included when it
// was loaded with the user.
func ToUserDTO(user models.User) UserDTO {
	out := UserDTO{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	if user.Team != nil && user.TeamID != nil {
		out.Team = &TeamSummaryDTO{ID: user.Team.ID, Name: user.Team.Name}
	} else if user.TeamID != nil {
		out.Team = &TeamSummaryDTO{ID: *user.TeamID}
	}
	return out
}

// ToUserDTOs converts a slice of users
func ToUserDTOs(users []models.User) []UserDTO {
	out := make([]UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, ToUserDTO(u))
	}
	return out
}

// ToUserRefDTO converts a user to its short form. A user that no longer
// exists keeps only its id.
func ToUserRefDTO(id uint64, user models.User) UserRefDTO {
	return UserRefDTO{
		ID:       id,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	}
}
