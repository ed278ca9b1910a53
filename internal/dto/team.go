package dto

import (
	"time"

	"github.com/yukikurage/team-task-api/internal/models"
)

// TeamSummaryDTO is the id and name of a team
type TeamSummaryDTO struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// TeamDTO represents a team with its manager and members
type TeamDTO struct {
	ID        uint64       `json:"id"`
	Name      string       `json:"name"`
	Manager   *UserRefDTO  `json:"manager"`
	Members   []UserRefDTO `json:"members"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// MemberDTO is one entry of a team's member list
type MemberDTO struct {
	UserRefDTO
	JoinedAt time.Time `json:"joinedAt"`
}

// ToTeamDTO converts a Team model with its manager and members loaded
func ToTeamDTO(team models.Team) TeamDTO {
	out := TeamDTO{
		ID:        team.ID,
		Name:      team.Name,
		Members:   make([]UserRefDTO, 0, len(team.Members)),
		CreatedAt: team.CreatedAt,
		UpdatedAt: team.UpdatedAt,
	}
	if team.ManagerID != nil {
		ref := UserRefDTO{ID: *team.ManagerID}
		if team.Manager != nil {
			ref = ToUserRefDTO(*team.ManagerID, *team.Manager)
		}
		out.Manager = &ref
	}
	for _, m := range team.Members {
		out.Members = append(out.Members, ToUserRefDTO(m.UserID, m.User))
	}
	return out
}

// ToTeamDTOs converts a slice of teams
func ToTeamDTOs(teams []models.Team) []TeamDTO {
	out := make([]TeamDTO, 0, len(teams))
	for _, t := range teams {
		out = append(out, ToTeamDTO(t))
	}
	return out
}

// ToTeamSummaries converts teams to their id and name
func ToTeamSummaries(teams []models.Team) []TeamSummaryDTO {
	out := make([]TeamSummaryDTO, 0, len(teams))
	for _, t := range teams {
		out = append(out, TeamSummaryDTO{ID: t.ID, Name: t.Name})
	}
	return out
}

// ToMemberDTOs converts member entries with their users loaded
func ToMemberDTOs(members []models.TeamMember) []MemberDTO {
	out := make([]MemberDTO, 0, len(members))
	for _, m := range members {
		out = append(out, MemberDTO{
			UserRefDTO: ToUserRefDTO(m.UserID, m.User),
			JoinedAt:   m.JoinedAt,
		})
	}
	return out
}
