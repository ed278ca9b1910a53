package services

import (
	"context"
	"fmt"

	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
)

// Violation describes one broken user/team reference.
type Violation struct {
	UserID  uint64
	TeamID  uint64
	Problem string
}

func (v Violation) String() string {
	return fmt.Sprintf("user %d / team %d: %s", v.UserID, v.TeamID, v.Problem)
}

// ConsistencyChecker reports users and teams whose references disagree.
type ConsistencyChecker struct {
	store repository.Store
}

func NewConsistencyChecker(store repository.Store) *ConsistencyChecker {
	return &ConsistencyChecker{store: store}
}

// Verify scans every user and team. An empty result means the team
// references, member lists and manager slots all agree.
func (c *ConsistencyChecker) Verify(ctx context.Context) ([]Violation, error) {
	users, err := c.store.Users().All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	teams, err := c.store.Teams().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load teams: %w", err)
	}

	byID := make(map[uint64]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	listedIn := make(map[uint64]uint64)
	teamIDs := make(map[uint64]bool, len(teams))

	var out []Violation
	for _, t := range teams {
		teamIDs[t.ID] = true
		for _, m := range t.Members {
			listedIn[m.UserID] = t.ID
			u, ok := byID[m.UserID]
			switch {
			case !ok:
				out = append(out, Violation{m.UserID, t.ID, "member does not exist"})
			case !u.InTeam(t.ID):
				out = append(out, Violation{m.UserID, t.ID, "member does not reference the team"})
			}
		}
		if t.ManagerID != nil {
			u, ok := byID[*t.ManagerID]
			switch {
			case !ok:
				out = append(out, Violation{*t.ManagerID, t.ID, "manager does not exist"})
			case u.Role != models.RoleManager:
				out = append(out, Violation{u.ID, t.ID, "manager does not have the Manager role"})
			case !u.InTeam(t.ID):
				out = append(out, Violation{u.ID, t.ID, "manager is not a member"})
			}
		}
	}

	for _, u := range users {
		if u.TeamID == nil {
			continue
		}
		switch {
		case !teamIDs[*u.TeamID]:
			out = append(out, Violation{u.ID, *u.TeamID, "team does not exist"})
		case listedIn[u.ID] != *u.TeamID:
			out = append(out, Violation{u.ID, *u.TeamID, "user missing from member list"})
		}
	}
	return out, nil
}
