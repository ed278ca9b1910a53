package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/yukikurage/team-task-api/internal/database"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/utils"
)

// GormTeamRepository is a GORM implementation of TeamRepository
type GormTeamRepository struct {
	db *gorm.DB
}

// NewTeamRepository creates a new TeamRepository
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &GormTeamRepository{db: db}
}

// Create creates a new team
func (r *GormTeamRepository) Create(ctx context.Context, team *models.Team) error {
	return r.db.WithContext(ctx).Omit("Manager", "Members").Create(team).Error
}

// FindByID finds a team by ID with optional preloading
func (r *GormTeamRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.Team, error) {
	var team models.Team
	query := r.db.WithContext(ctx)

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&team, id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

// FindManagedBy finds the team managed by userID
func (r *GormTeamRepository) FindManagedBy(ctx context.Context, userID uint64) (*models.Team, error) {
	var team models.Team
	if err := r.db.WithContext(ctx).Where("manager_id = ?", userID).First(&team).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

// List retrieves teams with search and pagination
func (r *GormTeamRepository) List(ctx context.Context, search string, params utils.PaginationParams) ([]models.Team, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Team{}).Scopes(database.Search(search, "teams.name"))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var teams []models.Team
	if err := query.Preload("Manager").Preload("Members.User").
		Order("teams.created_at DESC").Order("teams.id DESC").
		Scopes(database.Paginate(params)).
		Find(&teams).Error; err != nil {
		return nil, 0, err
	}
	return teams, total, nil
}

// ListRecent returns the newest teams
func (r *GormTeamRepository) ListRecent(ctx context.Context, limit int) ([]models.Team, error) {
	var teams []models.Team
	err := r.db.WithContext(ctx).Select("id", "name", "created_at").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&teams).Error
	return teams, err
}

// Rename updates the team name
func (r *GormTeamRepository) Rename(ctx context.Context, id uint64, name string) error {
	return r.db.WithContext(ctx).Model(&models.Team{ID: id}).Update("name", name).Error
}

// ClaimManager sets managerID as manager only while the team has none.
// The conditional update makes concurrent claims on one team exclusive.
func (r *GormTeamRepository) ClaimManager(ctx context.Context, id uint64, managerID uint64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Team{}).
		Where("id = ? AND manager_id IS NULL", id).
		Update("manager_id", managerID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ClearManager unsets the manager reference
func (r *GormTeamRepository) ClearManager(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&models.Team{ID: id}).Update("manager_id", nil).Error
}

// Delete deletes a team
func (r *GormTeamRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Team{}, id).Error
}

// AddMember adds a member to a team
func (r *GormTeamRepository) AddMember(ctx context.Context, member *models.TeamMember) error {
	return r.db.WithContext(ctx).Omit("User").Create(member).Error
}

// RemoveMember removes a user from whichever team lists them
func (r *GormTeamRepository) RemoveMember(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.TeamMember{}).Error
}

// RemoveAllMembers clears the member list of a team
func (r *GormTeamRepository) RemoveAllMembers(ctx context.Context, teamID uint64) error {
	return r.db.WithContext(ctx).Where("team_id = ?", teamID).Delete(&models.TeamMember{}).Error
}

// FindMembership finds the member entry for a user
func (r *GormTeamRepository) FindMembership(ctx context.Context, userID uint64) (*models.TeamMember, error) {
	var member models.TeamMember
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers lists the members of a team with their users
func (r *GormTeamRepository) ListMembers(ctx context.Context, teamID uint64) ([]models.TeamMember, error) {
	var members []models.TeamMember
	err := r.db.WithContext(ctx).Preload("User").
		Where("team_id = ?", teamID).
		Order("joined_at ASC").Order("user_id ASC").
		Find(&members).Error
	return members, err
}

// ListAll returns every team with its member entries
func (r *GormTeamRepository) ListAll(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	err := r.db.WithContext(ctx).Preload("Members").Order("id ASC").Find(&teams).Error
	return teams, err
}
