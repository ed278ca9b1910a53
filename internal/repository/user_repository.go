package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/yukikurage/team-task-api/internal/authz"
	"github.com/yukikurage/team-task-api/internal/database"
	"github.com/yukikurage/team-task-api/internal/models"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit("Team", "Sessions").Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Team").First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername finds a user by username
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIdentifier finds a user by username or, when identifier looks like
// an address, by email
func (r *GormUserRepository) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	if strings.Contains(identifier, "@") {
		return r.FindByEmail(ctx, strings.ToLower(identifier))
	}
	return r.FindByUsername(ctx, identifier)
}

// FindByIDs returns the users among ids that exist
func (r *GormUserRepository) FindByIDs(ctx context.Context, ids []uint64) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ResolveTeamOf returns the user's current team
func (r *GormUserRepository) ResolveTeamOf(ctx context.Context, id uint64) (*uint64, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Select("id", "team_id").First(&user, id).Error; err != nil {
		return nil, err
	}
	return user.TeamID, nil
}

// List retrieves users with filtering and pagination
func (r *GormUserRepository) List(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{}).
		Scopes(userScope(filter.Scope), database.Search(filter.Search, "users.username", "users.email"))

	if filter.Role != nil {
		query = query.Where("users.role = ?", *filter.Role)
	}
	if filter.TeamID != nil {
		query = query.Where("users.team_id = ?", *filter.TeamID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := query.Preload("Team").
		Order("users.created_at DESC").Order("users.id DESC").
		Scopes(database.Paginate(filter.Pagination)).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// Stats counts users by role and team membership within scope
func (r *GormUserRepository) Stats(ctx context.Context, scope authz.Scope) (UserStats, error) {
	var stats UserStats
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.User{}).Scopes(userScope(scope))
	}

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalUsers, base()},
		{&stats.AdminCount, base().Where("role = ?", models.RoleAdmin)},
		{&stats.ManagerCount, base().Where("role = ?", models.RoleManager)},
		{&stats.UserCount, base().Where("role = ?", models.RoleUser)},
		{&stats.UsersWithTeams, base().Where("team_id IS NOT NULL")},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return UserStats{}, err
		}
	}
	stats.UsersWithoutTeams = stats.TotalUsers - stats.UsersWithTeams
	return stats, nil
}

// UpdateProfile saves username, email and password hash
func (r *GormUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Model(&models.User{ID: user.ID}).
		Select("username", "email", "password_hash").
		Updates(map[string]interface{}{
			"username":      user.Username,
			"email":         user.Email,
			"password_hash": user.PasswordHash,
		}).Error
}

// UpdateRoleAndTeam saves role and team reference
func (r *GormUserRepository) UpdateRoleAndTeam(ctx context.Context, id uint64, role models.Role, teamID *uint64) error {
	return r.db.WithContext(ctx).Model(&models.User{ID: id}).
		Select("role", "team_id").
		Updates(map[string]interface{}{
			"role":    role,
			"team_id": teamID,
		}).Error
}

// ClearTeam unsets the team reference of every user in teamID
func (r *GormUserRepository) ClearTeam(ctx context.Context, teamID uint64) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("team_id = ?", teamID).
		Update("team_id", nil).Error
}

// All returns every user
func (r *GormUserRepository) All(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error
	return users, err
}

// CountByRole counts users with the given role
func (r *GormUserRepository) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}

// Delete removes a user and their sessions
func (r *GormUserRepository) Delete(ctx context.Context, id uint64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("user_id = ?", id).Delete(&models.RefreshSession{}).Error; err != nil {
		return err
	}
	return db.Delete(&models.User{}, id).Error
}
