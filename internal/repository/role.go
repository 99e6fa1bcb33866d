package repository

import (
	"context"

	"forum/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoleRepository manages role definitions. Assignments live on UserRepository.
type RoleRepository interface {
	List(ctx context.Context) ([]models.Role, error)
	Ensure(ctx context.Context, name string) (*models.Role, error)
}

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository returns a new RoleRepository implementation.
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) List(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := readDB(r.db).WithContext(ctx).Order("name ASC").Find(&roles).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return roles, nil
}

// Ensure returns the role named name, creating it if missing.
func (r *roleRepository) Ensure(ctx context.Context, name string) (*models.Role, error) {
	role, err := ensureRole(r.db.WithContext(ctx), name)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return role, nil
}

// ensureRole inserts the role if absent and reads it back, so concurrent
// callers racing on the unique name converge on the same row.
func ensureRole(db *gorm.DB, name string) (*models.Role, error) {
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&models.Role{Name: name}).Error; err != nil {
		return nil, err
	}
	var role models.Role
	if err := db.Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}
