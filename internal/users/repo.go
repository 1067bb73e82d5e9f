package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
)

// Repository is the gorm-backed store for accounts. Lookups return
// gorm.ErrRecordNotFound unchanged so callers can map it to 404.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) users(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{})
}

func (r *Repository) first(ctx context.Context, column string, value any) (*models.User, error) {
	var user models.User
	err := r.users(ctx).Where(column+" = ?", value).Take(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create persists dto and returns the stored row with generated fields set.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.first(ctx, "phone_number", phone)
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email", email)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id", id)
}

// List returns accounts newest first. A nil role lists everyone.
func (r *Repository) List(ctx context.Context, role *enums.UserRole) ([]models.User, error) {
	q := r.users(ctx)
	if role != nil {
		q = q.Where("role = ?", *role)
	}
	var rows []models.User
	if err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.users(ctx).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}

// SetActive flips status and is_active together; the two columns never
// disagree for rows written by this service.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.users(ctx).Where("id = ?", id).Updates(map[string]any{
		"status":    active,
		"is_active": active,
	}).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error
}
