package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/pagination"
)

// Repository stores notices. Every read and write is scoped to one
// recipient.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// feedQuery selects one page of a user's notices.
type feedQuery struct {
	userID     uuid.UUID
	cursor     *pagination.Cursor
	limit      int
	unreadOnly bool
}

func (r *Repository) inbox(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
}

// CreateMany inserts notices and silently skips (event_id, user_id) pairs
// already stored, so a redelivered event notifies once.
func (r *Repository) CreateMany(ctx context.Context, notices []models.Notification) error {
	if len(notices) == 0 {
		return nil
	}
	onDuplicate := clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
		DoNothing: true,
	}
	return r.db.WithContext(ctx).Clauses(onDuplicate).Create(&notices).Error
}

func (r *Repository) Feed(ctx context.Context, q feedQuery) ([]models.Notification, error) {
	tx := r.inbox(ctx, q.userID)
	if q.unreadOnly {
		tx = tx.Where("read_at IS NULL")
	}
	var rows []models.Notification
	err := pagination.Apply(tx, q.cursor, q.limit).Find(&rows).Error
	return rows, err
}

func (r *Repository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.inbox(ctx, userID).Where("read_at IS NULL").Count(&n).Error
	return n, err
}

// MarkRead stamps read_at once. It reports whether the notice exists for
// userID, so reading an already-read notice is still a success.
func (r *Repository) MarkRead(ctx context.Context, userID, id uuid.UUID, at time.Time) (bool, error) {
	res := r.inbox(ctx, userID).Where("id = ? AND read_at IS NULL", id).UpdateColumn("read_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	var n int64
	err := r.inbox(ctx, userID).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (r *Repository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	res := r.inbox(ctx, userID).Where("read_at IS NULL").UpdateColumn("read_at", at)
	return res.RowsAffected, res.Error
}
