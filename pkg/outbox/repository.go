package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
)

// lastErrorLimit caps stored error text; gateway errors can embed whole
// response bodies.
const lastErrorLimit = 1024

var errNoTx = errors.New("transaction required")

// Repository owns outbox_events and outbox_dlq. Every write except the
// retention purge runs inside the caller's transaction.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errNoTx
	}
	return tx.Create(&event).Error
}

// Claim locks the oldest rows still owed a publish attempt. On postgres,
// concurrent publishers skip rows another transaction holds.
func (r *Repository) Claim(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errNoTx
	}
	q := tx.Where("published_at IS NULL AND attempt_count < ?", maxAttempts).
		Order("created_at, id").
		Limit(limit)
	if tx.Dialector != nil && tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	var pending []models.OutboxEvent
	if err := q.Find(&pending).Error; err != nil {
		return nil, err
	}
	return pending, nil
}

func (r *Repository) Published(tx *gorm.DB, id uuid.UUID) error {
	return update(tx, id, map[string]any{
		"published_at": time.Now().UTC(),
		"last_error":   nil,
	})
}

// Failed records a retryable publish failure.
func (r *Repository) Failed(tx *gorm.DB, id uuid.UUID, cause error) error {
	return update(tx, id, map[string]any{
		"attempt_count": gorm.Expr("attempt_count + 1"),
		"last_error":    clip(cause),
	})
}

// DeadLetter copies the row into outbox_dlq and pins its attempt count at
// maxAttempts so Claim never returns it again.
func (r *Repository) DeadLetter(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, maxAttempts int) error {
	if tx == nil {
		return errNoTx
	}
	entry := models.DeadLetterOf(event, reason, cause)
	if entry.ErrorMessage != nil {
		entry.ErrorMessage = clip(cause)
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}
	return update(tx, event.ID, map[string]any{
		"attempt_count": maxAttempts,
		"last_error":    clip(cause),
	})
}

// DeletePublishedBefore removes up to limit published rows older than cutoff
// and reports how many went. Unpublished rows are never touched.
func (r *Repository) DeletePublishedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	db := r.db.WithContext(ctx)
	expired := db.Model(&models.OutboxEvent{}).
		Select("id").
		Where("published_at IS NOT NULL AND published_at < ?", cutoff).
		Order("published_at").
		Limit(limit)
	result := db.Where("id IN (?)", expired).Delete(&models.OutboxEvent{})
	return result.RowsAffected, result.Error
}

func update(tx *gorm.DB, id uuid.UUID, columns map[string]any) error {
	if tx == nil {
		return errNoTx
	}
	return tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(columns).Error
}

func clip(err error) *string {
	if err == nil {
		return nil
	}
	text := err.Error()
	if len(text) > lastErrorLimit {
		text = text[:lastErrorLimit]
	}
	return &text
}
