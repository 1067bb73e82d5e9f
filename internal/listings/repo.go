package listings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/pagination"
)

// ListFilter narrows listing queries. Nil or empty fields do not filter.
type ListFilter struct {
	FarmerID *uuid.UUID
	BuyerID  *uuid.UUID
	Statuses []enums.SellStatus
}

// Repository reads and writes listing rows that have no purchase coupling.
// Writes that must stay in step with a purchase go through purchases.Repository.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, sell *models.Sell) error
	Find(ctx context.Context, id uuid.UUID) (*models.Sell, error)
	List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.Sell, error)
	Deliveries(ctx context.Context, filter ListFilter) ([]models.Sell, error)
	Overdue(ctx context.Context, before time.Time) ([]models.Sell, error)
	Delete(ctx context.Context, id uuid.UUID) error

	CreatePayment(ctx context.Context, payment *models.SellPayment) error
	ListPayments(ctx context.Context, sellID uuid.UUID) ([]models.SellPayment, error)
	CountPayments(ctx context.Context, sellID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed listing repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sell *models.Sell) error {
	return r.db.WithContext(ctx).Create(sell).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Sell, error) {
	var sell models.Sell
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sell).Error; err != nil {
		return nil, err
	}
	return &sell, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.Sell, error) {
	var rows []models.Sell
	query := applyFilter(r.db.WithContext(ctx).Model(&models.Sell{}), filter)
	if err := pagination.Apply(query, cursor, limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Deliveries returns listings with a delivery date, earliest first.
func (r *repository) Deliveries(ctx context.Context, filter ListFilter) ([]models.Sell, error) {
	var rows []models.Sell
	query := applyFilter(r.db.WithContext(ctx).Model(&models.Sell{}), filter).
		Where("delivery_date IS NOT NULL").
		Order("delivery_date ASC, id ASC")
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Overdue returns purchased listings whose delivery date falls before the cutoff.
func (r *repository) Overdue(ctx context.Context, before time.Time) ([]models.Sell, error) {
	var rows []models.Sell
	err := r.db.WithContext(ctx).
		Where("sell_status = ?", enums.SellStatusPurchased).
		Where("delivery_date IS NOT NULL AND delivery_date < ?", before).
		Order("delivery_date ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Sell{}).Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.SellPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) ListPayments(ctx context.Context, sellID uuid.UUID) ([]models.SellPayment, error) {
	var rows []models.SellPayment
	err := r.db.WithContext(ctx).
		Where("sell_id = ?", sellID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountPayments counts listing payments plus payments on the listing's purchase.
func (r *repository) CountPayments(ctx context.Context, sellID uuid.UUID) (int64, error) {
	var direct int64
	if err := r.db.WithContext(ctx).Model(&models.SellPayment{}).Where("sell_id = ?", sellID).Count(&direct).Error; err != nil {
		return 0, err
	}
	var viaPurchase int64
	err := r.db.WithContext(ctx).Model(&models.PurchasePayment{}).
		Joins("JOIN purchases ON purchases.id = purchase_payments.purchase_id").
		Where("purchases.sell_id = ?", sellID).
		Count(&viaPurchase).Error
	if err != nil {
		return 0, err
	}
	return direct + viaPurchase, nil
}

func applyFilter(query *gorm.DB, filter ListFilter) *gorm.DB {
	if filter.FarmerID != nil {
		query = query.Where("farmer_id = ?", *filter.FarmerID)
	}
	if filter.BuyerID != nil {
		query = query.Where("buyer_id = ?", *filter.BuyerID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("sell_status IN ?", filter.Statuses)
	}
	return query
}
