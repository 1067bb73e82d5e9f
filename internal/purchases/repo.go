package purchases

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

// ErrStaleSell means the listing row changed since it was read.
var ErrStaleSell = errors.New("sell was modified concurrently")

// ListFilter narrows purchase lists. Nil fields do not filter.
type ListFilter struct {
	BuyerID  *uuid.UUID
	FarmerID *uuid.UUID
}

// Repository persists purchases, their payments and the listing columns a
// purchase keeps in step with.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreatePurchase(ctx context.Context, purchase *models.Purchase) error
	FindPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	FindPurchaseForUpdate(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	FindPurchaseBySell(ctx context.Context, sellID uuid.UUID) (*models.Purchase, error)
	SavePurchase(ctx context.Context, purchase *models.Purchase) error
	DeletePurchase(ctx context.Context, id uuid.UUID) error
	ListPurchases(ctx context.Context, filter ListFilter) ([]models.Purchase, error)

	CreatePayment(ctx context.Context, payment *models.PurchasePayment) error
	FindPayment(ctx context.Context, id uuid.UUID) (*models.PurchasePayment, error)
	FindPaymentForUpdate(ctx context.Context, id uuid.UUID) (*models.PurchasePayment, error)
	SavePayment(ctx context.Context, payment *models.PurchasePayment) error
	ListPayments(ctx context.Context, purchaseID uuid.UUID) ([]models.PurchasePayment, error)
	CountOpenPayments(ctx context.Context, purchaseID uuid.UUID) (int64, error)

	FindSell(ctx context.Context, id uuid.UUID) (*models.Sell, error)
	FindSellForUpdate(ctx context.Context, id uuid.UUID) (*models.Sell, error)
	ClaimSell(ctx context.Context, sell *models.Sell) error
	SaveSell(ctx context.Context, sell *models.Sell) error
	ListSellPayments(ctx context.Context, sellID uuid.UUID) ([]models.SellPayment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed purchase repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector != nil && db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func (r *repository) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Create(purchase).Error
}

func (r *repository) FindPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := r.db.WithContext(ctx).First(&purchase, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repository) FindPurchaseForUpdate(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := forUpdate(r.db.WithContext(ctx)).First(&purchase, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repository) FindPurchaseBySell(ctx context.Context, sellID uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := forUpdate(r.db.WithContext(ctx)).First(&purchase, "sell_id = ?", sellID).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repository) SavePurchase(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Save(purchase).Error
}

func (r *repository) DeletePurchase(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("purchase_id = ?", id).Delete(&models.PurchasePayment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Purchase{}, "id = ?", id).Error
	})
}

func (r *repository) ListPurchases(ctx context.Context, filter ListFilter) ([]models.Purchase, error) {
	query := r.db.WithContext(ctx).Model(&models.Purchase{})
	if filter.BuyerID != nil {
		query = query.Where("purchases.buyer_id = ?", *filter.BuyerID)
	}
	if filter.FarmerID != nil {
		query = query.
			Joins("JOIN sells ON sells.id = purchases.sell_id").
			Where("sells.farmer_id = ?", *filter.FarmerID)
	}
	var rows []models.Purchase
	if err := query.Select("purchases.*").Order("purchases.purchased_date DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.PurchasePayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindPayment(ctx context.Context, id uuid.UUID) (*models.PurchasePayment, error) {
	var payment models.PurchasePayment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindPaymentForUpdate(ctx context.Context, id uuid.UUID) (*models.PurchasePayment, error) {
	var payment models.PurchasePayment
	if err := forUpdate(r.db.WithContext(ctx)).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) SavePayment(ctx context.Context, payment *models.PurchasePayment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *repository) ListPayments(ctx context.Context, purchaseID uuid.UUID) ([]models.PurchasePayment, error) {
	var rows []models.PurchasePayment
	err := r.db.WithContext(ctx).
		Where("purchase_id = ?", purchaseID).
		Order("transaction_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountOpenPayments counts payments that are pending or already completed.
func (r *repository) CountOpenPayments(ctx context.Context, purchaseID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PurchasePayment{}).
		Where("purchase_id = ? AND status IN ?", purchaseID, []enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusCompleted}).
		Count(&count).Error
	return count, err
}

func (r *repository) FindSell(ctx context.Context, id uuid.UUID) (*models.Sell, error) {
	var sell models.Sell
	if err := r.db.WithContext(ctx).First(&sell, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sell, nil
}

func (r *repository) FindSellForUpdate(ctx context.Context, id uuid.UUID) (*models.Sell, error) {
	var sell models.Sell
	if err := forUpdate(r.db.WithContext(ctx)).First(&sell, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sell, nil
}

// ClaimSell writes the claim only while the row is still posted at the
// version that was read.
func (r *repository) ClaimSell(ctx context.Context, sell *models.Sell) error {
	return r.updateSell(sell, r.db.WithContext(ctx).
		Model(&models.Sell{}).
		Where("id = ? AND version = ? AND sell_status = ?", sell.ID, sell.Version, enums.SellStatusPosted))
}

// SaveSell writes every mutable column when the version still matches.
func (r *repository) SaveSell(ctx context.Context, sell *models.Sell) error {
	return r.updateSell(sell, r.db.WithContext(ctx).
		Model(&models.Sell{}).
		Where("id = ? AND version = ?", sell.ID, sell.Version))
}

func (r *repository) updateSell(sell *models.Sell, query *gorm.DB) error {
	next := sell.Version + 1
	now := time.Now().UTC()
	res := query.Updates(map[string]any{
		"buyer_id":               sell.BuyerID,
		"quantity_sold":          sell.QuantitySold,
		"unit_price":             sell.UnitPrice,
		"total_amount":           sell.TotalAmount,
		"delivery_days":          sell.DeliveryDays,
		"sell_status":            sell.SellStatus,
		"payment_status":         sell.PaymentStatus,
		"amount_paid":            sell.AmountPaid,
		"delivery_address":       sell.DeliveryAddress,
		"delivery_notes":         sell.DeliveryNotes,
		"delivery_date":          sell.DeliveryDate,
		"payment_completed_date": sell.PaymentCompletedDate,
		"purchased_date":         sell.PurchasedDate,
		"notes":                  sell.Notes,
		"version":                next,
		"updated_at":             now,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleSell
	}
	sell.Version = next
	sell.UpdatedAt = now
	return nil
}

func (r *repository) ListSellPayments(ctx context.Context, sellID uuid.UUID) ([]models.SellPayment, error) {
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
