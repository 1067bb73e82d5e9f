package inventory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/pagination"
)

func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo: NewRepository(conn),
		TX:   db.NewFromConn(conn),
		Now:  func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return svc
}

func farmer() auth.Actor {
	return auth.Actor{UserID: uuid.New(), Role: enums.RoleFarmer}
}

func harvestRequest(qty string) CreateHarvestRequest {
	return CreateHarvestRequest{
		HarvestDate:     "2026-05-20",
		Quantity:        decimal.RequireFromString(qty),
		QualityGrade:    enums.QualityGradeA,
		MoistureContent: decimal.RequireFromString("9.5"),
		OilContent:      decimal.RequireFromString("42"),
		District:        "Nyagatare",
		Sector:          "Karangazi",
		Cell:            "Rwenje",
		Village:         "Kabare",
	}
}

func TestCreateHarvestOpensStock(t *testing.T) {
	conn := setupInventoryTestDB(t)
	svc := newTestService(t, conn)
	owner := farmer()

	dto, err := svc.CreateHarvest(context.Background(), owner, harvestRequest("500"))
	require.NoError(t, err)
	require.NotNil(t, dto.Stock)
	assert.True(t, dto.Stock.CurrentQuantity.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "Grade A (Premium)", dto.QualityLabel)
	assert.Equal(t, "Kabare, Rwenje, Karangazi, Nyagatare", dto.Location)

	_, err = svc.CreateHarvest(context.Background(), auth.Actor{UserID: uuid.New(), Role: enums.RoleBuyer}, harvestRequest("10"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	bad := harvestRequest("10")
	bad.OilContent = decimal.NewFromInt(120)
	_, err = svc.CreateHarvest(context.Background(), owner, bad)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	future := harvestRequest("10")
	future.HarvestDate = "2026-07-01"
	_, err = svc.CreateHarvest(context.Background(), owner, future)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListHarvestsScopesToFarmer(t *testing.T) {
	conn := setupInventoryTestDB(t)
	svc := newTestService(t, conn)
	alice, bob := farmer(), farmer()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateHarvest(context.Background(), alice, harvestRequest("100"))
		require.NoError(t, err)
	}
	_, err := svc.CreateHarvest(context.Background(), bob, harvestRequest("100"))
	require.NoError(t, err)

	page, err := svc.ListHarvests(context.Background(), alice, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.NotEmpty(t, page.NextCursor)
	for _, item := range page.Items {
		assert.Equal(t, alice.UserID, item.FarmerID)
		assert.NotNil(t, item.Stock)
	}

	admin := auth.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}
	all, err := svc.ListHarvests(context.Background(), admin, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all.Items, 4)

	_, err = svc.GetHarvest(context.Background(), bob, page.Items[0].ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestRecordMovementRules(t *testing.T) {
	conn := setupInventoryTestDB(t)
	svc := newTestService(t, conn)
	owner := farmer()
	ctx := context.Background()

	harvest, err := svc.CreateHarvest(ctx, owner, harvestRequest("100"))
	require.NoError(t, err)
	stockID := harvest.Stock.ID

	_, err = svc.RecordMovement(ctx, owner, stockID, MovementRequest{MovementType: enums.MovementOut, Quantity: decimal.NewFromInt(120)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.RecordMovement(ctx, owner, stockID, MovementRequest{MovementType: enums.MovementTransfer, Quantity: decimal.NewFromInt(10)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	dst := "Gatsibo"
	movement, err := svc.RecordMovement(ctx, owner, stockID, MovementRequest{
		MovementType: enums.MovementTransfer,
		Quantity:     decimal.NewFromInt(30),
		ToDistrict:   &dst,
		ToSector:     &dst,
		ToCell:       &dst,
		ToVillage:    &dst,
	})
	require.NoError(t, err)
	assert.Equal(t, "Nyagatare", movement.FromDistrict)

	_, err = svc.RecordMovement(ctx, owner, stockID, MovementRequest{MovementType: enums.MovementIn, Quantity: decimal.NewFromInt(31)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.RecordMovement(ctx, owner, stockID, MovementRequest{MovementType: enums.MovementIn, Quantity: decimal.NewFromInt(10)})
	require.NoError(t, err)

	_, err = svc.RecordMovement(ctx, owner, stockID, MovementRequest{MovementType: enums.MovementAdjustment, Quantity: decimal.NewFromInt(5)})
	require.NoError(t, err)

	stock, err := svc.GetStock(ctx, owner, stockID)
	require.NoError(t, err)
	assert.True(t, stock.CurrentQuantity.Equal(decimal.NewFromInt(80)), stock.CurrentQuantity.String())

	movements, err := svc.ListMovements(ctx, owner, stockID)
	require.NoError(t, err)
	assert.Len(t, movements, 3)

	_, err = svc.RecordMovement(ctx, farmer(), stockID, MovementRequest{MovementType: enums.MovementOut, Quantity: decimal.NewFromInt(1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestApplySellOutOnlyOnce(t *testing.T) {
	conn := setupInventoryTestDB(t)
	svc := newTestService(t, conn)
	owner := farmer()
	ctx := context.Background()

	harvest, err := svc.CreateHarvest(ctx, owner, harvestRequest("100"))
	require.NoError(t, err)
	sellID := uuid.New()
	repo := NewRepository(conn)

	movement, err := ApplySellOut(ctx, repo, harvest.Stock.ID, sellID, decimal.NewFromInt(100), owner.UserID)
	require.NoError(t, err)
	require.NotNil(t, movement.SellID)
	assert.Equal(t, sellID, *movement.SellID)

	_, err = ApplySellOut(ctx, repo, harvest.Stock.ID, sellID, decimal.NewFromInt(1), owner.UserID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	stock, err := repo.FindStock(ctx, harvest.Stock.ID)
	require.NoError(t, err)
	assert.True(t, stock.CurrentQuantity.IsZero())
}

func TestDeleteHarvestBlockedByListings(t *testing.T) {
	conn := setupInventoryTestDB(t)
	svc := newTestService(t, conn)
	owner := farmer()
	ctx := context.Background()

	listed, err := svc.CreateHarvest(ctx, owner, harvestRequest("100"))
	require.NoError(t, err)
	require.NoError(t, conn.Create(&models.Sell{
		FarmerID:       owner.UserID,
		HarvestStockID: listed.Stock.ID,
		QuantitySold:   decimal.NewFromInt(10),
		UnitPrice:      decimal.NewFromInt(10),
		TotalAmount:    decimal.NewFromInt(100),
		DeliveryDays:   7,
		SellStatus:     enums.SellStatusPosted,
		PaymentStatus:  enums.ListingPaymentUnpaid,
	}).Error)

	err = svc.DeleteHarvest(ctx, owner, listed.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	free, err := svc.CreateHarvest(ctx, owner, harvestRequest("50"))
	require.NoError(t, err)
	require.NoError(t, svc.DeleteHarvest(ctx, owner, free.ID))
	_, err = svc.GetHarvest(ctx, owner, free.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
