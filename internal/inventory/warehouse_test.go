package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
)

func TestWarehouseInventoryLifecycle(t *testing.T) {
	conn := setupInventoryTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	officer := auth.Actor{UserID: uuid.New(), Role: enums.RoleMinagriOfficer}

	_, err := svc.CreateWarehouse(ctx, farmer(), CreateWarehouseRequest{Name: "x", District: "d", Sector: "s"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	north, err := svc.CreateWarehouse(ctx, officer, CreateWarehouseRequest{Name: "North", District: "Gicumbi", Sector: "Byumba"})
	require.NoError(t, err)
	south, err := svc.CreateWarehouse(ctx, officer, CreateWarehouseRequest{Name: "South", District: "Huye", Sector: "Tumba"})
	require.NoError(t, err)

	seeds, err := svc.AddCommodity(ctx, officer, north.ID, AddCommodityRequest{
		Commodity:         "sunflower seed",
		InitialQuantity:   decimal.NewFromInt(400),
		MaxCapacity:       decimal.NewFromInt(1000),
		MinimumStockLevel: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, "kg", seeds.Unit)

	_, err = svc.AddCommodity(ctx, officer, north.ID, AddCommodityRequest{Commodity: "sunflower seed"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	target, err := svc.AddCommodity(ctx, officer, south.ID, AddCommodityRequest{
		Commodity:   "sunflower seed",
		MaxCapacity: decimal.NewFromInt(200),
	})
	require.NoError(t, err)

	_, err = svc.ChangeInventory(ctx, officer, seeds.ID, InventoryChangeRequest{Operation: OperationAdd, Quantity: decimal.NewFromInt(601)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	updated, err := svc.ChangeInventory(ctx, officer, seeds.ID, InventoryChangeRequest{Operation: OperationAdd, Quantity: decimal.NewFromInt(600)})
	require.NoError(t, err)
	assert.True(t, updated.CurrentQuantity.Equal(decimal.NewFromInt(1000)))

	_, err = svc.ChangeInventory(ctx, officer, seeds.ID, InventoryChangeRequest{Operation: OperationRemove, Quantity: decimal.NewFromInt(1001)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.ChangeInventory(ctx, officer, seeds.ID, InventoryChangeRequest{Operation: OperationTransfer, Quantity: decimal.NewFromInt(250), TargetID: &target.ID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.ChangeInventory(ctx, officer, seeds.ID, InventoryChangeRequest{Operation: OperationTransfer, Quantity: decimal.NewFromInt(200), TargetID: &target.ID})
	require.NoError(t, err)

	adjusted, err := svc.ChangeInventory(ctx, officer, seeds.ID, InventoryChangeRequest{Operation: OperationAdjust, Quantity: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.Equal(t, StockStatusLow, adjusted.StockStatus)

	movements, err := svc.ListCommodityMovements(ctx, officer, seeds.ID)
	require.NoError(t, err)
	require.Len(t, movements, 4)
	var last CommodityMovementDTO
	for _, m := range movements {
		if m.MovementType == enums.MovementAdjustment {
			last = m
		}
	}
	assert.True(t, last.QuantityBefore.Equal(decimal.NewFromInt(800)))
	assert.True(t, last.QuantityAfter.Equal(decimal.NewFromInt(50)))

	report, err := svc.CapacityReport(ctx, officer)
	require.NoError(t, err)
	require.Len(t, report, 2)
	for _, entry := range report {
		if entry.CommodityID == target.ID {
			assert.True(t, entry.UtilisationPct.Equal(decimal.NewFromInt(100)))
			assert.Equal(t, "South", entry.WarehouseName)
		}
		if entry.CommodityID == seeds.ID {
			assert.True(t, entry.LowStock)
		}
	}

	other := auth.Actor{UserID: uuid.New(), Role: enums.RoleMinagriOfficer}
	_, err = svc.ListCommodities(ctx, other, north.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestAdjustToCurrentLevelIsRejected(t *testing.T) {
	conn := setupInventoryTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	officer := auth.Actor{UserID: uuid.New(), Role: enums.RoleMinagriOfficer}

	warehouse, err := svc.CreateWarehouse(ctx, officer, CreateWarehouseRequest{Name: "East", District: "Rwamagana", Sector: "Muhazi"})
	require.NoError(t, err)
	line, err := svc.AddCommodity(ctx, officer, warehouse.ID, AddCommodityRequest{
		Commodity:       "sunflower seed",
		InitialQuantity: decimal.NewFromInt(300),
		MaxCapacity:     decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	_, err = svc.ChangeInventory(ctx, officer, line.ID, InventoryChangeRequest{Operation: OperationAdjust, Quantity: decimal.RequireFromString("300.00")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	movements, err := svc.ListCommodityMovements(ctx, officer, line.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, enums.MovementIn, movements[0].MovementType)

	adjusted, err := svc.ChangeInventory(ctx, officer, line.ID, InventoryChangeRequest{Operation: OperationAdjust, Quantity: decimal.NewFromInt(280)})
	require.NoError(t, err)
	assert.True(t, adjusted.CurrentQuantity.Equal(decimal.NewFromInt(280)))
}

// lockRecorder notes the order commodity rows are locked in.
type lockRecorder struct {
	Repository
	mu     *sync.Mutex
	locked *[]uuid.UUID
}

func (r lockRecorder) WithTx(tx *gorm.DB) Repository {
	return lockRecorder{Repository: r.Repository.WithTx(tx), mu: r.mu, locked: r.locked}
}

func (r lockRecorder) FindCommodityForUpdate(ctx context.Context, id uuid.UUID) (*models.WarehouseCommodity, error) {
	r.mu.Lock()
	*r.locked = append(*r.locked, id)
	r.mu.Unlock()
	return r.Repository.FindCommodityForUpdate(ctx, id)
}

func (r lockRecorder) take() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := *r.locked
	*r.locked = nil
	return out
}

func TestOppositeTransfersLockRowsInTheSameOrder(t *testing.T) {
	conn := setupInventoryTestDB(t)
	recorder := lockRecorder{Repository: NewRepository(conn), mu: &sync.Mutex{}, locked: &[]uuid.UUID{}}
	svc, err := NewService(ServiceParams{
		Repo: recorder,
		TX:   db.NewFromConn(conn),
		Now:  func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	ctx := context.Background()
	officer := auth.Actor{UserID: uuid.New(), Role: enums.RoleMinagriOfficer}

	north, err := svc.CreateWarehouse(ctx, officer, CreateWarehouseRequest{Name: "North", District: "Gicumbi", Sector: "Byumba"})
	require.NoError(t, err)
	south, err := svc.CreateWarehouse(ctx, officer, CreateWarehouseRequest{Name: "South", District: "Huye", Sector: "Tumba"})
	require.NoError(t, err)
	a, err := svc.AddCommodity(ctx, officer, north.ID, AddCommodityRequest{Commodity: "sunflower seed", InitialQuantity: decimal.NewFromInt(500)})
	require.NoError(t, err)
	b, err := svc.AddCommodity(ctx, officer, south.ID, AddCommodityRequest{Commodity: "Sunflower Seed", InitialQuantity: decimal.NewFromInt(500)})
	require.NoError(t, err)

	low, high := transferLockOrder(a.ID, b.ID)
	assert.Less(t, low.String(), high.String())
	recorder.take()

	_, err = svc.ChangeInventory(ctx, officer, a.ID, InventoryChangeRequest{Operation: OperationTransfer, Quantity: decimal.NewFromInt(100), TargetID: &b.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{low, high}, recorder.take())

	back, err := svc.ChangeInventory(ctx, officer, b.ID, InventoryChangeRequest{Operation: OperationTransfer, Quantity: decimal.NewFromInt(40), TargetID: &a.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{low, high}, recorder.take())
	assert.Equal(t, b.ID, back.ID)
	assert.True(t, back.CurrentQuantity.Equal(decimal.NewFromInt(560)))

	lines, err := svc.ListCommodities(ctx, officer, north.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].CurrentQuantity.Equal(decimal.NewFromInt(440)))
}
