package models

// All lists every persisted model, in dependency order, for AutoMigrate in tests
// and SQLite dev runs.
func All() []any {
	return []any{
		&User{},
		&SunflowerHarvest{},
		&HarvestStock{},
		&HarvestMovement{},
		&Warehouse{},
		&WarehouseCommodity{},
		&CommodityMovement{},
		&StorageOrder{},
		&Sell{},
		&SellPayment{},
		&Purchase{},
		&PurchasePayment{},
		&OutboxEvent{},
		&OutboxDLQ{},
		&Notification{},
	}
}
