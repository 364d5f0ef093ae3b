package repository

import (
	"context"

	"example.com/fleetops/internal/database"
	"example.com/fleetops/internal/models"

	"gorm.io/gorm"
)

// DriverRepository provides driver data access methods
type DriverRepository interface {
	InsertDrivers(ctx context.Context, drivers []*models.Driver) error
	ListDrivers(ctx context.Context) ([]*models.Driver, error)
	FindDriverByID(ctx context.Context, id uint) (*models.Driver, error)
	UpdateDriver(ctx context.Context, driver *models.Driver) error
	DeleteDriver(ctx context.Context, id uint) error
	DeleteDrivers(ctx context.Context, ids []uint) (int64, error)
	DeleteAllDrivers(ctx context.Context) (int64, error)
	FindDriverNaturalKeys(ctx context.Context, values map[string][]string) (map[string][]string, error)
	DriverFieldTaken(ctx context.Context, column, value string, excludeID uint) (bool, error)
}

// FleetRepository provides fleet data access methods
type FleetRepository interface {
	UpsertFleetChunk(ctx context.Context, records []*models.Fleet) (inserted, updated int, err error)
	ListFleet(ctx context.Context, q FleetQuery) ([]*models.Fleet, int64, error)
	ExportFleet(ctx context.Context, q FleetQuery) ([]*models.Fleet, error)
	FindFleetByID(ctx context.Context, id uint) (*models.Fleet, error)
	FindFleetByVehNumb(ctx context.Context, vehNumb string) ([]*models.Fleet, error)
	UpdateFleet(ctx context.Context, fleet *models.Fleet) error
	DeleteFleet(ctx context.Context, id uint) error
	DeleteFleetMany(ctx context.Context, ids []uint) (int64, error)
	DeleteAllFleet(ctx context.Context) (int64, error)
	CountFleet(ctx context.Context) (int64, error)
	FleetFilters(ctx context.Context) (*FleetFilters, error)
	FindFleetNaturalKeys(ctx context.Context, values map[string][]string) (map[string][]string, error)
}

// SellerRepository provides seller data access methods
type SellerRepository interface {
	InsertSellers(ctx context.Context, sellers []*models.Seller) error
	ListSellers(ctx context.Context) ([]*models.Seller, error)
	FindSellerByID(ctx context.Context, id uint) (*models.Seller, error)
	UpdateSeller(ctx context.Context, seller *models.Seller) error
	DeleteSeller(ctx context.Context, id uint) error
	DeleteSellers(ctx context.Context, ids []uint) (int64, error)
	FindSellerNaturalKeys(ctx context.Context, values map[string][]string) (map[string][]string, error)
	SellerFieldTaken(ctx context.Context, column, value string, excludeID uint) (bool, error)
}

// BonusRepository provides driver bonus data access methods
type BonusRepository interface {
	ReplaceBonuses(ctx context.Context, bonuses []*models.DriverBonus) error
	UpsertBonusChunk(ctx context.Context, bonuses []*models.DriverBonus) (inserted, updated int, err error)
	ListBonuses(ctx context.Context) ([]*models.DriverBonus, error)
	FindBonusesByHub(ctx context.Context, hub string) ([]*models.DriverBonus, error)
	DeleteAllBonuses(ctx context.Context) (int64, error)
}

// OrderRepository provides project-scoped merchant order data access methods
type OrderRepository interface {
	UpsertMerchantOrderChunk(ctx context.Context, project string, orders []*models.MerchantOrder) (inserted, updated int, err error)
	ListMerchantOrders(ctx context.Context, project string) ([]*models.MerchantOrder, error)
	ListMerchantOrdersBySenders(ctx context.Context, project string, senders []string) ([]*models.MerchantOrder, error)
	FindMerchantOrderByID(ctx context.Context, project string, id uint) (*models.MerchantOrder, error)
	FindMerchantOrdersByIDs(ctx context.Context, project string, ids []uint) ([]*models.MerchantOrder, error)
	UpdateMerchantOrder(ctx context.Context, order *models.MerchantOrder) error
	DeleteMerchantOrder(ctx context.Context, project string, id uint) error
	DeleteAllMerchantOrders(ctx context.Context, project string) (int64, error)
	MarkOrdersAssigned(ctx context.Context, project string, ids []uint, driverID, driverName, driverPhone string) (int64, error)
	MarkOrdersInProgress(ctx context.Context, project string, ids []uint, batchID int64) (int64, error)
	UnassignOrder(ctx context.Context, project string, id uint) (*models.MerchantOrder, error)
	FindSenderValidation(ctx context.Context, senderName string) (*models.SenderValidation, error)
	FindSenderValidations(ctx context.Context, senderNames []string) ([]*models.SenderValidation, error)
}

// MessageRepository provides outbound message queue and attempt log access
type MessageRepository interface {
	ReplacePhoneMessages(ctx context.Context, messages []*models.PhoneMessage) (int, error)
	ListPhoneMessages(ctx context.Context) ([]*models.PhoneMessage, error)
	UpdatePhoneMessageStatus(ctx context.Context, id uint, status models.DeliveryStatus) error
	DeleteAllPhoneMessages(ctx context.Context) error

	CreateMessageLog(ctx context.Context, log *models.MessageLog) error
	ProcessedPhones(ctx context.Context) (map[string]struct{}, error)
	LatestLogForPhone(ctx context.Context, normalizedPhone string) (*models.MessageLog, error)
	ListMessageLogs(ctx context.Context, status, batchID string, limit int) ([]*models.MessageLog, error)
	MessageLogStats(ctx context.Context, batchID string) (map[models.LogStatus]int64, string, error)
}

// Repository provides data access methods for all entities
type Repository interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error

	DriverRepository
	FleetRepository
	SellerRepository
	BonusRepository
	OrderRepository
	MessageRepository
}

// repo is an implementation of the Repository interface
type repo struct {
	db database.DB
}

// dbWrapper adapts a transaction handle to the database.DB interface
type dbWrapper struct {
	db *gorm.DB
}

func (w *dbWrapper) DB() (*gorm.DB, error) {
	return w.db, nil
}

func (w *dbWrapper) Close() error {
	return nil
}

// NewRepository creates a new repository instance
func NewRepository(db database.DB) Repository {
	return &repo{
		db: db,
	}
}

// collapseByKey keeps the last row for each conflict key, at the position
// of the key's first occurrence. Postgres rejects a multi-row upsert that
// touches the same key twice ("cannot affect row a second time"), so every
// chunk must carry each key at most once.
func collapseByKey[T any](rows []T, key func(T) string) []T {
	seen := make(map[string]int, len(rows))
	out := rows[:0:0]
	for _, row := range rows {
		k := key(row)
		if i, ok := seen[k]; ok {
			out[i] = row
			continue
		}
		seen[k] = len(out)
		out = append(out, row)
	}
	return out
}

// WithTransaction executes the given function within a database transaction
func (r *repo) WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &repo{
			db: &dbWrapper{db: tx},
		}
		return fn(ctx, txRepo)
	})
}
