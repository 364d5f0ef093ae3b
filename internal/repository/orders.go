package repository

import (
	"context"
	"errors"
	"time"

	"example.com/fleetops/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertMerchantOrderChunk writes a chunk of merchant orders scoped to a
// project, keyed by merchant order id within that project.
func (r *repo) UpsertMerchantOrderChunk(ctx context.Context, project string, orders []*models.MerchantOrder) (int, int, error) {
	db, err := r.db.DB()
	if err != nil {
		return 0, 0, err
	}

	for _, o := range orders {
		o.Project = project
	}
	orders = collapseByKey(orders, func(o *models.MerchantOrder) string { return o.MerchantOrderID })

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.MerchantOrderID)
	}

	var existing []string
	err = db.WithContext(ctx).Model(&models.MerchantOrder{}).
		Where("project = ? AND merchant_order_id IN ?", project, ids).
		Pluck("merchant_order_id", &existing).Error
	if err != nil {
		return 0, 0, err
	}

	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "project"}, {Name: "merchant_order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"weight", "length", "width", "height", "payment_type", "cod_amount",
			"sender_name", "sender_phone", "pickup_instructions",
			"consignee_name", "consignee_phone",
			"destination_district", "destination_city", "destination_province",
			"destination_postalcode", "destination_address",
			"dropoff_lat", "dropoff_long", "dropoff_instructions",
			"item_value", "product_details", "updated_at",
		}),
	}).Create(&orders).Error
	if err != nil {
		return 0, 0, err
	}

	updated := len(existing)
	return len(orders) - updated, updated, nil
}

func (r *repo) ListMerchantOrders(ctx context.Context, project string) ([]*models.MerchantOrder, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var orders []*models.MerchantOrder
	err = db.WithContext(ctx).
		Where("project = ?", project).
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) ListMerchantOrdersBySenders(ctx context.Context, project string, senders []string) ([]*models.MerchantOrder, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var orders []*models.MerchantOrder
	err = db.WithContext(ctx).
		Where("project = ? AND sender_name IN ?", project, senders).
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) FindMerchantOrderByID(ctx context.Context, project string, id uint) (*models.MerchantOrder, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var order models.MerchantOrder
	err = db.WithContext(ctx).
		Where("project = ?", project).
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *repo) FindMerchantOrdersByIDs(ctx context.Context, project string, ids []uint) ([]*models.MerchantOrder, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var orders []*models.MerchantOrder
	err = db.WithContext(ctx).
		Where("project = ? AND id IN ?", project, ids).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) UpdateMerchantOrder(ctx context.Context, order *models.MerchantOrder) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Save(order).Error
}

func (r *repo) DeleteMerchantOrder(ctx context.Context, project string, id uint) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}

	result := db.WithContext(ctx).
		Where("project = ?", project).
		Delete(&models.MerchantOrder{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) DeleteAllMerchantOrders(ctx context.Context, project string) (int64, error) {
	db, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	result := db.WithContext(ctx).
		Where("project = ?", project).
		Delete(&models.MerchantOrder{})
	return result.RowsAffected, result.Error
}

// MarkOrdersAssigned stamps the selected orders with driver details and moves
// them to the assigned status.
func (r *repo) MarkOrdersAssigned(ctx context.Context, project string, ids []uint, driverID, driverName, driverPhone string) (int64, error) {
	db, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	now := time.Now()
	result := db.WithContext(ctx).Model(&models.MerchantOrder{}).
		Where("project = ? AND id IN ?", project, ids).
		Updates(map[string]interface{}{
			"assigned_to_driver_id":    driverID,
			"assigned_to_driver_name":  driverName,
			"assigned_to_driver_phone": driverPhone,
			"assigned_at":              now,
			"assignment_status":        models.AssignmentAssigned,
		})
	return result.RowsAffected, result.Error
}

// MarkOrdersInProgress records the external batch id on the selected orders
// and moves them to in_progress.
func (r *repo) MarkOrdersInProgress(ctx context.Context, project string, ids []uint, batchID int64) (int64, error) {
	db, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	result := db.WithContext(ctx).Model(&models.MerchantOrder{}).
		Where("project = ? AND id IN ?", project, ids).
		Updates(map[string]interface{}{
			"batch_id":          batchID,
			"assignment_status": models.AssignmentInProgress,
		})
	return result.RowsAffected, result.Error
}

// UnassignOrder clears the driver fields of one order and resets it to
// unassigned, returning the updated record.
func (r *repo) UnassignOrder(ctx context.Context, project string, id uint) (*models.MerchantOrder, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	result := db.WithContext(ctx).Model(&models.MerchantOrder{}).
		Where("project = ? AND id = ?", project, id).
		Updates(map[string]interface{}{
			"assigned_to_driver_id":    nil,
			"assigned_to_driver_name":  nil,
			"assigned_to_driver_phone": nil,
			"assigned_at":              nil,
			"batch_id":                 nil,
			"assignment_status":        models.AssignmentUnassigned,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindMerchantOrderByID(ctx, project, id)
}

func (r *repo) FindSenderValidation(ctx context.Context, senderName string) (*models.SenderValidation, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var sv models.SenderValidation
	err = db.WithContext(ctx).
		Where("sender_name = ?", senderName).
		First(&sv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sv, nil
}

func (r *repo) FindSenderValidations(ctx context.Context, senderNames []string) ([]*models.SenderValidation, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var svs []*models.SenderValidation
	err = db.WithContext(ctx).
		Where("sender_name IN ?", senderNames).
		Find(&svs).Error
	if err != nil {
		return nil, err
	}
	return svs, nil
}
