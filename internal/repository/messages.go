package repository

import (
	"context"
	"errors"

	"example.com/fleetops/internal/models"

	"gorm.io/gorm"
)

// ReplacePhoneMessages swaps the pending message queue for a fresh one and
// clears the attempt log, all in one transaction. It returns the number of
// rows loaded.
func (r *repo) ReplacePhoneMessages(ctx context.Context, messages []*models.PhoneMessage) (int, error) {
	db, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.PhoneMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&models.MessageLog{}).Error; err != nil {
			return err
		}
		if len(messages) == 0 {
			return nil
		}
		return tx.Create(&messages).Error
	})
	if err != nil {
		return 0, err
	}
	return len(messages), nil
}

func (r *repo) ListPhoneMessages(ctx context.Context) ([]*models.PhoneMessage, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var messages []*models.PhoneMessage
	if err := db.WithContext(ctx).Order("id ASC").Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *repo) UpdatePhoneMessageStatus(ctx context.Context, id uint, status models.DeliveryStatus) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}

	result := db.WithContext(ctx).Model(&models.PhoneMessage{}).
		Where("id = ?", id).
		Update("delivery_status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) DeleteAllPhoneMessages(ctx context.Context) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.PhoneMessage{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&models.MessageLog{}).Error
	})
}

func (r *repo) CreateMessageLog(ctx context.Context, log *models.MessageLog) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Create(log).Error
}

// ProcessedPhones returns the set of normalized phones that already have an
// attempt on record. Any logged outcome is final, so membership is derived
// from the log at read time rather than kept as a flag on the queue row.
func (r *repo) ProcessedPhones(ctx context.Context) (map[string]struct{}, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var phones []string
	err = db.WithContext(ctx).Model(&models.MessageLog{}).
		Where("status IN ?", []models.LogStatus{models.LogSuccess, models.LogFailed}).
		Distinct("normalized_phone").
		Pluck("normalized_phone", &phones).Error
	if err != nil {
		return nil, err
	}

	processed := make(map[string]struct{}, len(phones))
	for _, p := range phones {
		processed[p] = struct{}{}
	}
	return processed, nil
}

func (r *repo) LatestLogForPhone(ctx context.Context, normalizedPhone string) (*models.MessageLog, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var log models.MessageLog
	err = db.WithContext(ctx).
		Where("normalized_phone = ?", normalizedPhone).
		Order("id DESC").
		First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &log, nil
}

func (r *repo) ListMessageLogs(ctx context.Context, status, batchID string, limit int) ([]*models.MessageLog, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	query := db.WithContext(ctx).Model(&models.MessageLog{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if batchID != "" {
		query = query.Where("batch_id = ?", batchID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var logs []*models.MessageLog
	if err := query.Order("id DESC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// MessageLogStats returns per-status counts, optionally scoped to one batch,
// together with the most recent batch id seen in the log.
func (r *repo) MessageLogStats(ctx context.Context, batchID string) (map[models.LogStatus]int64, string, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, "", err
	}

	query := db.WithContext(ctx).Model(&models.MessageLog{})
	if batchID != "" {
		query = query.Where("batch_id = ?", batchID)
	}

	type statusCount struct {
		Status models.LogStatus
		Count  int64
	}
	var counts []statusCount
	err = query.Select("status, COUNT(*) as count").Group("status").Scan(&counts).Error
	if err != nil {
		return nil, "", err
	}

	stats := make(map[models.LogStatus]int64, len(counts))
	for _, c := range counts {
		stats[c.Status] = c.Count
	}

	var latestBatch string
	err = db.WithContext(ctx).Model(&models.MessageLog{}).
		Select("batch_id").
		Where("batch_id <> ''").
		Order("id DESC").
		Limit(1).
		Pluck("batch_id", &latestBatch).Error
	if err != nil {
		return nil, "", err
	}
	return stats, latestBatch, nil
}
