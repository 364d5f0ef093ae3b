package repository

import (
	"context"

	"example.com/fleetops/internal/models"

	"gorm.io/gorm/clause"
)

func (r *repo) ReplaceBonuses(ctx context.Context, bonuses []*models.DriverBonus) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}

	if err := db.WithContext(ctx).Where("1 = 1").Delete(&models.DriverBonus{}).Error; err != nil {
		return err
	}
	if len(bonuses) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&bonuses).Error
}

// UpsertBonusChunk writes a chunk of bonus rows keyed by hub and driver name.
func (r *repo) UpsertBonusChunk(ctx context.Context, bonuses []*models.DriverBonus) (int, int, error) {
	db, err := r.db.DB()
	if err != nil {
		return 0, 0, err
	}

	bonuses = collapseByKey(bonuses, func(b *models.DriverBonus) string {
		return b.Hub + "\x00" + b.DriverName
	})

	type bonusKey struct {
		Hub        string
		DriverName string
	}
	keys := make(map[bonusKey]struct{}, len(bonuses))

	query := db.WithContext(ctx).Model(&models.DriverBonus{})
	for _, b := range bonuses {
		query = query.Or("hub = ? AND driver_name = ?", b.Hub, b.DriverName)
	}

	var existing []*models.DriverBonus
	if err := query.Find(&existing).Error; err != nil {
		return 0, 0, err
	}
	for _, b := range existing {
		keys[bonusKey{Hub: b.Hub, DriverName: b.DriverName}] = struct{}{}
	}

	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "hub"}, {Name: "driver_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"festive_bonus", "after_rekon", "add_personal", "incentives", "updated_at",
		}),
	}).Create(&bonuses).Error
	if err != nil {
		return 0, 0, err
	}

	updated := 0
	for _, b := range bonuses {
		if _, ok := keys[bonusKey{Hub: b.Hub, DriverName: b.DriverName}]; ok {
			updated++
		}
	}
	return len(bonuses) - updated, updated, nil
}

func (r *repo) ListBonuses(ctx context.Context) ([]*models.DriverBonus, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var bonuses []*models.DriverBonus
	err = db.WithContext(ctx).
		Order("hub ASC, driver_name ASC").
		Find(&bonuses).Error
	if err != nil {
		return nil, err
	}
	return bonuses, nil
}

func (r *repo) FindBonusesByHub(ctx context.Context, hub string) ([]*models.DriverBonus, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var bonuses []*models.DriverBonus
	err = db.WithContext(ctx).
		Where("hub ILIKE ?", "%"+hub+"%").
		Order("driver_name ASC").
		Find(&bonuses).Error
	if err != nil {
		return nil, err
	}
	return bonuses, nil
}

func (r *repo) DeleteAllBonuses(ctx context.Context) (int64, error) {
	db, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	result := db.WithContext(ctx).Where("1 = 1").Delete(&models.DriverBonus{})
	return result.RowsAffected, result.Error
}
