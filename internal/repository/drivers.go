package repository

import (
	"context"
	"errors"

	"example.com/fleetops/internal/models"

	"gorm.io/gorm"
)

// driverKeyColumns maps duplicate-check field names to their columns.
var driverKeyColumns = map[string]string{
	"username":   "username",
	"fullName":   "full_name",
	"courier_id": "courier_id",
}

func (r *repo) InsertDrivers(ctx context.Context, drivers []*models.Driver) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Create(&drivers).Error
}

func (r *repo) ListDrivers(ctx context.Context) ([]*models.Driver, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var drivers []*models.Driver
	if err := db.WithContext(ctx).Order("id ASC").Find(&drivers).Error; err != nil {
		return nil, err
	}
	return drivers, nil
}

func (r *repo) FindDriverByID(ctx context.Context, id uint) (*models.Driver, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var driver models.Driver
	if err := db.WithContext(ctx).First(&driver, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &driver, nil
}

func (r *repo) UpdateDriver(ctx context.Context, driver *models.Driver) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Save(driver).Error
}

func (r *repo) DeleteDriver(ctx context.Context, id uint) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}

	result := db.WithContext(ctx).Delete(&models.Driver{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) DeleteDrivers(ctx context.Context, ids []uint) (int64, error) {
	db, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	result := db.WithContext(ctx).Delete(&models.Driver{}, ids)
	return result.RowsAffected, result.Error
}

func (r *repo) DeleteAllDrivers(ctx context.Context) (int64, error) {
	db, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	result := db.WithContext(ctx).Where("1 = 1").Delete(&models.Driver{})
	return result.RowsAffected, result.Error
}

// FindDriverNaturalKeys returns, for each requested field, the values
// already present in storage. Candidate values arrive case-folded, so the
// match is case-insensitive. All fields are covered by a single query.
func (r *repo) FindDriverNaturalKeys(ctx context.Context, values map[string][]string) (map[string][]string, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	query := db.WithContext(ctx).Model(&models.Driver{})
	matched := false
	for field, vals := range values {
		column, ok := driverKeyColumns[field]
		if !ok || len(vals) == 0 {
			continue
		}
		query = query.Or("LOWER("+column+") IN ?", vals)
		matched = true
	}
	if !matched {
		return map[string][]string{}, nil
	}

	var drivers []*models.Driver
	if err := query.Find(&drivers).Error; err != nil {
		return nil, err
	}

	existing := make(map[string][]string, len(values))
	for _, d := range drivers {
		existing["username"] = append(existing["username"], d.Username)
		existing["fullName"] = append(existing["fullName"], d.FullName)
		existing["courier_id"] = append(existing["courier_id"], d.CourierID)
	}
	return existing, nil
}

// DriverFieldTaken reports whether another driver already holds the given
// value in the given column.
func (r *repo) DriverFieldTaken(ctx context.Context, column, value string, excludeID uint) (bool, error) {
	db, err := r.db.DB()
	if err != nil {
		return false, err
	}

	var count int64
	err = db.WithContext(ctx).Model(&models.Driver{}).
		Where(column+" = ? AND id <> ?", value, excludeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
