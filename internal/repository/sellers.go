package repository

import (
	"context"
	"errors"

	"example.com/fleetops/internal/models"

	"gorm.io/gorm"
)

var sellerKeyColumns = map[string]string{
	"seller_id":     "seller_id",
	"email_iseller": "email_iseller",
	"no_ktp":        "no_ktp",
	"no_telepon":    "no_telepon",
}

func (r *repo) InsertSellers(ctx context.Context, sellers []*models.Seller) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Create(&sellers).Error
}

func (r *repo) ListSellers(ctx context.Context) ([]*models.Seller, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var sellers []*models.Seller
	if err := db.WithContext(ctx).Order("id ASC").Find(&sellers).Error; err != nil {
		return nil, err
	}
	return sellers, nil
}

func (r *repo) FindSellerByID(ctx context.Context, id uint) (*models.Seller, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var seller models.Seller
	if err := db.WithContext(ctx).First(&seller, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &seller, nil
}

func (r *repo) UpdateSeller(ctx context.Context, seller *models.Seller) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Save(seller).Error
}

func (r *repo) DeleteSeller(ctx context.Context, id uint) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}

	result := db.WithContext(ctx).Delete(&models.Seller{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) DeleteSellers(ctx context.Context, ids []uint) (int64, error) {
	db, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	result := db.WithContext(ctx).Delete(&models.Seller{}, ids)
	return result.RowsAffected, result.Error
}

func (r *repo) FindSellerNaturalKeys(ctx context.Context, values map[string][]string) (map[string][]string, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	query := db.WithContext(ctx).Model(&models.Seller{})
	matched := false
	for field, vals := range values {
		column, ok := sellerKeyColumns[field]
		if !ok || len(vals) == 0 {
			continue
		}
		query = query.Or("LOWER("+column+") IN ?", vals)
		matched = true
	}
	if !matched {
		return map[string][]string{}, nil
	}

	var sellers []*models.Seller
	if err := query.Find(&sellers).Error; err != nil {
		return nil, err
	}

	existing := make(map[string][]string, len(values))
	for _, s := range sellers {
		existing["seller_id"] = append(existing["seller_id"], s.SellerID)
		existing["email_iseller"] = append(existing["email_iseller"], s.EmailIseller)
		existing["no_ktp"] = append(existing["no_ktp"], s.NoKtp)
		existing["no_telepon"] = append(existing["no_telepon"], s.NoTelepon)
	}
	return existing, nil
}

func (r *repo) SellerFieldTaken(ctx context.Context, column, value string, excludeID uint) (bool, error) {
	db, err := r.db.DB()
	if err != nil {
		return false, err
	}

	var count int64
	err = db.WithContext(ctx).Model(&models.Seller{}).
		Where(column+" = ? AND id <> ?", value, excludeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
