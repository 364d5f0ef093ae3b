package service

import (
	"context"

	"example.com/fleetops/internal/bulk"
	"example.com/fleetops/internal/models"
)

var sellerDupFields = []string{"seller_id", "email_iseller", "no_ktp", "no_telepon"}

func sellerKeys(s *models.Seller) map[string]string {
	return map[string]string{
		"seller_id":     bulk.Fold(bulk.Trim(s.SellerID)),
		"email_iseller": bulk.TrimLower(s.EmailIseller),
		"no_ktp":        bulk.Fold(bulk.Trim(s.NoKtp)),
		"no_telepon":    bulk.Fold(bulk.Trim(s.NoTelepon)),
	}
}

func normalizeSeller(s *models.Seller) {
	s.Nama = bulk.Trim(s.Nama)
	s.SellerID = bulk.Trim(s.SellerID)
	s.EmailIseller = bulk.TrimLower(s.EmailIseller)
	s.NoKtp = bulk.Trim(s.NoKtp)
	s.NoTelepon = bulk.Trim(s.NoTelepon)
	s.Alamat = bulk.Trim(s.Alamat)
	s.Kota = bulk.Trim(s.Kota)
	s.Notes = bulk.Trim(s.Notes)
}

// UploadSellers inserts a batch of seller records. Every row must carry a
// name; natural-key collisions reject the whole batch.
func (s *service) UploadSellers(ctx context.Context, rows []*models.Seller) ([]*models.Seller, error) {
	var missingNameRows []int
	for i, seller := range rows {
		normalizeSeller(seller)
		if seller.Nama == "" {
			missingNameRows = append(missingNameRows, i+2)
		}
	}
	if len(missingNameRows) > 0 {
		return nil, &RowsValidationError{Field: "Nama", Rows: missingNameRows}
	}

	keyed := make([]bulk.Keyed, len(rows))
	for i, seller := range rows {
		keyed[i] = bulk.Keyed{Data: seller, Keys: sellerKeys(seller)}
	}

	report, err := bulk.Detect(ctx, keyed, sellerDupFields, s.foldedSellerFinder())
	if err != nil {
		return nil, err
	}
	if report.HasDuplicates() {
		return nil, &bulk.DuplicateError{Report: report, TotalRecords: len(rows)}
	}

	if err := s.repo.InsertSellers(ctx, rows); err != nil {
		return nil, err
	}

	s.log.WithField("count", len(rows)).Info("Seller data saved")
	return rows, nil
}

func (s *service) foldedSellerFinder() bulk.Finder {
	return func(ctx context.Context, values map[string][]string) (map[string][]string, error) {
		existing, err := s.repo.FindSellerNaturalKeys(ctx, values)
		if err != nil {
			return nil, err
		}
		return foldValues(existing), nil
	}
}

func (s *service) ListSellers(ctx context.Context) ([]*models.Seller, error) {
	return s.repo.ListSellers(ctx)
}

// UpdateSeller applies an edit after checking the changed unique fields are
// not held by another seller. The name stays required.
func (s *service) UpdateSeller(ctx context.Context, id uint, input *models.Seller) (*models.Seller, error) {
	seller, err := s.repo.FindSellerByID(ctx, id)
	if err != nil {
		return nil, err
	}

	normalizeSeller(input)
	if input.Nama == "" {
		return nil, &RowsValidationError{Field: "Nama", Rows: []int{1}}
	}

	checks := []struct {
		field   string
		column  string
		current string
		next    string
	}{
		{"sellerId", "seller_id", seller.SellerID, input.SellerID},
		{"emailIseller", "email_iseller", seller.EmailIseller, input.EmailIseller},
		{"noKtp", "no_ktp", seller.NoKtp, input.NoKtp},
		{"noTelepon", "no_telepon", seller.NoTelepon, input.NoTelepon},
	}
	for _, c := range checks {
		if c.next == "" || bulk.Fold(c.next) == bulk.Fold(c.current) {
			continue
		}
		taken, err := s.repo.SellerFieldTaken(ctx, c.column, c.next, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, &FieldTakenError{Field: c.field}
		}
	}

	seller.Nama = input.Nama
	seller.SellerID = input.SellerID
	seller.EmailIseller = input.EmailIseller
	seller.NoKtp = input.NoKtp
	seller.NoTelepon = input.NoTelepon
	seller.Alamat = input.Alamat
	seller.Kota = input.Kota
	seller.Notes = input.Notes

	if err := s.repo.UpdateSeller(ctx, seller); err != nil {
		return nil, err
	}
	return seller, nil
}

func (s *service) DeleteSeller(ctx context.Context, id uint) error {
	return s.repo.DeleteSeller(ctx, id)
}

func (s *service) DeleteSellers(ctx context.Context, ids []uint) (int64, error) {
	return s.repo.DeleteSellers(ctx, ids)
}
