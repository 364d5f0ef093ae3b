package service

import (
	"context"

	"example.com/fleetops/internal/bulk"
	"example.com/fleetops/internal/models"
)

// BonusAppendSummary reports how many bonus rows an append touched.
type BonusAppendSummary struct {
	Upserted int `json:"upserted"`
	Modified int `json:"modified"`
}

func normalizeBonus(b *models.DriverBonus) {
	b.Hub = bulk.Trim(b.Hub)
	b.DriverName = bulk.Trim(b.DriverName)
}

func validateBonuses(rows []*models.DriverBonus) error {
	for i, b := range rows {
		normalizeBonus(b)
		if err := bulk.RequireFields(i, map[string]string{
			"hub":        b.Hub,
			"driverName": b.DriverName,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceBonuses swaps the entire bonus table for the given rows.
func (s *service) ReplaceBonuses(ctx context.Context, rows []*models.DriverBonus) (int, error) {
	if err := validateBonuses(rows); err != nil {
		return 0, err
	}
	if err := s.repo.ReplaceBonuses(ctx, rows); err != nil {
		return 0, err
	}
	s.log.WithField("count", len(rows)).Info("Driver bonuses replaced")
	return len(rows), nil
}

// AppendBonuses upserts rows keyed on the hub and driver name pair.
func (s *service) AppendBonuses(ctx context.Context, rows []*models.DriverBonus) (*BonusAppendSummary, error) {
	if err := validateBonuses(rows); err != nil {
		return nil, err
	}
	inserted, updated, err := s.repo.UpsertBonusChunk(ctx, rows)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(map[string]interface{}{
		"inserted": inserted,
		"updated":  updated,
	}).Info("Driver bonuses appended")
	return &BonusAppendSummary{Upserted: inserted + updated, Modified: updated}, nil
}

func (s *service) ListBonuses(ctx context.Context) ([]*models.DriverBonus, error) {
	return s.repo.ListBonuses(ctx)
}

func (s *service) BonusesByHub(ctx context.Context, hub string) ([]*models.DriverBonus, error) {
	return s.repo.FindBonusesByHub(ctx, hub)
}

func (s *service) DeleteAllBonuses(ctx context.Context) (int64, error) {
	return s.repo.DeleteAllBonuses(ctx)
}
