package service

import (
	"context"

	"example.com/fleetops/internal/bulk"
	"example.com/fleetops/internal/models"
)

// driverDupFields are the natural keys checked during upload.
var driverDupFields = []string{"username", "fullName", "courier_id"}

func driverKeys(d *models.Driver) map[string]string {
	return map[string]string{
		"username":   bulk.Fold(bulk.Trim(d.Username)),
		"fullName":   bulk.Fold(bulk.Trim(d.FullName)),
		"courier_id": bulk.Fold(bulk.Trim(d.CourierID)),
	}
}

// UploadDrivers inserts a batch of driver records. Natural-key collisions
// inside the payload or against storage reject the whole batch unless
// replaceAll clears storage first, which also skips detection.
func (s *service) UploadDrivers(ctx context.Context, rows []*models.Driver, replaceAll bool) ([]*models.Driver, error) {
	for _, d := range rows {
		d.Username = bulk.Trim(d.Username)
		d.FullName = bulk.Trim(d.FullName)
		d.CourierID = bulk.Trim(d.CourierID)
		d.Phone = bulk.Trim(d.Phone)
		d.Hub = bulk.Trim(d.Hub)
	}

	if !replaceAll {
		keyed := make([]bulk.Keyed, len(rows))
		for i, d := range rows {
			keyed[i] = bulk.Keyed{Data: d, Keys: driverKeys(d)}
		}

		report, err := bulk.Detect(ctx, keyed, driverDupFields, s.foldedDriverFinder())
		if err != nil {
			return nil, err
		}
		if report.HasDuplicates() {
			return nil, &bulk.DuplicateError{Report: report, TotalRecords: len(rows)}
		}
	} else {
		if _, err := s.repo.DeleteAllDrivers(ctx); err != nil {
			return nil, err
		}
		s.log.Info("Existing driver data cleared before replace upload")
	}

	if err := s.repo.InsertDrivers(ctx, rows); err != nil {
		return nil, err
	}

	s.log.WithField("count", len(rows)).Info("Driver data saved")
	return rows, nil
}

// foldedDriverFinder adapts the repository lookup to the detector's folded
// value contract.
func (s *service) foldedDriverFinder() bulk.Finder {
	return func(ctx context.Context, values map[string][]string) (map[string][]string, error) {
		existing, err := s.repo.FindDriverNaturalKeys(ctx, values)
		if err != nil {
			return nil, err
		}
		return foldValues(existing), nil
	}
}

func (s *service) ListDrivers(ctx context.Context) ([]*models.Driver, error) {
	return s.repo.ListDrivers(ctx)
}

// UpdateDriver applies an edit after checking the changed natural keys are
// not held by another driver.
func (s *service) UpdateDriver(ctx context.Context, id uint, input *models.Driver) (*models.Driver, error) {
	driver, err := s.repo.FindDriverByID(ctx, id)
	if err != nil {
		return nil, err
	}

	input.Username = bulk.Trim(input.Username)
	input.FullName = bulk.Trim(input.FullName)
	input.CourierID = bulk.Trim(input.CourierID)

	checks := []struct {
		field   string
		column  string
		current string
		next    string
	}{
		{"username", "username", driver.Username, input.Username},
		{"fullName", "full_name", driver.FullName, input.FullName},
		{"courier_id", "courier_id", driver.CourierID, input.CourierID},
	}
	for _, c := range checks {
		if c.next == "" || bulk.Fold(c.next) == bulk.Fold(c.current) {
			continue
		}
		taken, err := s.repo.DriverFieldTaken(ctx, c.column, c.next, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, &FieldTakenError{Field: c.field}
		}
	}

	driver.Username = input.Username
	driver.FullName = input.FullName
	driver.CourierID = input.CourierID
	driver.Phone = bulk.Trim(input.Phone)
	driver.Hub = bulk.Trim(input.Hub)
	driver.Status = bulk.Trim(input.Status)
	driver.Notes = bulk.Trim(input.Notes)

	if err := s.repo.UpdateDriver(ctx, driver); err != nil {
		return nil, err
	}
	return driver, nil
}

func (s *service) DeleteDriver(ctx context.Context, id uint) error {
	return s.repo.DeleteDriver(ctx, id)
}

func (s *service) DeleteDrivers(ctx context.Context, ids []uint) (int64, error) {
	return s.repo.DeleteDrivers(ctx, ids)
}

// foldValues lower-cases every stored value so set membership matches the
// detector's folded payload keys.
func foldValues(values map[string][]string) map[string][]string {
	folded := make(map[string][]string, len(values))
	for field, vals := range values {
		out := make([]string, 0, len(vals))
		for _, v := range vals {
			if v != "" {
				out = append(out, bulk.Fold(v))
			}
		}
		folded[field] = out
	}
	return folded
}
