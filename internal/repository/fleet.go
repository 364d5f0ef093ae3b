package repository

import (
	"context"
	"errors"
	"strings"

	"example.com/fleetops/internal/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FleetQuery carries pagination, search and filter parameters for fleet
// listings.
type FleetQuery struct {
	Page          int
	Limit         int
	Search        string
	SortKey       string
	SortDirection string
	Status        string
	Project       string
	Type          string
	StatusFilter  string // all, active, inactive
}

// FleetStatistics summarizes the fleet by activity.
type FleetStatistics struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}

// FleetFilters holds the distinct values available for the fleet list
// filter dropdowns together with activity counts.
type FleetFilters struct {
	Statuses   []string        `json:"statuses"`
	Projects   []string        `json:"projects"`
	Types      []string        `json:"types"`
	Statistics FleetStatistics `json:"statistics"`
}

// fleetSortColumns whitelists the columns a fleet listing may sort on.
var fleetSortColumns = map[string]string{
	"name":        "name",
	"phoneNumber": "phone_number",
	"status":      "status",
	"project":     "project",
	"vehNumb":     "veh_numb",
	"type":        "type",
	"createdAt":   "created_at",
}

var fleetKeyColumns = map[string]string{
	"name":        "name",
	"phoneNumber": "phone_number",
	"vehNumb":     "veh_numb",
}

// UpsertFleetChunk writes a chunk of fleet records, updating rows whose
// vehicle number already exists and inserting the rest. It reports how many
// rows fell on each side of the conflict.
func (r *repo) UpsertFleetChunk(ctx context.Context, records []*models.Fleet) (int, int, error) {
	db, err := r.db.DB()
	if err != nil {
		return 0, 0, err
	}

	records = collapseByKey(records, func(f *models.Fleet) string { return f.VehNumb })

	vehNumbs := make([]string, 0, len(records))
	for _, f := range records {
		vehNumbs = append(vehNumbs, f.VehNumb)
	}

	var existing []string
	err = db.WithContext(ctx).Model(&models.Fleet{}).
		Where("veh_numb IN ?", vehNumbs).
		Pluck("veh_numb", &existing).Error
	if err != nil {
		return 0, 0, err
	}

	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "veh_numb"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "phone_number", "status", "molis", "deduction_amount",
			"status_second", "project", "distribusi", "rush_hour", "type",
			"notes", "updated_at",
		}),
	}).Create(&records).Error
	if err != nil {
		return 0, 0, err
	}

	updated := len(existing)
	inserted := len(records) - updated
	return inserted, updated, nil
}

func (r *repo) ListFleet(ctx context.Context, q FleetQuery) ([]*models.Fleet, int64, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, 0, err
	}

	query := db.WithContext(ctx).Model(&models.Fleet{})
	query = applyFleetFilters(query, q)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (q.Page - 1) * q.Limit
	var fleet []*models.Fleet
	err = query.Order(fleetOrderClause(q)).Offset(offset).Limit(q.Limit).Find(&fleet).Error
	if err != nil {
		return nil, 0, err
	}
	return fleet, total, nil
}

// ExportFleet returns every record matching the query without pagination.
func (r *repo) ExportFleet(ctx context.Context, q FleetQuery) ([]*models.Fleet, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	query := applyFleetFilters(db.WithContext(ctx).Model(&models.Fleet{}), q)

	var fleet []*models.Fleet
	if err := query.Order(fleetOrderClause(q)).Find(&fleet).Error; err != nil {
		return nil, err
	}
	return fleet, nil
}

func applyFleetFilters(query *gorm.DB, q FleetQuery) *gorm.DB {
	// Short search terms match everything, same as no search.
	if len(q.Search) >= 2 {
		pattern := "%" + q.Search + "%"
		query = query.Where(
			`name ILIKE ? OR veh_numb ILIKE ? OR status ILIKE ? OR project ILIKE ?
			 OR type ILIKE ? OR molis ILIKE ? OR distribusi ILIKE ? OR phone_number ILIKE ?`,
			pattern, pattern, pattern, pattern, pattern, pattern, pattern, pattern,
		)
	}
	if q.Status != "" {
		query = query.Where("status ILIKE ?", "%"+q.Status+"%")
	}
	if q.Project != "" {
		query = query.Where("project ILIKE ?", "%"+q.Project+"%")
	}
	if q.Type != "" {
		query = query.Where("type ILIKE ?", "%"+q.Type+"%")
	}
	switch q.StatusFilter {
	case "active":
		query = query.Where("status ILIKE ?", "ACTIVE")
	case "inactive":
		query = query.Where("status NOT ILIKE ?", "ACTIVE")
	}
	return query
}

// fleetOrderClause falls back to newest-first for unknown sort keys instead
// of erroring, matching the listing's lenient contract.
func fleetOrderClause(q FleetQuery) string {
	column, ok := fleetSortColumns[q.SortKey]
	if !ok {
		return "created_at DESC"
	}
	direction := "DESC"
	if strings.EqualFold(q.SortDirection, "asc") {
		direction = "ASC"
	}
	return column + " " + direction
}

func (r *repo) FindFleetByID(ctx context.Context, id uint) (*models.Fleet, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var fleet models.Fleet
	if err := db.WithContext(ctx).First(&fleet, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &fleet, nil
}

func (r *repo) FindFleetByVehNumb(ctx context.Context, vehNumb string) ([]*models.Fleet, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var fleet []*models.Fleet
	err = db.WithContext(ctx).
		Where("veh_numb ILIKE ?", "%"+vehNumb+"%").
		Order("veh_numb ASC").
		Find(&fleet).Error
	if err != nil {
		return nil, err
	}
	return fleet, nil
}

func (r *repo) UpdateFleet(ctx context.Context, fleet *models.Fleet) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Save(fleet).Error
}

func (r *repo) DeleteFleet(ctx context.Context, id uint) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}

	result := db.WithContext(ctx).Delete(&models.Fleet{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) DeleteFleetMany(ctx context.Context, ids []uint) (int64, error) {
	db, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	result := db.WithContext(ctx).Delete(&models.Fleet{}, ids)
	return result.RowsAffected, result.Error
}

func (r *repo) DeleteAllFleet(ctx context.Context) (int64, error) {
	db, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	result := db.WithContext(ctx).Where("1 = 1").Delete(&models.Fleet{})
	return result.RowsAffected, result.Error
}

func (r *repo) CountFleet(ctx context.Context) (int64, error) {
	db, err := r.db.DB()
	if err != nil {
		return 0, err
	}

	var count int64
	err = db.WithContext(ctx).Model(&models.Fleet{}).Count(&count).Error
	return count, err
}

// FleetFilters collects the distinct filter values and per-status counts
// concurrently.
func (r *repo) FleetFilters(ctx context.Context) (*FleetFilters, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	filters := &FleetFilters{}

	g, gctx := errgroup.WithContext(ctx)

	distinct := func(column string, dest *[]string) func() error {
		return func() error {
			return db.WithContext(gctx).Model(&models.Fleet{}).
				Distinct(column).
				Where(column + " <> ''").
				Order(column + " ASC").
				Pluck(column, dest).Error
		}
	}

	g.Go(distinct("status", &filters.Statuses))
	g.Go(distinct("project", &filters.Projects))
	g.Go(distinct("type", &filters.Types))
	g.Go(func() error {
		return db.WithContext(gctx).Model(&models.Fleet{}).
			Where("status ILIKE ?", "ACTIVE").
			Count(&filters.Statistics.Active).Error
	})
	g.Go(func() error {
		return db.WithContext(gctx).Model(&models.Fleet{}).
			Count(&filters.Statistics.Total).Error
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	filters.Statistics.Inactive = filters.Statistics.Total - filters.Statistics.Active
	return filters, nil
}

func (r *repo) FindFleetNaturalKeys(ctx context.Context, values map[string][]string) (map[string][]string, error) {
	db, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	query := db.WithContext(ctx).Model(&models.Fleet{})
	matched := false
	for field, vals := range values {
		column, ok := fleetKeyColumns[field]
		if !ok || len(vals) == 0 {
			continue
		}
		query = query.Or("LOWER("+column+") IN ?", vals)
		matched = true
	}
	if !matched {
		return map[string][]string{}, nil
	}

	var fleet []*models.Fleet
	if err := query.Find(&fleet).Error; err != nil {
		return nil, err
	}

	existing := make(map[string][]string, len(values))
	for _, f := range fleet {
		existing["name"] = append(existing["name"], f.Name)
		existing["phoneNumber"] = append(existing["phoneNumber"], f.PhoneNumber)
		existing["vehNumb"] = append(existing["vehNumb"], f.VehNumb)
	}
	return existing, nil
}
