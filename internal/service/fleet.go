package service

import (
	"context"
	"time"

	"example.com/fleetops/internal/bulk"
	"example.com/fleetops/internal/excel"
	"example.com/fleetops/internal/lark"
	"example.com/fleetops/internal/messaging"
	"example.com/fleetops/internal/models"
	"example.com/fleetops/internal/repository"

	"github.com/xuri/excelize/v2"
)

var fleetDupFields = []string{"name", "phoneNumber", "vehNumb"}

// FleetUploadSummary is the outcome of a chunked fleet upload.
type FleetUploadSummary struct {
	*bulk.UpsertSummary
	DatabaseTotal int64 `json:"databaseTotal"`
}

func normalizeFleet(f *models.Fleet) {
	f.Name = bulk.Trim(f.Name)
	f.PhoneNumber = bulk.Trim(f.PhoneNumber)
	f.Status = bulk.Trim(f.Status)
	f.Molis = bulk.Trim(f.Molis)
	f.DeductionAmount = bulk.Trim(f.DeductionAmount)
	f.StatusSecond = bulk.Trim(f.StatusSecond)
	f.Project = bulk.Trim(f.Project)
	f.Distribusi = bulk.Trim(f.Distribusi)
	f.RushHour = bulk.Trim(f.RushHour)
	f.VehNumb = bulk.TrimUpper(f.VehNumb)
	f.Type = bulk.Trim(f.Type)
	f.Notes = bulk.Trim(f.Notes)
}

func fleetKeys(f *models.Fleet) map[string]string {
	return map[string]string{
		"name":        bulk.Fold(f.Name),
		"phoneNumber": bulk.Fold(f.PhoneNumber),
		"vehNumb":     bulk.Fold(f.VehNumb),
	}
}

// UploadFleet validates, dedup-checks and upserts fleet records in chunks
// keyed on the vehicle number. replaceAll skips the duplicate rejection;
// the upsert handles overwrites either way.
func (s *service) UploadFleet(ctx context.Context, rows []*models.Fleet, replaceAll bool) (*FleetUploadSummary, error) {
	for i, f := range rows {
		if err := bulk.RequireFields(i, map[string]string{
			"name":    f.Name,
			"vehNumb": f.VehNumb,
		}); err != nil {
			return nil, err
		}
		normalizeFleet(f)
	}

	if !replaceAll {
		keyed := make([]bulk.Keyed, len(rows))
		for i, f := range rows {
			keyed[i] = bulk.Keyed{Data: f, Keys: fleetKeys(f)}
		}

		report, err := bulk.Detect(ctx, keyed, fleetDupFields, s.foldedFleetFinder())
		if err != nil {
			return nil, err
		}
		if report.HasDuplicates() {
			return nil, &bulk.DuplicateError{Report: report, TotalRecords: len(rows)}
		}
	}

	summary, err := bulk.UpsertInChunks(ctx, len(rows), bulk.DefaultChunkSize,
		func(ctx context.Context, chunk, start, end int) (int, int, error) {
			return s.repo.UpsertFleetChunk(ctx, rows[start:end])
		})
	if err != nil {
		return nil, err
	}

	total, err := s.repo.CountFleet(ctx)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"inserted": summary.TotalInserted,
		"updated":  summary.TotalUpdated,
		"total":    total,
	}).Info("Fleet data saved")

	s.publishAudit(ctx, messaging.UploadEvent{
		Entity:       "fleet",
		TotalRecords: len(rows),
		Inserted:     summary.TotalInserted,
		Updated:      summary.TotalUpdated,
		UploadedAt:   time.Now().UTC().Format(time.RFC3339),
	}, "fleet-upload")

	return &FleetUploadSummary{UpsertSummary: summary, DatabaseTotal: total}, nil
}

func (s *service) foldedFleetFinder() bulk.Finder {
	return func(ctx context.Context, values map[string][]string) (map[string][]string, error) {
		existing, err := s.repo.FindFleetNaturalKeys(ctx, values)
		if err != nil {
			return nil, err
		}
		return foldValues(existing), nil
	}
}

// ListFleet clamps paging parameters before querying.
func (s *service) ListFleet(ctx context.Context, q repository.FleetQuery) ([]*models.Fleet, int64, error) {
	q = clampFleetQuery(q)
	return s.repo.ListFleet(ctx, q)
}

func clampFleetQuery(q repository.FleetQuery) repository.FleetQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 25
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return q
}

func (s *service) FleetFilters(ctx context.Context) (*repository.FleetFilters, error) {
	return s.repo.FleetFilters(ctx)
}

func (s *service) FleetByPlate(ctx context.Context, plate string) ([]*models.Fleet, error) {
	return s.repo.FindFleetByVehNumb(ctx, plate)
}

// fleetExportColumns fixes the export layout.
var fleetExportColumns = []excel.Column{
	{Header: "Name", Field: "name"},
	{Header: "Phone Number", Field: "phoneNumber"},
	{Header: "Status", Field: "status"},
	{Header: "Molis", Field: "molis"},
	{Header: "Deduction Amount", Field: "deductionAmount"},
	{Header: "Project", Field: "project"},
	{Header: "Distribusi", Field: "distribusi"},
	{Header: "Rush Hour", Field: "rushHour"},
	{Header: "Veh Numb", Field: "vehNumb"},
	{Header: "Type", Field: "type"},
	{Header: "Notes", Field: "notes"},
	{Header: "Created At", Field: "createdAt"},
	{Header: "Updated At", Field: "updatedAt"},
}

// ExportFleet renders every matching record into a workbook.
func (s *service) ExportFleet(ctx context.Context, q repository.FleetQuery) (*excelize.File, error) {
	data, err := s.repo.ExportFleet(ctx, q)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, len(data))
	for i, f := range data {
		rows[i] = map[string]string{
			"name":            f.Name,
			"phoneNumber":     f.PhoneNumber,
			"status":          f.Status,
			"molis":           f.Molis,
			"deductionAmount": f.DeductionAmount,
			"project":         f.Project,
			"distribusi":      f.Distribusi,
			"rushHour":        f.RushHour,
			"vehNumb":         f.VehNumb,
			"type":            f.Type,
			"notes":           f.Notes,
			"createdAt":       f.CreatedAt.Format("02/01/2006 15:04:05"),
			"updatedAt":       f.UpdatedAt.Format("02/01/2006 15:04:05"),
		}
	}
	return excel.WriteTable("Fleet Data", fleetExportColumns, rows)
}

func (s *service) FleetInfo(ctx context.Context) (int64, error) {
	return s.repo.CountFleet(ctx)
}

// FleetRoster reads the unit roster from the bitable tables.
func (s *service) FleetRoster(ctx context.Context) ([]lark.RosterEntry, error) {
	return s.roster.FetchRoster(ctx)
}

func (s *service) UpdateFleet(ctx context.Context, id uint, input *models.Fleet) (*models.Fleet, error) {
	fleet, err := s.repo.FindFleetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	normalizeFleet(input)

	fleet.Name = input.Name
	fleet.PhoneNumber = input.PhoneNumber
	fleet.Status = input.Status
	fleet.Molis = input.Molis
	fleet.DeductionAmount = input.DeductionAmount
	fleet.StatusSecond = input.StatusSecond
	fleet.Project = input.Project
	fleet.Distribusi = input.Distribusi
	fleet.RushHour = input.RushHour
	fleet.VehNumb = input.VehNumb
	fleet.Type = input.Type
	fleet.Notes = input.Notes

	if err := s.repo.UpdateFleet(ctx, fleet); err != nil {
		return nil, err
	}
	return fleet, nil
}

func (s *service) DeleteFleet(ctx context.Context, id uint) (*models.Fleet, error) {
	fleet, err := s.repo.FindFleetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteFleet(ctx, id); err != nil {
		return nil, err
	}
	return fleet, nil
}

func (s *service) DeleteFleetMany(ctx context.Context, ids []uint) (int64, error) {
	return s.repo.DeleteFleetMany(ctx, ids)
}

func (s *service) DeleteAllFleet(ctx context.Context) (int64, error) {
	return s.repo.DeleteAllFleet(ctx)
}
