package service

import (
	"context"
	"strings"
	"time"

	"example.com/fleetops/internal/blitz"
	"example.com/fleetops/internal/bulk"
	"example.com/fleetops/internal/messaging"
	"example.com/fleetops/internal/models"
	"example.com/fleetops/internal/repository"
)

// OrderUploadSummary is the outcome of a chunked merchant order upload.
type OrderUploadSummary struct {
	*bulk.UpsertSummary
	Count int `json:"count"`
}

// AssignValidation carries the sender's admin-panel registration values
// forwarded to the external batch API.
type AssignValidation struct {
	Business    int64      `json:"business" validate:"required"`
	City        int64      `json:"city" validate:"required"`
	ServiceType int64      `json:"service_type" validate:"required"`
	BusinessHub int64      `json:"business_hub" validate:"required"`
	Coordinates [2]float64 `json:"coordinates"`
}

// AssignRequest assigns a set of orders to one driver. Authorization is the
// caller's bearer token, forwarded verbatim to the batch API.
type AssignRequest struct {
	OrderIDs      []uint            `json:"orderIds" validate:"required,min=1"`
	DriverID      string            `json:"driverId" validate:"required"`
	DriverName    string            `json:"driverName" validate:"required"`
	DriverPhone   string            `json:"driverPhone" validate:"required"`
	ActiveBatchID *int64            `json:"activeBatchId"`
	Validation    *AssignValidation `json:"validationData" validate:"required"`
	Authorization string            `json:"-"`
}

// AssignResult reports a completed assignment, including how the external
// batch was reached.
type AssignResult struct {
	AssignedCount   int64  `json:"assignedCount"`
	BatchID         int64  `json:"batchId"`
	AddedToExisting bool   `json:"addedToExistingBatch"`
	AssignmentID    string `json:"assignmentId,omitempty"`
	Uploaded        bool   `json:"uploaded"`
	UploadedCount   int    `json:"uploadedCount"`
}

// UploadMerchantOrders upserts order rows in chunks keyed on the merchant
// order id within the project.
func (s *service) UploadMerchantOrders(ctx context.Context, project string, rows []*models.MerchantOrder) (*OrderUploadSummary, error) {
	if err := s.requireProject(project); err != nil {
		return nil, err
	}

	for i, o := range rows {
		o.MerchantOrderID = bulk.Trim(o.MerchantOrderID)
		if err := bulk.RequireFields(i, map[string]string{
			"merchant_order_id": o.MerchantOrderID,
		}); err != nil {
			return nil, err
		}
	}

	summary, err := bulk.UpsertInChunks(ctx, len(rows), bulk.DefaultChunkSize,
		func(ctx context.Context, chunk, start, end int) (int, int, error) {
			return s.repo.UpsertMerchantOrderChunk(ctx, project, rows[start:end])
		})
	if err != nil {
		return nil, err
	}

	s.publishAudit(ctx, messaging.UploadEvent{
		Entity:       "merchant_orders",
		Project:      project,
		TotalRecords: len(rows),
		Inserted:     summary.TotalInserted,
		Updated:      summary.TotalUpdated,
		UploadedAt:   time.Now().UTC().Format(time.RFC3339),
	}, "order-upload-"+project)

	return &OrderUploadSummary{UpsertSummary: summary, Count: len(rows)}, nil
}

func (s *service) ListMerchantOrders(ctx context.Context, project string) ([]*models.MerchantOrder, error) {
	if err := s.requireProject(project); err != nil {
		return nil, err
	}
	return s.repo.ListMerchantOrders(ctx, project)
}

func (s *service) GetMerchantOrder(ctx context.Context, project string, id uint) (*models.MerchantOrder, error) {
	if err := s.requireProject(project); err != nil {
		return nil, err
	}
	return s.repo.FindMerchantOrderByID(ctx, project, id)
}

func (s *service) UpdateMerchantOrder(ctx context.Context, project string, id uint, input *models.MerchantOrder) (*models.MerchantOrder, error) {
	if err := s.requireProject(project); err != nil {
		return nil, err
	}

	order, err := s.repo.FindMerchantOrderByID(ctx, project, id)
	if err != nil {
		return nil, err
	}

	input.ID = order.ID
	input.Project = order.Project
	input.CreatedAt = order.CreatedAt
	if err := s.repo.UpdateMerchantOrder(ctx, input); err != nil {
		return nil, err
	}
	return input, nil
}

func (s *service) DeleteMerchantOrder(ctx context.Context, project string, id uint) error {
	if err := s.requireProject(project); err != nil {
		return err
	}
	return s.repo.DeleteMerchantOrder(ctx, project, id)
}

func (s *service) DeleteAllMerchantOrders(ctx context.Context, project string) (int64, error) {
	if err := s.requireProject(project); err != nil {
		return 0, err
	}
	return s.repo.DeleteAllMerchantOrders(ctx, project)
}

func (s *service) ValidateSender(ctx context.Context, senderName string) (*models.SenderValidation, error) {
	return s.repo.FindSenderValidation(ctx, bulk.Trim(senderName))
}

// ValidateSenders resolves several sender names at once and lists the ones
// with no registration.
func (s *service) ValidateSenders(ctx context.Context, senderNames []string) (map[string]*models.SenderValidation, []string, error) {
	names := make([]string, 0, len(senderNames))
	seen := make(map[string]struct{}, len(senderNames))
	for _, n := range senderNames {
		n = bulk.Trim(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}

	found, err := s.repo.FindSenderValidations(ctx, names)
	if err != nil {
		return nil, nil, err
	}

	byName := make(map[string]*models.SenderValidation, len(found))
	for _, sv := range found {
		byName[sv.SenderName] = sv
	}

	var missing []string
	for _, n := range names {
		if _, ok := byName[n]; !ok {
			missing = append(missing, n)
		}
	}
	return byName, missing, nil
}

// validateOrderForAssignment checks the field set the batch API rejects
// orders on. An empty slice means the order is assignable.
func validateOrderForAssignment(o *models.MerchantOrder) []string {
	var errs []string
	if strings.TrimSpace(o.MerchantOrderID) == "" {
		errs = append(errs, "merchant_order_id missing")
	}
	if o.Weight <= 0 {
		errs = append(errs, "weight must be greater than 0")
	}
	if strings.TrimSpace(o.SenderName) == "" {
		errs = append(errs, "sender_name missing")
	}
	if strings.TrimSpace(o.SenderPhone) == "" {
		errs = append(errs, "sender_phone missing")
	}
	if strings.TrimSpace(o.ConsigneeName) == "" {
		errs = append(errs, "consignee_name missing")
	}
	if strings.TrimSpace(o.ConsigneePhone) == "" {
		errs = append(errs, "consignee_phone missing")
	}
	if strings.TrimSpace(o.DestinationCity) == "" {
		errs = append(errs, "destination_city missing")
	}
	if strings.TrimSpace(o.DestinationPostalcode) == "" {
		errs = append(errs, "destination_postalcode missing")
	}
	if strings.TrimSpace(o.DestinationAddress) == "" {
		errs = append(errs, "destination_address missing")
	}
	if o.PaymentType != models.PaymentCOD && o.PaymentType != models.PaymentNonCOD {
		errs = append(errs, "payment_type must be cod or non_cod")
	}
	return errs
}

// AssignOrders runs the assignment pipeline: validate every order, mark them
// assigned locally, then sync with the external batch API. When an active
// batch id is given the orders are added to it; any failure on that path
// falls through to creating a fresh batch. External failure after the local
// mark returns a PartialSyncError.
func (s *service) AssignOrders(ctx context.Context, project string, req AssignRequest) (*AssignResult, error) {
	if err := s.requireProject(project); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	orders, err := s.repo.FindMerchantOrdersByIDs(ctx, project, req.OrderIDs)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, repository.ErrNotFound
	}

	var invalid []OrderFieldErrors
	for _, o := range orders {
		if errs := validateOrderForAssignment(o); len(errs) > 0 {
			invalid = append(invalid, OrderFieldErrors{MerchantOrderID: o.MerchantOrderID, Errors: errs})
		}
	}
	if len(invalid) > 0 {
		return nil, &AssignmentValidationError{Invalid: invalid}
	}

	assigned, err := s.repo.MarkOrdersAssigned(ctx, project, req.OrderIDs, req.DriverID, req.DriverName, req.DriverPhone)
	if err != nil {
		return nil, err
	}

	if req.ActiveBatchID != nil {
		result, addErr := s.addToExistingBatch(ctx, project, req, orders)
		if addErr == nil {
			result.AssignedCount = assigned
			return result, nil
		}
		s.log.WithError(addErr).WithField("batchId", *req.ActiveBatchID).
			Warn("Failed to add orders to existing batch, creating a new one")
	}

	created, err := s.blitz.CreateBatchWithDriver(ctx, req.Authorization, blitz.CreateBatchRequest{
		Orders:      orders,
		DriverID:    req.DriverID,
		DriverName:  req.DriverName,
		DriverPhone: req.DriverPhone,
		Business:    req.Validation.Business,
		City:        req.Validation.City,
		ServiceType: req.Validation.ServiceType,
		HubID:       req.Validation.BusinessHub,
		Coordinates: req.Validation.Coordinates,
	})
	if err != nil {
		return nil, &PartialSyncError{AssignedCount: assigned, Err: err}
	}

	if _, err := s.repo.MarkOrdersInProgress(ctx, project, req.OrderIDs, created.BatchID); err != nil {
		return nil, &PartialSyncError{AssignedCount: assigned, Err: err}
	}

	return &AssignResult{
		AssignedCount: assigned,
		BatchID:       created.BatchID,
		AssignmentID:  created.AssignmentID,
		Uploaded:      created.Uploaded,
		UploadedCount: created.UploadedCount,
	}, nil
}

func (s *service) addToExistingBatch(ctx context.Context, project string, req AssignRequest, orders []*models.MerchantOrder) (*AssignResult, error) {
	merchantOrderIDs := make([]string, len(orders))
	for i, o := range orders {
		merchantOrderIDs[i] = o.MerchantOrderID
	}

	batchReq := blitz.BatchRequest{
		SequenceType:     1,
		BatchID:          *req.ActiveBatchID,
		MerchantOrderIDs: merchantOrderIDs,
		HubID:            req.Validation.BusinessHub,
	}
	if err := s.blitz.ValidateBatchOrders(ctx, req.Authorization, batchReq); err != nil {
		return nil, err
	}

	result, err := s.blitz.AddBatchOrders(ctx, req.Authorization, batchReq)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.MarkOrdersInProgress(ctx, project, req.OrderIDs, *req.ActiveBatchID); err != nil {
		return nil, err
	}

	return &AssignResult{
		BatchID:         *req.ActiveBatchID,
		AddedToExisting: true,
		AssignmentID:    result.AssignmentID,
	}, nil
}

func (s *service) UnassignOrder(ctx context.Context, project string, id uint) (*models.MerchantOrder, error) {
	if err := s.requireProject(project); err != nil {
		return nil, err
	}
	return s.repo.UnassignOrder(ctx, project, id)
}
