package service

import (
	"context"
	"errors"
	"testing"

	"example.com/fleetops/config"
	"example.com/fleetops/internal/blitz"
	"example.com/fleetops/internal/messaging"
	"example.com/fleetops/internal/models"
	"example.com/fleetops/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepository provides only the order methods under test. The embedded
// interface panics on anything unexpected.
type MockRepository struct {
	mock.Mock
	repository.Repository
}

func (m *MockRepository) FindMerchantOrdersByIDs(ctx context.Context, project string, ids []uint) ([]*models.MerchantOrder, error) {
	args := m.Called(ctx, project, ids)
	return args.Get(0).([]*models.MerchantOrder), args.Error(1)
}

func (m *MockRepository) MarkOrdersAssigned(ctx context.Context, project string, ids []uint, driverID, driverName, driverPhone string) (int64, error) {
	args := m.Called(ctx, project, ids, driverID, driverName, driverPhone)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) MarkOrdersInProgress(ctx context.Context, project string, ids []uint, batchID int64) (int64, error) {
	args := m.Called(ctx, project, ids, batchID)
	return args.Get(0).(int64), args.Error(1)
}

// Mock batch API client for testing
type MockBlitzClient struct {
	mock.Mock
}

func (m *MockBlitzClient) ValidateBatchOrders(ctx context.Context, authorization string, req blitz.BatchRequest) error {
	args := m.Called(ctx, authorization, req)
	return args.Error(0)
}

func (m *MockBlitzClient) AddBatchOrders(ctx context.Context, authorization string, req blitz.BatchRequest) (*blitz.BatchResult, error) {
	args := m.Called(ctx, authorization, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blitz.BatchResult), args.Error(1)
}

func (m *MockBlitzClient) CreateBatchWithDriver(ctx context.Context, authorization string, req blitz.CreateBatchRequest) (*blitz.CreateBatchResult, error) {
	args := m.Called(ctx, authorization, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blitz.CreateBatchResult), args.Error(1)
}

func newOrderTestService(repo repository.Repository, blitzClient blitz.Client) Service {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	bus, _ := messaging.NewServiceBusClient(config.ServiceBusConfig{}, "test")
	return NewService(repo, bus, blitzClient, nil, nil, config.ProjectsConfig{Allowed: []string{"pms"}}, log)
}

func assignableOrder(id uint, merchantOrderID string) *models.MerchantOrder {
	return &models.MerchantOrder{
		Model:                 models.Model{ID: id},
		Project:               "pms",
		MerchantOrderID:       merchantOrderID,
		Weight:                1.5,
		PaymentType:           models.PaymentNonCOD,
		SenderName:            "Toko Maju",
		SenderPhone:           "0811111111",
		ConsigneeName:         "Budi",
		ConsigneePhone:        "0822222222",
		DestinationCity:       "Jakarta",
		DestinationPostalcode: "12345",
		DestinationAddress:    "Jl. Sudirman No. 1",
	}
}

func validAssignRequest(ids ...uint) AssignRequest {
	return AssignRequest{
		OrderIDs:    ids,
		DriverID:    "drv-1",
		DriverName:  "Agus",
		DriverPhone: "0833333333",
		Validation: &AssignValidation{
			Business:    10,
			City:        20,
			ServiceType: 30,
			BusinessHub: 40,
		},
		Authorization: "Bearer token",
	}
}

func TestAssignOrdersCreatesNewBatch(t *testing.T) {
	repo := new(MockRepository)
	blitzClient := new(MockBlitzClient)

	orders := []*models.MerchantOrder{assignableOrder(1, "MO-1"), assignableOrder(2, "MO-2")}
	repo.On("FindMerchantOrdersByIDs", mock.Anything, "pms", []uint{1, 2}).Return(orders, nil)
	repo.On("MarkOrdersAssigned", mock.Anything, "pms", []uint{1, 2}, "drv-1", "Agus", "0833333333").Return(int64(2), nil)
	repo.On("MarkOrdersInProgress", mock.Anything, "pms", []uint{1, 2}, int64(777)).Return(int64(2), nil)

	blitzClient.On("CreateBatchWithDriver", mock.Anything, "Bearer token", mock.MatchedBy(func(req blitz.CreateBatchRequest) bool {
		return req.HubID == 40 && len(req.Orders) == 2 && req.DriverID == "drv-1"
	})).Return(&blitz.CreateBatchResult{BatchID: 777, AssignmentID: "as-1", Uploaded: true, UploadedCount: 2}, nil)

	svc := newOrderTestService(repo, blitzClient)
	result, err := svc.AssignOrders(context.Background(), "pms", validAssignRequest(1, 2))

	require.NoError(t, err)
	require.Equal(t, int64(2), result.AssignedCount)
	require.Equal(t, int64(777), result.BatchID)
	require.False(t, result.AddedToExisting)
	require.Equal(t, "as-1", result.AssignmentID)
	repo.AssertExpectations(t)
	blitzClient.AssertExpectations(t)
}

func TestAssignOrdersRejectsInvalidOrdersBeforeMarking(t *testing.T) {
	repo := new(MockRepository)
	blitzClient := new(MockBlitzClient)

	broken := assignableOrder(1, "MO-1")
	broken.Weight = 0
	broken.ConsigneePhone = ""
	repo.On("FindMerchantOrdersByIDs", mock.Anything, "pms", []uint{1, 2}).
		Return([]*models.MerchantOrder{broken, assignableOrder(2, "MO-2")}, nil)

	svc := newOrderTestService(repo, blitzClient)
	_, err := svc.AssignOrders(context.Background(), "pms", validAssignRequest(1, 2))

	var verr *AssignmentValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Invalid, 1)
	require.Equal(t, "MO-1", verr.Invalid[0].MerchantOrderID)
	require.Contains(t, verr.Invalid[0].Errors, "weight must be greater than 0")
	require.Contains(t, verr.Invalid[0].Errors, "consignee_phone missing")

	// One bad order rejects the whole batch before any write.
	repo.AssertNotCalled(t, "MarkOrdersAssigned", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	blitzClient.AssertNotCalled(t, "CreateBatchWithDriver", mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignOrdersAddsToActiveBatch(t *testing.T) {
	repo := new(MockRepository)
	blitzClient := new(MockBlitzClient)

	orders := []*models.MerchantOrder{assignableOrder(1, "MO-1")}
	repo.On("FindMerchantOrdersByIDs", mock.Anything, "pms", []uint{1}).Return(orders, nil)
	repo.On("MarkOrdersAssigned", mock.Anything, "pms", []uint{1}, "drv-1", "Agus", "0833333333").Return(int64(1), nil)
	repo.On("MarkOrdersInProgress", mock.Anything, "pms", []uint{1}, int64(555)).Return(int64(1), nil)

	wantBatch := blitz.BatchRequest{
		SequenceType:     1,
		BatchID:          555,
		MerchantOrderIDs: []string{"MO-1"},
		HubID:            40,
	}
	blitzClient.On("ValidateBatchOrders", mock.Anything, "Bearer token", wantBatch).Return(nil)
	blitzClient.On("AddBatchOrders", mock.Anything, "Bearer token", wantBatch).Return(&blitz.BatchResult{AssignmentID: "as-5"}, nil)

	req := validAssignRequest(1)
	active := int64(555)
	req.ActiveBatchID = &active

	svc := newOrderTestService(repo, blitzClient)
	result, err := svc.AssignOrders(context.Background(), "pms", req)

	require.NoError(t, err)
	require.True(t, result.AddedToExisting)
	require.Equal(t, int64(555), result.BatchID)
	require.Equal(t, int64(1), result.AssignedCount)
	blitzClient.AssertNotCalled(t, "CreateBatchWithDriver", mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignOrdersFallsBackToNewBatchWhenActiveBatchFails(t *testing.T) {
	repo := new(MockRepository)
	blitzClient := new(MockBlitzClient)

	orders := []*models.MerchantOrder{assignableOrder(1, "MO-1")}
	repo.On("FindMerchantOrdersByIDs", mock.Anything, "pms", []uint{1}).Return(orders, nil)
	repo.On("MarkOrdersAssigned", mock.Anything, "pms", []uint{1}, "drv-1", "Agus", "0833333333").Return(int64(1), nil)
	repo.On("MarkOrdersInProgress", mock.Anything, "pms", []uint{1}, int64(999)).Return(int64(1), nil)

	blitzClient.On("ValidateBatchOrders", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("batch is already dispatched"))
	blitzClient.On("CreateBatchWithDriver", mock.Anything, "Bearer token", mock.Anything).
		Return(&blitz.CreateBatchResult{BatchID: 999}, nil)

	req := validAssignRequest(1)
	active := int64(555)
	req.ActiveBatchID = &active

	svc := newOrderTestService(repo, blitzClient)
	result, err := svc.AssignOrders(context.Background(), "pms", req)

	require.NoError(t, err)
	require.False(t, result.AddedToExisting)
	require.Equal(t, int64(999), result.BatchID)
	blitzClient.AssertNotCalled(t, "AddBatchOrders", mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignOrdersPartialSyncWhenBatchCreationFails(t *testing.T) {
	repo := new(MockRepository)
	blitzClient := new(MockBlitzClient)

	orders := []*models.MerchantOrder{assignableOrder(1, "MO-1")}
	repo.On("FindMerchantOrdersByIDs", mock.Anything, "pms", []uint{1}).Return(orders, nil)
	repo.On("MarkOrdersAssigned", mock.Anything, "pms", []uint{1}, "drv-1", "Agus", "0833333333").Return(int64(1), nil)

	blitzClient.On("CreateBatchWithDriver", mock.Anything, "Bearer token", mock.Anything).
		Return(nil, errors.New("batch api unavailable"))

	svc := newOrderTestService(repo, blitzClient)
	_, err := svc.AssignOrders(context.Background(), "pms", validAssignRequest(1))

	var perr *PartialSyncError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, int64(1), perr.AssignedCount)
	repo.AssertNotCalled(t, "MarkOrdersInProgress", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignOrdersUnknownOrderIDs(t *testing.T) {
	repo := new(MockRepository)
	blitzClient := new(MockBlitzClient)

	repo.On("FindMerchantOrdersByIDs", mock.Anything, "pms", []uint{42}).
		Return([]*models.MerchantOrder{}, nil)

	svc := newOrderTestService(repo, blitzClient)
	_, err := svc.AssignOrders(context.Background(), "pms", validAssignRequest(42))

	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAssignOrdersRejectsUnknownProject(t *testing.T) {
	repo := new(MockRepository)
	svc := newOrderTestService(repo, new(MockBlitzClient))

	_, err := svc.AssignOrders(context.Background(), "warehouse", validAssignRequest(1))

	var uerr *UnknownProjectError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, "warehouse", uerr.Project)
	repo.AssertNotCalled(t, "FindMerchantOrdersByIDs", mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignOrdersRejectsIncompleteRequest(t *testing.T) {
	repo := new(MockRepository)
	svc := newOrderTestService(repo, new(MockBlitzClient))

	req := validAssignRequest(1)
	req.Validation = nil

	_, err := svc.AssignOrders(context.Background(), "pms", req)

	require.Error(t, err)
	repo.AssertNotCalled(t, "FindMerchantOrdersByIDs", mock.Anything, mock.Anything, mock.Anything)
}
