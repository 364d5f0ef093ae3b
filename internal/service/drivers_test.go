package service

import (
	"context"
	"testing"

	"example.com/fleetops/internal/bulk"
	"example.com/fleetops/internal/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func (m *MockRepository) InsertDrivers(ctx context.Context, drivers []*models.Driver) error {
	args := m.Called(ctx, drivers)
	return args.Error(0)
}

func (m *MockRepository) DeleteAllDrivers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) FindDriverNaturalKeys(ctx context.Context, values map[string][]string) (map[string][]string, error) {
	args := m.Called(ctx, values)
	return args.Get(0).(map[string][]string), args.Error(1)
}

func (m *MockRepository) FindDriverByID(ctx context.Context, id uint) (*models.Driver, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Driver), args.Error(1)
}

func (m *MockRepository) DriverFieldTaken(ctx context.Context, column, value string, excludeID uint) (bool, error) {
	args := m.Called(ctx, column, value, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) UpdateDriver(ctx context.Context, driver *models.Driver) error {
	args := m.Called(ctx, driver)
	return args.Error(0)
}

func driverRow(username, fullName, courierID string) *models.Driver {
	return &models.Driver{Username: username, FullName: fullName, CourierID: courierID}
}

func TestUploadDriversInsertsCleanBatch(t *testing.T) {
	repo := new(MockRepository)
	svc := newOrderTestService(repo, new(MockBlitzClient))

	repo.On("FindDriverNaturalKeys", mock.Anything, mock.Anything).Return(map[string][]string{}, nil)
	repo.On("InsertDrivers", mock.Anything, mock.Anything).Return(nil)

	rows := []*models.Driver{
		driverRow(" agus ", "Agus Salim", "C-1"),
		driverRow("budi", "Budi Santoso", "C-2"),
	}
	saved, err := svc.UploadDrivers(context.Background(), rows, false)

	require.NoError(t, err)
	require.Len(t, saved, 2)
	require.Equal(t, "agus", saved[0].Username)
	repo.AssertExpectations(t)
}

func TestUploadDriversRejectsPayloadDuplicates(t *testing.T) {
	repo := new(MockRepository)
	svc := newOrderTestService(repo, new(MockBlitzClient))

	repo.On("FindDriverNaturalKeys", mock.Anything, mock.Anything).Return(map[string][]string{}, nil)

	rows := []*models.Driver{
		driverRow("agus", "Agus Salim", "C-1"),
		driverRow("AGUS", "Budi Santoso", "C-2"),
	}
	_, err := svc.UploadDrivers(context.Background(), rows, false)

	var derr *bulk.DuplicateError
	require.ErrorAs(t, err, &derr)
	require.Len(t, derr.Report.InPayload, 1)
	require.Equal(t, 3, derr.Report.InPayload[0].Row)
	require.Equal(t, []string{"username"}, derr.Report.InPayload[0].DuplicateFields)
	repo.AssertNotCalled(t, "InsertDrivers", mock.Anything, mock.Anything)
}

func TestUploadDriversRejectsStoredDuplicates(t *testing.T) {
	repo := new(MockRepository)
	svc := newOrderTestService(repo, new(MockBlitzClient))

	repo.On("FindDriverNaturalKeys", mock.Anything, mock.Anything).Return(map[string][]string{
		"courier_id": {"c-9"},
	}, nil)

	_, err := svc.UploadDrivers(context.Background(), []*models.Driver{
		driverRow("agus", "Agus Salim", "C-9"),
	}, false)

	var derr *bulk.DuplicateError
	require.ErrorAs(t, err, &derr)
	require.Len(t, derr.Report.InDatabase, 1)
	require.Contains(t, derr.Report.InDatabase[0].DuplicateFields, "courier_id")
	repo.AssertNotCalled(t, "InsertDrivers", mock.Anything, mock.Anything)
}

func TestUploadDriversReplaceAllSkipsDetection(t *testing.T) {
	repo := new(MockRepository)
	svc := newOrderTestService(repo, new(MockBlitzClient))

	repo.On("DeleteAllDrivers", mock.Anything).Return(int64(5), nil)
	repo.On("InsertDrivers", mock.Anything, mock.Anything).Return(nil)

	rows := []*models.Driver{
		driverRow("agus", "Agus Salim", "C-1"),
		driverRow("agus", "Agus Salim", "C-1"),
	}
	_, err := svc.UploadDrivers(context.Background(), rows, true)

	require.NoError(t, err)
	repo.AssertNotCalled(t, "FindDriverNaturalKeys", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestUpdateDriverRejectsTakenUsername(t *testing.T) {
	repo := new(MockRepository)
	svc := newOrderTestService(repo, new(MockBlitzClient))

	repo.On("FindDriverByID", mock.Anything, uint(7)).Return(&models.Driver{
		Model:    models.Model{ID: 7},
		Username: "agus",
		FullName: "Agus Salim",
	}, nil)
	repo.On("DriverFieldTaken", mock.Anything, "username", "budi", uint(7)).Return(true, nil)

	_, err := svc.UpdateDriver(context.Background(), 7, &models.Driver{
		Username: "budi",
		FullName: "Agus Salim",
	})

	var terr *FieldTakenError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, "username", terr.Field)
	repo.AssertNotCalled(t, "UpdateDriver", mock.Anything, mock.Anything)
}
