package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"example.com/fleetops/config"
	"example.com/fleetops/internal/models"
	"example.com/fleetops/internal/repository"
	"example.com/fleetops/internal/whatsapp"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock message repository for testing
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) ReplacePhoneMessages(ctx context.Context, messages []*models.PhoneMessage) (int, error) {
	args := m.Called(ctx, messages)
	return args.Int(0), args.Error(1)
}

func (m *MockMessageRepository) ListPhoneMessages(ctx context.Context) ([]*models.PhoneMessage, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.PhoneMessage), args.Error(1)
}

func (m *MockMessageRepository) UpdatePhoneMessageStatus(ctx context.Context, id uint, status models.DeliveryStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockMessageRepository) DeleteAllPhoneMessages(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockMessageRepository) CreateMessageLog(ctx context.Context, log *models.MessageLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockMessageRepository) ProcessedPhones(ctx context.Context) (map[string]struct{}, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[string]struct{}), args.Error(1)
}

func (m *MockMessageRepository) LatestLogForPhone(ctx context.Context, normalizedPhone string) (*models.MessageLog, error) {
	args := m.Called(ctx, normalizedPhone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MessageLog), args.Error(1)
}

func (m *MockMessageRepository) ListMessageLogs(ctx context.Context, status, batchID string, limit int) ([]*models.MessageLog, error) {
	args := m.Called(ctx, status, batchID, limit)
	return args.Get(0).([]*models.MessageLog), args.Error(1)
}

func (m *MockMessageRepository) MessageLogStats(ctx context.Context, batchID string) (map[models.LogStatus]int64, string, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).(map[models.LogStatus]int64), args.String(1), args.Error(2)
}

// Mock provider client for testing
type MockWhatsAppClient struct {
	mock.Mock
}

func (m *MockWhatsAppClient) SendSeen(ctx context.Context, chatID string)    { m.Called(ctx, chatID) }
func (m *MockWhatsAppClient) StartTyping(ctx context.Context, chatID string) { m.Called(ctx, chatID) }
func (m *MockWhatsAppClient) StopTyping(ctx context.Context, chatID string)  { m.Called(ctx, chatID) }

func (m *MockWhatsAppClient) SendText(ctx context.Context, chatID, text string) (*whatsapp.SendResult, error) {
	args := m.Called(ctx, chatID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*whatsapp.SendResult), args.Error(1)
}

func (m *MockWhatsAppClient) MessageAck(ctx context.Context, messageID string) (string, error) {
	args := m.Called(ctx, messageID)
	return args.String(0), args.Error(1)
}

func newTestDispatcher(repo repository.MessageRepository, client whatsapp.Client) *Dispatcher {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	d := NewDispatcher(repo, client, config.DispatchConfig{
		BaseRetryDelay:   5 * time.Second,
		MessagesPerBatch: 20,
		UnsafeMaxPending: 50,
	}, log)

	// Collapse all pacing so batches run instantly.
	d.sleep = func(time.Duration) {}
	d.randDur = func(min, max time.Duration) time.Duration { return min }
	d.now = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	return d
}

func expectPresence(client *MockWhatsAppClient) {
	client.On("SendSeen", mock.Anything, mock.Anything).Return()
	client.On("StartTyping", mock.Anything, mock.Anything).Return()
	client.On("StopTyping", mock.Anything, mock.Anything).Return()
}

func queuedMessage(id uint, phone, text string) *models.PhoneMessage {
	return &models.PhoneMessage{
		Model:          models.Model{ID: id},
		Phone:          phone,
		Message:        text,
		DeliveryStatus: models.DeliveryPending,
	}
}

func TestRunSendsPendingAndSkipsProcessedPhones(t *testing.T) {
	repo := new(MockMessageRepository)
	client := new(MockWhatsAppClient)

	// 08123... normalizes to 628123..., which already has an outcome.
	repo.On("ProcessedPhones", mock.Anything).Return(map[string]struct{}{
		"628123456789": {},
	}, nil)
	repo.On("ListPhoneMessages", mock.Anything).Return([]*models.PhoneMessage{
		queuedMessage(1, "08123456789", "hello"),
		queuedMessage(2, "08111111111", "hi there"),
	}, nil)
	repo.On("LatestLogForPhone", mock.Anything, "628111111111").Return(nil, repository.ErrNotFound)
	repo.On("CreateMessageLog", mock.Anything, mock.AnythingOfType("*models.MessageLog")).Return(nil)
	repo.On("UpdatePhoneMessageStatus", mock.Anything, uint(2), models.DeliverySent).Return(nil)

	expectPresence(client)
	client.On("SendText", mock.Anything, "628111111111@c.us", "hi there").
		Return(&whatsapp.SendResult{MessageID: "msg-1"}, nil)
	client.On("MessageAck", mock.Anything, "msg-1").Return("delivered", nil)

	d := newTestDispatcher(repo, client)
	summary, err := d.Run(context.Background(), Options{SafeMode: true, MessagesPerBatch: 20}, func(Progress) {})

	require.NoError(t, err)
	require.Equal(t, 1, summary.Total)
	require.Equal(t, 1, summary.Success)
	require.Equal(t, 0, summary.Failed)
	require.Equal(t, 0, summary.Skipped)
	require.False(t, summary.Aborted)
	client.AssertNotCalled(t, "SendText", mock.Anything, "628123456789@c.us", mock.Anything)
	repo.AssertExpectations(t)
}

func TestRunSkipsPhoneWithExistingLog(t *testing.T) {
	repo := new(MockMessageRepository)
	client := new(MockWhatsAppClient)

	repo.On("ProcessedPhones", mock.Anything).Return(map[string]struct{}{}, nil)
	repo.On("ListPhoneMessages", mock.Anything).Return([]*models.PhoneMessage{
		queuedMessage(1, "628555000111", "hello"),
	}, nil)
	repo.On("LatestLogForPhone", mock.Anything, "628555000111").Return(&models.MessageLog{
		NormalizedPhone: "628555000111",
		Status:          models.LogSuccess,
	}, nil)

	var skipped Progress
	d := newTestDispatcher(repo, client)
	summary, err := d.Run(context.Background(), Options{SafeMode: true}, func(p Progress) {
		if p.Status == "skipped" {
			skipped = p
		}
	})

	require.NoError(t, err)
	require.Equal(t, 1, summary.Skipped)
	require.Equal(t, 0, summary.Success)
	require.Equal(t, "Already sent successfully", skipped.Message)
	client.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunAbortsBatchWhenSessionUnauthorized(t *testing.T) {
	repo := new(MockMessageRepository)
	client := new(MockWhatsAppClient)

	repo.On("ProcessedPhones", mock.Anything).Return(map[string]struct{}{}, nil)
	repo.On("ListPhoneMessages", mock.Anything).Return([]*models.PhoneMessage{
		queuedMessage(1, "628111", "first"),
		queuedMessage(2, "628222", "second"),
	}, nil)
	repo.On("LatestLogForPhone", mock.Anything, "628111").Return(nil, repository.ErrNotFound)
	repo.On("CreateMessageLog", mock.Anything, mock.AnythingOfType("*models.MessageLog")).Return(nil)
	repo.On("UpdatePhoneMessageStatus", mock.Anything, uint(1), models.DeliveryFailed).Return(nil)

	expectPresence(client)
	client.On("SendText", mock.Anything, "628111@c.us", "first").Return(nil, &whatsapp.SendError{
		StatusCode:   401,
		Code:         "SESSION_UNAUTHORIZED",
		Message:      "WhatsApp session not authenticated. Please scan QR code.",
		Unauthorized: true,
	})

	var stop Progress
	d := newTestDispatcher(repo, client)
	summary, err := d.Run(context.Background(), Options{SafeMode: true}, func(p Progress) {
		if p.StopBatch {
			stop = p
		}
	})

	require.NoError(t, err)
	require.True(t, summary.Aborted)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 0, summary.Success)
	require.True(t, stop.StopBatch)
	require.Equal(t, "error", stop.Type)

	// The second contact stays pending for the next batch.
	client.AssertNotCalled(t, "SendText", mock.Anything, "628222@c.us", mock.Anything)
	repo.AssertNotCalled(t, "UpdatePhoneMessageStatus", mock.Anything, uint(2), mock.Anything)
}

func TestRunSafeModeCapsBatchSize(t *testing.T) {
	repo := new(MockMessageRepository)
	client := new(MockWhatsAppClient)

	repo.On("ProcessedPhones", mock.Anything).Return(map[string]struct{}{}, nil)
	repo.On("ListPhoneMessages", mock.Anything).Return([]*models.PhoneMessage{
		queuedMessage(1, "628001", "a"),
		queuedMessage(2, "628002", "b"),
		queuedMessage(3, "628003", "c"),
	}, nil)
	repo.On("LatestLogForPhone", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	repo.On("CreateMessageLog", mock.Anything, mock.AnythingOfType("*models.MessageLog")).Return(nil)
	repo.On("UpdatePhoneMessageStatus", mock.Anything, mock.Anything, models.DeliverySent).Return(nil)

	expectPresence(client)
	client.On("SendText", mock.Anything, mock.Anything, mock.Anything).
		Return(&whatsapp.SendResult{MessageID: "msg"}, nil)
	client.On("MessageAck", mock.Anything, "msg").Return("delivered", nil)

	d := newTestDispatcher(repo, client)
	summary, err := d.Run(context.Background(), Options{SafeMode: true, MessagesPerBatch: 2}, func(Progress) {})

	require.NoError(t, err)
	require.Equal(t, 2, summary.Total)
	require.Equal(t, 2, summary.Success)
	require.Equal(t, 1, summary.Remaining)
	require.Equal(t, summary.Total, summary.Success+summary.Failed+summary.Skipped)
	client.AssertNumberOfCalls(t, "SendText", 2)
}

func TestRunNoPendingMessages(t *testing.T) {
	repo := new(MockMessageRepository)
	client := new(MockWhatsAppClient)

	repo.On("ProcessedPhones", mock.Anything).Return(map[string]struct{}{
		"628999": {},
	}, nil)
	repo.On("ListPhoneMessages", mock.Anything).Return([]*models.PhoneMessage{
		queuedMessage(1, "628999", "hello"),
	}, nil)

	d := newTestDispatcher(repo, client)
	_, err := d.Run(context.Background(), Options{SafeMode: true}, func(Progress) {})

	require.ErrorIs(t, err, ErrNoPending)
}

func TestRunUnsafeModeBlockedForBulk(t *testing.T) {
	repo := new(MockMessageRepository)
	client := new(MockWhatsAppClient)

	pending := make([]*models.PhoneMessage, 51)
	for i := range pending {
		pending[i] = queuedMessage(uint(i+1), fmt.Sprintf("62811%06d", i), "hi")
	}
	repo.On("ProcessedPhones", mock.Anything).Return(map[string]struct{}{}, nil)
	repo.On("ListPhoneMessages", mock.Anything).Return(pending, nil)

	d := newTestDispatcher(repo, client)
	_, err := d.Run(context.Background(), Options{SafeMode: false}, func(Progress) {})

	require.ErrorIs(t, err, ErrUnsafeBulk)
	client.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunRetriesTransientFailure(t *testing.T) {
	repo := new(MockMessageRepository)
	client := new(MockWhatsAppClient)

	repo.On("ProcessedPhones", mock.Anything).Return(map[string]struct{}{}, nil)
	repo.On("ListPhoneMessages", mock.Anything).Return([]*models.PhoneMessage{
		queuedMessage(1, "628777", "retry me"),
	}, nil)
	repo.On("LatestLogForPhone", mock.Anything, "628777").Return(nil, repository.ErrNotFound)
	repo.On("CreateMessageLog", mock.Anything, mock.AnythingOfType("*models.MessageLog")).Return(nil)
	repo.On("UpdatePhoneMessageStatus", mock.Anything, uint(1), models.DeliverySent).Return(nil)

	expectPresence(client)
	client.On("SendText", mock.Anything, "628777@c.us", "retry me").Return(nil, &whatsapp.SendError{
		StatusCode: 500,
		Code:       "500",
		Message:    "internal error",
		Retryable:  true,
	}).Once()
	client.On("SendText", mock.Anything, "628777@c.us", "retry me").
		Return(&whatsapp.SendResult{MessageID: "msg-2"}, nil).Once()
	client.On("MessageAck", mock.Anything, "msg-2").Return("delivered", nil)

	d := newTestDispatcher(repo, client)
	summary, err := d.Run(context.Background(), Options{SafeMode: true}, func(Progress) {})

	require.NoError(t, err)
	require.Equal(t, 1, summary.Success)
	require.Equal(t, 0, summary.Failed)
	client.AssertNumberOfCalls(t, "SendText", 2)
}

func TestProgressMarshalKeepsZeroCounters(t *testing.T) {
	sending := Progress{
		Type:      "progress",
		Phone:     "628123456789",
		Status:    "sending",
		Processed: 0,
		Total:     3,
	}

	line, err := json.Marshal(sending)
	require.NoError(t, err)

	body := string(line)
	require.Contains(t, body, `"processed":0`)
	require.Contains(t, body, `"successCount":0`)
	require.Contains(t, body, `"failedCount":0`)
	require.Contains(t, body, `"skippedCount":0`)
	require.Contains(t, body, `"remainingMessages":0`)
}

func TestRunCustomMessageOverridesQueue(t *testing.T) {
	repo := new(MockMessageRepository)
	client := new(MockWhatsAppClient)

	repo.On("ProcessedPhones", mock.Anything).Return(map[string]struct{}{}, nil)
	repo.On("ListPhoneMessages", mock.Anything).Return([]*models.PhoneMessage{
		queuedMessage(1, "628666", "original text"),
	}, nil)
	repo.On("LatestLogForPhone", mock.Anything, "628666").Return(nil, repository.ErrNotFound)
	repo.On("CreateMessageLog", mock.Anything, mock.MatchedBy(func(row *models.MessageLog) bool {
		return row.Message == "broadcast override"
	})).Return(nil)
	repo.On("UpdatePhoneMessageStatus", mock.Anything, uint(1), models.DeliverySent).Return(nil)

	expectPresence(client)
	client.On("SendText", mock.Anything, "628666@c.us", "broadcast override").
		Return(&whatsapp.SendResult{MessageID: "msg-3"}, nil)
	client.On("MessageAck", mock.Anything, "msg-3").Return("delivered", nil)

	d := newTestDispatcher(repo, client)
	summary, err := d.Run(context.Background(), Options{SafeMode: true, CustomMessage: "broadcast override"}, func(Progress) {})

	require.NoError(t, err)
	require.Equal(t, 1, summary.Success)
	repo.AssertExpectations(t)
}
