package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"example.com/fleetops/internal/dispatch"
	"example.com/fleetops/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockService provides only the message methods under test. The embedded
// interface panics on anything unexpected.
type MockService struct {
	mock.Mock
	service.Service
}

func (m *MockService) SendMessages(ctx context.Context, opts dispatch.Options, emit dispatch.Emitter) (*dispatch.Summary, error) {
	args := m.Called(ctx, opts, emit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispatch.Summary), args.Error(1)
}

func newMessageTestRouter(svc service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	r := gin.New()
	h := NewMessageHandler(svc, log)
	r.POST("/send", h.SendMessages)
	return r
}

func TestSendMessagesBatchSurvivesClientDisconnect(t *testing.T) {
	svc := new(MockService)

	reqCtx, cancel := context.WithCancel(context.Background())
	var batchCtx context.Context
	svc.On("SendMessages", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			batchCtx = args.Get(0).(context.Context)
			emit := args.Get(2).(dispatch.Emitter)
			emit(dispatch.Progress{Type: "start", Total: 2})

			// The client goes away mid-batch.
			cancel()
			require.NoError(t, batchCtx.Err())
		}).
		Return(&dispatch.Summary{Total: 2, Success: 2}, nil)

	r := newMessageTestRouter(svc)
	req := httptest.NewRequest(http.MethodPost, "/send", nil).WithContext(reqCtx)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, batchCtx.Err())
	require.ErrorIs(t, reqCtx.Err(), context.Canceled)
	svc.AssertExpectations(t)
}

func TestSendMessagesDefaultsAndStreaming(t *testing.T) {
	svc := new(MockService)

	svc.On("SendMessages", mock.Anything, mock.MatchedBy(func(opts dispatch.Options) bool {
		return opts.SafeMode && opts.MessagesPerBatch == 20
	}), mock.Anything).
		Run(func(args mock.Arguments) {
			emit := args.Get(2).(dispatch.Emitter)
			emit(dispatch.Progress{Type: "start", Total: 1})
			emit(dispatch.Progress{Type: "complete", Total: 1, SuccessCount: 1})
		}).
		Return(&dispatch.Summary{Total: 1, Success: 1}, nil)

	r := newMessageTestRouter(svc)
	req := httptest.NewRequest(http.MethodPost, "/send", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"type":"start"`)
	require.Contains(t, lines[1], `"type":"complete"`)
	svc.AssertExpectations(t)
}

func TestSendMessagesErrorBeforeStreamIsAnEnvelope(t *testing.T) {
	svc := new(MockService)
	svc.On("SendMessages", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, dispatch.ErrNoPending)

	r := newMessageTestRouter(svc)
	req := httptest.NewRequest(http.MethodPost, "/send", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), `"success":false`)
}
