package whatsapp

import (
	"context"
	"net/http"
	"net/url"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyTransportErrorConnectionReset(t *testing.T) {
	err := &url.Error{
		Op:  "Post",
		URL: "http://provider/api/sendText",
		Err: syscall.ECONNRESET,
	}

	se := classifyTransportError(err)

	require.True(t, se.Retryable)
	require.Equal(t, "NETWORK_ERROR", se.Code)
	require.False(t, se.Unauthorized)
}

func TestClassifyTransportErrorTimeout(t *testing.T) {
	err := &url.Error{
		Op:  "Post",
		URL: "http://provider/api/sendText",
		Err: context.DeadlineExceeded,
	}

	se := classifyTransportError(err)

	require.True(t, se.Retryable)
	require.Equal(t, "TIMEOUT", se.Code)
}

func TestClassifyTransportErrorPlainFailure(t *testing.T) {
	err := &url.Error{
		Op:  "Post",
		URL: "http://provider/api/sendText",
		Err: syscall.EPIPE,
	}

	se := classifyTransportError(err)

	require.False(t, se.Retryable)
	require.Equal(t, "NETWORK_ERROR", se.Code)
}

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		status        int
		message       string
		wantCode      string
		retryable     bool
		notRegistered bool
		unauthorized  bool
	}{
		{http.StatusNotFound, "", "NOT_REGISTERED", false, true, false},
		{http.StatusBadRequest, "jid not found", "NOT_REGISTERED", false, true, false},
		{http.StatusUnauthorized, "", "SESSION_UNAUTHORIZED", false, false, true},
		{http.StatusForbidden, "", "SESSION_UNAUTHORIZED", false, false, true},
		{http.StatusTooManyRequests, "slow down", "429", true, false, false},
		{http.StatusInternalServerError, "", "500", true, false, false},
		{http.StatusBadRequest, "bad payload", "400", false, false, false},
	}

	for _, tc := range cases {
		se := classifyStatus(tc.status, tc.message)
		require.Equal(t, tc.wantCode, se.Code, "status %d", tc.status)
		require.Equal(t, tc.retryable, se.Retryable, "status %d", tc.status)
		require.Equal(t, tc.notRegistered, se.NotRegistered, "status %d", tc.status)
		require.Equal(t, tc.unauthorized, se.Unauthorized, "status %d", tc.status)
	}
}
