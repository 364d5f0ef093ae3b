package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"

	"example.com/fleetops/config"

	pkgerrors "github.com/pkg/errors"
)

// SendResult carries the outcome of a successful text send.
type SendResult struct {
	MessageID      string
	Verified       bool
	DeliveryStatus string
}

// SendError describes a failed provider call with enough detail for the
// dispatcher to decide between retrying, failing the phone, or aborting
// the whole batch.
type SendError struct {
	StatusCode    int
	Code          string
	Message       string
	Retryable     bool
	NotRegistered bool
	Unauthorized  bool
}

func (e *SendError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Client is the outbound messaging provider surface used by the dispatcher.
// Presence calls are best effort and must not fail a send.
type Client interface {
	SendSeen(ctx context.Context, chatID string)
	StartTyping(ctx context.Context, chatID string)
	StopTyping(ctx context.Context, chatID string)
	SendText(ctx context.Context, chatID, text string) (*SendResult, error)
	MessageAck(ctx context.Context, messageID string) (string, error)
}

type httpClient struct {
	cfg  config.WhatsAppConfig
	http *http.Client
}

// NewClient creates an HTTP provider client from config.
func NewClient(cfg config.WhatsAppConfig) Client {
	return &httpClient{
		cfg:  cfg,
		http: &http.Client{},
	}
}

func (c *httpClient) presence(ctx context.Context, endpoint, chatID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.PresenceTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{
		"chatId":  chatID,
		"session": c.cfg.Session,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrapf(err, "presence call %s failed", endpoint)
	}
	resp.Body.Close()
	return nil
}

// SendSeen marks the chat as read. Failures are swallowed.
func (c *httpClient) SendSeen(ctx context.Context, chatID string) {
	_ = c.presence(ctx, "/api/sendSeen", chatID)
}

// StartTyping shows the typing indicator. Failures are swallowed.
func (c *httpClient) StartTyping(ctx context.Context, chatID string) {
	_ = c.presence(ctx, "/api/startTyping", chatID)
}

// StopTyping clears the typing indicator. Failures are swallowed.
func (c *httpClient) StopTyping(ctx context.Context, chatID string) {
	_ = c.presence(ctx, "/api/stopTyping", chatID)
}

type sendTextResponse struct {
	ID        json.RawMessage `json:"id"`
	MessageID json.RawMessage `json:"messageId"`
	Message   string          `json:"message"`
	Err       string          `json:"error"`
}

// SendText delivers one text message. On failure it returns a *SendError
// classifying the outcome.
func (c *httpClient) SendText(ctx context.Context, chatID, text string) (*SendResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.SendTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{
		"chatId":  chatID,
		"text":    text,
		"session": c.cfg.Session,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/sendText", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	var parsed sendTextResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	if decodeErr != nil {
		// A 2xx with an unparseable body still counts as sent.
		if ok {
			return &SendResult{MessageID: "unknown", DeliveryStatus: "unknown"}, nil
		}
		return nil, &SendError{
			StatusCode: resp.StatusCode,
			Code:       strconv.Itoa(resp.StatusCode),
			Message:    fmt.Sprintf("response parse error: %v", decodeErr),
			Retryable:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		}
	}

	messageID := flattenMessageID(parsed.ID)
	if messageID == "" {
		messageID = flattenMessageID(parsed.MessageID)
	}

	if ok || messageID != "" {
		if messageID == "" {
			messageID = "unknown"
		}
		return &SendResult{MessageID: messageID}, nil
	}

	return nil, classifyStatus(resp.StatusCode, firstNonEmpty(parsed.Message, parsed.Err))
}

// MessageAck polls the provider for the delivery acknowledgment of a sent
// message.
func (c *httpClient) MessageAck(ctx context.Context, messageID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.PresenceTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/messages/"+messageID, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(err, "message ack lookup failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("message ack lookup returned HTTP %d", resp.StatusCode)
	}

	var payload struct {
		Ack    json.RawMessage `json:"ack"`
		Status string          `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", pkgerrors.Wrap(err, "message ack parse failed")
	}

	if len(payload.Ack) > 0 {
		return strings.Trim(string(payload.Ack), `"`), nil
	}
	if payload.Status != "" {
		return payload.Status, nil
	}
	return "unknown", nil
}

// flattenMessageID accepts either a plain string id or a provider object
// with an id/_serialized member.
func flattenMessageID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj struct {
		ID         string `json:"id"`
		Serialized string `json:"_serialized"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.ID != "" {
			return obj.ID
		}
		if obj.Serialized != "" {
			return obj.Serialized
		}
	}
	return string(raw)
}

func classifyStatus(status int, message string) *SendError {
	lower := strings.ToLower(message)
	notRegistered := status == http.StatusNotFound ||
		strings.Contains(lower, "participant not found") ||
		strings.Contains(lower, "jid not found") ||
		strings.Contains(lower, "not exists")

	if notRegistered {
		return &SendError{
			StatusCode:    status,
			Code:          "NOT_REGISTERED",
			Message:       "Number not registered on WhatsApp",
			NotRegistered: true,
		}
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &SendError{
			StatusCode:   status,
			Code:         "SESSION_UNAUTHORIZED",
			Message:      "WhatsApp session not authenticated. Please scan QR code.",
			Unauthorized: true,
		}
	}

	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	return &SendError{
		StatusCode: status,
		Code:       strconv.Itoa(status),
		Message:    message,
		Retryable:  status >= 500 || status == http.StatusTooManyRequests,
	}
}

func classifyTransportError(err error) *SendError {
	code := "NETWORK_ERROR"
	retryable := false

	var netErr net.Error
	if (pkgerrors.As(err, &netErr) && netErr.Timeout()) || pkgerrors.Is(err, context.DeadlineExceeded) {
		code = "TIMEOUT"
		retryable = true
	}

	// A reset connection is as transient as a timeout; the next attempt
	// gets a fresh one.
	if pkgerrors.Is(err, syscall.ECONNRESET) || pkgerrors.Is(err, syscall.ECONNREFUSED) {
		retryable = true
	}

	return &SendError{
		Code:      code,
		Message:   err.Error(),
		Retryable: retryable,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
