package service

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"example.com/fleetops/internal/dispatch"
	"example.com/fleetops/internal/excel"
	"example.com/fleetops/internal/messaging"
	"example.com/fleetops/internal/models"

	"github.com/xuri/excelize/v2"
)

// ErrEmptySheet is returned when an uploaded workbook holds no usable
// phone/message pairs.
var ErrEmptySheet = errors.New("no valid phone and message data found")

// MessageStatistics aggregates the attempt log, optionally per batch.
type MessageStatistics struct {
	Total         int64  `json:"total"`
	Success       int64  `json:"success"`
	Failed        int64  `json:"failed"`
	LatestBatchID string `json:"latestBatchId,omitempty"`
}

// UploadMessages loads a workbook of phone/message pairs as the new send
// queue. Loading replaces the previous queue and clears the attempt log.
func (s *service) UploadMessages(ctx context.Context, file io.Reader) (int, error) {
	rows, err := excel.ParseSheet(file)
	if err != nil {
		return 0, err
	}

	var messages []*models.PhoneMessage
	for _, row := range rows {
		phone := firstOf(row, "phone", "Phone")
		message := firstOf(row, "message", "Message")
		if phone == "" || message == "" {
			continue
		}
		messages = append(messages, &models.PhoneMessage{
			Phone:          phone,
			Message:        message,
			DeliveryStatus: models.DeliveryPending,
		})
	}
	if len(messages) == 0 {
		return 0, ErrEmptySheet
	}

	count, err := s.repo.ReplacePhoneMessages(ctx, messages)
	if err != nil {
		return 0, err
	}

	s.log.WithField("count", count).Info("Message queue replaced")
	return count, nil
}

func firstOf(row map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := row[k]; v != "" {
			return v
		}
	}
	return ""
}

func (s *service) ListMessages(ctx context.Context) ([]*models.PhoneMessage, error) {
	return s.repo.ListPhoneMessages(ctx)
}

func (s *service) DeleteAllMessages(ctx context.Context) error {
	return s.repo.DeleteAllPhoneMessages(ctx)
}

// SendMessages runs one dispatch batch, streaming progress through emit,
// and publishes a summary event afterwards.
func (s *service) SendMessages(ctx context.Context, opts dispatch.Options, emit dispatch.Emitter) (*dispatch.Summary, error) {
	summary, err := s.dispatcher.Run(ctx, opts, emit)
	if err != nil {
		return nil, err
	}

	s.publishAudit(ctx, messaging.DispatchEvent{
		BatchID:    summary.BatchID,
		Total:      summary.Total,
		Sent:       summary.Success,
		Failed:     summary.Failed,
		Skipped:    summary.Skipped,
		Aborted:    summary.Aborted,
		FinishedAt: time.Now().UTC().Format(time.RFC3339),
	}, "dispatch-"+summary.BatchID)

	return summary, nil
}

// MessageLogs lists recent attempt log rows, newest first. A status of
// "all" or empty means no status filter.
func (s *service) MessageLogs(ctx context.Context, status, batchID string) ([]*models.MessageLog, error) {
	if status == "all" {
		status = ""
	}
	return s.repo.ListMessageLogs(ctx, status, batchID, 1000)
}

var messageLogColumns = []excel.Column{
	{Header: "Phone Number", Field: "phone"},
	{Header: "Normalized Phone", Field: "normalizedPhone"},
	{Header: "Message", Field: "message"},
	{Header: "Status", Field: "status"},
	{Header: "Attempts", Field: "attempts"},
	{Header: "WhatsApp Registered", Field: "whatsappRegistered"},
	{Header: "Error Message", Field: "errorMessage"},
	{Header: "Error Code", Field: "errorCode"},
	{Header: "Last Attempt", Field: "lastAttempt"},
	{Header: "Success Time", Field: "successTime"},
	{Header: "Batch ID", Field: "batchId"},
	{Header: "Message ID", Field: "messageId"},
	{Header: "Delivery Status", Field: "deliveryStatus"},
}

// ExportMessageLogs renders the attempt log into a workbook, optionally
// scoped to one batch.
func (s *service) ExportMessageLogs(ctx context.Context, batchID string) (*excelize.File, error) {
	logs, err := s.repo.ListMessageLogs(ctx, "", batchID, 0)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, len(logs))
	for i, l := range logs {
		registered := "Unknown"
		if l.WhatsAppRegistered != nil {
			if *l.WhatsAppRegistered {
				registered = "Yes"
			} else {
				registered = "No"
			}
		}
		rows[i] = map[string]string{
			"phone":              l.Phone,
			"normalizedPhone":    l.NormalizedPhone,
			"message":            l.Message,
			"status":             strings.ToUpper(string(l.Status)),
			"attempts":           strconv.Itoa(l.Attempts),
			"whatsappRegistered": registered,
			"errorMessage":       dashIfEmpty(l.ErrorMessage),
			"errorCode":          dashIfEmpty(l.ErrorCode),
			"lastAttempt":        formatLogTime(l.LastAttemptAt),
			"successTime":        formatLogTime(l.SuccessAt),
			"batchId":            l.BatchID,
			"messageId":          dashIfEmpty(l.ProviderMessageID),
			"deliveryStatus":     dashIfEmpty(l.DeliveryAckStatus),
		}
	}
	return excel.WriteTable("Message Logs", messageLogColumns, rows)
}

func dashIfEmpty(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

func formatLogTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("02/01/2006 15:04:05")
}

func (s *service) MessageStatistics(ctx context.Context, batchID string) (*MessageStatistics, error) {
	counts, latestBatch, err := s.repo.MessageLogStats(ctx, batchID)
	if err != nil {
		return nil, err
	}

	stats := &MessageStatistics{
		Success:       counts[models.LogSuccess],
		Failed:        counts[models.LogFailed],
		LatestBatchID: latestBatch,
	}
	for _, c := range counts {
		stats.Total += c
	}
	return stats, nil
}
