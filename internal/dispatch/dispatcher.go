package dispatch

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"example.com/fleetops/config"
	"example.com/fleetops/internal/models"
	"example.com/fleetops/internal/repository"
	"example.com/fleetops/internal/whatsapp"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	maxRetries       = 3
	minMessageDelay  = 30 * time.Second
	maxMessageDelay  = 60 * time.Second
	minUnsafeDelay   = 3 * time.Second
	maxUnsafeDelay   = 5 * time.Second
	typingPerChar    = 50 * time.Millisecond
	minTypingDelay   = 2 * time.Second
	maxTypingDelay   = 8 * time.Second
	postSendSettle   = 2 * time.Second
	verifyRetries    = 2
	verifyRetryDelay = 2 * time.Second
)

var (
	// ErrNoPending is returned when every queued contact already has a
	// logged outcome.
	ErrNoPending = errors.New("no pending messages found, all contacts have been processed")

	// ErrUnsafeBulk is returned when unsafe mode is requested with too
	// many pending messages.
	ErrUnsafeBulk = errors.New("unsafe mode blocked for bulk sending, use safe mode to prevent account restriction")
)

// Options control a single send batch.
type Options struct {
	CustomMessage    string
	SafeMode         bool
	MessagesPerBatch int
}

// Progress is one NDJSON event emitted while a batch runs.
type Progress struct {
	Type              string `json:"type"`
	BatchID           string `json:"batchId,omitempty"`
	Total             int    `json:"total,omitempty"`
	SafeMode          *bool  `json:"safeMode,omitempty"`
	Warning           string `json:"warning,omitempty"`
	Phone             string `json:"phone,omitempty"`
	Status            string `json:"status,omitempty"`
	// Counter fields marshal even at zero; a consumer cannot tell an
	// omitted counter from one that has not moved yet.
	Processed    int `json:"processed"`
	SuccessCount int `json:"successCount"`
	FailedCount  int `json:"failedCount"`
	SkippedCount int `json:"skippedCount"`
	Message           string `json:"message,omitempty"`
	MessageID         string `json:"messageId,omitempty"`
	Error             string `json:"error,omitempty"`
	ErrorCode         string `json:"errorCode,omitempty"`
	DelaySeconds      int    `json:"delay,omitempty"`
	StopBatch         bool   `json:"stopBatch,omitempty"`
	RemainingMessages int    `json:"remainingMessages"`
	Recommendation    string `json:"recommendation,omitempty"`
}

// Emitter receives progress events. Emission must never block the batch.
type Emitter func(Progress)

// Summary is the final outcome of a batch.
type Summary struct {
	BatchID   string
	Total     int
	Success   int
	Failed    int
	Skipped   int
	Remaining int
	Aborted   bool
}

// Dispatcher walks the pending queue and delivers each message with
// human-like pacing.
type Dispatcher struct {
	repo   repository.MessageRepository
	client whatsapp.Client
	cfg    config.DispatchConfig
	log    *logrus.Logger

	// injectable for tests
	sleep   func(d time.Duration)
	randDur func(min, max time.Duration) time.Duration
	now     func() time.Time
}

// NewDispatcher creates a dispatcher with real timing.
func NewDispatcher(repo repository.MessageRepository, client whatsapp.Client, cfg config.DispatchConfig, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		repo:    repo,
		client:  client,
		cfg:     cfg,
		log:     log,
		sleep:   time.Sleep,
		randDur: randomDuration,
		now:     time.Now,
	}
}

func randomDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min+1)))
}

// typingDelay derives the typing indicator duration from message length,
// clamped to a believable range.
func typingDelay(message string) time.Duration {
	d := time.Duration(len(message)) * typingPerChar
	if d > maxTypingDelay {
		d = maxTypingDelay
	}
	if d < minTypingDelay {
		d = minTypingDelay
	}
	return d
}

// Run executes one send batch. The batch keeps going if the caller stops
// listening; progress events are simply dropped by the emitter in that case.
func (d *Dispatcher) Run(ctx context.Context, opts Options, emit Emitter) (*Summary, error) {
	processed, err := d.repo.ProcessedPhones(ctx)
	if err != nil {
		return nil, err
	}

	queue, err := d.repo.ListPhoneMessages(ctx)
	if err != nil {
		return nil, err
	}

	var pending []*models.PhoneMessage
	for _, msg := range queue {
		if _, done := processed[whatsapp.NormalizePhone(msg.Phone)]; !done {
			pending = append(pending, msg)
		}
	}

	if len(pending) == 0 {
		return nil, ErrNoPending
	}
	if !opts.SafeMode && len(pending) > d.cfg.UnsafeMaxPending {
		return nil, ErrUnsafeBulk
	}

	perBatch := opts.MessagesPerBatch
	if perBatch <= 0 {
		perBatch = d.cfg.MessagesPerBatch
	}

	total := len(pending)
	if opts.SafeMode && total > perBatch {
		total = perBatch
	}

	summary := &Summary{
		BatchID: uuid.New().String(),
		Total:   total,
	}

	warning := "Unsafe Mode: Faster but risky"
	if opts.SafeMode {
		warning = "Safe Mode: Sending messages with human-like delays (30-60s between messages)"
	}
	safeMode := opts.SafeMode
	emit(Progress{
		Type:     "start",
		Total:    total,
		BatchID:  summary.BatchID,
		SafeMode: &safeMode,
		Warning:  warning,
	})

	processedCount := 0
	for _, msg := range pending[:total] {
		phone := strings.TrimSpace(msg.Phone)
		normalized := whatsapp.NormalizePhone(phone)
		text := msg.Message
		if strings.TrimSpace(opts.CustomMessage) != "" {
			text = opts.CustomMessage
		}

		// Duplicate phones inside one queue resolve here: the first
		// occurrence writes a log, the rest are skipped.
		if latest, err := d.repo.LatestLogForPhone(ctx, normalized); err == nil && latest != nil {
			summary.Skipped++
			processedCount++
			reason := "Previously failed - will not retry"
			if latest.Status == models.LogSuccess {
				reason = "Already sent successfully"
			}
			emit(d.progressEvent(summary, "progress", normalized, "skipped", processedCount, reason))
			continue
		}

		sending := Progress{
			Type:      "progress",
			Phone:     normalized,
			Status:    "sending",
			Processed: processedCount,
			Total:     total,
			Message:   "Sending...",
		}
		if opts.SafeMode {
			sending.Message = "Simulating human behavior (seen, typing, send)..."
		}
		emit(sending)

		result, sendErr := d.sendWithHumanBehavior(ctx, normalized, text)

		if sendErr == nil {
			now := d.now()
			logRow := &models.MessageLog{
				Phone:              phone,
				NormalizedPhone:    normalized,
				Message:            text,
				Status:             models.LogSuccess,
				Attempts:           1,
				LastAttemptAt:      &now,
				SuccessAt:          &now,
				WhatsAppRegistered: boolPtr(true),
				BatchID:            summary.BatchID,
				ProviderMessageID:  result.MessageID,
				DeliveryAckStatus:  result.DeliveryStatus,
			}
			if err := d.repo.CreateMessageLog(ctx, logRow); err != nil {
				d.log.WithError(err).WithField("phone", normalized).Error("Failed to save success log")
			}
			if err := d.repo.UpdatePhoneMessageStatus(ctx, msg.ID, models.DeliverySent); err != nil {
				d.log.WithError(err).WithField("phone", normalized).Error("Failed to update queue row")
			}

			summary.Success++
			processedCount++
			ev := d.progressEvent(summary, "progress", normalized, "success", processedCount, "")
			ev.MessageID = result.MessageID
			emit(ev)
		} else {
			se := asSendError(sendErr)
			now := d.now()
			logRow := &models.MessageLog{
				Phone:           phone,
				NormalizedPhone: normalized,
				Message:         text,
				Status:          models.LogFailed,
				Attempts:        1,
				LastAttemptAt:   &now,
				ErrorMessage:    se.Message,
				ErrorCode:       se.Code,
				BatchID:         summary.BatchID,
			}
			if se.NotRegistered {
				logRow.WhatsAppRegistered = boolPtr(false)
			}
			if err := d.repo.CreateMessageLog(ctx, logRow); err != nil {
				d.log.WithError(err).WithField("phone", normalized).Error("Failed to save failure log")
			}
			if err := d.repo.UpdatePhoneMessageStatus(ctx, msg.ID, models.DeliveryFailed); err != nil {
				d.log.WithError(err).WithField("phone", normalized).Error("Failed to update queue row")
			}

			summary.Failed++
			processedCount++
			ev := d.progressEvent(summary, "progress", normalized, "failed", processedCount, "")
			ev.Error = se.Message
			ev.ErrorCode = se.Code
			emit(ev)

			// Losing the session fails every later send the same way, so
			// the batch stops instead of burning through the queue.
			if se.Unauthorized {
				summary.Aborted = true
				emit(Progress{
					Type:      "error",
					Error:     "WhatsApp session not authenticated. Please scan QR code and retry.",
					StopBatch: true,
				})
				break
			}
		}

		if processedCount < total {
			delay := d.randDur(minUnsafeDelay, maxUnsafeDelay)
			if opts.SafeMode {
				delay = d.randDur(minMessageDelay, maxMessageDelay)
			}
			emit(Progress{
				Type:         "waiting",
				Phone:        normalized,
				DelaySeconds: int(delay.Seconds()),
				Message:      "Waiting before next message...",
			})
			d.sleep(delay)
		}
	}

	summary.Remaining = len(pending) - total
	recommendation := "All pending messages processed."
	if summary.Remaining > 0 {
		recommendation = "Messages remaining. Wait before sending the next batch to avoid restrictions."
	}
	emit(Progress{
		Type:              "complete",
		BatchID:           summary.BatchID,
		Total:             total,
		SuccessCount:      summary.Success,
		FailedCount:       summary.Failed,
		SkippedCount:      summary.Skipped,
		RemainingMessages: summary.Remaining,
		Message:           "Batch completed",
		Recommendation:    recommendation,
	})
	return summary, nil
}

func (d *Dispatcher) progressEvent(summary *Summary, typ, phone, status string, processedCount int, message string) Progress {
	return Progress{
		Type:         typ,
		Phone:        phone,
		Status:       status,
		Processed:    processedCount,
		Total:        summary.Total,
		SuccessCount: summary.Success,
		FailedCount:  summary.Failed,
		SkippedCount: summary.Skipped,
		Message:      message,
	}
}

// sendWithHumanBehavior performs the full presence choreography around the
// send and retries transient failures with a bounded loop. Every retry
// replays the choreography so the pacing stays believable.
func (d *Dispatcher) sendWithHumanBehavior(ctx context.Context, normalizedPhone, text string) (*whatsapp.SendResult, error) {
	chatID := whatsapp.ChatID(normalizedPhone)

	for attempt := 0; ; attempt++ {
		d.client.SendSeen(ctx, chatID)
		d.sleep(d.randDur(500*time.Millisecond, 1500*time.Millisecond))

		d.client.StartTyping(ctx, chatID)
		d.sleep(typingDelay(text))
		d.client.StopTyping(ctx, chatID)
		d.sleep(d.randDur(300*time.Millisecond, 800*time.Millisecond))

		d.log.WithFields(logrus.Fields{
			"phone":   normalizedPhone,
			"attempt": attempt + 1,
		}).Info("Sending message")

		result, err := d.client.SendText(ctx, chatID, text)
		if err == nil {
			d.sleep(postSendSettle)
			result.Verified, result.DeliveryStatus = d.verifyDelivery(ctx, result.MessageID)
			return result, nil
		}

		se := asSendError(err)
		if se.Retryable && attempt < maxRetries {
			// Rate limiting backs off harder than a plain server error.
			multiplier := attempt + 1
			if se.StatusCode == 429 {
				multiplier = attempt + 2
			}
			delay := d.cfg.BaseRetryDelay * time.Duration(multiplier)
			d.log.WithFields(logrus.Fields{
				"phone": normalizedPhone,
				"code":  se.Code,
				"delay": delay.String(),
			}).Warn("Transient send failure, retrying")
			d.sleep(delay)
			continue
		}
		return nil, se
	}
}

// verifyDelivery polls for the provider acknowledgment. It can only add
// detail to a success, never turn it into a failure.
func (d *Dispatcher) verifyDelivery(ctx context.Context, messageID string) (bool, string) {
	if messageID == "" || messageID == "unknown" {
		return false, "unknown"
	}

	for i := 0; i < verifyRetries; i++ {
		ack, err := d.client.MessageAck(ctx, messageID)
		if err == nil {
			return true, ack
		}
		if i == verifyRetries-1 {
			break
		}
		d.sleep(verifyRetryDelay)
	}
	return false, "verification_failed"
}

func asSendError(err error) *whatsapp.SendError {
	var se *whatsapp.SendError
	if errors.As(err, &se) {
		return se
	}
	return &whatsapp.SendError{
		Code:    "NETWORK_ERROR",
		Message: err.Error(),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
