package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"example.com/fleetops/internal/dispatch"
	"example.com/fleetops/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// maxUploadSize caps spreadsheet uploads at 50MB
const maxUploadSize = 50 << 20

var allowedSheetTypes = map[string]struct{}{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"application/vnd.ms-excel":                                          {},
}

// MessageHandler handles outbound message requests
type MessageHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewMessageHandler creates a new MessageHandler instance
func NewMessageHandler(svc service.Service, log *logrus.Logger) *MessageHandler {
	return &MessageHandler{
		service: svc,
		log:     log,
	}
}

// UploadMessages handles the spreadsheet upload that replaces the send queue
func (h *MessageHandler) UploadMessages(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "No file uploaded",
		})
		return
	}
	if header.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "File too large",
		})
		return
	}
	if _, ok := allowedSheetTypes[header.Header.Get("Content-Type")]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Only Excel files are allowed",
		})
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer file.Close()

	count, err := h.service.UploadMessages(c.Request.Context(), file)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Successfully uploaded %d records", count),
		"count":   count,
		"warning": "Use safe mode to avoid account restrictions. Send max 20-30 messages per hour with breaks.",
	})
}

// ListMessages handles listing the pending queue
func (h *MessageHandler) ListMessages(c *gin.Context) {
	messages, err := h.service.ListMessages(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Messages fetched successfully",
		"count":   len(messages),
		"data":    messages,
	})
}

// DeleteAllMessages handles clearing the queue and the attempt log
func (h *MessageHandler) DeleteAllMessages(c *gin.Context) {
	if err := h.service.DeleteAllMessages(c.Request.Context()); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "All messages and logs deleted successfully", nil)
}

// SendMessages runs a dispatch batch, streaming newline-delimited progress
// records. Once the stream is open, errors are reported in-band.
func (h *MessageHandler) SendMessages(c *gin.Context) {
	var req struct {
		CustomMessage    string `json:"customMessage"`
		SafeMode         *bool  `json:"safeMode"`
		MessagesPerBatch int    `json:"messagesPerBatch"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid payload format",
			})
			return
		}
	}

	opts := dispatch.Options{
		CustomMessage:    req.CustomMessage,
		SafeMode:         true,
		MessagesPerBatch: 20,
	}
	if req.SafeMode != nil {
		opts.SafeMode = *req.SafeMode
	}
	if req.MessagesPerBatch > 0 {
		opts.MessagesPerBatch = req.MessagesPerBatch
	}

	flusher, _ := c.Writer.(http.Flusher)
	streaming := false
	emit := func(p dispatch.Progress) {
		if !streaming {
			c.Header("Content-Type", "application/json")
			c.Header("Transfer-Encoding", "chunked")
			c.Header("Cache-Control", "no-cache")
			c.Writer.WriteHeader(http.StatusOK)
			streaming = true
		}
		line, err := json.Marshal(p)
		if err != nil {
			return
		}
		_, _ = c.Writer.Write(append(line, '\n'))
		if flusher != nil {
			flusher.Flush()
		}
	}

	// The batch outlives the request: a client disconnect must not cancel
	// in-flight provider calls, or unattempted phones get terminal logs.
	ctx := context.WithoutCancel(c.Request.Context())
	if _, err := h.service.SendMessages(ctx, opts, emit); err != nil {
		if !streaming {
			respondError(c, h.log, err)
			return
		}
		h.log.WithError(err).Error("Dispatch batch failed mid-stream")
		emit(dispatch.Progress{Type: "error", Error: err.Error()})
	}
}

// MessageLogs handles listing the attempt log
func (h *MessageHandler) MessageLogs(c *gin.Context) {
	logs, err := h.service.MessageLogs(c.Request.Context(), c.Query("status"), c.Query("batchId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Message logs fetched successfully",
		"count":   len(logs),
		"data":    logs,
	})
}

// ExportMessageLogs streams the attempt log as a workbook
func (h *MessageHandler) ExportMessageLogs(c *gin.Context) {
	file, err := h.service.ExportMessageLogs(c.Request.Context(), c.Query("batchId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	filename := fmt.Sprintf("message-logs-%d.xlsx", time.Now().UnixMilli())
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	if err := file.Write(c.Writer); err != nil {
		h.log.WithError(err).Error("Failed to write message log export")
	}
}

// MessageStatistics handles the aggregated statistics endpoint
func (h *MessageHandler) MessageStatistics(c *gin.Context) {
	stats, err := h.service.MessageStatistics(c.Request.Context(), c.Query("batchId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Statistics fetched successfully", stats)
}
