package handlers

import (
	"net/http"

	"example.com/fleetops/internal/models"
	"example.com/fleetops/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// replaceAllRequested reads the replace-all upload header
func replaceAllRequested(c *gin.Context) bool {
	return c.GetHeader("X-Replace-Data") == "true"
}

// DriverHandler handles driver-related requests
type DriverHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewDriverHandler creates a new DriverHandler instance
func NewDriverHandler(svc service.Service, log *logrus.Logger) *DriverHandler {
	return &DriverHandler{
		service: svc,
		log:     log,
	}
}

// UploadDrivers handles a bulk driver upload
func (h *DriverHandler) UploadDrivers(c *gin.Context) {
	var rows []*models.Driver
	if err := c.ShouldBindJSON(&rows); err != nil {
		h.log.WithError(err).Warn("Invalid driver payload")
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid payload format",
		})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "No data provided",
		})
		return
	}

	saved, err := h.service.UploadDrivers(c.Request.Context(), rows, replaceAllRequested(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Driver data saved successfully", gin.H{
		"count": len(saved),
	})
}

// ListDrivers handles listing all drivers
func (h *DriverHandler) ListDrivers(c *gin.Context) {
	drivers, err := h.service.ListDrivers(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Driver data fetched successfully", drivers)
}

// UpdateDriver handles updating one driver
func (h *DriverHandler) UpdateDriver(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input models.Driver
	if err := c.ShouldBindJSON(&input); err != nil {
		h.log.WithError(err).Warn("Invalid driver payload")
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid payload format",
		})
		return
	}

	driver, err := h.service.UpdateDriver(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Driver updated successfully", driver)
}

// DeleteDriver handles deleting one driver
func (h *DriverHandler) DeleteDriver(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteDriver(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Driver deleted successfully", nil)
}

// BulkDeleteDrivers handles deleting a set of drivers by id
func (h *DriverHandler) BulkDeleteDrivers(c *gin.Context) {
	var req struct {
		IDs []uint `json:"ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "No IDs provided",
		})
		return
	}

	deleted, err := h.service.DeleteDrivers(c.Request.Context(), req.IDs)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Drivers deleted successfully", gin.H{
		"deletedCount": deleted,
	})
}
