package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"example.com/fleetops/internal/models"
	"example.com/fleetops/internal/repository"
	"example.com/fleetops/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FleetHandler handles fleet-related requests
type FleetHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewFleetHandler creates a new FleetHandler instance
func NewFleetHandler(svc service.Service, log *logrus.Logger) *FleetHandler {
	return &FleetHandler{
		service: svc,
		log:     log,
	}
}

// UploadFleet handles a bulk fleet upload
func (h *FleetHandler) UploadFleet(c *gin.Context) {
	var rows []*models.Fleet
	if err := c.ShouldBindJSON(&rows); err != nil {
		h.log.WithError(err).Warn("Invalid fleet payload")
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

	summary, err := h.service.UploadFleet(c.Request.Context(), rows, replaceAllRequested(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Fleet data saved successfully", summary)
}

// ListFleet handles the paginated fleet listing
func (h *FleetHandler) ListFleet(c *gin.Context) {
	q := fleetQueryFromRequest(c)

	data, total, err := h.service.ListFleet(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	totalPages := total / int64(q.Limit)
	if total%int64(q.Limit) != 0 {
		totalPages++
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Fleet data fetched successfully",
		"count":      len(data),
		"total":      total,
		"page":       q.Page,
		"totalPages": totalPages,
		"hasMore":    int64(q.Page*q.Limit) < total,
		"data":       data,
	})
}

func fleetQueryFromRequest(c *gin.Context) repository.FleetQuery {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}

	return repository.FleetQuery{
		Page:          page,
		Limit:         limit,
		Search:        c.Query("search"),
		SortKey:       c.DefaultQuery("sortKey", "createdAt"),
		SortDirection: c.DefaultQuery("sortDirection", "desc"),
		Status:        c.Query("status"),
		Project:       c.Query("project"),
		Type:          c.Query("type"),
		StatusFilter:  c.DefaultQuery("statusFilter", "all"),
	}
}

// FleetFilters handles the filter options endpoint
func (h *FleetHandler) FleetFilters(c *gin.Context) {
	filters, err := h.service.FleetFilters(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Filter options fetched successfully", filters)
}

// FleetByPlate handles partial plate lookups
func (h *FleetHandler) FleetByPlate(c *gin.Context) {
	data, err := h.service.FleetByPlate(c.Request.Context(), c.Param("plat"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Fleet data fetched successfully",
		"count":   len(data),
		"data":    data,
	})
}

// FleetRoster handles the unit roster endpoint
func (h *FleetHandler) FleetRoster(c *gin.Context) {
	roster, err := h.service.FleetRoster(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Roster fetched successfully",
		"count":   len(roster),
		"data":    roster,
	})
}

// ExportFleet streams the matching fleet records as a workbook
func (h *FleetHandler) ExportFleet(c *gin.Context) {
	var req struct {
		Search        string `json:"search"`
		SortKey       string `json:"sortKey"`
		SortDirection string `json:"sortDirection"`
		Status        string `json:"status"`
		Project       string `json:"project"`
		Type          string `json:"type"`
	}
	_ = c.ShouldBindJSON(&req)

	file, err := h.service.ExportFleet(c.Request.Context(), repository.FleetQuery{
		Search:        req.Search,
		SortKey:       req.SortKey,
		SortDirection: req.SortDirection,
		Status:        req.Status,
		Project:       req.Project,
		Type:          req.Type,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	filename := fmt.Sprintf("fleet-data-%d.xlsx", time.Now().UnixMilli())
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	if err := file.Write(c.Writer); err != nil {
		h.log.WithError(err).Error("Failed to write fleet export")
	}
}

// FleetInfo handles the record count endpoint
func (h *FleetHandler) FleetInfo(c *gin.Context) {
	total, err := h.service.FleetInfo(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Fleet info fetched successfully", gin.H{
		"total": total,
	})
}

// UpdateFleet handles updating one fleet record
func (h *FleetHandler) UpdateFleet(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input models.Fleet
	if err := c.ShouldBindJSON(&input); err != nil {
		h.log.WithError(err).Warn("Invalid fleet payload")
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid payload format",
		})
		return
	}

	fleet, err := h.service.UpdateFleet(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Fleet data updated successfully", fleet)
}

// DeleteFleet handles deleting one fleet record
func (h *FleetHandler) DeleteFleet(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	fleet, err := h.service.DeleteFleet(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Fleet data deleted successfully", fleet)
}

// BulkDeleteFleet handles deleting a set of fleet records by id
func (h *FleetHandler) BulkDeleteFleet(c *gin.Context) {
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

	deleted, err := h.service.DeleteFleetMany(c.Request.Context(), req.IDs)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Fleet data deleted successfully", gin.H{
		"deletedCount": deleted,
	})
}

// DeleteAllFleet handles truncating the fleet table
func (h *FleetHandler) DeleteAllFleet(c *gin.Context) {
	deleted, err := h.service.DeleteAllFleet(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "All fleet data deleted successfully", gin.H{
		"deletedCount": deleted,
	})
}
