package handlers

import (
	"net/http"

	"example.com/fleetops/internal/models"
	"example.com/fleetops/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SellerHandler handles seller-related requests
type SellerHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewSellerHandler creates a new SellerHandler instance
func NewSellerHandler(svc service.Service, log *logrus.Logger) *SellerHandler {
	return &SellerHandler{
		service: svc,
		log:     log,
	}
}

// UploadSellers handles a bulk seller upload
func (h *SellerHandler) UploadSellers(c *gin.Context) {
	var rows []*models.Seller
	if err := c.ShouldBindJSON(&rows); err != nil {
		h.log.WithError(err).Warn("Invalid seller payload")
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

	saved, err := h.service.UploadSellers(c.Request.Context(), rows)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, "Seller data saved successfully", gin.H{
		"count": len(saved),
	})
}

// ListSellers handles listing all sellers
func (h *SellerHandler) ListSellers(c *gin.Context) {
	sellers, err := h.service.ListSellers(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Seller data fetched successfully", sellers)
}

// UpdateSeller handles updating one seller
func (h *SellerHandler) UpdateSeller(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input models.Seller
	if err := c.ShouldBindJSON(&input); err != nil {
		h.log.WithError(err).Warn("Invalid seller payload")
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid payload format",
		})
		return
	}

	seller, err := h.service.UpdateSeller(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Seller updated successfully", seller)
}

// DeleteSeller handles deleting one seller
func (h *SellerHandler) DeleteSeller(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteSeller(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Seller deleted successfully", nil)
}

// BulkDeleteSellers handles deleting a set of sellers by id
func (h *SellerHandler) BulkDeleteSellers(c *gin.Context) {
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

	deleted, err := h.service.DeleteSellers(c.Request.Context(), req.IDs)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Sellers deleted successfully", gin.H{
		"deletedCount": deleted,
	})
}
