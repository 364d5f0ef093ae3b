package handlers

import (
	"net/http"

	"example.com/fleetops/internal/models"
	"example.com/fleetops/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// OrderHandler handles project-scoped merchant order requests
type OrderHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewOrderHandler creates a new OrderHandler instance
func NewOrderHandler(svc service.Service, log *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		log:     log,
	}
}

// UploadOrders handles a bulk merchant order upload
func (h *OrderHandler) UploadOrders(c *gin.Context) {
	var req struct {
		Data []*models.MerchantOrder `json:"data" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.WithError(err).Warn("Invalid order payload")
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "No data provided or invalid format",
		})
		return
	}

	summary, err := h.service.UploadMerchantOrders(c.Request.Context(), c.Param("project"), req.Data)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Merchant orders uploaded successfully", summary)
}

// ListOrders handles listing every order of a project
func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.service.ListMerchantOrders(c.Request.Context(), c.Param("project"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Merchant orders fetched successfully",
		"count":   len(orders),
		"data":    orders,
	})
}

// GetOrder handles retrieving one order
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.service.GetMerchantOrder(c.Request.Context(), c.Param("project"), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Merchant order fetched successfully", order)
}

// UpdateOrder handles updating one order
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input models.MerchantOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		h.log.WithError(err).Warn("Invalid order payload")
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid payload format",
		})
		return
	}

	order, err := h.service.UpdateMerchantOrder(c.Request.Context(), c.Param("project"), id, &input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Merchant order updated successfully", order)
}

// DeleteOrder handles deleting one order
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteMerchantOrder(c.Request.Context(), c.Param("project"), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Merchant order deleted successfully", nil)
}

// DeleteAllOrders handles truncating a project's orders
func (h *OrderHandler) DeleteAllOrders(c *gin.Context) {
	deleted, err := h.service.DeleteAllMerchantOrders(c.Request.Context(), c.Param("project"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "All merchant orders deleted successfully", gin.H{
		"deletedCount": deleted,
	})
}

// AssignOrders handles the assignment pipeline for a set of orders
func (h *OrderHandler) AssignOrders(c *gin.Context) {
	var req service.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.WithError(err).Warn("Invalid assignment payload")
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid payload format",
		})
		return
	}
	req.Authorization = c.GetHeader("Authorization")

	result, err := h.service.AssignOrders(c.Request.Context(), c.Param("project"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Orders assigned successfully", result)
}

// UnassignOrder handles resetting one order to unassigned
func (h *OrderHandler) UnassignOrder(c *gin.Context) {
	id, ok := parseID(c, "orderId")
	if !ok {
		return
	}

	order, err := h.service.UnassignOrder(c.Request.Context(), c.Param("project"), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Order unassigned successfully", order)
}

// ValidateSender handles resolving one sender registration
func (h *OrderHandler) ValidateSender(c *gin.Context) {
	var req struct {
		SenderName string `json:"senderName" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "senderName is required",
		})
		return
	}

	validation, err := h.service.ValidateSender(c.Request.Context(), req.SenderName)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Sender validated successfully", validation)
}

// ValidateSenders handles resolving several sender registrations at once
func (h *OrderHandler) ValidateSenders(c *gin.Context) {
	var req struct {
		SenderNames []string `json:"senderNames" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "senderNames is required",
		})
		return
	}

	found, missing, err := h.service.ValidateSenders(c.Request.Context(), req.SenderNames)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Senders validated successfully", gin.H{
		"validations": found,
		"missing":     missing,
	})
}
