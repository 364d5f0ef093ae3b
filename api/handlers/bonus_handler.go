package handlers

import (
	"net/http"

	"example.com/fleetops/internal/models"
	"example.com/fleetops/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// BonusHandler handles driver bonus requests
type BonusHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewBonusHandler creates a new BonusHandler instance
func NewBonusHandler(svc service.Service, log *logrus.Logger) *BonusHandler {
	return &BonusHandler{
		service: svc,
		log:     log,
	}
}

func bindBonusRows(c *gin.Context, log *logrus.Logger) ([]*models.DriverBonus, bool) {
	var rows []*models.DriverBonus
	if err := c.ShouldBindJSON(&rows); err != nil {
		log.WithError(err).Warn("Invalid bonus payload")
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid payload format",
		})
		return nil, false
	}
	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "No data provided",
		})
		return nil, false
	}
	return rows, true
}

// ReplaceBonuses handles the replace-all bonus upload
func (h *BonusHandler) ReplaceBonuses(c *gin.Context) {
	rows, ok := bindBonusRows(c, h.log)
	if !ok {
		return
	}

	count, err := h.service.ReplaceBonuses(c.Request.Context(), rows)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Bonus data replaced successfully", gin.H{
		"count": count,
	})
}

// AppendBonuses handles the upsert bonus upload
func (h *BonusHandler) AppendBonuses(c *gin.Context) {
	rows, ok := bindBonusRows(c, h.log)
	if !ok {
		return
	}

	summary, err := h.service.AppendBonuses(c.Request.Context(), rows)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "Bonus data appended successfully", summary)
}

// ListBonuses handles listing all bonuses
func (h *BonusHandler) ListBonuses(c *gin.Context) {
	bonuses, err := h.service.ListBonuses(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Bonus data fetched successfully",
		"count":   len(bonuses),
		"data":    bonuses,
	})
}

// BonusesByHub handles listing bonuses filtered by hub
func (h *BonusHandler) BonusesByHub(c *gin.Context) {
	bonuses, err := h.service.BonusesByHub(c.Request.Context(), c.Param("hub"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Bonus data fetched successfully",
		"count":   len(bonuses),
		"data":    bonuses,
	})
}

// DeleteAllBonuses handles truncating the bonus table
func (h *BonusHandler) DeleteAllBonuses(c *gin.Context) {
	deleted, err := h.service.DeleteAllBonuses(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, "All bonus data deleted successfully", gin.H{
		"deletedCount": deleted,
	})
}
