package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"example.com/fleetops/internal/bulk"
	"example.com/fleetops/internal/dispatch"
	"example.com/fleetops/internal/repository"
	"example.com/fleetops/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Error codes exposed in the response envelope
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeDuplicateData   = "DUPLICATE_DATA"
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidID       = "INVALID_ID"
	CodeStorage         = "STORAGE_ERROR"
	CodeExternalService = "EXTERNAL_SERVICE_ERROR"
	CodeTimeout         = "TIMEOUT"
)

// APIError is the typed error the handlers return to clients
type APIError struct {
	StatusCode int         `json:"-"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// mapError translates service and repository errors into an APIError
func mapError(err error) *APIError {
	var (
		validationErr *bulk.ValidationError
		duplicateErr  *bulk.DuplicateError
		rowsErr       *service.RowsValidationError
		takenErr      *service.FieldTakenError
		projectErr    *service.UnknownProjectError
		assignErr     *service.AssignmentValidationError
		partialErr    *service.PartialSyncError
		fieldErrs     validator.ValidationErrors
	)

	switch {
	case errors.As(err, &validationErr):
		return &APIError{
			StatusCode: http.StatusBadRequest,
			Code:       CodeValidation,
			Message:    validationErr.Error(),
			Details: gin.H{
				"record": validationErr.Record,
				"fields": validationErr.Fields,
			},
		}
	case errors.As(err, &duplicateErr):
		return &APIError{
			StatusCode: http.StatusConflict,
			Code:       CodeDuplicateData,
			Message:    duplicateErr.Error(),
			Details: gin.H{
				"duplicates": gin.H{
					"inPayload":  duplicateErr.Report.InPayload,
					"inDatabase": duplicateErr.Report.InDatabase,
					"total":      duplicateErr.Report.Total(),
				},
				"totalRecords": duplicateErr.TotalRecords,
			},
		}
	case errors.As(err, &rowsErr):
		return &APIError{
			StatusCode: http.StatusBadRequest,
			Code:       CodeValidation,
			Message:    rowsErr.Error(),
			Details:    gin.H{"field": rowsErr.Field, "rows": rowsErr.Rows},
		}
	case errors.As(err, &takenErr):
		return &APIError{
			StatusCode: http.StatusConflict,
			Code:       CodeDuplicateData,
			Message:    takenErr.Error(),
			Details:    gin.H{"field": takenErr.Field},
		}
	case errors.As(err, &projectErr):
		return &APIError{
			StatusCode: http.StatusNotFound,
			Code:       CodeNotFound,
			Message:    projectErr.Error(),
		}
	case errors.As(err, &assignErr):
		return &APIError{
			StatusCode: http.StatusBadRequest,
			Code:       CodeValidation,
			Message:    assignErr.Error(),
			Details: gin.H{
				"invalidOrders": assignErr.Invalid,
				"suggestion":    "Please check and fix the order data before assigning.",
			},
		}
	case errors.As(err, &partialErr):
		return &APIError{
			StatusCode: http.StatusInternalServerError,
			Code:       CodeExternalService,
			Message:    "Orders assigned locally but external sync failed",
			Details: gin.H{
				"assignedCount": partialErr.AssignedCount,
				"error":         partialErr.Err.Error(),
			},
		}
	case errors.As(err, &fieldErrs):
		return &APIError{
			StatusCode: http.StatusBadRequest,
			Code:       CodeValidation,
			Message:    fieldErrs.Error(),
		}
	case errors.Is(err, repository.ErrNotFound):
		return &APIError{
			StatusCode: http.StatusNotFound,
			Code:       CodeNotFound,
			Message:    "Record not found",
		}
	case errors.Is(err, dispatch.ErrNoPending),
		errors.Is(err, dispatch.ErrUnsafeBulk),
		errors.Is(err, service.ErrEmptySheet):
		return &APIError{
			StatusCode: http.StatusBadRequest,
			Code:       CodeValidation,
			Message:    err.Error(),
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &APIError{
			StatusCode: http.StatusRequestTimeout,
			Code:       CodeTimeout,
			Message:    "Operation timed out",
		}
	default:
		return &APIError{
			StatusCode: http.StatusInternalServerError,
			Code:       CodeStorage,
			Message:    "Internal server error",
		}
	}
}

// respondError writes the envelope for a failed request
func respondError(c *gin.Context, log *logrus.Logger, err error) {
	apiErr := mapError(err)
	if apiErr.StatusCode >= 500 {
		log.WithError(err).Error("Request failed")
	} else {
		log.WithError(err).Warn("Request rejected")
	}
	c.JSON(apiErr.StatusCode, gin.H{
		"success": false,
		"message": apiErr.Message,
		"error":   apiErr,
	})
}

// respondOK writes the envelope for a successful request
func respondOK(c *gin.Context, message string, data interface{}) {
	body := gin.H{
		"success": true,
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(http.StatusOK, body)
}

// parseID reads a numeric path parameter, rejecting anything non-numeric
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := parseUintParam(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid ID",
			"error": &APIError{
				StatusCode: http.StatusBadRequest,
				Code:       CodeInvalidID,
				Message:    "Invalid ID",
			},
		})
		return 0, false
	}
	return id, true
}

func parseUintParam(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	return uint(v), err
}
