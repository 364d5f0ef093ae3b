package service

import (
	"fmt"
	"strconv"
	"strings"
)

// UnknownProjectError is returned when a project path parameter is not on
// the configured allow-list.
type UnknownProjectError struct {
	Project string
}

func (e *UnknownProjectError) Error() string {
	return fmt.Sprintf("unknown project %q", e.Project)
}

// RowsValidationError reports one required field missing across several
// payload rows. Rows are 1-based spreadsheet rows.
type RowsValidationError struct {
	Field string
	Rows  []int
}

func (e *RowsValidationError) Error() string {
	rows := make([]string, len(e.Rows))
	for i, r := range e.Rows {
		rows[i] = strconv.Itoa(r)
	}
	return fmt.Sprintf("field %q is required, missing at rows: %s", e.Field, strings.Join(rows, ", "))
}

// FieldTakenError is returned when an update would collide with another
// record's unique field.
type FieldTakenError struct {
	Field string
}

func (e *FieldTakenError) Error() string {
	return fmt.Sprintf("duplicate found in field: %s", e.Field)
}

// OrderFieldErrors lists the invalid required fields of one order.
type OrderFieldErrors struct {
	MerchantOrderID string   `json:"merchantOrderId"`
	Errors          []string `json:"errors"`
}

// AssignmentValidationError rejects a whole assignment batch; no order
// changes state when it is returned.
type AssignmentValidationError struct {
	Invalid []OrderFieldErrors
}

func (e *AssignmentValidationError) Error() string {
	return fmt.Sprintf("cannot assign: %d order(s) have missing or invalid required fields", len(e.Invalid))
}

// PartialSyncError signals that orders were assigned locally but the
// external batch sync failed. The local assignment stays.
type PartialSyncError struct {
	AssignedCount int64
	Err           error
}

func (e *PartialSyncError) Error() string {
	return fmt.Sprintf("orders assigned locally but external sync failed: %v", e.Err)
}

func (e *PartialSyncError) Unwrap() error {
	return e.Err
}
