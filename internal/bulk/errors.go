package bulk

import (
	"fmt"
	"strings"
)

// ValidationError reports missing required fields for one payload record.
// Record is the 1-based index of the offending record; normalization stops
// at the first bad record.
type ValidationError struct {
	Record int
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record %d: required fields must not be empty - %s",
		e.Record, strings.Join(e.Fields, ", "))
}

// DuplicateError carries the full duplicate report for a rejected upload
type DuplicateError struct {
	Report       *Report
	TotalRecords int
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("found %d duplicate records", e.Report.Total())
}
