package bulk

import (
	"context"
)

// Keyed couples one payload row with its natural-key values. Key values must
// already be case-folded the way the entity folds them (for example vehicle
// numbers upper-cased, emails lower-cased); empty values never participate in
// detection.
type Keyed struct {
	Data interface{}
	Keys map[string]string
}

// Duplicate describes one offending payload row. Row is the 1-based
// spreadsheet row (payload index + 2, accounting for the header row).
type Duplicate struct {
	Row             int         `json:"row"`
	Data            interface{} `json:"data"`
	DuplicateFields []string    `json:"duplicateFields"`
}

// Report is the result of a detection pass. Never persisted.
type Report struct {
	InPayload  []Duplicate `json:"inPayload"`
	InDatabase []Duplicate `json:"inDatabase"`
}

// HasDuplicates reports whether either list is non-empty
func (r *Report) HasDuplicates() bool {
	return len(r.InPayload) > 0 || len(r.InDatabase) > 0
}

// Total returns the combined number of flagged rows
func (r *Report) Total() int {
	return len(r.InPayload) + len(r.InDatabase)
}

// Finder looks up already-stored natural-key values. It receives the distinct
// folded values per field collected from the whole payload and must return,
// per field, the folded values of every stored record matching any field
// (logical OR across fields) in a single query.
type Finder func(ctx context.Context, values map[string][]string) (map[string][]string, error)

// Detect runs the two-pass duplicate detection over the payload.
//
// Pass 1 scans rows in order keeping one seen-set per natural-key field; the
// earliest occurrence of a value is never flagged, only later ones. Pass 2
// issues one storage query via find and re-scans every row, including rows
// already flagged in pass 1, against the stored value sets.
func Detect(ctx context.Context, rows []Keyed, fields []string, find Finder) (*Report, error) {
	report := &Report{}

	seen := make(map[string]map[string]struct{}, len(fields))
	for _, f := range fields {
		seen[f] = make(map[string]struct{})
	}

	for i, row := range rows {
		var dupFields []string
		for _, f := range fields {
			v := row.Keys[f]
			if v == "" {
				continue
			}
			if _, ok := seen[f][v]; ok {
				dupFields = append(dupFields, f)
			} else {
				seen[f][v] = struct{}{}
			}
		}
		if len(dupFields) > 0 {
			report.InPayload = append(report.InPayload, Duplicate{
				Row:             i + 2,
				Data:            row.Data,
				DuplicateFields: dupFields,
			})
		}
	}

	values := make(map[string][]string, len(fields))
	for _, f := range fields {
		distinct := make(map[string]struct{})
		for _, row := range rows {
			if v := row.Keys[f]; v != "" {
				distinct[v] = struct{}{}
			}
		}
		for v := range distinct {
			values[f] = append(values[f], v)
		}
	}

	existing, err := find(ctx, values)
	if err != nil {
		return nil, err
	}

	existingSets := make(map[string]map[string]struct{}, len(fields))
	for _, f := range fields {
		set := make(map[string]struct{}, len(existing[f]))
		for _, v := range existing[f] {
			set[v] = struct{}{}
		}
		existingSets[f] = set
	}

	for i, row := range rows {
		var dupFields []string
		for _, f := range fields {
			v := row.Keys[f]
			if v == "" {
				continue
			}
			if _, ok := existingSets[f][v]; ok {
				dupFields = append(dupFields, f)
			}
		}
		if len(dupFields) > 0 {
			report.InDatabase = append(report.InDatabase, Duplicate{
				Row:             i + 2,
				Data:            row.Data,
				DuplicateFields: dupFields,
			})
		}
	}

	return report, nil
}
