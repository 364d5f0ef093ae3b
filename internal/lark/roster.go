package lark

import (
	"context"
	"fmt"
	"strings"
	"time"

	"example.com/fleetops/config"

	"golang.org/x/sync/errgroup"
)

// Bitable column labels for the unit roster tables.
const (
	fieldNIK        = "NIK USER"
	fieldPlate      = "NOMOR PLAT"
	fieldFullName   = "NAMA LENGKAP USER SESUAI KTP"
	fieldUnitBrand  = "MERK UNIT"
	fieldAddress    = "ALAMAT LENGKAP USER"
	fieldHandedOut  = "TANGGAL KELUAR UNIT"
	fieldHandedBack = "TANGGAL MASUK UNIT"
)

// RosterEntry is one user/unit pairing derived from the bitable tables.
type RosterEntry struct {
	NIK           string `json:"nik"`
	HandedOutDate string `json:"tanggal_keluar_unit"`
	Plate         string `json:"plat_nomor"`
	UnitBrand     string `json:"merk_unit"`
	Address       string `json:"alamat"`
	ReturnDate    string `json:"tanggal_pengembalian_unit"`
	UsageDuration string `json:"lama_pemakaian"`
	Status        string `json:"status"`
}

// RosterSource derives the unit roster from the active and inactive tables.
type RosterSource struct {
	cfg     config.LarkConfig
	records RecordSource
}

// NewRosterSource creates a roster reader over the configured tables.
func NewRosterSource(cfg config.LarkConfig, records RecordSource) *RosterSource {
	return &RosterSource{cfg: cfg, records: records}
}

// FetchRoster pulls both tables concurrently and annotates each active row
// with its inactive counterpart, matched on folded (plate, full name).
// Rows without a NIK are dropped.
func (s *RosterSource) FetchRoster(ctx context.Context) ([]RosterEntry, error) {
	var active, inactive []Record

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		active, err = s.records.FetchRecords(gctx, s.cfg.ActiveTableID)
		return err
	})
	g.Go(func() error {
		var err error
		inactive, err = s.records.FetchRecords(gctx, s.cfg.InactiveTableID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	returned := make(map[string]string, len(inactive))
	for _, rec := range inactive {
		plate := strings.TrimSpace(rec.Fields[fieldPlate])
		name := strings.TrimSpace(rec.Fields[fieldFullName])
		if plate == "" || name == "" || plate == "-" || name == "-" {
			continue
		}
		returned[rosterKey(plate, name)] = rec.Fields[fieldHandedBack]
	}

	entries := make([]RosterEntry, 0, len(active))
	for _, rec := range active {
		nik := strings.TrimSpace(rec.Fields[fieldNIK])
		if nik == "" || nik == "-" {
			continue
		}

		plate := strings.TrimSpace(rec.Fields[fieldPlate])
		name := strings.TrimSpace(rec.Fields[fieldFullName])
		handedOut := rec.Fields[fieldHandedOut]

		entry := RosterEntry{
			NIK:           nik,
			HandedOutDate: handedOut,
			Plate:         plate,
			UnitBrand:     rec.Fields[fieldUnitBrand],
			Address:       rec.Fields[fieldAddress],
			Status:        "ACTIVE",
		}

		if handedBack, ok := returned[rosterKey(plate, name)]; ok {
			entry.Status = "INACTIVE"
			entry.ReturnDate = handedBack
			entry.UsageDuration = usageDays(handedOut, handedBack)
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

func rosterKey(plate, name string) string {
	return strings.ToLower(plate) + "###" + strings.ToLower(name)
}

// usageDays renders the whole days between the unit going out and coming
// back, or "" when either date is missing or out of order.
func usageDays(handedOut, handedBack string) string {
	out, err := parseRosterDate(handedOut)
	if err != nil {
		return ""
	}
	back, err := parseRosterDate(handedBack)
	if err != nil {
		return ""
	}
	if !back.After(out) {
		return ""
	}

	days := int(back.Sub(out).Hours()/24 + 0.5)
	if days <= 0 {
		return ""
	}
	return fmt.Sprintf("%d hari", days)
}

func parseRosterDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if strings.Contains(value, "/") {
		return time.Parse("02/01/2006", value)
	}
	return time.Parse(time.RFC3339, value)
}
