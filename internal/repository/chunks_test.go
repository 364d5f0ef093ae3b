package repository

import (
	"testing"

	"example.com/fleetops/internal/models"

	"github.com/stretchr/testify/require"
)

func TestCollapseByKeyLastOccurrenceWins(t *testing.T) {
	rows := []*models.Fleet{
		{Name: "Unit A", VehNumb: "B 1234 XY"},
		{Name: "Unit B", VehNumb: "B 9999 ZZ"},
		{Name: "Unit A revised", VehNumb: "B 1234 XY"},
	}

	out := collapseByKey(rows, func(f *models.Fleet) string { return f.VehNumb })

	require.Len(t, out, 2)
	require.Equal(t, "B 1234 XY", out[0].VehNumb)
	require.Equal(t, "Unit A revised", out[0].Name)
	require.Equal(t, "B 9999 ZZ", out[1].VehNumb)
}

func TestCollapseByKeyCompositeBonusKey(t *testing.T) {
	key := func(b *models.DriverBonus) string { return b.Hub + "\x00" + b.DriverName }

	rows := []*models.DriverBonus{
		{Hub: "JKT", DriverName: "Agus", FestiveBonus: 100},
		{Hub: "JKT", DriverName: "Budi", FestiveBonus: 200},
		{Hub: "JKT", DriverName: "Agus", FestiveBonus: 300},
		{Hub: "BDG", DriverName: "Agus", FestiveBonus: 400},
	}

	out := collapseByKey(rows, key)

	require.Len(t, out, 3)
	require.Equal(t, float64(300), out[0].FestiveBonus)
	require.Equal(t, "Budi", out[1].DriverName)
	require.Equal(t, "BDG", out[2].Hub)
}

func TestCollapseByKeyDistinctKeysUntouched(t *testing.T) {
	rows := []*models.Fleet{
		{VehNumb: "B 1 A"},
		{VehNumb: "B 2 B"},
		{VehNumb: "B 3 C"},
	}

	out := collapseByKey(rows, func(f *models.Fleet) string { return f.VehNumb })

	require.Equal(t, rows, out)
}
