package bulk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func noStoredValues(ctx context.Context, values map[string][]string) (map[string][]string, error) {
	return map[string][]string{}, nil
}

func TestDetectCleanPayload(t *testing.T) {
	rows := []Keyed{
		{Data: "a", Keys: map[string]string{"name": "alpha", "vehNumb": "b-1"}},
		{Data: "b", Keys: map[string]string{"name": "bravo", "vehNumb": "b-2"}},
		{Data: "c", Keys: map[string]string{"name": "charlie", "vehNumb": "b-3"}},
	}

	report, err := Detect(context.Background(), rows, []string{"name", "vehNumb"}, noStoredValues)
	require.NoError(t, err)
	require.False(t, report.HasDuplicates())
	require.Zero(t, report.Total())
}

func TestDetectFlagsLaterRowOnly(t *testing.T) {
	// Vehicle numbers are folded before detection, so B-123 and b-123
	// collide. The earliest row is never flagged; the repeat lands on
	// spreadsheet row 3 (payload index 1 + header offset).
	rows := []Keyed{
		{Data: "first", Keys: map[string]string{"name": "alpha", "vehNumb": "b-123"}},
		{Data: "second", Keys: map[string]string{"name": "bravo", "vehNumb": "b-123"}},
	}

	report, err := Detect(context.Background(), rows, []string{"name", "vehNumb"}, noStoredValues)
	require.NoError(t, err)
	require.Len(t, report.InPayload, 1)
	require.Empty(t, report.InDatabase)

	dup := report.InPayload[0]
	require.Equal(t, 3, dup.Row)
	require.Equal(t, "second", dup.Data)
	require.Equal(t, []string{"vehNumb"}, dup.DuplicateFields)
}

func TestDetectAgainstStoredValues(t *testing.T) {
	rows := []Keyed{
		{Data: "a", Keys: map[string]string{"name": "alpha", "phoneNumber": "0811"}},
		{Data: "b", Keys: map[string]string{"name": "bravo", "phoneNumber": "0822"}},
	}

	find := func(ctx context.Context, values map[string][]string) (map[string][]string, error) {
		require.ElementsMatch(t, []string{"alpha", "bravo"}, values["name"])
		return map[string][]string{
			"name": {"bravo"},
		}, nil
	}

	report, err := Detect(context.Background(), rows, []string{"name", "phoneNumber"}, find)
	require.NoError(t, err)
	require.Empty(t, report.InPayload)
	require.Len(t, report.InDatabase, 1)
	require.Equal(t, 3, report.InDatabase[0].Row)
	require.Equal(t, []string{"name"}, report.InDatabase[0].DuplicateFields)
}

func TestDetectEmptyValuesNeverCollide(t *testing.T) {
	rows := []Keyed{
		{Data: "a", Keys: map[string]string{"name": "alpha", "phoneNumber": ""}},
		{Data: "b", Keys: map[string]string{"name": "bravo", "phoneNumber": ""}},
	}

	report, err := Detect(context.Background(), rows, []string{"name", "phoneNumber"}, noStoredValues)
	require.NoError(t, err)
	require.False(t, report.HasDuplicates())
}

func TestDetectRowFlaggedInBothPasses(t *testing.T) {
	// A row repeated in the payload AND already stored shows up in both
	// report lists.
	rows := []Keyed{
		{Data: "a", Keys: map[string]string{"name": "alpha"}},
		{Data: "b", Keys: map[string]string{"name": "alpha"}},
	}

	find := func(ctx context.Context, values map[string][]string) (map[string][]string, error) {
		return map[string][]string{"name": {"alpha"}}, nil
	}

	report, err := Detect(context.Background(), rows, []string{"name"}, find)
	require.NoError(t, err)
	require.Len(t, report.InPayload, 1)
	require.Len(t, report.InDatabase, 2)
	require.Equal(t, 3, report.Total())
}
