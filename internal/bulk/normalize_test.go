package bulk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeHelpers(t *testing.T) {
	require.Equal(t, "abc", Trim("  abc  "))
	require.Equal(t, "B-123", TrimUpper(" b-123 "))
	require.Equal(t, "user@mail.com", TrimLower(" USER@MAIL.COM "))
	require.Equal(t, "b-123", Fold("B-123"))
}

func TestRequireFields(t *testing.T) {
	err := RequireFields(0, map[string]string{"name": "alpha", "vehNumb": "b-1"})
	require.NoError(t, err)

	err = RequireFields(4, map[string]string{"name": "  ", "vehNumb": ""})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, 5, verr.Record)
	require.Equal(t, []string{"name", "vehNumb"}, verr.Fields)
}
