package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"08123456789", "628123456789"},
		{"8123456789", "628123456789"},
		{"628123456789", "628123456789"},
		{"+62 812-3456-789", "628123456789"},
		{"(0812) 3456 789", "628123456789"},
		{"12025550123", "12025550123"},
		{"", ""},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, NormalizePhone(tc.in), "input %q", tc.in)
	}
}

func TestChatID(t *testing.T) {
	require.Equal(t, "628123456789@c.us", ChatID("628123456789"))
}
