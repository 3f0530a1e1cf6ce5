package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNowUsesPortalZone(t *testing.T) {
	require.Equal(t, Location, Now().Location())
}

func TestKnownOffset(t *testing.T) {
	cases := []struct {
		utc        time.Time
		expectHour int
	}{
		// CST is UTC-6
		{time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC), 6},
		// CDT is UTC-5
		{time.Date(2024, time.July, 15, 12, 0, 0, 0, time.UTC), 7},
	}
	for _, test := range cases {
		require.Equal(t, test.expectHour, test.utc.In(Location).Hour())
	}
}
