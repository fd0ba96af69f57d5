package polymarket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutcomePrices(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantYes float64
		wantNo  float64
		wantOK  bool
	}{
		{"normal", `["0.25", "0.75"]`, 0.25, 0.75, true},
		{"yes collapsed to zero", `["0", "0.995"]`, 0.001, 0.995, true},
		{"no collapsed to zero", `["0.995", "0"]`, 0.995, 0.001, true},
		{"both zero no fixup", `["0", "0"]`, 0, 0, true},
		{"negative yes", `["-0.1", "0.9"]`, 0, 0, false},
		{"empty string", "", 0, 0, false},
		{"not json", "garbage", 0, 0, false},
		{"single element", `["0.5"]`, 0, 0, false},
		{"non numeric", `["abc", "0.5"]`, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yes, no, ok := parseOutcomePrices(tt.raw)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.InDelta(t, tt.wantYes, yes, 0.0001)
				assert.InDelta(t, tt.wantNo, no, 0.0001)
			}
		})
	}
}

func TestParseTokenIDs(t *testing.T) {
	yesID, noID := parseTokenIDs(`["tok_yes", "tok_no"]`)
	assert.Equal(t, "tok_yes", yesID)
	assert.Equal(t, "tok_no", noID)

	yesID, noID = parseTokenIDs("")
	assert.Empty(t, yesID)
	assert.Empty(t, noID)

	yesID, noID = parseTokenIDs(`["solo"]`)
	assert.Equal(t, "solo", yesID)
	assert.Empty(t, noID)
}

func TestParseEndDate(t *testing.T) {
	got := parseEndDate("2026-09-01T12:00:00Z")
	assert.Equal(t, time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC), got)

	assert.True(t, parseEndDate("").IsZero())
	assert.True(t, parseEndDate("not-a-date").IsZero())
}

func TestParseVolume(t *testing.T) {
	assert.InDelta(t, 1234.5, parseVolume("1234.5"), 0.0001)
	assert.Zero(t, parseVolume(""))
	assert.Zero(t, parseVolume("n/a"))
}

func TestMapCandidate(t *testing.T) {
	gm := gammaMarket{
		ConditionID:  "0xcond",
		Question:     "Will the high in NYC exceed 90F?",
		Slug:         "highest-temperature-in-nyc",
		EndDate:      "2026-09-01T22:00:00Z",
		Volume:       "540.2",
		ClobTokenIDs: `["tok_yes", "tok_no"]`,
	}

	c := mapCandidate(gm, "nyc", 0.24, 0.76)

	assert.Equal(t, "0xcond", c.ConditionID)
	assert.Equal(t, "nyc", c.City)
	assert.InDelta(t, 0.24, c.YesPrice, 0.0001)
	assert.InDelta(t, 0.76, c.NoPrice, 0.0001)
	assert.InDelta(t, 540.2, c.Volume, 0.0001)
	assert.Equal(t, "tok_yes", c.YesTokenID)
	assert.Equal(t, "tok_no", c.NoTokenID)
	assert.Equal(t, time.Date(2026, 9, 1, 22, 0, 0, 0, time.UTC), c.EndDate)
}
