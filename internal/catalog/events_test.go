package catalog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEvents(t *testing.T) {
	events, err := LoadEvents(filepath.Join("testdata", "events.yaml"))
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, []string{"Atlanta Hawks", "Boston Celtics"}, first.Teams)
	assert.Equal(t, time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC), first.Start)
	assert.Equal(t, "2025-2026", first.Season.English())
	assert.False(t, first.HasResult())

	o, ok := first.Override("nba_hcp_1")
	require.True(t, ok)
	require.Len(t, o.Handicaps, 2)
	assert.True(t, o.Handicaps[0].Equal(decimal.RequireFromString("-3.5")))
	_, ok = first.Override("NBA_OU_1")
	assert.False(t, ok)

	second := events[1]
	assert.Equal(t, time.Date(2026, 3, 3, 0, 30, 0, 0, time.UTC), second.Start)
	assert.Equal(t, "finished", second.Status)
	assert.Equal(t, []string{"101", "99"}, second.Scores)
	assert.True(t, second.HasResult())
	assert.Equal(t, []int64{101, 99}, second.Result)
}

func TestParseEventsRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "three teams",
			doc: `events:
  - teams: [A, B, C]
    sport: Basketball
    eventgroup: NBA
    start_time: "2026-03-02T01:00:00"
`,
		},
		{
			name: "unknown status",
			doc: `events:
  - teams: [A, B]
    sport: Basketball
    eventgroup: NBA
    start_time: "2026-03-02T01:00:00"
    status: postponed
`,
		},
		{
			name: "bad start time",
			doc: `events:
  - teams: [A, B]
    sport: Basketball
    eventgroup: NBA
    start_time: "next tuesday"
`,
		},
		{
			name: "unsupported version",
			doc: `version: 3.0.0
events: []
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvents("events.yaml", []byte(tt.doc))
			require.Error(t, err)
			assert.True(t, IsValidationError(err), "got %v", err)
		})
	}
}
