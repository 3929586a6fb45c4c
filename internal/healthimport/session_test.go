package healthimport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSessionsMergesWithinGap(t *testing.T) {
	sessions := BuildSessions([]Segment{
		seg("2024-03-01 23:00", "2024-03-02 01:00", StageCore),
		seg("2024-03-02 01:30", "2024-03-02 03:00", StageDeep), // exactly 30 min gap
		seg("2024-03-02 03:31", "2024-03-02 05:00", StageREM),  // 31 min gap
	})
	require.Len(t, sessions, 2)

	first := sessions[0]
	assert.True(t, first.Start.Equal(at("2024-03-01 23:00")))
	assert.True(t, first.End.Equal(at("2024-03-02 03:00")))
	assert.Len(t, first.Segments, 2)
	assert.Equal(t, StageDeep, first.Stage)

	second := sessions[1]
	assert.True(t, second.Start.Equal(at("2024-03-02 03:31")))
	assert.Equal(t, StageREM, second.Stage)
}

func TestBuildSessionsMinimumDuration(t *testing.T) {
	tests := []struct {
		name string
		end  string
		kept bool
	}{
		{"29 minutes", "2024-03-01 12:29", false},
		{"30 minutes", "2024-03-01 12:30", true},
		{"31 minutes", "2024-03-01 12:31", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := BuildSessions([]Segment{seg("2024-03-01 12:00", tt.end, StageCore)})
			if tt.kept {
				assert.Len(t, sessions, 1)
			} else {
				assert.Empty(t, sessions)
			}
		})
	}
}

func TestBuildSessionsOrderedAndDisjoint(t *testing.T) {
	sessions := BuildSessions([]Segment{
		seg("2024-03-03 22:00", "2024-03-04 06:00", StageCore),
		seg("2024-03-01 23:00", "2024-03-02 07:00", StageCore),
		seg("2024-03-02 22:30", "2024-03-03 06:30", StageREM),
		seg("2024-03-01 23:30", "2024-03-02 00:30", StageDeep), // nested
		seg("2024-03-02 07:20", "2024-03-02 08:00", StageCore),
	})
	require.Len(t, sessions, 3)
	for i := 1; i < len(sessions); i++ {
		assert.True(t, sessions[i-1].End.Before(sessions[i].Start), "session %d overlaps its successor", i-1)
	}
	// The nested deep segment and the 07:20 tail both join the first night.
	assert.True(t, sessions[0].End.Equal(at("2024-03-02 08:00")))
	assert.Equal(t, StageDeep, sessions[0].Stage)
	assert.Len(t, sessions[0].Segments, 3)
}

func TestBuildSessionsIsDeterministicOnTies(t *testing.T) {
	a := seg("2024-03-01 23:00", "2024-03-02 01:00", StageCore)
	b := seg("2024-03-01 23:00", "2024-03-02 00:00", StageREM)
	s1 := BuildSessions([]Segment{a, b})
	s2 := BuildSessions([]Segment{b, a})
	require.Len(t, s1, 1)
	assert.Equal(t, s1, s2)
	assert.Equal(t, StageREM, s1[0].Segments[0].Stage)
}

func TestBuildSessionsEmpty(t *testing.T) {
	assert.Empty(t, BuildSessions(nil))
}

func TestQuality(t *testing.T) {
	tests := []struct {
		name   string
		stages []Stage
		hours  float64
		want   int
	}{
		{"core and deep, 7h", []Stage{StageCore, StageDeep}, 7, 5},
		{"rem, 3h", []Stage{StageREM}, 3, 2},
		{"unspecified, 11h", []Stage{StageUnspecified}, 11, 2},
		{"deep, 5h", []Stage{StageDeep}, 5, 4},
		{"core, exactly 6h", []Stage{StageCore}, 6, 3},
		{"core, exactly 4h", []Stage{StageCore}, 4, 2},
		{"core, exactly 10h", []Stage{StageCore}, 10, 3},
		{"unspecified, 1h", []Stage{StageUnspecified}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := at("2024-03-01 22:00")
			end := start.Add(time.Duration(tt.hours * float64(time.Hour)))
			var segments []Segment
			for _, st := range tt.stages {
				segments = append(segments, Segment{Start: start, End: end, Stage: st, Source: defaultSource})
			}
			sessions := BuildSessions(segments)
			require.Len(t, sessions, 1)
			assert.Equal(t, tt.want, sessions[0].Quality)
			assert.Equal(t, tt.want, Quality(sessions[0].Stage, tt.hours))
		})
	}
}

func TestBuildSessionsEndToEndNight(t *testing.T) {
	sessions := BuildSessions([]Segment{
		seg("2024-03-01 23:00", "2024-03-02 02:00", StageCore),
		seg("2024-03-02 02:10", "2024-03-02 06:30", StageCore),
		seg("2024-03-02 14:00", "2024-03-02 14:45", StageUnspecified),
	})
	require.Len(t, sessions, 2)
	assert.InDelta(t, 7.5, sessions[0].Hours(), 1e-9)
	assert.InDelta(t, 0.75, sessions[1].Hours(), 1e-9)
	assert.Equal(t, 3, sessions[0].Quality)
	assert.Equal(t, 1, sessions[1].Quality)
	assert.Equal(t, "Apple Watch", sessions[0].Source())
}
