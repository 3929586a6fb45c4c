package healthimport

import (
	"sort"
	"time"
)

const (
	// MaxMergeGap is the longest wake period that still joins two segments
	// into the same night.
	MaxMergeGap = 30 * time.Minute
	// MinSessionDuration drops naps and sensor noise.
	MinSessionDuration = 30 * time.Minute
)

// Session is one night's sleep rebuilt from adjacent segments.
type Session struct {
	Segments []Segment
	Start    time.Time
	End      time.Time
	Stage    Stage
	Quality  int
}

func (s Session) Duration() time.Duration { return s.End.Sub(s.Start) }

func (s Session) Hours() float64 { return s.Duration().Hours() }

// Source is the provenance of the first segment.
func (s Session) Source() string {
	if len(s.Segments) == 0 {
		return defaultSource
	}
	return s.Segments[0].Source
}

// BuildSessions sorts segments, merges those separated by at most
// MaxMergeGap, drops sessions shorter than MinSessionDuration and scores the
// rest. The result is ordered by start and sessions do not overlap.
func BuildSessions(segments []Segment) []Session {
	var sessions []Session
	for _, group := range groupSegments(segments) {
		s := newSession(group)
		if s.Duration() < MinSessionDuration {
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions
}

// groupSegments partitions the segments, sorted by start then end, into runs
// where each segment starts within MaxMergeGap of the latest end seen so far
// in its run.
func groupSegments(segments []Segment) [][]Segment {
	sorted := make([]Segment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].Start.Before(sorted[j].Start)
		}
		return sorted[i].End.Before(sorted[j].End)
	})

	var groups [][]Segment
	var cur []Segment
	var curEnd time.Time
	for _, seg := range sorted {
		if len(cur) > 0 && seg.Start.Sub(curEnd) > MaxMergeGap {
			groups = append(groups, cur)
			cur = nil
		}
		if len(cur) == 0 || seg.End.After(curEnd) {
			curEnd = seg.End
		}
		cur = append(cur, seg)
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

func newSession(group []Segment) Session {
	s := Session{Segments: group, Start: group[0].Start, End: group[0].End, Stage: StageUnspecified}
	for _, seg := range group {
		if seg.End.After(s.End) {
			s.End = seg.End
		}
		if seg.Stage > s.Stage {
			s.Stage = seg.Stage
		}
	}
	s.Quality = Quality(s.Stage, s.Hours())
	return s
}

// Quality scores a session 1–5 from its best stage, then applies at most one
// duration penalty.
func Quality(best Stage, hours float64) int {
	q := best.baseQuality()
	switch {
	case hours < 4:
		q -= 2
	case hours < 6:
		q--
	case hours > 10:
		q--
	}
	if q < 1 {
		q = 1
	}
	return q
}
