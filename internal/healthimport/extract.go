package healthimport

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"
)

const defaultSource = "Apple Health"

// healthDateLayouts are tried in order; the first is what Apple Health writes.
var healthDateLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	time.RFC3339,
}

type healthData struct {
	XMLName xml.Name       `xml:"HealthData"`
	Records []healthRecord `xml:"Record"`
}

type healthRecord struct {
	Type       string `xml:"type,attr"`
	Value      string `xml:"value,attr"`
	SourceName string `xml:"sourceName,attr"`
	StartDate  string `xml:"startDate,attr"`
	EndDate    string `xml:"endDate,attr"`
}

// Segment is one asleep observation from the export.
type Segment struct {
	Start  time.Time
	End    time.Time
	Stage  Stage
	Source string
}

// readExport loads and decodes the whole export document.
func readExport(path string) (*healthData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	var data healthData
	if err := xml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	return &data, nil
}

// extractSegments keeps asleep sleep-analysis records. Records with unusable
// dates are skipped and counted rather than failing the import.
func extractSegments(records []healthRecord) (segments []Segment, skipped int) {
	for _, rec := range records {
		if rec.Type != sleepAnalysisType {
			continue
		}
		stage, ok := ParseStage(rec.Value)
		if !ok {
			continue
		}
		start, err := parseHealthDate(rec.StartDate)
		if err != nil {
			skipped++
			continue
		}
		end, err := parseHealthDate(rec.EndDate)
		if err != nil || end.Before(start) {
			skipped++
			continue
		}
		source := rec.SourceName
		if source == "" {
			source = defaultSource
		}
		segments = append(segments, Segment{Start: start, End: end, Stage: stage, Source: source})
	}
	return segments, skipped
}

func parseHealthDate(s string) (time.Time, error) {
	for _, layout := range healthDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
