package healthimport

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSegmentsFiltersAndMaps(t *testing.T) {
	doc := exportXML(
		sleepRecord(valueAsleepDeep, "2024-03-01 01:00", "2024-03-01 02:00"),
		sleepRecord("HKCategoryValueSleepAnalysisInBed", "2024-03-01 00:00", "2024-03-01 07:00"),
		sleepRecord("HKCategoryValueSleepAnalysisAwake", "2024-03-01 02:00", "2024-03-01 02:05"),
		sleepRecord("HKCategoryValueSleepAnalysisAsleep", "2024-03-01 02:05", "2024-03-01 04:00"),
		xmlRecord{Type: "HKQuantityTypeIdentifierHeartRate", Value: "Asleep", Start: "2024-03-01 01:00:00 +0000", End: "2024-03-01 01:01:00 +0000"},
	)
	var data healthData
	require.NoError(t, xml.Unmarshal([]byte(doc), &data))

	segments, skipped := extractSegments(data.Records)
	assert.Zero(t, skipped)
	require.Len(t, segments, 2)
	assert.Equal(t, StageDeep, segments[0].Stage)
	assert.Equal(t, "Apple Watch", segments[0].Source)
	assert.Equal(t, StageUnspecified, segments[1].Stage)
	assert.True(t, segments[1].Start.Equal(at("2024-03-01 02:05")))
}

func TestExtractSegmentsSkipsUnusableRecords(t *testing.T) {
	records := []healthRecord{
		{Type: sleepAnalysisType, Value: valueAsleepCore, StartDate: "yesterday", EndDate: "2024-03-01 02:00:00 +0000"},
		{Type: sleepAnalysisType, Value: valueAsleepCore, StartDate: "2024-03-01 02:00:00 +0000", EndDate: ""},
		{Type: sleepAnalysisType, Value: valueAsleepCore, StartDate: "2024-03-01 03:00:00 +0000", EndDate: "2024-03-01 02:00:00 +0000"},
		{Type: sleepAnalysisType, Value: valueAsleepREM, StartDate: "2024-03-01T03:00:00+01:00", EndDate: "2024-03-01T04:00:00+01:00"},
	}
	segments, skipped := extractSegments(records)
	assert.Equal(t, 3, skipped)
	require.Len(t, segments, 1)
	assert.Equal(t, defaultSource, segments[0].Source)
	assert.Equal(t, time.UTC, segments[0].Start.Location())
	assert.True(t, segments[0].Start.Equal(at("2024-03-01 02:00")))
}

func TestParseHealthDateNormalizesToUTC(t *testing.T) {
	got, err := parseHealthDate("2024-03-01 23:30:00 -0500")
	require.NoError(t, err)
	assert.True(t, got.Equal(at("2024-03-02 04:30")), "got %s", got)
}

func TestReadExportRejectsMalformedXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xml")
	require.NoError(t, os.WriteFile(path, []byte("<HealthData><Record"), 0o644))
	_, err := readExport(path)
	assert.Error(t, err)
}
