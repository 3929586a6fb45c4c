package healthimport

import "strings"

// Apple Health vocabulary for sleep analysis records.
const (
	sleepAnalysisType = "HKCategoryTypeIdentifierSleepAnalysis"
	asleepMarker      = "Asleep"

	valueAsleepDeep = "HKCategoryValueSleepAnalysisAsleepDeep"
	valueAsleepREM  = "HKCategoryValueSleepAnalysisAsleepREM"
	valueAsleepCore = "HKCategoryValueSleepAnalysisAsleepCore"
)

// Stage is a sleep stage. Values are ordered by ranking so the best stage of
// a session is simply the maximum.
type Stage int

const (
	StageUnspecified Stage = iota
	StageCore
	StageREM
	StageDeep
)

func (s Stage) String() string {
	switch s {
	case StageDeep:
		return "deep"
	case StageREM:
		return "rem"
	case StageCore:
		return "core"
	default:
		return "unspecified"
	}
}

func (s Stage) baseQuality() int {
	switch s {
	case StageDeep:
		return 5
	case StageREM:
		return 4
	default:
		return 3
	}
}

// ParseStage maps a raw sleep analysis value to a Stage. ok is false for
// values that do not denote sleep, such as InBed or Awake.
func ParseStage(value string) (stage Stage, ok bool) {
	if !strings.Contains(value, asleepMarker) {
		return StageUnspecified, false
	}
	switch value {
	case valueAsleepDeep:
		return StageDeep, true
	case valueAsleepREM:
		return StageREM, true
	case valueAsleepCore:
		return StageCore, true
	default:
		return StageUnspecified, true
	}
}
