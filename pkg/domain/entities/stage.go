package entities

import (
	"fmt"
	"strings"
)

// Stage is a step in the cashew processing line, in processing order
type Stage int

const (
	StageIntake Stage = iota
	StageDrying
	StageSteaming
	StageShelling
	StageKernelDrying
	StagePeeling
	StageGrading
	StagePackaging
	StageDispatch
	StageQualityCheck
)

type stageInfo struct {
	key     string
	display string
}

var stages = []stageInfo{
	{"intake", "RCN Intake"},
	{"drying", "RCN Drying"},
	{"steaming", "Steaming"},
	{"shelling", "Shelling"},
	{"kernel_drying", "Kernel Drying"},
	{"peeling", "Peeling"},
	{"grading", "Grading"},
	{"packaging", "Packaging"},
	{"dispatch", "Dispatch"},
	{"quality_check", "Quality Check"},
}

// AllStages lists every stage in processing order
func AllStages() []Stage {
	all := make([]Stage, len(stages))
	for i := range stages {
		all[i] = Stage(i)
	}
	return all
}

// LineStages lists the stages a lot passes through on the processing line.
// Quality checks may happen at any point and are not part of the line.
func LineStages() []Stage {
	return AllStages()[:StageQualityCheck]
}

// String method for Stage enum
func (s Stage) String() string {
	if !s.Valid() {
		return "unknown"
	}
	return stages[s].key
}

// DisplayName is the human label for the stage
func (s Stage) DisplayName() string {
	if !s.Valid() {
		return "Unknown"
	}
	return stages[s].display
}

// Order is the position of the stage on the processing line
func (s Stage) Order() int {
	return int(s)
}

// Valid reports whether s is a known stage
func (s Stage) Valid() bool {
	return s >= 0 && int(s) < len(stages)
}

// ParseStage converts a stage key (or display name) to a Stage
func ParseStage(s string) (Stage, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.NewReplacer("-", "_", " ", "_").Replace(name)
	for i, info := range stages {
		if info.key == name || strings.ReplaceAll(strings.ToLower(info.display), " ", "_") == name {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrInvalidStage, s)
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Shift is the work shift a log was captured in
type Shift string

const (
	ShiftMorning Shift = "morning"
	ShiftEvening Shift = "evening"
	ShiftNight   Shift = "night"
)

// ParseShift validates a shift name; empty means unspecified
func ParseShift(s string) (Shift, error) {
	switch sh := Shift(strings.ToLower(strings.TrimSpace(s))); sh {
	case "", ShiftMorning, ShiftEvening, ShiftNight:
		return sh, nil
	default:
		return "", fmt.Errorf("invalid shift: %s (expected: morning, evening or night)", s)
	}
}
