package scoring

import (
	"strings"
	"time"
)

// ScoringType selects the rule family applied to a KPI's values.
type ScoringType string

const (
	ScoringGoalRedFlag ScoringType = "goal_red_flag"
	ScoringYesNo       ScoringType = "yes_no"
	ScoringText        ScoringType = "text"
)

// DataType is the declared type of a KPI's reported values.
type DataType string

const (
	DataNumber     DataType = "number"
	DataPercentage DataType = "percentage"
	DataCurrency   DataType = "currency"
	DataText       DataType = "text"
)

// Color is the traffic-light classification of a scored value.
// The zero value means no color could be determined.
type Color string

const (
	ColorNone   Color = ""
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorRed    Color = "red"
)

// Source tells where an observation came from.
type Source int

const (
	SourceManual Source = iota
	SourceImport
)

func (s Source) String() string {
	if s == SourceImport {
		return "import"
	}
	return "manual"
}

const MaxDecimalPrecision = 20

// Configuration describes how values of one KPI are typed and scored.
type Configuration struct {
	ID               string
	Name             string
	ScoringType      ScoringType
	DataType         DataType
	DecimalPrecision int
}

// Field is a writable value that keeps "not supplied" apart from
// "explicitly cleared".
type Field struct {
	Present bool
	Value   *string
}

// Unset returns a field that was not supplied.
func Unset() Field { return Field{} }

// Null returns a field that was supplied as an explicit null.
func Null() Field { return Field{Present: true} }

// Of returns a field carrying v.
func Of(v string) Field { return Field{Present: true, Value: &v} }

// FromPtr returns a present field holding v, which may be nil.
func FromPtr(v *string) Field { return Field{Present: true, Value: v} }

// IsNull reports whether the field carries no usable value.
func (f Field) IsNull() bool {
	return f.Value == nil || strings.TrimSpace(*f.Value) == ""
}

// String returns the carried value, or "" when none.
func (f Field) String() string {
	if f.Value == nil {
		return ""
	}
	return *f.Value
}

// RawObservation is one candidate update of a KPI for one period.
type RawObservation struct {
	PeriodDate      time.Time
	ActualValue     Field
	TargetValue     Field
	ThresholdRed    Field
	ThresholdYellow Field
	Note            string
}

// Grant registers an updater for a KPI.
type Grant struct {
	KpiID               string
	UpdaterID           string
	CanModifyThresholds bool
}

// Policy holds the global switches that affect ingestion.
type Policy struct {
	RequireNoteOnRed bool
}

// Thresholds are the target and thresholds already stored for a period.
type Thresholds struct {
	Target *string
	Red    *string
	Yellow *string
}

// ScoredValue is the persisted-ready result for one (KPI, period).
type ScoredValue struct {
	KpiID           string
	PeriodDate      time.Time
	ActualValue     *string
	TargetValue     Field
	ThresholdRed    Field
	ThresholdYellow Field
	Note            string
	Score           *float64
	Color           Color
	IsManualEntry   bool
}

// HasScore reports whether both score and color were determined.
func (v ScoredValue) HasScore() bool {
	return v.Score != nil && v.Color != ColorNone
}
