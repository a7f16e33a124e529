package models

import (
	"database/sql"
	"time"
)

type KpiConfiguration struct {
	ID               string
	Name             string
	ScoringType      string
	DataType         string
	DecimalPrecision int
	UpdatedAt        time.Time
}

type UpdaterGrant struct {
	KpiID               string
	UpdaterID           string
	CanModifyThresholds bool
}

// KpiValue is one stored row of kpi_values. The *Set flags mark which
// threshold columns an upsert writes; on read they are always true.
type KpiValue struct {
	ID                 string
	KpiID              string
	PeriodDate         string
	ActualValue        sql.NullString
	TargetValue        sql.NullString
	ThresholdRed       sql.NullString
	ThresholdYellow    sql.NullString
	TargetSet          bool
	ThresholdRedSet    bool
	ThresholdYellowSet bool
	Note               string
	Score              sql.NullFloat64
	Color              sql.NullString
	IsManualEntry      bool
	UpdatedBy          string
	UpdatedAt          time.Time
}
