package service

import (
	"database/sql"
	"time"

	"github.com/godilite/kpi-server/internal/repository/models"
	"github.com/godilite/kpi-server/internal/scoring"
)

func toModel(v scoring.ScoredValue, updatedBy string) models.KpiValue {
	m := models.KpiValue{
		KpiID:              v.KpiID,
		PeriodDate:         v.PeriodDate.Format(periodLayout),
		ActualValue:        nullString(v.ActualValue),
		TargetValue:        nullString(v.TargetValue.Value),
		ThresholdRed:       nullString(v.ThresholdRed.Value),
		ThresholdYellow:    nullString(v.ThresholdYellow.Value),
		TargetSet:          v.TargetValue.Present,
		ThresholdRedSet:    v.ThresholdRed.Present,
		ThresholdYellowSet: v.ThresholdYellow.Present,
		Note:               v.Note,
		IsManualEntry:      v.IsManualEntry,
		UpdatedBy:          updatedBy,
	}
	if v.HasScore() {
		m.Score = sql.NullFloat64{Float64: *v.Score, Valid: true}
		m.Color = sql.NullString{String: string(v.Color), Valid: true}
	}
	return m
}

func fromModel(m models.KpiValue) scoring.ScoredValue {
	period, _ := time.Parse(periodLayout, m.PeriodDate)
	v := scoring.ScoredValue{
		KpiID:           m.KpiID,
		PeriodDate:      period,
		ActualValue:     stringPtr(m.ActualValue),
		TargetValue:     scoring.FromPtr(stringPtr(m.TargetValue)),
		ThresholdRed:    scoring.FromPtr(stringPtr(m.ThresholdRed)),
		ThresholdYellow: scoring.FromPtr(stringPtr(m.ThresholdYellow)),
		Note:            m.Note,
		IsManualEntry:   m.IsManualEntry,
	}
	if m.Score.Valid && m.Color.Valid {
		score := m.Score.Float64
		v.Score = &score
		v.Color = scoring.Color(m.Color.String)
	}
	return v
}

func thresholdsOf(m models.KpiValue) scoring.Thresholds {
	return scoring.Thresholds{
		Target: stringPtr(m.TargetValue),
		Red:    stringPtr(m.ThresholdRed),
		Yellow: stringPtr(m.ThresholdYellow),
	}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
