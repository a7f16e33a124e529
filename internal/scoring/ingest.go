package scoring

import (
	"fmt"
	"strings"
)

// Request carries everything needed to turn one observation into a
// ScoredValue. Stored holds the target and thresholds already persisted for
// the period; they are used for scoring whenever the observation leaves the
// corresponding field unset.
type Request struct {
	Config      Configuration
	Observation RawObservation
	Grant       *Grant
	Stored      Thresholds
	Policy      Policy
	Source      Source
}

// Outcome is a successful ingestion. Warnings lists fields that were nulled
// on the import path because they could not be coerced.
type Outcome struct {
	Value    ScoredValue
	Warnings []error
}

// Ingest authorizes, filters, coerces and scores one observation, then
// applies the note-on-red policy. It performs no I/O.
func Ingest(req Request) (Outcome, error) {
	if req.Grant == nil || (req.Grant.KpiID != "" && req.Grant.KpiID != req.Config.ID) {
		return Outcome{}, fmt.Errorf("%w: updater has no grant for kpi %q", ErrNotAuthorized, req.Config.ID)
	}

	obs := FilterWritableFields(req.Observation, *req.Grant)

	coerced, parsed, warnings, err := CoerceObservation(req.Config, obs, req.Source)
	if err != nil {
		return Outcome{}, err
	}

	res := Score(Inputs{
		Actual: parsed.Actual,
		Target: effective(coerced.TargetValue, parsed.Target, req.Stored.Target),
		Red:    effective(coerced.ThresholdRed, parsed.Red, req.Stored.Red),
		Yellow: effective(coerced.ThresholdYellow, parsed.Yellow, req.Stored.Yellow),
	}, req.Config.ScoringType)

	if res.Score != nil {
		rounded := RoundScore(*res.Score, req.Config.DecimalPrecision)
		res.Score = &rounded
	}

	if req.Policy.RequireNoteOnRed && res.Color == ColorRed && strings.TrimSpace(coerced.Note) == "" {
		return Outcome{}, fmt.Errorf("%w: kpi %q period %s",
			ErrNoteRequired, req.Config.ID, req.Observation.PeriodDate.Format("2006-01-02"))
	}

	return Outcome{
		Value: ScoredValue{
			KpiID:           req.Config.ID,
			PeriodDate:      coerced.PeriodDate,
			ActualValue:     coerced.ActualValue.Value,
			TargetValue:     coerced.TargetValue,
			ThresholdRed:    coerced.ThresholdRed,
			ThresholdYellow: coerced.ThresholdYellow,
			Note:            coerced.Note,
			Score:           res.Score,
			Color:           res.Color,
			IsManualEntry:   req.Source == SourceManual,
		},
		Warnings: warnings,
	}, nil
}

// effective picks the submitted value of a field, or the stored one when the
// field was left unset.
func effective(f Field, submitted *float64, stored *string) *float64 {
	if f.Present {
		return submitted
	}
	return number(stored)
}

func number(v *string) *float64 {
	f, ok := ParseNumber(v)
	if !ok {
		return nil
	}
	return &f
}
