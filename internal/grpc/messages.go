package grpc

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/godilite/kpi-server/internal/scoring"
	"github.com/godilite/kpi-server/internal/service"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const dateLayout = "2006-01-02"

func stringField(req *structpb.Struct, key string) string {
	v, ok := req.GetFields()[key]
	if !ok {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return strings.TrimSpace(k.StringValue)
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	}
	return ""
}

func requiredString(req *structpb.Struct, key string) (string, error) {
	v := stringField(req, key)
	if v == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	return v, nil
}

func boolField(req *structpb.Struct, key string) bool {
	return req.GetFields()[key].GetBoolValue()
}

func dateField(req *structpb.Struct, key string) (time.Time, error) {
	raw, err := requiredString(req, key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "%s must be a YYYY-MM-DD date", key)
	}
	return t, nil
}

// valueField maps an absent key to an unset field and a JSON null to an
// explicit null.
func valueField(req *structpb.Struct, key string) scoring.Field {
	v, ok := req.GetFields()[key]
	if !ok {
		return scoring.Unset()
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return scoring.Null()
	case *structpb.Value_StringValue:
		return scoring.Of(k.StringValue)
	case *structpb.Value_NumberValue:
		return scoring.Of(strconv.FormatFloat(k.NumberValue, 'f', -1, 64))
	case *structpb.Value_BoolValue:
		if k.BoolValue {
			return scoring.Of("yes")
		}
		return scoring.Of("no")
	}
	// Lists and objects are passed through as text so coercion rejects them.
	return scoring.Of(v.String())
}

func observationFrom(req *structpb.Struct) (scoring.RawObservation, error) {
	period, err := dateField(req, "period_date")
	if err != nil {
		return scoring.RawObservation{}, err
	}
	obs := observationFields(req)
	obs.PeriodDate = period
	return obs, nil
}

// importRowFrom leaves an invalid period date zero so the row is rejected
// on its own instead of failing the batch.
func importRowFrom(row *structpb.Struct) scoring.RawObservation {
	obs := observationFields(row)
	if period, err := dateField(row, "period_date"); err == nil {
		obs.PeriodDate = period
	}
	return obs
}

func observationFields(req *structpb.Struct) scoring.RawObservation {
	return scoring.RawObservation{
		ActualValue:     valueField(req, "actual_value"),
		TargetValue:     valueField(req, "target_value"),
		ThresholdRed:    valueField(req, "threshold_red"),
		ThresholdYellow: valueField(req, "threshold_yellow"),
		Note:            req.GetFields()["note"].GetStringValue(),
	}
}

func configurationFrom(req *structpb.Struct) (scoring.Configuration, error) {
	id, err := requiredString(req, "kpi_id")
	if err != nil {
		return scoring.Configuration{}, err
	}
	precision := req.GetFields()["decimal_precision"].GetNumberValue()
	if precision != float64(int(precision)) {
		return scoring.Configuration{}, status.Error(codes.InvalidArgument, "decimal_precision must be an integer")
	}
	return scoring.Configuration{
		ID:               id,
		Name:             stringField(req, "name"),
		ScoringType:      scoring.ScoringType(stringField(req, "scoring_type")),
		DataType:         scoring.DataType(stringField(req, "data_type")),
		DecimalPrecision: int(precision),
	}, nil
}

func nullable(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func valueMap(v scoring.ScoredValue) map[string]any {
	m := map[string]any{
		"kpi_id":          v.KpiID,
		"period_date":     v.PeriodDate.Format(dateLayout),
		"actual_value":    nullable(v.ActualValue),
		"note":            v.Note,
		"score":           nil,
		"color":           nil,
		"is_manual_entry": v.IsManualEntry,
	}
	if v.TargetValue.Present {
		m["target_value"] = nullable(v.TargetValue.Value)
	}
	if v.ThresholdRed.Present {
		m["threshold_red"] = nullable(v.ThresholdRed.Value)
	}
	if v.ThresholdYellow.Present {
		m["threshold_yellow"] = nullable(v.ThresholdYellow.Value)
	}
	if v.HasScore() {
		m["score"] = *v.Score
		m["color"] = string(v.Color)
	}
	return m
}

func valueList(values []scoring.ScoredValue) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = valueMap(v)
	}
	return out
}

func batchMap(r service.BatchResult) map[string]any {
	rejected := make([]any, len(r.Rejected))
	for i, rej := range r.Rejected {
		period := any(nil)
		if !rej.PeriodDate.IsZero() {
			period = rej.PeriodDate.Format(dateLayout)
		}
		rejected[i] = map[string]any{
			"row":         float64(rej.Row),
			"period_date": period,
			"reason":      rej.Reason,
			"message":     rej.Message,
		}
	}
	warnings := make([]any, len(r.Warnings))
	for i, w := range r.Warnings {
		warnings[i] = map[string]any{
			"row":     float64(w.Row),
			"message": w.Message,
		}
	}
	return map[string]any{
		"stored":   float64(len(r.Values)),
		"values":   valueList(r.Values),
		"rejected": rejected,
		"warnings": warnings,
	}
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return s, nil
}
