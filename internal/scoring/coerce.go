package scoring

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Parsed numbers are limited to maxIntegerDigits digits before the decimal
// point and maxFractionDigits after it. Larger exponents expand to
// arbitrarily long strings when formatted.
const (
	maxIntegerDigits  = 40
	maxFractionDigits = 64
)

// CoerceNumeric parses raw as a decimal and formats it with exactly
// precision fractional digits. A nil or blank input is not an error and
// yields nil. The returned *CoercionError has no Field set; callers that
// know the field fill it in.
func CoerceNumeric(raw *string, precision int) (*string, error) {
	formatted, _, err := coerceDecimal(raw, precision)
	return formatted, err
}

// coerceDecimal is CoerceNumeric that also returns the parsed value before
// rounding, which is what scoring compares against.
func coerceDecimal(raw *string, precision int) (*string, *float64, error) {
	if raw == nil {
		return nil, nil, nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil, nil, nil
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, nil, &CoercionError{Value: *raw}
	}
	if d.Exponent() < -maxFractionDigits || d.NumDigits()+int(d.Exponent()) > maxIntegerDigits {
		return nil, nil, &CoercionError{Value: *raw}
	}

	formatted := d.StringFixed(int32(precision))
	f, _ := d.Float64()
	return &formatted, &f, nil
}

// ParseNumber returns the numeric value of an already coerced field.
func ParseNumber(v *string) (float64, bool) {
	if v == nil {
		return 0, false
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*v))
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// CoerceObservation normalizes every supplied field of obs according to the
// KPI's data type. On the manual path the first failure is returned as err;
// on the import path failing fields are nulled and reported as warnings.
// The returned Inputs hold the parsed values of the supplied numeric fields
// before they were rounded to the KPI's precision.
func CoerceObservation(cfg Configuration, obs RawObservation, source Source) (RawObservation, Inputs, []error, error) {
	out := obs
	var in Inputs
	var warnings []error

	if cfg.ScoringType == ScoringText {
		if obs.ActualValue.Present {
			if obs.ActualValue.IsNull() {
				out.ActualValue = Null()
			} else {
				out.ActualValue = Of(strings.TrimSpace(obs.ActualValue.String()))
			}
		}
		out.TargetValue = forceNull(obs.TargetValue)
		out.ThresholdRed = forceNull(obs.ThresholdRed)
		out.ThresholdYellow = forceNull(obs.ThresholdYellow)
		return out, in, nil, nil
	}

	actual := obs.ActualValue
	if cfg.ScoringType == ScoringYesNo {
		actual = yesNoToNumber(actual)
	}

	fields := []struct {
		name   string
		in     Field
		out    *Field
		parsed **float64
	}{
		{FieldActual, actual, &out.ActualValue, &in.Actual},
		{FieldTarget, obs.TargetValue, &out.TargetValue, &in.Target},
		{FieldThresholdRed, obs.ThresholdRed, &out.ThresholdRed, &in.Red},
		{FieldThresholdYellow, obs.ThresholdYellow, &out.ThresholdYellow, &in.Yellow},
	}

	for _, f := range fields {
		if !f.in.Present {
			continue
		}
		v, n, err := coerceDecimal(f.in.Value, cfg.DecimalPrecision)
		if err != nil {
			cerr := err.(*CoercionError)
			cerr.Field = f.name
			if source == SourceManual {
				return RawObservation{}, Inputs{}, nil, cerr
			}
			warnings = append(warnings, cerr)
			*f.out = Null()
			continue
		}
		*f.out = FromPtr(v)
		*f.parsed = n
	}

	return out, in, warnings, nil
}

// forceNull clears a supplied field; an unset field stays unset so a
// non-privileged write does not touch stored thresholds.
func forceNull(f Field) Field {
	if !f.Present {
		return f
	}
	return Null()
}

func yesNoToNumber(f Field) Field {
	if f.Value == nil {
		return f
	}
	switch strings.ToLower(strings.TrimSpace(*f.Value)) {
	case "yes":
		return Of("1")
	case "no":
		return Of("0")
	}
	return f
}
