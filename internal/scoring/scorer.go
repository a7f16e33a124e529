package scoring

import (
	"math"

	"github.com/shopspring/decimal"
)

// Inputs are the numeric values a score is computed from. A nil pointer
// means the value is absent.
type Inputs struct {
	Actual *float64
	Target *float64
	Red    *float64
	Yellow *float64
}

// Result is a score in [0,100] and its color, or neither when the value
// cannot be scored.
type Result struct {
	Score *float64
	Color Color
}

// Indeterminate reports whether no score could be computed.
func (r Result) Indeterminate() bool { return r.Score == nil }

var indeterminate = Result{}

// Score applies the rule family of scoringType to in.
func Score(in Inputs, scoringType ScoringType) Result {
	switch scoringType {
	case ScoringGoalRedFlag:
		return scoreGoalRedFlag(in)
	case ScoringYesNo:
		return scoreYesNo(in)
	default:
		return indeterminate
	}
}

func scoreGoalRedFlag(in Inputs) Result {
	actual, ok := usable(in.Actual)
	if !ok {
		return indeterminate
	}
	red, hasRed := usable(in.Red)
	yellow, hasYellow := usable(in.Yellow)

	if target, ok := usable(in.Target); ok && target > 0 {
		switch {
		case actual >= target:
			return result(100, ColorGreen)
		case hasYellow && actual >= yellow:
			return result(50+(actual-yellow)/(target-yellow)*50, ColorYellow)
		case hasRed && actual >= red:
			if red <= 0 {
				return result(0, ColorRed)
			}
			return result(actual/red*50, ColorRed)
		default:
			return result(0, ColorRed)
		}
	}

	if hasRed {
		if actual < red {
			return result(0, ColorRed)
		}
		return result(100, ColorGreen)
	}

	return indeterminate
}

func scoreYesNo(in Inputs) Result {
	actual, ok := usable(in.Actual)
	if !ok {
		return indeterminate
	}
	switch actual {
	case 1:
		return result(100, ColorGreen)
	case 0:
		return result(0, ColorRed)
	}
	return indeterminate
}

func usable(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

func result(score float64, color Color) Result {
	score = math.Max(0, math.Min(100, score))
	return Result{Score: &score, Color: color}
}

// RoundScore rounds a score half away from zero to precision digits.
func RoundScore(score float64, precision int) float64 {
	f, _ := decimal.NewFromFloat(score).Round(int32(precision)).Float64()
	return f
}
