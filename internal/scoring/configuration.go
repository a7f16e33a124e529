package scoring

import "fmt"

// Validate checks that the scoring type and data type agree and that the
// precision is in range. It is called by configuration operations only.
func (c Configuration) Validate() error {
	if c.DecimalPrecision < 0 || c.DecimalPrecision > MaxDecimalPrecision {
		return fmt.Errorf("%w: decimal precision %d outside [0,%d]",
			ErrConfigurationInconsistent, c.DecimalPrecision, MaxDecimalPrecision)
	}

	switch c.ScoringType {
	case ScoringGoalRedFlag:
		switch c.DataType {
		case DataNumber, DataPercentage, DataCurrency:
			return nil
		}
	case ScoringYesNo:
		if c.DataType == DataNumber {
			return nil
		}
	case ScoringText:
		if c.DataType == DataText {
			return nil
		}
	default:
		return fmt.Errorf("%w: unknown scoring type %q", ErrConfigurationInconsistent, c.ScoringType)
	}

	return fmt.Errorf("%w: scoring type %q does not accept data type %q",
		ErrConfigurationInconsistent, c.ScoringType, c.DataType)
}
