package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func s(v string) *string { return &v }

func TestCoerceNumeric(t *testing.T) {
	cases := []struct {
		name      string
		raw       *string
		precision int
		want      *string
		wantErr   bool
	}{
		{name: "nil is absent", raw: nil, precision: 2, want: nil},
		{name: "blank is absent", raw: s("   "), precision: 2, want: nil},
		{name: "integer padded to precision", raw: s("100"), precision: 2, want: s("100.00")},
		{name: "rounded to precision", raw: s("66.6666"), precision: 2, want: s("66.67")},
		{name: "zero precision", raw: s("12.5"), precision: 0, want: s("13")},
		{name: "surrounding whitespace", raw: s(" 42 "), precision: 1, want: s("42.0")},
		{name: "negative", raw: s("-3.14159"), precision: 3, want: s("-3.142")},
		{name: "text is an error", raw: s("abc"), precision: 2, wantErr: true},
		{name: "trailing junk is an error", raw: s("12abc"), precision: 2, wantErr: true},
		{name: "huge exponent is an error", raw: s("1e50000000"), precision: 2, wantErr: true},
		{name: "tiny exponent is an error", raw: s("1e-50000000"), precision: 2, wantErr: true},
		{name: "forty integer digits are accepted", raw: s("1e39"), precision: 0, want: s("1000000000000000000000000000000000000000")},
		{name: "forty-one integer digits are an error", raw: s("1e40"), precision: 0, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CoerceNumeric(tc.raw, tc.precision)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrCoercion)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCoerceObservation(t *testing.T) {
	numeric := Configuration{ID: "kpi-1", ScoringType: ScoringGoalRedFlag, DataType: DataCurrency, DecimalPrecision: 2}

	t.Run("unset fields stay unset", func(t *testing.T) {
		out, _, warnings, err := CoerceObservation(numeric, RawObservation{ActualValue: Of("5")}, SourceManual)
		require.NoError(t, err)
		assert.Empty(t, warnings)
		assert.Equal(t, s("5.00"), out.ActualValue.Value)
		assert.False(t, out.TargetValue.Present)
		assert.False(t, out.ThresholdRed.Present)
	})

	t.Run("explicit null stays null", func(t *testing.T) {
		out, _, _, err := CoerceObservation(numeric, RawObservation{ThresholdRed: Null()}, SourceManual)
		require.NoError(t, err)
		assert.True(t, out.ThresholdRed.Present)
		assert.Nil(t, out.ThresholdRed.Value)
	})

	t.Run("manual path rejects with field name", func(t *testing.T) {
		_, _, _, err := CoerceObservation(numeric, RawObservation{ActualValue: Of("1"), TargetValue: Of("lots")}, SourceManual)
		require.Error(t, err)
		var cerr *CoercionError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, FieldTarget, cerr.Field)
		assert.Equal(t, "lots", cerr.Value)
	})

	t.Run("import path nulls the field with a warning", func(t *testing.T) {
		out, _, warnings, err := CoerceObservation(numeric, RawObservation{ActualValue: Of("n/a"), TargetValue: Of("10")}, SourceImport)
		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.ErrorIs(t, warnings[0], ErrCoercion)
		assert.True(t, out.ActualValue.Present)
		assert.Nil(t, out.ActualValue.Value)
		assert.Equal(t, s("10.00"), out.TargetValue.Value)
	})

	t.Run("parsed values are not rounded", func(t *testing.T) {
		cfg := Configuration{ID: "kpi-4", ScoringType: ScoringGoalRedFlag, DataType: DataNumber, DecimalPrecision: 0}
		out, in, _, err := CoerceObservation(cfg, RawObservation{ActualValue: Of("99.6"), TargetValue: Of("100")}, SourceManual)
		require.NoError(t, err)
		assert.Equal(t, s("100"), out.ActualValue.Value)
		require.NotNil(t, in.Actual)
		assert.Equal(t, 99.6, *in.Actual)
		assert.Equal(t, 100.0, *in.Target)
		assert.Nil(t, in.Red)
	})

	t.Run("oversized number is nulled on import", func(t *testing.T) {
		out, in, warnings, err := CoerceObservation(numeric, RawObservation{ActualValue: Of("9e999999")}, SourceImport)
		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.True(t, out.ActualValue.Present)
		assert.Nil(t, out.ActualValue.Value)
		assert.Nil(t, in.Actual)
	})

	t.Run("yes and no become one and zero", func(t *testing.T) {
		cfg := Configuration{ID: "kpi-2", ScoringType: ScoringYesNo, DataType: DataNumber, DecimalPrecision: 0}
		out, _, _, err := CoerceObservation(cfg, RawObservation{ActualValue: Of("YES")}, SourceManual)
		require.NoError(t, err)
		assert.Equal(t, s("1"), out.ActualValue.Value)

		out, _, _, err = CoerceObservation(cfg, RawObservation{ActualValue: Of(" No ")}, SourceManual)
		require.NoError(t, err)
		assert.Equal(t, s("0"), out.ActualValue.Value)
	})

	t.Run("text keeps actual and forces thresholds to null", func(t *testing.T) {
		cfg := Configuration{ID: "kpi-3", ScoringType: ScoringText, DataType: DataText}
		out, _, _, err := CoerceObservation(cfg, RawObservation{
			ActualValue:  Of("  on track "),
			TargetValue:  Of("100"),
			ThresholdRed: Of("5"),
		}, SourceManual)
		require.NoError(t, err)
		assert.Equal(t, s("on track"), out.ActualValue.Value)
		assert.True(t, out.TargetValue.Present)
		assert.Nil(t, out.TargetValue.Value)
		assert.True(t, out.ThresholdRed.Present)
		assert.Nil(t, out.ThresholdRed.Value)
		assert.False(t, out.ThresholdYellow.Present)
	})

	t.Run("text null actual stays null", func(t *testing.T) {
		cfg := Configuration{ID: "kpi-3", ScoringType: ScoringText, DataType: DataText}
		out, _, _, err := CoerceObservation(cfg, RawObservation{ActualValue: Null()}, SourceManual)
		require.NoError(t, err)
		assert.True(t, out.ActualValue.Present)
		assert.True(t, out.ActualValue.IsNull())
	})
}

func TestConfigurationValidate(t *testing.T) {
	valid := []Configuration{
		{ScoringType: ScoringGoalRedFlag, DataType: DataNumber, DecimalPrecision: 2},
		{ScoringType: ScoringGoalRedFlag, DataType: DataPercentage},
		{ScoringType: ScoringGoalRedFlag, DataType: DataCurrency, DecimalPrecision: 20},
		{ScoringType: ScoringYesNo, DataType: DataNumber},
		{ScoringType: ScoringText, DataType: DataText},
	}
	for _, c := range valid {
		assert.NoError(t, c.Validate(), "%s/%s", c.ScoringType, c.DataType)
	}

	invalid := []Configuration{
		{ScoringType: ScoringGoalRedFlag, DataType: DataText},
		{ScoringType: ScoringYesNo, DataType: DataPercentage},
		{ScoringType: ScoringText, DataType: DataNumber},
		{ScoringType: "weighted", DataType: DataNumber},
		{ScoringType: ScoringYesNo, DataType: DataNumber, DecimalPrecision: 21},
		{ScoringType: ScoringYesNo, DataType: DataNumber, DecimalPrecision: -1},
	}
	for _, c := range invalid {
		err := c.Validate()
		assert.ErrorIs(t, err, ErrConfigurationInconsistent, "%s/%s/%d", c.ScoringType, c.DataType, c.DecimalPrecision)
	}
}
