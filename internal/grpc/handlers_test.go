package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/godilite/kpi-server/internal/grpc/mocks"
	"github.com/godilite/kpi-server/internal/scoring"
	"github.com/godilite/kpi-server/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func ptr(s string) *string { return &s }

func TestNewGRPCHandlers(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		svc := &mocks.MockIngestionService{}
		handlers := NewGRPCHandlers(svc, zap.NewNop())

		assert.NotNil(t, handlers)
		assert.Equal(t, svc, handlers.svc)
		assert.NotNil(t, handlers.logger)
	})

	t.Run("nil service panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewGRPCHandlers(nil, zap.NewNop())
		})
	})

	t.Run("nil logger is allowed", func(t *testing.T) {
		handlers := NewGRPCHandlers(&mocks.MockIngestionService{}, nil)
		assert.NotNil(t, handlers.logger)
	})
}

func TestSubmitValue_Decoding(t *testing.T) {
	var got scoring.RawObservation
	svc := &mocks.MockIngestionService{
		SubmitValueFunc: func(ctx context.Context, kpiID, updaterID string, obs scoring.RawObservation) (scoring.ScoredValue, error) {
			assert.Equal(t, "revenue", kpiID)
			assert.Equal(t, "admin", updaterID)
			got = obs
			return scoring.ScoredValue{KpiID: kpiID, PeriodDate: obs.PeriodDate}, nil
		},
	}
	handlers := NewGRPCHandlers(svc, zap.NewNop())

	req := mustStruct(t, map[string]any{
		"kpi_id":           "revenue",
		"updater_id":       "admin",
		"period_date":      "2024-03-01",
		"actual_value":     140000.5,
		"target_value":     "150000",
		"threshold_yellow": nil,
		"note":             "late invoices",
	})

	_, err := handlers.SubmitValue(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got.PeriodDate)
	assert.Equal(t, scoring.Of("140000.5"), got.ActualValue)
	assert.Equal(t, scoring.Of("150000"), got.TargetValue)
	assert.Equal(t, scoring.Null(), got.ThresholdYellow, "null is an explicit clear")
	assert.Equal(t, scoring.Unset(), got.ThresholdRed, "absent key stays unset")
	assert.Equal(t, "late invoices", got.Note)
}

func TestSubmitValue_BoolMapsToYesNo(t *testing.T) {
	var got scoring.RawObservation
	svc := &mocks.MockIngestionService{
		SubmitValueFunc: func(ctx context.Context, kpiID, updaterID string, obs scoring.RawObservation) (scoring.ScoredValue, error) {
			got = obs
			return scoring.ScoredValue{}, nil
		},
	}
	handlers := NewGRPCHandlers(svc, zap.NewNop())

	_, err := handlers.SubmitValue(context.Background(), mustStruct(t, map[string]any{
		"kpi_id": "audit", "updater_id": "admin", "period_date": "2024-03-01", "actual_value": true,
	}))
	require.NoError(t, err)
	assert.Equal(t, scoring.Of("yes"), got.ActualValue)
}

func TestSubmitValue_Encoding(t *testing.T) {
	score := 93.33
	svc := &mocks.MockIngestionService{
		SubmitValueFunc: func(ctx context.Context, kpiID, updaterID string, obs scoring.RawObservation) (scoring.ScoredValue, error) {
			return scoring.ScoredValue{
				KpiID:         "revenue",
				PeriodDate:    obs.PeriodDate,
				ActualValue:   ptr("140000.00"),
				TargetValue:   scoring.Of("150000.00"),
				ThresholdRed:  scoring.Null(),
				Score:         &score,
				Color:         scoring.ColorYellow,
				IsManualEntry: true,
			}, nil
		},
	}
	handlers := NewGRPCHandlers(svc, zap.NewNop())

	resp, err := handlers.SubmitValue(context.Background(), mustStruct(t, map[string]any{
		"kpi_id": "revenue", "updater_id": "admin", "period_date": "2024-03-01", "actual_value": "140000",
	}))
	require.NoError(t, err)

	m := resp.AsMap()
	assert.Equal(t, "revenue", m["kpi_id"])
	assert.Equal(t, "2024-03-01", m["period_date"])
	assert.Equal(t, "140000.00", m["actual_value"])
	assert.Equal(t, "150000.00", m["target_value"])
	assert.Contains(t, m, "threshold_red")
	assert.Nil(t, m["threshold_red"])
	assert.NotContains(t, m, "threshold_yellow")
	assert.Equal(t, 93.33, m["score"])
	assert.Equal(t, "yellow", m["color"])
	assert.Equal(t, true, m["is_manual_entry"])
}

func TestSubmitValue_Indeterminate(t *testing.T) {
	svc := &mocks.MockIngestionService{
		SubmitValueFunc: func(ctx context.Context, kpiID, updaterID string, obs scoring.RawObservation) (scoring.ScoredValue, error) {
			return scoring.ScoredValue{KpiID: kpiID, PeriodDate: obs.PeriodDate}, nil
		},
	}
	handlers := NewGRPCHandlers(svc, zap.NewNop())

	resp, err := handlers.SubmitValue(context.Background(), mustStruct(t, map[string]any{
		"kpi_id": "revenue", "updater_id": "admin", "period_date": "2024-03-01",
	}))
	require.NoError(t, err)

	m := resp.AsMap()
	assert.Nil(t, m["score"])
	assert.Nil(t, m["color"])
	assert.Nil(t, m["actual_value"])
}

func TestRequestValidation(t *testing.T) {
	handlers := NewGRPCHandlers(&mocks.MockIngestionService{}, zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		msg  string
	}{
		{
			name: "submit without kpi id",
			call: func() error {
				_, err := handlers.SubmitValue(ctx, mustStruct(t, map[string]any{"updater_id": "a", "period_date": "2024-03-01"}))
				return err
			},
			msg: "kpi_id is required",
		},
		{
			name: "submit without updater",
			call: func() error {
				_, err := handlers.SubmitValue(ctx, mustStruct(t, map[string]any{"kpi_id": "k", "period_date": "2024-03-01"}))
				return err
			},
			msg: "updater_id is required",
		},
		{
			name: "submit with bad date",
			call: func() error {
				_, err := handlers.SubmitValue(ctx, mustStruct(t, map[string]any{"kpi_id": "k", "updater_id": "a", "period_date": "03/01/2024"}))
				return err
			},
			msg: "period_date must be a YYYY-MM-DD date",
		},
		{
			name: "configure with fractional precision",
			call: func() error {
				_, err := handlers.ConfigureKpi(ctx, mustStruct(t, map[string]any{"kpi_id": "k", "decimal_precision": 1.5}))
				return err
			},
			msg: "decimal_precision must be an integer",
		},
		{
			name: "grant without updater",
			call: func() error {
				_, err := handlers.GrantUpdater(ctx, mustStruct(t, map[string]any{"kpi_id": "k"}))
				return err
			},
			msg: "updater_id is required",
		},
		{
			name: "import without rows",
			call: func() error {
				_, err := handlers.ImportValues(ctx, mustStruct(t, map[string]any{"kpi_id": "k", "updater_id": "a"}))
				return err
			},
			msg: "rows are required",
		},
		{
			name: "import with a scalar row",
			call: func() error {
				_, err := handlers.ImportValues(ctx, mustStruct(t, map[string]any{"kpi_id": "k", "updater_id": "a", "rows": []any{"x"}}))
				return err
			},
			msg: "row 0 must be an object",
		},
		{
			name: "list with end before start",
			call: func() error {
				_, err := handlers.ListValues(ctx, mustStruct(t, map[string]any{"kpi_id": "k", "start_date": "2024-03-01", "end_date": "2024-02-01"}))
				return err
			},
			msg: "end date must not be before start date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"kpi not found", fmt.Errorf("%w: revenue", service.ErrKpiNotFound), codes.NotFound},
		{"no values", service.ErrNoValues, codes.NotFound},
		{"not authorized", fmt.Errorf("%w: clerk", scoring.ErrNotAuthorized), codes.PermissionDenied},
		{"coercion", &scoring.CoercionError{Field: scoring.FieldActual, Value: "abc"}, codes.InvalidArgument},
		{"inconsistent configuration", scoring.ErrConfigurationInconsistent, codes.InvalidArgument},
		{"invalid input", service.ErrInvalidInput, codes.InvalidArgument},
		{"note required", scoring.ErrNoteRequired, codes.FailedPrecondition},
		{"storage failure", fmt.Errorf("%w: disk full", service.ErrStorageFailure), codes.Internal},
		{"unexpected", errors.New("boom"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mocks.MockIngestionService{
				SubmitValueFunc: func(ctx context.Context, kpiID, updaterID string, obs scoring.RawObservation) (scoring.ScoredValue, error) {
					return scoring.ScoredValue{}, tt.err
				},
			}
			handlers := NewGRPCHandlers(svc, zap.NewNop())

			resp, err := handlers.SubmitValue(context.Background(), mustStruct(t, map[string]any{
				"kpi_id": "revenue", "updater_id": "clerk", "period_date": "2024-03-01", "actual_value": "1",
			}))
			assert.Nil(t, resp)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}

	t.Run("storage failure hides details", func(t *testing.T) {
		svc := &mocks.MockIngestionService{
			ListValuesFunc: func(ctx context.Context, kpiID string, start, end time.Time) ([]scoring.ScoredValue, error) {
				return nil, fmt.Errorf("%w: disk full", service.ErrStorageFailure)
			},
		}
		handlers := NewGRPCHandlers(svc, zap.NewNop())

		_, err := handlers.ListValues(context.Background(), mustStruct(t, map[string]any{
			"kpi_id": "revenue", "start_date": "2024-01-01", "end_date": "2024-12-31",
		}))
		st, _ := status.FromError(err)
		assert.Equal(t, "database error", st.Message())
	})

	t.Run("canceled context", func(t *testing.T) {
		svc := &mocks.MockIngestionService{
			GrantUpdaterFunc: func(ctx context.Context, grant scoring.Grant) error {
				return ctx.Err()
			},
		}
		handlers := NewGRPCHandlers(svc, zap.NewNop())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := handlers.GrantUpdater(ctx, mustStruct(t, map[string]any{"kpi_id": "k", "updater_id": "a"}))
		assert.Equal(t, codes.Canceled, status.Code(err))
	})
}

func TestImportValues(t *testing.T) {
	var got []scoring.RawObservation
	svc := &mocks.MockIngestionService{
		ImportValuesFunc: func(ctx context.Context, kpiID, updaterID string, rows []scoring.RawObservation) (service.BatchResult, error) {
			got = rows
			return service.BatchResult{
				Values: []scoring.ScoredValue{{KpiID: kpiID, PeriodDate: rows[0].PeriodDate, ActualValue: ptr("10.00")}},
				Rejected: []service.RowRejection{
					{Row: 1, Reason: "invalid_input", Message: "period date is required"},
				},
				Warnings: []service.RowWarning{{Row: 0, Message: "coercion error"}},
			}, nil
		},
	}
	handlers := NewGRPCHandlers(svc, zap.NewNop())

	resp, err := handlers.ImportValues(context.Background(), mustStruct(t, map[string]any{
		"kpi_id":     "revenue",
		"updater_id": "admin",
		"rows": []any{
			map[string]any{"period_date": "2024-01-01", "actual_value": "10", "threshold_red": "abc"},
			map[string]any{"period_date": "not-a-date", "actual_value": "11"},
		},
	}))
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got[0].PeriodDate)
	assert.Equal(t, scoring.Of("abc"), got[0].ThresholdRed)
	assert.True(t, got[1].PeriodDate.IsZero(), "bad dates are rejected per row")

	m := resp.AsMap()
	assert.Equal(t, 1.0, m["stored"])
	rejected := m["rejected"].([]any)
	require.Len(t, rejected, 1)
	rej := rejected[0].(map[string]any)
	assert.Equal(t, 1.0, rej["row"])
	assert.Nil(t, rej["period_date"])
	assert.Equal(t, "invalid_input", rej["reason"])
	assert.Len(t, m["warnings"].([]any), 1)
}

func TestConfigureAndPolicy(t *testing.T) {
	var cfg scoring.Configuration
	var policy scoring.Policy
	svc := &mocks.MockIngestionService{
		ConfigureKpiFunc: func(ctx context.Context, c scoring.Configuration) error {
			cfg = c
			return nil
		},
		SetPolicyFunc: func(ctx context.Context, p scoring.Policy) error {
			policy = p
			return nil
		},
	}
	handlers := NewGRPCHandlers(svc, zap.NewNop())
	ctx := context.Background()

	_, err := handlers.ConfigureKpi(ctx, mustStruct(t, map[string]any{
		"kpi_id": "revenue", "name": "Revenue", "scoring_type": "goal_red_flag", "data_type": "currency", "decimal_precision": 2,
	}))
	require.NoError(t, err)
	assert.Equal(t, scoring.Configuration{
		ID: "revenue", Name: "Revenue", ScoringType: scoring.ScoringGoalRedFlag, DataType: scoring.DataCurrency, DecimalPrecision: 2,
	}, cfg)

	resp, err := handlers.SetPolicy(ctx, mustStruct(t, map[string]any{"require_note_on_red": true}))
	require.NoError(t, err)
	assert.True(t, policy.RequireNoteOnRed)
	assert.Equal(t, true, resp.AsMap()["require_note_on_red"])
}
