package mocks

import (
	"context"
	"errors"
	"time"

	"github.com/godilite/kpi-server/internal/scoring"
	"github.com/godilite/kpi-server/internal/service"
)

// MockIngestionService is a function-field implementation of the
// IngestionService interface for handler tests.
type MockIngestionService struct {
	ConfigureKpiFunc func(ctx context.Context, cfg scoring.Configuration) error
	GrantUpdaterFunc func(ctx context.Context, grant scoring.Grant) error
	SetPolicyFunc    func(ctx context.Context, policy scoring.Policy) error
	SubmitValueFunc  func(ctx context.Context, kpiID, updaterID string, obs scoring.RawObservation) (scoring.ScoredValue, error)
	ImportValuesFunc func(ctx context.Context, kpiID, updaterID string, rows []scoring.RawObservation) (service.BatchResult, error)
	ListValuesFunc   func(ctx context.Context, kpiID string, start, end time.Time) ([]scoring.ScoredValue, error)
}

func (m *MockIngestionService) ConfigureKpi(ctx context.Context, cfg scoring.Configuration) error {
	if m.ConfigureKpiFunc != nil {
		return m.ConfigureKpiFunc(ctx, cfg)
	}
	return errors.New("ConfigureKpiFunc not implemented")
}

func (m *MockIngestionService) GrantUpdater(ctx context.Context, grant scoring.Grant) error {
	if m.GrantUpdaterFunc != nil {
		return m.GrantUpdaterFunc(ctx, grant)
	}
	return errors.New("GrantUpdaterFunc not implemented")
}

func (m *MockIngestionService) SetPolicy(ctx context.Context, policy scoring.Policy) error {
	if m.SetPolicyFunc != nil {
		return m.SetPolicyFunc(ctx, policy)
	}
	return errors.New("SetPolicyFunc not implemented")
}

func (m *MockIngestionService) SubmitValue(ctx context.Context, kpiID, updaterID string, obs scoring.RawObservation) (scoring.ScoredValue, error) {
	if m.SubmitValueFunc != nil {
		return m.SubmitValueFunc(ctx, kpiID, updaterID, obs)
	}
	return scoring.ScoredValue{}, errors.New("SubmitValueFunc not implemented")
}

func (m *MockIngestionService) ImportValues(ctx context.Context, kpiID, updaterID string, rows []scoring.RawObservation) (service.BatchResult, error) {
	if m.ImportValuesFunc != nil {
		return m.ImportValuesFunc(ctx, kpiID, updaterID, rows)
	}
	return service.BatchResult{}, errors.New("ImportValuesFunc not implemented")
}

func (m *MockIngestionService) ListValues(ctx context.Context, kpiID string, start, end time.Time) ([]scoring.ScoredValue, error) {
	if m.ListValuesFunc != nil {
		return m.ListValuesFunc(ctx, kpiID, start, end)
	}
	return nil, errors.New("ListValuesFunc not implemented")
}
