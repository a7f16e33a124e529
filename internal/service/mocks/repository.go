package mocks

import (
	"context"
	"errors"

	"github.com/godilite/kpi-server/internal/repository/models"
)

// MockKpiRepository is a mock implementation of the KpiRepository interface
// for testing the service layer.
type MockKpiRepository struct {
	SaveConfigurationFunc   func(ctx context.Context, cfg models.KpiConfiguration) error
	GetConfigurationFunc    func(ctx context.Context, kpiID string) (models.KpiConfiguration, error)
	SaveGrantFunc           func(ctx context.Context, grant models.UpdaterGrant) error
	GetGrantFunc            func(ctx context.Context, kpiID, updaterID string) (models.UpdaterGrant, error)
	GetRequireNoteOnRedFunc func(ctx context.Context) (bool, error)
	SetRequireNoteOnRedFunc func(ctx context.Context, enabled bool) error
	GetValueFunc            func(ctx context.Context, kpiID, periodDate string) (models.KpiValue, error)
	ListValuesFunc          func(ctx context.Context, kpiID, start, end string) ([]models.KpiValue, error)
	UpsertValuesFunc        func(ctx context.Context, values []models.KpiValue) error
}

func (m *MockKpiRepository) SaveConfiguration(ctx context.Context, cfg models.KpiConfiguration) error {
	if m.SaveConfigurationFunc != nil {
		return m.SaveConfigurationFunc(ctx, cfg)
	}
	return errors.New("SaveConfigurationFunc not implemented")
}

func (m *MockKpiRepository) GetConfiguration(ctx context.Context, kpiID string) (models.KpiConfiguration, error) {
	if m.GetConfigurationFunc != nil {
		return m.GetConfigurationFunc(ctx, kpiID)
	}
	return models.KpiConfiguration{}, errors.New("GetConfigurationFunc not implemented")
}

func (m *MockKpiRepository) SaveGrant(ctx context.Context, grant models.UpdaterGrant) error {
	if m.SaveGrantFunc != nil {
		return m.SaveGrantFunc(ctx, grant)
	}
	return errors.New("SaveGrantFunc not implemented")
}

func (m *MockKpiRepository) GetGrant(ctx context.Context, kpiID, updaterID string) (models.UpdaterGrant, error) {
	if m.GetGrantFunc != nil {
		return m.GetGrantFunc(ctx, kpiID, updaterID)
	}
	return models.UpdaterGrant{}, errors.New("GetGrantFunc not implemented")
}

func (m *MockKpiRepository) GetRequireNoteOnRed(ctx context.Context) (bool, error) {
	if m.GetRequireNoteOnRedFunc != nil {
		return m.GetRequireNoteOnRedFunc(ctx)
	}
	return false, nil
}

func (m *MockKpiRepository) SetRequireNoteOnRed(ctx context.Context, enabled bool) error {
	if m.SetRequireNoteOnRedFunc != nil {
		return m.SetRequireNoteOnRedFunc(ctx, enabled)
	}
	return errors.New("SetRequireNoteOnRedFunc not implemented")
}

func (m *MockKpiRepository) GetValue(ctx context.Context, kpiID, periodDate string) (models.KpiValue, error) {
	if m.GetValueFunc != nil {
		return m.GetValueFunc(ctx, kpiID, periodDate)
	}
	return models.KpiValue{}, errors.New("GetValueFunc not implemented")
}

func (m *MockKpiRepository) ListValues(ctx context.Context, kpiID, start, end string) ([]models.KpiValue, error) {
	if m.ListValuesFunc != nil {
		return m.ListValuesFunc(ctx, kpiID, start, end)
	}
	return nil, errors.New("ListValuesFunc not implemented")
}

func (m *MockKpiRepository) UpsertValues(ctx context.Context, values []models.KpiValue) error {
	if m.UpsertValuesFunc != nil {
		return m.UpsertValuesFunc(ctx, values)
	}
	return errors.New("UpsertValuesFunc not implemented")
}
