package service

import (
	"context"
	"time"

	"github.com/godilite/kpi-server/internal/repository/models"
)

// KpiRepository defines the storage operations the ingestion service needs.
type KpiRepository interface {
	SaveConfiguration(ctx context.Context, cfg models.KpiConfiguration) error
	GetConfiguration(ctx context.Context, kpiID string) (models.KpiConfiguration, error)
	SaveGrant(ctx context.Context, grant models.UpdaterGrant) error
	GetGrant(ctx context.Context, kpiID, updaterID string) (models.UpdaterGrant, error)
	GetRequireNoteOnRed(ctx context.Context) (bool, error)
	SetRequireNoteOnRed(ctx context.Context, enabled bool) error
	GetValue(ctx context.Context, kpiID, periodDate string) (models.KpiValue, error)
	ListValues(ctx context.Context, kpiID, start, end string) ([]models.KpiValue, error)
	UpsertValues(ctx context.Context, values []models.KpiValue) error
}

// Cacher defines the interface for cache operations.
type Cacher interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
