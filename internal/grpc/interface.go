package grpc

import (
	"context"
	"time"

	"github.com/godilite/kpi-server/internal/scoring"
	"github.com/godilite/kpi-server/internal/service"
)

type IngestionService interface {
	ConfigureKpi(ctx context.Context, cfg scoring.Configuration) error
	GrantUpdater(ctx context.Context, grant scoring.Grant) error
	SetPolicy(ctx context.Context, policy scoring.Policy) error
	SubmitValue(ctx context.Context, kpiID, updaterID string, obs scoring.RawObservation) (scoring.ScoredValue, error)
	ImportValues(ctx context.Context, kpiID, updaterID string, rows []scoring.RawObservation) (service.BatchResult, error)
	ListValues(ctx context.Context, kpiID string, start, end time.Time) ([]scoring.ScoredValue, error)
}
