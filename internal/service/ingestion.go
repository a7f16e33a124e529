package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/godilite/kpi-server/internal/repository"
	"github.com/godilite/kpi-server/internal/repository/models"
	"github.com/godilite/kpi-server/internal/scoring"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	dbTimeout            = 1 * time.Second
	batchTimeout         = 30 * time.Second
	defaultConfigTTL     = 10 * time.Minute
	configCacheKeyPrefix = "kpi:config:"
	periodLayout         = "2006-01-02"
)

var (
	ErrKpiNotFound    = errors.New("kpi not found")
	ErrNoValues       = errors.New("no values found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrStorageFailure = errors.New("storage failure")
)

// IngestionService scores observations with the scoring engine and
// persists the results.
type IngestionService struct {
	storage   KpiRepository
	cache     Cacher
	logger    *zap.Logger
	sfGroup   singleflight.Group
	configTTL time.Duration

	// configGen is bumped on every ConfigureKpi so fetches that overlap a
	// write are not cached.
	configGen atomic.Uint64
}

// NewIngestionService creates a new IngestionService. cache may be nil, in
// which case configurations are always read from storage.
func NewIngestionService(storage KpiRepository, cache Cacher, logger *zap.Logger, configTTL time.Duration) *IngestionService {
	if storage == nil {
		panic("storage must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	if configTTL <= 0 {
		configTTL = defaultConfigTTL
	}
	return &IngestionService{
		storage:   storage,
		cache:     cache,
		logger:    logger,
		configTTL: configTTL,
	}
}

// Reason returns the tag reported to callers for a rejected observation.
func Reason(err error) string {
	if errors.Is(err, ErrInvalidInput) {
		return "invalid_input"
	}
	return scoring.Reason(err)
}

func configCacheKey(kpiID string) string {
	return configCacheKeyPrefix + kpiID
}

// ConfigureKpi validates and stores a KPI configuration.
func (s *IngestionService) ConfigureKpi(ctx context.Context, cfg scoring.Configuration) error {
	if strings.TrimSpace(cfg.ID) == "" {
		return fmt.Errorf("%w: kpi id is required", ErrInvalidInput)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	err := s.storage.SaveConfiguration(dbCtx, models.KpiConfiguration{
		ID:               cfg.ID,
		Name:             cfg.Name,
		ScoringType:      string(cfg.ScoringType),
		DataType:         string(cfg.DataType),
		DecimalPrecision: cfg.DecimalPrecision,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	key := configCacheKey(cfg.ID)
	s.configGen.Add(1)
	s.sfGroup.Forget(key)
	Invalidate(ctx, s.cache, key, s.logger)

	s.logger.Info("kpi configured",
		zap.String("kpi_id", cfg.ID),
		zap.String("scoring_type", string(cfg.ScoringType)),
		zap.String("data_type", string(cfg.DataType)),
		zap.Int("decimal_precision", cfg.DecimalPrecision))
	return nil
}

// GrantUpdater registers an updater for an existing KPI.
func (s *IngestionService) GrantUpdater(ctx context.Context, grant scoring.Grant) error {
	if strings.TrimSpace(grant.UpdaterID) == "" {
		return fmt.Errorf("%w: updater id is required", ErrInvalidInput)
	}
	if _, err := s.configuration(ctx, grant.KpiID); err != nil {
		return err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	err := s.storage.SaveGrant(dbCtx, models.UpdaterGrant{
		KpiID:               grant.KpiID,
		UpdaterID:           grant.UpdaterID,
		CanModifyThresholds: grant.CanModifyThresholds,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	s.logger.Info("updater granted",
		zap.String("kpi_id", grant.KpiID),
		zap.String("updater_id", grant.UpdaterID),
		zap.Bool("can_modify_thresholds", grant.CanModifyThresholds))
	return nil
}

// SetPolicy stores the global ingestion policy.
func (s *IngestionService) SetPolicy(ctx context.Context, policy scoring.Policy) error {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := s.storage.SetRequireNoteOnRed(dbCtx, policy.RequireNoteOnRed); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	s.logger.Info("policy updated", zap.Bool("require_note_on_red", policy.RequireNoteOnRed))
	return nil
}

// SubmitValue ingests one manually entered observation. Coercion failures
// reject the update.
func (s *IngestionService) SubmitValue(ctx context.Context, kpiID, updaterID string, obs scoring.RawObservation) (scoring.ScoredValue, error) {
	if obs.PeriodDate.IsZero() {
		return scoring.ScoredValue{}, fmt.Errorf("%w: period date is required", ErrInvalidInput)
	}

	cfg, err := s.configuration(ctx, kpiID)
	if err != nil {
		return scoring.ScoredValue{}, err
	}
	grant, err := s.grant(ctx, kpiID, updaterID)
	if err != nil {
		return scoring.ScoredValue{}, err
	}
	policy, err := s.policy(ctx)
	if err != nil {
		return scoring.ScoredValue{}, err
	}
	stored, err := s.storedThresholds(ctx, kpiID, obs.PeriodDate)
	if err != nil {
		return scoring.ScoredValue{}, err
	}

	out, err := scoring.Ingest(scoring.Request{
		Config:      cfg,
		Observation: obs,
		Grant:       grant,
		Stored:      stored,
		Policy:      policy,
		Source:      scoring.SourceManual,
	})
	if err != nil {
		s.logger.Info("value rejected",
			zap.String("kpi_id", kpiID),
			zap.String("updater_id", updaterID),
			zap.String("period", obs.PeriodDate.Format(periodLayout)),
			zap.String("reason", Reason(err)),
			zap.Error(err))
		return scoring.ScoredValue{}, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := s.storage.UpsertValues(dbCtx, []models.KpiValue{toModel(out.Value, updaterID)}); err != nil {
		return scoring.ScoredValue{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	s.logger.Info("value stored",
		zap.String("kpi_id", kpiID),
		zap.String("updater_id", updaterID),
		zap.String("period", obs.PeriodDate.Format(periodLayout)),
		zap.String("color", string(out.Value.Color)))
	return out.Value, nil
}

// ImportValues ingests a batch of imported observations. Rows that fail are
// reported in the result and do not stop the batch; all accepted rows are
// written in one transaction.
func (s *IngestionService) ImportValues(ctx context.Context, kpiID, updaterID string, rows []scoring.RawObservation) (BatchResult, error) {
	if len(rows) == 0 {
		return BatchResult{}, fmt.Errorf("%w: batch is empty", ErrInvalidInput)
	}

	cfg, err := s.configuration(ctx, kpiID)
	if err != nil {
		return BatchResult{}, err
	}
	grant, err := s.grant(ctx, kpiID, updaterID)
	if err != nil {
		return BatchResult{}, err
	}
	if grant == nil {
		return BatchResult{}, fmt.Errorf("%w: updater %q has no grant for kpi %q", scoring.ErrNotAuthorized, updaterID, kpiID)
	}
	policy, err := s.policy(ctx)
	if err != nil {
		return BatchResult{}, err
	}
	stored, err := s.storedThresholdsForBatch(ctx, kpiID, rows)
	if err != nil {
		return BatchResult{}, err
	}

	var result BatchResult
	for i, row := range rows {
		if row.PeriodDate.IsZero() {
			result.Rejected = append(result.Rejected, RowRejection{
				Row: i, Reason: Reason(ErrInvalidInput), Message: "period date is required",
			})
			continue
		}
		period := row.PeriodDate.Format(periodLayout)

		out, err := scoring.Ingest(scoring.Request{
			Config:      cfg,
			Observation: row,
			Grant:       grant,
			Stored:      stored[period],
			Policy:      policy,
			Source:      scoring.SourceImport,
		})
		if err != nil {
			result.Rejected = append(result.Rejected, RowRejection{
				Row: i, PeriodDate: row.PeriodDate, Reason: Reason(err), Message: err.Error(),
			})
			continue
		}
		for _, w := range out.Warnings {
			result.Warnings = append(result.Warnings, RowWarning{Row: i, Message: w.Error()})
		}

		stored[period] = mergeThresholds(stored[period], out.Value)
		result.Values = append(result.Values, out.Value)
	}

	if len(result.Values) > 0 {
		batch := make([]models.KpiValue, len(result.Values))
		for i, v := range result.Values {
			batch[i] = toModel(v, updaterID)
		}

		dbCtx, cancel := context.WithTimeout(ctx, batchTimeout)
		defer cancel()

		if err := s.storage.UpsertValues(dbCtx, batch); err != nil {
			s.logger.Error("import batch aborted",
				zap.String("kpi_id", kpiID),
				zap.Int("rows", len(rows)),
				zap.Error(err))
			return BatchResult{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}
	}

	s.logger.Info("import batch completed",
		zap.String("kpi_id", kpiID),
		zap.String("updater_id", updaterID),
		zap.Int("rows", len(rows)),
		zap.Int("stored", len(result.Values)),
		zap.Int("rejected", len(result.Rejected)),
		zap.Int("warnings", len(result.Warnings)))
	return result, nil
}

// ListValues returns the stored values of a KPI between start and end,
// both inclusive.
func (s *IngestionService) ListValues(ctx context.Context, kpiID string, start, end time.Time) ([]scoring.ScoredValue, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date must not be before start date", ErrInvalidInput)
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.storage.ListValues(dbCtx, kpiID, start.Format(periodLayout), end.Format(periodLayout))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoValues
	}

	out := make([]scoring.ScoredValue, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromModel(r))
	}
	return out, nil
}

func (s *IngestionService) configuration(ctx context.Context, kpiID string) (scoring.Configuration, error) {
	gen := s.configGen.Load()
	fresh := func() bool { return s.configGen.Load() == gen }

	return FindAndCache(ctx, s.cache, &s.sfGroup, configCacheKey(kpiID), s.configTTL, s.logger, fresh,
		func(fetchCtx context.Context) (scoring.Configuration, error) {
			dbCtx, cancel := context.WithTimeout(fetchCtx, dbTimeout)
			defer cancel()

			m, err := s.storage.GetConfiguration(dbCtx, kpiID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return scoring.Configuration{}, fmt.Errorf("%w: %q", ErrKpiNotFound, kpiID)
				}
				return scoring.Configuration{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
			}
			return scoring.Configuration{
				ID:               m.ID,
				Name:             m.Name,
				ScoringType:      scoring.ScoringType(m.ScoringType),
				DataType:         scoring.DataType(m.DataType),
				DecimalPrecision: m.DecimalPrecision,
			}, nil
		})
}

// grant returns nil without error when the updater is not registered.
func (s *IngestionService) grant(ctx context.Context, kpiID, updaterID string) (*scoring.Grant, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	m, err := s.storage.GetGrant(dbCtx, kpiID, updaterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return &scoring.Grant{KpiID: m.KpiID, UpdaterID: m.UpdaterID, CanModifyThresholds: m.CanModifyThresholds}, nil
}

func (s *IngestionService) policy(ctx context.Context) (scoring.Policy, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	enabled, err := s.storage.GetRequireNoteOnRed(dbCtx)
	if err != nil {
		return scoring.Policy{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return scoring.Policy{RequireNoteOnRed: enabled}, nil
}

func (s *IngestionService) storedThresholds(ctx context.Context, kpiID string, period time.Time) (scoring.Thresholds, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	m, err := s.storage.GetValue(dbCtx, kpiID, period.Format(periodLayout))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return scoring.Thresholds{}, nil
		}
		return scoring.Thresholds{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return thresholdsOf(m), nil
}

func (s *IngestionService) storedThresholdsForBatch(ctx context.Context, kpiID string, rows []scoring.RawObservation) (map[string]scoring.Thresholds, error) {
	var first, last string
	for _, r := range rows {
		if r.PeriodDate.IsZero() {
			continue
		}
		p := r.PeriodDate.Format(periodLayout)
		if first == "" || p < first {
			first = p
		}
		if p > last {
			last = p
		}
	}

	stored := make(map[string]scoring.Thresholds)
	if first == "" {
		return stored, nil
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	existing, err := s.storage.ListValues(dbCtx, kpiID, first, last)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	for _, m := range existing {
		stored[m.PeriodDate] = thresholdsOf(m)
	}
	return stored, nil
}

// mergeThresholds applies the threshold fields written by v over prev, so a
// later row of the same batch scores against them.
func mergeThresholds(prev scoring.Thresholds, v scoring.ScoredValue) scoring.Thresholds {
	if v.TargetValue.Present {
		prev.Target = v.TargetValue.Value
	}
	if v.ThresholdRed.Present {
		prev.Red = v.ThresholdRed.Value
	}
	if v.ThresholdYellow.Present {
		prev.Yellow = v.ThresholdYellow.Value
	}
	return prev
}
