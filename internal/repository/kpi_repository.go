package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/godilite/kpi-server/internal/repository/models"
	"github.com/google/uuid"
)

const settingRequireNoteOnRed = "require_note_on_red"

var ErrNotFound = errors.New("not found")

type KpiRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewKpiRepository(db *sql.DB) *KpiRepository {
	return &KpiRepository{db: db, now: time.Now}
}

// SaveConfiguration inserts or replaces a KPI configuration.
func (r *KpiRepository) SaveConfiguration(ctx context.Context, cfg models.KpiConfiguration) error {
	const query = `
		INSERT INTO kpis (id, name, scoring_type, data_type, decimal_precision, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			scoring_type = excluded.scoring_type,
			data_type = excluded.data_type,
			decimal_precision = excluded.decimal_precision,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		cfg.ID, cfg.Name, cfg.ScoringType, cfg.DataType, cfg.DecimalPrecision,
		r.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("exec SaveConfiguration: %w", err)
	}
	return nil
}

// GetConfiguration returns the configuration of one KPI or ErrNotFound.
func (r *KpiRepository) GetConfiguration(ctx context.Context, kpiID string) (models.KpiConfiguration, error) {
	const query = `
		SELECT id, name, scoring_type, data_type, decimal_precision, updated_at
		FROM kpis
		WHERE id = ?
	`

	var cfg models.KpiConfiguration
	var updatedAt string
	err := r.db.QueryRowContext(ctx, query, kpiID).Scan(
		&cfg.ID, &cfg.Name, &cfg.ScoringType, &cfg.DataType, &cfg.DecimalPrecision, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.KpiConfiguration{}, fmt.Errorf("kpi %q: %w", kpiID, ErrNotFound)
		}
		return models.KpiConfiguration{}, fmt.Errorf("query GetConfiguration: %w", err)
	}
	cfg.UpdatedAt = parseTime(updatedAt)
	return cfg, nil
}

// SaveGrant registers an updater for a KPI, replacing an existing grant.
func (r *KpiRepository) SaveGrant(ctx context.Context, grant models.UpdaterGrant) error {
	const query = `
		INSERT INTO kpi_updaters (kpi_id, updater_id, can_modify_thresholds)
		VALUES (?, ?, ?)
		ON CONFLICT(kpi_id, updater_id) DO UPDATE SET
			can_modify_thresholds = excluded.can_modify_thresholds
	`

	if _, err := r.db.ExecContext(ctx, query, grant.KpiID, grant.UpdaterID, grant.CanModifyThresholds); err != nil {
		return fmt.Errorf("exec SaveGrant: %w", err)
	}
	return nil
}

// GetGrant returns the grant of an updater for a KPI or ErrNotFound.
func (r *KpiRepository) GetGrant(ctx context.Context, kpiID, updaterID string) (models.UpdaterGrant, error) {
	const query = `
		SELECT kpi_id, updater_id, can_modify_thresholds
		FROM kpi_updaters
		WHERE kpi_id = ? AND updater_id = ?
	`

	var g models.UpdaterGrant
	err := r.db.QueryRowContext(ctx, query, kpiID, updaterID).Scan(&g.KpiID, &g.UpdaterID, &g.CanModifyThresholds)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.UpdaterGrant{}, fmt.Errorf("grant %q/%q: %w", kpiID, updaterID, ErrNotFound)
		}
		return models.UpdaterGrant{}, fmt.Errorf("query GetGrant: %w", err)
	}
	return g, nil
}

// GetRequireNoteOnRed reads the policy flag. An absent setting is false.
func (r *KpiRepository) GetRequireNoteOnRed(ctx context.Context) (bool, error) {
	const query = `SELECT value FROM settings WHERE key = ?`

	var raw string
	err := r.db.QueryRowContext(ctx, query, settingRequireNoteOnRed).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query GetRequireNoteOnRed: %w", err)
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse setting %s=%q: %w", settingRequireNoteOnRed, raw, err)
	}
	return enabled, nil
}

func (r *KpiRepository) SetRequireNoteOnRed(ctx context.Context, enabled bool) error {
	const query = `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`

	if _, err := r.db.ExecContext(ctx, query, settingRequireNoteOnRed, strconv.FormatBool(enabled)); err != nil {
		return fmt.Errorf("exec SetRequireNoteOnRed: %w", err)
	}
	return nil
}

const valueColumns = `id, kpi_id, period_date, actual_value, target_value, threshold_red, threshold_yellow,
	note, score, color, is_manual_entry, updated_by, updated_at`

// GetValue returns the stored value of a KPI for one period or ErrNotFound.
func (r *KpiRepository) GetValue(ctx context.Context, kpiID, periodDate string) (models.KpiValue, error) {
	query := `SELECT ` + valueColumns + ` FROM kpi_values WHERE kpi_id = ? AND period_date = ?`

	v, err := scanValue(r.db.QueryRowContext(ctx, query, kpiID, periodDate))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.KpiValue{}, fmt.Errorf("value %q/%s: %w", kpiID, periodDate, ErrNotFound)
		}
		return models.KpiValue{}, fmt.Errorf("query GetValue: %w", err)
	}
	return v, nil
}

// ListValues returns the values of a KPI with start <= period_date <= end,
// ordered by period.
func (r *KpiRepository) ListValues(ctx context.Context, kpiID, start, end string) ([]models.KpiValue, error) {
	query := `SELECT ` + valueColumns + `
		FROM kpi_values
		WHERE kpi_id = ? AND period_date >= ? AND period_date <= ?
		ORDER BY period_date`

	rows, err := r.db.QueryContext(ctx, query, kpiID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query ListValues: %w", err)
	}
	defer rows.Close()

	var results []models.KpiValue
	for rows.Next() {
		v, err := scanValue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ListValues row: %w", err)
		}
		results = append(results, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListValues: %w", err)
	}
	return results, nil
}

// UpsertValues writes all values inside one transaction. A row that already
// exists for (kpi_id, period_date) is overwritten; threshold columns whose
// Set flag is false keep their stored content.
func (r *KpiRepository) UpsertValues(ctx context.Context, values []models.KpiValue) error {
	if len(values) == 0 {
		return nil
	}

	return r.inTransaction(ctx, func(tx *sql.Tx) error {
		now := r.now().UTC().Format(time.RFC3339Nano)
		for _, v := range values {
			id := v.ID
			if id == "" {
				id = uuid.NewString()
			}
			_, err := tx.ExecContext(ctx, upsertQuery(v),
				id, v.KpiID, v.PeriodDate,
				v.ActualValue, v.TargetValue, v.ThresholdRed, v.ThresholdYellow,
				v.Note, v.Score, v.Color, v.IsManualEntry, v.UpdatedBy, now)
			if err != nil {
				return fmt.Errorf("upsert value %q/%s: %w", v.KpiID, v.PeriodDate, err)
			}
		}
		return nil
	})
}

func upsertQuery(v models.KpiValue) string {
	set := []string{"actual_value", "note", "score", "color", "is_manual_entry", "updated_by", "updated_at"}
	if v.TargetSet {
		set = append(set, "target_value")
	}
	if v.ThresholdRedSet {
		set = append(set, "threshold_red")
	}
	if v.ThresholdYellowSet {
		set = append(set, "threshold_yellow")
	}

	assignments := make([]string, len(set))
	for i, col := range set {
		assignments[i] = col + " = excluded." + col
	}

	return `INSERT INTO kpi_values (` + valueColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kpi_id, period_date) DO UPDATE SET ` + strings.Join(assignments, ", ")
}

func (r *KpiRepository) inTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanValue(row rowScanner) (models.KpiValue, error) {
	var v models.KpiValue
	var updatedAt string
	err := row.Scan(&v.ID, &v.KpiID, &v.PeriodDate,
		&v.ActualValue, &v.TargetValue, &v.ThresholdRed, &v.ThresholdYellow,
		&v.Note, &v.Score, &v.Color, &v.IsManualEntry, &v.UpdatedBy, &updatedAt)
	if err != nil {
		return models.KpiValue{}, err
	}
	v.TargetSet, v.ThresholdRedSet, v.ThresholdYellowSet = true, true, true
	v.UpdatedAt = parseTime(updatedAt)
	return v, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
