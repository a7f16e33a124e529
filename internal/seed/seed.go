// Package seed loads KPI configurations, updater grants and the note policy
// from a YAML file and applies them at startup.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/godilite/kpi-server/internal/scoring"
	"gopkg.in/yaml.v3"
)

type Document struct {
	Policy Policy  `yaml:"policy"`
	Kpis   []Kpi   `yaml:"kpis"`
	Grants []Grant `yaml:"grants"`
}

type Policy struct {
	RequireNoteOnRed bool `yaml:"require_note_on_red"`
}

type Kpi struct {
	ID               string `yaml:"id"`
	Name             string `yaml:"name"`
	ScoringType      string `yaml:"scoring_type"`
	DataType         string `yaml:"data_type"`
	DecimalPrecision int    `yaml:"decimal_precision"`
}

type Grant struct {
	KpiID               string `yaml:"kpi_id"`
	UpdaterID           string `yaml:"updater_id"`
	CanModifyThresholds bool   `yaml:"can_modify_thresholds"`
}

// Service is the part of the ingestion service a seed writes through.
type Service interface {
	ConfigureKpi(ctx context.Context, cfg scoring.Configuration) error
	GrantUpdater(ctx context.Context, grant scoring.Grant) error
	SetPolicy(ctx context.Context, policy scoring.Policy) error
}

// Load reads and decodes a seed file. Unknown keys are rejected.
func Load(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	var doc Document
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return doc, nil
}

// Apply writes the document through svc. KPIs go first so grants can
// reference them. Every entry is attempted and the failures are joined.
func (d Document) Apply(ctx context.Context, svc Service) error {
	var errs []error

	if err := svc.SetPolicy(ctx, scoring.Policy{RequireNoteOnRed: d.Policy.RequireNoteOnRed}); err != nil {
		errs = append(errs, fmt.Errorf("policy: %w", err))
	}

	for _, k := range d.Kpis {
		cfg := scoring.Configuration{
			ID:               k.ID,
			Name:             k.Name,
			ScoringType:      scoring.ScoringType(k.ScoringType),
			DataType:         scoring.DataType(k.DataType),
			DecimalPrecision: k.DecimalPrecision,
		}
		if err := svc.ConfigureKpi(ctx, cfg); err != nil {
			errs = append(errs, fmt.Errorf("kpi %q: %w", k.ID, err))
		}
	}

	for _, g := range d.Grants {
		grant := scoring.Grant{KpiID: g.KpiID, UpdaterID: g.UpdaterID, CanModifyThresholds: g.CanModifyThresholds}
		if err := svc.GrantUpdater(ctx, grant); err != nil {
			errs = append(errs, fmt.Errorf("grant %q/%q: %w", g.KpiID, g.UpdaterID, err))
		}
	}

	return errors.Join(errs...)
}
