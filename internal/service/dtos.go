package service

import (
	"time"

	"github.com/godilite/kpi-server/internal/scoring"
)

// RowRejection reports an imported row that was not written.
type RowRejection struct {
	Row        int
	PeriodDate time.Time
	Reason     string
	Message    string
}

// RowWarning reports a field that was nulled while importing a row.
type RowWarning struct {
	Row     int
	Message string
}

// BatchResult summarizes one import batch.
type BatchResult struct {
	Values   []scoring.ScoredValue
	Rejected []RowRejection
	Warnings []RowWarning
}
