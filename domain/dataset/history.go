package dataset

import (
	"context"
	"time"

	"onthesis/domain/core"
	apperrors "onthesis/internal/errors"
)

// AnalysisLogEntry records one successful analysis run.
type AnalysisLogEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	Result    map[string]any `json:"result"`
	Params    map[string]any `json:"params"`
}

// History returns the log, newest first.
func (d *Dataset) History() []AnalysisLogEntry {
	out := make([]AnalysisLogEntry, len(d.history))
	copy(out, d.history)
	return out
}

// AddAnalysisLog prepends an entry, truncates to the history limit and saves.
// The entry is returned even when the save fails.
func (d *Dataset) AddAnalysisLog(ctx context.Context, analysisType string, result, params map[string]any) (AnalysisLogEntry, error) {
	entry := AnalysisLogEntry{
		ID:        core.NewID().String(),
		Timestamp: d.now().UTC(),
		Type:      analysisType,
		Result:    result,
		Params:    params,
	}
	d.history = append([]AnalysisLogEntry{entry}, d.history...)
	d.truncateHistory()
	_, err := d.Save(ctx)
	return entry, err
}

// DeleteAnalysisLog removes one entry by id.
func (d *Dataset) DeleteAnalysisLog(ctx context.Context, id string) error {
	for i, e := range d.history {
		if e.ID == id {
			d.history = append(d.history[:i], d.history[i+1:]...)
			_, err := d.Save(ctx)
			return err
		}
	}
	return apperrors.NotFound("analysis log entry " + id)
}

// ClearAnalysisHistory drops every entry.
func (d *Dataset) ClearAnalysisHistory(ctx context.Context) error {
	d.history = nil
	_, err := d.Save(ctx)
	return err
}

func (d *Dataset) truncateHistory() {
	if len(d.history) > d.historyLimit {
		d.history = d.history[:d.historyLimit]
	}
}
