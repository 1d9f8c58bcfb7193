package app

import (
	"context"
	"fmt"
	"time"

	"onthesis/domain/core"
	"onthesis/domain/dataset"
	"onthesis/internal"
	apperrors "onthesis/internal/errors"
	"onthesis/internal/jsonsafe"
	"onthesis/internal/metrics"
	"onthesis/internal/narrative"
	"onthesis/internal/stats"
	"onthesis/ports"
)

// Preparation actions accepted by PerformDataPreparation.
const (
	ActionMissingValues    = "missing_values"
	ActionRemoveDuplicates = "remove_duplicates"
	ActionFindReplace      = "find_replace"
)

// Read-only actions accepted by RunReadOnlyAction.
const (
	ActionSearchData = "search-data"
	ActionSmartScan  = "smart-scan"
)

// AnalysisRequest names one analysis run against a user's project dataset
type AnalysisRequest struct {
	UserID    string
	ProjectID string
	Type      string
	Params    stats.Params
}

// PreparationRequest names one cleaning action
type PreparationRequest struct {
	UserID    string
	ProjectID string
	Action    string
	Params    stats.Params
}

// PreparationResult reports the outcome of a cleaning action
type PreparationResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// AnalysisService dispatches statistical procedures and cleaning actions
// against the persisted dataset of a user and project.
type AnalysisService struct {
	repo    ports.DatasetRepository
	metrics *metrics.Metrics
	logger  *internal.Logger
}

// NewAnalysisService creates the dispatch service. metrics may be nil.
func NewAnalysisService(repo ports.DatasetRepository, m *metrics.Metrics, logger *internal.Logger) *AnalysisService {
	return &AnalysisService{
		repo:    repo,
		metrics: m,
		logger:  internal.OrDefault(logger).With("AnalysisService"),
	}
}

// Execute runs the registered procedure for req.Type, attaches the
// narrative summary and records the run in the analysis history. A failed
// history save is logged and does not fail the analysis.
func (s *AnalysisService) Execute(ctx context.Context, req AnalysisRequest) (map[string]any, error) {
	start := time.Now()
	result, err := s.execute(ctx, req)

	label := req.Type
	if _, ok := stats.Lookup(req.Type); !ok {
		label = "unsupported"
	}
	if err != nil {
		s.logger.Error("analysis %s failed for %s/%s [%s]: %v", req.Type, req.UserID, req.ProjectID, apperrors.GetCode(err), err)
		s.metrics.ObserveAnalysis(label, "error", time.Since(start))
		return nil, err
	}
	s.metrics.ObserveAnalysis(label, "ok", time.Since(start))
	s.logger.Debug("analysis %s completed in %v", req.Type, time.Since(start))
	return result, nil
}

func (s *AnalysisService) execute(ctx context.Context, req AnalysisRequest) (map[string]any, error) {
	procedure, ok := stats.Lookup(req.Type)
	if !ok {
		return nil, apperrors.UnsupportedAnalysis(req.Type)
	}
	ds, err := s.loadDataset(ctx, req.UserID, req.ProjectID)
	if err != nil {
		return nil, err
	}

	raw, err := procedure(ds, req.Params)
	if err != nil {
		return nil, err
	}
	result := narrative.Enrich(asObject(jsonsafe.Clean(raw)), req.Type)

	if _, err := ds.AddAnalysisLog(ctx, req.Type, result, jsonsafe.Map(map[string]any(req.Params))); err != nil {
		s.logger.Warn("analysis %s succeeded but history was not saved: %v", req.Type, err)
	}
	return result, nil
}

// asObject wraps list results as {"details": [...]}.
func asObject(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case []any:
		return map[string]any{"details": t}
	case nil:
		return map[string]any{}
	default:
		return map[string]any{"result": t}
	}
}

type missingValuesParams struct {
	Strategy      string           `json:"action" validate:"required"`
	TargetColumns stats.StringList `json:"target_columns"`
}

type duplicatesParams struct {
	TargetColumns stats.StringList `json:"target_columns"`
}

type findReplaceParams struct {
	Find          cellText         `json:"find" validate:"required"`
	Replace       cellText         `json:"replace"`
	TargetColumns stats.StringList `json:"target_columns"`
	ExactMatch    bool             `json:"exact_match"`
}

// PerformDataPreparation applies one cleaning action and saves. A storage
// failure is reported as status "error"; other failures are returned.
func (s *AnalysisService) PerformDataPreparation(ctx context.Context, req PreparationRequest) (PreparationResult, error) {
	var run func(ds *dataset.Dataset) (string, error)
	switch req.Action {
	case ActionMissingValues:
		var p missingValuesParams
		if err := stats.Decode(req.Params, &p); err != nil {
			return PreparationResult{}, err
		}
		run = func(ds *dataset.Dataset) (string, error) {
			return ds.HandleMissingValues(ctx, dataset.MissingStrategy(p.Strategy), p.TargetColumns)
		}
	case ActionRemoveDuplicates:
		var p duplicatesParams
		if err := stats.Decode(req.Params, &p); err != nil {
			return PreparationResult{}, err
		}
		run = func(ds *dataset.Dataset) (string, error) {
			return ds.RemoveDuplicates(ctx, p.TargetColumns)
		}
	case ActionFindReplace:
		var p findReplaceParams
		if err := stats.Decode(req.Params, &p); err != nil {
			return PreparationResult{}, err
		}
		run = func(ds *dataset.Dataset) (string, error) {
			return ds.FindAndReplace(ctx, string(p.Find), string(p.Replace), p.TargetColumns, p.ExactMatch)
		}
	default:
		return PreparationResult{}, apperrors.UnsupportedAction(req.Action)
	}

	ds, err := s.loadDataset(ctx, req.UserID, req.ProjectID)
	if err != nil {
		return PreparationResult{}, err
	}
	msg, err := run(ds)
	if err != nil {
		if apperrors.IsStorage(err) {
			s.logger.Error("%s on %s/%s was not saved: %v", req.Action, req.UserID, req.ProjectID, err)
			return PreparationResult{Status: "error", Message: err.Error()}, nil
		}
		s.logger.Error("%s failed for %s/%s: %v", req.Action, req.UserID, req.ProjectID, err)
		return PreparationResult{}, err
	}
	s.logger.Info("%s on %s/%s: %s", req.Action, req.UserID, req.ProjectID, msg)
	return PreparationResult{Status: "success", Message: msg}, nil
}

// SearchResult lists the cells matching a query.
type SearchResult struct {
	Query   string          `json:"query"`
	Count   int             `json:"count"`
	Matches []dataset.Match `json:"matches"`
}

// Search finds cells containing query in the given columns, or in every
// column when none are given.
func (s *AnalysisService) Search(ctx context.Context, userID, projectID, query string, cols []string) (*SearchResult, error) {
	ds, err := s.loadDataset(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	matches := ds.Search(query, cols)
	return &SearchResult{Query: query, Count: len(matches), Matches: matches}, nil
}

// SmartScan reports the data-quality diagnostics of the dataset.
func (s *AnalysisService) SmartScan(ctx context.Context, userID, projectID string) (*dataset.QualityReport, error) {
	ds, err := s.loadDataset(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	report := ds.ScanDataQuality()
	return &report, nil
}

// RunReadOnlyAction maps the read-only action names onto Search and
// SmartScan. search-data takes "query" and optional "columns".
func (s *AnalysisService) RunReadOnlyAction(ctx context.Context, userID, projectID, action string, params stats.Params) (any, error) {
	switch action {
	case ActionSearchData:
		var p struct {
			Query   string           `json:"query" validate:"required"`
			Columns stats.StringList `json:"columns"`
		}
		if err := stats.Decode(params, &p); err != nil {
			return nil, err
		}
		return s.Search(ctx, userID, projectID, p.Query, p.Columns)
	case ActionSmartScan:
		return s.SmartScan(ctx, userID, projectID)
	default:
		return nil, apperrors.UnsupportedAction(action)
	}
}

// History returns the analysis log, newest first.
func (s *AnalysisService) History(ctx context.Context, userID, projectID string) ([]dataset.AnalysisLogEntry, error) {
	owner, err := parseOwner(userID, projectID)
	if err != nil {
		return nil, err
	}
	ds, ok := s.repo.Load(ctx, owner)
	if !ok {
		return []dataset.AnalysisLogEntry{}, nil
	}
	return ds.History(), nil
}

// DeleteHistoryEntry removes one log entry by id.
func (s *AnalysisService) DeleteHistoryEntry(ctx context.Context, userID, projectID, id string) error {
	ds, err := s.loadAny(ctx, userID, projectID)
	if err != nil {
		return err
	}
	return ds.DeleteAnalysisLog(ctx, id)
}

// ClearHistory empties the analysis log.
func (s *AnalysisService) ClearHistory(ctx context.Context, userID, projectID string) error {
	ds, err := s.loadAny(ctx, userID, projectID)
	if err != nil {
		return err
	}
	return ds.ClearAnalysisHistory(ctx)
}

// loadDataset returns the owner's dataset, failing with NOT_FOUND when it
// is absent or has no columns.
func (s *AnalysisService) loadDataset(ctx context.Context, userID, projectID string) (*dataset.Dataset, error) {
	owner, err := parseOwner(userID, projectID)
	if err != nil {
		return nil, err
	}
	ds, ok := s.repo.Load(ctx, owner)
	if !ok || len(ds.Columns()) == 0 {
		return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("no dataset for %s; upload data first", owner))
	}
	return ds, nil
}

func (s *AnalysisService) loadAny(ctx context.Context, userID, projectID string) (*dataset.Dataset, error) {
	return loadExisting(ctx, s.repo, userID, projectID)
}

// loadExisting is loadDataset without the column check.
func loadExisting(ctx context.Context, repo ports.DatasetRepository, userID, projectID string) (*dataset.Dataset, error) {
	owner, err := parseOwner(userID, projectID)
	if err != nil {
		return nil, err
	}
	ds, ok := repo.Load(ctx, owner)
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("no dataset for %s", owner))
	}
	return ds, nil
}

func parseOwner(userID, projectID string) (core.Owner, error) {
	owner, err := core.NewOwner(userID, projectID)
	if err != nil {
		return core.Owner{}, apperrors.ValidationError(err.Error())
	}
	return owner, nil
}
