package app

import (
	"context"
	"io"

	"onthesis/adapters/excel"
	"onthesis/domain/dataset"
	"onthesis/internal"
	"onthesis/ports"
)

// WorkspaceService edits a project's dataset: import, the data grid and
// the variable view.
type WorkspaceService struct {
	repo      ports.DatasetRepository
	previewer *excel.Previewer
	logger    *internal.Logger
}

// ImportResult summarizes a committed import
type ImportResult struct {
	HeaderRow int                        `json:"header_row"`
	Rows      int                        `json:"rows"`
	Columns   int                        `json:"columns"`
	Variables []dataset.VariableMetadata `json:"variables"`
}

// NewWorkspaceService creates the service. A nil previewer uses the
// default reader configuration.
func NewWorkspaceService(repo ports.DatasetRepository, previewer *excel.Previewer, logger *internal.Logger) *WorkspaceService {
	logger = internal.OrDefault(logger)
	if previewer == nil {
		previewer = excel.NewPreviewer(excel.DefaultReaderConfig(), logger)
	}
	return &WorkspaceService{
		repo:      repo,
		previewer: previewer,
		logger:    logger.With("WorkspaceService"),
	}
}

// Preview detects the header row of an upload without storing anything.
func (s *WorkspaceService) Preview(contents []byte, filename string) (*excel.PreviewResult, error) {
	return s.previewer.Preview(contents, filename)
}

// Import reads the upload and replaces the project's table with it. A
// negative headerRow means detect it. History survives the import.
func (s *WorkspaceService) Import(ctx context.Context, userID, projectID string, contents []byte, filename string, headerRow int) (*ImportResult, error) {
	owner, err := parseOwner(userID, projectID)
	if err != nil {
		return nil, err
	}
	if headerRow < 0 {
		preview, err := s.previewer.Preview(contents, filename)
		if err != nil {
			return nil, err
		}
		headerRow = preview.DetectedHeaderRow
	}
	table, err := s.previewer.ReadTable(contents, filename, headerRow)
	if err != nil {
		return nil, err
	}

	ds := s.repo.Open(ctx, owner)
	if err := ds.ReplaceTable(ctx, table); err != nil {
		return nil, err
	}
	s.logger.Info("imported %s into %s: %d rows, %d columns", filename, owner, table.NumRows(), table.NumCols())
	return &ImportResult{
		HeaderRow: headerRow,
		Rows:      table.NumRows(),
		Columns:   table.NumCols(),
		Variables: ds.VariableView(),
	}, nil
}

// Data returns the grid of the project's dataset; an absent dataset is an
// empty grid.
func (s *WorkspaceService) Data(ctx context.Context, userID, projectID string) (dataset.DataView, error) {
	ds, err := s.open(ctx, userID, projectID)
	if err != nil {
		return dataset.DataView{}, err
	}
	return ds.DataView(), nil
}

// Variables returns the variable view in column order.
func (s *WorkspaceService) Variables(ctx context.Context, userID, projectID string) ([]dataset.VariableMetadata, error) {
	ds, err := s.open(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	return ds.VariableView(), nil
}

// UpdateVariable edits one metadata field. It reports false when the
// update was rejected.
func (s *WorkspaceService) UpdateVariable(ctx context.Context, userID, projectID, name string, field dataset.VariableField, value string) (bool, error) {
	ds, err := s.loadAny(ctx, userID, projectID)
	if err != nil {
		return false, err
	}
	return ds.UpdateVariable(ctx, name, field, value)
}

// SetValueLabels replaces the value labels of a variable.
func (s *WorkspaceService) SetValueLabels(ctx context.Context, userID, projectID, name string, labels map[string]string) error {
	ds, err := s.loadAny(ctx, userID, projectID)
	if err != nil {
		return err
	}
	return ds.SetValueLabels(ctx, name, labels)
}

// SetMissingValues replaces the sentinel missing codes of a variable.
func (s *WorkspaceService) SetMissingValues(ctx context.Context, userID, projectID, name string, codes []string) error {
	ds, err := s.loadAny(ctx, userID, projectID)
	if err != nil {
		return err
	}
	values := make([]dataset.Value, len(codes))
	for i, c := range codes {
		values[i] = dataset.ParseCell(c)
	}
	return ds.SetMissingValues(ctx, name, values)
}

// UpdateCell writes one cell; a row past the end appends a row.
func (s *WorkspaceService) UpdateCell(ctx context.Context, userID, projectID string, row, col int, raw string) error {
	ds, err := s.loadAny(ctx, userID, projectID)
	if err != nil {
		return err
	}
	return ds.UpdateCell(ctx, row, col, raw)
}

// AddColumn appends an empty column, creating the dataset if needed.
func (s *WorkspaceService) AddColumn(ctx context.Context, userID, projectID, name string) error {
	ds, err := s.open(ctx, userID, projectID)
	if err != nil {
		return err
	}
	return ds.AddColumn(ctx, name)
}

// RemoveColumn drops a column and its metadata.
func (s *WorkspaceService) RemoveColumn(ctx context.Context, userID, projectID, name string) error {
	ds, err := s.loadAny(ctx, userID, projectID)
	if err != nil {
		return err
	}
	return ds.RemoveColumn(ctx, name)
}

// Export writes the table as CSV.
func (s *WorkspaceService) Export(ctx context.Context, userID, projectID string, w io.Writer) error {
	ds, err := s.loadAny(ctx, userID, projectID)
	if err != nil {
		return err
	}
	return ds.ExportCSV(w)
}

// Reset clears table, metadata and history and saves the empty state.
func (s *WorkspaceService) Reset(ctx context.Context, userID, projectID string) error {
	ds, err := s.open(ctx, userID, projectID)
	if err != nil {
		return err
	}
	if err := ds.ClearAll(ctx); err != nil {
		return err
	}
	s.logger.Info("reset %s", ds.Owner())
	return nil
}

func (s *WorkspaceService) open(ctx context.Context, userID, projectID string) (*dataset.Dataset, error) {
	owner, err := parseOwner(userID, projectID)
	if err != nil {
		return nil, err
	}
	return s.repo.Open(ctx, owner), nil
}

func (s *WorkspaceService) loadAny(ctx context.Context, userID, projectID string) (*dataset.Dataset, error) {
	return loadExisting(ctx, s.repo, userID, projectID)
}
