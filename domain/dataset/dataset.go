package dataset

import (
	"context"
	"io"
	"strings"
	"time"

	"onthesis/domain/core"
	apperrors "onthesis/internal/errors"
)

// DefaultHistoryLimit caps the analysis history.
const DefaultHistoryLimit = 20

// Tier names the persistence tier that accepted a save.
type Tier string

const (
	TierRemote Tier = "remote"
	TierLocal  Tier = "local"
)

// SaveOutcome reports where a save landed.
type SaveOutcome struct {
	Tier    Tier   `json:"tier"`
	Message string `json:"message"`
}

// Store persists a dataset. Implementations decide the tiers.
type Store interface {
	Save(ctx context.Context, ds *Dataset) (SaveOutcome, error)
}

// Dataset is one user's project table with its variable metadata and
// analysis history. Every mutating method saves through the injected Store;
// a failed save leaves the in-memory change in place.
type Dataset struct {
	UserID    string
	ProjectID string
	UpdatedAt time.Time

	table        *Table
	meta         map[string]VariableMetadata
	history      []AnalysisLogEntry
	historyLimit int
	store        Store
	now          func() time.Time
}

// Option configures a Dataset.
type Option func(*Dataset)

// WithHistoryLimit overrides DefaultHistoryLimit.
func WithHistoryLimit(n int) Option {
	return func(d *Dataset) {
		if n > 0 {
			d.historyLimit = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dataset) { d.now = now }
}

// New creates an empty dataset bound to store.
func New(owner core.Owner, store Store, opts ...Option) *Dataset {
	d := &Dataset{
		UserID:       owner.UserID,
		ProjectID:    owner.ProjectID,
		table:        &Table{},
		meta:         map[string]VariableMetadata{},
		historyLimit: DefaultHistoryLimit,
		store:        store,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Restore rebuilds a dataset from persisted parts. Metadata is resynced
// against the table, so stale or absent entries are dropped or inferred.
func Restore(owner core.Owner, table *Table, vars map[string]VariableMetadata, history []AnalysisLogEntry, updatedAt time.Time, store Store, opts ...Option) *Dataset {
	d := New(owner, store, opts...)
	if table != nil {
		d.table = table
	}
	for name, m := range vars {
		m.Name = name
		d.meta[name] = m
	}
	d.history = append(d.history, history...)
	d.truncateHistory()
	d.UpdatedAt = updatedAt
	d.syncMetadata()
	return d
}

// Owner returns the user/project slot.
func (d *Dataset) Owner() core.Owner {
	return core.Owner{UserID: d.UserID, ProjectID: d.ProjectID}
}

// Table returns a copy of the table.
func (d *Dataset) Table() *Table { return d.table.Clone() }

func (d *Dataset) NumRows() int { return d.table.NumRows() }
func (d *Dataset) Columns() []string {
	return d.table.Columns()
}

// IsEmpty reports a dataset with no rows or no columns.
func (d *Dataset) IsEmpty() bool {
	return d.table.NumCols() == 0 || d.table.NumRows() == 0
}

// Variable returns the metadata for name.
func (d *Dataset) Variable(name string) (VariableMetadata, bool) {
	m, ok := d.meta[name]
	if !ok {
		return VariableMetadata{}, false
	}
	return m.clone(), true
}

// Label returns the display label of a variable, or its name.
func (d *Dataset) Label(name string) string {
	if m, ok := d.meta[name]; ok {
		return m.DisplayLabel()
	}
	return name
}

// VariableView lists metadata in column order.
func (d *Dataset) VariableView() []VariableMetadata {
	out := make([]VariableMetadata, 0, len(d.table.columns))
	for _, name := range d.table.columns {
		out = append(out, d.meta[name].clone())
	}
	return out
}

// Variables returns metadata keyed by name.
func (d *Dataset) Variables() map[string]VariableMetadata {
	out := make(map[string]VariableMetadata, len(d.meta))
	for k, v := range d.meta {
		out[k] = v.clone()
	}
	return out
}

// DataView is the grid shown to users.
type DataView struct {
	Columns []string  `json:"columns"`
	Rows    [][]Value `json:"rows"`
}

// DataView returns every row in column order.
func (d *Dataset) DataView() DataView {
	rows := make([][]Value, d.table.NumRows())
	for i := range rows {
		rows[i] = d.table.Row(i)
	}
	return DataView{Columns: d.table.Columns(), Rows: rows}
}

// ExportCSV writes the table as delimited text with a header row.
func (d *Dataset) ExportCSV(w io.Writer) error {
	return d.table.WriteCSV(w)
}

// Save persists the dataset through its store.
func (d *Dataset) Save(ctx context.Context) (SaveOutcome, error) {
	if d.store == nil {
		return SaveOutcome{}, apperrors.StorageError("no storage configured", nil)
	}
	d.UpdatedAt = d.now().UTC()
	return d.store.Save(ctx, d)
}

// syncMetadata makes the metadata key set equal the column set: entries
// for removed columns are dropped, new columns are inferred.
func (d *Dataset) syncMetadata() {
	next := make(map[string]VariableMetadata, d.table.NumCols())
	for _, name := range d.table.columns {
		if m, ok := d.meta[name]; ok {
			next[name] = m
			continue
		}
		col, _ := d.table.Column(name)
		next[name] = InferVariable(name, col)
	}
	d.meta = next
}

// ReplaceTable swaps in a freshly imported table, re-infers every variable
// and saves. History is kept.
func (d *Dataset) ReplaceTable(ctx context.Context, t *Table) error {
	if t == nil {
		return apperrors.ValidationError("table cannot be nil")
	}
	d.table = t.Clone()
	d.meta = map[string]VariableMetadata{}
	d.syncMetadata()
	_, err := d.Save(ctx)
	return err
}

// Initialize builds the table from headers and raw rows.
func (d *Dataset) Initialize(ctx context.Context, headers []string, rows [][]string) error {
	t, err := TableFromRecords(headers, rows)
	if err != nil {
		return apperrors.Wrap(apperrors.ValidationError(err.Error()), "invalid table")
	}
	return d.ReplaceTable(ctx, t)
}

// UpdateCell writes raw into (row, col). A row index past the end appends
// one new row and writes there. Numeric columns parse the input; empty
// input becomes missing.
func (d *Dataset) UpdateCell(ctx context.Context, row, col int, raw string) error {
	if col < 0 || col >= d.table.NumCols() {
		return apperrors.Validationf("column index %d out of range", col)
	}
	if row < 0 {
		return apperrors.Validationf("row index %d out of range", row)
	}
	if row >= d.table.NumRows() {
		d.table.appendEmptyRow()
		row = d.table.NumRows() - 1
	}

	var v Value
	switch {
	case strings.TrimSpace(raw) == "":
		v = Missing()
	case columnIsNumeric(d.table.rows, col):
		v = ParseCell(raw)
	default:
		v = Text(raw)
	}
	d.table.set(row, col, v)

	_, err := d.Save(ctx)
	return err
}

// VariableField names an editable metadata field.
type VariableField string

const (
	FieldName    VariableField = "name"
	FieldMeasure VariableField = "measure"
	FieldRole    VariableField = "role"
	FieldLabel   VariableField = "label"
	FieldType    VariableField = "type"
)

// UpdateVariable edits one metadata field. It returns false without saving
// when the variable is unknown, the field is unknown, or the value is
// rejected (an empty or duplicate name, an unknown measure or type).
func (d *Dataset) UpdateVariable(ctx context.Context, oldName string, field VariableField, value string) (bool, error) {
	m, ok := d.meta[oldName]
	if !ok {
		return false, nil
	}

	switch field {
	case FieldName:
		newName := strings.TrimSpace(value)
		if newName == "" {
			return false, nil
		}
		if newName != oldName {
			if err := d.table.renameColumn(oldName, newName); err != nil {
				return false, nil
			}
			delete(d.meta, oldName)
			m.Name = newName
			d.meta[newName] = m
			d.syncMetadata()
		}
	case FieldMeasure:
		measure, err := ParseMeasure(value)
		if err != nil {
			return false, nil
		}
		m.Measure = measure
		d.meta[oldName] = m
	case FieldType:
		t, err := ParseVarType(value)
		if err != nil {
			return false, nil
		}
		m.Type = t
		d.meta[oldName] = m
	case FieldRole:
		m.Role = value
		d.meta[oldName] = m
	case FieldLabel:
		m.Label = value
		d.meta[oldName] = m
	default:
		return false, nil
	}

	_, err := d.Save(ctx)
	return true, err
}

// SetValueLabels replaces the value labels of a variable.
func (d *Dataset) SetValueLabels(ctx context.Context, name string, labels map[string]string) error {
	m, ok := d.meta[name]
	if !ok {
		return apperrors.NotFound("variable " + name)
	}
	m.ValueLabels = make(map[string]string, len(labels))
	for k, v := range labels {
		m.ValueLabels[k] = v
	}
	d.meta[name] = m
	_, err := d.Save(ctx)
	return err
}

// SetMissingValues replaces the sentinel missing codes of a variable.
func (d *Dataset) SetMissingValues(ctx context.Context, name string, codes []Value) error {
	m, ok := d.meta[name]
	if !ok {
		return apperrors.NotFound("variable " + name)
	}
	m.MissingValues = append([]Value{}, codes...)
	d.meta[name] = m
	_, err := d.Save(ctx)
	return err
}

// AddColumn appends an empty column.
func (d *Dataset) AddColumn(ctx context.Context, name string) error {
	if err := d.table.addColumn(name); err != nil {
		return apperrors.ValidationError(err.Error())
	}
	d.syncMetadata()
	_, err := d.Save(ctx)
	return err
}

// RemoveColumn drops a column and its metadata.
func (d *Dataset) RemoveColumn(ctx context.Context, name string) error {
	if !d.table.removeColumn(name) {
		return apperrors.NotFound("column " + name)
	}
	d.syncMetadata()
	_, err := d.Save(ctx)
	return err
}

// ClearAll empties table, metadata and history, then saves the empty state.
func (d *Dataset) ClearAll(ctx context.Context) error {
	d.table = &Table{}
	d.meta = map[string]VariableMetadata{}
	d.history = nil
	_, err := d.Save(ctx)
	return err
}
