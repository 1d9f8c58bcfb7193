package excel

import "onthesis/domain/dataset"

// ColumnPreview describes one detected column of an import preview.
type ColumnPreview struct {
	Name            string          `json:"name"`
	DetectedType    dataset.VarType `json:"detected_type"`
	DetectedMeasure dataset.Measure `json:"detected_measure"`
	Sample          []dataset.Value `json:"sample"`
}

// PreviewResult is the outcome of header detection on an uploaded file.
type PreviewResult struct {
	DetectedHeaderRow int               `json:"detected_header_row"`
	TotalColumns      int               `json:"total_columns"`
	Columns           []ColumnPreview   `json:"columns"`
	PreviewRows       [][]dataset.Value `json:"preview_rows"`
}
