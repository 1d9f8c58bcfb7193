package excel

// ReaderConfig bounds how much of a file header detection inspects
type ReaderConfig struct {
	SampleRows       int `json:"sample_rows"`
	HeaderCandidates int `json:"header_candidates"`
	PreviewRows      int `json:"preview_rows"`
	SampleValues     int `json:"sample_values"`
}

// DefaultReaderConfig returns the import preview defaults
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		SampleRows:       20,
		HeaderCandidates: 5,
		PreviewRows:      10,
		SampleValues:     3,
	}
}
