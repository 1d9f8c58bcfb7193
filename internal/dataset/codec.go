package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"onthesis/domain/core"
	"onthesis/domain/dataset"
)

const (
	dataFile = "data.csv"
	metaFile = "meta.json"

	contentTypeCSV  = "text/csv"
	contentTypeJSON = "application/json"
)

// metaDocument is the persisted metadata+history artifact.
type metaDocument struct {
	Variables map[string]dataset.VariableMetadata `json:"variables"`
	History   []dataset.AnalysisLogEntry          `json:"history"`
	UpdatedAt time.Time                           `json:"updated_at"`
}

// blobKeys is the deterministic pair of artifact keys for one tier.
type blobKeys struct {
	data string
	meta string
}

// remoteKeys lays out users/{uid}/projects/{pid}/...
func remoteKeys(o core.Owner) blobKeys {
	prefix := path.Join("users", o.UserID, "projects", o.ProjectID)
	return blobKeys{data: path.Join(prefix, dataFile), meta: path.Join(prefix, metaFile)}
}

// localKeys lays out {uid}/{pid}/... under the local root.
func localKeys(o core.Owner) blobKeys {
	prefix := path.Join(o.UserID, o.ProjectID)
	return blobKeys{data: path.Join(prefix, dataFile), meta: path.Join(prefix, metaFile)}
}

func encodeDataset(ds *dataset.Dataset) (data, meta []byte, err error) {
	var buf bytes.Buffer
	if err := ds.ExportCSV(&buf); err != nil {
		return nil, nil, fmt.Errorf("failed to encode table: %w", err)
	}
	history := ds.History()
	if history == nil {
		history = []dataset.AnalysisLogEntry{}
	}
	meta, err = json.Marshal(metaDocument{
		Variables: ds.Variables(),
		History:   history,
		UpdatedAt: ds.UpdatedAt,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return buf.Bytes(), meta, nil
}

func decodeDataset(owner core.Owner, data, meta []byte, store dataset.Store, opts ...dataset.Option) (*dataset.Dataset, error) {
	table, err := dataset.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode table: %w", err)
	}
	var doc metaDocument
	if err := json.Unmarshal(meta, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return dataset.Restore(owner, table, doc.Variables, doc.History, doc.UpdatedAt, store, opts...), nil
}
