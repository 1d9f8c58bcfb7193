package ports

import (
	"context"

	"onthesis/domain/core"
	"onthesis/domain/dataset"
)

// DatasetRepository loads the dataset of one user and project. Saving goes
// through the dataset.Store each loaded dataset is bound to.
type DatasetRepository interface {
	// Load returns the persisted dataset, or false when none exists.
	Load(ctx context.Context, owner core.Owner) (*dataset.Dataset, bool)

	// Open returns the persisted dataset or a fresh empty one bound to the
	// repository's store.
	Open(ctx context.Context, owner core.Owner) *dataset.Dataset
}
