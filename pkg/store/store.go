package store

import (
	"context"

	"github.com/equipviz/equipviz/pkg/contract"
	"github.com/equipviz/equipviz/pkg/entities"
)

// ReleaseFunc frees whatever lives outside the store for a dataset, such as its raw
// file. The store calls it before the dataset's rows are removed and aborts the
// removal when it fails.
type ReleaseFunc func(ctx context.Context, dataset *entities.Dataset) error

type NewDataset struct {
	Owner           string
	Title           string
	Filename        string
	StorageLocation string
	Stats           entities.DatasetStats
}

// DatasetStore keeps at most a fixed number of datasets per owner.
type DatasetStore interface {
	// TitleExists reports whether the owner already has a live dataset with this exact title.
	TitleExists(ctx context.Context, owner, title string) (bool, *contract.Error)

	// Insert atomically creates a dataset. A duplicate title is rejected before any
	// eviction. Otherwise the owner's oldest datasets (by upload time, then id) are
	// evicted until the new one fits within limit. evict runs for each victim only
	// after every row has been written; its failure rolls the whole insert back.
	Insert(ctx context.Context, input *NewDataset, limit int, evict ReleaseFunc) (*entities.Dataset, *contract.Error)

	// ListRecent returns the owner's datasets newest first, without records.
	ListRecent(ctx context.Context, owner string, limit int) ([]*entities.Dataset, *contract.Error)

	// Get returns a dataset with its records regardless of owner.
	Get(ctx context.Context, id int64) (*entities.Dataset, *contract.Error)

	// Delete releases the dataset's external resources and then removes it.
	Delete(ctx context.Context, id int64, release ReleaseFunc) *contract.Error

	Close() error
}
