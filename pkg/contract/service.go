package contract

import (
	"context"

	"github.com/equipviz/equipviz/pkg/entities"
)

// DatasetService is the API surface every route is wired to. The owner is the
// already authenticated caller.
type DatasetService interface {
	Upload(ctx context.Context, owner string, input *entities.UploadRequest) (*entities.UploadResult, *Error)
	ListRecent(ctx context.Context, owner string, limit int) ([]entities.ListItem, *Error)
	FetchDetail(ctx context.Context, owner string, id int64) (*entities.Detail, *Error)
	Delete(ctx context.Context, owner string, id int64) *Error
}
