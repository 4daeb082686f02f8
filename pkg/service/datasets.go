package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/equipviz/equipviz/pkg/config"
	"github.com/equipviz/equipviz/pkg/contract"
	"github.com/equipviz/equipviz/pkg/entities"
	"github.com/equipviz/equipviz/pkg/stats"
	"github.com/equipviz/equipviz/pkg/storage"
	"github.com/equipviz/equipviz/pkg/store"
	"github.com/equipviz/equipviz/pkg/table"
)

const maxTitleLength = 100

type DatasetService struct {
	config *config.Config
	logger *logrus.Logger
	store  store.DatasetStore
	files  storage.FileStorage
	locks  *ownerLocks
}

func NewDatasetService(
	logger *logrus.Logger, cfg *config.Config, datasets store.DatasetStore, files storage.FileStorage,
) *DatasetService {
	return &DatasetService{
		config: cfg,
		logger: logger,
		store:  datasets,
		files:  files,
		locks:  newOwnerLocks(),
	}
}

var _ contract.DatasetService = (*DatasetService)(nil)

func tableMode(mode config.UploadMode) table.Mode {
	if mode == config.UploadModeStrict {
		return table.Strict
	}

	return table.Lenient
}

func checkFilename(filename string) (rune, *contract.Error) {
	delimiter, ok := table.DelimiterFor(filename)
	if !ok {
		return 0, contract.NewError(
			contract.ErrorCode_INVALID_FILE_TYPE,
			fmt.Sprintf("Only .csv and .tsv files are allowed, got %q", filename),
		)
	}

	return delimiter, nil
}

// Analyze parses and summarises a table file without storing anything.
func Analyze(filename string, content []byte, mode config.UploadMode) (*entities.DatasetStats, *contract.Error) {
	delimiter, cErr := checkFilename(filename)
	if cErr != nil {
		return nil, cErr
	}

	parsed, cErr := table.Parse(content, table.Options{Mode: tableMode(mode), Delimiter: delimiter})
	if cErr != nil {
		return nil, cErr
	}

	result := stats.Aggregate(parsed)

	return &result, nil
}

func checkOwner(owner string) *contract.Error {
	if owner == "" {
		return contract.NewError(contract.ErrorCode_UNAUTHENTICATED, "Authentication credentials were not provided")
	}

	return nil
}

func checkTitle(title string) *contract.Error {
	if strings.TrimSpace(title) == "" {
		return contract.NewError(contract.ErrorCode_INVALID_PARAMETER_VALUE, "Missing value for required parameter 'title'")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return contract.NewError(
			contract.ErrorCode_INVALID_PARAMETER_VALUE,
			fmt.Sprintf("Title must be at most %d characters", maxTitleLength),
		)
	}

	return nil
}

func (s *DatasetService) release(ctx context.Context, dataset *entities.Dataset) error {
	return s.files.Release(ctx, dataset.StorageLocation)
}

// Upload validates, summarises and retains a table for the owner. Either the whole
// dataset is stored, or nothing is.
//
//nolint:funlen
func (s *DatasetService) Upload(
	ctx context.Context, owner string, input *entities.UploadRequest,
) (*entities.UploadResult, *contract.Error) {
	entry := s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"owner":    owner,
		"title":    input.Title,
		"filename": input.Filename,
	})
	lifecycle := newUploadLifecycle(entry)

	if cErr := checkOwner(owner); cErr != nil {
		return nil, lifecycle.reject(ctx, cErr)
	}
	delimiter, cErr := checkFilename(input.Filename)
	if cErr != nil {
		return nil, lifecycle.reject(ctx, cErr)
	}
	if cErr := checkTitle(input.Title); cErr != nil {
		return nil, lifecycle.reject(ctx, cErr)
	}

	unlock := s.locks.Lock(owner)
	defer unlock()

	// Checked again inside the insert transaction; this only avoids parsing for nothing.
	exists, cErr := s.store.TitleExists(ctx, owner, input.Title)
	if cErr != nil {
		return nil, lifecycle.reject(ctx, cErr)
	}
	if exists {
		return nil, lifecycle.reject(ctx, contract.NewError(
			contract.ErrorCode_DUPLICATE_TITLE,
			fmt.Sprintf("A dataset titled %q already exists", input.Title),
		))
	}

	parsed, cErr := table.Parse(input.Content, table.Options{Mode: tableMode(s.config.UploadMode), Delimiter: delimiter})
	if cErr != nil {
		return nil, lifecycle.reject(ctx, cErr)
	}
	if cErr := lifecycle.advance(ctx, triggerValidate); cErr != nil {
		return nil, lifecycle.reject(ctx, cErr)
	}

	summary := stats.Aggregate(parsed)
	if cErr := lifecycle.advance(ctx, triggerAggregate); cErr != nil {
		return nil, lifecycle.reject(ctx, cErr)
	}

	location, err := s.files.Save(ctx, owner, input.Filename, input.Content)
	if err != nil {
		return nil, lifecycle.reject(ctx, contract.NewErrorWith(
			contract.ErrorCode_INTERNAL_ERROR,
			"Could not store the uploaded file",
			err,
		))
	}

	dataset, cErr := s.store.Insert(ctx, &store.NewDataset{
		Owner:           owner,
		Title:           input.Title,
		Filename:        input.Filename,
		StorageLocation: location,
		Stats:           summary,
	}, s.config.RetentionLimit, s.release)
	if cErr != nil {
		if err := s.files.Release(ctx, location); err != nil {
			var result *multierror.Error
			result = multierror.Append(result, cErr, err)
			entry.WithError(result).Errorf("failed to release %q after a rejected upload", location)
		}
		return nil, lifecycle.reject(ctx, cErr)
	}

	if cErr := lifecycle.advance(ctx, triggerPersist); cErr != nil {
		return nil, cErr
	}
	entry.WithField("id", dataset.ID).Info("dataset uploaded")

	return dataset.ToUploadResult(), nil
}

// ListRecent returns up to limit of the owner's datasets, newest first. A limit
// outside 1..retention limit is clamped to the retention limit.
func (s *DatasetService) ListRecent(ctx context.Context, owner string, limit int) ([]entities.ListItem, *contract.Error) {
	if cErr := checkOwner(owner); cErr != nil {
		return nil, cErr
	}
	if limit <= 0 || limit > s.config.RetentionLimit {
		limit = s.config.RetentionLimit
	}

	datasets, cErr := s.store.ListRecent(ctx, owner, limit)
	if cErr != nil {
		return nil, cErr
	}

	items := make([]entities.ListItem, len(datasets))
	for i, dataset := range datasets {
		items[i] = dataset.ToListItem()
	}

	return items, nil
}

// owned loads a dataset and checks it belongs to the owner.
func (s *DatasetService) owned(ctx context.Context, owner string, id int64) (*entities.Dataset, *contract.Error) {
	if cErr := checkOwner(owner); cErr != nil {
		return nil, cErr
	}

	dataset, cErr := s.store.Get(ctx, id)
	if cErr != nil {
		return nil, cErr
	}

	if dataset.Owner != owner {
		s.logger.WithContext(ctx).WithFields(logrus.Fields{
			"owner":      owner,
			"id":         id,
			"dataset_of": dataset.Owner,
		}).Warn("access to a dataset of another owner denied")

		return nil, contract.NewError(
			contract.ErrorCode_PERMISSION_DENIED,
			"You do not have permission to access this dataset",
		)
	}

	return dataset, nil
}

func (s *DatasetService) FetchDetail(ctx context.Context, owner string, id int64) (*entities.Detail, *contract.Error) {
	dataset, cErr := s.owned(ctx, owner, id)
	if cErr != nil {
		return nil, cErr
	}

	return dataset.ToDetail(), nil
}

// Delete removes one of the owner's datasets after releasing its raw file.
func (s *DatasetService) Delete(ctx context.Context, owner string, id int64) *contract.Error {
	if cErr := checkOwner(owner); cErr != nil {
		return cErr
	}

	unlock := s.locks.Lock(owner)
	defer unlock()

	if _, cErr := s.owned(ctx, owner, id); cErr != nil {
		return cErr
	}

	if cErr := s.store.Delete(ctx, id, s.release); cErr != nil {
		return cErr
	}
	s.logger.WithContext(ctx).WithFields(logrus.Fields{"owner": owner, "id": id}).Info("dataset deleted")

	return nil
}
