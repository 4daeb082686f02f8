package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/equipviz/equipviz/pkg/contract"
	"github.com/equipviz/equipviz/pkg/entities"
	"github.com/equipviz/equipviz/pkg/store"
	"github.com/equipviz/equipviz/pkg/store/sql/model"
)

const recordBatchSize = 500

func duplicateTitleError(title string) *contract.Error {
	return contract.NewError(
		contract.ErrorCode_DUPLICATE_TITLE,
		fmt.Sprintf("A dataset titled %q already exists", title),
	)
}

func notFoundError(id int64) *contract.Error {
	return contract.NewError(
		contract.ErrorCode_RESOURCE_DOES_NOT_EXIST,
		fmt.Sprintf("No dataset with id=%d exists", id),
	)
}

func (s *Store) TitleExists(ctx context.Context, owner, title string) (bool, *contract.Error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&model.Dataset{}).
		Where("owner = ? AND title = ?", owner, title).
		Count(&count).Error; err != nil {
		return false, contract.NewErrorWith(contract.ErrorCode_INTERNAL_ERROR, "failed to look up dataset title", err)
	}

	return count > 0, nil
}

func deleteWithTransaction(transaction *gorm.DB, id int64) error {
	if err := transaction.
		Where("dataset_id = ?", id).
		Delete(&model.EquipmentRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete records of dataset %d: %w", id, err)
	}

	result := transaction.Delete(&model.Dataset{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete dataset %d: %w", id, result.Error)
	}
	if result.RowsAffected != 1 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

//nolint:funlen
func (s *Store) Insert(
	ctx context.Context, input *store.NewDataset, limit int, evict store.ReleaseFunc,
) (*entities.Dataset, *contract.Error) {
	if limit <= 0 {
		return nil, contract.NewError(
			contract.ErrorCode_INTERNAL_ERROR,
			fmt.Sprintf("retention limit must be positive, got %d", limit),
		)
	}

	dataset := model.NewDatasetFromInput(input, time.Now())
	records := dataset.Records
	dataset.Records = nil

	err := s.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		var existing int64
		if err := transaction.
			Model(&model.Dataset{}).
			Where("owner = ? AND title = ?", input.Owner, input.Title).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to look up dataset title: %w", err)
		}
		if existing > 0 {
			return duplicateTitleError(input.Title)
		}

		var live []model.Dataset
		if err := transaction.
			Where("owner = ?", input.Owner).
			Order("uploaded_at ASC").
			Order("id ASC").
			Find(&live).Error; err != nil {
			return fmt.Errorf("failed to list live datasets: %w", err)
		}

		var victims []model.Dataset
		if overflow := len(live) - limit + 1; overflow > 0 {
			victims = live[:overflow]
		}
		for _, victim := range victims {
			if err := deleteWithTransaction(transaction, victim.ID); err != nil {
				return fmt.Errorf("failed to evict dataset %d: %w", victim.ID, err)
			}
		}

		if err := transaction.Omit("Records").Create(&dataset).Error; err != nil {
			return fmt.Errorf("failed to insert dataset: %w", err)
		}

		if len(records) > 0 {
			for i := range records {
				records[i].DatasetID = dataset.ID
			}
			if err := transaction.CreateInBatches(&records, recordBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert equipment records: %w", err)
			}
		}

		// Releasing is the last step so no failing write can follow it.
		for _, victim := range victims {
			if err := evict(ctx, victim.ToEntity()); err != nil {
				return contract.NewErrorWith(
					contract.ErrorCode_EVICTION_FAILURE,
					fmt.Sprintf("Could not evict the oldest dataset %q to make room", victim.Title),
					err,
				)
			}
		}

		return nil
	})
	if err != nil {
		var cErr *contract.Error
		if errors.As(err, &cErr) {
			return nil, cErr
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, duplicateTitleError(input.Title)
		}

		return nil, contract.NewErrorWith(contract.ErrorCode_INTERNAL_ERROR, "failed to store dataset", err)
	}

	dataset.Records = records

	return dataset.ToEntity(), nil
}

func (s *Store) ListRecent(ctx context.Context, owner string, limit int) ([]*entities.Dataset, *contract.Error) {
	var datasets []model.Dataset
	if err := s.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("uploaded_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&datasets).Error; err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCode_INTERNAL_ERROR, "failed to list datasets", err)
	}

	out := make([]*entities.Dataset, len(datasets))
	for i, dataset := range datasets {
		out[i] = dataset.ToEntity()
	}

	return out, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*entities.Dataset, *contract.Error) {
	var dataset model.Dataset
	if err := s.db.WithContext(ctx).
		Preload("Records", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&dataset, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError(id)
		}

		return nil, contract.NewErrorWith(contract.ErrorCode_INTERNAL_ERROR, "failed to get dataset", err)
	}
	if dataset.Records == nil {
		dataset.Records = []model.EquipmentRecord{}
	}

	return dataset.ToEntity(), nil
}

func (s *Store) Delete(ctx context.Context, id int64, release store.ReleaseFunc) *contract.Error {
	err := s.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		var dataset model.Dataset
		if err := transaction.First(&dataset, id).Error; err != nil {
			return err
		}

		if err := release(ctx, dataset.ToEntity()); err != nil {
			return contract.NewErrorWith(
				contract.ErrorCode_DELETE_FAILURE,
				fmt.Sprintf("Could not release the stored file of dataset %d", id),
				err,
			)
		}

		return deleteWithTransaction(transaction, id)
	})
	if err != nil {
		var cErr *contract.Error
		if errors.As(err, &cErr) {
			return cErr
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError(id)
		}

		return contract.NewErrorWith(contract.ErrorCode_INTERNAL_ERROR, "failed to delete dataset", err)
	}

	return nil
}
