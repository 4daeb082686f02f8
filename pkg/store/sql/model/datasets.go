package model

import (
	"time"

	"github.com/equipviz/equipviz/pkg/entities"
	"github.com/equipviz/equipviz/pkg/store"
)

// DatasetOwnerTitleIndex keeps titles unique per owner.
const DatasetOwnerTitleIndex = "idx_datasets_owner_title"

// Dataset mapped from table <datasets>.
type Dataset struct {
	ID                        int64                 `gorm:"column:id;primaryKey;autoIncrement:true"`
	Owner                     string                `gorm:"column:owner;not null;size:150;uniqueIndex:idx_datasets_owner_title,priority:1;index:idx_datasets_owner_uploaded,priority:1"`
	Title                     string                `gorm:"column:title;not null;size:100;uniqueIndex:idx_datasets_owner_title,priority:2"`
	Filename                  string                `gorm:"column:filename;not null;size:255"`
	StorageLocation           string                `gorm:"column:storage_location;not null;size:512"`
	UploadedAt                int64                 `gorm:"column:uploaded_at;not null;index:idx_datasets_owner_uploaded,priority:2"`
	TotalCount                int                   `gorm:"column:total_count;not null"`
	AverageFlowrate           *float64              `gorm:"column:average_flowrate"`
	AveragePressure           *float64              `gorm:"column:average_pressure"`
	AverageTemperature        *float64              `gorm:"column:average_temperature"`
	EquipmentTypeDistribution entities.Distribution `gorm:"column:equipment_type_distribution;type:text;serializer:json"`
	Records                   []EquipmentRecord     `gorm:"foreignKey:DatasetID;constraint:OnDelete:CASCADE"`
}

func (Dataset) TableName() string {
	return "datasets"
}

func (d Dataset) ToEntity() *entities.Dataset {
	var records []entities.EquipmentRecord
	if d.Records != nil {
		records = make([]entities.EquipmentRecord, len(d.Records))
		for i, record := range d.Records {
			records[i] = record.ToEntity()
		}
	}

	return &entities.Dataset{
		ID:              d.ID,
		Owner:           d.Owner,
		Title:           d.Title,
		Filename:        d.Filename,
		StorageLocation: d.StorageLocation,
		UploadedAt:      time.UnixMilli(d.UploadedAt).UTC(),
		DatasetStats: entities.DatasetStats{
			TotalCount:         d.TotalCount,
			AverageFlowrate:    d.AverageFlowrate,
			AveragePressure:    d.AveragePressure,
			AverageTemperature: d.AverageTemperature,
			Distribution:       d.EquipmentTypeDistribution,
			Records:            records,
		},
	}
}

func NewDatasetFromInput(input *store.NewDataset, uploadedAt time.Time) Dataset {
	distribution := input.Stats.Distribution
	if distribution == nil {
		distribution = entities.Distribution{}
	}

	records := make([]EquipmentRecord, len(input.Stats.Records))
	for i, record := range input.Stats.Records {
		records[i] = NewEquipmentRecordFromEntity(i, record)
	}

	return Dataset{
		Owner:                     input.Owner,
		Title:                     input.Title,
		Filename:                  input.Filename,
		StorageLocation:           input.StorageLocation,
		UploadedAt:                uploadedAt.UnixMilli(),
		TotalCount:                input.Stats.TotalCount,
		AverageFlowrate:           input.Stats.AverageFlowrate,
		AveragePressure:           input.Stats.AveragePressure,
		AverageTemperature:        input.Stats.AverageTemperature,
		EquipmentTypeDistribution: distribution,
		Records:                   records,
	}
}
