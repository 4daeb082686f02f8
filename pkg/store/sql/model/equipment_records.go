package model

import "github.com/equipviz/equipviz/pkg/entities"

// EquipmentRecord mapped from table <equipment_records>.
type EquipmentRecord struct {
	ID          int64   `gorm:"column:id;primaryKey;autoIncrement:true"`
	DatasetID   int64   `gorm:"column:dataset_id;not null;index:idx_equipment_records_dataset_position,priority:1"`
	Position    int     `gorm:"column:position;not null;index:idx_equipment_records_dataset_position,priority:2"`
	Name        string  `gorm:"column:name;not null"`
	Type        string  `gorm:"column:type;not null"`
	Flowrate    float64 `gorm:"column:flowrate;not null"`
	Pressure    float64 `gorm:"column:pressure;not null"`
	Temperature float64 `gorm:"column:temperature;not null"`
}

func (EquipmentRecord) TableName() string {
	return "equipment_records"
}

func (r EquipmentRecord) ToEntity() entities.EquipmentRecord {
	return entities.EquipmentRecord{
		Name:        r.Name,
		Type:        r.Type,
		Flowrate:    r.Flowrate,
		Pressure:    r.Pressure,
		Temperature: r.Temperature,
	}
}

func NewEquipmentRecordFromEntity(position int, record entities.EquipmentRecord) EquipmentRecord {
	return EquipmentRecord{
		Position:    position,
		Name:        record.Name,
		Type:        record.Type,
		Flowrate:    record.Flowrate,
		Pressure:    record.Pressure,
		Temperature: record.Temperature,
	}
}
