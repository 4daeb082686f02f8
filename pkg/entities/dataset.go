package entities

import "time"

// EquipmentRecord is one row of an uploaded table. The JSON keys mirror the source
// column headers so clients can render the table as uploaded.
type EquipmentRecord struct {
	Name        string  `json:"Equipment Name"`
	Type        string  `json:"Type"`
	Flowrate    float64 `json:"Flowrate"`
	Pressure    float64 `json:"Pressure"`
	Temperature float64 `json:"Temperature"`
}

// DatasetStats is the aggregate computed from a table. A nil average means the
// column was absent or had no rows.
type DatasetStats struct {
	TotalCount         int
	AverageFlowrate    *float64
	AveragePressure    *float64
	AverageTemperature *float64
	Distribution       Distribution
	Records            []EquipmentRecord
}

type Dataset struct {
	ID              int64
	Owner           string
	Title           string
	Filename        string
	StorageLocation string
	UploadedAt      time.Time
	DatasetStats
}

type Summary struct {
	ID                        int64        `json:"id"`
	Title                     string       `json:"title"`
	TotalCount                int          `json:"total_count"`
	AverageFlowrate           *float64     `json:"average_flowrate"`
	AveragePressure           *float64     `json:"average_pressure"`
	AverageTemperature        *float64     `json:"average_temperature"`
	EquipmentTypeDistribution Distribution `json:"equipment_type_distribution"`
}

// UploadResult is returned once an upload has been persisted.
type UploadResult struct {
	Summary
	EquipmentList []EquipmentRecord `json:"equipment_list"`
}

// ListItem describes a retained dataset without its rows.
type ListItem struct {
	Summary
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type Detail struct {
	ListItem
	EquipmentList []EquipmentRecord `json:"equipment_list"`
}

func (d *Dataset) ToSummary() Summary {
	distribution := d.Distribution
	if distribution == nil {
		distribution = Distribution{}
	}

	return Summary{
		ID:                        d.ID,
		Title:                     d.Title,
		TotalCount:                d.TotalCount,
		AverageFlowrate:           d.AverageFlowrate,
		AveragePressure:           d.AveragePressure,
		AverageTemperature:        d.AverageTemperature,
		EquipmentTypeDistribution: distribution,
	}
}

func (d *Dataset) ToUploadResult() *UploadResult {
	return &UploadResult{
		Summary:       d.ToSummary(),
		EquipmentList: d.records(),
	}
}

func (d *Dataset) ToListItem() ListItem {
	return ListItem{
		Summary:    d.ToSummary(),
		Filename:   d.Filename,
		UploadedAt: d.UploadedAt,
	}
}

func (d *Dataset) ToDetail() *Detail {
	return &Detail{
		ListItem:      d.ToListItem(),
		EquipmentList: d.records(),
	}
}

func (d *Dataset) records() []EquipmentRecord {
	if d.Records == nil {
		return []EquipmentRecord{}
	}

	return d.Records
}

// UploadRequest carries an uploaded table and the title it should be retained under.
type UploadRequest struct {
	Title    string
	Filename string
	Content  []byte
}
