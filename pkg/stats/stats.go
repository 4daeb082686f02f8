// Package stats computes the summary of a parsed equipment table.
package stats

import (
	"github.com/equipviz/equipviz/pkg/entities"
	"github.com/equipviz/equipviz/pkg/table"
	"github.com/equipviz/equipviz/pkg/utils"
)

// Aggregate is a pure function of the table: averages are nil when their column
// is absent or the table has no rows, the distribution is empty without a Type
// column, and records are only listed when every required column is present.
func Aggregate(t *table.ParsedTable) entities.DatasetStats {
	result := entities.DatasetStats{
		TotalCount:   len(t.Rows),
		Distribution: entities.Distribution{},
		Records:      []entities.EquipmentRecord{},
	}

	if t.Shape.Flowrate {
		result.AverageFlowrate = mean(t.Rows, func(r table.Row) float64 { return r.Flowrate })
	}
	if t.Shape.Pressure {
		result.AveragePressure = mean(t.Rows, func(r table.Row) float64 { return r.Pressure })
	}
	if t.Shape.Temperature {
		result.AverageTemperature = mean(t.Rows, func(r table.Row) float64 { return r.Temperature })
	}
	if t.Shape.Type {
		result.Distribution = distribution(t.Rows)
	}

	if t.Shape.Complete() {
		records := make([]entities.EquipmentRecord, len(t.Rows))
		for i, row := range t.Rows {
			records[i] = entities.EquipmentRecord{
				Name:        row.Name,
				Type:        row.Type,
				Flowrate:    row.Flowrate,
				Pressure:    row.Pressure,
				Temperature: row.Temperature,
			}
		}
		result.Records = records
	}

	return result
}

func mean(rows []table.Row, value func(table.Row) float64) *float64 {
	if len(rows) == 0 {
		return nil
	}

	sum := 0.0
	for _, row := range rows {
		sum += value(row)
	}

	return utils.PtrTo(sum / float64(len(rows)))
}

func distribution(rows []table.Row) entities.Distribution {
	positions := make(map[string]int)
	out := make(entities.Distribution, 0)

	for _, row := range rows {
		position, ok := positions[row.Type]
		if !ok {
			positions[row.Type] = len(out)
			out = append(out, entities.TypeCount{Type: row.Type, Count: 1})
			continue
		}
		out[position].Count++
	}

	return out
}
