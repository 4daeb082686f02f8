package stats_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equipviz/equipviz/pkg/entities"
	"github.com/equipviz/equipviz/pkg/stats"
	"github.com/equipviz/equipviz/pkg/table"
)

func parse(t *testing.T, input string) *table.ParsedTable {
	t.Helper()

	parsed, err := table.Parse([]byte(input), table.Options{Mode: table.Lenient})
	require.Nil(t, err)

	return parsed
}

func TestAggregateThreeRowTable(t *testing.T) {
	result := stats.Aggregate(parse(t, "Equipment Name,Type,Flowrate,Pressure,Temperature\n"+
		"Pump1,Pump,10.0,5.0,300.0\n"+
		"Valve1,Valve,0.0,2.0,290.0\n"+
		"Pump2,Pump,8.0,4.5,310.0\n"))

	assert.Equal(t, 3, result.TotalCount)
	require.NotNil(t, result.AverageFlowrate)
	require.NotNil(t, result.AveragePressure)
	require.NotNil(t, result.AverageTemperature)
	assert.InDelta(t, 6.0, *result.AverageFlowrate, 1e-9)
	assert.InDelta(t, 3.8333, *result.AveragePressure, 1e-3)
	assert.InDelta(t, 300.0, *result.AverageTemperature, 1e-9)
	assert.Equal(t, entities.Distribution{{Type: "Pump", Count: 2}, {Type: "Valve", Count: 1}}, result.Distribution)
	require.Len(t, result.Records, 3)
	assert.Equal(t, entities.EquipmentRecord{Name: "Valve1", Type: "Valve", Pressure: 2, Temperature: 290}, result.Records[1])
}

func TestAggregateMissingPressure(t *testing.T) {
	result := stats.Aggregate(parse(t, "Equipment Name,Type,Flowrate,Temperature\n"+
		"Pump1,Pump,10,300\n"+
		"Valve1,Valve,2,290\n"))

	assert.Equal(t, 2, result.TotalCount)
	assert.Nil(t, result.AveragePressure)
	require.NotNil(t, result.AverageFlowrate)
	assert.InDelta(t, 6.0, *result.AverageFlowrate, 1e-9)
	require.NotNil(t, result.AverageTemperature)
	assert.InDelta(t, 295.0, *result.AverageTemperature, 1e-9)
	assert.Equal(t, 2, result.Distribution.Total())
	assert.Empty(t, result.Records)
	assert.NotNil(t, result.Records)
}

func TestAggregateWithoutTypeColumn(t *testing.T) {
	result := stats.Aggregate(parse(t, "Flowrate\n1\n3\n"))

	assert.Equal(t, 2, result.TotalCount)
	assert.Empty(t, result.Distribution)
	assert.NotNil(t, result.Distribution)
	require.NotNil(t, result.AverageFlowrate)
	assert.InDelta(t, 2.0, *result.AverageFlowrate, 1e-9)
}

func TestAggregateEmptyTable(t *testing.T) {
	result := stats.Aggregate(parse(t, "Equipment Name,Type,Flowrate,Pressure,Temperature\n"))

	assert.Equal(t, 0, result.TotalCount)
	assert.Nil(t, result.AverageFlowrate)
	assert.Nil(t, result.AveragePressure)
	assert.Nil(t, result.AverageTemperature)
	assert.Empty(t, result.Distribution)
	assert.Empty(t, result.Records)
}

func TestAggregateCountInvariants(t *testing.T) {
	types := []string{"Pump", "Valve", "Reactor", "Pump", "Compressor", "Valve", "Pump"}

	for n := 0; n <= len(types); n++ {
		t.Run(fmt.Sprintf("%d rows", n), func(t *testing.T) {
			var b strings.Builder
			b.WriteString("Equipment Name,Type,Flowrate,Pressure,Temperature\n")
			for i := 0; i < n; i++ {
				fmt.Fprintf(&b, "E%d,%s,%d,%d,%d\n", i, types[i], i, i*2, 300+i)
			}

			parsed := parse(t, b.String())
			result := stats.Aggregate(parsed)

			assert.Equal(t, len(parsed.Rows), result.TotalCount)
			assert.Equal(t, result.TotalCount, result.Distribution.Total())
			assert.Len(t, result.Records, result.TotalCount)
			assert.Equal(t, result, stats.Aggregate(parsed))
		})
	}
}
