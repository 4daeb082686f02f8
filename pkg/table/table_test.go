package table_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equipviz/equipviz/pkg/contract"
	"github.com/equipviz/equipviz/pkg/table"
)

const sample = "Equipment Name,Type,Flowrate,Pressure,Temperature\n" +
	"Pump1,Pump,10.0,5.0,300.0\n" +
	"Valve1,Valve,0.0,2.0,290.0\n" +
	"Pump2,Pump,8.0,4.5,310.0\n"

func TestParseCompleteTable(t *testing.T) {
	parsed, err := table.Parse([]byte(sample), table.Options{})
	require.Nil(t, err)

	assert.True(t, parsed.Shape.Complete())
	assert.Empty(t, parsed.Shape.Missing())

	expected := []table.Row{
		{Name: "Pump1", Type: "Pump", Flowrate: 10, Pressure: 5, Temperature: 300},
		{Name: "Valve1", Type: "Valve", Flowrate: 0, Pressure: 2, Temperature: 290},
		{Name: "Pump2", Type: "Pump", Flowrate: 8, Pressure: 4.5, Temperature: 310},
	}
	if diff := cmp.Diff(expected, parsed.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	first, err := table.Parse([]byte(sample), table.Options{})
	require.Nil(t, err)
	second, err := table.Parse([]byte(sample), table.Options{})
	require.Nil(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("parse is not idempotent (-first +second):\n%s", diff)
	}
}

func TestParseHeaderVariants(t *testing.T) {
	scenarios := []struct {
		name  string
		input string
		opts  table.Options
	}{
		{
			name:  "byte order mark",
			input: "\xEF\xBB\xBFEquipment Name,Type,Flowrate,Pressure,Temperature\nP,Pump,1,2,3\n",
		},
		{
			name:  "snake case headers",
			input: "equipment_name,type,flowrate,pressure,temperature\nP,Pump,1,2,3\n",
		},
		{
			name:  "padded headers and reordered columns",
			input: " Type , Temperature,Equipment Name,Pressure,Flowrate\nPump,3,P,2,1\n",
		},
		{
			name:  "tab separated",
			input: "Equipment Name\tType\tFlowrate\tPressure\tTemperature\nP\tPump\t1\t2\t3\n",
			opts:  table.Options{Delimiter: '\t'},
		},
		{
			name:  "extra columns are ignored",
			input: "Equipment Name,Type,Flowrate,Pressure,Temperature,Vendor\nP,Pump,1,2,3,Acme\n",
		},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			parsed, err := table.Parse([]byte(scenario.input), scenario.opts)
			require.Nil(t, err)
			require.True(t, parsed.Shape.Complete())
			require.Len(t, parsed.Rows, 1)
			assert.Equal(t, table.Row{Name: "P", Type: "Pump", Flowrate: 1, Pressure: 2, Temperature: 3}, parsed.Rows[0])
		})
	}
}

func TestParseMissingColumns(t *testing.T) {
	input := []byte("Equipment Name,Type,Flowrate\nP,Pump,1\n")

	t.Run("lenient degrades", func(t *testing.T) {
		parsed, err := table.Parse(input, table.Options{Mode: table.Lenient})
		require.Nil(t, err)
		assert.False(t, parsed.Shape.Complete())
		assert.Equal(t, []string{table.ColumnPressure, table.ColumnTemperature}, parsed.Shape.Missing())
		assert.Equal(t, table.Row{Name: "P", Type: "Pump", Flowrate: 1}, parsed.Rows[0])
	})

	t.Run("strict lists every missing column", func(t *testing.T) {
		_, err := table.Parse(input, table.Options{Mode: table.Strict})
		require.NotNil(t, err)
		assert.Equal(t, contract.ErrorCode_MISSING_COLUMNS, err.Code)
		assert.Equal(t, []string{table.ColumnPressure, table.ColumnTemperature}, err.MissingColumns)
	})
}

func TestParseHeaderOnly(t *testing.T) {
	parsed, err := table.Parse([]byte("Equipment Name,Type,Flowrate,Pressure,Temperature\n"), table.Options{Mode: table.Strict})
	require.Nil(t, err)
	assert.Empty(t, parsed.Rows)
}

func TestParseMalformedInput(t *testing.T) {
	scenarios := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "whitespace only", input: "  \n\n"},
		{name: "invalid utf8", input: "Equipment Name,Type\n\xff\xfe,Pump\n"},
		{name: "ragged row", input: "Equipment Name,Type,Flowrate\nP,Pump\n"},
		{name: "non numeric cell", input: "Equipment Name,Type,Flowrate\nP,Pump,fast\n"},
		{name: "blank numeric cell", input: "Equipment Name,Type,Flowrate\nP,Pump, \n"},
		{name: "not a number literal", input: "Equipment Name,Type,Flowrate\nP,Pump,NaN\n"},
		{name: "blank type", input: "Equipment Name,Type,Flowrate\nP,,1\n"},
		{name: "duplicate column", input: "Type,type\nPump,Valve\n"},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			_, err := table.Parse([]byte(scenario.input), table.Options{})
			require.NotNil(t, err)
			assert.Equal(t, contract.ErrorCode_MALFORMED_INPUT, err.Code)
		})
	}
}

func TestDelimiterFor(t *testing.T) {
	delimiter, ok := table.DelimiterFor("plant.CSV")
	assert.True(t, ok)
	assert.Equal(t, ',', delimiter)

	delimiter, ok = table.DelimiterFor("plant.tsv")
	assert.True(t, ok)
	assert.Equal(t, '\t', delimiter)

	_, ok = table.DelimiterFor("plant.xlsx")
	assert.False(t, ok)

	_, ok = table.DelimiterFor("csv")
	assert.False(t, ok)
}
