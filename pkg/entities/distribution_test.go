package entities_test

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equipviz/equipviz/pkg/entities"
)

func TestDistributionKeepsFirstOccurrenceOrder(t *testing.T) {
	distribution := entities.Distribution{
		{Type: "Valve", Count: 1},
		{Type: "Pump", Count: 2},
		{Type: "Heat \"X\" Exchanger", Count: 4},
	}

	b, err := json.Marshal(distribution)
	require.NoError(t, err)
	assert.Equal(t, `{"Valve":1,"Pump":2,"Heat \"X\" Exchanger":4}`, string(b))

	var decoded entities.Distribution
	require.NoError(t, json.Unmarshal(b, &decoded))

	if diff := cmp.Diff(distribution, decoded); diff != "" {
		t.Errorf("distribution mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 7, decoded.Total())
	assert.Equal(t, 2, decoded.Count("Pump"))
	assert.Equal(t, 0, decoded.Count("Reactor"))
}

func TestDistributionRejectsNonObjects(t *testing.T) {
	scenarios := []struct {
		name  string
		input string
	}{
		{name: "array", input: `[1,2]`},
		{name: "string count", input: `{"Pump":"two"}`},
		{name: "broken json", input: `{"Pump":`},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			var d entities.Distribution
			require.Error(t, d.UnmarshalJSON([]byte(scenario.input)))
		})
	}
}

func TestEmptyDatasetRendersEmptyCollections(t *testing.T) {
	dataset := entities.Dataset{ID: 1, Title: "empty"}

	b, err := json.Marshal(dataset.ToDetail())
	require.NoError(t, err)

	assert.Contains(t, string(b), `"equipment_type_distribution":{}`)
	assert.Contains(t, string(b), `"equipment_list":[]`)
	assert.Contains(t, string(b), `"average_pressure":null`)
}
