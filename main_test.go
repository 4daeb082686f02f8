package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestSummarizeCommand(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plant.csv")
	require.NoError(t, os.WriteFile(file, []byte(
		"Equipment Name,Type,Flowrate,Pressure,Temperature\nP1,Pump,10,5,300\nV1,Valve,2,1,290\n",
	), 0o600))

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"summarize", file})
	require.NoError(t, cmd.Execute())

	summary := gjson.ParseBytes(out.Bytes())
	assert.Equal(t, int64(2), summary.Get("total_count").Int())
	assert.InDelta(t, 6.0, summary.Get("average_flowrate").Float(), 1e-9)
	assert.Equal(t, int64(1), summary.Get("equipment_type_distribution.Pump").Int())
	assert.Equal(t, int64(1), summary.Get("equipment_type_distribution.Valve").Int())
}

func TestSummarizeRejectsUnknownExtension(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plant.xlsx")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"summarize", file})
	assert.ErrorContains(t, cmd.Execute(), "INVALID_FILE_TYPE")
}
