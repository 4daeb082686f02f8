package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleCollationSQL(t *testing.T) {
	scenarios := []struct {
		dialect  string
		contains string
	}{
		{dialect: "mysql", contains: "utf8mb4_bin"},
		{dialect: "sqlserver", contains: "_CS_AS"},
		{dialect: "sqlite"},
		{dialect: "postgres"},
	}

	for _, scenario := range scenarios {
		scenario := scenario
		t.Run(scenario.dialect, func(t *testing.T) {
			statement := titleCollationSQL(scenario.dialect)
			if scenario.contains == "" {
				assert.Empty(t, statement)
				return
			}
			assert.Contains(t, statement, "datasets")
			assert.Contains(t, statement, "title")
			assert.Contains(t, statement, scenario.contains)
		})
	}
}
