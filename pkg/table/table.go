// Package table turns uploaded delimited text into fixed-shape equipment rows.
package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/iancoleman/strcase"

	"github.com/equipviz/equipviz/pkg/contract"
)

const (
	ColumnName        = "Equipment Name"
	ColumnType        = "Type"
	ColumnFlowrate    = "Flowrate"
	ColumnPressure    = "Pressure"
	ColumnTemperature = "Temperature"
)

// RequiredColumns lists every column needed for row-level detail, in report order.
var RequiredColumns = []string{ColumnName, ColumnType, ColumnFlowrate, ColumnPressure, ColumnTemperature}

type Mode int

const (
	// Lenient accepts tables with missing columns; the aggregate degrades instead.
	Lenient Mode = iota
	// Strict rejects a table unless every required column is present.
	Strict
)

type Options struct {
	Mode      Mode
	Delimiter rune
}

// TableShape records which of the required columns a table carries.
type TableShape struct {
	Name        bool
	Type        bool
	Flowrate    bool
	Pressure    bool
	Temperature bool
}

func (s TableShape) Complete() bool {
	return s.Name && s.Type && s.Flowrate && s.Pressure && s.Temperature
}

// Missing returns the absent required columns in report order.
func (s TableShape) Missing() []string {
	present := []bool{s.Name, s.Type, s.Flowrate, s.Pressure, s.Temperature}
	missing := make([]string, 0)
	for i, ok := range present {
		if !ok {
			missing = append(missing, RequiredColumns[i])
		}
	}

	return missing
}

// Row holds one data line. Fields for columns absent from the table's shape are zero.
type Row struct {
	Name        string
	Type        string
	Flowrate    float64
	Pressure    float64
	Temperature float64
}

type ParsedTable struct {
	Shape TableShape
	Rows  []Row
}

var delimiters = map[string]rune{
	".csv": ',',
	".tsv": '\t',
}

// DelimiterFor returns the delimiter for a recognised table file name.
func DelimiterFor(filename string) (rune, bool) {
	delimiter, ok := delimiters[strings.ToLower(filepath.Ext(filename))]
	return delimiter, ok
}

var bom = []byte{0xEF, 0xBB, 0xBF}

func normalizeHeader(header string) string {
	return strcase.ToSnake(strings.TrimSpace(header))
}

// columnIndex maps each required column to its position in the header, or -1.
type columnIndex struct {
	name, typ, flowrate, pressure, temperature int
}

func (c columnIndex) shape() TableShape {
	return TableShape{
		Name:        c.name >= 0,
		Type:        c.typ >= 0,
		Flowrate:    c.flowrate >= 0,
		Pressure:    c.pressure >= 0,
		Temperature: c.temperature >= 0,
	}
}

func indexHeader(header []string) (columnIndex, *contract.Error) {
	index := columnIndex{-1, -1, -1, -1, -1}
	targets := map[string]*int{
		normalizeHeader(ColumnName):        &index.name,
		normalizeHeader(ColumnType):        &index.typ,
		normalizeHeader(ColumnFlowrate):    &index.flowrate,
		normalizeHeader(ColumnPressure):    &index.pressure,
		normalizeHeader(ColumnTemperature): &index.temperature,
	}

	for position, raw := range header {
		target, ok := targets[normalizeHeader(raw)]
		if !ok {
			continue
		}
		if *target >= 0 {
			return index, contract.NewError(
				contract.ErrorCode_MALFORMED_INPUT,
				fmt.Sprintf("Column %q appears more than once in the header", strings.TrimSpace(raw)),
			)
		}
		*target = position
	}

	return index, nil
}

// Parse decodes raw delimited text with a header row.
//
// Blank or non-numeric cells in a present required column reject the whole table.
func Parse(raw []byte, opts Options) (*ParsedTable, *contract.Error) {
	raw = bytes.TrimPrefix(raw, bom)
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, contract.NewError(contract.ErrorCode_MALFORMED_INPUT, "The uploaded file is empty")
	}
	if !utf8.Valid(raw) {
		return nil, contract.NewError(contract.ErrorCode_MALFORMED_INPUT, "The uploaded file is not valid UTF-8 text")
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.LazyQuotes = true
	// Trimming would swallow empty fields when the delimiter is itself white space.
	reader.TrimLeadingSpace = !unicode.IsSpace(reader.Comma)

	records, err := reader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, contract.NewErrorWith(
				contract.ErrorCode_MALFORMED_INPUT,
				fmt.Sprintf("Could not parse table: %v", parseErr),
				err,
			)
		}
		return nil, contract.NewErrorWith(contract.ErrorCode_MALFORMED_INPUT, "Could not parse table", err)
	}

	index, cErr := indexHeader(records[0])
	if cErr != nil {
		return nil, cErr
	}

	shape := index.shape()
	if opts.Mode == Strict && !shape.Complete() {
		return nil, contract.NewMissingColumnsError(shape.Missing())
	}

	rows := make([]Row, 0, len(records)-1)
	for i, record := range records[1:] {
		row, cErr := parseRow(i+1, record, index)
		if cErr != nil {
			return nil, cErr
		}
		rows = append(rows, row)
	}

	return &ParsedTable{Shape: shape, Rows: rows}, nil
}

func parseRow(line int, record []string, index columnIndex) (Row, *contract.Error) {
	var row Row
	var cErr *contract.Error

	if index.name >= 0 {
		if row.Name, cErr = textCell(line, record, index.name, ColumnName); cErr != nil {
			return row, cErr
		}
	}
	if index.typ >= 0 {
		if row.Type, cErr = textCell(line, record, index.typ, ColumnType); cErr != nil {
			return row, cErr
		}
	}
	if index.flowrate >= 0 {
		if row.Flowrate, cErr = numericCell(line, record, index.flowrate, ColumnFlowrate); cErr != nil {
			return row, cErr
		}
	}
	if index.pressure >= 0 {
		if row.Pressure, cErr = numericCell(line, record, index.pressure, ColumnPressure); cErr != nil {
			return row, cErr
		}
	}
	if index.temperature >= 0 {
		if row.Temperature, cErr = numericCell(line, record, index.temperature, ColumnTemperature); cErr != nil {
			return row, cErr
		}
	}

	return row, nil
}

func textCell(line int, record []string, position int, column string) (string, *contract.Error) {
	value := strings.TrimSpace(record[position])
	if value == "" {
		return "", contract.NewError(
			contract.ErrorCode_MALFORMED_INPUT,
			fmt.Sprintf("Row %d: column %q is blank", line, column),
		)
	}

	return value, nil
}

func numericCell(line int, record []string, position int, column string) (float64, *contract.Error) {
	value, cErr := textCell(line, record, position, column)
	if cErr != nil {
		return 0, cErr
	}

	number, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(number) || math.IsInf(number, 0) {
		return 0, contract.NewError(
			contract.ErrorCode_MALFORMED_INPUT,
			fmt.Sprintf("Row %d: column %q has invalid number %q", line, column, value),
		)
	}

	return number, nil
}
