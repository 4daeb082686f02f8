package entities

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

type TypeCount struct {
	Type  string
	Count int
}

// Distribution counts rows per equipment type. Entries keep the order in which a
// type was first seen, and that order survives a JSON round trip.
type Distribution []TypeCount

func (d Distribution) Total() int {
	total := 0
	for _, entry := range d {
		total += entry.Count
	}

	return total
}

func (d Distribution) Count(equipmentType string) int {
	for _, entry := range d {
		if entry.Type == equipmentType {
			return entry.Count
		}
	}

	return 0
}

func (d Distribution) AsMap() map[string]int {
	m := make(map[string]int, len(d))
	for _, entry := range d {
		m[entry.Type] = entry.Count
	}

	return m
}

func (d Distribution) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')
	for i, entry := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to encode equipment type %q: %w", entry.Type, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(entry.Count))
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func (d *Distribution) UnmarshalJSON(b []byte) error {
	if !gjson.ValidBytes(b) {
		return errors.New("invalid distribution json")
	}

	result := gjson.ParseBytes(b)
	if result.Type == gjson.Null {
		*d = nil
		return nil
	}
	if !result.IsObject() {
		return fmt.Errorf("distribution must be an object, got %s", result.Type)
	}

	out := make(Distribution, 0)
	var err error
	result.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.Number {
			err = fmt.Errorf("count for %q must be a number, got %s", key.String(), value.Raw)
			return false
		}
		out = append(out, TypeCount{Type: key.String(), Count: int(value.Int())})
		return true
	})
	if err != nil {
		return err
	}

	*d = out

	return nil
}
