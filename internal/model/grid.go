package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Grid is a row-major image. In JSON it may be written either flat
// ([400]number) or nested ([20][20]number); both decode to the flat form.
type Grid []float64

// UnmarshalJSON implements json.Unmarshaler.
func (g *Grid) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*g = nil
		return nil
	}

	var flat []float64
	if err := json.Unmarshal(trimmed, &flat); err == nil {
		*g = flat
		return nil
	}

	var rows [][]float64
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return fmt.Errorf("grid: expected flat or nested number array: %w", err)
	}
	out := make([]float64, 0, InputSize)
	for i, row := range rows {
		if len(row) != GridSize {
			return fmt.Errorf("grid: row %d has %d values, want %d", i, len(row), GridSize)
		}
		out = append(out, row...)
	}
	*g = out
	return nil
}
