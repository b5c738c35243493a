package model

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"testing"
)

func TestPreprocessEmptyGrid(t *testing.T) {
	out := Preprocess(make([]float64, InputSize))
	if len(out) != InputSize {
		t.Fatalf("expected %d values, got %d", InputSize, len(out))
	}
	for i, v := range out {
		if v != 0 {
			t.Fatalf("out[%d]=%f, want 0", i, v)
		}
	}
}

func TestPreprocessCentersOnLowSide(t *testing.T) {
	g := make([]float64, InputSize)
	// 2 rows x 3 cols in the top-left corner
	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			g[r*GridSize+c] = 50
		}
	}
	g[0] = 100

	out := Preprocess(g)
	// offsets (20-2)/2=9 and (20-3)/2=8
	if out[9*GridSize+8] != 1 {
		t.Fatalf("peak not at (9,8): %f", out[9*GridSize+8])
	}
	if out[10*GridSize+10] != 0.5 {
		t.Fatalf("expected 0.5 at (10,10), got %f", out[10*GridSize+10])
	}
	if out[8*GridSize+8] != 0 || out[9*GridSize+11] != 0 {
		t.Fatalf("values leaked outside the centered box")
	}
}

func TestPreprocessSinglePixel(t *testing.T) {
	g := make([]float64, InputSize)
	g[19*GridSize+19] = 3
	out := Preprocess(g)
	if out[9*GridSize+9] != 1 {
		t.Fatalf("expected single pixel at (9,9), got %f", out[9*GridSize+9])
	}
}

func TestPreprocessRangeAndIdempotence(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	for trial := 0; trial < 200; trial++ {
		g := make([]float64, InputSize)
		r0, c0 := rng.Intn(GridSize), rng.Intn(GridSize)
		r1, c1 := r0+rng.Intn(GridSize-r0), c0+rng.Intn(GridSize-c0)
		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				if rng.Float64() < 0.6 {
					g[r*GridSize+c] = float64(rng.Intn(256))
				}
			}
		}
		orig := append([]float64(nil), g...)

		once := Preprocess(g)
		for i, v := range once {
			if v < 0 || v > 1 {
				t.Fatalf("trial %d: out[%d]=%f outside [0,1]", trial, i, v)
			}
		}
		twice := Preprocess(once)
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("trial %d: preprocessing is not idempotent", trial)
		}
		if !reflect.DeepEqual(orig, g) {
			t.Fatalf("trial %d: input was modified", trial)
		}
	}
}

func TestGridUnmarshalFlatAndNested(t *testing.T) {
	var flat Grid
	if err := json.Unmarshal([]byte("[1, 2, 3]"), &flat); err != nil {
		t.Fatalf("flat: %v", err)
	}
	if !reflect.DeepEqual([]float64(flat), []float64{1, 2, 3}) {
		t.Fatalf("flat decoded to %v", flat)
	}

	rows := make([][]float64, GridSize)
	for r := range rows {
		rows[r] = make([]float64, GridSize)
		rows[r][r] = float64(r)
	}
	raw, _ := json.Marshal(rows)
	var nested Grid
	if err := json.Unmarshal(raw, &nested); err != nil {
		t.Fatalf("nested: %v", err)
	}
	if len(nested) != InputSize || nested[5*GridSize+5] != 5 {
		t.Fatalf("nested grid not flattened row-major")
	}

	var bad Grid
	if err := json.Unmarshal([]byte("[[1, 2], [3]]"), &bad); err == nil {
		t.Fatalf("expected error for ragged rows")
	}
}
