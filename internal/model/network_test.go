package model

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// strokeGrid draws a rough "3" in the upper-left part of the frame.
func strokeGrid() []float64 {
	g := make([]float64, InputSize)
	set := func(r, c int, v float64) { g[r*GridSize+c] = v }
	for c := 1; c <= 7; c++ {
		set(1, c, 255)
		set(5, c, 200)
		set(9, c, 255)
	}
	for r := 1; r <= 9; r++ {
		set(r, 7, 180)
	}
	return g
}

func TestNewParamsShapesAndBounds(t *testing.T) {
	p := NewParams(15, rand.New(rand.NewSource(1)))
	if r, c := p.W1.Dims(); r != 15 || c != InputSize {
		t.Fatalf("W1 is %dx%d", r, c)
	}
	if r, c := p.W2.Dims(); r != NumDigits || c != 15 {
		t.Fatalf("W2 is %dx%d", r, c)
	}
	if p.B1.Len() != 15 || p.B2.Len() != NumDigits {
		t.Fatalf("bias lengths %d, %d", p.B1.Len(), p.B2.Len())
	}

	e1 := math.Sqrt(6.0 / float64(InputSize+15))
	e2 := math.Sqrt(6.0 / float64(15+NumDigits))
	checkBound(t, "W1", p.W1.RawMatrix().Data, e1)
	checkBound(t, "W2", p.W2.RawMatrix().Data, e2)
	checkBound(t, "b1", p.B1.RawVector().Data, biasInitRange)
	checkBound(t, "b2", p.B2.RawVector().Data, biasInitRange)
}

func checkBound(t *testing.T, name string, vals []float64, bound float64) {
	t.Helper()
	for i, v := range vals {
		if math.Abs(v) > bound {
			t.Fatalf("%s[%d]=%f outside ±%f", name, i, v, bound)
		}
	}
}

func TestNewParamsSeeded(t *testing.T) {
	a := NewParams(8, rand.New(rand.NewSource(42)))
	b := NewParams(8, rand.New(rand.NewSource(42)))
	if !mat.Equal(a.W1, b.W1) || !mat.Equal(a.W2, b.W2) {
		t.Fatalf("same seed produced different weights")
	}
}

func TestNewParamsFromRejectsMismatch(t *testing.T) {
	p := NewParams(4, rand.New(rand.NewSource(1)))
	if _, err := NewParamsFrom(p.W1, p.W2, mat.NewVecDense(3, nil), p.B2); err == nil {
		t.Fatalf("expected error for short b1")
	}
	if _, err := NewParamsFrom(mat.NewDense(4, 399, nil), p.W2, p.B1, p.B2); err == nil {
		t.Fatalf("expected error for wrong input width")
	}
	if _, err := NewParamsFrom(p.W1, p.W2, p.B1, p.B2); err != nil {
		t.Fatalf("NewParamsFrom: %v", err)
	}
}

func TestSigmoidExtremes(t *testing.T) {
	for _, z := range []float64{-1e6, -500, -30, 0, 30, 500, 1e6} {
		s := Sigmoid(z)
		if math.IsNaN(s) || s <= 0 || s > 1 {
			t.Fatalf("Sigmoid(%g)=%g out of range", z, s)
		}
	}
	if Sigmoid(0) != 0.5 {
		t.Fatalf("Sigmoid(0)=%f", Sigmoid(0))
	}
	if Sigmoid(-1e6) != Sigmoid(-500) {
		t.Fatalf("input below -500 was not clipped")
	}
}

func TestTrainRejectsBadBatches(t *testing.T) {
	net := New(6, rand.New(rand.NewSource(3)))
	before := net.Params().Clone()

	if err := net.Train(nil); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
	bad := []Sample{{Y0: strokeGrid(), Label: 2}, {Y0: strokeGrid(), Label: 10}}
	if err := net.Train(bad); !errors.Is(err, ErrLabelRange) {
		t.Fatalf("expected ErrLabelRange, got %v", err)
	}
	if err := net.Train([]Sample{{Y0: make([]float64, 12), Label: 1}}); !errors.Is(err, ErrGridSize) {
		t.Fatalf("expected ErrGridSize, got %v", err)
	}
	if !mat.Equal(before.W1, net.Params().W1) || !mat.Equal(before.B2, net.Params().B2) {
		t.Fatalf("rejected batch modified parameters")
	}
}

func TestTrainIncreasesTargetActivation(t *testing.T) {
	net := New(15, rand.New(rand.NewSource(7)))
	grid := strokeGrid()
	start, err := net.Predict(grid)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	prev := start.Scores[5]
	for i := 0; i < 5; i++ {
		if err := net.Train([]Sample{{Y0: grid, Label: 5}}); err != nil {
			t.Fatalf("Train: %v", err)
		}
		got, _ := net.Predict(grid)
		if got.Scores[5] <= prev {
			t.Fatalf("call %d: score for 5 did not increase (%f -> %f)", i, prev, got.Scores[5])
		}
		prev = got.Scores[5]
	}
}

func TestTrainRepeatedSampleIsLearned(t *testing.T) {
	net := New(15, rand.New(rand.NewSource(11)))
	grid := strokeGrid()
	for i := 0; i < 50; i++ {
		if err := net.Train([]Sample{{Y0: grid, Label: 3}}); err != nil {
			t.Fatalf("Train: %v", err)
		}
	}
	got, err := net.Predict(grid)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got.Digit != 3 {
		t.Fatalf("expected digit 3, got %d (scores %v)", got.Digit, got.Scores)
	}
}

func TestLossDropsWithTraining(t *testing.T) {
	net := New(15, rand.New(rand.NewSource(5)))
	batch := []Sample{{Y0: strokeGrid(), Label: 8}}
	before, err := net.Loss(batch)
	if err != nil {
		t.Fatalf("Loss: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := net.Train(batch); err != nil {
			t.Fatalf("Train: %v", err)
		}
	}
	after, _ := net.Loss(batch)
	if after >= before {
		t.Fatalf("expected loss to decrease; before=%f after=%f", before, after)
	}
}

func TestTrainDeterministicForSeed(t *testing.T) {
	batch := []Sample{
		{Y0: strokeGrid(), Label: 3},
		{Y0: make([]float64, InputSize), Label: 0},
	}
	a := New(10, rand.New(rand.NewSource(99)))
	b := New(10, rand.New(rand.NewSource(99)))
	if err := a.Train(batch); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if err := b.Train(batch); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if !mat.Equal(a.Params().W1, b.Params().W1) {
		t.Fatalf("same seed produced different training runs")
	}
}

func TestPredictTieResolvesToLowestDigit(t *testing.T) {
	hidden := 3
	b2 := mat.NewVecDense(NumDigits, nil)
	b2.SetVec(4, 2)
	b2.SetVec(7, 2)
	p, err := NewParamsFrom(
		mat.NewDense(hidden, InputSize, nil),
		mat.NewDense(NumDigits, hidden, nil),
		mat.NewVecDense(hidden, nil),
		b2,
	)
	if err != nil {
		t.Fatalf("NewParamsFrom: %v", err)
	}
	got, err := FromParams(p, rand.New(rand.NewSource(1))).Predict(strokeGrid())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got.Scores[4] != got.Scores[7] {
		t.Fatalf("expected tied scores, got %v", got.Scores)
	}
	if got.Digit != 4 {
		t.Fatalf("expected tie to resolve to 4, got %d", got.Digit)
	}
}

func TestPredictEmptyGrid(t *testing.T) {
	net := New(15, rand.New(rand.NewSource(2)))
	got, err := net.Predict(make([]float64, InputSize))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got.Digit < 0 || got.Digit >= NumDigits {
		t.Fatalf("digit %d out of range", got.Digit)
	}
	if len(got.Scores) != NumDigits {
		t.Fatalf("expected %d scores, got %d", NumDigits, len(got.Scores))
	}
	for _, s := range got.Scores {
		if s > got.Confidence {
			t.Fatalf("confidence %f is not the max score (%f)", got.Confidence, s)
		}
	}
	if got.Confidence != got.Scores[got.Digit] {
		t.Fatalf("confidence %f != score of digit %f", got.Confidence, got.Scores[got.Digit])
	}
}

func TestPredictRejectsWrongSize(t *testing.T) {
	net := New(4, rand.New(rand.NewSource(2)))
	if _, err := net.Predict(make([]float64, 399)); !errors.Is(err, ErrGridSize) {
		t.Fatalf("expected ErrGridSize, got %v", err)
	}
}
