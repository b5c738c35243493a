package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

const biasInitRange = 0.1

// Params holds the weights and biases of the two fully connected layers.
// W1 is hidden×InputSize, W2 is NumDigits×hidden, B1 has hidden entries
// and B2 has NumDigits entries.
type Params struct {
	W1 *mat.Dense
	W2 *mat.Dense
	B1 *mat.VecDense
	B2 *mat.VecDense
}

// NewParams draws Xavier/Glorot uniform weights and small uniform biases.
// hidden must be positive.
func NewParams(hidden int, rng *rand.Rand) *Params {
	if hidden <= 0 {
		panic(fmt.Sprintf("model: hidden size must be > 0 (got %d)", hidden))
	}
	e1 := math.Sqrt(6.0 / float64(InputSize+hidden))
	e2 := math.Sqrt(6.0 / float64(hidden+NumDigits))
	return &Params{
		W1: mat.NewDense(hidden, InputSize, uniform(rng, hidden*InputSize, e1)),
		W2: mat.NewDense(NumDigits, hidden, uniform(rng, NumDigits*hidden, e2)),
		B1: mat.NewVecDense(hidden, uniform(rng, hidden, biasInitRange)),
		B2: mat.NewVecDense(NumDigits, uniform(rng, NumDigits, biasInitRange)),
	}
}

// NewParamsFrom assembles Params from existing matrices after checking
// that their shapes agree with each other and with the fixed input and
// output sizes.
func NewParamsFrom(w1, w2 *mat.Dense, b1, b2 *mat.VecDense) (*Params, error) {
	if w1 == nil || w2 == nil || b1 == nil || b2 == nil {
		return nil, fmt.Errorf("model: missing parameter matrix")
	}
	hidden, in := w1.Dims()
	if in != InputSize {
		return nil, fmt.Errorf("model: W1 has %d columns, want %d", in, InputSize)
	}
	if r, c := w2.Dims(); r != NumDigits || c != hidden {
		return nil, fmt.Errorf("model: W2 is %dx%d, want %dx%d", r, c, NumDigits, hidden)
	}
	if b1.Len() != hidden {
		return nil, fmt.Errorf("model: b1 has %d entries, want %d", b1.Len(), hidden)
	}
	if b2.Len() != NumDigits {
		return nil, fmt.Errorf("model: b2 has %d entries, want %d", b2.Len(), NumDigits)
	}
	return &Params{W1: w1, W2: w2, B1: b1, B2: b2}, nil
}

// HiddenSize reports the number of hidden neurons.
func (p *Params) HiddenSize() int {
	r, _ := p.W1.Dims()
	return r
}

// Clone returns a deep copy.
func (p *Params) Clone() *Params {
	return &Params{
		W1: mat.DenseCopyOf(p.W1),
		W2: mat.DenseCopyOf(p.W2),
		B1: mat.VecDenseCopyOf(p.B1),
		B2: mat.VecDenseCopyOf(p.B2),
	}
}

func uniform(rng *rand.Rand, n int, bound float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * bound
	}
	return out
}
