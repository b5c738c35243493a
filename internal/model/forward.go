package model

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const sigmoidClip = 500

// Sigmoid is the logistic function with its input clipped to ±500 so the
// exponential cannot overflow.
func Sigmoid(z float64) float64 {
	z = math.Max(-sigmoidClip, math.Min(sigmoidClip, z))
	return 1 / (1 + math.Exp(-z))
}

func sigmoidPrime(z float64) float64 {
	s := Sigmoid(z)
	return s * (1 - s)
}

// Activations are the intermediate values of one forward pass.
type Activations struct {
	Sum1 *mat.VecDense // hidden pre-activation
	Y1   *mat.VecDense // hidden activation
	Y2   *mat.VecDense // output activation
}

// Forward runs y0 through both layers. Biases are added to the column
// vector produced by each matrix-vector product.
func (p *Params) Forward(y0 *mat.VecDense) Activations {
	sum1 := mat.NewVecDense(p.HiddenSize(), nil)
	sum1.MulVec(p.W1, y0)
	sum1.AddVec(sum1, p.B1)
	y1 := applySigmoid(sum1)

	y2 := mat.NewVecDense(NumDigits, nil)
	y2.MulVec(p.W2, y1)
	y2.AddVec(y2, p.B2)
	y2 = applySigmoid(y2)

	return Activations{Sum1: sum1, Y1: y1, Y2: y2}
}

func applySigmoid(v *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(v.Len(), nil)
	for i := 0; i < v.Len(); i++ {
		out.SetVec(i, Sigmoid(v.AtVec(i)))
	}
	return out
}
