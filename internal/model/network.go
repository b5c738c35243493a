package model

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Network is a 400-hidden-10 sigmoid perceptron trained online, one sample
// per gradient step. It does no locking: callers that share a Network
// between goroutines must serialize Train against Predict.
type Network struct {
	params *Params
	rng    *rand.Rand
	lr     float64
	epochs int
}

var _ Classifier = (*Network)(nil)

// New builds a freshly initialized network. rng seeds the weights and is
// kept for shuffling during training.
func New(hidden int, rng *rand.Rand) *Network {
	return FromParams(NewParams(hidden, rng), rng)
}

// FromParams wraps existing parameters, typically ones restored from disk.
func FromParams(p *Params, rng *rand.Rand) *Network {
	return &Network{
		params: p,
		rng:    rng,
		lr:     LearningRate,
		epochs: EpochsPerBatch,
	}
}

// Params exposes the live parameters. They are mutated by Train.
func (n *Network) Params() *Params { return n.params }

// HiddenSize reports the number of hidden neurons.
func (n *Network) HiddenSize() int { return n.params.HiddenSize() }

// Train runs EpochsPerBatch passes of backpropagation over samples, each
// pass in a fresh random order. Every sample is validated before the first
// update, so a rejected batch leaves the parameters untouched.
func (n *Network) Train(samples []Sample) error {
	if err := validate(samples); err != nil {
		return err
	}

	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}
	for epoch := 0; epoch < n.epochs; epoch++ {
		n.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		for _, idx := range order {
			n.step(samples[idx])
		}
	}
	return nil
}

func (n *Network) step(s Sample) {
	p := n.params
	y0 := mat.NewVecDense(InputSize, Preprocess(s.Y0))
	act := p.Forward(y0)

	outErr := oneHot(s.Label)
	outErr.SubVec(outErr, act.Y2)

	hidErr := mat.NewVecDense(p.HiddenSize(), nil)
	hidErr.MulVec(p.W2.T(), outErr)
	for i := 0; i < hidErr.Len(); i++ {
		hidErr.SetVec(i, hidErr.AtVec(i)*sigmoidPrime(act.Sum1.AtVec(i)))
	}

	// The error is target minus output, so adding the scaled outer
	// products moves the output toward the target.
	p.W1.RankOne(p.W1, n.lr, hidErr, y0)
	p.W2.RankOne(p.W2, n.lr, outErr, act.Y1)
	p.B1.AddScaledVec(p.B1, n.lr, hidErr)
	p.B2.AddScaledVec(p.B2, n.lr, outErr)
}

// Predict classifies grid. Ties between output scores resolve to the
// lowest digit.
func (n *Network) Predict(grid []float64) (Prediction, error) {
	if len(grid) != InputSize {
		return Prediction{}, fmt.Errorf("%w: got %d", ErrGridSize, len(grid))
	}
	y2 := n.params.Forward(mat.NewVecDense(InputSize, Preprocess(grid))).Y2
	scores := make([]float64, NumDigits)
	copy(scores, y2.RawVector().Data)

	digit := floats.MaxIdx(scores)
	return Prediction{
		Digit:      digit,
		Confidence: scores[digit],
		Scores:     scores,
	}, nil
}

// Loss is the mean over samples of the summed squared output error. It
// does not modify the network.
func (n *Network) Loss(samples []Sample) (float64, error) {
	if err := validate(samples); err != nil {
		return 0, err
	}
	total := 0.0
	for _, s := range samples {
		y2 := n.params.Forward(mat.NewVecDense(InputSize, Preprocess(s.Y0))).Y2
		diff := oneHot(s.Label)
		diff.SubVec(diff, y2)
		total += mat.Dot(diff, diff)
	}
	return total / float64(len(samples)), nil
}

func validate(samples []Sample) error {
	if len(samples) == 0 {
		return ErrEmptyBatch
	}
	for i, s := range samples {
		if len(s.Y0) != InputSize {
			return fmt.Errorf("sample %d: %w: got %d", i, ErrGridSize, len(s.Y0))
		}
		if s.Label < 0 || s.Label >= NumDigits {
			return fmt.Errorf("sample %d: %w: %d", i, ErrLabelRange, s.Label)
		}
	}
	return nil
}

func oneHot(label int) *mat.VecDense {
	v := mat.NewVecDense(NumDigits, nil)
	v.SetVec(label, 1)
	return v
}
