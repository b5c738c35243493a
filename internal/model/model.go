package model

import "errors"

const (
	// GridSize is the side length of the square input image.
	GridSize = 20
	// InputSize is the flattened input dimension.
	InputSize = GridSize * GridSize
	// NumDigits is the number of output classes.
	NumDigits = 10

	// LearningRate is the step size used by Train.
	LearningRate = 0.1
	// EpochsPerBatch is how many shuffled passes Train makes over a batch.
	EpochsPerBatch = 3
)

var (
	// ErrEmptyBatch is returned when Train or Loss receive no samples.
	ErrEmptyBatch = errors.New("model: empty training batch")
	// ErrLabelRange is returned for labels outside [0, NumDigits).
	ErrLabelRange = errors.New("model: label out of range")
	// ErrGridSize is returned when an image does not hold InputSize pixels.
	ErrGridSize = errors.New("model: grid must hold 400 pixels")
)

// Sample is one labeled image submitted for training.
type Sample struct {
	Y0    Grid `json:"y0"`
	Label int  `json:"label"`
}

// Prediction is the result of classifying one image.
type Prediction struct {
	Digit      int       `json:"digit"`
	Confidence float64   `json:"confidence"`
	Scores     []float64 `json:"all_scores"`
}

// Classifier is the surface the serving layer needs from a network.
type Classifier interface {
	Train(samples []Sample) error
	Predict(grid []float64) (Prediction, error)
}
