package dataset

import (
	"context"
	"fmt"
	"math/rand"

	"digitocr/internal/model"
)

// LoadAll reads every source in order and concatenates their samples.
func LoadAll(ctx context.Context, sources []Source) ([]model.Sample, error) {
	var all []model.Sample
	for _, src := range sources {
		var (
			samples []model.Sample
			err     error
		)
		switch src.Kind {
		case KindJSONL:
			samples, err = ReadJSONL(src.Path)
		case KindShard:
			samples, err = ReadShard(ctx, src.Path)
		default:
			err = fmt.Errorf("unknown source kind %s", src.Kind)
		}
		if err != nil {
			return nil, err
		}
		all = append(all, samples...)
	}
	return all, nil
}

// Batches shuffles a copy of samples with rng and cuts it into batches of
// at most size. The input slice is left in its original order.
func Batches(samples []model.Sample, size int, rng *rand.Rand) [][]model.Sample {
	if size <= 0 || len(samples) == 0 {
		return nil
	}
	shuffled := append([]model.Sample(nil), samples...)
	if rng != nil {
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
	}
	out := make([][]model.Sample, 0, (len(shuffled)+size-1)/size)
	for start := 0; start < len(shuffled); start += size {
		end := min(start+size, len(shuffled))
		out = append(out, shuffled[start:end])
	}
	return out
}
