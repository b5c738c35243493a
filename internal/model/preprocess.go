package model

import "gonum.org/v1/gonum/floats"

// Preprocess crops grid to the bounding box of its positive pixels,
// re-centers the crop on an empty GridSize×GridSize canvas and scales the
// result by its maximum. An image with no positive pixel yields all zeros.
// grid must hold InputSize row-major pixels; it is not modified.
func Preprocess(grid []float64) []float64 {
	out := make([]float64, InputSize)

	rmin, rmax, cmin, cmax := GridSize, -1, GridSize, -1
	for r := 0; r < GridSize; r++ {
		for c := 0; c < GridSize; c++ {
			if grid[r*GridSize+c] <= 0 {
				continue
			}
			rmin = min(rmin, r)
			rmax = max(rmax, r)
			cmin = min(cmin, c)
			cmax = max(cmax, c)
		}
	}
	if rmax < 0 {
		return out
	}

	h := rmax - rmin + 1
	w := cmax - cmin + 1
	offY := (GridSize - h) / 2
	offX := (GridSize - w) / 2
	for r := 0; r < h; r++ {
		src := grid[(rmin+r)*GridSize+cmin : (rmin+r)*GridSize+cmin+w]
		copy(out[(offY+r)*GridSize+offX:], src)
	}

	// Divide rather than multiply by 1/peak so the peak lands on exactly 1
	// and a second pass is a no-op.
	if peak := floats.Max(out); peak > 0 {
		for i := range out {
			out[i] /= peak
		}
	}
	return out
}
