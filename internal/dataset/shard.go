package dataset

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"digitocr/internal/model"
)

// ErrPendingOverflow indicates too many images or labels are waiting for
// their partner entry.
var ErrPendingOverflow = errors.New("dataset: pending pair buffer exceeded")

const defaultPendingCap = 1024

// ReadShard decodes every image/.cls pair in the tar at path. Entries are
// paired by base name, so "000001.png" goes with "000001.cls". Samples are
// returned in key order.
func ReadShard(ctx context.Context, path string) ([]model.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shard: %w", err)
	}
	defer f.Close()

	tr := tar.NewReader(bufio.NewReader(f))
	pending := make(map[string]*partial)
	done := make(map[string]model.Sample)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar: %w", err)
		}
		if hdr.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(hdr.Name)
		ext := strings.ToLower(filepath.Ext(name))
		key := strings.TrimSuffix(name, filepath.Ext(name))

		part := pending[key]
		if part == nil {
			part = &partial{}
		}
		switch ext {
		case ".jpg", ".jpeg", ".png":
			raw, err := io.ReadAll(tr)
			if err != nil {
				return nil, fmt.Errorf("read image %s: %w", name, err)
			}
			grid, err := GridFromImage(raw)
			if err != nil {
				return nil, fmt.Errorf("decode image %s: %w", name, err)
			}
			part.grid = grid
		case ".cls":
			payload, err := io.ReadAll(tr)
			if err != nil {
				return nil, fmt.Errorf("read label %s: %w", name, err)
			}
			label, err := strconv.Atoi(strings.TrimSpace(string(payload)))
			if err != nil {
				return nil, fmt.Errorf("parse label %s: %w", name, err)
			}
			part.label = &label
		default:
			continue
		}

		if part.ready() {
			done[key] = model.Sample{Y0: part.grid, Label: *part.label}
			delete(pending, key)
			continue
		}
		pending[key] = part
		if len(pending) > defaultPendingCap {
			return nil, ErrPendingOverflow
		}
	}

	if len(pending) > 0 {
		return nil, fmt.Errorf("%s: %d samples incomplete", path, len(pending))
	}
	keys := make([]string, 0, len(done))
	for k := range done {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	samples := make([]model.Sample, len(keys))
	for i, k := range keys {
		samples[i] = done[k]
	}
	return samples, nil
}

type partial struct {
	grid  []float64
	label *int
}

func (p *partial) ready() bool {
	return p.grid != nil && p.label != nil
}

// GridFromImage samples an encoded image down to a GridSize×GridSize grid
// of ink intensity in [0,1]. Images drawn dark on light are inverted so
// strokes are always the positive pixels.
func GridFromImage(raw []byte) ([]float64, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return nil, errors.New("empty image")
	}

	const n = model.GridSize
	grid := make([]float64, n*n)
	stepX := float64(width) / float64(n)
	stepY := float64(height) / float64(n)
	mean := 0.0
	for gy := 0; gy < n; gy++ {
		for gx := 0; gx < n; gx++ {
			px := bounds.Min.X + int(math.Min(float64(width-1), float64(gx)*stepX))
			py := bounds.Min.Y + int(math.Min(float64(height-1), float64(gy)*stepY))
			r, g, b, _ := img.At(px, py).RGBA()
			v := (float64(r) + float64(g) + float64(b)) / (3 * 65535.0)
			grid[gy*n+gx] = v
			mean += v
		}
	}
	if mean/float64(n*n) > 0.5 {
		for i, v := range grid {
			grid[i] = 1 - v
		}
	}
	return grid, nil
}
