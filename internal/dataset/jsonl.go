package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"digitocr/internal/model"
)

const maxLineBytes = 1 << 20

// jsonlSample keeps both fields optional so a missing label is told apart
// from label 0.
type jsonlSample struct {
	Y0    model.Grid `json:"y0"`
	Label *int       `json:"label"`
}

// ErrIncompleteSample marks a sample line without y0 or label.
var ErrIncompleteSample = errors.New("dataset: sample missing y0 or label")

// ReadJSONL decodes one sample per non-blank line of path.
func ReadJSONL(path string) ([]model.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open samples: %w", err)
	}
	defer f.Close()

	var samples []model.Sample
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var s jsonlSample
		if err := json.Unmarshal(line, &s); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, lineNo, err)
		}
		if s.Y0 == nil || s.Label == nil {
			return nil, fmt.Errorf("%s line %d: %w", path, lineNo, ErrIncompleteSample)
		}
		samples = append(samples, model.Sample{Y0: s.Y0, Label: *s.Label})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return samples, nil
}
