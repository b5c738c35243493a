package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"digitocr/internal/model"
)

// ErrCorrupt marks a record that exists but cannot be turned back into
// network parameters.
var ErrCorrupt = errors.New("store: corrupt parameter record")

// record is the on-disk layout. Biases are stored as single-row matrices.
type record struct {
	Theta1 [][]float64 `json:"theta1"`
	Theta2 [][]float64 `json:"theta2"`
	B1     [][]float64 `json:"b1"`
	B2     [][]float64 `json:"b2"`
}

// FileStore persists network parameters as a JSON file. A disabled store
// never touches the filesystem.
type FileStore struct {
	path    string
	enabled bool
}

// New returns a store backed by path.
func New(path string, enabled bool) *FileStore {
	return &FileStore{path: path, enabled: enabled}
}

// Enabled reports whether the store reads and writes its record.
func (s *FileStore) Enabled() bool { return s.enabled }

// Path returns the record location.
func (s *FileStore) Path() string { return s.path }

// Load returns the persisted parameters. It returns nil, nil when the store
// is disabled or no record exists yet.
func (s *FileStore) Load() (*model.Params, error) {
	if !s.enabled {
		return nil, nil
	}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	p, err := rec.params()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	return p, nil
}

// Save overwrites the record with p. The file is replaced by rename so a
// failed write leaves the previous record intact.
func (s *FileStore) Save(p *model.Params) error {
	if !s.enabled {
		return nil
	}
	raw, err := json.Marshal(newRecord(p))
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func newRecord(p *model.Params) record {
	return record{
		Theta1: rows(p.W1),
		Theta2: rows(p.W2),
		B1:     [][]float64{mat.Col(nil, 0, p.B1)},
		B2:     [][]float64{mat.Col(nil, 0, p.B2)},
	}
}

func rows(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

func (r record) params() (*model.Params, error) {
	w1, err := dense("theta1", r.Theta1)
	if err != nil {
		return nil, err
	}
	w2, err := dense("theta2", r.Theta2)
	if err != nil {
		return nil, err
	}
	b1, err := vector("b1", r.B1)
	if err != nil {
		return nil, err
	}
	b2, err := vector("b2", r.B2)
	if err != nil {
		return nil, err
	}
	return model.NewParamsFrom(w1, w2, b1, b2)
}

func dense(name string, vals [][]float64) (*mat.Dense, error) {
	if len(vals) == 0 || len(vals[0]) == 0 {
		return nil, fmt.Errorf("%s is empty", name)
	}
	cols := len(vals[0])
	data := make([]float64, 0, len(vals)*cols)
	for i, row := range vals {
		if len(row) != cols {
			return nil, fmt.Errorf("%s row %d has %d values, want %d", name, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(vals), cols, data), nil
}

func vector(name string, vals [][]float64) (*mat.VecDense, error) {
	if len(vals) != 1 || len(vals[0]) == 0 {
		return nil, fmt.Errorf("%s must be a single non-empty row", name)
	}
	return mat.NewVecDense(len(vals[0]), append([]float64(nil), vals[0]...)), nil
}
