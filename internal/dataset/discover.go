package dataset

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var shardRegexp = regexp.MustCompile(`^shard-[0-9]{6,}\.tar$`)

// Source is one file of labeled samples found under a training root.
type Source struct {
	Path string
	Kind Kind
}

// Kind tells how a Source is decoded.
type Kind int

const (
	// KindJSONL holds one {"y0": [...], "label": n} object per line.
	KindJSONL Kind = iota
	// KindShard is a tar of image files paired with .cls label files.
	KindShard
)

func (k Kind) String() string {
	switch k {
	case KindJSONL:
		return "jsonl"
	case KindShard:
		return "shard"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Discover returns every sample source beneath root, sorted by path.
func Discover(root string) ([]Source, error) {
	var sources []Source
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		switch {
		case shardRegexp.MatchString(name):
			sources = append(sources, Source{Path: path, Kind: KindShard})
		case strings.EqualFold(filepath.Ext(name), ".jsonl"):
			sources = append(sources, Source{Path: path, Kind: KindJSONL})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover samples: %w", err)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Path < sources[j].Path })
	return sources, nil
}
