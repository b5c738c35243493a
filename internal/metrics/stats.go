package metrics

import (
	"sort"
	"sync"
	"time"
)

// Recorder accumulates call counts and latency per named operation.
// It is safe for concurrent use.
type Recorder struct {
	mu  sync.Mutex
	ops map[string]*opWindow
}

type opWindow struct {
	calls   int
	samples int
	errors  int
	busy    time.Duration
	last    time.Time
}

// Record adds one call of op that handled n samples in d.
func (r *Recorder) Record(op string, n int, d time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ops == nil {
		r.ops = make(map[string]*opWindow)
	}
	w := r.ops[op]
	if w == nil {
		w = &opWindow{}
		r.ops[op] = w
	}
	w.calls++
	w.samples += n
	w.busy += d
	w.last = time.Now()
	if err != nil {
		w.errors++
	}
}

// OpStats are the aggregated figures for one operation.
type OpStats struct {
	Op            string    `json:"op"`
	Calls         int       `json:"calls"`
	Samples       int       `json:"samples"`
	Errors        int       `json:"errors"`
	AvgMS         float64   `json:"avg_ms"`
	SamplesPerSec float64   `json:"samples_per_sec"`
	LastCall      time.Time `json:"last_call"`
}

// Snapshot returns per-operation stats sorted by name. Counters are not
// reset.
func (r *Recorder) Snapshot() []OpStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]OpStats, 0, len(r.ops))
	for op, w := range r.ops {
		s := OpStats{Op: op, Calls: w.calls, Samples: w.samples, Errors: w.errors, LastCall: w.last}
		if w.calls > 0 {
			s.AvgMS = (w.busy.Seconds() * 1000) / float64(w.calls)
		}
		if w.busy > 0 {
			s.SamplesPerSec = float64(w.samples) / w.busy.Seconds()
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Op < out[j].Op })
	return out
}

// Lookup returns the stats for op and whether it has been recorded.
func (r *Recorder) Lookup(op string) (OpStats, bool) {
	for _, s := range r.Snapshot() {
		if s.Op == op {
			return s, true
		}
	}
	return OpStats{}, false
}
