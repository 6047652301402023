// Package profiling samples eviction counts per set/owner over a run and
// writes them out as a pprof profile, so a completed run's hot sets can be
// inspected offline with the standard pprof tooling.
package profiling

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/pkg/errors"
)

type sampleKey struct {
	setID int
	owner int
}

// EvictionSampler accumulates one counter per (set, owner) pair as the core
// reports evictions, and renders the result as a pprof profile on demand.
type EvictionSampler struct {
	mu      sync.Mutex
	counts  map[sampleKey]int64
	buildID string
	started time.Time
}

// NewEvictionSampler starts a sampler tagged with buildID (the run's xid),
// embedded in the profile so it can be correlated with a ledger row.
func NewEvictionSampler(buildID string) *EvictionSampler {
	return &EvictionSampler{
		counts:  make(map[sampleKey]int64),
		buildID: buildID,
		started: time.Now(),
	}
}

// RecordEviction bumps the counter for one (setID, owner) pair.
func (s *EvictionSampler) RecordEviction(setID int, owner int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[sampleKey{setID: setID, owner: owner}]++
}

// WriteFile renders the accumulated samples as a gzip-compressed pprof
// profile and writes it to path.
func (s *EvictionSampler) WriteFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "evictions", Unit: "count"},
		},
		TimeNanos:     s.started.UnixNano(),
		DurationNanos: time.Since(s.started).Nanoseconds(),
		Comments:      []string{"llcsim eviction sampling profile", "run " + s.buildID},
	}

	for key, n := range s.counts {
		p.Sample = append(p.Sample, &profile.Sample{
			Value: []int64{n},
			Label: map[string][]string{
				"set_id": {strconv.Itoa(key.setID)},
				"owner":  {strconv.Itoa(key.owner)},
			},
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating profile file %q", path)
	}
	defer f.Close()

	if err := p.Write(f); err != nil {
		return errors.Wrapf(err, "writing profile to %q", path)
	}
	return nil
}

