package policy

import (
	"github.com/syifan/goseth"
	"go.uber.org/zap"

	"github.com/sarchlab/llcsim/policy/stats"
)

// numPhases bounds DBPV_DYN's phase id and its per-phase access-count table
// (spec: "phase_id ... saturating at 99").
const numPhases = 100

// PhaseRecord is one entry of DBPV_DYN's phase log, supplementing the
// dropped g_insertionCore0/1 history from original_source/ with the
// insertion RRPV each owner carries once that phase closes (the values the
// phase transition just set).
type PhaseRecord struct {
	PhaseID         int
	InsertRRPV      [2]uint8
	DeadPercent     [2]int
	TriggeredByOwner Owner
}

// Context is the process-wide partitioning and phase state shared by every
// Set of a given policy: the recency histogram and UCP way quota (C4, C8),
// and DBPV_DYN's phase bookkeeping (C6). It is constructed once per policy
// and handed to every Set as a non-owning reference, per the design notes.
type Context struct {
	numWays int

	rrpvMax    uint8
	rrpvInsert uint8

	// UCP / recency (C4, C8)
	waysQuota       [2]int
	recencyCounter  [2][]uint64
	totalInserted   [2]uint64
	totalHit        [2]uint64
	totalDead       [2]uint64
	invalidFills    uint64
	lastCallMillion uint64
	cycleCount      func() uint64

	// DBPV reuse-bucket aggregates (DBPV only; zero elsewhere)
	reuseOnce       [2]uint64
	reuseTwice      [2]uint64
	reuseThriceMore [2]uint64

	// DBPV_DYN phase state (C6)
	saturationMax    uint32
	dbThreshold      uint32
	validInserted    [2]uint32
	validDead        [2]uint32
	phaseID          int
	blockAccessCount [numPhases][5]uint64
	tieAtEvict       uint64
	insertRRPV       [2]uint8
	phaseLog         []PhaseRecord

	sink     stats.Sink
	log      *zap.SugaredLogger
	counters map[string]stats.Counter
	gauges   map[string]stats.Gauge

	registered bool
	nextID     int
}

// ContextOption configures optional Context behaviour.
type ContextOption func(*Context)

// WithCycleCount supplies the process-wide cycle counter UCP's time trigger
// reads. Defaults to an always-zero counter (UCP never fires) if omitted.
func WithCycleCount(f func() uint64) ContextOption {
	return func(c *Context) { c.cycleCount = f }
}

// WithPhaseParams supplies DBPV_DYN's saturation_max and db_threshold. Only
// meaningful for a Context backing a DBPV_DYN policy.
func WithPhaseParams(saturationMax, dbThreshold uint32) ContextOption {
	return func(c *Context) {
		c.saturationMax = saturationMax
		c.dbThreshold = dbThreshold
	}
}

// NewContext constructs the shared policy context for one policy run.
// rrpvBits determines rrpvMax/rrpvInsert (spec 3: rrpv_max = 2^bits - 1,
// rrpv_insert = rrpv_max - 1); numWays is the associativity every Set under
// this context shares.
func NewContext(numWays int, rrpvBits uint8, sink stats.Sink, log *zap.SugaredLogger, opts ...ContextOption) *Context {
	rrpvMax := uint8((1 << rrpvBits) - 1)
	return newContext(numWays, rrpvMax, rrpvMax-1, sink, log, opts...)
}

func newContext(numWays int, rrpvMax, rrpvInsert uint8, sink stats.Sink, log *zap.SugaredLogger, opts ...ContextOption) *Context {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if sink == nil {
		sink = stats.Noop{}
	}

	c := &Context{
		numWays:    numWays,
		rrpvMax:    rrpvMax,
		rrpvInsert: rrpvInsert,
		sink:       sink,
		log:        log,
		cycleCount: func() uint64 { return 0 },
		counters:   make(map[string]stats.Counter),
		gauges:     make(map[string]stats.Gauge),
	}
	c.waysQuota[Owner0] = numWays / 2
	c.waysQuota[Owner1] = numWays - numWays/2
	c.insertRRPV[Owner0] = rrpvInsert
	c.insertRRPV[Owner1] = rrpvInsert
	c.recencyCounter[Owner0] = make([]uint64, numWays)
	c.recencyCounter[Owner1] = make([]uint64, numWays)

	for _, o := range opts {
		o(c)
	}
	return c
}

// WaysQuota returns the current UCP allocation for owner k.
func (c *Context) WaysQuota(owner Owner) int { return c.waysQuota[owner] }

// InsertRRPV returns the owner's current insertion RRPV (meaningful for
// DBPV_DYN; DBASP never reads this field, per the resolved open question in
// SPEC_FULL.md).
func (c *Context) InsertRRPV(owner Owner) uint8 { return c.insertRRPV[owner] }

// PhaseLog returns DBPV_DYN's recorded phase history, oldest first.
func (c *Context) PhaseLog() []PhaseRecord {
	out := make([]PhaseRecord, len(c.phaseLog))
	copy(out, c.phaseLog)
	return out
}

// TotalDead returns the owner's count of evictions that retired a block
// never hit after insertion (C4's dead-block tally).
func (c *Context) TotalDead(owner Owner) uint64 { return c.totalDead[owner] }

// TotalHit returns the owner's count of hits recorded by recordHit.
func (c *Context) TotalHit(owner Owner) uint64 { return c.totalHit[owner] }

// Snapshot is the partitioning state a run reports externally: the current
// UCP quota, each owner's dead/hit tallies, and DBPV_DYN's phase history.
// Hash is goseth's fingerprint of the rest of the struct, so two snapshots
// with identical partitioning state compare equal without diffing PhaseLog.
type Snapshot struct {
	WaysQuota [2]int        `json:"ways_quota"`
	TotalDead [2]uint64     `json:"total_dead"`
	TotalHit  [2]uint64     `json:"total_hit"`
	PhaseLog  []PhaseRecord `json:"phase_log"`
	Hash      string        `json:"hash"`
}

// Snapshot builds the current partitioning snapshot for this context.
func (c *Context) Snapshot() Snapshot {
	s := Snapshot{
		WaysQuota: [2]int{c.waysQuota[Owner0], c.waysQuota[Owner1]},
		TotalDead: [2]uint64{c.totalDead[Owner0], c.totalDead[Owner1]},
		TotalHit:  [2]uint64{c.totalHit[Owner0], c.totalHit[Owner1]},
		PhaseLog:  c.PhaseLog(),
	}
	s.Hash = goseth.Hash(s)
	return s
}

// recordHit implements C4: increment the owner's recency counter at
// position p (the RRPV read before promotion) and its total-hit counter.
func (c *Context) recordHit(owner Owner, p uint8) {
	idx := int(p)
	if idx >= len(c.recencyCounter[owner]) {
		idx = len(c.recencyCounter[owner]) - 1
	}
	c.recencyCounter[owner][idx]++
	c.totalHit[owner]++
}

func (c *Context) totalAccess(owner Owner) uint64 {
	return c.totalInserted[owner] + c.totalHit[owner]
}

const statsGroup = "interval_timer"

// registerCounter registers name under statsGroup and remembers the handle
// so later increments can reach it by name.
func (c *Context) registerCounter(name string) {
	c.counters[name] = c.sink.Counter(statsGroup, name)
}

func (c *Context) registerGauge(name string) {
	c.gauges[name] = c.sink.Gauge(statsGroup, name)
}

// bump increments a previously registered counter by name; a no-op if name
// was never registered (keeps call sites simple when a given policy
// doesn't register every possible stat).
func (c *Context) bump(name string) {
	if ctr, ok := c.counters[name]; ok {
		ctr.Inc()
	}
}

func (c *Context) setGauge(name string, v float64) {
	if g, ok := c.gauges[name]; ok {
		g.Set(v)
	}
}

// newSet allocates a fresh per-set metadata block under this context,
// assigning the next monotonically increasing set id and reusing the
// context's own rrpv_max/rrpv_insert (process-wide constants for the whole
// policy run).
func (c *Context) newSet(accessMax uint8) *Set {
	id := c.nextID
	c.nextID++
	return newSet(id, c.numWays, c.rrpvMax, c.rrpvInsert, accessMax)
}
