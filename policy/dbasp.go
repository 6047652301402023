package policy

import (
	"fmt"

	"github.com/sarchlab/llcsim/policy/config"
)

// DBASP is policy C7: owner-partitioned eviction that enforces the UCP
// quota per set, falling back to the incoming request's own owner when the
// set's occupancy already matches quota exactly.
type DBASP struct {
	*Set
	ctx *Context
}

// NewDBASP implements DBASP's `new` operation. Only "<cfgname>/srrip/bits"
// is required; DBASP has no case/threshold config of its own (those belong
// to DBPV and DBPV_DYN respectively). accessMax is 1: DBASP only classifies
// dead vs reused, never reuse count.
func NewDBASP(ctx *Context, cfgname string, coreID, associativity int, reader config.Reader) (*DBASP, error) {
	bits, err := reader.IntArray(cfgname+"/srrip/bits", coreID)
	if err != nil {
		return nil, configMissingf("%s", err)
	}
	if wantMax := uint8((1 << uint(bits)) - 1); wantMax != ctx.rrpvMax {
		return nil, configMissingf("dbasp: srrip/bits=%d disagrees with context rrpv_max=%d", bits, ctx.rrpvMax)
	}

	set := ctx.newSet(1)
	if set.numWays != associativity {
		return nil, invariantf("set %d: associativity mismatch (ctx=%d, want=%d)", set.id, set.numWays, associativity)
	}

	d := &DBASP{Set: set, ctx: ctx}
	ctx.registerDBASPStats(set.numWays)
	return d, nil
}

// GetReplacementIndex implements the miss path of spec 4.7: UCP repartition
// (if its cycle trigger fires), then invalid-slot fill, then the
// owner-quota-aware victim decision.
func (d *DBASP) GetReplacementIndex(cntlr Controller, owner Owner) (int, error) {
	if !owner.valid() {
		return -1, invariantf("dbasp set %d: invalid owner %d", d.id, owner)
	}

	d.ctx.maybeRepartition()

	if way := d.findInvalidWay(cntlr); way >= 0 {
		d.ctx.invalidFills++
		d.ctx.bump("InvalidBlocks")
		d.owner[way] = owner
		d.access[way] = 0
		d.ctx.totalInserted[owner]++
		d.ctx.bump(fmt.Sprintf("totalBlocksInsC%d", int(owner)))
		d.insertNearLRU(way, d.rrpvMax)
		return way, nil
	}

	var n0, n1 int
	for i := 0; i < d.numWays; i++ {
		if d.owner[i] == Owner0 {
			n0++
		} else {
			n1++
		}
	}

	lru0, ok0 := d.lruCandidate(Owner0)
	lru1, ok1 := d.lruCandidate(Owner1)

	var victim int
	switch {
	case n0 > d.ctx.waysQuota[Owner0] && ok0:
		victim = lru0
	case n0 < d.ctx.waysQuota[Owner0] && ok1:
		victim = lru1
	case owner == Owner0 && ok0:
		victim = lru0
	case ok1:
		victim = lru1
	case ok0:
		victim = lru0
	default:
		return -1, invariantf("dbasp set %d: no eviction candidate found", d.id)
	}

	if !cntlr.IsValid(victim) {
		return -1, candidateInvalidf("dbasp set %d: victim way %d unexpectedly invalid", d.id, victim)
	}

	origin := d.rrpv[victim]
	prevOwner := d.owner[victim]
	if d.access[victim] == 0 {
		d.ctx.totalDead[prevOwner]++
		d.ctx.bump(fmt.Sprintf("totalBlocksDeadC%d", int(prevOwner)))
	}

	d.owner[victim] = owner
	d.access[victim] = 0
	d.ctx.totalInserted[owner]++
	d.ctx.bump(fmt.Sprintf("totalBlocksInsC%d", int(owner)))
	d.insertNearLRU(victim, origin)

	return victim, nil
}

// lruCandidate returns the way owned by owner with the largest RRPV (ties
// broken by lowest index), per spec 4.7 step 2.
func (d *DBASP) lruCandidate(owner Owner) (int, bool) {
	best := -1
	var bestRRPV uint8
	for i := 0; i < d.numWays; i++ {
		if d.owner[i] != owner {
			continue
		}
		if best == -1 || d.rrpv[i] > bestRRPV {
			best = i
			bestRRPV = d.rrpv[i]
		}
	}
	return best, best != -1
}

// UpdateOnHit implements DBASP's hit path: saturating access increment,
// recency-histogram update at the pre-promotion RRPV, Insert-at-MRU, then
// force RRPV to 0.
func (d *DBASP) UpdateOnHit(way int) error {
	if way < 0 || way >= d.numWays {
		return invariantf("dbasp set %d: way %d out of range", d.id, way)
	}
	owner := d.owner[way]
	if !owner.valid() {
		return invariantf("dbasp set %d: way %d owner %d invalid", d.id, way, owner)
	}

	d.access[way] = saturating(d.access[way], d.accessMax)

	p := d.rrpv[way]
	d.ctx.recordHit(owner, p)
	d.ctx.bump(fmt.Sprintf("totalBlocksHitC%d", int(owner)))
	idx := int(p)
	if idx >= d.numWays {
		idx = d.numWays - 1
	}
	d.ctx.bump(fmt.Sprintf("recencyCounterC%d-%d", int(owner), idx))

	d.insertAtMRU(way)
	d.rrpv[way] = 0
	return nil
}

func (c *Context) registerDBASPStats(numWays int) {
	if c.registered {
		return
	}
	c.registered = true
	for _, o := range []Owner{Owner0, Owner1} {
		n := int(o)
		c.registerCounter(fmt.Sprintf("totalBlocksDeadC%d", n))
		c.registerCounter(fmt.Sprintf("totalBlocksInsC%d", n))
		c.registerCounter(fmt.Sprintf("totalBlocksHitC%d", n))
		for i := 0; i < numWays; i++ {
			c.registerCounter(fmt.Sprintf("recencyCounterC%d-%d", n, i))
		}
	}
	c.registerCounter("InvalidBlocks")
}
