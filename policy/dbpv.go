package policy

import (
	"fmt"

	"github.com/sarchlab/llcsim/policy/config"
)

// dbpvCaseTable is the exact static insertion-position table of spec 4.5.
var dbpvCaseTable = map[int][2]uint8{
	1:  {0, 0},
	2:  {1, 1},
	3:  {2, 2},
	4:  {3, 3},
	5:  {1, 2},
	6:  {2, 1},
	7:  {1, 3},
	8:  {3, 1},
	9:  {0, 3},
	10: {3, 0},
	11: {3, 2},
	12: {2, 3},
}

// DBPV is policy C5: insertion position is a static function of a
// configured case; eviction is the plain SRRIP victim search, with no
// partition check and no recency feedback.
type DBPV struct {
	*Set
	ctx *Context

	caseID     int
	insertRRPV [2]uint8
}

// NewDBPV implements DBPV's `new` operation. It reads "<cfgname>/srrip/bits"
// (validated against ctx, which already carries the policy-wide rrpv_bits)
// and "<cfgname>/srrip/case" for coreID; accessMax is fixed at 3 (DBPV
// classifies dead/once/twice/thrice-or-more).
func NewDBPV(ctx *Context, cfgname string, coreID, associativity int, reader config.Reader) (*DBPV, error) {
	bits, err := reader.IntArray(cfgname+"/srrip/bits", coreID)
	if err != nil {
		return nil, configMissingf("%s", err)
	}
	if wantMax := uint8((1 << uint(bits)) - 1); wantMax != ctx.rrpvMax {
		return nil, configMissingf("dbpv: srrip/bits=%d disagrees with context rrpv_max=%d", bits, ctx.rrpvMax)
	}

	caseID, err := reader.IntArray(cfgname+"/srrip/case", coreID)
	if err != nil {
		return nil, configMissingf("%s", err)
	}
	pair, ok := dbpvCaseTable[caseID]
	if !ok {
		return nil, configMissingf("dbpv: unknown case %d (want 1..12)", caseID)
	}

	set := ctx.newSet(3)
	if set.numWays != associativity {
		return nil, invariantf("set %d: associativity mismatch (ctx=%d, want=%d)", set.id, set.numWays, associativity)
	}

	insert := [2]uint8{clampRRPV(pair[0], set.rrpvMax), clampRRPV(pair[1], set.rrpvMax)}

	d := &DBPV{Set: set, ctx: ctx, caseID: caseID, insertRRPV: insert}
	ctx.registerDBPVStats()
	return d, nil
}

func clampRRPV(v, max uint8) uint8 {
	if v > max {
		return max
	}
	return v
}

// GetReplacementIndex implements the miss path: invalid-slot fill first,
// then the SRRIP victim search with dead/reuse classification.
func (d *DBPV) GetReplacementIndex(cntlr Controller, owner Owner) (int, error) {
	if !owner.valid() {
		return -1, invariantf("dbpv set %d: invalid owner %d", d.id, owner)
	}

	if way := d.findInvalidWay(cntlr); way >= 0 {
		d.ctx.invalidFills++
		d.ctx.bump("InvalidBlocks")
		d.installAt(way, owner)
		return way, nil
	}

	victim, _, err := d.findVictimSRRIP()
	if err != nil {
		return -1, err
	}
	if !cntlr.IsValid(victim) {
		return -1, candidateInvalidf("dbpv set %d: victim way %d unexpectedly invalid", d.id, victim)
	}

	d.classifyAndRetire(victim)
	d.installAt(victim, owner)
	return victim, nil
}

func (d *DBPV) classifyAndRetire(way int) {
	owner := d.owner[way]
	n := int(owner)
	switch classifyReuse(d.access[way]) {
	case ReuseDead:
		d.ctx.totalDead[owner]++
		d.ctx.bump(fmt.Sprintf("totalBlocksDeadC%d", n))
	case ReuseOnce:
		d.ctx.reuseOnce[owner]++
		d.ctx.bump(fmt.Sprintf("totalBlocksReusedOnceC%d", n))
	case ReuseTwice:
		d.ctx.reuseTwice[owner]++
		d.ctx.bump(fmt.Sprintf("totalBlocksReusedTwiceC%d", n))
	case ReuseThriceOrMore:
		d.ctx.reuseThriceMore[owner]++
		d.ctx.bump(fmt.Sprintf("totalBlocksReusedThriceOrMoreC%d", n))
	}
}

func (d *DBPV) installAt(way int, owner Owner) {
	d.owner[way] = owner
	d.access[way] = 0
	d.ctx.totalInserted[owner]++
	d.ctx.bump(fmt.Sprintf("totalBlocksInsC%d", int(owner)))
	d.rrpv[way] = d.insertRRPV[owner]
}

// UpdateOnHit implements the hit path: saturate access, then protect the
// block by setting its RRPV to 0 (SRRIP-HP).
func (d *DBPV) UpdateOnHit(way int) error {
	if way < 0 || way >= d.numWays {
		return invariantf("dbpv set %d: way %d out of range", d.id, way)
	}
	d.access[way] = saturating(d.access[way], d.accessMax)
	if d.rrpv[way] > 0 {
		d.rrpv[way] = 0
	}
	return nil
}

func (c *Context) registerDBPVStats() {
	if c.registered {
		return
	}
	c.registered = true
	for _, o := range []Owner{Owner0, Owner1} {
		n := int(o)
		c.registerCounter(fmt.Sprintf("totalBlocksDeadC%d", n))
		c.registerCounter(fmt.Sprintf("totalBlocksInsC%d", n))
		c.registerCounter(fmt.Sprintf("totalBlocksReusedOnceC%d", n))
		c.registerCounter(fmt.Sprintf("totalBlocksReusedTwiceC%d", n))
		c.registerCounter(fmt.Sprintf("totalBlocksReusedThriceOrMoreC%d", n))
	}
	c.registerCounter("InvalidBlocks")
}
