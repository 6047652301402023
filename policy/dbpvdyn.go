package policy

import (
	"fmt"

	"github.com/sarchlab/llcsim/policy/config"
)

// DBPVDyn is policy C6: the same SRRIP victim search as DBPV, but each
// owner's insertion RRPV is retargeted at the end of every saturation_max
// -insertion phase, based on that phase's dead-block percentage.
type DBPVDyn struct {
	*Set
	ctx *Context
}

// NewDBPVDyn implements DBPV_DYN's `new` operation. Reads only
// "<cfgname>/srrip/bits" for coreID. saturation_max and db_threshold are
// taken from ctx (set with WithPhaseParams); the "<cfgname>/srrip/max_value"
// and "<cfgname>/srrip/db_threshold" keys are not read, and construction
// fails with ErrConfigMissing when ctx carries no saturation_max. accessMax
// is fixed at 1 (only dead/non-dead is tracked, like DBASP).
func NewDBPVDyn(ctx *Context, cfgname string, coreID, associativity int, reader config.Reader) (*DBPVDyn, error) {
	bits, err := reader.IntArray(cfgname+"/srrip/bits", coreID)
	if err != nil {
		return nil, configMissingf("%s", err)
	}
	if wantMax := uint8((1 << uint(bits)) - 1); wantMax != ctx.rrpvMax {
		return nil, configMissingf("dbpv_dyn: srrip/bits=%d disagrees with context rrpv_max=%d", bits, ctx.rrpvMax)
	}
	if ctx.saturationMax == 0 {
		return nil, configMissingf("dbpv_dyn: srrip/max_value (saturation_max) not configured on context")
	}

	set := ctx.newSet(1)
	if set.numWays != associativity {
		return nil, invariantf("set %d: associativity mismatch (ctx=%d, want=%d)", set.id, set.numWays, associativity)
	}

	d := &DBPVDyn{Set: set, ctx: ctx}
	ctx.registerDBPVDynStats()
	return d, nil
}

// GetReplacementIndex implements the miss path: invalid-slot fill first
// (direct insertion, no demotion), then the SRRIP victim search feeding the
// phase-aware install.
func (d *DBPVDyn) GetReplacementIndex(cntlr Controller, owner Owner) (int, error) {
	if !owner.valid() {
		return -1, invariantf("dbpv_dyn set %d: invalid owner %d", d.id, owner)
	}

	if way := d.findInvalidWay(cntlr); way >= 0 {
		d.ctx.invalidFills++
		d.ctx.bump("InvalidBlocks")
		d.owner[way] = owner
		d.access[way] = 0
		d.rrpv[way] = d.ctx.insertRRPV[owner]
		d.ctx.totalInserted[owner]++
		d.ctx.bump(fmt.Sprintf("totalBlocksInsC%d", int(owner)))
		return way, nil
	}

	victim, _, err := d.findVictimSRRIP()
	if err != nil {
		return -1, err
	}
	if !cntlr.IsValid(victim) {
		return -1, candidateInvalidf("dbpv_dyn set %d: victim way %d unexpectedly invalid", d.id, victim)
	}

	d.retireAndInstall(victim, owner)
	return victim, nil
}

// retireAndInstall implements the original's InsertBlockAtIndex: tie count,
// per-phase access-count bucketing, dead classification of the outgoing
// block, then installation of the incoming one and — if this install just
// closed out a phase for its owner — a phase transition.
func (d *DBPVDyn) retireAndInstall(way int, owner Owner) {
	if d.countRRPVMaxed() > 1 {
		d.ctx.tieAtEvict++
		d.ctx.bump("NumTieAtEvict")
	}

	oldOwner := d.owner[way]
	bucket := int(d.access[way])
	if bucket > 4 {
		bucket = 4
	}
	d.ctx.blockAccessCount[d.ctx.phaseID][bucket]++
	d.ctx.bump(fmt.Sprintf("dbpv_block-access-count-%d-%d", d.ctx.phaseID, bucket))

	if d.access[way] == 0 {
		d.ctx.totalDead[oldOwner]++
		d.ctx.validDead[oldOwner]++
		d.ctx.bump(fmt.Sprintf("totalBlocksDeadC%d", int(oldOwner)))
	}

	d.owner[way] = owner
	d.access[way] = 0
	d.rrpv[way] = d.ctx.insertRRPV[owner]
	d.ctx.totalInserted[owner]++
	d.ctx.bump(fmt.Sprintf("totalBlocksInsC%d", int(owner)))

	d.ctx.validInserted[owner]++
	if d.ctx.validInserted[owner] == d.ctx.saturationMax {
		d.ctx.closePhase(owner)
	}
}

// closePhase implements spec 4.6 steps 1-4: compute the owner's dead
// percentage for the phase just closed, retarget its insertion RRPV (with
// the both-owners-at-LRU tie-break), reset its phase counters and advance
// phase_id.
func (c *Context) closePhase(owner Owner) {
	deadPercent := int(10000 * uint64(c.validDead[owner]) / uint64(c.validInserted[owner]))

	if uint32(deadPercent) >= c.dbThreshold {
		c.insertRRPV[owner] = c.rrpvMax
		if c.insertRRPV[owner.other()] == c.rrpvMax {
			// Both owners would be LRU-inserted; the later transition
			// (this one) reverts so at least one owner stays non-streaming.
			c.insertRRPV[owner] = c.rrpvInsert
		}
	} else {
		c.insertRRPV[owner] = c.rrpvInsert
	}

	c.validInserted[owner] = 0
	c.validDead[owner] = 0

	rec := PhaseRecord{
		PhaseID:          c.phaseID,
		InsertRRPV:       c.insertRRPV,
		TriggeredByOwner: owner,
	}
	rec.DeadPercent[owner] = deadPercent
	c.phaseLog = append(c.phaseLog, rec)
	c.log.Infow("dbpv_dyn phase closed", "phase", c.phaseID, "owner", int(owner), "dead_percent", deadPercent, "insert_rrpv", c.insertRRPV[owner])

	if c.phaseID < numPhases-1 {
		c.phaseID++
		c.bump("numPhases")
	}
}

func (c *Context) registerDBPVDynStats() {
	if c.registered {
		return
	}
	c.registered = true
	for _, o := range []Owner{Owner0, Owner1} {
		n := int(o)
		c.registerCounter(fmt.Sprintf("totalBlocksDeadC%d", n))
		c.registerCounter(fmt.Sprintf("totalBlocksInsC%d", n))
	}
	c.registerCounter("InvalidBlocks")
	c.registerCounter("NumTieAtEvict")
	c.registerCounter("numPhases")
	for phase := 0; phase < numPhases; phase++ {
		for bucket := 0; bucket < 5; bucket++ {
			c.registerCounter(fmt.Sprintf("dbpv_block-access-count-%d-%d", phase, bucket))
		}
	}
}

// UpdateOnHit implements the hit path: saturate access (capped at 1, unlike
// DBPV's counter, which saturates at 3), then protect the block at RRPV 0.
func (d *DBPVDyn) UpdateOnHit(way int) error {
	if way < 0 || way >= d.numWays {
		return invariantf("dbpv_dyn set %d: way %d out of range", d.id, way)
	}
	d.access[way] = saturating(d.access[way], d.accessMax)
	if d.rrpv[way] > 0 {
		d.rrpv[way] = 0
	}
	return nil
}
