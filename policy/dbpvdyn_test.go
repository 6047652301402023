package policy

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/llcsim/policy/config"
)

type dynFakeController struct{ valid map[int]bool }

func (c *dynFakeController) IsValid(way int) bool { return c.valid[way] }

var _ = Describe("DBPVDyn", func() {
	var (
		ctx *Context
		ctl *dynFakeController
		d   *DBPVDyn
	)

	BeforeEach(func() {
		ctx = NewContext(4, 2, nil, nil, WithPhaseParams(100, 9000))
		cfg := config.Static{"l3/srrip/bits": {0: 2, 1: 2}}
		ctl = &dynFakeController{valid: map[int]bool{0: true, 1: true, 2: true, 3: true}}

		var err error
		d, err = NewDBPVDyn(ctx, "l3", 0, 4, cfg)
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires saturation_max to be configured", func() {
		bare := NewContext(4, 2, nil, nil)
		_, err := NewDBPVDyn(bare, "l3", 0, 4, cfg())
		Expect(err).To(MatchError(ErrConfigMissing))
	})

	// S5 — phase flip: 95/100 owner-0 insertions retire dead crosses the
	// 90% threshold and sets insert_rrpv[0] to rrpv_max.
	It("retargets an owner's insertion RRPV to rrpv_max past the dead threshold", func() {
		ctx.validInserted[Owner0] = 99
		ctx.validDead[Owner0] = 94

		d.owner[0] = Owner0
		d.access[0] = 0
		d.rrpv[0] = ctx.rrpvMax

		victim, err := d.GetReplacementIndex(ctl, Owner0)
		Expect(err).NotTo(HaveOccurred())
		Expect(victim).To(Equal(0))

		Expect(ctx.InsertRRPV(Owner0)).To(Equal(ctx.rrpvMax))
		Expect(ctx.validInserted[Owner0]).To(Equal(uint32(0)))
		Expect(ctx.validDead[Owner0]).To(Equal(uint32(0)))
		Expect(ctx.phaseID).To(Equal(1))
	})

	It("keeps a below-threshold owner at rrpv_insert", func() {
		ctx.validInserted[Owner1] = 99
		ctx.validDead[Owner1] = 10

		d.owner[0] = Owner1
		d.access[0] = 1
		d.rrpv[0] = ctx.rrpvMax

		_, err := d.GetReplacementIndex(ctl, Owner1)
		Expect(err).NotTo(HaveOccurred())

		Expect(ctx.InsertRRPV(Owner1)).To(Equal(ctx.rrpvInsert))
	})

	// S5's tie-break: if both owners would transition to rrpv_max in the
	// same phase boundary, the later one reverts to rrpv_insert.
	It("reverts the later owner's transition when both would hit rrpv_max", func() {
		ctx.insertRRPV[Owner1] = ctx.rrpvMax // owner 1 already LRU-inserting
		ctx.validInserted[Owner0] = 99
		ctx.validDead[Owner0] = 94

		d.owner[0] = Owner0
		d.access[0] = 0
		d.rrpv[0] = ctx.rrpvMax

		_, err := d.GetReplacementIndex(ctl, Owner0)
		Expect(err).NotTo(HaveOccurred())

		Expect(ctx.InsertRRPV(Owner0)).To(Equal(ctx.rrpvInsert))
		Expect(ctx.InsertRRPV(Owner1)).To(Equal(ctx.rrpvMax))
	})

	It("counts a tie when more than one way is already at rrpv_max", func() {
		d.rrpv = []uint8{3, 3, 1, 0}
		d.owner[0] = Owner0
		d.access[0] = 1

		_, err := d.GetReplacementIndex(ctl, Owner1)
		Expect(err).NotTo(HaveOccurred())
		Expect(ctx.tieAtEvict).To(Equal(uint64(1)))
	})

	It("buckets the evicted block's access value by current phase", func() {
		d.rrpv = []uint8{3, 1, 1, 0}
		d.owner[0] = Owner0
		d.access[0] = 7 // saturates into bucket 4

		_, err := d.GetReplacementIndex(ctl, Owner1)
		Expect(err).NotTo(HaveOccurred())
		Expect(ctx.blockAccessCount[0][4]).To(Equal(uint64(1)))
	})

	It("installs directly at an invalid way without Insert-near-LRU", func() {
		ctl.valid[2] = false
		victim, err := d.GetReplacementIndex(ctl, Owner0)
		Expect(err).NotTo(HaveOccurred())
		Expect(victim).To(Equal(2))
		Expect(d.RRPV(2)).To(Equal(ctx.insertRRPV[Owner0]))
	})
})

func cfg() config.Static {
	return config.Static{"l3/srrip/bits": {0: 2, 1: 2}}
}
