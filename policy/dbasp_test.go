package policy

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/llcsim/policy/config"
)

type dbaspFakeController struct{ valid map[int]bool }

func (c *dbaspFakeController) IsValid(way int) bool { return c.valid[way] }

var _ = Describe("DBASP", func() {
	var (
		ctx   *Context
		ctl   *dbaspFakeController
		dbasp *DBASP
	)

	BeforeEach(func() {
		ctx = NewContext(4, 2, nil, nil)
		cfg := config.Static{"l3/srrip/bits": {0: 2, 1: 2}}
		ctl = &dbaspFakeController{valid: map[int]bool{0: true, 1: true, 2: true, 3: true}}

		var err error
		dbasp, err = NewDBASP(ctx, "l3", 0, 4, cfg)
		Expect(err).NotTo(HaveOccurred())
	})

	// S3 — DBASP quota eviction.
	It("evicts the over-quota owner's LRU candidate via Insert-near-LRU", func() {
		ctx.waysQuota[Owner0] = 1
		ctx.waysQuota[Owner1] = 3
		dbasp.owner = []Owner{Owner0, Owner0, Owner1, Owner1}
		dbasp.rrpv = []uint8{2, 2, 1, 3}
		dbasp.access = []uint8{1, 1, 1, 1}

		victim, err := dbasp.GetReplacementIndex(ctl, Owner1)
		Expect(err).NotTo(HaveOccurred())
		Expect(victim).To(Equal(0), "lowest-indexed owner-0 way ties at rrpv=2")

		Expect(dbasp.OwnerOf(0)).To(Equal(Owner1))
		Expect(dbasp.RRPV(0)).To(Equal(uint8(1)))
		Expect(dbasp.RRPV(2)).To(Equal(uint8(2)), "the unique way at origin-1 is demoted")
	})

	It("evicts owner-1's LRU candidate when owner-1 is over quota", func() {
		ctx.waysQuota[Owner0] = 3
		ctx.waysQuota[Owner1] = 1
		dbasp.owner = []Owner{Owner0, Owner0, Owner1, Owner1}
		dbasp.rrpv = []uint8{2, 1, 2, 3}
		dbasp.access = []uint8{1, 1, 1, 1}

		victim, err := dbasp.GetReplacementIndex(ctl, Owner0)
		Expect(err).NotTo(HaveOccurred())
		Expect(victim).To(Equal(3))
	})

	It("evicts the requester's own owner at exact quota", func() {
		ctx.waysQuota[Owner0] = 2
		ctx.waysQuota[Owner1] = 2
		dbasp.owner = []Owner{Owner0, Owner0, Owner1, Owner1}
		dbasp.rrpv = []uint8{2, 1, 2, 1}
		dbasp.access = []uint8{1, 1, 1, 1}

		victim, err := dbasp.GetReplacementIndex(ctl, Owner0)
		Expect(err).NotTo(HaveOccurred())
		Expect(victim).To(Equal(0))
	})

	It("fills an invalid way first, with Insert-near-LRU at origin rrpv_max", func() {
		ctl.valid[1] = false
		dbasp.owner = []Owner{Owner0, Owner0, Owner1, Owner1}
		dbasp.rrpv = []uint8{2, 3, 1, 3}
		dbasp.access = []uint8{1, 0, 1, 0}

		victim, err := dbasp.GetReplacementIndex(ctl, Owner1)
		Expect(err).NotTo(HaveOccurred())
		Expect(victim).To(Equal(1))
		Expect(dbasp.OwnerOf(1)).To(Equal(Owner1))
		Expect(dbasp.RRPV(0)).To(Equal(uint8(3)), "the unique way at rrpv_max-1 demotes")
		Expect(dbasp.RRPV(1)).To(Equal(uint8(2)))
	})

	It("promotes to MRU and forces rrpv 0 on hit, recording the pre-hit recency bucket", func() {
		dbasp.owner = []Owner{Owner0, Owner0, Owner0, Owner0}
		dbasp.rrpv = []uint8{2, 2, 2, 2}

		Expect(dbasp.UpdateOnHit(2)).To(Succeed())

		Expect(dbasp.RRPV(2)).To(Equal(uint8(0)))
		Expect(dbasp.RRPV(0)).To(Equal(uint8(2)), "ways tied with the hit way's old rrpv are not aged")
		Expect(dbasp.RRPV(1)).To(Equal(uint8(2)))
		Expect(dbasp.RRPV(3)).To(Equal(uint8(2)))
		Expect(dbasp.Access(2)).To(Equal(uint8(1)))
		Expect(ctx.recencyCounter[Owner0][2]).To(Equal(uint64(1)))
	})
})
