package policy_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/llcsim/policy"
	"github.com/sarchlab/llcsim/policy/config"
)

func staticDBPVConfig(bits, caseID int) config.Static {
	return config.Static{
		"l3/srrip/bits": {0: bits, 1: bits},
		"l3/srrip/case": {0: caseID, 1: caseID},
	}
}

var _ = Describe("DBPV", func() {
	var (
		ctx  *policy.Context
		cfg  config.Static
		ctl  *fakeController
		dbpv *policy.DBPV
	)

	BeforeEach(func() {
		ctx = policy.NewContext(4, 2, nil, nil)
		cfg = staticDBPVConfig(2, 3) // case 3: insert_rrpv = (2, 2)
		ctl = newFakeController(4)

		var err error
		dbpv, err = policy.NewDBPV(ctx, "l3", 0, 4, cfg)
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects an unknown case", func() {
		_, err := policy.NewDBPV(ctx, "l3", 0, 4, staticDBPVConfig(2, 99))
		Expect(err).To(MatchError(policy.ErrConfigMissing))
	})

	It("rejects a mismatched associativity", func() {
		_, err := policy.NewDBPV(ctx, "l3", 0, 8, cfg)
		Expect(err).To(MatchError(policy.ErrInvariantViolation))
	})

	// S1 — cold fill then aging.
	It("fills invalid ways in order, then ages and evicts the dead block", func() {
		for way := 0; way < 4; way++ {
			got, err := dbpv.GetReplacementIndex(ctl, policy.Owner0)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(way))
			ctl.install(way)
		}
		for way := 0; way < 4; way++ {
			Expect(dbpv.RRPV(way)).To(Equal(uint8(2)))
			Expect(dbpv.OwnerOf(way)).To(Equal(policy.Owner0))
			Expect(dbpv.Access(way)).To(Equal(uint8(0)))
		}

		victim, err := dbpv.GetReplacementIndex(ctl, policy.Owner1)
		Expect(err).NotTo(HaveOccurred())
		Expect(victim).To(Equal(0))

		Expect(dbpv.RRPV(0)).To(Equal(uint8(2)))
		Expect(dbpv.OwnerOf(0)).To(Equal(policy.Owner1))
		Expect(dbpv.Access(0)).To(Equal(uint8(0)))
	})

	It("protects a block at RRPV 0 on hit and counts reuse on eviction", func() {
		way, err := dbpv.GetReplacementIndex(ctl, policy.Owner0)
		Expect(err).NotTo(HaveOccurred())
		ctl.install(way)

		Expect(dbpv.UpdateOnHit(way)).To(Succeed())
		Expect(dbpv.RRPV(way)).To(Equal(uint8(0)))
		Expect(dbpv.Access(way)).To(Equal(uint8(1)))

		for i := 0; i < 3; i++ {
			w, err := dbpv.GetReplacementIndex(ctl, policy.Owner1)
			Expect(err).NotTo(HaveOccurred())
			ctl.install(w)
		}
		// way's block is now the sole owner-0 block and the only one ever
		// hit; keep missing with owner 1 until it is evicted and confirm it
		// retires as reused, not dead.
		for dbpv.OwnerOf(way) == policy.Owner0 {
			_, err = dbpv.GetReplacementIndex(ctl, policy.Owner1)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(ctx.TotalDead(policy.Owner0)).To(BeZero())
	})

	It("rejects an invalid owner", func() {
		_, err := dbpv.GetReplacementIndex(ctl, policy.Owner(7))
		Expect(err).To(MatchError(policy.ErrInvariantViolation))
	})

	It("rejects an out-of-range hit way", func() {
		Expect(dbpv.UpdateOnHit(99)).To(MatchError(policy.ErrInvariantViolation))
	})
})
