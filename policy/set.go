package policy

// Set holds the per-way metadata a replacement policy mutates: the RRPV
// state (C1), the saturating reuse counter (C2) and the owner tag (C3). It
// has no knowledge of which policy drives it; DBPV, DBPVDyn and DBASP all
// embed one.
type Set struct {
	id                  int
	numWays             int
	rrpv                []uint8
	access              []uint8
	owner               []Owner
	replacementPointer  int
	rrpvMax             uint8
	rrpvInsert          uint8
	accessMax           uint8
}

func newSet(id, numWays int, rrpvMax, rrpvInsert, accessMax uint8) *Set {
	s := &Set{
		id:         id,
		numWays:    numWays,
		rrpv:       make([]uint8, numWays),
		access:     make([]uint8, numWays),
		owner:      make([]Owner, numWays),
		rrpvMax:    rrpvMax,
		rrpvInsert: rrpvInsert,
		accessMax:  accessMax,
	}
	// Sentinel: no slot has carried a real block yet. Any value strictly
	// above rrpvMax is never produced by a legitimate operation, so it can
	// never be mistaken for a real RRPV by the victim search.
	sentinel := s.rrpvInsert + 5
	for i := range s.rrpv {
		s.rrpv[i] = sentinel
	}
	return s
}

// ID returns the set's monotonically assigned identifier.
func (s *Set) ID() int { return s.id }

// NumWays returns the set's associativity.
func (s *Set) NumWays() int { return s.numWays }

// RRPV returns way i's current re-reference prediction value, for tests and
// diagnostics.
func (s *Set) RRPV(way int) uint8 { return s.rrpv[way] }

// Access returns way i's current saturating reuse counter.
func (s *Set) Access(way int) uint8 { return s.access[way] }

// OwnerOf returns way i's owner tag.
func (s *Set) OwnerOf(way int) Owner { return s.owner[way] }

// insertAtMRU promotes way to RRPV 0, incrementing (capped at rrpvMax) every
// other way whose RRPV was strictly less than way's RRPV before promotion.
func (s *Set) insertAtMRU(way int) {
	old := s.rrpv[way]
	for j := range s.rrpv {
		if j == way {
			continue
		}
		if s.rrpv[j] < old {
			s.rrpv[j] = saturating(s.rrpv[j], s.rrpvMax)
		}
	}
	s.rrpv[way] = 0
}

// insertNearLRU demotes the lowest-indexed other way (if any) sitting at
// originRRPV-1 to originRRPV, then places way at originRRPV-1. If no block sits at
// originRRPV-1 the demotion step is a no-op, per spec.
func (s *Set) insertNearLRU(way int, originRRPV uint8) {
	if originRRPV == 0 {
		s.rrpv[way] = 0
		return
	}
	for j := range s.rrpv {
		if j == way {
			continue
		}
		if s.rrpv[j] == originRRPV-1 {
			s.rrpv[j] = originRRPV
			break
		}
	}
	s.rrpv[way] = originRRPV - 1
}

// agingSweep increments every way's RRPV that has room left, in one pass.
func (s *Set) agingSweep() {
	for j := range s.rrpv {
		if s.rrpv[j] < s.rrpvMax {
			s.rrpv[j]++
		}
	}
}

// findInvalidWay returns the lowest-indexed invalid way, or -1 if the set is
// full. No aging or rotation happens on this path.
func (s *Set) findInvalidWay(cntlr Controller) int {
	for i := 0; i < s.numWays; i++ {
		if !cntlr.IsValid(i) {
			return i
		}
	}
	return -1
}

// findVictimSRRIP performs the SRRIP/DBPV victim search of spec 4.1: rotate
// through all ways from the replacement pointer; if any way's RRPV has
// saturated, it is the victim. Otherwise age every way and retry, for at
// most rrpvMax+1 sweeps.
func (s *Set) findVictimSRRIP() (way int, sweeps int, err error) {
	maxSweeps := int(s.rrpvMax) + 1
	for sweeps = 0; sweeps <= maxSweeps; sweeps++ {
		for i := 0; i < s.numWays; i++ {
			idx := s.replacementPointer
			cur := s.rrpv[idx]
			s.replacementPointer = (s.replacementPointer + 1) % s.numWays
			if cur >= s.rrpvMax {
				return idx, sweeps, nil
			}
		}
		if sweeps == maxSweeps {
			break
		}
		s.agingSweep()
	}
	return -1, sweeps, invariantf("set %d: victim search exhausted %d aging sweeps", s.id, maxSweeps)
}

// countRRPVMaxed reports how many ways currently sit at rrpvMax, used by
// DBPV_DYN's tie counter.
func (s *Set) countRRPVMaxed() int {
	n := 0
	for _, v := range s.rrpv {
		if v == s.rrpvMax {
			n++
		}
	}
	return n
}

func saturating(c, max uint8) uint8 {
	if c < max {
		return c + 1
	}
	return max
}
