package policy

// ReuseClass classifies a block's saturating access counter at the moment
// it is evicted.
type ReuseClass int

const (
	ReuseDead ReuseClass = iota
	ReuseOnce
	ReuseTwice
	ReuseThriceOrMore
)

// classifyReuse buckets a final access-counter reading per spec 4.2. The
// thrice-or-more bucket only applies to policies running with accessMax==3
// (DBPV); DBASP and DBPV_DYN saturate at 1, so their access value is always
// 0 or 1 and this never reaches ReuseTwice/ReuseThriceOrMore for them.
func classifyReuse(access uint8) ReuseClass {
	switch {
	case access == 0:
		return ReuseDead
	case access == 1:
		return ReuseOnce
	case access == 2:
		return ReuseTwice
	default:
		return ReuseThriceOrMore
	}
}
