package policy

// maybeRepartition implements C8: invoked from DBASP's GetReplacementIndex
// on every miss, it runs the UCP solver only when the elapsed-million count
// exceeds lastCallMillion, then advances lastCallMillion to one past the
// current million. It therefore fires at most once in any million cycles,
// and never in the million right after a trigger; otherwise it is a no-op.
func (c *Context) maybeRepartition() {
	cycles := c.cycleCount()
	millionsElapsed := cycles / 1_000_000
	if millionsElapsed <= c.lastCallMillion {
		return
	}
	c.lastCallMillion = millionsElapsed + 1
	c.repartition()
}

// repartition recomputes ways_quota from the recency histograms, per spec
// 4.8. Neither owner can end up with zero ways: j* ranges over [1, N-1].
func (c *Context) repartition() {
	n := c.numWays

	hit0 := make([]uint64, n+1)
	hit1 := make([]uint64, n+1)
	for w := 0; w < n; w++ {
		hit0[w+1] = hit0[w] + c.recencyCounter[Owner0][w]
		hit1[w+1] = hit1[w] + c.recencyCounter[Owner1][w]
	}

	total0 := int64(c.totalAccess(Owner0))
	total1 := int64(c.totalAccess(Owner1))

	miss0 := func(w int) int64 { return total0 - int64(hit0[w]) }
	miss1 := func(w int) int64 { return total1 - int64(hit1[w]) }

	bestJ := 1
	bestUtil := miss0(0) - miss0(1) + miss1(0) - miss1(n-1)
	c.log.Debugw("ucp utility", "j", 1, "utility", bestUtil, "miss0_0", miss0(0), "miss0_j", miss0(1), "miss1_0", miss1(0), "miss1_nj", miss1(n-1))

	for j := 2; j < n; j++ {
		util := (miss0(0) - miss0(j)) + (miss1(0) - miss1(n-j))
		c.log.Debugw("ucp utility", "j", j, "utility", util, "miss0_0", miss0(0), "miss0_j", miss0(j), "miss1_0", miss1(0), "miss1_nj", miss1(n-j))
		if util > bestUtil {
			bestUtil = util
			bestJ = j
		}
	}

	c.waysQuota[Owner0] = bestJ
	c.waysQuota[Owner1] = n - bestJ
	c.log.Infow("ucp repartition", "ways0", bestJ, "ways1", n-bestJ, "utility", bestUtil)
}
