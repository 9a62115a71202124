package poller

// coreFarmPids are the farms polled at the fast cadence for global price widgets.
//
//	56:  2 = CAKE-MCOIN LP, 3 = BUSD-MCOIN LP
var coreFarmPids = map[uint64][]int{
	56:  {2, 3},
	137: {2, 3},
	97:  {4, 10},
	5:   {13, 11},
	1:   {124, 125},
}

// CoreFarmPids returns a copy of the chain's core pid list, or nil.
func CoreFarmPids(chainID uint64) []int {
	pids, ok := coreFarmPids[chainID]
	if !ok {
		return nil
	}
	out := make([]int, len(pids))
	copy(out, pids)
	return out
}
