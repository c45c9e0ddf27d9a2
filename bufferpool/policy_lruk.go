package bufferpool

// lrukPolicy evicts based on backward K-distance: the time since the K-th
// most recent access. A frame with fewer than K recorded accesses has
// backward distance +infinity and is chosen before any frame with a full
// K-history, tie-broken by least-recent timestamp. Grounded on
// other_examples' kev1N916 LRU-K (HIST/LAST per-key timestamp history),
// adapted from a standalone cache onto per-frame policyState.
type lrukPolicy struct {
	k     int
	timer uint64
}

func newLRUKPolicy(k int) *lrukPolicy {
	return &lrukPolicy{k: k}
}

// lrukHistory is the bounded, oldest-first ring of up to K access
// timestamps for one frame.
type lrukHistory struct {
	ts []uint64
}

func (p *lrukPolicy) record(fa frameAccessor, slot int) {
	p.timer++
	st, _ := fa.PolicyStateAt(slot).(*lrukHistory)
	if st == nil {
		st = &lrukHistory{}
	}
	if len(st.ts) < p.k {
		st.ts = append(st.ts, p.timer)
	} else {
		copy(st.ts, st.ts[1:])
		st.ts[len(st.ts)-1] = p.timer
	}
	fa.SetPolicyStateAt(slot, st)
}

func (p *lrukPolicy) OnAdmit(fa frameAccessor, slot int, _ PageNo) { p.record(fa, slot) }
func (p *lrukPolicy) OnHit(fa frameAccessor, slot int)             { p.record(fa, slot) }
func (p *lrukPolicy) OnUnpin(fa frameAccessor, slot int)           {}
func (p *lrukPolicy) OnEvict(fa frameAccessor, slot int)           { fa.SetPolicyStateAt(slot, nil) }

func (p *lrukPolicy) ChooseVictim(fa frameAccessor) (int, bool) {
	if slot, ok := firstEmptySlot(fa); ok {
		return slot, true
	}

	best := -1
	bestInfinite := false
	var bestKey uint64
	for slot := 0; slot < fa.NumFrames(); slot++ {
		if fa.FixCountAt(slot) > 0 {
			continue
		}
		st, _ := fa.PolicyStateAt(slot).(*lrukHistory)
		var infinite bool
		var key uint64
		if st == nil || len(st.ts) < p.k {
			infinite = true
			if st != nil && len(st.ts) > 0 {
				key = st.ts[len(st.ts)-1]
			}
		} else {
			key = st.ts[0]
		}

		switch {
		case best == -1:
			best, bestInfinite, bestKey = slot, infinite, key
		case infinite && !bestInfinite:
			best, bestInfinite, bestKey = slot, infinite, key
		case infinite == bestInfinite && key < bestKey:
			best, bestInfinite, bestKey = slot, infinite, key
		}
	}
	return best, best != -1
}
