package ctdf

// ImpactRefs is a list of non owning impact handles. Entries whose impact
// has been deleted resolve to nothing and are dropped by Purge.
type ImpactRefs []Handle

// Add appends h unless it is already present and reports whether it was added.
func (r *ImpactRefs) Add(h Handle) bool {
	if r.Contains(h) {
		return false
	}
	*r = append(*r, h)

	return true
}

func (r ImpactRefs) Contains(h Handle) bool {
	for _, existing := range r {
		if existing == h {
			return true
		}
	}

	return false
}

func (r *ImpactRefs) Remove(h Handle) {
	out := (*r)[:0]
	for _, existing := range *r {
		if existing != h {
			out = append(out, existing)
		}
	}
	*r = out
}

// Purge drops the handles that no longer resolve in holder.
func (r *ImpactRefs) Purge(holder *DisruptionHolder) {
	out := (*r)[:0]
	for _, existing := range *r {
		if holder.impacts.Alive(existing) {
			out = append(out, existing)
		}
	}
	*r = out
}

// Live resolves the handles that still point to an impact.
func (r ImpactRefs) Live(holder *DisruptionHolder) []*Impact {
	impacts := make([]*Impact, 0, len(r))
	for _, h := range r {
		if impact, ok := holder.Impact(h); ok {
			impacts = append(impacts, impact)
		}
	}

	return impacts
}

func (r ImpactRefs) clone() ImpactRefs {
	if r == nil {
		return nil
	}

	return append(ImpactRefs(nil), r...)
}
