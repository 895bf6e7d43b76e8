package ctdf

import (
	"golang.org/x/exp/slices"
)

// DisruptionHolder owns every disruption of a snapshot, and through them
// their impacts. Everything else refers to impacts by handle.
type DisruptionHolder struct {
	disruptions map[string]*Disruption
	order       []string

	impacts     Arena[Impact]
	weakImpacts []Handle

	severities map[string]*Severity
	causes     map[string]*Cause
	tags       map[string]*Tag
}

func NewDisruptionHolder() *DisruptionHolder {
	return &DisruptionHolder{
		disruptions: map[string]*Disruption{},
		severities:  map[string]*Severity{},
		causes:      map[string]*Cause{},
		tags:        map[string]*Tag{},
	}
}

// MakeDisruption returns the disruption named uri, creating an empty one at
// level if it does not exist.
func (h *DisruptionHolder) MakeDisruption(uri string, level RTLevel) *Disruption {
	if d, ok := h.disruptions[uri]; ok {
		return d
	}
	d := &Disruption{URI: uri, RTLevel: level}
	h.disruptions[uri] = d
	h.order = append(h.order, uri)

	return d
}

func (h *DisruptionHolder) Get(uri string) (*Disruption, bool) {
	d, ok := h.disruptions[uri]
	return d, ok
}

// Pop removes the disruption from the holder and hands it back to the
// caller. Its impacts stop resolving.
func (h *DisruptionHolder) Pop(uri string) (*Disruption, bool) {
	d, ok := h.disruptions[uri]
	if !ok {
		return nil, false
	}
	delete(h.disruptions, uri)
	h.order = slices.DeleteFunc(h.order, func(o string) bool { return o == uri })
	for _, impact := range d.Impacts {
		h.impacts.Remove(impact.Handle)
	}

	return d, true
}

func (h *DisruptionHolder) Len() int {
	return len(h.disruptions)
}

// Disruptions lists the disruptions in insertion order.
func (h *DisruptionHolder) Disruptions() []*Disruption {
	out := make([]*Disruption, 0, len(h.order))
	for _, uri := range h.order {
		out = append(out, h.disruptions[uri])
	}

	return out
}

func (h *DisruptionHolder) Impact(handle Handle) (*Impact, bool) {
	return h.impacts.Get(handle)
}

// WeakImpacts resolves the impacts still alive.
func (h *DisruptionHolder) WeakImpacts() []*Impact {
	return ImpactRefs(h.weakImpacts).Live(h)
}

// CleanWeakImpacts forgets the handles of deleted impacts.
func (h *DisruptionHolder) CleanWeakImpacts() {
	refs := ImpactRefs(h.weakImpacts)
	refs.Purge(h)
	h.weakImpacts = refs
}

// Severity returns the pooled severity id, registering s under that id when
// it is new. A nil s only looks up.
func (h *DisruptionHolder) Severity(id string, s *Severity) (*Severity, bool) {
	if existing, ok := h.severities[id]; ok {
		if s != nil {
			*existing = *s
			existing.ID = id
		}
		return existing, true
	}
	if s == nil {
		return nil, false
	}
	s.ID = id
	h.severities[id] = s

	return s, true
}

func (h *DisruptionHolder) Cause(id string, c *Cause) *Cause {
	if existing, ok := h.causes[id]; ok {
		if c != nil {
			*existing = *c
			existing.ID = id
		}
		return existing
	}
	if c == nil {
		c = &Cause{}
	}
	c.ID = id
	h.causes[id] = c

	return c
}

func (h *DisruptionHolder) Tag(id string, t *Tag) *Tag {
	if existing, ok := h.tags[id]; ok {
		if t != nil {
			*existing = *t
			existing.ID = id
		}
		return existing
	}
	if t == nil {
		t = &Tag{}
	}
	t.ID = id
	h.tags[id] = t

	return t
}

// Clone deep copies the holder. Impact handles stay valid in the copy.
func (h *DisruptionHolder) Clone() *DisruptionHolder {
	out := &DisruptionHolder{
		disruptions: make(map[string]*Disruption, len(h.disruptions)),
		order:       append([]string(nil), h.order...),
		weakImpacts: append([]Handle(nil), h.weakImpacts...),
		severities:  make(map[string]*Severity, len(h.severities)),
		causes:      make(map[string]*Cause, len(h.causes)),
		tags:        make(map[string]*Tag, len(h.tags)),
	}
	for id, s := range h.severities {
		severity := *s
		out.severities[id] = &severity
	}
	for id, c := range h.causes {
		cause := *c
		out.causes[id] = &cause
	}
	for id, t := range h.tags {
		tag := *t
		out.tags[id] = &tag
	}

	impacts := map[*Impact]*Impact{}
	for uri, d := range h.disruptions {
		disruption := *d
		disruption.Properties = append([]Property(nil), d.Properties...)
		if d.Cause != nil {
			disruption.Cause = out.causes[d.Cause.ID]
		}
		disruption.Tags = make([]*Tag, 0, len(d.Tags))
		for _, t := range d.Tags {
			disruption.Tags = append(disruption.Tags, out.tags[t.ID])
		}
		disruption.Impacts = make([]*Impact, 0, len(d.Impacts))
		for _, i := range d.Impacts {
			impact := *i
			impact.Disruption = &disruption
			impact.ApplicationPeriods = append([]TimePeriod(nil), i.ApplicationPeriods...)
			impact.Messages = append([]Message(nil), i.Messages...)
			impact.StopTimeUpdates = append([]StopTimeUpdate(nil), i.StopTimeUpdates...)
			impact.InformedEntities = append([]InformedEntity(nil), i.InformedEntities...)
			if i.Severity != nil {
				if pooled, ok := out.severities[i.Severity.ID]; ok {
					impact.Severity = pooled
				} else {
					severity := *i.Severity
					impact.Severity = &severity
				}
			}
			disruption.Impacts = append(disruption.Impacts, &impact)
			impacts[i] = &impact
		}
		out.disruptions[uri] = &disruption
	}

	out.impacts = h.impacts.Clone(func(i *Impact) *Impact {
		if clone, ok := impacts[i]; ok {
			return clone
		}
		impact := *i
		return &impact
	})

	return out
}
