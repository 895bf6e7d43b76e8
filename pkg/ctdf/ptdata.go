package ctdf

import (
	"time"

	"golang.org/x/exp/slices"
)

// PTData is the schedule graph of one snapshot.
type PTData struct {
	Networks      []*Network
	Lines         []*Line
	Routes        []*Route
	StopAreas     []*StopArea
	StopPoints    []*StopPoint
	Companies     []*Company
	PhysicalModes []*PhysicalMode

	// VehicleJourneys is dense: VehicleJourneys[i].Idx == i.
	VehicleJourneys []*VehicleJourney
	MetaVJs         []Handle

	vjs     Arena[VehicleJourney]
	metaVJs Arena[MetaVehicleJourney]

	networksByURI      map[string]int
	linesByURI         map[string]int
	routesByURI        map[string]int
	stopAreasByURI     map[string]int
	stopPointsByURI    map[string]int
	companiesByURI     map[string]int
	physicalModesByURI map[string]int
	vjsByURI           map[string]Handle
	metaVJsByURI       map[string]Handle

	Disruptions *DisruptionHolder
}

func NewPTData() *PTData {
	return &PTData{
		networksByURI:      map[string]int{},
		linesByURI:         map[string]int{},
		routesByURI:        map[string]int{},
		stopAreasByURI:     map[string]int{},
		stopPointsByURI:    map[string]int{},
		companiesByURI:     map[string]int{},
		physicalModesByURI: map[string]int{},
		vjsByURI:           map[string]Handle{},
		metaVJsByURI:       map[string]Handle{},
		Disruptions:        NewDisruptionHolder(),
	}
}

func lookup(index map[string]int, uri string) int {
	if idx, ok := index[uri]; ok {
		return idx
	}
	return -1
}

func (pt *PTData) NetworkIdx(uri string) int      { return lookup(pt.networksByURI, uri) }
func (pt *PTData) LineIdx(uri string) int         { return lookup(pt.linesByURI, uri) }
func (pt *PTData) RouteIdx(uri string) int        { return lookup(pt.routesByURI, uri) }
func (pt *PTData) StopAreaIdx(uri string) int     { return lookup(pt.stopAreasByURI, uri) }
func (pt *PTData) StopPointIdx(uri string) int    { return lookup(pt.stopPointsByURI, uri) }
func (pt *PTData) CompanyIdx(uri string) int      { return lookup(pt.companiesByURI, uri) }
func (pt *PTData) PhysicalModeIdx(uri string) int { return lookup(pt.physicalModesByURI, uri) }

func (pt *PTData) AddNetwork(n *Network) *Network {
	n.Idx = len(pt.Networks)
	pt.Networks = append(pt.Networks, n)
	pt.networksByURI[n.URI] = n.Idx
	return n
}

func (pt *PTData) AddLine(l *Line) *Line {
	l.Idx = len(pt.Lines)
	pt.Lines = append(pt.Lines, l)
	pt.linesByURI[l.URI] = l.Idx
	if l.Network >= 0 {
		pt.Networks[l.Network].Lines = append(pt.Networks[l.Network].Lines, l.Idx)
	}
	return l
}

func (pt *PTData) AddRoute(r *Route) *Route {
	r.Idx = len(pt.Routes)
	pt.Routes = append(pt.Routes, r)
	pt.routesByURI[r.URI] = r.Idx
	pt.Lines[r.Line].Routes = append(pt.Lines[r.Line].Routes, r.Idx)
	return r
}

func (pt *PTData) AddStopArea(sa *StopArea) *StopArea {
	sa.Idx = len(pt.StopAreas)
	pt.StopAreas = append(pt.StopAreas, sa)
	pt.stopAreasByURI[sa.URI] = sa.Idx
	return sa
}

func (pt *PTData) AddStopPoint(sp *StopPoint) *StopPoint {
	sp.Idx = len(pt.StopPoints)
	pt.StopPoints = append(pt.StopPoints, sp)
	pt.stopPointsByURI[sp.URI] = sp.Idx
	if sp.StopArea >= 0 {
		pt.StopAreas[sp.StopArea].StopPoints = append(pt.StopAreas[sp.StopArea].StopPoints, sp.Idx)
	}
	return sp
}

func (pt *PTData) AddCompany(c *Company) *Company {
	c.Idx = len(pt.Companies)
	pt.Companies = append(pt.Companies, c)
	pt.companiesByURI[c.URI] = c.Idx
	return c
}

func (pt *PTData) AddPhysicalMode(m *PhysicalMode) *PhysicalMode {
	m.Idx = len(pt.PhysicalModes)
	pt.PhysicalModes = append(pt.PhysicalModes, m)
	pt.physicalModesByURI[m.URI] = m.Idx
	return m
}

func (pt *PTData) VehicleJourney(h Handle) (*VehicleJourney, bool) {
	return pt.vjs.Get(h)
}

func (pt *PTData) VehicleJourneyByURI(uri string) (*VehicleJourney, bool) {
	h, ok := pt.vjsByURI[uri]
	if !ok {
		return nil, false
	}
	return pt.vjs.Get(h)
}

func (pt *PTData) MetaVJ(h Handle) (*MetaVehicleJourney, bool) {
	return pt.metaVJs.Get(h)
}

func (pt *PTData) MetaVJByURI(uri string) (*MetaVehicleJourney, bool) {
	h, ok := pt.metaVJsByURI[uri]
	if !ok {
		return nil, false
	}
	return pt.metaVJs.Get(h)
}

// GetOrCreateMetaVJ returns the meta vehicle journey named uri, creating it if needed.
func (pt *PTData) GetOrCreateMetaVJ(uri string) *MetaVehicleJourney {
	if mvj, ok := pt.MetaVJByURI(uri); ok {
		return mvj
	}
	mvj := &MetaVehicleJourney{URI: uri}
	mvj.Handle = pt.metaVJs.Insert(mvj)
	pt.MetaVJs = append(pt.MetaVJs, mvj.Handle)
	pt.metaVJsByURI[uri] = mvj.Handle
	return mvj
}

// AddVehicleJourney registers vj at the end of the collection, on its route
// and meta vehicle journey.
func (pt *PTData) AddVehicleJourney(mvj *MetaVehicleJourney, vj *VehicleJourney) *VehicleJourney {
	vj.Handle = pt.vjs.Insert(vj)
	vj.MetaVJ = mvj.Handle
	vj.Idx = len(pt.VehicleJourneys)
	pt.VehicleJourneys = append(pt.VehicleJourneys, vj)
	pt.vjsByURI[vj.URI] = vj.Handle
	mvj.VehicleJourneys[vj.RealtimeLevel] = append(mvj.VehicleJourneys[vj.RealtimeLevel], vj.Handle)
	if vj.Route >= 0 {
		pt.Routes[vj.Route].VehicleJourneys = append(pt.Routes[vj.Route].VehicleJourneys, vj.Handle)
	}
	return vj
}

// VehicleJourneysOf resolves the journeys of mvj created at level.
func (pt *PTData) VehicleJourneysOf(mvj *MetaVehicleJourney, level RTLevel) []*VehicleJourney {
	vjs := make([]*VehicleJourney, 0, len(mvj.VehicleJourneys[level]))
	for _, h := range mvj.VehicleJourneys[level] {
		if vj, ok := pt.vjs.Get(h); ok {
			vjs = append(vjs, vj)
		}
	}
	return vjs
}

// AllVehicleJourneysOf resolves every journey of mvj, base first.
func (pt *PTData) AllVehicleJourneysOf(mvj *MetaVehicleJourney) []*VehicleJourney {
	var vjs []*VehicleJourney
	for _, level := range RTLevels {
		vjs = append(vjs, pt.VehicleJourneysOf(mvj, level)...)
	}
	return vjs
}

// CancelVJ removes from every journey of mvj, at level and above, the days on
// which the journey runs during one of periods. A route filter of -1 means
// every route.
func (pt *PTData) CancelVJ(mvj *MetaVehicleJourney, level RTLevel, periods []TimePeriod, production DatePeriod, route int) {
	for l := level; l >= RTLevelBase; l-- {
		for _, vj := range pt.VehicleJourneysOf(mvj, l) {
			if route >= 0 && vj.Route != route {
				continue
			}
			vp := vj.VP(level)
			for _, day := range vp.Days() {
				begin, end := vj.ExecutionPeriod(day, production)
				for _, period := range periods {
					if !period.Intersects(begin, end) {
						continue
					}
					for rl := level; rl <= RTLevelRealTime; rl++ {
						dayVP := vj.VP(rl)
						dayVP.Remove(day)
						vj.SetVP(rl, dayVP)
					}
					break
				}
			}
		}
	}
}

// CreateDiscreteVJ adds a journey to mvj running on the base days set in vp
// with stop times relative to those base days. Days now served by the new
// journey are removed from the other journeys of mvj at level and above,
// which can delete journeys that no longer run at all.
func (pt *PTData) CreateDiscreteVJ(mvj *MetaVehicleJourney, uri string, level RTLevel, vp ValidityPattern, route int, stopTimes []StopTime) *VehicleJourney {
	shift := 0
	if len(stopTimes) > 0 {
		shift = stopTimes[0].ArrivalTime / SecondsPerDay
		if stopTimes[0].ArrivalTime < 0 {
			shift = 0
		}
	}

	vj := &VehicleJourney{
		URI:           uri,
		Name:          uri,
		RealtimeLevel: level,
		Shift:         shift,
		Route:         route,
		Company:       -1,
		PhysicalMode:  -1,
		StopTimes:     make([]StopTime, 0, len(stopTimes)),
	}
	for _, st := range stopTimes {
		vj.StopTimes = append(vj.StopTimes, st.Shifted(-shift*SecondsPerDay))
	}

	empty := NewValidityPattern(vp.Beginning, vp.Length)
	shiftedVP := vp.ShiftLeft(shift)
	for _, l := range RTLevels {
		if l < level {
			vj.SetVP(l, empty)
		} else {
			vj.SetVP(l, shiftedVP)
		}
	}

	for _, other := range pt.AllVehicleJourneysOf(mvj) {
		removed := vp.ShiftLeft(other.Shift).Not()
		for l := level; l <= RTLevelRealTime; l++ {
			other.SetVP(l, other.VP(l).And(removed))
		}
	}

	pt.AddVehicleJourney(mvj, vj)
	pt.CleanUpUselessVJs(mvj)

	return vj
}

// CleanUpUselessVJs deletes the derived journeys of mvj that run on no day
// and re-indexes the journey collection.
func (pt *PTData) CleanUpUselessVJs(mvj *MetaVehicleJourney) {
	removed := false
	for _, level := range RTLevels {
		if level == RTLevelBase {
			continue
		}
		kept := mvj.VehicleJourneys[level][:0]
		for _, h := range mvj.VehicleJourneys[level] {
			vj, ok := pt.vjs.Get(h)
			if !ok {
				continue
			}
			if !vj.Empty() {
				kept = append(kept, h)
				continue
			}
			pt.removeVehicleJourney(vj)
			removed = true
		}
		mvj.VehicleJourneys[level] = kept
	}

	if removed {
		pt.Reindex()
	}
}

func (pt *PTData) removeVehicleJourney(vj *VehicleJourney) {
	if vj.Route >= 0 {
		route := pt.Routes[vj.Route]
		route.VehicleJourneys = slices.DeleteFunc(route.VehicleJourneys, func(h Handle) bool { return h == vj.Handle })
	}
	if pt.vjsByURI[vj.URI] == vj.Handle {
		delete(pt.vjsByURI, vj.URI)
	}
	pt.vjs.Remove(vj.Handle)
}

// Reindex closes the gaps left by deleted journeys, keeping their order.
func (pt *PTData) Reindex() {
	kept := pt.VehicleJourneys[:0]
	for _, vj := range pt.VehicleJourneys {
		if !pt.vjs.Alive(vj.Handle) {
			continue
		}
		vj.Idx = len(kept)
		kept = append(kept, vj)
	}
	for i := len(kept); i < len(pt.VehicleJourneys); i++ {
		pt.VehicleJourneys[i] = nil
	}
	pt.VehicleJourneys = kept
}

// CountVehicleJourneys counts the journeys created at level.
func (pt *PTData) CountVehicleJourneys(level RTLevel) int {
	count := 0
	for _, vj := range pt.VehicleJourneys {
		if vj.RealtimeLevel == level {
			count++
		}
	}
	return count
}

func (pt *PTData) Clone() *PTData {
	out := &PTData{
		Networks:           make([]*Network, len(pt.Networks)),
		Lines:              make([]*Line, len(pt.Lines)),
		Routes:             make([]*Route, len(pt.Routes)),
		StopAreas:          make([]*StopArea, len(pt.StopAreas)),
		StopPoints:         make([]*StopPoint, len(pt.StopPoints)),
		Companies:          make([]*Company, len(pt.Companies)),
		PhysicalModes:      make([]*PhysicalMode, len(pt.PhysicalModes)),
		MetaVJs:            append([]Handle(nil), pt.MetaVJs...),
		networksByURI:      cloneIndex(pt.networksByURI),
		linesByURI:         cloneIndex(pt.linesByURI),
		routesByURI:        cloneIndex(pt.routesByURI),
		stopAreasByURI:     cloneIndex(pt.stopAreasByURI),
		stopPointsByURI:    cloneIndex(pt.stopPointsByURI),
		companiesByURI:     cloneIndex(pt.companiesByURI),
		physicalModesByURI: cloneIndex(pt.physicalModesByURI),
		vjsByURI:           cloneIndex(pt.vjsByURI),
		metaVJsByURI:       cloneIndex(pt.metaVJsByURI),
		Disruptions:        pt.Disruptions.Clone(),
	}
	for i, n := range pt.Networks {
		out.Networks[i] = n.clone()
	}
	for i, l := range pt.Lines {
		out.Lines[i] = l.clone()
	}
	for i, r := range pt.Routes {
		out.Routes[i] = r.clone()
	}
	for i, sa := range pt.StopAreas {
		out.StopAreas[i] = sa.clone()
	}
	for i, sp := range pt.StopPoints {
		out.StopPoints[i] = sp.clone()
	}
	for i, c := range pt.Companies {
		company := *c
		out.Companies[i] = &company
	}
	for i, m := range pt.PhysicalModes {
		mode := *m
		out.PhysicalModes[i] = &mode
	}

	out.vjs = pt.vjs.Clone(func(vj *VehicleJourney) *VehicleJourney { return vj.clone() })
	out.metaVJs = pt.metaVJs.Clone(func(mvj *MetaVehicleJourney) *MetaVehicleJourney { return mvj.clone() })
	out.VehicleJourneys = make([]*VehicleJourney, 0, len(pt.VehicleJourneys))
	for _, vj := range pt.VehicleJourneys {
		clone, _ := out.vjs.Get(vj.Handle)
		out.VehicleJourneys = append(out.VehicleJourneys, clone)
	}

	return out
}

func cloneIndex[V any](index map[string]V) map[string]V {
	out := make(map[string]V, len(index))
	for k, v := range index {
		out[k] = v
	}
	return out
}

type MetaData struct {
	ProductionDate DatePeriod `groups:"basic"`
	DatasetVersion string     `groups:"basic"`
	LoadedAt       time.Time  `groups:"basic"`
}

// Data is one snapshot: the schedule graph and the disruptions applied to it.
type Data struct {
	Meta MetaData
	PT   *PTData

	LastRealtimeUpdate time.Time
}

func (d *Data) Clone() *Data {
	return &Data{
		Meta:               d.Meta,
		PT:                 d.PT.Clone(),
		LastRealtimeUpdate: d.LastRealtimeUpdate,
	}
}

// EmptyVP is a pattern of the production period with no day set.
func (d *Data) EmptyVP() ValidityPattern {
	return NewValidityPattern(d.Meta.ProductionDate.Begin, d.Meta.ProductionDate.Days)
}
