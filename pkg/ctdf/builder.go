package ctdf

import (
	"fmt"
	"time"
)

// Builder assembles a base schedule snapshot. It is used by the schedule
// loaders and by tests to describe fixtures tersely.
type Builder struct {
	data *Data
}

func NewBuilder(begin time.Time, days int) *Builder {
	pt := NewPTData()
	return &Builder{
		data: &Data{
			Meta: MetaData{ProductionDate: NewDatePeriod(begin, days)},
			PT:   pt,
		},
	}
}

func (b *Builder) Data() *Data {
	return b.data
}

func (b *Builder) Network(uri string) *Network {
	if idx := b.data.PT.NetworkIdx(uri); idx >= 0 {
		return b.data.PT.Networks[idx]
	}
	return b.data.PT.AddNetwork(&Network{URI: uri, Name: uri})
}

// Line returns the line named uri, creating it in network when it is new.
// An empty network puts the line in a default network.
func (b *Builder) Line(uri string, network string) *Line {
	if idx := b.data.PT.LineIdx(uri); idx >= 0 {
		return b.data.PT.Lines[idx]
	}
	if network == "" {
		network = "base_network"
	}
	return b.data.PT.AddLine(&Line{URI: uri, Name: uri, Code: uri, Network: b.Network(network).Idx})
}

func (b *Builder) Route(uri string, line string) *Route {
	if idx := b.data.PT.RouteIdx(uri); idx >= 0 {
		return b.data.PT.Routes[idx]
	}
	return b.data.PT.AddRoute(&Route{URI: uri, Name: uri, Line: b.Line(line, "").Idx})
}

// StopArea creates the stop area and its stop points.
func (b *Builder) StopArea(uri string, stopPoints ...string) *StopArea {
	sa := b.stopArea(uri)
	for _, sp := range stopPoints {
		b.StopPoint(sp, uri)
	}
	return sa
}

func (b *Builder) stopArea(uri string) *StopArea {
	if idx := b.data.PT.StopAreaIdx(uri); idx >= 0 {
		return b.data.PT.StopAreas[idx]
	}
	return b.data.PT.AddStopArea(&StopArea{URI: uri, Name: uri})
}

// StopPoint returns the stop point named uri. A new stop point without a
// stop area gets one of the same name.
func (b *Builder) StopPoint(uri string, stopArea string) *StopPoint {
	if idx := b.data.PT.StopPointIdx(uri); idx >= 0 {
		return b.data.PT.StopPoints[idx]
	}
	if stopArea == "" {
		stopArea = uri
	}
	return b.data.PT.AddStopPoint(&StopPoint{URI: uri, Name: uri, StopArea: b.stopArea(stopArea).Idx})
}

func (b *Builder) Company(uri string) *Company {
	if idx := b.data.PT.CompanyIdx(uri); idx >= 0 {
		return b.data.PT.Companies[idx]
	}
	return b.data.PT.AddCompany(&Company{URI: uri, Name: uri})
}

func (b *Builder) PhysicalMode(uri string) *PhysicalMode {
	if idx := b.data.PT.PhysicalModeIdx(uri); idx >= 0 {
		return b.data.PT.PhysicalModes[idx]
	}
	return b.data.PT.AddPhysicalMode(&PhysicalMode{URI: uri, Name: uri})
}

// VJ starts a base vehicle journey on line running on the days of pattern,
// day 0 being the rightmost character. An empty pattern means every day.
func (b *Builder) VJ(line string, pattern string) *VJBuilder {
	production := b.data.Meta.ProductionDate
	vp := NewValidityPattern(production.Begin, production.Days)
	if pattern == "" {
		for day := 0; day < production.Days; day++ {
			vp.Add(day)
		}
	} else {
		vp = ParseValidityPattern(production.Begin, production.Days, pattern)
	}

	return &VJBuilder{
		builder: b,
		line:    line,
		vp:      vp,
		vj: &VehicleJourney{
			URI:           fmt.Sprintf("vj:%s:%d", line, len(b.data.PT.VehicleJourneys)),
			RealtimeLevel: RTLevelBase,
			Company:       -1,
			PhysicalMode:  -1,
		},
	}
}

type VJBuilder struct {
	builder *Builder
	line    string
	route   string
	metaVJ  string
	vp      ValidityPattern
	vj      *VehicleJourney
	err     error
}

func (v *VJBuilder) URI(uri string) *VJBuilder {
	v.vj.URI = uri
	return v
}

func (v *VJBuilder) Name(name string) *VJBuilder {
	v.vj.Name = name
	return v
}

func (v *VJBuilder) Route(uri string) *VJBuilder {
	v.route = uri
	return v
}

func (v *VJBuilder) MetaVJ(uri string) *VJBuilder {
	v.metaVJ = uri
	return v
}

func (v *VJBuilder) Company(uri string) *VJBuilder {
	v.vj.Company = v.builder.Company(uri).Idx
	return v
}

func (v *VJBuilder) PhysicalMode(uri string) *VJBuilder {
	v.vj.PhysicalMode = v.builder.PhysicalMode(uri).Idx
	return v
}

// Pattern replaces the running days.
func (v *VJBuilder) Pattern(vp ValidityPattern) *VJBuilder {
	v.vp = vp
	return v
}

func (v *VJBuilder) Attributes(attributes VehicleJourneyAttributes) *VJBuilder {
	v.vj.Attributes = attributes
	return v
}

// St adds a stop time from "HH:MM[:SS]" clock strings. An empty departure
// equals the arrival.
func (v *VJBuilder) St(stopPoint string, arrival string, departure string) *VJBuilder {
	return v.StBoarding(stopPoint, arrival, departure, "", "")
}

// StBoarding adds a stop time with explicit boarding and alighting times.
// Empty ones equal the departure and the arrival.
func (v *VJBuilder) StBoarding(stopPoint string, arrival, departure, boarding, alighting string) *VJBuilder {
	if departure == "" {
		departure = arrival
	}
	if boarding == "" {
		boarding = departure
	}
	if alighting == "" {
		alighting = arrival
	}
	seconds := make([]int, 0, 4)
	for _, clock := range []string{arrival, departure, boarding, alighting} {
		value, err := ParseClock(clock)
		if err != nil && v.err == nil {
			v.err = err
		}
		seconds = append(seconds, value)
	}

	return v.StSeconds(stopPoint, seconds[0], seconds[1], seconds[2], seconds[3])
}

func (v *VJBuilder) StSeconds(stopPoint string, arrival, departure, boarding, alighting int) *VJBuilder {
	v.vj.StopTimes = append(v.vj.StopTimes, StopTime{
		StopPoint:      v.builder.StopPoint(stopPoint, "").Idx,
		ArrivalTime:    arrival,
		DepartureTime:  departure,
		BoardingTime:   boarding,
		AlightingTime:  alighting,
		PickUpAllowed:  true,
		DropOffAllowed: true,
	})
	return v
}

// Boarding sets the pick-up and drop-off flags of the last stop time.
func (v *VJBuilder) Boarding(pickUp bool, dropOff bool) *VJBuilder {
	if last := len(v.vj.StopTimes) - 1; last >= 0 {
		v.vj.StopTimes[last].PickUpAllowed = pickUp
		v.vj.StopTimes[last].DropOffAllowed = dropOff
	}
	return v
}

// Make registers the vehicle journey. It panics on an unparsable stop time,
// which only fixtures can produce.
func (v *VJBuilder) Make() *VehicleJourney {
	if v.err != nil {
		panic(v.err)
	}
	if v.route == "" {
		v.route = v.line + ":0"
	}
	if v.metaVJ == "" {
		v.metaVJ = v.vj.URI
	}
	if v.vj.Name == "" {
		v.vj.Name = v.vj.URI
	}
	v.builder.Line(v.line, "")
	v.vj.Route = v.builder.Route(v.route, v.line).Idx
	for _, level := range RTLevels {
		v.vj.SetVP(level, v.vp)
	}

	mvj := v.builder.data.PT.GetOrCreateMetaVJ(v.metaVJ)
	return v.builder.data.PT.AddVehicleJourney(mvj, v.vj)
}

// Block links prev and next as consecutive journeys of the same vehicle.
func (b *Builder) Block(prev, next *VehicleJourney) {
	prev.NextVJ = next.Handle
	next.PrevVJ = prev.Handle
}

// Finish returns the snapshot.
func (b *Builder) Finish() *Data {
	b.data.Meta.LoadedAt = time.Now().UTC()
	return b.data
}
