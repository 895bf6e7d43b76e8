package disruptions

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/travigo/disruptions/pkg/ctdf"
)

// adder materialises one impact on the schedule.
type adder struct {
	data   *ctdf.Data
	impact *ctdf.Impact
	level  ctdf.RTLevel
	logger zerolog.Logger
}

func newAdder(data *ctdf.Data, impact *ctdf.Impact, logger zerolog.Logger) *adder {
	return &adder{
		data:   data,
		impact: impact,
		level:  impact.Disruption.RTLevel,
		logger: logger,
	}
}

func (a *adder) VisitNetwork(e ctdf.NetworkEntity) {
	for _, line := range a.data.PT.Networks[e.Network].Lines {
		a.VisitLine(ctdf.LineEntity{Line: line})
	}
}

func (a *adder) VisitLine(e ctdf.LineEntity) {
	for _, route := range a.data.PT.Lines[e.Line].Routes {
		a.VisitRoute(ctdf.RouteEntity{Route: route})
	}
}

func (a *adder) VisitRoute(e ctdf.RouteEntity) {
	for _, mvj := range metaVJsOfRoute(a.data.PT, e.Route) {
		a.applyOnMetaVJ(mvj, e.Route)
	}
}

func (a *adder) VisitMetaVJ(e ctdf.MetaVJEntity) {
	mvj, ok := a.data.PT.MetaVJ(e.MetaVJ)
	if !ok {
		return
	}
	a.applyOnMetaVJ(mvj, -1)
}

func (a *adder) VisitStopArea(e ctdf.StopAreaEntity) {
	for _, sp := range a.data.PT.StopAreas[e.StopArea].StopPoints {
		a.VisitStopPoint(ctdf.StopPointEntity{StopPoint: sp})
	}
}

func (a *adder) VisitUnknown(e ctdf.UnknownEntity) {
	a.logger.Debug().Str("kind", e.Kind).Str("uri", e.URI).Msg("Ignoring unknown informed entity")
}

func (a *adder) applyOnMetaVJ(mvj *ctdf.MetaVehicleJourney, route int) {
	pt := a.data.PT
	effect := a.impact.Effect()

	switch {
	case effect == ctdf.EffectNoService:
		pt.CancelVJ(mvj, a.level, a.impact.ApplicationPeriods, a.data.Meta.ProductionDate, route)
		mvj.PushUniqueImpact(a.impact)
	case effect.NeedsStopTimes() && len(a.impact.StopTimes()) > 0:
		if mvj.IsModifiedBy(a.impact) {
			return
		}
		a.createModifiedVJ(mvj, route)
		mvj.PushUniqueImpact(a.impact)
	default:
		a.logger.Debug().Str("vehicle_journey", mvj.URI).Msg("Unhandled action on meta vehicle journey")
	}
}

// baseDisruptedVP sets the production day of the start of every application period.
func (a *adder) baseDisruptedVP() ctdf.ValidityPattern {
	vp := a.data.EmptyVP()
	for _, period := range a.impact.ApplicationPeriods {
		if !a.data.Meta.ProductionDate.ContainsDate(period.Begin) {
			continue
		}
		vp.AddDate(period.Begin)
	}
	return vp
}

func (a *adder) createModifiedVJ(mvj *ctdf.MetaVehicleJourney, route int) {
	pt := a.data.PT
	baseVJs := pt.VehicleJourneysOf(mvj, ctdf.RTLevelBase)
	if route < 0 && len(baseVJs) > 0 {
		route = baseVJs[0].Route
	}

	uri := fmt.Sprintf("%s:modified:%d:%s", mvj.URI, len(mvj.VehicleJourneys[ctdf.RTLevelRealTime]), a.impact.Disruption.URI)
	stopTimes := a.impact.StopTimes()
	for i := range stopTimes {
		boarding, alighting := baseDwellDurations(pt, baseVJs, stopTimes, i)
		stopTimes[i].BoardingTime = stopTimes[i].DepartureTime - boarding
		stopTimes[i].AlightingTime = stopTimes[i].ArrivalTime + alighting
	}

	vj := pt.CreateDiscreteVJ(mvj, uri, ctdf.RTLevelRealTime, a.baseDisruptedVP(), route, stopTimes)

	if len(baseVJs) > 0 {
		base := baseVJs[0]
		if err := vj.CopyAttributesFrom(base); err != nil {
			a.logger.Error().Err(err).Str("vehicle_journey", uri).Msg("Failed to copy vehicle journey attributes")
		}
		vj.PhysicalMode = base.PhysicalMode
		vj.Name = base.Name
	} else {
		if len(pt.PhysicalModes) > 0 {
			vj.PhysicalMode = 0
		}
		vj.Name = uri
	}

	if a.impact.CompanyID != "" {
		if company := pt.CompanyIdx(a.impact.CompanyID); company >= 0 {
			vj.Company = company
		} else {
			a.logger.Warn().Str("company", a.impact.CompanyID).Str("vehicle_journey", uri).Msg("Company of the impact does not exist")
		}
	}
}

// baseDwellDurations finds the base stop time matching the i-th replacement
// stop time, the n-th visit of the same stop point, and returns its boarding
// and alighting durations. A missing base stop time gives zero durations.
func baseDwellDurations(pt *ctdf.PTData, baseVJs []*ctdf.VehicleJourney, stopTimes []ctdf.StopTime, i int) (int, int) {
	if len(baseVJs) == 0 {
		return 0, 0
	}
	stopPoint := stopTimes[i].StopPoint
	occurrence := 0
	for _, st := range stopTimes[:i] {
		if st.StopPoint == stopPoint {
			occurrence++
		}
	}
	for _, st := range baseVJs[0].StopTimes {
		if st.StopPoint != stopPoint {
			continue
		}
		if occurrence > 0 {
			occurrence--
			continue
		}
		return st.DepartureTime - st.BoardingTime, st.AlightingTime - st.ArrivalTime
	}
	return 0, 0
}

type impactedVJ struct {
	vj        ctdf.Handle
	vp        ctdf.ValidityPattern
	stopTimes []ctdf.StopTime
	cut       []int
}

func (a *adder) VisitStopPoint(e ctdf.StopPointEntity) {
	effect := a.impact.Effect()
	if effect != ctdf.EffectNoService && effect != ctdf.EffectDetour {
		a.logger.Debug().Str("stop_point", a.data.PT.StopPoints[e.StopPoint].URI).Str("effect", string(effect)).Msg("Unhandled action on stop point")
		return
	}

	pt := a.data.PT
	production := a.data.Meta.ProductionDate
	impactVP := a.impact.ApplicationDays(a.data.EmptyVP())

	var impacted []impactedVJ
	for _, vj := range pt.VehicleJourneys {
		vp := vj.VP(a.level)
		if vp.And(impactVP).None() {
			continue
		}

		newVP := a.data.EmptyVP()
		for _, period := range a.impact.ApplicationPeriods {
			newVP = newVP.Or(stopPointVisitDays(vj, e.StopPoint, vp, period, production))
		}
		if newVP.None() {
			continue
		}

		impacted = append(impacted, impactedVJ{vj: vj.Handle, vp: newVP.ShiftRight(vj.Shift)})
	}

	for _, candidate := range impacted {
		vj, ok := pt.VehicleJourney(candidate.vj)
		if !ok {
			a.logger.Debug().Msg("Impacted vehicle journey was deleted by a previous derivation")
			continue
		}

		stopTimes := make([]ctdf.StopTime, 0, len(vj.StopTimes))
		for _, st := range vj.StopTimes {
			if st.StopPoint == e.StopPoint {
				continue
			}
			stopTimes = append(stopTimes, st.Shifted(ctdf.SecondsPerDay*vj.Shift))
		}

		mvj, _ := pt.MetaVJ(vj.MetaVJ)
		mvj.PushUniqueImpact(a.impact)

		uri := fmt.Sprintf("%s:%s:%d%s", mvj.URI, a.level, len(mvj.VehicleJourneys[a.level]), concatenateImpactURIs(pt, mvj))
		newVP := candidate.vp.And(vj.VP(a.level).ShiftRight(vj.Shift))

		a.createFromOldVJ(mvj, vj, uri, newVP, stopTimes)
	}
}

// stopPointVisitDays lists the days of vp on which vj calls at stopPoint
// during period.
func stopPointVisitDays(vj *ctdf.VehicleJourney, stopPoint int, vp ctdf.ValidityPattern, period ctdf.TimePeriod, production ctdf.DatePeriod) ctdf.ValidityPattern {
	days := ctdf.NewValidityPattern(vp.Beginning, vp.Length)
	for _, day := range vp.Days() {
		date := production.Begin.AddDate(0, 0, day)
		for _, st := range vj.StopTimes {
			if st.StopPoint != stopPoint {
				continue
			}
			if visited(period, date, st.ArrivalTime, st.DepartureTime) {
				days.Add(day)
				break
			}
		}
	}
	return days
}

func visited(period ctdf.TimePeriod, date time.Time, arrival, departure int) bool {
	return period.Intersects(
		date.Add(time.Duration(arrival)*time.Second),
		date.Add(time.Duration(departure)*time.Second),
	)
}

// concatenateImpactURIs appends the disruption of every impact modifying
// mvj, once each.
func concatenateImpactURIs(pt *ctdf.PTData, mvj *ctdf.MetaVehicleJourney) string {
	var b strings.Builder
	seen := map[string]bool{}
	for _, impact := range mvj.ModifiedBy.Live(pt.Disruptions) {
		uri := impact.Disruption.URI
		if seen[uri] {
			continue
		}
		seen[uri] = true
		b.WriteString(":")
		b.WriteString(uri)
	}
	return b.String()
}

func (a *adder) VisitLineSection(e ctdf.LineSectionEntity) {
	pt := a.data.PT
	line := pt.Lines[e.Line]
	if a.impact.Effect() != ctdf.EffectNoService {
		a.logger.Debug().Str("line", line.URI).Str("effect", string(a.impact.Effect())).Msg("Unhandled action on line section")
		return
	}

	for _, candidate := range impactedVJsOfLineSection(a.data, a.impact, e, a.level) {
		vj, ok := pt.VehicleJourney(candidate.vj)
		if !ok {
			a.logger.Debug().Msg("Impacted vehicle journey was deleted by a previous derivation")
			continue
		}

		mvj, _ := pt.MetaVJ(vj.MetaVJ)
		mvj.PushUniqueImpact(a.impact)
		for _, sp := range candidate.cut {
			pt.StopPoints[sp].Impacts.Add(a.impact.Handle)
		}

		if len(candidate.stopTimes) == 0 {
			a.logger.Debug().Str("vehicle_journey", vj.URI).Msg("Every stop time is in the section, cancelling")
			pt.CancelVJ(mvj, a.level, a.impact.ApplicationPeriods, a.data.Meta.ProductionDate, -1)
			continue
		}

		uri := fmt.Sprintf("%s:%s:%d:%s", vj.URI, a.level, len(mvj.VehicleJourneys[a.level]), a.impact.Disruption.URI)
		newVP := candidate.vp.And(vj.VP(a.level).ShiftRight(vj.Shift))

		a.createFromOldVJ(mvj, vj, uri, newVP, candidate.stopTimes)
	}
}

// impactedVJsOfLineSection finds, on every route of the section, the
// journeys running through it during the impact and the stop times they
// keep once the section is cut out.
func impactedVJsOfLineSection(data *ctdf.Data, impact *ctdf.Impact, section ctdf.LineSectionEntity, level ctdf.RTLevel) []impactedVJ {
	pt := data.PT
	production := data.Meta.ProductionDate
	impactVP := impact.ApplicationDays(data.EmptyVP())

	routes := section.Routes
	if len(routes) == 0 {
		routes = pt.Lines[section.Line].Routes
	}

	var impacted []impactedVJ
	for _, route := range routes {
		for _, h := range pt.Routes[route].VehicleJourneys {
			vj, ok := pt.VehicleJourney(h)
			if !ok {
				continue
			}
			vp := vj.VP(level)
			if vp.And(impactVP).None() {
				continue
			}

			first, last := sectionBounds(pt, vj, section.StartArea, section.EndArea)
			if first < 0 {
				continue
			}

			newVP := data.EmptyVP()
			start, end := vj.StopTimes[first], vj.StopTimes[last]
			for _, day := range vp.Days() {
				date := production.Begin.AddDate(0, 0, day)
				for _, period := range impact.ApplicationPeriods {
					if visited(period, date, start.ArrivalTime, end.DepartureTime) {
						newVP.Add(day)
						break
					}
				}
			}
			if newVP.None() {
				continue
			}

			candidate := impactedVJ{vj: vj.Handle, vp: newVP.ShiftRight(vj.Shift)}
			for rank, st := range vj.StopTimes {
				if rank >= first && rank <= last {
					candidate.cut = append(candidate.cut, st.StopPoint)
					continue
				}
				candidate.stopTimes = append(candidate.stopTimes, st.Shifted(ctdf.SecondsPerDay*vj.Shift))
			}
			impacted = append(impacted, candidate)
		}
	}

	return impacted
}

// sectionBounds returns the longest run of stop times starting at the first
// call in startArea and ending at the last later call in endArea, or -1.
func sectionBounds(pt *ctdf.PTData, vj *ctdf.VehicleJourney, startArea, endArea int) (int, int) {
	first := -1
	for rank, st := range vj.StopTimes {
		if pt.StopPoints[st.StopPoint].StopArea == startArea {
			first = rank
			break
		}
	}
	if first < 0 {
		return -1, -1
	}
	for rank := len(vj.StopTimes) - 1; rank >= first; rank-- {
		if pt.StopPoints[vj.StopTimes[rank].StopPoint].StopArea == endArea {
			return first, rank
		}
	}
	return -1, -1
}

// createFromOldVJ derives a journey from vj. The attributes are read before
// the derivation since it can delete vj.
func (a *adder) createFromOldVJ(mvj *ctdf.MetaVehicleJourney, vj *ctdf.VehicleJourney, uri string, vp ctdf.ValidityPattern, stopTimes []ctdf.StopTime) *ctdf.VehicleJourney {
	pt := a.data.PT
	source := *vj

	newVJ := pt.CreateDiscreteVJ(mvj, uri, a.level, vp, source.Route, stopTimes)
	if err := newVJ.CopyAttributesFrom(&source); err != nil {
		a.logger.Error().Err(err).Str("vehicle_journey", uri).Msg("Failed to copy vehicle journey attributes")
	}

	if base := pt.VehicleJourneysOf(mvj, ctdf.RTLevelBase); len(base) > 0 {
		newVJ.PhysicalMode = base[0].PhysicalMode
		newVJ.Name = base[0].Name
	} else {
		newVJ.PhysicalMode = source.PhysicalMode
	}

	a.logger.Debug().Str("vehicle_journey", uri).Msg("Derived vehicle journey created")

	return newVJ
}

// metaVJsOfRoute lists once each the meta vehicle journeys with a journey on route.
func metaVJsOfRoute(pt *ctdf.PTData, route int) []*ctdf.MetaVehicleJourney {
	var mvjs []*ctdf.MetaVehicleJourney
	seen := map[ctdf.Handle]bool{}
	for _, h := range pt.Routes[route].VehicleJourneys {
		vj, ok := pt.VehicleJourney(h)
		if !ok || seen[vj.MetaVJ] {
			continue
		}
		seen[vj.MetaVJ] = true
		if mvj, ok := pt.MetaVJ(vj.MetaVJ); ok {
			mvjs = append(mvjs, mvj)
		}
	}
	return mvjs
}
