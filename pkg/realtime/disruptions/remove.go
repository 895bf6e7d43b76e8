package disruptions

import (
	"github.com/rs/zerolog"
	"github.com/travigo/disruptions/pkg/ctdf"
	"golang.org/x/exp/slices"
)

// remover retracts one impact. Journeys it touched are reset to their base
// state and the other impacts that were stacked on them are collected for
// replay.
type remover struct {
	data   *ctdf.Data
	impact *ctdf.Impact
	logger zerolog.Logger

	replay []*ctdf.Impact
}

func newRemover(data *ctdf.Data, impact *ctdf.Impact, logger zerolog.Logger) *remover {
	return &remover{data: data, impact: impact, logger: logger}
}

func (r *remover) VisitNetwork(e ctdf.NetworkEntity) {
	network := r.data.PT.Networks[e.Network]
	network.Impacts.Remove(r.impact.Handle)
	for _, line := range network.Lines {
		r.VisitLine(ctdf.LineEntity{Line: line})
	}
}

func (r *remover) VisitLine(e ctdf.LineEntity) {
	line := r.data.PT.Lines[e.Line]
	line.Impacts.Remove(r.impact.Handle)
	for _, route := range line.Routes {
		r.VisitRoute(ctdf.RouteEntity{Route: route})
	}
}

func (r *remover) VisitRoute(e ctdf.RouteEntity) {
	r.data.PT.Routes[e.Route].Impacts.Remove(r.impact.Handle)
	for _, mvj := range metaVJsOfRoute(r.data.PT, e.Route) {
		r.resetMetaVJ(mvj)
	}
}

func (r *remover) VisitStopArea(e ctdf.StopAreaEntity) {
	stopArea := r.data.PT.StopAreas[e.StopArea]
	stopArea.Impacts.Remove(r.impact.Handle)
	for _, sp := range stopArea.StopPoints {
		r.VisitStopPoint(ctdf.StopPointEntity{StopPoint: sp})
	}
}

func (r *remover) VisitStopPoint(e ctdf.StopPointEntity) {
	r.data.PT.StopPoints[e.StopPoint].Impacts.Remove(r.impact.Handle)
	r.resetModifiedMetaVJs()
}

func (r *remover) VisitLineSection(e ctdf.LineSectionEntity) {
	for _, sp := range r.data.PT.StopPoints {
		sp.Impacts.Remove(r.impact.Handle)
	}
	r.resetModifiedMetaVJs()
}

func (r *remover) VisitMetaVJ(e ctdf.MetaVJEntity) {
	mvj, ok := r.data.PT.MetaVJ(e.MetaVJ)
	if !ok {
		return
	}
	r.resetMetaVJ(mvj)
}

func (r *remover) VisitUnknown(ctdf.UnknownEntity) {}

// resetModifiedMetaVJs resets every meta vehicle journey the impact modified.
func (r *remover) resetModifiedMetaVJs() {
	pt := r.data.PT
	for _, h := range pt.MetaVJs {
		mvj, ok := pt.MetaVJ(h)
		if !ok {
			continue
		}
		for _, impact := range mvj.ModifiedBy.Live(pt.Disruptions) {
			if impact.URI == r.impact.URI {
				r.resetMetaVJ(mvj)
				break
			}
		}
	}
}

func (r *remover) resetMetaVJ(mvj *ctdf.MetaVehicleJourney) {
	pt := r.data.PT
	mvj.Impacts.Remove(r.impact.Handle)

	for _, vj := range pt.VehicleJourneysOf(mvj, ctdf.RTLevelBase) {
		vj.SetVP(ctdf.RTLevelAdapted, vj.VP(ctdf.RTLevelBase))
		vj.SetVP(ctdf.RTLevelRealTime, vj.VP(ctdf.RTLevelBase))
	}
	empty := r.data.EmptyVP()
	for _, level := range []ctdf.RTLevel{ctdf.RTLevelAdapted, ctdf.RTLevelRealTime} {
		for _, vj := range pt.VehicleJourneysOf(mvj, level) {
			for _, l := range ctdf.RTLevels {
				vj.SetVP(l, empty)
			}
		}
	}

	for _, impact := range mvj.ModifiedBy.Live(pt.Disruptions) {
		if impact == r.impact || impact.Disruption == r.impact.Disruption {
			continue
		}
		if !slices.Contains(r.replay, impact) {
			r.replay = append(r.replay, impact)
		}
	}
	mvj.ModifiedBy = nil

	pt.CleanUpUselessVJs(mvj)
}

// sortReplay orders impacts by last update then uri.
func sortReplay(impacts []*ctdf.Impact) {
	slices.SortStableFunc(impacts, func(a, b *ctdf.Impact) int {
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			if a.UpdatedAt.Before(b.UpdatedAt) {
				return -1
			}
			return 1
		}
		switch {
		case a.URI < b.URI:
			return -1
		case a.URI > b.URI:
			return 1
		}
		return 0
	})
}
