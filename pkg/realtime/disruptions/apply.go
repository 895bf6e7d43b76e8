package disruptions

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/travigo/disruptions/pkg/ctdf"
)

// ApplyDisruption attaches every impact of disruption to the entities it
// informs and alters the schedule for the modifying ones. Applying the same
// disruption again changes nothing. An impact failing a contract check is
// skipped and reported, the others still apply.
func ApplyDisruption(data *ctdf.Data, disruption *ctdf.Disruption) error {
	logger := log.With().Str("disruption", disruption.URI).Logger()
	logger.Debug().Msg("Applying disruption")

	var errs []error
	for _, impact := range disruption.Impacts {
		if err := checkImpact(impact); err != nil {
			errs = append(errs, fmt.Errorf("impact %s: %w", impact.URI, err))
			continue
		}

		attach := &attacher{pt: data.PT, handle: impact.Handle}
		for _, entity := range impact.InformedEntities {
			entity.Accept(attach)
		}

		if !impact.Effect().Modifying() {
			continue
		}

		add := newAdder(data, impact, logger.With().Str("impact", impact.URI).Logger())
		for _, entity := range impact.InformedEntities {
			entity.Accept(add)
		}
	}

	return errors.Join(errs...)
}

func checkImpact(impact *ctdf.Impact) error {
	if impact.Severity == nil {
		return ErrUnknownSeverity
	}
	if impact.Effect().Modifying() && impact.Disruption.RTLevel == ctdf.RTLevelBase {
		return fmt.Errorf("%w: %s", ErrUnsupportedRTLevel, impact.Disruption.RTLevel)
	}
	return nil
}

// DeleteDisruption retracts every impact of the disruption named uri, drops
// it from the registry and replays the impacts that were stacked with it.
// An unknown uri is a no-op.
func DeleteDisruption(data *ctdf.Data, uri string) error {
	holder := data.PT.Disruptions
	disruption, ok := holder.Get(uri)
	if !ok {
		holder.CleanWeakImpacts()
		return nil
	}

	logger := log.With().Str("disruption", uri).Logger()
	logger.Debug().Msg("Deleting disruption")

	var replay []*ctdf.Impact
	for _, impact := range disruption.Impacts {
		detach := &detacher{pt: data.PT, handle: impact.Handle}
		for _, entity := range impact.InformedEntities {
			entity.Accept(detach)
		}

		if !impact.Effect().Modifying() {
			continue
		}
		remove := newRemover(data, impact, logger.With().Str("impact", impact.URI).Logger())
		for _, entity := range impact.InformedEntities {
			entity.Accept(remove)
		}
		replay = append(replay, remove.replay...)
	}

	holder.Pop(uri)

	var errs []error
	sortReplay(replay)
	replayed := map[*ctdf.Disruption]bool{}
	for _, impact := range replay {
		if _, alive := holder.Impact(impact.Handle); !alive || replayed[impact.Disruption] {
			continue
		}
		replayed[impact.Disruption] = true
		if err := ApplyDisruption(data, impact.Disruption); err != nil {
			errs = append(errs, err)
		}
	}

	holder.CleanWeakImpacts()

	return errors.Join(errs...)
}

// attacher records an impact on the entities it informs, for display.
type attacher struct {
	pt     *ctdf.PTData
	handle ctdf.Handle
}

func (a *attacher) VisitNetwork(e ctdf.NetworkEntity) { a.pt.Networks[e.Network].Impacts.Add(a.handle) }
func (a *attacher) VisitLine(e ctdf.LineEntity)       { a.pt.Lines[e.Line].Impacts.Add(a.handle) }
func (a *attacher) VisitRoute(e ctdf.RouteEntity)     { a.pt.Routes[e.Route].Impacts.Add(a.handle) }
func (a *attacher) VisitStopArea(e ctdf.StopAreaEntity) {
	a.pt.StopAreas[e.StopArea].Impacts.Add(a.handle)
}
func (a *attacher) VisitStopPoint(e ctdf.StopPointEntity) {
	a.pt.StopPoints[e.StopPoint].Impacts.Add(a.handle)
}
func (a *attacher) VisitLineSection(e ctdf.LineSectionEntity) {
	a.pt.Lines[e.Line].Impacts.Add(a.handle)
}
func (a *attacher) VisitMetaVJ(e ctdf.MetaVJEntity) {
	if mvj, ok := a.pt.MetaVJ(e.MetaVJ); ok {
		mvj.Impacts.Add(a.handle)
	}
}
func (a *attacher) VisitUnknown(ctdf.UnknownEntity) {}

type detacher struct {
	pt     *ctdf.PTData
	handle ctdf.Handle
}

func (d *detacher) VisitNetwork(e ctdf.NetworkEntity) { d.pt.Networks[e.Network].Impacts.Remove(d.handle) }
func (d *detacher) VisitLine(e ctdf.LineEntity)       { d.pt.Lines[e.Line].Impacts.Remove(d.handle) }
func (d *detacher) VisitRoute(e ctdf.RouteEntity)     { d.pt.Routes[e.Route].Impacts.Remove(d.handle) }
func (d *detacher) VisitStopArea(e ctdf.StopAreaEntity) {
	d.pt.StopAreas[e.StopArea].Impacts.Remove(d.handle)
}
func (d *detacher) VisitStopPoint(e ctdf.StopPointEntity) {
	d.pt.StopPoints[e.StopPoint].Impacts.Remove(d.handle)
}
func (d *detacher) VisitLineSection(e ctdf.LineSectionEntity) {
	d.pt.Lines[e.Line].Impacts.Remove(d.handle)
}
func (d *detacher) VisitMetaVJ(e ctdf.MetaVJEntity) {
	if mvj, ok := d.pt.MetaVJ(e.MetaVJ); ok {
		mvj.Impacts.Remove(d.handle)
	}
}
func (d *detacher) VisitUnknown(ctdf.UnknownEntity) {}
