package disruptions

import (
	"github.com/rs/zerolog/log"
	"github.com/travigo/disruptions/pkg/ctdf"
)

// ResolveEntity turns an informed entity descriptor into a reference to the
// schedule. Anything that does not resolve becomes an UnknownEntity.
func ResolveEntity(pt *ctdf.PTData, record EntityRecord) ctdf.InformedEntity {
	unknown := ctdf.UnknownEntity{Kind: record.Kind, URI: record.URI}

	switch record.Kind {
	case EntityKindNetwork:
		if idx := pt.NetworkIdx(record.URI); idx >= 0 {
			return ctdf.NetworkEntity{Network: idx}
		}
	case EntityKindLine:
		if idx := pt.LineIdx(record.URI); idx >= 0 {
			return ctdf.LineEntity{Line: idx}
		}
	case EntityKindRoute:
		if idx := pt.RouteIdx(record.URI); idx >= 0 {
			return ctdf.RouteEntity{Route: idx}
		}
	case EntityKindStopArea:
		if idx := pt.StopAreaIdx(record.URI); idx >= 0 {
			return ctdf.StopAreaEntity{StopArea: idx}
		}
	case EntityKindStopPoint:
		if idx := pt.StopPointIdx(record.URI); idx >= 0 {
			return ctdf.StopPointEntity{StopPoint: idx}
		}
	case EntityKindMetaVJ:
		if mvj, ok := pt.MetaVJByURI(record.URI); ok {
			return ctdf.MetaVJEntity{MetaVJ: mvj.Handle}
		}
	case EntityKindLineSection:
		if section, ok := resolveLineSection(pt, record.LineSection); ok {
			return section
		}
	}

	log.Debug().Str("kind", record.Kind).Str("uri", record.URI).Msg("Informed entity does not resolve")
	return unknown
}

func resolveLineSection(pt *ctdf.PTData, record *LineSectionRecord) (ctdf.LineSectionEntity, bool) {
	if record == nil {
		return ctdf.LineSectionEntity{}, false
	}

	section := ctdf.LineSectionEntity{
		Line:      pt.LineIdx(record.LineURI),
		StartArea: pt.StopAreaIdx(record.StartStopAreaURI),
		EndArea:   pt.StopAreaIdx(record.EndStopAreaURI),
	}
	if section.Line < 0 || section.StartArea < 0 || section.EndArea < 0 {
		log.Warn().
			Str("line", record.LineURI).
			Str("start", record.StartStopAreaURI).
			Str("end", record.EndStopAreaURI).
			Msg("Line section does not resolve, ignoring it")
		return ctdf.LineSectionEntity{}, false
	}

	for _, uri := range record.RouteURIs {
		route := pt.RouteIdx(uri)
		if route < 0 || pt.Routes[route].Line != section.Line {
			log.Warn().Str("route", uri).Str("line", record.LineURI).Msg("Route of line section is not on the line, skipping it")
			continue
		}
		section.Routes = append(section.Routes, route)
	}
	if len(record.RouteURIs) > 0 && len(section.Routes) == 0 {
		return ctdf.LineSectionEntity{}, false
	}

	return section, true
}
