package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/travigo/disruptions/pkg/ctdf"
)

type impactList struct {
	Impacts []impactView `groups:"basic"`
}

// ImpactsRouter serves the impacts informing one object, addressed as
// /:collection/:identifier/impacts.
func (core *Core) ImpactsRouter(router fiber.Router) {
	router.Get("/:collection/:identifier/impacts", core.listObjectImpacts)
}

func objectImpacts(pt *ctdf.PTData, collection string, identifier string) (ctdf.ImpactRefs, bool) {
	switch collection {
	case "networks":
		if idx := pt.NetworkIdx(identifier); idx >= 0 {
			return pt.Networks[idx].Impacts, true
		}
	case "lines":
		if idx := pt.LineIdx(identifier); idx >= 0 {
			return pt.Lines[idx].Impacts, true
		}
	case "routes":
		if idx := pt.RouteIdx(identifier); idx >= 0 {
			return pt.Routes[idx].Impacts, true
		}
	case "stop_areas":
		if idx := pt.StopAreaIdx(identifier); idx >= 0 {
			return pt.StopAreas[idx].Impacts, true
		}
	case "stop_points":
		if idx := pt.StopPointIdx(identifier); idx >= 0 {
			return pt.StopPoints[idx].Impacts, true
		}
	case "vehicle_journeys":
		if vj, exists := pt.VehicleJourneyByURI(identifier); exists {
			if mvj, exists := pt.MetaVJ(vj.MetaVJ); exists {
				return mvj.Impacts, true
			}
		}
	case "meta_vehicle_journeys":
		if mvj, exists := pt.MetaVJByURI(identifier); exists {
			return mvj.Impacts, true
		}
	}

	return nil, false
}

func (core *Core) listObjectImpacts(c *fiber.Ctx) error {
	data := core.Snapshot.Current()
	now := core.now()

	filter, err := parseImpactFilter(c, now)
	if err != nil {
		return badRequest(c, err)
	}

	refs, exists := objectImpacts(data.PT, c.Params("collection"), c.Params("identifier"))
	if !exists {
		return notFound(c, "Object")
	}

	response := impactList{Impacts: []impactView{}}
	for _, impact := range filter.apply(refs.Live(data.PT.Disruptions)) {
		view, err := newImpactView(data.PT, impact, now)
		if err != nil {
			return reduceFailed(c, "Impact")
		}
		response.Impacts = append(response.Impacts, view)
	}

	reduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic"},
	}, response)
	if err != nil {
		return reduceFailed(c, "Impacts")
	}

	return c.JSON(reduced)
}
