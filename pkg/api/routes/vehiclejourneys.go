package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/travigo/disruptions/pkg/ctdf"
)

type vehicleJourneyList struct {
	VehicleJourneys []vehicleJourneyView `groups:"basic"`
	Pagination      pagination           `groups:"basic"`
}

func (core *Core) VehicleJourneysRouter(router fiber.Router) {
	router.Get("/", core.listVehicleJourneys)
	router.Get("/:identifier", core.getVehicleJourney)
}

// listVehicleJourneys lists the journeys of the snapshot, optionally only
// those created at one realtime level or belonging to one line.
func (core *Core) listVehicleJourneys(c *fiber.Ctx) error {
	pt := core.Snapshot.Current().PT

	levelFilter := -1
	if level := c.Query("level"); level != "" {
		parsed, err := ctdf.ParseRTLevel(level)
		if err != nil {
			return badRequest(c, err)
		}
		levelFilter = int(parsed)
	}

	lineFilter := -1
	if line := c.Query("line"); line != "" {
		lineFilter = pt.LineIdx(line)
		if lineFilter < 0 {
			return notFound(c, "Line")
		}
	}

	var selected []*ctdf.VehicleJourney
	for _, vj := range pt.VehicleJourneys {
		if levelFilter >= 0 && int(vj.RealtimeLevel) != levelFilter {
			continue
		}
		if lineFilter >= 0 && (vj.Route < 0 || pt.Routes[vj.Route].Line != lineFilter) {
			continue
		}
		selected = append(selected, vj)
	}

	page, start, end := paginate(c, len(selected))
	response := vehicleJourneyList{Pagination: page, VehicleJourneys: []vehicleJourneyView{}}
	for _, vj := range selected[start:end] {
		response.VehicleJourneys = append(response.VehicleJourneys, newVehicleJourneyView(pt, vj))
	}

	reduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic"},
	}, response)
	if err != nil {
		return reduceFailed(c, "VehicleJourneys")
	}

	return c.JSON(reduced)
}

func (core *Core) getVehicleJourney(c *fiber.Ctx) error {
	data := core.Snapshot.Current()
	now := core.now()

	vj, exists := data.PT.VehicleJourneyByURI(c.Params("identifier"))
	if !exists {
		return notFound(c, "Vehicle journey")
	}

	view := newVehicleJourneyView(data.PT, vj)
	if mvj, ok := data.PT.MetaVJ(vj.MetaVJ); ok {
		for _, impact := range mvj.Impacts.Live(data.PT.Disruptions) {
			impactView, err := newImpactView(data.PT, impact, now)
			if err != nil {
				return reduceFailed(c, "Impact")
			}
			view.Impacts = append(view.Impacts, impactView)
		}
	}

	reduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic", "detailed"},
	}, view)
	if err != nil {
		return reduceFailed(c, "VehicleJourney")
	}

	return c.JSON(reduced)
}
