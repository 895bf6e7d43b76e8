package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/disruptions/pkg/ctdf"
	"github.com/travigo/disruptions/pkg/realtime/disruptions"
)

func (core *Core) TripUpdatesRouter(router fiber.Router, guard fiber.Handler) {
	router.Post("/", guard, core.createTripUpdate)
}

func (core *Core) createTripUpdate(c *fiber.Ctx) error {
	var record disruptions.TripUpdateRecord
	if err := c.BodyParser(&record); err != nil {
		return badRequest(c, err)
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = core.now()
	}
	if err := disruptions.Validate(&record); err != nil {
		return badRequest(c, err)
	}

	if _, exists := core.Snapshot.Current().PT.VehicleJourneyByURI(record.VehicleJourneyURI); !exists {
		return notFound(c, "Vehicle journey")
	}

	return core.publish(c, ctdf.EventTypeTripUpdated, record.ID, record)
}
