package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/rs/zerolog/log"
	"github.com/travigo/disruptions/pkg/ctdf"
	"github.com/travigo/disruptions/pkg/realtime/disruptions"
)

type disruptionList struct {
	Disruptions []disruptionView `groups:"basic"`
	Pagination  pagination       `groups:"basic"`
}

// DisruptionsRouter registers the disruption endpoints. guard runs before
// every write.
func (core *Core) DisruptionsRouter(router fiber.Router, guard fiber.Handler) {
	router.Get("/", core.listDisruptions)
	router.Get("/:identifier", core.getDisruption)

	router.Post("/", guard, core.createDisruption)
	router.Delete("/:identifier", guard, core.deleteDisruption)
}

func (core *Core) listDisruptions(c *fiber.Ctx) error {
	data := core.Snapshot.Current()
	now := core.now()

	filter, err := parseImpactFilter(c, now)
	if err != nil {
		return badRequest(c, err)
	}
	contributor := c.Query("contributor")

	var selected []*ctdf.Disruption
	var impacts [][]*ctdf.Impact
	for _, disruption := range data.PT.Disruptions.Disruptions() {
		if contributor != "" && disruption.Contributor != contributor {
			continue
		}

		matching := disruption.Impacts
		if !filter.empty() {
			matching = filter.apply(disruption.Impacts)
			if len(matching) == 0 {
				continue
			}
		}

		selected = append(selected, disruption)
		impacts = append(impacts, matching)
	}

	page, start, end := paginate(c, len(selected))
	response := disruptionList{Pagination: page, Disruptions: []disruptionView{}}
	for i := start; i < end; i++ {
		view, err := newDisruptionView(data.PT, selected[i], impacts[i], now)
		if err != nil {
			return reduceFailed(c, "Disruption")
		}
		response.Disruptions = append(response.Disruptions, view)
	}

	reduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic"},
	}, response)
	if err != nil {
		return reduceFailed(c, "Disruptions")
	}

	return c.JSON(reduced)
}

func (core *Core) getDisruption(c *fiber.Ctx) error {
	data := core.Snapshot.Current()

	disruption, exists := data.PT.Disruptions.Get(c.Params("identifier"))
	if !exists {
		return notFound(c, "Disruption")
	}

	view, err := newDisruptionView(data.PT, disruption, disruption.Impacts, core.now())
	if err != nil {
		return reduceFailed(c, "Disruption")
	}

	reduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic", "detailed"},
	}, view)
	if err != nil {
		return reduceFailed(c, "Disruption")
	}

	return c.JSON(reduced)
}

func (core *Core) createDisruption(c *fiber.Ctx) error {
	var record disruptions.DisruptionRecord
	if err := c.BodyParser(&record); err != nil {
		return badRequest(c, err)
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = core.now()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = record.UpdatedAt
	}
	if err := disruptions.Validate(&record); err != nil {
		return badRequest(c, err)
	}

	return core.publish(c, ctdf.EventTypeDisruptionUpserted, record.ID, record)
}

func (core *Core) deleteDisruption(c *fiber.Ctx) error {
	id := c.Params("identifier")

	return core.publish(c, ctdf.EventTypeDisruptionDeleted, id, ctdf.DisruptionDeletion{ID: id})
}

func (core *Core) publish(c *fiber.Ctx, eventType ctdf.EventType, id string, body any) error {
	event, err := core.Publisher.Publish(eventType, body)
	if err != nil {
		log.Error().Err(err).Str("id", id).Str("type", string(eventType)).Msg("Failed to publish realtime event")

		c.Status(fiber.StatusServiceUnavailable)
		return c.JSON(fiber.Map{
			"error": "Could not queue the event",
		})
	}

	log.Info().Str("id", id).Str("event", event.ID).Str("type", string(eventType)).Msg("Queued realtime event")

	c.Status(fiber.StatusAccepted)
	return c.JSON(fiber.Map{
		"event": event.ID,
		"id":    id,
	})
}
