package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/travigo/disruptions/pkg/ctdf"
)

type status struct {
	Meta               ctdf.MetaData  `groups:"basic"`
	LastRealtimeUpdate time.Time      `groups:"basic"`
	Disruptions        int            `groups:"basic"`
	VehicleJourneys    map[string]int `groups:"basic"`
}

func (core *Core) StatusRouter(router fiber.Router) {
	router.Get("/", core.getStatus)
}

func (core *Core) getStatus(c *fiber.Ctx) error {
	data := core.Snapshot.Current()

	response := status{
		Meta:               data.Meta,
		LastRealtimeUpdate: data.LastRealtimeUpdate,
		Disruptions:        data.PT.Disruptions.Len(),
		VehicleJourneys:    map[string]int{},
	}
	for _, level := range ctdf.RTLevels {
		response.VehicleJourneys[level.String()] = data.PT.CountVehicleJourneys(level)
	}

	reduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic"},
	}, response)
	if err != nil {
		return reduceFailed(c, "status")
	}

	return c.JSON(reduced)
}
