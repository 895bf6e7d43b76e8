package api

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog/log"
	"github.com/travigo/disruptions/pkg/api/routes"
	"github.com/travigo/disruptions/pkg/clock"
)

type Server struct {
	Snapshot  routes.Snapshot
	Publisher routes.Publisher
	Clock     clock.Clock

	// Metrics is served on /metrics when set.
	Metrics http.Handler
	// Auth runs before every write endpoint. Writes are open when it is nil.
	Auth fiber.Handler
}

func (s *Server) App() *fiber.App {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		UnescapePath:          true,
	})
	webApp.Use(NewLogger())

	if s.Metrics != nil {
		webApp.Get("/metrics", adaptor.HTTPHandler(s.Metrics))
	}

	guard := s.Auth
	if guard == nil {
		guard = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	core := &routes.Core{
		Snapshot:  s.Snapshot,
		Publisher: s.Publisher,
		Clock:     s.Clock,
	}

	group := webApp.Group("/core")

	core.StatusRouter(group.Group("/status"))
	core.DisruptionsRouter(group.Group("/disruptions"), guard)
	core.VehicleJourneysRouter(group.Group("/vehicle_journeys"))
	core.TripUpdatesRouter(group.Group("/trip_updates"), guard)
	core.ImpactsRouter(group)

	return webApp
}

// Listen serves the API until ctx is done.
func (s *Server) Listen(ctx context.Context, listen string) error {
	webApp := s.App()

	go func() {
		<-ctx.Done()
		if err := webApp.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Failed to shut down the web API")
		}
	}()

	log.Info().Str("listen", listen).Msg("Starting web API")

	return webApp.Listen(listen)
}
