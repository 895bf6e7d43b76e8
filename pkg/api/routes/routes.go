// Package routes serves the disruption state of the live snapshot and
// accepts realtime records for the worker queue.
package routes

import (
	"time"

	"github.com/travigo/disruptions/pkg/clock"
	"github.com/travigo/disruptions/pkg/ctdf"
)

// Snapshot gives access to the snapshot currently served.
type Snapshot interface {
	Current() *ctdf.Data
}

// Publisher enqueues a realtime event for the worker.
type Publisher interface {
	Publish(eventType ctdf.EventType, body any) (*ctdf.Event, error)
}

type Core struct {
	Snapshot  Snapshot
	Publisher Publisher
	Clock     clock.Clock
}

func (core *Core) now() time.Time {
	if core.Clock == nil {
		return time.Now().UTC()
	}

	return core.Clock.Now().UTC()
}
