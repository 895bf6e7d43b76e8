package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/travigo/disruptions/pkg/ctdf"
)

const publishedCacheExpiration = 90 * time.Minute

// Publisher enqueues realtime events for the worker. Feed entities seen
// with the same version within the cache window are not enqueued again.
type Publisher struct {
	queue     rmq.Queue
	published *cache.Cache[string]
}

// NewPublisher builds a publisher on queue. A nil client disables
// de-duplication.
func NewPublisher(queue rmq.Queue, client *redis.Client) *Publisher {
	publisher := &Publisher{queue: queue}

	if client != nil {
		redisStore := redisstore.NewRedis(client, store.WithExpiration(publishedCacheExpiration))
		publisher.published = cache.New[string](redisStore)
	}

	return publisher
}

func (p *Publisher) Publish(eventType ctdf.EventType, body any) (*ctdf.Event, error) {
	event, err := ctdf.NewEvent(eventType, body)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	if err := p.queue.PublishBytes(payload); err != nil {
		return nil, err
	}

	return event, nil
}

// PublishIfChanged publishes unless key was last published with version.
func (p *Publisher) PublishIfChanged(ctx context.Context, key string, version string, eventType ctdf.EventType, body any) (bool, error) {
	cacheKey := "published:" + key

	if p.published != nil {
		if previous, err := p.published.Get(ctx, cacheKey); err == nil && previous == version {
			return false, nil
		}
	}

	if _, err := p.Publish(eventType, body); err != nil {
		return false, err
	}

	if p.published != nil {
		if err := p.published.Set(ctx, cacheKey, version); err != nil {
			return true, err
		}
	}

	return true, nil
}

// Retract publishes the deletion of disruption id and forgets its version.
func (p *Publisher) Retract(ctx context.Context, id string) error {
	if _, err := p.Publish(ctdf.EventTypeDisruptionDeleted, ctdf.DisruptionDeletion{ID: id}); err != nil {
		return err
	}

	if p.published != nil {
		return p.published.Delete(ctx, "published:"+id)
	}

	return nil
}
