package consumer

import (
	"fmt"
	"net/http"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/disruptions/pkg/metrics"
	"github.com/travigo/disruptions/pkg/redis_client"
)

const statsAddress = ":3333"

type RedisConsumer struct {
	QueueName string

	NumberConsumers int
	BatchSize       int

	Timeout time.Duration

	Consumer rmq.BatchConsumer
	Metrics  *metrics.Metrics
}

func (c *RedisConsumer) Setup() {
	c.startConsumers()
	go c.startStatsServer()
}

func (c *RedisConsumer) startConsumers() {
	log.Info().Str("queue", c.QueueName).Msg("Starting consumers")

	queue, err := redis_client.QueueConnection.OpenQueue(c.QueueName)
	if err != nil {
		panic(err)
	}
	if err := queue.StartConsuming(int64(c.NumberConsumers*c.BatchSize), 1*time.Second); err != nil {
		panic(err)
	}

	for i := 0; i < c.NumberConsumers; i++ {
		c.startQueueConsumer(queue, i)
	}
}

func (c *RedisConsumer) startQueueConsumer(queue rmq.Queue, id int) {
	log.Info().Msgf("Starting %s consumer %d", c.QueueName, id)

	if _, err := queue.AddBatchConsumer(fmt.Sprintf("%s-%d", c.QueueName, id), int64(c.BatchSize), c.Timeout, c.Consumer); err != nil {
		panic(err)
	}
}

// Handler serves the queue stats page, the health check and, when metrics
// are set, the Prometheus endpoint.
func (c *RedisConsumer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(fmt.Sprintf("/%s/stats", c.QueueName), NewStatsHandler(redis_client.QueueConnection))
	mux.Handle("/health", NewHealthHandler())
	if c.Metrics != nil {
		mux.Handle("/metrics", c.Metrics.Handler())
	}

	return mux
}

func (c *RedisConsumer) startStatsServer() {
	log.Info().Msgf("Stats server listening on http://localhost%s/%s/stats", statsAddress, c.QueueName)
	if err := http.ListenAndServe(statsAddress, c.Handler()); err != nil {
		panic(err)
	}
}
