package elastic_client

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/rs/zerolog/log"
	"github.com/travigo/disruptions/pkg/util"
)

var ErrNotConfigured = errors.New("elasticsearch address not set")

const defaultFlushInterval = 15 * time.Second

var Client *elasticsearch.Client
var bulkIndexer esutil.BulkIndexer

type settings struct {
	Address       string
	Username      string
	Password      string
	Insecure      bool
	FlushInterval time.Duration
}

func settingsFromEnvironment() settings {
	env := util.GetEnvironmentVariables()

	s := settings{
		Address:       env["TRAVIGO_ELASTICSEARCH_ADDRESS"],
		Username:      env["TRAVIGO_ELASTICSEARCH_USERNAME"],
		Password:      env["TRAVIGO_ELASTICSEARCH_PASSWORD"],
		Insecure:      env["TRAVIGO_ELASTICSEARCH_INSECURE"] == "YES",
		FlushInterval: defaultFlushInterval,
	}
	if interval, err := time.ParseDuration(env["TRAVIGO_ELASTICSEARCH_FLUSH_INTERVAL"]); err == nil && interval > 0 {
		s.FlushInterval = interval
	}

	return s
}

// Connect sets up the client and the bulk indexer used for the audit log.
// Without an address it is a no-op unless required is set.
func Connect(required bool) error {
	s := settingsFromEnvironment()
	if s.Address == "" {
		if required {
			return ErrNotConfigured
		}
		log.Info().Msg("Skipping Elasticsearch setup, audit events will not be indexed")
		return nil
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if s.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	retryBackoff := backoff.NewExponentialBackOff()

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{s.Address},
		Username:  s.Username,
		Password:  s.Password,
		Transport: transport,

		RetryOnStatus: []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests},
		RetryBackoff: func(attempt int) time.Duration {
			if attempt == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},
		MaxRetries: 5,
	})
	if err != nil {
		return err
	}

	if _, err = es.Info(); err != nil {
		return err
	}

	indexer, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        es,
		FlushInterval: s.FlushInterval,
	})
	if err != nil {
		return err
	}

	Client = es
	bulkIndexer = indexer

	log.Info().Str("address", s.Address).Dur("flush_interval", s.FlushInterval).Msg("Elasticsearch client setup")

	return nil
}

// IndexRequest queues a document for bulk indexing under documentID, so a
// replayed event overwrites its earlier document. It does nothing when
// Elasticsearch is not configured.
func IndexRequest(indexName string, documentID string, document io.ReadSeeker) {
	if bulkIndexer == nil {
		return
	}

	err := bulkIndexer.Add(
		context.Background(),
		esutil.BulkIndexerItem{
			Index:      indexName,
			Action:     "index",
			DocumentID: documentID,
			Body:       document,
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				logger := log.Error().Str("index", indexName).Str("document", item.DocumentID)
				if err != nil {
					logger.Err(err).Msg("Failed to index audit event")
				} else {
					logger.Str("type", res.Error.Type).Str("reason", res.Error.Reason).Msg("Failed to index audit event")
				}
			},
		},
	)
	if err != nil {
		log.Error().Err(err).Str("index", indexName).Msg("Failed to queue audit event")
	}
}

// WaitUntilQueueEmpty flushes the pending audit events.
func WaitUntilQueueEmpty() {
	if bulkIndexer == nil {
		return
	}

	if err := bulkIndexer.Close(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to flush bulk indexer")
	}

	stats := bulkIndexer.Stats()
	log.Info().Uint64("indexed", stats.NumIndexed).Uint64("failed", stats.NumFailed).Msg("Flushed audit events")
}
