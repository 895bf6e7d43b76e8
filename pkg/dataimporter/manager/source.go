package manager

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/travigo/disruptions/pkg/dataimporter/datasets"
)

// SourceError is a download that ended on an unexpected HTTP status.
type SourceError struct {
	Source     string
	StatusCode int
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s returned %s", e.Source, http.StatusText(e.StatusCode))
}

// Open returns the content of the dataset source, downloading it when the
// source is a URL. Server errors are retried with exponential backoff.
func (m *Manager) Open(ctx context.Context, dataset datasets.DataSet) (io.ReadCloser, error) {
	if !isValidUrl(dataset.Source) {
		return os.Open(dataset.Source)
	}

	request, err := newSourceRequest(ctx, dataset)
	if err != nil {
		return nil, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = m.InitialInterval
	bo.MaxElapsedTime = 0

	var body []byte
	operation := func() error {
		response, err := m.HTTPClient.Do(request.Clone(ctx))
		if err != nil {
			return err
		}
		defer response.Body.Close()

		if response.StatusCode >= 500 {
			return &SourceError{Source: dataset.Identifier, StatusCode: response.StatusCode}
		}
		if response.StatusCode >= 300 {
			return backoff.Permanent(&SourceError{Source: dataset.Identifier, StatusCode: response.StatusCode})
		}

		body, err = io.ReadAll(response.Body)
		return err
	}

	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("dataset", dataset.Identifier).Dur("wait", wait).Msg("Retrying download")
	}

	err = backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(bo, m.MaxRetries), ctx), notify)
	if err != nil {
		return nil, err
	}

	return io.NopCloser(bytes.NewReader(body)), nil
}

func newSourceRequest(ctx context.Context, dataset datasets.DataSet) (*http.Request, error) {
	source, err := url.Parse(dataset.Source)
	if err != nil {
		return nil, err
	}

	authentication := dataset.SourceAuthentication
	if len(authentication.Query) > 0 {
		query := source.Query()
		for key, value := range authentication.Query {
			query.Set(key, value)
		}
		source.RawQuery = query.Encode()
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, source.String(), http.NoBody)
	if err != nil {
		return nil, err
	}
	// Some feeds sit behind bot protection that rejects requests with no user agent
	request.Header.Set("User-Agent", "travigo-disruptions/1.0")

	for key, value := range authentication.Header {
		request.Header.Set(key, value)
	}
	if authentication.Basic.Username != "" {
		request.SetBasicAuth(authentication.Basic.Username, authentication.Basic.Password)
	}

	return request, nil
}

func isValidUrl(toTest string) bool {
	_, err := url.ParseRequestURI(toTest)
	if err != nil {
		return false
	}

	u, err := url.Parse(toTest)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}

	return true
}
