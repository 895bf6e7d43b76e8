package datasets

import (
	"time"
)

type DataSet struct {
	Identifier    string
	DataSourceRef string `json:"-"`
	Format        DataSetFormat

	Provider Provider

	// Contributor is stamped on every record the dataset produces. It
	// defaults to the dataset identifier.
	Contributor string

	Source               string
	SourceAuthentication SourceAuthentication `json:"-"`

	SupportedObjects SupportedObjects

	RefreshInterval time.Duration
}

func (d DataSet) ContributorOrIdentifier() string {
	if d.Contributor != "" {
		return d.Contributor
	}
	return d.Identifier
}

// PollInterval is how often a realtime dataset is fetched.
func (d DataSet) PollInterval() time.Duration {
	switch {
	case d.RefreshInterval > 0:
		return d.RefreshInterval
	case d.SupportedObjects.TripUpdates:
		return 2 * time.Minute
	default:
		return 10 * time.Minute
	}
}

type SourceAuthentication struct {
	Query  map[string]string
	Header map[string]string
	Basic  struct {
		Username string
		Password string
	}
}

type DataSetFormat string

const (
	DataSetFormatGTFSSchedule   DataSetFormat = "gtfs-schedule"
	DataSetFormatGTFSRealtime   DataSetFormat = "gtfs-realtime"
	DataSetFormatSiriSX         DataSetFormat = "eu-siri-sx"
	DataSetFormatDisruptionFile DataSetFormat = "disruption-file"
)

func (f DataSetFormat) Realtime() bool {
	return f != DataSetFormatGTFSSchedule
}

type Provider struct {
	Name    string
	Website string
}
