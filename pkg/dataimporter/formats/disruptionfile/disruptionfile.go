// Package disruptionfile reads hand written disruption and trip update
// records from a YAML or JSON document.
package disruptionfile

import (
	"errors"
	"io"

	"github.com/travigo/disruptions/pkg/dataimporter/datasets"
	"github.com/travigo/disruptions/pkg/dataimporter/formats"
	"github.com/travigo/disruptions/pkg/realtime/disruptions"
	"gopkg.in/yaml.v3"
)

// Document is the file layout. JSON documents decode through the YAML
// parser as well.
type Document struct {
	Disruptions []*disruptions.DisruptionRecord `yaml:"disruptions"`
	TripUpdates []*disruptions.TripUpdateRecord `yaml:"trip_updates"`
}

type DisruptionFile struct {
	document Document
}

func (d *DisruptionFile) ParseFile(reader io.Reader) error {
	d.document = Document{}

	err := yaml.NewDecoder(reader).Decode(&d.document)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (d *DisruptionFile) Convert(dataset datasets.DataSet) (*formats.Feed, error) {
	feed := formats.NewFeed()
	contributor := dataset.ContributorOrIdentifier()

	for _, record := range d.document.Disruptions {
		if record.Contributor == "" {
			record.Contributor = contributor
		}
		feed.AddDisruption(record, formats.Fingerprint(record))
	}
	for _, record := range d.document.TripUpdates {
		if record.Contributor == "" {
			record.Contributor = contributor
		}
		feed.AddTripUpdate(record, formats.Fingerprint(record))
	}

	return feed, nil
}

// Read parses a whole document.
func Read(reader io.Reader) (*Document, error) {
	file := &DisruptionFile{}
	if err := file.ParseFile(reader); err != nil {
		return nil, err
	}

	return &file.document, nil
}
