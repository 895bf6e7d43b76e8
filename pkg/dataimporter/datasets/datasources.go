package datasets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var ErrUnknownDataset = errors.New("dataset could not be found")

type DataSource struct {
	Identifier string
	Region     string
	Provider   Provider
	Datasets   []DataSet

	SourceAuthentication *SourceAuthentication
}

// Load reads every data source definition under directory. A file may hold
// several YAML documents.
func Load(directory string) ([]DataSet, error) {
	var registeredDatasets []DataSet

	err := filepath.Walk(directory, func(path string, fileInfo os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if fileInfo.IsDir() {
			return nil
		}

		extension := filepath.Ext(path)
		if extension != ".yaml" && extension != ".yml" {
			return nil
		}

		log.Debug().Str("path", path).Msg("Loading datasource file")

		datasourceYaml, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		decoder := yaml.NewDecoder(bytes.NewReader(datasourceYaml))

		for {
			var datasource DataSource
			if err := decoder.Decode(&datasource); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return fmt.Errorf("%s: %w", path, err)
			}

			for _, dataset := range datasource.Datasets {
				dataset.Identifier = fmt.Sprintf("%s-%s", datasource.Identifier, dataset.Identifier)
				dataset.DataSourceRef = datasource.Identifier
				dataset.Provider = datasource.Provider

				if datasource.SourceAuthentication != nil {
					dataset.SourceAuthentication = *datasource.SourceAuthentication
				}

				registeredDatasets = append(registeredDatasets, dataset)
			}
		}

		return nil
	})

	return registeredDatasets, err
}

func Find(registered []DataSet, identifier string) (DataSet, error) {
	for _, dataset := range registered {
		if dataset.Identifier == identifier {
			return dataset, nil
		}
	}

	return DataSet{}, fmt.Errorf("%w: %s", ErrUnknownDataset, identifier)
}
