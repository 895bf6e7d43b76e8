// Package config loads the engine configuration from a YAML file with
// TRAVIGO_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/travigo/disruptions/pkg/ctdf"
	"github.com/travigo/disruptions/pkg/util"
	"gopkg.in/yaml.v3"
)

type ProductionConfig struct {
	Start string `yaml:"start" validate:"required,datetime=20060102"`
	Days  int    `yaml:"days" validate:"gt=0,lte=512"`
}

// Period is the production period the configuration describes.
func (p ProductionConfig) Period() (ctdf.DatePeriod, error) {
	start, err := time.Parse("20060102", p.Start)
	if err != nil {
		return ctdf.DatePeriod{}, err
	}

	return ctdf.NewDatePeriod(start, p.Days), nil
}

type ScheduleConfig struct {
	// GTFSPath is a GTFS zip file or its URL.
	GTFSPath string `yaml:"gtfs_path" validate:"required"`
}

type QueuesConfig struct {
	Realtime     string        `yaml:"realtime" validate:"required"`
	Consumers    int           `yaml:"consumers" validate:"gt=0"`
	BatchSize    int           `yaml:"batch_size" validate:"gt=0"`
	BatchTimeout time.Duration `yaml:"batch_timeout" validate:"gt=0"`
}

type IngestionConfig struct {
	Filter       string   `yaml:"filter"`
	Contributors []string `yaml:"contributors"`
}

// Expression combines the contributor allow list with the filter. It is
// empty when neither is set.
func (i IngestionConfig) Expression() string {
	var parts []string

	if len(i.Contributors) > 0 {
		quoted := make([]string, 0, len(i.Contributors))
		for _, contributor := range i.Contributors {
			quoted = append(quoted, strconv.Quote(contributor))
		}
		parts = append(parts, fmt.Sprintf("Contributor in [%s]", strings.Join(quoted, ", ")))
	}
	if i.Filter != "" {
		parts = append(parts, "("+i.Filter+")")
	}

	return strings.Join(parts, " && ")
}

type StompConfig struct {
	Address     string `yaml:"address" validate:"omitempty,hostname_port"`
	Destination string `yaml:"destination" validate:"required_with=Address"`
	Login       string `yaml:"login"`
	Passcode    string `yaml:"passcode"`
}

type APIConfig struct {
	Listen string `yaml:"listen" validate:"required"`
}

type ElasticsearchConfig struct {
	Index string `yaml:"index" validate:"required"`
}

type Config struct {
	Production    ProductionConfig    `yaml:"production" validate:"required"`
	Schedule      ScheduleConfig      `yaml:"schedule"`
	Queues        QueuesConfig        `yaml:"queues" validate:"required"`
	Ingestion     IngestionConfig     `yaml:"ingestion"`
	Stomp         StompConfig         `yaml:"stomp"`
	API           APIConfig           `yaml:"api" validate:"required"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch" validate:"required"`
	Datasets      string              `yaml:"datasets"`
}

func Default() Config {
	return Config{
		Production: ProductionConfig{
			Start: time.Now().UTC().Format("20060102"),
			Days:  365,
		},
		Queues: QueuesConfig{
			Realtime:     "disruptions-queue",
			Consumers:    1,
			BatchSize:    200,
			BatchTimeout: 2 * time.Second,
		},
		API:           APIConfig{Listen: ":8080"},
		Elasticsearch: ElasticsearchConfig{Index: "disruption-events-1"},
	}
}

// Load reads path over the defaults, applies the environment and validates
// the result. An empty path only uses the defaults and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvironment(util.GetEnvironmentVariables()); err != nil {
		return nil, err
	}

	if cfg.Schedule.GTFSPath == "" {
		cfg.Schedule.GTFSPath = "gtfs.zip"
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnvironment(env map[string]string) error {
	if env["TRAVIGO_PRODUCTION_START"] != "" {
		c.Production.Start = env["TRAVIGO_PRODUCTION_START"]
	}
	if env["TRAVIGO_PRODUCTION_DAYS"] != "" {
		days, err := strconv.Atoi(env["TRAVIGO_PRODUCTION_DAYS"])
		if err != nil {
			return fmt.Errorf("TRAVIGO_PRODUCTION_DAYS: %w", err)
		}
		c.Production.Days = days
	}
	if env["TRAVIGO_GTFS_PATH"] != "" {
		c.Schedule.GTFSPath = env["TRAVIGO_GTFS_PATH"]
	}
	if env["TRAVIGO_REALTIME_QUEUE"] != "" {
		c.Queues.Realtime = env["TRAVIGO_REALTIME_QUEUE"]
	}
	if env["TRAVIGO_DISRUPTION_FILTER"] != "" {
		c.Ingestion.Filter = env["TRAVIGO_DISRUPTION_FILTER"]
	}
	if env["TRAVIGO_STOMP_ADDRESS"] != "" {
		c.Stomp.Address = env["TRAVIGO_STOMP_ADDRESS"]
	}
	if env["TRAVIGO_STOMP_LOGIN"] != "" {
		c.Stomp.Login = env["TRAVIGO_STOMP_LOGIN"]
	}
	if env["TRAVIGO_STOMP_PASSCODE"] != "" {
		c.Stomp.Passcode = env["TRAVIGO_STOMP_PASSCODE"]
	}
	if env["TRAVIGO_API_LISTEN"] != "" {
		c.API.Listen = env["TRAVIGO_API_LISTEN"]
	}

	return nil
}
