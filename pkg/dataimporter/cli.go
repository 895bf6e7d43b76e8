package dataimporter

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/travigo/disruptions/pkg/config"
	"github.com/travigo/disruptions/pkg/dataimporter/datasets"
	"github.com/travigo/disruptions/pkg/dataimporter/formats"
	"github.com/travigo/disruptions/pkg/dataimporter/manager"
	"github.com/travigo/disruptions/pkg/realtime"
	"github.com/travigo/disruptions/pkg/redis_client"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

var configFlag = &cli.StringFlag{
	Name:    "config",
	Usage:   "Path to the YAML configuration",
	EnvVars: []string{"TRAVIGO_CONFIG"},
}

func loadDatasets(c *cli.Context) (*config.Config, []datasets.DataSet, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}

	directory := cfg.Datasets
	if directory == "" {
		directory = "data/datasources"
	}

	registered, err := datasets.Load(directory)
	if err != nil {
		return nil, nil, err
	}

	return cfg, registered, nil
}

func newManager(cfg *config.Config) (*manager.Manager, error) {
	if err := redis_client.Connect(); err != nil {
		return nil, err
	}

	queue, err := redis_client.QueueConnection.OpenQueue(cfg.Queues.Realtime)
	if err != nil {
		return nil, err
	}

	return manager.New(realtime.NewPublisher(queue, redis_client.Client)), nil
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "data-importer",
		Usage: "Download & convert third party feeds into realtime disruption events",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the registered datasets",
				Flags: []cli.Flag{configFlag},
				Action: func(c *cli.Context) error {
					_, registered, err := loadDatasets(c)
					if err != nil {
						return err
					}

					for _, dataset := range registered {
						pretty.Println(dataset.Identifier, dataset.Format, dataset.Source)
					}

					return nil
				},
			},
			{
				Name:  "dataset",
				Usage: "Import a realtime dataset",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:     "id",
						Usage:    "ID of the dataset",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "repeat-every",
						Usage:    "Repeat this file import every X seconds",
						Required: false,
					},
				},
				Action: func(c *cli.Context) error {
					cfg, registered, err := loadDatasets(c)
					if err != nil {
						return err
					}

					dataset, err := datasets.Find(registered, c.String("id"))
					if err != nil {
						return err
					}

					repeatEvery := c.String("repeat-every")
					repeat := repeatEvery != ""
					var repeatDuration time.Duration
					if repeat {
						repeatDuration, err = time.ParseDuration(repeatEvery)
						if err != nil {
							return err
						}
					}

					importer, err := newManager(cfg)
					if err != nil {
						return err
					}

					for {
						startTime := time.Now()

						if _, err := importer.ImportRealtime(c.Context, dataset); err != nil {
							return err
						}
						if !repeat {
							break
						}

						executionDuration := time.Since(startTime)
						log.Info().Msgf("Operation took %s", executionDuration.String())

						waitTime := repeatDuration - executionDuration

						if waitTime.Seconds() > 0 {
							time.Sleep(waitTime)
						}
					}

					return nil
				},
			},
			{
				Name:  "multi-realtime",
				Usage: "Poll every registered realtime dataset",
				Flags: []cli.Flag{configFlag},
				Action: func(c *cli.Context) error {
					cfg, registered, err := loadDatasets(c)
					if err != nil {
						return err
					}

					importer, err := newManager(cfg)
					if err != nil {
						return err
					}

					ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
					defer stop()

					go func() {
						<-ctx.Done()
						hardExit := make(chan os.Signal, 1)
						signal.Notify(hardExit, syscall.SIGINT)
						<-hardExit // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					return importer.Poll(ctx, registered)
				},
			},
		},
	}
}

var _ formats.Publisher = (*realtime.Publisher)(nil)
