package realtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/travigo/disruptions/pkg/api"
	"github.com/travigo/disruptions/pkg/clock"
	"github.com/travigo/disruptions/pkg/config"
	"github.com/travigo/disruptions/pkg/consumer"
	"github.com/travigo/disruptions/pkg/ctdf"
	"github.com/travigo/disruptions/pkg/database"
	"github.com/travigo/disruptions/pkg/dataimporter/datasets"
	"github.com/travigo/disruptions/pkg/dataimporter/formats/disruptionfile"
	"github.com/travigo/disruptions/pkg/dataimporter/manager"
	"github.com/travigo/disruptions/pkg/elastic_client"
	"github.com/travigo/disruptions/pkg/metrics"
	"github.com/travigo/disruptions/pkg/realtime/disruptions"
	"github.com/travigo/disruptions/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

var configFlag = &cli.StringFlag{
	Name:    "config",
	Usage:   "path to the engine configuration file",
	EnvVars: []string{"TRAVIGO_CONFIG"},
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "realtime",
		Usage: "Disruption engine applying realtime records to the schedule",
		Subcommands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run an instance of the disruption engine",
				Flags:  []cli.Flag{configFlag},
				Action: run,
			},
			{
				Name:  "cleaner",
				Usage: "run the queue cleaner for the realtime queue",
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
					defer stop()

					StartCleaner(ctx, redis_client.QueueConnection)

					return nil
				},
			},
			{
				Name:  "apply-file",
				Usage: "apply a disruption file to the schedule and report what changed",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:     "file",
						Usage:    "disruption file in YAML or JSON",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "publish",
						Usage: "queue the records for the running engine instead",
					},
				},
				Action: applyFile,
			},
			{
				Name:  "inspect",
				Usage: "print the vehicle journeys of a meta vehicle journey",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:     "meta-vehicle-journey",
						Usage:    "uri of the meta vehicle journey",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "replay",
						Usage: "replay the stored realtime records first",
					},
				},
				Action: inspect,
			},
		},
	}
}

// LoadSchedule builds the base snapshot of the configured GTFS schedule.
func LoadSchedule(ctx context.Context, cfg *config.Config) (*ctdf.Data, error) {
	production, err := cfg.Production.Period()
	if err != nil {
		return nil, err
	}

	dataset := datasets.DataSet{
		Identifier: "schedule",
		Format:     datasets.DataSetFormatGTFSSchedule,
		Source:     cfg.Schedule.GTFSPath,
	}

	data, err := manager.New(nil).ImportSchedule(ctx, dataset, production)
	if err != nil {
		return nil, fmt.Errorf("loading schedule %s: %w", cfg.Schedule.GTFSPath, err)
	}

	log.Info().
		Str("version", data.Meta.DatasetVersion).
		Int("vehicle_journeys", len(data.PT.VehicleJourneys)).
		Time("production_begin", production.Begin).
		Int("production_days", production.Days).
		Msg("Loaded schedule")

	return data, nil
}

func newFilter(cfg *config.Config) (*disruptions.Filter, error) {
	expression := cfg.Ingestion.Expression()
	if expression == "" {
		return nil, nil
	}

	return disruptions.NewFilter(expression)
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	data, err := LoadSchedule(c.Context, cfg)
	if err != nil {
		return err
	}

	if err := database.Connect(); err != nil {
		return err
	}
	if err := elastic_client.Connect(false); err != nil {
		return err
	}
	if err := redis_client.Connect(); err != nil {
		return err
	}

	filter, err := newFilter(cfg)
	if err != nil {
		return err
	}

	engineMetrics := metrics.New()
	dataManager := NewDataManager(data)
	engineMetrics.ObserveSnapshot(data)

	worker := &Worker{
		Manager:      dataManager,
		Filter:       filter,
		Store:        MongoStore{},
		Metrics:      engineMetrics,
		ElasticIndex: cfg.Elasticsearch.Index,
	}
	if err := worker.Replay(c.Context); err != nil {
		return fmt.Errorf("replaying stored records: %w", err)
	}

	queue, err := redis_client.QueueConnection.OpenQueue(cfg.Queues.Realtime)
	if err != nil {
		return err
	}
	publisher := NewPublisher(queue, redis_client.Client)

	redisConsumer := &consumer.RedisConsumer{
		QueueName:       cfg.Queues.Realtime,
		NumberConsumers: cfg.Queues.Consumers,
		BatchSize:       cfg.Queues.BatchSize,
		Timeout:         cfg.Queues.BatchTimeout,
		Consumer:        worker,
		Metrics:         engineMetrics,
	}
	redisConsumer.Setup()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	go StartCleaner(ctx, redis_client.QueueConnection)

	if cfg.Stomp.Address != "" {
		stompClient := &StompClient{
			Address:     cfg.Stomp.Address,
			Username:    cfg.Stomp.Login,
			Password:    cfg.Stomp.Passcode,
			Destination: cfg.Stomp.Destination,
			Publisher:   publisher,
		}
		go func() {
			if err := stompClient.Run(); err != nil {
				log.Error().Err(err).Msg("STOMP subscription ended")
			}
		}()
	}

	server := &api.Server{
		Snapshot:  dataManager,
		Publisher: publisher,
		Clock:     clock.RealClock{},
		Metrics:   engineMetrics.Handler(),
	}
	if domain := os.Getenv("AUTH0_DOMAIN"); domain != "" {
		server.Auth, err = api.EnsureValidToken(domain, os.Getenv("AUTH0_AUDIENCE"))
		if err != nil {
			return err
		}
	} else {
		log.Warn().Msg("AUTH0_DOMAIN is not set, write endpoints are unauthenticated")
	}
	go func() {
		if err := server.Listen(ctx, cfg.API.Listen); err != nil {
			log.Error().Err(err).Msg("Web API stopped")
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	<-signals // wait for signal
	go func() {
		<-signals // hard exit on second signal (in case shutdown gets stuck)
		os.Exit(1)
	}()

	cancel()
	<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish
	elastic_client.WaitUntilQueueEmpty()

	return nil
}

type applyReport struct {
	Applied []string
	Dropped []string
	Failed  map[string]string

	VehicleJourneys map[string]int
}

func applyFile(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	file, err := os.Open(c.String("file"))
	if err != nil {
		return err
	}
	defer file.Close()

	document, err := disruptionfile.Read(file)
	if err != nil {
		return err
	}

	if c.Bool("publish") {
		return publishDocument(cfg, document)
	}

	data, err := LoadSchedule(c.Context, cfg)
	if err != nil {
		return err
	}
	filter, err := newFilter(cfg)
	if err != nil {
		return err
	}

	report := applyReport{Failed: map[string]string{}, VehicleJourneys: map[string]int{}}
	record := func(id string, applied bool, err error) {
		switch {
		case err != nil:
			report.Failed[id] = err.Error()
		case applied:
			report.Applied = append(report.Applied, id)
		default:
			report.Dropped = append(report.Dropped, id)
		}
	}

	dataManager := NewDataManager(data)
	snapshot := dataManager.Update(func(data *ctdf.Data) {
		for _, disruption := range document.Disruptions {
			applied, err := disruptions.HandleDisruption(data, disruption, filter)
			record(disruption.ID, applied, err)
		}
		for _, update := range document.TripUpdates {
			err := disruptions.HandleTripUpdate(data, update)
			record(update.ID, err == nil, err)
		}
	})

	for _, level := range ctdf.RTLevels {
		report.VehicleJourneys[level.String()] = snapshot.PT.CountVehicleJourneys(level)
	}

	pretty.Println(report)

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d records failed to apply", len(report.Failed))
	}

	return nil
}

func publishDocument(cfg *config.Config, document *disruptionfile.Document) error {
	if err := redis_client.Connect(); err != nil {
		return err
	}

	queue, err := redis_client.QueueConnection.OpenQueue(cfg.Queues.Realtime)
	if err != nil {
		return err
	}
	publisher := NewPublisher(queue, nil)

	var errs []error
	for _, disruption := range document.Disruptions {
		if _, err := publisher.Publish(ctdf.EventTypeDisruptionUpserted, disruption); err != nil {
			errs = append(errs, err)
		}
	}
	for _, update := range document.TripUpdates {
		if _, err := publisher.Publish(ctdf.EventTypeTripUpdated, update); err != nil {
			errs = append(errs, err)
		}
	}

	log.Info().
		Int("disruptions", len(document.Disruptions)).
		Int("trip_updates", len(document.TripUpdates)).
		Int("failed", len(errs)).
		Msg("Queued disruption file")

	return errors.Join(errs...)
}

type inspectedJourney struct {
	URI              string
	Level            string
	ValidityPatterns map[string]string
	StopTimes        []string
}

func inspect(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	data, err := LoadSchedule(c.Context, cfg)
	if err != nil {
		return err
	}
	dataManager := NewDataManager(data)

	if c.Bool("replay") {
		if err := database.Connect(); err != nil {
			return err
		}
		filter, err := newFilter(cfg)
		if err != nil {
			return err
		}

		worker := &Worker{Manager: dataManager, Filter: filter, Store: MongoStore{}}
		if err := worker.Replay(c.Context); err != nil {
			return err
		}
	}

	snapshot := dataManager.Current()
	uri := c.String("meta-vehicle-journey")
	mvj, exists := snapshot.PT.MetaVJByURI(uri)
	if !exists {
		return fmt.Errorf("%w: %s", disruptions.ErrUnknownVJ, uri)
	}

	var journeys []inspectedJourney
	for _, vj := range snapshot.PT.AllVehicleJourneysOf(mvj) {
		journey := inspectedJourney{URI: vj.URI, Level: vj.RealtimeLevel.String(), ValidityPatterns: map[string]string{}}
		for _, level := range ctdf.RTLevels {
			journey.ValidityPatterns[level.String()] = vj.VP(level).String()
		}
		for _, stopTime := range vj.StopTimes {
			journey.StopTimes = append(journey.StopTimes, fmt.Sprintf("%s %s-%s",
				snapshot.PT.StopPoints[stopTime.StopPoint].URI,
				ctdf.FormatClock(stopTime.ArrivalTime),
				ctdf.FormatClock(stopTime.DepartureTime)))
		}
		journeys = append(journeys, journey)
	}

	var impacts []string
	for _, impact := range mvj.Impacts.Live(snapshot.PT.Disruptions) {
		impacts = append(impacts, fmt.Sprintf("%s (%s)", impact.URI, impact.Effect()))
	}

	pretty.Println(journeys)
	pretty.Println(impacts)

	return nil
}
