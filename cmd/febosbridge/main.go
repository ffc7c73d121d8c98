// Febos bridge polls the EmmeTI Febos cloud and mirrors every installation's
// sensors and binary states onto MQTT, an HTTP API and a WebSocket feed.
//
// Startup order: config, logging, database, cloud client, coordinator,
// MQTT publisher, HTTP API, initial discovery, then the poll loop until
// SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/febos-bridge/internal/api"
	"github.com/nerrad567/febos-bridge/internal/bridges/febos"
	febosapi "github.com/nerrad567/febos-bridge/internal/bridges/febos/api"
	"github.com/nerrad567/febos-bridge/internal/catalog"
	"github.com/nerrad567/febos-bridge/internal/infrastructure/config"
	"github.com/nerrad567/febos-bridge/internal/infrastructure/database"
	"github.com/nerrad567/febos-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/febos-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/febos-bridge/internal/metrics"
	"github.com/nerrad567/febos-bridge/internal/publisher"
	"github.com/nerrad567/febos-bridge/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until ctx is cancelled.
// Any startup failure, including the first discovery, is returned.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting febos bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"poll_interval", cfg.GetPollInterval(),
		"installations", len(cfg.Febos.Installations),
	)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	cloud, err := febosapi.New(febosapi.Options{
		BaseURL:  cfg.Febos.BaseURL,
		Username: cfg.Febos.Username,
		Password: cfg.Febos.Password,
		Timeout:  cfg.GetRequestTimeout(),
		Logger:   log.Component("febos-api"),
	})
	if err != nil {
		return fmt.Errorf("creating cloud client: %w", err)
	}

	promMetrics := metrics.New()
	catalogRepo := catalog.NewSQLiteRepository(db)

	coordinator, err := febos.New(febos.Options{
		Backend:       cloud,
		Logger:        log.Component("febos"),
		Installations: cfg.Febos.Installations,
		Recorder:      promMetrics,
		Observers: []febos.Observer{
			catalog.NewObserver(catalogRepo, log.Component("catalog")),
			promMetrics,
		},
	})
	if err != nil {
		return fmt.Errorf("creating coordinator: %w", err)
	}

	checks := map[string]api.HealthChecker{"database": db}

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		pub := publisher.New(mqttClient, byte(cfg.MQTT.QoS), log.Component("publisher"))
		coordinator.AddObserver(pub)
		if subErr := pub.SubscribeCommands(ctx, coordinator); subErr != nil {
			return fmt.Errorf("subscribing to commands: %w", subErr)
		}
		defer pub.Wait()
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	deps := api.Deps{
		Config:         cfg.API,
		WS:             cfg.WebSocket,
		Metrics:        cfg.Metrics,
		Logger:         log.Component("api"),
		Bridge:         coordinator,
		Catalog:        catalogRepo,
		MetricsHandler: promMetrics.Handler(),
		Checks:         checks,
		DB:             db,
		Session:        cloud,
		Version:        version,
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}
	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	coordinator.AddObserver(server)
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if _, err := coordinator.Discover(ctx); err != nil {
		return fmt.Errorf("initial discovery: %w", err)
	}

	log.Info("initialisation complete, polling until shutdown signal")
	if err := coordinator.Run(ctx, cfg.GetPollInterval()); err != nil && ctx.Err() == nil {
		return fmt.Errorf("poll loop: %w", err)
	}

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns FEBOS_CONFIG if set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv("FEBOS_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
