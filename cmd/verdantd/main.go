// Verdant Core - Garden Node Registration Service
//
// This is the main entry point for the Verdant Core application.
// Verdant Core runs the claim pipeline for pre-provisioned garden
// hardware: nodes announce themselves over MQTT, field technicians
// discover and register them over the REST/WebSocket API, and node
// telemetry flows into InfluxDB.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/verdantgrid/verdant-core/migrations"

	"github.com/verdantgrid/verdant-core/internal/api"
	"github.com/verdantgrid/verdant-core/internal/device"
	"github.com/verdantgrid/verdant-core/internal/infrastructure/config"
	"github.com/verdantgrid/verdant-core/internal/infrastructure/database"
	"github.com/verdantgrid/verdant-core/internal/infrastructure/influxdb"
	"github.com/verdantgrid/verdant-core/internal/infrastructure/logging"
	"github.com/verdantgrid/verdant-core/internal/infrastructure/mqtt"
	"github.com/verdantgrid/verdant-core/internal/owner"
	"github.com/verdantgrid/verdant-core/internal/provision"
	"github.com/verdantgrid/verdant-core/internal/registration"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Verdant Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise device inventory
	inventory := device.NewInventory(device.NewSQLiteRepository(db.DB))
	inventory.SetLogger(log)
	if refreshErr := inventory.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device inventory: %w", refreshErr)
	}

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start listening for node announcements
	listener := newProvisionListener(inventory, influxClient, log)
	qos := byte(cfg.MQTT.QoS) //nolint:gosec // QoS validated to 0..2 by config
	if startErr := listener.Start(ctx, mqttClient, qos); startErr != nil {
		return fmt.Errorf("starting provision listener: %w", startErr)
	}
	defer func() {
		log.Info("stopping provision listener")
		if stopErr := listener.Stop(mqttClient); stopErr != nil {
			log.Error("error stopping provision listener", "error", stopErr)
		}
	}()
	log.Info("provision listener started")

	// Registration transaction service
	attempts := registration.NewSQLiteAttempts(db.DB)
	regService := registration.NewService(db, inventory, attempts)
	regService.SetLogger(log)
	regService.SetPublisher(registration.NewMQTTPublisher(mqttClient))

	// Start API server
	apiServer, err := api.New(api.Deps{
		Config:       cfg.API,
		WS:           cfg.WebSocket,
		Logger:       log,
		Inventory:    inventory,
		Registration: regService,
		Owners:       owner.NewSQLiteRepository(db.DB),
		Attempts:     attempts,
		MQTT:         mqttClient,
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Provision listener
	// 3. InfluxDB (if enabled)
	// 4. MQTT
	// 5. Database

	log.Info("Verdant Core stopped")
	return nil
}

// newProvisionListener wires the listener, keeping the nil-interface
// subtlety in one place: a nil *influxdb.Client must not become a
// non-nil Telemetry interface.
func newProvisionListener(inv *device.Inventory, influxClient *influxdb.Client, log *logging.Logger) *provision.Listener {
	var telemetry provision.Telemetry
	if influxClient != nil {
		telemetry = influxClient
	}
	listener := provision.NewListener(inv, telemetry)
	listener.SetLogger(log)
	return listener
}

// getConfigPath returns the configuration file path.
// Uses VERDANT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("VERDANT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
