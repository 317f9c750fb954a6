// Media Coordinator
//
// The coordinator accepts JSON commands over HTTP, validates them against a
// closed schema and the device inventory, keeps playback sessions in memory
// and forwards the relevant calls to TV players and audio zones.
//
// Optional sinks, each switched on in the config file:
//   - database: SQLite audit trail of dispatched commands (GET /commands)
//   - mqtt:     session and command events, plus command ingress
//   - influxdb: dispatch and device-call timings
//   - tracing:  OTLP/HTTP span export
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/media-coordinator/migrations"

	"github.com/nerrad567/media-coordinator/internal/api"
	"github.com/nerrad567/media-coordinator/internal/audit"
	"github.com/nerrad567/media-coordinator/internal/device"
	"github.com/nerrad567/media-coordinator/internal/dispatch"
	"github.com/nerrad567/media-coordinator/internal/infrastructure/config"
	"github.com/nerrad567/media-coordinator/internal/infrastructure/database"
	"github.com/nerrad567/media-coordinator/internal/infrastructure/influxdb"
	"github.com/nerrad567/media-coordinator/internal/infrastructure/logging"
	"github.com/nerrad567/media-coordinator/internal/infrastructure/mqtt"
	"github.com/nerrad567/media-coordinator/internal/infrastructure/tracing"
	"github.com/nerrad567/media-coordinator/internal/inventory"
	"github.com/nerrad567/media-coordinator/internal/metrics"
	"github.com/nerrad567/media-coordinator/internal/mqttrelay"
	"github.com/nerrad567/media-coordinator/internal/session"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configPathEnv     = "MEDIACOORD_CONFIG"

	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the coordinator and blocks until ctx is cancelled.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting media coordinator",
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
	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "delivery", cfg.Dispatch.Delivery)

	// Tracing is a no-op provider unless enabled.
	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, version)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error("error flushing traces", "error", err)
		}
	}()
	if cfg.Tracing.Enabled {
		log.Info("tracing enabled", "endpoint", cfg.Tracing.Endpoint)
	}

	// Inventory is required; the coordinator refuses to start on a bad file.
	index, err := inventory.Load(cfg.Inventory.Path)
	if err != nil {
		return fmt.Errorf("loading inventory: %w", err)
	}
	tvs, zones, btDevices := index.Counts()
	log.Info("inventory loaded",
		"path", cfg.Inventory.Path,
		"tvs", tvs,
		"audio_zones", zones,
		"bluetooth_devices", btDevices,
	)

	store := session.NewStore(session.WithLogger(log.Component("session")))

	var (
		observers  []dispatch.Observer
		commandLog audit.Repository
		checks     []healthChecker
	)

	// Command audit trail (optional)
	if cfg.Database.Enabled {
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
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		log.Info("database ready", "path", cfg.Database.Path)

		repo := audit.NewSQLiteRepository(db.DB)
		recorder := audit.NewRecorder(repo, log.Component("audit"), 0)
		defer recorder.Close()

		observers = append(observers, recorder)
		commandLog = repo
		checks = append(checks, healthChecker{"database", db.HealthCheck})
	} else {
		log.Info("command audit trail disabled")
	}

	// Time-series metrics (optional)
	var onDeviceCall func(device.Call)
	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)

		recorder := metrics.NewRecorder(influxClient)
		observers = append(observers, recorder)
		onDeviceCall = recorder.DeviceCall
		checks = append(checks, healthChecker{"influxdb", influxClient.HealthCheck})
	} else {
		log.Info("InfluxDB disabled")
	}

	// MQTT events (optional). The relay is an observer, so it is set up
	// before the dispatcher; command ingress starts once the dispatcher exists.
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log.Component("mqtt"))
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		relay := mqttrelay.NewRelay(mqttClient, mqttClient.Topics(), log.Component("mqttrelay"), 0)
		defer relay.Close()
		observers = append(observers, relay)
		checks = append(checks, healthChecker{"mqtt", mqttClient.HealthCheck})
	} else {
		log.Info("MQTT disabled")
	}

	// WebSocket hub, owned here so its relay is registered with the others.
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	hub := api.NewHub(cfg.WebSocket, log.Component("api"))
	go hub.Run(hubCtx)
	observers = append(observers, api.NewEventRelay(hub))

	devices := device.New(device.Options{
		Timeout: cfg.DeviceTimeout(),
		Logger:  log.Component("device"),
		OnCall:  onDeviceCall,
	})

	dispatcher, err := dispatch.New(dispatch.Options{
		Inventory:   index,
		Store:       store,
		Devices:     devices,
		Delivery:    dispatch.Delivery(cfg.Dispatch.Delivery),
		LockTimeout: cfg.LockTimeout(),
		Logger:      log.Component("dispatch"),
		Observers:   observers,
	})
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}

	// MQTT command ingress. Every observer is already in place.
	if mqttClient != nil {
		listener := mqttrelay.NewListener(dispatcher, mqttClient, mqttClient.Topics(), log.Component("mqttrelay"))
		if err := listener.Listen(mqttClient, mqttClient.QoS()); err != nil {
			return err
		}
		defer listener.Close()
	}

	// HTTP API and WebSocket endpoint
	server, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Logger:     log.Component("api"),
		Commands:   dispatcher,
		Sessions:   store,
		CommandLog: commandLog,
		Version:    version,
		Hub:        hub,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()
	checks = append(checks, healthChecker{"api", server.HealthCheck})

	// Every enabled sink must answer before the coordinator reports ready.
	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal", "address", server.Addr())

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the config file path from MEDIACOORD_CONFIG or the default.
func getConfigPath() string {
	if path := os.Getenv(configPathEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthChecker is one named startup check.
type healthChecker struct {
	name  string
	check func(context.Context) error
}

// healthCheck runs checks in order and stops at the first failure.
func healthCheck(ctx context.Context, checks []healthChecker) error {
	for _, c := range checks {
		if err := c.check(ctx); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}
	return nil
}
