// Spatial Core - Reactive Spatial Relationship Engine
//
// This is the main entry point for the Spatial Core application.
// Spatial Core evaluates declarative rules over the relative geometry
// of tracked entities: poses stream in over MQTT or HTTP, primitives
// measure distances, angles and overlaps between entity pairs, and
// rules publish events when their boolean conditions transition.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	_ "github.com/kestrelworks/spatial-core/migrations"

	"github.com/kestrelworks/spatial-core/internal/api"
	"github.com/kestrelworks/spatial-core/internal/catalog"
	"github.com/kestrelworks/spatial-core/internal/entity"
	"github.com/kestrelworks/spatial-core/internal/history"
	"github.com/kestrelworks/spatial-core/internal/infrastructure/config"
	"github.com/kestrelworks/spatial-core/internal/infrastructure/database"
	"github.com/kestrelworks/spatial-core/internal/infrastructure/influxdb"
	"github.com/kestrelworks/spatial-core/internal/infrastructure/logging"
	"github.com/kestrelworks/spatial-core/internal/infrastructure/metrics"
	"github.com/kestrelworks/spatial-core/internal/infrastructure/mqtt"
	"github.com/kestrelworks/spatial-core/internal/pose"
	"github.com/kestrelworks/spatial-core/internal/primitive"
	"github.com/kestrelworks/spatial-core/internal/rule"
	"github.com/kestrelworks/spatial-core/internal/signal"
	"github.com/kestrelworks/spatial-core/internal/tracking"
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
	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Spatial Core",
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

	// Load the spec catalog
	catalogService := catalog.NewService(catalog.NewSQLiteRepository(db.DB))
	catalogService.SetLogger(log.With("component", "catalog"))
	if loadErr := catalogService.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading catalog: %w", loadErr)
	}

	// Entity registry and the engine's signal pipeline
	entities := entity.NewRegistry()
	entities.SetLogger(log.With("component", "entity"))

	ticker := signal.NewTicker(cfg.GetTickInterval())

	poseCfg := pose.DefaultConfig()
	poseCfg.LinearEpsilon = cfg.Engine.LinearEpsilon
	poseCfg.AngularEpsilon = cfg.Engine.AngularEpsilon
	poseCfg.RMSHalfLife = cfg.GetRMSHalfLife()

	provider := pose.NewProvider(ticker, entities, poseCfg)
	provider.SetLogger(log.With("component", "pose"))
	entities.OnEvict(provider.Evict)

	factory := primitive.NewFactory(provider, catalogService, poseCfg)
	factory.SetLogger(log.With("component", "primitive"))

	compiler := rule.NewCompiler(factory, provider, entities, catalogService)
	compiler.SetLogger(log.With("component", "rule"))

	ruleRegistry := rule.NewRegistry(compiler)
	ruleRegistry.SetLogger(log.With("component", "rule"))

	// Prometheus instrumentation (counts rule events as a sink)
	m := metrics.New()
	ruleRegistry.AddSink(m)

	// The tick hook must be in place before the clock starts.
	ticker.OnTick(m.ObserveTick)
	go ticker.Run(ctx)

	// Connect to InfluxDB (optional) and record event history
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

		ruleRegistry.AddSink(history.NewRecorder(influxClient))
	} else {
		log.Info("InfluxDB disabled, rule event history unavailable")
	}

	// Connect to MQTT broker and start the tracking bridge (optional)
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
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log.With("component", "mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
			m.SetMQTTConnected(true)
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
			m.SetMQTTConnected(false)
		})
		m.SetMQTTConnected(true)

		// #nosec G115 -- QoS validated to 0..2 by config.Validate
		bridge := tracking.New(mqttClient, entities, byte(cfg.MQTT.QoS))
		bridge.SetLogger(log.With("component", "tracking"))
		bridge.OnPoseUpdate(m.ObservePoseUpdate)
		if startErr := bridge.Start(); startErr != nil {
			return fmt.Errorf("starting tracking bridge: %w", startErr)
		}
		log.Info("tracking bridge started")

		// Rule events go back out over MQTT
		ruleRegistry.AddSink(bridge)
	} else {
		log.Info("MQTT disabled, pose ingest limited to the HTTP API")
	}

	// Apply the seed file (optional): entities, primitives, compositions, rules
	if cfg.Catalog.SeedPath != "" {
		if seedErr := applySeed(ctx, cfg.Catalog.SeedPath, catalogService, entities, log); seedErr != nil {
			return fmt.Errorf("applying seed: %w", seedErr)
		}
	}

	// Register every catalogued rule with the engine. A rule that fails
	// to compile (missing entity, stale primitive reference) is logged
	// and skipped so one bad rule cannot keep the engine down.
	for _, spec := range catalogService.Rules() {
		spec := spec
		if regErr := ruleRegistry.RegisterRule(&spec); regErr != nil {
			log.Warn("rule failed to register", "rule_id", spec.ID, "error", regErr)
		}
	}
	log.Info("rules registered", "active", ruleRegistry.Count(), "catalogued", len(catalogService.Rules()))

	m.SetEntityCount(entities.Count())
	m.SetRuleCount(ruleRegistry.Count())

	// WebSocket hub: created here so the rule registry can use it as a
	// sink before the API server starts.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)
	ruleRegistry.AddSink(hub)

	// Start the API server
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Entities:    entities,
		Catalog:     catalogService,
		Rules:       ruleRegistry,
		MQTT:        mqttClient,
		DB:          db,
		Influx:      influxClient,
		Metrics:     m,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

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
	// 2. MQTT (if enabled)
	// 3. InfluxDB (if enabled)
	// 4. Database

	log.Info("Spatial Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SPATIALCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SPATIALCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// applySeed loads the declarative seed file, registers its entities,
// and upserts its specs into the catalog. Entities that are already
// registered are skipped: live tracking state wins over the seed.
func applySeed(ctx context.Context, path string, svc *catalog.Service, entities *entity.Registry, log *logging.Logger) error {
	seed, err := catalog.LoadSeed(path)
	if err != nil {
		return err
	}

	for i := range seed.Entities {
		e := seed.Entities[i]
		if regErr := entities.Register(&e); regErr != nil {
			if errors.Is(regErr, entity.ErrExists) {
				continue
			}
			log.Warn("seed entity rejected", "entity_id", e.ID, "error", regErr)
		}
	}

	applied, skipped := svc.ApplySeed(ctx, seed)
	log.Info("seed applied",
		"path", path,
		"entities", len(seed.Entities),
		"specs_applied", applied,
		"specs_skipped", skipped,
	)
	return nil
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
