package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"traffic-observer/src/backend"
	"traffic-observer/src/config"
	"traffic-observer/src/helpers"
	"traffic-observer/src/interfaces"
	"traffic-observer/src/logger"
	"traffic-observer/src/models"
	"traffic-observer/src/network"
	"traffic-observer/src/poller"
	"traffic-observer/src/pushchannel"
	"traffic-observer/src/reconcile"
	"traffic-observer/src/registry"
	"traffic-observer/src/roads"
	"traffic-observer/src/server"
	"traffic-observer/src/session"
	"traffic-observer/src/storage"
	"traffic-observer/src/utils"
	"traffic-observer/src/viewbind"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	// 1. Storage
	var db interfaces.IDatabase
	var creds interfaces.ICredentialStore

	switch cfg.Storage.DBType {
	case "postgres":
		pg, perr := storage.NewPostgresDB(cfg.MConfig, appLogger)
		if perr != nil {
			appLogger.Critical("Failed to init db: %v", perr)
		}
		db, creds = pg, pg
	default:
		// Default to SQLite
		lite, lerr := storage.NewAsyncSQLiteDB(cfg.MConfig, appLogger)
		if lerr != nil {
			appLogger.Critical("Failed to init db: %v", lerr)
		}
		db, creds = lite, lite
	}

	// Postgres may still be coming up when we are; retry before giving up.
	if err := helpers.RetryWithBackoff("db initialize", 3, 2*time.Second, appLogger, db.Initialize); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
	}
	defer db.Close()

	// 2. Transport and backend client
	netManager := network.NewAsyncNetworkManager(cfg.MConfig, appLogger)
	api := backend.NewClient(netManager, logger.NewLogger(cfg.LogLevel, "Backend"))

	// 3. Reconciliation core
	reg := registry.NewRegistry(logger.NewLogger(cfg.LogLevel, "Registry"))
	engine := reconcile.NewEngine(logger.NewLogger(cfg.LogLevel, "Reconcile"))
	history := utils.NewHistoryManager(1000, logger.NewLogger(cfg.LogLevel, "History"))

	// 4. Road catalog (static geometry, colored by the live feeds)
	segments, err := roads.Load(cfg.Roads.CatalogPath, appLogger)
	if err != nil {
		appLogger.Critical("Failed to load road catalog: %v", err)
	}
	engine.SeedRoads(segments)

	// 5. Restore last persisted view so the dashboard is warm on startup
	if snapshot, err := db.LoadViewSnapshot(); err != nil {
		appLogger.Warning("Could not load persisted view: %v", err)
	} else if snapshot != nil {
		appLogger.Info("Restoring persisted view (%d signals, %d roads)", len(snapshot.Signals), len(snapshot.Roads))
		engine.Restore(snapshot)
	}

	// 6. Push channel and session
	channel := pushchannel.NewChannel(cfg.MConfig, logger.NewLogger(cfg.LogLevel, "PushChannel"), reg)
	sess := session.NewManager(cfg.MConfig, logger.NewLogger(cfg.LogLevel, "Session"),
		api, netManager, creds, channel, reg)

	// 7. Snapshot pollers (push carries deltas, polls carry authority)
	pollSet := poller.NewSet(appLogger)

	fetchSignals := func(ctx context.Context) error {
		signals, err := api.GetSignals("")
		if err != nil {
			return err
		}
		engine.ApplySignalSnapshot(signals)

		now := time.Now().UnixMilli()
		for i := range signals {
			s := &signals[i]
			history.Record(models.MTrafficLogPoint{
				SignalID:     s.ID,
				Timestamp:    now,
				Density:      s.Density,
				VehicleCount: s.VehicleCount,
				Speed:        models.SpeedFromDensity(s.Density),
			})
		}
		return nil
	}

	signalsPoller := poller.NewPoller("signals",
		time.Duration(cfg.Poll.SignalsIntervalSeconds)*time.Second,
		logger.NewLogger(cfg.LogLevel, "Poller-signals"), fetchSignals)

	statsPoller := poller.NewPoller("stats",
		time.Duration(cfg.Poll.StatsIntervalSeconds)*time.Second,
		logger.NewLogger(cfg.LogLevel, "Poller-stats"),
		func(ctx context.Context) error {
			stats, err := api.GetTrafficStats("")
			if err != nil {
				return err
			}
			engine.ApplyStats(stats)
			return nil
		})

	emergencyPoller := poller.NewPoller("emergency",
		time.Duration(cfg.Poll.EmergencyIntervalSeconds)*time.Second,
		logger.NewLogger(cfg.LogLevel, "Poller-emergency"),
		func(ctx context.Context) error {
			routes, err := api.GetActiveEmergencyRoutes()
			if err != nil {
				return err
			}
			engine.ApplyRoutesSnapshot(routes)
			return nil
		})

	contextPoller := poller.NewPoller("context",
		time.Duration(cfg.Poll.ContextIntervalSeconds)*time.Second,
		logger.NewLogger(cfg.LogLevel, "Poller-context"),
		func(ctx context.Context) error {
			if weather, err := api.GetWeather(); err == nil {
				engine.ApplyContext(weather)
			}
			pattern, err := api.GetTrafficPattern()
			if err != nil {
				return err
			}
			engine.ApplyContext(pattern)
			if congestion, err := api.GetRoadCongestion(); err == nil {
				engine.ApplyRoadCongestion(*congestion)
			}
			return nil
		})

	persistPoller := poller.NewPoller("persist", time.Minute,
		logger.NewLogger(cfg.LogLevel, "Poller-persist"),
		func(ctx context.Context) error {
			if err := history.Flush(db); err != nil {
				return err
			}
			if err := db.SaveViewSnapshot(engine.Snapshot("INITIAL")); err != nil {
				return err
			}
			return db.CleanupOldData()
		})

	for _, p := range []*poller.Poller{signalsPoller, statsPoller, emergencyPoller, contextPoller, persistPoller} {
		p.OnError = sess.HandleFailure
		pollSet.Add(p)
	}

	// 8. Feed: push frames into the engine; delta flags trigger a snapshot
	feed := reconcile.BindFeed(reg, engine, logger.NewLogger(cfg.LogLevel, "Feed"),
		func() {
			if err := fetchSignals(context.Background()); err != nil {
				appLogger.Warning("Signal refresh failed: %v", err)
				sess.HandleFailure(err)
			}
		})
	defer feed.Unbind()

	// 9. View binding and commands
	renderer := viewbind.NewLogRenderer(logger.NewLogger(cfg.LogLevel, "Renderer"))
	binder := viewbind.NewBinder(engine, renderer, logger.NewLogger(cfg.LogLevel, "Binder"),
		time.Duration(cfg.View.DebounceMillis)*time.Millisecond)

	commander := viewbind.NewCommander(api, engine, logger.NewLogger(cfg.LogLevel, "Commander"))
	commander.OnFailure = sess.HandleFailure

	// 10. Dashboard server
	var srv interfaces.IDataExchanger = server.NewDashboardServer(cfg.MConfig, logger.NewLogger(cfg.LogLevel, "Server"), history, channel, commander)
	srv.UpdateState(engine.Snapshot("INITIAL"))
	engine.OnChange(func(cs reconcile.ChangeSet) {
		srv.Broadcast(engine.Snapshot("UPDATE"))
	})

	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 11. Authenticate and start the feeds
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess.OnTeardown(func() {
		pollSet.StopAll()
		binder.Stop()
	})

	if err := sess.Login(); err != nil {
		appLogger.Critical("Login failed: %v", err)
	}
	pollSet.StartAll(ctx)

	appLogger.Info("Initialization complete.")

	// 12. Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")

	cancel()
	pollSet.StopAll()
	binder.Stop()
	sess.Logout()
	if err := srv.Stop(); err != nil {
		appLogger.Warning("Server stop failed: %v", err)
	}

	// Final persistence pass so a restart comes back warm
	if err := history.Flush(db); err != nil {
		appLogger.Warning("Final history flush failed: %v", err)
	}
	if err := db.SaveViewSnapshot(engine.Snapshot("INITIAL")); err != nil {
		appLogger.Warning("Final snapshot save failed: %v", err)
	}

	appLogger.Info("Shutdown complete.")
}
