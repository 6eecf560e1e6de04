package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jolla3/maziwa-smart-sub000/internal/aggregation"
	corecfg "github.com/jolla3/maziwa-smart-sub000/internal/core/config"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/storage"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/storage/memory"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/storage/postgres"
	"github.com/jolla3/maziwa-smart-sub000/internal/directory"
	"github.com/jolla3/maziwa-smart-sub000/internal/ledger"
	"github.com/jolla3/maziwa-smart-sub000/internal/migrations"
	"github.com/jolla3/maziwa-smart-sub000/internal/projection"
	"github.com/jolla3/maziwa-smart-sub000/internal/server"
)

// stores groups what one store.type provides.
type stores struct {
	collections storage.CollectionStore
	directory   storage.DirectoryStore
	snapshots   storage.SnapshotStore
	pruner      aggregation.SnapshotPruner
	health      server.HealthChecker
	close       func()
}

func main() {
	configPath := flag.String("config", "maziwa.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"store", cfg.Store.Type,
		"timezone", cfg.Ledger.Timezone,
		"max_updates_per_slot", cfg.Ledger.MaxUpdatesPerSlot,
		"auth", cfg.Server.AuthToken != "")

	classifier, err := cfg.Classifier()
	if err != nil {
		slog.Error("Invalid slot configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Storage
	st, err := openStores(cfg)
	if err != nil {
		slog.Error("Failed to initialize store", "type", cfg.Store.Type, "error", err)
		os.Exit(1)
	}
	defer st.close()

	// 3. Initialize Ledger (the only writer)
	ledgerSvc := ledger.NewService(st.collections, classifier, ledger.Options{
		MaxUpdatesPerSlot: cfg.Ledger.MaxUpdatesPerSlot,
		WriteTimeout:      corecfg.MustDuration(cfg.Ledger.WriteTimeout),
		MaxBodySizeMB:     cfg.Server.MaxBodySizeMB,
	})

	// 4. Initialize Aggregation
	engine := aggregation.NewEngine(st.collections, st.snapshots, aggregation.Options{
		Timeout:  corecfg.MustDuration(cfg.Aggregation.Timeout),
		Location: classifier.Location(),
	})

	warmer := aggregation.NewWarmer(engine, aggregation.WarmerOptions{
		Interval:       corecfg.MustDuration(cfg.Aggregation.WarmInterval),
		WorkerCount:    cfg.Aggregation.WorkerCount,
		Pruner:         st.pruner,
		SnapshotMaxAge: corecfg.MustWindow(cfg.Aggregation.SnapshotMaxAge),
	})

	// 5. Initialize Projection (cached read API), invalidated by every ledger write
	projectionSvc := projection.NewService(engine, ledgerSvc, st.collections, projection.Options{
		TTL:          corecfg.MustDuration(cfg.Cache.TTL),
		FetchTimeout: corecfg.MustDuration(cfg.Cache.FetchTimeout),
		Location:     classifier.Location(),
	})
	defer projectionSvc.Close()
	unsubscribe := ledgerSvc.Subscribe(projectionSvc.OnRecorded)
	defer unsubscribe()

	// 6. Initialize Directory
	directoryHandler := directory.NewHandler(st.directory, cfg.Directory.DefaultPageSize, cfg.Directory.MaxPageSize)

	// 7. Initialize Server
	srv := server.New(server.Options{
		Addr:      fmtAddr(cfg.Server.Host, cfg.Server.Port),
		Mode:      cfg.Server.Mode,
		AuthToken: cfg.Server.AuthToken,
		Health:    st.health,
	})
	ledgerSvc.RegisterRoutes(srv.API())
	projectionSvc.RegisterRoutes(srv.API())
	directoryHandler.RegisterRoutes(srv.API())

	// 8. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Aggregation.Enabled {
		go func() {
			if err := warmer.Start(ctx); err != nil {
				slog.Error("Warmer stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("Rollup warmer disabled by config")
	}

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func openStores(cfg *corecfg.Config) (*stores, error) {
	if cfg.Store.Type == "memory" {
		store := memory.New()
		if cfg.Store.SeedFile != "" {
			if err := store.LoadSeedFile(cfg.Store.SeedFile); err != nil {
				return nil, err
			}
		}
		snapshots := memory.NewSnapshots()
		slog.Warn("Using in-memory store; data is lost on restart")
		return &stores{
			collections: store,
			directory:   store,
			snapshots:   snapshots,
			pruner:      snapshots,
			close:       func() {},
		}, nil
	}

	db, err := postgres.OpenDB(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		return nil, err
	}

	// Migrations run before the adapter prepares statements against the schema.
	if err := migrations.RunMigrations(db, cfg.Database.AutoMigrate); err != nil {
		db.Close()
		return nil, fmt.Errorf("run database migrations: %w", err)
	}

	dbAdapter, err := postgres.NewAdapterWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	snapshots := postgres.NewSnapshotAdapter(dbAdapter.DB())
	return &stores{
		collections: dbAdapter,
		directory:   dbAdapter,
		snapshots:   snapshots,
		pruner:      snapshots,
		health:      server.PingFunc(dbAdapter.DB().PingContext),
		close:       func() { dbAdapter.Close() },
	}, nil
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
