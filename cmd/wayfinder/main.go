package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/wayfinder/internal/audio"
	"github.com/udisondev/wayfinder/internal/config"
	"github.com/udisondev/wayfinder/internal/db"
	"github.com/udisondev/wayfinder/internal/geo"
	"github.com/udisondev/wayfinder/internal/navigator"
	"github.com/udisondev/wayfinder/internal/poi"
	"github.com/udisondev/wayfinder/internal/speech"
	"github.com/udisondev/wayfinder/internal/world"
)

const ConfigPath = "config/wayfinder.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("WAYFINDER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("wayfinder starting", "config", cfgPath, "log_level", cfg.LogLevel)

	names, err := loadNames(cfg)
	if err != nil {
		return err
	}
	labels, err := poi.LoadLabels(cfg.Locale.PoFile)
	if err != nil {
		return fmt.Errorf("loading labels: %w", err)
	}

	if cfg.Database.Enabled {
		closeDB, err := applyDatabase(ctx, &cfg, names)
		if err != nil {
			return err
		}
		defer closeDB()
	}

	grid, err := geo.ParseLayout(demoLayout, 1, mgl64.Vec3{})
	if err != nil {
		return fmt.Errorf("loading demo layout: %w", err)
	}
	registry := world.NewECSRegistry()
	sim := newSimulation(registry)

	var mixer *audio.Mixer
	var backend audio.Backend = audio.Nop{}
	if cfg.Audio.Enabled {
		mixer, err = audio.NewMixer(cfg.Audio.SampleRate, cfg.Audio.MasterVolume)
		if err != nil {
			return fmt.Errorf("creating mixer: %w", err)
		}
		backend = mixer
	}

	speakers := speech.Multi{speech.LogSpeaker{}}
	var hub *speech.Hub
	if cfg.Speech.WebSocketAddr != "" {
		hub = speech.NewHub()
		speakers = append(speakers, hub)
	}

	engine, err := navigator.New(cfg, navigator.Deps{
		Registry: registry,
		Signals:  sim,
		Pose:     sim,
		Mesh:     grid,
		Prober:   grid,
		Backend:  backend,
		Speaker:  speakers,
		Names:    names,
		Labels:   labels,
	})
	if err != nil {
		return fmt.Errorf("creating navigator: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer engine.Shutdown()
		slog.Info("starting tick loop", "rate", cfg.TickRate)
		return runLoop(gctx, engine, sim, cfg.TickRate)
	})

	if mixer != nil {
		g.Go(func() error {
			slog.Info("starting audio pump", "sample_rate", mixer.SampleRate())
			if err := audio.Stream(gctx, mixer, io.Discard, 20*time.Millisecond); err != nil {
				return fmt.Errorf("audio pump: %w", err)
			}
			return nil
		})
	}

	if hub != nil {
		g.Go(func() error {
			if err := hub.ListenAndServe(gctx, cfg.Speech.WebSocketAddr); err != nil {
				return fmt.Errorf("speech server: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("wayfinder error: %w", err)
	}
	return nil
}

// runLoop drives the engine at a fixed rate until ctx is cancelled.
func runLoop(ctx context.Context, engine *navigator.Engine, sim *simulation, tickRate int) error {
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			for _, ev := range sim.Advance(now) {
				switch ev {
				case simAreaChanged:
					engine.AreaChanged()
				case simNextItem:
					engine.CycleItem(+1)
					engine.AnnounceCurrent()
				case simNextCategory:
					engine.CycleCategory(+1)
					engine.AnnounceCategory()
				}
			}
			engine.Tick()
		}
	}
}

func loadNames(cfg config.Config) (*poi.Names, error) {
	if cfg.Names.File == "" {
		return poi.NewNames(), nil
	}
	names, err := poi.LoadNames(cfg.Names.File)
	if err != nil {
		return nil, fmt.Errorf("loading names: %w", err)
	}
	slog.Info("poi names loaded", "file", cfg.Names.File, "count", names.Len())
	return names, nil
}

// applyDatabase migrates the schema and overlays stored settings and names.
func applyDatabase(ctx context.Context, cfg *config.Config, names *poi.Names) (func(), error) {
	dsn := cfg.Database.DSN()
	if err := db.RunMigrations(ctx, dsn); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	database, err := db.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	slog.Info("database connected")

	overridden, err := database.Settings().ApplyTo(ctx, &cfg.Categories)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("loading category settings: %w", err)
	}
	loaded, err := database.Names().LoadInto(ctx, names)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("loading poi names: %w", err)
	}
	slog.Info("database settings applied", "categories", overridden, "names", loaded)

	return database.Close, nil
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
