// Command intersim runs the four-way intersection simulation and records it
// to the configured storage backend.
//
// Usage:
//
//	intersim [flags] run        simulate and record one run
//	intersim [flags] generate   append vehicle IDs to the lane files
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/intersim/intersim/internal/api"
	"github.com/intersim/intersim/internal/cache"
	"github.com/intersim/intersim/internal/channel"
	"github.com/intersim/intersim/internal/config"
	"github.com/intersim/intersim/internal/dispatcher"
	"github.com/intersim/intersim/internal/driver"
	"github.com/intersim/intersim/internal/feed"
	"github.com/intersim/intersim/internal/geo"
	"github.com/intersim/intersim/internal/influx"
	"github.com/intersim/intersim/internal/logging"
	"github.com/intersim/intersim/internal/monitor"
	intOtel "github.com/intersim/intersim/internal/otel"
	"github.com/intersim/intersim/internal/run"
	"github.com/intersim/intersim/internal/sim"
	"github.com/intersim/intersim/internal/storage"
	"github.com/intersim/intersim/internal/worker"
	"github.com/intersim/intersim/pkg/core"
)

const appName = "intersim"

// shutdownTimeout bounds draining and closing after the run stops.
const shutdownTimeout = 30 * time.Second

type options struct {
	configDir     string
	runName       string
	statusPath    string
	withGenerator bool
	scale         float64
}

// app holds the session-wide logging state.
type app struct {
	start   time.Time
	opts    options
	logFile *os.File
	logs    *logging.SlogManager
	log     *slog.Logger
	otel    *intOtel.Provider
	runCtx  *run.Context
}

func main() {
	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	var opts options
	fs.StringVar(&opts.configDir, "config", ".", "directory containing "+config.FileName)
	fs.StringVar(&opts.runName, "name", "", "run name, defaults to a timestamp")
	fs.StringVar(&opts.statusPath, "status", "", "file rewritten with the latest lane counts")
	fs.BoolVar(&opts.withGenerator, "generate", false, "run the lane file generator alongside the simulation")
	fs.Float64Var(&opts.scale, "scale", 1, "generator pause scale")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.Int64("seed", 1, "random seed")
	fs.Uint64("ticks", 0, "stop after this many ticks, 0 runs until interrupted")
	fs.Duration("tick-rate", 16*time.Millisecond, "wall time per tick, 0 runs unthrottled")
	fs.String("storage", "memory", "storage backend (memory, sqlite, postgres, websocket)")
	fs.String("turn-policy", sim.TurnsUninterruptible.String(), "turning vehicle policy (uninterruptible, yield)")
	fs.Bool("feed", false, "spawn from lane files instead of randomly")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := loadConfig(opts.configDir, fs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{start: time.Now(), opts: opts, runCtx: run.NewContext()}
	if err := a.setupLogging(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var err error
	switch cmd := fs.Arg(0); cmd {
	case "run", "":
		err = a.run(ctx)
	case "generate":
		err = a.generate(ctx)
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		a.log.Error("Command failed", "error", err)
	}
	a.close()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file if present and applies flag overrides.
func loadConfig(dir string, fs *pflag.FlagSet) error {
	if err := config.Load(dir); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}
	return config.BindFlags(fs)
}

// setupLogging opens the session log file, starts OTel export into it and
// builds the slog pipeline on top.
func (a *app) setupLogging() error {
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}

	path := logging.LogFilePath(logsDir, appName, a.start)
	if _, err := os.Stat(path); err == nil {
		_ = os.Rename(path, path+".old")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	a.logFile = f

	level := viper.GetString("logLevel")
	a.logs = logging.NewSlogManager()
	a.logs.Setup(io.MultiWriter(os.Stderr, f), level, nil)
	a.log = a.logs.Logger()

	otelCfg := config.GetOTelConfig()
	a.otel, err = intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    f,
		MetricWriter: f,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		a.log.Error("Failed to initialize OTel provider", "error", err)
		a.otel, _ = intOtel.New(intOtel.Config{})
	}

	opts := []logging.SetupOption{logging.WithContext(logging.RunAttrs(a.runCtx.RunID, a.runCtx.Tick))}
	if gl := config.GetGraylogConfig(); gl.Enabled {
		opts = append(opts, logging.WithGraylog(gl.Address))
	}
	a.logs.Setup(io.MultiWriter(os.Stderr, f), level, a.otel.LoggerProvider(), opts...)
	a.log = a.logs.Logger()
	slog.SetDefault(a.log)
	a.log.Info("Logging to file", "path", path, "otel", a.otel.Enabled())
	return nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.logs.Flush(ctx); err != nil {
		a.log.Warn("Failed to flush logs", "error", err)
	}
	if err := a.otel.Shutdown(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "otel shutdown:", err)
	}
	_ = a.logs.Close()
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// anchor places the intersection center on the globe. A bad anchor only
// disables projected output.
func (a *app) anchor(p sim.Params) (core.Anchor, *geo.Anchor) {
	g := config.GetGeoConfig()
	ca := core.Anchor{Latitude: g.Latitude, Longitude: g.Longitude, MetersPerUnit: g.MetersPerUnit}
	c := p.Center()
	anchor, err := geo.NewAnchor(ca, core.Position{X: c.X, Y: c.Y})
	if err != nil {
		a.log.Warn("Geo anchor disabled", "error", err)
		return ca, nil
	}
	return ca, anchor
}

func (a *app) run(ctx context.Context) error {
	params, err := config.GetSimParams()
	if err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return err
	}
	coreAnchor, anchor := a.anchor(params)
	center := params.Center()

	backend, err := initStorage(config.GetStorageConfig(), storageEnv{
		Logger: a.log,
		Anchor: anchor,
		Center: core.Position{X: center.X, Y: center.Y},
		DB:     config.GetDBConfig(),
		API:    config.GetAPIConfig(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			a.log.Warn("Failed to close storage", "error", err)
		}
	}()

	disp, err := dispatcher.New(logging.NewDispatcherLogger(a.log))
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}
	workers := worker.NewManager(worker.Dependencies{
		Cache:      cache.NewVehicleCache(),
		RunContext: a.runCtx,
		Logger:     a.log,
	}, backend)
	workers.RegisterHandlers(disp)

	influxMgr := a.connectInflux(ctx)
	if influxMgr != nil {
		defer influxMgr.Close()
	}

	samples := channel.New[monitor.Sample](16)
	monDeps := monitor.Dependencies{
		Logger:        a.log,
		Dispatcher:    disp,
		RunContext:    a.runCtx,
		WorkerManager: workers,
		StatusPath:    a.opts.statusPath,
	}
	if influxMgr != nil {
		monDeps.Influx = influxMgr
	}
	mon := monitor.NewService(monDeps)
	if err := mon.Start(samples); err != nil {
		return err
	}
	defer mon.Stop()

	deps := driver.Dependencies{
		Dispatcher:      disp,
		RunContext:      a.runCtx,
		Logger:          a.log,
		Samples:         samples,
		MonitorInterval: config.GetMonitorConfig().Interval,
	}

	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	if feedCfg := config.GetFeedConfig(); feedCfg.Enabled {
		src, err := feed.NewSource(feedCfg.Dir, a.log)
		if err != nil {
			return err
		}
		batches := channel.New[feed.Batch](64)
		deps.Scheduler = feed.NewScheduler(a.log)
		deps.Arrivals = batches
		go func() {
			if err := src.Watch(feedCtx, feedCfg.PollInterval, batches); err != nil {
				a.log.Error("Lane feed stopped", "error", err)
			}
		}()
		if a.opts.withGenerator {
			go func() {
				if err := a.runGenerator(feedCtx, feedCfg); err != nil {
					a.log.Error("Generator stopped", "error", err)
				}
			}()
		}
	}

	drv, err := driver.New(config.GetDriverConfig(), params, deps)
	if err != nil {
		return err
	}

	name := a.opts.runName
	if name == "" {
		name = "run_" + a.start.Format("20060102_150405")
	}
	r, err := drv.NewRun(name, coreAnchor)
	if err != nil {
		return err
	}

	ticks, runErr := drv.Run(ctx, r)
	stopFeed()

	finishCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := drv.Finish(finishCtx); err != nil {
		return errors.Join(runErr, err)
	}
	if runErr != nil {
		return runErr
	}
	a.log.Info("Run finished", "run", r.ID, "ticks", ticks, "active", len(drv.Sim().Snapshot().Vehicles))

	if up, ok := backend.(storage.Uploadable); ok {
		a.upload(finishCtx, up)
	}
	return nil
}

// connectInflux returns nil when influx is disabled.
func (a *app) connectInflux(ctx context.Context) *influx.Manager {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return nil
	}
	m := influx.NewManager(cfg, logging.NewZerolog(a.logFile, viper.GetString("logLevel"), "influx"))
	if err := m.Connect(ctx); err != nil {
		a.log.Warn("InfluxDB unavailable", "error", err)
	}
	return m
}

// upload sends the exported recording to the replay server when enabled.
func (a *app) upload(ctx context.Context, up storage.Uploadable) {
	apiCfg := config.GetAPIConfig()
	path := up.GetExportedFilePath()
	if !apiCfg.Upload || path == "" {
		return
	}

	client := api.New(apiCfg.ServerURL, apiCfg.APIKey)
	if err := client.Healthcheck(ctx); err != nil {
		a.log.Warn("Replay server unreachable, keeping local export", "path", path, "error", err)
		return
	}
	if err := client.Upload(ctx, path, up.GetExportMetadata()); err != nil {
		a.log.Error("Upload failed", "path", path, "error", err)
		return
	}
	a.log.Info("Recording uploaded", "path", filepath.Base(path))
}

func (a *app) generate(ctx context.Context) error {
	return a.runGenerator(ctx, config.GetFeedConfig())
}

func (a *app) runGenerator(ctx context.Context, cfg config.FeedConfig) error {
	mode, err := feed.ParseMode(cfg.Generator)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(viper.GetInt64("driver.seed") + 1))
	gen, err := feed.NewGenerator(cfg.Dir, mode, rng, a.log)
	if err != nil {
		return err
	}
	a.log.Info("Generating lane arrivals", "dir", cfg.Dir, "mode", mode)
	return gen.Run(ctx, a.opts.scale)
}
