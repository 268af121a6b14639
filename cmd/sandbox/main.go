// cmd/sandbox/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EngoEngine/engo"
	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-skirmish/pkg/assets"
	"github.com/opd-ai/go-skirmish/pkg/camera"
	"github.com/opd-ai/go-skirmish/pkg/config"
	"github.com/opd-ai/go-skirmish/pkg/engine"
	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/event"
	"github.com/opd-ai/go-skirmish/pkg/health"
	"github.com/opd-ai/go-skirmish/pkg/logging"
	"github.com/opd-ai/go-skirmish/pkg/metrics"
	"github.com/opd-ai/go-skirmish/pkg/render"
	engorender "github.com/opd-ai/go-skirmish/pkg/render/engo"
	"github.com/opd-ai/go-skirmish/pkg/server"
)

// terminalCellAspect is the height/width ratio of a terminal cell.
const terminalCellAspect = 2

func main() {
	configPath := flag.String("config", "", "Path to configuration file (YAML, JSON or TOML)")
	rendererFlag := flag.String("renderer", "", "Renderer type: 'terminal', 'engo' or 'null' (overrides config)")
	logPath := flag.String("log", "", "Log file (overrides config)")
	createDefault := flag.Bool("default", false, "Write the default configuration to -config and exit")
	flag.Parse()

	if *createDefault {
		if err := writeDefault(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *rendererFlag != "" {
		cfg.Render.Renderer = *rendererFlag
	}
	if *logPath != "" {
		cfg.Telemetry.LogFile = *logPath
	}
	// The terminal front-end owns stdout.
	if cfg.Render.Renderer == "terminal" && cfg.Telemetry.LogFile == "" {
		cfg.Telemetry.LogFile = "skirmish.log"
	}

	logOut, closeLog, err := openLog(cfg.Telemetry.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	logger := logging.NewLoggerWithLevel(logOut, logging.ParseLevel(cfg.Telemetry.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithCorrelationID(ctx, logging.GenerateCorrelationID())

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "Sandbox failed", err)
		closeLog()
		os.Exit(1)
	}
}

func writeDefault(path string) error {
	if path == "" {
		return errors.New("-default requires -config")
	}
	if err := config.Save(config.DefaultConfig(), path); err != nil {
		return fmt.Errorf("failed to create default configuration: %w", err)
	}
	return nil
}

func openLog(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// sandbox holds the components shared by every front-end.
type sandbox struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *metrics.Metrics
	bus     *event.Bus
	world   *engine.World
	server  *server.Server
	health  *health.HealthChecker
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	world, err := engine.NewWorld(cfg, nil, logger)
	if err != nil {
		return fmt.Errorf("failed to create world: %w", err)
	}

	sb := &sandbox{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		bus:     event.NewEventBus(),
		world:   world,
		health:  health.NewHealthChecker(),
	}
	sb.server = server.New(world, cfg.Server.TickPeriod,
		server.WithEventBus(sb.bus),
		server.WithMetrics(sb.metrics),
		server.WithLogger(logger),
	)
	sb.subscribe(ctx)

	sb.health.AddCheck(health.NewSimulationHealthCheck(sb.server.LastTick, sb.server.Period(), cfg.Server.StaleFactor))
	sb.health.AddCheck(health.NewRunningHealthCheck("tick_server", sb.server.Running))

	telemetry := sb.serveTelemetry(ctx)
	defer shutdown(ctx, telemetry, logger)

	logger.Info(ctx, "Starting sandbox",
		"renderer", cfg.Render.Renderer,
		"ai_ships", cfg.World.AIShips,
		"tick_period", sb.server.Period(),
	)

	switch cfg.Render.Renderer {
	case "engo":
		return sb.runEngo(ctx)
	case "null":
		return sb.runNull(ctx)
	case "terminal":
		fallthrough
	default:
		return sb.runTerminal(ctx)
	}
}

// subscribe logs the combat events of interest.
func (sb *sandbox) subscribe(ctx context.Context) {
	sb.bus.Subscribe(event.AttackStopped, func(e event.Event) {
		if ce, ok := e.(*event.CombatEvent); ok {
			sb.logger.Info(ctx, "Attack stopped", "target", ce.TargetID, "reason", ce.Reason)
		}
	})
	sb.bus.Subscribe(event.ProjectileHit, func(e event.Event) {
		if pe, ok := e.(*event.ProjectileEvent); ok {
			sb.logger.Debug(ctx, "Projectile hit", "target", pe.TargetID, "ammo", pe.Ammo.String(), "age", pe.Age)
		}
	})
	sb.bus.Subscribe(event.ShipLoadFailed, func(e event.Event) {
		if se, ok := e.(*event.ShipEvent); ok {
			sb.logger.Warn(ctx, "Ship model failed to load", "ship_id", se.ShipID)
		}
	})
}

// serveTelemetry starts the health and metrics endpoint. It returns nil
// when no address is configured.
func (sb *sandbox) serveTelemetry(ctx context.Context) *http.Server {
	addr := sb.cfg.Telemetry.MetricsAddr
	if addr == "" {
		return nil
	}
	mux := sb.health.Mux()
	mux.Handle("/metrics", sb.metrics.Handler())

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go func() {
		sb.logger.Info(ctx, "Starting telemetry server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sb.logger.Error(ctx, "Telemetry server failed", err)
		}
	}()
	return srv
}

func shutdown(ctx context.Context, srv *http.Server, logger *logging.Logger) {
	if srv == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Telemetry server shutdown failed", err)
	}
}

// frontEnd loads ship models and creates projectile visuals.
type frontEnd interface {
	assets.Loader
	entity.Renderer
}

// newSession wires a session around the shared components.
func (sb *sandbox) newSession(view engine.View, loader frontEnd, presenter engine.Presenter) *engine.Session {
	svc := assets.New(loader, sb.cfg.Assets, sb.logger, sb.metrics)
	sb.health.AddCheck(health.NewBreakerHealthCheck("assets_breaker", svc.State))

	return engine.NewSession(sb.world, engine.Deps{
		View:      view,
		Renderer:  loader,
		Presenter: presenter,
		Assets:    svc,
		Server:    sb.server,
		Bus:       sb.bus,
		Logger:    sb.logger,
		Metrics:   sb.metrics,
	})
}

func (sb *sandbox) frameInterval() time.Duration {
	if sb.cfg.Render.FrameRate <= 0 {
		return engine.DefaultFrameInterval
	}
	return time.Second / time.Duration(sb.cfg.Render.FrameRate)
}

// runTerminal drives the tcell front-end: frames on one goroutine, input
// on the other, until the user quits or ctx is cancelled.
func (sb *sandbox) runTerminal(ctx context.Context) error {
	tscreen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create terminal screen: %w", err)
	}
	view := camera.NewTopDown(sb.cfg.Camera.FOV, terminalCellAspect, 80, 24-render.HUDRows)
	term := render.NewTerminalRenderer(80, 24, view)
	screen := render.NewScreen(tscreen, term, sb.logger)
	screen.SetAttackRepeat(sb.cfg.Combat.FireInterval)
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	session := sb.newSession(view, term, screen)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	frames := make(chan error, 1)
	go func() { frames <- session.Run(ctx, sb.frameInterval()) }()

	inputErr := screen.Run(ctx, session)
	cancel()
	frameErr := <-frames
	if inputErr != nil {
		return inputErr
	}
	return frameErr
}

// runEngo opens the engo window. engo owns the main goroutine until the
// window closes.
func (sb *sandbox) runEngo(ctx context.Context) error {
	factory := func(view engine.View, renderer *engorender.Renderer, presenter engine.Presenter) *engine.Session {
		return sb.newSession(view, renderer, presenter)
	}
	scene := engorender.NewScene(ctx, sb.cfg, factory, sb.logger)

	go func() {
		<-ctx.Done()
		engo.Exit()
	}()
	engorender.Run(scene)
	scene.Session().Stop()
	return nil
}

// runNull runs the simulation without a display. The session aims a
// perspective projector of the configured window each frame.
func (sb *sandbox) runNull(ctx context.Context) error {
	nullRenderer := render.NewNullRenderer(sb.logger)
	cam := sb.cfg.Camera
	view := camera.NewPerspective(cam.FOV, cam.Near, cam.Far, sb.cfg.Render.Width, sb.cfg.Render.Height)
	session := sb.newSession(view, nullRenderer, nullRenderer)

	err := session.Run(ctx, sb.frameInterval())
	sb.logger.Info(ctx, "Sandbox stopped", "frames", nullRenderer.Frames())
	return err
}
