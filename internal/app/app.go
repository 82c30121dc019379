package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/nginxlb/internal/certbot"
	"github.com/MrSnakeDoc/nginxlb/internal/command"
	"github.com/MrSnakeDoc/nginxlb/internal/config"
	"github.com/MrSnakeDoc/nginxlb/internal/httpserver"
	"github.com/MrSnakeDoc/nginxlb/internal/httpserver/deps"
	"github.com/MrSnakeDoc/nginxlb/internal/index"
	"github.com/MrSnakeDoc/nginxlb/internal/lifecycle"
	"github.com/MrSnakeDoc/nginxlb/internal/logger"
	"github.com/MrSnakeDoc/nginxlb/internal/nginx"
	"github.com/MrSnakeDoc/nginxlb/internal/scheduler"
	"github.com/MrSnakeDoc/nginxlb/internal/version"
)

type App struct {
	cfg          *config.Config
	doc          *config.Document
	logger       logger.Logger
	materializer *nginx.Materializer
	proxy        *nginx.Controller
	manager      *lifecycle.Manager
	scheduler    *scheduler.CycleScheduler
	status       *index.StatusIndex
	server       *httpserver.Server // nil when the status endpoints are disabled
	trigger      chan struct{}
}

// New parses args, loads the routes document and wires every component.
// Any configuration error is returned before anything is started.
func New(args []string) (*App, error) {
	cfg, err := config.Load(args)
	if err != nil {
		return nil, err
	}

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	return build(cfg, loggerClient, command.NewOS())
}

func build(cfg *config.Config, loggerClient logger.Logger, exec command.Executor) (*App, error) {
	loggerClient.Info("state", logger.String("state", "starting"))

	doc, err := config.LoadDocument(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	loggerClient.Info("config loaded",
		logger.String("file", cfg.ConfigPath),
		logger.Int("routes", len(doc.Routes)),
		logger.Int("tls_routes", doc.TLSRoutes()))

	status := index.NewStatusIndex(doc.Hosts())

	materializer := nginx.NewMaterializer(doc.RoutesDir, loggerClient.Named("routes"))
	proxy := nginx.NewController(exec, cfg.NginxBin, loggerClient.Named("proxy"))

	certLog := loggerClient.Named("certbot")
	inspector := certbot.NewInspector(exec, cfg.CertbotBin, certLog)
	client := certbot.NewClient(exec, cfg.CertbotBin, doc.Email, certLog)

	manager := lifecycle.NewManager(
		doc.Routes,
		inspector,
		client,
		proxy,
		loggerClient.Named("lifecycle"),
		lifecycle.WithStatus(status),
	)

	// Manual cycle trigger channel, fed by SIGHUP
	trigger := make(chan struct{}, 1)

	cycles := scheduler.NewCycleScheduler(
		manager,
		loggerClient.Named("scheduler"),
		cfg.CycleInterval,
		trigger,
	)

	a := &App{
		cfg:          cfg,
		doc:          doc,
		logger:       loggerClient,
		materializer: materializer,
		proxy:        proxy,
		manager:      manager,
		scheduler:    cycles,
		status:       status,
		trigger:      trigger,
	}

	if cfg.StatusAddr != "" {
		d := deps.Deps{
			Logger:       loggerClient.Named("http"),
			StartTime:    time.Now(),
			Version:      version.Version,
			Commit:       version.Commit,
			BuildDate:    version.BuildDate,
			GoVersion:    version.GoVersion,
			TimeNow:      time.Now,
			AllowedCIDRS: cfg.AllowedCIDRS,
			TrustProxy:   cfg.TrustProxy,
			Status:       status,
			Routes:       len(doc.Routes),
		}
		a.server = httpserver.New(cfg.StatusAddr, cfg.ShutdownTimeout, d)
	} else {
		loggerClient.Info("status address not configured, status endpoints disabled")
	}

	return a, nil
}

// Run supervises until SIGINT or SIGTERM. SIGHUP starts a cycle right away.
func (a *App) Run() error {
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				a.logger.Info("SIGHUP received, triggering certificate cycle")
				a.Trigger()
			}
		}
	}()

	return a.RunContext(ctx)
}

// Trigger asks for an immediate cycle. Requests made while a cycle is
// running or already pending are coalesced.
func (a *App) Trigger() {
	select {
	case a.trigger <- struct{}{}:
	default:
	}
}

// RunContext materializes the route fragments, starts the proxy and runs
// certificate cycles until ctx is cancelled.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.materializer.Materialize(a.doc.Routes); err != nil {
		return fmt.Errorf("failed to materialize routes: %w", err)
	}

	exited, err := a.proxy.Start()
	if err != nil {
		return err
	}
	go a.watchProxy(ctx, exited)

	a.logger.Info("state",
		logger.String("state", "running"),
		logger.Duration("interval", a.cfg.CycleInterval))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.scheduler.Run(gctx)
	})
	if a.server != nil {
		g.Go(func() error {
			if err := a.server.Run(gctx); err != nil {
				return fmt.Errorf("status server error: %w", err)
			}
			return nil
		})
	}

	<-gctx.Done()
	a.logger.Info("state", logger.String("state", "shutting_down"))

	if err := g.Wait(); err != nil {
		return err
	}

	a.logger.Info("state", logger.String("state", "stopped"))
	_ = a.logger.Sync()
	return nil
}

// watchProxy reports the proxy exiting on its own. Nothing restarts it.
func (a *App) watchProxy(ctx context.Context, exited <-chan error) {
	err, ok := <-exited
	if !ok || ctx.Err() != nil {
		return
	}
	if err != nil {
		a.logger.Error("proxy exited", logger.Error(err))
		return
	}
	a.logger.Error("proxy exited without error")
}

// Status exposes the outcome index, for tests and the status endpoints.
func (a *App) Status() *index.StatusIndex {
	return a.status
}
