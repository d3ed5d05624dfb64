package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"OilScope/internal/domain/models"
	domrepo "OilScope/internal/domain/repository"
	"OilScope/internal/handler/api"
	"OilScope/internal/handler/ws"
	"OilScope/internal/usecase"
	"OilScope/pkg/config"
	xhttp "OilScope/pkg/http"
	applogger "OilScope/pkg/logger"
	"OilScope/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	logger    *applogger.Logger
	analysis  *usecase.AnalysisUseCase
	handler   *api.AnalysisEchoHandler
	progress  *ws.ProgressHub
	jobs      *queue.RedisQueue
	sink      domrepo.PriceSink
	publisher domrepo.Publisher
	prices    domrepo.PriceStore

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	analysis *usecase.AnalysisUseCase,
	handler *api.AnalysisEchoHandler,
	progress *ws.ProgressHub,
	prices domrepo.PriceStore,
) *App {
	return &App{
		cfg:      cfg,
		logger:   logger,
		analysis: analysis,
		handler:  handler,
		progress: progress,
		prices:   prices,
	}
}

// SetJobQueue attaches the background run queue.
func (a *App) SetJobQueue(q *queue.RedisQueue) { a.jobs = q }

// SetPriceSink attaches the long-term price store.
func (a *App) SetPriceSink(s domrepo.PriceSink) { a.sink = s }

// SetPublisher attaches the results publisher so its transport is closed on
// shutdown.
func (a *App) SetPublisher(p domrepo.Publisher) { a.publisher = p }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.analysis.EnsureData(ctx); err != nil {
		a.logger.Error("data load error", applogger.Error(err))
		return err
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	a.progress.RegisterRoutes(a.httpServer.Echo())

	if a.jobs != nil {
		if err := a.jobs.Start(); err != nil {
			a.logger.Error("job queue start error", applogger.Error(err))
			return err
		}
		a.jobs.StartRetryProcessor()
		a.logger.Info("analysis job queue started")
	}

	if a.sink != nil {
		go a.mirrorPrices(ctx)
	}

	if a.cfg.Analysis.RunOnStartup {
		go a.startupRun(ctx)
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// mirrorPrices copies the CSV price history into the long-term store.
func (a *App) mirrorPrices(ctx context.Context) {
	if err := a.sink.Init(ctx); err != nil {
		a.logger.Warn("price sink init error", applogger.Error(err))
		return
	}
	pts, err := a.prices.Load(ctx)
	if err != nil {
		a.logger.Warn("price sink load error", applogger.Error(err))
		return
	}
	if err := a.sink.StoreBatch(ctx, pts); err != nil {
		a.logger.Warn("price sink store error", applogger.Error(err))
		return
	}
	a.logger.Info("price history mirrored", applogger.Int("rows", len(pts)))
}

// startupRun samples the default model once at boot so read endpoints have
// results immediately.
func (a *App) startupRun(ctx context.Context) {
	req := models.RunAnalysisRequest{
		Variant:      "single",
		Draws:        a.cfg.Sampling.Draws,
		Tune:         a.cfg.Sampling.Tune,
		Chains:       a.cfg.Sampling.Chains,
		TargetAccept: a.cfg.Sampling.TargetAccept,
		Seed:         a.cfg.Sampling.Seed,
		WindowDays:   a.cfg.Analysis.EventWindowDays,
	}
	if _, err := a.analysis.Run(ctx, req, a.progress.SampleOption()); err != nil {
		a.logger.Error("startup analysis error", applogger.Error(err))
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.jobs != nil {
		if err := a.jobs.Stop(shutdownCtx); err != nil {
			a.logger.Warn("job queue stop error", applogger.Error(err))
		}
	}

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}
	a.progress.Close()

	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			a.logger.Warn("price sink close error", applogger.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("publisher close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
