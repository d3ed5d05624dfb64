package api

import (
	"errors"
	"net/http"
	"time"

	"OilScope/internal/bayes"
	models "OilScope/internal/domain/models"
	domrepo "OilScope/internal/domain/repository"
	"OilScope/internal/service/ratelimit"
	"OilScope/internal/usecase"
	"OilScope/pkg/cache"
	xhttp "OilScope/pkg/http"
	xlogger "OilScope/pkg/logger"
	"OilScope/pkg/queue"
	"OilScope/pkg/util"

	"github.com/labstack/echo/v4"
)

// AnalysisEchoHandler exposes the change-point analysis pipeline over HTTP.
type AnalysisEchoHandler struct {
	logger   *xlogger.Logger
	analysis *usecase.AnalysisUseCase
	cache    cache.Service
	jobs     *queue.RedisQueue
	limiter  *ratelimit.Limiter
	metrics  domrepo.Metrics
}

func NewAnalysisEchoHandler(logger *xlogger.Logger, analysis *usecase.AnalysisUseCase) *AnalysisEchoHandler {
	return &AnalysisEchoHandler{
		logger:   logger,
		analysis: analysis,
		limiter:  ratelimit.New(),
	}
}

// SetCache enables response caching for read endpoints.
func (h *AnalysisEchoHandler) SetCache(c cache.Service) { h.cache = c }

// SetJobQueue enables async analysis runs via ?async=true.
func (h *AnalysisEchoHandler) SetJobQueue(q *queue.RedisQueue) { h.jobs = q }

// SetMetrics enables cache-outcome counters.
func (h *AnalysisEchoHandler) SetMetrics(m domrepo.Metrics) { h.metrics = m }

func (h *AnalysisEchoHandler) recordCacheHit(hit bool) {
	if h.metrics != nil {
		h.metrics.RecordCacheHit(hit)
	}
}

func (h *AnalysisEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.GET("/prices", h.Prices)
	g.GET("/returns", h.Returns)
	g.GET("/events", h.Events)

	a := g.Group("/analysis")
	a.POST("/run", h.Run)
	a.GET("/summary", h.Summary)
	a.GET("/changepoint", h.Changepoint)
	a.GET("/convergence", h.Convergence)
	a.GET("/report", h.Report)
	a.GET("/volatility", h.Volatility)
	a.GET("/event-impact", h.EventImpact)
}

func (h *AnalysisEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *AnalysisEchoHandler) Prices(c echo.Context) error {
	req := &models.PricesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	pts, err := h.analysis.Prices(c.Request().Context(), dateParam(req.From), dateParam(req.To))
	if err != nil {
		h.logger.Error("prices usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, pts, int64(len(pts)))
}

func (h *AnalysisEchoHandler) Returns(c echo.Context) error {
	req := &models.PricesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	pts, err := h.analysis.Returns(c.Request().Context(), dateParam(req.From), dateParam(req.To))
	if err != nil {
		h.logger.Error("returns usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, pts, int64(len(pts)))
}

func (h *AnalysisEchoHandler) Events(c echo.Context) error {
	evs, err := h.analysis.Events(c.Request().Context())
	if err != nil {
		h.logger.Error("events usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, evs, int64(len(evs)))
}

func (h *AnalysisEchoHandler) Run(c echo.Context) error {
	// Sampling is expensive; bound run requests per client.
	if !h.limiter.Allow(c.RealIP(), 2, 1.0/30.0) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, map[string]string{
			"error": "too many analysis runs, retry later",
		})
	}

	req := &models.RunAnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if c.QueryParam("async") == "true" {
		if h.jobs == nil {
			return xhttp.BadRequestResponse(c, "async runs not enabled")
		}
		if err := h.jobs.Enqueue(c.Request().Context(), usecase.AnalysisJobType, req); err != nil {
			h.logger.Error("analysis enqueue error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
		return xhttp.DataResponse(c, http.StatusAccepted, map[string]string{
			"status":  "queued",
			"variant": req.Variant,
		})
	}

	res, err := h.analysis.Run(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("analysis run error",
			xlogger.String("variant", req.Variant),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}
	h.invalidateRunCaches(c, req.Variant)
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) Summary(c echo.Context) error {
	variant, verr := h.variantParam(c)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	key := cache.GenerateKey("analysis:summary", string(variant))
	if h.cache != nil {
		var cached usecase.RunResult
		if err := h.cache.Get(ctx, key, &cached); err == nil {
			h.recordCacheHit(true)
			return xhttp.SuccessResponse(c, &cached)
		}
		h.recordCacheHit(false)
	}

	res, err := h.analysis.Summary(variant)
	if err != nil {
		return h.runResultError(c, err)
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, key, res, time.Hour); err != nil {
			h.logger.Warn("summary cache set error", xlogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) Changepoint(c echo.Context) error {
	variant, verr := h.variantParam(c)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	key := cache.GenerateKey("analysis:changepoint", string(variant))
	if h.cache != nil {
		var cached bayes.ChangepointPosterior
		if err := h.cache.Get(ctx, key, &cached); err == nil {
			h.recordCacheHit(true)
			return xhttp.SuccessResponse(c, &cached)
		}
		h.recordCacheHit(false)
	}

	res, err := h.analysis.Changepoint(variant)
	if err != nil {
		return h.runResultError(c, err)
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, key, res, time.Hour); err != nil {
			h.logger.Warn("changepoint cache set error", xlogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) Convergence(c echo.Context) error {
	variant, verr := h.variantParam(c)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.analysis.Convergence(variant)
	if err != nil {
		return h.runResultError(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) Report(c echo.Context) error {
	variant, verr := h.variantParam(c)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	key := cache.GenerateKey("analysis:report", string(variant))
	if h.cache != nil {
		var cached string
		if err := h.cache.Get(ctx, key, &cached); err == nil {
			h.recordCacheHit(true)
			return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(cached))
		}
		h.recordCacheHit(false)
	}

	report, err := h.analysis.InsightsReport(variant)
	if err != nil {
		return h.runResultError(c, err)
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, key, report, time.Hour); err != nil {
			h.logger.Warn("report cache set error", xlogger.Error(err))
		}
	}
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(report))
}

func (h *AnalysisEchoHandler) Volatility(c echo.Context) error {
	req := &models.VolatilityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	key := cache.GenerateKeyWithParams("volatility", req.Window)
	if h.cache != nil {
		var cached []models.VolatilityPoint
		if err := h.cache.Get(ctx, key, &cached); err == nil {
			h.recordCacheHit(true)
			return xhttp.ListResponse(c, cached, int64(len(cached)))
		}
		h.recordCacheHit(false)
	}

	pts, err := h.analysis.Volatility(ctx, req.Window)
	if err != nil {
		h.logger.Error("volatility usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, key, pts, 10*time.Minute); err != nil {
			h.logger.Warn("volatility cache set error", xlogger.Error(err))
		}
	}
	return xhttp.ListResponse(c, pts, int64(len(pts)))
}

func (h *AnalysisEchoHandler) EventImpact(c echo.Context) error {
	req := &models.EventImpactRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	impact, err := h.analysis.EventImpact(c.Request().Context(), req.Title, req.WindowDays)
	if err != nil {
		return xhttp.NotFoundResponse(c, err.Error())
	}
	if impact == nil {
		return xhttp.SuccessResponse(c, map[string]string{
			"status": "insufficient_data",
			"event":  req.Title,
		})
	}
	return xhttp.SuccessResponse(c, impact)
}

// dateParam accepts RFC3339/unix timestamps as well as plain calendar dates;
// an empty or unparseable value means an open bound.
func dateParam(s string) time.Time {
	return util.ParseTimeDefault(s, util.ParseCalendarDateDefault(s, time.Time{}))
}

func (h *AnalysisEchoHandler) variantParam(c echo.Context) (bayes.Variant, interface{}) {
	req := &models.AnalysisResultRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return "", verr
	}
	return bayes.Variant(req.Variant), nil
}

func (h *AnalysisEchoHandler) runResultError(c echo.Context, err error) error {
	if errors.Is(err, usecase.ErrNoTrace) {
		return xhttp.NotFoundResponse(c, err.Error())
	}
	h.logger.Error("analysis result error", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}

func (h *AnalysisEchoHandler) invalidateRunCaches(c echo.Context, variant string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.DeleteByPattern(c.Request().Context(), cache.BuildPattern("analysis:")); err != nil {
		h.logger.Warn("cache invalidation error",
			xlogger.String("variant", variant),
			xlogger.Error(err),
		)
	}
}
