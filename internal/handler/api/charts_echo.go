package api

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"StockCharts/internal/domain/models"
	"StockCharts/internal/usecase"
	xhttp "StockCharts/pkg/http"
	xlogger "StockCharts/pkg/logger"
	xutil "StockCharts/pkg/util"
)

// ChartsEchoHandler serves chart bundles over HTTP.
type ChartsEchoHandler struct {
	logger  *xlogger.Logger
	charts  *usecase.ChartsUseCase
	timeout time.Duration
	maxAge  string
}

func NewChartsEchoHandler(logger *xlogger.Logger, charts *usecase.ChartsUseCase, timeout time.Duration) *ChartsEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ChartsEchoHandler{logger: logger, charts: charts, timeout: timeout, maxAge: "private, max-age=60"}
}

func (h *ChartsEchoHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/charts/:symbol", h.Chart)
	g.DELETE("/charts/:symbol/cache", h.Invalidate)
	g.GET("/ranges", h.Ranges)
	g.GET("/indicators", h.Indicators)
}

func (h *ChartsEchoHandler) Chart(c echo.Context) error {
	req := &models.ChartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	today, _ := xutil.ParseTime(req.Today)

	ctx := c.Request().Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	bundle, err := h.charts.GetChart(ctx, usecase.ChartParams{
		Symbol:     req.Symbol,
		Range:      req.Range,
		Indicators: req.Indicators,
		Scope:      req.Scope,
		Today:      today,
	})
	if err != nil {
		var ce *models.ChartError
		if !errors.As(err, &ce) {
			h.logger.Error("chart usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, h.maxAge)
	return xhttp.SuccessResponse(c, bundle)
}

func (h *ChartsEchoHandler) Invalidate(c echo.Context) error {
	req := &models.InvalidateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.charts.Invalidate(c.Request().Context(), req.Symbol); err != nil {
		h.logger.Warn("cache invalidate error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *ChartsEchoHandler) Ranges(c echo.Context) error {
	req := &models.RangesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	today, _ := xutil.ParseTime(req.Today)
	ranges := h.charts.Ranges(today)
	return xhttp.ListResponse(c, ranges, int64(len(ranges)))
}

func (h *ChartsEchoHandler) Indicators(c echo.Context) error {
	infos := h.charts.Indicators()
	return xhttp.ListResponse(c, infos, int64(len(infos)))
}
