package api

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"ShareWise/internal/domain/models"
	domrepo "ShareWise/internal/domain/repository"
	"ShareWise/internal/usecase"
	xhttp "ShareWise/pkg/http"
	applogger "ShareWise/pkg/logger"
)

func backtestRequest(req *models.BacktestRequest) usecase.BacktestRequest {
	to := time.Now().UTC()
	return usecase.BacktestRequest{
		Config: models.BacktestConfig{
			Symbol:         req.Symbol,
			StrategyType:   models.StrategyType(req.StrategyType),
			InitialCapital: req.InitialCapital,
		},
		From:      to.AddDate(0, 0, -req.Days),
		To:        to,
		Timeframe: domrepo.Timeframe(req.Timeframe),
	}
}

// RunBacktest simulates a strategy synchronously and returns the report.
func (h *Handler) RunBacktest(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	out, err := h.backtests.Run(c.Request().Context(), backtestRequest(req))
	if err != nil {
		h.l.Error("backtest.run error",
			applogger.String("symbol", req.Symbol),
			applogger.String("strategy", req.StrategyType),
			applogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, out)
}

// SubmitBacktestJob enqueues an async run and returns its run ID.
func (h *Handler) SubmitBacktestJob(c echo.Context) error {
	req := &models.BacktestJobRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	runID, err := h.backtests.Submit(c.Request().Context(), backtestRequest(&req.BacktestRequest))
	if err != nil {
		h.l.Error("backtest.submit error",
			applogger.String("symbol", req.Symbol),
			applogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.AcceptedResponse(c, map[string]string{
		"run_id": runID,
		"status": string(usecase.JobQueued),
	})
}

// BacktestJobStatus reports the cached state of an async run.
func (h *Handler) BacktestJobStatus(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return xhttp.BadRequestResponse(c, "run id required")
	}

	state, err := h.backtests.Result(c.Request().Context(), id)
	if errors.Is(err, usecase.ErrJobNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("backtest job %s not found", id).WithError(err))
	}
	if err != nil {
		h.l.Error("backtest.status error", applogger.String("run_id", id), applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, state)
}
