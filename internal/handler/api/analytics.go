package api

import (
	"github.com/labstack/echo/v4"

	"ShareWise/internal/domain/models"
	xhttp "ShareWise/pkg/http"
	applogger "ShareWise/pkg/logger"
)

// Greeks prices one option contract with the Black-Scholes calculator.
func (h *Handler) Greeks(c echo.Context) error {
	req := &models.GreeksRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rate := req.Rate
	if rate == 0 {
		rate = h.greeks.DefaultRate()
	}

	greeks, err := h.greeks.BlackScholes(req.Spot, req.Strike, req.ExpiryYears, req.Volatility, rate, models.OptionType(req.OptionType))
	if err != nil {
		h.l.Error("options.greeks error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, greeks)
}

// PerformanceMetrics computes portfolio risk metrics for a returns series.
func (h *Handler) PerformanceMetrics(c echo.Context) error {
	req := &models.PerformanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	metrics, err := h.perf.Compute(req.Returns, req.InitialCapital)
	if err != nil {
		h.l.Error("performance.metrics error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, metrics)
}

// EvaluateDrift compares two monitoring snapshots and returns the report.
// Alerting and persistence happen inside the usecase.
func (h *Handler) EvaluateDrift(c echo.Context) error {
	req := &models.DriftRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report := h.monitor.Evaluate(c.Request().Context(), req.Model, *req.Reference, *req.Current)
	return xhttp.SuccessResponse(c, report)
}
