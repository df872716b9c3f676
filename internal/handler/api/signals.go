package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"ShareWise/internal/domain/models"
	domrepo "ShareWise/internal/domain/repository"
	"ShareWise/internal/usecase"
	xhttp "ShareWise/pkg/http"
	applogger "ShareWise/pkg/logger"
)

const latestCacheTTL = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// GenerateSignals fans the pipeline out over the requested symbols and
// returns every outcome, including suppressions and per-symbol failures.
func (h *Handler) GenerateSignals(c echo.Context) error {
	req := &models.GenerateSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	symbols := req.Symbols
	if len(symbols) == 0 {
		symbols = h.symbols
	}
	if len(symbols) == 0 {
		return xhttp.BadRequestResponse(c, "no symbols requested and none configured")
	}

	out := h.pipeline.GenerateBatch(c.Request().Context(), usecase.BatchRequest{
		Symbols:   symbols,
		Timeframe: domrepo.Timeframe(req.Timeframe),
		Lookback:  req.Lookback,
	})
	return xhttp.SuccessResponse(c, out)
}

// LatestSignals serves recent persisted signals for one symbol. The hot
// path sits behind a per-client token bucket and a short TTL cache.
func (h *Handler) LatestSignals(c echo.Context) error {
	req := &models.LatestSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if !h.rl.Allow(c.RealIP()+":latest", 30, 10) {
		h.l.Warn("signals.latest rate limited", applogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c,
			xhttp.TooManyRequestsError("too many requests").WithParam("retry_after_seconds", 1))
	}

	cacheKey := fmt.Sprintf("latest:%s:%d", req.Symbol, req.Limit)
	if h.readCache != nil {
		if b, ok, err := h.readCache.GetBytes(cacheKey); err != nil {
			h.l.Warn("signals.latest cache get failed", applogger.Error(err))
		} else if ok {
			return c.JSONBlob(http.StatusOK, b)
		}
	}

	rows, err := h.signals.Latest(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		h.l.Error("signals.latest store error",
			applogger.String("symbol", req.Symbol),
			applogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}

	resp := xhttp.APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    xhttp.ListDataResponse{Rows: rows, Total: int64(len(rows))},
	}
	if h.readCache != nil {
		if b, err := json.Marshal(resp); err == nil {
			if err := h.readCache.SetBytes(cacheKey, b, latestCacheTTL); err != nil {
				h.l.Warn("signals.latest cache set failed", applogger.Error(err))
			}
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// StreamSignals upgrades to WebSocket and attaches the peer to the hub.
func (h *Handler) StreamSignals(c echo.Context) error {
	req := &models.StreamRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.l.Warn("signals.stream upgrade failed", applogger.Error(err))
		return err
	}
	h.hub.Attach(conn, req.Symbol)
	return nil
}
