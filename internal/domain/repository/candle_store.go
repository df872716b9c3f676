package repository

import (
	"context"
	"time"

	"ShareWise/internal/domain/models"
)

// Timeframe is the width of one OHLCV bar.
type Timeframe string

const (
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF1d  Timeframe = "1d"
)

// CandleStore provides read access to ingested OHLCV bars.
type CandleStore interface {
	GetCandles(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) (models.OHLCVSeries, error)
	GetLatestNCandles(ctx context.Context, symbol string, n int, tf Timeframe) (models.OHLCVSeries, error)
}

// CandleWriter persists bars arriving from the market-data bus.
type CandleWriter interface {
	StoreBatch(ctx context.Context, candles []models.Candle) error
	Health(ctx context.Context) error
}
