package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShareWise/internal/domain/models"
)

type memCandleWriter struct {
	mu      sync.Mutex
	batches [][]models.Candle
	err     error
}

func (w *memCandleWriter) StoreBatch(_ context.Context, candles []models.Candle) error {
	if w.err != nil {
		return w.err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, candles)
	return nil
}

func (w *memCandleWriter) Health(context.Context) error { return nil }

func barEvent(t *testing.T, symbol, tf string, ts int64, close float64) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]interface{}{
		"symbol": symbol,
		"tf":     tf,
		"t":      ts,
		"o":      close - 5,
		"h":      close + 10,
		"l":      close - 10,
		"c":      close,
		"v":      12345.0,
	})
	require.NoError(t, err)
	return b
}

func TestHandleBuffersUntilFlushSize(t *testing.T) {
	writer := &memCandleWriter{}
	h := NewCandleIngest("md.candles", writer, &recordingMetrics{}, nil)
	h.flushSize = 3

	ts := time.Date(2024, 3, 4, 9, 17, 30, 0, time.UTC).Unix()
	require.NoError(t, h.Handle(context.Background(), barEvent(t, "NIFTY", "5m", ts, 21500)))
	require.NoError(t, h.Handle(context.Background(), barEvent(t, "NIFTY", "5m", ts+300, 21510)))
	assert.Empty(t, writer.batches)

	require.NoError(t, h.Handle(context.Background(), barEvent(t, "NIFTY", "5m", ts+600, 21520)))
	require.Len(t, writer.batches, 1)
	require.Len(t, writer.batches[0], 3)

	first := writer.batches[0][0]
	assert.Equal(t, "NIFTY", first.Symbol)
	assert.Equal(t, "5m", first.Timeframe)
	// 09:17:30 aligns down to the 09:15 bucket.
	assert.Equal(t, time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC), first.Bucket)
	assert.InDelta(t, 21500.0, first.Close, 1e-9)
}

func TestHandleNormalizesMillisecondTimestamps(t *testing.T) {
	writer := &memCandleWriter{}
	h := NewCandleIngest("md.candles", writer, &recordingMetrics{}, nil)
	h.flushSize = 1

	ts := time.Date(2024, 3, 4, 10, 2, 0, 0, time.UTC)
	require.NoError(t, h.Handle(context.Background(), barEvent(t, "NIFTY", "5m", ts.UnixMilli(), 21600)))

	require.Len(t, writer.batches, 1)
	assert.Equal(t, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), writer.batches[0][0].Bucket)
}

func TestHandleDefaultsTimeframe(t *testing.T) {
	writer := &memCandleWriter{}
	h := NewCandleIngest("md.candles", writer, &recordingMetrics{}, nil)
	h.flushSize = 1

	require.NoError(t, h.Handle(context.Background(), barEvent(t, "NIFTY", "", time.Now().Unix(), 21600)))
	require.Len(t, writer.batches, 1)
	assert.Equal(t, "5m", writer.batches[0][0].Timeframe)
}

func TestHandleRejectsBadBar(t *testing.T) {
	metrics := &recordingMetrics{}
	h := NewCandleIngest("md.candles", &memCandleWriter{}, metrics, nil)

	err := h.Handle(context.Background(), barEvent(t, "", "5m", time.Now().Unix(), 21500))
	require.Error(t, err)

	_, _, errs := metrics.snapshot()
	assert.Equal(t, []string{"consumer_validate"}, errs)
}

func TestHandleRejectsGarbage(t *testing.T) {
	metrics := &recordingMetrics{}
	h := NewCandleIngest("md.candles", &memCandleWriter{}, metrics, nil)

	err := h.Handle(context.Background(), []byte("{not json"))
	require.Error(t, err)

	_, _, errs := metrics.snapshot()
	assert.Equal(t, []string{"consumer_unmarshal"}, errs)
}

func TestFlushDrainsBuffer(t *testing.T) {
	writer := &memCandleWriter{}
	h := NewCandleIngest("md.candles", writer, &recordingMetrics{}, nil)

	ts := time.Now().Unix()
	require.NoError(t, h.Handle(context.Background(), barEvent(t, "NIFTY", "5m", ts, 21500)))
	require.NoError(t, h.Handle(context.Background(), barEvent(t, "BANKNIFTY", "5m", ts, 46000)))
	assert.Empty(t, writer.batches)

	require.NoError(t, h.Flush(context.Background()))
	require.Len(t, writer.batches, 1)
	assert.Len(t, writer.batches[0], 2)

	// A second flush with an empty buffer writes nothing.
	require.NoError(t, h.Flush(context.Background()))
	assert.Len(t, writer.batches, 1)
}

func TestHandleTopicRouting(t *testing.T) {
	h := NewCandleIngest("md.candles", &memCandleWriter{}, &recordingMetrics{}, nil)
	assert.Equal(t, "md.candles", h.Topic())
}
