package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookChainThreadsBeforeHooks(t *testing.T) {
	var order []string

	first := HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			order = append(order, "first")
			return ctx, km, append(data, '1'), nil
		},
	}
	second := HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			order = append(order, "second")
			return ctx, km, append(data, '2'), nil
		},
	}

	chain := NewHookChain(first, nil, second)
	_, _, data, err := chain.BeforeHandle(context.Background(), "candles", kafka.Message{}, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, "x12", string(data))
}

func TestHookChainBeforeErrorStopsChain(t *testing.T) {
	boom := errors.New("reject")
	var (
		secondRan bool
		notified  []string
	)

	first := HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			return ctx, km, data, boom
		},
		Err: func(context.Context, string, kafka.Message, []byte, error) {
			notified = append(notified, "first")
		},
	}
	second := HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			secondRan = true
			return ctx, km, data, nil
		},
		Err: func(context.Context, string, kafka.Message, []byte, error) {
			notified = append(notified, "second")
		},
	}

	chain := NewHookChain(first, second)
	_, _, _, err := chain.BeforeHandle(context.Background(), "candles", kafka.Message{}, nil)
	require.ErrorIs(t, err, boom)
	assert.False(t, secondRan)
	assert.Equal(t, []string{"first", "second"}, notified)
}

func TestHookChainAfterRunsInReverse(t *testing.T) {
	var order []string
	mk := func(name string) HookFuncs {
		return HookFuncs{
			After: func(context.Context, string, kafka.Message, []byte, error) {
				order = append(order, name)
			},
		}
	}

	chain := NewHookChain(mk("a"), mk("b"), mk("c"))
	chain.AfterHandle(context.Background(), "candles", kafka.Message{}, nil, nil)
	assert.Equal(t, []string{"c", "b", "a"}, order)
}

func TestHookChainContainsPanics(t *testing.T) {
	panicky := HookFuncs{
		Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
			panic("bad hook")
		},
		After: func(context.Context, string, kafka.Message, []byte, error) {
			panic("bad after")
		},
	}

	chain := NewHookChain(panicky)
	_, _, _, err := chain.BeforeHandle(context.Background(), "candles", kafka.Message{}, nil)
	require.Error(t, err)

	var hookErr *HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, "ERR_PANIC", hookErr.Code)

	// Must not panic through.
	chain.AfterHandle(context.Background(), "candles", kafka.Message{}, nil, nil)
}

func TestHookErrorFormatting(t *testing.T) {
	wrapped := fmt.Errorf("schema mismatch")
	he := &HookError{Code: "ERR_VALIDATION", Err: wrapped}
	assert.Equal(t, "ERR_VALIDATION: schema mismatch", he.Error())
	assert.Equal(t, wrapped, he.Unwrap())

	bare := &HookError{Code: "ERR_VALIDATION"}
	assert.Equal(t, "ERR_VALIDATION", bare.Error())
}

func TestTraceIDRoundTrip(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("run-77")}}}
	assert.Equal(t, "run-77", ExtractTraceID(msg))
	assert.Empty(t, ExtractTraceID(kafka.Message{}))

	ctx := WithTraceID(context.Background(), "run-77")
	assert.Equal(t, "run-77", TraceID(ctx))

	// Empty ids never land in the context.
	assert.Empty(t, TraceID(WithTraceID(context.Background(), "")))
}
