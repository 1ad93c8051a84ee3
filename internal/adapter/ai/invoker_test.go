package ai

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepmind/feedback-engine/internal/domain"
)

// funcModel adapts a function to domain.ModelClient.
type funcModel func(ctx domain.Context, model string, messages []domain.ChatMessage) (string, error)

func (f funcModel) Chat(ctx domain.Context, model string, messages []domain.ChatMessage) (string, error) {
	return f(ctx, model, messages)
}

func staticModel(reply string, err error) funcModel {
	return func(domain.Context, string, []domain.ChatMessage) (string, error) { return reply, err }
}

func oneMessage() []domain.ChatMessage {
	return []domain.ChatMessage{{Role: "user", Content: "hello"}}
}

func TestInvoker_Chat_LocalSuccess(t *testing.T) {
	t.Parallel()

	var hostedCalls atomic.Int64
	iv := NewInvoker(InvocationPolicy{}, staticModel("local reply", nil), funcModel(func(domain.Context, string, []domain.ChatMessage) (string, error) {
		hostedCalls.Add(1)
		return "hosted reply", nil
	}))

	reply, err := iv.Chat(context.Background(), "phi3:mini", oneMessage())
	require.NoError(t, err)
	assert.Equal(t, "local reply", reply)
	assert.EqualValues(t, 0, hostedCalls.Load())
}

func TestInvoker_Chat_FallsBackToHosted(t *testing.T) {
	t.Parallel()

	iv := NewInvoker(InvocationPolicy{},
		staticModel("", errors.New("connection refused")),
		staticModel("hosted reply", nil))

	reply, err := iv.Chat(context.Background(), "phi3:mini", oneMessage())
	require.NoError(t, err)
	assert.Equal(t, "hosted reply", reply)
}

func TestInvoker_Chat_BothPathsFail(t *testing.T) {
	t.Parallel()

	iv := NewInvoker(InvocationPolicy{},
		staticModel("", errors.New("connection refused")),
		staticModel("", errors.New("status 502")))

	_, err := iv.Chat(context.Background(), "phi3:mini", oneMessage())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrModelUnavailable))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), "status 502")
}

func TestInvoker_Chat_LocalOnlyFailure(t *testing.T) {
	t.Parallel()

	iv := NewInvoker(InvocationPolicy{}, staticModel("", errors.New("connection refused")), nil)

	_, err := iv.Chat(context.Background(), "phi3:mini", oneMessage())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrModelUnavailable))
}

func TestInvoker_Chat_ForceHosted(t *testing.T) {
	t.Parallel()

	var localCalls atomic.Int64
	local := funcModel(func(domain.Context, string, []domain.ChatMessage) (string, error) {
		localCalls.Add(1)
		return "local reply", nil
	})

	iv := NewInvoker(InvocationPolicy{ForceHosted: true}, local, staticModel("hosted reply", nil))

	reply, err := iv.Chat(context.Background(), "phi3:mini", oneMessage())
	require.NoError(t, err)
	assert.Equal(t, "hosted reply", reply)
	assert.EqualValues(t, 0, localCalls.Load(), "forced hosted routing must never touch the local runtime")
}

func TestInvoker_Chat_ForceHostedWithoutEndpoint(t *testing.T) {
	t.Parallel()

	iv := NewInvoker(InvocationPolicy{ForceHosted: true}, staticModel("local reply", nil), nil)

	_, err := iv.Chat(context.Background(), "phi3:mini", oneMessage())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrModelUnavailable))
}

func TestInvoker_Chat_SerializesLocalCalls(t *testing.T) {
	t.Parallel()

	var inFlight, maxInFlight atomic.Int64
	local := funcModel(func(domain.Context, string, []domain.ChatMessage) (string, error) {
		cur := inFlight.Add(1)
		for {
			prev := maxInFlight.Load()
			if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return "ok", nil
	})

	iv := NewInvoker(InvocationPolicy{}, local, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := iv.Chat(context.Background(), "phi3:mini", oneMessage())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxInFlight.Load(), "local inference calls must never overlap")
}
