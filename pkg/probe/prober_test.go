package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tr181-conform/tr181-go/pkg/device"
	"github.com/tr181-conform/tr181-go/pkg/device/devicemock"
	"github.com/tr181-conform/tr181-go/pkg/model"
)

func deviceSeed() []model.Node {
	return []model.Node{
		{Path: "Device.DeviceInfo.Manufacturer", Name: "Manufacturer", Type: model.DataTypeString, Access: model.AccessReadOnly, Value: "Acme"},
		{Path: "Device.DeviceInfo.UpTime", Name: "UpTime", Type: model.DataTypeUnsignedInt, Access: model.AccessReadOnly, Value: 3600},
		{Path: "Device.Config.Passphrase", Name: "Passphrase", Type: model.DataTypeString, Access: model.AccessWriteOnly},
		{Path: "Device.Config.Hostname", Name: "Hostname", Type: model.DataTypeString, Access: model.AccessReadWrite},
	}
}

func connectedMock(t *testing.T) *devicemock.Capability {
	t.Helper()
	mock := devicemock.New(deviceSeed())
	require.NoError(t, mock.Connect(context.Background(), device.Config{}))
	return mock
}

func bootEvent() model.Event {
	return model.Event{
		Name:       "Boot",
		Path:       "Device.Boot!",
		Parameters: []string{"Device.DeviceInfo.Manufacturer", "Device.DeviceInfo.UpTime"},
	}
}

func TestEventStatuses(t *testing.T) {
	ctx := context.Background()

	t.Run("PassedCleanSubscribe", func(t *testing.T) {
		p := New(connectedMock(t))
		result := p.TestEvent(ctx, bootEvent(), nil)
		assert.Equal(t, model.StatusPassed, result.Status)
		assert.True(t, result.SubscriptionOK)
		assert.True(t, result.Parameters.Valid)
	})

	t.Run("MissingParameterFails", func(t *testing.T) {
		p := New(connectedMock(t))
		ev := bootEvent()
		ev.Parameters = append(ev.Parameters, "Device.DoesNotExist")
		result := p.TestEvent(ctx, ev, nil)
		assert.Equal(t, model.StatusFailed, result.Status)
		assert.False(t, result.Parameters.Valid)
	})

	t.Run("CleanRefusalStillPasses", func(t *testing.T) {
		// Parameter correctness is weighted above the live outcome.
		mock := connectedMock(t)
		mock.SubscribeAccepted = false
		p := New(mock)
		result := p.TestEvent(ctx, bootEvent(), nil)
		assert.Equal(t, model.StatusPassed, result.Status)
		assert.False(t, result.SubscriptionOK)
	})

	t.Run("RefusalWithWarningsFails", func(t *testing.T) {
		mock := connectedMock(t)
		mock.SubscribeAccepted = false
		p := New(mock)
		ev := bootEvent()
		ev.Parameters = []string{"Device.Config.Passphrase"} // write-only: warning
		result := p.TestEvent(ctx, ev, nil)
		assert.Equal(t, model.StatusFailed, result.Status)
		assert.True(t, result.Parameters.Valid)
		assert.NotEmpty(t, result.Parameters.Warnings)
	})

	t.Run("AcceptedWithWarningsPasses", func(t *testing.T) {
		p := New(connectedMock(t))
		ev := bootEvent()
		ev.Parameters = []string{"Device.Config.Passphrase"}
		result := p.TestEvent(ctx, ev, nil)
		assert.Equal(t, model.StatusPassed, result.Status)
	})

	t.Run("TransportFailureIsError", func(t *testing.T) {
		mock := connectedMock(t)
		mock.Handlers.OnSubscribe = func(string) (bool, error) {
			return false, device.NewConnectionError("subscribeToEvent", errors.New("session dropped"))
		}
		p := New(mock)
		result := p.TestEvent(ctx, bootEvent(), nil)
		assert.Equal(t, model.StatusError, result.Status)
		assert.Contains(t, result.Details["error"], "session dropped")
	})
}

func TestEventNodeResolutionFailure(t *testing.T) {
	ctx := context.Background()
	mock := devicemock.New(deviceSeed()) // never connected
	p := New(mock)

	result := p.TestEvent(ctx, bootEvent(), nil)
	assert.Equal(t, model.StatusError, result.Status)
	assert.Contains(t, result.Details["error"], "not connected")

	// The failed fetch must leave the cache untouched: connecting and
	// probing again fetches successfully.
	require.NoError(t, mock.Connect(ctx, device.Config{}))
	result = p.TestEvent(ctx, bootEvent(), nil)
	assert.Equal(t, model.StatusPassed, result.Status)
}

func TestProberCachesDeviceNodes(t *testing.T) {
	ctx := context.Background()
	mock := connectedMock(t)
	p := New(mock)

	p.TestEvent(ctx, bootEvent(), nil)
	p.TestEvent(ctx, bootEvent(), nil)

	counters := mock.Counters()
	assert.Equal(t, 1, counters.Lists, "device nodes must be fetched exactly once")
	assert.Equal(t, 1, counters.Attributes)
	assert.Equal(t, 2, counters.Subscribes)
}

func TestExplicitNodesBypassCache(t *testing.T) {
	ctx := context.Background()
	mock := connectedMock(t)
	p := New(mock)

	p.TestEvent(ctx, bootEvent(), deviceSeed())
	assert.Equal(t, 0, mock.Counters().Lists, "supplied nodes must not trigger a fetch")
}

func rebootFunction() model.Function {
	return model.Function{
		Name:            "Reboot",
		Path:            "Device.Reboot()",
		InputParameters: []string{"Device.Config.Hostname"},
		OutputParameters: []string{
			"Device.DeviceInfo.UpTime",
		},
	}
}

func TestFunctionStatuses(t *testing.T) {
	ctx := context.Background()

	t.Run("Passed", func(t *testing.T) {
		p := New(connectedMock(t))
		result := p.TestFunction(ctx, rebootFunction(), nil)
		assert.Equal(t, model.StatusPassed, result.Status)
		assert.True(t, result.ExecutionOK)
	})

	t.Run("ReadOnlyInputWarnsButPasses", func(t *testing.T) {
		p := New(connectedMock(t))
		fn := rebootFunction()
		fn.InputParameters = []string{"Device.DeviceInfo.Manufacturer"}
		result := p.TestFunction(ctx, fn, nil)
		assert.Equal(t, model.StatusPassed, result.Status)
		assert.NotEmpty(t, result.Inputs.Warnings)
	})

	t.Run("WriteOnlyOutputWarnsButPasses", func(t *testing.T) {
		p := New(connectedMock(t))
		fn := rebootFunction()
		fn.OutputParameters = []string{"Device.Config.Passphrase"}
		result := p.TestFunction(ctx, fn, nil)
		assert.Equal(t, model.StatusPassed, result.Status)
		assert.NotEmpty(t, result.Outputs.Warnings)
	})

	t.Run("MissingInputFails", func(t *testing.T) {
		p := New(connectedMock(t))
		fn := rebootFunction()
		fn.InputParameters = []string{"Device.Nope"}
		result := p.TestFunction(ctx, fn, nil)
		assert.Equal(t, model.StatusFailed, result.Status)
	})

	t.Run("EmptyResponseStillPasses", func(t *testing.T) {
		// The asymmetric weighting again: a call that returns nothing
		// is not an error, just ExecutionOK=false.
		mock := connectedMock(t)
		mock.Handlers.OnCall = func(string, map[string]string) (map[string]any, error) {
			return map[string]any{}, nil
		}
		p := New(mock)
		result := p.TestFunction(ctx, rebootFunction(), nil)
		assert.Equal(t, model.StatusPassed, result.Status)
		assert.False(t, result.ExecutionOK)
	})

	t.Run("CallFailureIsError", func(t *testing.T) {
		mock := connectedMock(t)
		mock.Handlers.OnCall = func(string, map[string]string) (map[string]any, error) {
			return nil, device.NewConnectionError("callFunction", errors.New("rpc timeout"))
		}
		p := New(mock)
		result := p.TestFunction(ctx, rebootFunction(), nil)
		assert.Equal(t, model.StatusError, result.Status)
		assert.Contains(t, result.Details["error"], "rpc timeout")
	})

	t.Run("PlaceholderInputsSent", func(t *testing.T) {
		mock := connectedMock(t)
		var got map[string]string
		mock.Handlers.OnCall = func(_ string, input map[string]string) (map[string]any, error) {
			got = input
			return map[string]any{"Status": "0"}, nil
		}
		p := New(mock)
		p.TestFunction(ctx, rebootFunction(), nil)
		require.Contains(t, got, "Device.Config.Hostname")
		assert.Equal(t, "", got["Device.Config.Hostname"])
	})
}

func TestBatchesResolveOnce(t *testing.T) {
	ctx := context.Background()
	mock := connectedMock(t)
	p := New(mock)

	events := []model.Event{bootEvent(), bootEvent(), bootEvent()}
	results := p.TestEvents(ctx, events, nil)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, model.StatusPassed, r.Status)
	}
	assert.Equal(t, 1, mock.Counters().Lists)

	functions := []model.Function{rebootFunction(), rebootFunction()}
	fResults := p.TestFunctions(ctx, functions, nil)
	require.Len(t, fResults, 2)
	assert.Equal(t, 1, mock.Counters().Lists, "function batch reuses the cache")
}

func TestBatchResolutionFailure(t *testing.T) {
	ctx := context.Background()
	p := New(devicemock.New(nil)) // not connected

	results := p.TestEvents(ctx, []model.Event{bootEvent(), bootEvent()}, nil)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, model.StatusError, r.Status)
	}
}

func TestEmptyBatchesSkipResolution(t *testing.T) {
	ctx := context.Background()
	mock := connectedMock(t)
	p := New(mock)

	assert.Empty(t, p.TestEvents(ctx, nil, nil))
	assert.Empty(t, p.TestFunctions(ctx, nil, nil))

	counters := mock.Counters()
	assert.Zero(t, counters.Lists, "empty batches must not touch the device")
	assert.Zero(t, counters.Attributes)
}

func TestResolutionFailureDuration(t *testing.T) {
	ctx := context.Background()
	mock := devicemock.New(nil)
	mock.Handlers.OnList = func(string) ([]string, error) {
		time.Sleep(5 * time.Millisecond)
		return nil, errors.New("bus fault")
	}
	require.NoError(t, mock.Connect(ctx, device.Config{}))
	p := New(mock)

	result := p.TestEvent(ctx, bootEvent(), nil)
	assert.Equal(t, model.StatusError, result.Status)
	assert.GreaterOrEqual(t, result.Duration, 5*time.Millisecond,
		"error results must carry the elapsed resolution time")

	batch := p.TestFunctions(ctx, []model.Function{rebootFunction()}, nil)
	require.Len(t, batch, 1)
	assert.Equal(t, model.StatusError, batch[0].Status)
	assert.GreaterOrEqual(t, batch[0].Duration, 5*time.Millisecond)
}

func TestTestNode(t *testing.T) {
	ctx := context.Background()
	p := New(connectedMock(t))

	node := model.Node{
		Path:      "Device.",
		Name:      "Device",
		Type:      model.DataTypeObject,
		IsObject:  true,
		Events:    []model.Event{bootEvent()},
		Functions: []model.Function{rebootFunction()},
	}
	events, functions := p.TestNode(ctx, node)
	require.Len(t, events, 1)
	require.Len(t, functions, 1)
	assert.Equal(t, model.StatusPassed, events[0].Status)
	assert.Equal(t, model.StatusPassed, functions[0].Status)
}

func TestSummarize(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		s := Summarize(nil, nil)
		assert.Equal(t, time.Duration(0), s.MeanDuration)
		assert.Equal(t, 0.0, s.SuccessRate)
	})

	t.Run("Counts", func(t *testing.T) {
		events := []model.EventTestResult{
			{Status: model.StatusPassed, SubscriptionOK: true, Duration: 10 * time.Millisecond},
			{Status: model.StatusFailed, Duration: 20 * time.Millisecond},
		}
		functions := []model.FunctionTestResult{
			{Status: model.StatusPassed, ExecutionOK: true, Duration: 30 * time.Millisecond},
			{Status: model.StatusError, Duration: 40 * time.Millisecond},
		}
		s := Summarize(events, functions)
		assert.Equal(t, 2, s.TotalEvents)
		assert.Equal(t, 2, s.TotalFunctions)
		assert.Equal(t, 2, s.Passed)
		assert.Equal(t, 1, s.Failed)
		assert.Equal(t, 1, s.Errored)
		assert.Equal(t, 1, s.SubscriptionsOK)
		assert.Equal(t, 1, s.ExecutionsOK)
		assert.Equal(t, 25*time.Millisecond, s.MeanDuration)
		assert.Equal(t, 0.5, s.SuccessRate)
	})
}
