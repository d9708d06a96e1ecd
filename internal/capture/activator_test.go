package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Raikerian/go-waveform/internal/observe"
	"github.com/Raikerian/go-waveform/pkg/audio"
)

// fakeSource records Open/Close calls and hands the sink back to the test.
type fakeSource struct {
	mu      sync.Mutex
	opens   int
	closes  int
	openErr error
	sink    Sink
	block   chan struct{}
}

func (s *fakeSource) Open(_ context.Context, sink Sink) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	if s.openErr != nil {
		return s.openErr
	}
	s.sink = sink
	return nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *fakeSource) counts() (opens, closes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens, s.closes
}

func (s *fakeSource) push(samples []float32) {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	sink(samples)
}

func newTestActivator(t *testing.T, src Source, stall time.Duration) (*Activator, *audio.Analyser, *observer.ObservedLogs) {
	t.Helper()
	analyser, err := audio.NewAnalyser(audio.DefaultAnalyserOptions())
	require.NoError(t, err)
	core, logs := observer.New(zapcore.DebugLevel)
	return NewActivator(src, analyser, observe.NewNopMetrics(), stall, zap.New(core)), analyser, logs
}

func waitDone(t *testing.T, a *Activator) {
	t.Helper()
	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("capture request did not settle")
	}
}

func TestActivator_ActivatesOnce(t *testing.T) {
	src := &fakeSource{}
	a, analyser, _ := newTestActivator(t, src, 0)
	assert.Equal(t, StateIdle, a.State())

	var wg sync.WaitGroup
	results := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- a.Activate(context.Background())
		}()
	}
	wg.Wait()
	close(results)

	transitions := 0
	for ok := range results {
		if ok {
			transitions++
		}
	}
	assert.Equal(t, 1, transitions)

	waitDone(t, a)
	opens, _ := src.counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, StateCapturing, a.State())
	assert.NoError(t, a.Err())

	select {
	case got := <-a.Ready():
		assert.Same(t, analyser, got)
	default:
		t.Fatal("analyser not delivered")
	}

	assert.False(t, a.Activate(context.Background()))
	opens, _ = src.counts()
	assert.Equal(t, 1, opens)
}

func TestActivator_SinkFeedsAnalyser(t *testing.T) {
	src := &fakeSource{}
	a, analyser, _ := newTestActivator(t, src, 0)

	require.True(t, a.Activate(context.Background()))
	waitDone(t, a)

	src.push([]float32{0.25, -0.5, 2})

	assert.Equal(t, int64(3), analyser.SamplesWritten())
	got := make([]float32, audio.DefaultFFTSize)
	analyser.GetFloatTimeDomainData(got)
	assert.Equal(t, []float32{0.25, -0.5, 1}, got[len(got)-3:])
}

func TestActivator_PermissionDenied(t *testing.T) {
	denial := classifyError(errors.New("Audio input not authorized"))
	src := &fakeSource{openErr: denial}
	a, _, logs := newTestActivator(t, src, 0)

	require.True(t, a.Activate(context.Background()))
	waitDone(t, a)

	assert.Equal(t, StateFailed, a.State())
	assert.ErrorIs(t, a.Err(), ErrPermissionDenied)

	select {
	case <-a.Ready():
		t.Fatal("analyser delivered after a failed request")
	default:
	}

	errorLogs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errorLogs, 1)
	assert.Equal(t, "permission_denied", errorLogs[0].ContextMap()["reason"])

	assert.False(t, a.Activate(context.Background()), "no retry after failure")
	opens, _ := src.counts()
	assert.Equal(t, 1, opens)

	require.NoError(t, a.Close(context.Background()))
	_, closes := src.counts()
	assert.Zero(t, closes, "a source that never opened is not closed")
}

func TestActivator_Close(t *testing.T) {
	t.Run("idle", func(t *testing.T) {
		src := &fakeSource{}
		a, _, _ := newTestActivator(t, src, 0)

		require.NoError(t, a.Close(context.Background()))
		assert.False(t, a.Activate(context.Background()), "closed activator ignores activation")
		opens, closes := src.counts()
		assert.Zero(t, opens)
		assert.Zero(t, closes)
	})

	t.Run("capturing", func(t *testing.T) {
		src := &fakeSource{}
		a, _, _ := newTestActivator(t, src, time.Hour)

		require.True(t, a.Activate(context.Background()))
		waitDone(t, a)
		require.NoError(t, a.Close(context.Background()))

		_, closes := src.counts()
		assert.Equal(t, 1, closes)
	})

	t.Run("request_in_flight", func(t *testing.T) {
		src := &fakeSource{block: make(chan struct{})}
		a, _, _ := newTestActivator(t, src, 0)
		require.True(t, a.Activate(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, a.Close(ctx), context.DeadlineExceeded)

		close(src.block)
		waitDone(t, a)
		require.NoError(t, a.Close(context.Background()))
	})
}

func TestActivator_StallWarning(t *testing.T) {
	src := &fakeSource{}
	a, _, logs := newTestActivator(t, src, 20*time.Millisecond)

	require.True(t, a.Activate(context.Background()))
	waitDone(t, a)

	require.Eventually(t, func() bool {
		return logs.FilterMessage("No audio received from capture device").Len() == 1
	}, time.Second, 5*time.Millisecond)

	src.push(make([]float32, 16))
	require.Eventually(t, func() bool {
		return logs.FilterMessage("Audio capture resumed").Len() == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, a.Close(context.Background()))
}

func TestActivator_StallWatchdogArmsAfterOpen(t *testing.T) {
	src := &fakeSource{block: make(chan struct{})}
	a, _, logs := newTestActivator(t, src, 10*time.Millisecond)

	require.True(t, a.Activate(context.Background()))

	// A permission prompt outlasting the stall timeout is not a stall.
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, logs.FilterMessage("No audio received from capture device").Len())

	close(src.block)
	waitDone(t, a)
	require.Eventually(t, func() bool {
		return logs.FilterMessage("No audio received from capture device").Len() == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, a.Close(context.Background()))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "capturing", StateCapturing.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "state(7)", State(7).String())
}
