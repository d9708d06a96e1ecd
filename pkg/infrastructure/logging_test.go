package infrastructure_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Raikerian/go-waveform/pkg/infrastructure"
)

func newObserved() (fxevent.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return infrastructure.NewFxLoggerAdapter(zap.New(core)), logs
}

func TestFxLoggerAdapter_LogEvent(t *testing.T) {
	testError := errors.New("test error")

	tests := map[string]struct {
		event   fxevent.Event
		level   zapcore.Level
		message string
		field   string
	}{
		"on_start_executing": {
			event:   &fxevent.OnStartExecuting{FunctionName: "startFunc", CallerName: "caller"},
			level:   zapcore.DebugLevel,
			message: "OnStart hook executing",
			field:   "callee",
		},
		"on_start_executed": {
			event:   &fxevent.OnStartExecuted{FunctionName: "startFunc", CallerName: "caller", Runtime: time.Millisecond},
			level:   zapcore.DebugLevel,
			message: "OnStart hook executed",
			field:   "runtime",
		},
		"on_start_failed": {
			event:   &fxevent.OnStartExecuted{FunctionName: "startFunc", CallerName: "caller", Err: testError},
			level:   zapcore.ErrorLevel,
			message: "OnStart hook failed",
			field:   "error",
		},
		"on_stop_failed": {
			event:   &fxevent.OnStopExecuted{FunctionName: "stopFunc", CallerName: "caller", Err: testError},
			level:   zapcore.ErrorLevel,
			message: "OnStop hook failed",
			field:   "error",
		},
		"provided": {
			event:   &fxevent.Provided{ConstructorName: "NewThing", OutputTypeNames: []string{"*zap.Logger"}, ModuleName: "logger"},
			level:   zapcore.DebugLevel,
			message: "provided",
			field:   "module",
		},
		"supplied_failed": {
			event:   &fxevent.Supplied{TypeName: "string", Err: testError},
			level:   zapcore.ErrorLevel,
			message: "supplied failed",
			field:   "type",
		},
		"invoked_failed": {
			event:   &fxevent.Invoked{FunctionName: "run", Err: testError},
			level:   zapcore.ErrorLevel,
			message: "invoked failed",
			field:   "function",
		},
		"started": {
			event:   &fxevent.Started{},
			level:   zapcore.InfoLevel,
			message: "started",
		},
		"started_with_error": {
			event:   &fxevent.Started{Err: testError},
			level:   zapcore.ErrorLevel,
			message: "started with error",
			field:   "error",
		},
		"rolling_back": {
			event:   &fxevent.RollingBack{StartErr: testError},
			level:   zapcore.ErrorLevel,
			message: "start failed, rolling back",
			field:   "error",
		},
		"logger_initialized_failed": {
			event:   &fxevent.LoggerInitialized{ConstructorName: "ctor", Err: testError},
			level:   zapcore.ErrorLevel,
			message: "initialized custom fxevent.Logger failed",
			field:   "function",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			adapter, logs := newObserved()
			adapter.LogEvent(tt.event)

			entries := logs.All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0].Level)
			assert.Equal(t, tt.message, entries[0].Message)
			assert.Equal(t, "fx", entries[0].LoggerName)
			if tt.field != "" {
				assert.Contains(t, entries[0].ContextMap(), tt.field)
			}
		})
	}
}

func TestFxLoggerAdapter_OmitsEmptyModule(t *testing.T) {
	adapter, logs := newObserved()
	adapter.LogEvent(&fxevent.Invoking{FunctionName: "run"})

	require.Equal(t, 1, logs.Len())
	assert.NotContains(t, logs.All()[0].ContextMap(), "module")
}

func TestFxIntegration(t *testing.T) {
	logger := zaptest.NewLogger(t)

	app := fx.New(
		fx.WithLogger(infrastructure.NewFxLoggerAdapter),
		fx.Provide(func() *zap.Logger { return logger }),
		fx.Invoke(func(*zap.Logger) {}),
	)

	require.NoError(t, app.Err())
}
