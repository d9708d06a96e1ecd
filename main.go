// Package main provides the entry point for the microphone waveform visualizer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/fx"

	"github.com/Raikerian/go-waveform/internal/app"
	"github.com/Raikerian/go-waveform/internal/capture"
	"github.com/Raikerian/go-waveform/internal/config"
	"github.com/Raikerian/go-waveform/internal/infrastructure"
	"github.com/Raikerian/go-waveform/internal/observe"
	"github.com/Raikerian/go-waveform/internal/platform"
	"github.com/Raikerian/go-waveform/internal/visualizer"
)

// The window, the GL context and the frame loop all live on the main thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	application := app.New(
		// Core modules
		config.Module,
		infrastructure.LoggerModule,
		observe.Module,

		// Device modules
		platform.Module,
		capture.Module,

		// Application modules
		visualizer.Module,
		fx.Provide(
			asHost,
			asActivator,
			fx.Annotate(asReleaser, fx.ResultTags(app.ReleaseGroup)),
		),

		// Supply the config path
		fx.Supply(*configPath),

		// Configure Fx to use our Zap logger for its own internal logging
		fx.WithLogger(infrastructure.NewFxLoggerAdapter),
	)
	if err := application.Err(); err != nil {
		application.Close()
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	err := application.Start(startCtx)
	cancel()
	if err != nil {
		application.Close()
		fmt.Fprintf(os.Stderr, "Failed to start application: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	application.Run(ctx)
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = application.Stop(shutdownCtx)
	cancel()

	// The window and GL objects go last, on this thread.
	application.Close()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		os.Exit(1)
	}
}

func asHost(c *platform.Context) visualizer.Host { return c }

func asActivator(a *capture.Activator) visualizer.Activator { return a }

func asReleaser(c *platform.Context) app.Releaser { return c }
