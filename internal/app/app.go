// Package app provides the main application structure and lifecycle management.
package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-waveform/internal/visualizer"
)

// ReleaseGroup is the fx value group tag for Releasers.
const ReleaseGroup = `group:"release"`

// Releaser is a resource bound to the thread that built the application,
// such as a window. fx runs lifecycle hooks on its own goroutine, so these
// are released by Close instead of an OnStop hook.
type Releaser interface {
	Close()
}

// Application represents the main application with its lifecycle. Unlike a
// service it does not block in fx: Start runs the hooks, Run drives the frame
// loop on the caller's goroutine, Stop runs the stop hooks and Close releases
// thread-bound resources. New, Run and Close must be called from the thread
// that owns the graphics context.
type Application struct {
	app       *fx.App
	vis       *visualizer.Visualizer
	releasers []Releaser
}

type releaseParams struct {
	fx.In
	Releasers []Releaser `group:"release"`
}

// New creates a new Application with the provided modules and options.
// Releasers are collected before the visualizer is built, so they can be
// released even when a later constructor fails.
func New(modules ...fx.Option) *Application {
	a := &Application{}

	options := append(modules,
		fx.Invoke(func(p releaseParams) { a.releasers = p.Releasers }),
		fx.Invoke(registerLifecycleHooks),
		fx.Populate(&a.vis),
	)
	a.app = fx.New(options...)

	return a
}

// Err reports a dependency graph or constructor failure.
func (a *Application) Err() error {
	return a.app.Err()
}

// Start runs the OnStart hooks.
func (a *Application) Start(ctx context.Context) error {
	return a.app.Start(ctx)
}

// Run blocks in the frame loop until ctx is cancelled or the window closes.
func (a *Application) Run(ctx context.Context) {
	a.vis.Run(ctx)
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	return a.app.Stop(ctx)
}

// Close releases the collected Releasers. Call it after Stop, or after Err
// or Start failed. Later calls are no-ops.
func (a *Application) Close() {
	for _, r := range a.releasers {
		r.Close()
	}
	a.releasers = nil
}

// registerLifecycleHooks logs the application boundaries. It is invoked
// before the visualizer is built, so its OnStop runs last.
func registerLifecycleHooks(lc fx.Lifecycle, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Application started successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Application stopped successfully")
			return nil
		},
	})
}
