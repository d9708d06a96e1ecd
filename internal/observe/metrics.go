// Package observe holds the OpenTelemetry instruments recorded by the frame
// loop and the capture path, and the optional Prometheus scrape endpoint that
// exposes them.
//
// Tests should build [Metrics] with [NewMetrics] over an sdkmetric
// ManualReader, or use [NewNopMetrics] when the values are irrelevant.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/Raikerian/go-waveform"

// Metrics holds all metric instruments. All fields are safe for concurrent
// use; capture backends record from their own threads.
type Metrics struct {
	// Frames counts render passes submitted by the frame loop.
	Frames metric.Int64Counter

	// FrameDuration tracks CPU time spent encoding and submitting a frame.
	FrameDuration metric.Float64Histogram

	// FrameErrors counts frames that could not be rendered. Use with
	// attribute:
	//   attribute.String("stage", ...)
	FrameErrors metric.Int64Counter

	// Activations counts start-control activations that began a capture
	// request.
	Activations metric.Int64Counter

	// CaptureFailures counts failed capture requests. Use with attribute:
	//   attribute.String("reason", ...)
	CaptureFailures metric.Int64Counter

	// Samples counts samples delivered by the capture backend.
	Samples metric.Int64Counter
}

// frameBuckets are histogram bucket boundaries (in seconds) around a 60 Hz
// frame budget.
var frameBuckets = []float64{
	0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.033, 0.066,
}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Frames, err = m.Int64Counter("visualizer.frames",
		metric.WithDescription("Render passes submitted by the frame loop."),
	); err != nil {
		return nil, err
	}
	if met.FrameDuration, err = m.Float64Histogram("visualizer.frame.duration",
		metric.WithDescription("Time spent reading samples, uploading and submitting one frame."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(frameBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FrameErrors, err = m.Int64Counter("visualizer.frame.errors",
		metric.WithDescription("Frames dropped by an acquire or render error, by stage."),
	); err != nil {
		return nil, err
	}
	if met.Activations, err = m.Int64Counter("capture.activations",
		metric.WithDescription("Capture requests started by the start control."),
	); err != nil {
		return nil, err
	}
	if met.CaptureFailures, err = m.Int64Counter("capture.failures",
		metric.WithDescription("Capture requests that failed, by reason."),
	); err != nil {
		return nil, err
	}
	if met.Samples, err = m.Int64Counter("capture.samples",
		metric.WithDescription("Samples delivered by the capture backend."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// NewNopMetrics returns instruments that record nothing.
func NewNopMetrics() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic("observe: noop instruments failed: " + err.Error())
	}
	return m
}

// RecordFrame records one submitted frame and its duration.
func (m *Metrics) RecordFrame(ctx context.Context, d time.Duration) {
	m.Frames.Add(ctx, 1)
	m.FrameDuration.Record(ctx, d.Seconds())
}

// RecordFrameError records a dropped frame at the given stage.
func (m *Metrics) RecordFrameError(ctx context.Context, stage string) {
	m.FrameErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordActivation records a start-control activation.
func (m *Metrics) RecordActivation(ctx context.Context) {
	m.Activations.Add(ctx, 1)
}

// RecordCaptureFailure records a failed capture request.
func (m *Metrics) RecordCaptureFailure(ctx context.Context, reason string) {
	m.CaptureFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordSamples records n delivered samples.
func (m *Metrics) RecordSamples(ctx context.Context, n int) {
	m.Samples.Add(ctx, int64(n))
}
