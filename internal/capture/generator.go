package capture

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Raikerian/go-waveform/internal/config"
)

// generator synthesises consecutive sample blocks.
type generator interface {
	generate(buf []float32)
}

// sineGenerator emits a pure tone at half amplitude.
type sineGenerator struct {
	sampleRate float64
	frequency  float64
	phase      float64
}

func newSineGenerator(sampleRate, frequency float64) *sineGenerator {
	return &sineGenerator{sampleRate: sampleRate, frequency: frequency}
}

func (g *sineGenerator) generate(buf []float32) {
	step := 2 * math.Pi * g.frequency / g.sampleRate
	for i := range buf {
		buf[i] = float32(0.5 * math.Sin(g.phase))
		g.phase = math.Mod(g.phase+step, 2*math.Pi)
	}
}

// sweepGenerator emits an exponential sine sweep from startFreq to endFreq
// over duration seconds, then restarts. A short fade at both ends avoids a
// click at the restart.
type sweepGenerator struct {
	sampleRate float64
	startFreq  float64
	endFreq    float64
	duration   float64
	time       float64
	phase      float64
}

func newSweepGenerator(sampleRate, startFreq, endFreq, duration float64) *sweepGenerator {
	return &sweepGenerator{
		sampleRate: sampleRate,
		startFreq:  startFreq,
		endFreq:    endFreq,
		duration:   duration,
	}
}

func (g *sweepGenerator) generate(buf []float32) {
	const fade = 0.05
	dt := 1 / g.sampleRate

	for i := range buf {
		progress := g.time / g.duration
		if progress >= 1 {
			g.time = 0
			progress = 0
		}

		freq := g.startFreq * math.Pow(g.endFreq/g.startFreq, progress)
		g.phase = math.Mod(g.phase+2*math.Pi*freq*dt, 2*math.Pi)

		envelope := 1.0
		switch {
		case progress < fade:
			envelope = progress / fade
		case progress > 1-fade:
			envelope = (1 - progress) / fade
		}

		buf[i] = float32(0.5 * envelope * math.Sin(g.phase))
		g.time += dt
	}
}

// generatorSource paces a generator in real time, one block per buffer
// period.
type generatorSource struct {
	gen             generator
	framesPerBuffer int
	period          time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newGeneratorSource(cfg config.CaptureConfig, gen generator) *generatorSource {
	return &generatorSource{
		gen:             gen,
		framesPerBuffer: cfg.FramesPerBuffer,
		period:          time.Duration(float64(time.Second) * float64(cfg.FramesPerBuffer) / cfg.SampleRate),
	}
}

func (s *generatorSource) Open(ctx context.Context, sink Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return fmt.Errorf("generator already running")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(runCtx, sink)
	return nil
}

func (s *generatorSource) run(ctx context.Context, sink Sink) {
	defer close(s.done)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	buf := make([]float32, s.framesPerBuffer)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.gen.generate(buf)
			sink(buf)
		}
	}
}

func (s *generatorSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done == nil {
		return nil
	}
	s.cancel()
	<-s.done
	s.done = nil
	return nil
}
