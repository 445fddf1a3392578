package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/satriahrh/voxlate/domain/entities"
	"github.com/satriahrh/voxlate/domain/repositories"
)

type scriptedSTT struct {
	text  string
	err   error
	delay time.Duration

	calls       atomic.Int32
	active      atomic.Int32
	maxActive   atomic.Int32
	mu          sync.Mutex
	lastSamples []float32
	lastConfig  repositories.AudioConfig
}

func (s *scriptedSTT) TranscribeAudio(ctx context.Context, samples []float32, config repositories.AudioConfig) (string, error) {
	s.calls.Add(1)
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		peak := s.maxActive.Load()
		if n <= peak || s.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}

	s.mu.Lock()
	s.lastSamples = append([]float32(nil), samples...)
	s.lastConfig = config
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

type scriptedGenerator struct {
	responses map[string]string
	fallback  string
	err       error

	calls      atomic.Int32
	mu         sync.Mutex
	lastPrompt string
	lastOpts   repositories.GenerateOptions
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string, opts repositories.GenerateOptions) (string, error) {
	g.calls.Add(1)
	g.mu.Lock()
	g.lastPrompt = prompt
	g.lastOpts = opts
	g.mu.Unlock()

	if g.err != nil {
		return "", g.err
	}
	for needle, response := range g.responses {
		if strings.Contains(prompt, needle) {
			return response, nil
		}
	}
	return g.fallback, nil
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[repositories.TranslationKey]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[repositories.TranslationKey]string)}
}

func (c *memoryCache) Get(ctx context.Context, key repositories.TranslationKey) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	return value, ok, nil
}

func (c *memoryCache) Put(ctx context.Context, key repositories.TranslationKey, translated string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = translated
	return nil
}

type fakeStream struct {
	started atomic.Bool
	stopped atomic.Bool
	closed  atomic.Bool
	err     error
}

func (s *fakeStream) Start() error {
	if s.err != nil {
		return s.err
	}
	s.started.Store(true)
	return nil
}

func (s *fakeStream) Stop() error {
	s.stopped.Store(true)
	return nil
}

func (s *fakeStream) Close() error {
	s.closed.Store(true)
	return nil
}

type fakeSource struct {
	openErr   error
	startErr  error
	opens     atomic.Int32
	mu        sync.Mutex
	handler   repositories.FrameHandler
	stream    *fakeStream
	lastStart repositories.StreamConfig
}

func (f *fakeSource) ListDevices(ctx context.Context) ([]entities.AudioDevice, error) {
	return []entities.AudioDevice{{Index: 0, Name: "Test Mic", MaxInputChannels: 2}}, nil
}

func (f *fakeSource) OpenInputStream(config repositories.StreamConfig, handler repositories.FrameHandler) (repositories.AudioStream, error) {
	f.opens.Add(1)
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	f.lastStart = config
	f.stream = &fakeStream{err: f.startErr}
	return f.stream, nil
}

// feed delivers samples the way a capture callback would.
func (f *fakeSource) feed(samples []float32) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	if handler == nil {
		panic("feed before OpenInputStream")
	}
	handler(samples)
}

var errScripted = errors.New("scripted failure")

func constantSamples(n int, value float32) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = value
	}
	return samples
}

func waitFor(timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return condition()
}
