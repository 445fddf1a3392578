package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain/entities"
	"github.com/satriahrh/voxlate/internal/audio"
)

// DefaultPollInterval is how long the loop sleeps when the buffer is empty.
const DefaultPollInterval = 50 * time.Millisecond

// Loop is the single consumer that drains the capture buffer and records translations.
type Loop struct {
	buffer       *audio.Buffer
	transcriber  *TranscriptionStage
	translator   *TranslationStage
	config       entities.SessionConfig
	pollInterval time.Duration
	logger       *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	running    atomic.Bool
	processing atomic.Bool
	latest     atomic.Pointer[entities.TranslationRecord]

	historyMu sync.RWMutex
	history   []entities.TranslationRecord
}

// NewLoop creates a stopped loop reading from buffer.
func NewLoop(
	buffer *audio.Buffer,
	transcriber *TranscriptionStage,
	translator *TranslationStage,
	config entities.SessionConfig,
	pollInterval time.Duration,
	logger *zap.Logger,
) *Loop {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Loop{
		buffer:       buffer,
		transcriber:  transcriber,
		translator:   translator,
		config:       config,
		pollInterval: pollInterval,
		logger:       logger,
		history:      make([]entities.TranslationRecord, 0),
	}
}

// Start launches the consumer goroutine. Calling Start on a running loop does nothing.
// ctx only carries values for inference calls; use Stop to end the loop.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running.Load() {
		return
	}

	stopCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	l.running.Store(true)

	go l.run(context.WithoutCancel(ctx), stopCtx, l.done)

	l.logger.Info("Processing loop started",
		zap.String("input_language", l.config.InputLanguage),
		zap.String("target_language", l.config.TargetLanguage),
		zap.String("model", l.config.SelectedModel))
}

// Stop signals the consumer and waits for it to exit. A frame in progress finishes
// first. Calling Stop on a stopped loop does nothing.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running.Load() {
		return
	}

	l.cancel()
	<-l.done
	l.running.Store(false)

	l.logger.Info("Processing loop stopped", zap.Int("records", l.historyLen()))
}

func (l *Loop) run(ctx, stop context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-stop.Done():
			return
		default:
		}

		frame, ok := l.buffer.TryPop()
		if !ok {
			select {
			case <-stop.Done():
				return
			case <-time.After(l.pollInterval):
			}
			continue
		}

		l.process(ctx, frame)
	}
}

func (l *Loop) process(ctx context.Context, frame audio.Frame) {
	l.processing.Store(true)
	defer l.processing.Store(false)

	text, ok := l.transcriber.Transcribe(ctx, frame, l.config.InputLanguage)
	if !ok {
		return
	}

	translated, ok := l.translator.Translate(ctx, text, l.config.InputLanguage, l.config.TargetLanguage, l.config.SelectedModel)
	if !ok {
		return
	}

	record := entities.NewTranslationRecord(text, translated)

	l.historyMu.Lock()
	l.history = append(l.history, record)
	l.historyMu.Unlock()

	l.latest.Store(&record)
}

// IsRunning reports whether the consumer goroutine is active.
func (l *Loop) IsRunning() bool {
	return l.running.Load()
}

// IsProcessing reports whether a frame is being transcribed or translated.
func (l *Loop) IsProcessing() bool {
	return l.processing.Load()
}

// Latest returns the most recent record, or nil.
func (l *Loop) Latest() *entities.TranslationRecord {
	record := l.latest.Load()
	if record == nil {
		return nil
	}
	copied := *record
	return &copied
}

// History returns a copy of every record appended so far, oldest first.
func (l *Loop) History() []entities.TranslationRecord {
	l.historyMu.RLock()
	defer l.historyMu.RUnlock()

	history := make([]entities.TranslationRecord, len(l.history))
	copy(history, l.history)
	return history
}

func (l *Loop) historyLen() int {
	l.historyMu.RLock()
	defer l.historyMu.RUnlock()
	return len(l.history)
}
