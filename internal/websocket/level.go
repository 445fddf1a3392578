package websocket

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain"
)

// DefaultLevelInterval is how often the input level is pushed while a session runs
const DefaultLevelInterval = 250 * time.Millisecond

// LevelSource reports the input level of the running session
type LevelSource interface {
	CurrentLevel() (sessionID string, level domain.AudioLevelPayload, running bool)
}

// LevelTicker periodically publishes audio_level events while a session is running
type LevelTicker struct {
	source    LevelSource
	publisher domain.EventPublisher
	interval  time.Duration
	logger    *zap.Logger
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewLevelTicker creates a new level ticker
func NewLevelTicker(source LevelSource, publisher domain.EventPublisher, interval time.Duration, logger *zap.Logger) *LevelTicker {
	if interval <= 0 {
		interval = DefaultLevelInterval
	}
	return &LevelTicker{
		source:    source,
		publisher: publisher,
		interval:  interval,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start begins publishing in the background
func (t *LevelTicker) Start() {
	t.wg.Add(1)
	go t.loop()
	t.logger.Info("Audio level ticker started", zap.Duration("interval", t.interval))
}

// Stop halts the ticker and waits for it to exit
func (t *LevelTicker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
		t.wg.Wait()
		t.logger.Info("Audio level ticker stopped")
	})
}

func (t *LevelTicker) loop() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopChan:
			return
		case <-ticker.C:
			sessionID, level, running := t.source.CurrentLevel()
			if !running {
				continue
			}
			t.publisher.Publish(domain.NewEvent(domain.EventAudioLevel, sessionID, level))
		}
	}
}
