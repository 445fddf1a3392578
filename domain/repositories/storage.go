package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/satriahrh/voxlate/domain/entities"
)

// ErrSessionNotFound is returned when an archived session does not exist
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository defines data access methods for archived sessions
type SessionRepository interface {
	Create(ctx context.Context, session *entities.TranslationSession) error
	Update(ctx context.Context, session *entities.TranslationSession) error
	GetByID(ctx context.Context, id string) (*entities.TranslationSession, error)
	// ListRecent returns sessions ordered by start time, newest first
	ListRecent(ctx context.Context, limit int) ([]*entities.TranslationSession, error)
}

// RecordExporter writes a tabular snapshot of translation records
type RecordExporter interface {
	// Export writes records and returns where they were written
	Export(ctx context.Context, records []entities.TranslationRecord, endedAt time.Time) (string, error)
}

// TranslationCache remembers translations of identical utterances
type TranslationCache interface {
	Get(ctx context.Context, key TranslationKey) (string, bool, error)
	Put(ctx context.Context, key TranslationKey, translated string) error
}

// TranslationKey identifies a cached translation
type TranslationKey struct {
	Source string
	Target string
	Model  string
	Text   string
}
