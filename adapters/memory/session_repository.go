package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/satriahrh/voxlate/domain/entities"
	"github.com/satriahrh/voxlate/domain/repositories"
)

// SessionRepository is an in-memory implementation of repositories.SessionRepository.
// It is the default archive when no MongoDB URI is configured.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*entities.TranslationSession
}

// NewSessionRepository creates a new in-memory session repository
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*entities.TranslationSession),
	}
}

// Create implements repositories.SessionRepository
func (m *SessionRepository) Create(ctx context.Context, session *entities.TranslationSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}

	if err := session.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}

	m.sessions[session.ID] = cloneSession(session)
	return nil
}

// Update implements repositories.SessionRepository
func (m *SessionRepository) Update(ctx context.Context, session *entities.TranslationSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}

	if err := session.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; !exists {
		return fmt.Errorf("%w: %s", repositories.ErrSessionNotFound, session.ID)
	}

	m.sessions[session.ID] = cloneSession(session)
	return nil
}

// GetByID implements repositories.SessionRepository
func (m *SessionRepository) GetByID(ctx context.Context, id string) (*entities.TranslationSession, error) {
	if id == "" {
		return nil, errors.New("session ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", repositories.ErrSessionNotFound, id)
	}

	// Return a copy to prevent external modifications
	return cloneSession(session), nil
}

// ListRecent implements repositories.SessionRepository
func (m *SessionRepository) ListRecent(ctx context.Context, limit int) ([]*entities.TranslationSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*entities.TranslationSession, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, cloneSession(session))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func cloneSession(session *entities.TranslationSession) *entities.TranslationSession {
	c := *session
	c.Records = append([]entities.TranslationRecord(nil), session.Records...)
	if session.StoppedAt != nil {
		stopped := *session.StoppedAt
		c.StoppedAt = &stopped
	}
	if session.Summary != nil {
		summary := *session.Summary
		c.Summary = &summary
	}
	return &c
}
