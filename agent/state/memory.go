package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// MemoryStore keeps call sessions in process memory. It is the fallback
// backing when Redis is not configured; data does not survive a restart.
// Sessions are deep-copied through JSON so callers never share mutable state.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]byte),
	}
}

func (m *MemoryStore) Load(ctx context.Context, callID string) (*CallSession, error) {
	if strings.TrimSpace(callID) == "" {
		return nil, ErrInvalidCallID
	}

	m.mu.RLock()
	payload, ok := m.sessions[callID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	var sess CallSession
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal call session: %w", err)
	}
	sess.EnsureFieldsMap()
	return &sess, nil
}

func (m *MemoryStore) Save(ctx context.Context, sess *CallSession) error {
	if sess == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(sess.CallID) == "" {
		return ErrInvalidCallID
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal call session: %w", err)
	}

	m.mu.Lock()
	m.sessions[sess.CallID] = payload
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, callID string) error {
	if strings.TrimSpace(callID) == "" {
		return ErrInvalidCallID
	}
	m.mu.Lock()
	delete(m.sessions, callID)
	m.mu.Unlock()
	return nil
}
