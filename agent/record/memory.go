package record

import (
	"context"
	"sync"
	"time"

	contractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/contract"
)

var _ contractx.Recorder = (*MemoryRecorder)(nil)

// MemoryRecorder keeps confirmed call results in process memory. It backs
// local runs that have no database configured.
type MemoryRecorder struct {
	mu      sync.RWMutex
	records []CollectedRecord
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) RecordFinal(_ context.Context, callID, agentID string, fields map[string]string) error {
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, CollectedRecord{
		CallID:    callID,
		AgentID:   agentID,
		Fields:    copied,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// Records returns a snapshot of everything recorded so far.
func (r *MemoryRecorder) Records() []CollectedRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CollectedRecord, len(r.records))
	copy(out, r.records)
	return out
}
