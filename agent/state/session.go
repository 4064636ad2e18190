package state

import (
	"fmt"
	"strings"
	"time"
)

// Stage is the dialogue state machine position persisted per call.
// Transitions are monotonic except the reject-confirmation rewind
// (confirming -> collecting, clearing collected fields).
type Stage string

const (
	StageLanguageSelection Stage = "language_selection"
	StageWelcome           Stage = "welcome"
	StageCollecting        Stage = "collecting"
	StageConfirming        Stage = "confirming"
	StageCompleted         Stage = "completed"
	StageHandedOff         Stage = "handed_off"
)

func (s Stage) Valid() bool {
	switch s {
	case StageLanguageSelection, StageWelcome, StageCollecting, StageConfirming, StageCompleted, StageHandedOff:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transcript events mutate the session.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageHandedOff
}

type Speaker string

const (
	SpeakerCaller Speaker = "caller"
	SpeakerAgent  Speaker = "agent"
)

type TranscriptEntry struct {
	Speaker   Speaker `json:"speaker"`
	Utterance string  `json:"utterance"`
}

// CallSession is the per-call record. It is owned by a single request at a
// time and persisted between requests; history is append-only.
type CallSession struct {
	CallID   string `json:"call_id"`
	AgentID  string `json:"agent_id"`
	Stage    Stage  `json:"stage"`
	Language string `json:"language,omitempty"`

	History []TranscriptEntry `json:"history,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewCallSession(callID, agentID string, stage Stage, language string, now time.Time) *CallSession {
	return &CallSession{
		CallID:    callID,
		AgentID:   agentID,
		Stage:     stage,
		Language:  language,
		Fields:    make(map[string]string, 8),
		UpdatedAt: now.UTC(),
	}
}

func (s *CallSession) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

func (s *CallSession) EnsureFieldsMap() {
	if s.Fields == nil {
		s.Fields = make(map[string]string, 8)
	}
}

func (s *CallSession) AppendCaller(utterance string) {
	s.History = append(s.History, TranscriptEntry{Speaker: SpeakerCaller, Utterance: utterance})
}

func (s *CallSession) AppendAgent(utterance string) {
	s.History = append(s.History, TranscriptEntry{Speaker: SpeakerAgent, Utterance: utterance})
}

// MergeFields applies an additive patch: empty values never overwrite or
// delete a field that is already set. Clearing is only done wholesale via
// ClearFields on the reject-confirmation path.
func (s *CallSession) MergeFields(patch map[string]string) {
	if len(patch) == 0 {
		return
	}
	s.EnsureFieldsMap()
	for k, v := range patch {
		if strings.TrimSpace(v) == "" {
			continue
		}
		s.Fields[k] = v
	}
}

func (s *CallSession) ClearFields() {
	s.Fields = make(map[string]string, 8)
}

func (s *CallSession) Validate() error {
	if strings.TrimSpace(s.CallID) == "" {
		return ErrInvalidCallID
	}
	if strings.TrimSpace(s.AgentID) == "" {
		return fmt.Errorf("session %s: agent id is empty", s.CallID)
	}
	if !s.Stage.Valid() {
		return fmt.Errorf("session %s: invalid stage %q", s.CallID, s.Stage)
	}
	return nil
}
