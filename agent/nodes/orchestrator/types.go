package orchestratornode

import (
	"errors"
	"strings"
	"time"

	catalogx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/catalog"
	contractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/contract"
	dialoguex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/dialogue"
	statex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/state"
)

var (
	ErrInvalidCall  = errors.New("call id is empty")
	ErrInvalidAgent = errors.New("agent id is empty")
)

// GraphInput is one inbound gateway event: a call start or a transcript.
type GraphInput struct {
	CallID     string
	AgentID    string
	Transcript string
	Start      bool
}

// GraphOutput carries the outward voice prompt for the gateway.
type GraphOutput struct {
	Prompt contractx.VoicePrompt
}

// GraphState flows through the orchestrator pipeline.
type GraphState struct {
	CallID     string
	AgentID    string
	Transcript string
	Start      bool
	Now        time.Time

	Def     *catalogx.AgentDefinition
	Session *statex.CallSession
	Created bool

	Outcome  dialoguex.Outcome
	AudioURL string
}

// ValidateEvent checks the event identifiers and resolves the agent
// definition. An unknown agent id is a client-input error.
func ValidateEvent(in GraphInput, cat *catalogx.Catalog, nowFn func() time.Time) (*GraphState, error) {
	callID := strings.TrimSpace(in.CallID)
	if callID == "" {
		return nil, ErrInvalidCall
	}
	agentID := strings.TrimSpace(in.AgentID)
	if agentID == "" {
		return nil, ErrInvalidAgent
	}

	def, err := cat.DefinitionFor(agentID)
	if err != nil {
		return nil, err
	}

	return &GraphState{
		CallID:     callID,
		AgentID:    agentID,
		Transcript: in.Transcript,
		Start:      in.Start,
		Now:        nowFn(),
		Def:        def,
	}, nil
}
