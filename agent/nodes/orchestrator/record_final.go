package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/contract"
)

// RecordFinal writes the finalized collected fields after a confirmed turn.
// A write failure is logged and does not block the turn's response.
func RecordFinal(ctx context.Context, in *GraphState, recorder contractx.Recorder) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contractx.ErrValidation)
	}
	if !in.Outcome.Finalized || recorder == nil {
		return in, nil
	}

	if err := recorder.RecordFinal(ctx, in.CallID, in.AgentID, in.Session.Fields); err != nil {
		log.Error().Err(err).
			Str("call_id", in.CallID).
			Str("agent_id", in.AgentID).
			Msg("failed to record finalized fields")
	}
	return in, nil
}
