package orchestratornode

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/contract"
	statex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/state"
)

// PersistSession saves the mutated session. A save failure must not discard
// the already-computed outward message: it is logged, the session payload is
// handed to the retry queue for out-of-band replay, and the turn proceeds.
func PersistSession(ctx context.Context, in *GraphState, store statex.Store, retry contractx.RetryQueue) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	in.Session.Touch(in.Now)
	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}

	if err := store.Save(ctx, in.Session); err != nil {
		log.Error().Err(err).
			Str("call_id", in.CallID).
			Str("stage", string(in.Session.Stage)).
			Msg("session save failed, continuing turn in degraded mode")

		if retry != nil {
			payload, merr := json.Marshal(in.Session)
			if merr != nil {
				log.Error().Err(merr).Str("call_id", in.CallID).Msg("cannot marshal session for retry queue")
				return in, nil
			}
			if perr := retry.PublishSessionRetry(ctx, payload); perr != nil {
				log.Error().Err(perr).Str("call_id", in.CallID).Msg("retry queue publish failed")
			}
		}
	}

	return in, nil
}
