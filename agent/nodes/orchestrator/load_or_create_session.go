package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/contract"
	statex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/state"
)

// LoadOrCreateSession fetches the call's session from the store, creating it
// when this is the first event seen for the call id. Creation is idempotent:
// a lost start event or a process restart both land here and reload or
// rebuild the same session.
func LoadOrCreateSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil || in.Def == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contractx.ErrValidation)
	}

	sess, err := store.Load(ctx, in.CallID)
	if err == nil {
		in.Session = sess
		return in, nil
	}
	if !errors.Is(err, statex.ErrSessionNotFound) {
		return nil, err
	}

	// A single-language agent skips language selection entirely.
	stage := statex.StageLanguageSelection
	language := ""
	if !in.Def.MultiLanguage() {
		stage = statex.StageWelcome
		language = in.Def.DefaultLanguage()
	}

	in.Session = statex.NewCallSession(in.CallID, in.AgentID, stage, language, in.Now)
	in.Created = true
	return in, nil
}
