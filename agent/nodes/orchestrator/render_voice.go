package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/contract"
)

// RenderVoice asks the renderer for a playable audio handle. Any renderer
// failure leaves AudioURL empty so the gateway falls back to its built-in
// reader; rendering never fails the turn.
func RenderVoice(ctx context.Context, in *GraphState, renderer contractx.Renderer) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if renderer == nil || in.Outcome.Turn.Message == "" {
		return in, nil
	}

	audioURL, err := renderer.Render(ctx, in.Outcome.Turn.Message, in.Outcome.Turn.Language)
	if err != nil {
		if !errors.Is(err, contractx.ErrRendererUnavailable) {
			log.Warn().Err(err).Str("call_id", in.CallID).Msg("voice rendering failed, using built-in reader")
		}
		return in, nil
	}

	in.AudioURL = audioURL
	return in, nil
}

// FinalizeTurn shapes the pipeline result for the gateway.
func FinalizeTurn(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	turn := in.Outcome.Turn
	if turn.Message == "" {
		return GraphOutput{}, fmt.Errorf("%w: dialogue produced an empty message", contractx.ErrValidation)
	}

	return GraphOutput{
		Prompt: contractx.VoicePrompt{
			Message:      turn.Message,
			AudioURL:     in.AudioURL,
			Language:     turn.Language,
			ExpectSpeech: !turn.EndCall,
		},
	}, nil
}
