package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/contract"
	dialoguex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/dialogue"
	statex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/state"
)

// AdvanceDialogue computes the turn. Start events emit the opening prompt
// (language menu or welcome); transcript events run the state machine.
func AdvanceDialogue(ctx context.Context, in *GraphState, machine *dialoguex.Machine) (*GraphState, error) {
	if in == nil || in.Def == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contractx.ErrValidation)
	}

	if in.Start {
		in.Outcome = openingPrompt(in)
		return in, nil
	}

	outcome, err := machine.Advance(ctx, in.Def, in.Session, in.Transcript)
	if err != nil {
		return nil, err
	}
	in.Outcome = outcome
	return in, nil
}

func openingPrompt(in *GraphState) dialoguex.Outcome {
	def := in.Def
	sess := in.Session

	// A duplicate start event for a live call re-emits the prompt without
	// growing the history; a start event for a finished call behaves like
	// any other terminal re-entry.
	if sess.Stage.Terminal() {
		msgs := def.MessagesFor(sess.Language)
		closing := msgs.ClosingPositive
		if sess.Stage == statex.StageHandedOff {
			closing = msgs.ClosingNegative
		}
		return dialoguex.Outcome{Turn: contractx.Turn{Message: closing, Language: sess.Language, EndCall: true}}
	}

	if def.MultiLanguage() && sess.Stage == statex.StageLanguageSelection {
		menu := "Please select your language: " + strings.Join(def.Languages, ", ")
		return dialoguex.Outcome{Turn: contractx.Turn{Message: menu, Language: def.DefaultLanguage()}}
	}

	welcome := def.MessagesFor(sess.Language).Welcome
	if in.Created {
		sess.AppendAgent(welcome)
		sess.Touch(in.Now)
	}
	return dialoguex.Outcome{Turn: contractx.Turn{Message: welcome, Language: sess.Language}}
}
