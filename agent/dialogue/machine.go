package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	catalogx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/catalog"
	contractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/contract"
	extractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/extract"
	promptx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/prompt"
	statex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/state"
)

const (
	// RepromptMessage is spoken when a turn arrives with no transcript.
	RepromptMessage = "I didn't catch that, please repeat."

	// TechnicalDifficultyMessage replaces the feedback when the extractor
	// call itself failed. The call keeps going.
	TechnicalDifficultyMessage = "I apologize, but our system is experiencing technical difficulties. Could you please repeat that?"
)

// Token sets for the confirmation stage. Matching is case-insensitive
// substring containment, affirmative checked first: a transcript carrying
// both kinds of token confirms. That precedence is a deliberate, tested
// policy.
var (
	affirmativeTokens = []string{"yes", "correct", "right", "confirm", "ok", "okay", "yeah", "yep"}
	negativeTokens    = []string{"no", "wrong", "incorrect", "change", "modify"}
)

// Outcome is the result of one state-machine step: the outward turn plus
// whether the session's collected fields were finalized this step.
type Outcome struct {
	Turn      contractx.Turn
	Finalized bool
}

// Machine drives a call session through its stages. It mutates the session
// in place; persistence belongs to the caller.
type Machine struct {
	extractor contractx.Extractor
	now       func() time.Time
}

func NewMachine(extractor contractx.Extractor) (*Machine, error) {
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	return &Machine{
		extractor: extractor,
		now:       time.Now,
	}, nil
}

// Advance consumes one transcript event and computes the next session state
// and outward turn. It never fails on extractor misbehavior; the only errors
// it returns are programming/contract errors.
func (m *Machine) Advance(
	ctx context.Context,
	def *catalogx.AgentDefinition,
	sess *statex.CallSession,
	transcript string,
) (Outcome, error) {
	if def == nil {
		return Outcome{}, fmt.Errorf("%w: agent definition is nil", contractx.ErrValidation)
	}
	if sess == nil {
		return Outcome{}, statex.ErrNilSession
	}

	language := sess.Language
	if language == "" {
		language = def.DefaultLanguage()
	}
	msgs := def.MessagesFor(language)

	// Terminal stages accept late or duplicate events as no-ops that
	// re-emit the closing message without touching session data.
	if sess.Stage.Terminal() {
		closing := msgs.ClosingPositive
		if sess.Stage == statex.StageHandedOff {
			closing = msgs.ClosingNegative
		}
		return Outcome{Turn: contractx.Turn{Message: closing, Language: language, EndCall: true}}, nil
	}

	trimmed := strings.TrimSpace(transcript)
	if trimmed == "" {
		return Outcome{Turn: contractx.Turn{Message: RepromptMessage, Language: language}}, nil
	}

	switch sess.Stage {
	case statex.StageLanguageSelection:
		return m.selectLanguage(def, sess, trimmed)
	case statex.StageWelcome, statex.StageCollecting:
		return m.collect(ctx, def, sess, trimmed, language, msgs)
	case statex.StageConfirming:
		return m.confirm(sess, trimmed, language, msgs), nil
	default:
		return Outcome{}, fmt.Errorf("%w: session %s has invalid stage %q", contractx.ErrValidation, sess.CallID, sess.Stage)
	}
}

// selectLanguage resolves the caller's language choice: first supported
// language named in the transcript wins, list order decides ties, and no
// match falls back to the default language.
func (m *Machine) selectLanguage(def *catalogx.AgentDefinition, sess *statex.CallSession, transcript string) (Outcome, error) {
	language := DetectLanguage(transcript, def.Languages)

	sess.Language = language
	sess.Stage = statex.StageWelcome
	sess.AppendCaller("Selected language: " + language)

	welcome := def.MessagesFor(language).Welcome
	sess.AppendAgent(welcome)
	sess.Touch(m.now())

	return Outcome{Turn: contractx.Turn{Message: welcome, Language: language}}, nil
}

// collect runs the extraction step and merges its fields into the session.
func (m *Machine) collect(
	ctx context.Context,
	def *catalogx.AgentDefinition,
	sess *statex.CallSession,
	transcript string,
	language string,
	msgs catalogx.MessageSet,
) (Outcome, error) {
	sess.Stage = statex.StageCollecting
	sess.AppendCaller(transcript)

	result := m.extract(ctx, def, sess)

	// Additive merge, restricted to the agent's known field names. A field
	// already collected is never dropped by an absent extraction value.
	if len(result.Fields) > 0 {
		patch := make(map[string]string, len(result.Fields))
		for name, value := range result.Fields {
			if def.KnownField(name) {
				patch[name] = value
			}
		}
		sess.MergeFields(patch)
	}

	var turn contractx.Turn
	switch result.Classification {
	case contractx.ThankYouResponse:
		sess.Stage = statex.StageConfirming
		confirmation := BuildConfirmation(sess.Fields, def, language)
		sess.AppendAgent(confirmation)
		turn = contractx.Turn{Message: confirmation, Language: language}

	case contractx.HandoverToHuman:
		sess.Stage = statex.StageHandedOff
		sess.AppendAgent(msgs.ClosingNegative)
		turn = contractx.Turn{Message: msgs.ClosingNegative, Language: language, EndCall: true}

	default:
		sess.AppendAgent(result.Feedback)
		turn = contractx.Turn{Message: result.Feedback, Language: language}
	}

	sess.Touch(m.now())
	return Outcome{Turn: turn}, nil
}

// extract calls the extractor and shields the dialogue from its failures:
// any error degrades to a NEED_MORE_INFO result with an apology.
func (m *Machine) extract(ctx context.Context, def *catalogx.AgentDefinition, sess *statex.CallSession) contractx.ExtractionResult {
	systemPrompt := promptx.BuildSystemPrompt(def)

	raw, err := m.extractor.Infer(ctx, systemPrompt, sess.History, sess.Fields)
	if err != nil {
		log.Error().Err(err).
			Str("call_id", sess.CallID).
			Str("agent_id", sess.AgentID).
			Msg("extractor call failed, degrading to re-prompt")
		return contractx.ExtractionResult{
			Classification: contractx.NeedMoreInfo,
			Feedback:       TechnicalDifficultyMessage,
		}
	}

	return extractx.ParseResult(raw)
}

// confirm handles the yes/no/unclear loop. Affirmative tokens are checked
// before negative ones.
func (m *Machine) confirm(sess *statex.CallSession, transcript string, language string, msgs catalogx.MessageSet) Outcome {
	sess.AppendCaller(transcript)

	switch {
	case containsToken(transcript, affirmativeTokens):
		sess.Stage = statex.StageCompleted
		sess.AppendAgent(msgs.ClosingPositive)
		sess.Touch(m.now())
		return Outcome{
			Turn:      contractx.Turn{Message: msgs.ClosingPositive, Language: language, EndCall: true},
			Finalized: true,
		}

	case containsToken(transcript, negativeTokens):
		sess.Stage = statex.StageCollecting
		sess.ClearFields()
		sess.AppendAgent(msgs.Retry)
		sess.Touch(m.now())
		return Outcome{Turn: contractx.Turn{Message: msgs.Retry, Language: language}}

	default:
		sess.AppendAgent(msgs.Clarify)
		sess.Touch(m.now())
		return Outcome{Turn: contractx.Turn{Message: msgs.Clarify, Language: language}}
	}
}

// DetectLanguage picks the first supported language named in the transcript
// (case-insensitive substring), defaulting to the first supported language.
func DetectLanguage(transcript string, supported []string) string {
	lower := strings.ToLower(transcript)
	for _, language := range supported {
		if strings.Contains(lower, strings.ToLower(language)) {
			return language
		}
	}
	if len(supported) == 0 {
		return ""
	}
	return supported[0]
}

func containsToken(transcript string, tokens []string) bool {
	lower := strings.ToLower(transcript)
	for _, token := range tokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}
