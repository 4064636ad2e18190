package contract

// Classification is the response tag produced by the extraction step.
type Classification string

const (
	NeedMoreInfo     Classification = "NEED_MORE_INFO"
	ThankYouResponse Classification = "THANK_YOU_RESPONSE"
	HandoverToHuman  Classification = "HANDOVER_TO_HUMAN"
)

func (c Classification) Known() bool {
	switch c {
	case NeedMoreInfo, ThankYouResponse, HandoverToHuman:
		return true
	default:
		return false
	}
}

// ExtractionResult is the well-formed result the dialogue machine consumes.
// It is produced once per turn by the validator and never stored.
type ExtractionResult struct {
	Classification Classification    `json:"response_type"`
	Fields         map[string]string `json:"-"`
	Feedback       string            `json:"feedback"`
}

// Turn is the outward instruction computed by the dialogue machine:
// speak Message in Language, then either keep listening or hang up.
type Turn struct {
	Message  string
	Language string
	EndCall  bool
}

// VoicePrompt is a Turn augmented with the rendered audio handle.
// AudioURL is empty when the renderer was unavailable and the gateway
// must fall back to its built-in reader.
type VoicePrompt struct {
	Message      string
	AudioURL     string
	Language     string
	ExpectSpeech bool
}
