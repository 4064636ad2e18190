package voice

import (
	"strings"

	elevenlabsx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/pkg/elevenlabs"
)

// Profile maps a spoken language to the telephony voice configuration used
// for prompts in that language.
type Profile struct {
	TwilioCode  string
	TwilioVoice string
	Settings    elevenlabsx.VoiceSettings
}

var defaultProfile = Profile{
	TwilioCode:  "en-US",
	TwilioVoice: "Polly.Joanna-Neural",
	Settings:    elevenlabsx.DefaultVoiceSettings,
}

var profiles = map[string]Profile{
	"english": defaultProfile,
	"tamil": {
		TwilioCode:  "ta-IN",
		TwilioVoice: "Polly.Aditi-Neural",
		Settings:    elevenlabsx.DefaultVoiceSettings,
	},
	"malayalam": {
		TwilioCode:  "ml-IN",
		TwilioVoice: "Polly.Aditi-Neural",
		Settings:    elevenlabsx.DefaultVoiceSettings,
	},
}

// ProfileFor returns the voice profile for a language, falling back to the
// English profile for unknown or empty languages.
func ProfileFor(language string) Profile {
	if p, ok := profiles[strings.ToLower(strings.TrimSpace(language))]; ok {
		return p
	}
	return defaultProfile
}
