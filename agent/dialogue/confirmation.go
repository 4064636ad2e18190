package dialogue

import (
	"strings"

	"github.com/rs/zerolog/log"

	catalogx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/catalog"
)

const (
	// NotProvidedValue substitutes a required field the caller never gave.
	NotProvidedValue = "not provided"

	// GenericConfirmation is the fallback when a template cannot be
	// interpolated; a confirmation must always be producible.
	GenericConfirmation = "Let me confirm the information I collected. Is this correct? Please say yes or no."
)

// BuildConfirmation renders the collected fields into the agent's
// confirmation template for the given language. Missing required fields
// become "not provided"; a placeholder that is neither collected nor a known
// field makes the whole render fall back to the generic confirmation.
func BuildConfirmation(fields map[string]string, def *catalogx.AgentDefinition, language string) string {
	template := def.MessagesFor(language).Confirmation
	if strings.TrimSpace(template) == "" {
		return GenericConfirmation
	}

	rendered := template
	for _, name := range catalogx.Placeholders(template) {
		value, ok := fields[name]
		if !ok || strings.TrimSpace(value) == "" {
			if !def.KnownField(name) {
				log.Warn().
					Str("agent_id", def.ID).
					Str("placeholder", name).
					Msg("confirmation template references unknown placeholder, using generic confirmation")
				return GenericConfirmation
			}
			value = NotProvidedValue
		}
		rendered = strings.ReplaceAll(rendered, "{"+name+"}", value)
	}

	return rendered
}
