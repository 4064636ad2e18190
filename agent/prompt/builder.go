package prompt

import (
	_ "embed"
	"strings"

	catalogx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/catalog"
)

var (
	//go:embed template/conversation_style.txt
	conversationStyleRaw string

	//go:embed template/response_rules.txt
	responseRulesRaw string
)

// BuildSystemPrompt assembles the full extraction prompt for one agent:
// the agent's base prompt, the shared conversation style, and the JSON
// response-format contract listing the agent's own fields.
//
// The embed is compile-time and trimming is cheap, so this is safe to call
// concurrently.
func BuildSystemPrompt(def *catalogx.AgentDefinition) string {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(def.SystemPrompt))
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(conversationStyleRaw))
	b.WriteString("\n\nRESPONSE FORMAT (JSON):\n{\n")
	b.WriteString(`  "response_type": "THANK_YOU_RESPONSE" | "NEED_MORE_INFO" | "HANDOVER_TO_HUMAN",`)
	b.WriteString("\n")

	fields := make([]string, 0, len(def.RequiredFields)+len(def.OptionalFields))
	fields = append(fields, def.RequiredFields...)
	fields = append(fields, def.OptionalFields...)
	for _, field := range fields {
		b.WriteString(`  "`)
		b.WriteString(field)
		b.WriteString(`": "extracted `)
		b.WriteString(strings.ReplaceAll(field, "_", " "))
		b.WriteString(` or null",`)
		b.WriteString("\n")
	}

	b.WriteString(`  "feedback": "Your natural conversational response"`)
	b.WriteString("\n}\n\n")
	b.WriteString(strings.TrimSpace(responseRulesRaw))

	return b.String()
}
