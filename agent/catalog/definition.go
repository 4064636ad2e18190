package catalog

import (
	"fmt"
	"regexp"
	"strings"

	contractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/contract"
)

// MessageSet holds every outward message kind for one language.
type MessageSet struct {
	Welcome         string `yaml:"welcome"`
	Confirmation    string `yaml:"confirmation"`
	Retry           string `yaml:"retry"`
	Clarify         string `yaml:"clarify"`
	ClosingPositive string `yaml:"closing_positive"`
	ClosingNegative string `yaml:"closing_negative"`
}

// AgentDefinition is immutable after load. Language order matters: the first
// entry is the default and the detection fallback.
type AgentDefinition struct {
	ID             string                `yaml:"id"`
	SystemPrompt   string                `yaml:"system_prompt"`
	RequiredFields []string              `yaml:"required_fields"`
	OptionalFields []string              `yaml:"optional_fields,omitempty"`
	Languages      []string              `yaml:"languages"`
	Messages       map[string]MessageSet `yaml:"messages"`
}

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Placeholders returns the field names referenced by a message template.
func Placeholders(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	if len(matches) == 0 {
		return nil
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

func (d *AgentDefinition) DefaultLanguage() string {
	if len(d.Languages) == 0 {
		return ""
	}
	return d.Languages[0]
}

// MultiLanguage reports whether the language-selection stage applies.
func (d *AgentDefinition) MultiLanguage() bool {
	return len(d.Languages) > 1
}

// MessagesFor returns the message set for a language, falling back to the
// default language when the requested one is not configured.
func (d *AgentDefinition) MessagesFor(language string) MessageSet {
	if set, ok := d.Messages[language]; ok {
		return set
	}
	return d.Messages[d.DefaultLanguage()]
}

// KnownField reports whether a field name is in the required or optional set.
func (d *AgentDefinition) KnownField(name string) bool {
	for _, f := range d.RequiredFields {
		if f == name {
			return true
		}
	}
	for _, f := range d.OptionalFields {
		if f == name {
			return true
		}
	}
	return false
}

// Validate checks the load-time invariants: every supported language carries
// all six message kinds, and every required field appears as a placeholder in
// every language's confirmation template.
func (d *AgentDefinition) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: agent id is empty", contractx.ErrValidation)
	}
	if strings.TrimSpace(d.SystemPrompt) == "" {
		return fmt.Errorf("%w: agent %s has no system prompt", contractx.ErrValidation, d.ID)
	}
	if len(d.RequiredFields) == 0 {
		return fmt.Errorf("%w: agent %s has no required fields", contractx.ErrValidation, d.ID)
	}
	if len(d.Languages) == 0 {
		return fmt.Errorf("%w: agent %s supports no languages", contractx.ErrValidation, d.ID)
	}

	for _, lang := range d.Languages {
		set, ok := d.Messages[lang]
		if !ok {
			return fmt.Errorf("%w: agent %s has no messages for language %s", contractx.ErrValidation, d.ID, lang)
		}
		kinds := map[string]string{
			"welcome":          set.Welcome,
			"confirmation":     set.Confirmation,
			"retry":            set.Retry,
			"clarify":          set.Clarify,
			"closing_positive": set.ClosingPositive,
			"closing_negative": set.ClosingNegative,
		}
		for kind, msg := range kinds {
			if strings.TrimSpace(msg) == "" {
				return fmt.Errorf("%w: agent %s language %s is missing %s message", contractx.ErrValidation, d.ID, lang, kind)
			}
		}

		present := make(map[string]struct{})
		for _, name := range Placeholders(set.Confirmation) {
			present[name] = struct{}{}
		}
		for _, field := range d.RequiredFields {
			if _, ok := present[field]; !ok {
				return fmt.Errorf("%w: agent %s language %s confirmation template has no placeholder for %s",
					contractx.ErrValidation, d.ID, lang, field)
			}
		}
	}

	return nil
}
