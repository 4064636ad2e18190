package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/contract"
)

// GenericReprompt is spoken when the extractor produced nothing usable.
const GenericReprompt = "Could you please provide the information again?"

const (
	classificationKey = "response_type"
	feedbackKey       = "feedback"
)

// ParseResult repairs raw extractor output into a well-formed result. The
// recovery ladder is deliberate: the extractor is untrusted and
// non-deterministic, and a malformed payload must never fail the turn.
//
//  1. Strip a single layer of code-fence wrapping, if present.
//  2. Parse the remaining text as a JSON object.
//  3. On failure, parse the first balanced brace-delimited substring.
//  4. On a second failure, synthesize NEED_MORE_INFO with the raw text
//     as feedback (or a generic re-prompt if there is none).
//  5. Coerce an unknown classification to NEED_MORE_INFO, logging the
//     anomaly.
func ParseResult(raw string) contractx.ExtractionResult {
	stripped := stripFence(raw)

	obj, ok := parseObject(stripped)
	if !ok {
		if sub, found := firstBalancedObject(stripped); found {
			obj, ok = parseObject(sub)
		}
	}
	if !ok {
		feedback := strings.TrimSpace(stripped)
		if feedback == "" {
			feedback = GenericReprompt
		}
		return contractx.ExtractionResult{
			Classification: contractx.NeedMoreInfo,
			Feedback:       feedback,
		}
	}

	return resultFromObject(obj)
}

func resultFromObject(obj map[string]any) contractx.ExtractionResult {
	result := contractx.ExtractionResult{
		Classification: contractx.NeedMoreInfo,
	}

	if tag, ok := obj[classificationKey].(string); ok {
		c := contractx.Classification(strings.ToUpper(strings.TrimSpace(tag)))
		if c.Known() {
			result.Classification = c
		} else {
			log.Warn().Str("response_type", tag).Msg("extractor returned unknown classification, coercing to NEED_MORE_INFO")
		}
	} else {
		log.Warn().Msg("extractor output has no classification tag, coercing to NEED_MORE_INFO")
	}

	if feedback, ok := obj[feedbackKey].(string); ok {
		result.Feedback = strings.TrimSpace(feedback)
	}
	if result.Feedback == "" {
		result.Feedback = GenericReprompt
	}

	fields := make(map[string]string, len(obj))
	for key, value := range obj {
		if key == classificationKey || key == feedbackKey {
			continue
		}
		if v := fieldValue(value); v != "" {
			fields[key] = v
		}
	}
	if len(fields) > 0 {
		result.Fields = fields
	}

	return result
}

// fieldValue flattens a JSON field value to its spoken form. JSON null and
// the literal string "null" both mean absent.
func fieldValue(value any) string {
	switch v := value.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.EqualFold(trimmed, "null") {
			return ""
		}
		return trimmed
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func parseObject(text string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// stripFence removes one leading/trailing code-fence layer. Nested fencing
// inside the body is left alone.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	rest := s[len("```"):]
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
		// The opening fence line may carry a language hint.
		rest = rest[idx+1:]
	} else {
		rest = strings.TrimPrefix(rest, "json")
	}
	if end := strings.LastIndex(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// firstBalancedObject finds the first brace-delimited substring with
// balanced braces, skipping braces inside JSON strings.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
