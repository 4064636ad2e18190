package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/contract"
	statex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/state"
	openrouterx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/pkg/openrouter"
)

// LLMExtractor runs the extraction prompt against an OpenAI-compatible chat
// completion endpoint. It returns the model's raw text; ParseResult owns all
// parsing and repair.
type LLMExtractor struct {
	client      *openaisdk.Client
	model       string
	temperature float64
	maxTokens   int64
	timeout     time.Duration
}

func NewLLMExtractor(client *openaisdk.Client, cfg openrouterx.Config) (*LLMExtractor, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: openrouter client is nil", contractx.ErrValidation)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("%w: extraction model is required", contractx.ErrValidation)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	maxTokens := int64(2000)
	if cfg.MaxCompletionToken != nil && *cfg.MaxCompletionToken > 0 {
		maxTokens = int64(*cfg.MaxCompletionToken)
	}

	return &LLMExtractor{
		client:      client,
		model:       model,
		temperature: float64(cfg.Temperature),
		maxTokens:   maxTokens,
		timeout:     timeout,
	}, nil
}

func (e *LLMExtractor) Infer(
	ctx context.Context,
	systemPrompt string,
	history []statex.TranscriptEntry,
	collected map[string]string,
) (string, error) {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openaisdk.SystemMessage(systemPrompt))

	for _, entry := range history {
		switch entry.Speaker {
		case statex.SpeakerAgent:
			messages = append(messages, openaisdk.AssistantMessage(entry.Utterance))
		default:
			messages = append(messages, openaisdk.UserMessage(entry.Utterance))
		}
	}

	if len(collected) > 0 {
		data, err := json.Marshal(collected)
		if err != nil {
			return "", fmt.Errorf("%w: marshal collected data: %v", contractx.ErrValidation, err)
		}
		messages = append(messages, openaisdk.UserMessage("Current collected data: "+string(data)))
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:               openaisdk.ChatModel(e.model),
		Messages:            messages,
		Temperature:         openaisdk.Float(e.temperature),
		MaxCompletionTokens: openaisdk.Int(e.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrExtractorUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion has no choices", contractx.ErrExtractorUnavailable)
	}

	return resp.Choices[0].Message.Content, nil
}
