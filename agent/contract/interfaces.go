package contract

import (
	"context"

	statex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/state"
)

// Extractor is the external structured-understanding step. It returns the
// model's raw text; parsing and repair belong to the validator.
type Extractor interface {
	Infer(ctx context.Context, systemPrompt string, history []statex.TranscriptEntry, collected map[string]string) (string, error)
}

// Renderer converts text to a playable audio URL for the given language.
// It returns ErrRendererUnavailable when the caller should fall back to the
// gateway's built-in reader.
type Renderer interface {
	Render(ctx context.Context, text string, language string) (string, error)
}

// Recorder persists a finalized collected-fields record after confirmation.
type Recorder interface {
	RecordFinal(ctx context.Context, callID string, agentID string, fields map[string]string) error
}

// RetryQueue receives session payloads whose save failed mid-turn, for
// out-of-band replay.
type RetryQueue interface {
	PublishSessionRetry(ctx context.Context, payload []byte) error
}
