package voice

import (
	"context"
	"crypto/md5"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/contract"
	elevenlabsx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/pkg/elevenlabs"
)

var _ contractx.Renderer = (*ElevenLabsRenderer)(nil)

// ElevenLabsRenderer turns prompt text into cached MP3 audio. Audio is
// content addressed: the same text in the same language reuses the file
// rendered on a previous turn.
type ElevenLabsRenderer struct {
	client  *elevenlabsx.Client
	store   *AudioStore
	voiceID string
}

func NewElevenLabsRenderer(client *elevenlabsx.Client, store *AudioStore, voiceID string) (*ElevenLabsRenderer, error) {
	if client == nil {
		return nil, fmt.Errorf("elevenlabs client is required")
	}
	if store == nil {
		return nil, fmt.Errorf("audio store is required")
	}
	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		return nil, fmt.Errorf("voice id is required")
	}

	return &ElevenLabsRenderer{
		client:  client,
		store:   store,
		voiceID: voiceID,
	}, nil
}

func (r *ElevenLabsRenderer) Render(ctx context.Context, text, language string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty prompt text", contractx.ErrRendererUnavailable)
	}

	name := audioFileName(text, language)
	if r.store.Exists(name) {
		return r.store.URL(name), nil
	}

	audio, err := r.client.Synthesize(ctx, text, r.voiceID, ProfileFor(language).Settings)
	if err != nil {
		return "", fmt.Errorf("synthesize prompt audio: %w", err)
	}

	url, err := r.store.Save(name, audio)
	if err != nil {
		return "", err
	}
	return url, nil
}

func audioFileName(text, language string) string {
	lang := strings.ToLower(strings.TrimSpace(language))
	if lang == "" {
		lang = "english"
	}
	return fmt.Sprintf("elevenlabs_%x_%s.mp3", md5.Sum([]byte(text)), lang)
}
