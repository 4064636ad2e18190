package voice

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	elevenlabsx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/pkg/elevenlabs"
)

func newFakeTTS(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("xi-api-key") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(r.URL.Path, "/text-to-speech/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "eleven_multilingual_v2") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
}

func TestRendererCachesByContent(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	ts := newFakeTTS(t, &hits)
	defer ts.Close()

	client, err := elevenlabsx.NewClient(elevenlabsx.Config{
		BaseURL: ts.URL,
		APIKey:  "test-key",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	store, err := NewAudioStore(t.TempDir(), "http://localhost:8000")
	if err != nil {
		t.Fatalf("NewAudioStore: %v", err)
	}
	renderer, err := NewElevenLabsRenderer(client, store, "voice-1")
	if err != nil {
		t.Fatalf("NewElevenLabsRenderer: %v", err)
	}

	ctx := context.Background()
	first, err := renderer.Render(ctx, "Hello there", "English")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasPrefix(first, "http://localhost:8000/audio/elevenlabs_") {
		t.Fatalf("url = %q", first)
	}
	if !strings.HasSuffix(first, "_english.mp3") {
		t.Fatalf("url = %q, want language suffix", first)
	}

	second, err := renderer.Render(ctx, "Hello there", "English")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if second != first {
		t.Fatalf("second url = %q, want cached %q", second, first)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("tts hits = %d, want 1: identical text must reuse the file", got)
	}

	other, err := renderer.Render(ctx, "Hello there", "Tamil")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if other == first {
		t.Fatal("a different language must get its own file")
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("tts hits = %d, want 2", got)
	}
}

func TestRendererSurfacesUpstreamFailure(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client, err := elevenlabsx.NewClient(elevenlabsx.Config{BaseURL: ts.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	store, err := NewAudioStore(t.TempDir(), "http://localhost:8000")
	if err != nil {
		t.Fatalf("NewAudioStore: %v", err)
	}
	renderer, err := NewElevenLabsRenderer(client, store, "voice-1")
	if err != nil {
		t.Fatalf("NewElevenLabsRenderer: %v", err)
	}

	if _, err := renderer.Render(context.Background(), "Hello", "English"); err == nil {
		t.Fatal("upstream failure must surface as an error")
	}
}
