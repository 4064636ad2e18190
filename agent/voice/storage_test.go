package voice

import (
	"errors"
	"os"
	"testing"
	"time"
)

func TestAudioStoreSaveAndServe(t *testing.T) {
	t.Parallel()

	store, err := NewAudioStore(t.TempDir(), "http://localhost:8000/")
	if err != nil {
		t.Fatalf("NewAudioStore: %v", err)
	}

	url, err := store.Save("clip.mp3", []byte("mp3-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if url != "http://localhost:8000/audio/clip.mp3" {
		t.Fatalf("url = %q", url)
	}
	if !store.Exists("clip.mp3") {
		t.Fatal("saved file must exist")
	}
	if store.Exists("other.mp3") {
		t.Fatal("unsaved file must not exist")
	}
}

func TestAudioStoreRejectsTraversal(t *testing.T) {
	t.Parallel()

	store, err := NewAudioStore(t.TempDir(), "http://localhost:8000")
	if err != nil {
		t.Fatalf("NewAudioStore: %v", err)
	}

	for _, name := range []string{"", "..", "../clip.mp3", "a/b.mp3", ".hidden"} {
		if _, err := store.Path(name); !errors.Is(err, ErrInvalidAudioName) {
			t.Errorf("Path(%q) err = %v, want ErrInvalidAudioName", name, err)
		}
	}
}

func TestAudioStoreCleanup(t *testing.T) {
	t.Parallel()

	store, err := NewAudioStore(t.TempDir(), "http://localhost:8000")
	if err != nil {
		t.Fatalf("NewAudioStore: %v", err)
	}

	if _, err := store.Save("old.mp3", []byte("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := store.Save("fresh.mp3", []byte("y")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	oldPath, _ := store.Path("old.mp3")
	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldPath, stale, stale); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	store.CleanupOlderThan(24 * time.Hour)

	if store.Exists("old.mp3") {
		t.Fatal("stale file must be removed")
	}
	if !store.Exists("fresh.mp3") {
		t.Fatal("fresh file must survive cleanup")
	}
}

func TestProfileFor(t *testing.T) {
	t.Parallel()

	if p := ProfileFor("Tamil"); p.TwilioCode != "ta-IN" {
		t.Fatalf("Tamil code = %q, want ta-IN", p.TwilioCode)
	}
	if p := ProfileFor("  malayalam "); p.TwilioVoice != "Polly.Aditi-Neural" {
		t.Fatalf("Malayalam voice = %q", p.TwilioVoice)
	}
	if p := ProfileFor("Klingon"); p.TwilioCode != "en-US" || p.TwilioVoice != "Polly.Joanna-Neural" {
		t.Fatalf("fallback profile = %+v", p)
	}
	if p := ProfileFor(""); p.TwilioCode != "en-US" {
		t.Fatalf("empty language profile = %+v", p)
	}
}
