package voice

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrInvalidAudioName rejects names that could escape the audio directory.
var ErrInvalidAudioName = errors.New("invalid audio file name")

// AudioStore keeps rendered prompt audio on local disk and hands out public
// URLs the telephony provider can fetch.
type AudioStore struct {
	dir     string
	baseURL string
}

func NewAudioStore(dir, baseURL string) (*AudioStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "temp_audio"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio directory: %w", err)
	}

	return &AudioStore{
		dir:     dir,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}, nil
}

func (s *AudioStore) Save(name string, content []byte) (string, error) {
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	return s.URL(name), nil
}

func (s *AudioStore) Exists(name string) bool {
	path, err := s.Path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (s *AudioStore) URL(name string) string {
	return s.baseURL + "/audio/" + name
}

// Path resolves a file name inside the audio directory, rejecting names
// that carry path separators or traversal segments.
func (s *AudioStore) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidAudioName, name)
	}
	return filepath.Join(s.dir, name), nil
}

// CleanupOlderThan removes audio files whose modification time is older
// than maxAge. Errors on individual files are logged and skipped.
func (s *AudioStore) CleanupOlderThan(maxAge time.Duration) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		log.Error().Err(err).Str("dir", s.dir).Msg("cannot list audio directory for cleanup")
		return
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("cannot remove stale audio file")
			continue
		}
		log.Debug().Str("file", entry.Name()).Msg("removed stale audio file")
	}
}
