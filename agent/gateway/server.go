package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	catalogx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/catalog"
	orchestratorx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/orchestrator"
	statex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/state"
	voicex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/voice"
	twiliox "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/pkg/twilio"
)

type Config struct {
	Host               string        `split_words:"true" default:"0.0.0.0"`
	Port               int           `split_words:"true" default:"8000"`
	WebhookBaseURL     string        `split_words:"true" required:"true"`
	DefaultAgent       string        `split_words:"true" default:"LOGISTICS"`
	DefaultPhoneNumber string        `split_words:"true"`
	ShutdownTimeout    time.Duration `split_words:"true" default:"10s"`
	AudioMaxAge        time.Duration `split_words:"true" default:"24h"`
}

// Server is the telephony-facing HTTP surface: webhook endpoints for the
// provider, operator endpoints for starting calls and inspecting sessions.
type Server struct {
	cfg     Config
	orch    *orchestratorx.Orchestrator
	catalog *catalogx.Catalog
	store   statex.Store
	audio   *voicex.AudioStore
	dialer  *twiliox.Client

	httpServer *http.Server
}

// NewServer wires the HTTP surface. dialer may be nil: the webhook endpoints
// still work, only outbound call placement is disabled.
func NewServer(
	cfg Config,
	orch *orchestratorx.Orchestrator,
	cat *catalogx.Catalog,
	store statex.Store,
	audio *voicex.AudioStore,
	dialer *twiliox.Client,
) (*Server, error) {
	if orch == nil {
		return nil, errors.New("orchestrator is required")
	}
	if cat == nil {
		return nil, errors.New("agent catalog is required")
	}
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if strings.TrimSpace(cfg.WebhookBaseURL) == "" {
		return nil, errors.New("webhook base url is required")
	}
	cfg.WebhookBaseURL = strings.TrimRight(strings.TrimSpace(cfg.WebhookBaseURL), "/")

	s := &Server{
		cfg:     cfg,
		orch:    orch,
		catalog: cat,
		store:   store,
		audio:   audio,
		dialer:  dialer,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /start-call", s.handleStartCall)
	mux.HandleFunc("POST /voice", s.handleVoice)
	mux.HandleFunc("POST /process-response", s.handleProcessResponse)
	mux.HandleFunc("GET /call-status/{sid}", s.handleCallStatus)
	mux.HandleFunc("GET /audio/{file}", s.handleAudio)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	if s.audio != nil && s.cfg.AudioMaxAge > 0 {
		go s.cleanupLoop(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.httpServer.Addr).Msg("gateway listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.audio.CleanupOlderThan(s.cfg.AudioMaxAge)
		}
	}
}
