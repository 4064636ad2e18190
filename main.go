package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	catalogx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/catalog"
	contractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/contract"
	dialoguex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/dialogue"
	extractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/extract"
	gatewayx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/gateway"
	orchestratorx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/orchestrator"
	recordx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/record"
	retryx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/retry"
	statex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/state"
	voicex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/voice"
	configx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/pkg/config"
	elevenlabsx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/pkg/elevenlabs"
	_ "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/pkg/openrouter"
	qstashx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/pkg/qstash"
	twiliox "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/pkg/twilio"
)

type AppConfig struct {
	AudioDir         string `envconfig:"AUDIO_DIR" split_words:"true" default:"temp_audio"`
	RetryDestination string `envconfig:"RETRY_DESTINATION" split_words:"true"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")
	gatewayCfg := configx.MustNew[gatewayx.Config]("GATEWAY")

	catalog, err := catalogx.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load agent catalog")
	}
	log.Info().Strs("agents", catalog.AgentIDs()).Msg("agent catalog loaded")

	store := buildSessionStore()
	recorder := buildRecorder()
	retryQueue := buildRetryQueue(appCfg.RetryDestination)

	openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
	openRouterClient := openrouterx.NewClient(*openRouterCfg)
	if openRouterClient == nil {
		log.Fatal().Msg("cannot initialize openrouter client")
	}

	extractor, err := extractx.NewLLMExtractor(openRouterClient, *openRouterCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot initialize extractor")
	}

	audioStore, err := voicex.NewAudioStore(appCfg.AudioDir, gatewayCfg.WebhookBaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot initialize audio storage")
	}
	renderer := buildRenderer(audioStore)

	machine, err := dialoguex.NewMachine(extractor)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot initialize dialogue machine")
	}

	orch, err := orchestratorx.New(store, catalog, machine, recorder, renderer, retryQueue)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot initialize orchestrator")
	}

	dialer := buildDialer()

	server, err := gatewayx.NewServer(*gatewayCfg, orch, catalog, store, audioStore, dialer)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot initialize gateway server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("gateway server failed")
	}
	log.Info().Msg("gateway stopped")
}

func buildSessionStore() statex.Store {
	cfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	if err != nil {
		log.Warn().Err(err).Msg("redis not configured, using in-memory session store")
		return statex.NewMemoryStore()
	}
	store, err := statex.NewUpstashRedisStore(*cfg)
	if err != nil {
		log.Warn().Err(err).Msg("cannot initialize redis store, using in-memory session store")
		return statex.NewMemoryStore()
	}
	log.Info().Msg("using upstash redis session store")
	return store
}

func buildRecorder() contractx.Recorder {
	cfg, err := configx.New[recordx.Config]("POSTGRES")
	if err != nil {
		log.Warn().Err(err).Msg("postgres not configured, using in-memory recorder")
		return recordx.NewMemoryRecorder()
	}
	recorder, err := recordx.NewPostgresRecorder(*cfg)
	if err != nil {
		log.Warn().Err(err).Msg("cannot initialize postgres recorder, using in-memory recorder")
		return recordx.NewMemoryRecorder()
	}
	if err := recorder.EnsureSchema(context.Background()); err != nil {
		log.Warn().Err(err).Msg("cannot ensure postgres schema, using in-memory recorder")
		return recordx.NewMemoryRecorder()
	}
	log.Info().Msg("using postgres recorder")
	return recorder
}

func buildRetryQueue(destination string) contractx.RetryQueue {
	if strings.TrimSpace(destination) == "" {
		log.Info().Msg("retry destination not set, session retry queue disabled")
		return nil
	}
	cfg, err := configx.New[qstashx.Config]("QSTASH")
	if err != nil {
		log.Warn().Err(err).Msg("qstash not configured, session retry queue disabled")
		return nil
	}
	client, err := qstashx.NewClient(*cfg)
	if err != nil {
		log.Warn().Err(err).Msg("cannot initialize qstash client, session retry queue disabled")
		return nil
	}
	queue, err := retryx.NewQStashQueue(client, destination)
	if err != nil {
		log.Warn().Err(err).Msg("cannot initialize retry queue, session retry queue disabled")
		return nil
	}
	log.Info().Msg("session retry queue enabled")
	return queue
}

func buildRenderer(store *voicex.AudioStore) contractx.Renderer {
	cfg, err := configx.New[elevenlabsx.Config]("ELEVENLABS")
	if err != nil || !cfg.Configured() {
		log.Info().Msg("elevenlabs not configured, using telephony text-to-speech only")
		return nil
	}
	client, err := elevenlabsx.NewClient(*cfg)
	if err != nil {
		log.Warn().Err(err).Msg("cannot initialize elevenlabs client, using telephony text-to-speech only")
		return nil
	}
	renderer, err := voicex.NewElevenLabsRenderer(client, store, cfg.VoiceID)
	if err != nil {
		log.Warn().Err(err).Msg("cannot initialize voice renderer, using telephony text-to-speech only")
		return nil
	}
	log.Info().Msg("elevenlabs voice rendering enabled")
	return renderer
}

func buildDialer() *twiliox.Client {
	cfg, err := configx.New[twiliox.Config]("TWILIO")
	if err != nil {
		log.Warn().Err(err).Msg("twilio not configured, outbound calling disabled")
		return nil
	}
	client, err := twiliox.NewClient(*cfg)
	if err != nil {
		log.Warn().Err(err).Msg("cannot initialize twilio client, outbound calling disabled")
		return nil
	}
	return client
}
