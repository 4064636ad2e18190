package main

import (
	"context"
	"testing"

	catalogx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/catalog"
	dialoguex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/dialogue"
	orchestratorx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/orchestrator"
	recordx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/record"
	statex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/state"
)

type staticExtractor struct {
	raw string
}

func (e *staticExtractor) Infer(context.Context, string, []statex.TranscriptEntry, map[string]string) (string, error) {
	return e.raw, nil
}

func TestWireOrchestratorHandlesCallStart(t *testing.T) {
	t.Parallel()

	catalog, err := catalogx.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	machine, err := dialoguex.NewMachine(&staticExtractor{raw: `{"response_type":"NEED_MORE_INFO","feedback":"go on"}`})
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}

	orch, err := orchestratorx.New(
		statex.NewMemoryStore(),
		catalog,
		machine,
		recordx.NewMemoryRecorder(),
		nil,
		nil,
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	prompt, err := orch.HandleCallStart(context.Background(), "CA-wire-1", "LOGISTICS")
	if err != nil {
		t.Fatalf("HandleCallStart: %v", err)
	}
	if prompt.Message == "" {
		t.Fatal("call start must produce an opening message")
	}
	if !prompt.ExpectSpeech {
		t.Fatal("call start must keep listening")
	}
}

func TestBuildRetryQueueDisabledWithoutDestination(t *testing.T) {
	t.Parallel()

	if q := buildRetryQueue("   "); q != nil {
		t.Fatalf("queue = %v, want nil when no destination is set", q)
	}
}
