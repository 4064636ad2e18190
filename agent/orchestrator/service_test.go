package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	catalogx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/catalog"
	contractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/contract"
	dialoguex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/dialogue"
	statex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/state"
)

type fakeStore struct {
	sessions map[string]*statex.CallSession
	saveErr  error
	saved    []*statex.CallSession
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]*statex.CallSession)}
}

func (f *fakeStore) Load(ctx context.Context, callID string) (*statex.CallSession, error) {
	sess, ok := f.sessions[callID]
	if !ok {
		return nil, statex.ErrSessionNotFound
	}
	return cloneSession(sess), nil
}

func (f *fakeStore) Save(ctx context.Context, sess *statex.CallSession) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	clone := cloneSession(sess)
	f.sessions[sess.CallID] = clone
	f.saved = append(f.saved, clone)
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, callID string) error {
	delete(f.sessions, callID)
	return nil
}

func cloneSession(sess *statex.CallSession) *statex.CallSession {
	payload, _ := json.Marshal(sess)
	var clone statex.CallSession
	_ = json.Unmarshal(payload, &clone)
	clone.EnsureFieldsMap()
	return &clone
}

type fakeExtractor struct {
	raw string
	err error
}

func (f *fakeExtractor) Infer(ctx context.Context, systemPrompt string, history []statex.TranscriptEntry, collected map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.raw, nil
}

type recordedFinal struct {
	callID  string
	agentID string
	fields  map[string]string
}

type fakeRecorder struct {
	err     error
	records []recordedFinal
}

func (f *fakeRecorder) RecordFinal(ctx context.Context, callID, agentID string, fields map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, recordedFinal{callID: callID, agentID: agentID, fields: fields})
	return nil
}

type fakeRenderer struct {
	url string
	err error
}

func (f *fakeRenderer) Render(ctx context.Context, text, language string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type fakeRetry struct {
	err      error
	payloads [][]byte
}

func (f *fakeRetry) PublishSessionRetry(ctx context.Context, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

func testMessageSet(welcome string) catalogx.MessageSet {
	return catalogx.MessageSet{
		Welcome:         welcome,
		Confirmation:    "You quoted {charge} and you are available at {availability_time}. Is this correct?",
		Retry:           "Let us try again. Please give me the details.",
		Clarify:         "Please say yes or no.",
		ClosingPositive: "Thank you, goodbye.",
		ClosingNegative: "No problem, goodbye.",
	}
}

func testCatalog(t *testing.T) *catalogx.Catalog {
	t.Helper()

	logistics := &catalogx.AgentDefinition{
		ID:             "LOGISTICS",
		SystemPrompt:   "You are a logistics assistant.",
		RequiredFields: []string{"charge", "availability_time"},
		Languages:      []string{"English"},
		Messages: map[string]catalogx.MessageSet{
			"English": testMessageSet("Hello, this is the logistics desk."),
		},
	}
	multi := &catalogx.AgentDefinition{
		ID:             "MULTI",
		SystemPrompt:   "You are a multilingual assistant.",
		RequiredFields: []string{"charge", "availability_time"},
		Languages:      []string{"English", "Tamil"},
		Messages: map[string]catalogx.MessageSet{
			"English": testMessageSet("Hello there."),
			"Tamil":   testMessageSet("Tamil hello."),
		},
	}

	cat, err := catalogx.New(logistics, multi)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return cat
}

func newTestOrchestrator(
	t *testing.T,
	store statex.Store,
	extractor contractx.Extractor,
	recorder contractx.Recorder,
	renderer contractx.Renderer,
	retry contractx.RetryQueue,
) *Orchestrator {
	t.Helper()

	machine, err := dialoguex.NewMachine(extractor)
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	orch, err := New(store, testCatalog(t), machine, recorder, renderer, retry)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return orch
}

func TestHandleCallStartMultiLanguageAsksForLanguage(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	orch := newTestOrchestrator(t, store, &fakeExtractor{}, nil, nil, nil)

	prompt, err := orch.HandleCallStart(context.Background(), "CA1", "MULTI")
	if err != nil {
		t.Fatalf("HandleCallStart: %v", err)
	}
	if prompt.Message != "Please select your language: English, Tamil" {
		t.Fatalf("message = %q", prompt.Message)
	}
	if !prompt.ExpectSpeech {
		t.Fatal("language menu must gather speech")
	}

	saved, ok := store.sessions["CA1"]
	if !ok {
		t.Fatal("session was not persisted")
	}
	if saved.Stage != statex.StageLanguageSelection {
		t.Fatalf("stage = %q, want language_selection", saved.Stage)
	}
}

func TestHandleCallStartSingleLanguageWelcomes(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	orch := newTestOrchestrator(t, store, &fakeExtractor{}, nil, nil, nil)

	prompt, err := orch.HandleCallStart(context.Background(), "CA1", "LOGISTICS")
	if err != nil {
		t.Fatalf("HandleCallStart: %v", err)
	}
	if prompt.Message != "Hello, this is the logistics desk." {
		t.Fatalf("message = %q, want welcome", prompt.Message)
	}

	saved := store.sessions["CA1"]
	if saved.Stage != statex.StageWelcome {
		t.Fatalf("stage = %q, want welcome", saved.Stage)
	}
	if saved.Language != "English" {
		t.Fatalf("language = %q, want English", saved.Language)
	}
	if len(saved.History) != 1 || saved.History[0].Speaker != statex.SpeakerAgent {
		t.Fatalf("history = %+v, want one agent entry", saved.History)
	}
}

func TestHandleEventConfirmationYesRecordsFinal(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	sess := statex.NewCallSession("CA1", "LOGISTICS", statex.StageConfirming, "English", time.Now())
	sess.MergeFields(map[string]string{"charge": "500 rupees", "availability_time": "9 am"})
	store.sessions["CA1"] = sess

	recorder := &fakeRecorder{}
	orch := newTestOrchestrator(t, store, &fakeExtractor{}, recorder, nil, nil)

	prompt, err := orch.HandleEvent(context.Background(), "CA1", "LOGISTICS", "yes that is right")
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if prompt.ExpectSpeech {
		t.Fatal("completed call must not gather more speech")
	}
	if prompt.Message != "Thank you, goodbye." {
		t.Fatalf("message = %q, want positive closing", prompt.Message)
	}

	if len(recorder.records) != 1 {
		t.Fatalf("records = %d, want 1", len(recorder.records))
	}
	rec := recorder.records[0]
	if rec.callID != "CA1" || rec.agentID != "LOGISTICS" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.fields["charge"] != "500 rupees" {
		t.Fatalf("record fields = %v", rec.fields)
	}

	if store.sessions["CA1"].Stage != statex.StageCompleted {
		t.Fatalf("stage = %q, want completed", store.sessions["CA1"].Stage)
	}
}

func TestHandleEventCollectingUsesExtractor(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	sess := statex.NewCallSession("CA1", "LOGISTICS", statex.StageCollecting, "English", time.Now())
	store.sessions["CA1"] = sess

	extractor := &fakeExtractor{
		raw: `{"response_type": "NEED_MORE_INFO", "charge": "500 rupees", "feedback": "When are you available?"}`,
	}
	orch := newTestOrchestrator(t, store, extractor, nil, nil, nil)

	prompt, err := orch.HandleEvent(context.Background(), "CA1", "LOGISTICS", "I charge 500 rupees")
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if prompt.Message != "When are you available?" {
		t.Fatalf("message = %q, want extractor feedback", prompt.Message)
	}
	if store.sessions["CA1"].Fields["charge"] != "500 rupees" {
		t.Fatalf("fields = %v, want charge merged", store.sessions["CA1"].Fields)
	}
}

func TestHandleEventSaveFailurePublishesRetryAndStillReplies(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.saveErr = errors.New("redis down")
	sess := statex.NewCallSession("CA1", "LOGISTICS", statex.StageConfirming, "English", time.Now())
	store.sessions["CA1"] = sess

	retry := &fakeRetry{}
	orch := newTestOrchestrator(t, store, &fakeExtractor{}, nil, nil, retry)

	prompt, err := orch.HandleEvent(context.Background(), "CA1", "LOGISTICS", "yes")
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if prompt.Message != "Thank you, goodbye." {
		t.Fatalf("message = %q, save failure must not eat the reply", prompt.Message)
	}

	if len(retry.payloads) != 1 {
		t.Fatalf("retry payloads = %d, want 1", len(retry.payloads))
	}
	var replay statex.CallSession
	if err := json.Unmarshal(retry.payloads[0], &replay); err != nil {
		t.Fatalf("retry payload is not a session: %v", err)
	}
	if replay.CallID != "CA1" || replay.Stage != statex.StageCompleted {
		t.Fatalf("replay session = %+v", replay)
	}
}

func TestHandleEventRecorderFailureDoesNotFailTurn(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	sess := statex.NewCallSession("CA1", "LOGISTICS", statex.StageConfirming, "English", time.Now())
	store.sessions["CA1"] = sess

	recorder := &fakeRecorder{err: errors.New("postgres down")}
	orch := newTestOrchestrator(t, store, &fakeExtractor{}, recorder, nil, nil)

	prompt, err := orch.HandleEvent(context.Background(), "CA1", "LOGISTICS", "yes")
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if prompt.Message != "Thank you, goodbye." {
		t.Fatalf("message = %q", prompt.Message)
	}
}

func TestHandleEventRendererSetsAudioURL(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	renderer := &fakeRenderer{url: "https://example.com/audio/abc.mp3"}
	orch := newTestOrchestrator(t, store, &fakeExtractor{}, nil, renderer, nil)

	prompt, err := orch.HandleCallStart(context.Background(), "CA1", "LOGISTICS")
	if err != nil {
		t.Fatalf("HandleCallStart: %v", err)
	}
	if prompt.AudioURL != renderer.url {
		t.Fatalf("audio url = %q, want %q", prompt.AudioURL, renderer.url)
	}
}

func TestHandleEventRendererFailureFallsBack(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	renderer := &fakeRenderer{err: errors.New("tts down")}
	orch := newTestOrchestrator(t, store, &fakeExtractor{}, nil, renderer, nil)

	prompt, err := orch.HandleCallStart(context.Background(), "CA1", "LOGISTICS")
	if err != nil {
		t.Fatalf("HandleCallStart: %v", err)
	}
	if prompt.AudioURL != "" {
		t.Fatalf("audio url = %q, want empty for built-in reader fallback", prompt.AudioURL)
	}
	if prompt.Message == "" {
		t.Fatal("message must survive renderer failure")
	}
}

func TestHandleEventValidation(t *testing.T) {
	t.Parallel()

	orch := newTestOrchestrator(t, newFakeStore(), &fakeExtractor{}, nil, nil, nil)
	ctx := context.Background()

	if _, err := orch.HandleEvent(ctx, "  ", "LOGISTICS", "hello"); !errors.Is(err, ErrInvalidCall) {
		t.Fatalf("err = %v, want ErrInvalidCall", err)
	}
	if _, err := orch.HandleEvent(ctx, "CA1", "", "hello"); !errors.Is(err, ErrInvalidAgent) {
		t.Fatalf("err = %v, want ErrInvalidAgent", err)
	}
	if _, err := orch.HandleEvent(ctx, "CA1", "BANKING", "hello"); !errors.Is(err, contractx.ErrUnknownAgent) {
		t.Fatalf("err = %v, want ErrUnknownAgent", err)
	}
}

func TestDuplicateStartDoesNotGrowHistory(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	orch := newTestOrchestrator(t, store, &fakeExtractor{}, nil, nil, nil)
	ctx := context.Background()

	if _, err := orch.HandleCallStart(ctx, "CA1", "LOGISTICS"); err != nil {
		t.Fatalf("first start: %v", err)
	}
	first := len(store.sessions["CA1"].History)

	prompt, err := orch.HandleCallStart(ctx, "CA1", "LOGISTICS")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if prompt.Message != "Hello, this is the logistics desk." {
		t.Fatalf("message = %q, want welcome re-emitted", prompt.Message)
	}
	if len(store.sessions["CA1"].History) != first {
		t.Fatal("duplicate start must not grow history")
	}
}

func TestTerminalSessionEventKeepsClosing(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	sess := statex.NewCallSession("CA1", "LOGISTICS", statex.StageCompleted, "English", time.Now())
	store.sessions["CA1"] = sess

	orch := newTestOrchestrator(t, store, &fakeExtractor{}, nil, nil, nil)

	prompt, err := orch.HandleEvent(context.Background(), "CA1", "LOGISTICS", "hello again")
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if !strings.Contains(prompt.Message, "Thank you") {
		t.Fatalf("message = %q, want positive closing", prompt.Message)
	}
	if prompt.ExpectSpeech {
		t.Fatal("terminal session must not gather speech")
	}
}
