package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"

	catalogx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/catalog"
	contractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/contract"
	dialoguex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/dialogue"
	nodex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/state"
)

var (
	ErrInvalidCall  = nodex.ErrInvalidCall
	ErrInvalidAgent = nodex.ErrInvalidAgent
)

// Orchestrator binds gateway events to the dialogue state machine. Each
// event is handled as an independent, stateless request: the session store
// is the only shared mutable resource.
type Orchestrator struct {
	store    statex.Store
	catalog  *catalogx.Catalog
	machine  *dialoguex.Machine
	recorder contractx.Recorder
	renderer contractx.Renderer
	retry    contractx.RetryQueue

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(
	store statex.Store,
	cat *catalogx.Catalog,
	machine *dialoguex.Machine,
	recorder contractx.Recorder,
	renderer contractx.Renderer,
	retry contractx.RetryQueue,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if cat == nil {
		return nil, errors.New("agent catalog is required")
	}
	if machine == nil {
		return nil, errors.New("dialogue machine is required")
	}

	o := &Orchestrator{
		store:    store,
		catalog:  cat,
		machine:  machine,
		recorder: recorder,
		renderer: renderer,
		retry:    retry,
		now:      time.Now,
	}

	graphRunner, err := o.compileHandleEventGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleCallStart emits the opening prompt for a new call: the language
// menu when the agent supports several languages, the welcome message
// otherwise.
func (o *Orchestrator) HandleCallStart(ctx context.Context, callID, agentID string) (contractx.VoicePrompt, error) {
	return o.invoke(ctx, nodex.GraphInput{
		CallID:  callID,
		AgentID: agentID,
		Start:   true,
	})
}

// HandleEvent consumes one transcript event and returns the outward prompt.
// An empty transcript yields a re-prompt without advancing the stage.
func (o *Orchestrator) HandleEvent(ctx context.Context, callID, agentID, transcript string) (contractx.VoicePrompt, error) {
	return o.invoke(ctx, nodex.GraphInput{
		CallID:     callID,
		AgentID:    agentID,
		Transcript: transcript,
	})
}

func (o *Orchestrator) invoke(ctx context.Context, in nodex.GraphInput) (contractx.VoicePrompt, error) {
	out, err := o.graphRunner.Invoke(ctx, in)
	if err != nil {
		return contractx.VoicePrompt{}, err
	}
	return out.Prompt, nil
}
