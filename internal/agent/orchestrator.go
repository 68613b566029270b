// Package agent implements the tool-orchestration loop.
//
// The orchestrator owns an explicit state machine over one session: it sends
// the conversation plus the tool catalogue to a chat backend, interprets the
// response as either a final answer or a batch of tool-call requests,
// dispatches the requested tools, appends their results, and goes back to
// the model. The model's output is data consumed by the state machine, never
// a control-flow hook.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"salesagent/internal/session"
	"salesagent/internal/tool"
)

// State names the orchestrator's position within one user turn.
type State string

const (
	// StateAwaitingModel is the initial state: the conversation has been
	// (or is about to be) sent to the chat backend.
	StateAwaitingModel State = "awaiting_model"

	// StateExecutingTools means the model requested tool calls and they
	// are being dispatched.
	StateExecutingTools State = "executing_tools"

	// StateDone is terminal: the model produced a final answer.
	StateDone State = "done"

	// StateAborted is terminal: the round limit was exceeded or the chat
	// backend failed.
	StateAborted State = "aborted"
)

// DefaultMaxRounds bounds the number of model calls within one user turn.
const DefaultMaxRounds = 8

// abortedAnswer is returned to the caller when the round limit is hit.
// Best effort: the conversation so far is kept, so the user can rephrase.
const abortedAnswer = "I wasn't able to finish answering within the allowed number of tool rounds. Please try a simpler or more specific question."

// Completion is the chat backend's response to one model call: either a
// final answer (no tool calls) or a batch of requested tool invocations.
type Completion struct {
	Content   string
	ToolCalls []session.ToolCall
}

// CompletionRequest carries everything the chat backend needs for one call.
type CompletionRequest struct {
	System   string
	Messages []session.Message
	Tools    []tool.Spec

	// OnDelta, when non-nil, receives incremental text as the backend
	// streams the response. Completion.Content still carries the full text.
	OnDelta func(text string)
}

// ChatBackend is the narrow interface to the chat-completion collaborator.
// Transport, authentication and retry policy are its concern, not ours.
type ChatBackend interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// Turn is the outcome of one user turn.
type Turn struct {
	// Answer is the final assistant text, or a best-effort abort message.
	Answer string

	// State is the terminal state reached: StateDone or StateAborted.
	State State

	// Rounds is the number of model calls made.
	Rounds int

	// ToolResults lists every tool invocation of this turn, in the order
	// the model requested them across rounds.
	ToolResults []tool.Result
}

// Config collects the orchestrator's collaborators and knobs.
type Config struct {
	Backend   ChatBackend
	Registry  *tool.Registry
	Sessions  *session.Store
	MaxRounds int
	System    string
	Logger    *slog.Logger
}

func (c *Config) validate() error {
	if c.Backend == nil {
		return ErrNilBackend
	}
	if c.Registry == nil {
		return ErrNilRegistry
	}
	if c.Sessions == nil {
		return ErrNilSessions
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = DefaultMaxRounds
	}
	if c.System == "" {
		c.System = systemPrompt
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// Orchestrator runs the agent loop over sessions from a shared store.
// Safe for concurrent use; each session serializes its own turns.
type Orchestrator struct {
	cfg Config

	mu    sync.Mutex
	turns map[string]*sync.Mutex
}

// New builds an orchestrator, applying defaults for unset knobs.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:   cfg,
		turns: make(map[string]*sync.Mutex),
	}, nil
}

// turnLock returns the mutex serializing turns for one session key.
// Locks are never dropped from the map; session keys are bounded by
// the session store's lifetime, which shares ours.
func (o *Orchestrator) turnLock(sessionKey string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.turns[sessionKey]
	if !ok {
		l = &sync.Mutex{}
		o.turns[sessionKey] = l
	}
	return l
}

// Reset discards the conversation for the given session key.
func (o *Orchestrator) Reset(sessionKey string) {
	o.cfg.Sessions.Reset(sessionKey)
}

// Ask runs one user turn to completion without streaming.
func (o *Orchestrator) Ask(ctx context.Context, sessionKey, userText string) (*Turn, error) {
	return o.Run(ctx, sessionKey, userText, nil)
}

// Run executes the agent loop for one user turn.
//
// The loop alternates between asking the model and executing requested
// tools until the model answers without tool calls, the round limit is
// exceeded, or the backend fails. Tool failures are recoverable: they
// become error text in the conversation and the loop continues. Backend
// failures abort the turn and are returned wrapped in ErrBackend.
//
// onDelta, when non-nil, receives streamed text fragments from each model
// call. Tool-call rounds typically produce no text.
func (o *Orchestrator) Run(ctx context.Context, sessionKey, userText string, onDelta func(string)) (*Turn, error) {
	// A concurrent turn on the same key would land its user message
	// between another turn's tool-call request and the tool results,
	// corrupting the transcript sent to the model.
	lock := o.turnLock(sessionKey)
	lock.Lock()
	defer lock.Unlock()

	sess := o.cfg.Sessions.Get(sessionKey)
	sess.Append(session.UserMessage(userText))

	turn := &Turn{State: StateAwaitingModel}
	logger := o.cfg.Logger.With("session", sessionKey)

	for round := 1; ; round++ {
		if round > o.cfg.MaxRounds {
			logger.Warn("round limit exceeded", "max_rounds", o.cfg.MaxRounds)
			turn.State = StateAborted
			turn.Answer = abortedAnswer
			sess.Append(session.AssistantMessage(abortedAnswer))
			return turn, nil
		}
		turn.Rounds = round
		turn.State = StateAwaitingModel

		completion, err := o.cfg.Backend.Complete(ctx, CompletionRequest{
			System:   o.cfg.System,
			Messages: sess.Messages(),
			Tools:    o.cfg.Registry.Specs(),
			OnDelta:  onDelta,
		})
		if err != nil {
			logger.Error("chat backend failed", "round", round, "error", err)
			turn.State = StateAborted
			return turn, fmt.Errorf("%w: %v", ErrBackend, err)
		}

		if len(completion.ToolCalls) == 0 {
			sess.Append(session.AssistantMessage(completion.Content))
			turn.State = StateDone
			turn.Answer = completion.Content
			logger.Info("turn complete", "rounds", round, "tool_calls", len(turn.ToolResults))
			return turn, nil
		}

		turn.State = StateExecutingTools
		sess.Append(session.AssistantToolCalls(completion.Content, completion.ToolCalls))

		results := o.dispatchAll(ctx, completion.ToolCalls)
		for i, call := range completion.ToolCalls {
			sess.Append(session.ToolResult(call.ID, call.Name, results[i].Text()))
			turn.ToolResults = append(turn.ToolResults, results[i])
		}
	}
}

// dispatchAll executes the requested tool calls concurrently and returns
// their results indexed by request position, so the caller can append them
// to the session in the order the model asked for them.
func (o *Orchestrator) dispatchAll(ctx context.Context, calls []session.ToolCall) []tool.Result {
	results := make([]tool.Result, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := o.cfg.Registry.Dispatch(ctx, call.Name, []byte(call.Arguments))
			if err != nil {
				// Unknown tool or schema violation. Fed back as error
				// text so the model can correct itself.
				res.Err = err.Error()
			}
			results[i] = res
			o.cfg.Logger.Debug("tool dispatched",
				"name", call.Name, "failed", res.Failed(), "latency", res.Latency)
		}()
	}
	wg.Wait()
	return results
}
