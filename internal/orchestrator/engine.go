// Package orchestrator runs one conversational turn: it builds the prompt,
// loops between the model and the tools, and persists the outcome.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harunnryd/foodiebot/internal/concurrency"
	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/conversation"
	fbErrors "github.com/harunnryd/foodiebot/internal/errors"
	"github.com/harunnryd/foodiebot/internal/logger"
	"github.com/harunnryd/foodiebot/internal/model/contract"
	"github.com/harunnryd/foodiebot/internal/orchestrator/command"
	"github.com/harunnryd/foodiebot/internal/sanitizer"
	"github.com/harunnryd/foodiebot/internal/tool"

	"github.com/oklog/ulid/v2"
)

const (
	FallbackText = "Maaf, aku belum bisa menyelesaikan permintaan itu. Coba tanyakan dengan cara lain ya! 🙏"
	ErrorText    = "Maaf, terjadi kesalahan. Coba lagi ya! 😅"
)

// ModelClient is the gateway view the engine needs. It never fails; transport
// problems come back as a degraded apology response.
type ModelClient interface {
	Complete(ctx context.Context, messages []contract.Message, tools []contract.ToolDef) contract.CompletionResponse
}

// ToolExecutor exposes the registry and runs single calls.
type ToolExecutor interface {
	Definitions() []contract.ToolDef
	Execute(ctx context.Context, call contract.ToolCall) tool.Result
}

type State int

const (
	StateBuildingPrompt State = iota
	StateAwaitingModel
	StateToolsPending
	StateExecutingTools
	StateDone
)

func (s State) String() string {
	switch s {
	case StateBuildingPrompt:
		return "BUILDING_PROMPT"
	case StateAwaitingModel:
		return "AWAITING_MODEL"
	case StateToolsPending:
		return "TOOLS_PENDING"
	case StateExecutingTools:
		return "EXECUTING_TOOLS"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

const defaultTurnTimeout = 2 * time.Minute

type Options struct {
	MaxIterations    int
	TurnTimeout      time.Duration
	ParallelTools    bool
	PersistAssistant bool
	DefaultLocation  string
	Model            string
	Now              func() time.Time
}

// OptionsFromConfig reads the orchestrator and conversation sections.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	timeout, err := config.DurationOrDefault(cfg.Orchestrator.TurnTimeout, config.DefaultOrchestratorTurnTimeout)
	if err != nil {
		return Options{}, fmt.Errorf("parse orchestrator turn timeout: %w", err)
	}
	return Options{
		MaxIterations:    cfg.Orchestrator.MaxIterations,
		TurnTimeout:      timeout,
		ParallelTools:    cfg.Orchestrator.ParallelTools,
		PersistAssistant: cfg.Conversation.PersistAssistant,
		DefaultLocation:  cfg.Orchestrator.DefaultLocation,
		Model:            cfg.Models.Default,
	}, nil
}

// Turn is one inbound user message.
type Turn struct {
	UserID      string
	DisplayName string
	Text        string
}

type Engine struct {
	model    ModelClient
	tools    ToolExecutor
	conv     conversation.Store
	commands *command.Handler
	opts     Options
	locks    *concurrency.KeyedMutex
}

func NewEngine(model ModelClient, tools ToolExecutor, conv conversation.Store, opts Options) *Engine {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = config.DefaultOrchestratorMaxIterations
	}
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = defaultTurnTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultLocation == "" {
		opts.DefaultLocation = config.DefaultOrchestratorLocation
	}
	return &Engine{
		model: model,
		tools: tools,
		conv:  conv,
		commands: command.NewHandler(conv, command.Options{
			DefaultLocation: opts.DefaultLocation,
			Model:           opts.Model,
			Started:         opts.Now(),
		}),
		opts:  opts,
		locks: concurrency.NewKeyedMutex(),
	}
}

// Handle is the adapter entry point: commands are answered directly, or
// rewritten into a question, and everything else becomes a model turn.
func (e *Engine) Handle(ctx context.Context, turn Turn) (string, error) {
	if strings.TrimSpace(turn.UserID) == "" {
		return "", fbErrors.InvalidInput("empty user id")
	}
	if !e.commands.CanHandle(turn.Text) {
		return e.Process(ctx, turn)
	}

	res, err := e.commands.Execute(ctx, turn.UserID, turn.Text)
	if err != nil {
		logger.From(ctx).Error("Command failed", "user_id", turn.UserID, "error", err, "category", fbErrors.Category(err))
		return ErrorText, nil
	}
	if res.Forward != "" {
		turn.Text = res.Forward
		return e.Process(ctx, turn)
	}
	return res.Reply, nil
}

// Conversation exposes the store for command handling.
func (e *Engine) Conversation() conversation.Store {
	return e.conv
}

// Process answers one user message. The only error is an empty identity;
// every other failure becomes one of the fixed apology texts.
func (e *Engine) Process(ctx context.Context, turn Turn) (string, error) {
	identity := strings.TrimSpace(turn.UserID)
	if identity == "" {
		return "", fbErrors.InvalidInput("empty user id")
	}

	e.locks.Lock(identity)
	defer e.locks.Unlock(identity)

	turnCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.TurnTimeout)
	defer cancel()

	if logger.GetTraceID(turnCtx) == "" {
		turnCtx = logger.WithTraceID(turnCtx, ulid.Make().String())
	}
	turnCtx = logger.WithUserID(turnCtx, identity)

	return e.run(turnCtx, identity, turn), nil
}

func (e *Engine) run(ctx context.Context, identity string, turn Turn) (reply string) {
	log := logger.From(ctx)
	start := e.opts.Now()
	began := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("Turn panicked", "panic", r)
			reply = ErrorText
		}
	}()

	e.enter(ctx, StateBuildingPrompt)

	history, err := e.conv.History(ctx, identity)
	if err != nil {
		log.Error("Load history failed", "error", err, "category", fbErrors.Category(err))
		return ErrorText
	}
	prefs, err := e.conv.Preferences(ctx, identity)
	if err != nil {
		log.Warn("Load preferences failed", "error", err, "category", fbErrors.Category(err))
		prefs = nil
	}

	userEntry := conversation.Entry{
		Role:      contract.RoleUser,
		Content:   turn.Text,
		Timestamp: start,
	}
	if err := e.conv.Append(ctx, identity, userEntry); err != nil {
		log.Error("Persist user message failed", "error", err, "category", fbErrors.Category(err))
		return ErrorText
	}

	messages := make([]contract.Message, 0, len(history)+2)
	messages = append(messages, contract.Message{
		Role:    contract.RoleSystem,
		Content: buildSystemPrompt(turn.DisplayName, prefs, start),
	})
	messages = append(messages, conversation.Messages(history)...)
	messages = append(messages, contract.Message{
		Role:    contract.RoleUser,
		Content: annotateGreeting(turn.Text, start),
	})

	defs := e.tools.Definitions()
	clean := sanitizer.New(defs)
	callIDs := make(map[string]struct{})

	for iteration := 1; iteration <= e.opts.MaxIterations; iteration++ {
		e.enter(ctx, StateAwaitingModel, "iteration", iteration)

		resp := e.model.Complete(ctx, messages, defs)
		if resp.Degraded {
			log.Warn("Model unavailable, returning apology", "iteration", iteration)
			return resp.Content
		}
		resp = clean.Repair(resp)

		if len(resp.ToolCalls) == 0 {
			e.enter(ctx, StateDone, "iteration", iteration)
			text := clean.Clean(resp.Content)
			if strings.TrimSpace(text) == "" {
				log.Warn("Model returned neither text nor tool calls")
				return ErrorText
			}
			if e.opts.PersistAssistant {
				final := conversation.Entry{
					Role:      contract.RoleAssistant,
					Content:   text,
					Timestamp: e.opts.Now(),
				}
				if err := e.conv.Append(ctx, identity, final); err != nil {
					log.Error("Persist assistant message failed", "error", err, "category", fbErrors.Category(err))
				}
			}
			log.Info("Turn completed", "iterations", iteration, "duration", time.Since(began))
			return text
		}

		calls := assignCallIDs(resp.ToolCalls, callIDs)
		e.enter(ctx, StateToolsPending, "iteration", iteration, "calls", len(calls))
		messages = append(messages, contract.Message{
			Role:      contract.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: contract.CloneToolCalls(calls),
		})

		e.enter(ctx, StateExecutingTools, "iteration", iteration)
		results := e.executeBatch(ctx, calls, identity)
		for i, res := range results {
			messages = append(messages, contract.Message{
				Role:       contract.RoleTool,
				Content:    res.Text(),
				ToolCallID: calls[i].ID,
				Name:       res.Name,
			})
		}

		if ctx.Err() != nil {
			log.Warn("Turn deadline reached", "error", ctx.Err())
			return ErrorText
		}
	}

	log.Warn("Iteration ceiling reached", "max_iterations", e.opts.MaxIterations)
	return FallbackText
}

func (e *Engine) enter(ctx context.Context, s State, attrs ...any) {
	logger.From(ctx).Debug("Turn state", append([]any{"state", s.String()}, attrs...)...)
}
