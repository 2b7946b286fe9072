// Package chat runs the conversational loop between the user, the model and
// the cellar tools.
//
// The loop is driven manually: the model is asked to return tool requests
// instead of executing them, each request is dispatched through the tool
// registry, and the results are fed back as a tool message. The loop ends
// when the model answers in text or the iteration bound is reached. Tool
// failures are contained per call; a model transport failure ends the
// exchange without retry.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/cellarist/cellarist/internal/conversation"
	"github.com/cellarist/cellarist/internal/wine"
)

// Loop and history defaults.
const (
	// DefaultMaxIterations bounds the model round trips in one exchange.
	DefaultMaxIterations = 8

	// DefaultHistoryTurns is how many persisted turns are replayed as
	// context for a new message.
	DefaultHistoryTurns = 20

	// maxConcurrentTools bounds parallel tool dispatch per model reply.
	maxConcurrentTools = 4

	// titleMaxRunes bounds the auto-generated conversation title.
	titleMaxRunes = 80
)

// truncatedFallbackMessage is the answer when the iteration bound is hit and
// the model never produced usable text.
const truncatedFallbackMessage = "I couldn't finish working through your cellar in time. Here's what I found so far; please ask again with a narrower question."

// emptyResponseMessage is the answer when the model returns neither text nor
// tool requests.
const emptyResponseMessage = "I couldn't come up with an answer. Please try rephrasing your question."

// systemPrompt frames the model as the user's cellar assistant.
const systemPrompt = `You are Cellarist, a personal sommelier with direct access to the user's wine cellar.

Answer questions about the user's wines, suggest bottles and food pairings, and help plan what to open. Use the available tools to look up the cellar instead of guessing: search for wines, fetch details and bottle locations, check cellar statistics, and consult a friend's registered preferences before recommending for them.

Ground every recommendation in wines the user actually owns and has in stock. When the cellar has nothing suitable, say so plainly. Keep answers concise and conversational.`

// ConversationStore is the persistence surface the agent needs.
// Following Go best practices: interfaces are defined by the consumer,
// not the provider.
type ConversationStore interface {
	Create(ctx context.Context, userID uuid.UUID, title string) (*conversation.Conversation, error)
	Get(ctx context.Context, id uuid.UUID) (*conversation.Conversation, error)
	LoadRecent(ctx context.Context, conversationID uuid.UUID, n int) ([]conversation.Turn, error)
	AppendTurns(ctx context.Context, conversationID uuid.UUID, turns []conversation.Turn) error
}

// Dispatcher executes one tool request on behalf of a user. The returned
// payload is handed back to the model verbatim; failures arrive as
// structured error payloads, never as Go errors.
type Dispatcher interface {
	Dispatch(ctx context.Context, userID uuid.UUID, name string, input any) any
}

// WineLookup resolves harvested wine IDs to catalog records.
type WineLookup interface {
	WineByID(ctx context.Context, id uuid.UUID) (wine.Record, error)
}

// Response is the outcome of one conversational exchange.
type Response struct {
	ConversationID uuid.UUID
	AnswerText     string
	Truncated      bool
	ToolCalls      []string
	WineRefs       []wine.Record
}

// Config contains all required parameters for the chat agent.
type Config struct {
	Genkit        *genkit.Genkit
	Conversations ConversationStore
	Dispatcher    Dispatcher
	Inventory     WineLookup
	Logger        *slog.Logger
	Tools         []ai.Tool // Pre-registered via tools.RegisterTools

	ModelName     string // Provider-qualified model name
	MaxIterations int    // 0 = DefaultMaxIterations
	HistoryTurns  int    // 0 = DefaultHistoryTurns

	// RateLimiter throttles model calls (nil = default limiter).
	RateLimiter *rate.Limiter
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Conversations == nil {
		return errors.New("conversation store is required")
	}
	if cfg.Dispatcher == nil {
		return errors.New("tool dispatcher is required")
	}
	if cfg.Inventory == nil {
		return errors.New("inventory lookup is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if len(cfg.Tools) == 0 {
		return errors.New("at least one tool is required")
	}
	return nil
}

// Agent is the cellar assistant's conversational core.
//
// Agent is stateless across exchanges; all configuration is captured
// immutably at construction, so it is safe for concurrent use.
type Agent struct {
	g             *genkit.Genkit
	conversations ConversationStore
	dispatcher    Dispatcher
	inventory     WineLookup
	logger        *slog.Logger

	modelName     string
	maxIterations int
	historyTurns  int
	rateLimiter   *rate.Limiter

	toolRefs  []ai.ToolRef
	toolNames string // comma-separated, for logging
}

// New creates an Agent from the given configuration.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	historyTurns := cfg.HistoryTurns
	if historyTurns <= 0 {
		historyTurns = DefaultHistoryTurns
	}
	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	toolRefs := make([]ai.ToolRef, len(cfg.Tools))
	names := make([]string, len(cfg.Tools))
	for i, t := range cfg.Tools {
		toolRefs[i] = t
		names[i] = t.Name()
	}

	a := &Agent{
		g:             cfg.Genkit,
		conversations: cfg.Conversations,
		dispatcher:    cfg.Dispatcher,
		inventory:     cfg.Inventory,
		logger:        cfg.Logger,
		modelName:     cfg.ModelName,
		maxIterations: maxIterations,
		historyTurns:  historyTurns,
		rateLimiter:   rl,
		toolRefs:      toolRefs,
		toolNames:     strings.Join(names, ", "),
	}

	a.logger.Info("chat agent initialized",
		"tools", a.toolNames,
		"max_iterations", a.maxIterations,
		"history_turns", a.historyTurns,
	)
	return a, nil
}

// Converse runs one exchange: the user's message goes in, the final answer
// comes out, and every message produced along the way is persisted as one
// atomic batch of turns.
//
// A zero conversationID starts a new conversation. Persistence is
// best-effort at the exchange level: if the append fails, the Response is
// still returned together with an ErrPersistence-wrapped error.
func (a *Agent) Converse(ctx context.Context, userID, conversationID uuid.UUID, message string) (*Response, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is empty", ErrValidation)
	}

	conv, err := a.resolveConversation(ctx, userID, conversationID, message)
	if err != nil {
		return nil, err
	}

	history, err := a.conversations.LoadRecent(ctx, conv.ID, a.historyTurns)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	messages := make([]*ai.Message, 0, len(history)+1)
	for _, t := range history {
		messages = append(messages, t.Message())
	}
	messages = deepCopyMessages(messages)

	userMsg := ai.NewUserMessage(ai.NewTextPart(message))
	messages = append(messages, userMsg)
	newTurns := []conversation.Turn{turnFromMessage(userMsg)}

	resp := &Response{ConversationID: conv.ID}
	var toolPayloads []any

	final := false
	for i := 0; i < a.maxIterations && !final; i++ {
		modelMsg, toolReqs, err := a.generate(ctx, messages)
		if err != nil {
			return nil, err
		}
		messages = append(messages, modelMsg)
		newTurns = append(newTurns, turnFromMessage(modelMsg))

		if len(toolReqs) == 0 {
			resp.AnswerText = strings.TrimSpace(messageText(modelMsg))
			if resp.AnswerText == "" {
				a.logger.Warn("model returned empty response with no tool requests",
					"conversation_id", conv.ID)
				resp.AnswerText = emptyResponseMessage
			}
			final = true
			continue
		}

		toolMsg, payloads := a.dispatchAll(ctx, userID, toolReqs)
		for _, tr := range toolReqs {
			resp.ToolCalls = append(resp.ToolCalls, tr.Name)
		}
		toolPayloads = append(toolPayloads, payloads...)
		messages = append(messages, toolMsg)
		newTurns = append(newTurns, turnFromMessage(toolMsg))
	}

	if !final {
		resp.Truncated = true
		resp.AnswerText = lastModelText(newTurns)
		if resp.AnswerText == "" {
			resp.AnswerText = truncatedFallbackMessage
			closing := ai.NewModelMessage(ai.NewTextPart(resp.AnswerText))
			newTurns = append(newTurns, turnFromMessage(closing))
		}
		a.logger.Warn("exchange hit iteration bound",
			"conversation_id", conv.ID, "iterations", a.maxIterations)
	}

	resp.WineRefs = a.resolveWineRefs(ctx, toolPayloads)

	if err := a.conversations.AppendTurns(ctx, conv.ID, newTurns); err != nil {
		a.logger.Warn("appending turns", "conversation_id", conv.ID, "error", err)
		return resp, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return resp, nil
}

// resolveConversation loads the target conversation and checks ownership,
// or creates a fresh one when no ID was given.
func (a *Agent) resolveConversation(ctx context.Context, userID, conversationID uuid.UUID, message string) (*conversation.Conversation, error) {
	if conversationID == uuid.Nil {
		conv, err := a.conversations.Create(ctx, userID, deriveTitle(message))
		if err != nil {
			return nil, fmt.Errorf("creating conversation: %w", err)
		}
		return conv, nil
	}

	conv, err := a.conversations.Get(ctx, conversationID)
	if errors.Is(err, conversation.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	if conv.UserID != userID {
		return nil, fmt.Errorf("%w: conversation %s", ErrAuthorization, conversationID)
	}
	return conv, nil
}

// generate performs one model call and splits the reply into the message and
// its tool requests. Transport failures are not retried.
func (a *Agent) generate(ctx context.Context, messages []*ai.Message) (*ai.Message, []*ai.ToolRequest, error) {
	if err := a.rateLimiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrModelTransport, err)
	}

	opts := []ai.GenerateOption{
		ai.WithSystem(systemPrompt),
		ai.WithMessages(messages...),
		ai.WithTools(a.toolRefs...),
		ai.WithReturnToolRequests(true),
	}
	if a.modelName != "" {
		opts = append(opts, ai.WithModelName(a.modelName))
	}

	resp, err := genkit.Generate(ctx, a.g, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrModelTransport, err)
	}
	msg := resp.Message
	if msg == nil {
		msg = ai.NewModelMessage(ai.NewTextPart(""))
	}
	return msg, resp.ToolRequests(), nil
}

// dispatchAll runs the model's tool requests concurrently and assembles the
// tool message. Result order follows request order regardless of completion
// order, so replays of the conversation are deterministic.
func (a *Agent) dispatchAll(ctx context.Context, userID uuid.UUID, reqs []*ai.ToolRequest) (*ai.Message, []any) {
	payloads := make([]any, len(reqs))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentTools)
	for i, tr := range reqs {
		eg.Go(func() error {
			a.logger.Debug("dispatching tool", "tool", tr.Name)
			payloads[i] = a.dispatcher.Dispatch(egCtx, userID, tr.Name, tr.Input)
			return nil
		})
	}
	// Dispatch contains all failures in the payloads; the group exists for
	// concurrency limiting and context propagation only.
	_ = eg.Wait()

	parts := make([]*ai.Part, len(reqs))
	for i, tr := range reqs {
		parts[i] = ai.NewToolResponsePart(&ai.ToolResponse{
			Name:   tr.Name,
			Ref:    tr.Ref,
			Output: payloads[i],
		})
	}
	return ai.NewMessage(ai.RoleTool, nil, parts...), payloads
}

// resolveWineRefs turns harvested wine IDs into catalog records. A stale ID
// is dropped, not fatal: the tool output already showed it to the model.
func (a *Agent) resolveWineRefs(ctx context.Context, payloads []any) []wine.Record {
	ids := collectWineIDs(payloads)
	if len(ids) == 0 {
		return nil
	}
	records := make([]wine.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := a.inventory.WineByID(ctx, id)
		if err != nil {
			a.logger.Debug("dropping unresolvable wine ref", "wine_id", id, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records
}

// turnFromMessage converts a model-layer message to a persistable turn.
func turnFromMessage(msg *ai.Message) conversation.Turn {
	return conversation.Turn{Role: string(msg.Role), Content: msg.Content}
}

// messageText concatenates the text parts of a message.
func messageText(msg *ai.Message) string {
	var sb strings.Builder
	for _, p := range msg.Content {
		if p.Kind == ai.PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// lastModelText returns the newest non-empty model text in the exchange.
func lastModelText(turns []conversation.Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role != string(ai.RoleModel) {
			continue
		}
		if text := strings.TrimSpace(messageText(turns[i].Message())); text != "" {
			return text
		}
	}
	return ""
}

// deriveTitle builds a conversation title from the first message.
func deriveTitle(message string) string {
	runes := []rune(message)
	if len(runes) <= titleMaxRunes {
		return message
	}
	return string(runes[:titleMaxRunes-3]) + "..."
}

// deepCopyMessages creates independent copies of Message and Part structs.
//
// Genkit's renderMessages() modifies msg.Content in-place, which races when
// concurrent exchanges replay shared history objects. Verified against
// github.com/firebase/genkit/go v1.4.0; re-test with the race detector
// before removing on an upgrade.
func deepCopyMessages(msgs []*ai.Message) []*ai.Message {
	if msgs == nil {
		return nil
	}
	copied := make([]*ai.Message, len(msgs))
	for i, msg := range msgs {
		parts := make([]*ai.Part, len(msg.Content))
		for j, part := range msg.Content {
			parts[j] = deepCopyPart(part)
		}
		copied[i] = &ai.Message{
			Role:     msg.Role,
			Content:  parts,
			Metadata: shallowCopyMap(msg.Metadata),
		}
	}
	return copied
}

// deepCopyPart copies one part. ToolRequest.Input and ToolResponse.Output
// are type any and copied by reference; Genkit only mutates the Content
// slice, not tool data.
func deepCopyPart(p *ai.Part) *ai.Part {
	if p == nil {
		return nil
	}
	cp := &ai.Part{
		Kind:        p.Kind,
		ContentType: p.ContentType,
		Text:        p.Text,
		Custom:      shallowCopyMap(p.Custom),
		Metadata:    shallowCopyMap(p.Metadata),
	}
	if p.ToolRequest != nil {
		cp.ToolRequest = &ai.ToolRequest{
			Name:  p.ToolRequest.Name,
			Ref:   p.ToolRequest.Ref,
			Input: p.ToolRequest.Input,
		}
	}
	if p.ToolResponse != nil {
		cp.ToolResponse = &ai.ToolResponse{
			Name:   p.ToolResponse.Name,
			Ref:    p.ToolResponse.Ref,
			Output: p.ToolResponse.Output,
		}
	}
	return cp
}

func shallowCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
