package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// dispatchFunc adapts one typed handler method to the untyped arguments the
// model sends with a tool request.
type dispatchFunc func(ctx context.Context, userID uuid.UUID, raw json.RawMessage) (any, error)

// Registry routes the model's tool requests to Handler methods.
//
// The conversation loop asks the model to return tool requests instead of
// executing them, then dispatches each request here. The tool set is closed:
// a request naming anything outside toolNames yields an UnknownTool error
// payload, never an execution attempt.
//
// Registry is safe for concurrent use by multiple goroutines.
type Registry struct {
	handlers map[string]dispatchFunc
	logger   *slog.Logger
}

// NewRegistry creates a registry over the given handler.
// A nil logger falls back to slog.Default.
func NewRegistry(h *Handler, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger,
		handlers: map[string]dispatchFunc{
			ToolSearchWines:       dispatch(h.SearchWines),
			ToolWineDetails:       dispatch(h.GetWineDetails),
			ToolBottleLocation:    dispatch(h.GetBottleLocation),
			ToolCellarStats:       dispatch(h.GetCellarStats),
			ToolFriendPreferences: dispatch(h.GetFriendPreferences),
		},
	}
}

// Dispatch executes one tool request on behalf of userID and returns the
// payload to hand back to the model. Failures are contained: every error is
// converted to a *ToolError payload so the exchange keeps going.
func (r *Registry) Dispatch(ctx context.Context, userID uuid.UUID, name string, input any) any {
	fn, ok := r.handlers[name]
	if !ok {
		r.logger.Warn("tool request for unknown tool", "tool", name)
		return &ToolError{
			ErrorType: ErrTypeUnknownTool,
			Message:   fmt.Sprintf("tool %q is not available", name),
		}
	}

	raw, err := json.Marshal(input)
	if err != nil {
		return invalidArgs(fmt.Sprintf("arguments for %s are not serializable: %v", name, err))
	}

	out, err := fn(ctx, userID, raw)
	if err != nil {
		if terr, ok := err.(*ToolError); ok {
			r.logger.Debug("tool returned structured error",
				"tool", name, "error_type", terr.ErrorType, "message", terr.Message)
			return terr
		}
		r.logger.Error("tool execution failed", "tool", name, "error", err)
		return &ToolError{ErrorType: ErrTypeInternal, Message: err.Error()}
	}
	return out
}

// Known reports whether name is part of the registered tool set.
func (r *Registry) Known(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// dispatch erases a typed handler method into a dispatchFunc.
// The model sends arguments as loosely typed JSON; a round trip through
// encoding/json is how they become the method's input struct.
func dispatch[In, Out any](fn func(context.Context, uuid.UUID, In) (Out, error)) dispatchFunc {
	return func(ctx context.Context, userID uuid.UUID, raw json.RawMessage) (any, error) {
		var in In
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &in); err != nil {
				return nil, invalidArgs(fmt.Sprintf("invalid arguments: %v", err))
			}
		}
		return fn(ctx, userID, in)
	}
}
