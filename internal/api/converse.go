package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/cellarist/cellarist/internal/chat"
	"github.com/cellarist/cellarist/internal/wine"
)

// maxRequestBody bounds the size of JSON request bodies.
const maxRequestBody = 1 << 20 // 1MB

// Conversationalist runs one conversational exchange. Implemented by
// chat.Agent.
type Conversationalist interface {
	Converse(ctx context.Context, userID, conversationID uuid.UUID, message string) (*chat.Response, error)
}

// converseHandler handles POST /api/v1/converse.
type converseHandler struct {
	agent  Conversationalist
	logger *slog.Logger
}

type converseRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

type converseResponse struct {
	ConversationID string        `json:"conversation_id"`
	Answer         string        `json:"answer"`
	Truncated      bool          `json:"truncated"`
	ToolCalls      []string      `json:"tool_calls,omitempty"`
	Wines          []wine.Record `json:"wines,omitempty"`
	Warning        string        `json:"warning,omitempty"`
}

// requestUserID extracts the caller identity from the X-User-ID header.
// Authentication happens upstream; the gateway injects the header.
func requestUserID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get("X-User-ID"))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func (h *converseHandler) converse(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "user_required", "valid X-User-ID header is required", h.logger)
		return
	}

	var req converseRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large", h.logger)
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}

	conversationID := uuid.Nil
	if req.ConversationID != "" {
		id, err := uuid.Parse(req.ConversationID)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_conversation_id", "conversation_id must be a UUID", h.logger)
			return
		}
		conversationID = id
	}

	resp, err := h.agent.Converse(r.Context(), userID, conversationID, req.Message)
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrPersistence):
		// The answer was produced; only saving it failed. Return it with
		// a warning rather than discarding the model's work.
		h.logger.Warn("conversation turn not persisted", "error", err, "user", userID)
		WriteJSON(w, http.StatusOK, toConverseResponse(resp, "conversation history may be incomplete"), h.logger)
		return
	case errors.Is(err, chat.ErrValidation):
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	case errors.Is(err, chat.ErrAuthorization):
		WriteError(w, http.StatusForbidden, "forbidden", "conversation belongs to another user", h.logger)
		return
	case errors.Is(err, chat.ErrModelTransport):
		h.logger.Error("model call failed", "error", err, "user", userID)
		WriteError(w, http.StatusBadGateway, "model_unavailable", "language model request failed", h.logger)
		return
	default:
		h.logger.Error("converse failed", "error", err, "user", userID)
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, toConverseResponse(resp, ""), h.logger)
}

func toConverseResponse(resp *chat.Response, warning string) converseResponse {
	return converseResponse{
		ConversationID: resp.ConversationID.String(),
		Answer:         resp.AnswerText,
		Truncated:      resp.Truncated,
		ToolCalls:      resp.ToolCalls,
		Wines:          resp.WineRefs,
		Warning:        warning,
	}
}
