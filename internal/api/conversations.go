package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cellarist/cellarist/internal/conversation"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	defaultTurnLimit = 50
	maxTurnLimit     = 500
)

// ConversationBrowser exposes read and delete access to stored
// conversations. Implemented by conversation.Postgres and
// conversation.Memory.
type ConversationBrowser interface {
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*conversation.Conversation, error)
	Get(ctx context.Context, id uuid.UUID) (*conversation.Conversation, error)
	LoadRecent(ctx context.Context, conversationID uuid.UUID, n int) ([]conversation.Turn, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// conversationsHandler handles the /api/v1/conversations endpoints.
type conversationsHandler struct {
	store  ConversationBrowser
	logger *slog.Logger
}

type turnItem struct {
	Seq       int       `json:"seq"`
	Role      string    `json:"role"`
	Text      string    `json:"text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// list handles GET /api/v1/conversations.
func (h *conversationsHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "user_required", "valid X-User-ID header is required", h.logger)
		return
	}

	limit := queryInt(r, "limit", defaultListLimit, maxListLimit)
	offset := queryInt(r, "offset", 0, 10000)

	convs, err := h.store.List(r.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("listing conversations", "error", err, "user", userID)
		WriteError(w, http.StatusInternalServerError, "list_failed", "failed to list conversations", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"conversations": convs,
		"count":         len(convs),
	}, h.logger)
}

// turns handles GET /api/v1/conversations/{id}/turns.
func (h *conversationsHandler) turns(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "user_required", "valid X-User-ID header is required", h.logger)
		return
	}

	conv, ok := h.ownedConversation(w, r, userID)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", defaultTurnLimit, maxTurnLimit)
	turns, err := h.store.LoadRecent(r.Context(), conv.ID, limit)
	if err != nil {
		h.logger.Error("loading turns", "error", err, "conversation", conv.ID)
		WriteError(w, http.StatusInternalServerError, "load_failed", "failed to load conversation turns", h.logger)
		return
	}

	items := make([]turnItem, 0, len(turns))
	for _, t := range turns {
		items = append(items, turnItem{
			Seq:       t.Seq,
			Role:      t.Role,
			Text:      turnText(t),
			CreatedAt: t.CreatedAt,
		})
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conv.ID,
		"title":           conv.Title,
		"turns":           items,
	}, h.logger)
}

// remove handles DELETE /api/v1/conversations/{id}.
func (h *conversationsHandler) remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "user_required", "valid X-User-ID header is required", h.logger)
		return
	}

	conv, ok := h.ownedConversation(w, r, userID)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), conv.ID); err != nil {
		h.logger.Error("deleting conversation", "error", err, "conversation", conv.ID)
		WriteError(w, http.StatusInternalServerError, "delete_failed", "failed to delete conversation", h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ownedConversation resolves the {id} path value and enforces ownership.
// Conversations owned by other users report not found, so IDs cannot be
// probed for existence.
func (h *conversationsHandler) ownedConversation(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*conversation.Conversation, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "conversation id must be a UUID", h.logger)
		return nil, false
	}

	conv, err := h.store.Get(r.Context(), id)
	if errors.Is(err, conversation.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "not_found", "conversation not found", h.logger)
		return nil, false
	}
	if err != nil {
		h.logger.Error("fetching conversation", "error", err, "conversation", id)
		WriteError(w, http.StatusInternalServerError, "get_failed", "failed to fetch conversation", h.logger)
		return nil, false
	}
	if conv.UserID != userID {
		WriteError(w, http.StatusNotFound, "not_found", "conversation not found", h.logger)
		return nil, false
	}
	return conv, true
}

// turnText flattens the text parts of a turn for display. Tool request and
// tool response parts carry structured payloads and are omitted.
func turnText(t conversation.Turn) string {
	var b strings.Builder
	for _, part := range t.Content {
		if part != nil && part.IsText() {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// queryInt parses an integer query parameter with a default and a cap.
// Invalid or out-of-range values fall back to the default.
func queryInt(r *http.Request, name string, def, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > max {
		return def
	}
	return n
}
