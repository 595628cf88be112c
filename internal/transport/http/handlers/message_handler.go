package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/titikruang/ruang/internal/domain"
	"github.com/titikruang/ruang/internal/identity"
	"github.com/titikruang/ruang/internal/service"
	"github.com/titikruang/ruang/internal/transport/http/middleware"
)

// MessageHandler serves both group and channel message routes. Group
// routes carry {id}, channel routes carry {name}.
type MessageHandler struct {
	messageService  *service.MessageService
	reactionService *service.ReactionService
	names           identity.NameStore
}

func NewMessageHandler(
	messageService *service.MessageService,
	reactionService *service.ReactionService,
	names identity.NameStore,
) *MessageHandler {
	return &MessageHandler{
		messageService:  messageService,
		reactionService: reactionService,
		names:           names,
	}
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	scope, ok := scopeFromPath(w, r)
	if !ok {
		return
	}

	var input service.AppendInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if strings.TrimSpace(input.SenderName) == "" {
		name, err := identity.DisplayName(r.Context(), h.names, userID)
		if err != nil {
			writeServiceError(w, "display name", err)
			return
		}
		input.SenderName = name
	}

	msg, err := h.messageService.Append(r.Context(), scope, userID, input)
	if err != nil {
		writeServiceError(w, "send message", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromPath(w, r)
	if !ok {
		return
	}

	messages, err := h.messageService.List(r.Context(), scope)
	if err != nil {
		writeServiceError(w, "list messages", err)
		return
	}

	if messages == nil {
		messages = []domain.Message{}
	}

	writeJSON(w, http.StatusOK, messages)
}

type toggleReactionRequest struct {
	Emoji string `json:"emoji"`
}

func (h *MessageHandler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	scope, ok := scopeFromPath(w, r)
	if !ok {
		return
	}

	messageID, err := uuid.Parse(r.PathValue("mid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid message ID")
		return
	}

	var input toggleReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	msg, err := h.reactionService.Toggle(r.Context(), scope, messageID, input.Emoji, userID)
	if err != nil {
		writeServiceError(w, "toggle reaction", err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

func scopeFromPath(w http.ResponseWriter, r *http.Request) (domain.Scope, bool) {
	if name := r.PathValue("name"); name != "" {
		return domain.ChannelScope(name), true
	}

	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid group ID")
		return domain.Scope{}, false
	}
	return domain.GroupScope(groupID), true
}
