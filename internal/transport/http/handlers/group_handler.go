package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/titikruang/ruang/internal/domain"
	"github.com/titikruang/ruang/internal/service"
	"github.com/titikruang/ruang/internal/transport/http/middleware"
)

type GroupHandler struct {
	groupService *service.GroupService
}

func NewGroupHandler(groupService *service.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.CreateGroupInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	g, err := h.groupService.Create(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, "create group", err)
		return
	}

	writeJSON(w, http.StatusCreated, g)
}

// List returns the groups the caller belongs to.
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	groups, err := h.groupService.ListForIdentity(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "list groups", err)
		return
	}

	if groups == nil {
		groups = []domain.Group{}
	}

	writeJSON(w, http.StatusOK, groups)
}

// Directory returns every group, newest first.
func (h *GroupHandler) Directory(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groupService.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, "list directory", err)
		return
	}

	if groups == nil {
		groups = []domain.Group{}
	}

	writeJSON(w, http.StatusOK, groups)
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid group ID")
		return
	}

	g, err := h.groupService.Get(r.Context(), groupID)
	if err != nil {
		writeServiceError(w, "get group", err)
		return
	}

	writeJSON(w, http.StatusOK, g)
}

type addMemberRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid group ID")
		return
	}

	var input addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.groupService.AddMember(r.Context(), groupID, userID, input.UserID); err != nil {
		writeServiceError(w, "add member", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid group ID")
		return
	}

	targetID, err := uuid.Parse(r.PathValue("uid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	if err := h.groupService.RemoveMember(r.Context(), groupID, userID, targetID); err != nil {
		writeServiceError(w, "remove member", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
