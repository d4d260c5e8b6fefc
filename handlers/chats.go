package handlers

import (
	"log/slog"
	"net/http"

	"parley/domain"
	"parley/errors"
	"parley/services"
)

type ChatsHandler struct {
	chats services.IChatService
	log   *slog.Logger
}

func NewChatsHandler(chats services.IChatService, log *slog.Logger) *ChatsHandler {
	return &ChatsHandler{chats: chats, log: log}
}

func (h *ChatsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r)
	views, err := h.chats.ListForUser(userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.ChatView{"chats": views})
}

// Create starts either a private chat against a handle or a group chat with
// a name, depending on kind.
func (h *ChatsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r)
	var req struct {
		Kind        domain.ChatKind `json:"kind"`
		Handle      string          `json:"handle"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	var (
		chat    domain.Chat
		created bool
		err     error
	)
	switch req.Kind {
	case domain.ChatPrivate:
		chat, created, err = h.chats.CreatePrivate(userID, req.Handle)
	case domain.ChatGroup:
		chat, err = h.chats.CreateGroup(userID, req.Name, req.Description)
		created = err == nil
	default:
		err = errors.ErrInvalidArgument
	}
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	// An existing private chat returned as-is answers 200, a fresh record 201.
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]domain.Chat{"chat": chat})
}
