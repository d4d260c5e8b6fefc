package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"parley/domain"
	"parley/errors"
	"parley/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type MessagesHandler struct {
	messages     services.IMessageService
	log          *slog.Logger
	defaultLimit int
}

func NewMessagesHandler(messages services.IMessageService, log *slog.Logger, defaultLimit int) *MessagesHandler {
	return &MessagesHandler{messages: messages, log: log, defaultLimit: defaultLimit}
}

// chatIDVar parses the chatId route variable. A malformed id gets the same
// Forbidden a non-participant would, so callers cannot probe which chat ids
// exist.
func chatIDVar(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["chatId"])
	if err != nil {
		return uuid.Nil, errors.ErrForbidden
	}
	return id, nil
}

func (h *MessagesHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r)
	chatID, err := chatIDVar(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", h.defaultLimit)

	messages, pagination, err := h.messages.History(chatID, userID, page, limit)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Messages   []domain.Message    `json:"messages"`
		Pagination services.Pagination `json:"pagination"`
	}{Messages: messages, Pagination: pagination})
}

func (h *MessagesHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r)
	chatID, err := chatIDVar(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var req struct {
		Content string `json:"content"`
		Kind    string `json:"kind"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	// Clients only ever author text; system messages are server-originated.
	if req.Kind != "" && req.Kind != string(domain.MessageText) {
		writeError(w, h.log, errors.ErrInvalidArgument)
		return
	}

	message, err := h.messages.Send(chatID, userID, req.Content, domain.MessageText)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]domain.Message{"message": message})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
