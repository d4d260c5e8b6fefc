package handlers

import (
	"log/slog"
	"net/http"

	"parley/domain"
	"parley/services"
)

type UsersHandler struct {
	users services.IUserService
	log   *slog.Logger
}

func NewUsersHandler(users services.IUserService, log *slog.Logger) *UsersHandler {
	return &UsersHandler{users: users, log: log}
}

func (h *UsersHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r)
	results, err := h.users.Search(r.Context(), userID, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.User{"users": results})
}
