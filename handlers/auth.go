package handlers

import (
	"log/slog"
	"net/http"

	"parley/domain"
	"parley/services"
)

type AuthHandler struct {
	auth services.IAuthService
	log  *slog.Logger
}

func NewAuthHandler(auth services.IAuthService, log *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

type credentialedResponse struct {
	Token    string      `json:"token"`
	Identity domain.User `json:"identity"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	// The wire contract names the email field contactAddress.
	var req struct {
		Handle      string `json:"handle"`
		Email       string `json:"contactAddress"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	user, token, err := h.auth.Register(req.Handle, req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, credentialedResponse{Token: token, Identity: user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Handle   string `json:"handle"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	user, token, err := h.auth.Login(req.Handle, req.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, credentialedResponse{Token: token, Identity: user})
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r)
	user, err := h.auth.Profile(userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.User{"identity": user})
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r)
	var patch services.ProfilePatch
	if !decodeBody(w, r, &patch) {
		return
	}

	user, err := h.auth.UpdateProfile(userID, patch)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.User{"identity": user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r)
	if err := h.auth.Logout(userID); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
