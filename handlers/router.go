package handlers

import (
	"log/slog"
	"net/http"

	"parley/auth"
	"parley/gateway"
	"parley/observability"
	"parley/services"

	"github.com/gorilla/mux"
)

// RouterDeps carries everything the route table needs.
type RouterDeps struct {
	Log          *slog.Logger
	Tokens       *auth.TokenIssuer
	Auth         services.IAuthService
	Chats        services.IChatService
	Messages     services.IMessageService
	Users        services.IUserService
	Gateway      *gateway.Gateway
	Monitor      *observability.Monitor
	DefaultLimit int
}

// NewRouter builds the full route table. Everything except register, login,
// health and the socket upgrade sits behind the bearer guard; the socket
// proves its token in-band instead.
func NewRouter(deps RouterDeps) *mux.Router {
	authHandler := NewAuthHandler(deps.Auth, deps.Log)
	chatsHandler := NewChatsHandler(deps.Chats, deps.Log)
	messagesHandler := NewMessagesHandler(deps.Messages, deps.Log, deps.DefaultLimit)
	usersHandler := NewUsersHandler(deps.Users, deps.Log)
	healthHandler := NewHealthHandler(deps.Monitor, deps.Gateway.OnlineCount)

	router := mux.NewRouter()
	router.Use(Recover(deps.Log))

	router.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	router.HandleFunc("/ws", deps.Gateway.ServeWS).Methods(http.MethodGet)
	router.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)

	protected := router.NewRoute().Subrouter()
	protected.Use(RequireAuth(deps.Tokens, deps.Log))
	protected.HandleFunc("/auth/profile", authHandler.Profile).Methods(http.MethodGet)
	protected.HandleFunc("/auth/profile", authHandler.UpdateProfile).Methods(http.MethodPut)
	protected.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/chats", chatsHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/chats", chatsHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/messages/{chatId}", messagesHandler.History).Methods(http.MethodGet)
	protected.HandleFunc("/messages/{chatId}", messagesHandler.Send).Methods(http.MethodPost)
	protected.HandleFunc("/users/search", usersHandler.Search).Methods(http.MethodGet)

	return router
}
