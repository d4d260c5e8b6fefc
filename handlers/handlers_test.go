package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parley/auth"
	"parley/domain"
	"parley/gateway"
	"parley/observability"
	"parley/repositories"
	"parley/services"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fixture stands up the whole route table over throwaway storage so handler
// tests exercise the real middleware, services and repositories end to end.
type fixture struct {
	router http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })

	log := slog.Default()
	users := repositories.NewUserRepository(db)
	chats := repositories.NewChatRepository(db)
	messages := repositories.NewMessageRepository(db, log)
	index := repositories.NewUserIndex(writer)

	tokens := auth.NewTokenIssuer("handlers-test-secret", time.Hour)
	gw := gateway.New(log, tokens, users, chats, 16)

	router := NewRouter(RouterDeps{
		Log:          log,
		Tokens:       tokens,
		Auth:         services.NewAuthService(users, index, tokens),
		Chats:        services.NewChatService(chats, users, messages, gw),
		Messages:     services.NewMessageService(chats, messages, nil, gw, log, 4096),
		Users:        services.NewUserService(users, index),
		Gateway:      gw,
		Monitor:      observability.NewMonitor(log),
		DefaultLimit: 50,
	})
	return &fixture{router: router}
}

// do performs a JSON request against the route table. A non-empty token is
// sent as a bearer credential.
func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &out))
	return out
}

type sessionResponse struct {
	Token    string      `json:"token"`
	Identity domain.User `json:"identity"`
}

// register creates an identity through the real endpoint and returns its
// token for follow-up calls.
func (f *fixture) register(t *testing.T, handle string) sessionResponse {
	t.Helper()
	recorder := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"handle":         handle,
		"contactAddress": handle + "@example.com",
		"password":       "ComplexPass123",
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	return decode[sessionResponse](t, recorder)
}

func TestAuthRoutes(t *testing.T) {
	t.Run("should register and then login with the same credentials", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		session := f.register(t, "alice")
		req.NotEmpty(session.Token)
		req.Equal("alice", session.Identity.Handle)
		req.Empty(session.Identity.PasswordHash)

		recorder := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
			"handle":   "alice",
			"password": "ComplexPass123",
		})
		req.Equal(http.StatusOK, recorder.Code)
		req.NotEmpty(decode[sessionResponse](t, recorder).Token)
	})

	t.Run("should answer 400 on a duplicate handle regardless of case", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		f.register(t, "alice")

		recorder := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
			"handle":         "ALICE",
			"contactAddress": "other@example.com",
			"password":       "ComplexPass123",
		})
		req.Equal(http.StatusBadRequest, recorder.Code)
	})

	t.Run("should answer 401 on bad credentials without leaking handle existence", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		f.register(t, "alice")

		wrongPassword := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
			"handle": "alice", "password": "WrongPass123",
		})
		unknownHandle := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
			"handle": "nobody", "password": "WrongPass123",
		})
		req.Equal(http.StatusUnauthorized, wrongPassword.Code)
		req.Equal(http.StatusUnauthorized, unknownHandle.Code)
		req.JSONEq(wrongPassword.Body.String(), unknownHandle.Body.String())
	})

	t.Run("should guard profile routes behind the bearer token", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)

		req.Equal(http.StatusUnauthorized, f.do(t, http.MethodGet, "/auth/profile", "", nil).Code)
		req.Equal(http.StatusUnauthorized, f.do(t, http.MethodGet, "/auth/profile", "not-a-token", nil).Code)
	})

	t.Run("should apply only the supplied profile fields", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		session := f.register(t, "alice")

		recorder := f.do(t, http.MethodPut, "/auth/profile", session.Token, map[string]string{
			"statusLine": "brb",
		})
		req.Equal(http.StatusOK, recorder.Code)

		updated := decode[map[string]domain.User](t, recorder)["identity"]
		req.Equal("brb", updated.Status)
		req.Equal("alice", updated.DisplayName)
	})

	t.Run("should mark the identity offline on logout", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		session := f.register(t, "alice")

		req.Equal(http.StatusOK, f.do(t, http.MethodPost, "/auth/logout", session.Token, nil).Code)

		profile := f.do(t, http.MethodGet, "/auth/profile", session.Token, nil)
		req.Equal(http.StatusOK, profile.Code)
		identity := decode[map[string]domain.User](t, profile)["identity"]
		req.False(identity.IsOnline)
		req.False(identity.LastSeenAt.IsZero())
	})
}

func TestChatRoutes(t *testing.T) {
	t.Run("should create a private chat and return the same chat on repeat", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		alice := f.register(t, "alice")
		bob := f.register(t, "bob")

		first := f.do(t, http.MethodPost, "/chats", alice.Token, map[string]string{
			"kind": "private", "handle": "bob",
		})
		req.Equal(http.StatusCreated, first.Code)
		firstChat := decode[map[string]domain.Chat](t, first)["chat"]

		// Repeating the create, in either direction, answers 200 with the
		// existing chat rather than 201.
		second := f.do(t, http.MethodPost, "/chats", bob.Token, map[string]string{
			"kind": "private", "handle": "alice",
		})
		req.Equal(http.StatusOK, second.Code)
		req.Equal(firstChat.ID, decode[map[string]domain.Chat](t, second)["chat"].ID)
	})

	t.Run("should answer 404 when the private target handle is unknown", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		alice := f.register(t, "alice")

		recorder := f.do(t, http.MethodPost, "/chats", alice.Token, map[string]string{
			"kind": "private", "handle": "nobody",
		})
		req.Equal(http.StatusNotFound, recorder.Code)
	})

	t.Run("should reject an unknown chat kind", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		alice := f.register(t, "alice")

		recorder := f.do(t, http.MethodPost, "/chats", alice.Token, map[string]string{"kind": "broadcast"})
		req.Equal(http.StatusBadRequest, recorder.Code)
	})

	t.Run("should list the group chat with its announcement as last message", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		alice := f.register(t, "alice")

		created := f.do(t, http.MethodPost, "/chats", alice.Token, map[string]string{
			"kind": "group", "name": "plans",
		})
		req.Equal(http.StatusCreated, created.Code)

		listed := f.do(t, http.MethodGet, "/chats", alice.Token, nil)
		req.Equal(http.StatusOK, listed.Code)

		views := decode[map[string][]domain.ChatView](t, listed)["chats"]
		req.Len(views, 1)
		req.Equal("plans", views[0].Name)
		req.NotNil(views[0].LastMessage)
		req.Equal(domain.MessageSystem, views[0].LastMessage.Kind)
	})
}

func TestMessageRoutes(t *testing.T) {
	// createPrivate returns the chat both participants use below.
	setup := func(t *testing.T, f *fixture, aliceToken string) domain.Chat {
		t.Helper()
		recorder := f.do(t, http.MethodPost, "/chats", aliceToken, map[string]string{
			"kind": "private", "handle": "bob",
		})
		require.Equal(t, http.StatusCreated, recorder.Code)
		return decode[map[string]domain.Chat](t, recorder)["chat"]
	}

	t.Run("should append and page messages through the chat", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		alice := f.register(t, "alice")
		f.register(t, "bob")
		chat := setup(t, f, alice.Token)

		for i := 1; i <= 3; i++ {
			recorder := f.do(t, http.MethodPost, "/messages/"+chat.ID.String(), alice.Token,
				map[string]string{"content": fmt.Sprintf("m%d", i)})
			req.Equal(http.StatusCreated, recorder.Code)
		}

		recorder := f.do(t, http.MethodGet, "/messages/"+chat.ID.String()+"?page=1&limit=2", alice.Token, nil)
		req.Equal(http.StatusOK, recorder.Code)

		var out struct {
			Messages   []domain.Message    `json:"messages"`
			Pagination services.Pagination `json:"pagination"`
		}
		req.NoError(json.Unmarshal(recorder.Body.Bytes(), &out))
		req.Len(out.Messages, 2)
		req.Equal("m2", out.Messages[0].Content)
		req.Equal("m3", out.Messages[1].Content)
		req.True(out.Pagination.HasMore)
		req.Equal(3, out.Pagination.Total)
	})

	t.Run("should answer 403 to non-participants whether or not the chat exists", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		alice := f.register(t, "alice")
		f.register(t, "bob")
		eve := f.register(t, "eve")
		chat := setup(t, f, alice.Token)

		existing := f.do(t, http.MethodGet, "/messages/"+chat.ID.String(), eve.Token, nil)
		unknown := f.do(t, http.MethodGet, "/messages/"+uuid.NewString(), eve.Token, nil)
		malformed := f.do(t, http.MethodGet, "/messages/not-a-chat", eve.Token, nil)
		req.Equal(http.StatusForbidden, existing.Code)
		req.Equal(http.StatusForbidden, unknown.Code)
		req.Equal(http.StatusForbidden, malformed.Code)
	})

	t.Run("should reject blank content and a forged system kind", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		alice := f.register(t, "alice")
		f.register(t, "bob")
		chat := setup(t, f, alice.Token)

		blank := f.do(t, http.MethodPost, "/messages/"+chat.ID.String(), alice.Token,
			map[string]string{"content": "   "})
		forged := f.do(t, http.MethodPost, "/messages/"+chat.ID.String(), alice.Token,
			map[string]string{"content": "hi", "kind": "system"})
		req.Equal(http.StatusBadRequest, blank.Code)
		req.Equal(http.StatusBadRequest, forged.Code)
	})
}

func TestUserSearchRoute(t *testing.T) {
	t.Run("should find others by substring and never the requester", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		alice := f.register(t, "alice")
		f.register(t, "malice")

		recorder := f.do(t, http.MethodGet, "/users/search?q=lic", alice.Token, nil)
		req.Equal(http.StatusOK, recorder.Code)

		users := decode[map[string][]domain.User](t, recorder)["users"]
		req.Len(users, 1)
		req.Equal("malice", users[0].Handle)
	})

	t.Run("should return an empty set for a one-character query", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		alice := f.register(t, "alice")
		f.register(t, "malice")

		recorder := f.do(t, http.MethodGet, "/users/search?q=l", alice.Token, nil)
		req.Equal(http.StatusOK, recorder.Code)
		req.Empty(decode[map[string][]domain.User](t, recorder)["users"])
	})
}

func TestHealthRoute(t *testing.T) {
	t.Run("should always answer 200 with a snapshot", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)

		recorder := f.do(t, http.MethodGet, "/health", "", nil)
		req.Equal(http.StatusOK, recorder.Code)

		snap := decode[observability.HealthSnapshot](t, recorder)
		req.Equal("ok", snap.Status)
		req.Zero(snap.OnlineUsers)
	})
}
