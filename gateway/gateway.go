// Package gateway is the real-time coordination layer: it binds sockets to
// identities after token proof, tracks chat room subscriptions, relays
// typing events, and fans out new messages to participants' live
// connections. A handler error is answered on the socket, never by closing
// it.
package gateway

import (
	"log/slog"
	"sync"

	"parley/auth"
	"parley/domain"
	"parley/presence"
	"parley/repositories"

	"github.com/google/uuid"
)

// connState makes the per-connection lifecycle explicit. A session is
// Unauthenticated until token proof succeeds and Closed forever after
// disconnect; there is no optional-field limbo to forget to check.
type connState int

const (
	stateUnauthenticated connState = iota
	stateAuthenticated
	stateClosed
)

// Session is one socket's server-side half. The send channel is drained by
// the transport's write pump; pushes to a full channel are dropped rather
// than ever blocking a handler.
type Session struct {
	send   chan OutboundEvent
	state  connState // guarded by Gateway.mu
	userID uuid.UUID // zero until authenticated
	handle string
}

type Gateway struct {
	log     *slog.Logger
	tokens  *auth.TokenIssuer
	users   repositories.IUserRepository
	chats   repositories.IChatRepository
	tracker *presence.Tracker[*Session]

	mu       sync.RWMutex
	sessions map[*Session]struct{}
	rooms    map[uuid.UUID]map[*Session]struct{}

	bufferSize int
}

func New(
	log *slog.Logger,
	tokens *auth.TokenIssuer,
	users repositories.IUserRepository,
	chats repositories.IChatRepository,
	bufferSize int,
) *Gateway {
	return &Gateway{
		log:        log,
		tokens:     tokens,
		users:      users,
		chats:      chats,
		tracker:    presence.NewTracker[*Session](),
		sessions:   make(map[*Session]struct{}),
		rooms:      make(map[uuid.UUID]map[*Session]struct{}),
		bufferSize: bufferSize,
	}
}

// Connect registers a new unauthenticated session.
func (g *Gateway) Connect() *Session {
	s := &Session{send: make(chan OutboundEvent, g.bufferSize)}
	g.mu.Lock()
	g.sessions[s] = struct{}{}
	g.mu.Unlock()
	return s
}

// Send returns the channel the transport write pump drains. It is closed by
// Disconnect.
func (s *Session) Send() <-chan OutboundEvent { return s.send }

// HandleEvent dispatches one inbound event for the session. Unknown event
// types are logged and ignored.
func (g *Gateway) HandleEvent(s *Session, evt InboundEvent) {
	switch evt.Type {
	case evtAuthenticate:
		g.authenticate(s, evt.Token)
	case evtJoinChat:
		g.joinChat(s, evt.ChatID)
	case evtLeaveChat:
		g.leaveChat(s, evt.ChatID)
	case evtTyping:
		g.typing(s, evt.ChatID, evt.IsTyping)
	default:
		g.log.Debug("Unknown socket event", "type", evt.Type)
	}
}

// authenticate proves the token, binds the session in the presence tracker
// and marks the identity online. On any failure the session stays
// Unauthenticated and only a failure ack goes out.
func (g *Gateway) authenticate(s *Session, token string) {
	claims, err := g.tokens.Validate(token)
	if err != nil {
		g.push(s, OutboundEvent{Type: evtAuthenticated, Payload: authAck{Success: false, Message: "invalid token"}})
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		g.push(s, OutboundEvent{Type: evtAuthenticated, Payload: authAck{Success: false, Message: "invalid token"}})
		return
	}
	user, err := g.users.Get(userID)
	if err != nil {
		g.push(s, OutboundEvent{Type: evtAuthenticated, Payload: authAck{Success: false, Message: "unknown identity"}})
		return
	}

	g.mu.Lock()
	if s.state == stateClosed {
		g.mu.Unlock()
		return
	}
	s.state = stateAuthenticated
	s.userID = user.ID
	s.handle = user.Handle
	g.mu.Unlock()

	g.tracker.Bind(user.ID, s)
	if _, err := g.users.SetPresence(user.ID, true); err != nil {
		g.log.Error("Failed to mark identity online", "user", user.ID, "err", err)
	}

	g.push(s, OutboundEvent{Type: evtAuthenticated, Payload: authAck{Success: true}})
	g.broadcastOnline()
	g.log.Debug("Socket authenticated", "user", user.ID, "handle", user.Handle)
}

// liveIdentity returns the session's identity only while this session is
// the identity's current binding. Events from a superseded socket resolve
// to nothing and are treated as no-ops.
func (g *Gateway) liveIdentity(s *Session) (uuid.UUID, bool) {
	g.mu.RLock()
	authed := s.state == stateAuthenticated
	userID := s.userID
	g.mu.RUnlock()
	if !authed {
		return uuid.Nil, false
	}
	if current, ok := g.tracker.Lookup(userID); !ok || current != s {
		return uuid.Nil, false
	}
	return userID, true
}

// joinChat subscribes the session to a chat's room for typing relay.
// Silently a no-op for non-participants, unknown chats and unauthenticated
// sessions.
func (g *Gateway) joinChat(s *Session, rawChatID string) {
	userID, ok := g.liveIdentity(s)
	if !ok {
		return
	}
	chatID, err := uuid.Parse(rawChatID)
	if err != nil {
		return
	}
	chat, err := g.chats.Get(chatID)
	if err != nil || !chat.HasParticipant(userID) {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if s.state != stateAuthenticated {
		return
	}
	if _, ok := g.rooms[chatID]; !ok {
		g.rooms[chatID] = make(map[*Session]struct{})
	}
	g.rooms[chatID][s] = struct{}{}
}

// leaveChat is always permitted and idempotent.
func (g *Gateway) leaveChat(s *Session, rawChatID string) {
	chatID, err := uuid.Parse(rawChatID)
	if err != nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if members, ok := g.rooms[chatID]; ok {
		delete(members, s)
		if len(members) == 0 {
			delete(g.rooms, chatID)
		}
	}
}

// typing relays a user-typing event to every other session subscribed to
// the chat's room. The sender never hears its own typing.
func (g *Gateway) typing(s *Session, rawChatID string, isTyping bool) {
	userID, ok := g.liveIdentity(s)
	if !ok {
		return
	}
	chatID, err := uuid.Parse(rawChatID)
	if err != nil {
		return
	}

	g.mu.RLock()
	handle := s.handle
	targets := make([]*Session, 0, len(g.rooms[chatID]))
	for member := range g.rooms[chatID] {
		if member != s {
			targets = append(targets, member)
		}
	}
	g.mu.RUnlock()

	evt := OutboundEvent{Type: evtUserTyping, Payload: typingPayload{
		UserID:   userID,
		Handle:   handle,
		ChatID:   chatID,
		IsTyping: isTyping,
	}}
	for _, target := range targets {
		g.push(target, evt)
	}
}

// Disconnect tears the session down from either state. Only the identity's
// current binding marks it offline; a superseded socket disconnecting must
// not knock the newer one off.
func (g *Gateway) Disconnect(s *Session) {
	g.mu.Lock()
	if s.state == stateClosed {
		g.mu.Unlock()
		return
	}
	wasAuthenticated := s.state == stateAuthenticated
	userID := s.userID
	s.state = stateClosed
	delete(g.sessions, s)
	for chatID, members := range g.rooms {
		delete(members, s)
		if len(members) == 0 {
			delete(g.rooms, chatID)
		}
	}
	// Closed under the exclusive lock while push sends under the read
	// lock, so no send can race the close.
	close(s.send)
	g.mu.Unlock()

	if wasAuthenticated && g.tracker.Unbind(userID, s) {
		if _, err := g.users.SetPresence(userID, false); err != nil {
			g.log.Error("Failed to mark identity offline", "user", userID, "err", err)
		}
		g.broadcastOnline()
	}
}

// ChatCreated notifies just the chat's participants with a live connection.
// Delivery goes through the presence binding, not room subscriptions: a
// brand-new chat has no subscribers yet.
func (g *Gateway) ChatCreated(chat domain.Chat) {
	g.toParticipants(chat, OutboundEvent{Type: evtChatCreated, Payload: chat})
}

// NewMessage delivers the appended message point-to-point to every bound
// participant, whether or not they joined the chat's room. Unbound
// participants simply receive nothing; the message is already durable.
func (g *Gateway) NewMessage(chat domain.Chat, message domain.Message) {
	g.toParticipants(chat, OutboundEvent{Type: evtNewMessage, Payload: message})
}

func (g *Gateway) toParticipants(chat domain.Chat, evt OutboundEvent) {
	for _, participantID := range chat.Participants {
		if s, ok := g.tracker.Lookup(participantID); ok {
			g.push(s, evt)
		}
	}
}

// OnlineCount reports how many identities hold a live binding.
func (g *Gateway) OnlineCount() int {
	return len(g.tracker.Online())
}

// broadcastOnline pushes the full online identity set to every connection,
// authenticated or not. Full state, not a delta: a client that missed
// intermediate events stays trivially consistent.
func (g *Gateway) broadcastOnline() {
	online := g.tracker.Online()
	evt := OutboundEvent{Type: evtUsersOnline, Payload: online}

	g.mu.RLock()
	targets := make([]*Session, 0, len(g.sessions))
	for s := range g.sessions {
		targets = append(targets, s)
	}
	g.mu.RUnlock()

	for _, s := range targets {
		g.push(s, evt)
	}
}

// push enqueues without ever blocking. A slow consumer loses events rather
// than stalling the gateway; the full-state online broadcast makes that
// recoverable.
func (g *Gateway) push(s *Session, evt OutboundEvent) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if s.state == stateClosed {
		return
	}
	select {
	case s.send <- evt:
	default:
		g.log.Warn("Dropping socket event, send buffer full", "type", evt.Type)
	}
}
