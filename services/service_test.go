package services

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"parley/auth"
	"parley/domain"
	"parley/repositories"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

// fixture wires every service over a throwaway badger + bluge pair, the way
// the real main does, so service tests exercise the actual storage layer.
type fixture struct {
	users    repositories.IUserRepository
	chats    repositories.IChatRepository
	messages repositories.IMessageRepository
	index    repositories.IUserIndex
	notifier *recordingNotifier

	authSvc    IAuthService
	chatSvc    *ChatService
	messageSvc *MessageService
	userSvc    IUserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })

	f := &fixture{
		users:    repositories.NewUserRepository(db),
		chats:    repositories.NewChatRepository(db),
		messages: repositories.NewMessageRepository(db, slog.Default()),
		index:    repositories.NewUserIndex(writer),
		notifier: &recordingNotifier{},
	}

	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	f.authSvc = NewAuthService(f.users, f.index, tokens)
	f.chatSvc = NewChatService(f.chats, f.users, f.messages, f.notifier)
	f.messageSvc = NewMessageService(f.chats, f.messages, nil, f.notifier, slog.Default(), 4096)
	f.userSvc = NewUserService(f.users, f.index)
	return f
}

func (f *fixture) register(t *testing.T, handle string) domain.User {
	t.Helper()
	user, token, err := f.authSvc.Register(handle, handle+"@example.com", "ComplexPass123", "")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	return user
}

type recordingNotifier struct {
	mu           sync.Mutex
	chatsCreated []domain.Chat
	messages     []domain.Message
}

func (n *recordingNotifier) ChatCreated(chat domain.Chat) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.chatsCreated = append(n.chatsCreated, chat)
}

func (n *recordingNotifier) NewMessage(_ domain.Chat, message domain.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) createdCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.chatsCreated)
}
