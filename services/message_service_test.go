package services

import (
	"log/slog"
	"strings"
	"testing"

	"parley/domain"
	"parley/errors"
	"parley/moderation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMessageService_Send(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")
	f.register(t, "bob")
	mallory := f.register(t, "mallory")

	chat, _, err := f.chatSvc.CreatePrivate(alice.ID, "bob")
	require.NoError(t, err)

	t.Run("should append and hand the message to the notifier", func(t *testing.T) {
		req := require.New(t)
		message, err := f.messageSvc.Send(chat.ID, alice.ID, "  hello  ", domain.MessageText)
		req.NoError(err)
		req.Equal("hello", message.Content)
		req.Equal(alice.ID.String(), message.SenderID)
		req.Equal(domain.MessageText, message.Kind)
		req.Len(f.notifier.messages, 1)
		req.Equal(message.ID, f.notifier.messages[0].ID)
	})

	t.Run("should reject whitespace-only content", func(t *testing.T) {
		req := require.New(t)
		_, err := f.messageSvc.Send(chat.ID, alice.ID, "   \n\t ", domain.MessageText)
		req.ErrorIs(err, errors.ErrInvalidArgument)
	})

	t.Run("should reject over-long content", func(t *testing.T) {
		req := require.New(t)
		_, err := f.messageSvc.Send(chat.ID, alice.ID, strings.Repeat("x", 5000), domain.MessageText)
		req.ErrorIs(err, errors.ErrContentTooLong)
	})

	t.Run("should forbid a non-participant", func(t *testing.T) {
		req := require.New(t)
		_, err := f.messageSvc.Send(chat.ID, mallory.ID, "let me in", domain.MessageText)
		req.ErrorIs(err, errors.ErrForbidden)
	})

	t.Run("should forbid writes to an unknown chat too", func(t *testing.T) {
		req := require.New(t)
		_, err := f.messageSvc.Send(uuid.New(), mallory.ID, "probe", domain.MessageText)
		req.ErrorIs(err, errors.ErrForbidden)
	})
}

func TestMessageService_SendCensorsContent(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.register(t, "alice")
	f.register(t, "bob")

	moderator, err := moderation.NewModerator([]string{"badger"}, '*', slog.Default())
	req.NoError(err)
	svc := NewMessageService(f.chats, f.messages, moderator, f.notifier, slog.Default(), 4096)

	chat, _, err := f.chatSvc.CreatePrivate(alice.ID, "bob")
	req.NoError(err)

	message, err := svc.Send(chat.ID, alice.ID, "release the badger now", domain.MessageText)
	req.NoError(err)
	req.Equal("release the ****** now", message.Content)

	// The stored copy is the censored one.
	stored, _, err := f.messages.Page(chat.ID.String(), 1, 1)
	req.NoError(err)
	req.Equal("release the ****** now", stored[0].Content)
}

func TestMessageService_History(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")
	f.register(t, "bob")
	mallory := f.register(t, "mallory")

	chat, _, err := f.chatSvc.CreatePrivate(alice.ID, "bob")
	require.NoError(t, err)

	var sent []domain.Message
	for _, text := range []string{"m1", "m2", "m3"} {
		message, err := f.messageSvc.Send(chat.ID, alice.ID, text, domain.MessageText)
		require.NoError(t, err)
		sent = append(sent, message)
	}

	t.Run("should page backward from the newest", func(t *testing.T) {
		req := require.New(t)
		page1, pagination, err := f.messageSvc.History(chat.ID, alice.ID, 1, 2)
		req.NoError(err)
		req.Equal([]domain.Message{sent[1], sent[2]}, page1)
		req.True(pagination.HasMore)
		req.Equal(3, pagination.Total)

		page2, pagination, err := f.messageSvc.History(chat.ID, alice.ID, 2, 2)
		req.NoError(err)
		req.Equal([]domain.Message{sent[0]}, page2)
		req.False(pagination.HasMore)

		page3, pagination, err := f.messageSvc.History(chat.ID, alice.ID, 3, 2)
		req.NoError(err)
		req.Empty(page3)
		req.False(pagination.HasMore)
	})

	t.Run("should forbid a non-participant regardless of chat existence", func(t *testing.T) {
		req := require.New(t)
		_, _, err := f.messageSvc.History(chat.ID, mallory.ID, 1, 10)
		req.ErrorIs(err, errors.ErrForbidden)

		_, _, err = f.messageSvc.History(uuid.New(), mallory.ID, 1, 10)
		req.ErrorIs(err, errors.ErrForbidden)
	})

	t.Run("should reject a non-positive limit", func(t *testing.T) {
		req := require.New(t)
		_, _, err := f.messageSvc.History(chat.ID, alice.ID, 1, 0)
		req.ErrorIs(err, errors.ErrInvalidArgument)
	})
}
