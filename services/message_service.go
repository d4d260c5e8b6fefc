package services

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"parley/domain"
	"parley/errors"
	"parley/moderation"
	"parley/repositories"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
)

type IMessageService interface {
	Send(chatID, senderID uuid.UUID, content string, kind domain.MessageKind) (domain.Message, error)
	History(chatID, requesterID uuid.UUID, page, limit int) ([]domain.Message, Pagination, error)
}

type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}

type MessageService struct {
	chats      repositories.IChatRepository
	messages   repositories.IMessageRepository
	moderator  *moderation.Moderator
	notifier   Notifier
	log        *slog.Logger
	maxContent int
}

// NewMessageService wires message writes and reads. moderator may be nil,
// which disables censoring.
func NewMessageService(
	chats repositories.IChatRepository,
	messages repositories.IMessageRepository,
	moderator *moderation.Moderator,
	notifier Notifier,
	log *slog.Logger,
	maxContent int,
) *MessageService {
	return &MessageService{
		chats:      chats,
		messages:   messages,
		moderator:  moderator,
		notifier:   notifier,
		log:        log,
		maxContent: maxContent,
	}
}

// Send appends a message to the chat's log and hands it to the notifier for
// fanout. The append is durable before any delivery is attempted, so an
// offline participant still finds the message on the next page fetch.
func (s *MessageService) Send(chatID, senderID uuid.UUID, content string, kind domain.MessageKind) (domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Message{}, fmt.Errorf("%w: empty message", errors.ErrInvalidArgument)
	}
	if s.maxContent > 0 && len(content) > s.maxContent {
		return domain.Message{}, fmt.Errorf("%w: max %d bytes", errors.ErrContentTooLong, s.maxContent)
	}
	if kind == "" {
		kind = domain.MessageText
	}

	chat, err := s.memberChat(chatID, senderID)
	if err != nil {
		return domain.Message{}, err
	}

	if s.moderator != nil {
		censored, matched := s.moderator.Censor(content)
		if len(matched) > 0 {
			info := whatlanggo.Detect(content)
			s.log.Debug("Message content censored",
				"chat", chatID, "matches", len(matched), "lang", info.Lang.Iso6391())
			content = censored
		}
	}

	message := domain.Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		SenderID:  senderID.String(),
		Content:   content,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Append(message); err != nil {
		return domain.Message{}, err
	}

	s.notifier.NewMessage(chat, message)
	return message, nil
}

// memberChat loads the chat and enforces membership. An unknown chat is
// reported as Forbidden too: message endpoints never reveal which chat ids
// exist to someone who isn't in them.
func (s *MessageService) memberChat(chatID, userID uuid.UUID) (domain.Chat, error) {
	chat, err := s.chats.Get(chatID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return domain.Chat{}, fmt.Errorf("%w: not a participant", errors.ErrForbidden)
		}
		return domain.Chat{}, err
	}
	if err := AssertMember(chat, userID); err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

// History returns one page of the chat's log for a participant, newest page
// first, chronological within the page.
func (s *MessageService) History(chatID, requesterID uuid.UUID, page, limit int) ([]domain.Message, Pagination, error) {
	if _, err := s.memberChat(chatID, requesterID); err != nil {
		return nil, Pagination{}, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return nil, Pagination{}, fmt.Errorf("%w: limit must be >= 1", errors.ErrInvalidArgument)
	}

	messages, total, err := s.messages.Page(chatID.String(), page, limit)
	if err != nil {
		return nil, Pagination{}, err
	}

	return messages, Pagination{
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasMore: total-page*limit > 0,
	}, nil
}
