package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"parley/domain"
	"parley/errors"
	"parley/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IChatService interface {
	ListForUser(id uuid.UUID) ([]domain.ChatView, error)
	CreatePrivate(requesterID uuid.UUID, targetHandle string) (domain.Chat, bool, error)
	CreateGroup(requesterID uuid.UUID, name, description string) (domain.Chat, error)
	Get(id uuid.UUID) (domain.Chat, error)
}

type ChatService struct {
	chats    repositories.IChatRepository
	users    repositories.IUserRepository
	messages repositories.IMessageRepository
	notifier Notifier
}

func NewChatService(
	chats repositories.IChatRepository,
	users repositories.IUserRepository,
	messages repositories.IMessageRepository,
	notifier Notifier,
) *ChatService {
	return &ChatService{chats: chats, users: users, messages: messages, notifier: notifier}
}

// AssertMember guards every message read/write: a non-participant gets
// Forbidden no matter whether the chat exists.
func AssertMember(chat domain.Chat, userID uuid.UUID) error {
	if !chat.HasParticipant(userID) {
		return fmt.Errorf("%w: not a participant", errors.ErrForbidden)
	}
	return nil
}

func (s *ChatService) Get(id uuid.UUID) (domain.Chat, error) {
	return s.chats.Get(id)
}

// ListForUser returns the user's chats decorated for display: the last
// message, and for private chats the peer's live name, avatar and presence
// substituted at read time (a private chat record stores no fixed name).
// Sorted by last-message time descending, falling back to creation time.
func (s *ChatService) ListForUser(id uuid.UUID) ([]domain.ChatView, error) {
	chats, err := s.chats.ListForUser(id)
	if err != nil {
		return nil, err
	}

	views := make([]domain.ChatView, 0, len(chats))
	for _, chat := range chats {
		view := domain.ChatView{Chat: chat}

		newest, _, err := s.messages.Page(chat.ID.String(), 1, 1)
		if err != nil {
			return nil, err
		}
		if len(newest) == 1 {
			view.LastMessage = lo.ToPtr(newest[0])
		}

		if peerID, ok := chat.OtherParticipant(id); ok {
			peer, err := s.users.Get(peerID)
			if err != nil {
				return nil, err
			}
			view.Name = peer.DisplayName
			view.Avatar = peer.Avatar
			view.PeerID = lo.ToPtr(peerID)
			view.PeerOnline = peer.IsOnline
			view.PeerLastSeen = lo.ToPtr(peer.LastSeenAt)
		}
		views = append(views, view)
	}

	sort.SliceStable(views, func(i, j int) bool {
		return sortStamp(views[i]).After(sortStamp(views[j]))
	})
	return views, nil
}

func sortStamp(view domain.ChatView) time.Time {
	if view.LastMessage != nil {
		return view.LastMessage.CreatedAt
	}
	return view.CreatedAt
}

// CreatePrivate resolves the target by handle and returns the existing chat
// for the pair when there is one: calling it twice, in either direction,
// yields the same chat and never a duplicate. The bool reports whether the
// chat was created by this call.
func (s *ChatService) CreatePrivate(requesterID uuid.UUID, targetHandle string) (domain.Chat, bool, error) {
	target, err := s.users.GetByHandle(targetHandle)
	if err != nil {
		return domain.Chat{}, false, err
	}
	if target.ID == requesterID {
		return domain.Chat{}, false, fmt.Errorf("%w: cannot open a chat with yourself", errors.ErrInvalidArgument)
	}

	if existing, ok, err := s.chats.FindPrivate(requesterID, target.ID); err != nil {
		return domain.Chat{}, false, err
	} else if ok {
		return existing, false, nil
	}

	chat := domain.Chat{
		ID:           uuid.New(),
		Kind:         domain.ChatPrivate,
		Participants: []uuid.UUID{requesterID, target.ID},
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.chats.Create(chat); err != nil {
		// Lost a race against the same pair: the record that won is the
		// one to return.
		if errors.Is(err, errors.ErrConflict) {
			if existing, ok, findErr := s.chats.FindPrivate(requesterID, target.ID); findErr == nil && ok {
				return existing, false, nil
			}
		}
		return domain.Chat{}, false, err
	}

	s.notifier.ChatCreated(chat)
	return chat, true, nil
}

// CreateGroup creates a group chat with the requester as sole participant,
// admin and owner, and appends the system announcement before the chat can
// be read by anyone.
func (s *ChatService) CreateGroup(requesterID uuid.UUID, name, description string) (domain.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Chat{}, fmt.Errorf("%w: group name is required", errors.ErrInvalidArgument)
	}

	creator, err := s.users.Get(requesterID)
	if err != nil {
		return domain.Chat{}, err
	}

	chat := domain.Chat{
		ID:           uuid.New(),
		Kind:         domain.ChatGroup,
		Participants: []uuid.UUID{requesterID},
		Admins:       []uuid.UUID{requesterID},
		Owner:        lo.ToPtr(requesterID),
		Name:         name,
		Description:  description,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.chats.Create(chat); err != nil {
		return domain.Chat{}, err
	}

	announcement := domain.Message{
		ID:        uuid.New(),
		ChatID:    chat.ID,
		SenderID:  domain.SystemSender,
		Content:   fmt.Sprintf("%s created the group %q", creator.DisplayName, name),
		Kind:      domain.MessageSystem,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Append(announcement); err != nil {
		return domain.Chat{}, err
	}

	s.notifier.ChatCreated(chat)
	return chat, nil
}
