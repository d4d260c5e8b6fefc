//go:generate go run go.uber.org/mock/mockgen -source=chat.go -destination=../mocks/mock_chat_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"

	"parley/domain"
	"parley/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IChatRepository interface {
	Create(chat domain.Chat) error
	Get(id uuid.UUID) (domain.Chat, error)
	FindPrivate(a, b uuid.UUID) (domain.Chat, bool, error)
	ListForUser(id uuid.UUID) ([]domain.Chat, error)
}

type ChatRepository struct {
	db *badger.DB
}

func NewChatRepository(db *badger.DB) IChatRepository {
	return &ChatRepository{db: db}
}

func chatKey(id uuid.UUID) []byte { return []byte("chat:" + id.String()) }
func pairKey(key string) []byte   { return []byte("pair:" + key) }

func memberKey(userID, chatID uuid.UUID) []byte {
	return []byte("member:" + userID.String() + ":" + chatID.String())
}

// Create persists the chat, one membership index key per participant and,
// for private chats, the unordered-pair index key. All in one transaction:
// the pair key already existing means another private chat for the same two
// identities and is a conflict. Racing creates for the same pair resolve
// through the retrying update, so the loser observes the conflict sentinel.
func (c ChatRepository) Create(chat domain.Chat) error {
	data, err := json.Marshal(chat)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	return update(c.db, func(txn *badger.Txn) error {
		if chat.Kind == domain.ChatPrivate {
			key := pairKey(domain.PairKey(chat.Participants[0], chat.Participants[1]))
			if _, err := txn.Get(key); err == nil {
				return fmt.Errorf("%w: private chat", errors.ErrConflict)
			}
			if err := txn.Set(key, []byte(chat.ID.String())); err != nil {
				return err
			}
		}
		for _, p := range chat.Participants {
			if err := txn.Set(memberKey(p, chat.ID), []byte(chat.ID.String())); err != nil {
				return err
			}
		}
		return txn.Set(chatKey(chat.ID), data)
	})
}

func (c ChatRepository) Get(id uuid.UUID) (domain.Chat, error) {
	var chat domain.Chat
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chatKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &chat)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Chat{}, fmt.Errorf("%w: chat", errors.ErrNotFound)
	}
	return chat, err
}

// FindPrivate resolves the unordered-pair index. The boolean is false when
// no private chat exists for the pair; that is not an error.
func (c ChatRepository) FindPrivate(a, b uuid.UUID) (domain.Chat, bool, error) {
	var chatID uuid.UUID
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pairKey(domain.PairKey(a, b)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			parsed, err := uuid.Parse(string(val))
			if err != nil {
				return err
			}
			chatID = parsed
			return nil
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Chat{}, false, nil
	}
	if err != nil {
		return domain.Chat{}, false, err
	}
	chat, err := c.Get(chatID)
	if err != nil {
		return domain.Chat{}, false, err
	}
	return chat, true, nil
}

// ListForUser walks the membership index prefix and loads each chat.
func (c ChatRepository) ListForUser(id uuid.UUID) ([]domain.Chat, error) {
	var chatIDs []uuid.UUID
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("member:" + id.String() + ":")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				parsed, err := uuid.Parse(string(val))
				if err != nil {
					return err
				}
				chatIDs = append(chatIDs, parsed)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	chats := make([]domain.Chat, 0, len(chatIDs))
	for _, chatID := range chatIDs {
		chat, err := c.Get(chatID)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, nil
}
