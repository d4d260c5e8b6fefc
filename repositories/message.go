//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"strconv"

	"parley/domain"

	"github.com/dgraph-io/badger/v4"
)

type IMessageRepository interface {
	Append(message domain.Message) error
	Count(chatID string) (int, error)
	Page(chatID string, page, limit int) ([]domain.Message, int, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) IMessageRepository {
	return &MessageRepository{db: db, log: log}
}

func messagePrefix(chatID string) string { return "msg:" + chatID + ":" }
func countKey(chatID string) []byte      { return []byte("msgcount:" + chatID) }

// messageKey embeds the per-chat sequence number with 19-digit zero padding
// so lexicographic key order is append order. The message id disambiguates
// nothing here (the sequence already does) but keeps keys self-describing.
func messageKey(chatID string, seq int, id string) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", messagePrefix(chatID), seq, id))
}

// Append stores the message under the next sequence number and bumps the
// per-chat count in the same transaction, so the count key is always exactly
// the number of stored messages. Concurrent appends to the same chat abort
// each other on the count key; the retrying update absorbs that.
func (m MessageRepository) Append(message domain.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	chatID := message.ChatID.String()

	return update(m.db, func(txn *badger.Txn) error {
		seq, err := readCount(txn, chatID)
		if err != nil {
			return err
		}
		if err := txn.Set(messageKey(chatID, seq, message.ID.String()), data); err != nil {
			return err
		}
		return txn.Set(countKey(chatID), []byte(strconv.Itoa(seq+1)))
	})
}

func (m MessageRepository) Count(chatID string) (int, error) {
	var total int
	err := m.db.View(func(txn *badger.Txn) error {
		n, err := readCount(txn, chatID)
		if err != nil {
			return err
		}
		total = n
		return nil
	})
	return total, err
}

// Page returns one page of messages counting backward from the newest, in
// chronological order within the page. Page 1 is the `limit` most recent
// messages, page 2 the `limit` before those, and so on. The index window is
// computed explicitly from the total:
//
//	end = total - (page-1)*limit, start = end - limit (clamped at 0)
//
// A page entirely before the history start is empty. The returned int is the
// total message count for the chat.
func (m MessageRepository) Page(chatID string, page, limit int) ([]domain.Message, int, error) {
	if page < 1 || limit < 1 {
		return nil, 0, fmt.Errorf("page and limit must be >= 1, got page=%d limit=%d", page, limit)
	}

	var messages []domain.Message
	var total int
	err := m.db.View(func(txn *badger.Txn) error {
		n, err := readCount(txn, chatID)
		if err != nil {
			return err
		}
		total = n

		end := total - (page-1)*limit
		start := end - limit
		if end <= 0 {
			return nil
		}
		if start < 0 {
			start = 0
		}

		opts := badger.DefaultIteratorOptions
		prefix := []byte(messagePrefix(chatID))
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		idx := 0
		for it.Rewind(); it.Valid(); it.Next() {
			if idx >= end {
				break
			}
			if idx >= start {
				var message domain.Message
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &message)
				})
				if err != nil {
					return err
				}
				messages = append(messages, message)
			}
			idx++
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func readCount(txn *badger.Txn, chatID string) (int, error) {
	item, err := txn.Get(countKey(chatID))
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var count int
	err = item.Value(func(val []byte) error {
		n, err := strconv.Atoi(string(val))
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	return count, err
}
