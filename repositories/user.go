//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"strings"
	"time"

	"parley/domain"
	"parley/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	Create(user domain.User) error
	Get(id uuid.UUID) (domain.User, error)
	GetByHandle(handle string) (domain.User, error)
	Update(user domain.User) error
	SetPresence(id uuid.UUID, online bool) (domain.User, error)
	All() ([]domain.User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// storedUser is the persistent representation. It exists because the domain
// type hides PasswordHash from JSON serialization, and the store must not.
type storedUser struct {
	ID           string    `json:"id"`
	Handle       string    `json:"handle"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Avatar       string    `json:"avatar"`
	Status       string    `json:"status"`
	Bio          string    `json:"bio"`
	PasswordHash string    `json:"password_hash"`
	IsOnline     bool      `json:"is_online"`
	LastSeenAt   time.Time `json:"last_seen_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func userKey(id uuid.UUID) []byte    { return []byte("user:" + id.String()) }
func handleKey(handle string) []byte { return []byte("handle:" + strings.ToLower(handle)) }
func emailKey(email string) []byte   { return []byte("email:" + strings.ToLower(email)) }

// Create persists the user and its case-insensitive handle/email index keys
// in a single transaction. Either index key already existing is a conflict;
// two racing registrations of the same handle resolve through the retrying
// update, so the loser sees the conflict sentinel rather than an aborted
// transaction.
func (u UserRepository) Create(user domain.User) error {
	data, err := json.Marshal(fromUser(user))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	return update(u.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(handleKey(user.Handle)); err == nil {
			return fmt.Errorf("%w: handle", errors.ErrConflict)
		}
		if _, err := txn.Get(emailKey(user.Email)); err == nil {
			return fmt.Errorf("%w: email", errors.ErrConflict)
		}
		if err := txn.Set(userKey(user.ID), data); err != nil {
			return err
		}
		if err := txn.Set(handleKey(user.Handle), []byte(user.ID.String())); err != nil {
			return err
		}
		return txn.Set(emailKey(user.Email), []byte(user.ID.String()))
	})
}

func (u UserRepository) Get(id uuid.UUID) (domain.User, error) {
	var stored storedUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, fmt.Errorf("%w: user", errors.ErrNotFound)
	}
	if err != nil {
		return domain.User{}, err
	}
	return toUser(stored)
}

// GetByHandle resolves the case-insensitive handle index, then the record.
func (u UserRepository) GetByHandle(handle string) (domain.User, error) {
	var id uuid.UUID
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(handleKey(handle))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			parsed, err := uuid.Parse(string(val))
			if err != nil {
				return err
			}
			id = parsed
			return nil
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, fmt.Errorf("%w: user", errors.ErrNotFound)
	}
	if err != nil {
		return domain.User{}, err
	}
	return u.Get(id)
}

// Update rewrites the user record. Handle and email index keys are never
// touched here; those fields are immutable after Create.
func (u UserRepository) Update(user domain.User) error {
	data, err := json.Marshal(fromUser(user))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return update(u.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(user.ID)); err != nil {
			if goerrors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: user", errors.ErrNotFound)
			}
			return err
		}
		return txn.Set(userKey(user.ID), data)
	})
}

// SetPresence flips the online flag and stamps LastSeenAt on every
// transition, in both directions.
func (u UserRepository) SetPresence(id uuid.UUID, online bool) (domain.User, error) {
	user, err := u.Get(id)
	if err != nil {
		return domain.User{}, err
	}
	user.IsOnline = online
	user.LastSeenAt = time.Now().UTC()
	if err := u.Update(user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// All scans every user record. Used for seeding the search index at startup.
func (u UserRepository) All() ([]domain.User, error) {
	var users []domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("user:")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var stored storedUser
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &stored)
			})
			if err != nil {
				return err
			}
			user, err := toUser(stored)
			if err != nil {
				return err
			}
			users = append(users, user)
		}
		return nil
	})
	return users, err
}

func fromUser(user domain.User) storedUser {
	return storedUser{
		ID:           user.ID.String(),
		Handle:       user.Handle,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		Avatar:       user.Avatar,
		Status:       user.Status,
		Bio:          user.Bio,
		PasswordHash: user.PasswordHash,
		IsOnline:     user.IsOnline,
		LastSeenAt:   user.LastSeenAt,
		CreatedAt:    user.CreatedAt,
	}
}

func toUser(stored storedUser) (domain.User, error) {
	id, err := uuid.Parse(stored.ID)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:           id,
		Handle:       stored.Handle,
		Email:        stored.Email,
		DisplayName:  stored.DisplayName,
		Avatar:       stored.Avatar,
		Status:       stored.Status,
		Bio:          stored.Bio,
		PasswordHash: stored.PasswordHash,
		IsOnline:     stored.IsOnline,
		LastSeenAt:   stored.LastSeenAt,
		CreatedAt:    stored.CreatedAt,
	}, nil
}
