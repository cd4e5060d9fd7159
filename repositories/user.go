package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"linguachat/domain"
	apperrors "linguachat/errors"
)

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// storedUser is the on-disk JSON layout of a user profile.
// The relay only ever reads the language preference; the rest belongs to
// the profile collaborator.
type storedUser struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	Language  string `json:"language"`
	CreatedAt int64  `json:"createdAt"`
}

func userKey(id string) []byte {
	return []byte("user:" + id)
}

func (u *UserRepository) UpsertUser(user domain.User) error {
	data, err := json.Marshal(storedUser{
		ID:        user.ID,
		FullName:  user.FullName,
		Language:  user.Language,
		CreatedAt: user.CreatedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return u.db.Update(func(txn *badger.Txn) error {
		return txn.Set(userKey(user.ID), data)
	})
}

func (u *UserRepository) GetUser(id string) (domain.User, error) {
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
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, apperrors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}

	return toUser(stored), nil
}

// SetLanguage updates only the language preference of an existing user.
func (u *UserRepository) SetLanguage(id, language string) error {
	err := u.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err != nil {
			return err
		}
		var stored storedUser
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		}); err != nil {
			return err
		}
		stored.Language = language
		data, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		return txn.Set(userKey(id), data)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return apperrors.ErrUserNotFound
	}
	return err
}

// ListUsers returns every stored user except excludeID, for the sidebar.
func (u *UserRepository) ListUsers(excludeID string) ([]domain.User, error) {
	var users []domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		prefix := []byte("user:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var stored storedUser
				if err := json.Unmarshal(val, &stored); err != nil {
					return err
				}
				if stored.ID != excludeID {
					users = append(users, toUser(stored))
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return users, err
}

func toUser(stored storedUser) domain.User {
	return domain.User{
		ID:        stored.ID,
		FullName:  stored.FullName,
		Language:  stored.Language,
		CreatedAt: time.Unix(stored.CreatedAt, 0).UTC(),
	}
}
