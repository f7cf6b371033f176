//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	apperrors "chat-relay/errors"
	"encoding/json"
	"fmt"
	"time"

	"chat-relay/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IUserRepository interface {
	FindUserByName(name string) (domain.User, error)
	CreateUser(name, credentialHash string) (domain.User, error)
	ListAllUsers() ([]domain.User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// diskUser is the storage representation of a user record.
type diskUser struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	CredentialHash string `json:"credential_hash"`
	CreatedAt      int64  `json:"created_at"`
}

const userKeyPrefix = "user:"

// CreateUser persists a new identity under "user:{name}".
// The name is the uniqueness key; a second create for the same name fails
// with ErrUserAlreadyExists.
func (u UserRepository) CreateUser(name, credentialHash string) (domain.User, error) {
	user := domain.User{
		ID:             uuid.New(),
		Name:           name,
		CredentialHash: credentialHash,
		CreatedAt:      time.Now().UTC(),
	}

	data, err := json.Marshal(fromUser(user))
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		key := []byte(userKeyPrefix + name)
		if _, err = txn.Get(key); err == nil {
			return apperrors.ErrUserAlreadyExists
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// FindUserByName resolves a username. Names are case-sensitive.
func (u UserRepository) FindUserByName(name string) (domain.User, error) {
	var record diskUser

	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userKeyPrefix + name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.User{}, apperrors.ErrUnknownUser
	}
	if err != nil {
		return domain.User{}, err
	}
	return toUser(record)
}

// ListAllUsers scans the full user prefix. The user base is bounded by the
// open-registration surface, so a plain scan is acceptable here.
func (u UserRepository) ListAllUsers() ([]domain.User, error) {
	var records []diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(userKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var record diskUser
				if err := json.Unmarshal(val, &record); err != nil {
					return err
				}
				records = append(records, record)
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

	users := make([]domain.User, 0, len(records))
	for _, record := range records {
		user, err := toUser(record)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func fromUser(user domain.User) diskUser {
	return diskUser{
		ID:             user.ID.String(),
		Name:           user.Name,
		CredentialHash: user.CredentialHash,
		CreatedAt:      user.CreatedAt.Unix(),
	}
}

func toUser(record diskUser) (domain.User, error) {
	parsedID, err := uuid.Parse(record.ID)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:             parsedID,
		Name:           record.Name,
		CredentialHash: record.CredentialHash,
		CreatedAt:      time.Unix(record.CreatedAt, 0).UTC(),
	}, nil
}

// UserNamesByID builds the senderId-to-display-name index used when
// annotating history replays.
func UserNamesByID(users []domain.User) map[uuid.UUID]string {
	return lo.SliceToMap(users, func(user domain.User) (uuid.UUID, string) {
		return user.ID, user.Name
	})
}
