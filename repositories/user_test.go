package repositories

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	apperrors "chat-relay/errors"
)

func newTestDB(t *testing.T) *badger.DB {
	opts := badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Create_And_Find_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(newTestDB(t))

	created, err := repository.CreateUser("alice", "$argon2id$fake-hash")
	req.NoError(err)
	req.Equal("alice", created.Name)
	req.NotZero(created.ID)

	found, err := repository.FindUserByName("alice")
	req.NoError(err)
	req.Equal(created.ID, found.ID)
	req.Equal("$argon2id$fake-hash", found.CredentialHash)
}

func Test_Find_Unknown_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(newTestDB(t))

	_, err := repository.FindUserByName("nobody")

	req.ErrorIs(err, apperrors.ErrUnknownUser)
}

func Test_Create_Duplicate_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(newTestDB(t))

	_, err := repository.CreateUser("alice", "hash1")
	req.NoError(err)

	_, err = repository.CreateUser("alice", "hash2")
	req.ErrorIs(err, apperrors.ErrUserAlreadyExists)

	// The original record survives the failed duplicate
	found, err := repository.FindUserByName("alice")
	req.NoError(err)
	req.Equal("hash1", found.CredentialHash)
}

func Test_Usernames_Are_Case_Sensitive(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(newTestDB(t))

	_, err := repository.CreateUser("alice", "hash")
	req.NoError(err)

	_, err = repository.FindUserByName("Alice")
	req.ErrorIs(err, apperrors.ErrUnknownUser)
}

func Test_List_All_Users_And_Name_Index(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(newTestDB(t))

	alice, err := repository.CreateUser("alice", "hash")
	req.NoError(err)
	bob, err := repository.CreateUser("bob", "hash")
	req.NoError(err)

	users, err := repository.ListAllUsers()
	req.NoError(err)
	req.Len(users, 2)

	names := UserNamesByID(users)
	req.Equal("alice", names[alice.ID])
	req.Equal("bob", names[bob.ID])
}
