package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "chat-relay/errors"
)

func Test_Hash_And_Compare_Credential(t *testing.T) {
	req := require.New(t)

	hash, err := HashCredential("correct-horse-battery")
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := CompareCredential("correct-horse-battery", hash)
	req.NoError(err)
	req.True(match)

	match, err = CompareCredential("wrong-credential", hash)
	req.NoError(err)
	req.False(match)
}

func Test_Hash_Is_Salted(t *testing.T) {
	req := require.New(t)

	first, err := HashCredential("same-input")
	req.NoError(err)
	second, err := HashCredential("same-input")
	req.NoError(err)

	// A fresh salt per hash: identical inputs never collide on disk
	req.NotEqual(first, second)
}

func Test_Compare_Malformed_Hash(t *testing.T) {
	req := require.New(t)

	_, err := CompareCredential("anything", "not-a-valid-encoded-hash")

	req.Error(err)
}

func Test_Validate_Registration(t *testing.T) {
	req := require.New(t)

	req.NoError(ValidateRegistration(Registration{
		Username:   "alice",
		Credential: "correct-horse-battery",
	}))
}

func Test_Validate_Registration_Short_Username(t *testing.T) {
	req := require.New(t)

	err := ValidateRegistration(Registration{Username: "a", Credential: "long-enough-credential"})

	req.ErrorIs(err, apperrors.ErrInvalidUsername)
}

func Test_Validate_Registration_Short_Credential(t *testing.T) {
	req := require.New(t)

	err := ValidateRegistration(Registration{Username: "alice", Credential: "short"})

	req.ErrorIs(err, apperrors.ErrInvalidCredential)
}

func Test_Generate_And_Validate_Token(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("user-42", "alice", time.Hour)
	req.NoError(err)
	req.NotEmpty(token)

	claims, err := ValidateToken(token)
	req.NoError(err)
	req.Equal("user-42", claims.UserID)
	req.Equal("alice", claims.Username)
}

func Test_Validate_Expired_Token(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("user-42", "alice", -time.Minute)
	req.NoError(err)

	_, err = ValidateToken(token)
	req.Error(err)
}

func Test_Validate_Garbage_Token(t *testing.T) {
	req := require.New(t)

	_, err := ValidateToken("not.a.token")

	req.Error(err)
}
