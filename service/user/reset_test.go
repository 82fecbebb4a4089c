package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniforum/mini-forum-server/cmd/models"
)

func testUser() *models.User {
	return &models.User{
		ID:           17,
		Username:     "ada",
		Email:        "ada@example.com",
		PasswordHash: "$2a$10$examplehashexamplehashexamplehash",
	}
}

func TestResetTokenRoundTrip(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	u := testUser()
	now := time.Now()

	token := MakeResetToken(u, now)
	assert.True(t, CheckResetToken(u, token, now))
	assert.True(t, CheckResetToken(u, token, now.Add(ResetTokenLifetime-time.Minute)))
}

func TestResetTokenExpires(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	u := testUser()
	now := time.Now()

	token := MakeResetToken(u, now)
	assert.False(t, CheckResetToken(u, token, now.Add(ResetTokenLifetime+time.Minute)))
}

func TestResetTokenRejectsTampering(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	u := testUser()
	now := time.Now()

	token := MakeResetToken(u, now)

	assert.False(t, CheckResetToken(u, token+"x", now))
	assert.False(t, CheckResetToken(u, "no-dash", now))
	assert.False(t, CheckResetToken(u, "", now))
}

// Changing the password invalidates outstanding tokens, which makes the
// token single-use in practice.
func TestResetTokenInvalidatedByPasswordChange(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	u := testUser()
	now := time.Now()

	token := MakeResetToken(u, now)
	require.True(t, CheckResetToken(u, token, now))

	u.PasswordHash = "$2a$10$differenthashdifferenthashdifferent"
	assert.False(t, CheckResetToken(u, token, now))
}

func TestResetTokenBoundToUser(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	u := testUser()
	now := time.Now()
	token := MakeResetToken(u, now)

	other := testUser()
	other.ID = 18
	assert.False(t, CheckResetToken(other, token, now))
}

func TestUIDCodec(t *testing.T) {
	for _, id := range []uint{1, 17, 99999} {
		encoded := EncodeUID(id)
		decoded, err := DecodeUID(encoded)
		require.NoError(t, err)
		assert.Equal(t, id, decoded)
	}

	_, err := DecodeUID("!!!")
	assert.Error(t, err)

	_, err = DecodeUID(EncodeUID(5) + "x")
	assert.Error(t, err)
}
