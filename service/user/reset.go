package user

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/miniforum/mini-forum-server/cmd/models"
)

// ResetTokenLifetime bounds how long a password-reset link stays usable.
const ResetTokenLifetime = time.Hour

// MakeResetToken signs a single-use reset token for the user. The signature
// covers the current password hash, so changing the password (including via
// the token itself) invalidates every previously issued token.
func MakeResetToken(u *models.User, now time.Time) string {
	expiry := now.Add(ResetTokenLifetime).Unix()
	return fmt.Sprintf("%s-%s", strconv.FormatInt(expiry, 36), resetSignature(u, expiry))
}

// CheckResetToken validates a token against the user's current state.
func CheckResetToken(u *models.User, token string, now time.Time) bool {
	parts := strings.SplitN(token, "-", 2)
	if len(parts) != 2 {
		return false
	}

	expiry, err := strconv.ParseInt(parts[0], 36, 64)
	if err != nil {
		return false
	}
	if now.Unix() > expiry {
		return false
	}

	expected := resetSignature(u, expiry)
	return hmac.Equal([]byte(expected), []byte(parts[1]))
}

func resetSignature(u *models.User, expiry int64) string {
	mac := hmac.New(sha256.New, []byte(os.Getenv("SECRET_KEY")))
	fmt.Fprintf(mac, "password-reset:%d:%s:%d", u.ID, u.PasswordHash, expiry)
	return hex.EncodeToString(mac.Sum(nil))
}

// EncodeUID renders a user ID in the url-safe form embedded in reset links.
func EncodeUID(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}

// DecodeUID reverses EncodeUID.
func DecodeUID(encoded string) (uint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
