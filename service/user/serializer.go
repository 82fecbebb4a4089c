package user

import (
	"net/http"

	"github.com/miniforum/mini-forum-server/cmd/models"
	"github.com/miniforum/mini-forum-server/cmd/utils"
)

// SerializeUser shapes a user for API responses. The avatar is always an
// absolute URL, falling back to the default avatar when none was uploaded;
// the social column is decoded from its stored text form.
func SerializeUser(u *models.User, r *http.Request) map[string]interface{} {
	avatarPath := u.AvatarPath
	if avatarPath == "" {
		avatarPath = models.DefaultAvatarPath
	}

	return map[string]interface{}{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"bio":      u.Bio,
		"avatar":   utils.AbsoluteMediaURL(r, avatarPath),
		"role":     u.Role,
		"is_staff": u.IsStaff,
		"social":   utils.DecodeSocial(u.Social),
	}
}

// SerializeUserBrief is the compact author shape embedded in posts and
// comments. Unlike the full form, the avatar stays null when unset.
func SerializeUserBrief(u *models.User, r *http.Request) map[string]interface{} {
	if u == nil {
		return map[string]interface{}{
			"id":       nil,
			"username": "Anonymous",
			"avatar":   nil,
		}
	}

	var avatar interface{}
	if u.AvatarPath != "" {
		avatar = utils.AbsoluteMediaURL(r, u.AvatarPath)
	}

	return map[string]interface{}{
		"id":       u.ID,
		"username": u.Username,
		"avatar":   avatar,
	}
}
