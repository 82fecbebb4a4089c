package comment

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/miniforum/mini-forum-server/cmd/models"
	"github.com/miniforum/mini-forum-server/cmd/utils"
	"github.com/miniforum/mini-forum-server/service/user"
)

// Serialize shapes a comment for API responses, deriving likes_count and
// liked_by_user for the requesting principal (0 = anonymous).
func Serialize(db *gorm.DB, c *models.Comment, requesterID uint, r *http.Request) map[string]interface{} {
	var likesCount int64
	db.Model(&models.CommentLike{}).Where("comment_id = ?", c.ID).Count(&likesCount)

	liked := false
	if requesterID != 0 {
		var n int64
		db.Model(&models.CommentLike{}).
			Where("comment_id = ? AND user_id = ?", c.ID, requesterID).
			Count(&n)
		liked = n > 0
	}

	var image interface{}
	if c.ImagePath != "" {
		image = utils.AbsoluteMediaURL(r, c.ImagePath)
	}

	var author interface{}
	if c.User != nil {
		author = user.SerializeUser(c.User, r)
	}

	return map[string]interface{}{
		"id":            c.ID,
		"post":          c.PostID,
		"body":          c.Body,
		"image":         image,
		"user":          author,
		"created_at":    c.CreatedAt,
		"likes_count":   likesCount,
		"liked_by_user": liked,
	}
}
