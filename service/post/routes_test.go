package post

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/miniforum/mini-forum-server/cmd/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Tag{},
		&models.Post{},
		&models.Comment{},
		&models.PostLike{},
		&models.CommentLike{},
	))
	return db
}

// Toggling twice must return the post to its unliked state.
func TestLikeToggleInvolution(t *testing.T) {
	db := setupTestDB(t)

	user := models.User{Username: "ada", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	post := models.Post{UserID: user.ID, Title: "hello"}
	require.NoError(t, db.Create(&post).Error)

	liked, err := toggleLike(db, user.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	var count int64
	db.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	liked, err = toggleLike(db, user.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	db.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

// Likes from different users accumulate independently of each other's toggles.
func TestLikeTogglePerUser(t *testing.T) {
	db := setupTestDB(t)

	ada := models.User{Username: "ada", PasswordHash: "x"}
	require.NoError(t, db.Create(&ada).Error)
	ben := models.User{Username: "ben", PasswordHash: "x"}
	require.NoError(t, db.Create(&ben).Error)
	post := models.Post{UserID: ada.ID, Title: "hello"}
	require.NoError(t, db.Create(&post).Error)

	_, err := toggleLike(db, ada.ID, post.ID)
	require.NoError(t, err)
	_, err = toggleLike(db, ben.ID, post.ID)
	require.NoError(t, err)

	var count int64
	db.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&count)
	assert.Equal(t, int64(2), count)

	liked, err := toggleLike(db, ada.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	db.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}
