package tag

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/miniforum/mini-forum-server/cmd/models"
	"github.com/miniforum/mini-forum-server/cmd/utils"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Tag{}, &models.Post{}))
	return db
}

// Tag writes require authentication, not admin rights.
func TestDeleteTagByRegularUser(t *testing.T) {
	db := setupTestDB(t)
	h := NewHandler(db)

	user := models.User{Username: "ada", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&user).Error)
	tag := models.Tag{Name: "go"}
	require.NoError(t, db.Create(&tag).Error)
	post := models.Post{UserID: user.ID, Title: "hello"}
	require.NoError(t, db.Create(&post).Error)
	require.NoError(t, db.Model(&post).Association("Tags").Append(&tag))

	req := httptest.NewRequest("DELETE", fmt.Sprintf("/tags/%d", tag.ID), nil)
	req = mux.SetURLVars(req, map[string]string{"id": fmt.Sprint(tag.ID)})
	req = req.WithContext(context.WithValue(req.Context(), utils.UserIDKey, user.ID))
	rec := httptest.NewRecorder()
	h.DeleteTag(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var count int64
	db.Model(&models.Tag{}).Count(&count)
	assert.Equal(t, int64(0), count)
	db.Table("post_tags").Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestDeleteTagAnonymousRejected(t *testing.T) {
	db := setupTestDB(t)
	h := NewHandler(db)

	tag := models.Tag{Name: "go"}
	require.NoError(t, db.Create(&tag).Error)

	req := httptest.NewRequest("DELETE", "/tags/1", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	rec := httptest.NewRecorder()
	h.DeleteTag(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var count int64
	db.Model(&models.Tag{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
