package report

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

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
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Report{},
	))
	return db
}

func createReport(h *Handler, userID uint, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/reports", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(context.WithValue(req.Context(), utils.UserIDKey, userID))
	rec := httptest.NewRecorder()
	h.CreateReport(rec, req)
	return rec
}

func TestCreateReportRejectsOwnPost(t *testing.T) {
	db := setupTestDB(t)
	h := NewHandler(db)

	author := models.User{Username: "ada", PasswordHash: "x"}
	require.NoError(t, db.Create(&author).Error)
	post := models.Post{UserID: author.ID, Title: "mine"}
	require.NoError(t, db.Create(&post).Error)

	rec := createReport(h, author.ID, `{"report_type": "post", "post": 1, "action": "delete"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot report your own")

	var count int64
	db.Model(&models.Report{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateReportRejectsOwnComment(t *testing.T) {
	db := setupTestDB(t)
	h := NewHandler(db)

	ada := models.User{Username: "ada", PasswordHash: "x"}
	require.NoError(t, db.Create(&ada).Error)
	ben := models.User{Username: "ben", PasswordHash: "x"}
	require.NoError(t, db.Create(&ben).Error)
	post := models.Post{UserID: ada.ID, Title: "hello"}
	require.NoError(t, db.Create(&post).Error)
	comment := models.Comment{PostID: post.ID, UserID: &ben.ID, Body: "mine"}
	require.NoError(t, db.Create(&comment).Error)

	rec := createReport(h, ben.ID, `{"report_type": "comment", "comment": 1, "action": "edit"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot report your own")
}

func TestCreateReportOnAnotherUsersPost(t *testing.T) {
	db := setupTestDB(t)
	h := NewHandler(db)

	ada := models.User{Username: "ada", PasswordHash: "x"}
	require.NoError(t, db.Create(&ada).Error)
	ben := models.User{Username: "ben", PasswordHash: "x"}
	require.NoError(t, db.Create(&ben).Error)
	post := models.Post{UserID: ada.ID, Title: "hello"}
	require.NoError(t, db.Create(&post).Error)

	rec := createReport(h, ben.ID, `{"report_type": "post", "post": 1, "reason": "spam", "action": "delete"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var report models.Report
	require.NoError(t, db.First(&report).Error)
	assert.Equal(t, ben.ID, *report.UserID)
	assert.Equal(t, post.ID, *report.PostID)
	assert.False(t, report.Resolved)
}
