package category

import (
	"net/http"
	"net/http/httptest"
	"strings"
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
	require.NoError(t, db.AutoMigrate(&models.Category{}, &models.Post{}))
	return db
}

func postJSON(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/categories", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

// Name uniqueness ignores case: "General" blocks "general".
func TestCreateCategoryCaseInsensitiveUniqueness(t *testing.T) {
	h := NewHandler(setupTestDB(t))

	rec := postJSON(h.CreateCategory, `{"name": "General"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(h.CreateCategory, `{"name": "general"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")

	var count int64
	h.db.Model(&models.Category{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCreateCategoryRequiresName(t *testing.T) {
	h := NewHandler(setupTestDB(t))

	rec := postJSON(h.CreateCategory, `{"name": "   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
