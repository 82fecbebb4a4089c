package tag

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/miniforum/mini-forum-server/cmd/models"
	"github.com/miniforum/mini-forum-server/cmd/utils"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/tags/popular", h.GetPopularTags).Methods("GET")

	router.HandleFunc("/tags", h.GetTags).Methods("GET")
	router.HandleFunc("/tags", utils.AuthMiddleware(h.CreateTag)).Methods("POST")
	router.HandleFunc("/tags/{id}", h.GetTag).Methods("GET")
	router.HandleFunc("/tags/{id}", utils.AuthMiddleware(h.UpdateTag)).Methods("PUT", "PATCH")
	router.HandleFunc("/tags/{id}", utils.AuthMiddleware(h.DeleteTag)).Methods("DELETE")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) requester(r *http.Request) (*models.User, error) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (h *Handler) GetTags(w http.ResponseWriter, r *http.Request) {
	var tags []models.Tag
	if err := h.db.Order("name ASC").Find(&tags).Error; err != nil {
		http.Error(w, "Error retrieving tags", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// GetPopularTags returns the five tags attached to the most posts, with
// their usage counts.
func (h *Handler) GetPopularTags(w http.ResponseWriter, r *http.Request) {
	type tagUsage struct {
		ID        uint   `json:"id"`
		Name      string `json:"name"`
		PostCount int64  `json:"post_count"`
	}

	rows := []tagUsage{}
	err := h.db.Table("tags").
		Select("tags.id, tags.name, COUNT(post_tags.post_id) AS post_count").
		Joins("LEFT JOIN post_tags ON post_tags.tag_id = tags.id").
		Group("tags.id, tags.name").
		Order("post_count DESC").
		Limit(5).
		Scan(&rows).Error
	if err != nil {
		http.Error(w, "Error retrieving popular tags", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) GetTag(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tagID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid tag ID", http.StatusBadRequest)
		return
	}

	var tag models.Tag
	if err := h.db.First(&tag, tagID).Error; err != nil {
		http.Error(w, "Tag not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// CreateTag is idempotent on name: posting an existing name returns the
// existing tag rather than an error.
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	if _, err := h.requester(r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"name": "name is required"})
		return
	}

	var tag models.Tag
	if err := h.db.Where("LOWER(name) = LOWER(?)", name).First(&tag).Error; err == nil {
		writeJSON(w, http.StatusOK, tag)
		return
	}

	tag = models.Tag{Name: name}
	if err := h.db.Create(&tag).Error; err != nil {
		http.Error(w, "Error creating tag", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

func (h *Handler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tagID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid tag ID", http.StatusBadRequest)
		return
	}

	if _, err := h.requester(r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var tag models.Tag
	if err := h.db.First(&tag, tagID).Error; err != nil {
		http.Error(w, "Tag not found", http.StatusNotFound)
		return
	}

	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"name": "name is required"})
		return
	}

	var existing models.Tag
	if err := h.db.Where("LOWER(name) = LOWER(?) AND id <> ?", name, tag.ID).First(&existing).Error; err == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"name": "A tag with this name already exists",
		})
		return
	}

	tag.Name = name
	if err := h.db.Save(&tag).Error; err != nil {
		http.Error(w, "Error updating tag", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// DeleteTag removes a tag and its post links.
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tagID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid tag ID", http.StatusBadRequest)
		return
	}

	if _, err := h.requester(r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var tag models.Tag
	if err := h.db.First(&tag, tagID).Error; err != nil {
		http.Error(w, "Tag not found", http.StatusNotFound)
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM post_tags WHERE tag_id = ?", tag.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&tag).Error
	})
	if err != nil {
		http.Error(w, "Error deleting tag", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Tag deleted successfully",
	})
}
