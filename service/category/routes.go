package category

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/miniforum/mini-forum-server/cmd/models"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// Category endpoints are open, including writes. Moderation of category
// churn is handled operationally rather than in the API.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/categories", h.GetCategories).Methods("GET")
	router.HandleFunc("/categories", h.CreateCategory).Methods("POST")
	router.HandleFunc("/categories/{id}", h.GetCategory).Methods("GET")
	router.HandleFunc("/categories/{id}", h.UpdateCategory).Methods("PUT", "PATCH")
	router.HandleFunc("/categories/{id}", h.DeleteCategory).Methods("DELETE")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	var categories []models.Category
	if err := h.db.Order("name ASC").Find(&categories).Error; err != nil {
		http.Error(w, "Error retrieving categories", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	categoryID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid category ID", http.StatusBadRequest)
		return
	}

	var category models.Category
	if err := h.db.First(&category, categoryID).Error; err != nil {
		http.Error(w, "Category not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// CreateCategory adds a category. Names are unique case-insensitively.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
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

	var existing models.Category
	if err := h.db.Where("LOWER(name) = LOWER(?)", name).First(&existing).Error; err == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"name": "A category with this name already exists",
		})
		return
	}

	category := models.Category{Name: name}
	if err := h.db.Create(&category).Error; err != nil {
		http.Error(w, "Error creating category", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	categoryID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid category ID", http.StatusBadRequest)
		return
	}

	var category models.Category
	if err := h.db.First(&category, categoryID).Error; err != nil {
		http.Error(w, "Category not found", http.StatusNotFound)
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

	var existing models.Category
	err = h.db.Where("LOWER(name) = LOWER(?) AND id <> ?", name, category.ID).First(&existing).Error
	if err == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"name": "A category with this name already exists",
		})
		return
	}

	category.Name = name
	if err := h.db.Save(&category).Error; err != nil {
		http.Error(w, "Error updating category", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// DeleteCategory removes a category. Posts referencing it fall back to nil.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	categoryID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid category ID", http.StatusBadRequest)
		return
	}

	var category models.Category
	if err := h.db.First(&category, categoryID).Error; err != nil {
		http.Error(w, "Category not found", http.StatusNotFound)
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).
			Where("category_id = ?", category.ID).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	})
	if err != nil {
		http.Error(w, "Error deleting category", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Category deleted successfully",
	})
}
