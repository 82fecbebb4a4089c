package comment

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
	router.HandleFunc("/comments", utils.OptionalAuth(h.GetComments)).Methods("GET")
	router.HandleFunc("/comments", utils.AuthMiddleware(h.CreateComment)).Methods("POST")
	router.HandleFunc("/comments/{id}", utils.OptionalAuth(h.GetComment)).Methods("GET")
	router.HandleFunc("/comments/{id}", utils.AuthMiddleware(h.UpdateComment)).Methods("PUT", "PATCH")
	router.HandleFunc("/comments/{id}", utils.AuthMiddleware(h.DeleteComment)).Methods("DELETE")
	router.HandleFunc("/comments/{id}/like-toggle", utils.AuthMiddleware(h.LikeToggle)).Methods("POST")
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

type commentInput struct {
	PostID   *uint
	Body     *string
	ImageSet bool
	Image    string
}

// parseInput accepts both JSON bodies and multipart forms with an image part.
func (h *Handler) parseInput(r *http.Request) (*commentInput, error) {
	input := &commentInput{}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(utils.MaxImageSize); err != nil {
			return nil, err
		}
		if vals, ok := r.MultipartForm.Value["post"]; ok && len(vals) > 0 {
			if id, err := strconv.ParseUint(vals[0], 10, 64); err == nil {
				postID := uint(id)
				input.PostID = &postID
			}
		}
		if vals, ok := r.MultipartForm.Value["body"]; ok && len(vals) > 0 {
			body := vals[0]
			input.Body = &body
		}
		if file, header, err := r.FormFile("image"); err == nil {
			defer file.Close()
			imagePath, err := utils.SaveImage(file, header, "comments")
			if err != nil {
				return nil, err
			}
			input.ImageSet = true
			input.Image = imagePath
		}
		return input, nil
	}

	var payload struct {
		Post *uint   `json:"post"`
		Body *string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return nil, err
	}
	input.PostID = payload.Post
	input.Body = payload.Body
	return input, nil
}

// GetComments lists comments, optionally scoped by ?post= and/or ?user=.
// Unparsable filter values are ignored rather than failing the request.
func (h *Handler) GetComments(w http.ResponseWriter, r *http.Request) {
	requesterID, _ := utils.GetUserIDFromContext(r.Context())

	query := h.db.Model(&models.Comment{}).Preload("User").Order("created_at DESC")

	if raw := r.URL.Query().Get("post"); raw != "" {
		if postID, err := strconv.ParseUint(raw, 10, 64); err == nil {
			query = query.Where("post_id = ?", postID)
		}
	}
	if raw := r.URL.Query().Get("user"); raw != "" {
		if userID, err := strconv.ParseUint(raw, 10, 64); err == nil {
			query = query.Where("user_id = ?", userID)
		}
	}

	var comments []models.Comment
	if err := query.Find(&comments).Error; err != nil {
		http.Error(w, "Error retrieving comments", http.StatusInternalServerError)
		return
	}

	response := make([]map[string]interface{}, 0, len(comments))
	for i := range comments {
		response = append(response, Serialize(h.db, &comments[i], requesterID, r))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) GetComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	commentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid comment ID", http.StatusBadRequest)
		return
	}

	requesterID, _ := utils.GetUserIDFromContext(r.Context())

	var comment models.Comment
	if err := h.db.Preload("User").First(&comment, commentID).Error; err != nil {
		http.Error(w, "Comment not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, Serialize(h.db, &comment, requesterID, r))
}

// CreateComment adds a comment to a post; the author comes from the token.
// A comment needs a body or an image, never neither.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	requester, err := h.requester(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	input, err := h.parseInput(r)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if input.PostID == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"post": "post is required"})
		return
	}

	var post models.Post
	if err := h.db.First(&post, *input.PostID).Error; err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"post": "post does not exist"})
		return
	}

	body := ""
	if input.Body != nil {
		body = *input.Body
	}
	if strings.TrimSpace(body) == "" && input.Image == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"detail": "A comment needs either text or an image",
		})
		return
	}

	comment := models.Comment{
		PostID:    post.ID,
		UserID:    &requester.ID,
		Body:      body,
		ImagePath: input.Image,
	}

	if err := h.db.Create(&comment).Error; err != nil {
		http.Error(w, "Error creating comment", http.StatusInternalServerError)
		return
	}

	comment.User = requester
	writeJSON(w, http.StatusCreated, Serialize(h.db, &comment, requester.ID, r))
}

// UpdateComment edits body/image. Owner or admin only.
func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	commentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid comment ID", http.StatusBadRequest)
		return
	}

	requester, err := h.requester(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var comment models.Comment
	if err := h.db.Preload("User").First(&comment, commentID).Error; err != nil {
		http.Error(w, "Comment not found", http.StatusNotFound)
		return
	}

	if !requester.IsAdmin() && (comment.UserID == nil || *comment.UserID != requester.ID) {
		http.Error(w, "You do not have permission to perform this action", http.StatusForbidden)
		return
	}

	input, err := h.parseInput(r)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if input.Body != nil {
		comment.Body = *input.Body
	}
	if input.ImageSet {
		if comment.ImagePath != "" {
			utils.DeleteImage(comment.ImagePath)
		}
		comment.ImagePath = input.Image
	}

	if strings.TrimSpace(comment.Body) == "" && comment.ImagePath == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"detail": "A comment needs either text or an image",
		})
		return
	}

	if err := h.db.Save(&comment).Error; err != nil {
		http.Error(w, "Error updating comment", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, Serialize(h.db, &comment, requester.ID, r))
}

// DeleteComment removes a comment and its likes. Owner or admin only.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	commentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid comment ID", http.StatusBadRequest)
		return
	}

	requester, err := h.requester(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, commentID).Error; err != nil {
		http.Error(w, "Comment not found", http.StatusNotFound)
		return
	}

	if !requester.IsAdmin() && (comment.UserID == nil || *comment.UserID != requester.ID) {
		http.Error(w, "You do not have permission to perform this action", http.StatusForbidden)
		return
	}

	tx := h.db.Begin()

	if err := tx.Where("comment_id = ?", comment.ID).Delete(&models.CommentLike{}).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting comment likes", http.StatusInternalServerError)
		return
	}
	if err := tx.Delete(&comment).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting comment", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error deleting comment", http.StatusInternalServerError)
		return
	}

	if comment.ImagePath != "" {
		utils.DeleteImage(comment.ImagePath)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Comment deleted successfully",
	})
}

// LikeToggle flips the requester's like on a comment. Toggling twice returns
// to the original state.
func (h *Handler) LikeToggle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	commentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid comment ID", http.StatusBadRequest)
		return
	}

	requesterID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, commentID).Error; err != nil {
		http.Error(w, "Comment not found", http.StatusNotFound)
		return
	}

	liked, err := toggleLike(h.db, requesterID, comment.ID)
	if err != nil {
		http.Error(w, "Error toggling like", http.StatusInternalServerError)
		return
	}

	var totalLikes int64
	h.db.Model(&models.CommentLike{}).Where("comment_id = ?", comment.ID).Count(&totalLikes)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"liked":       liked,
		"total_likes": totalLikes,
	})
}

// toggleLike removes an existing like row or inserts one. The delete-first
// order plus the unique (user,comment) index keeps concurrent toggles from
// double-counting.
func toggleLike(db *gorm.DB, userID, commentID uint) (bool, error) {
	liked := false
	err := db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND comment_id = ?", userID, commentID).Delete(&models.CommentLike{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			liked = false
			return nil
		}
		liked = true
		return tx.Create(&models.CommentLike{UserID: userID, CommentID: commentID}).Error
	})
	return liked, err
}
