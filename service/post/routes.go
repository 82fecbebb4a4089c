package post

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/miniforum/mini-forum-server/cmd/models"
	"github.com/miniforum/mini-forum-server/cmd/utils"
	"github.com/miniforum/mini-forum-server/service/comment"
)

const hotPostsDefaultLimit = 10

type Handler struct {
	db  *gorm.DB
	hot *utils.HotPosts
}

func NewHandler(db *gorm.DB, hot *utils.HotPosts) *Handler {
	return &Handler{db: db, hot: hot}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	// Fixed paths have to come before the {id} matcher.
	router.HandleFunc("/posts/popular", utils.OptionalAuth(h.GetPopularPosts)).Methods("GET")
	router.HandleFunc("/posts/hot", utils.OptionalAuth(h.GetHotPosts)).Methods("GET")

	router.HandleFunc("/posts", utils.OptionalAuth(h.GetPosts)).Methods("GET")
	router.HandleFunc("/posts", utils.AuthMiddleware(h.CreatePost)).Methods("POST")
	router.HandleFunc("/posts/{id}", utils.OptionalAuth(h.GetPost)).Methods("GET")
	router.HandleFunc("/posts/{id}", utils.AuthMiddleware(h.UpdatePost)).Methods("PUT", "PATCH")
	router.HandleFunc("/posts/{id}", utils.AuthMiddleware(h.DeletePost)).Methods("DELETE")
	router.HandleFunc("/posts/{id}/like-toggle", utils.AuthMiddleware(h.LikeToggle)).Methods("POST")
	router.HandleFunc("/posts/{id}/comments", utils.OptionalAuth(h.GetPostComments)).Methods("GET")
	router.HandleFunc("/posts/{id}/comments", utils.AuthMiddleware(h.CreatePostComment)).Methods("POST")
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

func (h *Handler) loadPost(id uint64) (*models.Post, error) {
	var post models.Post
	err := h.db.Preload("User").Preload("Category").Preload("Tags").First(&post, id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// GetPosts lists posts newest first. Tag and category filters combine with
// OR across both dimensions; values may be IDs or case-insensitive names.
// Title search applies only when no tag/category filter is present, and
// malformed filter input degrades to the unfiltered listing.
func (h *Handler) GetPosts(w http.ResponseWriter, r *http.Request) {
	requesterID, _ := utils.GetUserIDFromContext(r.Context())
	query := r.URL.Query()

	tagValues := parseListParam(query, "tag", "tags")
	categoryValues := parseListParam(query, "category", "categories")

	base := h.db.Preload("User").Preload("Category").Preload("Tags")

	if len(tagValues) > 0 || len(categoryValues) > 0 {
		tagIDs, tagNames := splitFilterValues(tagValues)
		catIDs, catNames := splitFilterValues(categoryValues)

		cond := h.db.Where("1 = 0")
		if len(tagIDs) > 0 {
			cond = cond.Or("tags.id IN ?", tagIDs)
		}
		if len(tagNames) > 0 {
			cond = cond.Or("LOWER(tags.name) IN ?", tagNames)
		}
		if len(catIDs) > 0 {
			cond = cond.Or("posts.category_id IN ?", catIDs)
		}
		if len(catNames) > 0 {
			cond = cond.Or("LOWER(categories.name) IN ?", catNames)
		}

		var postIDs []uint
		err := h.db.Table("posts").
			Joins("LEFT JOIN post_tags ON post_tags.post_id = posts.id").
			Joins("LEFT JOIN tags ON tags.id = post_tags.tag_id").
			Joins("LEFT JOIN categories ON categories.id = posts.category_id").
			Where(cond).
			Distinct("posts.id").
			Pluck("posts.id", &postIDs).Error
		if err != nil {
			http.Error(w, "Error retrieving posts", http.StatusInternalServerError)
			return
		}
		base = base.Where("id IN ?", postIDs)
	} else {
		search := query.Get("search")
		if search == "" {
			search = query.Get("q")
		}
		if search != "" {
			base = base.Where("title ILIKE ?", "%"+search+"%")
		}
	}

	var posts []models.Post
	if err := base.Order("created_at DESC").Find(&posts).Error; err != nil {
		http.Error(w, "Error retrieving posts", http.StatusInternalServerError)
		return
	}

	response := make([]map[string]interface{}, 0, len(posts))
	for i := range posts {
		response = append(response, Serialize(h.db, &posts[i], requesterID, r))
	}
	writeJSON(w, http.StatusOK, response)
}

// GetPopularPosts returns the five most liked posts.
func (h *Handler) GetPopularPosts(w http.ResponseWriter, r *http.Request) {
	requesterID, _ := utils.GetUserIDFromContext(r.Context())

	var posts []models.Post
	err := h.db.Preload("User").Preload("Category").Preload("Tags").
		Select("posts.*").
		Joins("LEFT JOIN post_likes ON post_likes.post_id = posts.id").
		Group("posts.id").
		Order("COUNT(post_likes.id) DESC").
		Limit(5).
		Find(&posts).Error
	if err != nil {
		http.Error(w, "Error retrieving popular posts", http.StatusInternalServerError)
		return
	}

	response := make([]map[string]interface{}, 0, len(posts))
	for i := range posts {
		response = append(response, Serialize(h.db, &posts[i], requesterID, r))
	}
	writeJSON(w, http.StatusOK, response)
}

// GetHotPosts returns posts ranked by recent engagement score. Entries whose
// post has since been deleted are skipped.
func (h *Handler) GetHotPosts(w http.ResponseWriter, r *http.Request) {
	requesterID, _ := utils.GetUserIDFromContext(r.Context())

	limit := hotPostsDefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	entries, err := h.hot.Top(r.Context(), int64(limit))
	if err != nil {
		http.Error(w, "Error retrieving hot posts", http.StatusInternalServerError)
		return
	}

	response := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		post, err := h.loadPost(uint64(entry.PostID))
		if err != nil {
			continue
		}
		serialized := Serialize(h.db, post, requesterID, r)
		serialized["hot_score"] = entry.Score
		response = append(response, serialized)
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	requesterID, _ := utils.GetUserIDFromContext(r.Context())

	post, err := h.loadPost(postID)
	if err != nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, Serialize(h.db, post, requesterID, r))
}

// CreatePost creates a post for the authenticated user. A post needs a title,
// a body or an image, and at most five tags; tags are created on first use.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	requester, err := h.requester(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	input, err := parsePostInput(r)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	post := models.Post{UserID: requester.ID}
	if input.Title != nil {
		post.Title = *input.Title
	}
	if input.Body != nil {
		post.Body = *input.Body
	}
	post.ImagePath = input.Image

	if post.IsEmpty() {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"detail": "A post needs a title, text, or an image",
		})
		return
	}

	var tagNames []string
	if input.TagsSet {
		tagNames, err = NormalizeTags(input.TagsRaw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"tags": err.Error()})
			return
		}
		if len(tagNames) > models.MaxTagsPerPost {
			writeJSON(w, http.StatusBadRequest, tagLimitError())
			return
		}
	}

	if input.CategorySet {
		post.CategoryID = resolveCategory(h.db, input.CategoryRaw)
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		tags, err := getOrCreateTags(tx, tagNames)
		if err != nil {
			return err
		}
		if len(tags) > 0 {
			if err := tx.Model(&post).Association("Tags").Append(tags); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		http.Error(w, "Error creating post", http.StatusInternalServerError)
		return
	}

	h.hot.Bump(r.Context(), post.ID, 1)

	created, err := h.loadPost(uint64(post.ID))
	if err != nil {
		http.Error(w, "Error creating post", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, Serialize(h.db, created, requester.ID, r))
}

// UpdatePost edits a post. Owner or admin only. When tags are provided the
// whole tag set is replaced.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	requester, err := h.requester(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	post, err := h.loadPost(postID)
	if err != nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}

	if !requester.IsAdmin() && post.UserID != requester.ID {
		http.Error(w, "You do not have permission to perform this action", http.StatusForbidden)
		return
	}

	input, err := parsePostInput(r)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if input.Title != nil {
		post.Title = *input.Title
	}
	if input.Body != nil {
		post.Body = *input.Body
	}
	if input.ImageSet {
		if post.ImagePath != "" {
			utils.DeleteImage(post.ImagePath)
		}
		post.ImagePath = input.Image
	}

	if post.IsEmpty() {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"detail": "A post needs a title, text, or an image",
		})
		return
	}

	var tagNames []string
	if input.TagsSet {
		tagNames, err = NormalizeTags(input.TagsRaw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"tags": err.Error()})
			return
		}
		if len(tagNames) > models.MaxTagsPerPost {
			writeJSON(w, http.StatusBadRequest, tagLimitError())
			return
		}
	}

	if input.CategorySet {
		if resolved := resolveCategory(h.db, input.CategoryRaw); resolved != nil {
			post.CategoryID = resolved
		} else if !isDigits(input.CategoryRaw) {
			post.CategoryID = nil
		}
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tags", "User", "Category", "Comments", "Likes").Save(post).Error; err != nil {
			return err
		}
		if input.TagsSet {
			tags, err := getOrCreateTags(tx, tagNames)
			if err != nil {
				return err
			}
			if err := tx.Model(post).Association("Tags").Replace(tags); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		http.Error(w, "Error updating post", http.StatusInternalServerError)
		return
	}

	updated, err := h.loadPost(postID)
	if err != nil {
		http.Error(w, "Error updating post", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, Serialize(h.db, updated, requester.ID, r))
}

// DeletePost removes a post with its comments, likes and tag links. Owner or
// admin only. The hot ranking entry goes with it.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	requester, err := h.requester(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}

	if !requester.IsAdmin() && post.UserID != requester.ID {
		http.Error(w, "You do not have permission to perform this action", http.StatusForbidden)
		return
	}

	var commentImages []string
	h.db.Model(&models.Comment{}).
		Where("post_id = ? AND image_path <> ''", post.ID).
		Pluck("image_path", &commentImages)

	err = h.db.Transaction(func(tx *gorm.DB) error {
		var commentIDs []uint
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", post.ID).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if len(commentIDs) > 0 {
			if err := tx.Where("comment_id IN ?", commentIDs).Delete(&models.CommentLike{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&post).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		http.Error(w, "Error deleting post", http.StatusInternalServerError)
		return
	}

	h.hot.Remove(r.Context(), post.ID)

	if post.ImagePath != "" {
		utils.DeleteImage(post.ImagePath)
	}
	for _, img := range commentImages {
		utils.DeleteImage(img)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Post deleted successfully",
	})
}

// LikeToggle flips the requester's like on a post and bumps the hot ranking
// when the result is a like.
func (h *Handler) LikeToggle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	requesterID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}

	liked, err := toggleLike(h.db, requesterID, post.ID)
	if err != nil {
		http.Error(w, "Error toggling like", http.StatusInternalServerError)
		return
	}

	if liked {
		h.hot.Bump(r.Context(), post.ID, 1)
	}

	var totalLikes int64
	h.db.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&totalLikes)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"liked":       liked,
		"total_likes": totalLikes,
	})
}

// GetPostComments lists a post's comments newest first.
func (h *Handler) GetPostComments(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	requesterID, _ := utils.GetUserIDFromContext(r.Context())

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}

	var comments []models.Comment
	if err := h.db.Preload("User").Where("post_id = ?", post.ID).Order("created_at DESC").Find(&comments).Error; err != nil {
		http.Error(w, "Error retrieving comments", http.StatusInternalServerError)
		return
	}

	response := make([]map[string]interface{}, 0, len(comments))
	for i := range comments {
		response = append(response, comment.Serialize(h.db, &comments[i], requesterID, r))
	}
	writeJSON(w, http.StatusOK, response)
}

// CreatePostComment adds a comment under the post in the path; the post field
// in the body, if any, is ignored.
func (h *Handler) CreatePostComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	requester, err := h.requester(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}

	body := ""
	imagePath := ""
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(utils.MaxImageSize); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if vals, ok := r.MultipartForm.Value["body"]; ok && len(vals) > 0 {
			body = vals[0]
		}
		if file, header, err := r.FormFile("image"); err == nil {
			defer file.Close()
			imagePath, err = utils.SaveImage(file, header, "comments")
			if err != nil {
				http.Error(w, "Invalid image upload", http.StatusBadRequest)
				return
			}
		}
	} else {
		var payload struct {
			Body string `json:"body"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		body = payload.Body
	}

	if strings.TrimSpace(body) == "" && imagePath == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"detail": "A comment needs either text or an image",
		})
		return
	}

	newComment := models.Comment{
		PostID:    post.ID,
		UserID:    &requester.ID,
		Body:      body,
		ImagePath: imagePath,
	}
	if err := h.db.Create(&newComment).Error; err != nil {
		http.Error(w, "Error creating comment", http.StatusInternalServerError)
		return
	}

	newComment.User = requester
	writeJSON(w, http.StatusCreated, comment.Serialize(h.db, &newComment, requester.ID, r))
}

// getOrCreateTags resolves names to tag rows, creating missing ones.
func getOrCreateTags(tx *gorm.DB, names []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		var tag models.Tag
		if err := tx.Where("LOWER(name) = LOWER(?)", name).First(&tag).Error; err != nil {
			tag = models.Tag{Name: name}
			if err := tx.Create(&tag).Error; err != nil {
				return nil, err
			}
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// toggleLike removes an existing like row or inserts one. Delete-first plus
// the unique (user,post) index keeps concurrent toggles consistent.
func toggleLike(db *gorm.DB, userID, postID uint) (bool, error) {
	liked := false
	err := db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.PostLike{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			liked = false
			return nil
		}
		liked = true
		return tx.Create(&models.PostLike{UserID: userID, PostID: postID}).Error
	})
	return liked, err
}
