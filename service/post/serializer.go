package post

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/miniforum/mini-forum-server/cmd/models"
	"github.com/miniforum/mini-forum-server/cmd/utils"
	"github.com/miniforum/mini-forum-server/service/comment"
	"github.com/miniforum/mini-forum-server/service/user"
)

// Serialize shapes a post for API responses: derived like fields, embedded
// comments, absolute image URL, compact author.
func Serialize(db *gorm.DB, p *models.Post, requesterID uint, r *http.Request) map[string]interface{} {
	var likesCount int64
	db.Model(&models.PostLike{}).Where("post_id = ?", p.ID).Count(&likesCount)

	liked := false
	if requesterID != 0 {
		var n int64
		db.Model(&models.PostLike{}).
			Where("post_id = ? AND user_id = ?", p.ID, requesterID).
			Count(&n)
		liked = n > 0
	}

	var likerIDs []uint
	db.Model(&models.PostLike{}).Where("post_id = ?", p.ID).Pluck("user_id", &likerIDs)
	if likerIDs == nil {
		likerIDs = []uint{}
	}

	var image interface{}
	if p.ImagePath != "" {
		image = utils.AbsoluteMediaURL(r, p.ImagePath)
	}

	var category interface{}
	if p.Category != nil {
		category = map[string]interface{}{
			"id":   p.Category.ID,
			"name": p.Category.Name,
		}
	}

	tags := make([]map[string]interface{}, 0, len(p.Tags))
	for _, t := range p.Tags {
		tags = append(tags, map[string]interface{}{"id": t.ID, "name": t.Name})
	}

	var comments []models.Comment
	db.Preload("User").Where("post_id = ?", p.ID).Order("created_at DESC").Find(&comments)
	serializedComments := make([]map[string]interface{}, 0, len(comments))
	for i := range comments {
		serializedComments = append(serializedComments, comment.Serialize(db, &comments[i], requesterID, r))
	}

	return map[string]interface{}{
		"id":            p.ID,
		"user":          user.SerializeUserBrief(p.User, r),
		"category":      category,
		"title":         p.Title,
		"body":          p.Body,
		"image":         image,
		"comments":      serializedComments,
		"created_at":    p.CreatedAt,
		"updated_at":    p.UpdatedAt,
		"likes":         likerIDs,
		"likes_count":   likesCount,
		"total_likes":   likesCount,
		"liked_by_user": liked,
		"tags":          tags,
	}
}

// NormalizeTags accepts every shape the clients send — ["go", "web"],
// [{"name": "go"}], or either of those JSON-encoded as a string (multipart
// transport) — and returns a deduplicated list of tag names.
func NormalizeTags(raw []byte) ([]string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, nil
	}

	// Unwrap a JSON string carrying the real payload.
	var nested string
	if err := json.Unmarshal([]byte(trimmed), &nested); err == nil {
		trimmed = nested
	}

	var items []interface{}
	if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
		return nil, errors.New("tags must be a list of names or objects")
	}

	seen := make(map[string]bool)
	names := make([]string, 0, len(items))
	for _, item := range items {
		var name string
		switch v := item.(type) {
		case string:
			name = v
		case map[string]interface{}:
			if n, ok := v["name"].(string); ok {
				name = n
			}
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	return names, nil
}

// parseListParam collects filter values from repeated params (?tag=a&tag=b)
// with a CSV fallback (?tags=a,b). Repeated params win when both are sent.
func parseListParam(query url.Values, key, csvKey string) []string {
	values := query[key]
	if len(values) == 0 {
		if csv := query.Get(csvKey); csv != "" {
			for _, v := range strings.Split(csv, ",") {
				if v = strings.TrimSpace(v); v != "" {
					values = append(values, v)
				}
			}
		}
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// splitFilterValues separates numeric IDs from names.
func splitFilterValues(values []string) (ids []uint, names []string) {
	for _, v := range values {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			ids = append(ids, uint(id))
		} else {
			names = append(names, strings.ToLower(v))
		}
	}
	return ids, names
}

type postInput struct {
	Title       *string
	Body        *string
	CategoryRaw string
	CategorySet bool
	TagsRaw     []byte
	TagsSet     bool
	Image       string
	ImageSet    bool
}

// parsePostInput reads either a JSON body or a multipart form (with optional
// image part) into one canonical shape.
func parsePostInput(r *http.Request) (*postInput, error) {
	input := &postInput{}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(utils.MaxImageSize); err != nil {
			return nil, err
		}
		form := r.MultipartForm.Value
		if vals, ok := form["title"]; ok && len(vals) > 0 {
			input.Title = &vals[0]
		}
		if vals, ok := form["body"]; ok && len(vals) > 0 {
			input.Body = &vals[0]
		}
		for _, key := range []string{"category", "category_id"} {
			if vals, ok := form[key]; ok && len(vals) > 0 && vals[0] != "" {
				input.CategoryRaw = vals[0]
				input.CategorySet = true
				break
			}
		}
		if vals, ok := form["tags"]; ok && len(vals) > 0 {
			input.TagsRaw = []byte(vals[0])
			input.TagsSet = true
		}
		if file, header, err := r.FormFile("image"); err == nil {
			defer file.Close()
			imagePath, err := utils.SaveImage(file, header, "posts")
			if err != nil {
				return nil, err
			}
			input.Image = imagePath
			input.ImageSet = true
		}
		return input, nil
	}

	var payload struct {
		Title      *string         `json:"title"`
		Body       *string         `json:"body"`
		Category   json.RawMessage `json:"category"`
		CategoryID json.RawMessage `json:"category_id"`
		Tags       json.RawMessage `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return nil, err
	}
	input.Title = payload.Title
	input.Body = payload.Body
	for _, raw := range []json.RawMessage{payload.Category, payload.CategoryID} {
		if v := decodeScalar(raw); v != "" {
			input.CategoryRaw = v
			input.CategorySet = true
			break
		}
	}
	if len(payload.Tags) > 0 && string(payload.Tags) != "null" {
		input.TagsRaw = payload.Tags
		input.TagsSet = true
	}
	return input, nil
}

// decodeScalar renders a JSON number or string value as its text form.
func decodeScalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// resolveCategory maps an ID or case-insensitive name to a category ID.
// Unknown values resolve to nil — the post is simply left uncategorized.
func resolveCategory(db *gorm.DB, raw string) *uint {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var category models.Category
	if isDigits(raw) {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil
		}
		if err := db.First(&category, id).Error; err != nil {
			return nil
		}
		return &category.ID
	}

	if err := db.Where("LOWER(name) = LOWER(?)", raw).First(&category).Error; err != nil {
		return nil
	}
	return &category.ID
}

func tagLimitError() map[string]string {
	return map[string]string{
		"tags": fmt.Sprintf("A post can have at most %d tags", models.MaxTagsPerPost),
	}
}
