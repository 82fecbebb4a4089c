package models

import (
	"strings"
	"time"
)

// MaxTagsPerPost is the hard ceiling on tags attached to a single post.
const MaxTagsPerPost = 5

type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"column:name;size:100;not null" json:"name"`
}

type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"column:name;size:50;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID     uint   `gorm:"column:user_id;not null;index" json:"user_id"`
	CategoryID *uint  `gorm:"column:category_id" json:"category_id,omitempty"`
	Title      string `gorm:"column:title;size:255" json:"title"`
	Body       string `gorm:"column:body;type:text" json:"body"`
	ImagePath  string `gorm:"column:image_path;size:255" json:"image_path,omitempty"`

	User     *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Category *Category  `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Tags     []Tag      `gorm:"many2many:post_tags" json:"tags,omitempty"`
	Comments []Comment  `gorm:"foreignKey:PostID" json:"comments,omitempty"`
	Likes    []PostLike `gorm:"foreignKey:PostID" json:"likes,omitempty"`
}

// IsEmpty reports whether the post violates the at-least-one-of rule.
// Whitespace-only text does not count as content.
func (p *Post) IsEmpty() bool {
	return strings.TrimSpace(p.Title) == "" && strings.TrimSpace(p.Body) == "" && p.ImagePath == ""
}

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PostID    uint   `gorm:"column:post_id;not null;index" json:"post_id"`
	UserID    *uint  `gorm:"column:user_id" json:"user_id,omitempty"`
	Body      string `gorm:"column:body;type:text" json:"body"`
	ImagePath string `gorm:"column:image_path;size:255" json:"image_path,omitempty"`

	Post  *Post         `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	User  *User         `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user,omitempty"`
	Likes []CommentLike `gorm:"foreignKey:CommentID" json:"likes,omitempty"`
}

// PostLike is one user's like on a post. The composite unique index makes the
// like-toggle race-safe: concurrent inserts for the same pair collapse to one.
type PostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID uint  `gorm:"column:user_id;not null;uniqueIndex:idx_post_like" json:"user_id"`
	PostID uint  `gorm:"column:post_id;not null;uniqueIndex:idx_post_like" json:"post_id"`
	User   *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Post   *Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

type CommentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID    uint     `gorm:"column:user_id;not null;uniqueIndex:idx_comment_like" json:"user_id"`
	CommentID uint     `gorm:"column:comment_id;not null;uniqueIndex:idx_comment_like" json:"comment_id"`
	User      *User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Comment   *Comment `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"-"`
}
