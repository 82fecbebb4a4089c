package models

import "time"

const (
	ReportTypePost    = "post"
	ReportTypeComment = "comment"

	ReportActionDelete = "delete"
	ReportActionEdit   = "edit"
)

// Report flags a post or a comment for moderation. Targets are nulled rather
// than cascaded so the report survives deletion of the offending content.
type Report struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID     *uint  `gorm:"column:user_id" json:"user_id,omitempty"`
	PostID     *uint  `gorm:"column:post_id" json:"post_id,omitempty"`
	CommentID  *uint  `gorm:"column:comment_id" json:"comment_id,omitempty"`
	ReportType string `gorm:"column:report_type;size:10;not null;default:post" json:"report_type"`
	Reason     string `gorm:"column:reason;type:text" json:"reason"`
	Action     string `gorm:"column:action;size:10;not null" json:"action"`
	Resolved   bool   `gorm:"column:resolved;default:false" json:"resolved"`

	User    *User    `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user,omitempty"`
	Post    *Post    `gorm:"foreignKey:PostID;constraint:OnDelete:SET NULL" json:"-"`
	Comment *Comment `gorm:"foreignKey:CommentID;constraint:OnDelete:SET NULL" json:"-"`
}
