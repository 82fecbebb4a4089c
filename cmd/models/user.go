package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// DefaultAvatarPath is returned for users that never uploaded an avatar.
const DefaultAvatarPath = "avatars/default-avatar.png"

// Deletion is physical everywhere in this schema, so models carry explicit
// timestamps instead of gorm.Model's soft-delete column.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username     string `gorm:"column:username;size:150;uniqueIndex;not null" json:"username"`
	Email        string `gorm:"column:email;size:255" json:"email"`
	PasswordHash string `gorm:"column:password_hash;size:255;not null" json:"-"`
	Role         string `gorm:"column:role;size:10;not null;default:user" json:"role"`
	Bio          string `gorm:"column:bio;type:text" json:"bio"`
	AvatarPath   string `gorm:"column:avatar_path;size:255" json:"avatar_path"`
	// Social holds a JSON object of link name -> URL. Stored as text so rows
	// written by older clients (raw strings, empty values) still load.
	Social string `gorm:"column:social;type:text" json:"-"`

	// Legacy authority flags kept alongside Role; BeforeSave keeps them in sync.
	IsStaff     bool `gorm:"column:is_staff;default:false" json:"is_staff"`
	IsSuperuser bool `gorm:"column:is_superuser;default:false" json:"is_superuser"`

	Posts []Post `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"posts,omitempty"`
}

// BeforeSave promotes the staff flags whenever the role is admin.
func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.Role == RoleAdmin {
		u.IsStaff = true
		u.IsSuperuser = true
	}
	return nil
}

// IsAdmin reports whether the user carries any of the admin authority signals.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.IsStaff || u.IsSuperuser
}
