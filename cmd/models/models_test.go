package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAdmin(t *testing.T) {
	assert.False(t, (&User{Role: RoleUser}).IsAdmin())
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.True(t, (&User{Role: RoleUser, IsStaff: true}).IsAdmin())
	assert.True(t, (&User{Role: RoleUser, IsSuperuser: true}).IsAdmin())
}

func TestBeforeSavePromotesAdminFlags(t *testing.T) {
	u := &User{Role: RoleAdmin}
	assert.NoError(t, u.BeforeSave(nil))
	assert.True(t, u.IsStaff)
	assert.True(t, u.IsSuperuser)

	regular := &User{Role: RoleUser}
	assert.NoError(t, regular.BeforeSave(nil))
	assert.False(t, regular.IsStaff)
	assert.False(t, regular.IsSuperuser)
}

func TestPostIsEmpty(t *testing.T) {
	assert.True(t, (&Post{}).IsEmpty())
	assert.False(t, (&Post{Title: "hello"}).IsEmpty())
	assert.False(t, (&Post{Body: "text"}).IsEmpty())
	assert.False(t, (&Post{ImagePath: "posts/x.png"}).IsEmpty())
}

// Whitespace is not content.
func TestPostIsEmptyWhitespaceOnly(t *testing.T) {
	assert.True(t, (&Post{Title: "   "}).IsEmpty())
	assert.True(t, (&Post{Title: " ", Body: "\n\t"}).IsEmpty())
	assert.False(t, (&Post{Title: "  x  "}).IsEmpty())
}
