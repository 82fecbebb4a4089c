package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbsoluteMediaURL(t *testing.T) {
	r := httptest.NewRequest("GET", "http://example.com/api/posts", nil)

	assert.Equal(t, "http://example.com/media/avatars/a.png", AbsoluteMediaURL(r, "avatars/a.png"))
	assert.Equal(t, "http://example.com/media/avatars/a.png", AbsoluteMediaURL(r, "/avatars/a.png"))
	assert.Equal(t, "", AbsoluteMediaURL(r, ""))
}

func TestAbsoluteMediaURLHonorsForwardedProto(t *testing.T) {
	r := httptest.NewRequest("GET", "http://example.com/api/posts", nil)
	r.Header.Set("X-Forwarded-Proto", "https")

	assert.Equal(t, "https://example.com/media/posts/p.jpg", AbsoluteMediaURL(r, "posts/p.jpg"))
}

func TestDecodeSocial(t *testing.T) {
	assert.Equal(t, map[string]string{}, DecodeSocial(""))
	assert.Equal(t, map[string]string{}, DecodeSocial("not json"))
	assert.Equal(t, map[string]string{}, DecodeSocial("[1,2]"))

	links := DecodeSocial(`{"twitter":"https://twitter.com/x"}`)
	assert.Equal(t, "https://twitter.com/x", links["twitter"])
}

func TestEncodeSocial(t *testing.T) {
	assert.Equal(t, "{}", EncodeSocial(nil))
	assert.Equal(t, "{}", EncodeSocial(map[string]string{}))

	encoded := EncodeSocial(map[string]string{"github": "https://github.com/x"})
	assert.Equal(t, map[string]string{"github": "https://github.com/x"}, DecodeSocial(encoded))
}
