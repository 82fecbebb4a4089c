package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// AbsoluteMediaURL turns a stored media-relative path ("avatars/x.png") into
// an absolute URL for the requesting client. Empty paths yield "".
func AbsoluteMediaURL(r *http.Request, mediaPath string) string {
	if mediaPath == "" {
		return ""
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return fmt.Sprintf("%s://%s/media/%s", scheme, r.Host, strings.TrimPrefix(mediaPath, "/"))
}

// DecodeSocial parses the stored social-links text into a key/value map.
// Null, empty, and malformed values all come back as an empty map.
func DecodeSocial(stored string) map[string]string {
	links := map[string]string{}
	if stored == "" {
		return links
	}
	if err := json.Unmarshal([]byte(stored), &links); err != nil {
		return map[string]string{}
	}
	return links
}

// EncodeSocial renders a social-links map back to its stored text form.
func EncodeSocial(links map[string]string) string {
	if links == nil {
		return "{}"
	}
	raw, err := json.Marshal(links)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
