package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxImageSize = 10 << 20 // 10 MB
	MediaRoot    = "uploads"
)

// SaveImage stores an uploaded image under uploads/<subdir>/ and returns the
// media-relative path ("posts/20260901-<uuid>.png").
func SaveImage(file multipart.File, header *multipart.FileHeader, subdir string) (string, error) {
	if header.Size > MaxImageSize {
		return "", fmt.Errorf("file size exceeds maximum limit of %d MB", MaxImageSize/(1<<20))
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !isValidImageType(ext) {
		return "", fmt.Errorf("invalid file type: %s", ext)
	}

	dir := filepath.Join(MediaRoot, subdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %v", err)
	}

	filename := fmt.Sprintf("%s-%s%s",
		time.Now().Format("20060102"),
		uuid.New().String(),
		ext,
	)

	dst, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %v", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("failed to save file: %v", err)
	}

	return filepath.ToSlash(filepath.Join(subdir, filename)), nil
}

func isValidImageType(ext string) bool {
	validTypes := map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
		".webp": true,
	}
	return validTypes[ext]
}

func DeleteImage(mediaPath string) error {
	filePath := filepath.Join(MediaRoot, filepath.Clean(mediaPath))

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	return os.Remove(filePath)
}

// ContainsDotDot guards the media file server against path traversal.
func ContainsDotDot(v string) bool {
	if !strings.Contains(v, "..") {
		return false
	}
	isSlash := func(r rune) bool { return r == '/' || r == '\\' }
	for _, part := range strings.FieldsFunc(v, isSlash) {
		if part == ".." {
			return true
		}
	}
	return false
}
