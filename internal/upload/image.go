// Package upload processes repair images.  Uploaded bytes are decoded,
// bounded to 1920x1920 preserving aspect ratio, and stored as JPEG under
// the configured upload directory.  The returned reference is the relative
// URL path the router serves statically.
package upload

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	maxDimension = 1920
	jpegQuality  = 85
)

// Store saves images for repair cases under dir/images.
type Store struct {
	dir string
}

// NewStore creates the images directory if needed and returns a Store.
func NewStore(dir string) (*Store, error) {
	imagesDir := filepath.Join(dir, "images")
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// SaveImage decodes raw image bytes, resizes them to fit within
// 1920x1920 without enlargement, and writes a JPEG named after the repair.
// It returns the relative URL path of the stored file.
func (s *Store) SaveImage(data []byte, repairID string) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() > maxDimension || b.Dy() > maxDimension {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	filename := fmt.Sprintf("%s_%s.jpg", repairID, uuid.NewString())
	path := filepath.Join(s.dir, "images", filename)
	if err := imaging.Save(img, path, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return "/uploads/images/" + filename, nil
}

// SaveBase64Image accepts a base64 payload, with or without a data-URL
// prefix, and stores it like SaveImage.
func (s *Store) SaveBase64Image(data, repairID string) (string, error) {
	if i := strings.IndexByte(data, ','); i >= 0 {
		data = data[i+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	return s.SaveImage(raw, repairID)
}
