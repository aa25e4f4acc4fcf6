// Package upload stores product images on local disk under the public uploads path.
package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// PublicPrefix is the URL path uploaded files are served under
const PublicPrefix = "/uploads"

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

// Storage writes images into dir and hands out their public paths
type Storage struct {
	dir      string
	maxBytes int64
}

func NewStorage(dir string, maxBytes int64) *Storage {
	return &Storage{dir: dir, maxBytes: maxBytes}
}

// Dir returns the directory served under PublicPrefix
func (s *Storage) Dir() string {
	return s.dir
}

// Save copies the uploaded image to disk and returns its public path
func (s *Storage) Save(file *multipart.FileHeader) (string, error) {
	extension := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := allowedExtensions[extension]; !ok {
		return "", fmt.Errorf("unsupported image type: %q", extension)
	}
	if s.maxBytes > 0 && file.Size > s.maxBytes {
		return "", fmt.Errorf("image file too large (max %d bytes)", s.maxBytes)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	filename := "product-" + uuid.NewString() + extension
	out, err := os.Create(filepath.Join(s.dir, filename))
	if err != nil {
		return "", err
	}
	defer out.Close()

	in, err := file.Open()
	if err != nil {
		return "", err
	}
	defer in.Close()

	if _, err := io.Copy(out, in); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	return PublicPrefix + "/" + filename, nil
}

// Remove deletes a previously saved image. Paths outside the upload
// directory are refused and a missing file is not an error.
func (s *Storage) Remove(publicPath string) error {
	trimmed := strings.TrimSpace(publicPath)
	if trimmed == "" {
		return nil
	}

	clean := path.Clean("/" + strings.TrimPrefix(trimmed, "/"))
	if !strings.HasPrefix(clean, PublicPrefix+"/") {
		return fmt.Errorf("refusing to delete non-upload path: %s", publicPath)
	}

	base := filepath.Clean(s.dir)
	target := filepath.Clean(filepath.Join(base, filepath.FromSlash(strings.TrimPrefix(clean, PublicPrefix+"/"))))
	if !strings.HasPrefix(target, base+string(os.PathSeparator)) {
		return fmt.Errorf("refusing to delete path outside upload dir: %s", publicPath)
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
