package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidName = errors.New("invalid storage name")

// maxNameAttempts bounds the search for a free name when the hint is taken.
const maxNameAttempts = 32

// Storage is a file backend addressed by slash-separated names relative to its root.
type Storage interface {
	// Save writes content under name, or under a derived free name when name is taken,
	// and returns the name actually used.
	Save(ctx context.Context, name string, content io.Reader) (string, error)
	Open(name string) (io.ReadCloser, error)
	// Delete removes name. A missing file is not an error.
	Delete(name string) error
	Exists(name string) (bool, error)
	URL(name string) string
	Path(name string) string
}

// FileSystem stores files below a local directory and serves them under a URL prefix.
type FileSystem struct {
	root    string
	baseURL string
}

func NewFileSystem(root, baseURL string) *FileSystem {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &FileSystem{root: root, baseURL: baseURL}
}

func (s *FileSystem) Save(ctx context.Context, name string, content io.Reader) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}

	absDir := filepath.Join(s.root, filepath.FromSlash(path.Dir(clean)))
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	candidate := clean
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		dst, err := os.OpenFile(s.Path(candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			candidate = alternativeName(clean)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create file: %w", err)
		}

		if _, err := io.Copy(dst, content); err != nil {
			dst.Close()
			_ = os.Remove(s.Path(candidate))
			return "", fmt.Errorf("write file: %w", err)
		}
		if err := dst.Close(); err != nil {
			_ = os.Remove(s.Path(candidate))
			return "", fmt.Errorf("close file: %w", err)
		}
		return candidate, nil
	}

	return "", fmt.Errorf("no free name for %q after %d attempts", clean, maxNameAttempts)
}

func (s *FileSystem) Open(name string) (io.ReadCloser, error) {
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	return os.Open(s.Path(clean))
}

func (s *FileSystem) Delete(name string) error {
	clean, err := cleanName(name)
	if err != nil {
		return err
	}
	if err := os.Remove(s.Path(clean)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FileSystem) Exists(name string) (bool, error) {
	clean, err := cleanName(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(s.Path(clean))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *FileSystem) URL(name string) string {
	return s.baseURL + strings.TrimPrefix(filepath.ToSlash(name), "/")
}

func (s *FileSystem) Path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// cleanName rejects names that would escape the storage root.
func cleanName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if name == "" || strings.HasPrefix(name, "/") {
		return "", ErrInvalidName
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidName
	}
	return clean, nil
}

// alternativeName appends a short random suffix before the extension: a.txt -> a_1f2e3d4.txt
func alternativeName(name string) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%s%s", base, uuid.NewString()[:7], ext)
}

// SanitizeFilename keeps the base name of an uploaded file and strips path and control characters.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '/' {
			return '_'
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	if len(name) > 100 {
		ext := path.Ext(name)
		if len(ext) > 10 {
			ext = ""
		}
		name = name[:100-len(ext)] + ext
	}
	return name
}
