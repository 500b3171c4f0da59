package uploads

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTooLarge = errors.New("upload exceeds maximum size")
	ErrEmpty    = errors.New("empty upload is not allowed")
	ErrNotFound = errors.New("upload not found")
)

// Stored describes a file written to disk.
type Stored struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Disk stores uploaded files under a single directory.
type Disk struct {
	Dir      string
	MaxBytes int64
	now      func() time.Time
}

// NewDisk creates dir when it does not exist yet.
func NewDisk(dir string, maxBytes int64) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Disk{Dir: dir, MaxBytes: maxBytes, now: time.Now}, nil
}

// Save copies the multipart file to disk under a unique name.
func (d *Disk) Save(file multipart.File, header *multipart.FileHeader) (Stored, error) {
	if header.Size > d.MaxBytes {
		return Stored{}, ErrTooLarge
	}

	content, err := io.ReadAll(io.LimitReader(file, d.MaxBytes+1))
	if err != nil {
		return Stored{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(content)) > d.MaxBytes {
		return Stored{}, ErrTooLarge
	}
	if len(content) == 0 {
		return Stored{}, ErrEmpty
	}

	contentType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}

	name := d.uniqueName(header.Filename)
	if err := os.WriteFile(filepath.Join(d.Dir, name), content, 0o640); err != nil {
		return Stored{}, fmt.Errorf("write upload: %w", err)
	}
	return Stored{Name: name, ContentType: contentType, Size: int64(len(content))}, nil
}

// Open returns the stored file; name must be a bare file name produced by Save.
func (d *Disk) Open(name string) (*os.File, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(d.Dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Remove deletes a stored file, ignoring files that are already gone.
func (d *Disk) Remove(name string) error {
	if name == "" || name != filepath.Base(name) {
		return nil
	}
	err := os.Remove(filepath.Join(d.Dir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *Disk) uniqueName(original string) string {
	cleaned := SanitizeFileName(original)
	ext := filepath.Ext(cleaned)
	base := strings.TrimSuffix(cleaned, ext)
	return fmt.Sprintf("%d-%s-%s%s", d.now().UnixMilli(), uuid.NewString()[:8], base, ext)
}

func SanitizeFileName(name string) string {
	cleaned := strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	cleaned = strings.ReplaceAll(cleaned, "\x00", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "_")
	if cleaned == "" || cleaned == "." || cleaned == "/" {
		return "document.bin"
	}
	return cleaned
}
