package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	// registered decoders for image.DecodeConfig
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/google/uuid"
)

const (
	// ImageNamespace is the directory uploaded post images are stored under.
	ImageNamespace = "posts"
	// MaxImageSize bounds an uploaded image.
	MaxImageSize = 5 << 20
)

var (
	ErrNotAnImage    = errors.New("upload a valid image: the file is either not an image or corrupted")
	ErrImageTooLarge = fmt.Errorf("image exceeds %d MB", MaxImageSize>>20)
)

// FileStorage persists uploaded files under storage-relative names.
type FileStorage interface {
	// Save stores r under dir using name, choosing a free name on collision, and returns the stored name.
	Save(dir, name string, r io.Reader) (string, error)
	Delete(name string) error
	URL(name string) string
}

// LocalStorage keeps files on the local filesystem below Root and serves them at BaseURL.
type LocalStorage struct {
	Root    string
	BaseURL string
}

// NewLocalStorage creates a LocalStorage; baseURL is normalized to end with a slash.
func NewLocalStorage(root, baseURL string) *LocalStorage {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &LocalStorage{Root: root, BaseURL: baseURL}
}

func (s *LocalStorage) Save(dir, name string, r io.Reader) (string, error) {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = uuid.NewString()
	}
	if err := os.MkdirAll(filepath.Join(s.Root, dir), 0o755); err != nil {
		return "", err
	}

	rel := path.Join(dir, name)
	f, err := os.OpenFile(filepath.Join(s.Root, filepath.FromSlash(rel)), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		ext := path.Ext(name)
		rel = path.Join(dir, fmt.Sprintf("%s_%s%s", strings.TrimSuffix(name, ext), uuid.NewString()[:7], ext))
		f, err = os.OpenFile(filepath.Join(s.Root, filepath.FromSlash(rel)), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	return rel, f.Close()
}

func (s *LocalStorage) Delete(name string) error {
	if name == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(name)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *LocalStorage) URL(name string) string {
	if name == "" {
		return ""
	}
	return s.BaseURL + name
}

// imageExts lists the extensions accepted for each decoded format; the first is canonical.
var imageExts = map[string][]string{
	"gif":  {".gif"},
	"jpeg": {".jpg", ".jpeg", ".jpe"},
	"png":  {".png"},
	"webp": {".webp"},
}

// ReadImage reads at most MaxImageSize bytes and checks they decode as a gif, png, jpeg or webp image.
// It returns the bytes and the decoded format name.
func ReadImage(r io.Reader) ([]byte, string, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, "", err
	}
	if len(b) > MaxImageSize {
		return nil, "", ErrImageTooLarge
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return nil, "", ErrNotAnImage
	}
	if _, ok := imageExts[format]; !ok {
		return nil, "", ErrNotAnImage
	}
	return b, format, nil
}

// ImageFileName derives a storage name from the client's file name, forcing an extension that matches format.
func ImageFileName(name, format string) string {
	exts, ok := imageExts[format]
	if !ok {
		return ""
	}
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		base = ""
	}
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem = uuid.NewString()
	}
	for _, allowed := range exts {
		if strings.EqualFold(ext, allowed) {
			return stem + strings.ToLower(ext)
		}
	}
	return stem + exts[0]
}
