// Package imagestore saves base64 encoded recipe images under the media directory.
package imagestore

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

// ErrInvalidImage is returned for payloads that are not a base64 JPEG or PNG data URI.
var ErrInvalidImage = errors.New("invalid image")

const subdir = "recipes/images"

// Store writes images into Dir and serves them under URLPrefix.
type Store struct {
	dir       string
	urlPrefix string
	maxWidth  uint
}

// New creates a Store. Images wider than maxWidth are scaled down; 0 keeps the original size.
func New(dir, urlPrefix string, maxWidth uint) *Store {
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &Store{dir: dir, urlPrefix: urlPrefix, maxWidth: maxWidth}
}

// Save decodes a "data:image/<png|jpeg>;base64,<data>" URI, stores the image and
// returns its path relative to the media directory.
func (s *Store) Save(dataURI string) (string, error) {
	ext, data, err := decodeDataURI(dataURI)
	if err != nil {
		return "", err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if s.maxWidth > 0 && uint(img.Bounds().Dx()) > s.maxWidth {
		img = resize.Resize(s.maxWidth, 0, img, resize.Lanczos3)
	}

	if err := os.MkdirAll(filepath.Join(s.dir, subdir), 0o755); err != nil {
		return "", fmt.Errorf("failed to create images directory: %w", err)
	}

	rel := path.Join(subdir, uuid.NewString()+ext)
	err = writeFile(filepath.Join(s.dir, filepath.FromSlash(rel)), func(w io.Writer) error {
		if ext == ".jpg" {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
		}
		return png.Encode(w, img)
	})
	if err != nil {
		return "", err
	}
	return rel, nil
}

// writeFile creates name and fills it with encode. A failed write leaves no file behind.
func writeFile(name string, encode func(w io.Writer) error) (err error) {
	out, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close image file: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(name)
		}
	}()

	if err := encode(out); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// Remove deletes a stored image. Missing files are ignored.
func (s *Store) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(path.Clean("/" + rel))))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// URL returns the public URL of a stored image.
func (s *Store) URL(rel string) string {
	if rel == "" {
		return ""
	}
	return s.urlPrefix + rel
}

func decodeDataURI(uri string) (string, []byte, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return "", nil, fmt.Errorf("%w: expected a base64 data URI", ErrInvalidImage)
	}

	var ext string
	switch mime := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64"); mime {
	case "image/jpeg", "image/jpg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	default:
		return "", nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidImage, mime)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return ext, data, nil
}
