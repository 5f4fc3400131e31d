package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/biblionet/biblionet-backend/pkg/id"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/gabriel-vasile/mimetype"
)

var coverMimeTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// CoverStore writes cover images under a directory on the local filesystem.
type CoverStore struct {
	dir      string
	maxBytes int64
}

// NewCoverStore prepares dir for cover uploads.
func NewCoverStore(dir string, maxBytes int64) (*CoverStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("cover dir required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("cover size limit must be positive")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cover dir: %w", err)
	}
	return &CoverStore{dir: dir, maxBytes: maxBytes}, nil
}

// Save sniffs the content type, rejects anything but images and returns the
// path to persist, relative to the media root (e.g. "portadas/libro-3-x.jpg").
func (s *CoverStore) Save(bookID uint, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "No se pudo leer la portada.")
	}
	if len(data) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "La portada está vacía.")
	}
	if int64(len(data)) > s.maxBytes {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "La portada supera el límite de %d MB.", s.maxBytes/(1024*1024))
	}

	detected := mimetype.Detect(data)
	ext, ok := coverMimeTypes[detected.String()]
	if !ok {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "Formato de portada no permitido (%s). Usa PNG, JPEG, WEBP o GIF.", detected.String()).
			WithDetails(map[string]string{"mime_type": detected.String()})
	}

	suffix, err := id.Generate("")
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generar nombre de portada")
	}
	name := fmt.Sprintf("libro-%d-%s%s", bookID, strings.ToLower(strings.TrimLeft(suffix, "_-")), ext)
	if err := os.WriteFile(filepath.Join(s.dir, name), bytes.Clone(data), 0o644); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "guardar portada")
	}
	return path.Join(filepath.Base(s.dir), name), nil
}

// Remove deletes a previously saved cover; missing files are ignored.
func (s *CoverStore) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	full := filepath.Join(s.dir, filepath.Base(rel))
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
