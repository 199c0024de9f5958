package imagefile

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }

func (e *WriteError) Unwrap() error { return e.Err }

// Save writes data to path verbatim, creating missing parent directories.
// It returns the path it wrote.
func Save(path string, data []byte) (string, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", &WriteError{Path: path, Err: err}
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &WriteError{Path: path, Err: err}
	}
	return path, nil
}

// ExtensionMismatch reports whether the extension of path is not one that
// is registered for mimeType. want is the preferred extension for the
// mime type. Unknown mime types never mismatch.
func ExtensionMismatch(path, mimeType string) (want string, mismatch bool) {
	exts, _ := mime.ExtensionsByType(mimeType)
	if len(exts) == 0 {
		return "", false
	}

	got := strings.ToLower(filepath.Ext(path))
	for _, ext := range exts {
		if ext == got {
			return "", false
		}
	}
	return preferredExtension(mimeType, exts), true
}

func preferredExtension(mimeType string, exts []string) string {
	// ExtensionsByType sorts alphabetically, which puts ".jfif" ahead of ".jpg".
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	}
	return exts[0]
}
