package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxUploadBytes is the largest image file the client will upload.
const MaxUploadBytes = 10 << 20

// ImageExtensions lists the upload types the search service accepts.
var ImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// FilePathValidator normalizes user supplied paths for the history database,
// the search index and uploaded images.
type FilePathValidator struct {
	// AllowedBaseDirs restricts paths to these directories; empty allows all.
	AllowedBaseDirs    []string
	AllowHomeExpansion bool
	MaxPathLength      int
}

// NewFilePathValidator restricts paths to the vsearch data and config
// directories plus the temp dir.
func NewFilePathValidator() *FilePathValidator {
	homeDir, _ := os.UserHomeDir()
	return &FilePathValidator{
		AllowedBaseDirs: []string{
			homeDir,
			os.TempDir(),
		},
		AllowHomeExpansion: true,
		MaxPathLength:      4096,
	}
}

// NewPermissiveFilePathValidator allows any directory.
func NewPermissiveFilePathValidator() *FilePathValidator {
	return &FilePathValidator{
		AllowHomeExpansion: true,
		MaxPathLength:      4096,
	}
}

// ValidateAndSanitize returns the cleaned absolute form of path.
func (v *FilePathValidator) ValidateAndSanitize(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if v.MaxPathLength > 0 && len(path) > v.MaxPathLength {
		return "", fmt.Errorf("path too long (max %d characters)", v.MaxPathLength)
	}
	for _, r := range path {
		if r == 0 {
			return "", fmt.Errorf("path contains null bytes")
		}
		if r < 32 && r != '\t' {
			return "", fmt.Errorf("path contains control characters")
		}
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return "", fmt.Errorf("directory traversal not allowed")
		}
	}

	if strings.HasPrefix(path, "~") {
		if !v.AllowHomeExpansion || (path != "~" && !strings.HasPrefix(path, "~/")) {
			return "", fmt.Errorf("tilde expansion not allowed or invalid tilde usage")
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot make path absolute: %w", err)
	}

	if err := v.checkBaseDirs(abs); err != nil {
		return "", err
	}
	return abs, nil
}

func (v *FilePathValidator) checkBaseDirs(abs string) error {
	if len(v.AllowedBaseDirs) == 0 {
		return nil
	}
	for _, base := range v.AllowedBaseDirs {
		if base == "" {
			continue
		}
		absBase, err := filepath.Abs(base)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absBase, abs)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("path not within allowed directories: %v", v.AllowedBaseDirs)
}

// ValidateImageFile checks that path names a readable image file of an
// accepted type and size. It returns the cleaned path and the MIME type
// implied by the extension.
func (v *FilePathValidator) ValidateImageFile(path string) (string, string, error) {
	clean, err := v.ValidateAndSanitize(path)
	if err != nil {
		return "", "", err
	}

	mimeType, ok := ImageExtensions[strings.ToLower(filepath.Ext(clean))]
	if !ok {
		return "", "", fmt.Errorf("unsupported image type %q (use jpg, png or webp)", filepath.Ext(clean))
	}

	info, err := os.Stat(clean)
	if err != nil {
		return "", "", fmt.Errorf("checking image file: %w", err)
	}
	if info.IsDir() {
		return "", "", fmt.Errorf("path is a directory, not a file: %s", clean)
	}
	if info.Size() == 0 {
		return "", "", fmt.Errorf("image file is empty: %s", clean)
	}
	if info.Size() > MaxUploadBytes {
		return "", "", fmt.Errorf("image file too large (%d bytes, max %d)", info.Size(), MaxUploadBytes)
	}
	return clean, mimeType, nil
}

// EnsureParentDir validates path and creates its parent directory.
func (v *FilePathValidator) EnsureParentDir(path string) (string, error) {
	clean, err := v.ValidateAndSanitize(path)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(clean); err == nil && info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", clean)
	}
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	return clean, nil
}
