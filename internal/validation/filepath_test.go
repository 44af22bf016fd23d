package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePathValidator_ValidateAndSanitize(t *testing.T) {
	v := NewPermissiveFilePathValidator()
	home, _ := os.UserHomeDir()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"absolute", "/tmp/vsearch/a.db", "/tmp/vsearch/a.db", false},
		{"home expansion", "~/.vsearch.db", filepath.Join(home, ".vsearch.db"), false},
		{"cleans duplicate separators", "/tmp//vsearch/a.db", "/tmp/vsearch/a.db", false},
		{"empty", "", "", true},
		{"traversal", "/tmp/../etc/passwd", "", true},
		{"null byte", "/tmp/a\x00b", "", true},
		{"control char", "/tmp/a\x07b", "", true},
		{"other user tilde", "~root/x", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateAndSanitize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilePathValidator_BaseDirs(t *testing.T) {
	base := t.TempDir()
	v := &FilePathValidator{AllowedBaseDirs: []string{base}, MaxPathLength: 4096}

	_, err := v.ValidateAndSanitize(filepath.Join(base, "sub", "x.db"))
	assert.NoError(t, err)

	_, err = v.ValidateAndSanitize(filepath.Join(filepath.Dir(base), "elsewhere.db"))
	assert.ErrorContains(t, err, "not within allowed directories")

	// Sibling dir sharing the prefix must not pass.
	_, err = v.ValidateAndSanitize(base + "-sibling/x.db")
	assert.Error(t, err)
}

func TestFilePathValidator_MaxLength(t *testing.T) {
	v := &FilePathValidator{MaxPathLength: 10}
	_, err := v.ValidateAndSanitize("/" + strings.Repeat("a", 20))
	assert.ErrorContains(t, err, "too long")
}

func TestValidateImageFile(t *testing.T) {
	dir := t.TempDir()
	v := NewPermissiveFilePathValidator()

	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, data, 0o644))
		return p
	}

	png := write("shoe.PNG", []byte("\x89PNG\r\n\x1a\n"))
	jpg := write("bag.jpeg", []byte{0xff, 0xd8, 0xff})
	gif := write("anim.gif", []byte("GIF89a"))
	empty := write("empty.webp", nil)

	path, mimeType, err := v.ValidateImageFile(png)
	require.NoError(t, err)
	assert.Equal(t, png, path)
	assert.Equal(t, "image/png", mimeType)

	_, mimeType, err = v.ValidateImageFile(jpg)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mimeType)

	_, _, err = v.ValidateImageFile(gif)
	assert.ErrorContains(t, err, "unsupported image type")

	_, _, err = v.ValidateImageFile(empty)
	assert.ErrorContains(t, err, "empty")

	_, _, err = v.ValidateImageFile(filepath.Join(dir, "missing.jpg"))
	assert.Error(t, err)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.png"), 0o755))
	_, _, err = v.ValidateImageFile(filepath.Join(dir, "folder.png"))
	assert.ErrorContains(t, err, "directory")
}

func TestEnsureParentDir(t *testing.T) {
	dir := t.TempDir()
	v := NewPermissiveFilePathValidator()

	target := filepath.Join(dir, "a", "b", "history.db")
	got, err := v.EnsureParentDir(target)
	require.NoError(t, err)
	assert.Equal(t, target, got)

	info, err := os.Stat(filepath.Join(dir, "a", "b"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = v.EnsureParentDir(dir)
	assert.Error(t, err)
}
