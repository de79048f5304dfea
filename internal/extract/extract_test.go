package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExtractor_SplitsOnFormFeeds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manual.pdf.txt")
	require.NoError(t, os.WriteFile(path, []byte("first page\ftext of page two\fthird"), 0o644))

	name, pages, err := NewFileExtractor().Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "manual.pdf.txt", name)
	require.Len(t, pages, 3)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, "first page", pages[0].Text)
	assert.Equal(t, 3, pages[2].Number)
	assert.Equal(t, "third", pages[2].Text)
}

func TestFileExtractor_SinglePage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("just one page"), 0o644))

	_, pages, err := NewFileExtractor().Extract(path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Number)
}

func TestFileExtractor_MissingFile(t *testing.T) {
	_, _, err := NewFileExtractor().Extract(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"non-breaking spaces", "a b", "a b"},
		{"newlines merged", "line one\nline two", "line one line two"},
		{"whitespace collapsed", "  too   many\t spaces ", "too many spaces"},
		{"empty", "   \n  ", ""},
		{"already clean", "clean text", "clean text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}
