package storage

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)
	return s
}

func TestLocalStorageSaveAndOpen(t *testing.T) {
	s := newTestStorage(t)

	content := `[{"title":"Sağlık Yönetmeliği"}]`
	info, err := s.Save(strings.NewReader(content), "corpus/latest.json")
	require.NoError(t, err)
	assert.Equal(t, "corpus/latest.json", info.Name)
	assert.Equal(t, int64(len(content)), info.Size)
	assert.Equal(t, "application/json", info.MimeType)

	reader, err := s.Open("corpus/latest.json")
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestLocalStorageOpenMissing(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Open("missing.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLocalStorageExistsAndDelete(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Save(strings.NewReader("{}"), "corpus.json")
	require.NoError(t, err)

	exists, err := s.Exists("corpus.json")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete("corpus.json"))

	exists, err = s.Exists("corpus.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStorageList(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Save(strings.NewReader("{}"), "corpus/a.json")
	require.NoError(t, err)
	_, err = s.Save(strings.NewReader("hello"), "notes.txt")
	require.NoError(t, err)

	artifacts, err := s.List()
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	names := []string{artifacts[0].Name, artifacts[1].Name}
	assert.Contains(t, names, "corpus/a.json")
	assert.Contains(t, names, "notes.txt")
}

// TestLocalStorageRejectsTraversal 测试越出基础目录的产物名被拒绝
func TestLocalStorageRejectsTraversal(t *testing.T) {
	s := newTestStorage(t)

	for _, name := range []string{"../escape.json", "a/../../escape.json", "/etc/passwd", "."} {
		_, err := s.Save(strings.NewReader("{}"), name)
		assert.Error(t, err, "name %q should be rejected", name)
	}
}

func TestGetMimeType(t *testing.T) {
	assert.Equal(t, "application/json", getMimeType("corpus.json"))
	assert.Equal(t, "application/json", getMimeType("CORPUS.JSON"))
	assert.Equal(t, "text/html", getMimeType("page.html"))
	assert.Equal(t, "text/plain", getMimeType("readme.txt"))
	assert.Equal(t, "application/octet-stream", getMimeType("data.bin"))
}
