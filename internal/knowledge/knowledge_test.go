package knowledge

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "Topics"))
}

func writeFile(t *testing.T, s *Store, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(s.Dir(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), name), []byte(content), 0o644))
}

func TestListMissingDirectoryIsEmpty(t *testing.T) {
	topics, err := newTestStore(t).List()
	require.NoError(t, err)
	assert.Empty(t, topics)
}

func TestListFiltersAndSorts(t *testing.T) {
	s := newTestStore(t)
	writeFile(t, s, "Widget.txt", "text widget")
	writeFile(t, s, "Widget.md", "# md widget")
	writeFile(t, s, "Alpha.TXT", "upper ext")
	writeFile(t, s, "image.png", "\x89PNG")
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "nested.txt"), 0o755))

	topics, err := s.List()
	require.NoError(t, err)
	require.Len(t, topics, 3)

	assert.Equal(t, "Alpha", topics[0].Name)
	assert.Equal(t, "Widget.md", topics[1].FileName)
	assert.Equal(t, "Widget", topics[1].Name)
	assert.Equal(t, "Widget.txt", topics[2].FileName)
	assert.Equal(t, "Widget", topics[2].Name, "same base name with different extensions are distinct topics")
}

func TestGetPrefersText(t *testing.T) {
	s := newTestStore(t)
	writeFile(t, s, "Widget.md", "markdown")
	writeFile(t, s, "Widget.txt", "plain")
	writeFile(t, s, "Gadget.md", "only md")

	topic, err := s.Get("Widget")
	require.NoError(t, err)
	assert.Equal(t, "plain", topic.Content)

	topic, err = s.Get("Gadget")
	require.NoError(t, err)
	assert.Equal(t, "Gadget.md", topic.FileName)

	_, err = s.Get("Missing")
	assert.ErrorIs(t, err, ErrTopicNotFound)

	_, err = s.Get("../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestCreate(t *testing.T) {
	s := newTestStore(t)

	topic, err := s.Create("Launch", "")
	require.NoError(t, err)
	assert.Equal(t, "Launch.txt", topic.FileName)
	assert.Empty(t, topic.Content)

	md, err := s.Create("Notes", ".md")
	require.NoError(t, err)
	assert.Equal(t, "Notes.md", md.FileName)
	assert.True(t, strings.HasPrefix(md.Content, "# Notes\n\n## About this topic"))

	_, err = s.Create("Launch", ".txt")
	assert.ErrorIs(t, err, ErrTopicExists)

	_, err = s.Create("Launch.txt", ".md")
	assert.ErrorIs(t, err, ErrTopicExists, "a name with a topic extension is used as-is")

	_, err = s.Create("a/b", "")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestSaveDeleteAndDeleteAll(t *testing.T) {
	s := newTestStore(t)
	writeFile(t, s, "One.txt", "1")
	writeFile(t, s, "Two.md", "2")
	writeFile(t, s, "keep.png", "x")

	saved, err := s.Save("One.txt", "updated")
	require.NoError(t, err)
	assert.Equal(t, "updated", saved.Content)

	got, err := s.Read("One.txt")
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Content)

	_, err = s.Save("Nope.txt", "x")
	assert.ErrorIs(t, err, ErrTopicNotFound)

	require.NoError(t, s.Delete("One.txt"))
	assert.ErrorIs(t, s.Delete("One.txt"), ErrTopicNotFound)

	n, err := s.DeleteAll()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(filepath.Join(s.Dir(), "keep.png"))
	assert.NoError(t, err, "non-topic files are left alone")
}

func TestLooksLikeText(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"plain ascii", []byte("Hello, world!\nSecond line.\t"), true},
		{"empty", nil, false},
		{"nul heavy", bytes.Repeat([]byte{0x00, 'a'}, 100), false},
		{"ten percent binary", append(bytes.Repeat([]byte("a"), 90), bytes.Repeat([]byte{0x01}, 10)...), true},
		{"eleven percent binary", append(bytes.Repeat([]byte("a"), 89), bytes.Repeat([]byte{0x01}, 11)...), false},
		{"only first 1KB counts", append(bytes.Repeat([]byte("a"), 1024), bytes.Repeat([]byte{0xFF}, 4096)...), true},
		{"extended bytes", bytes.Repeat([]byte{0xC3, 0xA9, 'e'}, 50), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikeText(tt.data))
		})
	}
}

func TestImport(t *testing.T) {
	s := newTestStore(t)

	topic, err := s.Import("notes.md", "", strings.NewReader("# hi"), ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, "notes.md", topic.FileName)

	topic, err = s.Import("readme.rst", "text/x-rst; charset=utf-8", strings.NewReader("\x01\x02\x03"), ImportOptions{})
	require.NoError(t, err, "declared text types skip the heuristic")
	assert.Equal(t, "readme.txt", topic.FileName)

	topic, err = s.Import("data.csv", "application/octet-stream", strings.NewReader("a,b,c\n1,2,3\n"), ImportOptions{Extension: ".md"})
	require.NoError(t, err)
	assert.Equal(t, "data.md", topic.FileName)

	_, err = s.Import("photo.jpg", "", bytes.NewReader(bytes.Repeat([]byte{0xFF, 0xD8, 0x00}, 100)), ImportOptions{})
	assert.ErrorIs(t, err, ErrNotText)

	_, err = s.Import("report.pdf", "application/pdf", strings.NewReader("looks like text"), ImportOptions{})
	assert.ErrorIs(t, err, ErrNotText, "a concrete non-text type is not sniffed")

	topic, err = s.Import("report.pdf", "application/pdf", strings.NewReader("forced"), ImportOptions{ForceText: true})
	require.NoError(t, err)
	assert.Equal(t, "report.txt", topic.FileName)
}

func TestImportExisting(t *testing.T) {
	s := newTestStore(t)
	writeFile(t, s, "Widget.txt", "old")

	_, err := s.Import("Widget.txt", "text/plain", strings.NewReader("new"), ImportOptions{})
	assert.ErrorIs(t, err, ErrTopicExists)

	_, err = s.Import("../../Widget.txt", "text/plain", strings.NewReader("new"), ImportOptions{Overwrite: true})
	require.NoError(t, err)

	got, err := s.Read("Widget.txt")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Content)
}

func TestImportTooLarge(t *testing.T) {
	s := newTestStore(t)
	big := bytes.NewReader(bytes.Repeat([]byte("a"), MaxImportBytes+1))
	_, err := s.Import("big.txt", "text/plain", big, ImportOptions{})
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestSeedSamples(t *testing.T) {
	fsys := fstest.MapFS{
		"samples/sample-topic.txt": {Data: []byte("sample")},
		"samples/postmuse.md":      {Data: []byte("# PostMuse")},
	}
	s := newTestStore(t)

	n, err := s.SeedSamples(fsys, DefaultSamples)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	topics, err := s.List()
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "PostMuse", topics[0].Name)
	assert.Equal(t, "Sample Topic", topics[1].Name)

	n, err = s.SeedSamples(fsys, DefaultSamples)
	require.NoError(t, err)
	assert.Zero(t, n, "a populated knowledge base is not reseeded")
}
