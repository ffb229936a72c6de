// Package knowledge manages the flat directory of topic files that the
// opportunity scan and post generation draw from.
package knowledge

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/thinkscotty/postmuse/internal/models"
)

const (
	ExtText     = ".txt"
	ExtMarkdown = ".md"
)

var (
	ErrTopicExists   = errors.New("topic already exists")
	ErrTopicNotFound = errors.New("topic not found")
	ErrInvalidName   = errors.New("invalid topic name")
)

type Store struct {
	dir string

	// mu serialises writers; readers tolerate concurrent changes file by file.
	mu sync.Mutex
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string { return s.dir }

// IsTopicFile reports whether name carries a topic extension, ignoring case.
func IsTopicFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ExtText || ext == ExtMarkdown
}

// TopicName strips the extension from a topic file name.
func TopicName(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}

// List reads every topic file in the directory, sorted by file name. Files
// that fail to read are logged and skipped. A missing directory is empty.
func (s *Store) List() ([]models.Topic, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read topics directory: %w", err)
	}

	var topics []models.Topic
	for _, e := range entries {
		if e.IsDir() || !IsTopicFile(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			slog.Warn("Skipping unreadable topic", "file", e.Name(), "error", err)
			continue
		}
		topics = append(topics, models.Topic{
			Name:     TopicName(e.Name()),
			FileName: e.Name(),
			Content:  string(data),
		})
	}
	return topics, nil
}

// Get loads a topic by display name, preferring the .txt file over .md.
func (s *Store) Get(name string) (models.Topic, error) {
	if err := validateName(name); err != nil {
		return models.Topic{}, err
	}
	for _, ext := range []string{ExtText, ExtMarkdown} {
		fileName := name + ext
		info, err := os.Stat(filepath.Join(s.dir, fileName))
		if err != nil || info.IsDir() {
			continue
		}
		return s.Read(fileName)
	}
	return models.Topic{}, fmt.Errorf("%w: %s", ErrTopicNotFound, name)
}

// Read loads a topic by its exact file name.
func (s *Store) Read(fileName string) (models.Topic, error) {
	if err := validateFileName(fileName); err != nil {
		return models.Topic{}, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, fileName))
	if errors.Is(err, fs.ErrNotExist) {
		return models.Topic{}, fmt.Errorf("%w: %s", ErrTopicNotFound, fileName)
	}
	if err != nil {
		return models.Topic{}, fmt.Errorf("read topic %s: %w", fileName, err)
	}
	return models.Topic{Name: TopicName(fileName), FileName: fileName, Content: string(data)}, nil
}

// Create makes a new empty topic. name may already carry a topic extension;
// otherwise ext (".txt" or ".md", default ".txt") is appended. Markdown topics
// start from a short template.
func (s *Store) Create(name, ext string) (models.Topic, error) {
	name = strings.TrimSpace(name)
	fileName := name
	if !IsTopicFile(name) {
		fileName = name + normalizeExt(ext)
	}
	if err := validateFileName(fileName); err != nil {
		return models.Topic{}, err
	}

	content := ""
	if strings.EqualFold(filepath.Ext(fileName), ExtMarkdown) {
		content = markdownTemplate(TopicName(fileName))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeNew(fileName, []byte(content)); err != nil {
		return models.Topic{}, err
	}
	slog.Info("Created topic", "file", fileName)
	return models.Topic{Name: TopicName(fileName), FileName: fileName, Content: content}, nil
}

// Save replaces the content of an existing topic.
func (s *Store) Save(fileName, content string) (models.Topic, error) {
	if err := validateFileName(fileName); err != nil {
		return models.Topic{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, fileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Topic{}, fmt.Errorf("%w: %s", ErrTopicNotFound, fileName)
		}
		return models.Topic{}, err
	}
	if err := writeAtomic(path, []byte(content)); err != nil {
		return models.Topic{}, fmt.Errorf("save topic %s: %w", fileName, err)
	}
	return models.Topic{Name: TopicName(fileName), FileName: fileName, Content: content}, nil
}

func (s *Store) Delete(fileName string) error {
	if err := validateFileName(fileName); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.dir, fileName))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrTopicNotFound, fileName)
	}
	if err != nil {
		return fmt.Errorf("delete topic %s: %w", fileName, err)
	}
	slog.Info("Deleted topic", "file", fileName)
	return nil
}

// DeleteAll removes every topic file and returns how many were removed.
func (s *Store) DeleteAll() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read topics directory: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !IsTopicFile(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return removed, fmt.Errorf("delete topic %s: %w", e.Name(), err)
		}
		removed++
	}
	slog.Info("Deleted all topics", "count", removed)
	return removed, nil
}

// Sample maps an embedded starter file to the topic file it becomes.
type Sample struct {
	Source   string
	FileName string
}

var DefaultSamples = []Sample{
	{Source: "samples/sample-topic.txt", FileName: "Sample Topic.txt"},
	{Source: "samples/postmuse.md", FileName: "PostMuse.md"},
}

// SeedSamples writes the samples when the directory holds no topics yet.
// It returns how many files were written.
func (s *Store) SeedSamples(fsys fs.FS, samples []Sample) (int, error) {
	existing, err := s.List()
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0
	for _, sample := range samples {
		data, err := fs.ReadFile(fsys, sample.Source)
		if err != nil {
			slog.Error("Failed to read sample topic", "source", sample.Source, "error", err)
			continue
		}
		if err := s.writeNew(sample.FileName, data); err != nil {
			slog.Error("Failed to write sample topic", "file", sample.FileName, "error", err)
			continue
		}
		written++
	}
	if written > 0 {
		slog.Info("Seeded sample topics", "count", written, "dir", s.dir)
	}
	return written, nil
}

func (s *Store) ensureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create topics directory: %w", err)
	}
	return nil
}

// writeNew creates fileName exclusively. Caller holds mu.
func (s *Store) writeNew(fileName string, data []byte) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(s.dir, fileName), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrTopicExists, fileName)
	}
	if err != nil {
		return fmt.Errorf("create topic %s: %w", fileName, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write topic %s: %w", fileName, err)
	}
	return f.Close()
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".topic-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == ExtMarkdown || ext == "md" || ext == "markdown" {
		return ExtMarkdown
	}
	return ExtText
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func validateFileName(fileName string) error {
	if err := validateName(fileName); err != nil {
		return err
	}
	if !IsTopicFile(fileName) || strings.TrimSpace(TopicName(fileName)) == "" {
		return fmt.Errorf("%w: %q must end in .txt or .md", ErrInvalidName, fileName)
	}
	return nil
}

func markdownTemplate(name string) string {
	return "# " + name + `

## About this topic

Write your topic information here using Markdown formatting.

## Markdown Tips:
- **Bold text** is created using ` + "`**text**`" + `
- *Italic text* is created using ` + "`*text*`" + `
- Use ` + "`#`" + ` symbols for headings
- Create lists with ` + "`-`" + ` or ` + "`*`" + `
- [Links](https://example.com) use ` + "`[text](url)`" + `

Delete these tips and add your own content.`
}
