package knowledge

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"github.com/thinkscotty/postmuse/internal/models"
)

const (
	// MaxImportBytes bounds a single imported topic.
	MaxImportBytes = 5 << 20

	sniffLen = 1024
)

var (
	ErrNotText  = errors.New("file does not look like text")
	ErrTooLarge = errors.New("file too large")
)

type ImportOptions struct {
	// Overwrite replaces an existing topic with the same file name.
	Overwrite bool
	// ForceText imports content whose type says otherwise.
	ForceText bool
	// Extension is used when the source name has no topic extension; ".txt" by default.
	Extension string
}

// Import copies external content into the knowledge base. Sources named
// .txt/.md are taken as-is. Other names are accepted when the declared type
// is text/*, or when the type is missing or generic and the first 1KB looks
// like text; they are stored under their base name with a topic extension.
func (s *Store) Import(fileName, declaredType string, r io.Reader, opts ImportOptions) (models.Topic, error) {
	fileName = filepath.Base(strings.TrimSpace(fileName))
	if err := validateName(fileName); err != nil {
		return models.Topic{}, err
	}

	data, tooLarge, err := readAll(r, MaxImportBytes)
	if err != nil {
		return models.Topic{}, fmt.Errorf("read import: %w", err)
	}
	if tooLarge {
		return models.Topic{}, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, MaxImportBytes)
	}

	if !IsTopicFile(fileName) {
		if !opts.ForceText && !acceptAsText(declaredType, data) {
			return models.Topic{}, fmt.Errorf("%w: %s (%s)", ErrNotText, fileName, declaredType)
		}
		fileName = TopicName(fileName) + normalizeExt(opts.Extension)
	}
	if err := validateFileName(fileName); err != nil {
		return models.Topic{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if opts.Overwrite {
		if err := s.ensureDir(); err != nil {
			return models.Topic{}, err
		}
		if err := writeAtomic(filepath.Join(s.dir, fileName), data); err != nil {
			return models.Topic{}, fmt.Errorf("import topic %s: %w", fileName, err)
		}
	} else if err := s.writeNew(fileName, data); err != nil {
		return models.Topic{}, err
	}

	slog.Info("Imported topic", "file", fileName, "bytes", len(data), "overwrite", opts.Overwrite)
	return models.Topic{Name: TopicName(fileName), FileName: fileName, Content: string(data)}, nil
}

func acceptAsText(declaredType string, data []byte) bool {
	mediaType, _, err := mime.ParseMediaType(declaredType)
	if err == nil && strings.HasPrefix(mediaType, "text/") {
		return true
	}
	if err != nil || mediaType == "" || mediaType == "application/octet-stream" {
		return LooksLikeText(data)
	}
	return false
}

// readAll caps reads at limit bytes and reports whether the source was larger.
func readAll(r io.Reader, limit int64) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return nil, true, nil
	}
	return data, false, nil
}

// LooksLikeText samples the first 1KB and reports whether at most 10% of the
// bytes are control or non-ASCII bytes. Empty input is not text.
func LooksLikeText(data []byte) bool {
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	if len(data) == 0 {
		return false
	}

	binary := 0
	for _, b := range data {
		if b <= 0x08 || (b >= 0x0E && b <= 0x1F) || b >= 0x7F {
			binary++
		}
	}
	return float64(binary)/float64(len(data)) <= 0.1
}
