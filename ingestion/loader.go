package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

// ErrInvalidFilename is returned by AddDocument for names that are not a
// plain file name.
var ErrInvalidFilename = errors.New("invalid document filename")

type Option func(*Loader)

func WithChunkSize(size int) Option {
	return func(l *Loader) { l.chunkSize = size }
}

func WithChunkOverlap(overlap int) Option {
	return func(l *Loader) { l.chunkOverlap = overlap }
}

func WithLogger(logger *log.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Loader reads career documents from a single directory.
type Loader struct {
	dir          string
	chunkSize    int
	chunkOverlap int
	logger       *log.Logger
}

func NewLoader(dir string, opts ...Option) (*Loader, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("documents directory must be set")
	}

	l := &Loader{
		dir:          dir,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		logger:       log.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", l.chunkSize)
	}
	if l.chunkOverlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", l.chunkOverlap)
	}
	if l.chunkOverlap >= l.chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", l.chunkOverlap, l.chunkSize)
	}

	return l, nil
}

func (l *Loader) Dir() string { return l.dir }

// Load returns the chunks of every readable document in the directory,
// seeding the built-in documents first when the directory is empty.
func (l *Loader) Load(ctx context.Context) ([]Chunk, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create documents directory: %w", err)
	}

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read documents directory: %w", err)
	}
	if len(entries) == 0 {
		l.logger.Printf("no documents found in %s, creating sample career data", l.dir)
		if err := l.writeSeed(); err != nil {
			return nil, err
		}
	}

	chunks, err := l.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(chunks) > 0 {
		return chunks, nil
	}

	l.logger.Printf("no documents loaded from %s, recreating sample data", l.dir)
	if err := l.writeSeed(); err != nil {
		return nil, err
	}
	chunks, err = l.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no documents could be loaded from %s", l.dir)
	}
	return chunks, nil
}

func (l *Loader) loadAll(ctx context.Context) ([]Chunk, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read documents directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || DetectFormat(entry.Name()) == FormatUnknown {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var chunks []Chunk
	docs := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := l.readFile(ctx, name)
		if err != nil {
			l.logger.Printf("could not load %s: %v", name, err)
			continue
		}
		split := l.Split(text, name)
		if len(split) == 0 {
			l.logger.Printf("skip empty document %s", name)
			continue
		}
		chunks = append(chunks, split...)
		docs++
	}

	if docs > 0 {
		l.logger.Printf("loaded %d chunks from %d documents in %s", len(chunks), docs, l.dir)
	}
	return chunks, nil
}

func (l *Loader) readFile(ctx context.Context, name string) (string, error) {
	parser, ok := parserFor(DetectFormat(name))
	if !ok {
		return "", fmt.Errorf("unsupported document format")
	}
	data, err := os.ReadFile(filepath.Join(l.dir, name))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return parser.Parse(ctx, data)
}

// LoadDocument reads and splits a single document from the directory.
func (l *Loader) LoadDocument(ctx context.Context, name string) ([]Chunk, error) {
	if _, err := CleanFilename(name); err != nil {
		return nil, err
	}
	text, err := l.readFile(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return l.Split(text, name), nil
}

// Split cuts content from source using the loader's chunk settings.
func (l *Loader) Split(content, source string) []Chunk {
	return SplitText(content, source, l.chunkSize, l.chunkOverlap)
}

// AddDocument stores content under filename in the documents directory and
// returns its chunks. The stored name is returned as each chunk's Source.
func (l *Loader) AddDocument(ctx context.Context, content, filename string) ([]Chunk, error) {
	name, err := CleanFilename(filename)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("document %s is empty", name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create documents directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.dir, name), []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write document: %w", err)
	}

	chunks := l.Split(content, name)
	l.logger.Printf("stored document %s (%d chunks)", name, len(chunks))
	return chunks, nil
}

// CleanFilename validates a user supplied document name. Only a bare file
// name is accepted; a .txt extension is appended when the name has no text
// extension.
func CleanFilename(filename string) (string, error) {
	name := strings.TrimSpace(filename)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	switch DetectFormat(name) {
	case FormatText, FormatMarkdown:
		return name, nil
	default:
		return name + ".txt", nil
	}
}
