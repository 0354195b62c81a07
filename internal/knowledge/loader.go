// Package knowledge loads the static knowledge base of known issues.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/support-chat/internal/domain"
	"github.com/ashureev/support-chat/internal/metrics"
)

var (
	// ErrNotFound is returned when the knowledge base file does not exist.
	ErrNotFound = errors.New("knowledge base not found")
	// ErrMalformed is returned when the knowledge base cannot be parsed.
	ErrMalformed = errors.New("knowledge base malformed")
)

// Source provides the current list of issues.
type Source interface {
	Issues(ctx context.Context) ([]domain.Issue, error)
}

// document is the on-disk layout of the knowledge base.
type document struct {
	Issues []domain.Issue `json:"issues"`
}

// FileLoader reads a JSON knowledge base from disk and caches the parsed
// issues until the file's modification time or size changes.
type FileLoader struct {
	path    string
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	issues  []domain.Issue
	modTime time.Time
	size    int64
	cached  bool
}

// NewFileLoader creates a loader for the knowledge base at path.
func NewFileLoader(path string, logger *slog.Logger, m *metrics.Metrics) *FileLoader {
	if logger == nil {
		logger = slog.Default()
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &FileLoader{
		path:    filepath.Clean(path),
		logger:  logger,
		metrics: m,
	}
}

// Path returns the knowledge base location.
func (l *FileLoader) Path() string {
	return l.path
}

// Issues returns the current issues. The returned slice is shared and must
// not be modified.
func (l *FileLoader) Issues(ctx context.Context) ([]domain.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w at: %s", ErrNotFound, l.path)
	}
	if err != nil {
		return nil, fmt.Errorf("stat knowledge base: %w", err)
	}

	l.mu.RLock()
	if l.cached && info.ModTime().Equal(l.modTime) && info.Size() == l.size {
		issues := l.issues
		l.mu.RUnlock()
		return issues, nil
	}
	l.mu.RUnlock()

	return l.reload(info)
}

func (l *FileLoader) reload(info fs.FileInfo) ([]domain.Issue, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Another caller may have reloaded while we waited for the lock.
	if l.cached && info.ModTime().Equal(l.modTime) && info.Size() == l.size {
		return l.issues, nil
	}

	issues, err := readFile(l.path)
	l.metrics.RecordReload(err, len(issues))
	if err != nil {
		l.logger.Error("Failed to load knowledge base", "path", l.path, "error", err)
		return nil, err
	}

	l.issues = issues
	l.modTime = info.ModTime()
	l.size = info.Size()
	l.cached = true

	l.logger.Info("Knowledge base loaded", "path", l.path, "issues", len(issues))
	return issues, nil
}

// Invalidate drops the cached issues so the next call re-reads the file.
func (l *FileLoader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cached = false
	l.issues = nil
}

func (l *FileLoader) isCached() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cached
}

func readFile(path string) ([]domain.Issue, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w at: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if doc.Issues == nil {
		doc.Issues = []domain.Issue{}
	}
	return doc.Issues, nil
}
