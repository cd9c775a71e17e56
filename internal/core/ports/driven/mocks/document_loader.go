package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driven"
)

// Ensure MockDocumentLoader implements DocumentLoader
var _ driven.DocumentLoader = (*MockDocumentLoader)(nil)

// MockDocumentLoader serves pages from memory, keyed by path.
type MockDocumentLoader struct {
	mu    sync.RWMutex
	dirs  map[string][]string
	files map[string][]domain.Page
	fails map[string]error
	loads []string
}

// NewMockDocumentLoader creates a new MockDocumentLoader
func NewMockDocumentLoader() *MockDocumentLoader {
	return &MockDocumentLoader{
		dirs:  make(map[string][]string),
		files: make(map[string][]domain.Page),
		fails: make(map[string]error),
	}
}

func (m *MockDocumentLoader) ListFiles(dir string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files, ok := m.dirs[dir]
	if !ok {
		return nil, fmt.Errorf("%w: directory %s", domain.ErrNotFound, dir)
	}
	out := make([]string, len(files))
	copy(out, files)
	sort.Strings(out)
	return out, nil
}

func (m *MockDocumentLoader) Load(ctx context.Context, path string) ([]domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loads = append(m.loads, path)
	if err, ok := m.fails[path]; ok {
		return nil, err
	}
	pages, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: file %s", domain.ErrNotFound, path)
	}
	return pages, nil
}

// Helper methods for testing

// AddDir registers an empty directory
func (m *MockDocumentLoader) AddDir(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dirs[dir]; !ok {
		m.dirs[dir] = []string{}
	}
}

// AddFile registers a file in dir with the given page texts
func (m *MockDocumentLoader) AddFile(dir, path string, pageTexts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dirs[dir] = append(m.dirs[dir], path)
	pages := make([]domain.Page, len(pageTexts))
	for i, text := range pageTexts {
		pages[i] = domain.Page{Number: i + 1, Text: text}
	}
	m.files[path] = pages
}

// FailFile makes Load return err for path
func (m *MockDocumentLoader) FailFile(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fails[path] = err
}

// Loads returns the paths passed to Load, in call order
func (m *MockDocumentLoader) Loads() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.loads))
	copy(out, m.loads)
	return out
}
