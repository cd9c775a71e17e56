// Package pdf loads page text from PDF files.
package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driven"
)

// Ensure Loader implements DocumentLoader
var _ driven.DocumentLoader = (*Loader)(nil)

// Loader extracts plain text per page with github.com/ledongthuc/pdf
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a PDF loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// ListFiles returns the .pdf files directly inside dir, sorted by path.
// Subdirectories are not descended into.
func (l *Loader) ListFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: directory %s", domain.ErrNotFound, dir)
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Load returns the text of every page. Pages that fail to decode are
// logged and skipped; a file with no readable pages is an error.
func (l *Loader) Load(ctx context.Context, path string) (pages []domain.Page, err error) {
	// The parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("parse %s: %v", filepath.Base(path), r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	total := r.NumPage()
	pages = make([]domain.Page, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			l.logger.Warn("skipping unreadable page", "file", filepath.Base(path), "page", i, "error", err)
			continue
		}
		pages = append(pages, domain.Page{Number: i, Text: text})
	}

	if total > 0 && len(pages) == 0 {
		return nil, fmt.Errorf("no readable pages in %s", filepath.Base(path))
	}
	return pages, nil
}
