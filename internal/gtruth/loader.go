// Package gtruth loads and sanity-checks the human-verified ground-truth
// corpus. Ground truth lives as one JSON file per (document, page), with
// rendered Markdown populated for human review.
package gtruth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parser-bench/internal/model"
	"github.com/sells-group/parser-bench/internal/render"
)

const pagePrefix = "page_"

func pageFilename(pageNumber int) string {
	return fmt.Sprintf("%s%04d.json", pagePrefix, pageNumber)
}

// Load reads every ground-truth page for one document, ordered by
// pdf_page_number. A malformed page file is store-level corruption and
// fails the load outright.
func Load(root, documentID string) ([]model.CanonicalPage, error) {
	dir := filepath.Join(root, documentID)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "gtruth: read dir %s", dir)
	}

	var pages []model.CanonicalPage
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, pagePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		page, err := loadPageFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if page.DocumentID != documentID {
			return nil, eris.Errorf("gtruth: %s/%s declares document %q", documentID, name, page.DocumentID)
		}
		pages = append(pages, *page)
	}

	sort.Slice(pages, func(i, j int) bool {
		return pages[i].PDFPageNumber < pages[j].PDFPageNumber
	})
	return pages, nil
}

// LoadPage reads the ground truth for a single page, returning nil when
// none exists (the page is then unscored, which is not an error).
func LoadPage(root, documentID string, pageNumber int) (*model.CanonicalPage, error) {
	path := filepath.Join(root, documentID, pageFilename(pageNumber))
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return loadPageFile(path)
}

func loadPageFile(path string) (*model.CanonicalPage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "gtruth: read %s", path)
	}
	var page model.CanonicalPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, eris.Wrapf(err, "gtruth: malformed page file %s", path)
	}
	if err := page.Validate(); err != nil {
		return nil, eris.Wrapf(err, "gtruth: invalid page file %s", path)
	}
	return &page, nil
}

// Save writes a ground-truth page, recomputing its rendered Markdown so
// the persisted review copy always matches the normalizer output.
func Save(root string, page model.CanonicalPage) error {
	if err := page.Validate(); err != nil {
		return eris.Wrap(err, "gtruth: refusing to save invalid page")
	}
	page.RenderedMarkdown = render.Markdown(page)

	dir := filepath.Join(root, page.DocumentID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "gtruth: create dir %s", dir)
	}

	data, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return eris.Wrap(err, "gtruth: marshal page")
	}
	path := filepath.Join(dir, pageFilename(page.PDFPageNumber))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "gtruth: write %s", path)
	}
	return nil
}
