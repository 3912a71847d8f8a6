package gtruth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parser-bench/internal/model"
)

func gtPage(doc string, page int, label string) model.CanonicalPage {
	return model.CanonicalPage{
		DocumentID:    doc,
		PDFPageNumber: page,
		BookPageLabel: label,
		Elements: []model.Element{
			model.Heading(1, "Title"),
			model.Paragraph("Some body text."),
		},
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, Save(root, gtPage("doc1", 2, "ii")))
	require.NoError(t, Save(root, gtPage("doc1", 1, "i")))

	pages, err := Load(root, "doc1")
	require.NoError(t, err)
	require.Len(t, pages, 2)

	// Ordered by pdf page number regardless of write order.
	assert.Equal(t, 1, pages[0].PDFPageNumber)
	assert.Equal(t, 2, pages[1].PDFPageNumber)

	// Save recomputes rendered Markdown from the elements.
	assert.Contains(t, pages[0].RenderedMarkdown, "# Title")
}

func TestLoadMissingDocument(t *testing.T) {
	t.Parallel()

	pages, err := Load(t.TempDir(), "nope")
	require.NoError(t, err)
	assert.Nil(t, pages)
}

func TestLoadPage(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, Save(root, gtPage("doc1", 5, "3")))

	page, err := LoadPage(root, "doc1", 5)
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, "3", page.BookPageLabel)

	// Absent page is not an error: the caller records it as unscored.
	missing, err := LoadPage(root, "doc1", 6)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := filepath.Join(root, "doc1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page_0001.json"), []byte("{not json"), 0o644))

	_, err := Load(root, "doc1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}

func TestLoadRejectsForeignDocumentID(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, Save(root, gtPage("doc1", 1, "1")))

	// Move the file under a different document directory.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "doc2"), 0o755))
	require.NoError(t, os.Rename(
		filepath.Join(root, "doc1", "page_0001.json"),
		filepath.Join(root, "doc2", "page_0001.json"),
	))

	_, err := Load(root, "doc2")
	require.Error(t, err)
}

func TestSaveRejectsInvalidPage(t *testing.T) {
	t.Parallel()

	bad := gtPage("", 1, "1")
	require.Error(t, Save(t.TempDir(), bad))
}
