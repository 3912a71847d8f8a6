package adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parser-bench/internal/model"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register(NewMarkdownDir("marker", "/out/marker")))
	require.NoError(t, r.Register(NewMarkdownDir("docling", "/out/docling")))

	// Duplicate names are rejected.
	require.Error(t, r.Register(NewMarkdownDir("marker", "/elsewhere")))

	p, err := r.Get("marker")
	require.NoError(t, err)
	assert.Equal(t, "marker", p.Name())

	_, err = r.Get("nope")
	require.Error(t, err)

	assert.Equal(t, []string{"docling", "marker"}, r.Names())
}

func TestMarkdownDirParse(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := filepath.Join(root, "fieldguide-vol1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page_0002.md"), []byte("# Oaks\n"), 0o644))

	a := NewMarkdownDir("marker", root)

	// The document id comes from the pdf filename.
	res, err := a.Parse(context.Background(), "/pdfs/fieldguide-vol1.pdf", 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("# Oaks\n"), res.Raw)
	assert.Zero(t, res.CostUSD)
}

func TestMarkdownDirParseMissingPage(t *testing.T) {
	t.Parallel()

	a := NewMarkdownDir("marker", t.TempDir())

	_, err := a.Parse(context.Background(), "/pdfs/fieldguide-vol1.pdf", 9)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrAdapterFailure))
}

func TestMarkdownDirParseCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewMarkdownDir("marker", t.TempDir())
	_, err := a.Parse(ctx, "/pdfs/doc.pdf", 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMarkdownDirConfigFingerprint(t *testing.T) {
	t.Parallel()

	a := NewMarkdownDir("marker", "/out/v1")
	b := NewMarkdownDir("marker", "/out/v2")

	assert.Len(t, a.ConfigFingerprint(), 16)
	assert.NotEqual(t, a.ConfigFingerprint(), b.ConfigFingerprint())
	assert.Equal(t, a.ConfigFingerprint(), NewMarkdownDir("other", "/out/v1").ConfigFingerprint())
}

func TestMarkdownDirToCanonical(t *testing.T) {
	t.Parallel()

	a := NewMarkdownDir("marker", t.TempDir())
	page, err := a.ToCanonical("doc1", 3, []byte("# Oaks\n\nAcorns ripen in autumn.\n"))
	require.NoError(t, err)

	assert.Equal(t, "doc1", page.DocumentID)
	assert.Equal(t, 3, page.PDFPageNumber)
	require.Len(t, page.Elements, 2)
	assert.Equal(t, model.ElementHeading, page.Elements[0].Kind)
	assert.Equal(t, model.ElementParagraph, page.Elements[1].Kind)
}
