package adapter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/sells-group/parser-bench/internal/model"
	"github.com/sells-group/parser-bench/internal/render"
)

const (
	figurePrefix       = "FIGURE: "
	tableCaptionPrefix = "Table: "
)

var markdownParser = goldmark.New(goldmark.WithExtensions(extension.Table))

// CanonicalFromMarkdown parses page Markdown into a canonical page. This
// is the shared back half of every adapter whose native output is
// Markdown: headings, paragraphs, list items, pipe tables, and FIGURE
// lines map onto the element set; everything else degrades to a
// paragraph so no text is lost.
func CanonicalFromMarkdown(documentID string, pageNumber int, src []byte) (model.CanonicalPage, error) {
	page := model.CanonicalPage{
		DocumentID:    documentID,
		PDFPageNumber: pageNumber,
	}

	doc := markdownParser.Parser().Parse(text.NewReader(src))
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		appendBlock(&page.Elements, n, src)
	}

	if err := page.Validate(); err != nil {
		return model.CanonicalPage{}, eris.Wrap(err, "adapter: canonicalize markdown")
	}
	page.RenderedMarkdown = render.Markdown(page)
	return page, nil
}

func appendBlock(elements *[]model.Element, n ast.Node, src []byte) {
	switch b := n.(type) {
	case *ast.Heading:
		*elements = append(*elements, model.Heading(b.Level, nodeText(b, src)))

	case *ast.Paragraph, *ast.TextBlock:
		appendParagraph(elements, n, src)

	case *ast.List:
		for li := b.FirstChild(); li != nil; li = li.NextSibling() {
			appendListItem(elements, li, src)
		}

	case *east.Table:
		appendTable(elements, b, src)

	case *ast.FencedCodeBlock:
		if txt := rawLines(b, src); txt != "" {
			*elements = append(*elements, model.Paragraph(txt))
		}

	case *ast.CodeBlock:
		if txt := rawLines(b, src); txt != "" {
			*elements = append(*elements, model.Paragraph(txt))
		}

	case *ast.Blockquote:
		for c := b.FirstChild(); c != nil; c = c.NextSibling() {
			appendBlock(elements, c, src)
		}

	case *ast.ThematicBreak:
		// Purely visual; carries no content.

	default:
		if txt := nodeText(n, src); txt != "" {
			*elements = append(*elements, model.Paragraph(txt))
		}
	}
}

// appendParagraph handles the paragraph-shaped conventions: FIGURE
// lines, trailing table captions, and image-only paragraphs become
// figures; everything else is a plain paragraph.
func appendParagraph(elements *[]model.Element, n ast.Node, src []byte) {
	if img := soleImage(n, src); img != nil {
		caption := nodeText(img, src)
		if caption == "" {
			caption = string(img.Title)
		}
		*elements = append(*elements, model.Figure(caption, caption == ""))
		return
	}

	txt := nodeText(n, src)
	if txt == "" {
		return
	}
	if caption, ok := strings.CutPrefix(txt, figurePrefix); ok {
		if caption == render.FigureUntitled {
			caption = ""
		}
		*elements = append(*elements, model.Figure(caption, caption == ""))
		return
	}
	if caption, ok := strings.CutPrefix(txt, tableCaptionPrefix); ok {
		if attachTableCaption(*elements, caption) {
			return
		}
	}
	*elements = append(*elements, model.Paragraph(txt))
}

func appendListItem(elements *[]model.Element, li ast.Node, src []byte) {
	for c := li.FirstChild(); c != nil; c = c.NextSibling() {
		switch cc := c.(type) {
		case *ast.List:
			// Nested lists flatten into sibling items.
			for sub := cc.FirstChild(); sub != nil; sub = sub.NextSibling() {
				appendListItem(elements, sub, src)
			}
		default:
			if txt := nodeText(c, src); txt != "" {
				*elements = append(*elements, model.ListItem(txt))
			}
		}
	}
}

func appendTable(elements *[]model.Element, tbl *east.Table, src []byte) {
	var cells [][]string
	caption := ""
	for row := tbl.FirstChild(); row != nil; row = row.NextSibling() {
		var cols []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cols = append(cols, nodeText(cell, src))
		}
		// A pipe-less "Table: ..." line directly under the grid parses as a
		// row padded with empty cells to the grid width; reclaim it as the
		// caption instead of a data row.
		if len(cols) > 0 && allEmpty(cols[1:]) {
			if c, ok := strings.CutPrefix(cols[0], tableCaptionPrefix); ok {
				caption = c
				continue
			}
		}
		cells = append(cells, cols)
	}
	*elements = append(*elements, model.Table(cells, caption))
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

// attachTableCaption assigns a caption to the immediately preceding
// table, if it has none yet.
func attachTableCaption(elements []model.Element, caption string) bool {
	if len(elements) == 0 {
		return false
	}
	last := &elements[len(elements)-1]
	if last.Kind != model.ElementTable || last.Caption != "" {
		return false
	}
	last.Caption = caption
	return true
}

// soleImage returns the paragraph's image when the image is its only
// content.
func soleImage(n ast.Node, src []byte) *ast.Image {
	var img *ast.Image
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch cc := c.(type) {
		case *ast.Image:
			if img != nil {
				return nil
			}
			img = cc
		case *ast.Text:
			if len(strings.TrimSpace(string(cc.Segment.Value(src)))) > 0 {
				return nil
			}
		default:
			return nil
		}
	}
	return img
}

func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.AutoLink:
			b.Write(t.URL(src))
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

func rawLines(n ast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// MarkdownDirAdapter benchmarks an external parser whose per-page
// Markdown output was produced out of band and dropped into a directory
// tree (<root>/<document_id>/page_NNNN.md). Parse reads the file;
// canonicalization is the shared Markdown path. This is how parsers
// without a Go SDK enter the benchmark.
type MarkdownDirAdapter struct {
	name string
	root string
}

// NewMarkdownDir returns an adapter named name reading page Markdown
// under root.
func NewMarkdownDir(name, root string) *MarkdownDirAdapter {
	return &MarkdownDirAdapter{name: name, root: root}
}

func (a *MarkdownDirAdapter) Name() string { return a.name }

// ConfigFingerprint digests the output root: pointing the adapter at a
// different output tree is a different parser configuration.
func (a *MarkdownDirAdapter) ConfigFingerprint() string {
	sum := sha256.Sum256([]byte("markdown-dir\x1f" + a.root))
	return hex.EncodeToString(sum[:8])
}

func (a *MarkdownDirAdapter) Parse(ctx context.Context, pdfPath string, pageNumber int) (*ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	documentID := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	path := filepath.Join(a.root, documentID, fmt.Sprintf("page_%04d.md", pageNumber))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(ErrAdapterFailure, "read %s: %v", path, err)
	}
	return &ParseResult{Raw: data}, nil
}

func (a *MarkdownDirAdapter) ToCanonical(documentID string, pageNumber int, raw []byte) (model.CanonicalPage, error) {
	return CanonicalFromMarkdown(documentID, pageNumber, raw)
}
