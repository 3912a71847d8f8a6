package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parser-bench/internal/model"
	"github.com/sells-group/parser-bench/internal/render"
)

func TestCanonicalFromMarkdownRoundtrip(t *testing.T) {
	t.Parallel()

	original := model.CanonicalPage{
		DocumentID:    "fieldguide-vol1",
		PDFPageNumber: 4,
		Elements: []model.Element{
			model.Heading(1, "Field Guide"),
			model.Paragraph("Oaks and maples dominate the canopy."),
			model.Heading(2, "Species"),
			model.ListItem("Red oak"),
			model.ListItem("Sugar maple"),
			model.Table([][]string{{"Species", "Height"}, {"Red oak", "25 m"}}, "Common trees"),
			model.Figure("Leaf shapes", false),
			model.Figure("", true),
		},
	}
	rendered := render.Markdown(original)

	page, err := CanonicalFromMarkdown(original.DocumentID, original.PDFPageNumber, []byte(rendered))
	require.NoError(t, err)

	assert.Equal(t, original.Elements, page.Elements)
	assert.Equal(t, rendered, page.RenderedMarkdown)
}

func TestCanonicalFromMarkdownBlankPage(t *testing.T) {
	t.Parallel()

	page, err := CanonicalFromMarkdown("doc1", 1, []byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, page.Elements)
	assert.Empty(t, page.RenderedMarkdown)
}

func TestCanonicalFromMarkdownRejectsBadPageNumber(t *testing.T) {
	t.Parallel()

	_, err := CanonicalFromMarkdown("doc1", 0, []byte("text"))
	require.Error(t, err)
}

func TestCanonicalFromMarkdownFigures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want model.Element
	}{
		{"figure line", "FIGURE: Leaf shapes\n", model.Figure("Leaf shapes", false)},
		{"untitled figure line", "FIGURE: untitled\n", model.Figure("", true)},
		{"image with alt text", "![Leaf shapes](leaf.png)\n", model.Figure("Leaf shapes", false)},
		{"image with title only", "![](leaf.png \"Canopy\")\n", model.Figure("Canopy", false)},
		{"bare image", "![](leaf.png)\n", model.Figure("", true)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			page, err := CanonicalFromMarkdown("doc1", 1, []byte(tt.src))
			require.NoError(t, err)
			require.Len(t, page.Elements, 1)
			assert.Equal(t, tt.want, page.Elements[0])
		})
	}
}

func TestCanonicalFromMarkdownTableCaption(t *testing.T) {
	t.Parallel()

	t.Run("caption paragraph after the grid", func(t *testing.T) {
		t.Parallel()
		src := "| a | b |\n| --- | --- |\n| c | d |\n\nTable: After the grid\n"
		page, err := CanonicalFromMarkdown("doc1", 1, []byte(src))
		require.NoError(t, err)
		require.Len(t, page.Elements, 1)
		assert.Equal(t, model.ElementTable, page.Elements[0].Kind)
		assert.Equal(t, "After the grid", page.Elements[0].Caption)
	})

	t.Run("caption line directly under a wide grid", func(t *testing.T) {
		t.Parallel()
		// The caption line parses as a row padded to the two-column grid
		// width; it must become the caption, never a data row.
		src := "| Species | Height |\n| --- | --- |\n| Red oak | 25 m |\nTable: Common trees\n"
		page, err := CanonicalFromMarkdown("doc1", 1, []byte(src))
		require.NoError(t, err)
		require.Len(t, page.Elements, 1)
		assert.Equal(t, "Common trees", page.Elements[0].Caption)
		assert.Equal(t, [][]string{{"Species", "Height"}, {"Red oak", "25 m"}}, page.Elements[0].Cells)
	})

	t.Run("orphan caption stays a paragraph", func(t *testing.T) {
		t.Parallel()
		page, err := CanonicalFromMarkdown("doc1", 1, []byte("Table: Lost caption\n"))
		require.NoError(t, err)
		require.Len(t, page.Elements, 1)
		assert.Equal(t, model.Paragraph("Table: Lost caption"), page.Elements[0])
	})

	t.Run("second caption does not overwrite", func(t *testing.T) {
		t.Parallel()
		src := "| a |\n| --- |\nTable: First\n\nTable: Second\n"
		page, err := CanonicalFromMarkdown("doc1", 1, []byte(src))
		require.NoError(t, err)
		require.Len(t, page.Elements, 2)
		assert.Equal(t, "First", page.Elements[0].Caption)
		assert.Equal(t, model.Paragraph("Table: Second"), page.Elements[1])
	})
}

func TestCanonicalFromMarkdownLists(t *testing.T) {
	t.Parallel()

	src := "- parent\n  - child one\n  - child two\n- sibling\n"
	page, err := CanonicalFromMarkdown("doc1", 1, []byte(src))
	require.NoError(t, err)

	// Nesting flattens: reading order is all that survives.
	require.Len(t, page.Elements, 4)
	assert.Equal(t, model.ListItem("parent"), page.Elements[0])
	assert.Equal(t, model.ListItem("child one"), page.Elements[1])
	assert.Equal(t, model.ListItem("child two"), page.Elements[2])
	assert.Equal(t, model.ListItem("sibling"), page.Elements[3])
}

func TestCanonicalFromMarkdownDegradedBlocks(t *testing.T) {
	t.Parallel()

	t.Run("code fence becomes a paragraph", func(t *testing.T) {
		t.Parallel()
		page, err := CanonicalFromMarkdown("doc1", 1, []byte("```\nraw extract\n```\n"))
		require.NoError(t, err)
		require.Len(t, page.Elements, 1)
		assert.Equal(t, model.Paragraph("raw extract"), page.Elements[0])
	})

	t.Run("blockquote contents are lifted", func(t *testing.T) {
		t.Parallel()
		page, err := CanonicalFromMarkdown("doc1", 1, []byte("> ## Quoted heading\n> quoted text\n"))
		require.NoError(t, err)
		require.Len(t, page.Elements, 2)
		assert.Equal(t, model.Heading(2, "Quoted heading"), page.Elements[0])
		assert.Equal(t, model.Paragraph("quoted text"), page.Elements[1])
	})

	t.Run("thematic break is dropped", func(t *testing.T) {
		t.Parallel()
		page, err := CanonicalFromMarkdown("doc1", 1, []byte("before\n\n***\n\nafter\n"))
		require.NoError(t, err)
		require.Len(t, page.Elements, 2)
		assert.Equal(t, model.Paragraph("before"), page.Elements[0])
		assert.Equal(t, model.Paragraph("after"), page.Elements[1])
	})

	t.Run("soft line breaks join with a space", func(t *testing.T) {
		t.Parallel()
		page, err := CanonicalFromMarkdown("doc1", 1, []byte("line one\nline two\n"))
		require.NoError(t, err)
		require.Len(t, page.Elements, 1)
		assert.Equal(t, model.Paragraph("line one line two"), page.Elements[0])
	})
}
