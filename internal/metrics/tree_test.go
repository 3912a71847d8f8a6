package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parser-bench/internal/model"
)

func samplePage() []model.Element {
	return []model.Element{
		model.Heading(1, "Chapter 3"),
		model.Paragraph("Opening remarks about the chapter."),
		model.Heading(2, "Section 3.1"),
		model.Paragraph("Details under the first section."),
		model.ListItem("first point"),
		model.ListItem("second point"),
		model.Heading(2, "Section 3.2"),
		model.Table([][]string{{"A", "B"}, {"1", "2"}}, ""),
	}
}

func TestBuildTreeNesting(t *testing.T) {
	t.Parallel()

	root := buildTree(samplePage())

	// One H1 under the root.
	require.Len(t, root.children, 1)
	h1 := root.children[0]
	assert.Equal(t, "Chapter 3", h1.label)

	// Paragraph + two H2 subtrees under the H1.
	require.Len(t, h1.children, 3)
	assert.Equal(t, model.ElementParagraph, h1.children[0].kind)

	s31 := h1.children[1]
	assert.Equal(t, "Section 3.1", s31.label)
	require.Len(t, s31.children, 3)

	s32 := h1.children[2]
	assert.Equal(t, "Section 3.2", s32.label)
	require.Len(t, s32.children, 1)
	assert.Equal(t, model.ElementTable, s32.children[0].kind)
}

func TestBuildTreeSiblingHeadings(t *testing.T) {
	t.Parallel()

	// An equal-level heading closes the previous one instead of nesting.
	root := buildTree([]model.Element{
		model.Heading(2, "First"),
		model.Heading(2, "Second"),
		model.Paragraph("body"),
	})
	require.Len(t, root.children, 2)
	assert.Empty(t, root.children[0].children)
	require.Len(t, root.children[1].children, 1)
}

func TestTreeSimilarity(t *testing.T) {
	t.Parallel()

	t.Run("identical pages score one", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 1.0, TreeSimilarity(samplePage(), samplePage()), 1e-9)
	})

	t.Run("both empty score one", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 1.0, TreeSimilarity(nil, nil), 1e-9)
	})

	t.Run("empty prediction is a full miss", func(t *testing.T) {
		t.Parallel()
		assert.Zero(t, TreeSimilarity(nil, samplePage()))
	})

	t.Run("kind change costs a full unit", func(t *testing.T) {
		t.Parallel()
		gt := []model.Element{
			model.Paragraph("alpha"),
			model.Paragraph("beta"),
		}
		pred := []model.Element{
			model.Paragraph("alpha"),
			model.ListItem("beta"),
		}
		// One relabel across kinds at cost 1, over denominator 2.
		assert.InDelta(t, 0.5, TreeSimilarity(pred, gt), 1e-9)
	})

	t.Run("near-identical text costs little", func(t *testing.T) {
		t.Parallel()
		gt := samplePage()
		pred := samplePage()
		pred[1] = model.Paragraph("Opening remarks about the chapter!")
		sim := TreeSimilarity(pred, gt)
		assert.Greater(t, sim, 0.95)
		assert.Less(t, sim, 1.0)
	})

	t.Run("missing subtree lowers the score", func(t *testing.T) {
		t.Parallel()
		gt := samplePage()
		pred := samplePage()[:6] // drop Section 3.2 and its table
		sim := TreeSimilarity(pred, gt)
		assert.InDelta(t, 1-2.0/8.0, sim, 1e-9)
	})
}
