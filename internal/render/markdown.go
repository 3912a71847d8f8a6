// Package render is the canonical-to-markdown normalizer. Rendering is
// pure and deterministic: the same canonical page always yields
// byte-identical Markdown, no matter which parser produced it. Scoring
// and human review both consume this output, never parser-native formats.
package render

import (
	"strings"

	"github.com/sells-group/parser-bench/internal/model"
)

// FigureUntitled stands in for an empty figure caption so the rendered
// line is never bare.
const FigureUntitled = "untitled"

// Markdown renders a canonical page to standardized Markdown. Elements
// are rendered strictly in page order; rendering never reorders them.
func Markdown(page model.CanonicalPage) string {
	var b strings.Builder
	for i, el := range page.Elements {
		if i > 0 {
			b.WriteString("\n\n")
		}
		renderElement(&b, el)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

func renderElement(b *strings.Builder, el model.Element) {
	switch el.Kind {
	case model.ElementHeading:
		b.WriteString(strings.Repeat("#", el.Level))
		b.WriteString(" ")
		b.WriteString(sanitizeLine(el.Text))
	case model.ElementParagraph:
		b.WriteString(sanitizeLine(el.Text))
	case model.ElementListItem:
		b.WriteString("- ")
		b.WriteString(sanitizeLine(el.Text))
	case model.ElementTable:
		renderTable(b, el)
	case model.ElementFigure:
		caption := el.Caption
		if caption == "" {
			caption = FigureUntitled
		}
		b.WriteString("FIGURE: ")
		b.WriteString(sanitizeLine(caption))
	}
}

// renderTable emits pipe-delimited rows with a separator row after the
// first. Cell texts pass through untouched beyond pipe and newline
// sanitization.
func renderTable(b *strings.Builder, el model.Element) {
	width := 0
	for _, row := range el.Cells {
		if len(row) > width {
			width = len(row)
		}
	}

	for i, row := range el.Cells {
		if i > 0 {
			b.WriteString("\n")
		}
		writeRow(b, row, width)
		if i == 0 {
			b.WriteString("\n")
			b.WriteString("|")
			for c := 0; c < width; c++ {
				b.WriteString(" --- |")
			}
		}
	}

	if el.Caption != "" {
		if len(el.Cells) > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Table: ")
		b.WriteString(sanitizeLine(el.Caption))
	}
}

func writeRow(b *strings.Builder, row []string, width int) {
	b.WriteString("|")
	for c := 0; c < width; c++ {
		cell := ""
		if c < len(row) {
			cell = sanitizeCell(row[c])
		}
		b.WriteString(" ")
		b.WriteString(cell)
		b.WriteString(" |")
	}
}

// sanitizeLine folds embedded newlines into spaces so every element
// occupies its own block.
func sanitizeLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

// sanitizeCell additionally neutralizes pipes, which would break the row
// grid.
func sanitizeCell(s string) string {
	return strings.ReplaceAll(sanitizeLine(s), "|", "\\|")
}
