package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ElementKind identifies one variant of the canonical element set.
// The set is closed: every consumer (rendering, tree building, text
// extraction) switches exhaustively over these values.
type ElementKind string

const (
	ElementHeading   ElementKind = "heading"
	ElementParagraph ElementKind = "paragraph"
	ElementListItem  ElementKind = "list_item"
	ElementTable     ElementKind = "table"
	ElementFigure    ElementKind = "figure"
)

// AllElementKinds returns every defined element kind.
func AllElementKinds() []ElementKind {
	return []ElementKind{
		ElementHeading,
		ElementParagraph,
		ElementListItem,
		ElementTable,
		ElementFigure,
	}
}

// Element is one reading-order unit of a canonical page. Kind selects the
// variant; only the fields belonging to that variant are populated.
type Element struct {
	Kind ElementKind `json:"kind"`

	// Heading only.
	Level int `json:"level,omitempty"`

	// Heading, Paragraph, ListItem.
	Text string `json:"text,omitempty"`

	// Table only: rows of cell texts, order significant.
	Cells [][]string `json:"cells,omitempty"`

	// Table and Figure.
	Caption string `json:"caption,omitempty"`

	// Figure only: true means the figure was detected but its content
	// was not extracted.
	Placeholder bool `json:"placeholder,omitempty"`
}

// Heading builds a heading element. Level is clamped to >= 1.
func Heading(level int, text string) Element {
	if level < 1 {
		level = 1
	}
	return Element{Kind: ElementHeading, Level: level, Text: text}
}

// Paragraph builds a paragraph element.
func Paragraph(text string) Element {
	return Element{Kind: ElementParagraph, Text: text}
}

// ListItem builds a list item element.
func ListItem(text string) Element {
	return Element{Kind: ElementListItem, Text: text}
}

// Table builds a table element from rows of cell texts.
func Table(cells [][]string, caption string) Element {
	return Element{Kind: ElementTable, Cells: cells, Caption: caption}
}

// Figure builds a figure element. placeholder marks a detected-but-not-
// extracted figure.
func Figure(caption string, placeholder bool) Element {
	return Element{Kind: ElementFigure, Caption: caption, Placeholder: placeholder}
}

// PlainText returns the scoreable text content of the element. Table cells
// are joined in row order; figures contribute only their caption.
func (e Element) PlainText() string {
	switch e.Kind {
	case ElementHeading, ElementParagraph, ElementListItem:
		return e.Text
	case ElementTable:
		var parts []string
		for _, row := range e.Cells {
			for _, cell := range row {
				if cell != "" {
					parts = append(parts, cell)
				}
			}
		}
		return strings.Join(parts, " ")
	case ElementFigure:
		return e.Caption
	}
	return ""
}

// Validate checks that the element is a well-formed instance of its variant.
func (e Element) Validate() error {
	switch e.Kind {
	case ElementHeading:
		if e.Level < 1 {
			return eris.Errorf("model: heading level must be >= 1, got %d", e.Level)
		}
	case ElementParagraph, ElementListItem, ElementTable, ElementFigure:
	default:
		return eris.Errorf("model: unknown element kind %q", e.Kind)
	}
	return nil
}

// LayoutComplexity buckets a page by how hard its layout is to parse.
type LayoutComplexity string

const (
	ComplexitySimple   LayoutComplexity = "simple"
	ComplexityModerate LayoutComplexity = "moderate"
	ComplexityComplex  LayoutComplexity = "complex"
)

// Valid reports whether c is one of the defined complexity buckets.
func (c LayoutComplexity) Valid() bool {
	switch c {
	case ComplexitySimple, ComplexityModerate, ComplexityComplex:
		return true
	}
	return false
}

// PageAttributes carry page-level labels used for bucketed reporting.
type PageAttributes struct {
	LayoutComplexity LayoutComplexity `json:"layout_complexity,omitempty"`
	ContentType      string           `json:"content_type,omitempty"`
	HasRotation      bool             `json:"has_rotation,omitempty"`
}

// CanonicalPage is the parser-agnostic representation of one PDF page,
// used for both predictions and ground truth. Elements order is reading
// order and is the basis of reading-order scoring. A page with zero
// elements is valid (blank or undetectable content).
type CanonicalPage struct {
	DocumentID    string         `json:"document_id"`
	PDFPageNumber int            `json:"pdf_page_number"`
	BookPageLabel string         `json:"book_page_label,omitempty"`
	SectionPath   []string       `json:"section_path,omitempty"`
	Attributes    PageAttributes `json:"page_attributes"`
	Elements      []Element      `json:"elements"`

	// RenderedMarkdown is derived by the normalizer, never hand-authored.
	// Persisted for fast reuse and for human review of ground truth.
	RenderedMarkdown string `json:"rendered_markdown,omitempty"`

	// ParseFailed marks the parse-failure sentinel: the parser produced no
	// usable output for this page. Such pages score zero but stay in every
	// denominator.
	ParseFailed bool `json:"parse_failed,omitempty"`
}

// Validate checks schema-level invariants. A validation failure here is
// store-level corruption, fatal for the run that loaded the page.
func (p *CanonicalPage) Validate() error {
	if p.DocumentID == "" {
		return eris.New("model: page missing document_id")
	}
	if p.PDFPageNumber < 1 {
		return eris.Errorf("model: pdf_page_number must be >= 1, got %d", p.PDFPageNumber)
	}
	if p.Attributes.LayoutComplexity != "" && !p.Attributes.LayoutComplexity.Valid() {
		return eris.Errorf("model: unknown layout_complexity %q", p.Attributes.LayoutComplexity)
	}
	for i, el := range p.Elements {
		if err := el.Validate(); err != nil {
			return eris.Wrapf(err, "model: element %d", i)
		}
	}
	return nil
}

// FailedPage returns the parse-failure sentinel for a page slot.
func FailedPage(documentID string, pageNumber int) CanonicalPage {
	return CanonicalPage{
		DocumentID:    documentID,
		PDFPageNumber: pageNumber,
		ParseFailed:   true,
	}
}
