// Package manifest loads the benchmark document manifest and probes the
// referenced PDFs so declared page metadata can be checked against the
// real files.
package manifest

import (
	"os"
	"path/filepath"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/parser-bench/internal/model"
)

// Manifest is the corpus description: which documents exist and where
// their PDFs live, relative to the manifest file.
type Manifest struct {
	Documents []model.Document `yaml:"documents"`

	// dir is the manifest file's directory; PDF paths resolve against it.
	dir string
}

// Load reads and validates a YAML manifest.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "manifest: read %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "manifest: parse %s", path)
	}
	m.dir = filepath.Dir(path)

	seen := make(map[string]struct{}, len(m.Documents))
	for i, doc := range m.Documents {
		if doc.ID == "" {
			return nil, eris.Errorf("manifest: document %d missing id", i)
		}
		if doc.PDFFilename == "" {
			return nil, eris.Errorf("manifest: document %q missing pdf_filename", doc.ID)
		}
		if doc.PageCount < 1 {
			return nil, eris.Errorf("manifest: document %q has page_count %d", doc.ID, doc.PageCount)
		}
		if _, dup := seen[doc.ID]; dup {
			return nil, eris.Errorf("manifest: duplicate document id %q", doc.ID)
		}
		seen[doc.ID] = struct{}{}
	}
	return &m, nil
}

// Get returns the manifest entry for a document id.
func (m *Manifest) Get(documentID string) (model.Document, error) {
	for _, doc := range m.Documents {
		if doc.ID == documentID {
			return doc, nil
		}
	}
	return model.Document{}, eris.Errorf("manifest: unknown document %q", documentID)
}

// PDFPath resolves a document's PDF location.
func (m *Manifest) PDFPath(doc model.Document) string {
	if filepath.IsAbs(doc.PDFFilename) {
		return doc.PDFFilename
	}
	return filepath.Join(m.dir, doc.PDFFilename)
}

// ProbeResult is what the actual PDF says about itself.
type ProbeResult struct {
	PageCount    int
	RotatedPages map[int]bool
}

// Probe opens the PDF and reads its true page count and per-page
// rotation. Used to verify manifest page counts and has_rotation labels
// before a run schedules work against pages that do not exist.
func Probe(pdfPath string) (*ProbeResult, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, eris.Wrapf(err, "manifest: open %s", pdfPath)
	}
	defer f.Close()

	ctx, err := pdfapi.ReadValidateAndOptimize(f, pdfmodel.NewDefaultConfiguration())
	if err != nil {
		return nil, eris.Wrapf(err, "manifest: pdfcpu read %s", pdfPath)
	}

	res := &ProbeResult{
		PageCount:    ctx.PageCount,
		RotatedPages: make(map[int]bool),
	}
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		d, _, _, err := ctx.PageDict(pageNr, false)
		if err != nil || d == nil {
			continue
		}
		if rot := d.IntEntry("Rotate"); rot != nil && *rot%360 != 0 {
			res.RotatedPages[pageNr] = true
		}
	}
	return res, nil
}

// Verify cross-checks a manifest entry against a probe of its PDF.
func Verify(doc model.Document, probe *ProbeResult) error {
	if doc.PageCount != probe.PageCount {
		return eris.Errorf("manifest: document %q declares %d pages, pdf has %d",
			doc.ID, doc.PageCount, probe.PageCount)
	}
	return nil
}
