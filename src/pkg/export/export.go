/*
Package export turns a declaration sheet into a PDF when a document generator
is available, and falls back to the browser print flow when it is not.
*/
package export

import (
	"fmt"
	"strings"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"handover/src/pkg/layout"
)

const (
	GeneratorPDF  = "pdf"
	GeneratorNone = "none"
)

// Generator is an optional document generation capability.
type Generator interface {
	Available() bool
	Generate(page layout.PageLayout) (Document, *xerr.Error)
}

/*
Document is a generated document. Bytes returns the in-memory intermediate;
Save writes it with the generator's own file routine.
*/
type Document interface {
	Bytes() ([]byte, *xerr.Error)
	Save(path string) *xerr.Error
}

// NewGenerator returns the generator configured by kind ("pdf" or "none").
func NewGenerator(kind string) Generator {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case GeneratorPDF:
		return &PDFGenerator{}
	case GeneratorNone, "":
		return Unavailable{}
	default:
		tl.Log(tl.Warning, palette.PurpleBright, "Unknown export generator '%s', exports will %s", kind, "use the print page")
		return Unavailable{}
	}
}

// Unavailable is the generator used when no document library is wired in.
type Unavailable struct{}

func (Unavailable) Available() bool { return false }

func (Unavailable) Generate(layout.PageLayout) (Document, *xerr.Error) {
	return nil, xerr.NewError(fmt.Errorf("no document generator"), "generate document", GeneratorNone)
}
