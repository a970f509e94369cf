package export

import (
	"github.com/tuumbleweed/xerr"

	"handover/src/pkg/layout"
)

// Printer runs the native print flow for a sheet.
type Printer interface {
	Print(page layout.PageLayout) (printHTML string, e *xerr.Error)
}

// HTMLPrinter returns a page that opens the browser print dialog on load.
type HTMLPrinter struct{}

func (HTMLPrinter) Print(page layout.PageLayout) (printHTML string, e *xerr.Error) {
	return layout.RenderPrintHTML(page)
}
