package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"handover/src/pkg/layout"
)

// State of one export call.
type State string

const (
	StateIdle              State = "idle"
	StateGenerating        State = "generating"
	StateOpened            State = "opened"
	StateSaved             State = "saved"
	StatePrinted           State = "printed"
	StateFailedThenPrinted State = "failed-then-printed"
)

/*
Result of an export. Exactly one of PDF (opened), SavedPath (saved) or
PrintHTML (printed, failed-then-printed) is set. Transitions lists every state
the call went through, starting with idle.
*/
type Result struct {
	State       State   `json:"state"`
	Transitions []State `json:"transitions"`
	PDF         []byte  `json:"-"`
	SavedPath   string  `json:"saved_path,omitempty"`
	PrintHTML   string  `json:"-"`
	Cause       string  `json:"cause,omitempty"`
}

func (r *Result) enter(state State) {
	r.State = state
	r.Transitions = append(r.Transitions, state)
}

// Exporter runs the export flow. SaveDir receives documents whose bytes
// cannot be retrieved in memory.
type Exporter struct {
	Generator Generator
	Printer   Printer
	SaveDir   string

	now func() time.Time
}

func NewExporter(generator Generator, printer Printer, saveDir string) *Exporter {
	if generator == nil {
		generator = Unavailable{}
	}
	if printer == nil {
		printer = HTMLPrinter{}
	}
	return &Exporter{Generator: generator, Printer: printer, SaveDir: saveDir, now: time.Now}
}

/*
Export generates a document for page and prefers, in order: handing back the
in-memory PDF, saving it into SaveDir, and the print flow. A missing generator
goes straight to printing. Any generation or save failure (a panic included)
falls back to printing; only a print failure is returned as an error.
*/
func (x *Exporter) Export(page layout.PageLayout) (result Result, e *xerr.Error) {
	result.enter(StateIdle)

	if x.Generator == nil || !x.Generator.Available() {
		tl.Log(tl.Info, palette.Cyan, "No document generator, %s", "opening the print page")
		return x.print(page, result, StatePrinted)
	}

	result.enter(StateGenerating)
	doc, e := safeGenerate(x.Generator, page)
	if e != nil {
		tl.Log(tl.Warning, palette.PurpleBright, "Document generation failed, falling back to print: %s", e)
		result.Cause = fmt.Sprint(e)
		return x.print(page, result, StateFailedThenPrinted)
	}

	data, e := doc.Bytes()
	if e == nil && len(data) > 0 {
		result.enter(StateOpened)
		result.PDF = data
		tl.Log(tl.Info1, palette.Green, "Opened generated document (%s bytes)", len(data))
		return result, nil
	}
	if e != nil {
		tl.Log(tl.Verbose, palette.CyanDim, "In-memory document unavailable, saving instead: %s", e)
	}

	path, e := x.save(doc, page)
	if e != nil {
		tl.Log(tl.Warning, palette.PurpleBright, "Saving document failed, falling back to print: %s", e)
		result.Cause = fmt.Sprint(e)
		return x.print(page, result, StateFailedThenPrinted)
	}
	result.enter(StateSaved)
	result.SavedPath = path
	tl.Log(tl.Info1, palette.Green, "Saved generated document to '%s'", path)
	return result, nil
}

func (x *Exporter) print(page layout.PageLayout, result Result, final State) (Result, *xerr.Error) {
	printer := x.Printer
	if printer == nil {
		printer = HTMLPrinter{}
	}
	printHTML, e := printer.Print(page)
	if e != nil {
		return result, e
	}
	result.enter(final)
	result.PrintHTML = printHTML
	return result, nil
}

func (x *Exporter) save(doc Document, page layout.PageLayout) (path string, e *xerr.Error) {
	dir := strings.TrimSpace(x.SaveDir)
	if dir == "" {
		dir = os.TempDir()
	}
	if mkdirErr := os.MkdirAll(dir, 0o755); mkdirErr != nil {
		e = xerr.NewError(mkdirErr, "create export directory", dir)
		return "", e
	}

	now := time.Now
	if x.now != nil {
		now = x.now
	}
	path = filepath.Join(dir, FileName(page, now()))
	e = doc.Save(path)
	if e != nil {
		return "", e
	}
	return path, nil
}

// safeGenerate turns a panicking generator into an error.
func safeGenerate(generator Generator, page layout.PageLayout) (doc Document, e *xerr.Error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			doc = nil
			e = xerr.NewError(fmt.Errorf("generator panicked: %v", recovered), "generate document", "")
		}
	}()
	doc, e = generator.Generate(page)
	if e == nil && doc == nil {
		e = xerr.NewError(fmt.Errorf("generator returned no document"), "generate document", "")
	}
	return doc, e
}

/*
FileName is the download and save name of a sheet:
handover-<ticket>-<yyyymmdd-hhmmss>.pdf, with the ticket reduced to letters,
digits, dashes and underscores.
*/
func FileName(page layout.PageLayout, at time.Time) string {
	ticket := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return -1
		}
	}, page.Report.TicketNumber)
	if ticket == "" {
		ticket = "sheet"
	}
	return fmt.Sprintf("handover-%s-%s.pdf", ticket, at.Format("20060102-150405"))
}
