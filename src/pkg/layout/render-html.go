package layout

import (
	"bytes"
	"html"
	"strconv"

	"github.com/tuumbleweed/xerr"

	"handover/src/pkg/compress"
)

const printScript = `<script>window.addEventListener("load",function(){window.print();});</script>`

/*
RenderHTML converts a PageLayout into a single A4 HTML page. Styles are inline
except for the @page and print rules, which cannot be expressed inline.
*/
func RenderHTML(page PageLayout) (htmlText string, e *xerr.Error) {
	return renderPage(page, false)
}

// RenderPrintHTML is RenderHTML plus a script opening the print dialog once
// the page has loaded.
func RenderPrintHTML(page PageLayout) (htmlText string, e *xerr.Error) {
	return renderPage(page, true)
}

func renderPage(page PageLayout, autoPrint bool) (htmlText string, e *xerr.Error) {
	var buffer bytes.Buffer
	l := page.labelSet()

	buffer.WriteString("<!doctype html>")
	buffer.WriteString(`<html lang="` + html.EscapeString(string(page.Language)) + `">`)
	buffer.WriteString("<head>")
	buffer.WriteString(`<meta charset="utf-8">`)
	buffer.WriteString("<title>" + html.EscapeString(page.Title) + " " + html.EscapeString(page.Report.TicketNumber) + "</title>")
	buffer.WriteString("<style>")
	buffer.WriteString("@page{size:A4;margin:12mm;}")
	buffer.WriteString("html,body{margin:0;padding:0;}")
	buffer.WriteString(".sheet,.evidence-grid,.extra-evidence,.declaration{page-break-inside:avoid;break-inside:avoid;}")
	buffer.WriteString("@media print{.sheet{box-shadow:none;border:none;}}")
	buffer.WriteString("</style>")
	if autoPrint {
		buffer.WriteString(printScript)
	}
	buffer.WriteString("</head>")

	bodyStyle := "background-color:#FFFFFF;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Inter,Arial,sans-serif;color:#111827;"
	buffer.WriteString(`<body style="` + bodyStyle + `">`)
	buffer.WriteString(`<div class="sheet" style="width:186mm;margin:0 auto;font-size:11px;line-height:1.45;">`)

	// Header.
	buffer.WriteString(`<div style="padding:0 0 8px 0;border-bottom:2px solid #111827;">`)
	buffer.WriteString(`<div style="font-size:20px;font-weight:800;">` + html.EscapeString(page.Title) + `</div>`)
	if page.Report.EventName != "" {
		buffer.WriteString(`<div style="margin-top:2px;font-size:12px;color:#6B7280;">` + html.EscapeString(page.Report.EventName) + `</div>`)
	}
	buffer.WriteString(`</div>`)

	// Identity fields.
	buffer.WriteString(`<table class="identity" cellpadding="0" cellspacing="0" border="0" width="100%" style="border-collapse:collapse;margin-top:8px;">`)
	for _, field := range page.Fields {
		buffer.WriteString(`<tr>`)
		buffer.WriteString(`<td style="width:32%;padding:3px 8px 3px 0;color:#6B7280;vertical-align:top;">` + html.EscapeString(field.Label) + `</td>`)
		buffer.WriteString(`<td style="padding:3px 0;font-weight:700;vertical-align:top;">` + html.EscapeString(field.Value) + `</td>`)
		buffer.WriteString(`</tr>`)
	}
	buffer.WriteString(`</table>`)

	// Declaration.
	buffer.WriteString(`<div class="declaration" style="margin-top:10px;padding:10px;border:1px solid #D1D5DB;border-radius:6px;">`)
	buffer.WriteString(`<div style="font-size:12px;font-weight:800;">` + html.EscapeString(l.DeclarationTitle) + `</div>`)
	buffer.WriteString(`<p style="margin:6px 0 0 0;text-align:justify;">` + DeclarationHTML(page.Report) + `</p>`)
	buffer.WriteString(`</div>`)

	// Evidence.
	buffer.WriteString(`<div style="margin-top:10px;font-size:12px;font-weight:800;">` + html.EscapeString(l.Evidence) + `</div>`)
	if page.Placeholder || len(page.PrimaryPhotos) == 0 {
		buffer.WriteString(`<div class="no-photos" style="margin-top:6px;padding:24px;border:1px dashed #D1D5DB;border-radius:6px;background-color:#FAFAFA;color:#6B7280;text-align:center;">`)
		buffer.WriteString(html.EscapeString(l.NoPhotos))
		buffer.WriteString(`</div>`)
	} else {
		writePhotoTable(&buffer, "evidence-grid", "grid-photo", page.PrimaryPhotos, 2, 0, "62mm", l.Photo)
	}

	if len(page.ExtraPhotos) > 0 {
		buffer.WriteString(`<div class="extra-evidence" style="margin-top:10px;padding-top:6px;border-top:1px dashed #9CA3AF;">`)
		buffer.WriteString(`<div style="font-size:11px;font-weight:800;color:#6B7280;">` + html.EscapeString(l.AdditionalEvidence) + `</div>`)
		writePhotoTable(&buffer, "extra-table", "extra-photo", page.ExtraPhotos, 4, len(page.PrimaryPhotos), "28mm", l.Photo)
		buffer.WriteString(`</div>`)
	}

	// Signatures.
	buffer.WriteString(`<table cellpadding="0" cellspacing="0" border="0" width="100%" style="border-collapse:collapse;margin-top:28px;">`)
	buffer.WriteString(`<tr>`)
	for _, label := range []string{l.ClaimantSignature, l.StaffSignature} {
		buffer.WriteString(`<td style="width:50%;padding:0 12px 0 0;">`)
		buffer.WriteString(`<div style="border-top:1px solid #111827;padding-top:3px;color:#6B7280;">` + html.EscapeString(label) + `</div>`)
		buffer.WriteString(`</td>`)
	}
	buffer.WriteString(`</tr>`)
	buffer.WriteString(`</table>`)

	buffer.WriteString(`</div>`)
	buffer.WriteString(`</body>`)
	buffer.WriteString(`</html>`)

	htmlText = buffer.String()
	return htmlText, e
}

/*
writePhotoTable writes photos as a table with the given number of columns.
offset is added to the 1-based photo numbers shown in the alt text.
*/
func writePhotoTable(buffer *bytes.Buffer, tableClass, imageClass string, photos []compress.EncodedImage, columns, offset int, maxHeight string, photoLabel string) {
	buffer.WriteString(`<table class="` + tableClass + `" cellpadding="0" cellspacing="0" border="0" width="100%" style="border-collapse:separate;border-spacing:4px;margin-top:4px;">`)
	for start := 0; start < len(photos); start += columns {
		buffer.WriteString(`<tr>`)
		for column := 0; column < columns; column++ {
			index := start + column
			cellStyle := "width:" + strconv.Itoa(100/columns) + "%;text-align:center;vertical-align:middle;"
			if index >= len(photos) {
				buffer.WriteString(`<td style="` + cellStyle + `"></td>`)
				continue
			}
			alt := photoLabel + " " + strconv.Itoa(offset+index+1)
			buffer.WriteString(`<td style="` + cellStyle + `border:1px solid #E5E7EB;border-radius:4px;">`)
			buffer.WriteString(`<img class="` + imageClass + `" alt="` + html.EscapeString(alt) + `" src="` + html.EscapeString(photos[index].DataURI()) + `" style="display:block;margin:0 auto;max-width:100%;max-height:` + maxHeight + `;">`)
			buffer.WriteString(`</td>`)
		}
		buffer.WriteString(`</tr>`)
	}
	buffer.WriteString(`</table>`)
}
