package export

import (
	"bytes"
	"fmt"
	"image"

	"codeberg.org/go-pdf/fpdf"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"handover/src/pkg/compress"
	"handover/src/pkg/layout"
)

// A4 portrait, in millimetres.
const (
	pageWidth       = 210.0
	pageHeight      = 297.0
	pageMargin      = 12.0
	photoGap        = 3.0
	gridCellHeight  = 62.0
	extraCellHeight = 28.0
	signatureSpace  = 18.0
	fontFamily      = "Helvetica"
)

// PDFGenerator renders sheets with fpdf using the core Helvetica font.
type PDFGenerator struct {
	Creator string
}

func (g *PDFGenerator) Available() bool { return true }

/*
Generate lays the sheet out on A4: header, identity fields, the declaration,
the 2-column evidence grid, additional evidence in rows of four and signature
lines. Photos in formats fpdf cannot embed are skipped.
*/
func (g *PDFGenerator) Generate(page layout.PageLayout) (doc Document, e *xerr.Error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(page.Title, true)
	creator := g.Creator
	if creator == "" {
		creator = "handover"
	}
	pdf.SetCreator(creator, true)
	if !page.Report.CreatedAt.IsZero() {
		pdf.SetCreationDate(page.Report.CreatedAt)
	}

	pdf.AddPage()
	contentWidth := pageWidth - 2*pageMargin

	// Header.
	pdf.SetTextColor(17, 24, 39)
	pdf.SetFont(fontFamily, "B", 18)
	pdf.CellFormat(contentWidth, 9, tr(page.Title), "", 1, "L", false, 0, "")
	if page.Report.EventName != "" {
		pdf.SetFont(fontFamily, "", 10)
		pdf.SetTextColor(107, 114, 128)
		pdf.CellFormat(contentWidth, 5, tr(page.Report.EventName), "", 1, "L", false, 0, "")
		pdf.SetTextColor(17, 24, 39)
	}
	pdf.SetLineWidth(0.5)
	pdf.Line(pageMargin, pdf.GetY()+1, pageMargin+contentWidth, pdf.GetY()+1)
	pdf.Ln(4)

	// Identity fields.
	pdf.SetLineWidth(0.2)
	for _, field := range page.Fields {
		pdf.SetFont(fontFamily, "", 10)
		pdf.SetTextColor(107, 114, 128)
		pdf.CellFormat(contentWidth*0.32, 5.5, tr(field.Label), "", 0, "L", false, 0, "")
		pdf.SetFont(fontFamily, "B", 10)
		pdf.SetTextColor(17, 24, 39)
		pdf.CellFormat(contentWidth*0.68, 5.5, tr(field.Value), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	// Declaration.
	pdf.SetFont(fontFamily, "B", 11)
	pdf.CellFormat(contentWidth, 6, tr(page.DeclarationTitle()), "", 1, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 9.5)
	pdf.SetDrawColor(209, 213, 219)
	pdf.MultiCell(contentWidth, 4.6, tr(page.Declaration()), "1", "J", false)
	pdf.Ln(3)

	// Evidence.
	pdf.SetFont(fontFamily, "B", 11)
	pdf.CellFormat(contentWidth, 6, tr(page.EvidenceTitle()), "", 1, "L", false, 0, "")
	if len(page.PrimaryPhotos) == 0 {
		pdf.SetFont(fontFamily, "", 10)
		pdf.SetTextColor(107, 114, 128)
		pdf.CellFormat(contentWidth, 20, tr(page.NoPhotosMessage()), "1", 1, "C", false, 0, "")
		pdf.SetTextColor(17, 24, 39)
	} else {
		placePhotos(pdf, page.PrimaryPhotos, 0, 2, gridCellHeight, contentWidth)
	}

	if len(page.ExtraPhotos) > 0 {
		pdf.Ln(1)
		pdf.SetFont(fontFamily, "B", 10)
		pdf.SetTextColor(107, 114, 128)
		pdf.CellFormat(contentWidth, 6, tr(page.ExtraEvidenceTitle()), "T", 1, "L", false, 0, "")
		pdf.SetTextColor(17, 24, 39)
		placePhotos(pdf, page.ExtraPhotos, len(page.PrimaryPhotos), 4, extraCellHeight, contentWidth)
	}

	// Signatures.
	if pdf.GetY()+signatureSpace > pageHeight-pageMargin {
		pdf.AddPage()
	}
	lineY := max(pdf.GetY()+12, pageHeight-pageMargin-8)
	claimantLabel, staffLabel := page.SignatureLabels()
	pdf.SetDrawColor(17, 24, 39)
	pdf.SetFont(fontFamily, "", 9)
	pdf.SetTextColor(107, 114, 128)
	for i, label := range []string{claimantLabel, staffLabel} {
		x := pageMargin + float64(i)*(contentWidth/2+4)
		pdf.Line(x, lineY, x+contentWidth/2-8, lineY)
		pdf.SetXY(x, lineY+1)
		pdf.CellFormat(contentWidth/2-8, 5, tr(label), "", 0, "L", false, 0, "")
	}

	if pdf.Err() {
		e = xerr.NewError(pdf.Error(), "render PDF sheet", page.Report.TicketNumber)
		return nil, e
	}

	tl.Log(
		tl.Info1, palette.Green, "Rendered PDF sheet for ticket '%s' with %s photos",
		page.Report.TicketNumber, page.PhotoCount(),
	)
	return &pdfDocument{pdf: pdf}, nil
}

/*
placePhotos draws photos in rows of columns cells, each fitted into its cell
with the aspect ratio kept. A row that would run into the signature area goes
to a new page.
*/
func placePhotos(pdf *fpdf.Fpdf, photos []compress.EncodedImage, offset int, columns int, cellHeight float64, contentWidth float64) {
	cellWidth := (contentWidth - photoGap*float64(columns-1)) / float64(columns)
	y := pdf.GetY() + 1

	for start := 0; start < len(photos); start += columns {
		if y+cellHeight > pageHeight-pageMargin-signatureSpace {
			pdf.AddPage()
			y = pageMargin
		}
		for column := 0; column < columns && start+column < len(photos); column++ {
			index := start + column
			cellX := pageMargin + float64(column)*(cellWidth+photoGap)
			pdf.SetDrawColor(229, 231, 235)
			pdf.Rect(cellX, y, cellWidth, cellHeight, "D")

			photo := photos[index]
			imageType, width, height, ok := embeddable(photo)
			if !ok {
				tl.Log(tl.Warning, palette.PurpleBright, "Skipping photo %s (%s) in PDF", offset+index+1, photo.MimeType)
				continue
			}

			scale := min(cellWidth/float64(width), cellHeight/float64(height))
			drawWidth, drawHeight := float64(width)*scale, float64(height)*scale
			name := fmt.Sprintf("photo-%d", offset+index+1)
			options := fpdf.ImageOptions{ImageType: imageType, ReadDpi: false}
			pdf.RegisterImageOptionsReader(name, options, bytes.NewReader(photo.Data))
			pdf.ImageOptions(
				name,
				cellX+(cellWidth-drawWidth)/2, y+(cellHeight-drawHeight)/2,
				drawWidth, drawHeight,
				false, options, 0, "",
			)
		}
		y += cellHeight + photoGap
	}
	pdf.SetY(y)
}

// embeddable returns the fpdf image type and pixel size of photo.
func embeddable(photo compress.EncodedImage) (imageType string, width, height int, ok bool) {
	switch photo.MimeType {
	case "image/jpeg":
		imageType = "JPEG"
	case "image/png":
		imageType = "PNG"
	case "image/gif":
		imageType = "GIF"
	default:
		return "", 0, 0, false
	}
	width, height = photo.Width, photo.Height
	if width <= 0 || height <= 0 {
		decoded, _, err := image.Decode(bytes.NewReader(photo.Data))
		if err != nil {
			return "", 0, 0, false
		}
		width, height = decoded.Bounds().Dx(), decoded.Bounds().Dy()
	}
	return imageType, width, height, width > 0 && height > 0
}

type pdfDocument struct {
	pdf *fpdf.Fpdf
}

func (d *pdfDocument) Bytes() (data []byte, e *xerr.Error) {
	var buffer bytes.Buffer
	outputErr := d.pdf.Output(&buffer)
	if outputErr != nil {
		e = xerr.NewError(outputErr, "output PDF to memory", "")
		return nil, e
	}
	return buffer.Bytes(), nil
}

func (d *pdfDocument) Save(path string) (e *xerr.Error) {
	saveErr := d.pdf.OutputFileAndClose(path)
	if saveErr != nil {
		e = xerr.NewError(saveErr, "save PDF file", path)
		return e
	}
	return nil
}
