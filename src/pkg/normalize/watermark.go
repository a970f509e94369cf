package normalize

import (
	"errors"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/tuumbleweed/xerr"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const (
	// Font size as a share of the image width.
	watermarkFontRatio = 0.03
	minWatermarkFont   = 8.0
	// Padding around the text and distance from the corner, relative to the font size.
	watermarkPaddingRatio = 0.4
	watermarkMarginRatio  = 0.6
)

var errTooSmall = errors.New("image too small for watermark text")

var (
	parseFontOnce sync.Once
	watermarkFont *opentype.Font
	parseFontErr  error
)

/*
WatermarkSpec is the text stamped onto evidence photos. The box is anchored
at a fixed relative offset from the bottom-right corner and the font scales
with the image width.
*/
type WatermarkSpec struct {
	Text string
}

// FontSize returns the watermark font size for an image of the given width.
func FontSize(width int) float64 {
	return max(float64(width)*watermarkFontRatio, minWatermarkFont)
}

func newFace(size float64) (face font.Face, e *xerr.Error) {
	parseFontOnce.Do(func() {
		watermarkFont, parseFontErr = opentype.Parse(goregular.TTF)
	})
	if parseFontErr != nil {
		return nil, xerr.NewError(parseFontErr, "parse watermark font", "goregular")
	}
	face, err := opentype.NewFace(watermarkFont, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, xerr.NewError(err, "create watermark font face", "goregular")
	}
	return face, nil
}

/*
Draw returns a copy of img with the watermark: a semi-transparent dark box
sized to the measured text plus padding, and white text centred on it. When
the text is too long for the bottom-right quadrant the font is shrunk until
the box fits there.
*/
func (w WatermarkSpec) Draw(img *image.NRGBA) (out *image.NRGBA, e *xerr.Error) {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	size := FontSize(width)

	dc := gg.NewContextForImage(img)
	var boxX, boxY, boxW, boxH float64
	for attempt := 0; attempt < 4; attempt++ {
		face, e := newFace(size)
		if e != nil {
			return img, e
		}
		dc.SetFontFace(face)

		textW, textH := dc.MeasureString(w.Text)
		padding := size * watermarkPaddingRatio
		margin := size * watermarkMarginRatio
		boxW, boxH = textW+2*padding, textH+2*padding
		boxX = float64(width) - margin - boxW
		boxY = float64(height) - margin - boxH

		halfW, halfH := float64(width)/2, float64(height)/2
		if boxX >= halfW && boxY >= halfH {
			break
		}
		shrink := min((float64(width)-halfW-margin)/boxW, (float64(height)-halfH-margin)/boxH)
		if shrink <= 0 || attempt == 3 {
			return img, xerr.NewError(errTooSmall, "fit watermark", w.Text)
		}
		size *= shrink * 0.95
	}

	dc.SetRGBA(0, 0, 0, 0.55)
	dc.DrawRectangle(boxX, boxY, boxW, boxH)
	dc.Fill()

	dc.SetRGBA(1, 1, 1, 0.95)
	dc.DrawStringAnchored(w.Text, boxX+boxW/2, boxY+boxH/2, 0.5, 0.35)

	return imaging.Clone(dc.Image()), nil
}
