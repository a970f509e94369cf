/*
Package normalize turns a captured photo into an upright bitmap: the EXIF
orientation is undone, portrait shots are optionally turned to landscape, the
result is shrunk into a bounding box and a watermark may be drawn in the
bottom-right corner.
*/
package normalize

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	_ "image/png" // register PNG decoder

	"github.com/disintegration/imaging"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"handover/src/pkg/capture"
	"handover/src/pkg/orientation"
	"handover/src/pkg/util"
)

/*
Options for one Normalize call. A non-positive MaxWidth or MaxHeight leaves
that axis unbounded. Watermark is optional.
*/
type Options struct {
	MaxWidth       int
	MaxHeight      int
	ForceLandscape bool
	Watermark      *WatermarkSpec
}

// Bitmap is an upright pixel buffer owned by the call that produced it.
type Bitmap struct {
	Image  *image.NRGBA
	Width  int
	Height int
}

// Landscape reports whether the bitmap is wider than it is tall.
func (b Bitmap) Landscape() bool {
	return b.Width >= b.Height
}

/*
Normalize decodes raw and applies, in order:
  - the inverse transform for orientation o,
  - a 90° clockwise turn when ForceLandscape is set and the image is portrait,
  - a uniform downscale by min(1, maxW/w, maxH/h),
  - the watermark, if any.

An undecodable input returns a *xerr.Error: the caller is expected to keep
the original bytes instead.
*/
func Normalize(raw capture.RawImage, o orientation.Orientation, options Options) (bitmap Bitmap, e *xerr.Error) {
	if raw.Empty() {
		e = xerr.NewError(fmt.Errorf("no image bytes"), "normalize photo", string(raw.Source()))
		return bitmap, e
	}

	decoded, decodeErr := imaging.Decode(bytes.NewReader(raw.Bytes()))
	if decodeErr != nil {
		e = xerr.NewError(decodeErr, "decode photo for normalization", string(raw.Source()))
		return bitmap, e
	}
	sourceBounds := decoded.Bounds()

	upright := imaging.Clone(o.Apply(decoded))

	if options.ForceLandscape && upright.Bounds().Dy() > upright.Bounds().Dx() {
		upright = imaging.Rotate270(upright)
	}

	width, height := FitWithin(upright.Bounds().Dx(), upright.Bounds().Dy(), options.MaxWidth, options.MaxHeight)
	if width != upright.Bounds().Dx() || height != upright.Bounds().Dy() {
		upright = imaging.Resize(upright, width, height, imaging.Lanczos)
	}

	if options.Watermark != nil && options.Watermark.Text != "" {
		watermarked, watermarkErr := options.Watermark.Draw(upright)
		if watermarkErr != nil {
			tl.Log(tl.Warning, palette.PurpleBright, "Skipping watermark: %s", watermarkErr)
		} else {
			upright = watermarked
		}
	}

	bitmap = Bitmap{Image: upright, Width: width, Height: height}

	tl.Log(
		tl.Verbose, palette.CyanDim, "Normalized %sx%s (%s) into %sx%s",
		sourceBounds.Dx(), sourceBounds.Dy(), o, bitmap.Width, bitmap.Height,
	)
	return bitmap, e
}

/*
FitWithin returns width x height scaled by min(1, maxWidth/width,
maxHeight/height). Images are only ever shrunk; each side is rounded to the
nearest pixel and never drops below 1.
*/
func FitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return width, height
	}
	scale := 1.0
	if maxWidth > 0 {
		scale = min(scale, float64(maxWidth)/float64(width))
	}
	if maxHeight > 0 {
		scale = min(scale, float64(maxHeight)/float64(height))
	}
	if scale >= 1 {
		return width, height
	}
	return util.RoundPixels(float64(width) * scale), util.RoundPixels(float64(height) * scale)
}
