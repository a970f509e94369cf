/*
Package pipeline runs one captured photo through normalization and
compression, keeps processed photos in ordered slots and batch-processes
photo files on disk.
*/
package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"net/http"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"handover/src/pkg/capture"
	"handover/src/pkg/compress"
	"handover/src/pkg/config"
	"handover/src/pkg/normalize"
)

// Options for Process. BudgetBytes <= 0 accepts the first encoding.
type Options struct {
	Normalize   normalize.Options
	Policy      compress.Policy
	BudgetBytes int
}

// OptionsFromConfig builds pipeline options from the pipeline and compressor sections.
func OptionsFromConfig(cfg config.Config) Options {
	options := Options{
		Normalize: normalize.Options{
			MaxWidth:       cfg.Pipeline.MaxWidth,
			MaxHeight:      cfg.Pipeline.MaxHeight,
			ForceLandscape: cfg.Pipeline.ForceLandscape,
		},
		Policy:      compress.PolicyFromConfig(cfg.Compressor),
		BudgetBytes: cfg.Pipeline.BudgetBytes,
	}
	if cfg.Pipeline.WatermarkText != "" {
		options.Normalize.Watermark = &normalize.WatermarkSpec{Text: cfg.Pipeline.WatermarkText}
	}
	return options
}

// WithWatermark returns a copy of options stamping text on every photo.
func (o Options) WithWatermark(text string) Options {
	if text == "" {
		o.Normalize.Watermark = nil
		return o
	}
	o.Normalize.Watermark = &normalize.WatermarkSpec{Text: text}
	return o
}

/*
Process normalizes and compresses raw.

When the bytes cannot be decoded or re-encoded the original bytes are kept
unchanged and marked as Passthrough, so the caller can still store the photo.
Only an empty capture is an error.
*/
func Process(raw capture.RawImage, options Options) (encoded compress.EncodedImage, e *xerr.Error) {
	if raw.Empty() {
		e = xerr.NewError(fmt.Errorf("no image bytes"), "process photo", string(raw.Source()))
		return encoded, e
	}

	bitmap, e := normalize.Normalize(raw, raw.Orientation(), options.Normalize)
	if e != nil {
		tl.Log(tl.Warning, palette.PurpleBright, "Keeping original %s bytes: %s", raw.Source(), e)
		return Passthrough(raw), nil
	}

	encoded, e = compress.New(options.Policy).Compress(bitmap.Image, options.BudgetBytes)
	if e != nil {
		tl.Log(tl.Warning, palette.PurpleBright, "Keeping original %s bytes: %s", raw.Source(), e)
		return Passthrough(raw), nil
	}

	tl.Log(
		tl.Info1, palette.Green, "Processed %s photo into %sx%s, %s bytes at quality %s (%s attempts)",
		raw.Source(), encoded.Width, encoded.Height, encoded.Size, encoded.Quality, encoded.Attempts,
	)
	return encoded, nil
}

/*
Passthrough wraps the original bytes of raw as an EncodedImage. Width and
Height are only set when the bytes fully decode; a header alone is not
trusted, so broken uploads report 0x0.
*/
func Passthrough(raw capture.RawImage) compress.EncodedImage {
	data := make([]byte, raw.Len())
	copy(data, raw.Bytes())

	encoded := compress.EncodedImage{
		Data:        data,
		MimeType:    http.DetectContentType(data),
		Size:        len(data),
		Passthrough: true,
	}
	if decoded, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		encoded.Width, encoded.Height = decoded.Bounds().Dx(), decoded.Bounds().Dy()
	}
	return encoded
}
