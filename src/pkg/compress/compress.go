/*
Package compress re-encodes a bitmap as JPEG until it fits a byte budget.

The search is a two-phase state machine (QualityReduction, then
DimensionReduction) driven by the pure Next function; Compressor only encodes
and measures.
*/
package compress

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"handover/src/pkg/datauri"
)

const JPEGMimeType = "image/jpeg"

/*
EncodedImage is a compressed photo ready to be embedded as a data URI.
WithinBudget is false when the attempts ran out, or when Passthrough is set
because the original bytes could not be processed.
*/
type EncodedImage struct {
	Data         []byte `json:"-"`
	MimeType     string `json:"mime_type"`
	Quality      int    `json:"quality"`
	Size         int    `json:"size"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Attempts     int    `json:"attempts"`
	WithinBudget bool   `json:"within_budget"`
	Passthrough  bool   `json:"passthrough"`
}

// DataURI returns the image as a base64 data URI.
func (i EncodedImage) DataURI() string {
	return datauri.Encode(i.MimeType, i.Data)
}

// QualityFactor is Quality on the 0..1 scale.
func (i EncodedImage) QualityFactor() float64 {
	return float64(i.Quality) / 100
}

// Compressor encodes bitmaps under a Policy.
type Compressor struct {
	Policy Policy
}

func New(policy Policy) *Compressor {
	return &Compressor{Policy: policy.sanitized()}
}

/*
Compress returns the first encoding of img whose size is at most budget
bytes, making at most Policy.MaxAttempts attempts. When none fits, the last
candidate is returned with WithinBudget false. A budget <= 0 accepts the first
attempt.
*/
func (c *Compressor) Compress(img image.Image, budget int) (encoded EncodedImage, e *xerr.Error) {
	if img == nil || img.Bounds().Empty() {
		e = xerr.NewError(fmt.Errorf("empty bitmap"), "compress photo", "")
		return encoded, e
	}
	policy := c.Policy.sanitized()
	source := img.Bounds()
	state := Start(policy, source.Dx(), source.Dy())

	for {
		candidate, e := encodeAttempt(img, state)
		if e != nil {
			return encoded, e
		}
		encoded = candidate

		tl.Log(
			tl.Debug, palette.CyanDim, "Attempt %s (%s): %sx%s at quality %s -> %s bytes (budget %s)",
			state.Attempt, state.Phase, state.Width, state.Height, state.Quality, encoded.Size, budget,
		)

		if budget <= 0 || encoded.Size <= budget {
			encoded.WithinBudget = true
			return encoded, nil
		}
		if state.Attempt >= policy.MaxAttempts {
			break
		}
		state = Next(policy, state)
	}

	tl.Log(
		tl.Warning, palette.PurpleBright, "Budget of %s bytes not met after %s attempts, keeping %s bytes",
		budget, encoded.Attempts, encoded.Size,
	)
	return encoded, nil
}

func encodeAttempt(img image.Image, state State) (encoded EncodedImage, e *xerr.Error) {
	frame := img
	if state.Width != img.Bounds().Dx() || state.Height != img.Bounds().Dy() {
		frame = imaging.Resize(img, state.Width, state.Height, imaging.Lanczos)
	}

	var buffer bytes.Buffer
	encodeErr := imaging.Encode(&buffer, frame, imaging.JPEG, imaging.JPEGQuality(state.Quality))
	if encodeErr != nil {
		e = xerr.NewError(encodeErr, "encode JPEG attempt", fmt.Sprintf("attempt %d", state.Attempt))
		return encoded, e
	}

	data := buffer.Bytes()
	encoded = EncodedImage{
		Data:     data,
		MimeType: JPEGMimeType,
		Quality:  state.Quality,
		Size:     datauri.EstimateBase64Bytes(base64.StdEncoding.EncodeToString(data)),
		Width:    state.Width,
		Height:   state.Height,
		Attempts: state.Attempt,
	}
	return encoded, nil
}
