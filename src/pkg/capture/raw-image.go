// Package capture acquires raw evidence photo bytes from uploaded files, data
// URIs posted by the client, or a network camera.
package capture

import (
	"fmt"
	"io"
	"os"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"handover/src/pkg/datauri"
	"handover/src/pkg/orientation"
)

// Source tags where a RawImage came from.
type Source string

const (
	SourceCameraFrame Source = "camera-frame"
	SourceFileUpload  Source = "file-upload"
)

/*
RawImage is an immutable capture: the bytes are copied on construction and the
orientation code is resolved once from the embedded metadata.
*/
type RawImage struct {
	data        []byte
	source      Source
	orientation orientation.Orientation
}

// NewRawImage copies data and resolves its orientation.
func NewRawImage(data []byte, source Source) RawImage {
	owned := make([]byte, len(data))
	copy(owned, data)
	return RawImage{
		data:        owned,
		source:      source,
		orientation: orientation.Read(owned),
	}
}

// Bytes returns the captured bytes. Callers must not modify them.
func (r RawImage) Bytes() []byte { return r.data }

func (r RawImage) Source() Source { return r.source }

func (r RawImage) Orientation() orientation.Orientation { return r.orientation }

func (r RawImage) Len() int { return len(r.data) }

func (r RawImage) Empty() bool { return len(r.data) == 0 }

/*
FromReader reads at most limit bytes from reader. A body larger than limit is
rejected instead of being truncated silently. limit <= 0 disables the check.
*/
func FromReader(reader io.Reader, source Source, limit int64) (raw RawImage, e *xerr.Error) {
	if limit > 0 {
		reader = io.LimitReader(reader, limit+1)
	}
	data, readErr := io.ReadAll(reader)
	if readErr != nil {
		e = xerr.NewError(readErr, "read image bytes", string(source))
		return raw, e
	}
	if limit > 0 && int64(len(data)) > limit {
		e = xerr.NewError(fmt.Errorf("image exceeds %d bytes", limit), "read image bytes", string(source))
		return raw, e
	}
	if len(data) == 0 {
		e = xerr.NewError(fmt.Errorf("no image bytes"), "read image bytes", string(source))
		return raw, e
	}
	return NewRawImage(data, source), e
}

// FromFile reads a photo from disk as a file upload.
func FromFile(path string) (raw RawImage, e *xerr.Error) {
	file, openErr := os.Open(path)
	if openErr != nil {
		e = xerr.NewError(openErr, "open image file", path)
		return raw, e
	}
	defer func() {
		_ = file.Close()
	}()

	raw, e = FromReader(file, SourceFileUpload, 0)
	if e != nil {
		return raw, e
	}

	tl.Log(
		tl.Verbose, palette.BlueDim, "Read '%s' (%s bytes, orientation %s)",
		path, raw.Len(), raw.Orientation(),
	)
	return raw, e
}

// FromDataURI decodes a base64 data URI posted by the client.
func FromDataURI(uri string, source Source) (raw RawImage, e *xerr.Error) {
	_, data, e := datauri.Parse(uri)
	if e != nil {
		return raw, e
	}
	if len(data) == 0 {
		e = xerr.NewError(fmt.Errorf("empty payload"), "decode data URI image", string(source))
		return raw, e
	}
	return NewRawImage(data, source), e
}
