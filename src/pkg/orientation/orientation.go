/*
Package orientation resolves the EXIF orientation code of JPEG data and applies
the transform that presents the pixels upright.

Resolution is best effort: anything that is not a well formed JPEG with an
Exif APP1 segment carrying tag 0x0112 resolves to Normal.
*/
package orientation

import (
	"bytes"
	"encoding/binary"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// Orientation is an EXIF orientation code in the range 1..8.
type Orientation int

const (
	Normal      Orientation = 1
	FlipH       Orientation = 2
	Rotate180   Orientation = 3
	FlipV       Orientation = 4
	Transpose   Orientation = 5
	Rotate90CW  Orientation = 6
	Transverse  Orientation = 7
	Rotate90CCW Orientation = 8
)

const (
	markerPrefix = 0xff
	markerSOI    = 0xd8
	markerEOI    = 0xd9
	markerSOS    = 0xda
	markerAPP1   = 0xe1

	tagOrientation = 0x0112
	typeShort      = 3

	// Bytes read by ReadFrom before giving up on finding the APP1 segment.
	maxMetadataBytes = 256 * 1024
)

var exifSignature = []byte("Exif\x00\x00")

// Valid reports whether o is one of the 8 defined codes.
func (o Orientation) Valid() bool {
	return o >= Normal && o <= Rotate90CCW
}

// SwapsDimensions reports whether upright width and height are the stored
// height and width (codes 5..8).
func (o Orientation) SwapsDimensions() bool {
	return o >= Transpose && o <= Rotate90CCW
}

func (o Orientation) String() string {
	switch o {
	case Normal:
		return "normal"
	case FlipH:
		return "flip-horizontal"
	case Rotate180:
		return "rotate-180"
	case FlipV:
		return "flip-vertical"
	case Transpose:
		return "transpose"
	case Rotate90CW:
		return "rotate-90-cw"
	case Transverse:
		return "transverse"
	case Rotate90CCW:
		return "rotate-90-ccw"
	default:
		return "invalid"
	}
}

/*
Apply returns img transformed so that it displays upright for orientation o.
Normal and invalid codes return img unchanged.
*/
func (o Orientation) Apply(img image.Image) image.Image {
	switch o {
	case FlipH:
		return imaging.FlipH(img)
	case Rotate180:
		return imaging.Rotate180(img)
	case FlipV:
		return imaging.FlipV(img)
	case Transpose:
		return imaging.Transpose(img)
	case Rotate90CW:
		// imaging rotates counter-clockwise.
		return imaging.Rotate270(img)
	case Transverse:
		return imaging.Transverse(img)
	case Rotate90CCW:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// UprightSize returns the dimensions of a width x height image after Apply.
func (o Orientation) UprightSize(width, height int) (int, int) {
	if o.SwapsDimensions() {
		return height, width
	}
	return width, height
}

// ReadFrom reads up to maxMetadataBytes from r and resolves the orientation.
func ReadFrom(r io.Reader) Orientation {
	head, _ := io.ReadAll(io.LimitReader(r, maxMetadataBytes))
	return Read(head)
}

/*
Read scans the marker segments of JPEG data for an Exif APP1 segment and
returns the orientation stored in IFD0. It never fails: a missing SOI marker,
a truncated or malformed segment, or an absent tag all yield Normal.
*/
func Read(data []byte) Orientation {
	if len(data) < 4 || data[0] != markerPrefix || data[1] != markerSOI {
		return Normal
	}

	offset := 2
	for offset+4 <= len(data) {
		if data[offset] != markerPrefix {
			return Normal
		}
		marker := data[offset+1]
		// Fill bytes before a marker.
		if marker == markerPrefix {
			offset++
			continue
		}
		if marker == markerSOS || marker == markerEOI {
			return Normal
		}
		// Standalone markers carry no length.
		if (marker >= 0xd0 && marker <= 0xd7) || marker == 0x01 {
			offset += 2
			continue
		}

		segmentLength := int(binary.BigEndian.Uint16(data[offset+2 : offset+4]))
		if segmentLength < 2 || offset+2+segmentLength > len(data) {
			return Normal
		}
		payload := data[offset+4 : offset+2+segmentLength]

		if marker == markerAPP1 && bytes.HasPrefix(payload, exifSignature) {
			if o, ok := readTIFF(payload[len(exifSignature):]); ok {
				return o
			}
		}
		offset += 2 + segmentLength
	}
	return Normal
}

/*
readTIFF walks IFD0 of a TIFF structure looking for the orientation tag.
ok is false when the structure is malformed or the tag is missing.
*/
func readTIFF(tiff []byte) (o Orientation, ok bool) {
	if len(tiff) < 8 {
		return Normal, false
	}

	var byteOrder binary.ByteOrder
	switch string(tiff[0:2]) {
	case "II":
		byteOrder = binary.LittleEndian
	case "MM":
		byteOrder = binary.BigEndian
	default:
		return Normal, false
	}
	if byteOrder.Uint16(tiff[2:4]) != 42 {
		return Normal, false
	}

	ifdOffset := int(byteOrder.Uint32(tiff[4:8]))
	if ifdOffset < 8 || ifdOffset+2 > len(tiff) {
		return Normal, false
	}

	entryCount := int(byteOrder.Uint16(tiff[ifdOffset : ifdOffset+2]))
	for i := 0; i < entryCount; i++ {
		entry := ifdOffset + 2 + i*12
		if entry+12 > len(tiff) {
			return Normal, false
		}
		if byteOrder.Uint16(tiff[entry:entry+2]) != tagOrientation {
			continue
		}
		if byteOrder.Uint16(tiff[entry+2:entry+4]) != typeShort {
			return Normal, false
		}
		value := Orientation(byteOrder.Uint16(tiff[entry+8 : entry+10]))
		if !value.Valid() {
			return Normal, false
		}
		return value, true
	}
	return Normal, false
}
