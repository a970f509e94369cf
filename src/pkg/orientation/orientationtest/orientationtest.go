// Package orientationtest builds JPEG fixtures carrying an EXIF orientation tag.
package orientationtest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
)

// WithEXIF inserts an Exif APP1 segment holding orientation code right after
// the SOI marker of jpegData.
func WithEXIF(jpegData []byte, code uint16, order binary.ByteOrder) []byte {
	tiff := new(bytes.Buffer)
	if order == binary.LittleEndian {
		tiff.WriteString("II")
	} else {
		tiff.WriteString("MM")
	}
	binary.Write(tiff, order, uint16(42))
	binary.Write(tiff, order, uint32(8))
	// IFD0 with a single SHORT entry.
	binary.Write(tiff, order, uint16(1))
	binary.Write(tiff, order, uint16(0x0112))
	binary.Write(tiff, order, uint16(3))
	binary.Write(tiff, order, uint32(1))
	binary.Write(tiff, order, code)
	binary.Write(tiff, order, uint16(0))
	// No next IFD.
	binary.Write(tiff, order, uint32(0))

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)

	out := new(bytes.Buffer)
	out.Write(jpegData[:2])
	out.Write([]byte{0xff, 0xe1})
	binary.Write(out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(jpegData[2:])
	return out.Bytes()
}

// Gradient returns a deterministic width x height image whose colour encodes
// the pixel position, so rotations can be told apart after lossy encoding.
func Gradient(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(width-1, 1)),
				G: uint8(y * 255 / max(height-1, 1)),
				B: 96,
				A: 255,
			})
		}
	}
	return img
}

// JPEG encodes img at quality 92.
func JPEG(img image.Image) []byte {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 92}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
