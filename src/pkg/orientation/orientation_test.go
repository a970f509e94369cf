package orientation_test

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"handover/src/pkg/orientation"
	"handover/src/pkg/orientation/orientationtest"
)

func TestReadAllCodes(t *testing.T) {
	base := orientationtest.JPEG(orientationtest.Gradient(8, 4))
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		for code := uint16(1); code <= 8; code++ {
			data := orientationtest.WithEXIF(base, code, order)
			if got, want := orientation.Read(data), orientation.Orientation(code); got != want {
				t.Errorf("Read(code %d, %v): got %v, want %v", code, order, got, want)
			}
			if got, want := orientation.ReadFrom(bytes.NewReader(data)), orientation.Orientation(code); got != want {
				t.Errorf("ReadFrom(code %d, %v): got %v, want %v", code, order, got, want)
			}
		}
	}
}

func TestReadFallsBackToNormal(t *testing.T) {
	base := orientationtest.JPEG(orientationtest.Gradient(8, 4))
	withSix := orientationtest.WithEXIF(base, 6, binary.BigEndian)

	corruptSignature := append([]byte(nil), withSix...)
	copy(corruptSignature[6:], "Exxf")

	for name, data := range map[string][]byte{
		"empty":             nil,
		"not a jpeg":        []byte("\x89PNG\r\n\x1a\n0000000000"),
		"no exif":           base,
		"truncated segment": withSix[:12],
		"bad signature":     corruptSignature,
		"out of range code": orientationtest.WithEXIF(base, 9, binary.BigEndian),
		"zero code":         orientationtest.WithEXIF(base, 0, binary.LittleEndian),
	} {
		if got := orientation.Read(data); got != orientation.Normal {
			t.Errorf("%s: got %v, want normal", name, got)
		}
	}
}

// upright returns the stored pixel shown at display position (x, y).
func upright(code orientation.Orientation, x, y, w, h int) (int, int) {
	switch code {
	case orientation.FlipH:
		return w - 1 - x, y
	case orientation.Rotate180:
		return w - 1 - x, h - 1 - y
	case orientation.FlipV:
		return x, h - 1 - y
	case orientation.Transpose:
		return y, x
	case orientation.Rotate90CW:
		return y, h - 1 - x
	case orientation.Transverse:
		return w - 1 - y, h - 1 - x
	case orientation.Rotate90CCW:
		return w - 1 - y, x
	default:
		return x, y
	}
}

func TestApplyMatchesReferenceTransform(t *testing.T) {
	const w, h = 3, 2
	stored := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			stored.SetNRGBA(x, y, color.NRGBA{R: uint8(x*10 + y), A: 255})
		}
	}

	for code := orientation.Normal; code <= orientation.Rotate90CCW; code++ {
		out := code.Apply(stored)
		gotW, gotH := out.Bounds().Dx(), out.Bounds().Dy()
		wantW, wantH := code.UprightSize(w, h)
		if gotW != wantW || gotH != wantH {
			t.Fatalf("%v: got %dx%d, want %dx%d", code, gotW, gotH, wantW, wantH)
		}
		if code <= orientation.FlipV && (gotW != w || gotH != h) {
			t.Fatalf("%v: codes 1-4 must keep W x H", code)
		}
		if code >= orientation.Transpose && (gotW != h || gotH != w) {
			t.Fatalf("%v: codes 5-8 must swap to H x W", code)
		}

		for y := 0; y < gotH; y++ {
			for x := 0; x < gotW; x++ {
				sx, sy := upright(code, x, y, w, h)
				r, _, _, _ := out.At(out.Bounds().Min.X+x, out.Bounds().Min.Y+y).RGBA()
				if got, want := uint8(r>>8), uint8(sx*10+sy); got != want {
					t.Errorf("%v: pixel (%d,%d): got %d, want %d", code, x, y, got, want)
				}
			}
		}
	}
}

func TestReadIsIdempotentOnReencodedOutput(t *testing.T) {
	base := orientationtest.JPEG(orientationtest.Gradient(16, 8))
	withSix := orientationtest.WithEXIF(base, 6, binary.BigEndian)

	code := orientation.Read(withSix)
	if code != orientation.Rotate90CW {
		t.Fatalf("got %v, want rotate-90-cw", code)
	}

	img, err := decode(withSix)
	if err != nil {
		t.Fatal(err)
	}
	reencoded := orientationtest.JPEG(code.Apply(img))
	if got := orientation.Read(reencoded); got != orientation.Normal {
		t.Fatalf("re-encoded upright image: got %v, want normal", got)
	}
}

func TestSwapsDimensions(t *testing.T) {
	for code := orientation.Orientation(0); code <= 9; code++ {
		want := code >= 5 && code <= 8
		if got := code.SwapsDimensions(); got != want {
			t.Errorf("%d: got %v, want %v", code, got, want)
		}
	}
	if orientation.Orientation(0).Valid() || orientation.Orientation(9).Valid() {
		t.Fatal("codes outside 1..8 must be invalid")
	}
}

func decode(data []byte) (image.Image, error) {
	return jpeg.Decode(bytes.NewReader(data))
}
