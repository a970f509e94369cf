package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"

	"handover/src/pkg/datauri"
	"handover/src/pkg/orientation"
	"handover/src/pkg/orientation/orientationtest"
)

func sampleJPEG(code uint16) []byte {
	base := orientationtest.JPEG(orientationtest.Gradient(32, 24))
	if code == 0 {
		return base
	}
	return orientationtest.WithEXIF(base, code, binary.BigEndian)
}

func TestNewRawImageCopiesAndResolves(t *testing.T) {
	data := sampleJPEG(6)
	raw := NewRawImage(data, SourceFileUpload)
	data[0] = 0

	if raw.Bytes()[0] != 0xff {
		t.Fatal("RawImage must own a copy of its bytes")
	}
	if got, want := raw.Orientation(), orientation.Rotate90CW; got != want {
		t.Fatalf("orientation: got %v, want %v", got, want)
	}
	if got, want := raw.Source(), SourceFileUpload; got != want {
		t.Fatalf("source: got %v, want %v", got, want)
	}
}

func TestFromFileAndDataURI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(path, sampleJPEG(3), 0o644); err != nil {
		t.Fatal(err)
	}
	raw, e := FromFile(path)
	if e != nil {
		t.Fatalf("FromFile: %v", e)
	}
	if got, want := raw.Orientation(), orientation.Rotate180; got != want {
		t.Fatalf("orientation: got %v, want %v", got, want)
	}

	fromURI, e := FromDataURI(datauri.Encode("image/jpeg", raw.Bytes()), SourceCameraFrame)
	if e != nil {
		t.Fatalf("FromDataURI: %v", e)
	}
	if !bytes.Equal(fromURI.Bytes(), raw.Bytes()) {
		t.Fatal("data URI payload differs from file bytes")
	}
	if got, want := fromURI.Source(), SourceCameraFrame; got != want {
		t.Fatalf("source: got %v, want %v", got, want)
	}
}

func TestFromReaderLimits(t *testing.T) {
	if _, e := FromReader(strings.NewReader(""), SourceFileUpload, 10); e == nil {
		t.Fatal("empty body must be rejected")
	}
	if _, e := FromReader(strings.NewReader("0123456789abc"), SourceFileUpload, 10); e == nil {
		t.Fatal("oversized body must be rejected")
	}
	if _, e := FromReader(strings.NewReader("0123456789"), SourceFileUpload, 10); e != nil {
		t.Fatalf("body at the limit must be accepted: %v", e)
	}
}

func TestSnapshotDeviceFailureKinds(t *testing.T) {
	for _, tt := range []struct {
		status int
		want   FailureKind
	}{
		{http.StatusUnauthorized, FailurePermissionDenied},
		{http.StatusForbidden, FailurePermissionDenied},
		{http.StatusNotFound, FailureNoDevice},
		{http.StatusInternalServerError, FailureGeneric},
	} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		device := &SnapshotDevice{SnapshotURL: server.URL, Client: server.Client()}
		_, f := device.Open(context.Background())
		server.Close()
		if f == nil {
			t.Fatalf("status %d: expected failure", tt.status)
		}
		if got := f.Kind; got != tt.want {
			t.Errorf("status %d: got %v, want %v", tt.status, got, tt.want)
		}
		if f.UserMessage() == "" {
			t.Errorf("status %d: empty user message", tt.status)
		}
	}
}

func TestSnapshotDeviceUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, f := (&SnapshotDevice{SnapshotURL: url}).Open(context.Background())
	if f == nil || f.Kind != FailureNoDevice {
		t.Fatalf("closed port: got %+v, want no-device", f)
	}

	_, f = (&SnapshotDevice{}).Open(context.Background())
	if f == nil || f.Kind != FailureNoDevice {
		t.Fatalf("empty URL: got %+v, want no-device", f)
	}
}

func TestSnapshotDeviceBrotliFrame(t *testing.T) {
	frame := sampleJPEG(8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "staff" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Encoding", "br")
		bw := brotli.NewWriter(w)
		bw.Write(frame)
		bw.Close()
	}))
	defer server.Close()

	device := &SnapshotDevice{SnapshotURL: server.URL, Username: "staff", Password: "secret", Client: server.Client()}
	owner := NewStreamOwner(device)
	if f := owner.Open(context.Background()); f != nil {
		t.Fatalf("Open: %v", f.E)
	}
	raw, f := owner.Capture(context.Background())
	if f != nil {
		t.Fatalf("Capture: %v", f.E)
	}
	if !bytes.Equal(raw.Bytes(), frame) {
		t.Fatal("decoded frame differs")
	}
	if got, want := raw.Source(), SourceCameraFrame; got != want {
		t.Fatalf("source: got %v, want %v", got, want)
	}
	if got, want := raw.Orientation(), orientation.Rotate90CCW; got != want {
		t.Fatalf("orientation: got %v, want %v", got, want)
	}
}

type fakeStream struct {
	closed *int
}

func (s fakeStream) Frame(context.Context) (RawImage, *Failure) {
	return NewRawImage(sampleJPEG(0), SourceCameraFrame), nil
}

func (s fakeStream) Close() { *s.closed++ }

type fakeDevice struct {
	opened int
	closed int
}

func (d *fakeDevice) Open(context.Context) (Stream, *Failure) {
	d.opened++
	return fakeStream{closed: &d.closed}, nil
}

func TestStreamOwnerReleasesBeforeAcquire(t *testing.T) {
	device := &fakeDevice{}
	owner := NewStreamOwner(device)

	if _, f := owner.Capture(context.Background()); f == nil {
		t.Fatal("Capture without an open stream must fail")
	}

	for i := 0; i < 3; i++ {
		if f := owner.Open(context.Background()); f != nil {
			t.Fatal(f.E)
		}
	}
	if got, want := device.opened, 3; got != want {
		t.Fatalf("opened: got %d, want %d", got, want)
	}
	if got, want := device.closed, 2; got != want {
		t.Fatalf("released before re-acquire: got %d, want %d", got, want)
	}
	if !owner.Active() {
		t.Fatal("owner should hold a stream")
	}

	owner.Close()
	owner.Close()
	if got, want := device.closed, 3; got != want {
		t.Fatalf("closed after Close: got %d, want %d", got, want)
	}
	if owner.Active() {
		t.Fatal("owner should not hold a stream after Close")
	}
}

func TestStreamOwnerWithoutDevice(t *testing.T) {
	f := NewStreamOwner(nil).Open(context.Background())
	if f == nil || f.Kind != FailureNoDevice {
		t.Fatalf("got %+v, want no-device", f)
	}
}
