package datauri

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func TestEstimateBase64Bytes(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 4, 5, 100, 1021} {
		payload := bytes.Repeat([]byte{0xAB}, n)
		encoded := base64.StdEncoding.EncodeToString(payload)
		if got, want := EstimateBase64Bytes(encoded), n; got != want {
			t.Errorf("EstimateBase64Bytes(len %d): got %d, want %d", n, got, want)
		}
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	payload := []byte("\xff\xd8 not really a jpeg")
	uri := Encode("image/jpeg", payload)

	if got, want := EstimateBytes(uri), len(payload); got != want {
		t.Fatalf("EstimateBytes: got %d, want %d", got, want)
	}

	mimeType, data, e := Parse(uri)
	if e != nil {
		t.Fatalf("Parse: %v", e)
	}
	if got, want := mimeType, "image/jpeg"; got != want {
		t.Fatalf("mime type: got %q, want %q", got, want)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("payload mismatch: got %q", data)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, uri := range []string{
		"",
		"image/jpeg;base64,AAAA",
		"data:image/jpeg,plain",
		"data:image/jpeg;base64,!!!",
	} {
		if _, _, e := Parse(uri); e == nil {
			t.Errorf("Parse(%q): expected error", uri)
		}
	}
}
