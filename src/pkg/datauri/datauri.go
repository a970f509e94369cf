// Package datauri builds and parses base64 data URIs and estimates the size
// of their payloads without decoding them.
package datauri

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/tuumbleweed/xerr"
)

const base64Marker = ";base64,"

// Encode returns data as a "data:<mimeType>;base64,..." URI.
func Encode(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s%s%s", mimeType, base64Marker, base64.StdEncoding.EncodeToString(data))
}

/*
EstimateBase64Bytes returns the number of bytes a standard base64 text decodes
to. Trailing padding is accounted for: one "=" removes one byte, two remove two.
*/
func EstimateBase64Bytes(encoded string) int {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return 0
	}
	padding := 0
	if strings.HasSuffix(encoded, "==") {
		padding = 2
	} else if strings.HasSuffix(encoded, "=") {
		padding = 1
	}
	size := len(encoded)*3/4 - padding
	if size < 0 {
		return 0
	}
	return size
}

// EstimateBytes returns the decoded payload size of a data URI, or 0 when the
// URI carries no base64 payload.
func EstimateBytes(uri string) int {
	index := strings.Index(uri, base64Marker)
	if index < 0 {
		return 0
	}
	return EstimateBase64Bytes(uri[index+len(base64Marker):])
}

/*
Parse splits a base64 data URI into its MIME type and decoded payload.
*/
func Parse(uri string) (mimeType string, data []byte, e *xerr.Error) {
	trimmed := strings.TrimSpace(uri)
	if !strings.HasPrefix(trimmed, "data:") {
		e = xerr.NewError(fmt.Errorf("missing 'data:' prefix"), "parse data URI", shorten(trimmed))
		return mimeType, data, e
	}

	index := strings.Index(trimmed, base64Marker)
	if index < 0 {
		e = xerr.NewError(fmt.Errorf("only base64 data URIs are supported"), "parse data URI", shorten(trimmed))
		return mimeType, data, e
	}

	mimeType = trimmed[len("data:"):index]
	if mimeType == "" {
		mimeType = "text/plain"
	}

	data, decodeErr := base64.StdEncoding.DecodeString(trimmed[index+len(base64Marker):])
	if decodeErr != nil {
		e = xerr.NewError(decodeErr, "decode data URI payload", mimeType)
		return mimeType, nil, e
	}

	return mimeType, data, e
}

func shorten(s string) string {
	if len(s) > 48 {
		return s[:48] + "..."
	}
	return s
}
