package capture

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"net/http"

	"github.com/andybalholm/brotli"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

/*
readBody returns the decoded body of resp, handling gzip, deflate and brotli
content encodings. At most limit decoded bytes are accepted.
Pass the original url for clearer logging.
*/
func readBody(resp *http.Response, urlStr string, limit int64) (body []byte, e *xerr.Error) {
	var reader io.Reader
	contentEncoding := resp.Header.Get("Content-Encoding")

	tl.Log(tl.Verbose5, palette.BlueDim, "Get body (content encoding is '%s') for '%s'", contentEncoding, urlStr)
	switch contentEncoding {
	case "gzip":
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return body, xerr.NewError(err, "Unable to get gzip reader", urlStr)
		}
		defer gzipReader.Close()
		reader = gzipReader
	case "deflate":
		flateReader := flate.NewReader(resp.Body)
		defer flateReader.Close()
		reader = flateReader
	case "br":
		// no need to close brotli reader
		reader = brotli.NewReader(resp.Body)
	case "", "none", "identity":
		reader = resp.Body
	default:
		reader = resp.Body
		tl.Log(tl.Warning, palette.YellowDim, "Unsupported %s: '%s'", "Content-Encoding", contentEncoding)
	}

	body, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return body, xerr.NewError(err, "Failed to read response body", urlStr)
	}
	if int64(len(body)) > limit {
		return nil, xerr.NewErrorEC(io.ErrShortBuffer, "response body exceeds limit", "limit", limit, false)
	}
	tl.Log(tl.Verbose6, palette.GreenDim, "Got body length %s (content encoding is '%s') for '%s'", len(body), contentEncoding, urlStr)

	return body, nil
}
