package server

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/labstack/echo/v4"

	"handover/src/pkg/capture"
	"handover/src/pkg/config"
	"handover/src/pkg/datauri"
	"handover/src/pkg/export"
	"handover/src/pkg/orientation/orientationtest"
)

const testToken = "test-token"

type testServer struct {
	t *testing.T
	s *Server
}

func newTestServer(t *testing.T, camera capture.Device, generator export.Generator) *testServer {
	t.Helper()
	cfg := config.DefaultValueConfig()
	cfg.Pipeline.MaxWidth = 320
	cfg.Pipeline.MaxHeight = 320
	cfg.Server.MiddlewareRateLimit = 1000
	cfg.Server.MiddlewareBurst = 1000
	cfg.Export.SaveDir = t.TempDir()
	return &testServer{t: t, s: New(Dependencies{
		Config:    cfg,
		Token:     testToken,
		Camera:    camera,
		Generator: generator,
	})}
}

func (ts *testServer) do(method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+testToken)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	ts.s.Echo.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) decode(rec *httptest.ResponseRecorder, wantStatus int, into any) {
	ts.t.Helper()
	if rec.Code != wantStatus {
		ts.t.Fatalf("status %d, want %d: %s", rec.Code, wantStatus, rec.Body.String())
	}
	if into != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
			ts.t.Fatalf("decode %s: %v", rec.Body.String(), err)
		}
	}
}

func (ts *testServer) createDraft() string {
	ts.t.Helper()
	var view DraftView
	rec := ts.do(http.MethodPost, "/api/handovers", echo.MIMEApplicationJSON,
		strings.NewReader(`{"claimant_name":"Dana <b>Weber</b>","ticket_number":"A-1042","staff_name":"Sam","language":"de"}`))
	ts.decode(rec, http.StatusCreated, &view)
	return view.ID
}

func multipartPhoto(t *testing.T, data []byte) (string, *bytes.Buffer) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("photo", "photo.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return writer.FormDataContentType(), &body
}

func jpegBytes(width, height int) []byte {
	return orientationtest.JPEG(orientationtest.Gradient(width, height))
}

func TestDataURIBodyLimit(t *testing.T) {
	const maxUpload = 64 * 1024
	cfg := config.DefaultValueConfig()
	cfg.Server.MaxUploadBytes = maxUpload
	cfg.Server.MiddlewareRateLimit = 1000
	cfg.Server.MiddlewareBurst = 1000
	ts := &testServer{t: t, s: New(Dependencies{Config: cfg, Token: testToken, Generator: export.Unavailable{}})}
	id := ts.createDraft()

	for _, tt := range []struct {
		name       string
		size       int
		wantStatus int
	}{
		{"just under the image limit", maxUpload * 9 / 10, http.StatusCreated},
		{"over the image limit", maxUpload * 11 / 10, http.StatusBadRequest},
		{"far over the body limit", maxUpload * 2, http.StatusRequestEntityTooLarge},
	} {
		payload := bytes.Repeat([]byte{0x5a, 0x01, 0xc3}, tt.size/3+1)[:tt.size]
		body, err := json.Marshal(map[string]string{"data_uri": datauri.Encode("image/jpeg", payload)})
		if err != nil {
			t.Fatal(err)
		}
		rec := ts.do(http.MethodPost, "/api/handovers/"+id+"/photos", echo.MIMEApplicationJSON, bytes.NewReader(body))
		if rec.Code != tt.wantStatus {
			t.Errorf("%s: status %d, want %d: %s", tt.name, rec.Code, tt.wantStatus, rec.Body.String())
		}
	}

	if got, want := requestBodyLimit(maxUpload), int64(150*1024); got != want {
		t.Errorf("requestBodyLimit = %d, want %d", got, want)
	}
}

func TestAuthAndHealth(t *testing.T) {
	ts := newTestServer(t, nil, export.Unavailable{})

	rec := httptest.NewRecorder()
	ts.s.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/handovers/x", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	ts.s.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthz: status %d, want 200", rec.Code)
	}
}

func TestCreateAndGetHandover(t *testing.T) {
	ts := newTestServer(t, nil, export.Unavailable{})

	rec := ts.do(http.MethodPost, "/api/handovers", echo.MIMEApplicationJSON, strings.NewReader(`{"claimant_name":" "}`))
	ts.decode(rec, http.StatusBadRequest, nil)

	id := ts.createDraft()
	var view DraftView
	ts.decode(ts.do(http.MethodGet, "/api/handovers/"+id, "", nil), http.StatusOK, &view)
	if view.ID != id || view.Report.TicketNumber != "A-1042" || view.Report.Language != "de" || view.Report.CreatedAt.IsZero() {
		t.Errorf("draft = %+v", view)
	}
	if view.PhotoCount != 0 || view.PrimaryComplete || len(view.Photos) != 0 {
		t.Errorf("new draft has photos: %+v", view)
	}

	ts.decode(ts.do(http.MethodGet, "/api/handovers/unknown", "", nil), http.StatusNotFound, nil)
}

func TestPhotoSlots(t *testing.T) {
	ts := newTestServer(t, nil, export.Unavailable{})
	id := ts.createDraft()
	photosPath := "/api/handovers/" + id + "/photos"

	// Multipart upload, EXIF orientation 6: the stored 400x300 frame is portrait upright.
	contentType, body := multipartPhoto(t, orientationtest.WithEXIF(jpegBytes(400, 300), 6, binary.LittleEndian))
	var first PhotoView
	ts.decode(ts.do(http.MethodPost, photosPath, contentType, body), http.StatusCreated, &first)
	if first.Slot != 0 || first.Width != 240 || first.Height != 320 || first.Source != capture.SourceFileUpload {
		t.Errorf("first photo = %+v", first)
	}

	// Data URI upload tagged as a camera frame.
	uri := datauri.Encode("image/jpeg", jpegBytes(200, 100))
	var second PhotoView
	ts.decode(ts.do(http.MethodPost, photosPath+"?source=camera", echo.MIMEApplicationJSON,
		strings.NewReader(`{"data_uri":"`+uri+`"}`)), http.StatusCreated, &second)
	if second.Slot != 1 || second.Source != capture.SourceCameraFrame || second.Width != 200 {
		t.Errorf("second photo = %+v", second)
	}

	// Raw body.
	var third PhotoView
	ts.decode(ts.do(http.MethodPost, photosPath, "image/jpeg", bytes.NewReader(jpegBytes(64, 64))), http.StatusCreated, &third)
	if third.Slot != 2 {
		t.Errorf("third slot = %d", third.Slot)
	}

	// Replace the middle slot in place.
	var replaced PhotoView
	ts.decode(ts.do(http.MethodPut, photosPath+"/1", "image/jpeg", bytes.NewReader(jpegBytes(100, 100))), http.StatusOK, &replaced)
	if replaced.Slot != 1 || replaced.Width != 100 || replaced.Source != capture.SourceFileUpload {
		t.Errorf("replaced photo = %+v", replaced)
	}
	ts.decode(ts.do(http.MethodPut, photosPath+"/7", "image/jpeg", bytes.NewReader(jpegBytes(10, 10))), http.StatusNotFound, nil)
	ts.decode(ts.do(http.MethodPut, photosPath+"/x", "image/jpeg", bytes.NewReader(jpegBytes(10, 10))), http.StatusBadRequest, nil)
	ts.decode(ts.do(http.MethodPost, photosPath, "image/jpeg", bytes.NewReader(nil)), http.StatusBadRequest, nil)

	// Undecodable bytes are kept as they are.
	var passthrough PhotoView
	ts.decode(ts.do(http.MethodPost, photosPath, "application/octet-stream", strings.NewReader("GIF89a broken")), http.StatusCreated, &passthrough)
	if !passthrough.Passthrough || passthrough.MimeType != "image/gif" {
		t.Errorf("passthrough photo = %+v", passthrough)
	}

	ts.decode(ts.do(http.MethodPost, photosPath, "image/jpeg", bytes.NewReader(jpegBytes(50, 40))), http.StatusCreated, nil)

	var view DraftView
	ts.decode(ts.do(http.MethodGet, "/api/handovers/"+id, "", nil), http.StatusOK, &view)
	var widths []int
	var extra []bool
	for _, photo := range view.Photos {
		widths = append(widths, photo.Width)
		extra = append(extra, photo.Extra)
	}
	if diff := cmp.Diff([]int{240, 100, 64, 0, 50}, widths); diff != "" {
		t.Errorf("slot widths mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{false, false, false, false, true}, extra); diff != "" {
		t.Errorf("extra flags mismatch (-want +got):\n%s", diff)
	}
	if !view.PrimaryComplete || view.PhotoCount != 5 {
		t.Errorf("count=%d complete=%v", view.PhotoCount, view.PrimaryComplete)
	}
}

func addPhotos(ts *testServer, id string, n int) {
	ts.t.Helper()
	for i := 0; i < n; i++ {
		rec := ts.do(http.MethodPost, "/api/handovers/"+id+"/photos", "image/jpeg", bytes.NewReader(jpegBytes(80, 60)))
		ts.decode(rec, http.StatusCreated, nil)
	}
}

func TestSheetAndPrint(t *testing.T) {
	ts := newTestServer(t, nil, export.Unavailable{})
	id := ts.createDraft()
	addPhotos(ts, id, 5)

	rec := ts.do(http.MethodGet, "/api/handovers/"+id+"/sheet", "", nil)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML) {
		t.Fatalf("sheet: %d %s", rec.Code, rec.Header().Get(echo.HeaderContentType))
	}
	sheet := rec.Body.String()
	if strings.Count(sheet, `class="grid-photo"`) != 4 || strings.Count(sheet, `class="extra-photo"`) != 1 {
		t.Error("sheet does not split 4 + 1 photos")
	}
	if strings.Contains(sheet, "<b>Weber</b>") || !strings.Contains(sheet, "Übergabeerklärung") {
		t.Error("sheet is not escaped or not in German")
	}

	rec = ts.do(http.MethodGet, "/api/handovers/"+id+"/print", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "window.print()") {
		t.Errorf("print page: %d", rec.Code)
	}
}

func TestExportEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, export.NewGenerator(export.GeneratorPDF))
	id := ts.createDraft()
	addPhotos(ts, id, 2)

	rec := ts.do(http.MethodGet, "/api/handovers/"+id+"/export", "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get(headerExportState) != string(export.StateOpened) {
		t.Fatalf("export: %d state %q", rec.Code, rec.Header().Get(headerExportState))
	}
	if rec.Header().Get(echo.HeaderContentType) != "application/pdf" || !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Error("export did not return a PDF")
	}
	if !strings.HasPrefix(rec.Header().Get(echo.HeaderContentDisposition), "inline; ") {
		t.Errorf("Content-Disposition = %q", rec.Header().Get(echo.HeaderContentDisposition))
	}

	fallback := newTestServer(t, nil, nil)
	id = fallback.createDraft()
	rec = fallback.do(http.MethodGet, "/api/handovers/"+id+"/export", "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get(headerExportState) != string(export.StatePrinted) {
		t.Fatalf("fallback export: %d state %q", rec.Code, rec.Header().Get(headerExportState))
	}
	if !strings.Contains(rec.Body.String(), "window.print()") {
		t.Error("fallback export did not return the print page")
	}
}

func TestCameraCapture(t *testing.T) {
	frame := jpegBytes(640, 480)
	var status atomic.Int32
	status.Store(http.StatusOK)
	camera := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if code := int(status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(frame)
	}))
	defer camera.Close()

	device := capture.NewSnapshotDevice(config.CameraConfig{SnapshotURL: camera.URL, TimeoutSeconds: 5})
	ts := newTestServer(t, device, nil)
	id := ts.createDraft()
	cameraPath := "/api/handovers/" + id + "/photos/camera"

	var photo PhotoView
	ts.decode(ts.do(http.MethodPost, cameraPath, "", nil), http.StatusCreated, &photo)
	if photo.Source != capture.SourceCameraFrame || photo.Width != 320 || photo.Height != 240 {
		t.Errorf("camera photo = %+v", photo)
	}
	if !ts.s.camera.Active() {
		t.Error("stream closed after a successful capture")
	}

	status.Store(http.StatusForbidden)
	var failure map[string]string
	ts.decode(ts.do(http.MethodPost, cameraPath, "", nil), http.StatusForbidden, &failure)
	if failure["kind"] != string(capture.FailurePermissionDenied) || failure["error"] == "" {
		t.Errorf("failure = %v", failure)
	}
	if ts.s.camera.Active() {
		t.Error("stream kept after a failed capture")
	}

	status.Store(http.StatusOK)
	ts.decode(ts.do(http.MethodPost, cameraPath, "", nil), http.StatusCreated, nil)
	ts.decode(ts.do(http.MethodDelete, "/api/camera", "", nil), http.StatusNoContent, nil)
	if ts.s.camera.Active() {
		t.Error("DELETE /api/camera left the stream open")
	}
}

func TestCameraMissing(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	id := ts.createDraft()
	var failure map[string]string
	ts.decode(ts.do(http.MethodPost, "/api/handovers/"+id+"/photos/camera", "", nil), http.StatusNotFound, &failure)
	if failure["kind"] != string(capture.FailureNoDevice) {
		t.Errorf("failure = %v", failure)
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	contentType, body := multipartPhoto(t, jpegBytes(1000, 500))

	var response NormalizeResponse
	ts.decode(ts.do(http.MethodPost, "/api/photos/normalize?watermark=A-1042", contentType, body), http.StatusOK, &response)
	if response.Image.Width != 320 || response.Image.Height != 160 {
		t.Errorf("normalized to %dx%d", response.Image.Width, response.Image.Height)
	}
	if !strings.HasPrefix(response.DataURI, "data:image/jpeg;base64,") || datauri.EstimateBytes(response.DataURI) != response.Image.Size {
		t.Error("data URI does not match the encoded image")
	}
	if ts.s.store.Len() != 0 {
		t.Error("stateless endpoint created a draft")
	}
}
