package capture

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"

	"handover/src/pkg/config"
)

// Largest frame accepted from a camera.
const maxFrameBytes = 32 * 1024 * 1024

/*
SnapshotDevice is a network camera that returns one JPEG frame per GET request
to SnapshotURL. Credentials, when set, are sent as HTTP basic auth.
*/
type SnapshotDevice struct {
	SnapshotURL string
	Username    string
	Password    string
	Client      *http.Client
}

// NewSnapshotDevice builds a device from the camera config section.
func NewSnapshotDevice(cfg config.CameraConfig) *SnapshotDevice {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SnapshotDevice{
		SnapshotURL: cfg.SnapshotURL,
		Username:    cfg.Username,
		Password:    cfg.Password,
		Client:      &http.Client{Timeout: timeout},
	}
}

/*
Open verifies that the camera answers with a frame; the probe frame is
discarded. Auth rejections map to permission denied, unreachable hosts and
404s to no device found.
*/
func (d *SnapshotDevice) Open(ctx context.Context) (Stream, *Failure) {
	if d.SnapshotURL == "" {
		return nil, newFailure(FailureNoDevice, fmt.Errorf("snapshot URL is empty"), "open snapshot camera", "camera.snapshot_url")
	}
	if _, f := d.fetch(ctx); f != nil {
		return nil, f
	}
	return &snapshotStream{device: d}, nil
}

func (d *SnapshotDevice) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return http.DefaultClient
}

func (d *SnapshotDevice) fetch(ctx context.Context) (raw RawImage, f *Failure) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, d.SnapshotURL, nil)
	if err != nil {
		return raw, newFailure(FailureNoDevice, err, "build snapshot request", d.SnapshotURL)
	}
	request.Header.Set("Accept", "image/jpeg, image/*")
	request.Header.Set("Accept-Encoding", "gzip, deflate, br")
	if d.Username != "" {
		request.SetBasicAuth(d.Username, d.Password)
	}

	response, err := d.client().Do(request)
	if err != nil {
		return raw, newFailure(classifyTransportError(err), err, "request camera snapshot", d.SnapshotURL)
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden:
		return raw, newFailure(FailurePermissionDenied, fmt.Errorf("camera answered %s", response.Status), "request camera snapshot", d.SnapshotURL)
	case response.StatusCode == http.StatusNotFound:
		return raw, newFailure(FailureNoDevice, fmt.Errorf("camera answered %s", response.Status), "request camera snapshot", d.SnapshotURL)
	case response.StatusCode < 200 || response.StatusCode > 299:
		return raw, newFailure(FailureGeneric, fmt.Errorf("camera answered %s", response.Status), "request camera snapshot", d.SnapshotURL)
	}

	body, e := readBody(response, d.SnapshotURL, maxFrameBytes)
	if e != nil {
		return raw, &Failure{Kind: FailureGeneric, E: e}
	}
	if len(body) == 0 {
		return raw, newFailure(FailureGeneric, fmt.Errorf("empty frame"), "read camera snapshot", d.SnapshotURL)
	}
	return NewRawImage(body, SourceCameraFrame), nil
}

func classifyTransportError(err error) FailureKind {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) {
		return FailureNoDevice
	}
	return FailureGeneric
}

type snapshotStream struct {
	mu     sync.Mutex
	device *SnapshotDevice
	closed bool
}

func (s *snapshotStream) Frame(ctx context.Context) (RawImage, *Failure) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return RawImage{}, newFailure(FailureGeneric, fmt.Errorf("stream is closed"), "capture camera frame", s.device.SnapshotURL)
	}
	return s.device.fetch(ctx)
}

func (s *snapshotStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.device.client().CloseIdleConnections()
	tl.Log(tl.Verbose, palette.BlueDim, "Closed snapshot stream for '%s'", s.device.SnapshotURL)
}
