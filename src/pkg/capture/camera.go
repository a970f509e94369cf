package capture

import (
	"context"
	"fmt"
	"sync"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

// FailureKind distinguishes camera failures that need different user action.
type FailureKind string

const (
	FailurePermissionDenied FailureKind = "permission-denied"
	FailureNoDevice         FailureKind = "no-device"
	FailureGeneric          FailureKind = "failure"
)

// Failure is a camera error together with its kind.
type Failure struct {
	Kind FailureKind
	E    *xerr.Error
}

func newFailure(kind FailureKind, err error, action string, detail string) *Failure {
	return &Failure{Kind: kind, E: xerr.NewError(err, action, detail)}
}

// UserMessage is the actionable text shown to staff.
func (f *Failure) UserMessage() string {
	switch f.Kind {
	case FailurePermissionDenied:
		return "Camera access was denied. Grant camera permission and try again."
	case FailureNoDevice:
		return "No camera was found. Connect a camera or pick a different device."
	default:
		return "The camera could not be started. Try again or upload a photo instead."
	}
}

// Device opens camera streams.
type Device interface {
	Open(ctx context.Context) (Stream, *Failure)
}

// Stream yields frames until closed.
type Stream interface {
	Frame(ctx context.Context) (RawImage, *Failure)
	Close()
}

/*
StreamOwner holds at most one active stream of a device. Open releases any
stream it already holds before acquiring a new one, so two surfaces never
contend for the same camera.
*/
type StreamOwner struct {
	mu     sync.Mutex
	device Device
	active Stream
}

func NewStreamOwner(device Device) *StreamOwner {
	return &StreamOwner{device: device}
}

// Open releases the held stream, if any, and opens a fresh one.
func (o *StreamOwner) Open(ctx context.Context) (f *Failure) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active != nil {
		tl.Log(tl.Verbose, palette.PurpleDim, "Releasing %s before opening a new one", "active camera stream")
		o.active.Close()
		o.active = nil
	}
	if o.device == nil {
		return newFailure(FailureNoDevice, fmt.Errorf("no camera configured"), "open camera stream", "")
	}

	stream, f := o.device.Open(ctx)
	if f != nil {
		tl.Log(tl.Warning, palette.PurpleBright, "Unable to open camera (%s): %s", f.Kind, f.E)
		return f
	}
	o.active = stream
	tl.Log(tl.Info1, palette.Green, "Camera stream %s", "opened")
	return nil
}

// Active reports whether a stream is currently held.
func (o *StreamOwner) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active != nil
}

// Capture grabs one frame from the held stream.
func (o *StreamOwner) Capture(ctx context.Context) (raw RawImage, f *Failure) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active == nil {
		return raw, newFailure(FailureGeneric, fmt.Errorf("camera is not open"), "capture camera frame", "")
	}
	raw, f = o.active.Frame(ctx)
	if f != nil {
		return raw, f
	}
	tl.Log(tl.Info1, palette.Green, "Captured camera frame (%s bytes)", raw.Len())
	return raw, nil
}

// Close tears the held stream down. It is a no-op without one.
func (o *StreamOwner) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil {
		return
	}
	o.active.Close()
	o.active = nil
	tl.Log(tl.Info1, palette.Blue, "Camera stream %s", "closed")
}
