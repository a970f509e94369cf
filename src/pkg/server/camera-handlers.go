package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"handover/src/pkg/capture"
	"handover/src/pkg/pipeline"
)

func cameraStatus(kind capture.FailureKind) int {
	switch kind {
	case capture.FailurePermissionDenied:
		return http.StatusForbidden
	case capture.FailureNoDevice:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func cameraError(c echo.Context, f *capture.Failure) error {
	return c.JSON(cameraStatus(f.Kind), map[string]string{
		"error": f.UserMessage(),
		"kind":  string(f.Kind),
	})
}

/*
capturePhoto grabs a frame from the camera, opening the stream on first use,
and appends it to the draft. A failed capture closes the stream so the next
request reopens it.
*/
func (s *Server) capturePhoto(c echo.Context) error {
	draft, ok := s.lookup(c)
	if !ok {
		return draftNotFound(c)
	}
	ctx := c.Request().Context()

	if !s.camera.Active() {
		if f := s.camera.Open(ctx); f != nil {
			return cameraError(c, f)
		}
	}
	raw, f := s.camera.Capture(ctx)
	if f != nil {
		s.camera.Close()
		return cameraError(c, f)
	}

	encoded, e := pipeline.Process(raw, s.options)
	if e != nil {
		return jsonError(c, http.StatusBadGateway, "camera returned an empty frame")
	}
	slot := draft.AppendPhoto(encoded, raw.Source())
	return c.JSON(http.StatusCreated, photoView(slot, encoded, raw.Source()))
}

func (s *Server) closeCamera(c echo.Context) error {
	s.camera.Close()
	return c.NoContent(http.StatusNoContent)
}
