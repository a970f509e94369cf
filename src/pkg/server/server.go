/*
Package server exposes the handover photo pipeline over HTTP: drafts with
ordered photo slots, camera capture, the declaration sheet and its export.
*/
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"handover/src/pkg/capture"
	"handover/src/pkg/config"
	echomw "handover/src/pkg/echo-middleware"
	"handover/src/pkg/export"
	"handover/src/pkg/pipeline"
)

/*
Dependencies of a Server. Camera and Generator may be nil: camera requests
then fail with "no device", exports go to the print page.
*/
type Dependencies struct {
	Config    config.Config
	Token     string
	Camera    capture.Device
	Generator export.Generator
	Printer   export.Printer
}

type Server struct {
	Echo *echo.Echo

	store     *Store
	options   pipeline.Options
	camera    *capture.StreamOwner
	exporter  *export.Exporter
	maxUpload int64
}

func New(deps Dependencies) *Server {
	cfg := config.WithDefaults(deps.Config)

	s := &Server{
		Echo:      echo.New(),
		store:     NewStore(),
		options:   pipeline.OptionsFromConfig(cfg),
		camera:    capture.NewStreamOwner(deps.Camera),
		exporter:  export.NewExporter(deps.Generator, deps.Printer, cfg.Export.SaveDir),
		maxUpload: cfg.Server.MaxUploadBytes,
	}
	s.Echo.HideBanner = true
	s.Echo.HidePort = true

	limiter := echomw.NewRateLimiter(cfg.Server.MiddlewareRateLimit, cfg.Server.MiddlewareBurst)
	s.Echo.Use(middleware.Recover(), echomw.RouteAccessLoggerMiddleware, limiter.Middleware)

	s.Echo.GET("/healthz", s.health)

	api := s.Echo.Group("/api", middleware.BodyLimit(fmt.Sprintf("%dK", requestBodyLimit(s.maxUpload)/1024)))
	if deps.Token != "" {
		api.Use(echomw.RequireBearerToken(deps.Token))
	} else {
		tl.Log(tl.Warning, palette.YellowBold, "API is %s: %s is not set", "unauthenticated", config.EnvAPIToken)
	}

	api.POST("/handovers", s.createHandover)
	api.GET("/handovers/:id", s.getHandover)
	api.POST("/handovers/:id/photos", s.addPhoto)
	api.PUT("/handovers/:id/photos/:slot", s.replacePhoto)
	api.POST("/handovers/:id/photos/camera", s.capturePhoto)
	api.GET("/handovers/:id/sheet", s.sheet)
	api.GET("/handovers/:id/print", s.printSheet)
	api.GET("/handovers/:id/export", s.exportSheet)
	api.DELETE("/camera", s.closeCamera)
	api.POST("/photos/normalize", s.normalizePhoto)

	return s
}

// Room for multipart and JSON framing around an upload.
const bodyLimitHeadroom = 64 * 1024

/*
requestBodyLimit is the largest request body accepted under /api. A data URI
carries its image base64 encoded, 4/3 of the image size, so the limit is
scaled up; the per-image maxUpload check runs in the handlers.
*/
func requestBodyLimit(maxUpload int64) int64 {
	limit := max(maxUpload, 0)*4/3 + bodyLimitHeadroom
	// Whole KiB, rounded up.
	return (limit + 1023) / 1024 * 1024
}

// Start serves on address until Shutdown is called.
func (s *Server) Start(address string) (e *xerr.Error) {
	tl.Log(tl.Notice, palette.BlueBold, "%s on '%s'", "Serving handover API", address)
	err := s.Echo.Start(address)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		e = xerr.NewError(err, "serve handover API", address)
		return e
	}
	return nil
}

// Shutdown stops accepting requests and releases the camera.
func (s *Server) Shutdown(ctx context.Context) (e *xerr.Error) {
	defer s.camera.Close()
	err := s.Echo.Shutdown(ctx)
	if err != nil {
		e = xerr.NewError(err, "shut down handover API", "")
		return e
	}
	tl.Log(tl.Notice, palette.GreenBold, "%s", "Handover API stopped")
	return nil
}
