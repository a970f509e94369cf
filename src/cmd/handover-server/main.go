package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"handover/src/pkg/capture"
	"handover/src/pkg/config"
	echomw "handover/src/pkg/echo-middleware"
	"handover/src/pkg/export"
	"handover/src/pkg/server"
)

/*
main serves the handover API until SIGINT or SIGTERM.

The bearer token is read from HANDOVER_API_TOKEN; without it the API runs
unauthenticated and a warning is logged.
*/
func main() {
	config.CheckIfEnvVarsPresent(config.EnvAPIToken)

	// Common flags.
	configPath := flag.String("config", "./cfg/config.json", "Path to your configuration file.")

	// Program-specific flags.
	address := flag.String("address", "", "Listen address host:port (default: server.address and server.port from config).")

	flag.Parse()
	config.InitializeConfig(*configPath)
	echomw.InitializeConfig(&config.Cfg.Server)

	cfg := config.Cfg
	cfg.Server = echomw.Cfg

	listenAddress := strings.TrimSpace(*address)
	if listenAddress == "" {
		listenAddress = cfg.Server.ServerAddress()
	}

	var camera capture.Device
	if cfg.Camera.SnapshotURL != "" {
		camera = capture.NewSnapshotDevice(cfg.Camera)
		tl.Log(tl.Info1, palette.Cyan, "%s '%s'", "Using snapshot camera", cfg.Camera.SnapshotURL)
	} else {
		tl.Log(tl.Info1, palette.Purple, "%s, camera capture is disabled", "No camera.snapshot_url configured")
	}

	srv := server.New(server.Dependencies{
		Config:    cfg,
		Token:     strings.TrimSpace(os.Getenv(config.EnvAPIToken)),
		Camera:    camera,
		Generator: export.NewGenerator(cfg.Export.Generator),
		Printer:   export.HTMLPrinter{},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		e := srv.Start(listenAddress)
		e.QuitIf(xerr.ErrorTypeError)
	}()

	<-ctx.Done()
	tl.Log(tl.Notice, palette.BlueBold, "%s", "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	e := srv.Shutdown(shutdownCtx)
	e.QuitIf(xerr.ErrorTypeError)
}
