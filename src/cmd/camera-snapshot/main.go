package main

import (
	"context"
	"flag"
	"os"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"handover/src/pkg/capture"
	"handover/src/pkg/config"
	"handover/src/pkg/pipeline"
	"handover/src/pkg/util"
)

/*
main grabs one frame from the configured snapshot camera and writes it to
-out. With -process the frame goes through the photo pipeline first and the
encoded JPEG is written instead of the raw frame.
*/
func main() {
	config.CheckIfEnvVarsPresent()

	// Common flags.
	configPath := flag.String("config", "./cfg/config.json", "Path to your configuration file.")

	// Program-specific flags.
	snapshotURL := flag.String("url", "", "Camera snapshot URL (default: camera.snapshot_url from config).")
	outputPath := flag.String("out", "", "Where to write the captured frame.")
	process := flag.Bool("process", false, "Normalize and compress the frame before writing it.")

	flag.Parse()
	util.RequiredFlag(outputPath, "out")
	util.EnsureFlags()
	config.InitializeConfig(*configPath)

	cameraConfig := config.Cfg.Camera
	if *snapshotURL != "" {
		cameraConfig.SnapshotURL = *snapshotURL
	}

	tl.Log(
		tl.Notice, palette.BlueBold, "%s entrypoint. Camera: '%s'",
		"Running camera snapshot", cameraConfig.SnapshotURL,
	)

	timeout := time.Duration(max(cameraConfig.TimeoutSeconds, 1)) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 2*timeout)
	defer cancel()

	owner := capture.NewStreamOwner(capture.NewSnapshotDevice(cameraConfig))
	defer owner.Close()

	if f := owner.Open(ctx); f != nil {
		quitWithFailure(f)
	}
	raw, f := owner.Capture(ctx)
	if f != nil {
		quitWithFailure(f)
	}
	owner.Close()

	data := raw.Bytes()
	if *process {
		encoded, e := pipeline.Process(raw, pipeline.OptionsFromConfig(config.Cfg))
		e.QuitIf(xerr.ErrorTypeError)
		data = encoded.Data
		tl.Log(
			tl.Info, palette.Cyan, "Encoded frame as %sx%s, '%s' bytes (within budget: %v)",
			encoded.Width, encoded.Height, encoded.Size, encoded.WithinBudget,
		)
	}

	writeErr := os.WriteFile(*outputPath, data, 0o644)
	xerr.QuitIfError(writeErr, "write camera frame file")

	tl.Log(tl.Notice1, palette.GreenBold, "%s. Frame stored in '%s'", "Snapshot completed", *outputPath)
}

func quitWithFailure(f *capture.Failure) {
	tl.Log(tl.Error, palette.RedBold, "%s (%s)", f.UserMessage(), f.Kind)
	f.E.QuitIf(xerr.ErrorTypeError)
	os.Exit(1)
}
