package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"

	"handover/src/pkg/config"
	"handover/src/pkg/pipeline"
	"handover/src/pkg/util"
)

/*
main normalizes and compresses evidence photos in bulk.

-input can be a single image file or a directory of images. For every photo
the encoded JPEG and a .datauri.txt file are written to -out, plus a
manifest.json describing all results.
*/
func main() {
	config.CheckIfEnvVarsPresent()

	// Common flags.
	configPath := flag.String("config", "./cfg/config.json", "Path to your configuration file.")

	// Program-specific flags.
	inputPath := flag.String("input", "", "Path to a photo OR a directory with photos (.jpg/.jpeg/.png/.gif/.bmp/.webp).")
	outputDirPath := flag.String("out", "./tmp/normalized", "Directory where encoded photos and data URIs will be stored.")
	watermark := flag.String("watermark", "", "Watermark text stamped on every photo (default: pipeline.watermark_text from config).")
	budget := flag.Int("budget", 0, "Byte budget per photo (default: pipeline.budget_bytes from config).")
	concurrency := flag.Int("concurrency", 0, "Photos processed in parallel (default: batch.concurrency from config).")

	flag.Parse()
	util.RequiredFlag(inputPath, "input")
	util.EnsureFlags()
	config.InitializeConfig(*configPath)

	options := pipeline.OptionsFromConfig(config.Cfg)
	if *watermark != "" {
		options = options.WithWatermark(*watermark)
	}
	if *budget > 0 {
		options.BudgetBytes = *budget
	}
	workers := config.Cfg.Batch.Concurrency
	if *concurrency > 0 {
		workers = *concurrency
	}

	tl.Log(
		tl.Notice, palette.BlueBold, "%s entrypoint. Config path: '%s'",
		"Running photo normalizer", *configPath,
	)

	photos, e := pipeline.ResolveImages(*inputPath)
	e.QuitIf("error")

	if len(photos) == 0 {
		tl.Log(
			tl.Warning, palette.PurpleBold, "No supported photos found at: '%s'",
			*inputPath,
		)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, e := pipeline.ProcessFiles(ctx, photos, *outputDirPath, options, workers)
	e.QuitIf("error")

	withinBudget, passthrough, failed := 0, 0, 0
	for _, result := range results {
		switch {
		case result.Error != "":
			failed++
		case result.Image.Passthrough:
			passthrough++
		case result.Image.WithinBudget:
			withinBudget++
		}
	}

	tl.Log(
		tl.Notice, palette.GreenBold, "Done. Within budget: '%s', over budget: '%s', passthrough: '%s', failed: '%s'",
		withinBudget, len(results)-withinBudget-passthrough-failed, passthrough, failed,
	)
}
