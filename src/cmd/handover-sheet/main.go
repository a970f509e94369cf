package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"handover/src/pkg/capture"
	"handover/src/pkg/compress"
	"handover/src/pkg/config"
	"handover/src/pkg/export"
	"handover/src/pkg/layout"
	"handover/src/pkg/pipeline"
	"handover/src/pkg/util"
)

/*
main renders a declaration sheet from a report JSON file and evidence photos.

Example:

	go run ./src/cmd/handover-sheet -report ./tmp/report.json -photos ./tmp/photos -out ./tmp/sheets

Photos are taken in name order; the first four fill the evidence grid. The
HTML sheet is always written. The export then produces a PDF, or a print page
when no generator is configured.
*/
func main() {
	config.CheckIfEnvVarsPresent()

	// Common flags.
	configPath := flag.String("config", "./cfg/config.json", "Path to your configuration file.")

	// Program-specific flags.
	reportPath := flag.String("report", "", "Path to the handover report JSON (claimant_name, ticket_number, ...).")
	photosPath := flag.String("photos", "", "Path to a photo OR a directory with photos. Optional.")
	outputDirPath := flag.String("out", "./tmp/sheets", "Directory where the sheet will be stored.")
	language := flag.String("language", "", "Sheet language, en or de (default: language from the report).")
	generator := flag.String("generator", "", "Document generator, pdf or none (default: export.generator from config).")

	flag.Parse()
	util.RequiredFlag(reportPath, "report")
	util.EnsureFlags()
	config.InitializeConfig(*configPath)

	tl.Log(
		tl.Notice, palette.BlueBold, "%s entrypoint. Config path: '%s'",
		"Running handover sheet renderer", *configPath,
	)

	report, e := readReport(*reportPath)
	e.QuitIf(xerr.ErrorTypeError)
	if *language != "" {
		report.Language = layout.ParseLanguage(*language)
	}

	photos, e := loadPhotos(*photosPath, pipeline.OptionsFromConfig(config.Cfg))
	e.QuitIf(xerr.ErrorTypeError)

	page := layout.Build(report, photos)
	if !page.PrimaryComplete() {
		tl.Log(
			tl.Warning, palette.PurpleBold, "Only '%s' of '%s' evidence photos present",
			len(page.PrimaryPhotos), layout.PrimaryGridSize,
		)
	}

	mkdirErr := os.MkdirAll(*outputDirPath, 0o755)
	xerr.QuitIfError(mkdirErr, "create sheet output directory")

	baseName := strings.TrimSuffix(export.FileName(page, time.Now()), ".pdf")

	htmlText, e := layout.RenderHTML(page)
	e.QuitIf(xerr.ErrorTypeError)
	htmlPath := filepath.Join(*outputDirPath, baseName+".html")
	writeErr := os.WriteFile(htmlPath, []byte(htmlText), 0o644)
	xerr.QuitIfError(writeErr, "write HTML sheet file")
	tl.Log(tl.Info1, palette.Green, "Saved sheet to '%s'", htmlPath)

	generatorKind := config.Cfg.Export.Generator
	if *generator != "" {
		generatorKind = *generator
	}
	exporter := export.NewExporter(export.NewGenerator(generatorKind), export.HTMLPrinter{}, *outputDirPath)
	result, e := exporter.Export(page)
	e.QuitIf(xerr.ErrorTypeError)

	switch result.State {
	case export.StateOpened:
		pdfPath := filepath.Join(*outputDirPath, baseName+".pdf")
		writeErr = os.WriteFile(pdfPath, result.PDF, 0o644)
		xerr.QuitIfError(writeErr, "write PDF sheet file")
		tl.Log(tl.Info1, palette.Green, "Saved PDF to '%s'", pdfPath)
	case export.StateSaved:
		tl.Log(tl.Info1, palette.Green, "Saved PDF to '%s'", result.SavedPath)
	default:
		printPath := filepath.Join(*outputDirPath, baseName+".print.html")
		writeErr = os.WriteFile(printPath, []byte(result.PrintHTML), 0o644)
		xerr.QuitIfError(writeErr, "write print page file")
		tl.Log(tl.Info1, palette.Yellow, "No PDF (%s), open '%s' to print", result.State, printPath)
	}

	tl.Log(
		tl.Notice1, palette.GreenBold, "%s. Export state: '%s'",
		"Sheet completed", strings.Join(statesToStrings(result.Transitions), " -> "),
	)
}

func readReport(reportPath string) (report layout.Report, e *xerr.Error) {
	fileBytes, readErr := os.ReadFile(reportPath)
	if readErr != nil {
		e = xerr.NewErrorEC(readErr, "read report JSON", "path", reportPath, false)
		return report, e
	}
	unmarshalErr := json.Unmarshal(fileBytes, &report)
	if unmarshalErr != nil {
		e = xerr.NewErrorEC(unmarshalErr, "unmarshal report JSON", "path", reportPath, false)
		return report, e
	}
	if strings.TrimSpace(report.ClaimantName) == "" || strings.TrimSpace(report.TicketNumber) == "" {
		e = xerr.NewErrorEC(fmt.Errorf("claimant_name and ticket_number are required"), "validate report", "path", reportPath, false)
		return report, e
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}
	return report, nil
}

// loadPhotos processes the photos at photosPath in name order.
func loadPhotos(photosPath string, options pipeline.Options) (photos []compress.EncodedImage, e *xerr.Error) {
	if strings.TrimSpace(photosPath) == "" {
		return nil, nil
	}
	paths, e := pipeline.ResolveImages(photosPath)
	if e != nil {
		return nil, e
	}

	for _, path := range paths {
		raw, e := capture.FromFile(path)
		if e != nil {
			tl.Log(tl.Error, palette.RedBold, "Skipping '%s': '%s'", path, e)
			continue
		}
		encoded, e := pipeline.Process(raw, options)
		if e != nil {
			tl.Log(tl.Error, palette.RedBold, "Skipping '%s': '%s'", path, e)
			continue
		}
		photos = append(photos, encoded)
	}

	tl.Log(tl.Info, palette.Cyan, "Loaded '%s' of '%s' photos", len(photos), len(paths))
	return photos, nil
}

func statesToStrings(states []export.State) []string {
	names := make([]string, len(states))
	for i, state := range states {
		names[i] = string(state)
	}
	return names
}
