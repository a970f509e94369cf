package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
	"golang.org/x/sync/errgroup"

	"handover/src/pkg/capture"
	"handover/src/pkg/compress"
)

const ManifestName = "manifest.json"

// FileResult describes what ProcessFiles did with one input file.
type FileResult struct {
	Source      string                `json:"source"`
	Output      string                `json:"output,omitempty"`
	DataURIPath string                `json:"data_uri_path,omitempty"`
	Image       compress.EncodedImage `json:"image"`
	Error       string                `json:"error,omitempty"`
}

/*
ProcessFiles runs every file through Process with at most concurrency files in
flight and writes, per file, the encoded photo and a ".datauri.txt" file
holding its data URI into outputDir, followed by a manifest of all results.

Results keep the order of paths. A file that cannot be read is reported in its
result and does not stop the batch; a cancelled context does.
*/
func ProcessFiles(ctx context.Context, paths []string, outputDir string, options Options, concurrency int) (results []FileResult, e *xerr.Error) {
	e = ensureOutputDirectory(outputDir)
	if e != nil {
		return nil, e
	}
	if concurrency < 1 {
		concurrency = 1
	}

	results = make([]FileResult, len(paths))
	stems := outputStems(paths)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	for i, path := range paths {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			results[i] = processFile(path, filepath.Join(outputDir, stems[i]), options)
			return nil
		})
	}

	if waitErr := group.Wait(); waitErr != nil {
		e = xerr.NewError(waitErr, "process photo batch", outputDir)
		return results, e
	}

	e = saveJSONToFile(filepath.Join(outputDir, ManifestName), results)
	if e != nil {
		return results, e
	}

	failed := 0
	for _, result := range results {
		if result.Error != "" {
			failed++
		}
	}
	tl.Log(
		tl.Notice1, palette.GreenBold, "Processed '%s' photos into '%s' (%s failed)",
		len(paths), outputDir, failed,
	)
	return results, nil
}

func processFile(path string, outputStem string, options Options) (result FileResult) {
	result.Source = path

	raw, e := capture.FromFile(path)
	if e != nil {
		tl.Log(tl.Error, palette.RedBold, "Failed reading '%s': '%s'", path, e)
		result.Error = fmt.Sprint(e)
		return result
	}

	encoded, e := Process(raw, options)
	if e != nil {
		result.Error = fmt.Sprint(e)
		return result
	}
	result.Image = encoded

	result.Output = outputStem + extensionFor(encoded.MimeType)
	e = writeFileAtomically(result.Output, encoded.Data)
	if e != nil {
		result.Error = fmt.Sprint(e)
		return result
	}

	result.DataURIPath = outputStem + ".datauri.txt"
	e = writeFileAtomically(result.DataURIPath, []byte(encoded.DataURI()))
	if e != nil {
		result.Error = fmt.Sprint(e)
		return result
	}

	return result
}

// outputStems gives every input a unique output name without extension.
func outputStems(paths []string) []string {
	stems := make([]string, len(paths))
	used := make(map[string]bool, len(paths))
	next := make(map[string]int)
	for i, path := range paths {
		base := filepath.Base(path)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		candidate := stem
		for used[candidate] {
			next[stem] = max(next[stem], 1) + 1
			candidate = fmt.Sprintf("%s-%d", stem, next[stem])
		}
		used[candidate] = true
		stems[i] = candidate
	}
	return stems
}
