// Package download saves a committed source to disk with ffmpeg. ffmpeg runs
// with an explicit argument slice and the output path is checked against
// directory traversal.
package download

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"reel/internal/httputil"
	"reel/internal/log"
	"reel/internal/state"
)

// Download fetches src into outputDir as "<title>.mkv" and returns the path.
func Download(ctx context.Context, src state.Source, title, outputDir, subFile string) (string, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	outputPath, err := OutputPath(outputDir, title)
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, ffmpegPath, ffmpegArgs(src, title, subFile, outputPath)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	entry := log.With("download").WithField("output", outputPath)
	entry.Info("starting download")
	fmt.Fprintf(os.Stderr, "Downloading to: %s\n", outputPath)

	if err := cmd.Run(); err != nil {
		// Remove the partial file.
		os.Remove(outputPath)
		entry.WithError(err).Warn("download failed")
		return "", fmt.Errorf("ffmpeg download failed: %w", err)
	}
	return outputPath, nil
}

// OutputPath creates outputDir and returns the sanitized target file in it.
func OutputPath(outputDir, title string) (string, error) {
	absDir, err := filepath.Abs(outputDir)
	if err != nil {
		return "", fmt.Errorf("resolving output directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	outputPath, err := httputil.SafeDownloadPath(absDir, httputil.TitleFilename(title, ".mkv"))
	if err != nil {
		return "", fmt.Errorf("invalid output path: %w", err)
	}
	return outputPath, nil
}

func ffmpegArgs(src state.Source, title, subFile, outputPath string) []string {
	args := []string{"-y"}

	// -headers applies to the next input only.
	if len(src.Headers) > 0 {
		keys := make([]string, 0, len(src.Headers))
		for k := range src.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\r\n", k, src.Headers[k])
		}
		args = append(args, "-headers", b.String())
	}
	args = append(args, "-i", src.URL)

	if subFile != "" {
		args = append(args, "-i", subFile)
	}

	args = append(args, "-c:v", "copy", "-c:a", "copy")

	if subFile != "" {
		args = append(args,
			"-c:s", "srt",
			"-map", "0:v",
			"-map", "0:a",
			"-map", "1:s",
		)
	}

	return append(args, "-metadata", "title="+title, outputPath)
}
