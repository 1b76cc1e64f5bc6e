package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"memcarve/internal/carver"
	"memcarve/internal/manifest"
	"memcarve/internal/tui"
)

const captureExt = ".dmp"

var carveNoProgress bool

var carveCmd = &cobra.Command{
	Use:   "carve [flags] <capture|dir>",
	Short: "Recover embedded files from a capture, or from every capture in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		captures, err := findCaptures(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		for i, path := range captures {
			if i > 0 {
				fmt.Fprintln(os.Stdout)
			}
			outputDir := filepath.Join(cfg.Output, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
			summary, err := carveCapture(ctx, path, outputDir)
			if errors.Is(err, context.Canceled) {
				fmt.Fprintf(os.Stdout, "Interrupted; partial manifest saved to %s\n", summary.ManifestPath)
				return nil
			}
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			printCarveSummary(path, outputDir, summary)
		}
		return nil
	},
}

// findCaptures returns path itself when it is a file, or every capture file
// directly inside it when it is a directory.
func findCaptures(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var captures []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), captureExt) {
			captures = append(captures, filepath.Join(path, e.Name()))
		}
	}
	if len(captures) == 0 {
		return nil, fmt.Errorf("no %s files in %s", captureExt, path)
	}
	sort.Strings(captures)
	return captures, nil
}

func carveCapture(ctx context.Context, path, outputDir string) (carver.Summary, error) {
	opts := cfg.Options(carver.ModeCarve, outputDir)
	opts.Logger = logger

	if carveNoProgress {
		summary, _, err := carver.Run(ctx, path, opts, nil)
		return summary, err
	}

	// Below warning level the log lines would tear through the progress view.
	if !verbose {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan carver.ProgressUpdate, 64)
	// The terminal is in raw mode while the view runs, so Ctrl+C reaches the
	// model as a key press; the model cancels ctx itself.
	program := tea.NewProgram(tui.NewModel(filepath.Base(path), updates, cancel), tea.WithoutSignalHandler())

	uiDone := make(chan struct{})
	go func() {
		defer close(uiDone)
		if _, err := program.Run(); err != nil {
			logger.Warn("progress display failed", "error", err)
		}
		// If the view ended early, stop the carve and keep it from blocking
		// on a full channel.
		cancel()
		for range updates {
		}
	}()

	summary, _, err := carver.Run(ctx, path, opts, updates)
	close(updates)
	<-uiDone
	return summary, err
}

func printCarveSummary(path, outputDir string, s carver.Summary) {
	rows := []tui.SummaryRow{
		{Label: "Capture", Value: filepath.Base(path)},
		{Label: "Capture size", Value: humanize.IBytes(uint64(s.CaptureBytes))},
		{Label: "Files recovered", Value: humanize.Comma(int64(s.Files))},
		{Label: "Bytes in capture", Value: humanize.IBytes(uint64(s.BytesInDump))},
		{Label: "Bytes written", Value: humanize.IBytes(uint64(s.BytesOutput))},
		{Label: "Duplicates skipped", Value: humanize.Comma(int64(s.Duplicates))},
		{Label: "Errors", Value: humanize.Comma(int64(s.Errors))},
	}
	fmt.Fprintln(os.Stdout, tui.RenderSummary(rows))
	if s.Files > 0 {
		fmt.Fprintln(os.Stdout, tui.RenderTypeTable(manifest.Summary{
			TotalFiles:       s.Files,
			TotalBytesInDump: s.BytesInDump,
			TotalBytesOutput: s.BytesOutput,
			ByType:           s.ByType,
		}))
	}

	outPath := outputDir
	if abs, err := filepath.Abs(outputDir); err == nil {
		outPath = abs
	}
	fmt.Fprintf(os.Stdout, "Recovered files written to: %s\n", outPath)
}

func init() {
	carveCmd.Flags().BoolVar(&carveNoProgress, "no-progress", false, "disable the progress display")

	rootCmd.AddCommand(carveCmd)
}
