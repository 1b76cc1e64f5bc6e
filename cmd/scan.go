package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"memcarve/internal/carver"
	"memcarve/internal/manifest"
	"memcarve/internal/tui"
)

var scanCmd = &cobra.Command{
	Use:   "scan <capture>",
	Short: "List what a carve would recover without writing anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		opts := cfg.Options(carver.ModeScan, "")
		opts.Logger = logger

		_, records, err := carver.Run(ctx, args[0], opts, nil)
		if err != nil {
			return err
		}

		for _, rec := range records {
			line := fmt.Sprintf("  %s %s %s",
				scanOffsetStyle.Render(fmt.Sprintf("0x%08X", rec.Offset)),
				scanTypeStyle.Render(fmt.Sprintf("%-12s", rec.FormatIdentifier)),
				scanValueStyle.Render(rec.Filename))
			size := humanize.IBytes(uint64(rec.SizeOutput))
			if rec.IsCompressed {
				size = fmt.Sprintf("%s from %s", size, humanize.IBytes(uint64(rec.SizeInDump)))
			}
			fmt.Fprintf(os.Stdout, "%s %s\n", line, scanDimStyle.Render("("+size+")"))
		}
		if len(records) == 0 {
			fmt.Fprintf(os.Stdout, "  %s\n", scanDimStyle.Render("nothing found"))
			return nil
		}

		fmt.Fprintln(os.Stdout)
		fmt.Fprintln(os.Stdout, tui.RenderTypeTable(manifest.Summarize(records)))
		return nil
	},
}

var (
	scanOffsetStyle = lipgloss.NewStyle().Foreground(tui.ColorDim)
	scanTypeStyle   = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	scanValueStyle  = lipgloss.NewStyle().Foreground(tui.ColorInk)
	scanDimStyle    = lipgloss.NewStyle().Foreground(tui.ColorDim)
)

func init() {
	rootCmd.AddCommand(scanCmd)
}
