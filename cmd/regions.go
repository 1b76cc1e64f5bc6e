package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"memcarve/internal/manifest"
	"memcarve/internal/tui"
)

var regionsOffsets []string

var regionsCmd = &cobra.Command{
	Use:   "regions [flags] <manifest>",
	Short: "Print the capture ranges already recovered as files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manifest.Load(args[0])
		if err != nil {
			return err
		}
		regions := manifest.NewRegions(m.Entries)

		if len(regionsOffsets) > 0 {
			for _, raw := range regionsOffsets {
				off, err := strconv.ParseInt(raw, 0, 64)
				if err != nil {
					return fmt.Errorf("bad offset %q: %w", raw, err)
				}
				state := "free"
				if regions.Contains(off) {
					state = "carved"
				}
				fmt.Fprintf(os.Stdout, "0x%08X %s\n", off, state)
			}
			return nil
		}

		for _, r := range regions.Spans() {
			fmt.Fprintf(os.Stdout, "0x%08X-0x%08X %s\n", r.Start, r.End, scanDimStyle.Render(humanize.IBytes(uint64(r.Len()))))
		}
		fmt.Fprintln(os.Stdout, tui.RenderSummary([]tui.SummaryRow{
			{Label: "Regions", Value: humanize.Comma(int64(len(regions.Spans())))},
			{Label: "Bytes covered", Value: humanize.IBytes(uint64(regions.Covered()))},
		}))
		return nil
	},
}

func init() {
	regionsCmd.Flags().StringSliceVar(&regionsOffsets, "offset", nil, "report whether these offsets are covered (decimal or 0x hex)")

	rootCmd.AddCommand(regionsCmd)
}
