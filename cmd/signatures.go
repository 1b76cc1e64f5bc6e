package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"memcarve/internal/signature"
)

var signaturesCmd = &cobra.Command{
	Use:   "signatures",
	Short: "List the formats memcarve can recover",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, d := range signature.All() {
			fmt.Fprintf(os.Stdout, "%s %s\n",
				scanTypeStyle.Render(fmt.Sprintf("%-13s", d.ID)),
				scanValueStyle.Render(d.Description))
			fmt.Fprintf(os.Stdout, "    %s\n", scanDimStyle.Render(fmt.Sprintf("magic %q  ext %s  size %s..%s  dir %s/",
				d.Magic, d.Ext, humanize.IBytes(uint64(d.MinSize)), humanize.IBytes(uint64(d.MaxSize)), d.Dir())))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(signaturesCmd)
}
