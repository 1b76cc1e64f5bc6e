package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"memcarve/internal/config"
)

var (
	configPath string
	verbose    bool

	flagOutput   string
	flagTypes    []string
	flagChunkMiB int64
	flagOverlap  int64
	flagMaxFiles int
	flagWorkers  int

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "memcarve",
	Short: "memcarve - recover embedded files from console memory captures",
	Long: "memcarve scans raw memory captures for known file signatures (textures, audio, models,\n" +
		"scripts, compressed streams, executables) and writes every recoverable instance to disk\n" +
		"together with a JSON manifest of what was found and where.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		applyFlags(cmd, loaded)
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = loaded

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return nil
	},
}

// applyFlags lets explicitly set flags override file and default values.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		c.Output = flagOutput
	}
	if flags.Changed("types") {
		c.Types = flagTypes
	}
	if flags.Changed("chunk-size") {
		c.WindowSize = config.Size(flagChunkMiB << 20)
	}
	if flags.Changed("overlap") {
		c.Overlap = config.Size(flagOverlap)
	}
	if flags.Changed("max-files") {
		c.MaxPerType = flagMaxFiles
	}
	if flags.Changed("workers") {
		c.Workers = flagWorkers
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "YAML config file (default $"+config.EnvVar+")")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log every carved file")
	flags.StringVarP(&flagOutput, "output", "o", "./output", "output root directory")
	flags.StringSliceVarP(&flagTypes, "types", "t", nil, "format identifiers to carve (default all)")
	flags.Int64Var(&flagChunkMiB, "chunk-size", 10, "scan window size in MiB")
	flags.Int64Var(&flagOverlap, "overlap", 2048, "bytes shared between adjacent windows")
	flags.IntVar(&flagMaxFiles, "max-files", 10000, "maximum files recovered per type")
	flags.IntVarP(&flagWorkers, "workers", "w", 1, "concurrent oracle evaluations per window (0 = one per CPU)")
}
