// Package cli provides the command-line interface for swatch.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmylchreest/swatch/internal/colour"
	"github.com/jmylchreest/swatch/internal/version"
)

// NewRootCmd builds the swatch command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "swatch",
		Short: "Sample exact colours from images and cameras",
		Long: `Swatch derives a precise colour value either by direct manipulation of a
hue/saturation/brightness picker or by sampling a single pixel from a camera
frame or image, with optional white-balance correction against a reference
point the user marks as white.

Run "swatch serve" for the interactive session server, or use "sample" and
"convert" directly from the shell.`,
		Version:      version.Short(),
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress non-error output")

	rootCmd.SetVersionTemplate(version.String() + "\n")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConvertCmd())
	rootCmd.AddCommand(newSampleCmd())
	rootCmd.AddCommand(newServeCmd())
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including build date, commit hash, and Go version.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// logLevel resolves the level selected by the global flags. fallback applies
// when neither flag is set.
func logLevel(cmd *cobra.Command, fallback hclog.Level) hclog.Level {
	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")
	switch {
	case verbose:
		return hclog.Debug
	case quiet:
		return hclog.Error
	case fallback != hclog.NoLevel:
		return fallback
	default:
		return hclog.Info
	}
}

// newLogger creates the application logger writing to the command's stderr.
func newLogger(cmd *cobra.Command, fallback hclog.Level) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "swatch",
		Level:  logLevel(cmd, fallback),
		Output: cmd.ErrOrStderr(),
		Color:  hclog.AutoColor,
	})
}

// isTerminal reports whether w is a terminal that accepts ANSI colour.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) && colour.SupportsANSIColours()
}
