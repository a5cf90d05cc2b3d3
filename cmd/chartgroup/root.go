package main

import (
	"github.com/spf13/cobra"

	"github.com/surgidocs/chartgroup/internal/cli"
	"github.com/surgidocs/chartgroup/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "chartgroup",
	Short: "Surgical chart bundle classification and patient grouping",
	Long: `Chartgroup splits scanned surgical chart bundles into pages, classifies
each page through DocRouter, and groups pages by patient.

The pipeline includes:
  - Per-page classification via tagged DocRouter prompts
  - Patient identity matching across name, MRN, and date of birth
  - Fuzzy-name reconciliation of OCR misreads
  - Insurance and ID card attachment by position and surname
  - Per-patient insurance card extraction from assembled PDFs`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.chartgroup/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "chartgroup home directory (default: ~/.chartgroup)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "json", "output format: json or yaml",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cli.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
