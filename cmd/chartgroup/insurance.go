package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/surgidocs/chartgroup/internal/cli"
	"github.com/surgidocs/chartgroup/internal/home"
)

var insuranceKeepPDFs bool

var insuranceCmd = &cobra.Command{
	Use:   "insurance <bundle.pdf>",
	Short: "Run the full pipeline with insurance card extraction",
	Long: `Classify and group a PDF bundle, then assemble each patient's pages
into a standalone PDF and extract their insurance card details.

If the insurance tag or prompt is not configured on the DocRouter side,
the grouped results are printed without card data.

Examples:
  chartgroup insurance bundle.pdf
  chartgroup insurance bundle.pdf --org org-123`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var pdfOutDir string
		if insuranceKeepPDFs {
			h, err := home.New(homeDir)
			if err != nil {
				return err
			}
			if err := h.EnsureExists(); err != nil {
				return err
			}
			pdfOutDir = h.BundleExportsDir(filepath.Base(args[0]))
		}

		pipeline, err := newPipeline(newLogger(), pdfOutDir)
		if err != nil {
			return err
		}
		grouped, err := pipeline.ClassifyGroupAndExtractInsurance(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return cli.Output(grouped)
	},
}

func init() {
	insuranceCmd.Flags().StringVar(&flagOrgID, "org", "", "DocRouter organization ID (overrides config)")
	insuranceCmd.Flags().StringVar(&flagTagName, "tag", "", "tag applied to uploaded pages (overrides config)")
	insuranceCmd.Flags().StringVar(&flagPromptName, "prompt", "", "classification prompt name (overrides config)")
	insuranceCmd.Flags().IntVar(&flagMaxRetries, "max-retries", 0, "max reruns per failed page (overrides config)")
	insuranceCmd.Flags().BoolVar(&insuranceKeepPDFs, "keep-pdfs", false, "keep assembled per-patient PDFs under the chartgroup home exports dir")

	rootCmd.AddCommand(insuranceCmd)
}
