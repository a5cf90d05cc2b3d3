package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/surgidocs/chartgroup/internal/cli"
	"github.com/surgidocs/chartgroup/internal/grouping"
	"github.com/surgidocs/chartgroup/internal/home"
)

var classifySave bool

var classifyCmd = &cobra.Command{
	Use:   "classify <bundle.pdf>",
	Short: "Classify and group every page of a PDF bundle",
	Long: `Split a PDF bundle into single pages, classify each page through
DocRouter, and group the pages into surgery-schedule pages and per-patient
sets.

The output includes the raw per-page classification envelope, so saved
output can be regrouped later with "chartgroup group".

Examples:
  chartgroup classify bundle.pdf
  chartgroup classify bundle.pdf --prompt my_classifier > results.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		pipeline, err := newPipeline(logger, "")
		if err != nil {
			return err
		}
		grouped, err := pipeline.ClassifyAndGroup(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if classifySave {
			h, err := home.New(homeDir)
			if err != nil {
				return err
			}
			if err := h.EnsureExists(); err != nil {
				return err
			}
			env := grouping.Envelope{FileName: grouped.FileName, Pages: grouped.Pages}
			data, err := json.MarshalIndent(env, "", "  ")
			if err != nil {
				return err
			}
			path := h.ResultPath(grouped.FileName)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			logger.Info("saved classification results", "path", path)
		}
		return cli.Output(grouped)
	},
}

func init() {
	classifyCmd.Flags().StringVar(&flagOrgID, "org", "", "DocRouter organization ID (overrides config)")
	classifyCmd.Flags().StringVar(&flagTagName, "tag", "", "tag applied to uploaded pages (overrides config)")
	classifyCmd.Flags().StringVar(&flagPromptName, "prompt", "", "classification prompt name (overrides config)")
	classifyCmd.Flags().IntVar(&flagMaxRetries, "max-retries", 0, "max reruns per failed page (overrides config)")
	classifyCmd.Flags().BoolVar(&classifySave, "save", false, "also save results under the chartgroup home results dir")

	rootCmd.AddCommand(classifyCmd)
}
