package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/surgidocs/chartgroup/internal/cli"
	"github.com/surgidocs/chartgroup/internal/config"
	"github.com/surgidocs/chartgroup/internal/docrouter"
)

var (
	documentsSkip  int
	documentsLimit int
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List documents in the DocRouter organization",
	Long: `List uploaded documents and their processing states.

Examples:
  chartgroup documents
  chartgroup documents --skip 20 --limit 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		orgID := cfg.DocRouter.OrgID
		if flagOrgID != "" {
			orgID = flagOrgID
		}
		client, err := docrouter.New(docrouter.Config{
			BaseURL:  cfg.DocRouter.BaseURL,
			OrgID:    orgID,
			APIToken: config.ResolveEnvVars(cfg.DocRouter.APIToken),
			Timeout:  time.Duration(cfg.DocRouter.TimeoutSeconds) * time.Second,
			Logger:   newLogger(),
		})
		if err != nil {
			return err
		}

		docs, err := client.ListDocuments(cmd.Context(), documentsSkip, documentsLimit)
		if err != nil {
			return err
		}
		return cli.Output(docs)
	},
}

func init() {
	documentsCmd.Flags().StringVar(&flagOrgID, "org", "", "DocRouter organization ID (overrides config)")
	documentsCmd.Flags().IntVar(&documentsSkip, "skip", 0, "number of documents to skip")
	documentsCmd.Flags().IntVar(&documentsLimit, "limit", 20, "maximum number of documents to return")

	rootCmd.AddCommand(documentsCmd)
}
