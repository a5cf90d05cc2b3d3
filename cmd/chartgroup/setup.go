package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/surgidocs/chartgroup/internal/config"
	"github.com/surgidocs/chartgroup/internal/docrouter"
	"github.com/surgidocs/chartgroup/internal/workflow"
)

// Flags shared by the commands that talk to DocRouter.
var (
	flagOrgID      string
	flagTagName    string
	flagPromptName string
	flagMaxRetries int
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func loadConfig() (*config.Config, error) {
	mgr, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, err
	}
	return mgr.Get(), nil
}

// newPipeline builds the workflow pipeline from config, applying any flag
// overrides. pdfOutDir, when non-empty, keeps assembled patient PDFs there.
func newPipeline(logger *slog.Logger, pdfOutDir string) (*workflow.Pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
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
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	wcfg := workflow.Config{
		Client:              client,
		TagName:             cfg.Defaults.TagName,
		PromptName:          cfg.Defaults.PromptName,
		InsuranceTagName:    cfg.Defaults.InsuranceTagName,
		InsurancePromptName: cfg.Defaults.InsurancePromptName,
		MaxRetries:          cfg.Defaults.MaxRetries,
		PollInterval:        time.Duration(cfg.Defaults.PollIntervalSeconds) * time.Second,
		MaxWait:             time.Duration(cfg.Defaults.MaxWaitSeconds) * time.Second,
		DayFirst:            cfg.Defaults.DayFirstDates,
		PDFOutDir:           pdfOutDir,
		Logger:              logger,
	}
	if flagTagName != "" {
		wcfg.TagName = flagTagName
	}
	if flagPromptName != "" {
		wcfg.PromptName = flagPromptName
	}
	if flagMaxRetries > 0 {
		wcfg.MaxRetries = flagMaxRetries
	}
	return workflow.New(wcfg)
}
