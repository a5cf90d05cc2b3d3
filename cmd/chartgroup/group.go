package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/surgidocs/chartgroup/internal/cli"
	"github.com/surgidocs/chartgroup/internal/grouping"
	"github.com/surgidocs/chartgroup/internal/workflow"
)

var (
	groupPromptName string
	groupDayFirst   bool
)

// groupOutput is the grouping without the echoed input pages.
type groupOutput struct {
	FileName        string                             `json:"file_name" yaml:"file_name"`
	SurgerySchedule []int                              `json:"surgery_schedule" yaml:"surgery_schedule"`
	Patients        map[string]*workflow.PatientBundle `json:"patients" yaml:"patients"`
}

var groupCmd = &cobra.Command{
	Use:   "group <results.json>",
	Short: "Group saved classification results by patient",
	Long: `Group a saved classification envelope into surgery-schedule pages and
per-patient page sets. No DocRouter connection is needed.

Examples:
  chartgroup group results.json
  chartgroup group results.json --day-first`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if err := grouping.ValidateEnvelope(data); err != nil {
			return err
		}
		var env grouping.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return err
		}

		promptName := groupPromptName
		if promptName == "" {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			promptName = cfg.Defaults.PromptName
		}

		grouped, err := workflow.GroupEnvelope(&env, promptName, grouping.Options{
			DayFirst: groupDayFirst,
			Logger:   newLogger(),
		})
		if err != nil {
			return err
		}
		return cli.Output(groupOutput{
			FileName:        grouped.FileName,
			SurgerySchedule: grouped.SurgerySchedule,
			Patients:        grouped.Patients,
		})
	},
}

func init() {
	groupCmd.Flags().StringVar(&groupPromptName, "prompt-name", "", "prompt name the payloads are stored under (overrides config)")
	groupCmd.Flags().BoolVar(&groupDayFirst, "day-first", false, "resolve ambiguous dates as day-first")

	rootCmd.AddCommand(groupCmd)
}
