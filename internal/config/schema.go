package config

// Config holds chartgroup configuration.
type Config struct {
	DocRouter DocRouterCfg `mapstructure:"docrouter" yaml:"docrouter"`
	Defaults  DefaultsCfg  `mapstructure:"defaults" yaml:"defaults"`
}

// DocRouterCfg configures the DocRouter API connection.
type DocRouterCfg struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	OrgID   string `mapstructure:"org_id" yaml:"org_id"`
	// APIToken supports ${ENV_VAR} syntax.
	APIToken       string `mapstructure:"api_token" yaml:"api_token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// DefaultsCfg specifies pipeline defaults.
type DefaultsCfg struct {
	TagName             string `mapstructure:"tag_name" yaml:"tag_name"`
	PromptName          string `mapstructure:"prompt_name" yaml:"prompt_name"`
	InsuranceTagName    string `mapstructure:"insurance_tag_name" yaml:"insurance_tag_name"`
	InsurancePromptName string `mapstructure:"insurance_prompt_name" yaml:"insurance_prompt_name"`
	MaxRetries          int    `mapstructure:"max_retries" yaml:"max_retries"`
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	MaxWaitSeconds      int    `mapstructure:"max_wait_seconds" yaml:"max_wait_seconds"`
	// DayFirstDates resolves ambiguous numeric dates like 03/04/2020 as
	// day-first instead of month-first.
	DayFirstDates bool `mapstructure:"day_first_dates" yaml:"day_first_dates"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DocRouter: DocRouterCfg{
			BaseURL:        "http://localhost:8000",
			APIToken:       "${DOCROUTER_API_TOKEN}",
			TimeoutSeconds: 30,
		},
		Defaults: DefaultsCfg{
			TagName:             "anesthesia_bundle",
			PromptName:          "anesthesia_bundle_page_classifier",
			InsuranceTagName:    "insurance_card",
			InsurancePromptName: "insurance_card",
			MaxRetries:          2,
			PollIntervalSeconds: 5,
			MaxWaitSeconds:      600,
			DayFirstDates:       false,
		},
	}
}
