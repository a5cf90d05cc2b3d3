// Package workflow drives the classify-then-group pipeline: split a PDF
// bundle into pages, classify each page through DocRouter, group the results
// per patient, and optionally extract insurance card details per patient.
package workflow

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/surgidocs/chartgroup/internal/docrouter"
	"github.com/surgidocs/chartgroup/internal/grouping"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultTagName             = "anesthesia_bundle"
	DefaultPromptName          = "anesthesia_bundle_page_classifier"
	DefaultInsuranceTagName    = "insurance_card"
	DefaultInsurancePromptName = "insurance_card"
	DefaultMaxRetries          = 2
	DefaultPollInterval        = 5 * time.Second
	DefaultMaxWait             = 10 * time.Minute
)

// Config configures a Pipeline.
type Config struct {
	Client *docrouter.Client

	// TagName and PromptName drive the per-page classification pass.
	TagName    string
	PromptName string

	// InsuranceTagName and InsurancePromptName drive the per-patient
	// insurance card extraction pass.
	InsuranceTagName    string
	InsurancePromptName string

	// MaxRetries bounds reruns after a failed OCR or LLM pass per document.
	MaxRetries int

	// PollInterval is the delay between document state checks; MaxWait
	// bounds the total time spent waiting on a single document.
	PollInterval time.Duration
	MaxWait      time.Duration

	// DayFirst resolves ambiguous numeric dates as day-first.
	DayFirst bool

	// PDFOutDir, when set, keeps assembled per-patient PDFs there instead
	// of a throwaway temp dir.
	PDFOutDir string

	Logger *slog.Logger
}

// Pipeline runs classification and grouping against a DocRouter deployment.
type Pipeline struct {
	cfg Config
	log *slog.Logger
}

// New creates a Pipeline, applying defaults for unset options.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("docrouter client is required")
	}
	if cfg.TagName == "" {
		cfg.TagName = DefaultTagName
	}
	if cfg.PromptName == "" {
		cfg.PromptName = DefaultPromptName
	}
	if cfg.InsuranceTagName == "" {
		cfg.InsuranceTagName = DefaultInsuranceTagName
	}
	if cfg.InsurancePromptName == "" {
		cfg.InsurancePromptName = DefaultInsurancePromptName
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = DefaultMaxWait
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{cfg: cfg, log: log.With("component", "workflow")}, nil
}

// PatientBundle is one patient's share of a grouped bundle.
type PatientBundle struct {
	Pages         []int            `json:"pages" yaml:"pages"`
	InsuranceCard *grouping.Fields `json:"patient_insurance_card,omitempty" yaml:"patient_insurance_card,omitempty"`
}

// GroupedBundle is the full pipeline output for one PDF bundle.
type GroupedBundle struct {
	FileName        string                    `json:"file_name" yaml:"file_name"`
	Pages           []*grouping.Fields        `json:"pages" yaml:"pages"`
	SurgerySchedule []int                     `json:"surgery_schedule" yaml:"surgery_schedule"`
	Patients        map[string]*PatientBundle `json:"patients" yaml:"patients"`
}

// envelopePage wraps a classification payload in the stored page format.
func envelopePage(pageNum int, promptName string, payload *grouping.Fields) *grouping.Fields {
	f := grouping.NewFields()
	f.Set("page_num", json.Number(strconv.Itoa(pageNum)))
	f.Set(promptName, payload)
	return f
}

// group runs the grouping stage over classified envelope pages and shapes the
// result for output.
func (p *Pipeline) group(fileName string, pages []*grouping.Fields) (*GroupedBundle, error) {
	return GroupEnvelope(&grouping.Envelope{FileName: fileName, Pages: pages}, p.cfg.PromptName, grouping.Options{
		DayFirst: p.cfg.DayFirst,
		Logger:   p.log,
	})
}

// GroupEnvelope groups an already-classified envelope. It needs no DocRouter
// connection, so saved classification results can be regrouped offline.
func GroupEnvelope(env *grouping.Envelope, promptName string, opts grouping.Options) (*GroupedBundle, error) {
	records, err := env.PageRecords(promptName)
	if err != nil {
		return nil, err
	}
	res, err := grouping.Group(records, opts)
	if err != nil {
		return nil, err
	}

	patients := make(map[string]*PatientBundle, len(res.Patients))
	for key, grp := range res.Patients {
		patients[key] = &PatientBundle{Pages: grp.Pages}
	}
	return &GroupedBundle{
		FileName:        env.FileName,
		Pages:           env.Pages,
		SurgerySchedule: res.SurgerySchedule,
		Patients:        patients,
	}, nil
}
