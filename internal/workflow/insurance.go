package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/surgidocs/chartgroup/internal/bundle"
)

// ClassifyGroupAndExtractInsurance runs the full pipeline and then extracts
// insurance card details for each patient from their assembled pages. When
// the insurance tag or prompt is not configured server-side the grouped
// result is returned without card data.
func (p *Pipeline) ClassifyGroupAndExtractInsurance(ctx context.Context, pdfPath string) (*GroupedBundle, error) {
	grouped, err := p.ClassifyAndGroup(ctx, pdfPath)
	if err != nil {
		return nil, err
	}
	if err := p.ExtractInsurance(ctx, pdfPath, grouped); err != nil {
		return nil, err
	}
	return grouped, nil
}

// ExtractInsurance assembles each patient's pages into a standalone PDF, runs
// the insurance card prompt against it, and attaches the extracted card to
// the patient's bundle.
func (p *Pipeline) ExtractInsurance(ctx context.Context, pdfPath string, grouped *GroupedBundle) error {
	tagID, err := p.cfg.Client.TagID(ctx, p.cfg.InsuranceTagName)
	if err != nil {
		p.log.Warn("insurance tag unavailable, skipping extraction", "tag", p.cfg.InsuranceTagName, "error", err)
		return nil
	}
	revID, err := p.cfg.Client.PromptRevisionID(ctx, p.cfg.InsurancePromptName)
	if err != nil {
		p.log.Warn("insurance prompt unavailable, skipping extraction", "prompt", p.cfg.InsurancePromptName, "error", err)
		return nil
	}

	workDir := p.cfg.PDFOutDir
	if workDir == "" {
		tmp, err := os.MkdirTemp("", "chartgroup-patients-")
		if err != nil {
			return fmt.Errorf("failed to create work dir: %w", err)
		}
		defer os.RemoveAll(tmp)
		workDir = tmp
	} else if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("failed to create pdf out dir: %w", err)
	}

	runID := uuid.NewString()

	keys := make([]string, 0, len(grouped.Patients))
	for key := range grouped.Patients {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		patient := grouped.Patients[key]
		dst := filepath.Join(workDir, key+".pdf")
		if err := bundle.Assemble(pdfPath, dst, patient.Pages); err != nil {
			return err
		}
		data, err := os.ReadFile(dst)
		if err != nil {
			return fmt.Errorf("failed to read patient pdf %s: %w", key, err)
		}

		name := runID + "-" + key + ".pdf"
		docID, err := p.cfg.Client.UploadDocument(ctx, name, data, []string{tagID})
		if err != nil {
			return fmt.Errorf("failed to upload patient pdf %s: %w", key, err)
		}
		p.log.Info("uploaded patient pdf", "patient", key, "document_id", docID)

		reupload := func(ctx context.Context) (string, error) {
			return p.cfg.Client.UploadDocument(ctx, name, data, []string{tagID})
		}
		card, err := p.awaitResult(ctx, docID, revID, reupload)
		if err != nil {
			return err
		}
		if card.Len() > 0 {
			patient.InsuranceCard = card
		}
	}
	return nil
}
