package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/surgidocs/chartgroup/internal/bundle"
	"github.com/surgidocs/chartgroup/internal/docrouter"
	"github.com/surgidocs/chartgroup/internal/grouping"
)

// Classify splits pdfPath into pages and classifies each page, returning
// the classification envelope in page order.
func (p *Pipeline) Classify(ctx context.Context, pdfPath string) (*grouping.Envelope, error) {
	workDir, err := os.MkdirTemp("", "chartgroup-split-")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	pages, err := bundle.Split(pdfPath, workDir)
	if err != nil {
		return nil, err
	}

	envelope, err := p.classifyPages(ctx, pages)
	if err != nil {
		return nil, err
	}
	return &grouping.Envelope{FileName: filepath.Base(pdfPath), Pages: envelope}, nil
}

// ClassifyAndGroup classifies every page of pdfPath and groups the results
// into surgery-schedule pages and per-patient bundles.
func (p *Pipeline) ClassifyAndGroup(ctx context.Context, pdfPath string) (*GroupedBundle, error) {
	env, err := p.Classify(ctx, pdfPath)
	if err != nil {
		return nil, err
	}
	return p.group(env.FileName, env.Pages)
}

// classifyPages uploads each single-page PDF, waits for classification, and
// returns envelope pages in page order. Pages whose classification cannot be
// obtained get an empty payload so grouping can drop them.
func (p *Pipeline) classifyPages(ctx context.Context, pages []bundle.Page) ([]*grouping.Fields, error) {
	tagID, err := p.cfg.Client.TagID(ctx, p.cfg.TagName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tag %q: %w", p.cfg.TagName, err)
	}
	revID, err := p.cfg.Client.PromptRevisionID(ctx, p.cfg.PromptName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve prompt %q: %w", p.cfg.PromptName, err)
	}

	// Prefix upload names with a run ID so repeated runs of the same bundle
	// stay distinguishable server-side.
	runID := uuid.NewString()

	envelope := make([]*grouping.Fields, 0, len(pages))
	for _, pg := range pages {
		data, err := os.ReadFile(pg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", pg.Number, err)
		}
		name := runID + "-" + pg.Name
		docID, err := p.cfg.Client.UploadDocument(ctx, name, data, []string{tagID})
		if err != nil {
			return nil, fmt.Errorf("failed to upload page %d: %w", pg.Number, err)
		}
		p.log.Info("uploaded page", "page", pg.Number, "document_id", docID)

		reupload := func(ctx context.Context) (string, error) {
			return p.cfg.Client.UploadDocument(ctx, name, data, []string{tagID})
		}
		payload, err := p.awaitResult(ctx, docID, revID, reupload)
		if err != nil {
			return nil, err
		}
		envelope = append(envelope, envelopePage(pg.Number, p.cfg.PromptName, payload))
	}
	return envelope, nil
}

// awaitResult polls a document until its prompt run completes, rerunning
// failed passes up to MaxRetries times. A failed LLM pass is rerun in place;
// a failed OCR pass deletes the document and reuploads it via the supplied
// closure. Exhausted retries or MaxWait return an empty payload rather than
// an error so one bad page cannot sink a whole bundle.
func (p *Pipeline) awaitResult(ctx context.Context, docID, revID string, reupload func(context.Context) (string, error)) (*grouping.Fields, error) {
	deadline := time.Now().Add(p.cfg.MaxWait)
	retries := 0

	for {
		state, err := p.cfg.Client.DocumentState(ctx, docID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.log.Warn("giving up on document", "document_id", docID, "error", err)
			return grouping.NewFields(), nil
		}

		switch state {
		case docrouter.StateLLMCompleted:
			return p.fetchResult(ctx, docID, revID)

		case docrouter.StateLLMFailed:
			retries++
			if retries > p.cfg.MaxRetries {
				p.log.Warn("llm retries exhausted", "document_id", docID)
				return grouping.NewFields(), nil
			}
			p.log.Info("rerunning failed prompt", "document_id", docID, "attempt", retries)
			if err := p.cfg.Client.RunPrompt(ctx, docID, revID, true); err != nil {
				p.log.Warn("failed to rerun prompt", "document_id", docID, "error", err)
				return grouping.NewFields(), nil
			}

		case docrouter.StateOCRFailed:
			retries++
			if retries > p.cfg.MaxRetries {
				p.log.Warn("ocr retries exhausted", "document_id", docID)
				return grouping.NewFields(), nil
			}
			p.log.Info("reuploading document after ocr failure", "document_id", docID, "attempt", retries)
			if err := p.cfg.Client.DeleteDocument(ctx, docID); err != nil {
				p.log.Warn("failed to delete document", "document_id", docID, "error", err)
			}
			newID, err := reupload(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				p.log.Warn("failed to reupload document", "document_id", docID, "error", err)
				return grouping.NewFields(), nil
			}
			docID = newID
		}

		if time.Now().After(deadline) {
			p.log.Warn("timed out waiting for document", "document_id", docID, "state", state)
			return grouping.NewFields(), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.cfg.PollInterval):
		}
	}
}

// fetchResult retrieves and decodes a completed prompt run.
func (p *Pipeline) fetchResult(ctx context.Context, docID, revID string) (*grouping.Fields, error) {
	res, err := p.cfg.Client.LLMResult(ctx, docID, revID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, docrouter.ErrNotFound) {
			p.log.Warn("failed to fetch llm result", "document_id", docID, "error", err)
		}
		return grouping.NewFields(), nil
	}
	payload := grouping.NewFields()
	if len(res.UpdatedLLMResult) > 0 {
		if err := json.Unmarshal(res.UpdatedLLMResult, payload); err != nil {
			p.log.Warn("llm result is not an object", "document_id", docID, "error", err)
			return grouping.NewFields(), nil
		}
	}
	return payload, nil
}
