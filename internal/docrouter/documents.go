package docrouter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Document is a document record as returned by the list and get endpoints.
type Document struct {
	ID       string   `json:"id"`
	Name     string   `json:"document_name"`
	State    string   `json:"state"`
	TagIDs   []string `json:"tag_ids,omitempty"`
	Uploaded string   `json:"upload_date,omitempty"`
}

type uploadRequest struct {
	Documents []uploadDocument `json:"documents"`
}

type uploadDocument struct {
	Name    string   `json:"name"`
	Content string   `json:"content"`
	TagIDs  []string `json:"tag_ids,omitempty"`
}

type uploadResponse struct {
	Documents []struct {
		DocumentID string `json:"document_id"`
	} `json:"documents"`
}

// UploadDocument uploads a PDF with the given tags and returns the new
// document ID. Content is sent base64-encoded as a data URL.
func (c *Client) UploadDocument(ctx context.Context, name string, pdf []byte, tagIDs []string) (string, error) {
	req := uploadRequest{Documents: []uploadDocument{{
		Name:    name,
		Content: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdf),
		TagIDs:  tagIDs,
	}}}

	var resp uploadResponse
	if err := c.doJSON(ctx, http.MethodPost, c.orgPath("documents"), nil, req, &resp); err != nil {
		return "", fmt.Errorf("failed to upload document %q: %w", name, err)
	}
	if len(resp.Documents) == 0 {
		return "", fmt.Errorf("upload of %q returned no documents", name)
	}
	return resp.Documents[0].DocumentID, nil
}

// DocumentState fetches the current lifecycle state of a document.
func (c *Client) DocumentState(ctx context.Context, documentID string) (string, error) {
	var resp struct {
		State string `json:"state"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.orgPath("documents", documentID), nil, nil, &resp); err != nil {
		return "", fmt.Errorf("failed to get document %s: %w", documentID, err)
	}
	return resp.State, nil
}

// DeleteDocument removes a document. The retry path deletes and reuploads
// documents whose OCR pass failed.
func (c *Client) DeleteDocument(ctx context.Context, documentID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, c.orgPath("documents", documentID), nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", documentID, err)
	}
	return nil
}

// ListDocuments returns a page of the organization's documents.
func (c *Client) ListDocuments(ctx context.Context, skip, limit int) ([]Document, error) {
	query := url.Values{
		"skip":  {strconv.Itoa(skip)},
		"limit": {strconv.Itoa(limit)},
	}
	var resp struct {
		Documents []Document `json:"documents"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.orgPath("documents"), query, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return resp.Documents, nil
}

// TagID resolves a tag name to its ID with a case-insensitive match.
func (c *Client) TagID(ctx context.Context, name string) (string, error) {
	query := url.Values{"name_search": {name}}
	var resp struct {
		Tags []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"tags"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.orgPath("tags"), query, nil, &resp); err != nil {
		return "", fmt.Errorf("failed to search tags: %w", err)
	}
	for _, tag := range resp.Tags {
		if strings.EqualFold(tag.Name, name) {
			return tag.ID, nil
		}
	}
	return "", fmt.Errorf("tag %q: %w", name, ErrNotFound)
}

// PromptRevisionID resolves a prompt name to its current revision ID with a
// case-insensitive match.
func (c *Client) PromptRevisionID(ctx context.Context, name string) (string, error) {
	query := url.Values{"name_search": {name}}
	var resp struct {
		Prompts []struct {
			Name        string `json:"name"`
			PromptRevID string `json:"prompt_revid"`
		} `json:"prompts"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.orgPath("prompts"), query, nil, &resp); err != nil {
		return "", fmt.Errorf("failed to search prompts: %w", err)
	}
	for _, prompt := range resp.Prompts {
		if strings.EqualFold(prompt.Name, name) {
			return prompt.PromptRevID, nil
		}
	}
	return "", fmt.Errorf("prompt %q: %w", name, ErrNotFound)
}

// RunPrompt triggers an LLM run of the given prompt revision against a
// document. With force set, a completed or failed run is re-executed.
func (c *Client) RunPrompt(ctx context.Context, documentID, promptRevID string, force bool) error {
	query := url.Values{
		"prompt_revid": {promptRevID},
		"force":        {strconv.FormatBool(force)},
	}
	if err := c.doJSON(ctx, http.MethodPost, c.orgPath("llm", "run", documentID), query, nil, nil); err != nil {
		return fmt.Errorf("failed to run prompt on document %s: %w", documentID, err)
	}
	return nil
}

// LLMResult holds the extraction result of a prompt run. UpdatedLLMResult is
// left raw so callers can decode it into their own payload types.
type LLMResult struct {
	UpdatedLLMResult json.RawMessage `json:"updated_llm_result"`
}

// LLMResult fetches the result of a prompt run against a document.
func (c *Client) LLMResult(ctx context.Context, documentID, promptRevID string) (*LLMResult, error) {
	query := url.Values{"prompt_revid": {promptRevID}}
	var resp LLMResult
	if err := c.doJSON(ctx, http.MethodGet, c.orgPath("llm", "result", documentID), query, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get llm result for document %s: %w", documentID, err)
	}
	return &resp, nil
}
