package grouping

import (
	"encoding/json"
	"fmt"
)

// Envelope mirrors the JSON document produced by the classify pipeline: a
// file name plus one entry per page, each holding page_num and the
// classification payload under the prompt name it was produced with.
type Envelope struct {
	FileName string    `json:"file_name,omitempty"`
	Pages    []*Fields `json:"pages"`
}

// ParseEnvelope decodes saved classification results and extracts the page
// records for grouping. promptName is the caller-supplied key the payload is
// stored under; it is not fixed by the format.
func ParseEnvelope(data []byte, promptName string) ([]PageRecord, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parsing classification results: %w", err)
	}
	return env.PageRecords(promptName)
}

// PageRecords extracts grouping input from the envelope, failing fast on
// structurally malformed pages.
func (e *Envelope) PageRecords(promptName string) ([]PageRecord, error) {
	records := make([]PageRecord, 0, len(e.Pages))
	for i, page := range e.Pages {
		if page == nil {
			return nil, fmt.Errorf("page entry %d: %w", i, ErrMalformedPayload)
		}
		numVal, ok := page.Get("page_num")
		if !ok {
			return nil, fmt.Errorf("page entry %d: missing page_num: %w", i, ErrMalformedPayload)
		}
		num, err := intValue(numVal)
		if err != nil {
			return nil, fmt.Errorf("page entry %d: page_num: %w", i, err)
		}
		payloadVal, ok := page.Get(promptName)
		if !ok {
			return nil, fmt.Errorf("page %d: missing %q payload: %w", num, promptName, ErrMalformedPayload)
		}
		payload, ok := payloadVal.(*Fields)
		if !ok {
			return nil, fmt.Errorf("page %d: %q payload is not an object: %w", num, promptName, ErrMalformedPayload)
		}
		records = append(records, PageRecord{PageNum: num, Payload: payload})
	}
	return records, nil
}

func intValue(v any) (int, error) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("expected number, got %T: %w", v, ErrMalformedPayload)
	}
	n, err := num.Int64()
	if err != nil {
		return 0, fmt.Errorf("expected integer, got %s: %w", num, ErrMalformedPayload)
	}
	return int(n), nil
}
