// Package grouping partitions per-page document-classification output into
// surgery-schedule pages and per-patient page groups. A patient is an
// identity inferred from noisy extracted fields (first name, last name, date
// of birth, MRN); there is no stable primary key, so grouping runs as a
// multi-pass record-linkage pipeline: primary classification, deferred
// matching, then fuzzy and card-adjacency merges. The pipeline is a pure
// function of its input: no I/O, no shared state, deterministic order.
package grouping

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// scheduleKeywords classify a page as a surgery schedule outright; this
// screen runs before identity extraction and wins over it.
var scheduleKeywords = []string{
	"surgery schedule",
	"schedule",
	"surgical schedule",
	"operating room",
	"or schedule",
}

// scheduleHints rescue pages with no identity signal that still look
// schedule-related instead of dropping them.
var scheduleHints = []string{"schedule", "surgery", "operating"}

// cardDocumentTypes are the document_type values treated as standalone
// insurance or ID cards by the adjacency merge pass.
var cardDocumentTypes = map[string]bool{
	"patient_insurance_card": true,
	"insurance_card":         true,
	"insurance card":         true,
	"id_card":                true,
	"id card":                true,
	"identification_card":    true,
}

// Options tune a grouping run.
type Options struct {
	// DayFirst resolves ambiguous numeric dates (03/04/2020) as day/month
	// instead of the default US month/day.
	DayFirst bool

	Logger *slog.Logger
}

// Group runs the full pipeline over the given pages and returns the
// partitioned result. It fails only on structurally malformed input (a page
// without an object payload); every other abnormal condition degrades to
// "no match / no data".
func Group(pages []PageRecord, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	g := &grouper{
		dayFirst:  opts.DayFirst,
		log:       log,
		schedule:  []int{},
		groups:    newGroupSet(),
		cardPages: make(map[int]bool),
	}

	for _, p := range pages {
		if p.Payload == nil {
			return nil, fmt.Errorf("page %d: %w", p.PageNum, ErrMalformedPayload)
		}
		g.classifyPage(p)
	}

	g.matchDeferred()
	g.mergeFuzzyNames()
	g.mergeCards()

	return g.result(), nil
}

// grouper holds the in-progress state of one pipeline run.
type grouper struct {
	dayFirst bool
	log      *slog.Logger

	schedule  []int
	groups    *groupSet
	deferred  []deferredPage
	dropped   []int
	cardPages map[int]bool
}

// deferredPage is a page with partial identity, held back until all fully
// identified pages have formed groups.
type deferredPage struct {
	page int
	id   Identity
}

// classifyPage decides the fate of one page: surgery schedule, direct group
// placement, deferred queue, or drop.
func (g *grouper) classifyPage(p PageRecord) {
	if p.Payload.Len() == 0 {
		g.dropPage(p.PageNum, "empty payload")
		return
	}

	text := payloadText(p.Payload)
	if containsAny(text, scheduleKeywords) {
		g.schedule = append(g.schedule, p.PageNum)
		return
	}

	if isCardPage(p.Payload) {
		g.cardPages[p.PageNum] = true
	}

	id, found := g.extractIdentity(p)
	if !found {
		if containsAny(text, scheduleHints) {
			g.schedule = append(g.schedule, p.PageNum)
		} else {
			g.dropPage(p.PageNum, "no identity signal")
		}
		return
	}

	if id.DOB != "" && id.hasName() {
		key := id.Key()
		grp := g.groups.get(key)
		if grp == nil {
			grp = newGroup(key, id)
			g.groups.add(grp)
		}
		grp.addPage(p.PageNum)
		grp.noteMRN(id.MRN)
		grp.fillDOB(id.DOB)
		return
	}

	g.deferred = append(g.deferred, deferredPage{page: p.PageNum, id: id})
}

// extractIdentity pulls the identity fields out of a page payload. found
// reports whether any raw identity field was present, even if (like an
// unparseable DOB) it did not survive normalization.
func (g *grouper) extractIdentity(p PageRecord) (Identity, bool) {
	var id Identity
	found := false

	if v := FindField(p.Payload, firstNameKeys); v != nil {
		id.First = strings.ToLower(strings.TrimSpace(valueText(v)))
		found = true
	}
	if v := FindField(p.Payload, lastNameKeys); v != nil {
		id.Last = strings.ToLower(strings.TrimSpace(valueText(v)))
		found = true
	}
	if v := FindField(p.Payload, mrnKeys); v != nil {
		id.MRN = strings.TrimSpace(valueText(v))
		found = true
	}
	if v := FindField(p.Payload, dobKeys); v != nil {
		found = true
		raw := valueText(v)
		dob, ok := NormalizeDOB(raw, g.dayFirst)
		if ok {
			id.DOB = dob
		} else {
			g.log.Warn("could not parse DOB", "page", p.PageNum, "value", raw)
		}
	}

	return id, found
}

func (g *grouper) dropPage(page int, reason string) {
	g.dropped = append(g.dropped, page)
	g.log.Debug("page dropped", "page", page, "reason", reason)
}

func (g *grouper) result() *Result {
	sort.Ints(g.schedule)
	patients := make(map[string]*PatientGroup, len(g.groups.order))
	for _, grp := range g.groups.groups() {
		patients[grp.Key] = grp
	}
	return &Result{
		SurgerySchedule: g.schedule,
		Patients:        patients,
		Dropped:         g.dropped,
	}
}

// payloadText renders a payload as lowercased text for keyword screening.
func payloadText(f *Fields) string {
	b, err := json.Marshal(f)
	if err != nil {
		return ""
	}
	return strings.ToLower(string(b))
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// isCardPage reports whether the payload's literal document_type field names
// an insurance or ID card.
func isCardPage(payload *Fields) bool {
	v := findLiteral(payload, "document_type")
	if v == nil {
		return false
	}
	return cardDocumentTypes[strings.ToLower(strings.TrimSpace(valueText(v)))]
}
