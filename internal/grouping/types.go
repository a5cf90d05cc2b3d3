package grouping

import (
	"sort"
	"strings"
)

// PageRecord is one scanned page plus its classification payload. Input is
// never mutated by the pipeline.
type PageRecord struct {
	PageNum int
	Payload *Fields
}

// Identity is the normalized identity signal extracted from one page.
// Names and DOB are trimmed and lowercased; MRN keeps its original case.
// DOB is in canonical YYYY_MM_DD form, empty when absent or unparseable.
type Identity struct {
	First string
	Last  string
	DOB   string
	MRN   string
}

func (id Identity) hasName() bool {
	return id.First != "" || id.Last != ""
}

func (id Identity) empty() bool {
	return id.First == "" && id.Last == "" && id.DOB == "" && id.MRN == ""
}

// Key derives the group display key from the identity: name parts and DOB
// joined by underscore when a name is present, otherwise an mrn_ or dob_
// prefixed key. Empty when the identity carries nothing to group by.
// The key is display-only; matching always uses the structured fields.
func (id Identity) Key() string {
	if id.hasName() {
		parts := make([]string, 0, 3)
		if id.First != "" {
			parts = append(parts, id.First)
		}
		if id.Last != "" {
			parts = append(parts, id.Last)
		}
		if id.DOB != "" {
			parts = append(parts, id.DOB)
		}
		return strings.Join(parts, "_")
	}
	if id.MRN != "" {
		return "mrn_" + id.MRN
	}
	if id.DOB != "" {
		return "dob_" + id.DOB
	}
	return ""
}

// PatientGroup is a set of pages attributed to one inferred patient.
// The structured identity fields are carried alongside the display key so
// later passes never have to parse the key back apart.
type PatientGroup struct {
	Key     string              `json:"-"`
	First   string              `json:"-"`
	Last    string              `json:"-"`
	DOB     string              `json:"-"`
	MRNSeen map[string]struct{} `json:"-"`
	Pages   []int               `json:"pages"`
}

func newGroup(key string, id Identity) *PatientGroup {
	return &PatientGroup{
		Key:     key,
		First:   id.First,
		Last:    id.Last,
		DOB:     id.DOB,
		MRNSeen: make(map[string]struct{}),
	}
}

// addPage inserts a page number keeping Pages sorted and free of duplicates.
func (g *PatientGroup) addPage(n int) {
	i := sort.SearchInts(g.Pages, n)
	if i < len(g.Pages) && g.Pages[i] == n {
		return
	}
	g.Pages = append(g.Pages, 0)
	copy(g.Pages[i+1:], g.Pages[i:])
	g.Pages[i] = n
}

func (g *PatientGroup) noteMRN(mrn string) {
	if mrn == "" {
		return
	}
	g.MRNSeen[mrn] = struct{}{}
}

func (g *PatientGroup) hasMRN(mrn string) bool {
	_, ok := g.MRNSeen[mrn]
	return ok
}

// fillDOB records a DOB on a group that does not have one yet.
func (g *PatientGroup) fillDOB(dob string) {
	if g.DOB == "" && dob != "" {
		g.DOB = dob
	}
}

// name is the string the fuzzy merge pass compares: the name parts when the
// group was created from a name, otherwise the whole key (mrn_/dob_ groups).
func (g *PatientGroup) name() string {
	if g.First == "" && g.Last == "" {
		return g.Key
	}
	parts := make([]string, 0, 2)
	if g.First != "" {
		parts = append(parts, g.First)
	}
	if g.Last != "" {
		parts = append(parts, g.Last)
	}
	return strings.Join(parts, "_")
}

// Result is the grouping output: schedule pages sorted ascending and patient
// groups keyed by their display key, each with sorted pages. Dropped lists
// pages that carried no identity signal; it is informational and not part of
// the serialized output.
type Result struct {
	SurgerySchedule []int                    `json:"surgery_schedule"`
	Patients        map[string]*PatientGroup `json:"patients"`
	Dropped         []int                    `json:"-"`
}

// groupSet is an insertion-ordered collection of patient groups. Match and
// merge passes iterate groups in creation order, and output depends on that
// order, so it is kept explicit.
type groupSet struct {
	order []string
	byKey map[string]*PatientGroup
}

func newGroupSet() *groupSet {
	return &groupSet{byKey: make(map[string]*PatientGroup)}
}

func (s *groupSet) get(key string) *PatientGroup {
	return s.byKey[key]
}

func (s *groupSet) add(g *PatientGroup) {
	if _, ok := s.byKey[g.Key]; !ok {
		s.order = append(s.order, g.Key)
	}
	s.byKey[g.Key] = g
}

func (s *groupSet) remove(key string) {
	if _, ok := s.byKey[key]; !ok {
		return
	}
	delete(s.byKey, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// keys returns a snapshot of the current keys in insertion order.
func (s *groupSet) keys() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// groups returns the live groups in insertion order.
func (s *groupSet) groups() []*PatientGroup {
	out := make([]*PatientGroup, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.byKey[k])
	}
	return out
}
