package grouping

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Candidate key substrings per semantic field. Matching is containment over
// lowercased keys, so a payload key like "patient_first_name" matches the
// first-name set. Extraction output shapes vary per document, which is why
// these are substrings rather than exact names.
var (
	firstNameKeys = []string{"firstname", "first_name", "first name", "fname", "patient first name"}
	lastNameKeys  = []string{"lastname", "last_name", "last name", "lname", "patient last name", "surname"}
	dobKeys       = []string{"date of birth", "dob", "birthdate", "birth date", "date_of_birth", "birth_date"}
	mrnKeys       = []string{"mrn", "medical record number", "medical_record_number", "record number", "record_number"}
)

// FindField walks an arbitrarily nested payload depth-first looking for a key
// that contains one of the candidate substrings (case-insensitive). At each
// object all of the object's own keys are checked in stored order before any
// nested value is descended into; array elements are visited in order. The
// first match by this traversal wins. Returns nil when nothing matches.
//
// Plain map[string]any nodes are also accepted; their keys are visited in
// sorted order so results stay deterministic for callers that hand over
// regular decoded JSON.
func FindField(data any, candidates []string) any {
	switch v := data.(type) {
	case *Fields:
		for _, k := range v.Keys() {
			if keyMatches(k, candidates) {
				val, _ := v.Get(k)
				return val
			}
		}
		for _, k := range v.Keys() {
			val, _ := v.Get(k)
			if r := FindField(val, candidates); r != nil {
				return r
			}
		}
	case map[string]any:
		keys := sortedKeys(v)
		for _, k := range keys {
			if keyMatches(k, candidates) {
				return v[k]
			}
		}
		for _, k := range keys {
			if r := FindField(v[k], candidates); r != nil {
				return r
			}
		}
	case []any:
		for _, item := range v {
			if r := FindField(item, candidates); r != nil {
				return r
			}
		}
	}
	return nil
}

// findLiteral is like FindField but requires the lowercased key to equal name
// exactly. Used for fields that are part of the classification contract
// (e.g. document_type) rather than free-form extraction output.
func findLiteral(data any, name string) any {
	switch v := data.(type) {
	case *Fields:
		for _, k := range v.Keys() {
			if strings.ToLower(k) == name {
				val, _ := v.Get(k)
				return val
			}
		}
		for _, k := range v.Keys() {
			val, _ := v.Get(k)
			if r := findLiteral(val, name); r != nil {
				return r
			}
		}
	case map[string]any:
		keys := sortedKeys(v)
		for _, k := range keys {
			if strings.ToLower(k) == name {
				return v[k]
			}
		}
		for _, k := range keys {
			if r := findLiteral(v[k], name); r != nil {
				return r
			}
		}
	case []any:
		for _, item := range v {
			if r := findLiteral(item, name); r != nil {
				return r
			}
		}
	}
	return nil
}

func keyMatches(key string, candidates []string) bool {
	lower := strings.ToLower(key)
	for _, c := range candidates {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// valueText renders an extracted field value as text. Scalars render
// directly; anything structured falls back to its JSON form.
func valueText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
