package grouping

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// canonicalDOBLayout is the fixed output form for normalized dates of birth.
const canonicalDOBLayout = "2006_01_02"

// dobLayouts is the ordered list of strict formats tried before falling back
// to the permissive parser. Order matters: an ambiguous value like 03/04/2020
// resolves as month/day because the US layout comes first.
var dobLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
	"01-02-2006",
	"02-01-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"20060102",
}

// dobLayoutsDayFirst is the same list with the ambiguous slash and dash
// layouts swapped to day/month order, for documents from day-first locales.
var dobLayoutsDayFirst = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
	"02-01-2006",
	"01-02-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"20060102",
}

// NormalizeDOB parses a free-text date of birth into the canonical
// YYYY_MM_DD form. It tries the strict layout list first, then a permissive
// natural-language parse. dayFirst controls how ambiguous numeric dates are
// resolved. Returns false when the text cannot be parsed at all; an
// unparseable date of birth is treated as absent, never as an error.
func NormalizeDOB(raw string, dayFirst bool) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	layouts := dobLayouts
	if dayFirst {
		layouts = dobLayoutsDayFirst
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(canonicalDOBLayout), true
		}
	}

	t, err := dateparse.ParseAny(s, dateparse.PreferMonthFirst(!dayFirst))
	if err != nil {
		return "", false
	}
	return t.Format(canonicalDOBLayout), true
}
