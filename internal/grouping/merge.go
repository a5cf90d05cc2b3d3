package grouping

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxNameDistance is the largest edit distance at which a singleton group's
// name is still considered the same patient as another group's.
const maxNameDistance = 2

// Card-candidate match priorities, highest wins. Containment is definitive:
// a card whose page number falls strictly inside a group's page range can
// only belong to that group.
const (
	cardMatchNone = iota
	cardMatchSurname
	cardMatchAdjacent
	cardMatchContained
)

// mergeFuzzyNames merges singleton groups whose name is within
// maxNameDistance of another group's name. Singletons are collected once at
// pass start and evaluated once each; a singleton that has since absorbed
// pages (or been merged away) is skipped rather than re-evaluated, so the
// pass does not iterate to a fixed point. Candidates come from the live
// group set, not a pass-start snapshot: a singleton must never be directed
// into a group an earlier merge already removed.
func (g *grouper) mergeFuzzyNames() {
	for _, key := range g.groups.keys() {
		grp := g.groups.get(key)
		if grp == nil || len(grp.Pages) != 1 {
			continue
		}
		name := strings.ToLower(grp.name())

		var best *PatientGroup
		bestDist := maxNameDistance + 1
		for _, cand := range g.groups.groups() {
			if cand == grp {
				continue
			}
			d := levenshtein.ComputeDistance(name, strings.ToLower(cand.name()))
			if d < bestDist {
				bestDist = d
				best = cand
			}
		}
		if best != nil {
			g.log.Debug("merging singleton group by name similarity",
				"from", grp.Key, "into", best.Key, "distance", bestDist)
			g.mergeInto(best, grp)
		}
	}
}

// mergeCards merges singleton insurance/ID-card pages into a neighboring
// patient group. Candidates are groups without a card page of their own;
// the best match across all candidates wins, ties going to the first found.
func (g *grouper) mergeCards() {
	for _, key := range g.groups.keys() {
		grp := g.groups.get(key)
		if grp == nil || len(grp.Pages) != 1 || !g.cardPages[grp.Pages[0]] {
			continue
		}
		page := grp.Pages[0]

		var best *PatientGroup
		bestMatch := cardMatchNone
		for _, cand := range g.groups.groups() {
			if cand == grp || g.hasCardPage(cand) {
				continue
			}
			m := cardMatch(page, grp, cand)
			if m == cardMatchContained {
				best, bestMatch = cand, m
				break
			}
			if m > bestMatch {
				best, bestMatch = cand, m
			}
		}
		if best != nil && bestMatch > cardMatchNone {
			g.log.Debug("merging standalone card page",
				"page", page, "into", best.Key, "match", bestMatch)
			g.mergeInto(best, grp)
		}
	}
}

// cardMatch scores how well a standalone card page fits a candidate group:
// page strictly inside the group's page range, directly adjacent to it, or
// sharing a surname.
func cardMatch(page int, card, cand *PatientGroup) int {
	lo := cand.Pages[0]
	hi := cand.Pages[len(cand.Pages)-1]
	if page > lo && page < hi {
		return cardMatchContained
	}
	if page == lo-1 || page == hi+1 {
		return cardMatchAdjacent
	}
	if card.Last != "" && card.Last == cand.Last {
		return cardMatchSurname
	}
	return cardMatchNone
}

func (g *grouper) hasCardPage(grp *PatientGroup) bool {
	for _, p := range grp.Pages {
		if g.cardPages[p] {
			return true
		}
	}
	return false
}

// mergeInto moves src's membership into dst and deletes src. Pages are moved,
// never copied: after the merge src no longer exists, so no page can be
// counted in two groups.
func (g *grouper) mergeInto(dst, src *PatientGroup) {
	for _, p := range src.Pages {
		dst.addPage(p)
	}
	for mrn := range src.MRNSeen {
		dst.noteMRN(mrn)
	}
	dst.fillDOB(src.DOB)
	g.groups.remove(src.Key)
}
