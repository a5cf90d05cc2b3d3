package grouping

// matchDeferred assigns each deferred page to an existing or new group.
// Matching is attempted in a fixed priority order, stopping at the first
// success: name match, MRN match, DOB match, then a new group. Pages are
// processed in their original input order.
func (g *grouper) matchDeferred() {
	for _, d := range g.deferred {
		grp := g.matchByName(d.id)
		if grp == nil && d.id.MRN != "" {
			grp = g.matchByMRN(d.id.MRN)
		}
		if grp == nil && d.id.DOB != "" {
			grp = g.matchByDOB(d.id.DOB)
		}
		if grp != nil {
			grp.addPage(d.page)
			grp.noteMRN(d.id.MRN)
			grp.fillDOB(d.id.DOB)
			continue
		}

		key := d.id.Key()
		if key == "" {
			g.log.Warn("page has no name, MRN, or DOB to group by, dropping", "page", d.page)
			g.dropped = append(g.dropped, d.page)
			continue
		}
		grp = g.groups.get(key)
		if grp == nil {
			grp = newGroup(key, d.id)
			g.groups.add(grp)
		}
		grp.addPage(d.page)
		grp.noteMRN(d.id.MRN)
	}
}

// matchByName scans groups that were created with a DOB and compares the
// structured name fields. A match requires either equal first names with
// equal (or both absent) last names, or both first names absent with equal
// last names. First match in creation order wins.
func (g *grouper) matchByName(id Identity) *PatientGroup {
	for _, grp := range g.groups.groups() {
		if grp.DOB == "" {
			continue
		}
		if id.First != "" && grp.First != "" && id.First == grp.First {
			if id.Last != "" && grp.Last != "" && id.Last == grp.Last {
				return grp
			}
			if id.Last == "" && grp.Last == "" {
				return grp
			}
			continue
		}
		if id.First == "" && grp.First == "" &&
			id.Last != "" && grp.Last != "" && id.Last == grp.Last {
			return grp
		}
	}
	return nil
}

func (g *grouper) matchByMRN(mrn string) *PatientGroup {
	for _, grp := range g.groups.groups() {
		if grp.hasMRN(mrn) {
			return grp
		}
	}
	return nil
}

func (g *grouper) matchByDOB(dob string) *PatientGroup {
	for _, grp := range g.groups.groups() {
		if grp.DOB == dob {
			return grp
		}
	}
	return nil
}
