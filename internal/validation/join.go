package validation

import "math"

// LigandMetrics is the density fit of one ligand, aggregated over its
// residues and weighted by the atoms each residue has in the density map.
type LigandMetrics struct {
	AtomCount    *float64
	RSCC         *float64
	RSR          *float64
	AvgOccupancy *float64
}

// ligandMetrics aggregates the residue records of a ligand. icodes runs
// parallel to residues and may be shorter. It reports false when no residue
// has a record.
func ligandMetrics(t *Table, entryID, chain string, residues []int, icodes []string) (LigandMetrics, bool) {
	var atoms, wsum float64
	var rscc, rsr, occ weighted
	found, counted := false, false
	for i, seq := range residues {
		icode := ""
		if i < len(icodes) {
			icode = icodes[i]
		}
		rv, ok := t.Residue(entryID, chain, seq, icode)
		if !ok {
			continue
		}
		found = true
		w := 1.0
		if rv.NumAtomsEDS != nil {
			w = *rv.NumAtomsEDS
			atoms += w
			counted = true
		}
		wsum += w
		rscc.add(rv.RSCC, w)
		rsr.add(rv.RSR, w)
		occ.add(rv.AvgOccupancy, w)
	}
	if !found {
		return LigandMetrics{}, false
	}
	m := LigandMetrics{RSCC: rscc.mean(), RSR: rsr.mean(), AvgOccupancy: occ.mean()}
	if counted {
		m.AtomCount = &atoms
	}
	return m, true
}

type weighted struct {
	sum, weight float64
	missing     bool
}

func (a *weighted) add(v *float64, w float64) {
	if v == nil {
		a.missing = true
		return
	}
	a.sum += *v * w
	a.weight += w
}

// mean returns the weighted mean, or nil when any input was missing.
func (a *weighted) mean() *float64 {
	if a.missing || a.weight == 0 {
		return nil
	}
	m := a.sum / a.weight
	return &m
}

func round3(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := math.Round(*v*1000) / 1000
	return &r
}

// Join returns a copy of rows with the validation columns filled from t.
// Rows of one system share the system-level aggregates. Missing records
// leave the derived columns nil.
func Join(rows []AnnotatedRow, t *Table, c Criteria) []AnnotatedRow {
	out := make([]AnnotatedRow, len(rows))
	copy(out, rows)

	bySystem := map[string][]int{}
	var order []string
	for i := range out {
		r := &out[i]
		if _, ok := bySystem[r.SystemID]; !ok {
			order = append(order, r.SystemID)
		}
		bySystem[r.SystemID] = append(bySystem[r.SystemID], i)

		ev, ok := t.Entry(r.EntryID)
		if ok {
			if ev.Resolution != nil {
				r.EntryResolution = ev.Resolution
			}
			r.EntryR = ev.R
			r.EntryRFree = ev.RFree
			r.EntryClashscore = ev.Clashscore
			r.EntryPercentRamaOutliers = ev.PercentRamaOutliers
			r.EntryMolprobity = ev.Molprobity
			r.EntryRMinusRFree = RMinusRFree(ev)
			r.EntryPassValidation = c.EntryPasses(ev)
		}
		if m, ok := ligandMetrics(t, r.EntryID, r.LigandAuthChain, r.LigandResidueNumbers, r.LigandResidueICodes); ok {
			r.LigandAtomCount = m.AtomCount
			r.LigandRSCC = m.RSCC
			r.LigandRSR = m.RSR
			r.LigandAvgOccupancy = m.AvgOccupancy
			r.LigandPassValidation = c.LigandPasses(m)
		}
	}

	for _, id := range order {
		idx := bySystem[id]
		var atoms float64
		var rscc, rsr, occ weighted
		complete := true
		pass := true
		passKnown := true
		for _, i := range idx {
			r := &out[i]
			switch {
			case r.LigandPassValidation == nil:
				passKnown = false
			case !*r.LigandPassValidation:
				pass = false
			}
			if r.LigandAtomCount == nil {
				complete = false
				continue
			}
			w := *r.LigandAtomCount
			atoms += w
			rscc.add(r.LigandRSCC, w)
			rsr.add(r.LigandRSR, w)
			occ.add(r.LigandAvgOccupancy, w)
		}
		// A failing pocket or ligand decides the system even when other
		// ligands have no record.
		var sysPass *bool
		pocketOK := out[idx[0]].SystemPocketMaxAltCount <= c.MaxPocketAltCount
		switch {
		case !pocketOK || !pass:
			sysPass = boolPtr(false)
		case complete && passKnown:
			sysPass = boolPtr(true)
		}
		for _, i := range idx {
			r := &out[i]
			r.SystemPassValidation = sysPass
			if complete {
				r.SystemLigandAtomCount = &atoms
				r.SystemLigandAvgRSCC = round3(rscc.mean())
				r.SystemLigandAvgRSR = round3(rsr.mean())
				r.SystemLigandAvgOccupancy = round3(occ.mean())
			}
		}
	}
	return out
}

func boolPtr(v bool) *bool { return &v }
