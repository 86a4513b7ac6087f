package chem

import "sort"

// DefaultMatchBudget bounds the number of search steps MatchSubgraph may take.
const DefaultMatchBudget = 200_000

// MatchSubgraph maps every heavy atom of obs onto a distinct heavy atom of
// tmpl with the same element so that each observed bond joins atoms that are
// bonded in tmpl. The result is indexed by obs atom and holds tmpl indices,
// with -1 for hydrogens. It reports false when no mapping exists or the step
// budget runs out. Template atoms whose name equals the observed atom name
// are tried first.
func MatchSubgraph(tmpl, obs *Molecule, budget int) ([]int, bool) {
	if budget <= 0 {
		budget = DefaultMatchBudget
	}
	mapping := make([]int, len(obs.Atoms))
	for i := range mapping {
		mapping[i] = -1
	}
	tmplCount := map[string]int{}
	var tmplHeavy []int
	for i, a := range tmpl.Atoms {
		if !a.IsHydrogen() {
			tmplCount[a.Element]++
			tmplHeavy = append(tmplHeavy, i)
		}
	}
	obsCount := map[string]int{}
	for _, a := range obs.Atoms {
		if !a.IsHydrogen() {
			obsCount[a.Element]++
		}
	}
	for el, n := range obsCount {
		if tmplCount[el] < n {
			return nil, false
		}
	}
	if len(obsCount) == 0 {
		return mapping, true
	}

	order, anchor := searchOrder(obs)
	tmplDeg := make([]int, len(tmpl.Atoms))
	for _, i := range tmplHeavy {
		tmplDeg[i] = tmpl.HeavyDegree(i)
	}
	obsDeg := make([]int, len(obs.Atoms))
	for _, i := range order {
		obsDeg[i] = obs.HeavyDegree(i)
	}
	used := make([]bool, len(tmpl.Atoms))
	steps := 0
	exhausted := false

	compatible := func(o, c int) bool {
		if used[c] || tmpl.Atoms[c].Element != obs.Atoms[o].Element || tmplDeg[c] < obsDeg[o] {
			return false
		}
		for _, n := range obs.Neighbors(o) {
			if mapping[n] < 0 {
				continue
			}
			if _, ok := tmpl.BondBetween(c, mapping[n]); !ok {
				return false
			}
		}
		return true
	}

	var rec func(k int) bool
	rec = func(k int) bool {
		if k == len(order) {
			return true
		}
		steps++
		if steps > budget {
			exhausted = true
			return false
		}
		o := order[k]
		var cands []int
		if a := anchor[o]; a >= 0 {
			for _, c := range tmpl.Neighbors(mapping[a]) {
				if !tmpl.Atoms[c].IsHydrogen() {
					cands = append(cands, c)
				}
			}
			sort.Ints(cands)
		} else {
			cands = append(cands, tmplHeavy...)
		}
		if name := obs.Atoms[o].Name; name != "" {
			sort.SliceStable(cands, func(x, y int) bool {
				return tmpl.Atoms[cands[x]].Name == name && tmpl.Atoms[cands[y]].Name != name
			})
		}
		for _, c := range cands {
			if !compatible(o, c) {
				continue
			}
			mapping[o] = c
			used[c] = true
			if rec(k + 1) {
				return true
			}
			mapping[o] = -1
			used[c] = false
			if exhausted {
				return false
			}
		}
		return false
	}
	if !rec(0) {
		return nil, false
	}
	return mapping, true
}

// searchOrder lists heavy atoms of m fragment by fragment in BFS order from
// the highest-degree atom. anchor holds each atom's BFS parent or -1.
func searchOrder(m *Molecule) ([]int, []int) {
	anchor := make([]int, len(m.Atoms))
	for i := range anchor {
		anchor[i] = -1
	}
	heavy, back := m.Subgraph(func(i int) bool { return !m.Atoms[i].IsHydrogen() })
	var order []int
	for _, frag := range heavy.Fragments() {
		start := frag[0]
		for _, i := range frag {
			if len(heavy.Neighbors(i)) > len(heavy.Neighbors(start)) {
				start = i
			}
		}
		seen := map[int]bool{start: true}
		queue := []int{start}
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			order = append(order, back[u])
			nbs := heavy.Neighbors(u)
			sort.Ints(nbs)
			for _, v := range nbs {
				if !seen[v] {
					seen[v] = true
					anchor[back[v]] = back[u]
					queue = append(queue, v)
				}
			}
		}
	}
	return order, anchor
}
