package chem

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// CanonicalSMILES writes a SMILES string over the heavy atoms of m that does
// not depend on atom order. Fragments are sorted and joined with '.'.
// Hydrogen counts are not written.
func CanonicalSMILES(m *Molecule) string {
	h, _ := m.Subgraph(func(i int) bool { return !m.Atoms[i].IsHydrogen() })
	if len(h.Atoms) == 0 {
		return ""
	}
	ranks := canonicalRanks(h)
	frags := h.Fragments()
	parts := make([]string, 0, len(frags))
	for _, f := range frags {
		parts = append(parts, writeFragment(h, f, ranks))
	}
	sort.Strings(parts)
	return strings.Join(parts, ".")
}

// rankBy assigns dense ranks by lexicographic key order.
func rankBy(keys [][]int) ([]int, int) {
	idx := make([]int, len(keys))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return slices.Compare(keys[idx[a]], keys[idx[b]]) < 0 })
	ranks := make([]int, len(keys))
	r := 0
	for k, i := range idx {
		if k > 0 && slices.Compare(keys[idx[k-1]], keys[i]) != 0 {
			r++
		}
		ranks[i] = r
	}
	return ranks, r + 1
}

func canonicalRanks(m *Molecule) []int {
	n := len(m.Atoms)
	inRing := m.ringBonds()
	keys := make([][]int, n)
	for i, a := range m.Atoms {
		ringBonds, orderSum := 0, 0
		for _, k := range m.BondsOf(i) {
			if inRing[k] {
				ringBonds++
			}
			orderSum += int(m.Bonds[k].Order)
		}
		arom := 0
		if a.Aromatic {
			arom = 1
		}
		keys[i] = []int{AtomicNumber(a.Element), len(m.BondsOf(i)), a.Charge, arom, ringBonds, orderSum}
	}
	ranks, classes := rankBy(keys)
	for {
		ranks, classes = refineRanks(m, ranks, classes)
		if classes == n {
			return ranks
		}
		// break the lowest tie, then refine again
		counts := make([]int, classes)
		for _, r := range ranks {
			counts[r]++
		}
		tied := -1
		for r, c := range counts {
			if c > 1 {
				tied = r
				break
			}
		}
		chosen := -1
		for i, r := range ranks {
			if r == tied {
				chosen = i
				break
			}
		}
		split := make([][]int, n)
		for i, r := range ranks {
			split[i] = []int{2 * r}
		}
		split[chosen][0]--
		ranks, classes = rankBy(split)
	}
}

func refineRanks(m *Molecule, ranks []int, classes int) ([]int, int) {
	for {
		keys := make([][]int, len(ranks))
		for i := range ranks {
			var nb []int
			for _, k := range m.BondsOf(i) {
				b := m.Bonds[k]
				nb = append(nb, ranks[b.Other(i)]*8+int(b.Order))
			}
			sort.Ints(nb)
			keys[i] = append([]int{ranks[i]}, nb...)
		}
		next, c := rankBy(keys)
		if c == classes {
			return next, c
		}
		ranks, classes = next, c
	}
}

type ringEvent struct {
	bond int
	open bool
}

func writeFragment(m *Molecule, frag []int, ranks []int) string {
	start := frag[0]
	for _, i := range frag {
		if ranks[i] < ranks[start] {
			start = i
		}
	}
	visited := make(map[int]bool, len(frag))
	children := map[int][]int{}
	childBond := map[int]int{}
	events := map[int][]ringEvent{}
	ringBond := map[int]bool{}

	var walk func(a, via int)
	walk = func(a, via int) {
		visited[a] = true
		nbs := m.BondsOf(a)
		sorted := make([]int, len(nbs))
		copy(sorted, nbs)
		sort.Slice(sorted, func(x, y int) bool {
			return ranks[m.Bonds[sorted[x]].Other(a)] < ranks[m.Bonds[sorted[y]].Other(a)]
		})
		for _, k := range sorted {
			if k == via || ringBond[k] {
				continue
			}
			b := m.Bonds[k].Other(a)
			if visited[b] {
				ringBond[k] = true
				events[b] = append(events[b], ringEvent{bond: k, open: true})
				events[a] = append(events[a], ringEvent{bond: k})
				continue
			}
			children[a] = append(children[a], b)
			childBond[b] = k
			walk(b, k)
		}
	}
	walk(start, -1)

	var sb strings.Builder
	digits := map[int]int{}
	inUse := map[int]bool{}
	var emit func(a int)
	emit = func(a int) {
		sb.WriteString(atomSymbol(m.Atoms[a]))
		// closures before openings so freed digits are reused
		for _, ev := range events[a] {
			if ev.open {
				continue
			}
			d, ok := digits[ev.bond]
			if !ok {
				continue
			}
			sb.WriteString(ringDigit(d))
			delete(inUse, d)
		}
		for _, ev := range events[a] {
			if !ev.open {
				continue
			}
			d := 1
			for inUse[d] {
				d++
			}
			inUse[d] = true
			digits[ev.bond] = d
			b := m.Bonds[ev.bond]
			sb.WriteString(bondSymbol(m, b))
			sb.WriteString(ringDigit(d))
		}
		kids := children[a]
		for i, c := range kids {
			last := i == len(kids)-1
			if !last {
				sb.WriteByte('(')
			}
			sb.WriteString(bondSymbol(m, m.Bonds[childBond[c]]))
			emit(c)
			if !last {
				sb.WriteByte(')')
			}
		}
	}
	emit(start)
	return sb.String()
}

func ringDigit(d int) string {
	if d < 10 {
		return strconv.Itoa(d)
	}
	return fmt.Sprintf("%%%02d", d)
}

func bondSymbol(m *Molecule, b Bond) string {
	switch b.Order {
	case Double:
		return "="
	case Triple:
		return "#"
	case Aromatic:
		return ""
	}
	if m.Atoms[b.A].Aromatic && m.Atoms[b.B].Aromatic {
		return "-"
	}
	return ""
}

func atomSymbol(a Atom) string {
	sym := a.Element
	if a.Aromatic {
		sym = strings.ToLower(sym)
	}
	if a.Charge == 0 && sym != "" {
		if _, organic := organicSubset[a.Element]; organic {
			if !a.Aromatic || strings.Contains("bcnops", sym) && len(sym) == 1 {
				return sym
			}
		}
		if sym == "*" {
			return sym
		}
	}
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(sym)
	switch {
	case a.Charge == 1:
		sb.WriteByte('+')
	case a.Charge == -1:
		sb.WriteByte('-')
	case a.Charge > 1:
		fmt.Fprintf(&sb, "+%d", a.Charge)
	case a.Charge < -1:
		fmt.Fprintf(&sb, "-%d", -a.Charge)
	}
	sb.WriteByte(']')
	return sb.String()
}
