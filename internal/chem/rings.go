package chem

import (
	"math/bits"
	"sort"
)

// ringBonds marks every bond that lies on a cycle, i.e. every non-bridge.
func (m *Molecule) ringBonds() []bool {
	n := len(m.Atoms)
	disc := make([]int, n)
	low := make([]int, n)
	for i := range disc {
		disc[i] = -1
	}
	inRing := make([]bool, len(m.Bonds))
	for k := range inRing {
		inRing[k] = true
	}
	t := 0
	var dfs func(u, viaBond int)
	dfs = func(u, viaBond int) {
		disc[u] = t
		low[u] = t
		t++
		for _, k := range m.BondsOf(u) {
			if k == viaBond {
				continue
			}
			v := m.Bonds[k].Other(u)
			if disc[v] < 0 {
				dfs(v, k)
				low[u] = min(low[u], low[v])
				if low[v] > disc[u] {
					inRing[k] = false
				}
			} else {
				low[u] = min(low[u], disc[v])
			}
		}
	}
	for i := 0; i < n; i++ {
		if disc[i] < 0 {
			dfs(i, -1)
		}
	}
	return inRing
}

type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) set(i int)      { b[i/64] |= 1 << (uint(i) % 64) }
func (b bitset) has(i int) bool { return b[i/64]&(1<<(uint(i)%64)) != 0 }

func (b bitset) lowest() int {
	for w, v := range b {
		if v != 0 {
			return w*64 + bits.TrailingZeros64(v)
		}
	}
	return -1
}

func (b bitset) xor(o bitset) {
	for i := range b {
		b[i] ^= o[i]
	}
}

type ringCandidate struct {
	atoms []int
	bonds bitset
}

// Rings returns a smallest set of smallest rings. Each ring is an ordered
// cycle of atom indices.
func (m *Molecule) Rings() [][]int {
	nRings := len(m.Bonds) - len(m.Atoms) + m.NumFragments()
	if nRings <= 0 {
		return nil
	}
	inRing := m.ringBonds()
	var cands []ringCandidate
	seen := map[string]bool{}
	for k, b := range m.Bonds {
		if !inRing[k] {
			continue
		}
		path := m.shortestPath(b.A, b.B, k, inRing)
		if path == nil {
			continue
		}
		c := ringCandidate{atoms: path, bonds: newBitset(len(m.Bonds))}
		c.bonds.set(k)
		for i := 0; i+1 < len(path); i++ {
			bk, _ := m.BondBetween(path[i], path[i+1])
			c.bonds.set(bk)
		}
		key := bitsetKey(c.bonds)
		if seen[key] {
			continue
		}
		seen[key] = true
		cands = append(cands, c)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if len(cands[i].atoms) != len(cands[j].atoms) {
			return len(cands[i].atoms) < len(cands[j].atoms)
		}
		return bitsetKey(cands[i].bonds) < bitsetKey(cands[j].bonds)
	})

	var basis []bitset
	var out [][]int
	for _, c := range cands {
		v := append(bitset(nil), c.bonds...)
		for _, b := range basis {
			if v.has(b.lowest()) {
				v.xor(b)
			}
		}
		if v.lowest() < 0 {
			continue
		}
		basis = append(basis, v)
		out = append(out, c.atoms)
		if len(out) == nRings {
			break
		}
	}
	return out
}

func bitsetKey(b bitset) string {
	buf := make([]byte, 0, len(b)*8)
	for _, w := range b {
		for s := 0; s < 64; s += 8 {
			buf = append(buf, byte(w>>uint(s)))
		}
	}
	return string(buf)
}

// shortestPath runs a BFS from a to b over ring bonds, never using skip.
func (m *Molecule) shortestPath(a, b, skip int, inRing []bool) []int {
	prev := make([]int, len(m.Atoms))
	for i := range prev {
		prev[i] = -2
	}
	prev[a] = -1
	queue := []int{a}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if u == b {
			break
		}
		nbs := m.BondsOf(u)
		order := make([]int, len(nbs))
		copy(order, nbs)
		sort.Ints(order)
		for _, k := range order {
			if k == skip || !inRing[k] {
				continue
			}
			v := m.Bonds[k].Other(u)
			if prev[v] != -2 {
				continue
			}
			prev[v] = u
			queue = append(queue, v)
		}
	}
	if prev[b] == -2 {
		return nil
	}
	var path []int
	for v := b; v != -1; v = prev[v] {
		path = append(path, v)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// AromaticRings returns the rings whose atoms and bonds are all aromatic.
func AromaticRings(m *Molecule) [][]int {
	var out [][]int
	for _, ring := range m.Rings() {
		if isAromaticRing(m, ring) {
			out = append(out, ring)
		}
	}
	return out
}

func isAromaticRing(m *Molecule, ring []int) bool {
	for i, a := range ring {
		if !m.Atoms[a].Aromatic {
			return false
		}
		k, ok := m.BondBetween(a, ring[(i+1)%len(ring)])
		if !ok || m.Bonds[k].Order != Aromatic {
			return false
		}
	}
	return true
}

// AromaticRingCount counts aromatic rings in the smallest set of smallest rings.
func AromaticRingCount(m *Molecule) int { return len(AromaticRings(m)) }
