package structure

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"plicore/pkg/domain"
)

// AssemblyChain is a copy of an asymmetric-unit chain placed by one operator.
type AssemblyChain struct {
	Label    domain.ChainLabel
	Source   *Chain
	Op       Transform
	Residues []Residue
	Mate     bool
}

// Positions returns the heavy-atom coordinates of the copy.
func (c *AssemblyChain) Positions() []Vec3 {
	var out []Vec3
	for i := range c.Residues {
		for _, a := range c.Residues[i].Atoms {
			if !a.IsHydrogen() {
				out = append(out, a.Pos)
			}
		}
	}
	return out
}

// Assembly is an expanded biological assembly. Mates are chain copies
// generated by crystal packing that touch the assembly but are not part of it.
type Assembly struct {
	ID         string
	Oligomeric string
	Chains     []*AssemblyChain
	Mates      []*AssemblyChain
}

// Chain returns the copy with the given label.
func (a *Assembly) Chain(label domain.ChainLabel) (*AssemblyChain, bool) {
	for _, c := range a.Chains {
		if c.Label == label {
			return c, true
		}
	}
	return nil, false
}

// Builder expands assemblies from a structure's operator list and, for
// crystal structures, generates symmetry mates within MateRadius.
type Builder struct {
	MateRadius float64
	// SkipMates disables symmetry-mate generation.
	SkipMates bool
}

// mateInstanceBase offsets mate instance numbers away from assembly instances.
const mateInstanceBase = 1000

// Expand implements AssemblyBuilder. Entries without assembly definitions
// produce a single assembly "1" holding the asymmetric unit.
func (b Builder) Expand(s *Structure) ([]Assembly, error) {
	defs := s.Assemblies
	if len(defs) == 0 {
		all := make([]string, len(s.Chains))
		for i, c := range s.Chains {
			all[i] = c.AsymID
		}
		defs = []AssemblyDef{{ID: "1", Gens: []AssemblyGen{{AsymIDs: all, OperExpr: "1"}}}}
	}
	ops := s.Operators
	if len(ops) == 0 {
		ops = map[string]Transform{"1": Identity()}
	}
	out := make([]Assembly, 0, len(defs))
	for _, def := range defs {
		asm, err := b.expandOne(s, def, ops)
		if err != nil {
			return nil, fmt.Errorf("assembly %s: %w", def.ID, err)
		}
		if !b.SkipMates {
			asm.Mates = b.mates(s, asm)
		}
		out = append(out, asm)
	}
	return out, nil
}

func (b Builder) expandOne(s *Structure, def AssemblyDef, ops map[string]Transform) (Assembly, error) {
	asm := Assembly{ID: def.ID, Oligomeric: def.Oligomeric}
	instances := make(map[string]int)
	seen := make(map[domain.ChainLabel]struct{})
	for _, gen := range def.Gens {
		combos, err := ParseOperExpression(gen.OperExpr)
		if err != nil {
			return Assembly{}, err
		}
		for _, combo := range combos {
			key := strings.Join(combo, "x")
			inst, ok := instances[key]
			if !ok {
				inst = len(instances) + 1
				instances[key] = inst
			}
			tr := Identity()
			// Rightmost operator applies first.
			for i := len(combo) - 1; i >= 0; i-- {
				op, ok := ops[combo[i]]
				if !ok {
					return Assembly{}, fmt.Errorf("unknown operator %q", combo[i])
				}
				tr = tr.Then(op)
			}
			for _, asym := range gen.AsymIDs {
				src, ok := s.Chain(asym)
				if !ok {
					continue
				}
				label := domain.ChainLabel{Instance: inst, Asym: asym}
				if _, dup := seen[label]; dup {
					continue
				}
				seen[label] = struct{}{}
				asm.Chains = append(asm.Chains, placeChain(src, label, tr, false))
			}
		}
	}
	sort.SliceStable(asm.Chains, func(i, j int) bool { return asm.Chains[i].Label.Less(asm.Chains[j].Label) })
	return asm, nil
}

func placeChain(src *Chain, label domain.ChainLabel, tr Transform, mate bool) *AssemblyChain {
	identity := tr.IsIdentity(1e-9)
	res := make([]Residue, len(src.Residues))
	for i, r := range src.Residues {
		res[i] = r
		atoms := make([]Atom, len(r.Atoms))
		for j, a := range r.Atoms {
			if !identity {
				a.Pos = tr.Apply(a.Pos)
			}
			atoms[j] = a
		}
		res[i].Atoms = atoms
	}
	return &AssemblyChain{Label: label, Source: src, Op: tr, Residues: res, Mate: mate}
}

// ParseOperExpression expands an operator expression such as "1", "1,2",
// "(1-5)", or "(1,2)(3-4)" into operator id combinations. Each combination
// lists operator ids left to right; the rightmost is applied first.
func ParseOperExpression(expr string) ([][]string, error) {
	expr = strings.ReplaceAll(strings.TrimSpace(expr), " ", "")
	if expr == "" {
		return nil, fmt.Errorf("empty operator expression")
	}
	var groups []string
	if strings.HasPrefix(expr, "(") {
		groups = strings.Split(strings.TrimSuffix(strings.TrimPrefix(expr, "("), ")"), ")(")
	} else {
		groups = []string{expr}
	}
	combos := [][]string{{}}
	for _, g := range groups {
		ids, err := expandIDList(g)
		if err != nil {
			return nil, fmt.Errorf("operator expression %q: %w", expr, err)
		}
		next := make([][]string, 0, len(combos)*len(ids))
		for _, c := range combos {
			for _, id := range ids {
				combo := append(append([]string(nil), c...), id)
				next = append(next, combo)
			}
		}
		combos = next
	}
	return combos, nil
}

func expandIDList(s string) ([]string, error) {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item == "" {
			return nil, fmt.Errorf("empty operator id")
		}
		lo, hi, isRange := strings.Cut(item, "-")
		if !isRange {
			out = append(out, item)
			continue
		}
		a, err := strconv.Atoi(lo)
		if err != nil {
			return nil, err
		}
		z, err := strconv.Atoi(hi)
		if err != nil {
			return nil, err
		}
		if z < a {
			return nil, fmt.Errorf("descending range %s", item)
		}
		for i := a; i <= z; i++ {
			out = append(out, strconv.Itoa(i))
		}
	}
	return out, nil
}
