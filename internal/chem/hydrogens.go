package chem

import (
	"fmt"
	"math"

	"plicore/internal/structure"
)

func hydrogenBondLength(element string) float64 {
	switch element {
	case "C":
		return 1.09
	case "N":
		return 1.01
	case "O":
		return 0.96
	case "S":
		return 1.34
	}
	return 1.0
}

// AddHydrogens returns a copy of m in which every implicit hydrogen is an
// explicit atom placed at an idealised position around its parent.
func AddHydrogens(m *Molecule) *Molecule {
	out := m.Clone()
	serial := 0
	for i := range m.Atoms {
		k := m.Atoms[i].HCount
		if k <= 0 {
			continue
		}
		parent := out.Atoms[i]
		nbs := out.Neighbors(i)
		var axis structure.Vec3
		for _, j := range nbs {
			axis = axis.Add(parent.Pos.Sub(out.Atoms[j].Pos).Unit())
		}
		if axis.Norm() < 1e-6 {
			axis = structure.Vec3{1, 0, 0}
			if len(nbs) > 0 {
				axis = perpendicular(parent.Pos.Sub(out.Atoms[nbs[0]].Pos))
			}
		}
		length := hydrogenBondLength(parent.Element)
		for _, dir := range hydrogenDirections(axis.Unit(), k, len(nbs)) {
			serial++
			h := out.AddAtom(Atom{
				Element: "H",
				Pos:     parent.Pos.Add(dir.Scale(length)),
				Name:    fmt.Sprintf("H%d", serial),
				ResName: parent.ResName,
				ResSeq:  parent.ResSeq,
				Chain:   parent.Chain,
			})
			out.AddBond(i, h, Single)
		}
		out.Atoms[i].HCount = 0
	}
	return out
}

// RemoveHydrogens returns a copy of m without hydrogen atoms. Each removed
// hydrogen is added to the HCount of the atom it was bonded to.
func RemoveHydrogens(m *Molecule) *Molecule {
	extra := make([]int, len(m.Atoms))
	for _, b := range m.Bonds {
		switch {
		case m.Atoms[b.A].IsHydrogen() && !m.Atoms[b.B].IsHydrogen():
			extra[b.B]++
		case m.Atoms[b.B].IsHydrogen() && !m.Atoms[b.A].IsHydrogen():
			extra[b.A]++
		}
	}
	out, back := m.Subgraph(func(i int) bool { return !m.Atoms[i].IsHydrogen() })
	for i, old := range back {
		out.Atoms[i].HCount += extra[old]
	}
	return out
}

func perpendicular(v structure.Vec3) structure.Vec3 {
	ref := structure.Vec3{1, 0, 0}
	if math.Abs(v.Unit()[0]) > 0.9 {
		ref = structure.Vec3{0, 1, 0}
	}
	return v.Cross(ref).Unit()
}

// hydrogenDirections spreads k unit vectors around axis. With heavy
// neighbours the hydrogens sit on a tetrahedral cone; a free atom keeps one
// hydrogen on the axis and spreads the rest.
func hydrogenDirections(axis structure.Vec3, k, heavy int) []structure.Vec3 {
	if k == 1 {
		return []structure.Vec3{axis}
	}
	p := perpendicular(axis)
	q := axis.Cross(p).Unit()
	var out []structure.Vec3
	theta := 70.5 * math.Pi / 180
	n := k
	if heavy == 0 {
		out = append(out, axis)
		theta = 109.5 * math.Pi / 180
		n = k - 1
	}
	for j := 0; j < n; j++ {
		phi := 2 * math.Pi * float64(j) / float64(n)
		side := p.Scale(math.Cos(phi)).Add(q.Scale(math.Sin(phi)))
		out = append(out, axis.Scale(math.Cos(theta)).Add(side.Scale(math.Sin(theta))).Unit())
	}
	return out
}
