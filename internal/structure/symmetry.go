package structure

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"plicore/pkg/domain"
)

// DefaultMateRadius bounds how far from the assembly a symmetry copy may lie
// and still be kept as a mate.
const DefaultMateRadius = 8.0

// Orthogonalization returns the fractional-to-Cartesian matrix of the cell
// using the PDB convention (a along x, b in the xy plane).
func (c Cell) Orthogonalization() ([3][3]float64, error) {
	rad := math.Pi / 180
	ca, cb, cg := math.Cos(c.Alpha*rad), math.Cos(c.Beta*rad), math.Cos(c.Gamma*rad)
	sg := math.Sin(c.Gamma * rad)
	vol2 := 1 - ca*ca - cb*cb - cg*cg + 2*ca*cb*cg
	if c.A <= 0 || c.B <= 0 || c.C <= 0 || sg == 0 || vol2 <= 0 {
		return [3][3]float64{}, fmt.Errorf("degenerate cell %+v", c)
	}
	v := c.A * c.B * c.C * math.Sqrt(vol2)
	return [3][3]float64{
		{c.A, c.B * cg, c.C * cb},
		{0, c.B * sg, c.C * (ca - cb*cg) / sg},
		{0, 0, v / (c.A * c.B * sg)},
	}, nil
}

func invert3(m [3][3]float64) ([3][3]float64, error) {
	det := m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
	if math.Abs(det) < 1e-12 {
		return [3][3]float64{}, fmt.Errorf("singular matrix")
	}
	inv := [3][3]float64{
		{m[1][1]*m[2][2] - m[1][2]*m[2][1], m[0][2]*m[2][1] - m[0][1]*m[2][2], m[0][1]*m[1][2] - m[0][2]*m[1][1]},
		{m[1][2]*m[2][0] - m[1][0]*m[2][2], m[0][0]*m[2][2] - m[0][2]*m[2][0], m[0][2]*m[1][0] - m[0][0]*m[1][2]},
		{m[1][0]*m[2][1] - m[1][1]*m[2][0], m[0][1]*m[2][0] - m[0][0]*m[2][1], m[0][0]*m[1][1] - m[0][1]*m[1][0]},
	}
	for i := range inv {
		for j := range inv[i] {
			inv[i][j] /= det
		}
	}
	return inv, nil
}

// ParseSymop parses a fractional symmetry operator such as "-y,x-y,z+1/3".
func ParseSymop(op string) (Transform, error) {
	parts := strings.Split(strings.ReplaceAll(strings.ToLower(op), " ", ""), ",")
	if len(parts) != 3 {
		return Transform{}, fmt.Errorf("symop %q: want 3 components", op)
	}
	var t Transform
	for row, expr := range parts {
		if err := parseSymopRow(expr, &t.Rot[row], &t.Shift[row]); err != nil {
			return Transform{}, fmt.Errorf("symop %q: %w", op, err)
		}
	}
	return t, nil
}

func parseSymopRow(expr string, rot *[3]float64, shift *float64) error {
	if expr == "" {
		return fmt.Errorf("empty component")
	}
	i := 0
	for i < len(expr) {
		sign := 1.0
		if expr[i] == '+' || expr[i] == '-' {
			if expr[i] == '-' {
				sign = -1
			}
			i++
		}
		j := i
		for j < len(expr) && (expr[j] >= '0' && expr[j] <= '9' || expr[j] == '.' || expr[j] == '/') {
			j++
		}
		coef := 1.0
		if j > i {
			v, err := parseFraction(expr[i:j])
			if err != nil {
				return err
			}
			coef = v
		}
		if j < len(expr) && expr[j] == '*' {
			j++
		}
		if j < len(expr) && strings.ContainsRune("xyz", rune(expr[j])) {
			rot[expr[j]-'x'] += sign * coef
			j++
		} else if j == i {
			return fmt.Errorf("unexpected %q in %q", expr[i:], expr)
		} else {
			*shift += sign * coef
		}
		i = j
	}
	return nil
}

func parseFraction(s string) (float64, error) {
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, err
	}
	if !ok {
		return n, nil
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("bad fraction %q", s)
	}
	return n / d, nil
}

// CartesianSymops converts fractional operators to Cartesian transforms,
// one per operator and unit-cell translation in [-1,1]^3.
func CartesianSymops(cell Cell, symops []string) ([]Transform, error) {
	orth, err := cell.Orthogonalization()
	if err != nil {
		return nil, err
	}
	frac, err := invert3(orth)
	if err != nil {
		return nil, err
	}
	toFrac := Transform{Rot: frac}
	var out []Transform
	for _, op := range symops {
		f, err := ParseSymop(op)
		if err != nil {
			return nil, err
		}
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				for dz := -1; dz <= 1; dz++ {
					shifted := f
					shifted.Shift = f.Shift.Add(Vec3{float64(dx), float64(dy), float64(dz)})
					out = append(out, toFrac.Then(shifted).Then(Transform{Rot: orth}))
				}
			}
		}
	}
	return out, nil
}

// mates places polymer chains of the asymmetric unit under every crystal
// operator and keeps the copies that come within MateRadius of the assembly
// without coinciding with one of its chains.
func (b Builder) mates(s *Structure, asm Assembly) []*AssemblyChain {
	if s.Cell == nil || len(s.SymOps) == 0 || len(asm.Chains) == 0 {
		return nil
	}
	ops, err := CartesianSymops(*s.Cell, s.SymOps)
	if err != nil {
		return nil
	}
	radius := b.MateRadius
	if radius <= 0 {
		radius = DefaultMateRadius
	}
	var asmPts []Vec3
	centroids := make(map[string][]Vec3)
	for _, c := range asm.Chains {
		pts := c.Positions()
		asmPts = append(asmPts, pts...)
		centroids[c.Source.AsymID] = append(centroids[c.Source.AsymID], Centroid(pts))
	}
	if len(asmPts) == 0 {
		return nil
	}
	grid := NewGrid(asmPts, radius)
	asmCenter := Centroid(asmPts)
	asmRadius := boundingRadius(asmCenter, asmPts)

	var out []*AssemblyChain
	next := mateInstanceBase
	for _, src := range s.Chains {
		if !src.IsPolymer() {
			continue
		}
		pts := src.Positions()
		if len(pts) == 0 {
			continue
		}
		center := Centroid(pts)
		chainRadius := boundingRadius(center, pts)
		for _, op := range ops {
			moved := op.Apply(center)
			if Dist(moved, asmCenter) > asmRadius+chainRadius+radius {
				continue
			}
			if coincides(moved, centroids[src.AsymID]) {
				continue
			}
			touching := false
			for _, p := range pts {
				if grid.AnyWithin(op.Apply(p), radius) {
					touching = true
					break
				}
			}
			if !touching {
				continue
			}
			next++
			out = append(out, placeChain(src, domain.ChainLabel{Instance: next, Asym: src.AsymID}, op, true))
		}
	}
	return out
}

func coincides(p Vec3, existing []Vec3) bool {
	for _, e := range existing {
		if Dist(p, e) < 0.5 {
			return true
		}
	}
	return false
}

func boundingRadius(center Vec3, pts []Vec3) float64 {
	r := 0.0
	for _, p := range pts {
		r = math.Max(r, Dist(center, p))
	}
	return r
}
