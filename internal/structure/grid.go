package structure

import "math"

type cellKey [3]int

// Grid buckets points into cubic cells so that radius queries only visit
// neighbouring cells.
type Grid struct {
	size  float64
	pts   []Vec3
	cells map[cellKey][]int
}

// NewGrid indexes pts with the given cell size, which should be at least the
// largest query radius.
func NewGrid(pts []Vec3, size float64) *Grid {
	if size <= 0 {
		size = 4
	}
	g := &Grid{size: size, pts: pts, cells: make(map[cellKey][]int)}
	for i, p := range pts {
		k := g.key(p)
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

func (g *Grid) key(p Vec3) cellKey {
	return cellKey{
		int(math.Floor(p[0] / g.size)),
		int(math.Floor(p[1] / g.size)),
		int(math.Floor(p[2] / g.size)),
	}
}

// Len returns the number of indexed points.
func (g *Grid) Len() int { return len(g.pts) }

// Within calls fn for every indexed point at distance <= r from p.
func (g *Grid) Within(p Vec3, r float64, fn func(i int, d float64)) {
	span := int(math.Ceil(r / g.size))
	k := g.key(p)
	r2 := r * r
	for dx := -span; dx <= span; dx++ {
		for dy := -span; dy <= span; dy++ {
			for dz := -span; dz <= span; dz++ {
				for _, i := range g.cells[cellKey{k[0] + dx, k[1] + dy, k[2] + dz}] {
					if d2 := Dist2(p, g.pts[i]); d2 <= r2 {
						fn(i, math.Sqrt(d2))
					}
				}
			}
		}
	}
}

// AnyWithin reports whether some indexed point lies strictly closer than r to p.
func (g *Grid) AnyWithin(p Vec3, r float64) bool {
	found := false
	g.Within(p, r, func(_ int, d float64) {
		if d < r {
			found = true
		}
	})
	return found
}

// MinDistance returns the smallest distance between any of pts and the
// indexed points, searching up to cutoff. It returns +Inf when nothing lies
// within cutoff.
func (g *Grid) MinDistance(pts []Vec3, cutoff float64) float64 {
	best := math.Inf(1)
	for _, p := range pts {
		g.Within(p, cutoff, func(_ int, d float64) {
			if d < best {
				best = d
			}
		})
	}
	return best
}
