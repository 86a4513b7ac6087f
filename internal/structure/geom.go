package structure

import "math"

// Vec3 is a Cartesian coordinate in Ångström.
type Vec3 [3]float64

// Add returns v+o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }

// Sub returns v-o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }

// Scale returns v*s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v[0] * s, v[1] * s, v[2] * s} }

// Dot returns the scalar product.
func (v Vec3) Dot(o Vec3) float64 { return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] }

// Cross returns the vector product.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

// Norm returns the Euclidean length.
func (v Vec3) Norm() float64 { return math.Sqrt(v.Dot(v)) }

// Unit returns v scaled to length 1; the zero vector is returned unchanged.
func (v Vec3) Unit() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// Dist returns the distance between two points.
func Dist(a, b Vec3) float64 { return a.Sub(b).Norm() }

// Dist2 returns the squared distance between two points.
func Dist2(a, b Vec3) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}

// Centroid returns the mean of pts; the zero vector for an empty slice.
func Centroid(pts []Vec3) Vec3 {
	var c Vec3
	if len(pts) == 0 {
		return c
	}
	for _, p := range pts {
		c = c.Add(p)
	}
	return c.Scale(1 / float64(len(pts)))
}

// Transform is a rigid (or crystallographic) affine operator.
type Transform struct {
	Rot   [3][3]float64
	Shift Vec3
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rot: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

// Apply transforms p.
func (t Transform) Apply(p Vec3) Vec3 {
	var out Vec3
	for i := 0; i < 3; i++ {
		out[i] = t.Rot[i][0]*p[0] + t.Rot[i][1]*p[1] + t.Rot[i][2]*p[2] + t.Shift[i]
	}
	return out
}

// Then returns the transform applying t first and o second.
func (t Transform) Then(o Transform) Transform {
	var out Transform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Rot[i][j] = o.Rot[i][0]*t.Rot[0][j] + o.Rot[i][1]*t.Rot[1][j] + o.Rot[i][2]*t.Rot[2][j]
		}
	}
	out.Shift = o.Apply(t.Shift)
	return out
}

// IsIdentity reports whether t leaves every point (within eps) in place.
func (t Transform) IsIdentity(eps float64) bool {
	id := Identity()
	for i := 0; i < 3; i++ {
		if math.Abs(t.Shift[i]) > eps {
			return false
		}
		for j := 0; j < 3; j++ {
			if math.Abs(t.Rot[i][j]-id.Rot[i][j]) > eps {
				return false
			}
		}
	}
	return true
}

// PlaneNormal fits a plane through pts and returns its unit normal and the
// largest absolute deviation of a point from that plane. Fewer than three
// points yield a zero normal.
func PlaneNormal(pts []Vec3) (Vec3, float64) {
	if len(pts) < 3 {
		return Vec3{}, 0
	}
	c := Centroid(pts)
	// Newell's method is stable for near-planar rings.
	var n Vec3
	for i := range pts {
		a := pts[i].Sub(c)
		b := pts[(i+1)%len(pts)].Sub(c)
		n[0] += (a[1] - b[1]) * (a[2] + b[2])
		n[1] += (a[2] - b[2]) * (a[0] + b[0])
		n[2] += (a[0] - b[0]) * (a[1] + b[1])
	}
	n = n.Unit()
	dev := 0.0
	for _, p := range pts {
		dev = math.Max(dev, math.Abs(p.Sub(c).Dot(n)))
	}
	return n, dev
}

// AngleDeg returns the angle between two vectors in degrees.
func AngleDeg(a, b Vec3) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	cos := a.Dot(b) / (na * nb)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}
