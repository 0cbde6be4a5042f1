package world

// Vec3 is a world-space position or velocity.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

func (v Vec3) LenSq() float64 { return v.X*v.X + v.Y*v.Y + v.Z*v.Z }

// DistSq returns the squared Euclidean distance between v and o.
func (v Vec3) DistSq(o Vec3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

// Splat returns a vector with s on every axis.
func Splat(s float64) Vec3 { return Vec3{s, s, s} }
