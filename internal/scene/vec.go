package scene

// Vec3 is a point or direction in scene space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// One is the identity scale.
var One = Vec3{X: 1, Y: 1, Z: 1}

func V3(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Mul multiplies elementwise.
func (v Vec3) Mul(o Vec3) Vec3 { return Vec3{v.X * o.X, v.Y * o.Y, v.Z * o.Z} }

// Div divides elementwise. Zero components of o leave the matching component unchanged.
func (v Vec3) Div(o Vec3) Vec3 {
	out := v
	if o.X != 0 {
		out.X /= o.X
	}
	if o.Y != 0 {
		out.Y /= o.Y
	}
	if o.Z != 0 {
		out.Z /= o.Z
	}
	return out
}

func (v Vec3) Scale(f float64) Vec3 { return Vec3{v.X * f, v.Y * f, v.Z * f} }

// Max returns the elementwise maximum of v and a scalar floor.
func (v Vec3) Max(floor float64) Vec3 {
	return Vec3{max(v.X, floor), max(v.Y, floor), max(v.Z, floor)}
}

// IsZero reports whether all components are zero.
func (v Vec3) IsZero() bool { return v.X == 0 && v.Y == 0 && v.Z == 0 }
