package geometry

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/fxlayout/fxlayout/internal/scene"
)

// RotateEuler rotates v by r (radians) about X, then the result about Y, then about Z.
// Existing content depends on this exact order.
func RotateEuler(v, r scene.Vec3) scene.Vec3 {
	if r.IsZero() {
		return v
	}
	out := mgl64.Vec3{v.X, v.Y, v.Z}
	out = mgl64.Rotate3DX(r.X).Mul3x1(out)
	out = mgl64.Rotate3DY(r.Y).Mul3x1(out)
	out = mgl64.Rotate3DZ(r.Z).Mul3x1(out)
	return scene.Vec3{X: out[0], Y: out[1], Z: out[2]}
}

// RotateAbout rotates p around pivot.
func RotateAbout(p, pivot, r scene.Vec3) scene.Vec3 {
	return RotateEuler(p.Sub(pivot), r).Add(pivot)
}

// ScaleAbout scales p away from pivot elementwise.
func ScaleAbout(p, pivot, factor scene.Vec3) scene.Vec3 {
	return p.Sub(pivot).Mul(factor).Add(pivot)
}

// Centroid returns the mean of pts, or the origin for an empty slice.
func Centroid(pts []scene.Vec3) scene.Vec3 {
	if len(pts) == 0 {
		return scene.Vec3{}
	}
	var sum scene.Vec3
	for _, p := range pts {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float64(len(pts)))
}
