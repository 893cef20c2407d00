// Package geometry turns parametric shape descriptions into vertex positions.
//
// Every generator is pure: the same parameters always produce the same points in
// the same order. Local points are scaled, then rotated (X, then Y, then Z), then
// translated by the shape position.
package geometry

import (
	"math"

	"github.com/fxlayout/fxlayout/internal/scene"
)

// goldenRatio drives the azimuth step of the Fibonacci sphere.
var goldenRatio = (1 + math.Sqrt(5)) / 2

// cubeHalf is the fixed face offset of the unit cube.
const cubeHalf = 0.5

// Params describes a shape to generate.
type Params struct {
	Type         scene.ShapeType
	Position     scene.Vec3
	Rotation     scene.Vec3
	Scale        scene.Vec3
	ElementCount int
	Radius       float64
	LineLength   float64
}

// ParamsFromShape reads generator parameters from a shape, applying the shape defaults.
func ParamsFromShape(s scene.Shape) Params {
	return Params{
		Type:         s.Type,
		Position:     s.Position,
		Rotation:     s.Rotation,
		Scale:        s.Scale,
		ElementCount: s.EffectiveElementCount(),
		Radius:       s.EffectiveRadius(),
		LineLength:   s.EffectiveLineLength(),
	}
}

// Generate returns the world positions of the vertices of a parametric shape.
// Imported shapes and non-positive counts produce nil.
func Generate(p Params) []scene.Vec3 {
	if p.ElementCount <= 0 {
		return nil
	}

	var local []scene.Vec3
	switch p.Type {
	case scene.ShapeCube:
		local = cubePoints(p.ElementCount)
	case scene.ShapeSphere:
		local = spherePoints(p.ElementCount, p.Radius)
	case scene.ShapeCircle:
		local = circlePoints(p.ElementCount, p.Radius)
	case scene.ShapeLine:
		local = linePoints(p.ElementCount, p.LineLength)
	default:
		return nil
	}

	out := make([]scene.Vec3, len(local))
	for i, pt := range local {
		out[i] = Place(pt, p.Position, p.Rotation, p.Scale)
	}
	return out
}

// Place maps a local point into the shape frame: scale, rotate, translate.
func Place(local, position, rotation, scale scene.Vec3) scene.Vec3 {
	return RotateEuler(local.Mul(scale), rotation).Add(position)
}

// cubePoints spreads count points over the six faces of the unit cube.
// Each axis pair gets floor(count/3), the remainder going to the first pairs;
// each pair is then split between its negative and positive face.
func cubePoints(count int) []scene.Vec3 {
	pts := make([]scene.Vec3, 0, count)
	base, rem := count/3, count%3

	for axis := 0; axis < 3; axis++ {
		quota := base
		if axis < rem {
			quota++
		}
		neg := quota / 2
		pos := quota - neg
		pts = appendFace(pts, axis, -cubeHalf, neg)
		pts = appendFace(pts, axis, cubeHalf, pos)
	}
	return pts
}

// appendFace tiles one cube face with a near-square grid of count cell centers.
func appendFace(pts []scene.Vec3, axis int, fixed float64, count int) []scene.Vec3 {
	if count <= 0 {
		return pts
	}

	rows := int(math.Round(math.Sqrt(float64(count))))
	if rows < 1 {
		rows = 1
	}
	cols, extra := count/rows, count%rows

	for r := 0; r < rows; r++ {
		n := cols
		if r < extra {
			n++
		}
		v := (float64(r)+0.5)/float64(rows) - 0.5
		for c := 0; c < n; c++ {
			u := (float64(c)+0.5)/float64(n) - 0.5
			pts = append(pts, facePoint(axis, fixed, u, v))
		}
	}
	return pts
}

func facePoint(axis int, fixed, u, v float64) scene.Vec3 {
	switch axis {
	case 0:
		return scene.Vec3{X: fixed, Y: u, Z: v}
	case 1:
		return scene.Vec3{X: u, Y: fixed, Z: v}
	default:
		return scene.Vec3{X: u, Y: v, Z: fixed}
	}
}

func spherePoints(count int, radius float64) []scene.Vec3 {
	pts := make([]scene.Vec3, count)
	for i := 0; i < count; i++ {
		t := float64(i) / float64(count)
		inclination := math.Acos(1 - 2*t)
		azimuth := float64(i) * 2 * math.Pi / goldenRatio
		pts[i] = scene.Vec3{
			X: math.Sin(inclination) * math.Cos(azimuth) * radius,
			Y: math.Sin(inclination) * math.Sin(azimuth) * radius,
			Z: math.Cos(inclination) * radius,
		}
	}
	return pts
}

func circlePoints(count int, radius float64) []scene.Vec3 {
	pts := make([]scene.Vec3, count)
	for i := 0; i < count; i++ {
		angle := float64(i) * 2 * math.Pi / float64(count)
		pts[i] = scene.Vec3{X: math.Cos(angle) * radius, Z: math.Sin(angle) * radius}
	}
	return pts
}

func linePoints(count int, length float64) []scene.Vec3 {
	pts := make([]scene.Vec3, count)
	for i := 0; i < count; i++ {
		t := 0.5
		if count > 1 {
			t = float64(i) / float64(count-1)
		}
		pts[i] = scene.Vec3{X: -length/2 + t*length}
	}
	return pts
}
