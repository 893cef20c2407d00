package geometry

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxlayout/fxlayout/internal/scene"
)

const tol = 1e-9

func assertVecNear(t *testing.T, want, got scene.Vec3) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, "x")
	assert.InDelta(t, want.Y, got.Y, tol, "y")
	assert.InDelta(t, want.Z, got.Z, tol, "z")
}

func params(typ scene.ShapeType, count int) Params {
	return Params{
		Type:         typ,
		Position:     scene.V3(1, 2, 3),
		Rotation:     scene.V3(0.3, -0.7, 1.1),
		Scale:        scene.V3(2, 1, 0.5),
		ElementCount: count,
		Radius:       1.5,
		LineLength:   4,
	}
}

func TestGenerateCountConservation(t *testing.T) {
	types := []scene.ShapeType{scene.ShapeCube, scene.ShapeSphere, scene.ShapeCircle, scene.ShapeLine}
	counts := []int{1, 2, 3, 6, 7, 8, 20, 101, 1000}

	for _, typ := range types {
		for _, n := range counts {
			pts := Generate(params(typ, n))
			assert.Len(t, pts, n, "%s with %d elements", typ, n)
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	for _, typ := range []scene.ShapeType{scene.ShapeCube, scene.ShapeSphere, scene.ShapeCircle, scene.ShapeLine} {
		a := Generate(params(typ, 37))
		b := Generate(params(typ, 37))
		assert.Equal(t, a, b, typ)
	}
}

func TestGenerateImportedAndEmpty(t *testing.T) {
	assert.Nil(t, Generate(params(scene.ShapeImported, 10)))
	assert.Nil(t, Generate(params(scene.ShapeCube, 0)))
	assert.Nil(t, Generate(params(scene.ShapeSphere, -3)))
}

func TestCubeFacesStayOnUnitCube(t *testing.T) {
	pts := Generate(Params{Type: scene.ShapeCube, Scale: scene.One, ElementCount: 54})
	require.Len(t, pts, 54)

	for _, p := range pts {
		onFace := math.Abs(math.Abs(p.X)-0.5) < tol ||
			math.Abs(math.Abs(p.Y)-0.5) < tol ||
			math.Abs(math.Abs(p.Z)-0.5) < tol
		assert.True(t, onFace, "point %+v is not on a face", p)
		assert.LessOrEqual(t, math.Abs(p.X), 0.5+tol)
		assert.LessOrEqual(t, math.Abs(p.Y), 0.5+tol)
		assert.LessOrEqual(t, math.Abs(p.Z), 0.5+tol)
	}
}

func TestCubeSmallCountsLeaveFacesEmpty(t *testing.T) {
	// one point per axis pair, all on the positive faces
	pts := Generate(Params{Type: scene.ShapeCube, Scale: scene.One, ElementCount: 3})
	require.Len(t, pts, 3)
	assertVecNear(t, scene.V3(0.5, 0, 0), pts[0])
	assertVecNear(t, scene.V3(0, 0.5, 0), pts[1])
	assertVecNear(t, scene.V3(0, 0, 0.5), pts[2])
}

func TestCircleAndLineLayout(t *testing.T) {
	circle := Generate(Params{Type: scene.ShapeCircle, Scale: scene.One, ElementCount: 4, Radius: 2})
	require.Len(t, circle, 4)
	assertVecNear(t, scene.V3(2, 0, 0), circle[0])
	assertVecNear(t, scene.V3(0, 0, 2), circle[1])
	assertVecNear(t, scene.V3(-2, 0, 0), circle[2])

	line := Generate(Params{Type: scene.ShapeLine, Scale: scene.One, ElementCount: 3, LineLength: 4})
	require.Len(t, line, 3)
	assertVecNear(t, scene.V3(-2, 0, 0), line[0])
	assertVecNear(t, scene.V3(0, 0, 0), line[1])
	assertVecNear(t, scene.V3(2, 0, 0), line[2])

	single := Generate(Params{Type: scene.ShapeLine, Scale: scene.One, ElementCount: 1, LineLength: 4})
	require.Len(t, single, 1)
	assertVecNear(t, scene.V3(0, 0, 0), single[0])
}

func TestSphereRadius(t *testing.T) {
	pts := Generate(Params{Type: scene.ShapeSphere, Scale: scene.One, ElementCount: 50, Radius: 3})
	for _, p := range pts {
		assert.InDelta(t, 3, math.Sqrt(p.X*p.X+p.Y*p.Y+p.Z*p.Z), 1e-9)
	}
	// t = 0 is the north pole
	assertVecNear(t, scene.V3(0, 0, 3), pts[0])
}

func TestPlaceScalesRotatesThenTranslates(t *testing.T) {
	// scale x by 2, rotate 90 degrees about Z, move up by 1
	got := Place(scene.V3(1, 0, 0), scene.V3(0, 1, 0), scene.V3(0, 0, math.Pi/2), scene.V3(2, 1, 1))
	assertVecNear(t, scene.V3(0, 3, 0), got)
}

func TestRotateEulerOrder(t *testing.T) {
	// X first: (0,1,0) -> (0,0,1); then Y by 90: (0,0,1) -> (1,0,0)
	got := RotateEuler(scene.V3(0, 1, 0), scene.V3(math.Pi/2, math.Pi/2, 0))
	assertVecNear(t, scene.V3(1, 0, 0), got)

	// the reverse order would give a different answer
	assert.NotEqual(t, scene.V3(0, 0, 1), got)
}

func TestPivotHelpers(t *testing.T) {
	pivot := scene.V3(1, 1, 1)
	assertVecNear(t, scene.V3(1, 2, 1), RotateAbout(scene.V3(2, 1, 1), pivot, scene.V3(0, 0, math.Pi/2)))
	assertVecNear(t, scene.V3(3, 1, 1), ScaleAbout(scene.V3(2, 1, 1), pivot, scene.V3(2, 2, 2)))
	assertVecNear(t, scene.V3(1, 1, 0), Centroid([]scene.Vec3{scene.V3(0, 0, 0), scene.V3(2, 2, 0)}))
	assert.Equal(t, scene.Vec3{}, Centroid(nil))
}

func TestTransformPointsParallelMatchesInline(t *testing.T) {
	pts := Generate(Params{Type: scene.ShapeSphere, Scale: scene.One, ElementCount: 1000, Radius: 1})
	fn := func(p scene.Vec3) scene.Vec3 {
		return RotateAbout(p, scene.V3(0.5, 0, 0), scene.V3(0.1, 0.2, 0.3))
	}

	inline, err := TransformPoints(context.Background(), pts, fn, len(pts)+1)
	require.NoError(t, err)
	parallel, err := TransformPoints(context.Background(), pts, fn, 10)
	require.NoError(t, err)

	assert.Equal(t, inline, parallel)
}

func TestTransformPointsHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pts := make([]scene.Vec3, 500)
	_, err := TransformPoints(ctx, pts, func(p scene.Vec3) scene.Vec3 { return p }, 10)
	assert.ErrorIs(t, err, context.Canceled)
}
