// Package importer turns uploaded files into scene entities.
package importer

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/fxlayout/fxlayout/internal/scene"
)

const maxLineLen = 1 << 20

// ParseOBJ returns the geometric vertices ("v x y z" records) of a Wavefront
// OBJ stream in file order. Every other record and any malformed vertex line
// is skipped. An optional w component is ignored.
func ParseOBJ(r io.Reader) ([]scene.Vec3, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineLen)

	var out []scene.Vec3
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || fields[0] != "v" {
			continue
		}
		var p [3]float64
		ok := true
		for i := range p {
			f, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				ok = false
				break
			}
			p[i] = f
		}
		if ok {
			out = append(out, scene.V3(p[0], p[1], p[2]))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read obj: %w", err)
	}
	return out, nil
}

// Fit centers points on the origin and scales them uniformly so the largest
// extent equals size. Degenerate input (a single point) is only centered.
func Fit(points []scene.Vec3, size float64) []scene.Vec3 {
	if len(points) == 0 {
		return points
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		lo = scene.V3(min(lo.X, p.X), min(lo.Y, p.Y), min(lo.Z, p.Z))
		hi = scene.V3(max(hi.X, p.X), max(hi.Y, p.Y), max(hi.Z, p.Z))
	}
	center := lo.Add(hi).Scale(0.5)
	ext := hi.Sub(lo)
	largest := max(ext.X, ext.Y, ext.Z)

	factor := 1.0
	if largest > 0 && size > 0 {
		factor = size / largest
	}
	out := make([]scene.Vec3, len(points))
	for i, p := range points {
		out[i] = p.Sub(center).Scale(factor)
	}
	return out
}
