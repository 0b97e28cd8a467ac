package cluster

import "sort"

// regionQueryFunc returns a closure mapping a point index to the sorted
// list of point indices within Epsilon of it (inclusive of itself). The
// brute-force and grid implementations must return identical results;
// the grid is purely a performance optimization, per the contract that
// it must not affect determinism.
func regionQueryFunc(pts []point, p Params, n int) func(int) []int {
	eps2 := p.Epsilon * p.Epsilon
	if !p.UseGrid || p.Epsilon <= 0 {
		return func(i int) []int {
			out := make([]int, 0, 8)
			for j := 0; j < n; j++ {
				if dist2(pts[i], pts[j]) <= eps2 {
					out = append(out, j)
				}
			}
			return out
		}
	}

	idx := newGrid(pts, p.Epsilon)
	return func(i int) []int {
		cand := idx.candidates(pts[i])
		out := make([]int, 0, len(cand))
		for _, j := range cand {
			if dist2(pts[i], pts[j]) <= eps2 {
				out = append(out, j)
			}
		}
		sort.Ints(out)
		return out
	}
}

// grid buckets points into cells of side Epsilon across the 4 scaled
// dimensions, so a region query only needs to scan the 3^4 neighboring
// cells instead of every point.
type grid struct {
	cellSize float32
	buckets  map[[4]int64][]int
}

func newGrid(pts []point, cellSize float32) *grid {
	g := &grid{cellSize: cellSize, buckets: make(map[[4]int64][]int, len(pts))}
	for i, pt := range pts {
		key := g.cellKey(pt)
		g.buckets[key] = append(g.buckets[key], i)
	}
	return g
}

func (g *grid) cellKey(p point) [4]int64 {
	return [4]int64{
		cellCoord(p.x, g.cellSize),
		cellCoord(p.y, g.cellSize),
		cellCoord(p.z, g.cellSize),
		cellCoord(p.d, g.cellSize),
	}
}

func cellCoord(v, cellSize float32) int64 {
	if cellSize == 0 {
		return 0
	}
	f := v / cellSize
	i := int64(f)
	if f < 0 && float32(i) != f {
		i--
	}
	return i
}

func (g *grid) candidates(p point) []int {
	base := g.cellKey(p)
	var out []int
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				for dw := int64(-1); dw <= 1; dw++ {
					key := [4]int64{base[0] + dx, base[1] + dy, base[2] + dz, base[3] + dw}
					out = append(out, g.buckets[key]...)
				}
			}
		}
	}
	return out
}
