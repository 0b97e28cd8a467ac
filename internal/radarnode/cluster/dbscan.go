// Package cluster implements the DBSCAN clusterer (component C): it
// labels each target in a model.TargetList with a ClusterLabel, in a
// caller-scaled 4-D space of (x, y, z, doppler).
package cluster

import "github.com/EdgeFirstAI/radarpub/internal/radarnode/model"

// Scale is the per-dimension multiplier applied to (x, y, z, doppler)
// before distance is computed. A zero component removes that dimension
// from the metric entirely.
type Scale struct {
	X, Y, Z, Doppler float32
}

// Params configures one run of DBSCAN.
type Params struct {
	Epsilon   float32
	MinPoints int
	Scale     Scale
	Mirror    bool // passed through to Target.Cartesian

	// UseGrid selects the region-query strategy. The zero value (false)
	// uses brute-force O(n^2) search; true enables the spatial-grid
	// optimization. Both produce identical labels.
	UseGrid bool
}

type point struct {
	x, y, z, d float32
}

// Cluster runs DBSCAN over list.Targets and returns one ClusterLabel per
// target, in target order. It is deterministic given the input order:
// the outer scan visits targets by ascending index, so whenever two
// cluster expansions could claim the same point, the cluster discovered
// from the lower target index wins.
func Cluster(list model.TargetList, p Params) []model.ClusterLabel {
	n := len(list.Targets)
	labels := make([]model.ClusterLabel, n)
	if n == 0 {
		return labels
	}

	pts := make([]point, n)
	for i, t := range list.Targets {
		x, y, z := t.Cartesian(p.Mirror)
		pts[i] = point{x * p.Scale.X, y * p.Scale.Y, z * p.Scale.Z, t.Doppler * p.Scale.Doppler}
	}

	query := regionQueryFunc(pts, p, n)

	const (
		unvisited = 0
		noise     = -1
	)
	state := make([]int, n) // 0=unvisited, -1=noise, >0=clusterID
	nextClusterID := 0

	for i := 0; i < n; i++ {
		if state[i] != unvisited {
			continue
		}
		neighbors := query(i)
		if len(neighbors) < p.MinPoints {
			state[i] = noise
			continue
		}
		nextClusterID++
		expand(pts, query, state, i, neighbors, nextClusterID, p.MinPoints)
	}

	for i, s := range state {
		if s > 0 {
			labels[i] = model.ClusterLabel(s)
		}
	}
	return labels
}

// expand grows clusterID outward from seedIdx using a FIFO frontier:
// the seed's neighbors first, then each core point's not-yet-queued
// neighbors appended in the order they are found, so the result depends
// only on target order, never on map iteration.
func expand(pts []point, query func(int) []int, state []int, seedIdx int, neighbors []int, clusterID, minPoints int) {
	state[seedIdx] = clusterID

	frontier := append([]int{}, neighbors...)
	queued := make(map[int]bool, len(neighbors))
	for _, idx := range neighbors {
		queued[idx] = true
	}

	for j := 0; j < len(frontier); j++ {
		idx := frontier[j]
		if state[idx] == -1 {
			state[idx] = clusterID // noise reclassified as a border point
		}
		if state[idx] != 0 {
			continue
		}
		state[idx] = clusterID

		more := query(idx)
		if len(more) >= minPoints {
			for _, m := range more {
				if !queued[m] {
					queued[m] = true
					frontier = append(frontier, m)
				}
			}
		}
	}
}

func dist2(a, b point) float32 {
	dx := a.x - b.x
	dy := a.y - b.y
	dz := a.z - b.z
	dd := a.d - b.d
	return dx*dx + dy*dy + dz*dz + dd*dd
}
