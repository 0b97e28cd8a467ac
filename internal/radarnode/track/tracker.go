// Package track implements the ByteTrack-style tracker (component D):
// an 8-state constant-velocity Kalman filter per track, an auction-based
// minimum-cost assignment (hungarianAssign) over a Mahalanobis-gated
// cost matrix, and an explicit
// New/Tracked/Lost/Removed lifecycle with stable, never-reused IDs.
package track

import (
	"github.com/google/uuid"

	"github.com/EdgeFirstAI/radarpub/internal/radarnode/model"
)

// Config holds the tracker's tunable thresholds, named to match the
// node's configuration surface.
type Config struct {
	MinHits               int     // consecutive hits before New -> Tracked
	MaxAge                int     // consecutive misses before a Lost track is Removed
	MaxLost               int     // cap on the number of simultaneously Lost tracks retained
	GatingDistanceSquared float32 // squared Mahalanobis distance beyond which a pairing is forbidden
	ProcessNoisePos       float32
	ProcessNoiseVel       float32
	MeasurementNoise      float32
}

// DefaultConfig returns reasonable defaults for a single-sensor node.
func DefaultConfig() Config {
	return Config{
		MinHits:               3,
		MaxAge:                5,
		MaxLost:               20,
		GatingDistanceSquared: 25.0,
		ProcessNoisePos:       0.1,
		ProcessNoiseVel:       0.5,
		MeasurementNoise:      0.2,
	}
}

type track struct {
	id    model.TrackID
	state model.TrackState
	kf    *kalmanState

	hits            int
	age             int
	timeSinceUpdate int
}

// Tracker is the mutable, exclusively-owned tracking state across
// frames. It is not safe for concurrent use; the pipeline orchestrator
// is responsible for giving it single-writer access.
type Tracker struct {
	cfg    Config
	tracks []*track

	lastTimestamp uint64
	haveLast      bool
}

// NewTracker creates an empty Tracker.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// Update is a pure function over (previous state, new detections, Δt):
// it predicts every live track forward, associates clusters to tracks,
// applies corrections, ages out tracks that go too long unmatched, and
// returns a snapshot of every remaining live track. Δt is derived from
// consecutive TargetList timestamps (microseconds).
func (tr *Tracker) Update(input model.ClusteredTargetList) []model.TrackSnapshot {
	dt := 0.1
	if tr.haveLast && input.List.Timestamp > tr.lastTimestamp {
		dt = float64(input.List.Timestamp-tr.lastTimestamp) / 1e6
	}
	tr.lastTimestamp = input.List.Timestamp
	tr.haveLast = true

	noise := noiseParams{
		ProcessNoisePos:  float64(tr.cfg.ProcessNoisePos),
		ProcessNoiseVel:  float64(tr.cfg.ProcessNoiseVel),
		MeasurementNoise: float64(tr.cfg.MeasurementNoise),
	}

	for _, t := range tr.tracks {
		t.kf.predict(dt, noise)
	}

	measurements := centroids(input)

	cost := make([][]float32, len(tr.tracks))
	for i, t := range tr.tracks {
		row := make([]float32, len(measurements))
		for j, m := range measurements {
			d2 := t.kf.gate(m, float64(tr.cfg.MeasurementNoise))
			if d2 > tr.cfg.GatingDistanceSquared {
				row[j] = assignInf
			} else {
				row[j] = d2
			}
		}
		cost[i] = row
	}

	assignment := hungarianAssign(cost) // assignment[i] = measurement index matched to track i, or -1
	matchedMeasurement := make([]bool, len(measurements))
	for i, j := range assignment {
		if j >= 0 {
			matchedMeasurement[j] = true
			tr.tracks[i].kf.update(measurements[j], float64(tr.cfg.MeasurementNoise))
			tr.tracks[i].hits++
			tr.tracks[i].timeSinceUpdate = 0
		} else {
			tr.tracks[i].timeSinceUpdate++
		}
		tr.tracks[i].age++
	}

	tr.advanceLifecycles()
	tr.pruneRemoved()
	tr.capLost()

	for j, m := range measurements {
		if !matchedMeasurement[j] {
			tr.tracks = append(tr.tracks, newTrack(m))
		}
	}

	snapshots := make([]model.TrackSnapshot, 0, len(tr.tracks))
	for _, t := range tr.tracks {
		if t.state == model.TrackRemoved {
			continue
		}
		snapshots = append(snapshots, t.snapshot())
	}
	return snapshots
}

func newTrack(m measurement) *track {
	return &track{
		id:    uuid.New(),
		state: model.TrackNew,
		kf:    newKalmanState(m.cx, m.cy, m.a, m.h),
		hits:  1,
	}
}

func (tr *Tracker) advanceLifecycles() {
	for _, t := range tr.tracks {
		switch {
		case t.timeSinceUpdate > tr.cfg.MaxAge:
			t.state = model.TrackRemoved
		case t.timeSinceUpdate > 0:
			t.state = model.TrackLost
		case t.hits >= tr.cfg.MinHits:
			t.state = model.TrackTracked
		default:
			t.state = model.TrackNew
		}
	}
}

func (tr *Tracker) pruneRemoved() {
	live := tr.tracks[:0]
	for _, t := range tr.tracks {
		if t.state != model.TrackRemoved {
			live = append(live, t)
		}
	}
	tr.tracks = live
}

// capLost enforces MaxLost by removing the longest-lost tracks first
// when too many are simultaneously in the Lost state, bounding memory
// use under sustained partial occlusion.
func (tr *Tracker) capLost() {
	if tr.cfg.MaxLost <= 0 {
		return
	}
	lostCount := 0
	for _, t := range tr.tracks {
		if t.state == model.TrackLost {
			lostCount++
		}
	}
	for lostCount > tr.cfg.MaxLost {
		worst := -1
		for i, t := range tr.tracks {
			if t.state != model.TrackLost {
				continue
			}
			if worst < 0 || t.timeSinceUpdate > tr.tracks[worst].timeSinceUpdate {
				worst = i
			}
		}
		if worst < 0 {
			break
		}
		tr.tracks = append(tr.tracks[:worst], tr.tracks[worst+1:]...)
		lostCount--
	}
}

func (t *track) snapshot() model.TrackSnapshot {
	return model.TrackSnapshot{
		ID:              t.id,
		State:           t.state,
		CX:              float32(t.kf.x.AtVec(0)),
		CY:              float32(t.kf.x.AtVec(1)),
		A:               float32(t.kf.x.AtVec(2)),
		H:               float32(t.kf.x.AtVec(3)),
		VX:              float32(t.kf.x.AtVec(4)),
		VY:              float32(t.kf.x.AtVec(5)),
		VA:              float32(t.kf.x.AtVec(6)),
		VH:              float32(t.kf.x.AtVec(7)),
		Hits:            t.hits,
		Age:             t.age,
		TimeSinceUpdate: t.timeSinceUpdate,
	}
}

// centroids computes one measurement per non-noise cluster label: the
// mean Cartesian (x, y) position, an aspect scalar derived from the
// cluster's extent ratio, and a height proxy from mean elevation.
func centroids(input model.ClusteredTargetList) []measurement {
	byLabel := make(map[model.ClusterLabel][]int)
	for i, label := range input.Labels {
		if label == 0 {
			continue
		}
		byLabel[label] = append(byLabel[label], i)
	}

	labels := make([]model.ClusterLabel, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sortLabels(labels)

	out := make([]measurement, 0, len(labels))
	for _, l := range labels {
		idxs := byLabel[l]
		var sumX, sumY, sumZ float32
		minX, maxX := float32(0), float32(0)
		minY, maxY := float32(0), float32(0)
		for n, i := range idxs {
			x, y, z := input.List.Targets[i].Cartesian(false)
			sumX += x
			sumY += y
			sumZ += z
			if n == 0 || x < minX {
				minX = x
			}
			if n == 0 || x > maxX {
				maxX = x
			}
			if n == 0 || y < minY {
				minY = y
			}
			if n == 0 || y > maxY {
				maxY = y
			}
		}
		n := float32(len(idxs))
		width := maxX - minX
		length := maxY - minY
		// A length at or below minAspectExtent is float32 rounding of a
		// cluster lying along one x line, not a real extent; the aspect is
		// then 0 instead of an unbounded ratio.
		const minAspectExtent = 1e-3 // meters
		var aspect float32
		if length > minAspectExtent {
			aspect = width / length
		}
		out = append(out, measurement{
			cx: sumX / n,
			cy: sumY / n,
			a:  aspect,
			h:  sumZ / n,
		})
	}
	return out
}

func sortLabels(labels []model.ClusterLabel) {
	for i := 1; i < len(labels); i++ {
		for j := i; j > 0 && labels[j-1] > labels[j]; j-- {
			labels[j-1], labels[j] = labels[j], labels[j-1]
		}
	}
}
