package config

import (
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/cluster"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/pipeline"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/track"
)

// PipelineConfig translates a loaded NodeConfig into the orchestrator's
// own Config shape, applying every default the Get* accessors carry.
func (c *NodeConfig) PipelineConfig() pipeline.Config {
	scale := c.GetClusterParamScale()
	sensorTF := c.GetSensorTransform()

	cfg := pipeline.DefaultConfig()
	cfg.FrameID = c.GetFrameID()
	cfg.TopicPrefix = c.GetTopicPrefix()
	cfg.Mirror = c.GetMirror()
	cfg.CenterDoppler = c.GetCenterDoppler()
	cfg.ClusteringEnabled = c.GetClusteringEnabled()
	cfg.Cluster = cluster.Params{
		Epsilon:   float32(c.GetClusterEpsilon()),
		MinPoints: c.GetClusterMinPoints(),
		Scale: cluster.Scale{
			X:       float32(scale[0]),
			Y:       float32(scale[1]),
			Z:       float32(scale[2]),
			Doppler: float32(scale[3]),
		},
		Mirror: c.GetMirror(),
	}
	defaults := track.DefaultConfig()
	cfg.Tracker = track.Config{
		MinHits:               c.GetTrackerMinHits(),
		MaxAge:                c.GetTrackerMaxAge(),
		MaxLost:               c.GetTrackerMaxLost(),
		GatingDistanceSquared: float32(c.GetGatingDistance()),
		ProcessNoisePos:       defaults.ProcessNoisePos,
		ProcessNoiseVel:       defaults.ProcessNoiseVel,
		MeasurementNoise:      defaults.MeasurementNoise,
	}
	cfg.RadarInfo = pipeline.RadarInfoConfig{
		FrequencyGHz:     float32(c.GetFrequencyGHz()),
		MaxRangeM:        float32(c.GetMaxRangeM()),
		RangeResolutionM: float32(c.GetRangeResolutionM()),
	}
	cfg.StaticTF = pipeline.StaticTFConfig{
		ChildFrameID: sensorTF.ChildFrameID,
		TX:           sensorTF.TX,
		TY:           sensorTF.TY,
		TZ:           sensorTF.TZ,
		QX:           sensorTF.QX,
		QY:           sensorTF.QY,
		QZ:           sensorTF.QZ,
		QW:           sensorTF.QW,
	}
	return cfg
}
