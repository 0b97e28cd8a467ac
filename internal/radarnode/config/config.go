// Package config loads the radar ingestion node's runtime configuration
// from a JSON file, using the repository's pointer-field idiom: every
// option with a sensible default is a pointer type, so a partial
// document only overrides what it specifies and every other field
// falls back through a Get* accessor.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/EdgeFirstAI/radarpub/internal/radarnode/errs"
)

// maxFileSize bounds how large a config file this loader will read,
// matching the teacher's own sanity check on tuning files.
const maxFileSize = 1 * 1024 * 1024

// NodeConfig is the root configuration for one radar ingestion node.
// Fields omitted from the JSON file retain their documented defaults.
type NodeConfig struct {
	// Sensor transports.
	CANInterface *string `json:"can_interface,omitempty"`
	EthIP        *string `json:"eth_ip,omitempty"`
	EthPort      *int    `json:"eth_port,omitempty"`

	// Clustering (component C).
	ClusteringEnabled *bool       `json:"clustering_enabled,omitempty"`
	ClusterEpsilon    *float64    `json:"cluster_epsilon,omitempty"`
	ClusterMinPoints  *int        `json:"cluster_min_points,omitempty"`
	ClusterParamScale *[4]float64 `json:"cluster_param_scale,omitempty"`

	// Tracking (component D).
	TrackerMinHits *int     `json:"tracker_min_hits,omitempty"`
	TrackerMaxAge  *int     `json:"tracker_max_age,omitempty"`
	TrackerMaxLost *int     `json:"tracker_max_lost,omitempty"`
	GatingDistance *float64 `json:"tracker_gating_distance_squared,omitempty"`

	// Outbound topics.
	TopicPrefix *string `json:"topic_prefix,omitempty"`
	FrameID     *string `json:"frame_id,omitempty"`

	// Sensor orientation and cube post-processing, carried over from
	// the original implementation's CLI flags.
	Mirror        *bool `json:"mirror,omitempty"`
	CenterDoppler *bool `json:"center_doppler,omitempty"`

	// Radar info heartbeat content.
	FrequencyGHz     *float64 `json:"frequency_ghz,omitempty"`
	MaxRangeM        *float64 `json:"max_range_m,omitempty"`
	RangeResolutionM *float64 `json:"range_resolution_m,omitempty"`

	// Static sensor-to-vehicle transform.
	SensorTransform *SensorTransform `json:"sensor_transform,omitempty"`

	// Outbound sink transport.
	SinkAddr *string `json:"sink_addr,omitempty"`

	// Optional diagnostic sidecars, none of which sit in the hot path.
	RecorderEnabled *bool   `json:"recorder_enabled,omitempty"`
	RecorderDBPath  *string `json:"recorder_db_path,omitempty"`
	IntrospectAddr  *string `json:"introspect_addr,omitempty"`
}

// SensorTransform is the fixed mounting geometry published on the
// tf_static heartbeat.
type SensorTransform struct {
	ChildFrameID string  `json:"child_frame_id"`
	TX           float64 `json:"tx"`
	TY           float64 `json:"ty"`
	TZ           float64 `json:"tz"`
	QX           float64 `json:"qx"`
	QY           float64 `json:"qy"`
	QZ           float64 `json:"qz"`
	QW           float64 `json:"qw"`
}

// EmptyNodeConfig returns a NodeConfig with every field nil. Use
// LoadNodeConfig to populate one from a file.
func EmptyNodeConfig() *NodeConfig {
	return &NodeConfig{}
}

// LoadNodeConfig reads and validates a NodeConfig from a JSON file. The
// path must end in .json and the file must be under maxFileSize, the
// same guardrails the teacher's tuning loader applies.
func LoadNodeConfig(path string) (*NodeConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, errs.Configuration("BadExtension", fmt.Errorf("config file must have .json extension, got %q", ext))
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, errs.Configuration("Stat", err)
	}
	if info.Size() > maxFileSize {
		return nil, errs.Configuration("TooLarge", fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize))
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, errs.Configuration("Read", err)
	}

	cfg := EmptyNodeConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errs.Configuration("Parse", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errs.Configuration("Validate", err)
	}
	return cfg, nil
}

// Validate checks cross-field and range constraints that the JSON
// schema itself cannot express.
func (c *NodeConfig) Validate() error {
	if c.GetClusteringEnabled() {
		if c.GetEthIP() == "" {
			return fmt.Errorf("clustering requires the cube path: eth_ip must be set")
		}
	}
	if c.EthPort != nil && (*c.EthPort <= 0 || *c.EthPort > 65535) {
		return fmt.Errorf("eth_port out of range: %d", *c.EthPort)
	}
	if c.ClusterEpsilon != nil && *c.ClusterEpsilon <= 0 {
		return fmt.Errorf("cluster_epsilon must be positive, got %f", *c.ClusterEpsilon)
	}
	if c.ClusterMinPoints != nil && *c.ClusterMinPoints < 1 {
		return fmt.Errorf("cluster_min_points must be >= 1, got %d", *c.ClusterMinPoints)
	}
	if c.TrackerMaxAge != nil && *c.TrackerMaxAge < 1 {
		return fmt.Errorf("tracker_max_age must be >= 1, got %d", *c.TrackerMaxAge)
	}
	return nil
}

// GetCANInterface returns can_interface or "" if the CAN path is disabled.
func (c *NodeConfig) GetCANInterface() string {
	if c.CANInterface == nil {
		return ""
	}
	return *c.CANInterface
}

// GetEthIP returns eth_ip or "" if the cube path is disabled.
func (c *NodeConfig) GetEthIP() string {
	if c.EthIP == nil {
		return ""
	}
	return *c.EthIP
}

// GetEthPort returns eth_port or its default.
func (c *NodeConfig) GetEthPort() int {
	if c.EthPort == nil {
		return 52998
	}
	return *c.EthPort
}

// GetClusteringEnabled returns clustering_enabled or its default (off).
func (c *NodeConfig) GetClusteringEnabled() bool {
	if c.ClusteringEnabled == nil {
		return false
	}
	return *c.ClusteringEnabled
}

// GetClusterEpsilon returns cluster_epsilon or its default.
func (c *NodeConfig) GetClusterEpsilon() float64 {
	if c.ClusterEpsilon == nil {
		return 1.0
	}
	return *c.ClusterEpsilon
}

// GetClusterMinPoints returns cluster_min_points or its default.
func (c *NodeConfig) GetClusterMinPoints() int {
	if c.ClusterMinPoints == nil {
		return 3
	}
	return *c.ClusterMinPoints
}

// GetClusterParamScale returns cluster_param_scale or its default
// (uniform, all dimensions weighted equally).
func (c *NodeConfig) GetClusterParamScale() [4]float64 {
	if c.ClusterParamScale == nil {
		return [4]float64{1, 1, 1, 1}
	}
	return *c.ClusterParamScale
}

// GetTrackerMinHits returns tracker_min_hits or its default.
func (c *NodeConfig) GetTrackerMinHits() int {
	if c.TrackerMinHits == nil {
		return 3
	}
	return *c.TrackerMinHits
}

// GetTrackerMaxAge returns tracker_max_age or its default.
func (c *NodeConfig) GetTrackerMaxAge() int {
	if c.TrackerMaxAge == nil {
		return 5
	}
	return *c.TrackerMaxAge
}

// GetTrackerMaxLost returns tracker_max_lost or its default.
func (c *NodeConfig) GetTrackerMaxLost() int {
	if c.TrackerMaxLost == nil {
		return 50
	}
	return *c.TrackerMaxLost
}

// GetGatingDistance returns the tracker's gating distance squared or
// its default.
func (c *NodeConfig) GetGatingDistance() float64 {
	if c.GatingDistance == nil {
		return 4.0
	}
	return *c.GatingDistance
}

// GetTopicPrefix returns topic_prefix or its default.
func (c *NodeConfig) GetTopicPrefix() string {
	if c.TopicPrefix == nil {
		return "/rt/radar"
	}
	return *c.TopicPrefix
}

// GetFrameID returns frame_id or its default.
func (c *NodeConfig) GetFrameID() string {
	if c.FrameID == nil {
		return "radar_link"
	}
	return *c.FrameID
}

// GetMirror returns mirror or its default (false).
func (c *NodeConfig) GetMirror() bool {
	if c.Mirror == nil {
		return false
	}
	return *c.Mirror
}

// GetCenterDoppler returns center_doppler or its default (false).
func (c *NodeConfig) GetCenterDoppler() bool {
	if c.CenterDoppler == nil {
		return false
	}
	return *c.CenterDoppler
}

// GetFrequencyGHz returns frequency_ghz or the DRVEGRD 77GHz default.
func (c *NodeConfig) GetFrequencyGHz() float64 {
	if c.FrequencyGHz == nil {
		return 77.0
	}
	return *c.FrequencyGHz
}

// GetMaxRangeM returns max_range_m or its default.
func (c *NodeConfig) GetMaxRangeM() float64 {
	if c.MaxRangeM == nil {
		return 200.0
	}
	return *c.MaxRangeM
}

// GetRangeResolutionM returns range_resolution_m or its default.
func (c *NodeConfig) GetRangeResolutionM() float64 {
	if c.RangeResolutionM == nil {
		return 0.3
	}
	return *c.RangeResolutionM
}

// GetSensorTransform returns sensor_transform or the identity transform.
func (c *NodeConfig) GetSensorTransform() SensorTransform {
	if c.SensorTransform == nil {
		return SensorTransform{ChildFrameID: "radar_link", QW: 1}
	}
	return *c.SensorTransform
}

// GetSinkAddr returns sink_addr or its default.
func (c *NodeConfig) GetSinkAddr() string {
	if c.SinkAddr == nil {
		return "127.0.0.1:9478"
	}
	return *c.SinkAddr
}

// GetRecorderEnabled returns recorder_enabled or its default (off).
func (c *NodeConfig) GetRecorderEnabled() bool {
	if c.RecorderEnabled == nil {
		return false
	}
	return *c.RecorderEnabled
}

// GetRecorderDBPath returns recorder_db_path or its default.
func (c *NodeConfig) GetRecorderDBPath() string {
	if c.RecorderDBPath == nil {
		return "radarpub-tracks.db"
	}
	return *c.RecorderDBPath
}

// GetIntrospectAddr returns introspect_addr or its default.
func (c *NodeConfig) GetIntrospectAddr() string {
	if c.IntrospectAddr == nil {
		return ":9477"
	}
	return *c.IntrospectAddr
}
