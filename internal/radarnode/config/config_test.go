package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "node.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadNodeConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"can_interface": "can0"}`)

	cfg, err := LoadNodeConfig(path)
	require.NoError(t, err)

	require.Equal(t, "can0", cfg.GetCANInterface())
	require.Equal(t, 52998, cfg.GetEthPort())
	require.False(t, cfg.GetClusteringEnabled())
	require.Equal(t, 1.0, cfg.GetClusterEpsilon())
	require.Equal(t, "/rt/radar", cfg.GetTopicPrefix())
	require.Equal(t, 77.0, cfg.GetFrequencyGHz())
}

func TestLoadNodeConfigPartialOverride(t *testing.T) {
	path := writeConfig(t, `{
		"clustering_enabled": true,
		"eth_ip": "239.0.0.1",
		"cluster_epsilon": 0.75,
		"tracker_max_age": 10,
		"topic_prefix": "/rt/front_radar"
	}`)

	cfg, err := LoadNodeConfig(path)
	require.NoError(t, err)

	require.True(t, cfg.GetClusteringEnabled())
	require.Equal(t, 0.75, cfg.GetClusterEpsilon())
	require.Equal(t, 10, cfg.GetTrackerMaxAge())
	require.Equal(t, "/rt/front_radar", cfg.GetTopicPrefix())
	// Fields left unset still fall back to their defaults.
	require.Equal(t, 3, cfg.GetClusterMinPoints())
	require.Equal(t, 3, cfg.GetTrackerMinHits())
}

func TestLoadNodeConfigRejectsNonJSONExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.txt")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))

	_, err := LoadNodeConfig(path)
	require.Error(t, err)
}

func TestLoadNodeConfigRejectsClusteringWithoutCubePath(t *testing.T) {
	path := writeConfig(t, `{"clustering_enabled": true}`)

	_, err := LoadNodeConfig(path)
	require.Error(t, err)
}

func TestPipelineConfigTranslation(t *testing.T) {
	path := writeConfig(t, `{
		"clustering_enabled": true,
		"eth_ip": "239.0.0.1",
		"cluster_epsilon": 0.5,
		"cluster_min_points": 4,
		"cluster_param_scale": [1, 1, 0, 2],
		"tracker_min_hits": 2,
		"mirror": true
	}`)

	cfg, err := LoadNodeConfig(path)
	require.NoError(t, err)

	pcfg := cfg.PipelineConfig()
	require.True(t, pcfg.ClusteringEnabled)
	require.True(t, pcfg.Mirror)
	require.Equal(t, float32(0.5), pcfg.Cluster.Epsilon)
	require.Equal(t, 4, pcfg.Cluster.MinPoints)
	require.Equal(t, float32(0), pcfg.Cluster.Scale.Z)
	require.Equal(t, float32(2), pcfg.Cluster.Scale.Doppler)
	require.Equal(t, 2, pcfg.Tracker.MinHits)
}
