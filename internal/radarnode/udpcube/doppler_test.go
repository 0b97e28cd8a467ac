package udpcube

import (
	"testing"

	"github.com/EdgeFirstAI/radarpub/internal/radarnode/model"
)

func TestCenterDopplerSwapsHalves(t *testing.T) {
	// One vector (chirp=1, range=1, channel=1), 4 doppler bins, real
	// part equal to the bin index so the reorder is easy to check.
	cube := &model.RadarCube{
		Shape: model.CubeShape{1, 1, 1, 4},
		Samples: []int16{
			0, 100, // bin 0: real=0, imag=100
			1, 101, // bin 1
			2, 102, // bin 2
			3, 103, // bin 3
		},
	}

	CenterDoppler(cube)

	want := []int16{
		2, 102,
		3, 103,
		0, 100,
		1, 101,
	}
	for i, v := range want {
		if cube.Samples[i] != v {
			t.Fatalf("Samples[%d] = %d, want %d (full: %v)", i, cube.Samples[i], v, cube.Samples)
		}
	}
}

func TestCenterDopplerMultipleVectors(t *testing.T) {
	cube := &model.RadarCube{
		Shape: model.CubeShape{1, 2, 1, 2},
		Samples: []int16{
			0, 0, 1, 0, // vector 0: bins [0,1]
			2, 0, 3, 0, // vector 1: bins [0,1]
		},
	}

	CenterDoppler(cube)

	want := []int16{
		1, 0, 0, 0,
		3, 0, 2, 0,
	}
	for i, v := range want {
		if cube.Samples[i] != v {
			t.Fatalf("Samples[%d] = %d, want %d", i, cube.Samples[i], v)
		}
	}
}

func TestCenterDopplerSingleBinIsNoop(t *testing.T) {
	cube := &model.RadarCube{
		Shape:   model.CubeShape{1, 1, 1, 1},
		Samples: []int16{7, 9},
	}
	CenterDoppler(cube)
	if cube.Samples[0] != 7 || cube.Samples[1] != 9 {
		t.Fatalf("single-bin cube should be unchanged, got %v", cube.Samples)
	}
}
