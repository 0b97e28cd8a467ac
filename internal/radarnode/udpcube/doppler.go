package udpcube

import "github.com/EdgeFirstAI/radarpub/internal/radarnode/model"

// CenterDoppler re-centers the doppler axis (the cube's fourth, fastest-
// varying dimension) of a fully assembled cube around zero velocity,
// rather than leaving it in the sensor's raw FFT bin order (0..N/2-1
// positive, N/2..N-1 negative wrapping around). It is an fftshift
// along that one axis, applied once at emission time so the
// Idle/Collecting state machine itself never has to know about it.
//
// Cube.Samples is unaffected by anything other than the reorder: each
// (chirp, range, channel) vector of doppler bins is rotated by half
// its length, two int16s (real, imag) moving together per bin.
func CenterDoppler(cube *model.RadarCube) {
	dopplerBins := cube.Shape[3]
	if dopplerBins <= 1 {
		return
	}
	half := dopplerBins / 2
	vectors := cube.Shape[0] * cube.Shape[1] * cube.Shape[2]

	scratch := make([]int16, dopplerBins*2)
	for v := 0; v < vectors; v++ {
		base := v * dopplerBins * 2
		vec := cube.Samples[base : base+dopplerBins*2]
		copy(scratch, vec)
		for d := 0; d < dopplerBins; d++ {
			src := (d + half) % dopplerBins
			vec[d*2] = scratch[src*2]
			vec[d*2+1] = scratch[src*2+1]
		}
	}
}
