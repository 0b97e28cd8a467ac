package track

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// stateDim is the dimension of the constant-velocity state vector
// [cx, cy, a, h, vcx, vcy, va, vh].
const stateDim = 8

// measDim is the dimension of the observable subset [cx, cy, a, h].
const measDim = 4

// measurement is one cluster centroid observation.
type measurement struct {
	cx, cy, a, h float32
}

// kalmanState is the 8-state constant-velocity filter backing one
// track. x is 8x1, p is 8x8; both are owned exclusively by the track
// that holds them.
type kalmanState struct {
	x *mat.VecDense
	p *mat.Dense
}

// noiseParams mirrors the teacher's tracker:
// process noise is diagonal, scaled by the current state magnitude;
// measurement noise is diagonal over the observable subset.
type noiseParams struct {
	ProcessNoisePos float64
	ProcessNoiseVel float64
	MeasurementNoise float64
}

func newKalmanState(cx, cy, a, h float32) *kalmanState {
	x := mat.NewVecDense(stateDim, []float64{float64(cx), float64(cy), float64(a), float64(h), 0, 0, 0, 0})
	p := mat.NewDense(stateDim, stateDim, nil)
	for i := 0; i < 4; i++ {
		p.Set(i, i, 10)
	}
	for i := 4; i < stateDim; i++ {
		p.Set(i, i, 1)
	}
	return &kalmanState{x: x, p: p}
}

// predict advances the state by dt seconds under a constant-velocity
// transition: position/aspect/height block gains dt times the
// corresponding velocity block. Process noise is diagonal, scaled by
// the magnitude of the predicted state, per the constant-velocity model
// the spec mandates.
func (k *kalmanState) predict(dt float64, noise noiseParams) {
	f := mat.NewDense(stateDim, stateDim, nil)
	for i := 0; i < stateDim; i++ {
		f.Set(i, i, 1)
	}
	for i := 0; i < 4; i++ {
		f.Set(i, i+4, dt)
	}

	var newX mat.VecDense
	newX.MulVec(f, k.x)
	k.x = &newX

	var fp, fpft mat.Dense
	fp.Mul(f, k.p)
	fpft.Mul(&fp, f.T())

	for i := 0; i < 4; i++ {
		scale := 1.0 + math.Abs(k.x.AtVec(i))
		fpft.Set(i, i, fpft.At(i, i)+noise.ProcessNoisePos*scale)
	}
	for i := 4; i < stateDim; i++ {
		scale := 1.0 + math.Abs(k.x.AtVec(i))
		fpft.Set(i, i, fpft.At(i, i)+noise.ProcessNoiseVel*scale)
	}
	k.p = &fpft
}

// gate computes the squared Mahalanobis distance between this track's
// current prediction and a candidate measurement, for use as a Hungarian
// assignment cost entry.
func (k *kalmanState) gate(m measurement, measurementNoise float64) float32 {
	h := measurementMatrix()
	s := innovationCovariance(k.p, h, measurementNoise)

	y := innovation(k.x, m)

	var sInv mat.Dense
	if err := sInv.Inverse(s); err != nil {
		return float32(1e18)
	}

	var sy mat.VecDense
	sy.MulVec(&sInv, y)
	d2 := mat.Dot(y, &sy)
	return float32(d2)
}

// update applies the Kalman correction in Joseph form, which keeps the
// posterior covariance numerically symmetric under repeated updates.
func (k *kalmanState) update(m measurement, measurementNoise float64) {
	h := measurementMatrix()
	s := innovationCovariance(k.p, h, measurementNoise)
	y := innovation(k.x, m)

	var sInv mat.Dense
	if err := sInv.Inverse(s); err != nil {
		return
	}

	var pht, kGain mat.Dense
	pht.Mul(k.p, h.T())
	kGain.Mul(&pht, &sInv)

	var ky mat.VecDense
	ky.MulVec(&kGain, y)
	var newX mat.VecDense
	newX.AddVec(k.x, &ky)
	k.x = &newX

	ident := mat.NewDense(stateDim, stateDim, nil)
	for i := 0; i < stateDim; i++ {
		ident.Set(i, i, 1)
	}
	var kh, imkh mat.Dense
	kh.Mul(&kGain, h)
	imkh.Sub(ident, &kh)

	var imkhP, imkhPImkhT mat.Dense
	imkhP.Mul(&imkh, k.p)
	imkhPImkhT.Mul(&imkhP, imkh.T())

	r := mat.NewDense(measDim, measDim, nil)
	for i := 0; i < measDim; i++ {
		r.Set(i, i, measurementNoise)
	}
	var kr, krkt mat.Dense
	kr.Mul(&kGain, r)
	krkt.Mul(&kr, kGain.T())

	var newP mat.Dense
	newP.Add(&imkhPImkhT, &krkt)
	k.p = &newP
}

func measurementMatrix() *mat.Dense {
	h := mat.NewDense(measDim, stateDim, nil)
	for i := 0; i < measDim; i++ {
		h.Set(i, i, 1)
	}
	return h
}

func innovationCovariance(p *mat.Dense, h *mat.Dense, measurementNoise float64) *mat.Dense {
	var hp, hpht mat.Dense
	hp.Mul(h, p)
	hpht.Mul(&hp, h.T())
	for i := 0; i < measDim; i++ {
		hpht.Set(i, i, hpht.At(i, i)+measurementNoise)
	}
	return &hpht
}

func innovation(x *mat.VecDense, m measurement) *mat.VecDense {
	return mat.NewVecDense(measDim, []float64{
		float64(m.cx) - x.AtVec(0),
		float64(m.cy) - x.AtVec(1),
		float64(m.a) - x.AtVec(2),
		float64(m.h) - x.AtVec(3),
	})
}

