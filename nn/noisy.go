// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/chewxy/math32"
	"github.com/emer/etable/etensor"
	"github.com/emer/qnet/tsr"
	"gonum.org/v1/gonum/stat/distuv"
)

// NoisyLinear is an affine layer with factorized Gaussian noise on its
// weights and biases (Fortunato et al, 2018):
//
//	W = WtMu + WtSig * (epsOut outer epsIn)
//	b = BiasMu + BiasSig * epsOut
//
// where eps = f(n), n ~ N(0,1), f(x) = sign(x) sqrt(|x|).  The noise
// sample is fixed until ResetNoise is called.
type NoisyLinear struct {

	// name of the layer, used for parameter names
	Name string

	// number of input units
	In int

	// number of output units
	Out int

	SigmaInit float32 `def:"0.5" desc:"initial noise scale, divided by sqrt of fan-in (weights) or fan-out (biases) -- call InitParams after changing"`

	// if false, Forward uses only the mean weights (evaluation mode)
	Noisy bool

	// mean weights [Out, In]
	WtMu *etensor.Float32

	// noise scale on weights [Out, In]
	WtSig *etensor.Float32

	// mean biases [Out]
	BiasMu *etensor.Float32

	// noise scale on biases [Out]
	BiasSig *etensor.Float32

	epsIn  []float32
	epsOut []float32
	norm   distuv.Normal
}

// NewNoisyLinear returns a NoisyLinear layer initialized from src,
// with an initial noise sample already drawn.
func NewNoisyLinear(name string, in, out int, src Source) (*NoisyLinear, error) {
	if in < 1 || out < 1 {
		return nil, tsr.Configf("noisy layer %q needs positive in and out widths, got %d -> %d", name, in, out)
	}
	if src == nil {
		return nil, tsr.Configf("noisy layer %q needs a random source", name)
	}
	nl := &NoisyLinear{Name: name, In: in, Out: out, SigmaInit: 0.5, Noisy: true}
	nl.WtMu = tsr.New(out, in)
	nl.WtSig = tsr.New(out, in)
	nl.BiasMu = tsr.New(out)
	nl.BiasSig = tsr.New(out)
	nl.epsIn = make([]float32, in)
	nl.epsOut = make([]float32, out)
	nl.norm = distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	nl.InitParams(src)
	nl.ResetNoise()
	return nl, nil
}

// InitParams sets the means to U(-1/sqrt(In), 1/sqrt(In)) and the noise
// scales to SigmaInit over sqrt of fan-in (weights) or fan-out (biases).
// It may be called again after SigmaInit is changed.
func (nl *NoisyLinear) InitParams(src Source) {
	rng := 1 / math32.Sqrt(float32(nl.In))
	un := distuv.Uniform{Min: float64(-rng), Max: float64(rng), Src: src}
	for i := range nl.WtMu.Values {
		nl.WtMu.Values[i] = float32(un.Rand())
	}
	for i := range nl.BiasMu.Values {
		nl.BiasMu.Values[i] = float32(un.Rand())
	}
	wsig := nl.SigmaInit / math32.Sqrt(float32(nl.In))
	for i := range nl.WtSig.Values {
		nl.WtSig.Values[i] = wsig
	}
	bsig := nl.SigmaInit / math32.Sqrt(float32(nl.Out))
	for i := range nl.BiasSig.Values {
		nl.BiasSig.Values[i] = bsig
	}
}

// scaledNoise is the factorized noise transform sign(x) sqrt(|x|).
func scaledNoise(x float32) float32 {
	if x < 0 {
		return -math32.Sqrt(-x)
	}
	return math32.Sqrt(x)
}

// ResetNoise draws a fresh factorized noise sample.
func (nl *NoisyLinear) ResetNoise() {
	for i := range nl.epsIn {
		nl.epsIn[i] = scaledNoise(float32(nl.norm.Rand()))
	}
	for i := range nl.epsOut {
		nl.epsOut[i] = scaledNoise(float32(nl.norm.Rand()))
	}
}

// Weights returns the effective weights and biases for the current noise
// sample, or the means if Noisy is off.
func (nl *NoisyLinear) Weights() (*etensor.Float32, []float32) {
	if !nl.Noisy {
		return nl.WtMu, nl.BiasMu.Values
	}
	w := tsr.New(nl.Out, nl.In)
	b := make([]float32, nl.Out)
	for o := 0; o < nl.Out; o++ {
		eo := nl.epsOut[o]
		off := o * nl.In
		for i, ei := range nl.epsIn {
			w.Values[off+i] = nl.WtMu.Values[off+i] + nl.WtSig.Values[off+i]*eo*ei
		}
		b[o] = nl.BiasMu.Values[o] + nl.BiasSig.Values[o]*eo
	}
	return w, b
}

func (nl *NoisyLinear) Forward(x *etensor.Float32) (*etensor.Float32, error) {
	if err := tsr.CheckRank(nl.Name+" input", x, 2, nl.In); err != nil {
		return nil, err
	}
	w, b := nl.Weights()
	return tsr.MatMulT(x, w, b)
}

// Params are all Fixed: the layer initializes itself from its source.
func (nl *NoisyLinear) Params() []*Param {
	return []*Param{
		{Name: nl.Name + ".WtMu", Tensor: nl.WtMu, FanIn: nl.In, Fixed: true},
		{Name: nl.Name + ".WtSig", Tensor: nl.WtSig, FanIn: nl.In, Fixed: true},
		{Name: nl.Name + ".BiasMu", Tensor: nl.BiasMu, FanIn: nl.In, Bias: true, Fixed: true},
		{Name: nl.Name + ".BiasSig", Tensor: nl.BiasSig, FanIn: nl.In, Bias: true, Fixed: true},
	}
}
