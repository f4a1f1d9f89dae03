// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heads

import (
	"github.com/chewxy/math32"
	"github.com/emer/etable/etensor"
	"github.com/emer/qnet/nn"
	"github.com/emer/qnet/tsr"
	"gonum.org/v1/gonum/stat/distuv"
)

// ImplicitRepr is the Implicit Quantile (IQN) representation.  Every
// call samples fractions tau ~ U(0, 1) per (row, sample), embeds them as
// cos(pi i tau), i = 1..Latent, through a ReLU affine layer of the
// feature width, and multiplies the embedding into the features.
type ImplicitRepr struct {
	NAct int

	// number of cosine basis functions
	Latent int

	// default number of sampled fractions per row
	Samples int

	// cosine embedding layer, Latent -> feature width
	Embed *nn.Linear

	unif distuv.Uniform
}

// NewImplicit returns an Implicit representation for nAct actions over
// features of width feat, drawing fractions from src.
func NewImplicit(nAct, feat, latent, samples int, src nn.Source) (*ImplicitRepr, error) {
	if err := checkActions(nAct); err != nil {
		return nil, err
	}
	if latent < 1 {
		return nil, tsr.Configf("implicit quantile embedding width must be a positive integer, got %d", latent)
	}
	if samples < 1 {
		return nil, tsr.Configf("implicit quantile sample count must be a positive integer, got %d", samples)
	}
	if src == nil {
		return nil, tsr.Configf("implicit quantile head needs a random source")
	}
	emb, err := nn.NewLinear("embed", latent, feat)
	if err != nil {
		return nil, err
	}
	ir := &ImplicitRepr{NAct: nAct, Latent: latent, Samples: samples, Embed: emb}
	ir.unif = distuv.Uniform{Min: 0, Max: 1, Src: src}
	return ir, nil
}

func (ir *ImplicitRepr) Kind() Kinds         { return Implicit }
func (ir *ImplicitRepr) NumActions() int     { return ir.NAct }
func (ir *ImplicitRepr) OutWidth() int       { return ir.NAct }
func (ir *ImplicitRepr) ValWidth() int       { return 1 }
func (ir *ImplicitRepr) Params() []*nn.Param { return ir.Embed.Params() }

// SampleTaus draws fresh fractions [n, s].
func (ir *ImplicitRepr) SampleTaus(n, s int) *etensor.Float32 {
	taus := tsr.New(n, s)
	for i := range taus.Values {
		taus.Values[i] = float32(ir.unif.Rand())
	}
	return taus
}

func (ir *ImplicitRepr) Prepare(feat *etensor.Float32, samples int) (*Prepared, error) {
	if samples <= 0 {
		samples = ir.Samples
	}
	n, d := feat.Dim(0), feat.Dim(1)
	if d != ir.Embed.Out {
		return nil, tsr.Shapef("implicit quantile features: expected width %d, got %d", ir.Embed.Out, d)
	}
	taus := ir.SampleTaus(n, samples)
	cos := tsr.New(n*samples, ir.Latent)
	for r, tau := range taus.Values {
		row := cos.Values[r*ir.Latent : (r+1)*ir.Latent]
		for i := range row {
			row[i] = math32.Cos(math32.Pi * float32(i+1) * tau)
		}
	}
	emb, err := ir.Embed.Forward(cos)
	if err != nil {
		return nil, err
	}
	emb = tsr.ReLU(emb)
	// fuse: row (b, s) of the embedding times features of b
	for b := 0; b < n; b++ {
		fv := feat.Values[b*d : (b+1)*d]
		for s := 0; s < samples; s++ {
			row := emb.Values[(b*samples+s)*d : (b*samples+s+1)*d]
			for j := range row {
				row[j] *= fv[j]
			}
		}
	}
	return &Prepared{X: emb, N: n, Taus: taus}, nil
}

func (ir *ImplicitRepr) Finish(adv, val *etensor.Float32, pp *Prepared) (Output, error) {
	s := pp.Taus.Dim(1)
	dist, err := tsr.Reshape(adv, pp.N, s, ir.NAct)
	if err != nil {
		return nil, err
	}
	if val != nil {
		v, err := tsr.Reshape(val, pp.N, s, 1)
		if err != nil {
			return nil, err
		}
		if dist, err = Combine(dist, v, 2); err != nil {
			return nil, err
		}
	}
	q, err := tsr.MeanAxis(dist, 1, false)
	if err != nil {
		return nil, err
	}
	return &ImplicitOutput{Q: q, Dist: dist, Taus: pp.Taus}, nil
}
