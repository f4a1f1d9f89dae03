// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heads

import (
	"strconv"

	"github.com/emer/etable/etensor"
	"github.com/emer/qnet/nn"
	"github.com/emer/qnet/tsr"
)

// PathParams configure the layers of an advantage or value path.
type PathParams struct {

	// widths of hidden layers before the output layer, each followed by ReLU -- empty for a single affine output layer
	Hidden []int

	// use NoisyLinear instead of Linear for every layer of the path
	Noisy bool
}

// NewPath returns a path from in to out units: Hidden ReLU layers then
// an affine output layer.
func NewPath(name string, in, out int, pp PathParams, src nn.Source) (*nn.Sequential, error) {
	sq := nn.NewSequential(name)
	prv := in
	for i, h := range pp.Hidden {
		ly, err := nn.Dense(name+".fc"+strconv.Itoa(i), prv, h, pp.Noisy, src)
		if err != nil {
			return nil, err
		}
		sq.Add(ly, nn.ReLU{})
		prv = h
	}
	ly, err := nn.Dense(name+".out", prv, out, pp.Noisy, src)
	if err != nil {
		return nil, err
	}
	sq.Add(ly)
	return sq, nil
}

// Head maps features [N, In] to an Output through one representation,
// an advantage path and, if dueling, a value path.
type Head struct {

	// name, prefixed to path and parameter names
	Name string

	// feature width
	In int

	// output representation
	Repr Repr

	// advantage path, or the only path if not dueling
	Adv *nn.Sequential

	// value path, nil if not dueling
	Val *nn.Sequential
}

// NewHead builds a head over features of width in.
func NewHead(name string, repr Repr, in int, dueling bool, pp PathParams, src nn.Source) (*Head, error) {
	if repr == nil {
		return nil, tsr.Configf("head %q needs an output representation", name)
	}
	if in < 1 {
		return nil, tsr.Configf("head %q needs a positive feature width, got %d", name, in)
	}
	if pp.Noisy && src == nil {
		return nil, tsr.Configf("head %q has noisy paths but no random source", name)
	}
	hd := &Head{Name: name, In: in, Repr: repr}
	if ir, ok := repr.(*ImplicitRepr); ok {
		ir.Embed.Name = name + ".embed"
		if ir.Embed.Out != in {
			return nil, tsr.Configf("head %q: implicit embedding width %d does not match features %d", name, ir.Embed.Out, in)
		}
	}
	var err error
	if hd.Adv, err = NewPath(name+".adv", in, repr.OutWidth(), pp, src); err != nil {
		return nil, err
	}
	if dueling {
		if hd.Val, err = NewPath(name+".val", in, repr.ValWidth(), pp, src); err != nil {
			return nil, err
		}
	}
	return hd, nil
}

// Dueling reports whether the head has a value path.
func (hd *Head) Dueling() bool {
	return hd.Val != nil
}

// Forward maps features [N, In] to an Output, using the default sample
// count for Implicit heads.
func (hd *Head) Forward(feat *etensor.Float32) (Output, error) {
	return hd.ForwardSamples(feat, 0)
}

// ForwardSamples is Forward with an explicit Implicit sample count.
func (hd *Head) ForwardSamples(feat *etensor.Float32, samples int) (Output, error) {
	if err := tsr.CheckRank(hd.Name+" features", feat, 2, hd.In); err != nil {
		return nil, err
	}
	pr, err := hd.Repr.Prepare(feat, samples)
	if err != nil {
		return nil, err
	}
	adv, err := hd.Adv.Forward(pr.X)
	if err != nil {
		return nil, err
	}
	var val *etensor.Float32
	if hd.Val != nil {
		if val, err = hd.Val.Forward(pr.X); err != nil {
			return nil, err
		}
	}
	return hd.Repr.Finish(adv, val, pr)
}

func (hd *Head) Params() []*nn.Param {
	ps := hd.Repr.Params()
	ps = append(ps, hd.Adv.Params()...)
	if hd.Val != nil {
		ps = append(ps, hd.Val.Params()...)
	}
	return ps
}

// NoisyLayers returns every noisy layer of both paths, interleaved
// (adv 0, val 0, adv 1, val 1, ...) and then the remaining layers of
// the longer path.
func (hd *Head) NoisyLayers() []nn.Noisy {
	adv := hd.Adv.NoisyLayers()
	var val []nn.Noisy
	if hd.Val != nil {
		val = hd.Val.NoisyLayers()
	}
	ns := make([]nn.Noisy, 0, len(adv)+len(val))
	for i := 0; i < len(adv) || i < len(val); i++ {
		if i < len(adv) {
			ns = append(ns, adv[i])
		}
		if i < len(val) {
			ns = append(ns, val[i])
		}
	}
	return ns
}

// ResetNoise resamples every noisy layer of the head.
func (hd *Head) ResetNoise() {
	for _, ny := range hd.NoisyLayers() {
		ny.ResetNoise()
	}
}

// Argmax returns the greedy action for every row of point values
// [..., A], flattened over the leading axes.
func Argmax(q *etensor.Float32) ([]int, error) {
	if q == nil || q.NumDims() < 1 {
		return nil, tsr.Shapef("argmax needs point values [..., A]")
	}
	a := q.Dim(q.NumDims() - 1)
	flat, err := tsr.Reshape(q, -1, a)
	if err != nil {
		return nil, err
	}
	return tsr.Argmax(flat)
}
