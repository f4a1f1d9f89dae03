// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package nn provides the layer primitives that the value networks are
assembled from: affine layers (plain and noise-injecting), ReLU, a 2D
convolution, a single-layer LSTM with explicitly threaded state, and the
feature backbones (MLP and Nature CNN) that map raw observations to a
fixed-width feature vector.

Everything is forward-only and float32.  Tensors are etensor.Float32 with
the batch on the leading axis.  Layers never retain per-call state: the
LSTM returns its new State instead of storing it, and NoisyLinear only
changes its noise sample when ResetNoise is called.
*/
package nn

import (
	"github.com/emer/etable/etensor"
	"github.com/emer/qnet/tsr"
)

// Param is one named learned parameter tensor of a layer.
type Param struct {

	// name of the parameter, prefixed with the owning layer name
	Name string

	// parameter values, shared with the layer
	Tensor *etensor.Float32

	// number of inputs feeding each output unit, used to scale initialization
	FanIn int

	// true for bias vectors
	Bias bool

	// initialized by the owning layer at construction -- Initializer skips it
	Fixed bool
}

// Parameterized is anything that owns learned parameters.
type Parameterized interface {
	// Params returns all learned parameters, in a stable order
	Params() []*Param
}

// Module is a single-input single-output layer.
type Module interface {
	Parameterized

	// Forward computes the layer output for a batch.  It returns a
	// shape error, never a partial result, if x is not a valid input.
	Forward(x *etensor.Float32) (*etensor.Float32, error)
}

// Noisy is a layer whose output depends on a resamplable noise sample.
type Noisy interface {
	// ResetNoise draws a fresh noise sample used by all later calls
	ResetNoise()
}

// NoisyLister is a container that can list its Noisy layers.
type NoisyLister interface {
	NoisyLayers() []Noisy
}

// NumParams returns the total number of parameter values in p.
func NumParams(p Parameterized) int {
	n := 0
	for _, pr := range p.Params() {
		n += len(pr.Tensor.Values)
	}
	return n
}

// NoisyLayers returns the Noisy layers in m, in order: m itself if it is
// Noisy, or its members if it is a NoisyLister.
func NoisyLayers(m any) []Noisy {
	if nl, ok := m.(NoisyLister); ok {
		return nl.NoisyLayers()
	}
	if ny, ok := m.(Noisy); ok {
		return []Noisy{ny}
	}
	return nil
}

//////////////////////////////////////////////////////////////////////////////////////
//  ReLU, Flatten

// ReLU is the rectified linear activation max(0, x).
type ReLU struct{}

func (ReLU) Params() []*Param { return nil }

func (ReLU) Forward(x *etensor.Float32) (*etensor.Float32, error) {
	return tsr.ReLU(x), nil
}

// Flatten reshapes [B, ...] into [B, prod(...)].
type Flatten struct{}

func (Flatten) Params() []*Param { return nil }

func (Flatten) Forward(x *etensor.Float32) (*etensor.Float32, error) {
	if x.NumDims() < 2 {
		return nil, tsr.Shapef("flatten needs a batch axis, got %v", x.Shapes())
	}
	return tsr.Reshape(x, x.Dim(0), -1)
}

//////////////////////////////////////////////////////////////////////////////////////
//  Sequential

// Sequential applies its modules in order.
type Sequential struct {

	// name used to prefix parameter names
	Name string

	// modules in application order
	Mods []Module
}

// NewSequential returns a Sequential of the given modules.
func NewSequential(name string, mods ...Module) *Sequential {
	return &Sequential{Name: name, Mods: mods}
}

// Add appends modules.
func (sq *Sequential) Add(mods ...Module) {
	sq.Mods = append(sq.Mods, mods...)
}

func (sq *Sequential) Forward(x *etensor.Float32) (*etensor.Float32, error) {
	var err error
	for _, m := range sq.Mods {
		x, err = m.Forward(x)
		if err != nil {
			return nil, err
		}
	}
	return x, nil
}

func (sq *Sequential) Params() []*Param {
	var ps []*Param
	for _, m := range sq.Mods {
		ps = append(ps, m.Params()...)
	}
	return ps
}

// NoisyLayers returns every Noisy module, recursing into nested containers.
func (sq *Sequential) NoisyLayers() []Noisy {
	var ns []Noisy
	for _, m := range sq.Mods {
		ns = append(ns, NoisyLayers(m)...)
	}
	return ns
}
