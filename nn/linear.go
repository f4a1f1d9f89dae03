// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/emer/etable/etensor"
	"github.com/emer/qnet/tsr"
)

// Linear is an ordinary learned affine layer y = x W^T + b,
// with x [N, In] and y [N, Out].
type Linear struct {

	// name of the layer, used for parameter names
	Name string

	// number of input units
	In int

	// number of output units
	Out int

	// weights [Out, In]
	Wts *etensor.Float32

	// biases [Out]
	Bias *etensor.Float32
}

// NewLinear returns a zero-initialized Linear layer.
// Weights are set by an Initializer once the network is assembled.
func NewLinear(name string, in, out int) (*Linear, error) {
	if in < 1 || out < 1 {
		return nil, tsr.Configf("linear layer %q needs positive in and out widths, got %d -> %d", name, in, out)
	}
	ln := &Linear{Name: name, In: in, Out: out}
	ln.Wts = tsr.New(out, in)
	ln.Bias = tsr.New(out)
	return ln, nil
}

func (ln *Linear) Forward(x *etensor.Float32) (*etensor.Float32, error) {
	if err := tsr.CheckRank(ln.Name+" input", x, 2, ln.In); err != nil {
		return nil, err
	}
	return tsr.MatMulT(x, ln.Wts, ln.Bias.Values)
}

func (ln *Linear) Params() []*Param {
	return []*Param{
		{Name: ln.Name + ".Wts", Tensor: ln.Wts, FanIn: ln.In},
		{Name: ln.Name + ".Bias", Tensor: ln.Bias, FanIn: ln.In, Bias: true},
	}
}

// Dense returns a Linear layer or, if noisy, a NoisyLinear layer
// drawing its noise from src.
func Dense(name string, in, out int, noisy bool, src Source) (Module, error) {
	var m Module
	var err error
	if noisy {
		m, err = NewNoisyLinear(name, in, out, src)
	} else {
		m, err = NewLinear(name, in, out)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}
