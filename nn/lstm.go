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

// State is the recurrent memory of a single-layer LSTM: the hidden
// (short-term) and cell (long-term) components, each [1, B, Hidden].
// It is owned by the caller between calls.
type State struct {
	H *etensor.Float32
	C *etensor.Float32
}

// Batch returns the batch size of the state, 0 if H is missing or has
// no batch axis.
func (st *State) Batch() int {
	if st.H == nil || st.H.NumDims() < 2 {
		return 0
	}
	return st.H.Dim(1)
}

// Clone returns a deep copy of the state.
func (st *State) Clone() State {
	return State{H: tsr.Clone(st.H), C: tsr.Clone(st.C)}
}

// LSTM is a single-layer long short-term memory cell with gate order
// input, forget, cell, output.  Input is [T, B, In] (or [B, T, In] if
// BatchFirst) and output is [T, B, Hidden] in the same layout.
type LSTM struct {

	// name of the layer, used for parameter names
	Name string

	// input width
	In int

	// hidden (and cell) width
	Hidden int

	// input and output are [B, T, ...] instead of [T, B, ...]
	BatchFirst bool

	// input-to-gates weights [4*Hidden, In]
	Wih *etensor.Float32

	// hidden-to-gates weights [4*Hidden, Hidden]
	Whh *etensor.Float32

	// input-to-gates biases [4*Hidden]
	Bih *etensor.Float32

	// hidden-to-gates biases [4*Hidden]
	Bhh *etensor.Float32
}

// NewLSTM returns an LSTM with all parameters drawn from
// U(-1/sqrt(Hidden), 1/sqrt(Hidden)) using src.
func NewLSTM(name string, in, hidden int, batchFirst bool, src Source) (*LSTM, error) {
	if in < 1 || hidden < 1 {
		return nil, tsr.Configf("lstm %q needs positive input and hidden widths, got %d, %d", name, in, hidden)
	}
	if src == nil {
		return nil, tsr.Configf("lstm %q needs a random source", name)
	}
	ls := &LSTM{Name: name, In: in, Hidden: hidden, BatchFirst: batchFirst}
	ls.Wih = tsr.New(4*hidden, in)
	ls.Whh = tsr.New(4*hidden, hidden)
	ls.Bih = tsr.New(4 * hidden)
	ls.Bhh = tsr.New(4 * hidden)
	rng := float64(1 / math32.Sqrt(float32(hidden)))
	un := distuv.Uniform{Min: -rng, Max: rng, Src: src}
	for _, pr := range ls.Params() {
		for i := range pr.Tensor.Values {
			pr.Tensor.Values[i] = float32(un.Rand())
		}
	}
	return ls, nil
}

// ZeroState returns a fresh all-zero state for the given batch size.
func (ls *LSTM) ZeroState(batch int) State {
	return State{H: tsr.New(1, batch, ls.Hidden), C: tsr.New(1, batch, ls.Hidden)}
}

// Forward runs the cell over every time step of x starting from st, or
// from a zero state sized to the batch of x if st is nil.  st is not
// modified: the final state is returned as a new State.
func (ls *LSTM) Forward(x *etensor.Float32, st *State) (*etensor.Float32, State, error) {
	if err := tsr.CheckRank(ls.Name+" input", x, 3, ls.In); err != nil {
		return nil, State{}, err
	}
	var err error
	if ls.BatchFirst {
		if x, err = tsr.SwapLead(x); err != nil {
			return nil, State{}, err
		}
	}
	nt, nb := x.Dim(0), x.Dim(1)
	if st == nil {
		zs := ls.ZeroState(nb)
		st = &zs
	}
	if err := tsr.CheckShape(ls.Name+" hidden state", st.H, 1, nb, ls.Hidden); err != nil {
		return nil, State{}, err
	}
	if err := tsr.CheckShape(ls.Name+" cell state", st.C, 1, nb, ls.Hidden); err != nil {
		return nil, State{}, err
	}

	nh := ls.Hidden
	flat, err := tsr.Flatten2(x)
	if err != nil {
		return nil, State{}, err
	}
	xg, err := tsr.MatMulT(flat, ls.Wih, ls.Bih.Values)
	if err != nil {
		return nil, State{}, err
	}
	h, err := tsr.Reshape(tsr.Clone(st.H), nb, nh)
	if err != nil {
		return nil, State{}, err
	}
	c := tsr.Clone(st.C)
	out := tsr.New(nt, nb, nh)
	gates := tsr.New(nb, 4*nh)
	for t := 0; t < nt; t++ {
		copy(gates.Values, xg.Values[t*nb*4*nh:(t+1)*nb*4*nh])
		for b := 0; b < nb; b++ {
			row := gates.Values[b*4*nh : (b+1)*4*nh]
			for j := range row {
				row[j] += ls.Bhh.Values[j]
			}
		}
		tsr.AddMatMulT(gates, h, ls.Whh)
		hn := tsr.New(nb, nh)
		for b := 0; b < nb; b++ {
			g := gates.Values[b*4*nh : (b+1)*4*nh]
			cb := c.Values[b*nh : (b+1)*nh]
			hb := hn.Values[b*nh : (b+1)*nh]
			for j := 0; j < nh; j++ {
				ig := sigmoid(g[j])
				fg := sigmoid(g[nh+j])
				cg := math32.Tanh(g[2*nh+j])
				og := sigmoid(g[3*nh+j])
				cb[j] = fg*cb[j] + ig*cg
				hb[j] = og * math32.Tanh(cb[j])
			}
		}
		copy(out.Values[t*nb*nh:(t+1)*nb*nh], hn.Values)
		h = hn
	}
	hs, err := tsr.Reshape(h, 1, nb, nh)
	if err != nil {
		return nil, State{}, err
	}
	if ls.BatchFirst {
		if out, err = tsr.SwapLead(out); err != nil {
			return nil, State{}, err
		}
	}
	return out, State{H: hs, C: c}, nil
}

func sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

// Params are Fixed: the cell initializes itself at construction.
func (ls *LSTM) Params() []*Param {
	return []*Param{
		{Name: ls.Name + ".Wih", Tensor: ls.Wih, FanIn: ls.In, Fixed: true},
		{Name: ls.Name + ".Whh", Tensor: ls.Whh, FanIn: ls.Hidden, Fixed: true},
		{Name: ls.Name + ".Bih", Tensor: ls.Bih, FanIn: ls.In, Bias: true, Fixed: true},
		{Name: ls.Name + ".Bhh", Tensor: ls.Bhh, FanIn: ls.Hidden, Bias: true, Fixed: true},
	}
}
