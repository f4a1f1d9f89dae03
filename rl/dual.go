// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rl

import (
	"github.com/emer/etable/etensor"
	"github.com/emer/qnet/nn"
	"github.com/emer/qnet/tsr"
)

// DualInputs is one call of a DualNet: the NGU inputs shared by both
// streams, and one carried state per stream (nil for zero state).
type DualInputs struct {
	Obs         *etensor.Float32
	PrevAction  *etensor.Int
	ExtReward   *etensor.Float32
	IntReward   *etensor.Float32
	PolicyIndex *etensor.Int

	// state of the extrinsic stream
	ExtState *nn.State

	// state of the intrinsic stream
	IntState *nn.State
}

// stream returns the single-stream inputs with the given state.
func (in *DualInputs) stream(st *nn.State) Inputs {
	return Inputs{Obs: in.Obs, PrevAction: in.PrevAction, ExtReward: in.ExtReward, IntReward: in.IntReward, PolicyIndex: in.PolicyIndex, State: st}
}

// DualState is the pair of independent stream states.
type DualState struct {
	Ext nn.State
	Int nn.State
}

// DualOutput is the result of a DualNet call.  Each stream state must be
// passed back only to its own stream.
type DualOutput struct {
	Ext RecurrentOutput
	Int RecurrentOutput
}

// State returns the pair of new stream states.
func (do *DualOutput) State() DualState {
	return DualState{Ext: do.Ext.State, Int: do.Int.State}
}

// DualNet is the Agent57 network: extrinsic and intrinsic value streams,
// each an NGU RecurrentNet with its own parameters and state, run over
// the same inputs.
type DualNet struct {
	Cfg Config
	Ext *RecurrentNet
	Int *RecurrentNet
}

// NewDual builds a DualNet from cf.  The intrinsic stream is seeded
// from Init.Seed+1 so the two streams start from different weights.
func NewDual(cf Config) (*DualNet, error) {
	if cf.Recurrence != DualStream {
		return nil, tsr.Configf("dual-stream network built with recurrence %v", cf.Recurrence)
	}
	if err := cf.Validate(); err != nil {
		return nil, err
	}
	ext, err := newStream(cf, cf.Name+".ext", cf.Init.Seed)
	if err != nil {
		return nil, err
	}
	itr, err := newStream(cf, cf.Name+".int", cf.Init.Seed+1)
	if err != nil {
		return nil, err
	}
	nt := &DualNet{Cfg: cf, Ext: ext, Int: itr}
	logBuild("DualNet", &cf, nt.NumParams())
	return nt, nil
}

// InitialState returns fresh zero states for both streams.  The two
// states never share storage.
func (nt *DualNet) InitialState(batch int) DualState {
	return DualState{Ext: nt.Ext.InitialState(batch), Int: nt.Int.InitialState(batch)}
}

// Forward runs both streams on the same inputs, each from its own state.
func (nt *DualNet) Forward(in DualInputs) (DualOutput, error) {
	eo, err := nt.Ext.Forward(in.stream(in.ExtState))
	if err != nil {
		return DualOutput{}, err
	}
	io, err := nt.Int.Forward(in.stream(in.IntState))
	if err != nil {
		return DualOutput{}, err
	}
	return DualOutput{Ext: eo, Int: io}, nil
}

func (nt *DualNet) Config() Config { return nt.Cfg }

func (nt *DualNet) Params() []*nn.Param {
	return append(nt.Ext.Params(), nt.Int.Params()...)
}

// ResetNoise resamples the noisy layers of both streams.
func (nt *DualNet) ResetNoise() {
	nt.Ext.ResetNoise()
	nt.Int.ResetNoise()
}

func (nt *DualNet) NumParams() int { return nn.NumParams(nt) }

func (nt *DualNet) SizeReport() string { return sizeReport(nt.Cfg.Name, nt.Params()) }
