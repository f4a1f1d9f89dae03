// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rl

import (
	"github.com/emer/etable/etensor"
	"github.com/emer/qnet/heads"
	"github.com/emer/qnet/nn"
	"github.com/emer/qnet/tsr"
)

// Inputs is one call of a RecurrentNet.  Every tensor has the two
// leading axes of the network Layout: [T, B, ...] for TimeMajor,
// [B, T, ...] for BatchMajor.  Fields not used by the network AuxModes
// must be nil.  Inputs are only read.
type Inputs struct {

	// observations [T, B, *ObsShape]
	Obs *etensor.Float32

	// previous action [T, B], AuxReward and AuxNGU
	PrevAction *etensor.Int

	// previous extrinsic reward [T, B], AuxReward and AuxNGU
	ExtReward *etensor.Float32

	// previous intrinsic reward [T, B], AuxNGU
	IntReward *etensor.Float32

	// policy (beta) index [T, B], AuxNGU
	PolicyIndex *etensor.Int

	// state carried from the previous call, nil for a zero state sized
	// to the batch
	State *nn.State
}

// RecurrentOutput is the result of a RecurrentNet call: values with the
// time and batch axes restored, and the state to pass to the next call.
type RecurrentOutput struct {
	Out   heads.Output
	State nn.State
}

// RecurrentNet is a single-stream recurrent network: backbone, aux
// concatenation, LSTM, head.  It never retains memory state between
// calls.
type RecurrentNet struct {
	Cfg      Config
	Backbone nn.Backbone
	LSTM     *nn.LSTM
	Head     *heads.Head
}

// NewRecurrent builds a single-stream RecurrentNet from cf.
func NewRecurrent(cf Config) (*RecurrentNet, error) {
	if cf.Recurrence != SingleStream {
		return nil, tsr.Configf("single-stream network built with recurrence %v", cf.Recurrence)
	}
	nt, err := newStream(cf, cf.Name, cf.Init.Seed)
	if err != nil {
		return nil, err
	}
	logBuild("RecurrentNet", &nt.Cfg, nt.NumParams())
	return nt, nil
}

// newStream builds one recurrent stream named name, with all random
// sources seeded from seed.
func newStream(cf Config, name string, seed uint64) (*RecurrentNet, error) {
	if err := cf.Validate(); err != nil {
		return nil, err
	}
	if cf.Recurrence == FeedForward {
		return nil, tsr.Configf("recurrent network built with recurrence %v", cf.Recurrence)
	}
	cf.Name = name
	src := nn.NewSource(seed)
	bb, err := nn.NewBackbone(name+".body", cf.ObsShape)
	if err != nil {
		return nil, err
	}
	ls, err := nn.NewLSTM(name+".lstm", bb.OutFeatures()+cf.AuxWidth(), cf.LSTMHidden, cf.Layout == BatchMajor, src)
	if err != nil {
		return nil, err
	}
	hd, err := newHead(&cf, name+".head", cf.LSTMHidden, src)
	if err != nil {
		return nil, err
	}
	nt := &RecurrentNet{Cfg: cf, Backbone: bb, LSTM: ls, Head: hd}
	initWeights(&cf, nt, src)
	return nt, nil
}

// InitialState returns a zero state for the given batch size.
func (nt *RecurrentNet) InitialState(batch int) nn.State {
	return nt.LSTM.ZeroState(batch)
}

// dims returns the time and batch sizes of obs.
func (nt *RecurrentNet) dims(obs *etensor.Float32) (t, b int) {
	if nt.Cfg.Layout == BatchMajor {
		return obs.Dim(1), obs.Dim(0)
	}
	return obs.Dim(0), obs.Dim(1)
}

// checkAux verifies that exactly the fields of the aux mode are present
// with the leading shape [l0, l1].
func (nt *RecurrentNet) checkAux(in *Inputs, l0, l1 int) error {
	name := nt.Cfg.Name
	aux := nt.Cfg.Aux
	needAct := aux == AuxReward || aux == AuxNGU
	needNGU := aux == AuxNGU
	if err := checkFloat(name+" extrinsic reward", in.ExtReward, needAct, aux, l0, l1); err != nil {
		return err
	}
	if err := checkInt(name+" previous action", in.PrevAction, needAct, aux, l0, l1); err != nil {
		return err
	}
	if err := checkFloat(name+" intrinsic reward", in.IntReward, needNGU, aux, l0, l1); err != nil {
		return err
	}
	return checkInt(name+" policy index", in.PolicyIndex, needNGU, aux, l0, l1)
}

func checkFloat(what string, t *etensor.Float32, need bool, aux AuxModes, l0, l1 int) error {
	if !need {
		if t != nil {
			return tsr.Shapef("%s: not an input of aux mode %v", what, aux)
		}
		return nil
	}
	if t == nil {
		return tsr.Shapef("%s: required by aux mode %v", what, aux)
	}
	return tsr.CheckShape(what, t, l0, l1)
}

func checkInt(what string, t *etensor.Int, need bool, aux AuxModes, l0, l1 int) error {
	if !need {
		if t != nil {
			return tsr.Shapef("%s: not an input of aux mode %v", what, aux)
		}
		return nil
	}
	if t == nil {
		return tsr.Shapef("%s: required by aux mode %v", what, aux)
	}
	return tsr.CheckIntShape(what, t, l0, l1)
}

// checkState verifies that both parts of a carried state are
// [1, B, LSTMHidden] for the batch size of obs.
func (nt *RecurrentNet) checkState(st *nn.State, obs *etensor.Float32) error {
	_, nb := nt.dims(obs)
	name := nt.Cfg.Name
	if err := tsr.CheckShape(name+" hidden state", st.H, 1, nb, nt.Cfg.LSTMHidden); err != nil {
		return err
	}
	return tsr.CheckShape(name+" cell state", st.C, 1, nb, nt.Cfg.LSTMHidden)
}

// coreInput appends the aux columns to features [l0*l1, F], in the
// order features, extrinsic reward, one-hot action, then for AuxNGU
// intrinsic reward and one-hot policy index.
func (nt *RecurrentNet) coreInput(feat *etensor.Float32, in *Inputs) (*etensor.Float32, error) {
	switch nt.Cfg.Aux {
	case AuxReward, AuxNGU:
	default:
		return feat, nil
	}
	act, err := tsr.OneHot(in.PrevAction, nt.Cfg.NumActions)
	if err != nil {
		return nil, err
	}
	cols := []*etensor.Float32{feat, tsr.Column(in.ExtReward), act}
	if nt.Cfg.Aux == AuxNGU {
		beta, err := tsr.OneHot(in.PolicyIndex, nt.Cfg.NumPolicies)
		if err != nil {
			return nil, err
		}
		cols = append(cols, tsr.Column(in.IntReward), beta)
	}
	return tsr.Concat(cols...)
}

// Forward runs the network over a sequence, starting from in.State or
// a zero state.  The returned values are [T, B, ...] for TimeMajor and
// [B, T, ...] for BatchMajor.
func (nt *RecurrentNet) Forward(in Inputs) (RecurrentOutput, error) {
	obs := in.Obs
	rank := 2 + len(nt.Cfg.ObsShape)
	if err := tsr.CheckRank(nt.Cfg.Name+" observations", obs, rank, nt.Cfg.ObsShape...); err != nil {
		return RecurrentOutput{}, err
	}
	l0, l1 := obs.Dim(0), obs.Dim(1)
	if err := nt.checkAux(&in, l0, l1); err != nil {
		return RecurrentOutput{}, err
	}
	if in.State != nil {
		if err := nt.checkState(in.State, obs); err != nil {
			return RecurrentOutput{}, err
		}
	}

	flat, err := tsr.Flatten2(obs)
	if err != nil {
		return RecurrentOutput{}, err
	}
	feat, err := nt.Backbone.Forward(flat)
	if err != nil {
		return RecurrentOutput{}, err
	}
	core, err := nt.coreInput(feat, &in)
	if err != nil {
		return RecurrentOutput{}, err
	}
	seq, err := tsr.Expand2(core, l0, l1)
	if err != nil {
		return RecurrentOutput{}, err
	}
	hid, st, err := nt.LSTM.Forward(seq, in.State)
	if err != nil {
		return RecurrentOutput{}, err
	}
	hflat, err := tsr.Flatten2(hid)
	if err != nil {
		return RecurrentOutput{}, err
	}
	out, err := nt.Head.Forward(hflat)
	if err != nil {
		return RecurrentOutput{}, err
	}
	out, err = out.Leading(l0, l1)
	if err != nil {
		return RecurrentOutput{}, err
	}
	return RecurrentOutput{Out: out, State: st}, nil
}

func (nt *RecurrentNet) Config() Config { return nt.Cfg }

func (nt *RecurrentNet) Params() []*nn.Param {
	ps := nt.Backbone.Params()
	ps = append(ps, nt.LSTM.Params()...)
	return append(ps, nt.Head.Params()...)
}

func (nt *RecurrentNet) ResetNoise() { nt.Head.ResetNoise() }

func (nt *RecurrentNet) NumParams() int { return nn.NumParams(nt) }

func (nt *RecurrentNet) SizeReport() string { return sizeReport(nt.Cfg.Name, nt.Params()) }
