// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rl

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/emer/etable/etensor"
	"github.com/emer/qnet/heads"
	"github.com/emer/qnet/nn"
	"github.com/emer/qnet/tsr"
)

// difTol is the numerical difference tolerance for comparing vs. target values
const difTol = float32(1.0e-5)

// smallConfig is a small single-stream config over flat observations.
func smallConfig(aux AuxModes) Config {
	var cf Config
	cf.Defaults()
	cf.Name = "test"
	cf.ObsShape = []int{5}
	cf.NumActions = 3
	cf.Recurrence = SingleStream
	cf.Aux = aux
	cf.Dueling = true
	cf.HeadHidden = []int{8}
	cf.LSTMHidden = 8
	cf.NumPolicies = 4
	return cf
}

// seqInputs returns varied inputs with leading axes [l0, l1] for the
// given aux mode.  step shifts the values so calls differ.
func seqInputs(cf *Config, l0, l1, step int) Inputs {
	obsShp := append([]int{l0, l1}, cf.ObsShape...)
	obs := tsr.New(obsShp...)
	for i := range obs.Values {
		obs.Values[i] = float32((i*7+step*3)%13)/13 - 0.5
	}
	in := Inputs{Obs: obs}
	if cf.Aux == AuxNone {
		return in
	}
	in.PrevAction = tsr.NewInt(l0, l1)
	in.ExtReward = tsr.New(l0, l1)
	for i := range in.PrevAction.Values {
		in.PrevAction.Values[i] = (i + step) % cf.NumActions
		in.ExtReward.Values[i] = float32(i+step) * 0.25
	}
	if cf.Aux == AuxNGU {
		in.IntReward = tsr.New(l0, l1)
		in.PolicyIndex = tsr.NewInt(l0, l1)
		for i := range in.PolicyIndex.Values {
			in.IntReward.Values[i] = float32(i) * 0.1
			in.PolicyIndex.Values[i] = (i + step) % cf.NumPolicies
		}
	}
	return in
}

func dualInputs(in Inputs) DualInputs {
	return DualInputs{Obs: in.Obs, PrevAction: in.PrevAction, ExtReward: in.ExtReward, IntReward: in.IntReward, PolicyIndex: in.PolicyIndex}
}

func sameValues(a, b *etensor.Float32) bool {
	if len(a.Values) != len(b.Values) {
		return false
	}
	for i := range a.Values {
		if math32.Abs(a.Values[i]-b.Values[i]) > difTol {
			return false
		}
	}
	return true
}

func TestPresetsBuild(t *testing.T) {
	const nAct = 3
	for _, nm := range PresetNames() {
		cf, err := NewPresetConfig(nm, []int{6}, nAct)
		if err != nil {
			t.Fatalf("%s: %v", nm, err)
		}
		nt, err := New(cf)
		if err != nil {
			t.Fatalf("%s: %v", nm, err)
		}
		if nt.NumParams() <= 0 {
			t.Errorf("%s: no params", nm)
		}
		var q *etensor.Float32
		switch net := nt.(type) {
		case *Net:
			obs, _ := tsr.Reshape(seqInputs(&cf, 2, 1, 0).Obs, 2, 6)
			out, err := net.Forward(obs)
			if err != nil {
				t.Fatalf("%s: %v", nm, err)
			}
			q = out.QValues()
			if q.Dim(0) != 2 || q.Dim(1) != nAct {
				t.Errorf("%s: q shape %v", nm, q.Shapes())
			}
		case *RecurrentNet:
			ro, err := net.Forward(seqInputs(&cf, 2, 3, 0))
			if err != nil {
				t.Fatalf("%s: %v", nm, err)
			}
			q = ro.Out.QValues()
			if q.Dim(0) != 2 || q.Dim(1) != 3 || q.Dim(2) != nAct {
				t.Errorf("%s: q shape %v", nm, q.Shapes())
			}
		case *DualNet:
			do, err := net.Forward(dualInputs(seqInputs(&cf, 2, 3, 0)))
			if err != nil {
				t.Fatalf("%s: %v", nm, err)
			}
			q = do.Int.Out.QValues()
			if q.Dim(0) != 2 || q.Dim(1) != 3 || q.Dim(2) != nAct {
				t.Errorf("%s: q shape %v", nm, q.Shapes())
			}
		default:
			t.Fatalf("%s: unexpected network type %T", nm, nt)
		}
		for _, v := range q.Values {
			if math32.IsNaN(v) || math32.IsInf(v, 0) {
				t.Fatalf("%s: non-finite value %v", nm, v)
			}
		}
	}
	if _, err := NewPresetConfig("nope", []int{6}, nAct); !errors.Is(err, tsr.ErrConfig) {
		t.Errorf("expected config error for unknown preset, got %v", err)
	}
}

func TestConvPresets(t *testing.T) {
	obs := []int{1, 36, 36}
	for _, nm := range []string{"dqn", "iqn", "r2d2"} {
		cf, err := NewPresetConfig(nm, obs, 2)
		if err != nil {
			t.Fatalf("%s: %v", nm, err)
		}
		if cf.Init.Dist != nn.KaimingNormal || cf.HeadHidden[0] != 512 {
			t.Errorf("%s: conv defaults not applied: %v %v", nm, cf.Init.Dist, cf.HeadHidden)
		}
		nt, err := New(cf)
		if err != nil {
			t.Fatalf("%s: %v", nm, err)
		}
		switch net := nt.(type) {
		case *Net:
			out, err := net.Forward(tsr.New(2, 1, 36, 36))
			if err != nil {
				t.Fatalf("%s: %v", nm, err)
			}
			if q := out.QValues(); q.Dim(0) != 2 || q.Dim(1) != 2 {
				t.Errorf("%s: q shape %v", nm, q.Shapes())
			}
			if io, ok := out.(*heads.ImplicitOutput); ok && io.Taus.Dim(1) != 64 {
				t.Errorf("%s: conv sample count %v", nm, io.Taus.Shapes())
			}
		case *RecurrentNet:
			in := seqInputs(&cf, 1, 2, 0)
			ro, err := net.Forward(in)
			if err != nil {
				t.Fatalf("%s: %v", nm, err)
			}
			if ro.State.H.Dim(2) != 512 {
				t.Errorf("%s: lstm width %v", nm, ro.State.H.Shapes())
			}
		}
	}
}

func TestConfigValidate(t *testing.T) {
	mods := map[string]func(cf *Config){
		"obs rank":        func(cf *Config) { cf.ObsShape = []int{2, 2} },
		"obs dim":         func(cf *Config) { cf.ObsShape = []int{0} },
		"actions":         func(cf *Config) { cf.NumActions = 0 },
		"hidden":          func(cf *Config) { cf.HeadHidden = []int{4, -1} },
		"atoms":           func(cf *Config) { cf.Repr = heads.Categorical; cf.NumAtoms = 0 },
		"vrange":          func(cf *Config) { cf.Repr = heads.Categorical; cf.VMax = cf.VMin },
		"quantiles":       func(cf *Config) { cf.Repr = heads.Quantile; cf.NumQuantiles = 0 },
		"latent":          func(cf *Config) { cf.Repr = heads.Implicit; cf.LatentDim = 0 },
		"samples":         func(cf *Config) { cf.Repr = heads.Implicit; cf.TauSamples = 0 },
		"ff aux":          func(cf *Config) { cf.Recurrence = FeedForward },
		"dual aux":        func(cf *Config) { cf.Recurrence = DualStream },
		"lstm":            func(cf *Config) { cf.LSTMHidden = 0 },
		"policies":        func(cf *Config) { cf.Aux = AuxNGU; cf.NumPolicies = 0 },
		"unknown repr":    func(cf *Config) { cf.Repr = heads.KindsN },
		"unknown layout":  func(cf *Config) { cf.Layout = LayoutsN },
		"unknown recurse": func(cf *Config) { cf.Recurrence = RecurrencesN },
	}
	for nm, mod := range mods {
		cf := smallConfig(AuxReward)
		mod(&cf)
		if err := cf.Validate(); !errors.Is(err, tsr.ErrConfig) {
			t.Errorf("%s: expected config error, got %v", nm, err)
		}
		if _, err := New(cf); !errors.Is(err, tsr.ErrConfig) {
			t.Errorf("%s: New expected config error, got %v", nm, err)
		}
	}
	cf := smallConfig(AuxReward)
	if err := cf.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
	if _, err := NewFeedForward(cf); !errors.Is(err, tsr.ErrConfig) {
		t.Errorf("expected config error for recurrent config in NewFeedForward, got %v", err)
	}
}

func TestStateThreading(t *testing.T) {
	cf := smallConfig(AuxReward)
	nt, err := NewRecurrent(cf)
	if err != nil {
		t.Fatal(err)
	}
	first, err := nt.Forward(seqInputs(&cf, 1, 2, 0))
	if err != nil {
		t.Fatal(err)
	}
	second := seqInputs(&cf, 1, 2, 1)
	fresh, err := nt.Forward(second)
	if err != nil {
		t.Fatal(err)
	}
	second.State = &first.State
	carried, err := nt.Forward(second)
	if err != nil {
		t.Fatal(err)
	}
	if sameValues(fresh.Out.QValues(), carried.Out.QValues()) {
		t.Errorf("carried state had no effect on the output")
	}
	zs := nt.InitialState(2)
	second.State = &zs
	zero, _ := nt.Forward(second)
	if !sameValues(fresh.Out.QValues(), zero.Out.QValues()) {
		t.Errorf("nil state differs from InitialState")
	}
	for _, v := range zs.C.Values {
		if v != 0 {
			t.Fatalf("caller state was modified")
		}
	}

	// a two-step sequence equals two one-step calls threading the state
	seq := seqInputs(&cf, 2, 2, 0)
	whole, _ := nt.Forward(seq)
	s0 := Inputs{Obs: sub(seq.Obs, 0), PrevAction: subInt(seq.PrevAction, 0), ExtReward: sub(seq.ExtReward, 0)}
	s1 := Inputs{Obs: sub(seq.Obs, 1), PrevAction: subInt(seq.PrevAction, 1), ExtReward: sub(seq.ExtReward, 1)}
	o0, _ := nt.Forward(s0)
	s1.State = &o0.State
	o1, _ := nt.Forward(s1)
	q := whole.Out.QValues().Values
	if !sameValues(o1.Out.QValues(), mustFrom(q[2*3:], 1, 2, 3)) {
		t.Errorf("stepwise threading differs from a whole sequence")
	}
	if !sameValues(o1.State.H, whole.State.H) {
		t.Errorf("final states differ")
	}
}

// sub returns time step i of a [T, B, ...] tensor as [1, B, ...].
func sub(t *etensor.Float32, i int) *etensor.Float32 {
	shp := append([]int{1}, t.Shapes()[1:]...)
	n := tsr.Prod(shp)
	return mustFrom(t.Values[i*n:(i+1)*n], shp...)
}

func subInt(t *etensor.Int, i int) *etensor.Int {
	n := t.Dim(1)
	r, _ := tsr.IntFromValues(t.Values[i*n:(i+1)*n], 1, n)
	return r
}

func mustFrom(vals []float32, shp ...int) *etensor.Float32 {
	r, err := tsr.FromValues(vals, shp...)
	if err != nil {
		panic(err)
	}
	return r
}

func TestDualIndependence(t *testing.T) {
	cf := smallConfig(AuxNGU)
	cf.Recurrence = DualStream
	nt, err := NewDual(cf)
	if err != nil {
		t.Fatal(err)
	}
	st0 := nt.InitialState(2)
	if st0.Ext.H == st0.Int.H || st0.Ext.C == st0.Int.C {
		t.Fatalf("initial stream states share storage")
	}
	first, err := nt.Forward(dualInputs(seqInputs(&cf, 1, 2, 0)))
	if err != nil {
		t.Fatal(err)
	}
	st := first.State()
	if sameValues(st.Ext.H, st.Int.H) {
		t.Fatalf("streams produced identical states")
	}

	in := dualInputs(seqInputs(&cf, 1, 2, 1))
	in.ExtState, in.IntState = &st.Ext, &st.Int
	right, err := nt.Forward(in)
	if err != nil {
		t.Fatal(err)
	}
	in.ExtState, in.IntState = &st.Int, &st.Ext
	swapped, err := nt.Forward(in)
	if err != nil {
		t.Fatal(err)
	}
	if sameValues(right.Ext.Out.QValues(), swapped.Ext.Out.QValues()) {
		t.Errorf("swapping stream states had no effect on the extrinsic output")
	}

	// each stream alone gives the same result as inside the dual net
	alone, err := nt.Ext.Forward(Inputs{Obs: in.Obs, PrevAction: in.PrevAction, ExtReward: in.ExtReward, IntReward: in.IntReward, PolicyIndex: in.PolicyIndex, State: &st.Ext})
	if err != nil {
		t.Fatal(err)
	}
	if !sameValues(alone.Out.QValues(), right.Ext.Out.QValues()) {
		t.Errorf("extrinsic stream depends on the intrinsic stream")
	}
	var ds DualState
	in.ExtState, in.IntState = &ds.Ext, &ds.Int
	if _, err := nt.Forward(in); !errors.Is(err, tsr.ErrShape) {
		t.Errorf("undeclared dual state: expected shape error, got %v", err)
	}
	if nt.NumParams() != nt.Ext.NumParams()+nt.Int.NumParams() {
		t.Errorf("dual params: %v", nt.NumParams())
	}
	if nt.Ext.Head.Adv.Mods[0] == nt.Int.Head.Adv.Mods[0] {
		t.Errorf("streams share layers")
	}
}

func TestRecurrentDistributional(t *testing.T) {
	for _, kind := range []heads.Kinds{heads.Categorical, heads.Quantile, heads.Implicit} {
		cf := smallConfig(AuxNGU)
		cf.Repr = kind
		cf.NumAtoms = 5
		cf.NumQuantiles = 6
		cf.LatentDim = 4
		cf.TauSamples = 7
		nt, err := NewRecurrent(cf)
		if err != nil {
			t.Fatalf("%v: %v", kind, err)
		}
		ro, err := nt.Forward(seqInputs(&cf, 2, 3, 0))
		if err != nil {
			t.Fatalf("%v: %v", kind, err)
		}
		if q := ro.Out.QValues(); !sameShape(q, 2, 3, 3) {
			t.Errorf("%v: q shape %v", kind, q.Shapes())
		}
		switch out := ro.Out.(type) {
		case *heads.CategoricalOutput:
			if !sameShape(out.Logits, 2, 3, 3, 5) {
				t.Errorf("categorical logits %v", out.Logits.Shapes())
			}
		case *heads.QuantileOutput:
			if !sameShape(out.Dist, 2, 3, 6, 3) {
				t.Errorf("quantile dist %v", out.Dist.Shapes())
			}
		case *heads.ImplicitOutput:
			if !sameShape(out.Dist, 2, 3, 7, 3) || !sameShape(out.Taus, 2, 3, 7) {
				t.Errorf("implicit dist %v taus %v", out.Dist.Shapes(), out.Taus.Shapes())
			}
		default:
			t.Errorf("%v: unexpected output %T", kind, ro.Out)
		}
	}
}

func sameShape(t *etensor.Float32, shp ...int) bool {
	ts := t.Shapes()
	if len(ts) != len(shp) {
		return false
	}
	for i, d := range shp {
		if ts[i] != d {
			return false
		}
	}
	return true
}

func TestBatchMajor(t *testing.T) {
	cf := smallConfig(AuxNone)
	cf.Dueling = false
	cf.HeadHidden = nil
	cf.Layout = BatchMajor
	bm, err := NewRecurrent(cf)
	if err != nil {
		t.Fatal(err)
	}
	cf.Layout = TimeMajor
	tm, err := NewRecurrent(cf)
	if err != nil {
		t.Fatal(err)
	}
	bin := seqInputs(&cf, 2, 4, 0) // [B=2, T=4, D]
	bo, err := bm.Forward(bin)
	if err != nil {
		t.Fatal(err)
	}
	q := bo.Out.QValues()
	if q.Dim(0) != 2 || q.Dim(1) != 4 || q.Dim(2) != 3 {
		t.Fatalf("batch-major q shape %v", q.Shapes())
	}
	tobs, _ := tsr.SwapLead(bin.Obs)
	to, err := tm.Forward(Inputs{Obs: tobs})
	if err != nil {
		t.Fatal(err)
	}
	tq, _ := tsr.SwapLead(to.Out.QValues())
	if !sameValues(q, tq) {
		t.Errorf("batch-major values differ from time-major on transposed input")
	}
	if bo.State.Batch() != 2 || !sameValues(bo.State.H, to.State.H) {
		t.Errorf("batch-major state differs: %v", bo.State.H.Shapes())
	}
}

func TestInputValidation(t *testing.T) {
	cf := smallConfig(AuxReward)
	nt, _ := NewRecurrent(cf)

	in := seqInputs(&cf, 2, 2, 0)
	in.ExtReward = nil
	if _, err := nt.Forward(in); !errors.Is(err, tsr.ErrShape) {
		t.Errorf("missing reward: expected shape error, got %v", err)
	}
	in = seqInputs(&cf, 2, 2, 0)
	in.IntReward = tsr.New(2, 2)
	if _, err := nt.Forward(in); !errors.Is(err, tsr.ErrShape) {
		t.Errorf("unused intrinsic reward: expected shape error, got %v", err)
	}
	in = seqInputs(&cf, 2, 2, 0)
	in.PrevAction.Values[0] = cf.NumActions
	if _, err := nt.Forward(in); !errors.Is(err, tsr.ErrShape) {
		t.Errorf("action out of range: expected shape error, got %v", err)
	}
	in = seqInputs(&cf, 2, 2, 0)
	st := nt.InitialState(3)
	in.State = &st
	if _, err := nt.Forward(in); !errors.Is(err, tsr.ErrShape) {
		t.Errorf("state batch: expected shape error, got %v", err)
	}
	bad := map[string]nn.State{
		"zero value": {},
		"rank-1":     {H: tsr.New(8), C: tsr.New(8)},
		"no cell":    {H: tsr.New(1, 2, 8)},
		"width":      {H: tsr.New(1, 2, 4), C: tsr.New(1, 2, 4)},
	}
	for nm, bs := range bad {
		in = seqInputs(&cf, 2, 2, 0)
		in.State = &bs
		if _, err := nt.Forward(in); !errors.Is(err, tsr.ErrShape) {
			t.Errorf("%s state: expected shape error, got %v", nm, err)
		}
	}
	in = seqInputs(&cf, 2, 2, 0)
	in.Obs = tsr.New(2, 5)
	if _, err := nt.Forward(in); !errors.Is(err, tsr.ErrShape) {
		t.Errorf("obs rank: expected shape error, got %v", err)
	}
	in = seqInputs(&cf, 2, 2, 0)
	in.ExtReward = tsr.New(2, 3)
	if _, err := nt.Forward(in); !errors.Is(err, tsr.ErrShape) {
		t.Errorf("reward shape: expected shape error, got %v", err)
	}

	ff, _ := NewPresetConfig("dqn", []int{5}, 3)
	net, _ := NewFeedForward(ff)
	if _, err := net.Forward(tsr.New(2, 3, 5)); !errors.Is(err, tsr.ErrShape) {
		t.Errorf("feed-forward sequence: expected shape error, got %v", err)
	}
}

func TestNoisyNetwork(t *testing.T) {
	cf, err := NewPresetConfig("rainbow", []int{5}, 3)
	if err != nil {
		t.Fatal(err)
	}
	nt, err := NewFeedForward(cf)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(nt.Head.NoisyLayers()); n != 4 {
		t.Errorf("noisy layers: %v", n)
	}
	obs := seqInputs(&cf, 1, 2, 0).Obs
	obs2, _ := tsr.Reshape(obs, 2, 5)
	o1, _ := nt.Forward(obs2)
	o2, _ := nt.Forward(obs2)
	if !sameValues(o1.QValues(), o2.QValues()) {
		t.Errorf("output changed without ResetNoise")
	}
	nt.ResetNoise()
	o3, _ := nt.Forward(obs2)
	if sameValues(o1.QValues(), o3.QValues()) {
		t.Errorf("ResetNoise did not change the output")
	}
}

func TestSizeReport(t *testing.T) {
	cf := smallConfig(AuxReward)
	nt, _ := NewRecurrent(cf)
	rep := nt.SizeReport()
	for _, ly := range []string{"test.body.fc0", "test.lstm", "test.head.adv.out", "test.head.val.fc0"} {
		if !strings.Contains(rep, ly) {
			t.Errorf("report missing %s:\n%s", ly, rep)
		}
	}
	if nt.NumParams() != nn.NumParams(nt.Backbone)+nn.NumParams(nt.LSTM)+nn.NumParams(nt.Head) {
		t.Errorf("num params: %v", nt.NumParams())
	}
	in := 128 + 1 + 3
	if n := nn.NumParams(nt.LSTM); n != 4*8*in+4*8*8+2*4*8 {
		t.Errorf("lstm params: %v", n)
	}
}

func TestOpenConfig(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "net.toml")
	cfg := `Name = "cart"
ObsShape = [4]
NumActions = 2
Repr = "Quantile"
NumQuantiles = 16
Recurrence = "SingleStream"
Aux = "AuxReward"
HeadHidden = [32]

[Init]
Dist = "KaimingNormal"
Seed = 3
`
	if err := os.WriteFile(fn, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	cf, err := OpenConfig(fn)
	if err != nil {
		t.Fatal(err)
	}
	if cf.Name != "cart" || cf.Repr != heads.Quantile || cf.Recurrence != SingleStream || cf.Aux != AuxReward {
		t.Errorf("decoded: %+v", cf)
	}
	if cf.Init.Dist != nn.KaimingNormal || cf.Init.Seed != 3 || cf.LSTMHidden != 128 {
		t.Errorf("decoded init / defaults: %+v", cf)
	}
	nt, err := New(cf)
	if err != nil {
		t.Fatal(err)
	}
	ro, err := nt.(*RecurrentNet).Forward(seqInputs(&cf, 3, 2, 0))
	if err != nil {
		t.Fatal(err)
	}
	qo := ro.Out.(*heads.QuantileOutput)
	if qo.Dist.NumDims() != 4 || qo.Dist.Dim(2) != 16 || qo.Dist.Dim(3) != 2 {
		t.Errorf("recurrent quantile dist: %v", qo.Dist.Shapes())
	}

	bad := filepath.Join(t.TempDir(), "bad.toml")
	os.WriteFile(bad, []byte("Repr = \"Gaussian\"\n"), 0644)
	if _, err := OpenConfig(bad); !errors.Is(err, tsr.ErrConfig) {
		t.Errorf("expected config error, got %v", err)
	}
}
