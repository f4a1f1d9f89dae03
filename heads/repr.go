// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package heads turns a batch of feature vectors into action-value
estimates.  A Head combines one output representation (Repr: Point,
Categorical, Quantile or Implicit) with an advantage path and, when
dueling, a value path whose outputs are merged by Combine.  The same
Head serves feed-forward and recurrent networks: recurrent callers
flatten time and batch into the leading axis and restore them with
Output.Leading.
*/
package heads

import (
	"github.com/emer/etable/etensor"
	"github.com/emer/qnet/nn"
	"github.com/emer/qnet/tsr"
)

// Prepared is the input of the head paths for one call, as produced by
// Repr.Prepare.
type Prepared struct {

	// path input [M, D], M = N for fixed representations, N*S for Implicit
	X *etensor.Float32

	// number of feature rows, N
	N int

	// sampled quantile fractions [N, S], Implicit only
	Taus *etensor.Float32
}

// Repr is one output representation strategy.
type Repr interface {
	nn.Parameterized

	Kind() Kinds

	// NumActions returns the action count A
	NumActions() int

	// OutWidth returns the width of the advantage (or only) path output
	OutWidth() int

	// ValWidth returns the width of the dueling value path output
	ValWidth() int

	// Prepare maps features [N, D] to the path input.  samples is the
	// Implicit sample count, with 0 meaning the default.  Other
	// representations ignore it.
	Prepare(feat *etensor.Float32, samples int) (*Prepared, error)

	// Finish shapes the path outputs into an Output.  val is nil unless
	// dueling.
	Finish(adv, val *etensor.Float32, pr *Prepared) (Output, error)
}

func checkActions(nAct int) error {
	if nAct < 1 {
		return tsr.Configf("action count must be a positive integer, got %d", nAct)
	}
	return nil
}

// identity is the Prepare of fixed representations.
func identity(feat *etensor.Float32) *Prepared {
	return &Prepared{X: feat, N: feat.Dim(0)}
}

//////////////////////////////////////////////////////////////////////////////////////
//  Point

// PointRepr is the Point representation.
type PointRepr struct {
	NAct int
}

// NewPoint returns a Point representation for nAct actions.
func NewPoint(nAct int) (*PointRepr, error) {
	if err := checkActions(nAct); err != nil {
		return nil, err
	}
	return &PointRepr{NAct: nAct}, nil
}

func (pr *PointRepr) Kind() Kinds         { return Point }
func (pr *PointRepr) NumActions() int     { return pr.NAct }
func (pr *PointRepr) OutWidth() int       { return pr.NAct }
func (pr *PointRepr) ValWidth() int       { return 1 }
func (pr *PointRepr) Params() []*nn.Param { return nil }

func (pr *PointRepr) Prepare(feat *etensor.Float32, samples int) (*Prepared, error) {
	return identity(feat), nil
}

func (pr *PointRepr) Finish(adv, val *etensor.Float32, pp *Prepared) (Output, error) {
	if val == nil {
		return &PointOutput{Q: adv}, nil
	}
	q, err := Combine(adv, val, 1)
	if err != nil {
		return nil, err
	}
	return &PointOutput{Q: q}, nil
}

//////////////////////////////////////////////////////////////////////////////////////
//  Categorical

// CategoricalRepr is the Categorical (C51) representation over a fixed
// support of atoms.
type CategoricalRepr struct {
	NAct int

	// support values, one per atom
	Atoms []float32
}

// NewCategorical returns a Categorical representation for nAct actions
// over the given 1-D support.
func NewCategorical(nAct int, atoms *etensor.Float32) (*CategoricalRepr, error) {
	if err := checkActions(nAct); err != nil {
		return nil, err
	}
	if atoms == nil || atoms.NumDims() != 1 || atoms.Len() < 1 {
		var shp []int
		if atoms != nil {
			shp = atoms.Shapes()
		}
		return nil, tsr.Configf("categorical support must be a non-empty 1-D sequence, got shape %v", shp)
	}
	return &CategoricalRepr{NAct: nAct, Atoms: append([]float32(nil), atoms.Values...)}, nil
}

func (cr *CategoricalRepr) Kind() Kinds         { return Categorical }
func (cr *CategoricalRepr) NumActions() int     { return cr.NAct }
func (cr *CategoricalRepr) OutWidth() int       { return cr.NAct * len(cr.Atoms) }
func (cr *CategoricalRepr) ValWidth() int       { return len(cr.Atoms) }
func (cr *CategoricalRepr) Params() []*nn.Param { return nil }

func (cr *CategoricalRepr) Prepare(feat *etensor.Float32, samples int) (*Prepared, error) {
	return identity(feat), nil
}

func (cr *CategoricalRepr) Finish(adv, val *etensor.Float32, pp *Prepared) (Output, error) {
	k := len(cr.Atoms)
	logits, err := tsr.Reshape(adv, pp.N, cr.NAct, k)
	if err != nil {
		return nil, err
	}
	if val != nil {
		v, err := tsr.Reshape(val, pp.N, 1, k)
		if err != nil {
			return nil, err
		}
		if logits, err = Combine(logits, v, 1); err != nil {
			return nil, err
		}
	}
	q, err := tsr.SumProdLast(tsr.Softmax(logits), cr.Atoms)
	if err != nil {
		return nil, err
	}
	return &CategoricalOutput{Q: q, Logits: logits}, nil
}

//////////////////////////////////////////////////////////////////////////////////////
//  Quantile

// QuantileRepr is the Quantile Regression representation over fixed
// quantile fractions.
type QuantileRepr struct {
	NAct int

	// quantile fractions, each in (0, 1)
	Taus []float32
}

// NewQuantile returns a Quantile representation for nAct actions over
// the given 1-D quantile fractions.
func NewQuantile(nAct int, taus *etensor.Float32) (*QuantileRepr, error) {
	if err := checkActions(nAct); err != nil {
		return nil, err
	}
	if taus == nil || taus.NumDims() != 1 || taus.Len() < 1 {
		var shp []int
		if taus != nil {
			shp = taus.Shapes()
		}
		return nil, tsr.Configf("quantile fractions must be a non-empty 1-D sequence, got shape %v", shp)
	}
	for i, t := range taus.Values {
		if t <= 0 || t >= 1 {
			return nil, tsr.Configf("quantile fraction %d is %v, must be in (0, 1)", i, t)
		}
	}
	return &QuantileRepr{NAct: nAct, Taus: append([]float32(nil), taus.Values...)}, nil
}

func (qr *QuantileRepr) Kind() Kinds         { return Quantile }
func (qr *QuantileRepr) NumActions() int     { return qr.NAct }
func (qr *QuantileRepr) OutWidth() int       { return qr.NAct * len(qr.Taus) }
func (qr *QuantileRepr) ValWidth() int       { return len(qr.Taus) }
func (qr *QuantileRepr) Params() []*nn.Param { return nil }

func (qr *QuantileRepr) Prepare(feat *etensor.Float32, samples int) (*Prepared, error) {
	return identity(feat), nil
}

func (qr *QuantileRepr) Finish(adv, val *etensor.Float32, pp *Prepared) (Output, error) {
	k := len(qr.Taus)
	dist, err := tsr.Reshape(adv, pp.N, k, qr.NAct)
	if err != nil {
		return nil, err
	}
	if val != nil {
		v, err := tsr.Reshape(val, pp.N, k, 1)
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
	return &QuantileOutput{Q: q, Dist: dist}, nil
}

//////////////////////////////////////////////////////////////////////////////////////
//  Supports

// LinSpace returns n evenly spaced values from vmin to vmax inclusive,
// the usual C51 support.
func LinSpace(vmin, vmax float32, n int) (*etensor.Float32, error) {
	if n < 1 {
		return nil, tsr.Configf("support size must be positive, got %d", n)
	}
	if n > 1 && vmax <= vmin {
		return nil, tsr.Configf("support range must be increasing, got [%v, %v]", vmin, vmax)
	}
	t := tsr.New(n)
	if n == 1 {
		t.Values[0] = vmin
		return t, nil
	}
	step := (vmax - vmin) / float32(n-1)
	for i := range t.Values {
		t.Values[i] = vmin + float32(i)*step
	}
	t.Values[n-1] = vmax
	return t, nil
}

// QuantileMidpoints returns the n fractions (2i+1)/(2n), i = 0..n-1.
func QuantileMidpoints(n int) (*etensor.Float32, error) {
	if n < 1 {
		return nil, tsr.Configf("quantile count must be positive, got %d", n)
	}
	t := tsr.New(n)
	for i := range t.Values {
		t.Values[i] = float32(2*i+1) / float32(2*n)
	}
	return t, nil
}
