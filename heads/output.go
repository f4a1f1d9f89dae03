// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heads

import (
	"github.com/emer/etable/etensor"
	"github.com/emer/qnet/tsr"
)

// Output is the result of a head forward pass.  Every variant exposes
// point values for action selection; the distributional variants carry
// the extra tensors their losses need.  Outputs are never modified after
// they are returned.
type Output interface {
	// Kind returns the representation that produced the output
	Kind() Kinds

	// QValues returns the point value per action, [N, A] (or [T, B, A]
	// after Leading)
	QValues() *etensor.Float32

	// Leading splits the leading axis N of every tensor into (d0, d1),
	// used to restore the time and batch axes of recurrent outputs.
	Leading(d0, d1 int) (Output, error)
}

// PointOutput holds one value per action.
type PointOutput struct {
	Q *etensor.Float32
}

func (po *PointOutput) Kind() Kinds               { return Point }
func (po *PointOutput) QValues() *etensor.Float32 { return po.Q }

func (po *PointOutput) Leading(d0, d1 int) (Output, error) {
	q, err := tsr.Expand2(po.Q, d0, d1)
	if err != nil {
		return nil, err
	}
	return &PointOutput{Q: q}, nil
}

// CategoricalOutput holds the per-atom logits [N, A, K] and the expected
// value per action.  Logits are kept raw so losses can use a stable
// log-softmax.
type CategoricalOutput struct {
	Q      *etensor.Float32
	Logits *etensor.Float32
}

func (co *CategoricalOutput) Kind() Kinds               { return Categorical }
func (co *CategoricalOutput) QValues() *etensor.Float32 { return co.Q }

// Probs returns the softmax of Logits over the atom axis.
func (co *CategoricalOutput) Probs() *etensor.Float32 {
	return tsr.Softmax(co.Logits)
}

func (co *CategoricalOutput) Leading(d0, d1 int) (Output, error) {
	q, err := tsr.Expand2(co.Q, d0, d1)
	if err != nil {
		return nil, err
	}
	lg, err := tsr.Expand2(co.Logits, d0, d1)
	if err != nil {
		return nil, err
	}
	return &CategoricalOutput{Q: q, Logits: lg}, nil
}

// QuantileOutput holds one value per (fraction, action), Dist [N, K, A],
// and the mean over fractions per action.
type QuantileOutput struct {
	Q    *etensor.Float32
	Dist *etensor.Float32
}

func (qo *QuantileOutput) Kind() Kinds               { return Quantile }
func (qo *QuantileOutput) QValues() *etensor.Float32 { return qo.Q }

func (qo *QuantileOutput) Leading(d0, d1 int) (Output, error) {
	q, err := tsr.Expand2(qo.Q, d0, d1)
	if err != nil {
		return nil, err
	}
	ds, err := tsr.Expand2(qo.Dist, d0, d1)
	if err != nil {
		return nil, err
	}
	return &QuantileOutput{Q: q, Dist: ds}, nil
}

// ImplicitOutput holds one value per (sample, action), Dist [N, S, A],
// the sampled fractions Taus [N, S] that produced them, and the mean
// over samples per action.
type ImplicitOutput struct {
	Q    *etensor.Float32
	Dist *etensor.Float32
	Taus *etensor.Float32
}

func (io *ImplicitOutput) Kind() Kinds               { return Implicit }
func (io *ImplicitOutput) QValues() *etensor.Float32 { return io.Q }

func (io *ImplicitOutput) Leading(d0, d1 int) (Output, error) {
	q, err := tsr.Expand2(io.Q, d0, d1)
	if err != nil {
		return nil, err
	}
	ds, err := tsr.Expand2(io.Dist, d0, d1)
	if err != nil {
		return nil, err
	}
	tu, err := tsr.Expand2(io.Taus, d0, d1)
	if err != nil {
		return nil, err
	}
	return &ImplicitOutput{Q: q, Dist: ds, Taus: tu}, nil
}
