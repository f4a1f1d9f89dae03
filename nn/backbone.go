// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nn

import (
	"strconv"

	"github.com/emer/etable/etensor"
	"github.com/emer/qnet/tsr"
)

// Backbone maps a batch of raw observations [B, *InShape] to feature
// vectors [B, OutFeatures].
type Backbone interface {
	Module

	// InShape returns the shape of one observation, without the batch axis
	InShape() []int

	// OutFeatures returns the width of the feature vector
	OutFeatures() int
}

// MLP is the backbone for flat observations: In -> 64 -> 128, with ReLU
// after each layer.
type MLP struct {
	Sequential

	// observation width
	In int
}

// MLPHidden are the layer widths of the MLP backbone.
var MLPHidden = []int{64, 128}

// NewMLP returns an MLP backbone for observations of width in.
func NewMLP(name string, in int) (*MLP, error) {
	if in < 1 {
		return nil, tsr.Configf("mlp backbone needs a positive observation width, got %d", in)
	}
	ml := &MLP{In: in}
	ml.Name = name
	prv := in
	for i, w := range MLPHidden {
		ln, err := NewLinear(layerName(name, "fc", i), prv, w)
		if err != nil {
			return nil, err
		}
		ml.Add(ln, ReLU{})
		prv = w
	}
	return ml, nil
}

func (ml *MLP) InShape() []int { return []int{ml.In} }

func (ml *MLP) OutFeatures() int { return MLPHidden[len(MLPHidden)-1] }

func (ml *MLP) Forward(x *etensor.Float32) (*etensor.Float32, error) {
	if err := tsr.CheckRank(ml.Name+" observation", x, 2, ml.In); err != nil {
		return nil, err
	}
	return ml.Sequential.Forward(x)
}

// ConvSpec is one conv layer of a conv backbone.
type ConvSpec struct {
	Filters int
	Kernel  int
	Stride  int
}

// NatureConvs are the conv layers of the Nature DQN backbone.
var NatureConvs = []ConvSpec{{32, 8, 4}, {64, 4, 2}, {64, 3, 1}}

// NatureCNN is the Nature DQN conv backbone over [B, C, H, W] images:
// three ReLU conv layers, flattened.  Pixels are multiplied by Scale
// first.
type NatureCNN struct {
	Sequential

	Scale float32 `def:"0.00392156862745098" desc:"input scaling, 1/255 for byte-valued pixels"`

	// channels, height, width of one observation
	Image [3]int

	outFeat int
}

// NewNatureCNN returns a NatureCNN backbone for [c, h, w] observations.
func NewNatureCNN(name string, c, h, w int) (*NatureCNN, error) {
	if c < 1 || h < 1 || w < 1 {
		return nil, tsr.Configf("conv backbone needs a positive [C, H, W] image shape, got [%d, %d, %d]", c, h, w)
	}
	nc := &NatureCNN{Scale: 1.0 / 255.0, Image: [3]int{c, h, w}}
	nc.Name = name
	ch, oh, ow := c, h, w
	for i, cs := range NatureConvs {
		cv, err := NewConv2D(layerName(name, "conv", i), ch, cs.Filters, cs.Kernel, cs.Stride)
		if err != nil {
			return nil, err
		}
		oh, ow = cv.OutSize(oh), cv.OutSize(ow)
		if oh < 1 || ow < 1 {
			return nil, tsr.Configf("conv backbone: image [%d, %d, %d] is too small for conv layer %d", c, h, w, i)
		}
		nc.Add(cv, ReLU{})
		ch = cs.Filters
	}
	nc.Add(Flatten{})
	nc.outFeat = ch * oh * ow
	return nc, nil
}

func (nc *NatureCNN) InShape() []int { return nc.Image[:] }

func (nc *NatureCNN) OutFeatures() int { return nc.outFeat }

func (nc *NatureCNN) Forward(x *etensor.Float32) (*etensor.Float32, error) {
	if err := tsr.CheckRank(nc.Name+" observation", x, 4, nc.Image[:]...); err != nil {
		return nil, err
	}
	xs := tsr.New(x.Shapes()...)
	for i, v := range x.Values {
		xs.Values[i] = v * nc.Scale
	}
	return nc.Sequential.Forward(xs)
}

// NewBackbone returns an MLP for rank-1 observation shapes and a
// NatureCNN for rank-3 [C, H, W] shapes.
func NewBackbone(name string, obs []int) (Backbone, error) {
	var bb Backbone
	var err error
	switch len(obs) {
	case 1:
		bb, err = NewMLP(name, obs[0])
	case 3:
		bb, err = NewNatureCNN(name, obs[0], obs[1], obs[2])
	default:
		return nil, tsr.Configf("observation shape must be [D] or [C, H, W], got %v", obs)
	}
	if err != nil {
		return nil, err
	}
	return bb, nil
}

func layerName(base, kind string, i int) string {
	return base + "." + kind + strconv.Itoa(i)
}
