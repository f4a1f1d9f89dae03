// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/chewxy/math32"
	"github.com/goki/ki/kit"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Source is the random source used for all sampling: weight init,
// layer noise and quantile fractions.  A fixed seed makes every
// stochastic operation reproducible.
type Source = rand.Source

// NewSource returns a Source seeded with seed.
func NewSource(seed uint64) Source {
	return rand.NewSource(seed)
}

// InitDists are the weight initialization distributions
type InitDists int

//go:generate stringer -type=InitDists

var KiT_InitDists = kit.Enums.AddEnum(InitDistsN, kit.NotBitFlag, nil)

func (ev InitDists) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *InitDists) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }
func (ev InitDists) MarshalText() ([]byte, error)   { return []byte(ev.String()), nil }
func (ev *InitDists) UnmarshalText(b []byte) error { return ev.FromString(string(b)) }

const (
	// UniformFanIn draws weights and biases from U(-1/sqrt(fan-in), 1/sqrt(fan-in)),
	// the default for affine layers.
	UniformFanIn InitDists = iota

	// KaimingNormal draws weights from N(0, 2/fan-in) and zeroes biases,
	// suited to ReLU conv stacks.
	KaimingNormal

	// ZeroInit sets every value to zero.
	ZeroInit

	InitDistsN
)

// Initializer sets the parameters of an assembled network, once.
// Params marked Fixed are left alone.
type Initializer interface {
	Init(p Parameterized)
}

// InitParams selects an initialization distribution and its seed.
type InitParams struct {
	Dist InitDists `def:"UniformFanIn" desc:"distribution for weights and biases"`
	Seed uint64    `def:"1" desc:"seed for the init random source"`
}

func (ip *InitParams) Defaults() {
	ip.Dist = UniformFanIn
	ip.Seed = 1
}

// Initializer returns the Initializer for Dist, drawing from src.
func (ip *InitParams) Initializer(src Source) Initializer {
	switch ip.Dist {
	case KaimingNormal:
		return &Kaiming{Src: src}
	case ZeroInit:
		return Zero{}
	default:
		return &FanIn{Src: src}
	}
}

// FanIn is the UniformFanIn Initializer.
type FanIn struct {
	Src Source
}

func (fi *FanIn) Init(p Parameterized) {
	for _, pr := range p.Params() {
		if pr.Fixed {
			continue
		}
		rng := float32(1)
		if pr.FanIn > 0 {
			rng = 1 / math32.Sqrt(float32(pr.FanIn))
		}
		un := distuv.Uniform{Min: -float64(rng), Max: float64(rng), Src: fi.Src}
		for i := range pr.Tensor.Values {
			pr.Tensor.Values[i] = float32(un.Rand())
		}
	}
}

// Kaiming is the KaimingNormal Initializer.
type Kaiming struct {
	Src Source
}

func (ki *Kaiming) Init(p Parameterized) {
	for _, pr := range p.Params() {
		if pr.Fixed {
			continue
		}
		if pr.Bias || pr.FanIn < 1 {
			for i := range pr.Tensor.Values {
				pr.Tensor.Values[i] = 0
			}
			continue
		}
		nr := distuv.Normal{Mu: 0, Sigma: float64(math32.Sqrt(2 / float32(pr.FanIn))), Src: ki.Src}
		for i := range pr.Tensor.Values {
			pr.Tensor.Values[i] = float32(nr.Rand())
		}
	}
}

// Zero sets every non-Fixed parameter to zero.
type Zero struct{}

func (Zero) Init(p Parameterized) {
	for _, pr := range p.Params() {
		if pr.Fixed {
			continue
		}
		for i := range pr.Tensor.Values {
			pr.Tensor.Values[i] = 0
		}
	}
}
