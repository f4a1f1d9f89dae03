// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rl

import (
	"sort"

	"github.com/emer/qnet/heads"
	"github.com/emer/qnet/nn"
	"github.com/emer/qnet/tsr"
)

// Preset adjusts a defaulted Config for one published algorithm.
// conv is true for image observations.
type Preset func(cf *Config, conv bool)

// Presets are the standard networks by algorithm name.  Image
// observations get a 512-unit hidden layer in every head path and
// Kaiming init; flat observations use the smaller MLP heads.
var Presets = map[string]Preset{
	"dqn": func(cf *Config, conv bool) {
		cf.Repr = heads.Point
		cf.HeadHidden = convHidden(conv)
	},
	"dueling-dqn": func(cf *Config, conv bool) {
		cf.Repr = heads.Point
		cf.Dueling = true
		cf.HeadHidden = headHidden(conv)
	},
	"c51": func(cf *Config, conv bool) {
		cf.Repr = heads.Categorical
		cf.HeadHidden = convHidden(conv)
	},
	"rainbow": func(cf *Config, conv bool) {
		cf.Repr = heads.Categorical
		cf.Dueling = true
		cf.Noisy = true
		cf.HeadHidden = headHidden(conv)
	},
	"qr-dqn": func(cf *Config, conv bool) {
		cf.Repr = heads.Quantile
		cf.HeadHidden = convHidden(conv)
	},
	"iqn": func(cf *Config, conv bool) {
		cf.Repr = heads.Implicit
		cf.HeadHidden = convHidden(conv)
		if conv {
			cf.TauSamples = 64
		}
	},
	"drqn": func(cf *Config, conv bool) {
		cf.Recurrence = SingleStream
		cf.Layout = BatchMajor
		cf.HeadHidden = convHidden(conv)
		if conv {
			cf.LSTMHidden = 256
		}
	},
	"r2d2": func(cf *Config, conv bool) {
		recurrentDueling(cf, conv)
		cf.Aux = AuxReward
	},
	"ngu": func(cf *Config, conv bool) {
		recurrentDueling(cf, conv)
		cf.Aux = AuxNGU
	},
	"agent57": func(cf *Config, conv bool) {
		recurrentDueling(cf, conv)
		cf.Recurrence = DualStream
		cf.Aux = AuxNGU
	},
}

// convHidden is a 512 hidden layer for image heads, none for flat ones.
func convHidden(conv bool) []int {
	if conv {
		return []int{512}
	}
	return nil
}

// headHidden is the hidden layer of dueling paths.
func headHidden(conv bool) []int {
	if conv {
		return []int{512}
	}
	return []int{128}
}

func recurrentDueling(cf *Config, conv bool) {
	cf.Recurrence = SingleStream
	cf.Layout = TimeMajor
	cf.Dueling = true
	cf.HeadHidden = headHidden(conv)
	if conv {
		cf.LSTMHidden = 512
	}
}

// PresetNames returns the sorted names of all Presets.
func PresetNames() []string {
	nms := make([]string, 0, len(Presets))
	for nm := range Presets {
		nms = append(nms, nm)
	}
	sort.Strings(nms)
	return nms
}

// NewPresetConfig returns the validated Config of the named preset for
// the given observation shape and action count.
func NewPresetConfig(name string, obs []int, nAct int) (Config, error) {
	var cf Config
	cf.Defaults()
	ps, ok := Presets[name]
	if !ok {
		return cf, tsr.Configf("unknown preset %q, have %v", name, PresetNames())
	}
	cf.Name = name
	cf.ObsShape = append([]int(nil), obs...)
	cf.NumActions = nAct
	conv := cf.IsConv()
	if conv {
		cf.Init.Dist = nn.KaimingNormal
	}
	ps(&cf, conv)
	cf.Update()
	return cf, cf.Validate()
}
