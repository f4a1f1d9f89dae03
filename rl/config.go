// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rl

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/emer/qnet/heads"
	"github.com/emer/qnet/nn"
	"github.com/emer/qnet/tsr"
)

// Config selects and sizes a network along each of its axes.
type Config struct {
	Name         string        `desc:"name of the network, prefixed to all layer names"`
	ObsShape     []int         `desc:"shape of one observation: [D] for flat vectors (MLP backbone) or [C, H, W] for images (Nature CNN backbone)"`
	NumActions   int           `desc:"number of discrete actions"`
	Repr         heads.Kinds   `desc:"output representation of action value"`
	Recurrence   Recurrences   `desc:"state threading: feed-forward, single-stream or dual-stream recurrent"`
	Aux          AuxModes      `viewif:"Recurrence!=FeedForward" desc:"auxiliary per-step inputs appended to the features before the LSTM"`
	Layout       Layouts       `viewif:"Recurrence!=FeedForward" desc:"order of time and batch axes of recurrent inputs and outputs"`
	Dueling      bool          `desc:"split the head into advantage and value paths combined as val + (adv - mean(adv))"`
	Noisy        bool          `desc:"use factorized noisy layers throughout the head paths"`
	HeadHidden   []int         `desc:"hidden layer widths of each head path, each followed by ReLU"`
	NumAtoms     int           `viewif:"Repr=Categorical" def:"51" desc:"number of atoms in the categorical support"`
	VMin         float32       `viewif:"Repr=Categorical" def:"-10" desc:"lowest atom value"`
	VMax         float32       `viewif:"Repr=Categorical" def:"10" desc:"highest atom value"`
	NumQuantiles int           `viewif:"Repr=Quantile" def:"200" desc:"number of fixed quantile fractions, placed at the midpoints (2i+1)/2N"`
	LatentDim    int           `viewif:"Repr=Implicit" def:"64" desc:"number of cosine basis functions embedding each sampled fraction"`
	TauSamples   int           `viewif:"Repr=Implicit" def:"32" desc:"default number of fractions sampled per row on each call"`
	LSTMHidden   int           `viewif:"Recurrence!=FeedForward" def:"128" desc:"width of the LSTM hidden and cell state"`
	NumPolicies  int           `viewif:"Aux=AuxNGU" def:"32" desc:"number of policies in the exploration mixture, width of the one-hot policy index"`
	Init         nn.InitParams `desc:"weight initialization of affine and conv layers, and seed of every random source in the network"`
}

func (cf *Config) Defaults() {
	cf.Name = "Q"
	cf.NumAtoms = 51
	cf.VMin = -10
	cf.VMax = 10
	cf.NumQuantiles = 200
	cf.LatentDim = 64
	cf.TauSamples = 32
	cf.LSTMHidden = 128
	cf.NumPolicies = 32
	cf.Init.Defaults()
}

// Update fills in values left empty by a config file.
func (cf *Config) Update() {
	if cf.Name == "" {
		cf.Name = "Q"
	}
}

// IsConv reports whether observations are images.
func (cf *Config) IsConv() bool {
	return len(cf.ObsShape) == 3
}

// Validate returns a configuration error naming the first invalid field.
func (cf *Config) Validate() error {
	if len(cf.ObsShape) != 1 && len(cf.ObsShape) != 3 {
		return tsr.Configf("ObsShape must be [D] or [C, H, W], got %v", cf.ObsShape)
	}
	for _, d := range cf.ObsShape {
		if d < 1 {
			return tsr.Configf("ObsShape dims must be positive, got %v", cf.ObsShape)
		}
	}
	if cf.NumActions < 1 {
		return tsr.Configf("NumActions must be a positive integer, got %d", cf.NumActions)
	}
	for _, h := range cf.HeadHidden {
		if h < 1 {
			return tsr.Configf("HeadHidden widths must be positive, got %v", cf.HeadHidden)
		}
	}
	switch cf.Repr {
	case heads.Point:
	case heads.Categorical:
		if cf.NumAtoms < 1 {
			return tsr.Configf("NumAtoms must be positive, got %d", cf.NumAtoms)
		}
		if cf.NumAtoms > 1 && cf.VMax <= cf.VMin {
			return tsr.Configf("VMax %v must exceed VMin %v", cf.VMax, cf.VMin)
		}
	case heads.Quantile:
		if cf.NumQuantiles < 1 {
			return tsr.Configf("NumQuantiles must be positive, got %d", cf.NumQuantiles)
		}
	case heads.Implicit:
		if cf.LatentDim < 1 {
			return tsr.Configf("LatentDim must be positive, got %d", cf.LatentDim)
		}
		if cf.TauSamples < 1 {
			return tsr.Configf("TauSamples must be positive, got %d", cf.TauSamples)
		}
	default:
		return tsr.Configf("unknown output representation %v", cf.Repr)
	}
	switch cf.Recurrence {
	case FeedForward:
		if cf.Aux != AuxNone {
			return tsr.Configf("Aux %v needs a recurrent network", cf.Aux)
		}
		return nil
	case SingleStream:
	case DualStream:
		if cf.Aux != AuxNGU {
			return tsr.Configf("DualStream networks need Aux AuxNGU, got %v", cf.Aux)
		}
	default:
		return tsr.Configf("unknown recurrence %v", cf.Recurrence)
	}
	if cf.LSTMHidden < 1 {
		return tsr.Configf("LSTMHidden must be positive, got %d", cf.LSTMHidden)
	}
	if cf.Aux < AuxNone || cf.Aux >= AuxModesN {
		return tsr.Configf("unknown aux mode %v", cf.Aux)
	}
	if cf.Layout < TimeMajor || cf.Layout >= LayoutsN {
		return tsr.Configf("unknown layout %v", cf.Layout)
	}
	if cf.Aux == AuxNGU && cf.NumPolicies < 1 {
		return tsr.Configf("NumPolicies must be positive with AuxNGU, got %d", cf.NumPolicies)
	}
	return nil
}

// AuxWidth returns the number of auxiliary input columns appended to
// the features.
func (cf *Config) AuxWidth() int {
	switch cf.Aux {
	case AuxReward:
		return 1 + cf.NumActions
	case AuxNGU:
		return 1 + cf.NumActions + 1 + cf.NumPolicies
	}
	return 0
}

// OpenConfig reads a TOML file over Defaults and validates the result.
func OpenConfig(filename string) (Config, error) {
	var cf Config
	cf.Defaults()
	if _, err := toml.DecodeFile(filename, &cf); err != nil {
		return cf, fmt.Errorf("%w: reading %s: %v", tsr.ErrConfig, filename, err)
	}
	cf.Update()
	return cf, cf.Validate()
}
