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

// Net is a feed-forward network: backbone then head.
type Net struct {
	Cfg      Config
	Backbone nn.Backbone
	Head     *heads.Head
}

// NewFeedForward builds a feed-forward Net from cf.
func NewFeedForward(cf Config) (*Net, error) {
	if cf.Recurrence != FeedForward {
		return nil, tsr.Configf("feed-forward network built with recurrence %v", cf.Recurrence)
	}
	if err := cf.Validate(); err != nil {
		return nil, err
	}
	src := nn.NewSource(cf.Init.Seed)
	bb, err := nn.NewBackbone(cf.Name+".body", cf.ObsShape)
	if err != nil {
		return nil, err
	}
	hd, err := newHead(&cf, cf.Name+".head", bb.OutFeatures(), src)
	if err != nil {
		return nil, err
	}
	nt := &Net{Cfg: cf, Backbone: bb, Head: hd}
	initWeights(&cf, nt, src)
	logBuild("Net", &cf, nt.NumParams())
	return nt, nil
}

// Forward maps observations [B, *ObsShape] to values.
func (nt *Net) Forward(obs *etensor.Float32) (heads.Output, error) {
	return nt.ForwardSamples(obs, 0)
}

// ForwardSamples is Forward with an explicit Implicit sample count,
// 0 for the configured default.
func (nt *Net) ForwardSamples(obs *etensor.Float32, samples int) (heads.Output, error) {
	if err := tsr.CheckRank(nt.Cfg.Name+" observations", obs, 1+len(nt.Cfg.ObsShape), nt.Cfg.ObsShape...); err != nil {
		return nil, err
	}
	feat, err := nt.Backbone.Forward(obs)
	if err != nil {
		return nil, err
	}
	return nt.Head.ForwardSamples(feat, samples)
}

func (nt *Net) Config() Config { return nt.Cfg }

func (nt *Net) Params() []*nn.Param {
	return append(nt.Backbone.Params(), nt.Head.Params()...)
}

func (nt *Net) ResetNoise() { nt.Head.ResetNoise() }

func (nt *Net) NumParams() int { return nn.NumParams(nt) }

func (nt *Net) SizeReport() string { return sizeReport(nt.Cfg.Name, nt.Params()) }
