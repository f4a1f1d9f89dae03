// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rl

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/c2h5oh/datasize"
	"github.com/emer/qnet/heads"
	"github.com/emer/qnet/nn"
	"github.com/emer/qnet/tsr"
	"github.com/sirupsen/logrus"
)

// Network is implemented by every network built from a Config.
type Network interface {
	nn.Parameterized

	// Config returns the configuration the network was built from
	Config() Config

	// ResetNoise resamples every noisy layer in the network
	ResetNoise()

	// NumParams returns the total number of parameter values
	NumParams() int

	// SizeReport returns a per-layer report of parameter counts and memory
	SizeReport() string
}

// New builds the network selected by cf.Recurrence.  The result is a
// *Net, *RecurrentNet or *DualNet.
func New(cf Config) (Network, error) {
	var nt Network
	var err error
	switch cf.Recurrence {
	case FeedForward:
		nt, err = NewFeedForward(cf)
	case SingleStream:
		nt, err = NewRecurrent(cf)
	case DualStream:
		nt, err = NewDual(cf)
	default:
		return nil, tsr.Configf("unknown recurrence %v", cf.Recurrence)
	}
	if err != nil {
		return nil, err
	}
	return nt, nil
}

// newRepr builds the output representation of cf over features of
// width feat.
func newRepr(cf *Config, feat int, src nn.Source) (heads.Repr, error) {
	var rp heads.Repr
	var err error
	switch cf.Repr {
	case heads.Point:
		rp, err = heads.NewPoint(cf.NumActions)
	case heads.Categorical:
		atoms, serr := heads.LinSpace(cf.VMin, cf.VMax, cf.NumAtoms)
		if serr != nil {
			return nil, serr
		}
		rp, err = heads.NewCategorical(cf.NumActions, atoms)
	case heads.Quantile:
		taus, serr := heads.QuantileMidpoints(cf.NumQuantiles)
		if serr != nil {
			return nil, serr
		}
		rp, err = heads.NewQuantile(cf.NumActions, taus)
	case heads.Implicit:
		rp, err = heads.NewImplicit(cf.NumActions, feat, cf.LatentDim, cf.TauSamples, src)
	default:
		return nil, tsr.Configf("unknown output representation %v", cf.Repr)
	}
	if err != nil {
		return nil, err
	}
	return rp, nil
}

// newHead builds the head of cf over features of width feat.
func newHead(cf *Config, name string, feat int, src nn.Source) (*heads.Head, error) {
	rp, err := newRepr(cf, feat, src)
	if err != nil {
		return nil, err
	}
	pp := heads.PathParams{Hidden: cf.HeadHidden, Noisy: cf.Noisy}
	return heads.NewHead(name, rp, feat, cf.Dueling, pp, src)
}

// initWeights runs the configured initializer once over the assembled
// network.
func initWeights(cf *Config, p nn.Parameterized, src nn.Source) {
	cf.Init.Initializer(src).Init(p)
}

// logBuild logs the shape of a newly built network.
func logBuild(kind string, cf *Config, nparams int) {
	logrus.WithFields(logrus.Fields{
		"network":    cf.Name,
		"kind":       kind,
		"repr":       cf.Repr.String(),
		"recurrence": cf.Recurrence.String(),
		"aux":        cf.Aux.String(),
		"dueling":    cf.Dueling,
		"noisy":      cf.Noisy,
		"params":     nparams,
	}).Debug("built network")
}

// layerOf returns the layer part of a parameter name.
func layerOf(pname string) string {
	if i := strings.LastIndex(pname, "."); i > 0 {
		return pname[:i]
	}
	return pname
}

// sizeReport reports the parameter count and memory of each layer in ps,
// in order, and the total.
func sizeReport(name string, ps []*nn.Param) string {
	var b strings.Builder
	fmem := int(unsafe.Sizeof(float32(0)))
	tot := 0
	cur := ""
	n := 0
	flush := func() {
		if cur != "" {
			fmt.Fprintf(&b, "%24s:\t Params: %d\t ParamMem: %v\n", cur, n, (datasize.ByteSize)(n*fmem).HumanReadable())
		}
	}
	for _, p := range ps {
		ly := layerOf(p.Name)
		if ly != cur {
			flush()
			cur = ly
			n = 0
		}
		n += len(p.Tensor.Values)
		tot += len(p.Tensor.Values)
	}
	flush()
	fmt.Fprintf(&b, "\n\n%24s:\t Params: %d\t ParamMem: %v\n", name, tot, (datasize.ByteSize)(tot*fmem).HumanReadable())
	return b.String()
}
