// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heads

import (
	"github.com/emer/etable/etensor"
	"github.com/emer/qnet/tsr"
)

// Combine returns the dueling combination val + (adv - mean(adv)),
// with the mean taken over the action axis only.  adv has the actions on
// axis, and val has the same shape except size 1 on axis.  Any atom or
// quantile axes are carried through untouched.  With a single action
// the advantage cancels exactly and the result equals val.
func Combine(adv, val *etensor.Float32, axis int) (*etensor.Float32, error) {
	if adv == nil || val == nil {
		return nil, tsr.Shapef("dueling combine needs both advantage and value")
	}
	mean, err := tsr.MeanAxis(adv, axis, true)
	if err != nil {
		return nil, err
	}
	cent, err := tsr.BroadcastAxis(adv, mean, axis, -1)
	if err != nil {
		return nil, err
	}
	return tsr.BroadcastAxis(cent, val, axis, 1)
}
