// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heads

import (
	"github.com/goki/ki/kit"
)

// Kinds are the output representations of action value.
type Kinds int

//go:generate stringer -type=Kinds

var KiT_Kinds = kit.Enums.AddEnum(KindsN, kit.NotBitFlag, nil)

func (ev Kinds) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *Kinds) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }
func (ev Kinds) MarshalText() ([]byte, error)   { return []byte(ev.String()), nil }
func (ev *Kinds) UnmarshalText(b []byte) error { return ev.FromString(string(b)) }

const (
	// Point is one scalar value per action.
	Point Kinds = iota

	// Categorical is a softmax distribution over a fixed support of atoms
	// per action (C51).
	Categorical

	// Quantile is one value per fixed quantile fraction per action (QR-DQN).
	Quantile

	// Implicit is one value per sampled quantile fraction per action,
	// with the fractions drawn fresh on every call (IQN).
	Implicit

	KindsN
)
