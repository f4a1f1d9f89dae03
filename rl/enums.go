// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rl

import (
	"github.com/goki/ki/kit"
)

// Recurrences are the state-threading disciplines of a network.
type Recurrences int

//go:generate stringer -type=Recurrences

var KiT_Recurrences = kit.Enums.AddEnum(RecurrencesN, kit.NotBitFlag, nil)

func (ev Recurrences) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *Recurrences) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }
func (ev Recurrences) MarshalText() ([]byte, error)   { return []byte(ev.String()), nil }
func (ev *Recurrences) UnmarshalText(b []byte) error { return ev.FromString(string(b)) }

const (
	// FeedForward maps one observation batch to values, with no memory.
	FeedForward Recurrences = iota

	// SingleStream threads one LSTM state through time.
	SingleStream

	// DualStream runs two independent single-stream networks with
	// separate states over the same inputs.
	DualStream

	RecurrencesN
)

// AuxModes are the per-step auxiliary inputs concatenated onto the
// backbone features before the recurrent cell.
type AuxModes int

//go:generate stringer -type=AuxModes

var KiT_AuxModes = kit.Enums.AddEnum(AuxModesN, kit.NotBitFlag, nil)

func (ev AuxModes) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *AuxModes) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }
func (ev AuxModes) MarshalText() ([]byte, error)   { return []byte(ev.String()), nil }
func (ev *AuxModes) UnmarshalText(b []byte) error { return ev.FromString(string(b)) }

const (
	// AuxNone feeds the features alone (DRQN).
	AuxNone AuxModes = iota

	// AuxReward appends the previous reward and the one-hot previous
	// action (R2D2).
	AuxReward

	// AuxNGU appends the previous extrinsic reward, one-hot previous
	// action, previous intrinsic reward and one-hot policy index, in
	// that order (NGU, Agent57).
	AuxNGU

	AuxModesN
)

// Layouts are the orders of the time and batch axes of recurrent inputs
// and outputs.
type Layouts int

//go:generate stringer -type=Layouts

var KiT_Layouts = kit.Enums.AddEnum(LayoutsN, kit.NotBitFlag, nil)

func (ev Layouts) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *Layouts) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }
func (ev Layouts) MarshalText() ([]byte, error)   { return []byte(ev.String()), nil }
func (ev *Layouts) UnmarshalText(b []byte) error { return ev.FromString(string(b)) }

const (
	// TimeMajor is [T, B, ...].
	TimeMajor Layouts = iota

	// BatchMajor is [B, T, ...].
	BatchMajor

	LayoutsN
)
