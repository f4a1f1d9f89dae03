// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package rl assembles complete action-value networks for value-based
reinforcement learning from three orthogonal choices: the output
representation (heads.Kinds), the recurrence (FeedForward, SingleStream
or DualStream) and dueling on or off, plus optional noisy head layers.

* `Net` is a feed-forward network: backbone then head (DQN, Dueling DQN,
  C51, Rainbow, QR-DQN, IQN).

* `RecurrentNet` adds a single-layer LSTM between backbone and head.
  Per-step auxiliary inputs are concatenated onto the features before
  the LSTM according to `AuxModes`: none (DRQN), previous reward and
  one-hot previous action (R2D2), or extrinsic reward, one-hot action,
  intrinsic reward and one-hot policy index (NGU).  The network never
  keeps memory state: callers thread `nn.State` explicitly and reset it
  at episode boundaries.

* `DualNet` runs two independently parameterized NGU-style recurrent
  networks (extrinsic and intrinsic value) over the same inputs with
  separately carried states (Agent57).

Networks are built from a `Config`, usually starting from one of the
`Presets` or a TOML file via `OpenConfig`.
*/
package rl
