// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package qnet is the overall repository for the value networks of the DQN
family of reinforcement learning agents, implemented in pure Go on etensor
tensors.

This top-level of the repository has no functional code -- everything is organized
into the following sub-repositories:

* tsr: tensor helpers (shapes, matrix products, reductions, concatenation,
one-hot encoding) shared by the other packages, and the configuration and
shape error kinds every constructor and forward pass reports.

* nn: the layers: Linear, NoisyLinear (factorized Gaussian noise, resampled
only on request), Conv2D, LSTM with explicit State, the MLP and Nature CNN
backbones, and the weight initializers.

* heads: the output representations (Point, Categorical, Quantile,
Implicit), the dueling combination of value and advantage paths, and Head,
which maps features to values.

* rl: network Config (TOML loadable), the algorithm Presets (dqn through
agent57), and the three network kinds: feed-forward Net, single-stream
RecurrentNet (DRQN, R2D2, NGU) and the two-stream DualNet (Agent57).
Recurrent networks never keep memory state: it is passed in and returned
on every call.

* examples: runnable programs.  examples/dqn builds any preset and selects
greedy actions, examples/agent57 runs an actor loop that threads both
stream states across steps and episode boundaries.
*/
package qnet
