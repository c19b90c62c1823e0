// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import "github.com/born-ml/layernet/internal/optim"

// Trainer creates per-buffer update state.
type Trainer = optim.Trainer

// State updates one weight buffer from its gradients.
type State = optim.State

// SGD (Stochastic Gradient Descent)

// SGD is stochastic gradient descent with momentum and weight decay.
type SGD = optim.SGD

// SGDState is the momentum buffer of one weight buffer.
type SGDState = optim.SGDState

// Adam (Adaptive Moment Estimation)

// Adam is the Adam trainer. Zero fields take their usual defaults.
type Adam = optim.Adam

// AdamState holds the moment estimates of one weight buffer.
type AdamState = optim.AdamState
