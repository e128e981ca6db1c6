// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package mpicomm implements par.Comm on top of MPI
package mpicomm

import (
	"github.com/cpmech/gomantle/par"
	"github.com/cpmech/gosl/mpi"
)

// Comm wraps the world communicator
type Comm struct {
	*mpi.Communicator
}

// Start starts MPI and returns the world communicator; or a serial
// communicator when MPI is off or only one process is running
func Start() par.Comm {
	mpi.Start()
	if !mpi.IsOn() || mpi.WorldSize() < 2 {
		return par.Serial{}
	}
	return &Comm{mpi.NewCommunicator(nil)}
}

// Stop stops MPI
func Stop() {
	mpi.Stop()
}
