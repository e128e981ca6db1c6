// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"time"

	"github.com/cpmech/gomantle/inp"
	"github.com/cpmech/gomantle/par"
)

// Checkpointer writes and reads snapshots of the simulation state.
// Both operations are collective
type Checkpointer interface {
	Create(st *State) error // writes a new snapshot
	Resume(st *State) error // overwrites st with the last snapshot
}

// CheckpointTrigger decides when a snapshot is written
//  Secs > 0  : wall-clock seconds since the last snapshot (decided by the root rank)
//  Steps > 0 : every Steps steps
//  otherwise : only at the end of the run when requested
type CheckpointTrigger struct {
	Secs  float64  // wall-clock interval
	Steps int      // step interval
	Comm  par.Comm // communicator
	last  time.Time
}

// NewCheckpointTrigger returns a new trigger
func NewCheckpointTrigger(dat *inp.CheckpointData, comm par.Comm) *CheckpointTrigger {
	return &CheckpointTrigger{Secs: dat.Secs, Steps: dat.Steps, Comm: comm, last: time.Now()}
}

// Due tells whether a snapshot must be written after the step just solved.
// This is a collective operation
func (o *CheckpointTrigger) Due(st *State, final, atEnd bool) bool {
	if o.Secs > 0 {
		due := false
		if par.Root(o.Comm) {
			due = time.Since(o.last).Seconds() >= o.Secs
		}
		if par.Flag(o.Comm, due) {
			return true
		}
	} else if o.Steps > 0 && st.Step > 0 && st.Step%o.Steps == 0 {
		return true
	}
	return final && atEnd
}

// Written records the time of the last snapshot
func (o *CheckpointTrigger) Written() {
	o.last = time.Now()
}
