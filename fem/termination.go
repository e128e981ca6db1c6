// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/cpmech/gomantle/inp"
	"github.com/cpmech/gomantle/par"
	"github.com/cpmech/gosl/io"
)

// TermPolicy decides whether the run must stop after the current step
type TermPolicy interface {
	Name() string                         // name of policy
	Done(st *State) bool                  // the step just solved is the last one
	Clamp(st *State, dt float64) float64 // returns dt reduced if needed
}

// EndTime stops at time Tf and clamps the step to land on it
type EndTime struct {
	Tf float64
}

// Name returns "end time"
func (o EndTime) Name() string { return "end time" }

// Done tells whether Tf has been reached
func (o EndTime) Done(st *State) bool {
	return st.Time >= o.Tf-1e-12*math.Max(1, math.Abs(o.Tf))
}

// Clamp reduces dt such that time does not go beyond Tf
func (o EndTime) Clamp(st *State, dt float64) float64 {
	if st.Time+dt > o.Tf {
		return o.Tf - st.Time
	}
	return dt
}

// EndStep stops after step N
type EndStep struct {
	N int
}

// Name returns "end step"
func (o EndStep) Name() string { return "end step" }

// Done tells whether step N has been solved
func (o EndStep) Done(st *State) bool { return st.Step >= o.N }

// Clamp returns dt
func (o EndStep) Clamp(st *State, dt float64) float64 { return dt }

// WallTime stops when the elapsed wall time since Start exceeds Limit
type WallTime struct {
	Limit time.Duration
	Start time.Time
}

// Name returns "wall time"
func (o WallTime) Name() string { return "wall time" }

// Done tells whether the limit has been exceeded
func (o WallTime) Done(st *State) bool { return time.Since(o.Start) >= o.Limit }

// Clamp returns dt
func (o WallTime) Clamp(st *State, dt float64) float64 { return dt }

// UserRequest stops when file Fn exists
type UserRequest struct {
	Fn string
}

// Name returns "user request"
func (o UserRequest) Name() string { return "user request" }

// Done tells whether file Fn exists
func (o UserRequest) Done(st *State) bool {
	_, err := os.Stat(o.Fn)
	return err == nil
}

// Clamp returns dt
func (o UserRequest) Clamp(st *State, dt float64) float64 { return dt }

// Termination combines termination policies. Decisions are taken on the root rank
type Termination struct {
	Policies        []TermPolicy // policies
	CheckpointAtEnd bool         // request a checkpoint after the final step
	Comm            par.Comm     // communicator
	ShowMsg         bool         // show messages
}

// NewTermination returns the termination manager configured by sim
func NewTermination(sim *inp.Simulation, comm par.Comm, showMsg bool) (o *Termination) {
	o = &Termination{CheckpointAtEnd: sim.Checkpoint.AtEnd, Comm: comm, ShowMsg: showMsg}
	o.Policies = append(o.Policies, EndTime{sim.Time.Tf})
	if sim.Time.NmaxSteps > 0 {
		o.Policies = append(o.Policies, EndStep{sim.Time.NmaxSteps})
	}
	if sim.Time.WallSecs > 0 {
		o.Policies = append(o.Policies, WallTime{time.Duration(sim.Time.WallSecs * float64(time.Second)), time.Now()})
	}
	o.Policies = append(o.Policies, UserRequest{filepath.Join(sim.DirOut, sim.Time.StopFile)})
	return
}

// IsLastStep tells whether the step just solved is the final one and whether a checkpoint
// must be written at the end. This is a collective operation
func (o *Termination) IsLastStep(st *State) (final, checkpoint bool) {
	if par.Root(o.Comm) {
		for _, p := range o.Policies {
			if p.Done(st) {
				final = true
				if o.ShowMsg {
					io.Pfgreen("> termination requested by %s policy at step %d, t = %g\n", p.Name(), st.Step, st.Time)
				}
				break
			}
		}
	}
	final = par.Flag(o.Comm, final)
	return final, final && o.CheckpointAtEnd
}

// ClampDt returns dt reduced by all policies
func (o *Termination) ClampDt(st *State, dt float64) float64 {
	for _, p := range o.Policies {
		dt = p.Clamp(st, dt)
	}
	return dt
}
