// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package fem implements the nonlinear solver core and the time loop of coupled
// Stokes/advection simulations
package fem

import (
	"fmt"
	"time"

	"github.com/cpmech/gomantle/inp"
	"github.com/cpmech/gomantle/out"
	"github.com/cpmech/gomantle/par"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// Main holds all data for a simulation
type Main struct {
	Sim     *inp.Simulation    // simulation data
	Comm    par.Comm           // communicator
	Col     *Collaborators     // collaborators
	State   *State             // simulation state
	Core    *Core              // data shared by schemes
	Scheme  Scheme             // nonlinear solver scheme
	Stepper *TimeStepper       // time step controller
	Term    *Termination       // termination manager
	Trigger *CheckpointTrigger // checkpoint trigger
	Ckpt    Checkpointer       // checkpoint/restart manager; may be nil
	Stats   *out.Table         // statistics
	Sinks   []out.Sink         // statistics sinks
	ShowMsg bool               // show messages
}

// NewMain returns a new Main structure
//  Input:
//   sim -- simulation data
//   col -- collaborators (assemblers, linear solvers, samplers)
//   st  -- state holding the initial condition
func NewMain(sim *inp.Simulation, col *Collaborators, st *State) (o *Main, err error) {

	// new Main object
	o = new(Main)
	o.Sim = sim
	o.Comm = col.Comm
	if o.Comm == nil {
		o.Comm = par.Serial{}
		col.Comm = o.Comm
	}
	o.Col = col
	o.State = st
	o.ShowMsg = sim.Data.Verbose && par.Root(o.Comm)

	// allocate scheme
	o.Core = NewCore(&sim.Solver, col, o.ShowMsg)
	o.Scheme, err = NewScheme(sim.Solver.Type, o.Core)
	if err != nil {
		return nil, err
	}

	// time stepping and checkpoints
	o.Term = NewTermination(sim, o.Comm, o.ShowMsg)
	o.Stepper = NewTimeStepper(&sim.Time, col, o.Term)
	o.Trigger = NewCheckpointTrigger(&sim.Checkpoint, o.Comm)
	o.Stats = out.NewTable(sim.EncType)

	// message
	if o.ShowMsg {
		io.Pf("> Scheme %q allocated. nproc = %d\n", sim.Solver.Type, o.Comm.Size())
	}
	return
}

// Run runs the time loop. If Sim.Data.Resume is set, the state is first restored from
// the last snapshot
func (o *Main) Run() (err error) {

	// exit commands
	cputime := time.Now()
	defer func() { err = o.onexit(cputime, err) }()

	// resume
	st := o.State
	if o.Sim.Data.Resume {
		if o.Ckpt == nil {
			return chk.Err("cannot resume simulation: checkpoint manager is not available")
		}
		err = o.Ckpt.Resume(st)
		if err != nil {
			return chk.Err("cannot resume simulation:\n%v", err)
		}
		if o.ShowMsg {
			io.Pforan("> Resuming from snapshot at step %d, t = %g\n", st.Step, st.Time)
		}
		if final, _ := o.Term.IsLastStep(st); final {
			return
		}
		err = o.advance()
		if err != nil {
			return
		}
	}

	// time loop
	for {

		// solve step
		err = o.Core.BeginStep(st)
		if err != nil {
			return
		}
		var rep *StepReport
		rep, err = o.Scheme.Solve(st)
		if err != nil {
			return fmt.Errorf("cannot solve step %d (t = %g):\n%w", st.Step, st.Time, err)
		}

		// statistics
		o.record(st, rep)

		// termination and checkpoint
		final, atEnd := o.Term.IsLastStep(st)
		if o.Ckpt != nil && o.Trigger.Due(st, final, atEnd) {
			err = o.Ckpt.Create(st)
			if err != nil {
				return chk.Err("cannot write checkpoint at step %d:\n%v", st.Step, err)
			}
			o.Trigger.Written()
			o.Core.Res.Invalidate()
			if o.ShowMsg {
				io.Pf("> Checkpoint written at step %d, t = %g\n", st.Step, st.Time)
			}
		}
		if final {
			return
		}

		// next step
		err = o.advance()
		if err != nil {
			return
		}
	}
}

// advance computes the next time step and moves the state forward
func (o *Main) advance() (err error) {
	dt, err := o.Stepper.Compute(o.State)
	if err != nil {
		return chk.Err("cannot compute time step at step %d:\n%v", o.State.Step, err)
	}
	o.State.Advance(dt)
	return
}

// record saves the statistics of the step just solved and feeds the sinks
func (o *Main) record(st *State, rep *StepReport) {
	rec := out.StepRecord{
		Step:       st.Step,
		Time:       st.Time,
		Dt:         st.Dt,
		Iterations: rep.Iterations,
		Converged:  rep.Converged,
		Newton:     rep.Newton,
		Initial:    rep.Initial,
		Final:      rep.Final,
		Relative:   rep.Relative,
	}
	for _, sys := range rep.Systems {
		rec.Systems = append(rec.Systems, sys.String())
	}
	o.Stats.Append(rec)
	if !par.Root(o.Comm) {
		return
	}
	for _, s := range o.Sinks {
		if e := s.Write(o.Stats, &rec); e != nil {
			io.Pforan("warning: statistics sink failed at step %d:\n%v\n", st.Step, e)
		}
	}
	if o.ShowMsg {
		io.Pf("> step %6d  t = %13.6e  dt = %13.6e  its = %3d  converged = %v\n", st.Step, st.Time, st.Dt, rep.Iterations, rep.Converged)
	}
}

// onexit flushes the sinks and prints final message with cpu time
func (o *Main) onexit(cputime time.Time, prevErr error) (err error) {

	// flush sinks
	for _, s := range o.Sinks {
		if e := s.Flush(); e != nil && par.Root(o.Comm) {
			io.Pforan("warning: statistics sink failed:\n%v\n", e)
		}
	}

	// show final message
	if o.ShowMsg {
		if prevErr == nil {
			io.PfGreen("> Success\n")
			io.Pf("> CPU time = %v\n", time.Now().Sub(cputime))
			if n := o.Stats.NumNonConverged(); n > 0 {
				io.PfYel("> %d step(s) reached the max number of iterations\n", n)
			}
		} else {
			io.PfRed("> Failed\n")
		}
	}
	return prevErr
}
