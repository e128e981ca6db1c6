// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cpmech/gomantle/inp"
	"github.com/cpmech/gomantle/par"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

// newStepper returns a time stepper whose cells are all equal to c
func newStepper(comm par.Comm, c CellSample, cfl float64, degree int, conduction bool) *TimeStepper {
	dat := &inp.TimeData{Cfl: cfl, Degree: degree, DtMax: 0.5, MaxInc: math.MaxFloat64, Conduction: conduction}
	col := &Collaborators{Comm: comm, Cells: func(lp la.Vector) []CellSample {
		return []CellSample{c, c}
	}}
	return NewTimeStepper(dat, col, nil)
}

func Test_timestep01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("timestep01. stability bounds")

	st := NewState(Layout{Nt: 1})
	comm := par.Serial{}

	// zero velocity and no conduction
	dt, err := newStepper(comm, CellSample{H: 0.1}, 1, 1, false).Compute(st)
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	chk.Float64(tst, "dtmax", 1e-17, dt, 0.5)

	// convection
	dt, _ = newStepper(comm, CellSample{H: 0.1, Speed: 2}, 0.5, 2, false).Compute(st)
	chk.Float64(tst, "convective", 1e-15, dt, 0.0125)

	// conduction
	dt, _ = newStepper(comm, CellSample{H: 0.1, Kappa: 0.5}, 1, 1, true).Compute(st)
	chk.Float64(tst, "conductive", 1e-15, dt, 0.02)

	// both
	dt, _ = newStepper(comm, CellSample{H: 0.1, Speed: 2, Kappa: 0.5}, 0.5, 2, true).Compute(st)
	chk.Float64(tst, "both", 1e-15, dt, 0.01)

	// conduction is not active
	dt, _ = newStepper(comm, CellSample{H: 0.1, Kappa: 0.5}, 1, 1, false).Compute(st)
	chk.Float64(tst, "conduction off", 1e-17, dt, 0.5)

	// growth limit
	ts := newStepper(comm, CellSample{H: 0.1, Speed: 2}, 0.5, 2, false)
	ts.Dat.MaxInc = 0.5
	st.Dt = 0.001
	dt, _ = ts.Compute(st)
	chk.Float64(tst, "growth", 1e-15, dt, 0.0015)

	// end time
	ts.Dat.MaxInc = math.MaxFloat64
	ts.Term = &Termination{Policies: []TermPolicy{EndTime{1}}, Comm: comm}
	st.Time = 0.995
	dt, _ = ts.Compute(st)
	io.Pforan("dt = %v\n", dt)
	chk.Float64(tst, "end time", 1e-15, dt, 0.005)

	// invalid
	_, err = newStepper(comm, CellSample{H: 0}, 1, 1, false).Compute(st)
	if err == nil {
		tst.Errorf("zero length scale should fail\n")
	}
}

func Test_timestep02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("timestep02. all ranks agree")

	dts := make([]float64, 3)
	err := par.RunLocal(3, func(comm par.Comm) (err error) {
		ts := newStepper(comm, CellSample{H: 1, Speed: float64(comm.Rank() + 1), Kappa: float64(comm.Rank() + 1)}, 1, 1, true)
		dts[comm.Rank()], err = ts.Compute(NewState(Layout{Nt: 1}))
		return
	})
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	chk.Array(tst, "dts", 1e-15, dts, []float64{1.0 / 3.0, 1.0 / 3.0, 1.0 / 3.0})
}

func Test_termination01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("termination01. policies")

	dir := tst.TempDir()
	sim := &inp.Simulation{DirOut: dir}
	sim.Time.Tf = 1
	sim.Time.NmaxSteps = 3
	sim.Time.StopFile = "terminate"
	sim.Checkpoint.AtEnd = true
	term := NewTermination(sim, par.Serial{}, chk.Verbose)
	chk.Int(tst, "npolicies", len(term.Policies), 3)

	st := NewState(Layout{Nt: 1})
	st.Step = 2
	final, ckpt := term.IsLastStep(st)
	if final || ckpt {
		tst.Errorf("step 2 must not be the last one\n")
	}

	// end step
	st.Step = 3
	final, ckpt = term.IsLastStep(st)
	if !final || !ckpt {
		tst.Errorf("step 3 must be the last one and checkpoint at end must be requested\n")
	}

	// end time
	st.Step = 0
	st.Time = 1 - 1e-14
	final, _ = term.IsLastStep(st)
	if !final {
		tst.Errorf("time %v should have reached the end time\n", st.Time)
	}

	// user request
	st.Time = 0.5
	if final, _ = term.IsLastStep(st); final {
		tst.Errorf("no termination requested yet\n")
	}
	err := os.WriteFile(filepath.Join(dir, "terminate"), nil, 0644)
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	if final, _ = term.IsLastStep(st); !final {
		tst.Errorf("user request should terminate the run\n")
	}
}

func Test_checkpoint01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("checkpoint01. trigger")

	st := NewState(Layout{Nt: 1})

	// steps
	trig := NewCheckpointTrigger(&inp.CheckpointData{Steps: 3}, par.Serial{})
	for step, due := range []bool{false, false, false, true, false, false, true} {
		st.Step = step
		if trig.Due(st, false, false) != due {
			tst.Errorf("step %d: due should be %v\n", step, due)
		}
	}
	st.Step = 4
	if !trig.Due(st, true, true) {
		tst.Errorf("checkpoint at end should be due\n")
	}
	if trig.Due(st, true, false) {
		tst.Errorf("checkpoint at end was not requested\n")
	}

	// wall clock
	trig = NewCheckpointTrigger(&inp.CheckpointData{Secs: 1e-9}, par.Serial{})
	trig.last = trig.last.Add(-1e6)
	if !trig.Due(st, false, false) {
		tst.Errorf("wall-clock checkpoint should be due\n")
	}
	trig = NewCheckpointTrigger(&inp.CheckpointData{Secs: 1e6}, par.Serial{})
	trig.Written()
	if trig.Due(st, false, false) {
		tst.Errorf("wall-clock checkpoint should not be due\n")
	}
}
