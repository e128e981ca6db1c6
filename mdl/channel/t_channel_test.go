// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cpmech/gomantle/fem"
	"github.com/cpmech/gomantle/inp"
	"github.com/cpmech/gomantle/par"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

// simfile is the template of the simulation files used in tests
const simfile = `data:
  desc: channel with buoyancy
  dirout: %s
  verbose: %v
solver:
  type: %s
  nmaxit: 30
  rtol: 1e-5
  showr: %v
time:
  dtmax: 0.01
  conduction: true
  tf: 1
  nmaxsteps: 4
checkpoint:
  steps: 3
model:
  ncells: 8
  ncomp: 1
  gamma: 0.5
  nexp: %g
  ra: 2
`

// readSim writes and reads a simulation file
func readSim(tst *testing.T, dirout, scheme string, nexp float64) *inp.Simulation {
	fn := filepath.Join(tst.TempDir(), "channel.yaml")
	err := os.WriteFile(fn, []byte(io.Sf(simfile, dirout, chk.Verbose, scheme, chk.Verbose, nexp)), 0644)
	if err != nil {
		tst.Fatalf("%v\n", err)
	}
	sim, err := inp.ReadSim(fn, true)
	if err != nil {
		tst.Fatalf("%v\n", err)
	}
	return sim
}

// run runs a complete simulation
func run(tst *testing.T, sim *inp.Simulation, comm par.Comm) *Run {
	r, err := Setup(sim, comm)
	if err != nil {
		tst.Fatalf("%v\n", err)
	}
	err = r.Execute()
	if err != nil {
		tst.Fatalf("%v\n", err)
	}
	return r
}

func Test_channel01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("channel01. Picard and Newton")

	for _, scheme := range []string{"picard", "newton", "advect-once", "single"} {
		sim := readSim(tst, tst.TempDir(), scheme, 3)
		r := run(tst, sim, nil)
		io.Pforan("%s: step = %d, t = %g\n", scheme, r.State().Step, r.State().Time)
		chk.Int(tst, scheme+": final step", r.State().Step, 4)
		chk.Int(tst, scheme+": nrows", len(r.Main.Stats.Rows), 5)
		chk.Int(tst, scheme+": non-converged", r.Main.Stats.NumNonConverged(), 0)
		chk.Float64(tst, scheme+": time", 1e-15, r.State().Time, 0.04)
		if scheme == "newton" && !r.Main.Stats.Rows[4].Newton {
			tst.Errorf("newton scheme should have switched to Newton\n")
		}

		// velocity is zero at the fixed ends
		u := r.Model.Lay.Velocity(r.State().Sol)
		chk.Float64(tst, scheme+": u(0)", 1e-17, u[0], 0)
		chk.Float64(tst, scheme+": u(L)", 1e-17, u[len(u)-1], 0)

		// mean pressure is zero
		integral, measure := r.Model.PressureIntegrals(r.Model.Lay.Pressure(r.State().Sol), "volume")
		chk.Float64(tst, scheme+": mean pressure", 1e-12, integral/measure, 0)

		// statistics file
		if _, err := os.Stat(filepath.Join(sim.DirOut, sim.Data.Stats)); err != nil {
			tst.Errorf("statistics file is missing: %v\n", err)
		}
	}
}

func Test_channel02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("channel02. Picard and Newton agree")

	sols := make([]la.Vector, 2)
	for i, scheme := range []string{"picard", "newton"} {
		sim := readSim(tst, tst.TempDir(), scheme, 3)
		sim.Solver.Rtol = 1e-9
		sim.Solver.NmaxIt = 50
		sim.Time.NmaxSteps = 2
		sols[i] = run(tst, sim, nil).State().Sol
	}
	chk.Array(tst, "solutions", 1e-7, sols[0], sols[1])
}

func Test_channel03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("channel03. Newton tangent")

	sim := readSim(tst, tst.TempDir(), "newton", 3)
	o, err := New(sim, nil)
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	st := o.InitialState()
	lp := st.Sol.GetCopy()
	u := o.Lay.Velocity(lp)
	for i := 1; i < len(u)-1; i++ {
		u[i] = 0.2 * math.Sin(1.7*float64(i))
	}

	// J·v ≈ −(R(lp + εv) − R(lp − εv))/(2ε)
	n := o.Lay.Nu + o.Lay.Np
	v := la.NewVector(len(lp))
	for i := 1; i < o.Lay.Nu-1; i++ {
		v[i] = math.Cos(0.3 * float64(i))
	}
	ls, err := o.Assemble(fem.StokesSystem(), st, lp, fem.Newton)
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	jv := la.NewVector(n)
	ls.A.Mul(jv, v[:n])

	ε := 1e-5
	residual := func(α float64) la.Vector {
		lq := la.NewVector(len(lp))
		la.VecAdd(lq, 1, lp, α, v)
		ls, e := o.Assemble(fem.StokesSystem(), st, lq, fem.DefectCorrection)
		if e != nil {
			tst.Fatalf("%v\n", e)
		}
		return ls.B
	}
	rp, rm := residual(ε), residual(-ε)
	fd := la.NewVector(n)
	for i := 0; i < n; i++ {
		fd[i] = -(rp[i] - rm[i]) / (2 * ε)
	}
	chk.Array(tst, "J·v", 1e-6, jv, fd)

	// non-finite viscosity
	o.Dat.Gamma = math.Inf(-1)
	_, err = o.Assemble(fem.StokesSystem(), st, lp, fem.Picard)
	if !errors.Is(err, fem.ErrNonFinite) {
		tst.Errorf("error should wrap ErrNonFinite. err = %v\n", err)
	}
}

func Test_channel04(tst *testing.T) {

	//verbose()
	chk.PrintTitle("channel04. resumed run equals uninterrupted run")

	for _, scheme := range []string{"picard", "newton"} {

		// uninterrupted run; snapshot at step 3
		dir := tst.TempDir()
		a := run(tst, readSim(tst, dir, scheme, 3), nil)

		// resume from step 3
		sim := readSim(tst, dir, scheme, 3)
		sim.Data.Resume = true
		b := run(tst, sim, nil)

		chk.Int(tst, scheme+": final step", b.State().Step, a.State().Step)
		chk.Int(tst, scheme+": nrows", len(b.Main.Stats.Rows), len(a.Main.Stats.Rows))
		if math.Float64bits(a.State().Time) != math.Float64bits(b.State().Time) {
			tst.Errorf("%s: times differ: %v != %v\n", scheme, a.State().Time, b.State().Time)
		}
		for k, va := range a.State().Vectors() {
			vb := b.State().Vectors()[k]
			for i := range va {
				if math.Float64bits(va[i]) != math.Float64bits(vb[i]) {
					tst.Errorf("%s: vector %d, dof %d: %v != %v\n", scheme, k, i, va[i], vb[i])
					return
				}
			}
		}
	}
}

func Test_channel05(tst *testing.T) {

	//verbose()
	chk.PrintTitle("channel05. two ranks")

	serial := run(tst, readSim(tst, tst.TempDir(), "picard", 1), nil).State().Sol

	dir := tst.TempDir()
	sims := []*inp.Simulation{readSim(tst, dir, "picard", 1), readSim(tst, dir, "picard", 1)}
	sols := make([]la.Vector, 2)
	err := par.RunLocal(2, func(comm par.Comm) error {
		r, err := Setup(sims[comm.Rank()], comm)
		if err != nil {
			return err
		}
		err = r.Execute()
		sols[comm.Rank()] = r.State().Sol
		return err
	})
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	chk.Array(tst, "rank 0 vs rank 1", 1e-17, sols[0], sols[1])
	chk.Array(tst, "parallel vs serial", 1e-4, sols[0], serial)
}
