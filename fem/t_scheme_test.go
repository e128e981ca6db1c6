// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"errors"
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

func Test_scheme01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("scheme01. Picard: halving residuals converge in 10 iterations")

	lay := Layout{Nu: 1, Nt: 1}
	dat := newSolverData("picard", 20, 1e-3)
	_, _, sch, st := newFakeRun(tst, dat, lay)

	rep, err := sch.Solve(st)
	if err != nil {
		tst.Errorf("Solve failed:\n%v", err)
		return
	}
	io.Pforan("rep = %+v\n", rep)
	chk.Int(tst, "iterations", rep.Iterations, 10)
	if !rep.Converged {
		tst.Errorf("scheme should have converged\n")
	}
	chk.Array(tst, "initial", 1e-17, rep.Initial, []float64{1, 1})
	chk.Array(tst, "final", 1e-15, rep.Final, []float64{math.Pow(0.5, 10), math.Pow(0.5, 10)})
	chk.Float64(tst, "T", 1e-15, st.Sol[1], 1-math.Pow(0.5, 10))
	chk.Float64(tst, "u", 1e-15, st.Sol[0], 1-math.Pow(0.5, 10))
}

func Test_scheme02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("scheme02. Picard: iteration budget exhausted")

	lay := Layout{Nu: 1, Nt: 1}
	dat := newSolverData("picard", 5, 1e-3)
	_, _, sch, st := newFakeRun(tst, dat, lay)

	rep, err := sch.Solve(st)
	if err != nil {
		tst.Errorf("Solve failed:\n%v", err)
		return
	}
	chk.Int(tst, "iterations", rep.Iterations, 5)
	if rep.Converged {
		tst.Errorf("scheme should not have converged\n")
	}

	// the best available solution is kept
	chk.Float64(tst, "T", 1e-15, st.Sol[1], 1-math.Pow(0.5, 5))
	chk.Float64(tst, "relative", 1e-15, rep.Relative, math.Pow(0.5, 5))

	// budget bounds the number of iterations
	for nmax := 1; nmax < 15; nmax++ {
		dat := newSolverData("picard", nmax, 1e-3)
		_, _, sch, st := newFakeRun(tst, dat, lay)
		rep, err := sch.Solve(st)
		if err != nil {
			tst.Errorf("Solve failed:\n%v", err)
			return
		}
		if rep.Iterations > nmax {
			tst.Errorf("%d iterations exceed the budget of %d\n", rep.Iterations, nmax)
			return
		}
	}
}

func Test_scheme03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("scheme03. single, prescribed, stokes-picard, advect-once")

	lay := Layout{Nu: 1, Nt: 1, Ncomp: 1}

	// single
	_, _, sch, st := newFakeRun(tst, newSolverData("single", 10, 1e-3), lay)
	rep, err := sch.Solve(st)
	if err != nil {
		tst.Errorf("Solve failed:\n%v", err)
		return
	}
	chk.Int(tst, "single: iterations", rep.Iterations, 1)
	chk.Array(tst, "single: sol", 1e-17, st.Sol, []float64{0.5, 0.5, 0.5})

	// prescribed
	_, _, sch, st = newFakeRun(tst, newSolverData("prescribed", 10, 1e-3), lay)
	rep, err = sch.Solve(st)
	if err != nil {
		tst.Errorf("Solve failed:\n%v", err)
		return
	}
	chk.Int(tst, "prescribed: nsystems", len(rep.Systems), 2)
	chk.Array(tst, "prescribed: sol", 1e-17, st.Sol, []float64{0, 0.5, 0.5})

	// stokes-picard
	_, _, sch, st = newFakeRun(tst, newSolverData("stokes-picard", 20, 1e-3), lay)
	rep, err = sch.Solve(st)
	if err != nil {
		tst.Errorf("Solve failed:\n%v", err)
		return
	}
	chk.Int(tst, "stokes-picard: iterations", rep.Iterations, 10)
	chk.Array(tst, "stokes-picard: sol", 1e-15, st.Sol, []float64{1 - math.Pow(0.5, 10), 0, 0})

	// advect-once
	_, _, sch, st = newFakeRun(tst, newSolverData("advect-once", 20, 1e-3), lay)
	rep, err = sch.Solve(st)
	if err != nil {
		tst.Errorf("Solve failed:\n%v", err)
		return
	}
	chk.Int(tst, "advect-once: iterations", rep.Iterations, 10)
	chk.Array(tst, "advect-once: sol", 1e-15, st.Sol, []float64{1 - math.Pow(0.5, 10), 0.5, 0.5})

	// unknown
	_, err = NewScheme("unknown", nil)
	if err == nil {
		tst.Errorf("unknown scheme should fail\n")
	}
}

func Test_scheme04(tst *testing.T) {

	//verbose()
	chk.PrintTitle("scheme04. Newton: one-way switch from defect correction")

	lay := Layout{Nu: 1, Nt: 1}
	dat := newSolverData("newton", 20, 1e-3)
	dat.SwitchTol = 0.3
	dat.MaxPreNewton = 10
	f, _, sch, st := newFakeRun(tst, dat, lay)

	rep, err := sch.Solve(st)
	if err != nil {
		tst.Errorf("Solve failed:\n%v", err)
		return
	}
	io.Pforan("modes = %v\n", f.modes)
	io.Pforan("tols  = %v\n", f.ntols)
	if !rep.Newton || !rep.Converged {
		tst.Errorf("Newton should have been used and converged. rep = %+v\n", rep)
		return
	}
	chk.Int(tst, "iterations", rep.Iterations, 10)

	// never switch back
	switched := false
	for i, m := range f.modes {
		if m == Newton {
			switched = true
		}
		if switched && m != Newton {
			tst.Errorf("mode %d = %v after switching to Newton\n", i, m)
		}
		if m == Picard {
			tst.Errorf("Newton scheme must not use Picard mode for Stokes\n")
		}
	}

	// first Newton solve uses the configured tolerance
	chk.Float64(tst, "tol of first solve", 1e-17, f.ntols[0], dat.LinTolStokes)
	for _, tol := range f.ntols {
		if tol < dat.EwFloor || tol > dat.EwCeil {
			tst.Errorf("tolerance %g is out of bounds\n", tol)
		}
	}

	// switch immediately and use a line search
	dat = newSolverData("newton", 20, 1e-3)
	dat.MaxPreNewton = 0
	dat.LineSearchMax = 3
	f, _, sch, st = newFakeRun(tst, dat, lay)
	rep, err = sch.Solve(st)
	if err != nil {
		tst.Errorf("Solve failed:\n%v", err)
		return
	}
	chk.Int(tst, "iterations (line search)", rep.Iterations, 10)
	for i, m := range f.modes[1:] {
		if m != Newton {
			tst.Errorf("mode %d should be Newton\n", i+1)
		}
	}
}

func Test_scheme05(tst *testing.T) {

	//verbose()
	chk.PrintTitle("scheme05. non-finite values are fatal")

	lay := Layout{Nu: 1, Nt: 1}
	f, _, sch, st := newFakeRun(tst, newSolverData("picard", 20, 1e-3), lay)
	f.nan = true
	_, err := sch.Solve(st)
	if err == nil {
		tst.Errorf("Solve should fail\n")
		return
	}
	io.Pforan("err = %v\n", err)
	if !errors.Is(err, ErrNonFinite) {
		tst.Errorf("error should wrap ErrNonFinite\n")
	}
}

func Test_scheme06(tst *testing.T) {

	//verbose()
	chk.PrintTitle("scheme06. Newton: solution-independent operators")

	lay := Layout{Nu: 1, Nt: 1}
	for _, lsmax := range []int{0, 3} {
		dat := newSolverData("newton", 30, 1e-3)
		dat.MaxPreNewton = 0
		dat.LineSearchMax = lsmax
		_, core, sch, st := newFakeRun(tst, dat, lay)
		for _, ops := range core.Col.Ops {
			ops.Dependent = false
		}
		rep, err := sch.Solve(st)
		if err != nil {
			tst.Errorf("Solve failed:\n%v", err)
			return
		}
		io.Pforan("line search = %d: rep = %+v sol = %v\n", lsmax, rep, st.Sol)
		if !rep.Converged {
			tst.Errorf("line search = %d: scheme should have converged\n", lsmax)
		}
		chk.Int(tst, "iterations", rep.Iterations, 10)
		chk.Float64(tst, "u", 1e-15, st.Sol[0], 1-math.Pow(0.5, 10))

		// the reported residual is the one at the committed solution
		r, _, err := core.Res.Evaluate(StokesSystem(), st, st.Sol, Newton)
		if err != nil {
			tst.Errorf("%v\n", err)
			return
		}
		chk.Float64(tst, "Stokes residual", 1e-15, r, math.Pow(0.5, 10))
	}
}
