// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

// NewtonScheme iterates {advection, Stokes} where the Stokes system is solved for an update.
// Defect correction (Picard operator) is used until the relative Stokes residual drops below
// SwitchTol or after MaxPreNewton iterations; then the Newton operator is used until the end
// of the step
type NewtonScheme struct {
	*Core
}

// add scheme to database
func init() {
	allocators["newton"] = func(c *Core) Scheme {
		return &NewtonScheme{Core: c}
	}
}

// Solve solves one time step
func (o *NewtonScheme) Solve(st *State) (rep *StepReport, err error) {

	// initial Newton residual
	r0, err := o.InitialNewtonResidual(st)
	if err != nil {
		return
	}

	// auxiliary
	systems := st.Lay.Systems()
	ns := len(systems) - 1
	stokes := StokesSystem()
	newton := false
	nNewton := 0
	var prevRes, lastLin float64
	lastTol := o.Dat.LinTolStokes
	mode := func() Mode {
		if newton {
			return Newton
		}
		return DefectCorrection
	}

	// iterations
	rep, err = o.iterate(st, systems,

		// residuals and switch
		func(it int) (res []float64, err error) {
			res, err = o.Residuals(st, systems, mode())
			if err != nil {
				return
			}
			if !newton && (relative(res[ns], r0) < o.Dat.SwitchTol || it >= o.Dat.MaxPreNewton) {
				newton = true
				if o.ShowMsg {
					io.Pforan("step %d: switching to Newton at iteration %d. relative Stokes residual = %g\n", st.Step, it, relative(res[ns], r0))
				}
			}
			return
		},

		// Stokes residual relative to the initial Newton residual
		func(res, res0 []float64) []float64 {
			rel := relativeTo(res, res0)
			rel[ns] = relative(res[ns], r0)
			return rel
		},

		// solve pass
		func(it int) (err error) {
			err = o.SolveAllAdvection(st)
			if err != nil {
				return
			}
			r, ls, err := o.Res.Evaluate(stokes, st, st.Sol, mode())
			if err != nil {
				return
			}
			tol := o.Dat.LinTolStokes
			if newton && nNewton > 0 {
				tol = o.Ew.Next(ToleranceHistory{Rold: prevRes, Rnew: r, Rlin: lastLin, Tol: lastTol})
			}
			δ := la.NewVector(st.Lay.Nu + st.Lay.Np)
			lastLin, err = o.Col.Ops[stokes].Solve(stokes, ls, δ, tol)
			err = o.agree(stokes, err)
			if err != nil {
				return
			}
			lastTol, prevRes = tol, r
			if newton {
				nNewton++
			}
			return o.lineSearch(st, δ, r, mode())
		})

	if rep != nil {
		rep.Newton = newton
	}
	return
}

// InitialNewtonResidual computes the Stokes residual with zero velocity and the current
// pressure guess. The pressure adjustment is recomputed from the pressure of this point
func (o *Core) InitialNewtonResidual(st *State) (r0 float64, err error) {
	tmp := st.Sol.GetCopy()
	st.Lay.Velocity(tmp).Fill(0)
	r0, _, err = o.Res.Evaluate(StokesSystem(), st, tmp, DefectCorrection)
	if err != nil {
		return
	}
	o.Pnorm.Denormalize(st, tmp)
	o.Pnorm.Normalize(st, tmp)
	return
}

// lineSearch applies the update δ to the Stokes block of st.Sol. With LineSearchMax > 0,
// the step length is halved while the residual does not decrease sufficiently
func (o *Core) lineSearch(st *State, δ la.Vector, r float64, mode Mode) (err error) {
	if o.Dat.LineSearchMax < 1 {
		o.updateStokes(st, st.Sol, δ, 1)
		return
	}
	adj := st.PressureAdjustment
	trial := la.NewVector(len(st.Sol))
	α := 1.0
	for k := 0; ; k++ {
		trial.Apply(1, st.Sol)
		st.PressureAdjustment = adj
		o.updateStokes(st, trial, δ, α)
		if k == o.Dat.LineSearchMax {
			break
		}
		var rt float64
		rt, _, err = o.Res.Evaluate(StokesSystem(), st, trial, mode)
		if err != nil {
			return
		}
		if rt < (1-1e-4*α)*r {
			break
		}
		α /= 2
	}
	if α < 1 && o.ShowMsg {
		io.Pforan("step %d: line search step length = %g\n", st.Step, α)
	}
	st.Sol.Apply(1, trial)
	return
}

// relative returns r/r0; zero r0 gives zero
func relative(r, r0 float64) float64 {
	if r0 > 0 {
		return r / r0
	}
	return 0
}
