// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"fmt"
	"sort"

	"github.com/cpmech/gomantle/inp"
	"github.com/cpmech/gomantle/par"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/utl"
)

// StepReport holds the outcome of the nonlinear iterations of one time step
type StepReport struct {
	Iterations int       // number of outer iterations (solve passes)
	Converged  bool      // tolerance met; false means iteration-limited
	Systems    []System  // tracked systems
	Initial    []float64 // initial residuals of tracked systems
	Final      []float64 // last residuals of tracked systems
	Relative   float64   // largest relative residual of the last iteration
	Newton     bool      // Newton linearization was used
}

// Scheme implements a nonlinear solver scheme
type Scheme interface {
	Solve(st *State) (rep *StepReport, err error)
}

// allocators holds all available schemes
var allocators = make(map[string]func(c *Core) Scheme)

// NewScheme allocates the scheme named name
func NewScheme(name string, c *Core) (Scheme, error) {
	if alloc, ok := allocators[name]; ok {
		return alloc(c), nil
	}
	return nil, chk.Err("cannot find scheme named %q. options: %v", name, SchemeNames())
}

// SchemeNames returns the names of all schemes
func SchemeNames() (names []string) {
	for name := range allocators {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

// Core holds the data shared by all schemes
type Core struct {
	Dat     *inp.SolverData // solver data
	Col     *Collaborators  // collaborators
	Res     *Residuals      // residual evaluator
	Pnorm   *PressureNorm   // pressure normaliser
	Ew      EisenstatWalker // linear tolerance adapter
	ShowMsg bool            // show messages
}

// NewCore returns a new Core
func NewCore(dat *inp.SolverData, col *Collaborators, showMsg bool) (o *Core) {
	o = new(Core)
	o.Dat = dat
	o.Col = col
	o.Pnorm = NewPressureNorm(dat.Pnorm, dat.Psurface, col)
	o.Res = NewResiduals(col, o.Pnorm, dat.Pscale)
	o.Ew = EisenstatWalker{Variant: dat.EwVariant, Floor: dat.EwFloor, Ceil: dat.EwCeil}
	o.ShowMsg = showMsg
	return
}

// BeginStep prepares a new time step: forgets assembled systems, extrapolates the
// linearization point and rebuilds constraints
func (o *Core) BeginStep(st *State) (err error) {
	o.Res.BeginStep()
	st.Extrapolate()
	if o.Col.Constraints != nil {
		err = o.Col.Constraints(st)
		if err != nil {
			return chk.Err("cannot compute constraints:\n%v", err)
		}
	}
	return
}

// SolveAdvection assembles and solves the system of field f at the current linearization
// point st.Sol and writes the solution into the block of f
func (o *Core) SolveAdvection(st *State, f AdvectionField) (err error) {
	sys := AdvectionSystem(f)
	ls, err := o.Res.System(sys, st, st.Sol, Picard)
	if err != nil {
		return
	}
	x := st.Lay.Block(st.Sol, sys)
	_, err = o.Col.Ops[sys].Solve(sys, ls, x, o.Dat.LinTolAdv)
	return o.agree(sys, err)
}

// agree makes all ranks fail if the linear solver failed on any rank
func (o *Core) agree(sys System, err error) error {
	if err != nil {
		err = fmt.Errorf("cannot solve %v system:\n%w", sys, err)
	}
	return par.Consensus(o.Col.Comm, err)
}

// SolveAllAdvection solves temperature and then all compositional fields in order
func (o *Core) SolveAllAdvection(st *State) (err error) {
	for _, f := range st.Lay.Fields() {
		err = o.SolveAdvection(st, f)
		if err != nil {
			return
		}
	}
	return
}

// SolveStokes assembles and solves the Stokes system (Picard linearization) at the current
// linearization point; the velocity and (rescaled, normalised) pressure are written into st.Sol
func (o *Core) SolveStokes(st *State) (err error) {
	sys := StokesSystem()
	ls, err := o.Res.System(sys, st, st.Sol, Picard)
	if err != nil {
		return
	}
	x := st.Lay.Block(o.Res.work, sys).GetCopy()
	_, err = o.Col.Ops[sys].Solve(sys, ls, x, o.Dat.LinTolStokes)
	err = o.agree(sys, err)
	if err != nil {
		return
	}
	o.setStokes(st, x)
	return
}

// setStokes sets the Stokes block of st.Sol from the solution x given in mathematical form
func (o *Core) setStokes(st *State, x la.Vector) {
	lay := st.Lay
	u, p := lay.Velocity(st.Sol), lay.Pressure(st.Sol)
	copy(u, x[:lay.Nu])
	for i := range p {
		p[i] = o.Res.Pscale * x[lay.Nu+i]
	}
	o.Pnorm.Normalize(st, st.Sol)
}

// updateStokes adds α·δ (mathematical form) to the Stokes block of y and normalises the
// pressure; st.PressureAdjustment is updated
func (o *Core) updateStokes(st *State, y, δ la.Vector, α float64) {
	lay := st.Lay
	o.Pnorm.Denormalize(st, y)
	u, p := lay.Velocity(y), lay.Pressure(y)
	for i := range u {
		u[i] += α * δ[i]
	}
	for i := range p {
		p[i] += α * o.Res.Pscale * δ[lay.Nu+i]
	}
	o.Pnorm.Normalize(st, y)
}

// Residuals returns the residuals of systems at the current linearization point
func (o *Core) Residuals(st *State, systems []System, stokesMode Mode) (res []float64, err error) {
	res = make([]float64, len(systems))
	for i, sys := range systems {
		mode := Picard
		if sys.IsStokes() {
			mode = stokesMode
		}
		res[i], _, err = o.Res.Evaluate(sys, st, st.Sol, mode)
		if err != nil {
			return
		}
	}
	return
}

// iterate runs the outer iterations over the tracked systems.
//  residuals -- computes the residuals at the start of iteration it
//  relative  -- computes relative residuals from current and initial ones; nil means res/res0
//  pass      -- runs one solve pass updating the linearization point
func (o *Core) iterate(st *State, systems []System,
	residuals func(it int) ([]float64, error),
	relative func(res, res0 []float64) []float64,
	pass func(it int) error) (rep *StepReport, err error) {

	rep = &StepReport{Systems: systems}
	if relative == nil {
		relative = relativeTo
	}

	// message
	if o.Dat.ShowR && o.ShowMsg {
		io.Pf("\n%13s%4s", "t", "it")
		for _, sys := range systems {
			io.Pf("%23s", "rel("+sys.String()+")")
		}
		io.Pf("\n")
	}

	// iterations
	for it := 0; ; it++ {

		// residuals
		var res []float64
		res, err = residuals(it)
		if err != nil {
			return
		}
		if it == 0 {
			rep.Initial = append([]float64{}, res...)
		}
		rep.Final = res
		rel := relative(res, rep.Initial)
		rep.Relative = 0
		for _, r := range rel {
			rep.Relative = utl.Max(rep.Relative, r)
		}
		if o.Dat.ShowR && o.ShowMsg {
			io.Pf("%13.6e%4d", st.Time, it)
			for _, r := range rel {
				io.Pf("%23.15e", r)
			}
			io.Pf("\n")
		}

		// check convergence
		if it > 0 && rep.Relative < o.Dat.Rtol {
			rep.Converged = true
			return
		}

		// check budget
		if it == o.Dat.NmaxIt {
			if o.ShowMsg {
				io.PfYel("warning: step %d: max number of iterations reached (%d). largest relative residual = %g\n", st.Step, it, rep.Relative)
			}
			return
		}

		// solve
		err = pass(it)
		if err != nil {
			return
		}
		rep.Iterations++
	}
}

// relativeTo returns res[i]/res0[i]; zero initial residuals give zero
func relativeTo(res, res0 []float64) (rel []float64) {
	rel = make([]float64, len(res))
	for i := range res {
		if res0[i] > 0 {
			rel[i] = res[i] / res0[i]
		}
	}
	return
}
