// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"errors"
	"fmt"
	"math"

	"github.com/cpmech/gomantle/par"
	"github.com/cpmech/gosl/la"
)

// ErrNonFinite is returned (wrapped) when an assembled system contains NaN or Inf values
var ErrNonFinite = errors.New("non-finite value")

// cached holds an assembled system and the point where it was assembled
type cached struct {
	ls *LinearSystem
	at la.Vector // working copy of the linearization point used in the assembly
}

// cacheKey identifies a cached system
type cacheKey struct {
	sys  System
	mode Mode
}

// Residuals evaluates nonlinear residuals and keeps the assembled systems of the current step
type Residuals struct {
	Col    *Collaborators // collaborators
	Pnorm  *PressureNorm  // pressure normaliser
	Pscale float64        // pressure scaling factor
	Nasm   int            // number of assemblies so far

	cache map[cacheKey]*cached
	work  la.Vector
}

// NewResiduals returns a new residual evaluator
func NewResiduals(col *Collaborators, pnorm *PressureNorm, pscale float64) (o *Residuals) {
	o = new(Residuals)
	o.Col = col
	o.Pnorm = pnorm
	o.Pscale = pscale
	if o.Pscale == 0 {
		o.Pscale = 1
	}
	o.cache = make(map[cacheKey]*cached)
	return
}

// BeginStep forgets all assembled systems; every system is assembled at its next use
func (o *Residuals) BeginStep() {
	o.Invalidate()
}

// Invalidate flags all systems for rebuild
func (o *Residuals) Invalidate() {
	for k := range o.cache {
		delete(o.cache, k)
	}
}

// MathPoint fills w with lp where the pressure is denormalized and divided by the pressure
// scaling factor; i.e. the form seen by the assemblers and linear solvers
func (o *Residuals) MathPoint(w la.Vector, st *State, lp la.Vector) {
	w.Apply(1, lp)
	o.Pnorm.Denormalize(st, w)
	p := st.Lay.Pressure(w)
	for i := range p {
		p[i] /= o.Pscale
	}
}

// System returns the system sys assembled at lp with the given mode. A cached system is
// returned if lp did not change or, in Picard mode, if the system is not solution-dependent.
// In the other modes B = −R(lp) always depends on lp
func (o *Residuals) System(sys System, st *State, lp la.Vector, mode Mode) (ls *LinearSystem, err error) {

	// working copy
	if len(o.work) != len(lp) {
		o.work = la.NewVector(len(lp))
	}
	o.MathPoint(o.work, st, lp)

	// cached
	ops, ok := o.Col.ops(sys)
	if !ok {
		return nil, fmt.Errorf("cannot find assembler for %v system", sys)
	}
	key := cacheKey{sys, mode}
	c, reuse := o.cache[key]
	if reuse {
		reuse = (!ops.Dependent && mode == Picard) || same(c.at, o.work)
	}
	if par.Min(o.Col.Comm, b2f(reuse)) > 0.5 {
		return c.ls, nil
	}

	// assemble
	ls, err = ops.Assemble(sys, st, o.work, mode)
	if err != nil {
		err = fmt.Errorf("cannot assemble %v system:\n%w", sys, err)
	} else if i := finite(ls.B); i >= 0 {
		err = fmt.Errorf("cannot assemble %v system: right-hand side has %w at row %d", sys, ErrNonFinite, i)
	}
	err = par.Consensus(o.Col.Comm, err)
	if err != nil {
		return nil, err
	}
	o.Nasm++
	ls.Mode = mode
	o.cache[key] = &cached{ls: ls, at: o.work.GetCopy()}
	return
}

// Evaluate returns the nonlinear residual of sys at lp. In Picard mode, this is ‖A·x − b‖
// where x is the block of lp (in mathematical form); otherwise ‖B‖ = ‖R(lp)‖.
// For the Stokes system, the velocity and pressure parts are combined as sqrt(‖r_u‖² + ‖r_p‖²).
// This is a collective operation
func (o *Residuals) Evaluate(sys System, st *State, lp la.Vector, mode Mode) (res float64, ls *LinearSystem, err error) {
	ls, err = o.System(sys, st, lp, mode)
	if err != nil {
		return
	}
	var r la.Vector
	if mode == Picard {
		x := st.Lay.Block(o.work, sys)
		r = la.NewVector(len(x))
		ls.A.Mul(r, x)
		for i := range r {
			r[i] -= ls.B[i]
		}
	} else {
		r = ls.B
	}
	res = o.Norm(sys, ls, r)
	if math.IsNaN(res) || math.IsInf(res, 0) {
		return 0, nil, fmt.Errorf("cannot compute residual of %v system: operator produced %w", sys, ErrNonFinite)
	}
	return
}

// Norm returns the global norm of the block vector r of system sys.
// This is a collective operation
func (o *Residuals) Norm(sys System, ls *LinearSystem, r la.Vector) float64 {
	nu := 0
	if sys.IsStokes() {
		nu = ls.Nu
	}
	var su, sp float64
	add := func(i int) {
		if i < nu {
			su += r[i] * r[i]
		} else {
			sp += r[i] * r[i]
		}
	}
	if ls.Rows == nil {
		for i := range r {
			add(i)
		}
	} else {
		for _, i := range ls.Rows {
			add(i)
		}
	}
	sums := par.Sum(o.Col.Comm, su, sp)
	return math.Hypot(math.Sqrt(sums[0]), math.Sqrt(sums[1]))
}

// same tells whether a and b are bitwise equal
func same(a, b la.Vector) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			return false
		}
	}
	return true
}

// b2f converts bool to float64
func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
