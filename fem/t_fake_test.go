// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"math"

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

// identity implements the identity operator
type identity struct{}

func (identity) Mul(y, x la.Vector) { copy(y, x) }

// fake implements collaborators where every system is x = target and every linear
// solve removes half of the error; thus residuals halve at each outer iteration
type fake struct {
	target float64 // right-hand side of all systems
	nan    bool    // put a NaN in the right-hand side
	modes  []Mode  // modes of all Stokes assemblies
	nasm   int     // number of assemblies
	ntols  []float64
}

// collaborators returns the capability table using fake operations
func (o *fake) collaborators(lay Layout, comm par.Comm) *Collaborators {
	ops := make(map[System]*SystemOps)
	for _, sys := range lay.Systems() {
		ops[sys] = &SystemOps{Assemble: o.assemble, Solve: o.solve, Dependent: true}
	}
	return &Collaborators{Comm: comm, Ops: ops}
}

func (o *fake) assemble(sys System, st *State, lp la.Vector, mode Mode) (*LinearSystem, error) {
	o.nasm++
	x := st.Lay.Block(lp, sys)
	b := la.NewVector(len(x))
	b.Fill(o.target)
	if mode != Picard {
		for i := range b {
			b[i] -= x[i]
		}
	}
	if o.nan {
		b[0] = math.NaN()
	}
	if sys.IsStokes() {
		o.modes = append(o.modes, mode)
	}
	return &LinearSystem{A: identity{}, B: b, Nu: st.Lay.Nu}, nil
}

func (o *fake) solve(sys System, ls *LinearSystem, x la.Vector, tol float64) (float64, error) {
	if sys.IsStokes() {
		o.ntols = append(o.ntols, tol)
	}
	r := la.NewVector(len(x))
	ls.A.Mul(r, x)
	var sum float64
	for i := range x {
		e := ls.B[i] - r[i]
		x[i] += 0.5 * e
		sum += 0.25 * e * e
	}
	return math.Sqrt(sum), nil
}

// newSolverData returns solver data for tests
func newSolverData(scheme string, nmaxit int, rtol float64) *inp.SolverData {
	var dat inp.SolverData
	dat.SetDefault()
	dat.Type = scheme
	dat.NmaxIt = nmaxit
	dat.Rtol = rtol
	dat.Pnorm = "no"
	dat.PostProcess()
	return &dat
}

// newFakeRun allocates a scheme using fake collaborators
func newFakeRun(tst interface{ Fatalf(string, ...interface{}) }, dat *inp.SolverData, lay Layout) (*fake, *Core, Scheme, *State) {
	f := &fake{target: 1}
	core := NewCore(dat, f.collaborators(lay, par.Serial{}), chk.Verbose)
	sch, err := NewScheme(dat.Type, core)
	if err != nil {
		tst.Fatalf("%v", err)
	}
	st := NewState(lay)
	err = core.BeginStep(st)
	if err != nil {
		tst.Fatalf("%v", err)
	}
	return f, core, sch, st
}
