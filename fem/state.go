// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
)

// Layout defines the blocks of a solution vector:
//  [ u (Nu) | p (Np) | T (Nt) | C0 (Nt) | C1 (Nt) | ... ]
type Layout struct {
	Nu    int // number of velocity dofs
	Np    int // number of pressure dofs
	Nt    int // number of dofs of each advected field
	Ncomp int // number of compositional fields
}

// N returns the total number of dofs
func (o Layout) N() int {
	return o.Nu + o.Np + o.Nt*(1+o.Ncomp)
}

// Fields returns all advection fields
func (o Layout) Fields() []AdvectionField {
	return AdvectionFields(o.Ncomp)
}

// Systems returns all systems: advection fields first, then Stokes
func (o Layout) Systems() (systems []System) {
	for _, f := range o.Fields() {
		systems = append(systems, AdvectionSystem(f))
	}
	return append(systems, StokesSystem())
}

// Range returns the first and one-past-last indices of the block of sys
func (o Layout) Range(sys System) (start, end int) {
	if sys.IsStokes() {
		return 0, o.Nu + o.Np
	}
	f := sys.Field()
	if !f.IsTemperature() && f.CompIndex() >= o.Ncomp {
		chk.Panic("compositional field %d is not available. ncomp = %d", f.CompIndex(), o.Ncomp)
	}
	start = o.Nu + o.Np + f.FieldIndex()*o.Nt
	return start, start + o.Nt
}

// Block returns the part of y corresponding to sys (sharing memory)
func (o Layout) Block(y la.Vector, sys System) la.Vector {
	start, end := o.Range(sys)
	return y[start:end]
}

// Velocity returns the velocity block of y (sharing memory)
func (o Layout) Velocity(y la.Vector) la.Vector {
	return y[:o.Nu]
}

// Pressure returns the pressure block of y (sharing memory)
func (o Layout) Pressure(y la.Vector) la.Vector {
	return y[o.Nu : o.Nu+o.Np]
}

// State holds all mutable data of a simulation
type State struct {

	// scalars
	Time               float64 // current time
	Dt                 float64 // current time step
	OldDt              float64 // previous time step
	Step               int     // time step number
	PreRefinementStep  int     // step number before the last adaptive refinement cycle; -1 means none
	PressureAdjustment float64 // last pressure normalisation adjustment

	// vectors
	Lay      Layout      // layout of all solution vectors
	Sol      la.Vector   // current solution; the linearization point while a step is being solved
	Old      la.Vector   // solution at previous time step
	OldOld   la.Vector   // solution at previous-previous time step
	Aux      []la.Vector // auxiliary vectors; e.g. mesh velocity
	AuxNames []string    // names of auxiliary vectors
}

// NewState allocates a new state
func NewState(lay Layout, auxNames ...string) (o *State) {
	o = new(State)
	o.PreRefinementStep = -1
	o.Lay = lay
	n := lay.N()
	o.Sol = la.NewVector(n)
	o.Old = la.NewVector(n)
	o.OldOld = la.NewVector(n)
	for _, name := range auxNames {
		o.Aux = append(o.Aux, la.NewVector(n))
		o.AuxNames = append(o.AuxNames, name)
	}
	return
}

// Vectors returns all vectors in checkpoint order: Sol, Old, OldOld and Aux
func (o *State) Vectors() []la.Vector {
	return append([]la.Vector{o.Sol, o.Old, o.OldOld}, o.Aux...)
}

// VectorNames returns the names of Vectors
func (o *State) VectorNames() []string {
	return append([]string{"solution", "old_solution", "old_old_solution"}, o.AuxNames...)
}

// Extrapolate sets the linearization point of a new step from the old solutions
//  lp = (1 + dt/dtOld)·old − (dt/dtOld)·oldOld   if step > 1
//  lp = old                                       otherwise
func (o *State) Extrapolate() {
	if o.Step > 1 && o.OldDt > 0 {
		r := o.Dt / o.OldDt
		la.VecAdd(o.Sol, 1+r, o.Old, -r, o.OldOld)
		return
	}
	o.Sol.Apply(1, o.Old)
}

// Advance shifts the old solutions and moves time forward by dt
func (o *State) Advance(dt float64) {
	o.OldOld.Apply(1, o.Old)
	o.Old.Apply(1, o.Sol)
	o.OldDt = o.Dt
	o.Dt = dt
	o.Time += dt
	o.Step++
}

// Initialise copies the initial solution into all time levels
func (o *State) Initialise(y0 la.Vector) {
	o.Sol.Apply(1, y0)
	o.Old.Apply(1, y0)
	o.OldOld.Apply(1, y0)
}

// finite returns the index of the first non-finite entry of x; -1 means all finite
func finite(x la.Vector) int {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}
