// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"github.com/cpmech/gomantle/par"
	"github.com/cpmech/gosl/la"
)

// Mode defines how the Stokes system is linearized
type Mode int

const (
	// Picard assembles A(lp)·x = b(lp); the unknown is the solution itself
	Picard Mode = iota

	// DefectCorrection assembles A(lp)·δ = −R(lp) with the Picard operator
	DefectCorrection

	// Newton assembles J(lp)·δ = −R(lp) with the derivatives of the constitutive law
	Newton
)

// String returns the name of the mode
func (o Mode) String() string {
	switch o {
	case Picard:
		return "picard"
	case DefectCorrection:
		return "defect-correction"
	case Newton:
		return "newton"
	}
	return "unknown"
}

// Operator computes y := A·x
type Operator interface {
	Mul(y, x la.Vector)
}

// LinearSystem holds an assembled system of one block
type LinearSystem struct {
	A    Operator  // operator
	B    la.Vector // right-hand side. −R(lp) in DefectCorrection and Newton modes
	Nu   int       // number of velocity dofs in the block (Stokes only)
	Mode Mode      // linearization used to assemble this system
	Rows []int     // rows owned by this rank; nil means all rows
}

// AssembleFunc assembles the system sys at the linearization point lp.
// The pressure block of lp is given in "mathematical" form: denormalized and divided by
// the pressure scaling factor. Must be idempotent for equal inputs.
type AssembleFunc func(sys System, st *State, lp la.Vector, mode Mode) (*LinearSystem, error)

// SolveFunc solves ls for x (x holds the initial guess on input) with relative tolerance tol
// and returns the achieved residual norm ‖A·x − b‖
type SolveFunc func(sys System, ls *LinearSystem, x la.Vector, tol float64) (achieved float64, err error)

// SystemOps holds the operations available for one system
type SystemOps struct {
	Assemble  AssembleFunc // assembler
	Solve     SolveFunc    // linear solver
	Dependent bool         // coefficients depend on the current solution
}

// CellSample holds the quantities of one locally owned cell used by the time step controller
type CellSample struct {
	H     float64 // length scale
	Speed float64 // largest transport speed
	Kappa float64 // diffusivity
}

// Collaborators holds all operations the solver core needs from the discretisation
type Collaborators struct {
	Comm  par.Comm                        // communicator
	Ops   map[System]*SystemOps           // capability table
	Cells func(lp la.Vector) []CellSample // samples of locally owned cells

	// PressureIntegrals returns the local integral of p and the local measure of the
	// integration domain (volume or top surface, depending on kind)
	PressureIntegrals func(p la.Vector, kind string) (integral, measure float64)

	// Prescribe sets the velocity and pressure blocks of lp when Stokes is not solved; may be nil
	Prescribe func(st *State, lp la.Vector) error

	// Constraints rebuilds constraint data depending on the runtime classification of cells;
	// called at the beginning of each step and after restoring a snapshot; may be nil
	Constraints func(st *State) error
}

// ops returns the operations of sys
func (o *Collaborators) ops(sys System) (*SystemOps, bool) {
	ops, ok := o.Ops[sys]
	return ops, ok && ops != nil && ops.Assemble != nil
}
