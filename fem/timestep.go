// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"math"

	"github.com/cpmech/gomantle/inp"
	"github.com/cpmech/gomantle/par"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/utl"
)

// TimeStepper computes the length of the next time step
type TimeStepper struct {
	Dat   *inp.TimeData                   // time stepping data
	Comm  par.Comm                        // communicator
	Cells func(lp la.Vector) []CellSample // samples of locally owned cells
	Term  *Termination                    // termination manager; may be nil
}

// NewTimeStepper returns a new TimeStepper
func NewTimeStepper(dat *inp.TimeData, col *Collaborators, term *Termination) *TimeStepper {
	return &TimeStepper{Dat: dat, Comm: col.Comm, Cells: col.Cells, Term: term}
}

// Compute returns the next time step from the current solution st.Sol.
//  convective : Cfl / (degree · max(speed/h))        if max(speed/h) > 0
//  conductive : Cfl · min(h²/κ)                       if conduction is on and κ > 0
//  otherwise  : DtMax
// The result is bounded by DtMax and by Dt·(1+MaxInc) once a previous step exists,
// and finally clamped by the termination manager to land on the end time.
// This is a collective operation
func (o *TimeStepper) Compute(st *State) (dt float64, err error) {

	// local bounds
	maxRate := 0.0
	minCond := math.MaxFloat64
	if o.Cells != nil {
		for _, c := range o.Cells(st.Sol) {
			if c.H <= 0 {
				return 0, chk.Err("cell length scale must be positive. h = %g is invalid", c.H)
			}
			maxRate = utl.Max(maxRate, c.Speed/c.H)
			if o.Dat.Conduction && c.Kappa > 0 {
				minCond = utl.Min(minCond, c.H*c.H/c.Kappa)
			}
		}
	}

	// global bounds
	maxRate = par.Max(o.Comm, maxRate)
	dt = o.Dat.DtMax
	useDefault := true
	if maxRate > 0 {
		dt = o.Dat.Cfl / (float64(o.Dat.Degree) * maxRate)
		useDefault = false
	}
	if o.Dat.Conduction {
		minCond = par.Min(o.Comm, minCond)
		if minCond < math.MaxFloat64 {
			cond := o.Dat.Cfl * minCond
			if useDefault {
				dt = cond
			} else {
				dt = utl.Min(dt, cond)
			}
		}
	}
	if math.IsNaN(dt) || dt <= 0 {
		return 0, chk.Err("time step is invalid: dt = %g", dt)
	}

	// limit growth and clamp
	if st.Dt > 0 {
		dt = utl.Min(dt, st.Dt*(1+o.Dat.MaxInc))
	}
	dt = utl.Min(dt, o.Dat.DtMax)
	if o.Term != nil {
		dt = o.Term.ClampDt(st, dt)
	}
	return
}
