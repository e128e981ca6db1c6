// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import "github.com/cpmech/gosl/chk"

// SingleScheme solves the advection systems once and then Stokes once.
// With Prescribed = true, Stokes is not solved; velocity and pressure are set by the
// Prescribe collaborator (or kept unchanged)
type SingleScheme struct {
	*Core
	Prescribed bool
}

// add schemes to database
func init() {
	allocators["single"] = func(c *Core) Scheme {
		return &SingleScheme{Core: c}
	}
	allocators["prescribed"] = func(c *Core) Scheme {
		return &SingleScheme{Core: c, Prescribed: true}
	}
}

// Solve solves one time step
func (o *SingleScheme) Solve(st *State) (rep *StepReport, err error) {

	// tracked systems
	systems := st.Lay.Systems()
	if o.Prescribed {
		systems = systems[:len(systems)-1]

		// velocity and pressure
		if o.Col.Prescribe != nil {
			err = o.Col.Prescribe(st, st.Sol)
			if err != nil {
				return nil, chk.Err("cannot prescribe velocity and pressure:\n%v", err)
			}
		}
	}

	// initial residuals
	rep = &StepReport{Systems: systems, Iterations: 1, Converged: true}
	rep.Initial, err = o.Residuals(st, systems, Picard)
	if err != nil {
		return
	}

	// advection
	err = o.SolveAllAdvection(st)
	if err != nil {
		return
	}

	// Stokes
	if !o.Prescribed {
		err = o.SolveStokes(st)
		if err != nil {
			return
		}
	}

	// final residuals
	rep.Final, err = o.Residuals(st, systems, Picard)
	if err != nil {
		return
	}
	rel := relativeTo(rep.Final, rep.Initial)
	for _, r := range rel {
		if r > rep.Relative {
			rep.Relative = r
		}
	}
	return
}
