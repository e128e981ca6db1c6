// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

// PicardScheme implements fixed-point iterations
//  AdvectOnce = false, Stokes only = false : iterate {advection, Stokes}
//  AdvectOnce = true                        : solve advection once, then iterate Stokes
//  StokesOnly = true                        : iterate Stokes; advection fields are kept fixed
type PicardScheme struct {
	*Core
	AdvectOnce bool
	StokesOnly bool
}

// add schemes to database
func init() {
	allocators["picard"] = func(c *Core) Scheme {
		return &PicardScheme{Core: c}
	}
	allocators["advect-once"] = func(c *Core) Scheme {
		return &PicardScheme{Core: c, AdvectOnce: true}
	}
	allocators["stokes-picard"] = func(c *Core) Scheme {
		return &PicardScheme{Core: c, StokesOnly: true}
	}
}

// Solve solves one time step
func (o *PicardScheme) Solve(st *State) (rep *StepReport, err error) {

	// advection once
	if o.AdvectOnce {
		err = o.SolveAllAdvection(st)
		if err != nil {
			return
		}
	}

	// tracked systems
	systems := st.Lay.Systems()
	if o.AdvectOnce || o.StokesOnly {
		systems = []System{StokesSystem()}
	}
	iterAdvection := !o.AdvectOnce && !o.StokesOnly

	// iterations
	return o.iterate(st, systems,
		func(it int) ([]float64, error) {
			return o.Residuals(st, systems, Picard)
		},
		nil,
		func(it int) (err error) {
			if iterAdvection {
				err = o.SolveAllAdvection(st)
				if err != nil {
					return
				}
			}
			return o.SolveStokes(st)
		})
}
