// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package channel implements a one-dimensional coupled Stokes/advection problem:
// a power-law fluid in a channel with fixed ends driven by thermal buoyancy, with
// temperature and compositional fields transported by the flow
package channel

import (
	"fmt"
	"math"

	"github.com/cpmech/gomantle/fem"
	"github.com/cpmech/gomantle/inp"
	"github.com/cpmech/gomantle/msh"
	"github.com/cpmech/gomantle/par"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/utl"
)

// Model holds the data of the channel problem.
// Data is replicated: every rank assembles and solves the global systems. Partitions only
// restrict the rows entering residual norms, the cells sampled for the time step and the
// cells written to snapshots
type Model struct {
	Dat    *inp.ModelData // model data
	Comm   par.Comm       // communicator
	Msh    *msh.Mesh      // mesh
	Dofs   *msh.DofMap    // numbering of dofs
	Lay    fem.Layout     // layout of solution vectors
	Pscale float64        // pressure scaling factor
	Melt   []bool         // cells with enhanced diffusivity; recomputed from the solution
}

// New returns a new channel model with one mesh partition per rank
func New(sim *inp.Simulation, comm par.Comm) (o *Model, err error) {
	if comm == nil {
		comm = par.Serial{}
	}
	dat := &sim.Model
	if dat.Ncells < comm.Size() {
		return nil, chk.Err("number of cells (%d) must not be smaller than the number of ranks (%d)", dat.Ncells, comm.Size())
	}
	if dat.Length <= 0 || dat.Eta0 <= 0 || dat.Nexp <= 0 || dat.S0 <= 0 || dat.Comp <= 0 {
		return nil, chk.Err("length, eta0, nexp, s0 and comp must be positive")
	}
	o = &Model{Dat: dat, Comm: comm, Pscale: sim.Solver.Pscale}
	if o.Pscale == 0 {
		o.Pscale = 1
	}
	o.Msh = msh.Gen1d(dat.Ncells, dat.Length, comm.Size())
	o.Dofs = msh.NewDofMap(o.Msh, comm.Rank(), dat.Ncomp)
	err = o.Reload()
	return
}

// Reload recomputes the numbering after the mesh has been (re)loaded
func (o *Model) Reload() error {
	if o.Msh.Nparts != o.Comm.Size() {
		return chk.Err("mesh has %d partitions but there are %d ranks", o.Msh.Nparts, o.Comm.Size())
	}
	o.Dofs.Init()
	o.Lay = fem.Layout{Nu: o.Dofs.Nu, Np: o.Dofs.Np, Nt: o.Dofs.Nt, Ncomp: o.Dofs.Ncomp}
	o.Melt = make([]bool, len(o.Msh.Cells))
	return nil
}

// Collaborators returns the operations used by the solver core
func (o *Model) Collaborators() *fem.Collaborators {
	ops := make(map[fem.System]*fem.SystemOps)
	for _, sys := range o.Lay.Systems() {
		ops[sys] = &fem.SystemOps{Assemble: o.Assemble, Solve: o.Solve, Dependent: true}
	}
	return &fem.Collaborators{
		Comm:              o.Comm,
		Ops:               ops,
		Cells:             o.Cells,
		PressureIntegrals: o.PressureIntegrals,
		Prescribe:         o.Prescribe,
		Constraints:       o.Classify,
	}
}

// InitialState returns a state holding the initial condition
//  u = 0, p = 0
//  T = linear profile between Tbot and Ttop plus a sine perturbation
//  C0 = 1 in the first 30% of the channel; other fields are zero
func (o *Model) InitialState() (st *fem.State) {
	st = fem.NewState(o.Lay)
	y := la.NewVector(o.Lay.N())
	L := o.Dat.Length
	T := o.Lay.Block(y, fem.AdvectionSystem(fem.Temperature()))
	for i, v := range o.Msh.Verts {
		x := v.C[0]
		T[i] = o.Dat.Tbot + (o.Dat.Ttop-o.Dat.Tbot)*x/L + 0.1*math.Sin(math.Pi*x/L)
	}
	if o.Dat.Ncomp > 0 {
		C := o.Lay.Block(y, fem.AdvectionSystem(fem.Composition(0)))
		for i, v := range o.Msh.Verts {
			if v.C[0] < 0.3*L {
				C[i] = 1
			}
		}
	}
	st.Initialise(y)
	return
}

// Classify flags the cells where the average of compositional field #0 exceeds Cthres
func (o *Model) Classify(st *fem.State) error {
	for i := range o.Melt {
		o.Melt[i] = false
	}
	if o.Dat.Ncomp < 1 {
		return nil
	}
	C := o.Lay.Block(st.Sol, fem.AdvectionSystem(fem.Composition(0)))
	for _, c := range o.Msh.Cells {
		o.Melt[c.Id] = (C[c.Verts[0]]+C[c.Verts[1]])/2 > o.Dat.Cthres
	}
	return nil
}

// Cells returns the samples of locally owned cells used by the time step controller
func (o *Model) Cells(lp la.Vector) (cells []fem.CellSample) {
	u := o.Lay.Velocity(lp)
	kappa := o.Dat.Kappa
	if o.Dat.Ncomp > 0 {
		kappa = utl.Max(kappa, o.Dat.KappaC)
	}
	for _, c := range o.Dofs.OwnedCells() {
		verts := o.Msh.Cells[c].Verts
		cells = append(cells, fem.CellSample{
			H:     o.Msh.CellSize(c),
			Speed: utl.Max(math.Abs(u[verts[0]]), math.Abs(u[verts[1]])),
			Kappa: kappa * o.factor(c),
		})
	}
	return
}

// PressureIntegrals returns the local integral of p and the local measure of the domain
// (volume) or of the top surface at x = L (surface)
func (o *Model) PressureIntegrals(p la.Vector, kind string) (integral, measure float64) {
	if kind == "surface" {
		last := len(o.Msh.Cells) - 1
		if o.Msh.Cells[last].Part == o.Comm.Rank() {
			return p[last], 1
		}
		return
	}
	for _, c := range o.Dofs.OwnedCells() {
		h := o.Msh.CellSize(c)
		integral += p[c] * h
		measure += h
	}
	return
}

// Prescribe sets u = Vel·sin(πx/L) and p = 0
func (o *Model) Prescribe(st *fem.State, lp la.Vector) error {
	u := o.Lay.Velocity(lp)
	for i, v := range o.Msh.Verts {
		u[i] = o.Dat.Vel * math.Sin(math.Pi*v.C[0]/o.Dat.Length)
	}
	o.Lay.Pressure(lp).Fill(0)
	return nil
}

// Assemble assembles the system sys at lp (pressure in mathematical form)
func (o *Model) Assemble(sys fem.System, st *fem.State, lp la.Vector, mode fem.Mode) (*fem.LinearSystem, error) {
	if sys.IsStokes() {
		return o.assembleStokes(lp, mode)
	}
	return o.assembleField(sys, st, lp), nil
}

// factor returns the diffusivity multiplier of cell
func (o *Model) factor(cell int) float64 {
	if o.Melt[cell] {
		return o.Dat.Cfac
	}
	return 1
}

// viscosity computes η and the tangent coefficient d(2ηs)/ds of a cell with strain rate s
// and mean temperature T
//  η = η0 · exp(−γ T) · (1 + (s/s0)²)^((1/n − 1)/2)
func (o *Model) viscosity(cell int, s, T float64) (eta, kt float64, err error) {
	d := o.Dat
	m := 1/d.Nexp - 1
	q := 1 + (s*s)/(d.S0*d.S0)
	eta = d.Eta0 * math.Exp(-d.Gamma*T) * math.Pow(q, m/2)
	kt = 2 * eta * (1 + m*s*s/(d.S0*d.S0+s*s))
	if math.IsNaN(eta) || math.IsInf(eta, 0) || eta <= 0 {
		return 0, 0, fmt.Errorf("viscosity of cell %d is %w: η = %g (s = %g, T = %g)", cell, fem.ErrNonFinite, eta, s, T)
	}
	return
}

// stokesMatrix assembles the Stokes matrix and right-hand side at lp. With tangent = true,
// the viscous block holds the derivatives of the constitutive law
func (o *Model) stokesMatrix(lp la.Vector, tangent bool) (M *Dense, b la.Vector, err error) {
	nu, np := o.Lay.Nu, o.Lay.Np
	M = NewDense(nu + np)
	b = la.NewVector(nu + np)
	u := o.Lay.Velocity(lp)
	T := o.Lay.Block(lp, fem.AdvectionSystem(fem.Temperature()))
	tmean := (o.Dat.Tbot + o.Dat.Ttop) / 2
	ps := o.Pscale
	for _, c := range o.Msh.Cells {
		a, z := c.Verts[0], c.Verts[1]
		h := o.Msh.CellSize(c.Id)
		s := (u[z] - u[a]) / h
		tc := (T[a] + T[z]) / 2
		eta, kt, e := o.viscosity(c.Id, s, tc)
		if e != nil {
			return nil, nil, e
		}
		k := 2 * eta
		if tangent {
			k = kt
		}
		f := o.Dat.Ra * (tc - tmean)

		// momentum
		for _, r := range []struct {
			i  int
			sg float64
		}{{a, -1}, {z, 1}} {
			M.Add(r.i, z, r.sg*k/h)
			M.Add(r.i, a, -r.sg*k/h)
			M.Add(r.i, nu+c.Id, -r.sg*ps)
			b[r.i] += f * h / 2
		}

		// mass
		rp := nu + c.Id
		M.Add(rp, z, -ps)
		M.Add(rp, a, ps)
		M.Add(rp, rp, -o.Dat.Comp*h*ps*ps)
	}

	// fixed ends
	for _, v := range o.Msh.Verts {
		if v.Tag < 0 {
			M.SetRow(v.Id, 0)
			M.Set(v.Id, v.Id, 1)
			b[v.Id] = 0
		}
	}
	return
}

// assembleStokes assembles the Stokes system
//  Picard           : A(lp)·x = b(lp)
//  DefectCorrection : A(lp)·δ = b(lp) − A(lp)·x(lp)
//  Newton           : J(lp)·δ = b(lp) − A(lp)·x(lp)
func (o *Model) assembleStokes(lp la.Vector, mode fem.Mode) (ls *fem.LinearSystem, err error) {
	M, b, err := o.stokesMatrix(lp, false)
	if err != nil {
		return
	}
	ls = &fem.LinearSystem{A: M, B: b, Nu: o.Lay.Nu, Mode: mode, Rows: o.Dofs.StokesRows()}
	if mode == fem.Picard {
		return
	}
	x := lp[:o.Lay.Nu+o.Lay.Np]
	r := la.NewVector(len(x))
	M.Mul(r, x)
	for i := range r {
		ls.B[i] = b[i] - r[i]
	}
	if mode == fem.Newton {
		ls.A, _, err = o.stokesMatrix(lp, true)
	}
	return
}

// assembleField assembles the implicit upwind advection-diffusion system of a field.
// With dt = 0, the system is the identity with the old values on the right-hand side
func (o *Model) assembleField(sys fem.System, st *fem.State, lp la.Vector) *fem.LinearSystem {
	nv := o.Lay.Nt
	M := NewDense(nv)
	b := la.NewVector(nv)
	ls := &fem.LinearSystem{A: M, B: b, Rows: o.Dofs.FieldRows()}
	old := o.Lay.Block(st.Old, sys)
	dt := st.Dt
	if dt == 0 {
		for i := 0; i < nv; i++ {
			M.Set(i, i, 1)
			b[i] = old[i]
		}
		return ls
	}
	f := sys.Field()
	kappa := o.Dat.KappaC
	if f.IsTemperature() {
		kappa = o.Dat.Kappa
	}
	u := o.Lay.Velocity(lp)
	for i := 0; i < nv; i++ {

		// fixed ends
		if i == 0 || i == nv-1 {
			M.Set(i, i, 1)
			b[i] = old[i]
			if f.IsTemperature() {
				b[i] = o.Dat.Ttop
				if i == 0 {
					b[i] = o.Dat.Tbot
				}
			}
			continue
		}

		// time derivative
		hl, hr := o.Msh.CellSize(i-1), o.Msh.CellSize(i)
		diag := 1 / dt
		b[i] = old[i] / dt

		// upwind advection
		if u[i] > 0 {
			diag += u[i] / hl
			M.Add(i, i-1, -u[i]/hl)
		} else {
			diag -= u[i] / hr
			M.Add(i, i+1, u[i]/hr)
		}

		// diffusion
		w := 2 / (hl + hr)
		kl, kr := kappa*o.factor(i-1), kappa*o.factor(i)
		diag += w * (kl/hl + kr/hr)
		M.Add(i, i-1, -w*kl/hl)
		M.Add(i, i+1, -w*kr/hr)
		M.Add(i, i, diag)
	}
	return ls
}
