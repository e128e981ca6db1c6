// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"github.com/cpmech/gomantle/par"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
)

// PressureNorm normalises the pressure block of solution vectors.
//  kind = "no"      : nothing is done
//  kind = "volume"  : the mean pressure over the domain becomes zero
//  kind = "surface" : the mean pressure over the top surface becomes Surface
type PressureNorm struct {
	Kind      string  // no, volume, surface
	Surface   float64 // surface pressure
	Integrals func(p la.Vector, kind string) (integral, measure float64)
	Comm      par.Comm
}

// NewPressureNorm returns a new pressure normaliser
func NewPressureNorm(kind string, surface float64, col *Collaborators) (o *PressureNorm) {
	o = &PressureNorm{Kind: kind, Surface: surface, Integrals: col.PressureIntegrals, Comm: col.Comm}
	if o.Kind == "" {
		o.Kind = "no"
	}
	if o.Kind != "no" && o.Integrals == nil {
		chk.Panic("pressure normalisation %q requires the PressureIntegrals collaborator", o.Kind)
	}
	return
}

// Adjustment computes the value to be added to the pressure p.
// This is a collective operation
func (o *PressureNorm) Adjustment(p la.Vector) float64 {
	if o.Kind == "no" {
		return 0
	}
	integral, measure := o.Integrals(p, o.Kind)
	sums := par.Sum(o.Comm, integral, measure)
	if sums[1] == 0 {
		return 0
	}
	adj := -sums[0] / sums[1]
	if o.Kind == "surface" {
		adj += o.Surface
	}
	return adj
}

// Normalize adds the adjustment to the pressure block of y and records it in st.
// This is a collective operation
func (o *PressureNorm) Normalize(st *State, y la.Vector) {
	if o.Kind == "no" {
		st.PressureAdjustment = 0
		return
	}
	p := st.Lay.Pressure(y)
	adj := o.Adjustment(p)
	for i := range p {
		p[i] += adj
	}
	st.PressureAdjustment = adj
}

// Denormalize subtracts the last adjustment from the pressure block of y
func (o *PressureNorm) Denormalize(st *State, y la.Vector) {
	if o.Kind == "no" || st.PressureAdjustment == 0 {
		return
	}
	p := st.Lay.Pressure(y)
	for i := range p {
		p[i] -= st.PressureAdjustment
	}
}
