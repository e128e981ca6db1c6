// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msh

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// DofMap numbers the degrees of freedom of a coupled problem on a mesh:
//  velocity at vertices, pressure per cell, temperature and ncomp compositional
//  fields at vertices. The vector layout is [ u | p | T | C0 | C1 | ... ]
// All ranks hold all values; each rank owns the cells of its partition and the
// vertices whose first cell belongs to its partition.
type DofMap struct {
	Msh   *Mesh // mesh
	Rank  int   // this rank (partition)
	Ncomp int   // number of compositional fields
	Nu    int   // number of velocity dofs
	Np    int   // number of pressure dofs
	Nt    int   // number of dofs of each advected field

	owned     []int // cells owned by this rank
	vertOwner []int // partition owning each vertex
}

// NewDofMap returns a new DofMap
func NewDofMap(m *Mesh, rank, ncomp int) (o *DofMap) {
	if rank < 0 || rank >= m.Nparts {
		chk.Panic("rank %d is not available in mesh with %d partitions", rank, m.Nparts)
	}
	o = &DofMap{Msh: m, Rank: rank, Ncomp: ncomp}
	o.Init()
	return
}

// Init (re)computes the numbering from the mesh
func (o *DofMap) Init() {
	m := o.Msh
	o.Nu = len(m.Verts)
	o.Np = len(m.Cells)
	o.Nt = len(m.Verts)
	o.owned = append([]int{}, m.Part2cells[o.Rank]...)
	o.vertOwner = make([]int, len(m.Verts))
	for i := range o.vertOwner {
		o.vertOwner[i] = -1
	}
	for _, c := range m.Cells {
		for _, v := range c.Verts {
			if o.vertOwner[v] < 0 {
				o.vertOwner[v] = c.Part
			}
		}
	}
}

// Id returns the identity of the numbering
func (o *DofMap) Id() string {
	return io.Sf("u-vert:p-cell:t-vert/nv%d/nc%d/ncomp%d", o.Nu, o.Np, o.Ncomp)
}

// N returns the total number of dofs
func (o *DofMap) N() int {
	return o.Nu + o.Np + o.Nt*(1+o.Ncomp)
}

// OwnedCells returns the cells owned by this rank
func (o *DofMap) OwnedCells() []int {
	return o.owned
}

// OwnedVerts returns the vertices owned by this rank
func (o *DofMap) OwnedVerts() (verts []int) {
	for v, p := range o.vertOwner {
		if p == o.Rank {
			verts = append(verts, v)
		}
	}
	return
}

// CellDofs returns the indices of all dofs of cell; nil if cell does not exist
func (o *DofMap) CellDofs(cell int) (eqs []int) {
	if cell < 0 || cell >= len(o.Msh.Cells) {
		return nil
	}
	verts := o.Msh.Cells[cell].Verts
	eqs = append(eqs, verts...)
	eqs = append(eqs, o.Nu+cell)
	for k := 0; k <= o.Ncomp; k++ {
		start := o.Nu + o.Np + k*o.Nt
		for _, v := range verts {
			eqs = append(eqs, start+v)
		}
	}
	return
}

// StokesRows returns the rows of the Stokes block owned by this rank
func (o *DofMap) StokesRows() (rows []int) {
	rows = o.OwnedVerts()
	for _, c := range o.owned {
		rows = append(rows, o.Nu+c)
	}
	return
}

// FieldRows returns the rows of an advected field block owned by this rank
func (o *DofMap) FieldRows() []int {
	return o.OwnedVerts()
}
