// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package msh implements a partitioned mesh and the numbering of degrees of freedom
package msh

import (
	"encoding/gob"
	goio "io"
	"math"

	"github.com/cpmech/gosl/chk"
)

// Vert holds vertex data
type Vert struct {
	Id  int       // id
	Tag int       // tag; e.g. -1 = left boundary, -2 = right boundary
	C   []float64 // coordinates
}

// Cell holds cell data
type Cell struct {
	Id    int   // id
	Tag   int   // tag
	Part  int   // partition id
	Verts []int // vertices
}

// Mesh holds a partitioned mesh
type Mesh struct {
	Ndim       int     // space dimension
	Verts      []*Vert // vertices
	Cells      []*Cell // cells
	Nparts     int     // number of partitions
	Part2cells [][]int // partition => cells
}

// Gen1d generates a mesh with ncells equal cells in [0, length] split into nparts
// contiguous partitions
func Gen1d(ncells int, length float64, nparts int) (o *Mesh) {
	if ncells < 1 || nparts < 1 || nparts > ncells {
		chk.Panic("cannot generate mesh with %d cells and %d partitions", ncells, nparts)
	}
	o = &Mesh{Ndim: 1, Nparts: nparts}
	h := length / float64(ncells)
	for i := 0; i <= ncells; i++ {
		tag := 0
		switch i {
		case 0:
			tag = -1
		case ncells:
			tag = -2
		}
		o.Verts = append(o.Verts, &Vert{Id: i, Tag: tag, C: []float64{float64(i) * h}})
	}
	for i := 0; i < ncells; i++ {
		o.Cells = append(o.Cells, &Cell{Id: i, Tag: -1, Part: i * nparts / ncells, Verts: []int{i, i + 1}})
	}
	o.setParts()
	return
}

// setParts computes Part2cells
func (o *Mesh) setParts() {
	o.Part2cells = make([][]int, o.Nparts)
	for _, c := range o.Cells {
		o.Part2cells[c.Part] = append(o.Part2cells[c.Part], c.Id)
	}
}

// CellSize returns the length scale of cell
func (o *Mesh) CellSize(cell int) float64 {
	c := o.Cells[cell]
	var d2 float64
	a, b := o.Verts[c.Verts[0]].C, o.Verts[c.Verts[len(c.Verts)-1]].C
	for i := 0; i < o.Ndim; i++ {
		d2 += (b[i] - a[i]) * (b[i] - a[i])
	}
	return math.Sqrt(d2)
}

// Save writes the mesh
func (o *Mesh) Save(w goio.Writer) (err error) {
	err = gob.NewEncoder(w).Encode(o)
	if err != nil {
		return chk.Err("cannot encode mesh:\n%v", err)
	}
	return
}

// Load reads the mesh
func (o *Mesh) Load(r goio.Reader) (err error) {
	var m Mesh
	err = gob.NewDecoder(r).Decode(&m)
	if err != nil {
		return chk.Err("cannot decode mesh:\n%v", err)
	}
	if m.Nparts < 1 || len(m.Cells) < 1 {
		return chk.Err("mesh is empty: nparts = %d, ncells = %d", m.Nparts, len(m.Cells))
	}
	*o = m
	o.setParts()
	return
}
