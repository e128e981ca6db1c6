// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rst

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"sort"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

// piece holds the values of all vectors on the cells owned by one rank
type piece struct {
	Rank   int       // rank that wrote this piece
	DofsId string    // identity of the dof handler
	Nvecs  int       // number of vectors
	Cells  []int     // cell ids
	Ndofs  []int     // number of dofs of each cell
	Values []float64 // for each cell, for each vector, the values at the cell dofs
}

// pieceName returns the file name of the piece of rank
func pieceName(rank int) string {
	return io.Sf("%s.p%04d", fnMesh, rank)
}

// pieceFiles returns all piece files (without .old) in dir
func pieceFiles(dir string) (fns []string, err error) {
	fns, err = filepath.Glob(filepath.Join(dir, fnMesh+".p[0-9][0-9][0-9][0-9]"))
	sort.Strings(fns)
	return
}

// pack collects the values of vecs on the cells owned by this rank
func pack(rank int, dofs DofHandler, vecs []la.Vector) (b []byte, err error) {
	p := piece{Rank: rank, DofsId: dofs.Id(), Nvecs: len(vecs)}
	for _, c := range dofs.OwnedCells() {
		eqs := dofs.CellDofs(c)
		p.Cells = append(p.Cells, c)
		p.Ndofs = append(p.Ndofs, len(eqs))
		for _, v := range vecs {
			for _, eq := range eqs {
				p.Values = append(p.Values, v[eq])
			}
		}
	}
	var buf bytes.Buffer
	err = gob.NewEncoder(&buf).Encode(&p)
	if err != nil {
		return nil, chk.Err("cannot serialise vectors of rank %d:\n%v", rank, err)
	}
	return buf.Bytes(), nil
}

// unpack sets the values of vecs from all pieces; cells unknown to this rank are skipped.
// Returns the number of cells set
func unpack(fns []string, dofs DofHandler, vecs []la.Vector) (nset int, err error) {
	for _, fn := range fns {
		b, e := os.ReadFile(fn)
		if e != nil {
			return 0, chk.Err("cannot read vector file %q:\n%v", fn, e)
		}
		var p piece
		e = gob.NewDecoder(bytes.NewReader(b)).Decode(&p)
		if e != nil {
			return 0, chk.Err("cannot deserialise vector file %q:\n%v", fn, e)
		}
		if p.DofsId != dofs.Id() {
			return 0, chk.Err("vector file %q was written with dof handler %q; current one is %q", fn, p.DofsId, dofs.Id())
		}
		if p.Nvecs != len(vecs) {
			return 0, chk.Err("vector file %q holds %d vectors; %d are required", fn, p.Nvecs, len(vecs))
		}
		k := 0
		for i, c := range p.Cells {
			n := p.Ndofs[i]
			eqs := dofs.CellDofs(c)
			if eqs == nil {
				k += n * p.Nvecs
				continue
			}
			if len(eqs) != n {
				return 0, chk.Err("cell %d has %d dofs but vector file %q has %d", c, len(eqs), fn, n)
			}
			if k+n*p.Nvecs > len(p.Values) {
				return 0, chk.Err("vector file %q is truncated at cell %d", fn, c)
			}
			for _, v := range vecs {
				for _, eq := range eqs {
					v[eq] = p.Values[k]
					k++
				}
			}
			nset++
		}
	}
	return
}
