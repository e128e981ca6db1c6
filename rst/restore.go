// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rst

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/cpmech/gomantle/fem"
	"github.com/cpmech/gomantle/par"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// Resume overwrites st with the snapshot in DirOut. Missing or corrupt files are fatal.
// This is a collective operation
func (o *Manager) Resume(st *fem.State) (err error) {
	err = o.resume(st)
	return par.Consensus(o.Comm, err)
}

// resume runs the local part of Resume
func (o *Manager) resume(st *fem.State) (err error) {

	// required files
	for _, fn := range []string{fnMesh, fnResume, fnInfo} {
		if !exists(o.path(fn)) {
			return chk.Err("cannot resume: file %q is missing in %q", fn, o.DirOut)
		}
	}

	// info
	info, err := readInfo(o.path(fnInfo))
	if err != nil {
		return
	}
	if info.Version != Version {
		return chk.Err("cannot resume: snapshot version %d is not supported (%d)", info.Version, Version)
	}
	vecs := st.Vectors()
	if len(info.Vectors) != len(vecs) || info.Ndofs != st.Lay.N() {
		return chk.Err("cannot resume: snapshot has %d vectors with %d dofs; state has %d vectors with %d dofs", len(info.Vectors), info.Ndofs, len(vecs), st.Lay.N())
	}

	// mesh
	b, err := os.ReadFile(o.path(fnMesh))
	if err != nil {
		return chk.Err("cannot read mesh file:\n%v", err)
	}
	err = o.Mesh.Load(bytes.NewReader(b))
	if err != nil {
		return chk.Err("cannot load mesh:\n%v", err)
	}
	if o.AfterMeshLoad != nil {
		err = o.AfterMeshLoad()
		if err != nil {
			return chk.Err("cannot set up dofs after loading mesh:\n%v", err)
		}
	}
	if o.Dofs.Id() != info.DofsId {
		return chk.Err("cannot resume: snapshot was written with dof handler %q; current one is %q", info.DofsId, o.Dofs.Id())
	}

	// vectors
	fns, err := pieceFiles(o.DirOut)
	if err != nil || len(fns) == 0 {
		return chk.Err("cannot resume: vector files are missing in %q", o.DirOut)
	}
	if len(fns) != info.Nproc {
		return chk.Err("cannot resume: snapshot was written by %d ranks but %d vector files were found", info.Nproc, len(fns))
	}
	nset, err := unpack(fns, o.Dofs, vecs)
	if err != nil {
		return
	}
	if nset < len(o.Dofs.OwnedCells()) {
		return chk.Err("cannot resume: only %d of %d owned cells were found in vector files", nset, len(o.Dofs.OwnedCells()))
	}

	// scalars
	b, err = os.ReadFile(o.path(fnResume))
	if err != nil {
		return chk.Err("cannot read resume file:\n%v", err)
	}
	d, err := decodeResume(b)
	if err != nil {
		return
	}
	d.apply(st)

	// sub-managers
	for _, s := range o.Subs {
		bs, ok := d.Subs[s.Name()]
		if !ok {
			continue
		}
		err = s.LoadState(bs)
		if err != nil {
			return chk.Err("cannot load state of %q:\n%v", s.Name(), err)
		}
	}
	o.RunId = info.RunId
	o.Generation = info.Generation

	// constraints
	if o.Constraints != nil {
		err = o.Constraints(st)
		if err != nil {
			return chk.Err("cannot recompute constraints after restoring:\n%v", err)
		}
	}
	if o.ShowMsg {
		io.Pfgrey("> snapshot %d of run %s restored\n", info.Generation, info.RunId)
	}
	return
}

// readInfo reads a snapshot info file
func readInfo(fn string) (info *Info, err error) {
	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, chk.Err("cannot read snapshot info:\n%v", err)
	}
	info = new(Info)
	err = json.Unmarshal(b, info)
	if err != nil {
		return nil, chk.Err("cannot decode snapshot info %q:\n%v", fn, err)
	}
	return
}
