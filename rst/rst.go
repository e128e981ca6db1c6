// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package rst implements checkpoint/restart of simulations
package rst

import (
	"bytes"
	"encoding/json"
	goio "io"
	"os"
	"path/filepath"
	"time"

	"github.com/cpmech/gomantle/fem"
	"github.com/cpmech/gomantle/out"
	"github.com/cpmech/gomantle/par"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/google/uuid"
)

// version of the snapshot format
const Version = 1

// file names
const (
	fnMesh   = "restart.mesh"      // mesh topology
	fnInfo   = "restart.mesh.info" // description of snapshot; written last
	fnResume = "restart.resume.z"  // compressed scalars and sub-managers states
	extOld   = ".old"              // extension of the previous generation
)

// Mesh defines a distributed mesh with native (de)serialisation
type Mesh interface {
	Save(w goio.Writer) error
	Load(r goio.Reader) error
}

// DofHandler maps cells to the local indices of their degrees of freedom
type DofHandler interface {
	Id() string              // identity; e.g. a hash of the numbering
	OwnedCells() []int       // ids of cells owned by this rank
	CellDofs(cell int) []int // local indices of the dofs of cell; nil if the cell is unknown
}

// StateSaver is implemented by sub-managers storing their own state in snapshots
type StateSaver interface {
	Name() string               // key of the state
	SaveState() ([]byte, error) // returns the state
	LoadState(b []byte) error   // restores the state
}

// Info describes a snapshot
type Info struct {
	Version    int      `json:"version"`
	RunId      string   `json:"runid"`
	Generation int      `json:"generation"`
	Nproc      int      `json:"nproc"`
	DofsId     string   `json:"dofsid"`
	Vectors    []string `json:"vectors"`
	Ndofs      int      `json:"ndofs"`
	Time       float64  `json:"time"`
	Step       int      `json:"step"`
	Created    string   `json:"created"`
}

// Manager writes and reads snapshots in DirOut
type Manager struct {
	DirOut  string        // output directory
	TmpDir  string        // fast storage for temporary files; "" means DirOut
	Comm    par.Comm      // communicator
	Mesh    Mesh          // mesh
	Dofs    DofHandler    // dof handler; may be replaced by AfterMeshLoad
	Subs    []StateSaver  // sub-managers
	Writer  *out.Deferred // writer of root files
	ShowMsg bool          // show messages

	// AfterMeshLoad is called after the mesh is loaded and before the vectors are set;
	// e.g. to renumber dofs. May be nil
	AfterMeshLoad func() error

	// Constraints recomputes data that depends on the runtime classification of cells.
	// Called after restoring; may be nil
	Constraints func(st *fem.State) error

	RunId      string // identity of this run
	Generation int    // number of snapshots written by this run (and the runs it resumed)
}

// NewManager returns a new manager
func NewManager(dirout, tmpdir string, comm par.Comm, mesh Mesh, dofs DofHandler, background bool) (o *Manager) {
	o = new(Manager)
	o.DirOut = dirout
	o.TmpDir = tmpdir
	o.Comm = comm
	if o.Comm == nil {
		o.Comm = par.Serial{}
	}
	o.Mesh = mesh
	o.Dofs = dofs
	o.Writer = &out.Deferred{Background: background}
	o.RunId = uuid.NewString()
	return
}

// Register adds sub-managers
func (o *Manager) Register(subs ...StateSaver) {
	o.Subs = append(o.Subs, subs...)
}

// Wait waits for the deferred write in flight, if any
func (o *Manager) Wait() error {
	return o.Writer.Wait()
}

// Create writes a new snapshot of st after moving the current one to .old.
// This is a collective operation
func (o *Manager) Create(st *fem.State) (err error) {

	// rotate
	root := par.Root(o.Comm)
	if root {
		err = o.rotate()
	}
	err = par.Consensus(o.Comm, err)
	if err != nil {
		return
	}

	// vectors
	b, err := pack(o.Comm.Rank(), o.Dofs, st.Vectors())
	if err == nil {
		err = out.AtomicWrite(o.path(pieceName(o.Comm.Rank())), o.TmpDir, b)
	}
	err = par.Consensus(o.Comm, err)
	if err != nil {
		return
	}

	// sub-managers
	d := newResumeData(st)
	for _, s := range o.Subs {
		if err != nil {
			break
		}
		var bs []byte
		bs, err = s.SaveState()
		if err != nil {
			err = chk.Err("cannot save state of %q:\n%v", s.Name(), err)
		}
		d.Subs[s.Name()] = bs
	}

	// root files
	if root && err == nil {
		o.Generation++
		err = o.writeRoot(st, d)
	}
	return par.Consensus(o.Comm, err)
}

// writeRoot writes the mesh, the resume file and the info file
func (o *Manager) writeRoot(st *fem.State, d *resumeData) (err error) {

	// mesh
	var mbuf bytes.Buffer
	err = o.Mesh.Save(&mbuf)
	if err != nil {
		return chk.Err("cannot serialise mesh:\n%v", err)
	}

	// resume data
	rbuf, err := encodeResume(d)
	if err != nil {
		return
	}

	// info
	info := Info{
		Version:    Version,
		RunId:      o.RunId,
		Generation: o.Generation,
		Nproc:      o.Comm.Size(),
		DofsId:     o.Dofs.Id(),
		Vectors:    st.VectorNames(),
		Ndofs:      st.Lay.N(),
		Time:       st.Time,
		Step:       st.Step,
		Created:    time.Now().Format(time.RFC3339),
	}
	ibuf, err := json.MarshalIndent(&info, "", "  ")
	if err != nil {
		return chk.Err("cannot encode snapshot info:\n%v", err)
	}

	// write; the info file is written last
	mdata := mbuf.Bytes()
	return o.Writer.Submit(func() (e error) {
		if e = out.AtomicWrite(o.path(fnMesh), o.TmpDir, mdata); e != nil {
			return
		}
		if e = out.AtomicWrite(o.path(fnResume), o.TmpDir, rbuf); e != nil {
			return
		}
		return out.AtomicWrite(o.path(fnInfo), o.TmpDir, ibuf)
	})
}

// rotate moves the files of the current snapshot to .old. Stale .old files of the
// previous generation are removed first
func (o *Manager) rotate() (err error) {

	// join write in flight
	err = o.Writer.Wait()
	if err != nil {
		return chk.Err("previous snapshot could not be written:\n%v", err)
	}

	// nothing to rotate
	if !exists(o.path(fnInfo)) {
		return
	}

	// stale pieces
	olds, _ := filepath.Glob(o.path(fnMesh + ".p[0-9][0-9][0-9][0-9]" + extOld))
	for _, fn := range olds {
		os.Remove(fn)
	}

	// move
	fns := []string{o.path(fnMesh), o.path(fnResume), o.path(fnInfo)}
	pieces, err := pieceFiles(o.DirOut)
	if err != nil {
		return chk.Err("cannot list vector files:\n%v", err)
	}
	fns = append(fns, pieces...)
	for _, fn := range fns {
		if !exists(fn) {
			continue
		}
		err = os.Rename(fn, fn+extOld)
		if err != nil {
			return chk.Err("cannot move %q to previous generation:\n%v", fn, err)
		}
	}
	if o.ShowMsg {
		io.Pfgrey("> previous snapshot moved to %s\n", extOld)
	}
	return
}

// path returns the full path of fn in DirOut
func (o *Manager) path(fn string) string {
	return filepath.Join(o.DirOut, fn)
}

// exists tells whether fn exists
func exists(fn string) bool {
	_, err := os.Stat(fn)
	return err == nil
}
