// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rst

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// Summary describes the snapshot found in a directory
type Summary struct {
	Info         Info           // info file
	Uncompressed int            // length of resume data
	Compressed   int            // compressed length of resume data
	Dt           float64        // time step
	Subs         map[string]int // length of states of sub-managers
	Pieces       int            // number of vector files
	HasOld       bool           // a previous generation exists
}

// Inspect reads the snapshot in dir without restoring it
func Inspect(dir string) (o *Summary, err error) {

	// info
	info, err := readInfo(filepath.Join(dir, fnInfo))
	if err != nil {
		return
	}
	o = &Summary{Info: *info, Subs: make(map[string]int)}

	// resume data
	b, err := os.ReadFile(filepath.Join(dir, fnResume))
	if err != nil {
		return nil, chk.Err("cannot read resume file:\n%v", err)
	}
	hdr, err := readHeader(b)
	if err != nil {
		return nil, err
	}
	o.Uncompressed, o.Compressed = int(hdr[1]), int(hdr[3])
	d, err := decodeResume(b)
	if err != nil {
		return nil, err
	}
	o.Dt = d.Dt
	for name, s := range d.Subs {
		o.Subs[name] = len(s)
	}

	// files
	fns, _ := pieceFiles(dir)
	o.Pieces = len(fns)
	o.HasOld = exists(filepath.Join(dir, fnInfo+extOld))
	return
}

// String returns a description of the snapshot
func (o *Summary) String() string {
	var buf bytes.Buffer
	io.Ff(&buf, "run id        = %s\n", o.Info.RunId)
	io.Ff(&buf, "generation    = %d\n", o.Info.Generation)
	io.Ff(&buf, "created       = %s\n", o.Info.Created)
	io.Ff(&buf, "time          = %g\n", o.Info.Time)
	io.Ff(&buf, "dt            = %g\n", o.Dt)
	io.Ff(&buf, "step          = %d\n", o.Info.Step)
	io.Ff(&buf, "nproc         = %d (vector files = %d)\n", o.Info.Nproc, o.Pieces)
	io.Ff(&buf, "dof handler   = %s\n", o.Info.DofsId)
	io.Ff(&buf, "vectors       = %v (%d dofs)\n", o.Info.Vectors, o.Info.Ndofs)
	io.Ff(&buf, "resume data   = %d bytes (compressed %d)\n", o.Uncompressed, o.Compressed)
	names := make([]string, 0, len(o.Subs))
	for name := range o.Subs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		io.Ff(&buf, "sub-manager   = %s (%d bytes)\n", name, o.Subs[name])
	}
	io.Ff(&buf, "previous      = %v\n", o.HasOld)
	return buf.String()
}
