// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package out

import (
	"os"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// Warn enables warnings about temporary file fallbacks
var Warn = true

// AtomicWrite writes data to a temporary file in tmpdir (or next to fn if tmpdir is empty)
// and renames it to fn. If the temporary file cannot be used, a warning is printed and
// data is written directly to fn
func AtomicWrite(fn, tmpdir string, data []byte) (err error) {
	if tmpdir == "" {
		tmpdir = filepath.Dir(fn)
	}
	tmp, err := writeTemp(tmpdir, filepath.Base(fn), data)
	if err == nil {
		err = os.Rename(tmp, fn)
		if err == nil {
			return
		}
		os.Remove(tmp)
	}
	if Warn {
		io.Pforan("warning: cannot write %q via temporary location %q; writing directly:\n%v\n", fn, tmpdir, err)
	}
	err = os.WriteFile(fn, data, 0644)
	if err != nil {
		return chk.Err("cannot write file %q:\n%v", fn, err)
	}
	return
}

// AppendFile appends data to the existing file fn
func AppendFile(fn string, data []byte) (err error) {
	f, err := os.OpenFile(fn, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return chk.Err("cannot open file %q for appending:\n%v", fn, err)
	}
	_, err = f.Write(data)
	if e := f.Close(); err == nil {
		err = e
	}
	if err != nil {
		return chk.Err("cannot append to file %q:\n%v", fn, err)
	}
	return
}

// writeTemp writes data to a new temporary file and returns its name
func writeTemp(dir, base string, data []byte) (fn string, err error) {
	f, err := os.CreateTemp(dir, base+".tmp*")
	if err != nil {
		return
	}
	fn = f.Name()
	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if e := f.Close(); err == nil {
		err = e
	}
	if err != nil {
		os.Remove(fn)
	}
	return
}
