// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package out implements statistics, output sinks and file writing
package out

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	goio "io"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// StepRecord holds the statistics of one accepted time step
type StepRecord struct {
	Step       int       // time step number
	Time       float64   // time
	Dt         float64   // time step
	Iterations int       // number of nonlinear iterations
	Converged  bool      // false means iteration-limited
	Newton     bool      // Newton linearization was used
	Systems    []string  // names of tracked systems
	Initial    []float64 // initial residuals
	Final      []float64 // final residuals
	Relative   float64   // largest relative residual
}

// Table holds the statistics of all steps. It is saved and restored with the checkpoints
type Table struct {
	EncType string       // encoder type: "gob" or "json"
	Rows    []StepRecord // one row per step
}

// NewTable returns a new table
func NewTable(encType string) *Table {
	if encType == "" {
		encType = "gob"
	}
	return &Table{EncType: encType}
}

// Append adds a row
func (o *Table) Append(rec StepRecord) {
	o.Rows = append(o.Rows, rec)
}

// NumNonConverged returns the number of iteration-limited steps
func (o *Table) NumNonConverged() (n int) {
	for _, r := range o.Rows {
		if !r.Converged {
			n++
		}
	}
	return
}

// Name returns the key of this sub-manager in checkpoints
func (o *Table) Name() string {
	return "statistics"
}

// SaveState encodes all rows
func (o *Table) SaveState() (b []byte, err error) {
	var buf bytes.Buffer
	enc := newEncoder(&buf, o.EncType)
	err = enc.Encode(o.Rows)
	if err != nil {
		return nil, chk.Err("cannot encode statistics:\n%v", err)
	}
	return buf.Bytes(), nil
}

// LoadState decodes all rows
func (o *Table) LoadState(b []byte) (err error) {
	dec := newDecoder(bytes.NewReader(b), o.EncType)
	var rows []StepRecord
	err = dec.Decode(&rows)
	if err != nil {
		return chk.Err("cannot decode statistics:\n%v", err)
	}
	o.Rows = rows
	return
}

// Text returns the table formatted as columns of text
func (o *Table) Text() []byte {
	var buf bytes.Buffer
	o.header(&buf)
	o.rows(&buf, 0)
	return buf.Bytes()
}

// TextRows returns the rows from index start formatted as in Text, without the header
func (o *Table) TextRows(start int) []byte {
	var buf bytes.Buffer
	o.rows(&buf, start)
	return buf.Bytes()
}

// header writes the names of the columns
func (o *Table) header(buf *bytes.Buffer) {
	io.Ff(buf, "# %6s%23s%23s%6s%5s%5s%23s", "step", "time", "dt", "its", "conv", "nwt", "relative")
	if len(o.Rows) > 0 {
		for _, name := range o.Rows[0].Systems {
			io.Ff(buf, "%23s", "r0("+name+")")
		}
		for _, name := range o.Rows[0].Systems {
			io.Ff(buf, "%23s", "r("+name+")")
		}
	}
	io.Ff(buf, "\n")
}

// rows writes the rows from index start
func (o *Table) rows(buf *bytes.Buffer, start int) {
	for _, r := range o.Rows[start:] {
		io.Ff(buf, "  %6d%23.15e%23.15e%6d%5d%5d%23.15e", r.Step, r.Time, r.Dt, r.Iterations, b2i(r.Converged), b2i(r.Newton), r.Relative)
		for _, v := range r.Initial {
			io.Ff(buf, "%23.15e", v)
		}
		for _, v := range r.Final {
			io.Ff(buf, "%23.15e", v)
		}
		io.Ff(buf, "\n")
	}
}

// encoder and decoder of tables
type encoder interface{ Encode(e interface{}) error }
type decoder interface{ Decode(e interface{}) error }

// newEncoder returns a json encoder if enctype == "json"; otherwise a gob encoder
func newEncoder(w goio.Writer, enctype string) encoder {
	if enctype == "json" {
		return json.NewEncoder(w)
	}
	return gob.NewEncoder(w)
}

// newDecoder returns a json decoder if enctype == "json"; otherwise a gob decoder
func newDecoder(r goio.Reader, enctype string) decoder {
	if enctype == "json" {
		return json.NewDecoder(r)
	}
	return gob.NewDecoder(r)
}

// b2i converts bool to int
func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
