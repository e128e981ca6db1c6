// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package out

// Sink receives the statistics of each accepted step.
// Errors are reported but never undo a step
type Sink interface {
	Write(tab *Table, rec *StepRecord) error // called after each accepted step
	Flush() error                            // waits for pending writes
}

// TextSink writes the statistics table to a text file. The whole table is written by the
// first call and after a failed write; otherwise only the new rows are appended
type TextSink struct {
	Fn     string    // file name
	TmpDir string    // temporary directory; "" means next to Fn
	Writer *Deferred // writer of files

	nrows int // rows already in the file; 0 means the file must be rewritten
}

// NewTextSink returns a new text sink
func NewTextSink(fn, tmpdir string, background bool) *TextSink {
	return &TextSink{Fn: fn, TmpDir: tmpdir, Writer: &Deferred{Background: background}}
}

// Write submits the writing of the rows not yet in the file; the error of a previous
// write is returned
func (o *TextSink) Write(tab *Table, rec *StepRecord) (err error) {
	err = o.Writer.Wait()
	if err != nil || o.nrows == 0 || o.nrows > len(tab.Rows) {
		data := tab.Text()
		o.nrows = len(tab.Rows)
		return o.submit(err, func() error {
			return AtomicWrite(o.Fn, o.TmpDir, data)
		})
	}
	data := tab.TextRows(o.nrows)
	o.nrows = len(tab.Rows)
	return o.submit(err, func() error {
		return AppendFile(o.Fn, data)
	})
}

// submit starts task; if it fails, the next write rewrites the file
func (o *TextSink) submit(prev error, task func() error) error {
	err := o.Writer.Submit(task)
	if err != nil {
		o.nrows = 0
	}
	if prev != nil {
		return prev
	}
	return err
}

// Flush waits for the write in flight
func (o *TextSink) Flush() (err error) {
	err = o.Writer.Wait()
	if err != nil {
		o.nrows = 0
	}
	return
}
