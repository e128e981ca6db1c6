// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package out

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

// newTestTable returns a table with 3 rows
func newTestTable(enctype string) *Table {
	tab := NewTable(enctype)
	for i := 0; i < 3; i++ {
		tab.Append(StepRecord{
			Step:       i,
			Time:       0.1 * float64(i),
			Dt:         0.1,
			Iterations: 2 + i,
			Converged:  i != 1,
			Newton:     i == 2,
			Systems:    []string{"T", "Stokes"},
			Initial:    []float64{1, 2},
			Final:      []float64{1e-6, 2e-6},
			Relative:   1e-6,
		})
	}
	return tab
}

func Test_table01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("table01. save and load state")

	for _, enctype := range []string{"gob", "json"} {
		tab := newTestTable(enctype)
		chk.Int(tst, "non-converged", tab.NumNonConverged(), 1)
		b, err := tab.SaveState()
		if err != nil {
			tst.Errorf("%v\n", err)
			return
		}
		res := NewTable(enctype)
		err = res.LoadState(b)
		if err != nil {
			tst.Errorf("%v\n", err)
			return
		}
		chk.Int(tst, enctype+": nrows", len(res.Rows), 3)
		chk.Int(tst, enctype+": iterations", res.Rows[2].Iterations, 4)
		chk.Array(tst, enctype+": final", 1e-17, res.Rows[1].Final, []float64{1e-6, 2e-6})
		chk.Strings(tst, enctype+": systems", res.Rows[0].Systems, []string{"T", "Stokes"})
		if res.Rows[1].Converged || !res.Rows[2].Newton {
			tst.Errorf("%s: flags are incorrect\n", enctype)
		}
	}

	// corrupt
	err := NewTable("gob").LoadState([]byte("not a table"))
	if err == nil {
		tst.Errorf("corrupt data should fail\n")
	}
}

func Test_table02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("table02. text")

	txt := string(newTestTable("gob").Text())
	io.Pforan("%s", txt)
	lines := strings.Split(strings.TrimSpace(txt), "\n")
	chk.Int(tst, "nlines", len(lines), 4)
	if !strings.HasPrefix(lines[0], "#") || !strings.Contains(lines[0], "r0(Stokes)") {
		tst.Errorf("header is incorrect:\n%s\n", lines[0])
	}
	chk.Int(tst, "ncolumns", len(strings.Fields(lines[2])), 11)
}

func Test_deferred01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("deferred01. background writer")

	var running, maxRunning int32
	task := func(err error) func() error {
		return func() error {
			n := atomic.AddInt32(&running, 1)
			if n > atomic.LoadInt32(&maxRunning) {
				atomic.StoreInt32(&maxRunning, n)
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return err
		}
	}

	fail := errors.New("disk full")
	w := &Deferred{Background: true}
	if err := w.Submit(task(fail)); err != nil {
		tst.Errorf("first submit should not fail: %v\n", err)
	}
	if err := w.Submit(task(nil)); !errors.Is(err, fail) {
		tst.Errorf("second submit should return the error of the first task. err = %v\n", err)
	}
	if err := w.Submit(task(nil)); err != nil {
		tst.Errorf("third submit should not fail: %v\n", err)
	}
	if err := w.Wait(); err != nil {
		tst.Errorf("wait should not fail: %v\n", err)
	}
	if err := w.Wait(); err != nil {
		tst.Errorf("second wait should not fail: %v\n", err)
	}
	chk.Int(tst, "max tasks in flight", int(maxRunning), 1)

	// inline
	w = new(Deferred)
	if err := w.Submit(task(fail)); !errors.Is(err, fail) {
		tst.Errorf("inline submit should return the error of the task. err = %v\n", err)
	}
}

func Test_atomic01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("atomic01. atomic writes")

	Warn = chk.Verbose
	dir := tst.TempDir()
	fn := filepath.Join(dir, "data.txt")

	// in place
	err := AtomicWrite(fn, "", []byte("hello"))
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	b, _ := os.ReadFile(fn)
	chk.String(tst, string(b), "hello")

	// overwrite via temporary directory
	err = AtomicWrite(fn, tst.TempDir(), []byte("world"))
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	b, _ = os.ReadFile(fn)
	chk.String(tst, string(b), "world")

	// unusable temporary directory
	err = AtomicWrite(fn, filepath.Join(dir, "does", "not", "exist"), []byte("again"))
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	b, _ = os.ReadFile(fn)
	chk.String(tst, string(b), "again")

	// no temporary files left
	files, _ := filepath.Glob(filepath.Join(dir, "*"))
	chk.Int(tst, "nfiles", len(files), 1)

	// unusable target
	err = AtomicWrite(filepath.Join(dir, "missing", "data.txt"), "", []byte("x"))
	if err == nil {
		tst.Errorf("writing to a missing directory should fail\n")
	}
}

func Test_sinks01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("sinks01. text and prometheus sinks")

	tab := newTestTable("gob")
	fn := filepath.Join(tst.TempDir(), "statistics")
	text := NewTextSink(fn, "", true)
	prom := NewPromSink()
	for _, s := range []Sink{text, prom} {
		for i := range tab.Rows {
			if err := s.Write(tab, &tab.Rows[i]); err != nil {
				tst.Errorf("%v\n", err)
				return
			}
		}
		if err := s.Flush(); err != nil {
			tst.Errorf("%v\n", err)
			return
		}
	}

	// text
	b, err := os.ReadFile(fn)
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	if !bytes.Equal(b, tab.Text()) {
		tst.Errorf("statistics file is incorrect\n")
	}

	// metrics
	families, err := prom.Reg.Gather()
	if err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values[mf.GetName()] = m.GetCounter().GetValue()
			case m.GetGauge() != nil && len(m.GetLabel()) == 0:
				values[mf.GetName()] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				values[mf.GetName()] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	io.Pforan("values = %v\n", values)
	chk.Float64(tst, "steps", 1e-17, values["gomantle_steps_total"], 3)
	chk.Float64(tst, "non-converged", 1e-17, values["gomantle_steps_iteration_limited_total"], 1)
	chk.Float64(tst, "iterations", 1e-17, values["gomantle_nonlinear_iterations"], 3)
	chk.Float64(tst, "time", 1e-15, values["gomantle_time"], 0.2)
}

func Test_sinks02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("sinks02. text sink appends new rows")

	Warn = chk.Verbose
	full := newTestTable("gob")
	for i := 3; i < 6; i++ {
		full.Append(StepRecord{Step: i, Time: 0.1 * float64(i), Dt: 0.1, Iterations: 1, Converged: true,
			Systems: []string{"T", "Stokes"}, Initial: []float64{1, 1}, Final: []float64{1e-7, 1e-7}})
	}

	fn := filepath.Join(tst.TempDir(), "statistics")
	sink := NewTextSink(fn, "", false)
	tab := NewTable("gob")
	write := func(i int) error {
		tab.Append(full.Rows[i])
		return sink.Write(tab, &tab.Rows[i])
	}
	read := func() string {
		b, err := os.ReadFile(fn)
		if err != nil {
			tst.Errorf("%v\n", err)
		}
		return string(b)
	}

	// first rows
	for i := 0; i < 2; i++ {
		if err := write(i); err != nil {
			tst.Errorf("%v\n", err)
			return
		}
	}
	chk.String(tst, read(), string(tab.Text()))

	// only the new row is written
	marked := "# marker\n" + string(tab.TextRows(0))
	if err := os.WriteFile(fn, []byte(marked), 0644); err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	if err := write(2); err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	chk.String(tst, read(), marked+string(tab.TextRows(2)))

	// a failed append is followed by a complete rewrite
	os.Remove(fn)
	if err := write(3); err == nil {
		tst.Errorf("appending to a missing file should fail\n")
	}
	if err := write(4); err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	chk.String(tst, read(), string(tab.Text()))

	// a restored table is rewritten by a new sink
	sink = NewTextSink(fn, "", true)
	if err := write(5); err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	if err := sink.Flush(); err != nil {
		tst.Errorf("%v\n", err)
		return
	}
	chk.String(tst, read(), string(full.Text()))
}
