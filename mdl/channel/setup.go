// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import (
	"path/filepath"

	"github.com/cpmech/gomantle/fem"
	"github.com/cpmech/gomantle/inp"
	"github.com/cpmech/gomantle/out"
	"github.com/cpmech/gomantle/par"
	"github.com/cpmech/gomantle/rst"
)

// Run holds a complete channel simulation
type Run struct {
	Model *Model       // problem
	Main  *fem.Main    // time loop
	Rst   *rst.Manager // checkpoint/restart manager
}

// Setup allocates the model, the time loop and the checkpoint manager. A text sink
// writing the statistics table is added on the root rank
func Setup(sim *inp.Simulation, comm par.Comm) (o *Run, err error) {
	if comm == nil {
		comm = par.Serial{}
	}
	o = new(Run)
	o.Model, err = New(sim, comm)
	if err != nil {
		return nil, err
	}
	o.Main, err = fem.NewMain(sim, o.Model.Collaborators(), o.Model.InitialState())
	if err != nil {
		return nil, err
	}
	o.Rst = rst.NewManager(sim.DirOut, sim.Data.TmpDir, comm, o.Model.Msh, o.Model.Dofs, sim.Checkpoint.Background)
	o.Rst.AfterMeshLoad = o.Model.Reload
	o.Rst.Constraints = o.Model.Classify
	o.Rst.ShowMsg = o.Main.ShowMsg
	o.Rst.Register(o.Main.Stats)
	o.Main.Ckpt = o.Rst
	if par.Root(comm) {
		fn := filepath.Join(sim.DirOut, sim.Data.Stats)
		o.Main.Sinks = append(o.Main.Sinks, out.NewTextSink(fn, sim.Data.TmpDir, sim.Checkpoint.Background))
	}
	return
}

// Execute runs the time loop and waits for pending snapshot writes
func (o *Run) Execute() (err error) {
	err = o.Main.Run()
	if e := o.Rst.Wait(); err == nil && e != nil {
		err = e
	}
	return
}

// State returns the simulation state
func (o *Run) State() *fem.State {
	return o.Main.State
}
