// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"net/http"
	"os"

	"github.com/cpmech/gomantle/inp"
	"github.com/cpmech/gomantle/mdl/channel"
	"github.com/cpmech/gomantle/out"
	"github.com/cpmech/gomantle/par"
	"github.com/cpmech/gomantle/par/mpicomm"
	"github.com/cpmech/gomantle/rst"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/utl"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd returns the command line interface
func newRootCmd() *cobra.Command {
	var verbose bool
	var doprof int

	root := &cobra.Command{
		Use:           "gomantle",
		Short:         "Coupled Stokes/advection time stepping with checkpoint/restart",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show messages; overrides the simulation file when given")
	root.PersistentFlags().IntVar(&doprof, "prof", 0, "profiling: 0=none 1=CPU 2=MEM")

	run := func(resume bool) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if doprof > 0 {
				defer utl.Prof(doprof == 2, false)()
			}
			return simulate(args[0], resume, verbosity(cmd, verbose))
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "run <file.sim|file.yaml>",
		Short: "Run a simulation from the initial condition",
		Args:  cobra.ExactArgs(1),
		RunE:  run(false),
	})
	root.AddCommand(&cobra.Command{
		Use:   "resume <file.sim|file.yaml>",
		Short: "Resume a simulation from the last snapshot in its output directory",
		Args:  cobra.ExactArgs(1),
		RunE:  run(true),
	})
	root.AddCommand(&cobra.Command{
		Use:   "inspect <dirout>",
		Short: "Describe the snapshot stored in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := rst.Inspect(args[0])
			if err != nil {
				io.PfRed("ERROR: %v\n", err)
				return err
			}
			io.Pf("%v", sum)
			return nil
		},
	})
	return root
}

// verbosity returns the value of the verbose flag if it was given; nil otherwise
func verbosity(cmd *cobra.Command, verbose bool) *bool {
	if cmd.Flags().Changed("verbose") {
		return &verbose
	}
	return nil
}

// simulate runs or resumes a simulation. A non-nil verbose overrides the simulation file
func simulate(fnamepath string, resume bool, verbose *bool) (err error) {

	// communicator
	comm := mpicomm.Start()
	defer mpicomm.Stop()

	// catch errors
	defer func() {
		if r := recover(); r != nil {
			err = chk.Err("%v", r)
		}
		if err != nil && par.Root(comm) {
			io.PfRed("\nERROR: %v\n", err)
		}
	}()

	// input data
	sim, err := inp.ReadSim(fnamepath, par.Root(comm))
	if err != nil {
		return
	}
	comm.Barrier()
	sim.Override(resume, verbose)
	showMsg := sim.Data.Verbose && par.Root(comm)
	out.Warn = showMsg

	// message
	if showMsg {
		io.PfWhite("\nGomantle -- coupled Stokes/advection solver\n")
		io.Pf("Copyright 2016 The Gofem Authors. All rights reserved.\n")
		io.Pf("Use of this source code is governed by a BSD-style\n")
		io.Pf("license that can be found in the LICENSE file.\n\n")
		io.Pf("> simulation file = %s\n", fnamepath)
		io.Pf("> output directory = %s\n", sim.DirOut)
	}

	// allocate
	r, err := channel.Setup(sim, comm)
	if err != nil {
		return
	}

	// metrics
	if sim.Data.PromAdr != "" && par.Root(comm) {
		ps := out.NewPromSink()
		r.Main.Sinks = append(r.Main.Sinks, ps)
		go func() {
			e := http.ListenAndServe(sim.Data.PromAdr, promhttp.HandlerFor(ps.Reg, promhttp.HandlerOpts{}))
			if e != nil && showMsg {
				io.Pforan("warning: metrics server stopped: %v\n", e)
			}
		}()
	}

	// run
	return r.Execute()
}
