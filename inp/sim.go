// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package inp implements the input data read from a (.sim) JSON or YAML file
package inp

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/utl"
	"gopkg.in/yaml.v3"
)

// Data holds global data for simulations
type Data struct {
	Desc    string `json:"desc" yaml:"desc"`                                  // description of simulation
	DirOut  string `json:"dirout" yaml:"dirout" env:"GOMANTLE_DIROUT"`        // directory for output; e.g. /tmp/gomantle
	TmpDir  string `json:"tmpdir" yaml:"tmpdir" env:"GOMANTLE_TMPDIR"`        // fast storage for temporary files; "" means write in place
	Encoder string `json:"encoder" yaml:"encoder"`                            // encoder of statistics state; "gob" or "json"
	Verbose bool   `json:"verbose" yaml:"verbose" env:"GOMANTLE_VERBOSE"`     // show messages
	Resume  bool   `json:"resume" yaml:"resume" env:"GOMANTLE_RESUME"`        // resume from the last snapshot in DirOut
	Stats   string `json:"stats" yaml:"stats"`                                // statistics file name (in DirOut); "" means "statistics"
	PromAdr string `json:"promadr" yaml:"promadr" env:"GOMANTLE_PROM_ADDR"`   // address to serve prometheus metrics; e.g. ":2112"
}

// SolverData holds nonlinear solver data
type SolverData struct {

	// scheme
	Type   string  `json:"type" yaml:"type"`     // scheme: single, prescribed, stokes-picard, advect-once, picard, newton
	NmaxIt int     `json:"nmaxit" yaml:"nmaxit"` // max number of outer iterations
	Rtol   float64 `json:"rtol" yaml:"rtol"`     // relative tolerance of outer iterations
	ShowR  bool    `json:"showr" yaml:"showr"`   // show residuals

	// linear solvers
	LinTolStokes float64 `json:"lintolstokes" yaml:"lintolstokes"` // tolerance of the linear Stokes solver
	LinTolAdv    float64 `json:"lintoladv" yaml:"lintoladv"`       // tolerance of the linear advection solvers

	// Newton
	SwitchTol     float64 `json:"switchtol" yaml:"switchtol"`         // switch to Newton when the relative Stokes residual is below this value
	MaxPreNewton  int     `json:"maxprenewton" yaml:"maxprenewton"`   // switch to Newton after this number of defect correction iterations
	EwVariant     int     `json:"ewvariant" yaml:"ewvariant"`         // Eisenstat-Walker choice: 1 or 2; 0 means fixed linear tolerance
	EwFloor       float64 `json:"ewfloor" yaml:"ewfloor"`             // smallest linear tolerance
	EwCeil        float64 `json:"ewceil" yaml:"ewceil"`               // largest linear tolerance
	LineSearchMax int     `json:"linesearchmax" yaml:"linesearchmax"` // max number of line search halvings; 0 means no line search

	// pressure
	Pscale   float64 `json:"pscale" yaml:"pscale"`     // pressure scaling factor
	Pnorm    string  `json:"pnorm" yaml:"pnorm"`       // pressure normalisation: no, volume, surface
	Psurface float64 `json:"psurface" yaml:"psurface"` // surface pressure when Pnorm == surface
}

// TimeData holds data for time stepping
type TimeData struct {
	Cfl        float64 `json:"cfl" yaml:"cfl"`               // Courant number
	Degree     int     `json:"degree" yaml:"degree"`         // polynomial degree of the advected fields
	DtMax      float64 `json:"dtmax" yaml:"dtmax"`           // maximum time step
	MaxInc     float64 `json:"maxinc" yaml:"maxinc"`         // maximum relative increase of the time step
	Conduction bool    `json:"conduction" yaml:"conduction"` // use conduction (diffusive) time step constraint
	Tf         float64 `json:"tf" yaml:"tf"`                 // end time
	NmaxSteps  int     `json:"nmaxsteps" yaml:"nmaxsteps"`   // end step; 0 means no limit
	WallSecs   float64 `json:"wallsecs" yaml:"wallsecs"`     // wall time limit in seconds; 0 means no limit
	StopFile   string  `json:"stopfile" yaml:"stopfile"`     // file in DirOut requesting termination; "" means "terminate"
}

// CheckpointData holds data for checkpoint/restart
type CheckpointData struct {
	Secs       float64 `json:"secs" yaml:"secs"`             // wall-clock seconds between checkpoints; 0 means use Steps
	Steps      int     `json:"steps" yaml:"steps"`           // steps between checkpoints; 0 means none
	AtEnd      bool    `json:"atend" yaml:"atend"`           // write a checkpoint after the final step
	Background bool    `json:"background" yaml:"background"` // write files in a background goroutine
}

// ModelData holds data of the reference channel problem
type ModelData struct {
	Ncells int     `json:"ncells" yaml:"ncells"` // number of cells
	Nparts int     `json:"nparts" yaml:"nparts"` // number of partitions
	Length float64 `json:"length" yaml:"length"` // length of channel
	Eta0   float64 `json:"eta0" yaml:"eta0"`     // reference viscosity
	Gamma  float64 `json:"gamma" yaml:"gamma"`   // thermal viscosity reduction: η = η0 exp(-γ T)
	Nexp   float64 `json:"nexp" yaml:"nexp"`     // power-law exponent; 1 means linear
	S0     float64 `json:"s0" yaml:"s0"`         // reference strain rate of the power law
	Ra     float64 `json:"ra" yaml:"ra"`         // buoyancy number
	Comp   float64 `json:"comp" yaml:"comp"`     // compressibility penalty of the mass equation
	Kappa  float64 `json:"kappa" yaml:"kappa"`   // thermal diffusivity
	KappaC float64 `json:"kappac" yaml:"kappac"` // diffusivity of compositional fields
	Ncomp  int     `json:"ncomp" yaml:"ncomp"`   // number of compositional fields
	Tbot   float64 `json:"tbot" yaml:"tbot"`     // temperature at x = 0
	Ttop   float64 `json:"ttop" yaml:"ttop"`     // temperature at x = L
	Cthres float64 `json:"cthres" yaml:"cthres"` // cells with composition #0 above this value use enhanced diffusivity
	Cfac   float64 `json:"cfac" yaml:"cfac"`     // diffusivity multiplier of enhanced cells
	Vel    float64 `json:"vel" yaml:"vel"`       // prescribed velocity (prescribed scheme only)
}

// Simulation holds all simulation data
type Simulation struct {

	// input
	Data       Data           `json:"data" yaml:"data"`             // global simulation data
	Solver     SolverData     `json:"solver" yaml:"solver"`         // nonlinear solver data
	Time       TimeData       `json:"time" yaml:"time"`             // time stepping data
	Checkpoint CheckpointData `json:"checkpoint" yaml:"checkpoint"` // checkpoint data
	Model      ModelData      `json:"model" yaml:"model"`           // reference problem data

	// derived
	Key     string `json:"-" yaml:"-"` // simulation key; e.g. mysim01.sim => mysim01
	DirOut  string `json:"-" yaml:"-"` // directory to save results
	EncType string `json:"-" yaml:"-"` // encoder type
}

// ReadSim reads all simulation data from a .sim (JSON) or .yaml file
func ReadSim(simfilepath string, createDirOut bool) (o *Simulation, err error) {

	// read file
	b, err := os.ReadFile(simfilepath)
	if err != nil {
		return nil, chk.Err("cannot read simulation file %q:\n%v", simfilepath, err)
	}

	// decode
	ext := strings.ToLower(filepath.Ext(simfilepath))
	o = new(Simulation)
	o.SetDefault()
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, o)
	default:
		err = json.Unmarshal(b, o)
	}
	if err != nil {
		return nil, chk.Err("cannot unmarshal simulation file %q:\n%v", simfilepath, err)
	}

	// environment overrides
	err = env.Parse(&o.Data)
	if err != nil {
		return nil, chk.Err("cannot parse environment variables:\n%v", err)
	}

	// filename key
	o.Key = io.FnKey(filepath.Base(simfilepath))

	// derived values and checks
	o.PostProcess()
	err = o.Validate()
	if err != nil {
		return nil, chk.Err("invalid simulation file %q:\n%v", simfilepath, err)
	}

	// create directory
	if createDirOut {
		err = os.MkdirAll(o.DirOut, 0777)
		if err != nil {
			return nil, chk.Err("cannot create directory for output results (%s): %v", o.DirOut, err)
		}
	}
	return
}

// SetDefault sets default values
func (o *Simulation) SetDefault() {
	o.Data.Encoder = "gob"
	o.Solver.SetDefault()
	o.Time.SetDefault()
	o.Model.SetDefault()
}

// PostProcess sets derived values
func (o *Simulation) PostProcess() {

	// output directory
	o.DirOut = os.ExpandEnv(o.Data.DirOut)
	if o.DirOut == "" {
		o.DirOut = filepath.Join(os.TempDir(), "gomantle", o.Key)
	}
	o.Data.TmpDir = os.ExpandEnv(o.Data.TmpDir)
	if o.Data.Stats == "" {
		o.Data.Stats = "statistics"
	}

	// encoder type
	o.EncType = o.Data.Encoder
	if o.EncType != "gob" && o.EncType != "json" {
		o.EncType = "gob"
	}

	// solver and time
	o.Solver.PostProcess()
	if o.Time.StopFile == "" {
		o.Time.StopFile = "terminate"
	}
}

// Override applies command line options. resume = false and verbose = nil keep the values
// of the simulation file
func (o *Simulation) Override(resume bool, verbose *bool) {
	if resume {
		o.Data.Resume = true
	}
	if verbose != nil {
		o.Data.Verbose = *verbose
	}
}

// Validate checks the consistency of input data
func (o *Simulation) Validate() (err error) {
	err = o.Solver.Validate()
	if err != nil {
		return
	}
	err = o.Time.Validate()
	if err != nil {
		return
	}
	if o.Checkpoint.Secs < 0 || o.Checkpoint.Steps < 0 {
		return chk.Err("checkpoint interval must be non-negative. secs=%g steps=%d", o.Checkpoint.Secs, o.Checkpoint.Steps)
	}
	if o.Model.Ncells < 1 {
		return chk.Err("number of cells must be positive. %d is invalid", o.Model.Ncells)
	}
	if o.Model.Nparts < 1 {
		return chk.Err("number of partitions must be positive. %d is invalid", o.Model.Nparts)
	}
	return
}

// SolverData ///////////////////////////////////////////////////////////////////////////////////

// SetDefault sets default values
func (o *SolverData) SetDefault() {
	o.Type = "picard"
	o.NmaxIt = 10
	o.Rtol = 1e-5
	o.LinTolStokes = 1e-7
	o.LinTolAdv = 1e-12
	o.SwitchTol = 1e-2
	o.MaxPreNewton = 10
	o.EwVariant = 1
	o.EwFloor = 1e-8
	o.EwCeil = 0.9
	o.Pscale = 1
	o.Pnorm = "volume"
}

// PostProcess fixes values read from file
func (o *SolverData) PostProcess() {
	if o.Pscale == 0 {
		o.Pscale = 1
	}
	if o.Pnorm == "" {
		o.Pnorm = "no"
	}
	o.EwFloor = utl.Min(o.EwFloor, o.EwCeil)
}

// Validate checks data
func (o *SolverData) Validate() error {
	if o.NmaxIt < 1 {
		return chk.Err("max number of iterations must be at least 1. %d is invalid", o.NmaxIt)
	}
	if o.Rtol <= 0 || o.LinTolStokes <= 0 || o.LinTolAdv <= 0 {
		return chk.Err("tolerances must be positive. rtol=%g lintolstokes=%g lintoladv=%g", o.Rtol, o.LinTolStokes, o.LinTolAdv)
	}
	if o.EwVariant < 0 || o.EwVariant > 2 {
		return chk.Err("Eisenstat-Walker variant must be 0, 1 or 2. %d is invalid", o.EwVariant)
	}
	if o.EwFloor <= 0 || o.EwCeil > 1 {
		return chk.Err("linear tolerance bounds must satisfy 0 < floor <= ceiling <= 1. floor=%g ceiling=%g", o.EwFloor, o.EwCeil)
	}
	if math.IsNaN(o.Pscale) || o.Pscale < 0 {
		return chk.Err("pressure scaling must be positive. %g is invalid", o.Pscale)
	}
	switch o.Pnorm {
	case "no", "volume", "surface":
	default:
		return chk.Err("pressure normalisation %q is invalid. options: no, volume, surface", o.Pnorm)
	}
	return nil
}

// TimeData /////////////////////////////////////////////////////////////////////////////////////

// SetDefault sets default values
func (o *TimeData) SetDefault() {
	o.Cfl = 1
	o.Degree = 1
	o.DtMax = math.MaxFloat64
	o.MaxInc = math.MaxFloat64
	o.Tf = 1
}

// Validate checks data
func (o *TimeData) Validate() error {
	if o.Cfl <= 0 {
		return chk.Err("CFL number must be positive. %g is invalid", o.Cfl)
	}
	if o.Degree < 1 {
		return chk.Err("polynomial degree must be at least 1. %d is invalid", o.Degree)
	}
	if o.DtMax <= 0 || o.MaxInc < 0 {
		return chk.Err("dtmax must be positive and maxinc non-negative. dtmax=%g maxinc=%g", o.DtMax, o.MaxInc)
	}
	return nil
}

// ModelData ////////////////////////////////////////////////////////////////////////////////////

// SetDefault sets default values
func (o *ModelData) SetDefault() {
	o.Ncells = 16
	o.Nparts = 1
	o.Length = 1
	o.Eta0 = 1
	o.Nexp = 1
	o.S0 = 1
	o.Ra = 1
	o.Comp = 1e-2
	o.Kappa = 1e-2
	o.KappaC = 1e-4
	o.Tbot = 1
	o.Cthres = 0.5
	o.Cfac = 1
}
