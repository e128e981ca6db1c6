// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package par implements collective operations among the ranks of a run
package par

import (
	"math"

	"github.com/cpmech/gosl/chk"
)

// Comm defines the collective operations used by the solver loop.
// All ranks must call the same operations in the same order.
type Comm interface {
	Rank() int                         // this rank
	Size() int                         // number of ranks
	Barrier()                          // waits for all ranks
	BcastFromRoot(x []float64)         // overwrites x with the values of rank 0
	AllReduceSum(dest, orig []float64) // dest[i] := Σ_ranks orig[i]
	AllReduceMax(dest, orig []float64) // dest[i] := max_ranks orig[i]
	AllReduceMin(dest, orig []float64) // dest[i] := min_ranks orig[i]
}

// Root tells whether comm is at rank 0
func Root(comm Comm) bool {
	return comm.Rank() == 0
}

// Max returns the global maximum of x
func Max(comm Comm, x float64) float64 {
	res := []float64{0}
	comm.AllReduceMax(res, []float64{x})
	return res[0]
}

// Min returns the global minimum of x
func Min(comm Comm, x float64) float64 {
	res := []float64{0}
	comm.AllReduceMin(res, []float64{x})
	return res[0]
}

// Sum returns the global sums of xs
func Sum(comm Comm, xs ...float64) []float64 {
	res := make([]float64, len(xs))
	comm.AllReduceSum(res, xs)
	return res
}

// Flag broadcasts the decision of rank 0
func Flag(comm Comm, flag bool) bool {
	x := []float64{0}
	if flag {
		x[0] = 1
	}
	comm.BcastFromRoot(x)
	return x[0] > 0.5
}

// Consensus makes all ranks fail together if any rank has failed.
// The local error is returned when it is not nil; otherwise an error
// naming the failed ranks is returned to the ranks that succeeded.
func Consensus(comm Comm, err error) error {
	n := comm.Size()
	flags := make([]float64, n)
	if err != nil {
		flags[comm.Rank()] = 1
	}
	res := make([]float64, n)
	comm.AllReduceMax(res, flags)
	if err != nil {
		return err
	}
	var failed []int
	for i, f := range res {
		if f > 0.5 {
			failed = append(failed, i)
		}
	}
	if len(failed) > 0 {
		return chk.Err("collective operation failed on rank(s) %v", failed)
	}
	return nil
}

// Serial implements Comm for a single rank
type Serial struct{}

// Rank returns 0
func (o Serial) Rank() int { return 0 }

// Size returns 1
func (o Serial) Size() int { return 1 }

// Barrier does nothing
func (o Serial) Barrier() {}

// BcastFromRoot does nothing
func (o Serial) BcastFromRoot(x []float64) {}

// AllReduceSum copies orig into dest
func (o Serial) AllReduceSum(dest, orig []float64) { copy(dest, orig) }

// AllReduceMax copies orig into dest
func (o Serial) AllReduceMax(dest, orig []float64) { copy(dest, orig) }

// AllReduceMin copies orig into dest
func (o Serial) AllReduceMin(dest, orig []float64) { copy(dest, orig) }

// combiners ///////////////////////////////////////////////////////////////////////////////////////

func sumOf(bufs [][]float64) []float64 {
	res := make([]float64, len(bufs[0]))
	for _, b := range bufs {
		for i, v := range b {
			res[i] += v
		}
	}
	return res
}

func maxOf(bufs [][]float64) []float64 {
	res := make([]float64, len(bufs[0]))
	for i := range res {
		res[i] = math.Inf(-1)
	}
	for _, b := range bufs {
		for i, v := range b {
			res[i] = math.Max(res[i], v)
		}
	}
	return res
}

func minOf(bufs [][]float64) []float64 {
	res := make([]float64, len(bufs[0]))
	for i := range res {
		res[i] = math.Inf(1)
	}
	for _, b := range bufs {
		for i, v := range b {
			res[i] = math.Min(res[i], v)
		}
	}
	return res
}

func rootOf(bufs [][]float64) []float64 {
	res := make([]float64, len(bufs[0]))
	copy(res, bufs[0])
	return res
}
