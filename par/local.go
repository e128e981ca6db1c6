// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package par

import (
	"sync"

	"github.com/cpmech/gosl/chk"
	"golang.org/x/sync/errgroup"
)

// group holds the data shared by all in-process ranks
type group struct {
	n     int
	mu    sync.Mutex
	cond  *sync.Cond
	count int         // number of ranks that arrived at the current operation
	gen   int         // operation counter
	bufs  [][]float64 // contributions
	res   []float64   // result of the last operation
}

// Local implements Comm for ranks running as goroutines of one process
type Local struct {
	g    *group
	rank int
}

// NewLocal returns n communicators sharing one group
func NewLocal(n int) (comms []*Local) {
	if n < 1 {
		chk.Panic("number of ranks must be at least 1. %d is invalid", n)
	}
	g := &group{n: n, bufs: make([][]float64, n)}
	g.cond = sync.NewCond(&g.mu)
	comms = make([]*Local, n)
	for i := 0; i < n; i++ {
		comms[i] = &Local{g: g, rank: i}
	}
	return
}

// RunLocal runs fcn on n in-process ranks and waits for all of them
func RunLocal(n int, fcn func(comm Comm) error) error {
	var eg errgroup.Group
	for _, c := range NewLocal(n) {
		comm := c
		eg.Go(func() error {
			return fcn(comm)
		})
	}
	return eg.Wait()
}

// Rank returns this rank
func (o *Local) Rank() int { return o.rank }

// Size returns the number of ranks
func (o *Local) Size() int { return o.g.n }

// Barrier waits for all ranks
func (o *Local) Barrier() {
	o.exchange(nil, func([][]float64) []float64 { return nil })
}

// BcastFromRoot overwrites x with the values of rank 0
func (o *Local) BcastFromRoot(x []float64) {
	copy(x, o.exchange(x, rootOf))
}

// AllReduceSum computes dest := Σ orig
func (o *Local) AllReduceSum(dest, orig []float64) {
	copy(dest, o.exchange(orig, sumOf))
}

// AllReduceMax computes dest := max orig
func (o *Local) AllReduceMax(dest, orig []float64) {
	copy(dest, o.exchange(orig, maxOf))
}

// AllReduceMin computes dest := min orig
func (o *Local) AllReduceMin(dest, orig []float64) {
	copy(dest, o.exchange(orig, minOf))
}

// exchange deposits a copy of data, waits for all ranks and returns the combined result.
// The last rank to arrive computes the result; combine must return a fresh slice.
func (o *Local) exchange(data []float64, combine func(bufs [][]float64) []float64) []float64 {
	g := o.g
	g.mu.Lock()
	defer g.mu.Unlock()
	gen := g.gen
	g.bufs[o.rank] = append([]float64(nil), data...)
	g.count++
	if g.count == g.n {
		g.res = combine(g.bufs)
		g.count = 0
		g.gen++
		g.cond.Broadcast()
		return g.res
	}
	for gen == g.gen {
		g.cond.Wait()
	}
	return g.res
}
