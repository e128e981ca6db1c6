// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import (
	"github.com/cpmech/gomantle/fem"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"gonum.org/v1/gonum/mat"
)

// Dense implements a dense operator
type Dense struct {
	M *mat.Dense
}

// NewDense returns a new n×n zero operator
func NewDense(n int) *Dense {
	return &Dense{M: mat.NewDense(n, n, nil)}
}

// Mul computes y := M·x
func (o *Dense) Mul(y, x la.Vector) {
	var r mat.VecDense
	r.MulVec(o.M, mat.NewVecDense(len(x), x))
	for i := range y {
		y[i] = r.AtVec(i)
	}
}

// Set sets M[i][j] = v
func (o *Dense) Set(i, j int, v float64) {
	o.M.Set(i, j, v)
}

// Add adds v to M[i][j]
func (o *Dense) Add(i, j int, v float64) {
	o.M.Set(i, j, o.M.At(i, j)+v)
}

// SetRow sets all values of row i to v
func (o *Dense) SetRow(i int, v float64) {
	_, n := o.M.Dims()
	for j := 0; j < n; j++ {
		o.M.Set(i, j, v)
	}
}

// Solve solves ls with a direct LU factorisation. The tolerance is not used;
// the achieved residual ‖A·x − b‖ is returned
func (o *Model) Solve(sys fem.System, ls *fem.LinearSystem, x la.Vector, tol float64) (achieved float64, err error) {
	d, ok := ls.A.(*Dense)
	if !ok {
		return 0, chk.Err("%v system: dense solver requires a dense operator", sys)
	}
	var lu mat.LU
	lu.Factorize(d.M)
	var sol mat.VecDense
	err = lu.SolveVecTo(&sol, false, mat.NewVecDense(len(ls.B), ls.B))
	if err != nil {
		return 0, chk.Err("%v system: LU solver failed:\n%v", sys, err)
	}
	for i := range x {
		x[i] = sol.AtVec(i)
	}
	r := la.NewVector(len(x))
	d.Mul(r, x)
	for i := range r {
		r[i] -= ls.B[i]
	}
	return r.Norm(), nil
}
