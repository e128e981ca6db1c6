// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"math"

	"github.com/cpmech/gosl/utl"
)

// golden ratio
var φ = (1 + math.Sqrt(5)) / 2

// ToleranceHistory holds the data of the last two nonlinear iterations
type ToleranceHistory struct {
	Rold float64 // nonlinear residual of previous iteration
	Rnew float64 // nonlinear residual of current iteration
	Rlin float64 // residual achieved by the last linear solve
	Tol  float64 // tolerance used in the last linear solve
}

// EisenstatWalker computes the tolerance of the next linear solve
//  Variant 0 : fixed tolerance (only clamped)
//  Variant 1 : tol' = |r_new − r_lin| / r_old; safeguard tol^φ
//  Variant 2 : tol' = 0.9·r_new²/r_old²;       safeguard 0.9·tol²
// The safeguarded value is max(tol', safeguard) and applies when the safeguard exceeds 0.1.
// The result is always in [Floor, Ceil]
type EisenstatWalker struct {
	Variant int     // 0, 1 or 2
	Floor   float64 // smallest tolerance
	Ceil    float64 // largest tolerance
}

// Next returns the tolerance for the next linear solve
func (o EisenstatWalker) Next(h ToleranceHistory) float64 {
	if o.Variant == 0 || h.Rold <= 0 {
		return o.clamp(h.Tol)
	}
	var tol, sg float64
	switch o.Variant {
	case 1:
		tol = math.Abs(h.Rnew-h.Rlin) / h.Rold
		sg = math.Pow(h.Tol, φ)
	default:
		tol = 0.9 * (h.Rnew * h.Rnew) / (h.Rold * h.Rold)
		sg = 0.9 * h.Tol * h.Tol
	}
	if sg > 0.1 {
		tol = utl.Max(tol, sg)
	}
	if math.IsNaN(tol) || math.IsInf(tol, 0) {
		return o.clamp(h.Tol)
	}
	return o.clamp(tol)
}

// clamp bounds tol to [Floor, Ceil]
func (o EisenstatWalker) clamp(tol float64) float64 {
	if math.IsNaN(tol) {
		return o.Ceil
	}
	return utl.Min(o.Ceil, utl.Max(o.Floor, tol))
}
