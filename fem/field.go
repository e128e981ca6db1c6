// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// field kinds
type fieldKind int

const (
	kindTemperature fieldKind = iota
	kindComposition
)

// AdvectionField selects the temperature equation or one compositional field.
// A temperature field never carries a compositional index.
type AdvectionField struct {
	kind fieldKind
	comp int
}

// Temperature returns the field tag of the temperature equation
func Temperature() AdvectionField {
	return AdvectionField{kind: kindTemperature}
}

// Composition returns the field tag of compositional field #i
func Composition(i int) AdvectionField {
	if i < 0 {
		chk.Panic("compositional field index must be non-negative. %d is invalid", i)
	}
	return AdvectionField{kind: kindComposition, comp: i}
}

// AdvectionFields returns the temperature field followed by ncomp compositional fields
func AdvectionFields(ncomp int) (fields []AdvectionField) {
	fields = append(fields, Temperature())
	for i := 0; i < ncomp; i++ {
		fields = append(fields, Composition(i))
	}
	return
}

// IsTemperature tells whether this is the temperature field
func (o AdvectionField) IsTemperature() bool {
	return o.kind == kindTemperature
}

// CompIndex returns the compositional index. Panics for the temperature field
func (o AdvectionField) CompIndex() int {
	if o.kind == kindTemperature {
		chk.Panic("temperature field does not have a compositional index")
	}
	return o.comp
}

// FieldIndex returns 0 for temperature and 1+i for compositional field #i
func (o AdvectionField) FieldIndex() int {
	if o.kind == kindTemperature {
		return 0
	}
	return 1 + o.comp
}

// String returns "T" or "C<i>"
func (o AdvectionField) String() string {
	if o.kind == kindTemperature {
		return "T"
	}
	return io.Sf("C%d", o.comp)
}

// System selects one of the governing systems: Stokes or one advection field.
// System values are comparable and serve as map keys.
type System struct {
	stokes bool
	field  AdvectionField
}

// StokesSystem returns the momentum/incompressibility system tag
func StokesSystem() System {
	return System{stokes: true}
}

// AdvectionSystem returns the system tag of field f
func AdvectionSystem(f AdvectionField) System {
	return System{field: f}
}

// IsStokes tells whether this is the Stokes system
func (o System) IsStokes() bool {
	return o.stokes
}

// Field returns the advection field. Panics for the Stokes system
func (o System) Field() AdvectionField {
	if o.stokes {
		chk.Panic("Stokes system does not have an advection field")
	}
	return o.field
}

// String returns "Stokes" or the field name
func (o System) String() string {
	if o.stokes {
		return "Stokes"
	}
	return o.field.String()
}
