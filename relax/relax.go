/*
 * relax.go, part of goConf.
 *
 * Copyright 2024 The goConf Authors
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

// Package relax defines the relaxation engines and minimizers the conformer
// search uses to obtain local geometries, and provides a few implementations:
// a Template engine that reuses the coordinates already present in a molecule,
// a Crest engine, and an XTB minimizer, the last two driving the external
// programs of the same names.
package relax

import (
	"context"

	"github.com/cockroachdb/errors"

	chem "github.com/rmera/goconf"
	v3 "github.com/rmera/goconf/v3"
)

// ErrNoConformers is returned by engines that cannot produce even one conformer.
var ErrNoConformers = errors.New("relax: no conformers could be produced")

// Engine produces conformers for a molecule, typically by optimizing
// atom positions under distance, plane and stereo rules.
type Engine interface {
	//Start prepares a run that will produce at most max conformers for mol.
	//A seed of 0 means that the run doesn't need to be reproducible.
	Start(ctx context.Context, mol *chem.Molecule, seed uint64, max int) (Run, error)
}

// Run is an ongoing relaxation.
type Run interface {
	//Next returns the next conformer and its goodness, a non-negative
	//relative score (larger is better). ok is false when there are
	//no more conformers, or when ctx was cancelled.
	Next(ctx context.Context) (coords *v3.Matrix, goodness float64, ok bool)
}

// Minimizer optimizes a set of coordinates for a molecule with some
// force field. It returns the optimized coordinates and the energies
// before and after the optimization.
type Minimizer interface {
	Minimize(ctx context.Context, mol *chem.Molecule, coords *v3.Matrix) (opt *v3.Matrix, start, end float64, err error)
}

// sliceRun is a Run that serves a precomputed list of conformers.
type sliceRun struct {
	coords   []*v3.Matrix
	goodness []float64
	next     int
}

func (R *sliceRun) Next(ctx context.Context) (*v3.Matrix, float64, bool) {
	if ctx.Err() != nil || R.next >= len(R.coords) {
		return nil, 0, false
	}
	R.next++
	return R.coords[R.next-1].Clone(), R.goodness[R.next-1], true
}

// NewRun returns a Run that yields copies of the given coordinates with the given goodness
// values, in order. goodness can be nil, in which case every conformer gets 1.
func NewRun(coords []*v3.Matrix, goodness []float64) Run {
	if goodness == nil {
		goodness = make([]float64, len(coords))
		for i := range goodness {
			goodness[i] = 1
		}
	}
	if len(goodness) != len(coords) {
		panic(ErrMismatch)
	}
	return &sliceRun{coords: coords, goodness: goodness}
}

// PanicMsg is the type of the messages used in panics.
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }

const ErrMismatch = PanicMsg("relax: coordinates and goodness slices differ in length")
