/*
 * torsionset.go, part of goConf.
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

package search

import (
	"fmt"
)

// TorsionSet is one candidate of the search: an angle index for every rotatable bond
// followed by a conformer index for every fragment.
type TorsionSet struct {
	Indexes    []int
	Likelihood float64 //product of the likelihoods of the indexes.
	Intensity  float64 //total collision intensity, once evaluated.
	// Collisions[f1][f2] is the collision intensity between fragments f1 and f2.
	// The matrix is symmetric. It can be nil if there were no collisions.
	Collisions [][]float64
	Evaluated  bool
	Used       bool

	bonds int
	bits  Bits
}

// Torsions returns the angle index of each rotatable bond.
func (T *TorsionSet) Torsions() []int { return T.Indexes[:T.bonds] }

// Conformers returns the conformer index of each fragment.
func (T *TorsionSet) Conformers() []int { return T.Indexes[T.bonds:] }

// Bits returns the packed encoding of the set.
func (T *TorsionSet) Bits() Bits { return T.bits }

// SetCollisions records the outcome of the collision check for the set. The
// matrix is kept, not copied.
func (T *TorsionSet) SetCollisions(intensity float64, matrix [][]float64) {
	T.Intensity = intensity
	T.Collisions = matrix
	T.Evaluated = true
}

// PairIntensity returns the collision intensity between fragments f1 and f2.
func (T *TorsionSet) PairIntensity(f1, f2 int) float64 {
	if f1 >= len(T.Collisions) || f2 >= len(T.Collisions[f1]) {
		return 0
	}
	return T.Collisions[f1][f2]
}

func (T *TorsionSet) String() string {
	return fmt.Sprintf("torsions %v conformers %v likelihood %.4g intensity %.4g", T.Torsions(), T.Conformers(), T.Likelihood, T.Intensity)
}
