/*
 * fragment.go, part of goConf.
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

// Package fragment builds the rigid fragments of a molecule: the pieces left when
// the rotatable bonds are cut, each with a small set of alternative local
// geometries and their likelihoods. Fragments are obtained through a Provider,
// which seeds them with a relaxation engine and keeps them in a Cache keyed by the
// canonical identity of the fragment, so identical motifs are computed once.
package fragment

import (
	"sort"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/spatial/r3"

	chem "github.com/rmera/goconf"
	v3 "github.com/rmera/goconf/v3"
)

// ErrFragmentSeed is the cause of the errors returned when no conformer at all can be
// obtained for a fragment.
var ErrFragmentSeed = errors.New("fragment: no conformer could be seeded")

// Fragment is a rigid piece of a molecule. Core atoms belong only to this fragment.
// Extended atoms are the atoms of neighboring fragments bonded to core atoms through
// rotatable bonds, needed to place the fragment. Conformers have one row per atom, core atoms
// first, in the order of Atoms(). Fragments are immutable once created.
type Fragment struct {
	Core        []int
	Extended    []int
	conformers  []*v3.Matrix
	likelihoods []float64
	local       map[int]int
	key         string
	cached      bool
}

func newFragment(core, ext []int) *Fragment {
	F := &Fragment{Core: core, Extended: ext, local: make(map[int]int, len(core)+len(ext))}
	for i, a := range F.Atoms() {
		F.local[a] = i
	}
	return F
}

// Atoms returns the core and then the extended atoms.
func (F *Fragment) Atoms() []int {
	return append(append(make([]int, 0, len(F.Core)+len(F.Extended)), F.Core...), F.Extended...)
}

// Len returns the total number of atoms, core and extended.
func (F *Fragment) Len() int { return len(F.Core) + len(F.Extended) }

// Local returns the row that the molecule atom at has in the conformers, and false if
// the atom is not part of the fragment.
func (F *Fragment) Local(at int) (int, bool) {
	i, ok := F.local[at]
	return i, ok
}

// IsCore returns true if the molecule atom at is a core atom of the fragment.
func (F *Fragment) IsCore(at int) bool {
	i, ok := F.local[at]
	return ok && i < len(F.Core)
}

// ConformerCount returns the number of alternative geometries.
func (F *Fragment) ConformerCount() int { return len(F.conformers) }

// Conformer returns the coordinates of the i-th conformer. They must not be modified.
func (F *Fragment) Conformer(i int) *v3.Matrix { return F.conformers[i] }

// Vec returns the position of molecule atom at in conformer i.
func (F *Fragment) Vec(i, at int) r3.Vec {
	return F.conformers[i].Vec(F.local[at])
}

// Likelihood returns the likelihood of conformer i. Likelihoods add up to 1.
func (F *Fragment) Likelihood(i int) float64 { return F.likelihoods[i] }

// Key returns the canonical identity of the fragment.
func (F *Fragment) Key() string { return F.key }

// FromCache returns true if the fragment's conformers were taken from a cache.
func (F *Fragment) FromCache() bool { return F.cached }

// Decompose returns the core atoms of the fragments obtained by cutting the bonds
// of mol listed in rotatable. Fragments are sorted by their lowest atom index.
func Decompose(mol *chem.Molecule, rotatable []int) [][]int {
	cut := make(map[int]bool, len(rotatable))
	for _, b := range rotatable {
		cut[b] = true
	}
	return mol.Components(func(b int) bool { return cut[b] })
}

// extended returns the atoms bonded to core through the bonds in cut, sorted.
func extended(mol *chem.Molecule, core []int, cut map[int]bool) []int {
	in := make(map[int]bool, len(core))
	for _, a := range core {
		in[a] = true
	}
	var ext []int
	for _, a := range core {
		for _, b := range mol.Atom(a).Bonds {
			if !cut[b] {
				continue
			}
			if w := mol.Bond(b).Cross(a); !in[w] {
				ext = append(ext, w)
			}
		}
	}
	sort.Ints(ext)
	return ext
}
