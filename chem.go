/*
 * chem.go, part of goConf.
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

package chem

import (
	"fmt"

	v3 "github.com/rmera/goconf/v3"
)

/**Note: Many functions here panic instead of returning errors. This is because they are "fundamental"
 * functions. If something goes wrong here, the program is most likely wrong and should
 * crash. Most panics are related to using the function on a nil object or trying to access out-of bounds
 * fields**/

// Parity is the stereo parity of an atom or of a bond with axial chirality.
type Parity int

const (
	NoParity Parity = iota
	ParityPlus
	ParityMinus
)

// Atom contains the information about an atom except for the coordinates,
// which are kept in a v3.Matrix in the Molecule.
type Atom struct {
	Name   string
	ID     int
	Symbol string
	Charge int
	Parity Parity
	Vdw    float64 //if zero, the tabulated radius for Symbol is used.
	Bonds  []int   //indexes of the bonds in the Molecule's Bonds slice.
	index  int
}

// Index returns the position of the atom in its molecule.
func (A *Atom) Index() int {
	return A.index
}

// VdwRadius returns the van der Waals radius of the atom, in A.
func (A *Atom) VdwRadius() float64 {
	if A.Vdw > 0 {
		return A.Vdw
	}
	if r, ok := symbolVdwrad[A.Symbol]; ok {
		return r
	}
	return defaultVdw
}

// IsHydrogen returns true if the atom is a hydrogen (or deuterium)
func (A *Atom) IsHydrogen() bool {
	return A.Symbol == "H" || A.Symbol == "D"
}

// Copy returns a copy of the Atom object.
func (A *Atom) Copy() *Atom {
	if A == nil {
		panic(ErrNilAtom)
	}
	N := *A
	N.Bonds = append([]int(nil), A.Bonds...)
	return &N
}

// Bond joins two atoms of a molecule, given by their indexes.
type Bond struct {
	Index  int
	At1    int
	At2    int
	Order  float64 //Order 0 means undetermined, and is read as single. Aromatic bonds are 1.5
	Parity Parity  //axial stereo parity, only meaningful for rotatable bonds.
	ring   bool
}

// Cross returns the index of the atom at the other side of the bond from origin.
func (B *Bond) Cross(origin int) int {
	if origin == B.At1 {
		return B.At2
	}
	if origin == B.At2 {
		return B.At1
	}
	panic(ErrNotInBond) //a programming error, so a panic is warranted.
}

// InRing returns true if the bond is part of a ring. The value is only
// meaningful after Molecule.FindRings has been called.
func (B *Bond) InRing() bool {
	return B.ring
}

// EffectiveOrder returns the order of the bond, with undetermined
// orders read as single bonds.
func (B *Bond) EffectiveOrder() float64 {
	if B.Order <= 0 {
		return 1
	}
	return B.Order
}

// IsAromatic returns true for bonds of order 1.5
func (B *Bond) IsAromatic() bool {
	return B.Order > 1.4 && B.Order < 1.6
}

/*****Molecule type***/

// Molecule contains a molecular graph, and zero or more sets of coordinates for it.
// Atoms and bonds refer to each other only by index.
type Molecule struct {
	Atoms      []*Atom
	Bonds      []*Bond
	Coords     []*v3.Matrix
	ringsFound bool
}

// NewMolecule returns an empty molecule
func NewMolecule() *Molecule {
	return &Molecule{Atoms: make([]*Atom, 0, 10), Bonds: make([]*Bond, 0, 10)}
}

// Len returns the number of atoms in the molecule.
func (M *Molecule) Len() int {
	return len(M.Atoms)
}

// Atom returns the Atom corresponding to the index i
// of the Atom slice in the Molecule. Panics if
// out of range.
func (M *Molecule) Atom(i int) *Atom {
	if i >= M.Len() || i < 0 {
		panic(ErrAtomOutOfRange)
	}
	return M.Atoms[i]
}

// Bond returns the bond with index i.
func (M *Molecule) Bond(i int) *Bond {
	if i >= len(M.Bonds) || i < 0 {
		panic(ErrBondOutOfRange)
	}
	return M.Bonds[i]
}

// AddAtom appends a new atom with the given symbol and charge and returns its index.
func (M *Molecule) AddAtom(symbol string, charge int) int {
	at := &Atom{Symbol: symbol, Charge: charge, ID: M.Len() + 1, index: M.Len()}
	M.Atoms = append(M.Atoms, at)
	return at.index
}

// AddBond bonds the atoms at1 and at2 and returns the index of the new bond.
func (M *Molecule) AddBond(at1, at2 int, order float64) (int, error) {
	if at1 == at2 || at1 < 0 || at2 < 0 || at1 >= M.Len() || at2 >= M.Len() {
		return -1, NewError(fmt.Sprintf("Invalid atoms for bond: %d-%d", at1, at2), "AddBond")
	}
	if M.BondBetween(at1, at2) >= 0 {
		return -1, NewError(fmt.Sprintf("Atoms %d and %d are already bonded", at1, at2), "AddBond")
	}
	b := &Bond{Index: len(M.Bonds), At1: at1, At2: at2, Order: order}
	M.Bonds = append(M.Bonds, b)
	M.Atoms[at1].Bonds = append(M.Atoms[at1].Bonds, b.Index)
	M.Atoms[at2].Bonds = append(M.Atoms[at2].Bonds, b.Index)
	M.ringsFound = false
	return b.Index, nil
}

// BondBetween returns the index of the bond joining at1 and at2, or -1 if
// they are not bonded.
func (M *Molecule) BondBetween(at1, at2 int) int {
	for _, b := range M.Atom(at1).Bonds {
		if M.Bonds[b].Cross(at1) == at2 {
			return b
		}
	}
	return -1
}

// Neighbors returns the indexes of the atoms bonded to atom i.
func (M *Molecule) Neighbors(i int) []int {
	at := M.Atom(i)
	ret := make([]int, 0, len(at.Bonds))
	for _, b := range at.Bonds {
		ret = append(ret, M.Bonds[b].Cross(i))
	}
	return ret
}

// Degree returns the number of bonds of atom i
func (M *Molecule) Degree(i int) int {
	return len(M.Atom(i).Bonds)
}

// Coord returns the coordinates of the given atom in the given frame, as a view.
func (M *Molecule) Coord(atom, frame int) *v3.Matrix {
	if frame >= len(M.Coords) {
		panic(ErrNoCoords)
	}
	return M.Coords[frame].VecView(atom)
}

// HasCoords returns true if the molecule has at least one set of coordinates
// with one vector per atom.
func (M *Molecule) HasCoords() bool {
	return len(M.Coords) > 0 && M.Coords[0] != nil && M.Coords[0].NVecs() == M.Len()
}

// Copy returns a deep copy of the molecule, including coordinates.
func (M *Molecule) Copy() *Molecule {
	N := &Molecule{Atoms: make([]*Atom, len(M.Atoms)), Bonds: make([]*Bond, len(M.Bonds)), ringsFound: M.ringsFound}
	for i, a := range M.Atoms {
		N.Atoms[i] = a.Copy()
	}
	for i, b := range M.Bonds {
		nb := *b
		N.Bonds[i] = &nb
	}
	for _, c := range M.Coords {
		N.Coords = append(N.Coords, c.Clone())
	}
	return N
}

// Sub returns the molecule induced by the given atoms, with only the bonds
// among them. The atom i of the new molecule is atoms[i] in the receiver.
// The first set of coordinates, if present, is copied.
// Bond properties (order, parity, ring membership) are those of the receiver.
func (M *Molecule) Sub(atoms []int) *Molecule {
	N := NewMolecule()
	local := make(map[int]int, len(atoms))
	for i, a := range atoms {
		at := M.Atom(a).Copy()
		at.Bonds = nil
		at.index = i
		N.Atoms = append(N.Atoms, at)
		local[a] = i
	}
	for i, a := range atoms {
		for _, b := range M.Atom(a).Bonds {
			bond := M.Bonds[b]
			j, ok := local[bond.Cross(a)]
			if !ok || j < i {
				continue
			}
			nb := &Bond{Index: len(N.Bonds), At1: i, At2: j, Order: bond.Order, Parity: bond.Parity, ring: bond.ring}
			N.Bonds = append(N.Bonds, nb)
			N.Atoms[i].Bonds = append(N.Atoms[i].Bonds, nb.Index)
			N.Atoms[j].Bonds = append(N.Atoms[j].Bonds, nb.Index)
		}
	}
	N.ringsFound = M.ringsFound
	if M.HasCoords() {
		c := v3.Zeros(len(atoms))
		c.SomeVecs(M.Coords[0], atoms)
		N.Coords = []*v3.Matrix{c}
	}
	return N
}

// FillIndexes sets the index and, if unset, the ID of every atom to its
// position in the molecule.
func (M *Molecule) FillIndexes() {
	for i, a := range M.Atoms {
		a.index = i
		if a.ID == 0 {
			a.ID = i + 1
		}
	}
	for i, b := range M.Bonds {
		b.Index = i
	}
}
