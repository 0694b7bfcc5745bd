/*
 * json.go, part of goConf.
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
	"io"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"

	v3 "github.com/rmera/goconf/v3"
)

// JSONAtom is the serialized form of an atom.
type JSONAtom struct {
	Symbol string    `json:"symbol"`
	Name   string    `json:"name,omitempty"`
	Charge int       `json:"charge,omitempty"`
	Parity Parity    `json:"parity,omitempty"`
	Vdw    float64   `json:"vdw,omitempty"`
	Coords []float64 `json:"coords,omitempty"`
}

// JSONBond is the serialized form of a bond.
type JSONBond struct {
	At1    int     `json:"at1"`
	At2    int     `json:"at2"`
	Order  float64 `json:"order,omitempty"`
	Parity Parity  `json:"parity,omitempty"`
}

// JSONMolecule is the serialized form of a molecule, with its first set of coordinates.
type JSONMolecule struct {
	Atoms []JSONAtom `json:"atoms"`
	Bonds []JSONBond `json:"bonds"`
}

// JSONRead decodes a molecule from in. If every atom carries coordinates, the
// molecule gets one set of coordinates.
func JSONRead(in io.Reader) (*Molecule, error) {
	var jm JSONMolecule
	if err := json.NewDecoder(in).Decode(&jm); err != nil {
		return nil, errors.Wrap(err, "JSONRead")
	}
	mol := NewMolecule()
	withCoords := len(jm.Atoms) > 0
	for i, a := range jm.Atoms {
		idx := mol.AddAtom(a.Symbol, a.Charge)
		at := mol.Atom(idx)
		at.Name = a.Name
		at.Parity = a.Parity
		at.Vdw = a.Vdw
		if len(a.Coords) == 0 {
			withCoords = false
		} else if len(a.Coords) != 3 {
			return nil, NewError(fmt.Sprintf("Atom %d has %d coordinates", i, len(a.Coords)), "JSONRead")
		}
	}
	for i, b := range jm.Bonds {
		idx, err := mol.AddBond(b.At1, b.At2, b.Order)
		if err != nil {
			return nil, errors.Wrapf(errDecorate(err, "JSONRead"), "bond %d", i)
		}
		mol.Bonds[idx].Parity = b.Parity
	}
	if withCoords {
		c := v3.Zeros(mol.Len())
		for i, a := range jm.Atoms {
			c.SetRow(i, a.Coords)
		}
		mol.Coords = []*v3.Matrix{c}
	}
	return mol, nil
}

// JSONWrite encodes mol, with the coordinates coords (which can be nil), to out.
func JSONWrite(out io.Writer, mol *Molecule, coords *v3.Matrix) error {
	jm := JSONMolecule{Atoms: make([]JSONAtom, 0, mol.Len()), Bonds: make([]JSONBond, 0, len(mol.Bonds))}
	for i, a := range mol.Atoms {
		ja := JSONAtom{Symbol: a.Symbol, Name: a.Name, Charge: a.Charge, Parity: a.Parity, Vdw: a.Vdw}
		if coords != nil {
			v := coords.Vec(i)
			ja.Coords = []float64{v.X, v.Y, v.Z}
		}
		jm.Atoms = append(jm.Atoms, ja)
	}
	for _, b := range mol.Bonds {
		jm.Bonds = append(jm.Bonds, JSONBond{At1: b.At1, At2: b.At2, Order: b.Order, Parity: b.Parity})
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(jm), "JSONWrite")
}
