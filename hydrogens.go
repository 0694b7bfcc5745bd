/*
 * hydrogens.go, part of goConf.
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
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/spatial/r3"

	v3 "github.com/rmera/goconf/v3"
)

const hBondLength = 1.0

// occupied returns the number of valences of atom i used by its bonds.
// Aromatic bonds count as one each, and aromatic carbons get one more.
func (M *Molecule) occupied(i int) int {
	occ := 0.0
	aromatic := 0
	for _, b := range M.Atom(i).Bonds {
		bond := M.Bonds[b]
		if bond.IsAromatic() {
			aromatic++
			occ++
			continue
		}
		occ += bond.EffectiveOrder()
	}
	if aromatic > 0 && M.Atom(i).Symbol == "C" {
		occ++
	}
	return int(math.Round(occ))
}

// chargeAdjust returns the change in valence caused by the formal charge of the atom.
func chargeAdjust(symbol string, charge int) int {
	switch symbol {
	case "N", "P", "O", "S", "Se":
		return charge
	case "C", "Si":
		if charge != 0 {
			return -1
		}
	case "B":
		return -charge
	}
	return 0
}

// ImplicitHydrogens returns the number of hydrogens needed to complete the usual
// valence of atom i.
func (M *Molecule) ImplicitHydrogens(i int) int {
	at := M.Atom(i)
	val, ok := symbolValence[at.Symbol]
	if !ok {
		return 0
	}
	n := val + chargeAdjust(at.Symbol, at.Charge) - M.occupied(i)
	if n < 0 {
		return 0
	}
	return n
}

// CheckValence returns an error, with ErrValence as its cause, for the first atom
// found with more occupied valences than its element allows.
func (M *Molecule) CheckValence() error {
	for i, at := range M.Atoms {
		max := symbolMaxValence[at.Symbol]
		if max == 0 {
			continue
		}
		max += chargeAdjust(at.Symbol, at.Charge)
		if at.Symbol == "N" && at.Charge > 0 {
			max = 4
		}
		if occ := M.occupied(i); occ > max {
			err := NewError(fmt.Sprintf("Atom %d (%s) has %d occupied valences, at most %d allowed", i, at.Symbol, occ, max), "CheckValence")
			err.cause = ErrValence
			return err
		}
	}
	return nil
}

// Saturate adds explicit hydrogens to every atom with free valences and returns
// how many were added. If the molecule has coordinates, the new hydrogens
// are placed pointing away from the other neighbors of their heavy atom, in every frame.
func (M *Molecule) Saturate() (int, error) {
	orig := M.Len()
	type addition struct{ heavy, count int }
	adds := make([]addition, 0, orig)
	for i := 0; i < orig; i++ {
		if n := M.ImplicitHydrogens(i); n > 0 && !M.Atom(i).IsHydrogen() {
			adds = append(adds, addition{i, n})
		}
	}
	if len(adds) == 0 {
		return 0, nil
	}
	added := 0
	positions := make([][]r3.Vec, len(M.Coords))
	for _, a := range adds {
		for f, c := range M.Coords {
			positions[f] = append(positions[f], hydrogenPositions(M, c, a.heavy, a.count)...)
		}
		for k := 0; k < a.count; k++ {
			h := M.AddAtom("H", 0)
			if _, err := M.AddBond(a.heavy, h, 1); err != nil {
				return added, errors.Wrapf(errDecorate(err, "Saturate"), "adding hydrogen %d to atom %d", k, a.heavy)
			}
			added++
		}
	}
	for f, c := range M.Coords {
		nc := v3.Zeros(M.Len())
		for i := 0; i < orig; i++ {
			nc.SetVec(i, c.Vec(i))
		}
		for k, p := range positions[f] {
			nc.SetVec(orig+k, p)
		}
		M.Coords[f] = nc
	}
	return added, nil
}

// hydrogenPositions returns count positions for new hydrogens on atom heavy,
// spread on a cone pointing away from its current neighbors.
func hydrogenPositions(M *Molecule, c *v3.Matrix, heavy, count int) []r3.Vec {
	center := c.Vec(heavy)
	var away r3.Vec
	for _, w := range M.Neighbors(heavy) {
		if w >= c.NVecs() {
			continue
		}
		d := r3.Sub(center, c.Vec(w))
		if n := r3.Norm(d); n > appzero {
			away = r3.Add(away, r3.Scale(1/n, d))
		}
	}
	if r3.Norm(away) < appzero {
		away = r3.Vec{X: 1}
	}
	away = r3.Unit(away)
	ret := make([]r3.Vec, 0, count)
	if count == 1 {
		return append(ret, r3.Add(center, r3.Scale(hBondLength, away)))
	}
	p1 := Orthogonal(away)
	p2 := r3.Cross(away, p1)
	for k := 0; k < count; k++ {
		phi := 2 * math.Pi * float64(k) / float64(count)
		dir := r3.Add(r3.Scale(0.33, away), r3.Scale(0.94, r3.Add(r3.Scale(math.Cos(phi), p1), r3.Scale(math.Sin(phi), p2))))
		ret = append(ret, r3.Add(center, r3.Scale(hBondLength, r3.Unit(dir))))
	}
	return ret
}
