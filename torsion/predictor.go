/*
 * predictor.go, part of goConf.
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

package torsion

import (
	chem "github.com/rmera/goconf"
)

// Predictor supplies a torsion profile for a bond from local features, when
// no table has data for it.
type Predictor interface {
	Predict(mol *chem.Molecule, bond int) Profile
}

// HybridPredictor predicts torsion profiles from the hybridization of the
// bonded atoms, recognizing amide and ester bonds.
type HybridPredictor struct{}

func (HybridPredictor) Predict(mol *chem.Molecule, bond int) Profile {
	b := mol.Bond(bond)
	h1, h2 := mol.Hybridization(b.At1), mol.Hybridization(b.At2)
	if h1 > h2 {
		h1, h2 = h2, h1
	}
	switch {
	case isAmideLike(mol, b.At1, b.At2) || isAmideLike(mol, b.At2, b.At1):
		return Profile{
			Angles:      []float64{180, 0},
			Frequencies: []float64{0.9, 0.1},
			Ranges:      [][2]float64{{165, 195}, {-15, 15}},
		}
	case h1 == chem.SP3 && h2 == chem.SP3:
		return Profile{
			Angles:      []float64{60, 180, 300},
			Frequencies: []float64{0.3, 0.4, 0.3},
			Ranges:      [][2]float64{{35, 85}, {155, 205}, {275, 325}},
		}
	case h1 == chem.SP3 && h2 == chem.SP2:
		return Profile{
			Angles:      []float64{0, 60, 120, 180, 240, 300},
			Frequencies: []float64{1, 1, 1, 1, 1, 1},
			Ranges:      [][2]float64{{-20, 20}, {40, 80}, {100, 140}, {160, 200}, {220, 260}, {280, 320}},
		}
	case h1 == chem.SP2 && h2 == chem.SP2:
		return Profile{
			Angles:      []float64{180, 0, 45, 135, 225, 315},
			Frequencies: []float64{3, 3, 1, 1, 1, 1},
			Ranges:      [][2]float64{{160, 200}, {-20, 20}, {25, 65}, {115, 155}, {205, 245}, {295, 335}},
		}
	}
	//Anything else gets a uniform 30 degree grid.
	p := Profile{}
	for a := 0.0; a < 360; a += 30 {
		p.Angles = append(p.Angles, a)
		p.Frequencies = append(p.Frequencies, 1)
		p.Ranges = append(p.Ranges, [2]float64{a - 15, a + 15})
	}
	return p
}

// isAmideLike returns true if x is an N or O bonded to c, and c is a carbon
// with a double bond to an oxygen, sulfur or nitrogen.
func isAmideLike(mol *chem.Molecule, c, x int) bool {
	if s := mol.Atom(x).Symbol; s != "N" && s != "O" {
		return false
	}
	if mol.Atom(c).Symbol != "C" {
		return false
	}
	for _, bi := range mol.Atom(c).Bonds {
		bond := mol.Bond(bi)
		if bond.Order < 1.9 {
			continue
		}
		switch mol.Atom(bond.Cross(c)).Symbol {
		case "O", "S", "N":
			return true
		}
	}
	return false
}

// Source obtains torsion profiles from a table, falling back to a predictor.
type Source struct {
	Table     Table     //can be nil
	Predictor Predictor //if nil, HybridPredictor is used
}

// Profile returns the completed profile for bond and the table id it came from
// (empty if it was predicted).
func (S Source) Profile(mol *chem.Molecule, bond int) (Profile, string) {
	if S.Table != nil {
		if id, ok := S.Table.TorsionID(mol, bond); ok {
			p := Profile{Angles: S.Table.Torsions(id), Frequencies: S.Table.Frequencies(id), Ranges: S.Table.Ranges(id)}
			if p.Validate() == nil {
				return p.complete(), id
			}
		}
	}
	pred := S.Predictor
	if pred == nil {
		pred = HybridPredictor{}
	}
	return pred.Predict(mol, bond).complete(), ""
}
