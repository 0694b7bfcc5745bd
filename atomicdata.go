/*
 * atomicdata.go, part of goConf.
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

const defaultVdw = 1.80

//A map for assigning mass to elements.
//Note that just common "bio-elements" are present
var symbolMass = map[string]float64{
	"H":  1.0,
	"D":  2.014,
	"B":  10.81,
	"C":  12.01,
	"O":  16.00,
	"N":  14.01,
	"P":  30.97,
	"S":  32.06,
	"Se": 78.96,
	"Cl": 35.45,
	"Si": 28.08,
	"F":  18.998,
	"Br": 79.904,
	"I":  126.90,
}

//A map for assigning covalent radii to elements
//Values from Cordero et al., 2008 (DOI:10.1039/B801115J)
//Note that just common "bio-elements" are present
var symbolCovrad = map[string]float64{
	"H":  0.4, // 0.31 altered. Since H always has only one bond, it doesn't matter if the radius is longer, the extra bonds will get eliminated later.
	"D":  0.4,
	"B":  0.84,
	"C":  0.76, //the sp3 radius
	"O":  0.66,
	"N":  0.71,
	"P":  1.07,
	"S":  1.05,
	"Se": 1.2,
	"Cl": 1.02,
	"Si": 1.11,
	"F":  0.57,
	"Br": 1.2,
	"I":  1.39,
}

//A map for assigning van der Waals radii to elements
//Values from 10.1021/j100785a001 and 10.1021/jp8111556
var symbolVdwrad = map[string]float64{
	"H":  1.10,
	"D":  1.10,
	"B":  1.92,
	"C":  1.70,
	"O":  1.52,
	"N":  1.55,
	"P":  1.80,
	"S":  1.80,
	"Se": 1.90,
	"Cl": 1.75,
	"Si": 2.10,
	"F":  1.47,
	"Br": 1.83,
	"I":  1.98,
}

//The usual valence of each element, used to add implicit hydrogens.
//Elements not in the map are never saturated.
var symbolValence = map[string]int{
	"H":  1,
	"B":  3,
	"C":  4,
	"N":  3,
	"O":  2,
	"F":  1,
	"Si": 4,
	"P":  3,
	"S":  2,
	"Cl": 1,
	"Se": 2,
	"Br": 1,
	"I":  1,
}

//A map for checking that atoms don't
//have too many bonds. A value of 0 means
//undefined, i.e. that this atom shouldn't
//be checked for max valence.
var symbolMaxValence = map[string]int{
	"H":  1, //this is the only one truly important.
	"D":  1,
	"B":  4,
	"C":  4,
	"N":  3,
	"O":  2,
	"F":  1,
	"Si": 4,
	"P":  5,
	"S":  6,
	"Se": 6,
	"Cl": 7,
	"Br": 7,
	"I":  7,
}

// CovalentRadius returns the tabulated covalent radius for the given element
// symbol, or 0 if unknown.
func CovalentRadius(symbol string) float64 {
	return symbolCovrad[symbol]
}

// Mass returns the tabulated mass for the given element symbol, or 0 if unknown.
func Mass(symbol string) float64 {
	return symbolMass[symbol]
}
