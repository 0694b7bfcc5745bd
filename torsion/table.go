/*
 * table.go, part of goConf.
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

// Package torsion models the rotatable bonds of a molecule: which bonds rotate,
// the candidate torsion angles for each of them, with their prior frequencies and
// ranges, and how these are pruned by stereochemistry and local symmetry.
//
// Torsion statistics come from a Table. When a table has no entry for a bond, a
// Predictor supplies the same data from the hybridization of the bonded atoms.
package torsion

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	chem "github.com/rmera/goconf"
)

// Profile is the statistical description of a torsion: the most common
// angles (degrees), their relative frequencies, and the range of
// angles around each of them that is still populated.
type Profile struct {
	Angles      []float64    `yaml:"angles"`
	Frequencies []float64    `yaml:"frequencies,omitempty"`
	Ranges      [][2]float64 `yaml:"ranges,omitempty"`
}

// Validate returns an error if the profile has no angles, or if its slices differ in length.
// Frequencies and ranges can be omitted.
func (P Profile) Validate() error {
	if len(P.Angles) == 0 {
		return errors.New("profile without angles")
	}
	if len(P.Frequencies) > 0 && len(P.Frequencies) != len(P.Angles) {
		return errors.Newf("%d frequencies for %d angles", len(P.Frequencies), len(P.Angles))
	}
	if len(P.Ranges) > 0 && len(P.Ranges) != len(P.Angles) {
		return errors.Newf("%d ranges for %d angles", len(P.Ranges), len(P.Angles))
	}
	for _, f := range P.Frequencies {
		if f < 0 {
			return errors.Newf("negative frequency %g", f)
		}
	}
	return nil
}

// complete returns a copy of P with uniform frequencies and ±15 degree ranges
// where those are missing.
func (P Profile) complete() Profile {
	n := len(P.Angles)
	ret := Profile{Angles: append([]float64(nil), P.Angles...)}
	ret.Frequencies = append([]float64(nil), P.Frequencies...)
	if len(ret.Frequencies) != n || floats.Sum(ret.Frequencies) <= 0 {
		ret.Frequencies = make([]float64, n)
		for i := range ret.Frequencies {
			ret.Frequencies[i] = 1
		}
	}
	ret.Ranges = append([][2]float64(nil), P.Ranges...)
	if len(ret.Ranges) != n {
		ret.Ranges = make([][2]float64, n)
		for i, a := range ret.Angles {
			ret.Ranges[i] = [2]float64{a - defaultHalfRange, a + defaultHalfRange}
		}
	}
	return ret
}

const defaultHalfRange = 15.0

// Table is a source of torsion statistics.
type Table interface {
	//TorsionID returns the identifier of the torsion around bond in mol, and
	//false if the table has no data for it.
	TorsionID(mol *chem.Molecule, bond int) (string, bool)
	Torsions(id string) []float64
	Frequencies(id string) []float64
	Ranges(id string) [][2]float64
}

// MapTable is a Table kept in a map, indexed by atom-type keys.
// A bond between atoms a and b is looked up first with the specific key
// "SymHyb(heavyDegree)-SymHyb(heavyDegree)" and then with the generic "SymHyb-SymHyb",
// where each half describes one atom, Hyb is 1, 2 or 3, and the two halves
// are in lexicographic order. For instance, the central bond of butane is "C3(2)-C3(2)".
type MapTable struct {
	Profiles map[string]Profile `yaml:"torsions"`
}

// NewMapTable returns an empty table.
func NewMapTable() *MapTable {
	return &MapTable{Profiles: make(map[string]Profile)}
}

// Add adds or replaces the profile for key.
func (T *MapTable) Add(key string, p Profile) error {
	if err := p.Validate(); err != nil {
		return errors.Wrapf(err, "torsion %s", key)
	}
	T.Profiles[key] = p
	return nil
}

// Keys returns the atom-type keys for bond in mol, most specific first.
func Keys(mol *chem.Molecule, bond int) []string {
	b := mol.Bond(bond)
	s1 := atomKey(mol, b.At1)
	s2 := atomKey(mol, b.At2)
	g1 := mol.Atom(b.At1).Symbol + mol.Hybridization(b.At1).String()
	g2 := mol.Atom(b.At2).Symbol + mol.Hybridization(b.At2).String()
	if s1 > s2 {
		s1, s2 = s2, s1
	}
	if g1 > g2 {
		g1, g2 = g2, g1
	}
	return []string{s1 + "-" + s2, g1 + "-" + g2}
}

func atomKey(mol *chem.Molecule, i int) string {
	heavy := 0
	for _, w := range mol.Neighbors(i) {
		if !mol.Atom(w).IsHydrogen() {
			heavy++
		}
	}
	return fmt.Sprintf("%s%s(%d)", mol.Atom(i).Symbol, mol.Hybridization(i), heavy)
}

func (T *MapTable) TorsionID(mol *chem.Molecule, bond int) (string, bool) {
	for _, k := range Keys(mol, bond) {
		if _, ok := T.Profiles[k]; ok {
			return k, true
		}
	}
	return "", false
}

func (T *MapTable) Torsions(id string) []float64 { return T.Profiles[id].Angles }

func (T *MapTable) Frequencies(id string) []float64 { return T.Profiles[id].Frequencies }

func (T *MapTable) Ranges(id string) [][2]float64 { return T.Profiles[id].Ranges }

// IDs returns the sorted keys of the table.
func (T *MapTable) IDs() []string {
	ret := make([]string, 0, len(T.Profiles))
	for k := range T.Profiles {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

// ReadTable reads a YAML torsion table from r. The format is
//
//	torsions:
//	  C3-C3:
//	    angles: [60, 180, 300]
//	    frequencies: [0.3, 0.4, 0.3]
//	    ranges: [[40, 80], [160, 200], [280, 320]]
func ReadTable(r io.Reader) (*MapTable, error) {
	T := NewMapTable()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(T); err != nil {
		return nil, errors.Wrap(err, "reading torsion table")
	}
	for _, k := range T.IDs() {
		if err := T.Profiles[k].Validate(); err != nil {
			return nil, errors.Wrapf(err, "torsion %s", k)
		}
	}
	return T, nil
}

// ReadTableFile reads a YAML torsion table from the file name.
func ReadTableFile(name string) (*MapTable, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "reading torsion table")
	}
	defer f.Close()
	return ReadTable(f)
}

//go:embed default.yaml
var defaultTable []byte

// DefaultTable returns a copy of the built-in torsion table.
func DefaultTable() *MapTable {
	T, err := ReadTable(bytes.NewReader(defaultTable))
	if err != nil {
		panic(fmt.Sprintf("torsion: broken built-in table: %v", err))
	}
	return T
}
