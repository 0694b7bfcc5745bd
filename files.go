/*
 * files.go, part of goConf.
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
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	v3 "github.com/rmera/goconf/v3"
)

// XYZRead reads one or more XYZ frames from r. The returned molecule has one
// set of coordinates per frame, and no bonds. All frames must have the same number of atoms.
func XYZRead(r io.Reader) (*Molecule, error) {
	xyz := bufio.NewReader(r)
	mol := NewMolecule()
	for frame := 0; ; frame++ {
		line, err := xyz.ReadString('\n')
		if strings.TrimSpace(line) == "" {
			if err == io.EOF || err == nil && frame > 0 {
				break
			}
			if err != nil {
				return nil, errors.Wrap(err, "XYZRead")
			}
			return nil, NewError("Ill formatted XYZ file: empty first line", "XYZRead")
		}
		natoms, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			return nil, NewError(fmt.Sprintf("Ill formatted XYZ file: bad atom number in frame %d", frame), "XYZRead")
		}
		if frame > 0 && natoms != mol.Len() {
			return nil, NewError(fmt.Sprintf("Frame %d has %d atoms, expected %d", frame, natoms, mol.Len()), "XYZRead")
		}
		if _, err = xyz.ReadString('\n'); err != nil { //comment line
			return nil, NewError("Ill formatted XYZ file: missing comment line", "XYZRead")
		}
		coords := v3.Zeros(natoms)
		for i := 0; i < natoms; i++ {
			line, err = xyz.ReadString('\n')
			if err != nil && (err != io.EOF || strings.TrimSpace(line) == "") {
				return nil, NewError(fmt.Sprintf("Ill formatted XYZ file: frame %d ends at atom %d", frame, i), "XYZRead")
			}
			fields := strings.Fields(line)
			if len(fields) < 4 {
				return nil, NewError(fmt.Sprintf("Line for atom %d in frame %d ill formed", i, frame), "XYZRead")
			}
			for j := 0; j < 3; j++ {
				f, err := strconv.ParseFloat(fields[j+1], 64)
				if err != nil {
					return nil, errors.Wrapf(err, "XYZRead: atom %d in frame %d", i, frame)
				}
				coords.Set(i, j, f)
			}
			if frame == 0 {
				mol.AddAtom(fields[0], 0)
			}
		}
		mol.Coords = append(mol.Coords, coords)
	}
	return mol, nil
}

// XYZFileRead opens the file xyzname and reads it with XYZRead.
func XYZFileRead(xyzname string) (*Molecule, error) {
	f, err := os.Open(xyzname)
	if err != nil {
		return nil, errors.Wrap(err, "XYZFileRead")
	}
	defer f.Close()
	mol, err := XYZRead(f)
	if err != nil {
		return nil, errDecorate(err, "XYZFileRead")
	}
	return mol, nil
}

// XYZWrite writes the coordinates coords for the atoms in mol, in XYZ format, to out.
func XYZWrite(out io.Writer, mol Atomer, coords *v3.Matrix, comment string) error {
	if coords.NVecs() != mol.Len() {
		return NewError(fmt.Sprintf("Molecule has %d atoms but %d coordinates were given", mol.Len(), coords.NVecs()), "XYZWrite")
	}
	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "%-4d\n", mol.Len())
	fmt.Fprintf(w, "%s\n", strings.ReplaceAll(comment, "\n", " "))
	for i := 0; i < mol.Len(); i++ {
		c := coords.Vec(i)
		fmt.Fprintf(w, "%-2s  %12.6f%12.6f%12.6f\n", mol.Atom(i).Symbol, c.X, c.Y, c.Z)
	}
	return errors.Wrap(w.Flush(), "XYZWrite")
}

// XYZFileWrite writes the given frame of mol to the file xyzname, which is
// overwritten if it exists.
func XYZFileWrite(xyzname string, mol *Molecule, frame int) error {
	if frame >= len(mol.Coords) {
		return NewError(fmt.Sprintf("Frame %d requested, but the molecule has %d", frame, len(mol.Coords)), "XYZFileWrite")
	}
	out, err := os.Create(xyzname)
	if err != nil {
		return errors.Wrap(err, "XYZFileWrite")
	}
	defer out.Close()
	if err := XYZWrite(out, mol, mol.Coords[frame], ""); err != nil {
		return errDecorate(err, "XYZFileWrite")
	}
	return nil
}
