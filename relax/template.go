/*
 * template.go, part of goConf.
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

package relax

import (
	"context"

	"github.com/cockroachdb/errors"

	chem "github.com/rmera/goconf"
	v3 "github.com/rmera/goconf/v3"
)

// Template is an Engine that returns the coordinate sets already present
// in the molecule, in order, each with goodness 1. It is the engine to use
// when the input molecule already comes with sensible 3D coordinates.
type Template struct{}

// Start returns a run over at most max of the coordinate sets of mol.
func (Template) Start(ctx context.Context, mol *chem.Molecule, seed uint64, max int) (Run, error) {
	if !mol.HasCoords() {
		return nil, errors.Wrapf(ErrNoConformers, "template: molecule with %d atoms has no coordinates", mol.Len())
	}
	frames := make([]*v3.Matrix, 0, len(mol.Coords))
	for i, c := range mol.Coords {
		if max > 0 && len(frames) >= max {
			break
		}
		if c.NVecs() != mol.Len() {
			return nil, errors.Newf("template: frame %d has %d coordinates for %d atoms", i, c.NVecs(), mol.Len())
		}
		frames = append(frames, c)
	}
	return NewRun(frames, nil), nil
}

func (Template) String() string { return "template engine" }
