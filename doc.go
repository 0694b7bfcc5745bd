/*
 * doc.go, part of goConf.
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

/*Package chem is the molecular model of goConf. It provides atoms, bonds and
molecules as plain graphs with optional sets of coordinates, and the basic
chemistry the conformer search needs: bond assignment from coordinates,
ring perception, valence checks, hydrogen saturation, symmetry classes and
canonical numbering of sub-graphs, and XYZ/JSON input and output.

Coordinates are kept in v3.Matrix objects (see the v3 subpackage), and
geometric helpers work on gonum's r3.Vec values.

The conformer search itself lives in the subpackages:

	relax      relaxation engine interfaces and a trivial engine.
	torsion    rotatable bonds, torsion profiles and their prediction.
	fragment   rigid fragments, their conformers and the fragment cache.
	search     torsion set encoding, elimination rules and search strategies.
	conformer  base conformers, collision detection and the conformer generator.

*/
package chem
