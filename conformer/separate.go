/*
 * separate.go, part of goConf.
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

package conformer

import (
	"gonum.org/v1/gonum/spatial/r3"

	v3 "github.com/rmera/goconf/v3"
)

// separate centers each disconnected part of the molecule in coords, in place, and
// lays the parts along the X axis, so that each starts clearance Å after the end of
// the previous one.
func separate(coords *v3.Matrix, components [][]int, clearance float64) {
	if len(components) < 2 {
		return
	}
	var end float64
	for k, comp := range components {
		part := v3.Zeros(len(comp))
		part.SomeVecs(coords, comp)
		part.Translate(part, r3.Scale(-1, part.Centroid()))
		min, max := part.Bounds()
		if k > 0 {
			shift := end + clearance - min.X
			part.Translate(part, r3.Vec{X: shift})
			max.X += shift
		}
		end = max.X
		coords.SetVecs(part, comp)
	}
}
