/*
 * handy.go, part of goConf.
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
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const appzero float64 = 0.000000000001 //used to correct floating point errors.

// Deg2Rad converts degrees to radians.
func Deg2Rad(f float64) float64 {
	return f * math.Pi / 180
}

// Rad2Deg converts radians to degrees.
func Rad2Deg(f float64) float64 {
	return f * 180 / math.Pi
}

// NormalizeDeg returns the angle f (in degrees) in the [0,360) range.
func NormalizeDeg(f float64) float64 {
	f = math.Mod(f, 360)
	if f < 0 {
		f += 360
	}
	if f >= 360 {
		f = 0
	}
	return f
}

// Dihedral returns the dihedral angle, in radians in the (-pi,pi] range,
// defined by the four points a, b, c, d.
func Dihedral(a, b, c, d r3.Vec) float64 {
	b1 := r3.Sub(b, a)
	b2 := r3.Sub(c, b)
	b3 := r3.Sub(d, c)
	n1 := r3.Cross(b1, b2)
	n2 := r3.Cross(b2, b3)
	y := r3.Norm(b2) * r3.Dot(b1, n2)
	x := r3.Dot(n1, n2)
	return math.Atan2(y, x)
}

// Orthogonal returns a unit vector orthogonal to v. v must not be zero.
func Orthogonal(v r3.Vec) r3.Vec {
	//we cross with the axis least aligned with v.
	ax, ay, az := math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)
	other := r3.Vec{X: 1}
	if ay <= ax && ay <= az {
		other = r3.Vec{Y: 1}
	} else if az <= ax && az <= ay {
		other = r3.Vec{Z: 1}
	}
	return r3.Unit(r3.Cross(v, other))
}

// Aligner returns the rotation that takes the direction of u into that of v.
// Neither vector can be zero.
func Aligner(u, v r3.Vec) r3.Rotation {
	u, v = r3.Unit(u), r3.Unit(v)
	cos := r3.Dot(u, v)
	axis := r3.Cross(u, v)
	sin := r3.Norm(axis)
	if sin < 1e-9 {
		if cos > 0 {
			return r3.NewRotation(0, r3.Vec{Z: 1})
		}
		return r3.NewRotation(math.Pi, Orthogonal(u))
	}
	return r3.NewRotation(math.Atan2(sin, cos), r3.Scale(1/sin, axis))
}

// RotateVecs rotates, in place, the vectors in vecs by angle radians about the axis
// that goes through origin with direction axis. Following the right hand rule.
func RotateVecs(vecs []r3.Vec, origin, axis r3.Vec, angle float64) {
	if angle == 0 {
		return
	}
	rot := r3.NewRotation(angle, r3.Unit(axis))
	for i, v := range vecs {
		vecs[i] = r3.Add(origin, rot.Rotate(r3.Sub(v, origin)))
	}
}

// RotateAbout returns a copy of the given vectors, rotated by angle radians
// about the axis going from ax1 to ax2.
func RotateAbout(vecs []r3.Vec, ax1, ax2 r3.Vec, angle float64) []r3.Vec {
	ret := append([]r3.Vec(nil), vecs...)
	RotateVecs(ret, ax1, r3.Sub(ax2, ax1), angle)
	return ret
}
