/*
 * matrix.go, part of goConf.
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

package v3

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

const cols int = 3

// Matrix is a set of vectors in 3D space, one per row.
// Within the package it is understood that a "vector" is a row vector, i.e. the
// cartesian coordinates of a point in 3D space.
type Matrix struct {
	*mat.Dense
}

// NewMatrix generates and returns a Matrix with 3 columns from data.
// data is used as backing storage, not copied.
func NewMatrix(data []float64) (*Matrix, error) {
	l := len(data)
	if l%cols != 0 || l == 0 {
		return nil, Error{fmt.Sprintf("Input slice lenght %d not divisible by %d", l, cols), []string{"NewMatrix"}, true}
	}
	return &Matrix{mat.NewDense(l/cols, cols, data)}, nil
}

// Zeros returns a zero-filled Matrix with vecs vectors.
func Zeros(vecs int) *Matrix {
	if vecs <= 0 {
		panic(ErrShape)
	}
	return &Matrix{mat.NewDense(vecs, cols, make([]float64, cols*vecs))}
}

// FromVecs returns a new Matrix with one row per element of v.
func FromVecs(v []r3.Vec) *Matrix {
	F := Zeros(len(v))
	for i, w := range v {
		F.SetVec(i, w)
	}
	return F
}

// NVecs returns the number of vectors (rows) in F.
func (F *Matrix) NVecs() int {
	r, c := F.Dims()
	if c != cols {
		panic(ErrNotXx3Matrix)
	}
	return r
}

// Len is the same as NVecs.
func (F *Matrix) Len() int {
	return F.NVecs()
}

// Vec returns the ith vector of F as an r3.Vec.
func (F *Matrix) Vec(i int) r3.Vec {
	if i < 0 || i >= F.NVecs() {
		panic(ErrIndexOutOfRange)
	}
	return r3.Vec{X: F.At(i, 0), Y: F.At(i, 1), Z: F.At(i, 2)}
}

// SetVec puts v in the ith row of F.
func (F *Matrix) SetVec(i int, v r3.Vec) {
	if i < 0 || i >= F.NVecs() {
		panic(ErrIndexOutOfRange)
	}
	F.Set(i, 0, v.X)
	F.Set(i, 1, v.Y)
	F.Set(i, 2, v.Z)
}

// Vecs returns all the rows of F as a new slice of r3.Vec.
func (F *Matrix) Vecs() []r3.Vec {
	ret := make([]r3.Vec, F.NVecs())
	for i := range ret {
		ret[i] = F.Vec(i)
	}
	return ret
}

// VecView returns a view of the ith vector of the matrix.
// Changes in the view are reflected in F and vice-versa.
func (F *Matrix) VecView(i int) *Matrix {
	r := F.Dense.Slice(i, i+1, 0, cols).(*mat.Dense)
	return &Matrix{r}
}

// Clone returns a deep copy of F.
func (F *Matrix) Clone() *Matrix {
	r := mat.DenseCopyOf(F.Dense)
	return &Matrix{r}
}

// SomeVecs puts in the receiver the vectors of A listed in clist, in that order.
// It panics if the receiver doesn't have room for them.
func (F *Matrix) SomeVecs(A *Matrix, clist []int) {
	if F.NVecs() < len(clist) {
		panic(ErrShape)
	}
	for i, v := range clist {
		F.SetVec(i, A.Vec(v))
	}
}

// SomeVecsSafe is like SomeVecs but returns an error instead of panicking.
func (F *Matrix) SomeVecsSafe(A *Matrix, clist []int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch e := r.(type) {
			case PanicMsg:
				err = Error{string(e), []string{"SomeVecsSafe"}, true}
			case mat.Error:
				err = Error{e.Error(), []string{"SomeVecsSafe"}, true}
			default:
				panic(r)
			}
		}
	}()
	F.SomeVecs(A, clist)
	return nil
}

// SetVecs sets the vectors of F listed in clist to the vectors of A, in order.
func (F *Matrix) SetVecs(A *Matrix, clist []int) {
	if A.NVecs() < len(clist) {
		panic(ErrShape)
	}
	for i, v := range clist {
		F.SetVec(v, A.Vec(i))
	}
}

// Translate adds v to every vector of A, putting the result in F.
func (F *Matrix) Translate(A *Matrix, v r3.Vec) {
	if A.NVecs() != F.NVecs() {
		panic(ErrShape)
	}
	for i := 0; i < A.NVecs(); i++ {
		F.SetVec(i, r3.Add(A.Vec(i), v))
	}
}

// Centroid returns the geometric center of the vectors of F.
func (F *Matrix) Centroid() r3.Vec {
	var c r3.Vec
	n := F.NVecs()
	for i := 0; i < n; i++ {
		c = r3.Add(c, F.Vec(i))
	}
	return r3.Scale(1/float64(n), c)
}

// Bounds returns the smallest and largest values of each coordinate
// over the vectors of F.
func (F *Matrix) Bounds() (min, max r3.Vec) {
	min = F.Vec(0)
	max = min
	for i := 1; i < F.NVecs(); i++ {
		v := F.Vec(i)
		min.X, max.X = minmax(min.X, max.X, v.X)
		min.Y, max.Y = minmax(min.Y, max.Y, v.Y)
		min.Z, max.Z = minmax(min.Z, max.Z, v.Z)
	}
	return min, max
}

func minmax(lo, hi, v float64) (float64, float64) {
	if v < lo {
		lo = v
	}
	if v > hi {
		hi = v
	}
	return lo, hi
}

// RawData returns a copy of the underlying data, in row-major order.
func (F *Matrix) RawData() []float64 {
	raw := F.RawMatrix()
	ret := make([]float64, 0, F.NVecs()*cols)
	for i := 0; i < raw.Rows; i++ {
		ret = append(ret, raw.Data[i*raw.Stride:i*raw.Stride+cols]...)
	}
	return ret
}

//Errors

// Error is the error type of the package. It mirrors chem.Error
// and avoids a circular import.
type Error struct {
	message  string
	deco     []string
	critical bool
}

// Error returns a string with an error message.
func (err Error) Error() string {
	return err.message
}

// Decorate will add the dec string to the decoration slice of strings of the error,
// and return the resulting slice.
func (err Error) Decorate(dec string) []string {
	if dec == "" {
		return err.deco
	}
	err.deco = append(err.deco, dec)
	return err.deco
}

// Critical returns whether the error is critical or it can be ignored
func (err Error) Critical() bool { return err.critical }

// PanicMsg is a message used for panics, even though it does satisfy the error interface.
// for errors use Error.
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }

const (
	ErrNotXx3Matrix    = PanicMsg("goConf/v3: A v3.Matrix should have 3 columns")
	ErrShape           = PanicMsg("goConf/v3: Dimension mismatch")
	ErrIndexOutOfRange = PanicMsg("goConf/v3: index out of range")
)
