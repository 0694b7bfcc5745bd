package v3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestViews(Te *testing.T) {
	a := []float64{1.0, 2.0, 3, 4, 5, 6, 7, 8, 9}
	A, err := NewMatrix(a)
	require.NoError(Te, err)
	require.Equal(Te, 3, A.NVecs())
	View := A.VecView(1)
	View.Set(0, 0, 100)
	assert.Equal(Te, 100.0, A.At(1, 0), "views must share storage with the parent")
	assert.Equal(Te, r3.Vec{X: 7, Y: 8, Z: 9}, A.Vec(2))
}

func TestBadData(Te *testing.T) {
	_, err := NewMatrix([]float64{1, 2, 3, 4})
	require.Error(Te, err)
	var e Error
	require.ErrorAs(Te, err, &e)
	assert.True(Te, e.Critical())
}

func TestSomeVecs(Te *testing.T) {
	a := []float64{1.0, 2.0, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18}
	A, err := NewMatrix(a)
	require.NoError(Te, err)
	B := Zeros(3)
	cind := []int{1, 3, 5}
	require.NoError(Te, B.SomeVecsSafe(A, cind))
	assert.Equal(Te, r3.Vec{X: 10, Y: 11, Z: 12}, B.Vec(1))
	B.Set(1, 1, 55)
	A.SetVecs(B, cind)
	assert.Equal(Te, 55.0, A.At(3, 1))
	C := Zeros(2)
	assert.Error(Te, C.SomeVecsSafe(A, cind), "not enough room must be reported, not panic")
}

func TestGeometryHelpers(Te *testing.T) {
	A := FromVecs([]r3.Vec{{X: -1}, {X: 1}, {Y: 3}})
	c := A.Centroid()
	assert.InDelta(Te, 0, c.X, 1e-12)
	assert.InDelta(Te, 1, c.Y, 1e-12)
	B := A.Clone()
	B.Translate(B, r3.Vec{Z: 2})
	assert.Equal(Te, 0.0, A.At(0, 2), "Clone must not share storage")
	min, max := B.Bounds()
	assert.Equal(Te, r3.Vec{X: -1, Y: 0, Z: 2}, min)
	assert.Equal(Te, r3.Vec{X: 1, Y: 3, Z: 2}, max)
	assert.Len(Te, B.RawData(), 9)
}
