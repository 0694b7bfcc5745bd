package chem

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// chain returns a molecule with the given heavy atoms bonded in a chain, with
// no hydrogens and no coordinates.
func chain(Te *testing.T, symbols ...string) *Molecule {
	mol := NewMolecule()
	for i, s := range symbols {
		mol.AddAtom(s, 0)
		if i > 0 {
			_, err := mol.AddBond(i-1, i, 1)
			require.NoError(Te, err)
		}
	}
	return mol
}

func TestDihedral(Te *testing.T) {
	a := r3.Vec{X: 1, Z: -1}
	b := r3.Vec{}
	c := r3.Vec{Z: 1}
	for _, deg := range []float64{0, 60, 120, -60, 179} {
		phi := Deg2Rad(deg)
		d := r3.Vec{X: math.Cos(phi), Y: math.Sin(phi), Z: 1}
		assert.InDelta(Te, deg, Rad2Deg(Dihedral(a, b, c, d)), 1e-9)
	}
	//rotating the last point about b->c increases the dihedral.
	d := []r3.Vec{{X: 1, Z: 1}}
	RotateVecs(d, b, c, Deg2Rad(30))
	assert.InDelta(Te, 30, Rad2Deg(Dihedral(a, b, c, d[0])), 1e-9)
}

func TestAligner(Te *testing.T) {
	cases := [][2]r3.Vec{
		{{X: 1}, {Y: 2}},
		{{X: 1, Y: 1}, {X: 1, Y: 1}},
		{{Z: 1}, {Z: -3}},
		{{X: 1, Y: 2, Z: 3}, {X: -1, Y: 0.5, Z: 2}},
	}
	for _, c := range cases {
		rot := Aligner(c[0], c[1])
		got := r3.Unit(rot.Rotate(c[0]))
		want := r3.Unit(c[1])
		assert.InDelta(Te, 0, r3.Norm(r3.Sub(got, want)), 1e-9, "aligning %v to %v", c[0], c[1])
	}
	assert.InDelta(Te, 270, NormalizeDeg(-90), 1e-12)
	assert.InDelta(Te, 0, NormalizeDeg(720), 1e-12)
}

func TestFindRings(Te *testing.T) {
	//methylcyclohexane
	mol := chain(Te, "C", "C", "C", "C", "C", "C", "C")
	_, err := mol.AddBond(5, 0, 1)
	require.NoError(Te, err)
	mol.FindRings()
	assert.True(Te, mol.RingsFound())
	for _, b := range mol.Bonds {
		if b.At1 == 6 || b.At2 == 6 {
			assert.False(Te, b.InRing(), "bond %d-%d", b.At1, b.At2)
			continue
		}
		assert.True(Te, b.InRing(), "bond %d-%d", b.At1, b.At2)
	}
	cut := mol.BondBetween(5, 6)
	comps := mol.Components(func(b int) bool { return b == cut })
	require.Len(Te, comps, 2)
	assert.Equal(Te, []int{0, 1, 2, 3, 4, 5}, comps[0])
	assert.Equal(Te, []int{6}, comps[1])
	assert.Equal(Te, []int{6}, mol.Side(6, 5))
	assert.Equal(Te, []int{0, 1, 2, 3, 4, 5}, mol.Side(5, 6))
	d := mol.PathLengths(6, 2)
	assert.Equal(Te, []int{2, -1, -1, -1, 2, 1, 0}, d)
}

func TestSaturate(Te *testing.T) {
	mol := chain(Te, "C", "C", "O")
	mol.Coords = nil
	n, err := mol.Saturate()
	require.NoError(Te, err)
	assert.Equal(Te, 6, n)
	assert.Equal(Te, 9, mol.Len())
	require.NoError(Te, mol.CheckValence())
	//a carbanion and an ammonium.
	ion := NewMolecule()
	ion.AddAtom("C", -1)
	ion.AddAtom("N", 1)
	_, err = ion.AddBond(0, 1, 1)
	require.NoError(Te, err)
	n, err = ion.Saturate()
	require.NoError(Te, err)
	assert.Equal(Te, 2+3, n)
	require.NoError(Te, ion.CheckValence())
}

func TestSaturateCoords(Te *testing.T) {
	mol, err := XYZRead(strings.NewReader("2\nethane\nC 0 0 0\nC 1.54 0 0\n"))
	require.NoError(Te, err)
	require.NoError(Te, AssignBonds(mol))
	require.Len(Te, mol.Bonds, 1)
	n, err := mol.Saturate()
	require.NoError(Te, err)
	assert.Equal(Te, 6, n)
	require.True(Te, mol.HasCoords())
	for i := 2; i < mol.Len(); i++ {
		heavy := mol.Neighbors(i)[0]
		d := r3.Norm(r3.Sub(mol.Coords[0].Vec(i), mol.Coords[0].Vec(heavy)))
		assert.InDelta(Te, 1.0, d, 1e-9)
	}
}

func TestCheckValence(Te *testing.T) {
	mol := NewMolecule()
	mol.AddAtom("C", 0)
	for i := 0; i < 5; i++ {
		h := mol.AddAtom("F", 0)
		_, err := mol.AddBond(0, h, 1)
		require.NoError(Te, err)
	}
	err := mol.CheckValence()
	require.Error(Te, err)
	assert.True(Te, errors.Is(err, ErrValence))
	var cerr Error
	require.True(Te, errors.As(err, &cerr))
	assert.True(Te, cerr.Critical())
}

func TestSymmetryClasses(Te *testing.T) {
	//ethanol
	mol := chain(Te, "C", "C", "O")
	_, err := mol.Saturate()
	require.NoError(Te, err)
	all := make([]int, mol.Len())
	for i := range all {
		all[i] = i
	}
	cl := mol.SymmetryClasses(all, nil)
	var methyl, methylene []int
	for i := 3; i < mol.Len(); i++ {
		switch mol.Neighbors(i)[0] {
		case 0:
			methyl = append(methyl, cl[i])
		case 1:
			methylene = append(methylene, cl[i])
		}
	}
	require.Len(Te, methyl, 3)
	require.Len(Te, methylene, 2)
	assert.Equal(Te, methyl[0], methyl[1])
	assert.Equal(Te, methyl[0], methyl[2])
	assert.Equal(Te, methylene[0], methylene[1])
	assert.NotEqual(Te, methyl[0], methylene[0])
	assert.NotEqual(Te, cl[0], cl[1])
}

func TestCanonicalRanks(Te *testing.T) {
	a := chain(Te, "C", "C", "O", "C")
	b := chain(Te, "C", "O", "C", "C")
	atoms := []int{0, 1, 2, 3}
	ra, ka := a.CanonicalRanks(atoms, nil)
	rb, kb := b.CanonicalRanks([]int{3, 2, 1, 0}, nil)
	assert.Equal(Te, ka, kb)
	assert.ElementsMatch(Te, atoms, ra)
	assert.ElementsMatch(Te, atoms, rb)
	c := chain(Te, "C", "C", "C", "O")
	_, kc := c.CanonicalRanks(atoms, nil)
	assert.NotEqual(Te, ka, kc)
	//the extra invariant is part of the key.
	_, ke := a.CanonicalRanks(atoms, func(i int) int { return i % 2 })
	assert.NotEqual(Te, ka, ke)
}

func TestXYZIO(Te *testing.T) {
	in := "3\nwater twice\nO 0.0 0.0 0.0\nH 0.96 0.0 0.0\nH -0.24 0.93 0.0\n3\n\nO 0.0 0.0 0.1\nH 0.96 0.0 0.1\nH -0.24 0.93 0.1\n"
	mol, err := XYZRead(strings.NewReader(in))
	require.NoError(Te, err)
	assert.Equal(Te, 3, mol.Len())
	require.Len(Te, mol.Coords, 2)
	assert.InDelta(Te, 0.1, mol.Coords[1].Vec(2).Z, 1e-12)
	var buf bytes.Buffer
	require.NoError(Te, XYZWrite(&buf, mol, mol.Coords[1], "second"))
	back, err := XYZRead(&buf)
	require.NoError(Te, err)
	assert.Equal(Te, "H", back.Atom(1).Symbol)
	assert.InDelta(Te, -0.24, back.Coords[0].Vec(2).X, 1e-6)
	_, err = XYZRead(strings.NewReader("2\n\nC 0 0 0\n"))
	assert.Error(Te, err)
}

func TestJSONIO(Te *testing.T) {
	in := `{"atoms":[{"symbol":"C","coords":[0,0,0]},{"symbol":"N","charge":1,"coords":[1.5,0,0]}],
"bonds":[{"at1":0,"at2":1,"order":1,"parity":1}]}`
	mol, err := JSONRead(strings.NewReader(in))
	require.NoError(Te, err)
	require.True(Te, mol.HasCoords())
	assert.Equal(Te, 1, mol.Atom(1).Charge)
	assert.Equal(Te, ParityPlus, mol.Bond(0).Parity)
	var buf bytes.Buffer
	require.NoError(Te, JSONWrite(&buf, mol, mol.Coords[0]))
	back, err := JSONRead(&buf)
	require.NoError(Te, err)
	assert.Equal(Te, mol.Len(), back.Len())
	assert.InDelta(Te, 1.5, back.Coords[0].Vec(1).X, 1e-12)
	_, err = JSONRead(strings.NewReader(`{"atoms":[{"symbol":"C"}],"bonds":[{"at1":0,"at2":3}]}`))
	assert.Error(Te, err)
}
