package torsion

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	chem "github.com/rmera/goconf"
	v3 "github.com/rmera/goconf/v3"
)

// heavyChain builds a chain of heavy atoms with the given bond orders between
// consecutive atoms, and saturates it with hydrogens.
func heavyChain(Te *testing.T, symbols []string, orders []float64) *chem.Molecule {
	mol := chem.NewMolecule()
	for i, s := range symbols {
		mol.AddAtom(s, 0)
		if i > 0 {
			_, err := mol.AddBond(i-1, i, orders[i-1])
			require.NoError(Te, err)
		}
	}
	_, err := mol.Saturate()
	require.NoError(Te, err)
	mol.FindRings()
	return mol
}

func butane(Te *testing.T) *chem.Molecule {
	return heavyChain(Te, []string{"C", "C", "C", "C"}, []float64{1, 1, 1})
}

func toluene(Te *testing.T) *chem.Molecule {
	mol := chem.NewMolecule()
	for i := 0; i < 7; i++ {
		mol.AddAtom("C", 0)
	}
	for i := 0; i < 6; i++ {
		_, err := mol.AddBond(i, (i+1)%6, 1.5)
		require.NoError(Te, err)
	}
	_, err := mol.AddBond(0, 6, 1)
	require.NoError(Te, err)
	_, err = mol.Saturate()
	require.NoError(Te, err)
	mol.FindRings()
	return mol
}

func TestFind(Te *testing.T) {
	mol := butane(Te)
	rot := Find(mol)
	assert.Equal(Te, []int{0, 1, 2}, rot)

	tol := toluene(Te)
	rot = Find(tol)
	require.Len(Te, rot, 1)
	assert.Equal(Te, tol.BondBetween(0, 6), rot[0])

	//ethyne and a C=C double bond are not rotatable.
	assert.Empty(Te, Find(heavyChain(Te, []string{"C", "C"}, []float64{3})))
	assert.Empty(Te, Find(heavyChain(Te, []string{"C", "C"}, []float64{2})))
	//propyne: the C-CH3 bond touches an sp carbon.
	assert.Empty(Te, Find(heavyChain(Te, []string{"C", "C", "C"}, []float64{1, 3})))
}

func TestNewCentral(Te *testing.T) {
	mol := butane(Te)
	src := Source{Table: DefaultTable()}
	central := mol.BondBetween(1, 2)
	prof, id := src.Profile(mol, central)
	assert.Equal(Te, "C3(2)-C3(2)", id)
	R, err := New(mol, central, prof, id, [2]bool{false, false})
	require.NoError(Te, err)
	assert.Equal(Te, 3, R.TorsionCount())
	assert.Equal(Te, 1, R.Fold())
	assert.InDelta(Te, 1.0, floats.Sum(R.Likelihoods()), 1e-12)
	assert.Equal(Te, [4]int{0, 1, 2, 3}, R.Atoms)
	assert.Equal(Te, 0, R.SortedIndexes()[0], "180 is the most frequent angle")
	assert.True(Te, R.RotatesA2())
	assert.Contains(Te, R.Smaller(), 3)
	assert.NotContains(Te, R.Smaller(), 0)
}

func TestSymmetryFold(Te *testing.T) {
	mol := butane(Te)
	src := Source{Table: DefaultTable()}
	methyl := mol.BondBetween(0, 1)
	prof, _ := src.Profile(mol, methyl)
	R, err := New(mol, methyl, prof, "", [2]bool{true, false})
	require.NoError(Te, err)
	assert.Equal(Te, 3, R.Fold())
	require.Equal(Te, 1, R.TorsionCount())
	assert.InDelta(Te, 60, R.Angle(0), 1e-9)
	assert.InDelta(Te, 1, R.Frequency(0), 1e-12)
	assert.False(Te, R.RotatesA2(), "the methyl group is the smaller side")

	tol := toluene(Te)
	b := Find(tol)[0]
	prof = Profile{Angles: []float64{0, 30, 60, 90, 120}, Frequencies: []float64{1, 1, 1, 1, 1}}
	R, err = New(tol, b, prof, "", [2]bool{true, true})
	require.NoError(Te, err)
	assert.Equal(Te, 6, R.Fold())
	assert.Equal(Te, 2, R.TorsionCount())
	assert.InDeltaSlice(Te, []float64{0.6, 0.4}, R.Likelihoods(), 1e-12)
	//a phenyl alone gives a two-fold symmetry.
	R, err = New(tol, b, prof, "", [2]bool{true, false})
	require.NoError(Te, err)
	if tol.Bond(b).At1 == 0 {
		assert.Equal(Te, 2, R.Fold())
	} else {
		assert.Equal(Te, 3, R.Fold())
	}
}

func TestParity(Te *testing.T) {
	mol := butane(Te)
	central := mol.BondBetween(1, 2)
	prof := Profile{Angles: []float64{60, 180, 300}, Frequencies: []float64{0.3, 0.4, 0.3}}
	mol.Bond(central).Parity = chem.ParityPlus
	R, err := New(mol, central, prof, "", [2]bool{})
	require.NoError(Te, err)
	assert.Equal(Te, []float64{60}, []float64{R.Angle(0)})
	assert.Equal(Te, 1, R.TorsionCount())
	assert.InDelta(Te, 1, R.Frequency(0), 1e-12)

	mol.Bond(central).Parity = chem.ParityMinus
	R, err = New(mol, central, Profile{Angles: []float64{20, 100}}, "", [2]bool{})
	require.NoError(Te, err)
	require.Equal(Te, 2, R.TorsionCount(), "angles are mirrored when none is legal")
	assert.InDelta(Te, 340, R.Angle(0), 1e-9)
	assert.InDelta(Te, 260, R.Angle(1), 1e-9)
	assert.InDelta(Te, 325, R.Range(0)[0], 1e-9)
	assert.InDelta(Te, 355, R.Range(0)[1], 1e-9)

	R, err = New(mol, central, Profile{Angles: []float64{0, 180}}, "", [2]bool{})
	require.NoError(Te, err)
	assert.Equal(Te, 1, R.TorsionCount())
	assert.InDelta(Te, 270, R.Angle(0), 1e-9)
}

func TestLikelihoodsOnce(Te *testing.T) {
	mol := butane(Te)
	central := mol.BondBetween(1, 2)
	R, err := New(mol, central, Profile{Angles: []float64{60, 180, 300}}, "", [2]bool{})
	require.NoError(Te, err)
	assert.False(Te, R.HasLikelihoods())
	assert.InDelta(Te, 1.0/3, R.Likelihood(1), 1e-12)
	require.NoError(Te, R.SetLikelihoods([]float64{1, 2, 1}))
	assert.InDelta(Te, 0.5, R.Likelihood(1), 1e-12)
	require.NoError(Te, R.SetLikelihoods([]float64{1, 0, 0}))
	assert.InDelta(Te, 0.5, R.Likelihood(1), 1e-12, "likelihoods are set only once")
	assert.Error(Te, R.SetLikelihoods([]float64{1}))

	_, err = New(mol, mol.BondBetween(0, 4), Profile{Angles: []float64{0}}, "", [2]bool{})
	assert.True(Te, errors.Is(err, ErrNotRotatable))
}

func TestSetTorsion(Te *testing.T) {
	mol := heavyChain(Te, []string{"C", "C", "C", "C"}, []float64{1, 1, 1})
	vecs := make([]r3.Vec, mol.Len())
	vecs[0] = r3.Vec{X: 1, Z: -0.5}
	vecs[1] = r3.Vec{}
	vecs[2] = r3.Vec{Z: 1.5}
	vecs[3] = r3.Vec{X: 1, Z: 2}
	for i := 4; i < mol.Len(); i++ {
		vecs[i] = r3.Add(vecs[mol.Neighbors(i)[0]], r3.Vec{Y: 1})
	}
	mol.Coords = []*v3.Matrix{v3.FromVecs(vecs)}
	central := mol.BondBetween(1, 2)
	R, err := New(mol, central, Profile{Angles: []float64{60, 180, 300}}, "", [2]bool{})
	require.NoError(Te, err)
	assert.InDelta(Te, 0, R.Dihedral(vecs), 1e-9)
	before := vecs[0]
	R.SetTorsion(vecs, 120)
	assert.InDelta(Te, 120, R.Dihedral(vecs), 1e-9)
	assert.Equal(Te, before, vecs[0], "the other side doesn't move")
	R.Rotate(vecs, -30)
	assert.InDelta(Te, 90, R.Dihedral(vecs), 1e-9)
	//rotating the a1 side gives the same change in the torsion.
	moving := mol.Side(1, 2)
	RotateAtoms(vecs, moving, vecs[1], vecs[2], false, 45)
	assert.InDelta(Te, 135, R.Dihedral(vecs), 1e-9)
	assert.InDelta(Te, 1.5, r3.Norm(r3.Sub(vecs[2], vecs[1])), 1e-12)
}

func TestBiasedPick(Te *testing.T) {
	rng := NewRand(7)
	for i := 0; i < 50; i++ {
		assert.Equal(Te, 1, BiasedPick([]float64{0, 1}, 0, rng))
	}
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		seen[BiasedPick([]float64{1, 0}, 1, rng)] = true
	}
	assert.True(Te, seen[0] && seen[1], "progress 1 samples uniformly")
	assert.Equal(Te, 0, BiasedPick([]float64{5}, 0.5, rng))
	assert.NotPanics(Te, func() { BiasedPick([]float64{0, 0, 0}, 0, nil) })

	a, b := NewRand(42), NewRand(42)
	w := []float64{0.1, 0.5, 0.2, 0.2}
	for i := 0; i < 20; i++ {
		assert.Equal(Te, BiasedPick(w, 0.3, a), BiasedPick(w, 0.3, b))
	}
}

func TestReadTable(Te *testing.T) {
	in := `torsions:
  C3-N3:
    angles: [60, 180, 300]
    frequencies: [1, 2, 1]
  O2-C2:
    angles: [0]
`
	T, err := ReadTable(strings.NewReader(in))
	require.NoError(Te, err)
	assert.Equal(Te, []string{"C3-N3", "O2-C2"}, T.IDs())
	assert.Equal(Te, []float64{1, 2, 1}, T.Frequencies("C3-N3"))
	assert.Nil(Te, T.Ranges("C3-N3"))

	_, err = ReadTable(strings.NewReader("torsions:\n  X:\n    angles: [1, 2]\n    frequencies: [1]\n"))
	assert.Error(Te, err)
	_, err = ReadTable(strings.NewReader("torsions:\n  X:\n    angle: [1, 2]\n"))
	assert.Error(Te, err, "unknown fields are rejected")

	mol := heavyChain(Te, []string{"C", "N", "C"}, []float64{1, 1})
	src := Source{Table: T}
	p, id := src.Profile(mol, 0)
	assert.Equal(Te, "C3-N3", id)
	assert.Len(Te, p.Ranges, 3)
	assert.Equal(Te, [2]float64{45, 75}, p.Ranges[0])
	assert.Equal(Te, []string{"C3(1)-N3(2)", "C3-N3"}, Keys(mol, 0))
}

func TestPredictor(Te *testing.T) {
	//N-methylacetamide: C-C(=O)-N-C
	mol := chem.NewMolecule()
	for _, s := range []string{"C", "C", "O", "N", "C"} {
		mol.AddAtom(s, 0)
	}
	for _, b := range [][3]float64{{0, 1, 1}, {1, 2, 2}, {1, 3, 1}, {3, 4, 1}} {
		_, err := mol.AddBond(int(b[0]), int(b[1]), b[2])
		require.NoError(Te, err)
	}
	_, err := mol.Saturate()
	require.NoError(Te, err)
	p, id := Source{}.Profile(mol, mol.BondBetween(1, 3))
	assert.Empty(Te, id)
	assert.Equal(Te, []float64{180, 0}, p.Angles)
	p, _ = Source{}.Profile(mol, mol.BondBetween(3, 4))
	assert.Len(Te, p.Angles, 6)
	p, _ = Source{}.Profile(butane(Te), 1)
	assert.Equal(Te, []float64{60, 180, 300}, p.Angles)
}
