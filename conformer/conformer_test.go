package conformer

import (
	"context"
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	chem "github.com/rmera/goconf"
	"github.com/rmera/goconf/fragment"
	"github.com/rmera/goconf/torsion"
	v3 "github.com/rmera/goconf/v3"
)

// haloChain returns Cl-(CH2)n-F, without hydrogens, in an all-anti planar zigzag.
// The carbons are atoms 0 to n-1, Cl is atom n and F is atom n+1.
func haloChain(Te *testing.T, n int) *chem.Molecule {
	mol := chem.NewMolecule()
	pos := func(i int) r3.Vec {
		return r3.Vec{X: 1.26 * float64(i), Y: 0.89 * math.Abs(float64(i%2))}
	}
	var vecs []r3.Vec
	for i := 0; i < n; i++ {
		mol.AddAtom("C", 0)
		vecs = append(vecs, pos(i))
		if i > 0 {
			_, err := mol.AddBond(i-1, i, 1)
			require.NoError(Te, err)
		}
	}
	cl := mol.AddAtom("Cl", 0)
	vecs = append(vecs, r3.Add(pos(0), r3.Scale(1.78/1.54, r3.Sub(pos(-1), pos(0)))))
	f := mol.AddAtom("F", 0)
	vecs = append(vecs, r3.Add(pos(n-1), r3.Scale(1.38/1.54, r3.Sub(pos(n), pos(n-1)))))
	_, err := mol.AddBond(0, cl, 1)
	require.NoError(Te, err)
	_, err = mol.AddBond(n-1, f, 1)
	require.NoError(Te, err)
	mol.Coords = []*v3.Matrix{v3.FromVecs(vecs)}
	return mol
}

func benzene(Te *testing.T) *chem.Molecule {
	mol := chem.NewMolecule()
	var vecs []r3.Vec
	for i := 0; i < 6; i++ {
		mol.AddAtom("C", 0)
		phi := float64(i) * math.Pi / 3
		vecs = append(vecs, r3.Vec{X: 1.39 * math.Cos(phi), Y: 1.39 * math.Sin(phi)})
		if i > 0 {
			_, err := mol.AddBond(i-1, i, 1.5)
			require.NoError(Te, err)
		}
	}
	_, err := mol.AddBond(5, 0, 1.5)
	require.NoError(Te, err)
	mol.Coords = []*v3.Matrix{v3.FromVecs(vecs)}
	return mol
}

// testOptions returns options with a table that gives every sp3 C-C bond
// the angles 60, 180 and 300, with frequencies 0.3, 0.5 and 0.2, and every
// sp2-sp3 C-C bond the angles 0, 120 and 240, with the same frequencies.
func testOptions(Te *testing.T) *Options {
	table := torsion.NewMapTable()
	require.NoError(Te, table.Add("C3-C3", torsion.Profile{Angles: []float64{60, 180, 300}, Frequencies: []float64{0.3, 0.5, 0.2}}))
	require.NoError(Te, table.Add("C2-C3", torsion.Profile{Angles: []float64{0, 120, 240}, Frequencies: []float64{0.3, 0.5, 0.2}}))
	o := DefaultOptions()
	o.Table(table)
	return o
}

func drain(Te *testing.T, G *Generator) []*Conformer {
	var ret []*Conformer
	for i := 0; i < 100; i++ {
		c, err := G.NextConformer(context.Background())
		require.NoError(Te, err)
		if c == nil {
			return ret
		}
		ret = append(ret, c)
	}
	Te.Fatal("the generator never ran out of conformers")
	return nil
}

func TestRigid(Te *testing.T) {
	mol := benzene(Te)
	G := NewGenerator(nil, nil)
	_, err := G.NextConformer(context.Background())
	assert.True(Te, errors.Is(err, ErrNotInitialized))
	require.NoError(Te, G.Initialize(context.Background(), mol))
	assert.Equal(Te, 12, mol.Len())
	assert.Equal(Te, 0, G.RotatableBondCount())
	assert.Equal(Te, 1, G.PotentialConformerCount())
	c, err := G.NextConformer(context.Background())
	require.NoError(Te, err)
	require.NotNil(Te, c)
	assert.True(Te, c.Relaxed)
	assert.Equal(Te, 12, c.Coords.NVecs())
	assert.InDelta(Te, 1.39, r3.Norm(c.Coords.Vec(0)), 1e-9)
	assert.Equal(Te, 1, G.ConformerCount())
	c, err = G.NextConformer(context.Background())
	require.NoError(Te, err)
	assert.Nil(Te, c)
}

func TestSingleBond(Te *testing.T) {
	mol := haloChain(Te, 2)
	G := NewGenerator(testOptions(Te), nil)
	require.NoError(Te, G.Initialize(context.Background(), mol))
	require.Equal(Te, 1, G.RotatableBondCount())
	assert.Equal(Te, 2, G.FragmentCount())
	assert.Equal(Te, 3, G.PotentialConformerCount())
	R := G.RotatableBond(0)
	assert.Equal(Te, [4]int{2, 0, 1, 3}, R.Atoms)
	confs := drain(Te, G)
	require.Len(Te, confs, 3)
	want := []float64{180, 60, 300}
	contrib := []float64{0.5, 0.3, 0.2}
	for i, c := range confs {
		v := c.Coords.Vecs()
		assert.InDelta(Te, want[i], chem.NormalizeDeg(chem.Rad2Deg(chem.Dihedral(v[2], v[0], v[1], v[3]))), 1e-6)
		require.Len(Te, c.Angles, 1)
		assert.InDelta(Te, want[i], c.Angles[0], 1e-6)
		assert.Zero(Te, c.Intensity)
		assert.InDelta(Te, contrib[i], c.Contribution, 1e-9)
		assert.False(Te, c.Relaxed)
	}
	assert.InDelta(Te, 0.2, G.PreviousConformerContribution(), 1e-9)
	assert.Equal(Te, 3, G.ConformerCount())
	assert.Equal(Te, 3, G.TorsionSetCount())
	//bond lengths survive the assembly.
	v := confs[1].Coords.Vecs()
	cc := math.Hypot(1.26, 0.89)
	assert.InDelta(Te, cc, r3.Norm(r3.Sub(v[0], v[1])), 1e-6)
	assert.InDelta(Te, cc*1.78/1.54, r3.Norm(r3.Sub(v[0], v[2])), 1e-6)
}

// crowded returns a generator for Cl-CH2-CH2-CH2-F with vdW radii so inflated
// that the halogens collide at every torsion.
func crowded(Te *testing.T, policy string, seed uint64) *Generator {
	o := testOptions(Te)
	o.HeavyTolerance(3)
	o.Policy(policy)
	o.Seed(seed)
	G := NewGenerator(o, nil)
	require.NoError(Te, G.Initialize(context.Background(), haloChain(Te, 3)))
	return G
}

func TestAllCollide(Te *testing.T) {
	G := crowded(Te, "systematic", 0)
	require.Equal(Te, 2, G.RotatableBondCount())
	c, err := G.NextConformer(context.Background())
	require.NoError(Te, err)
	require.NotNil(Te, c)
	assert.Equal(Te, 9, G.TorsionSetCount())
	assert.Greater(Te, c.Intensity, 0.0)
	prior := 1.0
	for b, i := range c.Torsions {
		prior *= G.RotatableBond(b).Frequency(i)
	}
	assert.InDelta(Te, prior*math.Exp(-c.Intensity), c.Contribution, 1e-9)
	assert.Less(Te, c.Contribution, 0.5)
	rest := drain(Te, G)
	assert.LessOrEqual(Te, len(rest), 8)
	seen := map[[2]int]bool{{c.Torsions[0], c.Torsions[1]}: true}
	for _, r := range rest {
		assert.GreaterOrEqual(Te, r.Intensity, c.Intensity)
		k := [2]int{r.Torsions[0], r.Torsions[1]}
		assert.False(Te, seen[k], "torsions %v returned twice", k)
		seen[k] = true
	}
}

func TestSingleBondCollision(Te *testing.T) {
	//allyl fluoride, CH2=CH-CH2F
	mol := chem.NewMolecule()
	pos := func(i int) r3.Vec {
		return r3.Vec{X: 1.26 * float64(i), Y: 0.89 * float64(i%2)}
	}
	for i := 0; i < 3; i++ {
		mol.AddAtom("C", 0)
	}
	f := mol.AddAtom("F", 0)
	for _, b := range [][3]int{{0, 1, 2}, {1, 2, 1}, {2, f, 1}} {
		_, err := mol.AddBond(b[0], b[1], float64(b[2]))
		require.NoError(Te, err)
	}
	mol.Coords = []*v3.Matrix{v3.FromVecs([]r3.Vec{pos(0), pos(1), pos(2),
		r3.Add(pos(2), r3.Scale(1.38/1.54, r3.Sub(pos(3), pos(2))))})}
	o := testOptions(Te)
	o.HeavyTolerance(3) //the vinyl hydrogens now reach the fluorine at every angle
	G := NewGenerator(o, nil)
	require.NoError(Te, G.Initialize(context.Background(), mol))
	require.Equal(Te, 1, G.RotatableBondCount())
	c, err := G.NextConformer(context.Background())
	require.NoError(Te, err)
	require.NotNil(Te, c)
	assert.Greater(Te, c.Intensity, 0.0)
	assert.LessOrEqual(Te, G.TorsionSetCount(), 3)
	assert.Less(Te, G.PreviousConformerContribution(), 0.5)
	assert.InDelta(Te, G.RotatableBond(0).Frequency(c.Torsions[0])*math.Exp(-c.Intensity), c.Contribution, 1e-9)
}

// withTorsions returns the coordinates of the base conformer with the given torsion indexes.
func withTorsions(G *Generator, tors []int) []r3.Vec {
	B := G.baseConformer(make([]int, G.FragmentCount()))
	vecs := append([]r3.Vec(nil), B.Coords...)
	for _, b := range B.Order() {
		G.bonds[b].SetTorsion(vecs, B.Angle(b, tors[b]))
	}
	return vecs
}

func TestFixCollisions(Te *testing.T) {
	G := crowded(Te, "systematic", 0)
	require.Equal(Te, 2, G.RotatableBondCount())
	f1, f2 := G.atomFrag[3], G.atomFrag[4]
	improved := 0
	for i := 0; i < G.RotatableBond(0).TorsionCount(); i++ {
		for j := 0; j < G.RotatableBond(1).TorsionCount(); j++ {
			vecs := withTorsions(G, []int{i, j})
			orig := append([]r3.Vec(nil), vecs...)
			total, m := G.checkCollision(vecs)
			require.NotNil(Te, m, "torsions %d %d", i, j)
			fixed, t2, m2 := G.tryFixCollisions(vecs, total, m)
			assert.Equal(Te, orig, vecs, "the input coordinates are not modified")
			assert.LessOrEqual(Te, t2, total, "torsions %d %d", i, j)
			check, _ := G.checkCollision(fixed)
			assert.InDelta(Te, check, t2, 1e-12)
			if pair(m2, f1, f2) < pair(m, f1, f2) {
				improved++
				continue
			}
			//no improvement means nothing moved.
			assert.Equal(Te, orig, fixed, "torsions %d %d", i, j)
			assert.Equal(Te, total, t2)
		}
	}
	assert.Positive(Te, improved)

	//when every nudge would leave the total above the allowed one, nothing changes.
	vecs := withTorsions(G, []int{0, 0})
	total, m := G.checkCollision(vecs)
	require.Positive(Te, total)
	fixed, t2, m2 := G.tryFixCollisions(vecs, 0, m)
	assert.Equal(Te, vecs, fixed)
	assert.Zero(Te, t2)
	assert.Equal(Te, m, m2)
}

func TestCollisionMatrix(Te *testing.T) {
	G := crowded(Te, "systematic", 0)
	B := G.baseConformer(make([]int, G.FragmentCount()))
	total, m := G.checkCollision(B.Coords)
	require.NotNil(Te, m)
	sum := 0.0
	for i := range m {
		assert.Zero(Te, m[i][i])
		for j := range m {
			assert.Equal(Te, m[i][j], m[j][i])
			if j > i {
				sum += m[i][j]
			}
		}
	}
	assert.InDelta(Te, total, sum, 1e-12)
	//only the two ends collide.
	assert.Greater(Te, m[G.atomFrag[3]][G.atomFrag[4]], 0.0)
	assert.Zero(Te, m[G.atomFrag[0]][G.atomFrag[1]])
	for b := 0; b < G.RotatableBondCount(); b++ {
		assert.InDelta(Te, 1, floats.Sum(B.Likelihoods(b)), 1e-9)
		assert.InDelta(Te, 1, floats.Sum(G.RotatableBond(b).Likelihoods()), 1e-9)
	}
}

func TestDeterminism(Te *testing.T) {
	run := func() [][]int {
		var ret [][]int
		for _, c := range drain(Te, crowded(Te, "adaptive", 99)) {
			ret = append(ret, c.Torsions)
		}
		return ret
	}
	first := run()
	require.NotEmpty(Te, first)
	assert.Equal(Te, first, run())
}

func TestCancel(Te *testing.T) {
	G := NewGenerator(testOptions(Te), nil)
	require.NoError(Te, G.Initialize(context.Background(), haloChain(Te, 2)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, err := G.NextConformer(ctx)
	require.NoError(Te, err)
	assert.Nil(Te, c)

	err = NewGenerator(testOptions(Te), nil).Initialize(ctx, haloChain(Te, 2))
	require.Error(Te, err)
	assert.True(Te, errors.Is(err, context.Canceled))
	assert.False(Te, errors.Is(err, fragment.ErrFragmentSeed))
}

func TestSeparate(Te *testing.T) {
	coords := v3.FromVecs([]r3.Vec{{}, {X: 2}, {X: 10, Y: 10, Z: 10}})
	separate(coords, [][]int{{0, 1}, {2}}, 5)
	assert.Equal(Te, r3.Vec{X: -1}, coords.Vec(0))
	assert.Equal(Te, r3.Vec{X: 1}, coords.Vec(1))
	assert.Equal(Te, r3.Vec{X: 6}, coords.Vec(2))

	mol := haloChain(Te, 2)
	at := mol.AddAtom("C", 0)
	c := v3.Zeros(mol.Len())
	c.SomeVecs(mol.Coords[0], []int{0, 1, 2, 3})
	c.SetVec(at, r3.Vec{X: 0.5, Y: 0.5, Z: 0.5})
	mol.Coords[0] = c
	G := NewGenerator(testOptions(Te), nil)
	require.NoError(Te, G.Initialize(context.Background(), mol))
	require.Len(Te, G.components, 2)
	conf, err := G.NextConformer(context.Background())
	require.NoError(Te, err)
	require.NotNil(Te, conf)
	assert.Zero(Te, conf.Intensity)
	parts := make([]*v3.Matrix, 2)
	for k, comp := range G.components {
		parts[k] = v3.Zeros(len(comp))
		parts[k].SomeVecs(conf.Coords, comp)
	}
	_, max0 := parts[0].Bounds()
	min1, _ := parts[1].Bounds()
	assert.InDelta(Te, G.opts.Clearance(), min1.X-max0.X, 1e-9)
	assert.InDelta(Te, 0, r3.Norm(parts[0].Centroid()), 1e-9)
}

func TestBatch(Te *testing.T) {
	bad := chem.NewMolecule()
	bad.AddAtom("C", 0)
	for i := 0; i < 5; i++ {
		f := bad.AddAtom("F", 0)
		_, err := bad.AddBond(0, f, 1)
		require.NoError(Te, err)
	}
	mols := []*chem.Molecule{haloChain(Te, 2), benzene(Te), bad}
	res := Batch(context.Background(), mols, 2, testOptions(Te), nil, 2)
	require.Len(Te, res, 3)
	require.NoError(Te, res[0].Err)
	assert.Len(Te, res[0].Conformers, 2)
	require.NoError(Te, res[1].Err)
	assert.Len(Te, res[1].Conformers, 1)
	require.Error(Te, res[2].Err)
	assert.True(Te, errors.Is(res[2].Err, chem.ErrValence))
	assert.Empty(Te, res[2].Conformers)
}
