/*
 * generator.go, part of goConf.
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

// Package conformer generates collision-free 3D conformers of small molecules. A
// Generator cuts the molecule at its rotatable bonds into rigid fragments, assembles
// the fragments into base conformers and searches the torsion sets (an angle per
// rotatable bond and a conformer per fragment) for combinations without collisions.
package conformer

import (
	"context"
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	chem "github.com/rmera/goconf"
	"github.com/rmera/goconf/fragment"
	"github.com/rmera/goconf/relax"
	"github.com/rmera/goconf/search"
	"github.com/rmera/goconf/torsion"
	v3 "github.com/rmera/goconf/v3"
)

// ErrNotInitialized is returned by NextConformer when the generator was not
// successfully initialized.
var ErrNotInitialized = errors.New("conformer: generator not initialized")

// PanicMsg is the type of the messages of the panics in this package.
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }

const ErrExtendedAtom PanicMsg = "conformer: Bond atom missing from the extended atoms of a fragment"

type state int

const (
	uninitialized state = iota
	rigid               //no rotatable bonds, conformers come from the relaxation engine
	flexible
	exhausted
)

// Conformer is a generated geometry.
type Conformer struct {
	Coords *v3.Matrix
	// Torsions and FragmentConformers are the indexes of the torsion set the conformer
	// comes from. Both are nil for conformers produced by the relaxation engine.
	Torsions           []int
	FragmentConformers []int
	// Angles are the torsion angles, in degrees, of the rotatable bonds.
	Angles       []float64
	Intensity    float64 //collision intensity
	Contribution float64 //relative likelihood weight
	Relaxed      bool    //produced by the relaxation engine
}

// candidate is a torsion set with its materialized coordinates.
type candidate struct {
	set       *search.TorsionSet
	vecs      []r3.Vec
	intensity float64
}

// Generator produces conformers for one molecule. It is not safe for concurrent use,
// but several generators can share a fragment cache.
type Generator struct {
	opts    *Options
	cache   *fragment.Cache
	log     *zap.Logger
	session string

	mol        *chem.Molecule
	components [][]int
	atomComp   []int
	atomFrag   []int
	radius     []float64 //tolerance-scaled vdW radii
	bonds      []*torsion.RotatableBond
	frags      []*fragment.Fragment
	exempt     *bitset.BitSet
	strategy   *search.Strategy
	base       map[string]*BaseConformer

	state        state
	run          relax.Run
	previous     *search.TorsionSet
	pending      *search.TorsionSet
	best         *candidate
	fellBack     bool
	count        int
	contribution float64
}

// NewGenerator returns a generator with the given options (DefaultOptions if nil) and
// fragment cache, which can be nil.
func NewGenerator(opts *Options, cache *fragment.Cache) *Generator {
	if opts == nil {
		opts = DefaultOptions()
	}
	G := &Generator{opts: opts, cache: cache, session: uuid.NewString()}
	G.log = opts.Logger().With(zap.String("session", G.session))
	return G
}

// Session returns the id the generator tags its logs with.
func (G *Generator) Session() string { return G.session }

// Molecule returns the molecule being processed, with the hydrogens added by Initialize.
func (G *Generator) Molecule() *chem.Molecule { return G.mol }

// Initialize prepares the generation of conformers for mol. It adds the missing
// hydrogens to mol, checks the valences, and builds the rigid fragments and the
// rotatable bonds. Errors are structural: the molecule can't be processed. Their
// causes include chem.ErrValence and fragment.ErrFragmentSeed. If ctx is cancelled,
// the error wraps ctx.Err() and is not structural.
func (G *Generator) Initialize(ctx context.Context, mol *chem.Molecule) error {
	*G = Generator{opts: G.opts, cache: G.cache, session: G.session, log: G.log}
	added, err := mol.Saturate()
	if err != nil {
		return errors.Wrap(err, "Initialize: adding hydrogens")
	}
	if err := mol.CheckValence(); err != nil {
		return errors.Wrap(err, "Initialize")
	}
	mol.FindRings()
	G.mol = mol
	G.components = mol.Components(nil)
	G.atomComp = make([]int, mol.Len())
	for c, comp := range G.components {
		for _, a := range comp {
			G.atomComp[a] = c
		}
	}
	G.radius = make([]float64, mol.Len())
	for i, a := range mol.Atoms {
		tol := G.opts.HeavyTolerance()
		if a.IsHydrogen() {
			tol = G.opts.HydrogenTolerance()
		}
		G.radius[i] = a.VdwRadius() * tol
	}
	rot := torsion.Find(mol)
	if len(rot) == 0 {
		G.state = rigid
		G.log.Info("rigid molecule, using the relaxation engine", zap.Int("atoms", mol.Len()), zap.Int("added hydrogens", added))
		return nil
	}
	if err := G.buildFragments(ctx, rot); err != nil {
		return err
	}
	if err := G.buildBonds(rot); err != nil {
		return err
	}
	G.buildExemptions()
	G.base = make(map[string]*BaseConformer)
	first := G.baseConformer(make([]int, len(G.frags)))
	space := &search.Space{
		Torsions:   make([][]float64, len(G.bonds)),
		Conformers: make([][]float64, len(G.frags)),
		Links:      make([][2]int, len(G.bonds)),
	}
	for b, R := range G.bonds {
		if err := R.SetLikelihoods(first.Likelihoods(b)); err != nil {
			return errors.Wrapf(err, "Initialize: bond %d", R.Bond)
		}
		space.Torsions[b] = R.Likelihoods()
		space.Links[b] = R.Fragments
	}
	for f, F := range G.frags {
		l := make([]float64, F.ConformerCount())
		for i := range l {
			l[i] = F.Likelihood(i)
		}
		space.Conformers[f] = l
	}
	policy, err := search.NewPolicy(G.opts.Policy())
	if err != nil {
		return errors.Wrap(err, "Initialize")
	}
	G.strategy, err = search.NewStrategy(space, policy, search.Options{
		MaxTorsionSets:        G.opts.MaxTorsionSets(),
		MaxCollisionTolerance: G.opts.MaxCollisionTolerance(),
		SecondChoiceBand:      G.opts.SecondChoiceBand(),
		Seed:                  G.opts.Seed(),
		Logger:                G.log,
	})
	if err != nil {
		return errors.Wrap(err, "Initialize")
	}
	G.state = flexible
	G.log.Info("initialized", zap.Int("atoms", mol.Len()), zap.Int("added hydrogens", added),
		zap.Int("rotatable bonds", len(G.bonds)), zap.Int("fragments", len(G.frags)),
		zap.Float64("permutations", G.strategy.Permutations()), zap.Stringer("policy", policy))
	return nil
}

func (G *Generator) buildFragments(ctx context.Context, rot []int) error {
	cores := fragment.Decompose(G.mol, rot)
	G.atomFrag = make([]int, G.mol.Len())
	prov := &fragment.Provider{
		Engine:        G.opts.Engine(),
		Minimizer:     G.opts.Minimizer(),
		Cache:         G.cache,
		MaxConformers: G.opts.MaxFragmentConformers(),
		Seed:          G.opts.Seed(),
		Logger:        G.log,
	}
	G.frags = make([]*fragment.Fragment, len(cores))
	for f, core := range cores {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "Initialize")
		}
		for _, a := range core {
			G.atomFrag[a] = f
		}
		F, err := prov.Create(ctx, G.mol, core, rot)
		if err != nil {
			return errors.Wrapf(err, "Initialize: fragment %d", f)
		}
		G.frags[f] = F
	}
	return nil
}

func (G *Generator) buildBonds(rot []int) error {
	attached := make([]int, len(G.frags))
	for _, b := range rot {
		bond := G.mol.Bond(b)
		attached[G.atomFrag[bond.At1]]++
		attached[G.atomFrag[bond.At2]]++
	}
	src := torsion.Source{Table: G.opts.Table(), Predictor: G.opts.Predictor()}
	G.bonds = make([]*torsion.RotatableBond, 0, len(rot))
	for _, b := range rot {
		bond := G.mol.Bond(b)
		f1, f2 := G.atomFrag[bond.At1], G.atomFrag[bond.At2]
		prof, id := src.Profile(G.mol, b)
		R, err := torsion.New(G.mol, b, prof, id, [2]bool{attached[f1] == 1, attached[f2] == 1})
		if err != nil {
			return errors.Wrap(err, "Initialize")
		}
		R.Fragments = [2]int{f1, f2}
		G.log.Debug("rotatable bond", zap.Stringer("bond", R), zap.String("table id", id), zap.Int("fold", R.Fold()))
		G.bonds = append(G.bonds, R)
	}
	return nil
}

// NextConformer returns a new conformer, or nil when no more can be produced.
// Cancelling ctx stops the search; the best conformer found so far, if it was
// not returned yet, is returned instead.
func (G *Generator) NextConformer(ctx context.Context) (*Conformer, error) {
	switch G.state {
	case uninitialized:
		return nil, ErrNotInitialized
	case exhausted:
		return nil, nil
	case rigid:
		return G.fromEngine(ctx, false)
	}
	for {
		if ctx.Err() != nil {
			G.log.Info("cancelled", zap.Int("conformers", G.count), zap.Int("torsion sets", G.strategy.Tried()))
			return G.deliverBest(), nil
		}
		T := G.pending
		G.pending = nil
		if T == nil {
			T = G.strategy.Next(G.previous)
			G.previous = nil
		}
		if (T == nil || T.Evaluated) && G.opts.RelaxFallback() && !G.fellBack {
			G.fellBack = true
			G.pending = T
			c, err := G.fromEngine(ctx, true)
			if err == nil && c != nil {
				return c, nil
			}
			G.log.Warn("relaxation fallback failed", zap.Error(err))
			continue
		}
		if T == nil {
			G.state = exhausted
			G.log.Info("search exhausted", zap.Int("conformers", G.count), zap.Int("torsion sets", G.strategy.Tried()),
				zap.Int("eliminated", G.strategy.Eliminated()), zap.Int("rules", len(G.strategy.Rules())))
			return G.deliverBest(), nil
		}
		vecs := G.materialize(T)
		intensity, m := G.checkCollision(vecs)
		if intensity > 0 {
			vecs, intensity, m = G.tryFixCollisions(vecs, intensity, m)
		}
		if T.Evaluated {
			G.log.Debug("second choice", zap.Stringer("set", T))
			return G.deliver(T, vecs, intensity), nil
		}
		T.SetCollisions(intensity, m)
		G.previous = T
		if G.best == nil || intensity < G.best.intensity {
			G.best = &candidate{set: T, vecs: vecs, intensity: intensity}
		}
		if intensity <= G.strategy.Tolerance() {
			return G.deliver(T, vecs, intensity), nil
		}
		G.log.Debug("collision", zap.Stringer("set", T), zap.Float64("tolerance", G.strategy.Tolerance()))
	}
}

// materialize returns the coordinates for T: its base conformer with every
// rotatable bond set to the angle T chooses.
func (G *Generator) materialize(T *search.TorsionSet) []r3.Vec {
	B := G.baseConformer(T.Conformers())
	vecs := append([]r3.Vec(nil), B.Coords...)
	tors := T.Torsions()
	for _, b := range B.Order() {
		G.bonds[b].SetTorsion(vecs, B.Angle(b, tors[b]))
	}
	return vecs
}

func (G *Generator) deliver(T *search.TorsionSet, vecs []r3.Vec, intensity float64) *Conformer {
	T.Used = true
	c := 1.0
	for b, i := range T.Torsions() {
		c *= G.bonds[b].Frequency(i)
	}
	for f, i := range T.Conformers() {
		c *= G.frags[f].Likelihood(i)
	}
	G.contribution = c * math.Exp(-intensity)
	G.count++
	coords := v3.FromVecs(vecs)
	separate(coords, G.components, G.opts.Clearance())
	return &Conformer{
		Coords:             coords,
		Angles:             G.angles(vecs),
		Torsions:           append([]int(nil), T.Torsions()...),
		FragmentConformers: append([]int(nil), T.Conformers()...),
		Intensity:          intensity,
		Contribution:       G.contribution,
	}
}

func (G *Generator) angles(vecs []r3.Vec) []float64 {
	ret := make([]float64, len(G.bonds))
	for b, R := range G.bonds {
		ret[b] = R.Dihedral(vecs)
	}
	return ret
}

// deliverBest returns the least colliding conformer seen, unless it was already returned.
func (G *Generator) deliverBest() *Conformer {
	if G.best == nil || G.best.set.Used {
		return nil
	}
	return G.deliver(G.best.set, G.best.vecs, G.best.intensity)
}

// fromEngine returns the next conformer of the relaxation engine, for the whole molecule.
func (G *Generator) fromEngine(ctx context.Context, fallback bool) (*Conformer, error) {
	if G.run == nil {
		n := G.opts.MaxTorsionSets()
		if fallback {
			n = 1
		}
		run, err := G.opts.Engine().Start(ctx, G.mol, G.opts.Seed(), n)
		if err != nil {
			if !fallback {
				G.state = exhausted
			}
			return nil, errors.Wrap(err, "NextConformer: relaxation engine")
		}
		G.run = run
	}
	coords, goodness, ok := G.run.Next(ctx)
	if fallback {
		G.run = nil
	}
	if !ok {
		if !fallback && ctx.Err() == nil {
			G.state = exhausted
		}
		return nil, nil
	}
	c := &Conformer{Coords: coords, Relaxed: true, Contribution: goodness}
	if fallback {
		vecs := coords.Vecs()
		c.Angles = G.angles(vecs)
		c.Intensity, _ = G.checkCollision(vecs)
		c.Contribution = goodness * math.Exp(-c.Intensity)
	}
	separate(coords, G.components, G.opts.Clearance())
	G.contribution = c.Contribution
	G.count++
	return c, nil
}

// ConformerCount returns the number of conformers returned so far.
func (G *Generator) ConformerCount() int { return G.count }

// PotentialConformerCount returns the number of distinct torsion sets, saturated
// at the largest int. It is 1 for molecules without rotatable bonds.
func (G *Generator) PotentialConformerCount() int {
	if G.strategy == nil {
		if G.state == uninitialized {
			return 0
		}
		return 1
	}
	p := G.strategy.Permutations()
	if p >= math.MaxInt {
		return math.MaxInt
	}
	return int(p)
}

// PreviousConformerContribution returns the relative likelihood weight of the last
// conformer returned: the product of the prior frequencies of its torsions and the
// likelihoods of its fragment conformers, damped by its collision intensity.
func (G *Generator) PreviousConformerContribution() float64 { return G.contribution }

// RotatableBondCount returns the number of rotatable bonds of the molecule.
func (G *Generator) RotatableBondCount() int { return len(G.bonds) }

// TorsionSetCount returns the number of new torsion sets tried so far.
func (G *Generator) TorsionSetCount() int {
	if G.strategy == nil {
		return 0
	}
	return G.strategy.Tried()
}

// RotatableBond returns the i-th rotatable bond.
func (G *Generator) RotatableBond(i int) *torsion.RotatableBond { return G.bonds[i] }

// Fragment returns the i-th rigid fragment.
func (G *Generator) Fragment(i int) *fragment.Fragment { return G.frags[i] }

// FragmentCount returns the number of rigid fragments.
func (G *Generator) FragmentCount() int { return len(G.frags) }
