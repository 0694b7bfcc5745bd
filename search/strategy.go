/*
 * strategy.go, part of goConf.
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

package search

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/google/btree"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/rmera/goconf/torsion"
)

// maxTries is the number of draws a random policy makes before giving up on
// finding a new torsion set.
const maxTries = 64

// rampStart is the fraction of the budget after which the collision tolerance
// starts to grow.
const rampStart = 0.2

const btreeDegree = 16

// Space describes what is searched: the likelihoods of the angles of each rotatable bond,
// those of the conformers of each fragment, and the fragments joined by each bond.
type Space struct {
	Torsions   [][]float64
	Conformers [][]float64
	Links      [][2]int
}

// Positions returns the number of indexes in a torsion set.
func (S *Space) Positions() int { return len(S.Torsions) + len(S.Conformers) }

// Weights returns the likelihoods of the alternatives at position p.
func (S *Space) Weights(p int) []float64 {
	if p < len(S.Torsions) {
		return S.Torsions[p]
	}
	return S.Conformers[p-len(S.Torsions)]
}

// Counts returns the number of alternatives at each position.
func (S *Space) Counts() []int {
	ret := make([]int, S.Positions())
	for p := range ret {
		ret[p] = len(S.Weights(p))
	}
	return ret
}

// Permutations returns the number of distinct torsion sets, as a float so it does not overflow.
func (S *Space) Permutations() float64 {
	return lo.Reduce(S.Counts(), func(acc float64, c int, _ int) float64 { return acc * float64(c) }, 1.0)
}

// Likelihood returns the product of the likelihoods of the indexes in idx.
func (S *Space) Likelihood(idx []int) float64 {
	l := 1.0
	for p, i := range idx {
		l *= S.Weights(p)[i]
	}
	return l
}

func (S *Space) validate() error {
	for p := 0; p < S.Positions(); p++ {
		if len(S.Weights(p)) == 0 {
			return errors.Newf("position %d has no alternatives", p)
		}
	}
	if len(S.Links) != len(S.Torsions) {
		return errors.Newf("%d links for %d rotatable bonds", len(S.Links), len(S.Torsions))
	}
	for b, l := range S.Links {
		if l[0] < 0 || l[1] < 0 || l[0] >= len(S.Conformers) || l[1] >= len(S.Conformers) {
			return errors.Newf("rotatable bond %d links missing fragments %v", b, l)
		}
	}
	return nil
}

// Options controls a Strategy.
type Options struct {
	MaxTorsionSets        int     //budget of torsion sets handed out while exploring.
	MaxCollisionTolerance float64 //ceiling of the collision tolerance.
	SecondChoiceBand      float64 //collided sets this close to the lowest intensity are kept as second choices.
	Seed                  uint64  //0 means a random seed.
	Logger                *zap.Logger
}

// DefaultOptions returns the default strategy options.
func DefaultOptions() Options {
	return Options{MaxTorsionSets: 1024, MaxCollisionTolerance: 0.05, SecondChoiceBand: 0.1}
}

type state int

const (
	exploring state = iota
	secondChoice
	exhausted
)

// Strategy hands out torsion sets following a Policy, and learns from the collision
// outcome of each. It is not safe for concurrent use.
type Strategy struct {
	space  *Space
	enc    *Encoder
	graph  *FragmentGraph
	policy Policy
	rules  Rules
	seen   *btree.BTreeG[Bits]
	second []*TorsionSet
	rng    *rand.Rand
	opts   Options
	log    *zap.Logger

	permutations float64
	maxTotal     int
	tried        int
	eliminated   int
	minIntensity float64
	tolerance    float64
	heat         []float64 //cumulative collision intensity per position.
	state        state
}

// NewStrategy returns a strategy searching space with the given policy.
func NewStrategy(space *Space, policy Policy, o Options) (*Strategy, error) {
	if err := space.validate(); err != nil {
		return nil, errors.Wrap(err, "NewStrategy")
	}
	enc, err := NewEncoder(space.Counts())
	if err != nil {
		return nil, errors.Wrap(err, "NewStrategy")
	}
	if policy == nil {
		policy = &LikelySystematic{}
	}
	if o.MaxTorsionSets <= 0 {
		o.MaxTorsionSets = DefaultOptions().MaxTorsionSets
	}
	S := &Strategy{
		space:        space,
		enc:          enc,
		graph:        NewFragmentGraph(len(space.Conformers), space.Links),
		policy:       policy,
		seen:         btree.NewG[Bits](btreeDegree, func(a, b Bits) bool { return a.Less(b) }),
		rng:          torsion.NewRand(o.Seed),
		opts:         o,
		log:          o.Logger,
		permutations: space.Permutations(),
		minIntensity: math.Inf(1),
		heat:         make([]float64, space.Positions()),
	}
	if S.log == nil {
		S.log = zap.NewNop()
	}
	S.maxTotal = o.MaxTorsionSets
	if S.permutations < float64(S.maxTotal) {
		S.maxTotal = int(S.permutations)
	}
	return S, nil
}

// Next returns a torsion set never returned before, or nil if the search is exhausted.
// previous is the last set returned, with its collision outcome recorded (see
// TorsionSet.SetCollisions), or nil. A returned set that is already Evaluated is a second
// choice: a set that collided before, but mildly enough to be used.
func (S *Strategy) Next(previous *TorsionSet) *TorsionSet {
	if previous != nil && previous.Evaluated {
		S.minIntensity = math.Min(S.minIntensity, previous.Intensity)
		if previous.Intensity > S.tolerance && !previous.Used {
			S.learn(previous)
			if previous.Intensity <= S.minIntensity+S.opts.SecondChoiceBand {
				S.queue(previous)
			}
		}
	}
	S.updateTolerance()
	if S.state == exploring {
		if len(S.second) > 0 && S.second[0].Intensity <= S.tolerance {
			return S.pop()
		}
		if S.tried < S.maxTotal && float64(S.seen.Len()) < S.permutations {
			if T := S.policy.nextCandidate(S, previous); T != nil {
				S.tried++
				return T
			}
		}
		S.log.Debug("exploration finished", zap.Int("tried", S.tried), zap.Int("eliminated", S.eliminated),
			zap.Int("rules", S.rules.Len()), zap.Int("second choices", len(S.second)))
		S.state = secondChoice
	}
	if S.state == secondChoice {
		if len(S.second) > 0 {
			return S.pop()
		}
		S.state = exhausted
	}
	return nil
}

// learn records an elimination rule for every pair of fragments that collided
// above the tolerance in T. The rule spans the bonds and fragments on the shortest
// path between the two fragments.
func (S *Strategy) learn(T *TorsionSet) {
	nt := len(S.space.Torsions)
	for f1 := range T.Collisions {
		for f2 := f1 + 1; f2 < len(T.Collisions[f1]); f2++ {
			v := T.Collisions[f1][f2]
			if v <= S.tolerance {
				continue
			}
			frags, bonds := S.graph.Path(f1, f2)
			if len(bonds) == 0 {
				continue
			}
			positions := append(bonds, lo.Map(frags, func(f int, _ int) int { return nt + f })...)
			mask := S.enc.Mask(positions)
			r := Rule{Mask: mask, Data: T.bits.And(mask), Intensity: v}
			if S.rules.Add(r) {
				S.log.Debug("elimination rule", zap.Int("fragment1", f1), zap.Int("fragment2", f2),
					zap.Ints("bonds", bonds), zap.Float64("intensity", v))
			}
			for _, p := range positions {
				S.heat[p] += v
			}
		}
	}
}

// queue adds T to the second choices, kept sorted by intensity.
func (S *Strategy) queue(T *TorsionSet) {
	i := sort.Search(len(S.second), func(i int) bool { return S.second[i].Intensity > T.Intensity })
	S.second = append(S.second, nil)
	copy(S.second[i+1:], S.second[i:])
	S.second[i] = T
}

func (S *Strategy) pop() *TorsionSet {
	T := S.second[0]
	S.second = S.second[1:]
	return T
}

// updateTolerance keeps the tolerance at 0 for the first part of the budget, and
// then raises it linearly up to its ceiling.
func (S *Strategy) updateTolerance() {
	if S.maxTotal == 0 {
		return
	}
	start := rampStart * float64(S.maxTotal)
	if float64(S.tried) <= start {
		S.tolerance = 0
		return
	}
	f := (float64(S.tried) - start) / (float64(S.maxTotal) - start)
	S.tolerance = S.opts.MaxCollisionTolerance * math.Min(f, 1)
}

// offer builds the torsion set for idx, unless it was produced before or an
// elimination rule discards it, in which case it returns nil. Either way the set
// is not produced again.
func (S *Strategy) offer(idx []int) *TorsionSet {
	b := S.enc.Encode(idx)
	if S.seen.Has(b) {
		return nil
	}
	S.seen.ReplaceOrInsert(b)
	if _, ok := S.rules.Match(b, S.tolerance); ok {
		S.eliminated++
		return nil
	}
	return &TorsionSet{
		Indexes:    append([]int(nil), idx...),
		Likelihood: S.space.Likelihood(idx),
		bonds:      len(S.space.Torsions),
		bits:       b,
	}
}

// Tolerance returns the collision intensity currently accepted.
func (S *Strategy) Tolerance() float64 { return S.tolerance }

// Tried returns the number of new torsion sets handed out.
func (S *Strategy) Tried() int { return S.tried }

// Eliminated returns the number of candidates discarded by elimination rules.
func (S *Strategy) Eliminated() int { return S.eliminated }

// MaxTotal returns the budget: the smaller of MaxTorsionSets and the number of permutations.
func (S *Strategy) MaxTotal() int { return S.maxTotal }

// Permutations returns the size of the search space.
func (S *Strategy) Permutations() float64 { return S.permutations }

// Rules returns a copy of the elimination rules learned so far.
func (S *Strategy) Rules() []Rule { return S.rules.All() }

// Exhausted returns true once Next has returned nil.
func (S *Strategy) Exhausted() bool { return S.state == exhausted }

// Encoder returns the encoder used for the torsion sets.
func (S *Strategy) Encoder() *Encoder { return S.enc }

// Graph returns the fragment graph.
func (S *Strategy) Graph() *FragmentGraph { return S.graph }
