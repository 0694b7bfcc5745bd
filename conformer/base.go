/*
 * base.go, part of goConf.
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
	"fmt"
	"math"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	chem "github.com/rmera/goconf"
	"github.com/rmera/goconf/torsion"
)

// BaseConformer is the molecule assembled from one choice of conformer per fragment.
// For each rotatable bond it keeps the angle to use for each torsion index (which can
// be moved from the tabulated value to escape collisions between the two fragments the
// bond joins) and the likelihood of each index given those collisions.
type BaseConformer struct {
	Coords      []r3.Vec
	angles      [][]float64
	likelihoods [][]float64
	strain      [][]float64
	order       []int
}

// Angle returns the angle, in degrees, used for torsion index i of rotatable bond b.
func (B *BaseConformer) Angle(b, i int) float64 { return B.angles[b][i] }

// Likelihoods returns the likelihoods of the torsion indexes of rotatable bond b. They add up to 1.
func (B *BaseConformer) Likelihoods(b int) []float64 { return B.likelihoods[b] }

// Strain returns the strain between the two fragments joined by bond b, with torsion index i.
func (B *BaseConformer) Strain(b, i int) float64 { return B.strain[b][i] }

// Order returns the rotatable bonds in the order they were processed.
func (B *BaseConformer) Order() []int { return B.order }

// baseConformer returns the base conformer for the given fragment conformers,
// building it the first time it is requested.
func (G *Generator) baseConformer(conformers []int) *BaseConformer {
	key := fmt.Sprint(conformers)
	if B, ok := G.base[key]; ok {
		return B
	}
	B := G.buildBase(conformers)
	G.base[key] = B
	return B
}

// buildBase assembles the fragments. Bonds are processed from the one with the largest
// moving side to the one with the smallest, among those with exactly one fragment
// already placed. When there is none, a new tree is started by placing, as it
// is, the fragment on the larger side of the next bond.
func (G *Generator) buildBase(conformers []int) *BaseConformer {
	nb := len(G.bonds)
	B := &BaseConformer{
		Coords:      make([]r3.Vec, G.mol.Len()),
		angles:      make([][]float64, nb),
		likelihoods: make([][]float64, nb),
		strain:      make([][]float64, nb),
		order:       make([]int, 0, nb),
	}
	frames := make([][]r3.Vec, len(G.frags)) //core and extended atom positions, nil if not placed
	bySide := make([]int, nb)
	for i := range bySide {
		bySide[i] = i
	}
	sort.SliceStable(bySide, func(i, j int) bool {
		return len(G.bonds[bySide[i]].Smaller()) > len(G.bonds[bySide[j]].Smaller())
	})
	done := bitset.New(uint(nb))
	for len(B.order) < nb {
		next := -1
		for _, b := range bySide {
			f := G.bonds[b].Fragments
			if !done.Test(uint(b)) && (frames[f[0]] == nil) != (frames[f[1]] == nil) {
				next = b
				break
			}
		}
		if next < 0 {
			for _, b := range bySide {
				if !done.Test(uint(b)) {
					next = b
					break
				}
			}
			R := G.bonds[next]
			root := R.Fragments[1]
			if R.RotatesA2() {
				root = R.Fragments[0]
			}
			frames[root] = G.frags[root].Conformer(conformers[root]).Vecs()
		}
		G.attach(B, frames, conformers, next)
		done.Set(uint(next))
		B.order = append(B.order, next)
	}
	for f, F := range G.frags {
		if frames[f] == nil {
			frames[f] = F.Conformer(conformers[f]).Vecs()
		}
		for i, a := range F.Core {
			B.Coords[a] = frames[f][i]
		}
	}
	return B
}

// bondGeometry gives access to the atoms of a rotatable bond while its
// fragments are being assembled.
type bondGeometry struct {
	G      *Generator
	R      *torsion.RotatableBond
	frames [][]r3.Vec
	moving int //the fragment being attached
}

func (g bondGeometry) pos(k int) r3.Vec {
	f := g.R.Fragments[k/2]
	i, _ := g.G.frags[f].Local(g.R.Atoms[k])
	return g.frames[f][i]
}

// dihedral returns the current torsion angle in degrees.
func (g bondGeometry) dihedral() float64 {
	return chem.NormalizeDeg(chem.Rad2Deg(chem.Dihedral(g.pos(0), g.pos(1), g.pos(2), g.pos(3))))
}

// set rotates the moving fragment so the torsion becomes angle.
func (g bondGeometry) set(angle float64) {
	frame := g.frames[g.moving]
	all := make([]int, len(frame))
	for i := range all {
		all[i] = i
	}
	torsion.RotateAtoms(frame, all, g.pos(1), g.pos(2), g.moving == g.R.Fragments[1], angle-g.dihedral())
}

// strain returns the collision strain between the core atoms of the two fragments.
func (g bondGeometry) strain() float64 {
	f1, f2 := g.R.Fragments[0], g.R.Fragments[1]
	F1, F2 := g.G.frags[f1], g.G.frags[f2]
	s := 0.0
	for i, x := range F1.Core {
		for j, y := range F2.Core {
			if g.G.exempted(x, y) {
				continue
			}
			s += g.G.pairStrain(x, y, g.frames[f1][i], g.frames[f2][j])
		}
	}
	return s
}

// attach places the unplaced fragment of bond b, aligning its copy of the bond with
// the one in the placed fragment, and computes the likelihood of each torsion index.
func (G *Generator) attach(B *BaseConformer, frames [][]r3.Vec, conformers []int, b int) {
	R := G.bonds[b]
	placed, moving := R.Fragments[0], R.Fragments[1]
	p, q := R.Atoms[1], R.Atoms[2]
	if frames[placed] == nil {
		placed, moving = moving, placed
		p, q = q, p
	}
	P, N := G.frags[placed], G.frags[moving]
	local := N.Conformer(conformers[moving]).Vecs()
	qi, _ := N.Local(q)
	pi, ok := N.Local(p)
	if !ok {
		panic(ErrExtendedAtom)
	}
	pl, _ := P.Local(p)
	ql, ok := P.Local(q)
	if !ok {
		panic(ErrExtendedAtom)
	}
	target := frames[placed][ql]
	rot := chem.Aligner(r3.Sub(local[pi], local[qi]), r3.Sub(frames[placed][pl], target))
	start := make([]r3.Vec, len(local))
	for i, v := range local {
		start[i] = r3.Add(target, rot.Rotate(r3.Sub(v, local[qi])))
	}
	geo := bondGeometry{G: G, R: R, frames: frames, moving: moving}
	work := make([]r3.Vec, len(start))
	eval := func(angle float64) float64 {
		copy(work, start)
		frames[moving] = work
		geo.set(angle)
		return geo.strain()
	}
	as := G.opts.AcceptableStrain()
	n := R.TorsionCount()
	angles, like, strain := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		center := R.Angle(i)
		s := eval(center)
		angles[i], strain[i] = center, s
		if s < as {
			like[i] = R.Frequency(i) * (1 - (s/as)*(s/as))
			continue
		}
		for _, edge := range R.Range(i) {
			if se := eval(edge); se < strain[i] {
				angles[i], strain[i] = edge, se
			}
		}
		if angles[i] != center && strain[i] < as {
			s = strain[i]
			like[i] = R.Frequency(i) * (1 - (s/as)*(s/as)) * G.opts.EdgeLikelihoodFactor()
		}
	}
	if floats.Sum(like) <= 0 {
		k := floats.MinIdx(strain)
		angles[k], strain[k] = G.escape(eval, angles[k], strain[k])
		like[k] = 1
	}
	floats.Scale(1/floats.Sum(like), like)
	copy(work, start)
	frames[moving] = work
	geo.set(angles[floats.MaxIdx(like)])
	B.angles[b], B.likelihoods[b], B.strain[b] = angles, like, strain
}

// escape moves angle, in EscapeStep steps, while that lowers the strain by at least MinEscapeGain.
func (G *Generator) escape(eval func(float64) float64, angle, strain float64) (float64, float64) {
	step := G.opts.EscapeStep()
	for s := 0; s < G.opts.EscapeSteps(); s++ {
		moved := false
		for _, dir := range []float64{1, -1} {
			a := chem.NormalizeDeg(angle + dir*step)
			if sa := eval(a); strain-sa >= G.opts.MinEscapeGain() {
				angle, strain, moved = a, sa, true
				break
			}
		}
		if !moved {
			break
		}
	}
	return angle, math.Max(strain, 0)
}
