/*
 * rotatable.go, part of goConf.
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

package torsion

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	chem "github.com/rmera/goconf"
)

// ErrNotRotatable is returned when a RotatableBond is requested for a bond that
// can't be rotated.
var ErrNotRotatable = errors.New("torsion: bond is not rotatable")

const mergeTol = 1e-3 //degrees

// IsRotatable returns true if bond b of mol can be rotated: it is not in a ring, it is
// single (or of undetermined order), both atoms have at least another neighbor, and
// neither atom is sp-hybridized. Ring information must be up to date.
func IsRotatable(mol *chem.Molecule, b int) bool {
	bond := mol.Bond(b)
	if bond.InRing() || bond.EffectiveOrder() > 1 {
		return false
	}
	if mol.Degree(bond.At1) < 2 || mol.Degree(bond.At2) < 2 {
		return false
	}
	return mol.Hybridization(bond.At1) != chem.SP && mol.Hybridization(bond.At2) != chem.SP
}

// Find returns the indexes of the rotatable bonds of mol, in increasing order.
// It finds the rings of mol if needed.
func Find(mol *chem.Molecule) []int {
	if !mol.RingsFound() {
		mol.FindRings()
	}
	ret := make([]int, 0, len(mol.Bonds)/3)
	for i := range mol.Bonds {
		if IsRotatable(mol, i) {
			ret = append(ret, i)
		}
	}
	return ret
}

// RotatableBond is a bond joining two rigid fragments, with the candidate
// torsion angles for it. The torsion is defined by the atoms
// Atoms[0]-Atoms[1]-Atoms[2]-Atoms[3], where Atoms[1] and Atoms[2] are the bonded atoms.
type RotatableBond struct {
	Bond      int
	Atoms     [4]int
	Fragments [2]int //fragments of Atoms[1] and Atoms[2], set by the caller.
	ID        string //id of the torsion in the table, empty if predicted.

	smaller   []int
	rotatesA2 bool
	fold      int

	angles      []float64
	frequencies []float64
	ranges      [][2]float64
	likelihoods []float64
}

// New builds the rotatable bond for bond b of mol, with the torsion profile prof.
// terminal tells whether the fragments at the Atoms[1] and Atoms[2] sides are terminal,
// i.e. b is the only rotatable bond attached to them.
// The angles in prof are first restricted by the axial parity of the bond, if any,
// and then folded by the local symmetry of the terminal fragments.
func New(mol *chem.Molecule, b int, prof Profile, id string, terminal [2]bool) (*RotatableBond, error) {
	if !IsRotatable(mol, b) {
		return nil, errors.Wrapf(ErrNotRotatable, "bond %d", b)
	}
	if err := prof.Validate(); err != nil {
		return nil, errors.Wrapf(err, "bond %d", b)
	}
	prof = prof.complete()
	bond := mol.Bond(b)
	R := &RotatableBond{Bond: b, ID: id, fold: 1}
	a1, a2 := bond.At1, bond.At2
	R.Atoms = [4]int{torsionNeighbor(mol, a1, a2), a1, a2, torsionNeighbor(mol, a2, a1)}
	side1 := mol.Side(a1, a2)
	side2 := mol.Side(a2, a1)
	R.smaller, R.rotatesA2 = side2, true
	if len(side1) < len(side2) {
		R.smaller, R.rotatesA2 = side1, false
	}
	R.angles, R.frequencies, R.ranges = prof.Angles, prof.Frequencies, prof.Ranges
	R.applyParity(bond.Parity)
	n1, n2 := 1, 1
	if terminal[0] {
		n1 = localSymmetry(mol, a1, a2, side1)
	}
	if terminal[1] {
		n2 = localSymmetry(mol, a2, a1, side2)
	}
	R.applyFold(lcm(n1, n2))
	normalize(R.frequencies)
	return R, nil
}

// torsionNeighbor returns the neighbor of a, other than exclude, that defines the torsion:
// the heavy atom with the lowest index, or the lowest-index hydrogen if there are no heavy ones.
func torsionNeighbor(mol *chem.Molecule, a, exclude int) int {
	best, bestH := -1, -1
	for _, w := range mol.Neighbors(a) {
		if w == exclude {
			continue
		}
		if mol.Atom(w).IsHydrogen() {
			if bestH < 0 || w < bestH {
				bestH = w
			}
			continue
		}
		if best < 0 || w < best {
			best = w
		}
	}
	if best < 0 {
		return bestH
	}
	return best
}

// localSymmetry returns the order of the rotational symmetry of the side of a
// (the atoms in side) around the a-other axis: 3 for three equivalent substituents,
// 2 for two equivalent substituents on a planar atom, 1 otherwise.
func localSymmetry(mol *chem.Molecule, a, other int, side []int) int {
	subs := make([]int, 0, 3)
	for _, w := range mol.Neighbors(a) {
		if w != other {
			subs = append(subs, w)
		}
	}
	if len(subs) < 2 || len(subs) > 3 {
		return 1
	}
	pos := make(map[int]int, len(side))
	for i, s := range side {
		pos[s] = i
	}
	classes := mol.SymmetryClasses(side, nil)
	for _, s := range subs[1:] {
		if classes[pos[s]] != classes[pos[subs[0]]] {
			return 1
		}
	}
	if len(subs) == 3 {
		return 3
	}
	if mol.Hybridization(a) == chem.SP2 {
		return 2
	}
	return 1
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	return a / gcd(a, b) * b
}

// applyParity keeps only the angles in (0,180) for ParityPlus, or in (180,360) for
// ParityMinus. If no angle survives, the angles are mirrored to the legal side.
func (R *RotatableBond) applyParity(p chem.Parity) {
	if p == chem.NoParity {
		return
	}
	legal := func(a float64) bool {
		a = chem.NormalizeDeg(a)
		if p == chem.ParityPlus {
			return a > 0 && a < 180
		}
		return a > 180 && a < 360
	}
	var angles, freqs []float64
	var ranges [][2]float64
	for i, a := range R.angles {
		if legal(a) {
			angles = append(angles, a)
			freqs = append(freqs, R.frequencies[i])
			ranges = append(ranges, R.ranges[i])
		}
	}
	if len(angles) == 0 {
		for i, a := range R.angles {
			if m := 360 - chem.NormalizeDeg(a); legal(m) {
				angles = append(angles, m)
				freqs = append(freqs, R.frequencies[i])
				r := R.ranges[i]
				ranges = append(ranges, [2]float64{m - (r[1] - a), m + (a - r[0])})
			}
		}
	}
	if len(angles) == 0 {
		//only 0 and 180 were given. We take the middle of the legal side.
		mid := 90.0
		if p == chem.ParityMinus {
			mid = 270
		}
		angles, freqs, ranges = []float64{mid}, []float64{1}, [][2]float64{{mid - defaultHalfRange, mid + defaultHalfRange}}
	}
	R.angles, R.frequencies, R.ranges = angles, freqs, ranges
	normalize(R.frequencies)
}

// applyFold folds the angles into a window of 360/n degrees, merging the ones that
// become equivalent and adding up their frequencies.
func (R *RotatableBond) applyFold(n int) {
	if n <= 1 {
		return
	}
	R.fold = n
	period := 360 / float64(n)
	var angles, freqs []float64
	var ranges [][2]float64
	for i, a := range R.angles {
		folded := math.Mod(chem.NormalizeDeg(a), period)
		if period-folded < mergeTol {
			folded = 0
		}
		shift := folded - a
		merged := false
		for j, b := range angles {
			if math.Abs(b-folded) < mergeTol {
				freqs[j] += R.frequencies[i]
				merged = true
				break
			}
		}
		if merged {
			continue
		}
		angles = append(angles, folded)
		freqs = append(freqs, R.frequencies[i])
		ranges = append(ranges, [2]float64{R.ranges[i][0] + shift, R.ranges[i][1] + shift})
	}
	R.angles, R.frequencies, R.ranges = angles, freqs, ranges
}

// normalize scales w so it adds up to 1. If all elements are zero, they
// are all set to the same value.
func normalize(w []float64) {
	if len(w) == 0 {
		return
	}
	sum := floats.Sum(w)
	if sum <= 0 {
		for i := range w {
			w[i] = 1 / float64(len(w))
		}
		return
	}
	floats.Scale(1/sum, w)
}

// TorsionCount returns the number of candidate angles.
func (R *RotatableBond) TorsionCount() int { return len(R.angles) }

// Angle returns the candidate angle i, in degrees.
func (R *RotatableBond) Angle(i int) float64 { return R.angles[i] }

// Frequency returns the normalized prior frequency of angle i.
func (R *RotatableBond) Frequency(i int) float64 { return R.frequencies[i] }

// Range returns the populated range around angle i, in degrees.
func (R *RotatableBond) Range(i int) [2]float64 { return R.ranges[i] }

// Fold returns the order of the symmetry used to prune the angles.
func (R *RotatableBond) Fold() int { return R.fold }

// Likelihood returns the likelihood of angle i, or its frequency if
// likelihoods have not been set.
func (R *RotatableBond) Likelihood(i int) float64 {
	if R.likelihoods == nil {
		return R.frequencies[i]
	}
	return R.likelihoods[i]
}

// Likelihoods returns a copy of the likelihoods (or the frequencies if
// likelihoods are not set).
func (R *RotatableBond) Likelihoods() []float64 {
	if R.likelihoods == nil {
		return append([]float64(nil), R.frequencies...)
	}
	return append([]float64(nil), R.likelihoods...)
}

// HasLikelihoods returns true once SetLikelihoods has been called.
func (R *RotatableBond) HasLikelihoods() bool { return R.likelihoods != nil }

// SetLikelihoods sets, normalized, the likelihoods of the angles. It only has an effect the first
// time it is called; after that the bond is read-only. It returns an error if l has the wrong length.
func (R *RotatableBond) SetLikelihoods(l []float64) error {
	if len(l) != len(R.angles) {
		return errors.Newf("%d likelihoods for %d angles", len(l), len(R.angles))
	}
	if R.likelihoods != nil {
		return nil
	}
	R.likelihoods = append([]float64(nil), l...)
	normalize(R.likelihoods)
	return nil
}

// BiasedIndex draws an angle index. See BiasedPick for the meaning of progress.
func (R *RotatableBond) BiasedIndex(progress float64, rng *rand.Rand) int {
	if R.likelihoods != nil {
		return BiasedPick(R.likelihoods, progress, rng)
	}
	return BiasedPick(R.frequencies, progress, rng)
}

// Smaller returns the atoms that move when the bond is rotated (the smaller side). The slice
// must not be modified.
func (R *RotatableBond) Smaller() []int { return R.smaller }

// RotatesA2 returns true if the moving side is that of Atoms[2].
func (R *RotatableBond) RotatesA2() bool { return R.rotatesA2 }

// Dihedral returns the current torsion angle, in degrees in [0,360), in the coordinates vecs.
func (R *RotatableBond) Dihedral(vecs []r3.Vec) float64 {
	a := R.Atoms
	return chem.NormalizeDeg(chem.Rad2Deg(chem.Dihedral(vecs[a[0]], vecs[a[1]], vecs[a[2]], vecs[a[3]])))
}

// Rotate changes, in place, the torsion angle in vecs by delta degrees, moving the smaller side.
func (R *RotatableBond) Rotate(vecs []r3.Vec, delta float64) {
	RotateAtoms(vecs, R.smaller, vecs[R.Atoms[1]], vecs[R.Atoms[2]], R.rotatesA2, delta)
}

// RotateAtoms rotates, in place, the atoms in moving, about the axis going from a1 to a2,
// so that a torsion around that axis increases by delta degrees. Set atA2 to
// true if the moving atoms are bonded to a2, and false if to a1.
func RotateAtoms(vecs []r3.Vec, moving []int, a1, a2 r3.Vec, atA2 bool, delta float64) {
	if delta == 0 {
		return
	}
	angle := chem.Deg2Rad(delta)
	if !atA2 {
		angle = -angle
	}
	rot := r3.NewRotation(angle, r3.Unit(r3.Sub(a2, a1)))
	for _, i := range moving {
		vecs[i] = r3.Add(a1, rot.Rotate(r3.Sub(vecs[i], a1)))
	}
}

// SetTorsion rotates the smaller side so the torsion angle in vecs becomes angle (degrees).
func (R *RotatableBond) SetTorsion(vecs []r3.Vec, angle float64) {
	R.Rotate(vecs, angle-R.Dihedral(vecs))
}

func (R *RotatableBond) String() string {
	return fmt.Sprintf("bond %d (%d-%d-%d-%d) angles %v", R.Bond, R.Atoms[0], R.Atoms[1], R.Atoms[2], R.Atoms[3], R.angles)
}

// SortedIndexes returns the indexes of the angles sorted by decreasing likelihood.
func (R *RotatableBond) SortedIndexes() []int {
	idx := make([]int, len(R.angles))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return R.Likelihood(idx[i]) > R.Likelihood(idx[j]) })
	return idx
}
