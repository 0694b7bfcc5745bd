/*
 * provider.go, part of goConf.
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

package fragment

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	chem "github.com/rmera/goconf"
	"github.com/rmera/goconf/relax"
	v3 "github.com/rmera/goconf/v3"
)

// DefaultMaxConformers is the largest number of conformers kept per fragment
// unless otherwise requested.
const DefaultMaxConformers = 16

const fingerprintBin = 30.0 //degrees

// Provider creates fragments, seeding their conformers with a relaxation engine
// and, optionally, minimizing them. If it has a Cache, fragments are looked up
// there first, and stored there after creation.
type Provider struct {
	Engine        relax.Engine
	Minimizer     relax.Minimizer //can be nil
	Cache         *Cache          //can be nil
	MaxConformers int
	Seed          uint64
	Logger        *zap.Logger
}

// NewProvider returns a provider using the given engine and cache (which can be nil).
func NewProvider(engine relax.Engine, cache *Cache) *Provider {
	return &Provider{Engine: engine, Cache: cache, MaxConformers: DefaultMaxConformers, Logger: zap.NewNop()}
}

func (P *Provider) logger() *zap.Logger {
	if P.Logger == nil {
		return zap.NewNop()
	}
	return P.Logger
}

// Create returns the fragment of mol made of the atoms in core, which must be a
// connected piece of the molecule bounded by the bonds in rotatable (the cut bonds).
// Errors that make it impossible to obtain conformers have ErrFragmentSeed as their cause.
// If ctx is cancelled before any conformer is obtained, the error wraps ctx.Err() instead.
func (P *Provider) Create(ctx context.Context, mol *chem.Molecule, core []int, rotatable []int) (*Fragment, error) {
	cut := make(map[int]bool, len(rotatable))
	for _, b := range rotatable {
		cut[b] = true
	}
	F := newFragment(append([]int(nil), core...), extended(mol, core, cut))
	atoms := F.Atoms()
	ncore := len(F.Core)
	ranks, key := mol.CanonicalRanks(atoms, func(i int) int {
		if i >= ncore {
			return 1
		}
		return 0
	})
	F.key = key
	create := func() (*Entry, error) {
		sub := mol.Sub(atoms)
		confs, goodness, err := P.seed(ctx, sub)
		if err != nil {
			return nil, err
		}
		e := &Entry{Key: key, Atoms: len(atoms), Likelihoods: goodness}
		for _, c := range confs {
			row := make([]float64, 3*len(atoms))
			for i := range atoms {
				v := c.Vec(i)
				r := 3 * ranks[i]
				row[r], row[r+1], row[r+2] = v.X, v.Y, v.Z
			}
			e.Conformers = append(e.Conformers, row)
		}
		return e, nil
	}
	var e *Entry
	var err error
	if P.Cache != nil {
		e, F.cached, err = P.Cache.getOrCreate(key, create)
	} else {
		e, err = create()
	}
	if err != nil {
		return nil, err
	}
	for _, row := range e.Conformers {
		m := v3.Zeros(len(atoms))
		for i := range atoms {
			r := 3 * ranks[i]
			m.Set(i, 0, row[r])
			m.Set(i, 1, row[r+1])
			m.Set(i, 2, row[r+2])
		}
		F.conformers = append(F.conformers, m)
	}
	F.likelihoods = append([]float64(nil), e.Likelihoods...)
	P.logger().Debug("fragment created", zap.Int("core", ncore), zap.Int("extended", len(F.Extended)),
		zap.Int("conformers", len(F.conformers)), zap.Bool("cached", F.cached))
	return F, nil
}

// seed obtains up to MaxConformers distinct conformers for sub from the engine, and
// returns them with their normalized likelihoods.
func (P *Provider) seed(ctx context.Context, sub *chem.Molecule) ([]*v3.Matrix, []float64, error) {
	if P.Engine == nil {
		return nil, nil, errors.Wrap(ErrFragmentSeed, "no relaxation engine")
	}
	max := P.MaxConformers
	if max <= 0 {
		max = DefaultMaxConformers
	}
	run, err := P.Engine.Start(ctx, sub, P.Seed, max)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, errors.Wrap(ctx.Err(), "seeding fragment")
		}
		return nil, nil, errors.Mark(errors.Wrap(err, "seeding fragment"), ErrFragmentSeed)
	}
	seen := make(map[uint64]bool, max)
	confs := make([]*v3.Matrix, 0, max)
	goodness := make([]float64, 0, max)
	for len(confs) < max {
		if ctx.Err() != nil {
			break
		}
		c, g, ok := run.Next(ctx)
		if !ok {
			break
		}
		fp := Fingerprint(sub, c)
		if seen[fp] {
			continue
		}
		seen[fp] = true
		if P.Minimizer != nil {
			opt, e0, e1, err := P.Minimizer.Minimize(ctx, sub, c)
			if err != nil {
				P.logger().Warn("fragment minimization failed, keeping the unminimized conformer", zap.Error(err))
			} else {
				P.logger().Debug("fragment minimized", zap.Float64("start", e0), zap.Float64("end", e1))
				c = opt
			}
		}
		confs = append(confs, c)
		goodness = append(goodness, math.Max(g, 0))
	}
	if len(confs) == 0 {
		if ctx.Err() != nil {
			return nil, nil, errors.Wrap(ctx.Err(), "seeding fragment")
		}
		return nil, nil, errors.Wrapf(ErrFragmentSeed, "fragment with %d atoms", sub.Len())
	}
	if sum := floats.Sum(goodness); sum > 0 {
		floats.Scale(1/sum, goodness)
	} else {
		for i := range goodness {
			goodness[i] = 1 / float64(len(goodness))
		}
	}
	return confs, goodness, nil
}

// Fingerprint returns a hash of the torsion angles of mol in coords, binned
// in 30 degree intervals. Two conformers with the same fingerprint are taken as duplicates.
func Fingerprint(mol *chem.Molecule, coords *v3.Matrix) uint64 {
	h := xxh3.New()
	var buf [8]byte
	for _, b := range mol.Bonds {
		r0 := otherNeighbor(mol, b.At1, b.At2)
		r3 := otherNeighbor(mol, b.At2, b.At1)
		if r0 < 0 || r3 < 0 {
			continue
		}
		d := chem.Rad2Deg(chem.Dihedral(coords.Vec(r0), coords.Vec(b.At1), coords.Vec(b.At2), coords.Vec(r3)))
		bin := int(math.Floor(chem.NormalizeDeg(d+fingerprintBin/2)/fingerprintBin)) % int(360/fingerprintBin)
		binary.LittleEndian.PutUint32(buf[:4], uint32(b.Index))
		binary.LittleEndian.PutUint32(buf[4:], uint32(bin))
		h.Write(buf[:])
	}
	return h.Sum64()
}

// otherNeighbor returns the lowest-index neighbor of a other than exclude, or -1.
func otherNeighbor(mol *chem.Molecule, a, exclude int) int {
	ret := -1
	for _, w := range mol.Neighbors(a) {
		if w != exclude && (ret < 0 || w < ret) {
			ret = w
		}
	}
	return ret
}
