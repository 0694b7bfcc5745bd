/*
 * options.go, part of goConf.
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
	"go.uber.org/zap"

	"github.com/rmera/goconf/relax"
	"github.com/rmera/goconf/search"
	"github.com/rmera/goconf/torsion"
)

// Options contains the settings of a Generator. The zero value is not usable;
// start from DefaultOptions. Every getter also works as a setter: if a value is
// given, it is set and then returned.
type Options struct {
	maxTorsionSets int
	policy         string
	seed           uint64

	acceptableStrain     float64 //strain below which an angle keeps its likelihood
	edgeLikelihoodFactor float64 //likelihood penalty for angles moved to the edge of their range
	escapeStep           float64 //degrees
	escapeSteps          int
	minEscapeGain        float64

	maxCollisionTolerance float64
	secondChoiceBand      float64
	heavyTolerance        float64 //factors applied to the vdW radii in collision checks
	hydrogenTolerance     float64

	clearance             float64 //A between disconnected parts of the molecule.
	maxFragmentConformers int
	relaxFallback         bool

	engine    relax.Engine
	minimizer relax.Minimizer
	table     torsion.Table
	predictor torsion.Predictor
	logger    *zap.Logger
}

// DefaultOptions returns the empirically tuned defaults, with the Template engine, the
// built-in torsion table and the hybridization-based predictor.
func DefaultOptions() *Options {
	r := new(Options)
	so := search.DefaultOptions()
	r.maxTorsionSets = so.MaxTorsionSets
	r.policy = "systematic"
	r.acceptableStrain = 0.05
	r.edgeLikelihoodFactor = 0.5
	r.escapeStep = 8
	r.escapeSteps = 4
	r.minEscapeGain = 0.01
	r.maxCollisionTolerance = so.MaxCollisionTolerance
	r.secondChoiceBand = so.SecondChoiceBand
	r.heavyTolerance = 0.8
	r.hydrogenTolerance = 0.6
	r.clearance = 5
	r.maxFragmentConformers = 16
	r.engine = relax.Template{}
	r.table = torsion.DefaultTable()
	r.predictor = torsion.HybridPredictor{}
	r.logger = zap.NewNop()
	return r
}

// Copy returns a shallow copy of the options. Engines, tables and loggers are shared.
func (O *Options) Copy() *Options {
	r := *O
	return &r
}

// MaxTorsionSets returns the budget of new torsion sets for the search.
func (O *Options) MaxTorsionSets(n ...int) int {
	if len(n) > 0 && n[0] > 0 {
		O.maxTorsionSets = n[0]
	}
	return O.maxTorsionSets
}

// Policy returns the name of the search policy: random, likely-random, adaptive or systematic.
func (O *Options) Policy(name ...string) string {
	if len(name) > 0 && name[0] != "" {
		O.policy = name[0]
	}
	return O.policy
}

// Seed returns the random seed. 0 means non reproducible.
func (O *Options) Seed(s ...uint64) uint64 {
	if len(s) > 0 {
		O.seed = s[0]
	}
	return O.seed
}

func (O *Options) AcceptableStrain(f ...float64) float64 {
	if len(f) > 0 && f[0] > 0 {
		O.acceptableStrain = f[0]
	}
	return O.acceptableStrain
}

func (O *Options) EdgeLikelihoodFactor(f ...float64) float64 {
	if len(f) > 0 && f[0] >= 0 {
		O.edgeLikelihoodFactor = f[0]
	}
	return O.edgeLikelihoodFactor
}

// EscapeStep returns the step, in degrees, used to nudge angles away from collisions.
func (O *Options) EscapeStep(f ...float64) float64 {
	if len(f) > 0 && f[0] > 0 {
		O.escapeStep = f[0]
	}
	return O.escapeStep
}

// EscapeSteps returns the largest number of nudges made on one angle.
func (O *Options) EscapeSteps(n ...int) int {
	if len(n) > 0 && n[0] >= 0 {
		O.escapeSteps = n[0]
	}
	return O.escapeSteps
}

// MinEscapeGain returns the smallest strain reduction for a nudge to be kept.
func (O *Options) MinEscapeGain(f ...float64) float64 {
	if len(f) > 0 && f[0] >= 0 {
		O.minEscapeGain = f[0]
	}
	return O.minEscapeGain
}

// MaxCollisionTolerance returns the largest collision intensity a conformer can be
// accepted with, reached late in the search.
func (O *Options) MaxCollisionTolerance(f ...float64) float64 {
	if len(f) > 0 && f[0] >= 0 {
		O.maxCollisionTolerance = f[0]
	}
	return O.maxCollisionTolerance
}

func (O *Options) SecondChoiceBand(f ...float64) float64 {
	if len(f) > 0 && f[0] >= 0 {
		O.secondChoiceBand = f[0]
	}
	return O.secondChoiceBand
}

// HeavyTolerance returns the factor applied to the vdW radius of heavy atoms in collision checks.
func (O *Options) HeavyTolerance(f ...float64) float64 {
	if len(f) > 0 && f[0] > 0 {
		O.heavyTolerance = f[0]
	}
	return O.heavyTolerance
}

// HydrogenTolerance returns the factor applied to the vdW radius of hydrogens in collision checks.
func (O *Options) HydrogenTolerance(f ...float64) float64 {
	if len(f) > 0 && f[0] > 0 {
		O.hydrogenTolerance = f[0]
	}
	return O.hydrogenTolerance
}

// Clearance returns the gap, in A, left between disconnected parts of a molecule.
func (O *Options) Clearance(f ...float64) float64 {
	if len(f) > 0 && f[0] >= 0 {
		O.clearance = f[0]
	}
	return O.clearance
}

func (O *Options) MaxFragmentConformers(n ...int) int {
	if len(n) > 0 && n[0] > 0 {
		O.maxFragmentConformers = n[0]
	}
	return O.maxFragmentConformers
}

// RelaxFallback returns whether the relaxation engine is asked for a whole-molecule
// conformer once the search runs out of new torsion sets.
func (O *Options) RelaxFallback(b ...bool) bool {
	if len(b) > 0 {
		O.relaxFallback = b[0]
	}
	return O.relaxFallback
}

func (O *Options) Engine(e ...relax.Engine) relax.Engine {
	if len(e) > 0 && e[0] != nil {
		O.engine = e[0]
	}
	return O.engine
}

// Minimizer returns the minimizer for fragment conformers, which can be nil.
func (O *Options) Minimizer(m ...relax.Minimizer) relax.Minimizer {
	if len(m) > 0 {
		O.minimizer = m[0]
	}
	return O.minimizer
}

func (O *Options) Table(t ...torsion.Table) torsion.Table {
	if len(t) > 0 {
		O.table = t[0]
	}
	return O.table
}

func (O *Options) Predictor(p ...torsion.Predictor) torsion.Predictor {
	if len(p) > 0 && p[0] != nil {
		O.predictor = p[0]
	}
	return O.predictor
}

func (O *Options) Logger(l ...*zap.Logger) *zap.Logger {
	if len(l) > 0 && l[0] != nil {
		O.logger = l[0]
	}
	if O.logger == nil {
		return zap.NewNop()
	}
	return O.logger
}
