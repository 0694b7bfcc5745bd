/*
 * batch.go, part of goConf.
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
	"context"
	"runtime"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	chem "github.com/rmera/goconf"
	"github.com/rmera/goconf/fragment"
)

// Result holds the conformers generated for one molecule in a Batch.
type Result struct {
	Conformers []*Conformer
	// Err is the initialization or generation error for the molecule, if any.
	Err error
}

// Batch generates up to n conformers for each of the molecules in mols, running up to
// workers generators at the same time (one per CPU if workers < 1). The generators
// share cache, which can be nil. The molecules get the hydrogens they are missing.
// Errors for one molecule don't stop the others; the results are in the order of mols.
func Batch(ctx context.Context, mols []*chem.Molecule, n int, opts *Options, cache *fragment.Cache, workers int) []Result {
	if opts == nil {
		opts = DefaultOptions()
	}
	res := make([]Result, len(mols))
	var g errgroup.Group
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)
	log := opts.Logger()
	for i, mol := range mols {
		g.Go(func() error {
			G := NewGenerator(opts.Copy(), cache)
			if err := G.Initialize(ctx, mol); err != nil {
				log.Warn("molecule skipped", zap.Int("molecule", i), zap.Error(err))
				res[i].Err = err
				return nil
			}
			for len(res[i].Conformers) < n {
				c, err := G.NextConformer(ctx)
				if err != nil {
					res[i].Err = errors.Wrapf(err, "molecule %d", i)
					break
				}
				if c == nil {
					break
				}
				res[i].Conformers = append(res[i].Conformers, c)
			}
			return nil
		})
	}
	g.Wait()
	return res
}
