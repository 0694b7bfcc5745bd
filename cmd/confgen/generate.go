/*
 * generate.go, part of goConf.
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

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chem "github.com/rmera/goconf"
	"github.com/rmera/goconf/chemplot"
	"github.com/rmera/goconf/conformer"
	"github.com/rmera/goconf/fragment"
)

func newGenerateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate FILE...",
		Short: "Generate conformers for the molecules in XYZ or JSON files",
		Long: "generate writes, for each input file, NAME_conformers.xyz with one frame per conformer.\n" +
			"Bonds are perceived from the geometry for XYZ input.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.generate(ctx, args)
		},
	}
	f := cmd.Flags()
	f.IntP("conformers", "n", 10, "conformers per molecule")
	f.Int("workers", 0, "molecules processed at the same time (0: one per CPU)")
	f.StringP("output", "o", ".", "output directory")
	f.Bool("trace", false, "plot the collision intensity and contribution of each conformer")
	f.Bool("map", false, "plot the angles of the first two rotatable bonds of each conformer")
	f.String("policy", "systematic", "search policy: systematic, adaptive, likely-random or random")
	f.Uint64("seed", 0, "random seed (0: not reproducible)")
	f.String("engine", "template", "relaxation engine for fragments: template or crest")
	f.String("minimizer", "none", "fragment minimizer: none or xtb")
	for _, k := range []string{"conformers", "workers", "output", "trace", "map", "engine", "minimizer"} {
		a.v.BindPFlag(k, f.Lookup(k))
	}
	a.v.BindPFlag("search.policy", f.Lookup("policy"))
	a.v.BindPFlag("search.seed", f.Lookup("seed"))
	return cmd
}

func (a *app) generate(ctx context.Context, files []string) error {
	cfg := a.cfg
	opts, err := cfg.options(a.log)
	if err != nil {
		return err
	}
	cache, err := fragment.NewCache(cfg.Fragments.CacheSize, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	if cfg.Fragments.CacheFile != "" {
		if err := loadCache(cache, cfg.Fragments.CacheFile); err != nil {
			return err
		}
		a.log.Info("fragment cache loaded", zap.String("file", cfg.Fragments.CacheFile), zap.Int("fragments", cache.Len()))
	}
	mols := make([]*chem.Molecule, len(files))
	for i, name := range files {
		if mols[i], err = readMolecule(name); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(cfg.Output, 0o755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}
	results := conformer.Batch(ctx, mols, cfg.Conformers, opts, cache, cfg.Workers)
	failed := 0
	for i, res := range results {
		name := files[i]
		if res.Err != nil {
			a.log.Error("generation failed", zap.String("file", name), zap.Error(res.Err))
			failed++
			continue
		}
		base := filepath.Join(cfg.Output, strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
		if err := writeConformers(base+"_conformers.xyz", mols[i], res.Conformers); err != nil {
			return err
		}
		a.log.Info("conformers written", zap.String("file", name), zap.Int("conformers", len(res.Conformers)))
		if err := a.plots(base, res.Conformers); err != nil {
			a.log.Warn("plotting failed", zap.String("file", name), zap.Error(err))
		}
	}
	if cfg.Fragments.CacheFile != "" {
		if err := saveCache(cache, cfg.Fragments.CacheFile); err != nil {
			return err
		}
	}
	if failed > 0 {
		return errors.Newf("%d of %d molecules failed", failed, len(files))
	}
	return nil
}

func (a *app) plots(base string, confs []*conformer.Conformer) error {
	if len(confs) == 0 {
		return nil
	}
	if a.cfg.Trace {
		intensity := lo.Map(confs, func(c *conformer.Conformer, _ int) float64 { return c.Intensity })
		contribution := lo.Map(confs, func(c *conformer.Conformer, _ int) float64 { return c.Contribution })
		if err := chemplot.TracePlot(intensity, contribution, filepath.Base(base), base+"_trace"); err != nil {
			return err
		}
	}
	if a.cfg.Map {
		withPair := lo.Filter(confs, func(c *conformer.Conformer, _ int) bool { return len(c.Angles) >= 2 })
		if len(withPair) == 0 {
			return nil
		}
		pairs := lo.Map(withPair, func(c *conformer.Conformer, _ int) [2]float64 { return [2]float64{c.Angles[0], c.Angles[1]} })
		return chemplot.TorsionMap(pairs, []int{0}, filepath.Base(base), base+"_map")
	}
	return nil
}

// readMolecule reads a molecule from an XYZ file, perceiving its bonds, or from a JSON file.
func readMolecule(name string) (*chem.Molecule, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xyz":
		mol, err := chem.XYZFileRead(name)
		if err != nil {
			return nil, err
		}
		if err := chem.AssignBonds(mol); err != nil {
			return nil, errors.Wrapf(err, "perceiving bonds in %s", name)
		}
		return mol, nil
	case ".json":
		f, err := os.Open(name)
		if err != nil {
			return nil, errors.Wrap(err, "reading molecule")
		}
		defer f.Close()
		return chem.JSONRead(f)
	}
	return nil, errors.Newf("%s: unknown molecule format, use .xyz or .json", name)
}

func writeConformers(name string, mol *chem.Molecule, confs []*conformer.Conformer) error {
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrap(err, "writing conformers")
	}
	if err := writeFrames(f, mol, confs); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "writing conformers")
}

// writeFrames writes confs to out as a multi-frame XYZ file.
func writeFrames(out io.Writer, mol *chem.Molecule, confs []*conformer.Conformer) error {
	w := bufio.NewWriter(out)
	for i, c := range confs {
		comment := fmt.Sprintf("conformer %d intensity %.4f contribution %.4g", i+1, c.Intensity, c.Contribution)
		if c.Relaxed {
			comment += " relaxed"
		}
		if err := chem.XYZWrite(w, mol, c.Coords, comment); err != nil {
			return err
		}
	}
	return errors.Wrap(w.Flush(), "writing conformers")
}

func loadCache(cache *fragment.Cache, name string) error {
	f, err := os.Open(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "loading fragment cache")
	}
	defer f.Close()
	_, err = cache.ReadFrom(f)
	return err
}

func saveCache(cache *fragment.Cache, name string) error {
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrap(err, "saving fragment cache")
	}
	if _, err := cache.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "saving fragment cache")
}
