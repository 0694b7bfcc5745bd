/*
 * config.go, part of goConf.
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
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rmera/goconf/conformer"
	"github.com/rmera/goconf/relax"
	"github.com/rmera/goconf/torsion"
)

// Config is the configuration of a confgen run. It is read from a YAML file, and
// CONFGEN_* environment variables and command line flags override it.
type Config struct {
	Conformers int    `mapstructure:"conformers"`
	Workers    int    `mapstructure:"workers"`
	Output     string `mapstructure:"output"` //directory for the output files
	LogLevel   string `mapstructure:"log_level"`
	Trace      bool   `mapstructure:"trace"`
	Map        bool   `mapstructure:"map"`

	Search struct {
		Policy                string  `mapstructure:"policy"`
		MaxTorsionSets        int     `mapstructure:"max_torsion_sets"`
		Seed                  uint64  `mapstructure:"seed"`
		MaxCollisionTolerance float64 `mapstructure:"max_collision_tolerance"`
		SecondChoiceBand      float64 `mapstructure:"second_choice_band"`
		RelaxFallback         bool    `mapstructure:"relax_fallback"`
	} `mapstructure:"search"`

	Collisions struct {
		HeavyTolerance    float64 `mapstructure:"heavy_tolerance"`
		HydrogenTolerance float64 `mapstructure:"hydrogen_tolerance"`
		AcceptableStrain  float64 `mapstructure:"acceptable_strain"`
		Clearance         float64 `mapstructure:"clearance"`
	} `mapstructure:"collisions"`

	Fragments struct {
		MaxConformers int    `mapstructure:"max_conformers"`
		CacheSize     int    `mapstructure:"cache_size"`
		CacheFile     string `mapstructure:"cache_file"` //zstd file to load and save the cache
	} `mapstructure:"fragments"`

	Table     string `mapstructure:"table"`     //YAML torsion table; the built-in one if empty
	Engine    string `mapstructure:"engine"`    //template or crest
	Minimizer string `mapstructure:"minimizer"` //none or xtb

	Crest struct {
		Command string  `mapstructure:"command"`
		NCPU    int     `mapstructure:"ncpu"`
		Method  string  `mapstructure:"method"`
		EThres  float64 `mapstructure:"ethres"`
		Keep    bool    `mapstructure:"keep"`
	} `mapstructure:"crest"`

	XTB struct {
		Command string `mapstructure:"command"`
		NCPU    int    `mapstructure:"ncpu"`
		Method  string `mapstructure:"method"`
		OptLev  string `mapstructure:"optlev"`
	} `mapstructure:"xtb"`
}

// newViper returns a viper instance with the defaults of every setting.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CONFGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	d := conformer.DefaultOptions()
	v.SetDefault("conformers", 10)
	v.SetDefault("workers", 0)
	v.SetDefault("output", ".")
	v.SetDefault("log_level", "info")
	v.SetDefault("search.policy", d.Policy())
	v.SetDefault("search.max_torsion_sets", d.MaxTorsionSets())
	v.SetDefault("search.seed", 0)
	v.SetDefault("search.max_collision_tolerance", d.MaxCollisionTolerance())
	v.SetDefault("search.second_choice_band", d.SecondChoiceBand())
	v.SetDefault("search.relax_fallback", false)
	v.SetDefault("collisions.heavy_tolerance", d.HeavyTolerance())
	v.SetDefault("collisions.hydrogen_tolerance", d.HydrogenTolerance())
	v.SetDefault("collisions.acceptable_strain", d.AcceptableStrain())
	v.SetDefault("collisions.clearance", d.Clearance())
	v.SetDefault("fragments.max_conformers", d.MaxFragmentConformers())
	v.SetDefault("fragments.cache_size", 0)
	v.SetDefault("engine", "template")
	v.SetDefault("minimizer", "none")
	cr := relax.NewCrest()
	v.SetDefault("crest.command", cr.Command)
	v.SetDefault("crest.ncpu", cr.NCPU)
	v.SetDefault("crest.method", cr.Method)
	xt := relax.NewXTB()
	v.SetDefault("xtb.command", xt.Command)
	v.SetDefault("xtb.ncpu", xt.NCPU)
	v.SetDefault("xtb.method", xt.Method)
	v.SetDefault("xtb.optlev", xt.OptLev)
	return v
}

// loadConfig reads the configuration file name (which can be empty) over the defaults.
func loadConfig(v *viper.Viper, name string) (*Config, error) {
	if name != "" {
		v.SetConfigFile(name)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading configuration %s", name)
		}
	}
	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decoding configuration")
	}
	return cfg, nil
}

// options returns the generator options for the configuration.
func (C *Config) options(log *zap.Logger) (*conformer.Options, error) {
	o := conformer.DefaultOptions()
	o.Logger(log)
	o.Policy(C.Search.Policy)
	o.MaxTorsionSets(C.Search.MaxTorsionSets)
	o.Seed(C.Search.Seed)
	o.MaxCollisionTolerance(C.Search.MaxCollisionTolerance)
	o.SecondChoiceBand(C.Search.SecondChoiceBand)
	o.RelaxFallback(C.Search.RelaxFallback)
	o.HeavyTolerance(C.Collisions.HeavyTolerance)
	o.HydrogenTolerance(C.Collisions.HydrogenTolerance)
	o.AcceptableStrain(C.Collisions.AcceptableStrain)
	o.Clearance(C.Collisions.Clearance)
	o.MaxFragmentConformers(C.Fragments.MaxConformers)
	if C.Table != "" {
		t, err := torsion.ReadTableFile(C.Table)
		if err != nil {
			return nil, err
		}
		o.Table(t)
	}
	switch strings.ToLower(C.Engine) {
	case "", "template":
	case "crest":
		cr := relax.NewCrest()
		cr.Command, cr.NCPU, cr.Method = C.Crest.Command, C.Crest.NCPU, C.Crest.Method
		cr.EThres, cr.Keep = C.Crest.EThres, C.Crest.Keep
		cr.Logger = log
		o.Engine(cr)
	default:
		return nil, errors.Newf("unknown relaxation engine %q", C.Engine)
	}
	switch strings.ToLower(C.Minimizer) {
	case "", "none":
	case "xtb":
		xt := relax.NewXTB()
		xt.Command, xt.NCPU, xt.Method, xt.OptLev = C.XTB.Command, C.XTB.NCPU, C.XTB.Method, C.XTB.OptLev
		xt.Logger = log
		o.Minimizer(xt)
	default:
		return nil, errors.Newf("unknown minimizer %q", C.Minimizer)
	}
	return o, nil
}
