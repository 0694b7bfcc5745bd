/*
 * rules.go, part of goConf.
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

// Rule is an elimination rule: every torsion set whose bits under Mask equal Data
// collides with at least the given intensity.
type Rule struct {
	Mask      Bits
	Data      Bits
	Intensity float64
}

// Matches returns true if the encoding b is covered by the rule.
func (R Rule) Matches(b Bits) bool {
	for i := range b {
		if b[i]&R.Mask[i] != R.Data[i] {
			return false
		}
	}
	return true
}

// Covers returns true if every encoding matched by o is also matched by R,
// that is, R is as general as o or more, and R is at least as intense as o.
func (R Rule) Covers(o Rule) bool {
	if R.Intensity < o.Intensity {
		return false
	}
	for i := range R.Mask {
		if R.Mask[i]&^o.Mask[i] != 0 || o.Data[i]&R.Mask[i] != R.Data[i] {
			return false
		}
	}
	return true
}

// Rules is a set of elimination rules where no rule covers another.
type Rules struct {
	list []Rule
}

// Add adds r to the set and returns true, unless an existing rule already covers it,
// in which case the set is unchanged and false is returned. The rules covered by r are removed.
func (R *Rules) Add(r Rule) bool {
	for _, o := range R.list {
		if o.Covers(r) {
			return false
		}
	}
	kept := R.list[:0]
	for _, o := range R.list {
		if !r.Covers(o) {
			kept = append(kept, o)
		}
	}
	R.list = append(kept, r)
	return true
}

// Match returns the first rule matching b with an intensity above tolerance.
func (R *Rules) Match(b Bits, tolerance float64) (Rule, bool) {
	for _, r := range R.list {
		if r.Intensity > tolerance && r.Matches(b) {
			return r, true
		}
	}
	return Rule{}, false
}

// Len returns the number of rules.
func (R *Rules) Len() int { return len(R.list) }

// All returns a copy of the rules.
func (R *Rules) All() []Rule { return append([]Rule(nil), R.list...) }
