/*
 * interfaces.go, part of goConf.
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

package chem

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Atomer is the basic interface for a topology.
type Atomer interface {

	//Atom returns the Atom corresponding to the index i
	//of the Atom slice in the Topology. Should panic if
	//out of range.
	Atom(i int) *Atom

	Len() int
}

//Errors

// Error is the interface for errors that all packages in this library implement. The Decorate method allows to add and retrieve info from the
// error, without changing it's type or wrapping it around something else.
type Error interface {
	Error() string
	Decorate(string) []string //Each call also returns the "decoration" slice of strings resulting from the current call. If passed an empty string, it should just return the current value, not add the empty string to the slice.
	Critical() bool
}

// CError is the error type of the chem package.
type CError struct {
	msg      string
	deco     []string
	critical bool
	cause    error
}

// NewError returns a critical *CError with message msg, decorated with
// the name of the function where it was produced.
func NewError(msg, function string) *CError {
	return &CError{msg: msg, deco: []string{function}, critical: true}
}

// Error returns a string with an error message.
func (err *CError) Error() string {
	if len(err.deco) == 0 {
		return err.msg
	}
	return err.msg + " (" + strings.Join(err.deco, " < ") + ")"
}

// Decorate will add the dec string to the decoration slice of strings of the error,
// and return the resulting slice.
func (err *CError) Decorate(dec string) []string {
	if dec == "" {
		return err.deco
	}
	err.deco = append(err.deco, dec)
	return err.deco
}

// Critical returns whether the error is critical or it can be ignored
func (err *CError) Critical() bool { return err.critical }

// Unwrap returns the sentinel error, if any, this error is an instance of.
func (err *CError) Unwrap() error { return err.cause }

// errDecorate decorates err with the caller's name, if it implements Error,
// and returns it.
func errDecorate(err error, caller string) error {
	var e Error
	if errors.As(err, &e) {
		e.Decorate(caller)
		return err
	}
	return errors.Wrap(err, caller)
}

// ErrValence is the cause of the errors produced when an atom has more bonds
// than its element allows.
var ErrValence = errors.New("chem: valence exceeded")

// PanicMsg is a message used for panics, even though it does satisfy the error interface.
// for errors use Error.
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }

const (
	ErrNilAtom        = PanicMsg("goConf: Attempted to copy a nil atom")
	ErrNotInBond      = PanicMsg("goConf: Trying to cross a bond: The origin atom given is not present in the bond")
	ErrAtomOutOfRange = PanicMsg("goConf: Requested Atom out of bounds")
	ErrBondOutOfRange = PanicMsg("goConf: Requested Bond out of bounds")
	ErrNoCoords       = PanicMsg("goConf: Requested coordinates not present")
)
