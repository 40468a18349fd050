// Copyright 2021 Google LLC
// Copyright 2025 The WASTool Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errors defines the error handling used by the wastool codebase.
package errors

import (
	goerrors "errors"
	"fmt"
	"strings"
)

// Error is an implementation of the error interface used in the wastool
// codebase.
// It is based on the design in https://commandcenter.blogspot.com/2017/12/error-handling-in-upspin.html
type Error struct {
	// Entry is the manifest entry (library) involved in the operation.
	Entry Entry

	// Repo is the url of the repository involved in the operation.
	Repo Repo

	// Op is the operation being performed, for ex. manifest.fetch, syncer.clone
	Op Op

	// Kind refers to class of errors
	Kind Kind

	// Err refers to wrapped error (if any)
	Err error
}

func (e *Error) Error() string {
	b := new(strings.Builder)

	if e.Op != "" {
		pad(b, ": ")
		b.WriteString(string(e.Op))
	}

	if e.Entry != "" {
		pad(b, ": ")
		b.WriteString("library ")
		b.WriteString(string(e.Entry))
	}

	if e.Repo != "" {
		pad(b, ": ")
		b.WriteString("repo ")
		b.WriteString(string(e.Repo))
	}

	if e.Kind != 0 {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}

	if e.Err != nil {
		var wrappedErr *Error
		if As(e.Err, &wrappedErr) {
			if !wrappedErr.Zero() {
				pad(b, ":\n\t")
				b.WriteString(wrappedErr.Error())
			}
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// pad appends given str to the string buffer.
func pad(b *strings.Builder, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

func (e *Error) Zero() bool {
	return e.Op == "" && e.Entry == "" && e.Repo == "" && e.Kind == 0 && e.Err == nil
}

// Op describes the operation being performed.
type Op string

// Entry is the key of a manifest entry.
type Entry string

// Repo is the location of a repository.
type Repo string

// Kind describes the class of errors encountered.
type Kind int

const (
	Other        Kind = iota // Unclassified. Will not be printed.
	Internal                 // Internal error.
	InvalidParam             // Value is not valid.
	MissingParam             // Required value is missing or empty.
	IO                       // Filesystem errors.
	Network                  // Errors fetching remote documents.
	Manifest                 // Malformed manifest.
	Git                      // Errors from Git
	Svn                      // Errors from Subversion
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case Internal:
		return "internal error"
	case InvalidParam:
		return "invalid parameter value"
	case MissingParam:
		return "missing parameter value"
	case IO:
		return "IO error"
	case Network:
		return "network error"
	case Manifest:
		return "manifest error"
	case Git:
		return "git error"
	case Svn:
		return "svn error"
	}
	return "unknown kind"
}

// E builds an error value from its arguments.
// There must be at least one argument or E panics.
// The type of each argument determines its meaning.
// If more than one argument of a given type is presented,
// only the last one is recorded.
func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("errors.E must have at least one argument")
	}

	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Entry:
			e.Entry = a
		case Repo:
			e.Repo = a
		case Op:
			e.Op = a
		case Kind:
			e.Kind = a
		case *Error:
			cp := *a
			e.Err = &cp
		case error:
			e.Err = a
		case string:
			e.Err = goerrors.New(a)
		default:
			panic(fmt.Errorf("unknown type %T for value %v in call to error.E", a, a))
		}
	}

	wrappedErr, ok := e.Err.(*Error)
	if !ok {
		return e
	}

	if e.Entry == wrappedErr.Entry {
		wrappedErr.Entry = ""
	}

	if e.Repo == wrappedErr.Repo {
		wrappedErr.Repo = ""
	}

	if e.Op == wrappedErr.Op {
		wrappedErr.Op = ""
	}

	if e.Kind == wrappedErr.Kind {
		wrappedErr.Kind = 0
	}

	return e
}

// Is reports whether err has the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	for As(err, &e) {
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// As is a wrapper around the standard library errors.As so callers
// don't need to import both packages.
func As(err error, target interface{}) bool {
	return goerrors.As(err, target)
}
