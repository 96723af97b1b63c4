// Copyright 2026 The Sqlfuse Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fserrors defines the POSIX-flavored error taxonomy that every
// operation in the Operation Surface raises. The (out of scope) FUSE
// dispatch glue is the only place these are translated to negative
// errno values; everything inside the core deals in *Error.
package fserrors

import (
	"errors"
	"fmt"
)

// Kind is a coarse classification of what went wrong, independent of the
// database backend or the particular operation that failed.
type Kind int

const (
	// Unclassified is the zero Kind; KindOf reports it only for a nil
	// error (a foreign, unclassified error is reported as IO).
	Unclassified Kind = iota
	NotFound
	IsDirectory
	NotDirectory
	NotEmpty
	PermissionDenied
	InvalidArgument
	IO
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case IsDirectory:
		return "IsDirectory"
	case NotDirectory:
		return "NotDirectory"
	case NotEmpty:
		return "NotEmpty"
	case PermissionDenied:
		return "PermissionDenied"
	case InvalidArgument:
		return "InvalidArgument"
	case IO:
		return "IO"
	default:
		return "Unclassified"
	}
}

// Error is the typed error every Operation Surface method returns on
// failure. Op and Path are filled in for logging; Kind is what the FUSE
// seam switches on to pick an errno.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err (which may be nil, in which case Kind alone carries the
// message) as a *Error of the given kind.
func New(kind Kind, op, path string, err error) error {
	if err == nil {
		err = errors.New(kind.String())
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf extracts the Kind of err. An error not raised through this
// package (e.g. a raw database/sql error that nothing classified) is
// reported as IO; a nil error is reported as Unclassified.
func KindOf(err error) Kind {
	var fsErr *Error
	if errors.As(err, &fsErr) {
		return fsErr.Kind
	}
	if err == nil {
		return Unclassified
	}
	return IO
}

// Is reports whether KindOf(err) is k: whether err (or anything it
// wraps) is a *Error of kind k, or, for k == IO, any non-nil error not
// raised through this package.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}
