// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package tsr provides the small set of tensor operations needed by the
value networks, operating directly on etensor.Float32 and etensor.Int
in row-major order.

All shapes follow the convention of leading axes first: a batch of feature
vectors is [N, D], a recurrent batch is [T, B, ...] (time-major) and a
distributional head output is [N, A, K].  Reshape returns views that share
the underlying Values slice, so callers must treat inputs as read-only.
*/
package tsr

import (
	"errors"
	"fmt"

	"github.com/emer/etable/etensor"
)

var (
	// ErrConfig is wrapped by every construction-time configuration error.
	ErrConfig = errors.New("configuration error")

	// ErrShape is wrapped by every call-time shape error.
	ErrShape = errors.New("shape error")
)

// Configf returns an error wrapping ErrConfig.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfig}, args...)...)
}

// Shapef returns an error wrapping ErrShape.
func Shapef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrShape}, args...)...)
}

// New returns a new zero-valued float32 tensor of given shape.
func New(shp ...int) *etensor.Float32 {
	return etensor.NewFloat32(shp, nil, nil)
}

// NewInt returns a new zero-valued int tensor of given shape.
func NewInt(shp ...int) *etensor.Int {
	return etensor.NewInt(shp, nil, nil)
}

// FromValues returns a tensor of given shape using vals directly as storage.
func FromValues(vals []float32, shp ...int) (*etensor.Float32, error) {
	if n := Prod(shp); n != len(vals) {
		return nil, Shapef("%d values do not fit shape %v (size %d)", len(vals), shp, n)
	}
	t := &etensor.Float32{Values: vals}
	t.Shape.SetShape(shp, nil, nil)
	return t, nil
}

// IntFromValues returns an int tensor of given shape using vals as storage.
func IntFromValues(vals []int, shp ...int) (*etensor.Int, error) {
	if n := Prod(shp); n != len(vals) {
		return nil, Shapef("%d values do not fit shape %v (size %d)", len(vals), shp, n)
	}
	t := &etensor.Int{Values: vals}
	t.Shape.SetShape(shp, nil, nil)
	return t, nil
}

// Prod returns the product of the given dims (1 for none).
func Prod(shp []int) int {
	n := 1
	for _, d := range shp {
		n *= d
	}
	return n
}

// Reshape returns a view of t with a new shape sharing the same values.
// A single -1 dim is inferred from the remaining size.
func Reshape(t *etensor.Float32, shp ...int) (*etensor.Float32, error) {
	shp = append([]int(nil), shp...)
	infer := -1
	known := 1
	for i, d := range shp {
		if d == -1 {
			if infer >= 0 {
				return nil, Shapef("reshape %v: only one dim may be inferred", shp)
			}
			infer = i
			continue
		}
		known *= d
	}
	if infer >= 0 {
		if known == 0 || len(t.Values)%known != 0 {
			return nil, Shapef("cannot reshape %v into %v", t.Shapes(), shp)
		}
		shp[infer] = len(t.Values) / known
	}
	return FromValues(t.Values, shp...)
}

// Flatten2 merges the first two axes of t: [T, B, ...] -> [T*B, ...].
func Flatten2(t *etensor.Float32) (*etensor.Float32, error) {
	shp := t.Shapes()
	if len(shp) < 2 {
		return nil, Shapef("flatten of leading axes needs rank >= 2, got %v", shp)
	}
	nshp := append([]int{shp[0] * shp[1]}, shp[2:]...)
	return FromValues(t.Values, nshp...)
}

// Expand2 splits the leading axis of t into (d0, d1): [d0*d1, ...] -> [d0, d1, ...].
func Expand2(t *etensor.Float32, d0, d1 int) (*etensor.Float32, error) {
	shp := t.Shapes()
	if len(shp) < 1 || shp[0] != d0*d1 {
		return nil, Shapef("cannot split leading axis of %v into (%d, %d)", shp, d0, d1)
	}
	nshp := append([]int{d0, d1}, shp[1:]...)
	return FromValues(t.Values, nshp...)
}

// CheckRank returns a shape error unless t has given rank and, when
// trailing is non-empty, its last len(trailing) dims equal trailing.
// what names the tensor in the error message.
func CheckRank(what string, t *etensor.Float32, rank int, trailing ...int) error {
	if t == nil {
		return Shapef("%s: tensor is nil", what)
	}
	shp := t.Shapes()
	if len(shp) != rank {
		return Shapef("%s: expected rank %d, got shape %v", what, rank, shp)
	}
	off := rank - len(trailing)
	for i, d := range trailing {
		if shp[off+i] != d {
			return Shapef("%s: expected trailing dims %v, got shape %v", what, trailing, shp)
		}
	}
	for _, d := range shp {
		if d < 1 {
			return Shapef("%s: all dims must be positive, got shape %v", what, shp)
		}
	}
	return nil
}

// CheckIntShape returns a shape error unless t has exactly the given shape.
func CheckIntShape(what string, t *etensor.Int, shp ...int) error {
	if t == nil {
		return Shapef("%s: tensor is nil", what)
	}
	if !sameShape(t.Shapes(), shp) {
		return Shapef("%s: expected shape %v, got %v", what, shp, t.Shapes())
	}
	return nil
}

// CheckShape returns a shape error unless t has exactly the given shape.
func CheckShape(what string, t *etensor.Float32, shp ...int) error {
	if t == nil {
		return Shapef("%s: tensor is nil", what)
	}
	if !sameShape(t.Shapes(), shp) {
		return Shapef("%s: expected shape %v, got %v", what, shp, t.Shapes())
	}
	return nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of t.
func Clone(t *etensor.Float32) *etensor.Float32 {
	c := New(t.Shapes()...)
	copy(c.Values, t.Values)
	return c
}
