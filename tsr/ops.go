// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tsr

import (
	"github.com/chewxy/math32"
	"github.com/emer/etable/etensor"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// General returns a blas32 view of a rank-2 tensor.
func General(t *etensor.Float32) blas32.General {
	r, c := t.Dim(0), t.Dim(1)
	return blas32.General{Rows: r, Cols: c, Stride: c, Data: t.Values}
}

// MatMulT computes y = x * w^T + b for x [N, In], w [Out, In], b [Out].
// b may be nil.
func MatMulT(x, w *etensor.Float32, b []float32) (*etensor.Float32, error) {
	if x.NumDims() != 2 || w.NumDims() != 2 {
		return nil, Shapef("matmul needs rank-2 operands, got %v and %v", x.Shapes(), w.Shapes())
	}
	if x.Dim(1) != w.Dim(1) {
		return nil, Shapef("matmul inner dims differ: input %v, weights %v", x.Shapes(), w.Shapes())
	}
	n, out := x.Dim(0), w.Dim(0)
	if b != nil && len(b) != out {
		return nil, Shapef("bias length %d does not match %d outputs", len(b), out)
	}
	y := New(n, out)
	blas32.Gemm(blas.NoTrans, blas.Trans, 1, General(x), General(w), 0, General(y))
	if b != nil {
		for i := 0; i < n; i++ {
			row := y.Values[i*out : (i+1)*out]
			for j := range row {
				row[j] += b[j]
			}
		}
	}
	return y, nil
}

// AddMatMulT accumulates y += x * w^T for x [N, In], w [Out, In], y [N, Out].
func AddMatMulT(y, x, w *etensor.Float32) {
	blas32.Gemm(blas.NoTrans, blas.Trans, 1, General(x), General(w), 1, General(y))
}

// ReLU returns max(0, x) elementwise as a new tensor.
func ReLU(x *etensor.Float32) *etensor.Float32 {
	y := New(x.Shapes()...)
	for i, v := range x.Values {
		if v > 0 {
			y.Values[i] = v
		}
	}
	return y
}

// Softmax returns the normalized exponential over the last axis.
// The row max is subtracted first so large logits cannot overflow.
func Softmax(x *etensor.Float32) *etensor.Float32 {
	y := New(x.Shapes()...)
	k := x.Dim(x.NumDims() - 1)
	for off := 0; off < len(x.Values); off += k {
		row := x.Values[off : off+k]
		orow := y.Values[off : off+k]
		mx := row[0]
		for _, v := range row[1:] {
			mx = math32.Max(mx, v)
		}
		var sum float32
		for j, v := range row {
			e := math32.Exp(v - mx)
			orow[j] = e
			sum += e
		}
		for j := range orow {
			orow[j] /= sum
		}
	}
	return y
}

// strides3 views shp as (outer, n, inner) around axis.
func strides3(shp []int, axis int) (outer, n, inner int) {
	outer, inner = 1, 1
	for i := 0; i < axis; i++ {
		outer *= shp[i]
	}
	for i := axis + 1; i < len(shp); i++ {
		inner *= shp[i]
	}
	return outer, shp[axis], inner
}

// MeanAxis returns the unweighted mean of x over axis.  If keep is true
// the axis is retained with size 1, otherwise it is removed.
func MeanAxis(x *etensor.Float32, axis int, keep bool) (*etensor.Float32, error) {
	shp := x.Shapes()
	if axis < 0 || axis >= len(shp) {
		return nil, Shapef("mean over axis %d of shape %v", axis, shp)
	}
	outer, n, inner := strides3(shp, axis)
	var oshp []int
	oshp = append(oshp, shp[:axis]...)
	if keep {
		oshp = append(oshp, 1)
	}
	oshp = append(oshp, shp[axis+1:]...)
	if len(oshp) == 0 {
		oshp = []int{1}
	}
	y := New(oshp...)
	for o := 0; o < outer; o++ {
		for j := 0; j < inner; j++ {
			var sum float32
			for i := 0; i < n; i++ {
				sum += x.Values[(o*n+i)*inner+j]
			}
			y.Values[o*inner+j] = sum / float32(n)
		}
	}
	return y, nil
}

// BroadcastAxis returns a + b where b has size 1 (or is absent) on axis
// and equals a on every other axis.  sign multiplies b before adding.
func BroadcastAxis(a, b *etensor.Float32, axis int, sign float32) (*etensor.Float32, error) {
	ashp := a.Shapes()
	bshp := b.Shapes()
	if axis < 0 || axis >= len(ashp) || len(bshp) != len(ashp) || bshp[axis] != 1 {
		return nil, Shapef("cannot broadcast %v onto %v along axis %d", bshp, ashp, axis)
	}
	for i := range ashp {
		if i != axis && ashp[i] != bshp[i] {
			return nil, Shapef("cannot broadcast %v onto %v along axis %d", bshp, ashp, axis)
		}
	}
	outer, n, inner := strides3(ashp, axis)
	y := New(ashp...)
	for o := 0; o < outer; o++ {
		for i := 0; i < n; i++ {
			for j := 0; j < inner; j++ {
				idx := (o*n+i)*inner + j
				y.Values[idx] = a.Values[idx] + sign*b.Values[o*inner+j]
			}
		}
	}
	return y, nil
}

// SumProdLast returns sum_k x[..., k] * v[k] over the last axis of x.
func SumProdLast(x *etensor.Float32, v []float32) (*etensor.Float32, error) {
	shp := x.Shapes()
	k := shp[len(shp)-1]
	if k != len(v) {
		return nil, Shapef("last axis of %v does not match %d support values", shp, len(v))
	}
	oshp := shp[:len(shp)-1]
	if len(oshp) == 0 {
		oshp = []int{1}
	}
	y := New(oshp...)
	for r := range y.Values {
		row := x.Values[r*k : (r+1)*k]
		var sum float32
		for j, p := range row {
			sum += p * v[j]
		}
		y.Values[r] = sum
	}
	return y, nil
}

// SwapLead swaps the two leading axes: [D0, D1, ...] -> [D1, D0, ...].
// Used to move between batch-major and time-major layouts.
func SwapLead(x *etensor.Float32) (*etensor.Float32, error) {
	shp := x.Shapes()
	if len(shp) < 2 {
		return nil, Shapef("swap of leading axes needs rank >= 2, got %v", shp)
	}
	d0, d1 := shp[0], shp[1]
	inner := Prod(shp[2:])
	oshp := append([]int{d1, d0}, shp[2:]...)
	y := New(oshp...)
	for i := 0; i < d0; i++ {
		for j := 0; j < d1; j++ {
			copy(y.Values[(j*d0+i)*inner:(j*d0+i+1)*inner], x.Values[(i*d1+j)*inner:(i*d1+j+1)*inner])
		}
	}
	return y, nil
}

// Concat joins rank-2 tensors [N, Di] along the feature axis into [N, sum Di].
func Concat(ts ...*etensor.Float32) (*etensor.Float32, error) {
	if len(ts) == 0 {
		return nil, Shapef("concat of no tensors")
	}
	n := -1
	width := 0
	for i, t := range ts {
		if t.NumDims() != 2 {
			return nil, Shapef("concat operand %d must be rank 2, got %v", i, t.Shapes())
		}
		if n >= 0 && t.Dim(0) != n {
			return nil, Shapef("concat operand %d has %d rows, expected %d", i, t.Dim(0), n)
		}
		n = t.Dim(0)
		width += t.Dim(1)
	}
	y := New(n, width)
	for r := 0; r < n; r++ {
		off := r * width
		for _, t := range ts {
			d := t.Dim(1)
			copy(y.Values[off:off+d], t.Values[r*d:(r+1)*d])
			off += d
		}
	}
	return y, nil
}

// OneHot encodes each index of idx as a row of width n, returning
// [len(idx), n].  Indexes outside [0, n) are a shape error.
func OneHot(idx *etensor.Int, n int) (*etensor.Float32, error) {
	if n < 1 {
		return nil, Configf("one-hot width must be positive, got %d", n)
	}
	y := New(len(idx.Values), n)
	for r, v := range idx.Values {
		if v < 0 || v >= n {
			return nil, Shapef("one-hot index %d at position %d outside [0, %d)", v, r, n)
		}
		y.Values[r*n+v] = 1
	}
	return y, nil
}

// Column returns a [N, 1] copy of the values of t in row-major order.
func Column(t *etensor.Float32) *etensor.Float32 {
	y := New(len(t.Values), 1)
	copy(y.Values, t.Values)
	return y
}

// Argmax returns the index of the largest value in each row of a
// rank-2 tensor [N, A].  Ties resolve to the lowest index.
func Argmax(x *etensor.Float32) ([]int, error) {
	if x.NumDims() != 2 {
		return nil, Shapef("argmax needs rank 2, got %v", x.Shapes())
	}
	n, a := x.Dim(0), x.Dim(1)
	out := make([]int, n)
	for r := 0; r < n; r++ {
		row := x.Values[r*a : (r+1)*a]
		best := 0
		for j, v := range row {
			if v > row[best] {
				best = j
			}
		}
		out[r] = best
	}
	return out, nil
}
