// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tsr

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
)

// difTol is the numerical difference tolerance for comparing vs. target values
const difTol = float32(1.0e-6)

func TestReshapeShares(t *testing.T) {
	x := New(2, 3, 4)
	for i := range x.Values {
		x.Values[i] = float32(i)
	}
	f, err := Flatten2(x)
	if err != nil {
		t.Fatal(err)
	}
	if f.Dim(0) != 6 || f.Dim(1) != 4 {
		t.Errorf("flatten shape: %v", f.Shapes())
	}
	e, err := Expand2(f, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := range e.Values {
		if e.Values[i] != x.Values[i] {
			t.Errorf("round trip differs at %d: %v vs %v", i, e.Values[i], x.Values[i])
		}
	}
	r, err := Reshape(x, -1, 4)
	if err != nil {
		t.Fatal(err)
	}
	if r.Dim(0) != 6 {
		t.Errorf("inferred dim: %v", r.Shapes())
	}
	if _, err := Reshape(x, 5, -1); !errors.Is(err, ErrShape) {
		t.Errorf("expected shape error, got %v", err)
	}
	if _, err := Expand2(f, 4, 2); !errors.Is(err, ErrShape) {
		t.Errorf("expected shape error, got %v", err)
	}
}

func TestMatMulT(t *testing.T) {
	x, _ := FromValues([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	w, _ := FromValues([]float32{1, 0, 0, 0, 1, 1}, 2, 3)
	y, err := MatMulT(x, w, []float32{0.5, -1})
	if err != nil {
		t.Fatal(err)
	}
	cor := []float32{1.5, 4, 4.5, 10}
	for i, c := range cor {
		if dif := math32.Abs(y.Values[i] - c); dif > difTol {
			t.Errorf("matmul err: idx: %v, y: %v, cor: %v", i, y.Values[i], c)
		}
	}
	bad, _ := FromValues([]float32{1, 2}, 1, 2)
	if _, err := MatMulT(x, bad, nil); !errors.Is(err, ErrShape) {
		t.Errorf("expected shape error, got %v", err)
	}
}

func TestSoftmax(t *testing.T) {
	x, _ := FromValues([]float32{0, 0, 0, 0, 1000, 1001, 999, -5}, 2, 4)
	p := Softmax(x)
	for r := 0; r < 2; r++ {
		var sum float32
		for _, v := range p.Values[r*4 : (r+1)*4] {
			if math32.IsNaN(v) {
				t.Fatalf("NaN in softmax row %d", r)
			}
			sum += v
		}
		if dif := math32.Abs(sum - 1); dif > difTol {
			t.Errorf("row %d sums to %v", r, sum)
		}
	}
	if dif := math32.Abs(p.Values[0] - 0.25); dif > difTol {
		t.Errorf("uniform row: %v", p.Values[:4])
	}
}

func TestMeanBroadcast(t *testing.T) {
	x, _ := FromValues([]float32{1, 2, 3, 4, 5, 6}, 1, 2, 3)
	m, err := MeanAxis(x, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	cor := []float32{2.5, 3.5, 4.5}
	for i, c := range cor {
		if m.Values[i] != c {
			t.Errorf("mean err: idx: %v, m: %v, cor: %v", i, m.Values[i], c)
		}
	}
	if m.NumDims() != 3 || m.Dim(1) != 1 {
		t.Errorf("keep dims: %v", m.Shapes())
	}
	d, err := BroadcastAxis(x, m, 1, -1)
	if err != nil {
		t.Fatal(err)
	}
	cord := []float32{-1.5, -1.5, -1.5, 1.5, 1.5, 1.5}
	for i, c := range cord {
		if d.Values[i] != c {
			t.Errorf("broadcast err: idx: %v, d: %v, cor: %v", i, d.Values[i], c)
		}
	}
}

func TestConcatOneHot(t *testing.T) {
	idx, _ := IntFromValues([]int{2, 0}, 2)
	oh, err := OneHot(idx, 3)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := FromValues([]float32{7, 8}, 2, 1)
	c, err := Concat(a, oh)
	if err != nil {
		t.Fatal(err)
	}
	cor := []float32{7, 0, 0, 1, 8, 1, 0, 0}
	for i, v := range cor {
		if c.Values[i] != v {
			t.Errorf("concat err: idx: %v, c: %v, cor: %v", i, c.Values[i], v)
		}
	}
	bad, _ := IntFromValues([]int{3}, 1)
	if _, err := OneHot(bad, 3); !errors.Is(err, ErrShape) {
		t.Errorf("expected shape error, got %v", err)
	}
}

func TestSwapLead(t *testing.T) {
	x, _ := FromValues([]float32{1, 2, 3, 4, 5, 6}, 2, 3, 1)
	y, err := SwapLead(x)
	if err != nil {
		t.Fatal(err)
	}
	cor := []float32{1, 4, 2, 5, 3, 6}
	for i, v := range cor {
		if y.Values[i] != v {
			t.Errorf("swap err: idx: %v, y: %v, cor: %v", i, y.Values[i], v)
		}
	}
}

func TestArgmax(t *testing.T) {
	x, _ := FromValues([]float32{1, 3, 3, -1, -2, -0.5}, 2, 3)
	a, err := Argmax(x)
	if err != nil {
		t.Fatal(err)
	}
	if a[0] != 1 || a[1] != 2 {
		t.Errorf("argmax: %v", a)
	}
}
