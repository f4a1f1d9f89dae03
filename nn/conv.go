// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/emer/etable/etensor"
	"github.com/emer/qnet/tsr"
)

// Conv2D is a 2D convolution with square kernel, no padding, over
// [B, InCh, H, W] inputs, producing [B, OutCh, OH, OW].
type Conv2D struct {

	// name of the layer, used for parameter names
	Name string

	// number of input channels
	InCh int

	// number of output channels (filters)
	OutCh int

	// kernel size in both dims
	Kernel int

	// stride in both dims
	Stride int

	// filter weights [OutCh, InCh*Kernel*Kernel]
	Wts *etensor.Float32

	// biases [OutCh]
	Bias *etensor.Float32
}

// NewConv2D returns a zero-initialized Conv2D layer.
func NewConv2D(name string, inCh, outCh, kernel, stride int) (*Conv2D, error) {
	if inCh < 1 || outCh < 1 || kernel < 1 || stride < 1 {
		return nil, tsr.Configf("conv layer %q needs positive channels, kernel and stride, got in %d out %d kernel %d stride %d", name, inCh, outCh, kernel, stride)
	}
	cv := &Conv2D{Name: name, InCh: inCh, OutCh: outCh, Kernel: kernel, Stride: stride}
	cv.Wts = tsr.New(outCh, inCh*kernel*kernel)
	cv.Bias = tsr.New(outCh)
	return cv, nil
}

// OutSize returns the output spatial size for an input of size n,
// or 0 if the kernel does not fit.
func (cv *Conv2D) OutSize(n int) int {
	if n < cv.Kernel {
		return 0
	}
	return (n-cv.Kernel)/cv.Stride + 1
}

func (cv *Conv2D) Forward(x *etensor.Float32) (*etensor.Float32, error) {
	if x == nil || x.NumDims() != 4 || x.Dim(1) != cv.InCh {
		var shp []int
		if x != nil {
			shp = x.Shapes()
		}
		return nil, tsr.Shapef("%s input: expected [B, %d, H, W], got %v", cv.Name, cv.InCh, shp)
	}
	nb, h, w := x.Dim(0), x.Dim(2), x.Dim(3)
	oh, ow := cv.OutSize(h), cv.OutSize(w)
	if oh < 1 || ow < 1 {
		return nil, tsr.Shapef("%s input: %dx%d image is smaller than the %d kernel", cv.Name, h, w, cv.Kernel)
	}
	cols := cv.im2col(x, oh, ow)
	y, err := tsr.MatMulT(cols, cv.Wts, cv.Bias.Values)
	if err != nil {
		return nil, err
	}
	// y is [B*OH*OW, OutCh] -> [B, OutCh, OH, OW]
	npix := oh * ow
	out := tsr.New(nb, cv.OutCh, oh, ow)
	for b := 0; b < nb; b++ {
		for p := 0; p < npix; p++ {
			row := y.Values[(b*npix+p)*cv.OutCh:]
			for o := 0; o < cv.OutCh; o++ {
				out.Values[(b*cv.OutCh+o)*npix+p] = row[o]
			}
		}
	}
	return out, nil
}

// im2col lays out every receptive field as one row:
// [B*OH*OW, InCh*Kernel*Kernel].
func (cv *Conv2D) im2col(x *etensor.Float32, oh, ow int) *etensor.Float32 {
	nb, h, w := x.Dim(0), x.Dim(2), x.Dim(3)
	k := cv.Kernel
	width := cv.InCh * k * k
	cols := tsr.New(nb*oh*ow, width)
	r := 0
	for b := 0; b < nb; b++ {
		for oy := 0; oy < oh; oy++ {
			for ox := 0; ox < ow; ox++ {
				row := cols.Values[r*width : (r+1)*width]
				ci := 0
				for c := 0; c < cv.InCh; c++ {
					plane := x.Values[(b*cv.InCh+c)*h*w:]
					for ky := 0; ky < k; ky++ {
						src := plane[(oy*cv.Stride+ky)*w+ox*cv.Stride:]
						copy(row[ci:ci+k], src[:k])
						ci += k
					}
				}
				r++
			}
		}
	}
	return cols
}

func (cv *Conv2D) Params() []*Param {
	fanIn := cv.InCh * cv.Kernel * cv.Kernel
	return []*Param{
		{Name: cv.Name + ".Wts", Tensor: cv.Wts, FanIn: fanIn},
		{Name: cv.Name + ".Bias", Tensor: cv.Bias, FanIn: fanIn, Bias: true},
	}
}
