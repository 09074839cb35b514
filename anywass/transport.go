package anywass

import (
	"fmt"
	"math"

	"github.com/unixpickle/anyadv"
)

// A geometry captures the spatial layout of one input
// sample for the local transport operations.
//
// Transport moves mass between pixel positions within
// each channel; channels never exchange mass.
type geometry struct {
	depth   int
	height  int
	width   int
	chFirst bool
}

func newGeometry(c anyadv.Classifier) (geometry, error) {
	shape := c.InputShape()
	if len(shape) != 3 {
		return geometry{}, fmt.Errorf("input shape must have 3 dimensions, got %d",
			len(shape))
	}
	for _, d := range shape {
		if d < 1 {
			return geometry{}, fmt.Errorf("input shape %v has a non-positive dimension",
				shape)
		}
	}
	if c.ChannelsFirst() {
		return geometry{
			depth:   shape[0],
			height:  shape[1],
			width:   shape[2],
			chFirst: true,
		}, nil
	}
	return geometry{
		depth:   shape[2],
		height:  shape[0],
		width:   shape[1],
	}, nil
}

// SampleSize returns the number of components in one
// sample.
func (g geometry) SampleSize() int {
	return g.depth * g.height * g.width
}

func (g geometry) index(y, x, z int) int {
	if g.chFirst {
		return (z*g.height+y)*g.width + x
	}
	return (y*g.width+x)*g.depth + z
}

// costKernel builds the transport cost between a pixel
// and each neighbor in a kernelSize by kernelSize window
// centered on it, using the p-norm of the pixel offset.
func costKernel(p float64, kernelSize int) []float64 {
	center := kernelSize / 2
	res := make([]float64, kernelSize*kernelSize)
	for i := 0; i < kernelSize; i++ {
		for j := 0; j < kernelSize; j++ {
			di := math.Abs(float64(i - center))
			dj := math.Abs(float64(j - center))
			res[i*kernelSize+j] = math.Pow(math.Pow(di, p)+math.Pow(dj, p), 1/p)
		}
	}
	return res
}

// localTransport computes, for every pixel of one
// sample, the kernel-weighted sum of v over the pixel's
// neighborhood, writing the results to out.
// Neighbors outside the image contribute nothing.
//
// The kernel is symmetric about the center, so the same
// routine serves both marginals of a transport plan.
func (g geometry) localTransport(kernel, v, out []float64, kernelSize int) {
	center := kernelSize / 2
	for z := 0; z < g.depth; z++ {
		for y := 0; y < g.height; y++ {
			for x := 0; x < g.width; x++ {
				var total float64
				for ky := 0; ky < kernelSize; ky++ {
					sy := y + ky - center
					if sy < 0 || sy >= g.height {
						continue
					}
					for kx := 0; kx < kernelSize; kx++ {
						sx := x + kx - center
						if sx < 0 || sx >= g.width {
							continue
						}
						if w := kernel[ky*kernelSize+kx]; w != 0 {
							total += w * v[g.index(sy, sx, z)]
						}
					}
				}
				out[g.index(y, x, z)] = total
			}
		}
	}
}
