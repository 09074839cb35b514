package anywass

import (
	"fmt"
	"math"

	"github.com/unixpickle/anyvec"
)

// The solvers in this package work on raw float64
// slices, like the dynamic programming in other packages
// of this family.
// These helpers move data between vectors and slices for
// any creator with a float numeric list type.

func floatData(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float64:
		return data
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	default:
		panic(fmt.Sprintf("unsupported numeric list type: %T", data))
	}
}

func makeVector(c anyvec.Creator, data []float64) anyvec.Vector {
	return c.MakeVectorData(c.MakeNumericList(data))
}

func dot(a, b []float64) float64 {
	var sum float64
	for i, x := range a {
		sum += x * b[i]
	}
	return sum
}

func sum(a []float64) float64 {
	var res float64
	for _, x := range a {
		res += x
	}
	return res
}

func norm1(a []float64) float64 {
	var res float64
	for _, x := range a {
		res += math.Abs(x)
	}
	return res
}

func norm2(a []float64) float64 {
	var res float64
	for _, x := range a {
		res += x * x
	}
	return math.Sqrt(res)
}

func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	} else if x > max {
		return max
	}
	return x
}
