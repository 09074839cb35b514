package anyadv

import (
	"fmt"

	"github.com/unixpickle/anyvec"
)

// OneHot produces a packed one-hot label matrix with one
// row per entry of classes.
func OneHot(c anyvec.Creator, classes []int, numClasses int) anyvec.Vector {
	data := make([]float64, len(classes)*numClasses)
	for i, class := range classes {
		if class < 0 || class >= numClasses {
			panic(fmt.Sprintf("class %d out of range [0, %d)", class, numClasses))
		}
		data[i*numClasses+class] = 1
	}
	return c.MakeVectorData(c.MakeNumericList(data))
}

// ClassIndices returns the index of the maximum score in
// each of the n rows of a packed score matrix.
func ClassIndices(preds anyvec.Vector, n int) []int {
	if preds.Len()%n != 0 {
		panic("batch size must divide prediction length")
	}
	cols := preds.Len() / n
	res := make([]int, n)
	for i := range res {
		row := preds.Slice(i*cols, (i+1)*cols)
		res[i] = anyvec.MaxIndex(row)
	}
	return res
}

// PredictedLabels runs the classifier on a packed batch
// of n samples and one-hot encodes the winning class of
// each one.
// Untargeted attacks use this to avoid a label-leaking
// dependence on ground truth labels.
func PredictedLabels(c Classifier, x anyvec.Vector, n int) anyvec.Vector {
	preds := c.Predict(x, n)
	return OneHot(x.Creator(), ClassIndices(preds, n), c.NumClasses())
}
