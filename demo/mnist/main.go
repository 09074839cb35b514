// Command mnist fits a small classifier on MNIST and
// then attacks it with transport-bounded perturbations,
// reporting the accuracy before and after.
package main

import (
	"log"
	"math/rand"

	"github.com/unixpickle/anyadv"
	"github.com/unixpickle/anyadv/anycls"
	"github.com/unixpickle/anyadv/anywass"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/mnist"
	"github.com/unixpickle/rip"
)

const (
	BatchSize    = 100
	NumEpochs    = 3
	LearningRate = 0.1

	AttackCount = 100
)

var Creator anyvec.Creator

func main() {
	log.Println("Setting up...")
	Creator = anyvec32.CurrentCreator()

	net := anycls.NewNet(Creator, []int{28, 28, 1}, false, 0, 10)
	net.SetClipRange(0, 1)

	log.Println("Press ctrl+c once to stop training...")
	train(net, mnist.LoadTrainingDataSet().Samples, rip.NewRIP().Chan())

	testing := mnist.LoadTestingDataSet().Samples[:AttackCount]
	x, labels := packSamples(testing)

	preds := anyadv.ClassIndices(net.Predict(x, len(testing)), len(testing))
	log.Printf("Accuracy before attack: %.2f%%", accuracy(preds, labels)*100)

	params := anywass.DefaultParams()
	params.Regularization = 100
	params.MaxIter = 30
	params.ConjugateSinkhornMaxIter = 50
	params.ProjectedSinkhornMaxIter = 50
	params.EpsIter = 5
	params.BatchSize = 25
	attack, err := anywass.New(net, params)
	if err != nil {
		log.Fatal(err)
	}

	log.Println("Generating adversarial examples...")
	adv, err := attack.Generate(x, len(testing), nil)
	if err != nil {
		log.Fatal(err)
	}
	advPreds := anyadv.ClassIndices(net.Predict(adv, len(testing)), len(testing))
	log.Printf("Accuracy after attack: %.2f%%", accuracy(advPreds, labels)*100)
}

func train(net *anycls.Net, samples []mnist.Sample, stop <-chan struct{}) {
	params := net.Parameters()
	var iterNum int
	for epoch := 0; epoch < NumEpochs; epoch++ {
		perm := rand.Perm(len(samples))
		for i := 0; i+BatchSize <= len(samples); i += BatchSize {
			select {
			case <-stop:
				return
			default:
			}
			batch := make([]mnist.Sample, BatchSize)
			for j := range batch {
				batch[j] = samples[perm[i+j]]
			}
			x, labels := packSamples(batch)
			y := anyadv.OneHot(Creator, labels, 10)

			out := net.Apply(anydiff.NewConst(x), BatchSize)
			comb := anydiff.Mul(anydiff.NewConst(y), out)
			cost := anydiff.Scale(anydiff.Sum(comb),
				Creator.MakeNumeric(-1.0/BatchSize))

			grad := anydiff.NewGrad(params...)
			one := Creator.MakeVectorData(Creator.MakeNumericList([]float64{1}))
			cost.Propagate(one, grad)
			grad.Scale(Creator.MakeNumeric(-LearningRate))
			grad.AddToVars()

			if iterNum%100 == 0 {
				log.Printf("iter %d: cost=%v", iterNum, anyvec.Sum(cost.Output()))
			}
			iterNum++
		}
	}
}

func packSamples(samples []mnist.Sample) (anyvec.Vector, []int) {
	data := make([]float64, 0, len(samples)*28*28)
	labels := make([]int, len(samples))
	for i, s := range samples {
		data = append(data, s.Intensities...)
		labels[i] = s.Label
	}
	return Creator.MakeVectorData(Creator.MakeNumericList(data)), labels
}

func accuracy(preds, labels []int) float64 {
	var correct int
	for i, p := range preds {
		if p == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(preds))
}
