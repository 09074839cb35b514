package anywass

import (
	"math"
	"testing"
)

func TestLambertW(t *testing.T) {
	for _, x := range []float64{0, 1e-5, 0.5, 1, math.E, 10, 1e4, 1e8} {
		w := lambertW(x)
		if y := w * math.Exp(w); math.Abs(y-x) > 1e-6*(1+x) {
			t.Errorf("W(%f)=%f, but W*e^W=%f", x, w, y)
		}
	}
}

func testGeometry() (geometry, []float64) {
	g := geometry{depth: 1, height: 5, width: 5, chFirst: true}
	src := make([]float64, 25)
	for i := range src {
		src[i] = 0.2
	}
	src[12] = 1
	return g, src
}

func TestProjectedSinkhornFeasible(t *testing.T) {
	g, src := testGeometry()
	kernel := costKernel(2, 3)

	// Projecting a point that is already inside the ball
	// should roughly return it.
	res, _ := projectedSinkhorn(g, src, src, kernel, 3, 0.5, 1000, 200)
	for i, x := range src {
		if math.Abs(res[i]-x) > 0.05 {
			t.Errorf("pixel %d: expected about %f but got %f", i, x, res[i])
		}
	}
}

func TestProjectedSinkhornIterationCap(t *testing.T) {
	g, src := testGeometry()
	w := make([]float64, len(src))
	for i, x := range src {
		w[i] = x
	}
	w[0] += 2
	w[24] += 3
	kernel := costKernel(2, 3)

	for _, limit := range []int{1, 3, 10} {
		if _, iters := projectedSinkhorn(g, w, src, kernel, 3, 0.1, 50, limit); iters > limit {
			t.Errorf("cap %d: used %d iterations", limit, iters)
		}
	}
	// An easy instance should converge before a huge cap.
	if _, iters := projectedSinkhorn(g, src, src, kernel, 3, 0.5, 1000, 10000); iters == 10000 {
		t.Error("projection never converged")
	}
}

func TestProjectedSinkhornPull(t *testing.T) {
	g, src := testGeometry()
	w := make([]float64, len(src))
	copy(w, src)
	// Pile extra mass far from the source's peak.
	w[0] += 2
	w[4] += 2
	kernel := costKernel(2, 3)

	res, _ := projectedSinkhorn(g, w, src, kernel, 3, 0.05, 500, 400)

	var before, after float64
	for i := range src {
		before += math.Abs(w[i] - src[i])
		after += math.Abs(res[i] - src[i])
	}
	if after >= before {
		t.Errorf("projection did not move toward the ball: %f >= %f", after, before)
	}
}

func TestProjectedSinkhornMassConservation(t *testing.T) {
	g, src := testGeometry()
	w := make([]float64, len(src))
	copy(w, src)
	w[6] += 0.5
	kernel := costKernel(2, 3)

	res, _ := projectedSinkhorn(g, w, src, kernel, 3, 0.3, 500, 400)
	if total := sum(res); math.Abs(total-sum(src)) > 0.3 {
		t.Errorf("mass %f drifted too far from %f", total, sum(src))
	}
}

func TestProjectedSinkhornZeroMass(t *testing.T) {
	g := geometry{depth: 1, height: 3, width: 3, chFirst: true}
	src := make([]float64, 9)
	w := make([]float64, 9)
	w[4] = 1
	kernel := costKernel(2, 3)

	res, iters := projectedSinkhorn(g, w, src, kernel, 3, 0.1, 100, 50)
	if iters != 0 {
		t.Errorf("expected trivial return, got %d iterations", iters)
	}
	for i, x := range res {
		if x != 0 {
			t.Errorf("pixel %d: expected 0 but got %f", i, x)
		}
	}
}

func TestConjugateSinkhornMovesMass(t *testing.T) {
	g, src := testGeometry()
	kernel := costKernel(2, 3)
	grad := make([]float64, len(src))
	grad[10] = 1

	res, iters := conjugateSinkhorn(g, src, grad, kernel, 3, 0.3, 100, 200)
	if iters > 200 {
		t.Errorf("used %d iterations", iters)
	}
	if res[10] <= src[10] {
		t.Errorf("mass at the rewarded pixel went from %f to %f", src[10], res[10])
	}
	if total := sum(res); math.Abs(total-sum(src)) > 1e-3 {
		t.Errorf("mass %f drifted from %f", total, sum(src))
	}
}

func TestConjugateSinkhornIterationCap(t *testing.T) {
	g, src := testGeometry()
	kernel := costKernel(2, 3)
	grad := make([]float64, len(src))
	for i := range grad {
		grad[i] = math.Sin(float64(i))
	}
	for _, limit := range []int{1, 2, 7} {
		if _, iters := conjugateSinkhorn(g, src, grad, kernel, 3, 0.1, 1e5, limit); iters > limit {
			t.Errorf("cap %d: used %d iterations", limit, iters)
		}
	}
}
