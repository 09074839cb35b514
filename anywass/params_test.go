package anywass

import (
	"testing"

	"github.com/unixpickle/anyadv"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestParamsCheck(t *testing.T) {
	if err := DefaultParams().Check(); err != nil {
		t.Errorf("default parameters rejected: %s", err)
	}

	cases := []struct {
		Name   string
		Mutate func(p *Params)
	}{
		{"Regularization", func(p *Params) { p.Regularization = 0 }},
		{"Regularization", func(p *Params) { p.Regularization = -5 }},
		{"MaxIter", func(p *Params) { p.MaxIter = 0 }},
		{"ConjugateSinkhornMaxIter", func(p *Params) { p.ConjugateSinkhornMaxIter = -1 }},
		{"ProjectedSinkhornMaxIter", func(p *Params) { p.ProjectedSinkhornMaxIter = 0 }},
		{"Norm", func(p *Params) { p.Norm = "manhattan" }},
		{"Ball", func(p *Params) { p.Ball = "" }},
		{"P", func(p *Params) { p.P = 0 }},
		{"Eps", func(p *Params) { p.Eps = -0.3 }},
		{"EpsStep", func(p *Params) { p.EpsStep = 0 }},
		{"EpsIter", func(p *Params) { p.EpsIter = 0 }},
		{"EpsFactor", func(p *Params) { p.EpsFactor = 1 }},
		{"KernelSize", func(p *Params) { p.KernelSize = 4 }},
		{"KernelSize", func(p *Params) { p.KernelSize = -3 }},
		{"BatchSize", func(p *Params) { p.BatchSize = 0 }},
	}
	for _, test := range cases {
		params := DefaultParams()
		test.Mutate(params)
		err := params.Check()
		if err == nil {
			t.Errorf("%s: expected error", test.Name)
			continue
		}
		ce, ok := err.(*anyadv.ConfigError)
		if !ok {
			t.Errorf("%s: expected *anyadv.ConfigError, got %T", test.Name, err)
		} else if ce.Param != test.Name {
			t.Errorf("expected error for %s but got one for %s", test.Name, ce.Param)
		}
	}
}

func TestSetParamsAtomic(t *testing.T) {
	c := anyvec64.CurrentCreator()
	attack, err := New(checkerboardNet(c), testParams())
	if err != nil {
		t.Fatal(err)
	}

	bad := testParams()
	bad.Eps = 0.7
	bad.MaxIter = 0
	if err := attack.SetParams(bad); err == nil {
		t.Fatal("expected error")
	}
	if p := attack.Params(); p.Eps != 0.3 || p.MaxIter != 5 {
		t.Error("failed update modified the parameters")
	}

	good := testParams()
	good.Eps = 0.7
	if err := attack.SetParams(good); err != nil {
		t.Fatal(err)
	}
	if p := attack.Params(); p.Eps != 0.7 {
		t.Error("successful update not observable")
	}
}

func TestNewSnapshotsParams(t *testing.T) {
	c := anyvec64.CurrentCreator()
	params := testParams()
	attack, err := New(checkerboardNet(c), params)
	if err != nil {
		t.Fatal(err)
	}
	params.Eps = 123
	if attack.Params().Eps != 0.3 {
		t.Error("attack shares state with the caller's bundle")
	}
}
