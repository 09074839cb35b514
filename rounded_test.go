package anyadv

import (
	"reflect"
	"testing"

	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/serializer"
)

func TestRoundedApply(t *testing.T) {
	r, err := NewRounded(2)
	if err != nil {
		t.Fatal(err)
	}
	in := anyvec32.MakeVectorData([]float32{0.1234, -0.5678, 1.004, 0})
	out := r.Apply(in)

	expected := []float32{0.12, -0.57, 1.0, 0}
	actual, ok := out.Data().([]float32)
	if !ok {
		t.Fatalf("expected []float32 output, got %T", out.Data())
	}
	for i, x := range expected {
		if a := actual[i]; a < x-1e-4 || a > x+1e-4 {
			t.Errorf("component %d: expected %f but got %f", i, x, a)
		}
	}

	inData := in.Data().([]float32)
	if inData[0] != 0.1234 {
		t.Error("input was modified")
	}
}

func TestRoundedIdempotent(t *testing.T) {
	r, err := NewRounded(3)
	if err != nil {
		t.Fatal(err)
	}
	in := anyvec32.MakeVectorData([]float32{0.12345, 0.9999, -2.5004})
	once := r.Apply(in)
	twice := r.Apply(once)
	a := once.Data().([]float32)
	b := twice.Data().([]float32)
	for i, x := range a {
		if b[i] != x {
			t.Errorf("component %d: %f changed to %f", i, x, b[i])
		}
	}
}

func TestRoundedValidation(t *testing.T) {
	for _, decimals := range []int{0, -1, -100} {
		if _, err := NewRounded(decimals); err == nil {
			t.Errorf("decimals=%d: expected error", decimals)
		} else if _, ok := err.(*ConfigError); !ok {
			t.Errorf("decimals=%d: expected *ConfigError, got %T", decimals, err)
		}
	}
	if _, err := NewRounded(3); err != nil {
		t.Errorf("decimals=3: unexpected error: %s", err)
	}
}

func TestRoundedSetDecimals(t *testing.T) {
	r, err := NewRounded(2)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.SetDecimals(0); err == nil {
		t.Error("expected error for decimals=0")
	}
	if err := r.SetDecimals(-1); err == nil {
		t.Error("expected error for decimals=-1")
	}
	if r.Decimals() != 2 {
		t.Errorf("failed update changed decimals to %d", r.Decimals())
	}
	if err := r.SetDecimals(3); err != nil {
		t.Fatal(err)
	}
	if r.Decimals() != 3 {
		t.Errorf("expected decimals 3 but got %d", r.Decimals())
	}
}

func TestRoundedFlags(t *testing.T) {
	r, err := NewRounded(1)
	if err != nil {
		t.Fatal(err)
	}
	if r.ApplyFit() || !r.ApplyPredict() {
		t.Error("unexpected default flags")
	}
	r, err = NewRoundedFlags(1, true, false)
	if err != nil {
		t.Fatal(err)
	}
	if !r.ApplyFit() || r.ApplyPredict() {
		t.Error("unexpected explicit flags")
	}
}

func TestRoundedSerialize(t *testing.T) {
	r, err := NewRoundedFlags(4, true, false)
	if err != nil {
		t.Fatal(err)
	}
	data, err := serializer.SerializeAny(r)
	if err != nil {
		t.Fatal(err)
	}
	var r1 *Rounded
	if err := serializer.DeserializeAny(data, &r1); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r, r1) {
		t.Fatal("incorrect result")
	}
}
