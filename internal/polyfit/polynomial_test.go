package polyfit

import (
	"errors"
	"math"
	"testing"
)

func cubic(x float64) float64 {
	return 2.5 - 1.25*x + 0.5*x*x + 0.125*x*x*x
}

func TestSolve_ExactCubic(t *testing.T) {
	c := New(3)
	for x := -5.0; x <= 5.0; x += 0.5 {
		c.AddPoint(x, cubic(x))
	}
	if err := c.Solve(); err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	want := []float64{2.5, -1.25, 0.5, 0.125}
	for i, w := range want {
		if got := c.Coeff(i); math.Abs(got-w) > 1e-3 {
			t.Errorf("coeff[%d]: got %v, want %v", i, got, w)
		}
	}
	if rms := c.RMSError(); rms > 1e-6 {
		t.Errorf("RMSError: got %v, want ~0", rms)
	}
}

func TestSolve_MinimumPoints(t *testing.T) {
	c := New(3)
	for _, x := range []float64{-1, 0.5, 2, 3} {
		c.AddPoint(x, cubic(x))
	}
	if err := c.Solve(); err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	for _, x := range []float64{-2, 1, 4} {
		if got, want := c.RegVal(x), cubic(x); math.Abs(got-want) > 1e-3 {
			t.Errorf("RegVal(%v): got %v, want %v", x, got, want)
		}
	}
}

func TestSolve_ReducesDegree(t *testing.T) {
	c := New(3)
	c.AddPoint(0, 1)
	c.AddPoint(2, 5)

	if err := c.Solve(); err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if got := c.Coeff(1); math.Abs(got-2) > 1e-9 {
		t.Errorf("slope: got %v, want 2", got)
	}
	if c.Coeff(2) != 0 || c.Coeff(3) != 0 {
		t.Errorf("higher coefficients should be zero, got %v", c.Coefficients())
	}
}

func TestSolve_NoPoints(t *testing.T) {
	c := New(2)
	if err := c.Solve(); !errors.Is(err, ErrNoPoints) {
		t.Errorf("expected ErrNoPoints, got %v", err)
	}
}

func TestSolve_SingularKeepsCoefficients(t *testing.T) {
	c := New(2)
	c.SetCoeff(0, 7)
	c.SetCoeff(1, 3)

	// Three samples at the same x cannot determine a quadratic.
	c.AddPoint(1, 1)
	c.AddPoint(1, 2)
	c.AddPoint(1, 3)

	if err := c.Solve(); !errors.Is(err, ErrSingular) {
		t.Fatalf("expected ErrSingular, got %v", err)
	}
	if c.Coeff(0) != 7 || c.Coeff(1) != 3 {
		t.Errorf("coefficients changed on failure: %v", c.Coefficients())
	}
}

func TestRegVal_ImplicitSolve(t *testing.T) {
	c := New(1)
	c.AddPoint(0, 1)
	c.AddPoint(1, 3)
	c.AddPoint(2, 5)

	if got := c.RegVal(10); math.Abs(got-21) > 1e-9 {
		t.Errorf("RegVal(10): got %v, want 21", got)
	}
}

func TestSetCoeff_NotOverwritten(t *testing.T) {
	c := New(3)
	c.SetCoeff(1, 1.1)
	c.SetCoeff(2, 0.0005)

	if got, want := c.RegVal(100), 1.1*100+0.0005*100*100; math.Abs(got-want) > 1e-9 {
		t.Errorf("RegVal(100): got %v, want %v", got, want)
	}
	if got, want := c.Derivative(100), 1.1+2*0.0005*100; math.Abs(got-want) > 1e-9 {
		t.Errorf("Derivative(100): got %v, want %v", got, want)
	}
}

func TestNew_ClampsDegree(t *testing.T) {
	if d := New(0).Degree(); d != 1 {
		t.Errorf("New(0).Degree() = %d, want 1", d)
	}
	if d := New(40).Degree(); d != MaxDegree {
		t.Errorf("New(40).Degree() = %d, want %d", d, MaxDegree)
	}
}

func TestClear(t *testing.T) {
	c := New(2)
	c.AddPoint(1, 1)
	c.AddPoint(2, 4)
	c.AddPoint(3, 9)
	_ = c.Solve()
	c.Clear()

	if c.Count() != 0 {
		t.Errorf("Count after Clear: got %d", c.Count())
	}
	if c.RMSError() != 0 {
		t.Errorf("RMSError after Clear: got %v", c.RMSError())
	}
	for i, v := range c.Coefficients() {
		if v != 0 {
			t.Errorf("coeff[%d] after Clear: got %v", i, v)
		}
	}
}
