// Package polyfit implements least-squares polynomial regression.
//
// A Curve accumulates sums of powers of the samples it is given, so fitting
// never revisits the raw points: the normal equations are built from the
// running sums and solved by Gaussian elimination with partial pivoting.
// The raw samples are retained only to report the fit error.
//
// # Degree Reduction
//
// A curve of degree N needs at least N+1 samples. When fewer have been added,
// Solve fits the highest degree the samples support and zeroes the remaining
// coefficients.
//
// # Failure
//
// Solve reports a singular system with ErrSingular and leaves the previous
// coefficients in place, so a caller that ignores the error keeps evaluating
// the last good fit.
package polyfit

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MaxDegree is the highest polynomial degree a Curve supports.
const MaxDegree = 25

var (
	// ErrNoPoints is returned by Solve when no samples have been added.
	ErrNoPoints = errors.New("polyfit: no points to fit")
	// ErrSingular is returned by Solve when the normal equations have no unique solution.
	ErrSingular = errors.New("polyfit: singular normal equations")
)

// Curve is a polynomial regression model y = C[0] + C[1]x + ... + C[N]x^N.
type Curve struct {
	degree int

	// sumX[k] = Σ x^k for k in [0, 2N]; sumYX[k] = Σ y·x^k for k in [0, N].
	sumX  []float64
	sumYX []float64

	coeff []float64
	stale bool

	xs []float64
	ys []float64
}

// New returns an empty curve of the given degree, clamped to [1, MaxDegree].
func New(degree int) *Curve {
	if degree < 1 {
		degree = 1
	}
	if degree > MaxDegree {
		degree = MaxDegree
	}
	return &Curve{
		degree: degree,
		sumX:   make([]float64, 2*degree+1),
		sumYX:  make([]float64, degree+1),
		coeff:  make([]float64, degree+1),
	}
}

// Degree returns the configured degree of the curve.
func (c *Curve) Degree() int {
	return c.degree
}

// Count returns the number of samples added so far.
func (c *Curve) Count() int {
	return len(c.xs)
}

// AddPoint adds one sample and marks the coefficients stale.
func (c *Curve) AddPoint(x, y float64) {
	xk := 1.0
	for k := range c.sumX {
		c.sumX[k] += xk
		if k <= c.degree {
			c.sumYX[k] += y * xk
		}
		xk *= x
	}
	c.xs = append(c.xs, x)
	c.ys = append(c.ys, y)
	c.stale = true
}

// Clear removes all samples and resets the coefficients to zero.
func (c *Curve) Clear() {
	for i := range c.sumX {
		c.sumX[i] = 0
	}
	for i := range c.sumYX {
		c.sumYX[i] = 0
	}
	for i := range c.coeff {
		c.coeff[i] = 0
	}
	c.xs = c.xs[:0]
	c.ys = c.ys[:0]
	c.stale = false
}

// SetCoeff sets coefficient i directly. Explicit coefficients count as a
// solved state, so RegVal will not refit over them.
func (c *Curve) SetCoeff(i int, v float64) {
	if i < 0 || i > c.degree {
		return
	}
	c.coeff[i] = v
	c.stale = false
}

// Coeff returns coefficient i, or 0 when i is out of range.
func (c *Curve) Coeff(i int) float64 {
	if i < 0 || i > c.degree {
		return 0
	}
	return c.coeff[i]
}

// Coefficients returns a copy of the coefficient vector, lowest power first.
func (c *Curve) Coefficients() []float64 {
	out := make([]float64, len(c.coeff))
	copy(out, c.coeff)
	return out
}

// Solve fits the coefficients to the accumulated samples.
func (c *Curve) Solve() error {
	n := len(c.xs)
	if n == 0 {
		return ErrNoPoints
	}
	degree := c.degree
	if n <= degree {
		degree = n - 1
	}

	size := degree + 1
	aug := mat.NewDense(size, size+1, nil)
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			aug.Set(row, col, c.sumX[row+col])
		}
		aug.Set(row, size, c.sumYX[row])
	}

	solution, err := gaussianElimination(aug, size)
	if err != nil {
		return err
	}

	for i := range c.coeff {
		c.coeff[i] = 0
	}
	copy(c.coeff, solution)
	c.stale = false
	return nil
}

// gaussianElimination reduces the augmented matrix in place and back-substitutes.
func gaussianElimination(aug *mat.Dense, size int) ([]float64, error) {
	for col := 0; col < size; col++ {
		pivot := col
		best := math.Abs(aug.At(col, col))
		for row := col + 1; row < size; row++ {
			if v := math.Abs(aug.At(row, col)); v > best {
				best, pivot = v, row
			}
		}
		if best == 0 || math.IsNaN(best) {
			return nil, ErrSingular
		}
		if pivot != col {
			top, other := aug.RawRowView(col), aug.RawRowView(pivot)
			for k := range top {
				top[k], other[k] = other[k], top[k]
			}
		}

		pivotRow := aug.RawRowView(col)
		for row := col + 1; row < size; row++ {
			r := aug.RawRowView(row)
			factor := r[col] / pivotRow[col]
			if factor == 0 {
				continue
			}
			for k := col; k <= size; k++ {
				r[k] -= factor * pivotRow[k]
			}
		}
	}

	solution := make([]float64, size)
	for row := size - 1; row >= 0; row-- {
		r := aug.RawRowView(row)
		sum := r[size]
		for k := row + 1; k < size; k++ {
			sum -= r[k] * solution[k]
		}
		solution[row] = sum / r[row]
		if math.IsNaN(solution[row]) || math.IsInf(solution[row], 0) {
			return nil, ErrSingular
		}
	}
	return solution, nil
}

// RegVal evaluates the polynomial at x, refitting first if samples were added
// since the last solve. A failed refit evaluates the previous coefficients.
func (c *Curve) RegVal(x float64) float64 {
	if c.stale {
		_ = c.Solve()
	}
	y := 0.0
	for i := c.degree; i >= 0; i-- {
		y = y*x + c.coeff[i]
	}
	return y
}

// Derivative evaluates dy/dx at x using the current coefficients.
func (c *Curve) Derivative(x float64) float64 {
	if c.stale {
		_ = c.Solve()
	}
	d := 0.0
	for i := c.degree; i >= 1; i-- {
		d = d*x + float64(i)*c.coeff[i]
	}
	return d
}

// RMSError returns the root-mean-square residual of the current fit over all
// samples, or 0 when there are none.
func (c *Curve) RMSError() float64 {
	n := len(c.xs)
	if n == 0 {
		return 0
	}
	residuals := make([]float64, n)
	for i, x := range c.xs {
		residuals[i] = c.RegVal(x) - c.ys[i]
	}
	return floats.Norm(residuals, 2) / math.Sqrt(float64(n))
}
