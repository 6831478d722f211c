// Package report implements smoothing and plotting of the episodic
// returns of a training run
package report

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MovingAverage returns the averages of all windows of window
// consecutive values of x. Only complete windows are averaged, so the
// result has len(x) - window + 1 values.
func MovingAverage(x []float64, window int) ([]float64, error) {
	if window < 1 || window > len(x) {
		return nil, fmt.Errorf("movingAverage: window must be in [1, %v] "+
			"but got %v", len(x), window)
	}

	avg := make([]float64, len(x)-window+1)
	sum := floats.Sum(x[:window])
	avg[0] = sum / float64(window)
	for i := 1; i < len(avg); i++ {
		sum += x[i+window-1] - x[i-1]
		avg[i] = sum / float64(window)
	}
	return avg, nil
}

// SavitzkyGolay smooths x by fitting a polynomial of degree order to
// each window of window consecutive values by least squares and
// evaluating the polynomial at the center of the window. Within
// window/2 values of either end of x, the polynomial fit to the first
// or last window values is evaluated instead.
//
// The window must be odd and greater than order, and x must have at
// least window values.
func SavitzkyGolay(x []float64, window, order int) ([]float64, error) {
	if window < 1 || window%2 == 0 {
		return nil, fmt.Errorf("savitzkyGolay: window must be a positive "+
			"odd number but got %v", window)
	}
	if order < 0 || order >= window {
		return nil, fmt.Errorf("savitzkyGolay: order must be in [0, %v) "+
			"but got %v", window, order)
	}
	if len(x) < window {
		return nil, fmt.Errorf("savitzkyGolay: need at least %v values "+
			"but got %v", window, len(x))
	}

	proj, err := projection(window, order)
	if err != nil {
		return nil, fmt.Errorf("savitzkyGolay: %v", err)
	}

	n := len(x)
	half := window / 2
	smoothed := make([]float64, n)
	for i := range smoothed {
		var start, row int
		switch {
		case i < half:
			start, row = 0, i
		case i >= n-half:
			start, row = n-window, i-(n-window)
		default:
			start, row = i-half, half
		}
		smoothed[i] = floats.Dot(proj.RawRowView(row), x[start:start+window])
	}
	return smoothed, nil
}

// projection returns the matrix which maps window values to the values
// of their least squares polynomial fit of degree order
func projection(window, order int) (*mat.Dense, error) {
	half := window / 2

	// Vandermonde matrix of positions relative to the window center
	vander := mat.NewDense(window, order+1, nil)
	for i := 0; i < window; i++ {
		pos := float64(i - half)
		for j := 0; j <= order; j++ {
			vander.Set(i, j, math.Pow(pos, float64(j)))
		}
	}

	eye := mat.NewDiagDense(window, nil)
	for i := 0; i < window; i++ {
		eye.SetDiag(i, 1)
	}

	var pinv mat.Dense
	if err := pinv.Solve(vander, eye); err != nil {
		return nil, fmt.Errorf("projection: %v", err)
	}

	var proj mat.Dense
	proj.Mul(vander, &pinv)
	return &proj, nil
}

// Smooth smooths returns with a moving average of window maWindow
// followed by a Savitzky-Golay filter of window sgWindow and degree
// sgOrder. Steps which need more values than available are skipped.
func Smooth(returns []float64, maWindow, sgWindow, sgOrder int) []float64 {
	smoothed := append([]float64{}, returns...)

	if maWindow > 0 && len(smoothed) >= maWindow {
		// Error impossible: window is in [1, len(smoothed)]
		smoothed, _ = MovingAverage(smoothed, maWindow)
	}
	if len(smoothed) >= sgWindow {
		if sg, err := SavitzkyGolay(smoothed, sgWindow, sgOrder); err == nil {
			smoothed = sg
		}
	}
	return smoothed
}
