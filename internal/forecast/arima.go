package forecast

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/optimize"
)

const (
	// minObservations is the minimum price count required to fit the model.
	minObservations = 30
	// z95 is the two-sided 95% normal quantile for confidence intervals.
	z95 = 1.96
)

// arimaModel is a fitted ARIMA(2,1,2): two autoregressive lags, one
// differencing pass, two moving-average lags, estimated by conditional
// sum-of-squares on the differenced series.
type arimaModel struct {
	c      float64
	phi    [2]float64
	theta  [2]float64
	sigma2 float64

	diffs     []float64
	residuals []float64
	lastPrice float64
}

// fitARIMA estimates the model parameters on a daily closing-price series.
// Parameter vectors outside the stationary/invertible region are rejected.
func fitARIMA(prices []float64) (*arimaModel, error) {
	if len(prices) < minObservations {
		return nil, eris.Errorf("forecast: need at least %d observations, got %d", minObservations, len(prices))
	}
	for _, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, eris.New("forecast: price series contains non-finite values")
		}
	}

	w := difference(prices)

	problem := optimize.Problem{
		Func: func(x []float64) float64 { return css(w, x) },
	}
	initial := []float64{mean(w), 0.1, 0.05, 0.1, 0.05}

	result, err := optimize.Minimize(problem, initial, nil, &optimize.NelderMead{})
	if err != nil {
		return nil, eris.Wrap(err, "forecast: arima fit")
	}

	x := result.X
	if !admissible(x) {
		return nil, eris.New("forecast: fitted parameters outside the stationary region")
	}

	resid, sse := residuals(w, x)
	dof := len(w) - 2 - len(x)
	if dof < 1 {
		dof = 1
	}

	m := &arimaModel{
		c:         x[0],
		phi:       [2]float64{x[1], x[2]},
		theta:     [2]float64{x[3], x[4]},
		sigma2:    sse / float64(dof),
		diffs:     w,
		residuals: resid,
		lastPrice: prices[len(prices)-1],
	}
	if math.IsNaN(m.sigma2) || math.IsInf(m.sigma2, 0) {
		return nil, eris.New("forecast: degenerate residual variance")
	}
	return m, nil
}

// Forecast projects the next steps values with a two-sided 95% confidence
// interval. Returns an error if any projected value is non-finite.
func (m *arimaModel) Forecast(steps int) (values, lower, upper []float64, err error) {
	n := len(m.diffs)

	// Extend the differenced series with point forecasts; future shocks are
	// zero in expectation.
	w := append([]float64(nil), m.diffs...)
	e := append([]float64(nil), m.residuals...)

	values = make([]float64, steps)
	price := m.lastPrice
	for h := 0; h < steps; h++ {
		t := n + h
		wf := m.c +
			m.phi[0]*at(w, t-1) + m.phi[1]*at(w, t-2) +
			m.theta[0]*at(e, t-1) + m.theta[1]*at(e, t-2)
		w = append(w, wf)
		e = append(e, 0)
		price += wf
		values[h] = price
	}

	// Psi weights of the ARMA part, then accumulated for the integrated
	// process to get per-step forecast variance.
	psi := make([]float64, steps)
	for j := 0; j < steps; j++ {
		switch j {
		case 0:
			psi[j] = 1
		case 1:
			psi[j] = m.phi[0] + m.theta[0]
		case 2:
			psi[j] = m.phi[0]*psi[1] + m.phi[1] + m.theta[1]
		default:
			psi[j] = m.phi[0]*psi[j-1] + m.phi[1]*psi[j-2]
		}
	}

	lower = make([]float64, steps)
	upper = make([]float64, steps)
	cumPsi := 0.0
	variance := 0.0
	for h := 0; h < steps; h++ {
		cumPsi += psi[h]
		variance += cumPsi * cumPsi
		band := z95 * math.Sqrt(m.sigma2*variance)
		lower[h] = values[h] - band
		upper[h] = values[h] + band
	}

	for h := 0; h < steps; h++ {
		if math.IsNaN(values[h]) || math.IsInf(values[h], 0) {
			return nil, nil, nil, eris.New("forecast: projection diverged to non-finite values")
		}
	}
	return values, lower, upper, nil
}

// css is the conditional sum of squares objective. Parameter vectors outside
// the stationary/invertible region get a steep penalty so the optimizer
// stays inside it.
func css(w []float64, x []float64) float64 {
	if !admissible(x) {
		excess := math.Abs(x[1]) + math.Abs(x[2]) + math.Abs(x[3]) + math.Abs(x[4])
		return 1e12 * (1 + excess)
	}
	_, sse := residuals(w, x)
	if math.IsNaN(sse) || math.IsInf(sse, 0) {
		return 1e12
	}
	return sse
}

// admissible applies the sufficient triangle condition on each lag pair.
func admissible(x []float64) bool {
	if math.Abs(x[1])+math.Abs(x[2]) >= 1 {
		return false
	}
	if math.Abs(x[3])+math.Abs(x[4]) >= 1 {
		return false
	}
	return true
}

// residuals runs the innovation recursion on the differenced series,
// conditioning on zero pre-sample shocks. The sum of squares skips the first
// two observations used as startup lags.
func residuals(w []float64, x []float64) ([]float64, float64) {
	c, phi1, phi2, theta1, theta2 := x[0], x[1], x[2], x[3], x[4]

	e := make([]float64, len(w))
	sse := 0.0
	for t := 2; t < len(w); t++ {
		pred := c + phi1*w[t-1] + phi2*w[t-2] + theta1*e[t-1] + theta2*e[t-2]
		e[t] = w[t] - pred
		sse += e[t] * e[t]
	}
	return e, sse
}

func difference(prices []float64) []float64 {
	w := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		w[i-1] = prices[i] - prices[i-1]
	}
	return w
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// at reads a possibly pre-sample position; indexes before the series start
// contribute zero.
func at(v []float64, i int) float64 {
	if i < 0 || i >= len(v) {
		return 0
	}
	return v[i]
}
