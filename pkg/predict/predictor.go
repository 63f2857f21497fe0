// Package predict implements the price predictor collaborator: an
// ordinary least-squares regression of listing price on vehicle age and
// mileage over the active inventory. It is deliberately small — the
// point is the write-back contract (predicted_price and
// price_difference, no audit entries), not model sophistication.
package predict

import (
	"math"
	"sync"
	"time"

	"github.com/lotwatch/lotwatch/pkg/errors"
	"github.com/lotwatch/lotwatch/pkg/inventory"
)

// DefaultMinSamples is the minimum number of usable records required
// before a model is fit.
const DefaultMinSamples = 10

// Metrics summarizes a completed training pass, computed over the
// training set.
type Metrics struct {
	Samples   int       `json:"samples"`
	MAE       float64   `json:"mae"`
	RMSE      float64   `json:"rmse"`
	R2        float64   `json:"r2"`
	TrainedAt time.Time `json:"trained_at"`
}

// model holds the fitted coefficients: price = intercept + a*age + b*mileage.
type model struct {
	intercept float64
	age       float64
	mileage   float64
	refYear   int
}

// Predictor fits and serves price predictions. Safe for concurrent use;
// training swaps the model under a write lock while predictions read.
type Predictor struct {
	mu         sync.RWMutex
	model      *model
	metrics    Metrics
	minSamples int
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithMinSamples overrides the minimum training set size.
func WithMinSamples(n int) Option {
	return func(p *Predictor) {
		if n > 0 {
			p.minSamples = n
		}
	}
}

// New creates an untrained Predictor.
func New(opts ...Option) *Predictor {
	p := &Predictor{minSamples: DefaultMinSamples}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Trained reports whether a model has been fit.
func (p *Predictor) Trained() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model != nil
}

// Metrics returns the last training pass's metrics.
func (p *Predictor) Metrics() (Metrics, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.model == nil {
		return Metrics{}, errors.ErrNotTrained
	}
	return p.metrics, nil
}

// usable filters records to those with a positive price and mileage and
// a plausible year, the same screen the training data always had.
func usable(vehicles []*inventory.Vehicle) []*inventory.Vehicle {
	out := make([]*inventory.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if v.Price == nil || v.Mileage == nil || v.Year == nil {
			continue
		}
		if *v.Price <= 0 || *v.Mileage <= 0 || *v.Year <= 2000 {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Train fits the model on the given records. Too few usable samples, or
// a degenerate training set, yields a ValidationError (matching
// errors.ErrInvalidInput); a previously fit model stays in place in
// that case.
func (p *Predictor) Train(vehicles []*inventory.Vehicle) (Metrics, error) {
	rows := usable(vehicles)
	if len(rows) < p.minSamples {
		return Metrics{}, &errors.ValidationError{
			Field:   "samples",
			Message: "insufficient training data",
		}
	}

	refYear := time.Now().UTC().Year()

	// Normal equations for price = b0 + b1*age + b2*mileage.
	var n, sa, sm, saa, smm, sam, sy, say, smy float64
	for _, v := range rows {
		age := float64(refYear - *v.Year)
		miles := float64(*v.Mileage)
		price := float64(*v.Price)
		n++
		sa += age
		sm += miles
		saa += age * age
		smm += miles * miles
		sam += age * miles
		sy += price
		say += age * price
		smy += miles * price
	}

	coef, ok := solve3([3][4]float64{
		{n, sa, sm, sy},
		{sa, saa, sam, say},
		{sm, sam, smm, smy},
	})
	if !ok {
		return Metrics{}, &errors.ValidationError{
			Field:   "samples",
			Message: "degenerate training data",
		}
	}

	m := &model{intercept: coef[0], age: coef[1], mileage: coef[2], refYear: refYear}

	var absErr, sqErr, ssTot float64
	mean := sy / n
	for _, v := range rows {
		predicted := m.predict(*v.Year, *v.Mileage)
		residual := float64(*v.Price) - predicted
		absErr += math.Abs(residual)
		sqErr += residual * residual
		diff := float64(*v.Price) - mean
		ssTot += diff * diff
	}
	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - sqErr/ssTot
	}
	metrics := Metrics{
		Samples:   len(rows),
		MAE:       absErr / n,
		RMSE:      math.Sqrt(sqErr / n),
		R2:        r2,
		TrainedAt: time.Now().UTC(),
	}

	p.mu.Lock()
	p.model = m
	p.metrics = metrics
	p.mu.Unlock()

	return metrics, nil
}

func (m *model) predict(year, mileage int) float64 {
	age := float64(m.refYear - year)
	return m.intercept + m.age*age + m.mileage*float64(mileage)
}

// Predict returns the predicted price for one vehicle. Vehicles missing
// year or mileage cannot be scored.
func (p *Predictor) Predict(v *inventory.Vehicle) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.model == nil {
		return 0, errors.ErrNotTrained
	}
	if v.Year == nil || v.Mileage == nil {
		return 0, errors.NewValidationError("vehicle", "year and mileage required for prediction")
	}
	predicted := p.model.predict(*v.Year, *v.Mileage)
	if predicted < 0 {
		predicted = 0
	}
	return predicted, nil
}

// PredictBatch scores every vehicle that can be scored, keyed by VIN.
func (p *Predictor) PredictBatch(vehicles []*inventory.Vehicle) map[string]float64 {
	predictions := make(map[string]float64, len(vehicles))
	for _, v := range vehicles {
		predicted, err := p.Predict(v)
		if err != nil {
			continue
		}
		predictions[v.VIN] = predicted
	}
	return predictions
}

// solve3 solves a 3-unknown linear system given as an augmented matrix,
// via Gaussian elimination with partial pivoting.
func solve3(m [3][4]float64) ([3]float64, bool) {
	const eps = 1e-12
	for col := 0; col < 3; col++ {
		pivot := col
		for row := col + 1; row < 3; row++ {
			if math.Abs(m[row][col]) > math.Abs(m[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(m[pivot][col]) < eps {
			return [3]float64{}, false
		}
		m[col], m[pivot] = m[pivot], m[col]
		for row := 0; row < 3; row++ {
			if row == col {
				continue
			}
			factor := m[row][col] / m[col][col]
			for k := col; k < 4; k++ {
				m[row][k] -= factor * m[col][k]
			}
		}
	}
	var coef [3]float64
	for i := 0; i < 3; i++ {
		coef[i] = m[i][3] / m[i][i]
	}
	return coef, true
}
