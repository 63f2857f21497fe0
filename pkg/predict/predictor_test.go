package predict_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotwatch/lotwatch/pkg/errors"
	"github.com/lotwatch/lotwatch/pkg/inventory"
	"github.com/lotwatch/lotwatch/pkg/predict"
)

// fleet builds n vehicles whose price is an exact linear function of
// age and mileage, so the fit should recover it almost perfectly.
func fleet(n int) []*inventory.Vehicle {
	vehicles := make([]*inventory.Vehicle, 0, n)
	year := time.Now().UTC().Year()
	for i := 0; i < n; i++ {
		age := 1 + i%6
		mileage := 10000 + 7000*i
		price := 60000 - 2500*age - mileage/10
		vehicles = append(vehicles, &inventory.Vehicle{
			VIN:     string(rune('A'+i)) + "0000",
			Price:   inventory.Int(price),
			Mileage: inventory.Int(mileage),
			Year:    inventory.Int(year - age),
		})
	}
	return vehicles
}

func TestTrainAndPredict(t *testing.T) {
	p := predict.New()
	vehicles := fleet(12)

	metrics, err := p.Train(vehicles)
	require.NoError(t, err)
	assert.Equal(t, 12, metrics.Samples)
	assert.Less(t, metrics.MAE, 500.0)
	assert.Greater(t, metrics.R2, 0.95)
	assert.True(t, p.Trained())

	predicted, err := p.Predict(vehicles[0])
	require.NoError(t, err)
	assert.InDelta(t, float64(*vehicles[0].Price), predicted, 1500)
}

func TestTrainInsufficientSamples(t *testing.T) {
	p := predict.New()

	_, err := p.Train(fleet(3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	assert.False(t, p.Trained())

	_, err = p.Predict(&inventory.Vehicle{
		VIN:     "X1",
		Year:    inventory.Int(2022),
		Mileage: inventory.Int(30000),
	})
	assert.True(t, errors.Is(err, errors.ErrNotTrained))
}

func TestTrainSkipsUnusableRecords(t *testing.T) {
	p := predict.New(predict.WithMinSamples(5))

	vehicles := fleet(6)
	vehicles = append(vehicles,
		&inventory.Vehicle{VIN: "NOPRICE", Mileage: inventory.Int(1000), Year: inventory.Int(2020)},
		&inventory.Vehicle{VIN: "OLD", Price: inventory.Int(5000), Mileage: inventory.Int(200000), Year: inventory.Int(1999)},
	)

	metrics, err := p.Train(vehicles)
	require.NoError(t, err)
	assert.Equal(t, 6, metrics.Samples)
}

func TestPredictBatchSkipsUnscorable(t *testing.T) {
	p := predict.New()
	vehicles := fleet(10)
	_, err := p.Train(vehicles)
	require.NoError(t, err)

	vehicles = append(vehicles, &inventory.Vehicle{VIN: "NOYEAR", Price: inventory.Int(20000)})
	predictions := p.PredictBatch(vehicles)

	assert.Len(t, predictions, 10)
	assert.NotContains(t, predictions, "NOYEAR")
}
