package backtest

import (
	"errors"
	"math"
	"sort"

	"hyperliquid-grid-bot/internal/domain"
)

// priceScale quantizes prices to five decimal places before replay.
const priceScale = 1e5

// Normalization errors.
var (
	ErrNegativeTimestamp = errors.New("timestamps before UNIX epoch are unsupported")
)

// NormalizeSamples prepares a price series for replay: timestamps are
// checked against the epoch, the series is stably sorted by timestamp, and
// prices are quantized to five decimal places. The input slice is not
// modified.
func NormalizeSamples(samples []domain.PriceSample) ([]domain.PriceSample, error) {
	normalized := make([]domain.PriceSample, len(samples))
	for i, s := range samples {
		if s.Timestamp.Unix() < 0 {
			return nil, ErrNegativeTimestamp
		}
		normalized[i] = domain.PriceSample{
			Timestamp: s.Timestamp,
			Price:     quantizePrice(s.Price),
		}
	}
	sort.SliceStable(normalized, func(i, j int) bool {
		return normalized[i].Timestamp.Before(normalized[j].Timestamp)
	})
	return normalized, nil
}

func quantizePrice(price float64) float64 {
	return math.Round(price*priceScale) / priceScale
}
