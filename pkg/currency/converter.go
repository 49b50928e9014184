// Package currency converts charge amounts into the reference currency (USD)
// for ledger reporting. Converters are total: a failed conversion yields a
// nil converted amount, never an error, so charging always proceeds.
package currency

import (
	"context"
	"math"

	"github.com/SwapHiremath/subscription-billing-simulator/pkg/observability"
)

// ReferenceCurrency is the currency all charges are converted into.
const ReferenceCurrency = "USD"

// Conversion is the outcome of converting an amount into the reference
// currency. Converted is nil when the rate was unavailable.
type Conversion struct {
	Amount    float64
	Currency  string
	Converted *float64
}

// Converter converts a charge amount from its currency into the reference
// currency. Implementations absorb failures: the ledger records a nil
// converted amount instead of the billing tick failing.
type Converter interface {
	Convert(ctx context.Context, amount float64, fromCurrency string) Conversion
}

// RateSource resolves the exchange rate from a currency into the reference
// currency. Unlike Converter, sources may fail.
type RateSource interface {
	Rate(ctx context.Context, fromCurrency string) (float64, error)
}

// RateConverter converts through a RateSource, rounding results half away
// from zero to two decimal places.
type RateConverter struct {
	source  RateSource
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewRateConverter creates a new RateConverter
func NewRateConverter(source RateSource, logger *observability.Logger, metrics *observability.Metrics) *RateConverter {
	if logger == nil {
		logger = observability.NewLogger("info", nil)
	}
	return &RateConverter{
		source:  source,
		logger:  logger.WithField("component", "currency"),
		metrics: metrics,
	}
}

// Convert converts amount from fromCurrency into the reference currency. On
// any rate source failure the result carries a nil Converted.
func (c *RateConverter) Convert(ctx context.Context, amount float64, fromCurrency string) Conversion {
	conversion := Conversion{Amount: amount, Currency: fromCurrency}

	if fromCurrency == ReferenceCurrency {
		v := Round2(amount)
		conversion.Converted = &v
		return conversion
	}

	rate, err := c.source.Rate(ctx, fromCurrency)
	if err != nil {
		c.logger.WithError(err).WithField("currency", fromCurrency).
			Warn("currency conversion failed, recording null converted amount")
		return conversion
	}

	v := Round2(amount * rate)
	conversion.Converted = &v
	return conversion
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
