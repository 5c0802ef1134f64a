// Package indicators implements the technical indicators consumed by the
// technical analyst agent. All functions evaluate the indicator as of the
// last candle in the window.
package indicators

import (
	"errors"

	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
)

var (
	// ErrInsufficientData is returned when there's not enough data for calculation.
	ErrInsufficientData = errors.New("insufficient data for calculation")
	// ErrInvalidPeriod is returned when the period is invalid.
	ErrInvalidPeriod = errors.New("invalid period")
)

// SMA returns the simple moving average of the closing prices over the last
// period candles.
func SMA(candles []models.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if len(candles) < period {
		return 0, ErrInsufficientData
	}

	var sum float64
	for _, c := range candles[len(candles)-period:] {
		sum += c.Close
	}
	return sum / float64(period), nil
}

// RSI returns the Relative Strength Index of the closing prices over the last
// period candles. A market with no down moves in the window reads 100.
func RSI(candles []models.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if len(candles) < period+1 {
		return 0, ErrInsufficientData
	}

	var gains, losses float64
	window := candles[len(candles)-period-1:]
	for i := 1; i < len(window); i++ {
		change := window[i].Close - window[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	if losses == 0 {
		return 100, nil
	}
	rs := gains / losses
	return 100 - 100/(1+rs), nil
}

// Momentum returns the fractional price change over the last period candles.
func Momentum(candles []models.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if len(candles) < period+1 {
		return 0, ErrInsufficientData
	}

	past := candles[len(candles)-1-period].Close
	if past == 0 {
		return 0, ErrInsufficientData
	}
	return candles[len(candles)-1].Close/past - 1, nil
}
